package cmd

import (
	"os"

	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"github.com/harnesslab/gimpbridge/internal/history"
	"github.com/harnesslab/gimpbridge/internal/protocol"
	"github.com/harnesslab/gimpbridge/internal/state"
	"github.com/harnesslab/gimpbridge/internal/tui"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect the recorded edit history of a project",
}

var historyPlain bool

var historyViewCmd = &cobra.Command{
	Use:   "view <image>",
	Short: "Browse the undo and redo stacks of a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := state.NewStore(cfg.StateDir)
		if err != nil {
			return emit(cmd, nil, protocol.NewError(protocol.CodeInternal, "state directory unavailable: %v", err))
		}

		// History lives on disk next to the connection record, so browsing
		// works even while the bridge is down.
		hist := history.NewManager(store.Dir(), cfg.HistoryDepth)
		past, future, err := hist.Entries(args[0])
		if err != nil {
			return emit(cmd, nil, err)
		}

		if historyPlain || !term.IsTerminal(os.Stdout.Fd()) {
			return emit(cmd, map[string]any{
				"image":  args[0],
				"past":   entryList(past),
				"future": entryList(future),
			}, nil)
		}
		if err := tui.Run(args[0], past, future); err != nil {
			return emit(cmd, nil, protocol.NewError(protocol.CodeInternal, "history browser failed: %v", err))
		}
		return nil
	},
}

func entryList(entries []history.Entry) []map[string]any {
	out := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		out = append(out, map[string]any{
			"seq":         e.Seq,
			"description": e.Description,
			"token":       e.Token,
			"createdAt":   e.CreatedAt,
		})
	}
	return out
}

func init() {
	historyViewCmd.Flags().BoolVar(&historyPlain, "plain", false, "print the history as JSON instead of the TUI")
	historyCmd.AddCommand(historyViewCmd)
	rootCmd.AddCommand(historyCmd)
}
