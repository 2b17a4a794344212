package cmd

import (
	"errors"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/harnesslab/gimpbridge/internal/protocol"
	"github.com/harnesslab/gimpbridge/internal/state"
)

// stopPollBudget bounds how long stop waits for the daemon to exit after
// SIGTERM before reporting failure.
const stopPollBudget = 5 * time.Second

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the background bridge daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := state.NewStore(cfg.StateDir)
		if err != nil {
			return emit(cmd, nil, protocol.NewError(protocol.CodeInternal, "state directory unavailable: %v", err))
		}

		record, err := store.Load()
		if err != nil {
			if errors.Is(err, state.ErrNoRecord) {
				return emit(cmd, map[string]any{"status": "not-running"}, nil)
			}
			return emit(cmd, nil, protocol.NewError(protocol.CodeInternal, "reading connection record: %v", err))
		}

		if !processAlive(record.PID) {
			store.Delete()
			return emit(cmd, map[string]any{"status": "not-running"}, nil)
		}

		if err := syscall.Kill(record.PID, syscall.SIGTERM); err != nil {
			return emit(cmd, nil, protocol.NewError(protocol.CodeInternal, "signaling pid %d: %v", record.PID, err))
		}

		deadline := time.Now().Add(stopPollBudget)
		for time.Now().Before(deadline) {
			if !processAlive(record.PID) {
				// The daemon deletes its own record on a clean exit. Clear
				// it here too in case it was killed mid-shutdown.
				store.Delete()
				return emit(cmd, map[string]any{"status": "stopped", "pid": record.PID}, nil)
			}
			time.Sleep(100 * time.Millisecond)
		}
		return emit(cmd, nil, protocol.NewError(protocol.CodeInternal,
			"bridge pid %d did not exit within %s", record.PID, stopPollBudget))
	},
}

func init() {
	rootCmd.AddCommand(stopCmd)
}
