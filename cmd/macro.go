package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/harnesslab/gimpbridge/internal/protocol"
)

var (
	runMacroFile       string
	runMacroParamsJSON string
)

var runMacroCmd = &cobra.Command{
	Use:   "run-macro <image>",
	Short: "Run a macro file of editing steps against an image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var params map[string]any
		if err := json.Unmarshal([]byte(runMacroParamsJSON), &params); err != nil {
			return emit(cmd, nil, protocol.NewError(protocol.CodeInvalidInput, "invalid params JSON: %v", err))
		}
		return callBridge(cmd, "macro.run", map[string]any{
			"image":  args[0],
			"macro":  runMacroFile,
			"params": params,
		})
	},
}

var listPresetsCmd = &cobra.Command{
	Use:   "list-presets",
	Short: "List built-in editing presets",
	RunE: func(cmd *cobra.Command, args []string) error {
		return callBridge(cmd, "preset.list", nil)
	},
}

var applyPresetCmd = &cobra.Command{
	Use:   "apply-preset <image> <preset>",
	Short: "Apply a built-in preset to an image",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return callBridge(cmd, "preset.apply", map[string]any{
			"image":  args[0],
			"preset": args[1],
		})
	},
}

func init() {
	runMacroCmd.Flags().StringVar(&runMacroFile, "macro", "", "path to a JSON macro file")
	runMacroCmd.Flags().StringVar(&runMacroParamsJSON, "params-json", "{}", "JSON object with shared step parameters")
	runMacroCmd.MarkFlagRequired("macro")

	rootCmd.AddCommand(runMacroCmd, listPresetsCmd, applyPresetCmd)
}
