package cmd

import (
	"github.com/spf13/cobra"

	"github.com/harnesslab/gimpbridge/internal/protocol"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether the bridge daemon is reachable",
	RunE: func(cmd *cobra.Command, args []string) error {
		cl, err := bridgeClient()
		if err != nil {
			return emit(cmd, nil, err)
		}
		if err := cl.Health(cmd.Context()); err != nil {
			return emit(cmd, nil, protocol.NewError(protocol.CodeBridgeUnavailable,
				"bridge not reachable at %s: %v", cl.URL(), err))
		}
		result, err := cl.Call(cmd.Context(), "system.health", nil)
		if err != nil {
			return emit(cmd, nil, err)
		}
		return emit(cmd, map[string]any{"running": true, "url": cl.URL(), "health": result}, nil)
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
