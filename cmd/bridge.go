package cmd

import (
	"github.com/spf13/cobra"

	"github.com/harnesslab/gimpbridge/internal/client"
	"github.com/harnesslab/gimpbridge/internal/protocol"
	"github.com/harnesslab/gimpbridge/internal/state"
)

// bridgeClient resolves the bridge endpoint for this invocation. Precedence:
// --url flag, GIMPBRIDGE_URL, the persisted connection record, the default.
func bridgeClient() (*client.Client, error) {
	store, err := state.NewStore(cfg.StateDir)
	if err != nil {
		return nil, protocol.NewError(protocol.CodeInternal, "state directory unavailable: %v", err)
	}
	return client.New(state.ResolveURL(urlOverride, store)), nil
}

// callBridge performs one method call against the bridge and prints the
// command envelope for the result.
func callBridge(cmd *cobra.Command, method string, params map[string]any) error {
	cl, err := bridgeClient()
	if err != nil {
		return emit(cmd, nil, err)
	}
	result, err := cl.Call(cmd.Context(), method, params)
	return emit(cmd, result, err)
}

// orImage substitutes the image path when no explicit output was given, so
// edits default to in-place.
func orImage(output, image string) string {
	if output == "" {
		return image
	}
	return output
}
