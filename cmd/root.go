package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/harnesslab/gimpbridge/internal/config"
	"github.com/harnesslab/gimpbridge/internal/protocol"
)

// version is the build version, overridable at link time via
// -ldflags "-X github.com/harnesslab/gimpbridge/cmd.version=...".
var version = "0.3.0"

// cfg holds the merged configuration, populated in PersistentPreRunE.
var cfg config.Config

// urlOverride is the --url persistent flag. It beats GIMPBRIDGE_URL and the
// persisted connection record.
var urlOverride string

var rootCmd = &cobra.Command{
	Use:   "gimpbridge",
	Short: "Scriptable image editing over a persistent local GIMP bridge",
	Long: `gimpbridge drives a GIMP batch engine through a local HTTP bridge daemon.
Every command writes exactly one JSON envelope to stdout, so the output is
safe to pipe into jq or an automation harness.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Load and merge config files.
		global, err := config.LoadGlobal()
		if err != nil {
			return fmt.Errorf("loading global config: %w", err)
		}
		project, err := config.LoadProject()
		if err != nil {
			return fmt.Errorf("loading project config: %w", err)
		}
		cfg = config.Merge(global, project)
		return nil
	},
}

// exitCodeError carries the process exit code chosen by emit out through the
// cobra error path so Execute can apply it.
type exitCodeError struct {
	code int
	err  error
}

func (e *exitCodeError) Error() string { return e.err.Error() }

func (e *exitCodeError) Unwrap() error { return e.err }

// emit prints the single envelope for a command and turns a failure into the
// mapped exit code. Commands return its result directly from RunE.
func emit(cmd *cobra.Command, data map[string]any, err error) error {
	var env protocol.Envelope
	if err != nil {
		env = protocol.FailEnvelope(cmd.Name(), err)
	} else {
		env = protocol.OkEnvelope(cmd.Name(), data)
	}
	out, merr := json.MarshalIndent(env, "", "  ")
	if merr != nil {
		out = []byte(`{"ok":false,"protocolVersion":"` + protocol.Version + `","command":"` + cmd.Name() + `","error":{"code":"INTERNAL","message":"envelope not serializable"}}`)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	if err != nil {
		return &exitCodeError{code: protocol.ExitCode(protocol.CodeOf(err)), err: err}
	}
	if merr != nil {
		return &exitCodeError{code: protocol.ExitCode(protocol.CodeInternal), err: merr}
	}
	return nil
}

// Execute runs the root command and exits with the mapped code on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		var ec *exitCodeError
		if errors.As(err, &ec) {
			os.Exit(ec.code)
		}
		// Flag and setup errors never reached emit. Surface them in the
		// same envelope shape so callers only ever parse one format.
		env := protocol.FailEnvelope("", protocol.NewError(protocol.CodeInvalidInput, "%s", err.Error()))
		out, _ := json.MarshalIndent(env, "", "  ")
		fmt.Fprintln(os.Stdout, string(out))
		os.Exit(protocol.ExitCode(protocol.CodeInvalidInput))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&urlOverride, "url", "", "bridge base URL (overrides GIMPBRIDGE_URL and the saved record)")
}
