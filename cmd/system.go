package cmd

import (
	"encoding/json"
	"errors"
	"math"
	"time"

	"github.com/spf13/cobra"

	"github.com/harnesslab/gimpbridge/internal/protocol"
)

var actionsCmd = &cobra.Command{
	Use:   "actions",
	Short: "List every method the bridge accepts",
	RunE: func(cmd *cobra.Command, args []string) error {
		return callBridge(cmd, "system.actions", nil)
	},
}

var doctorVerbose bool

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose the bridge and its engine binary",
	RunE: func(cmd *cobra.Command, args []string) error {
		return callBridge(cmd, "system.doctor", map[string]any{"verbose": doctorVerbose})
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		return emit(cmd, map[string]any{
			"packageVersion":  version,
			"protocolVersion": protocol.Version,
		}, nil)
	},
}

var (
	verifyIterations  int
	verifyMaxFailures int
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Probe the bridge repeatedly and report stability",
	RunE: func(cmd *cobra.Command, args []string) error {
		if verifyIterations < 1 {
			return emit(cmd, nil, protocol.NewError(protocol.CodeInvalidInput, "iterations must be at least 1"))
		}
		cl, err := bridgeClient()
		if err != nil {
			return emit(cmd, nil, err)
		}

		failures := 0
		minMs, maxMs, sumMs := math.MaxFloat64, 0.0, 0.0
		for i := 0; i < verifyIterations; i++ {
			start := time.Now()
			if _, err := cl.Call(cmd.Context(), "system.health", nil); err != nil {
				failures++
			}
			ms := float64(time.Since(start).Microseconds()) / 1000
			minMs = math.Min(minMs, ms)
			maxMs = math.Max(maxMs, ms)
			sumMs += ms
			time.Sleep(20 * time.Millisecond)
		}

		stable := failures <= verifyMaxFailures
		data := map[string]any{
			"stable":             stable,
			"iterations":         verifyIterations,
			"failures":           failures,
			"maxFailuresAllowed": verifyMaxFailures,
			"latencyMs": map[string]any{
				"min": round3(minMs),
				"max": round3(maxMs),
				"avg": round3(sumMs / float64(verifyIterations)),
			},
		}
		if err := emit(cmd, data, nil); err != nil {
			return err
		}
		if !stable {
			return &exitCodeError{code: 1, err: errors.New("bridge unstable")}
		}
		return nil
	},
}

var (
	soakIterations int
	soakAction     string
	soakParamsJSON string
)

var soakCmd = &cobra.Command{
	Use:   "soak",
	Short: "Run a soak loop inside the bridge",
	RunE: func(cmd *cobra.Command, args []string) error {
		var params map[string]any
		if err := json.Unmarshal([]byte(soakParamsJSON), &params); err != nil {
			return emit(cmd, nil, protocol.NewError(protocol.CodeInvalidInput, "invalid action params JSON: %v", err))
		}
		return callBridge(cmd, "system.soak", map[string]any{
			"iterations":    soakIterations,
			"action":        soakAction,
			"action_params": params,
		})
	},
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}

func init() {
	doctorCmd.Flags().BoolVar(&doctorVerbose, "verbose", false, "include runtime details")
	verifyCmd.Flags().IntVar(&verifyIterations, "iterations", 10, "number of health probes")
	verifyCmd.Flags().IntVar(&verifyMaxFailures, "max-failures", 0, "failures tolerated before the bridge counts as unstable")
	soakCmd.Flags().IntVar(&soakIterations, "iterations", 100, "number of soak calls")
	soakCmd.Flags().StringVar(&soakAction, "action", "system.health", "method to exercise")
	soakCmd.Flags().StringVar(&soakParamsJSON, "action-params-json", "{}", "JSON object with params for the soaked method")
	rootCmd.AddCommand(actionsCmd, doctorCmd, versionCmd, verifyCmd, soakCmd)
}
