package cmd

import (
	"errors"
	"os"
	"os/exec"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/harnesslab/gimpbridge/internal/client"
	"github.com/harnesslab/gimpbridge/internal/protocol"
	"github.com/harnesslab/gimpbridge/internal/state"
)

// startPollBudget bounds how long start waits for the spawned daemon to
// answer its first health probe.
const startPollBudget = 3 * time.Second

var (
	startHost       string
	startPort       int
	startFakeEngine bool
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Spawn the bridge daemon in the background",
	RunE: func(cmd *cobra.Command, args []string) error {
		host := startHost
		if host == "" {
			host = cfg.Host
		}
		port := startPort
		if port == 0 {
			port = cfg.Port
		}

		store, err := state.NewStore(cfg.StateDir)
		if err != nil {
			return emit(cmd, nil, protocol.NewError(protocol.CodeInternal, "state directory unavailable: %v", err))
		}

		// A live record means a bridge is already up. A stale record (dead
		// pid) is cleared so the new daemon can claim the slot.
		if record, err := store.Load(); err == nil {
			if processAlive(record.PID) {
				return emit(cmd, map[string]any{
					"status": "already-running",
					"pid":    record.PID,
					"url":    record.URL(),
				}, nil)
			}
			store.Delete()
		} else if !errors.Is(err, state.ErrNoRecord) {
			return emit(cmd, nil, protocol.NewError(protocol.CodeInternal, "reading connection record: %v", err))
		}

		exe, err := os.Executable()
		if err != nil {
			return emit(cmd, nil, protocol.NewError(protocol.CodeInternal, "resolving executable: %v", err))
		}
		serveArgs := []string{"serve", "--host", host, "--port", strconv.Itoa(port)}
		if startFakeEngine {
			serveArgs = append(serveArgs, "--fake-engine")
		}
		child := exec.Command(exe, serveArgs...)
		child.Stdout = nil
		child.Stderr = nil
		child.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
		if err := child.Start(); err != nil {
			return emit(cmd, nil, protocol.NewError(protocol.CodeBridgeUnavailable, "spawning bridge daemon: %v", err))
		}
		// The daemon writes its own connection record. Detach so the child
		// outlives this command.
		pid := child.Process.Pid
		child.Process.Release()

		cl := client.New("http://" + host + ":" + strconv.Itoa(port))
		deadline := time.Now().Add(startPollBudget)
		for time.Now().Before(deadline) {
			if err := cl.Health(cmd.Context()); err == nil {
				return emit(cmd, map[string]any{
					"status": "started",
					"pid":    pid,
					"url":    cl.URL(),
				}, nil)
			}
			time.Sleep(100 * time.Millisecond)
		}
		return emit(cmd, nil, protocol.NewError(protocol.CodeBridgeUnavailable,
			"bridge process started but did not pass a health check within %s", startPollBudget))
	},
}

// processAlive reports whether pid names a running process.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}

func init() {
	startCmd.Flags().StringVar(&startHost, "host", "", "bind host (default from config)")
	startCmd.Flags().IntVar(&startPort, "port", 0, "bind port (default from config)")
	startCmd.Flags().BoolVar(&startFakeEngine, "fake-engine", false, "spawn the daemon with the in-process fake engine")
	rootCmd.AddCommand(startCmd)
}
