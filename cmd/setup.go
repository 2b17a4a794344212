package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"github.com/harnesslab/gimpbridge/internal/config"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Write the global gimpbridge config (re-run anytime to edit settings)",
	// Bypass the normal PersistentPreRunE so setup works with a broken
	// config file on disk.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		if !term.IsTerminal(os.Stdin.Fd()) {
			// Non-interactive: persist defaults so later runs have a file
			// to edit.
			if err := config.SaveGlobal(config.Defaults()); err != nil {
				return err
			}
			path, _ := config.GlobalPath()
			fmt.Printf("Wrote default config to %s\n", path)
			return nil
		}
		return runSetup()
	},
}

// runSetup walks the interactive setup wizard and saves the result.
func runSetup() error {
	r := bufio.NewReader(os.Stdin)

	ask := func(prompt, defaultVal string) (string, error) {
		if defaultVal != "" {
			fmt.Printf("%s [%s]: ", prompt, defaultVal)
		} else {
			fmt.Printf("%s: ", prompt)
		}
		line, err := r.ReadString('\n')
		if err != nil {
			return "", err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			return defaultVal, nil
		}
		return line, nil
	}

	askInt := func(prompt string, defaultVal int) (int, error) {
		for {
			ans, err := ask(prompt, strconv.Itoa(defaultVal))
			if err != nil {
				return 0, err
			}
			n, err := strconv.Atoi(ans)
			if err != nil {
				fmt.Println("  Please enter a number.")
				continue
			}
			return n, nil
		}
	}

	// Start from the merged config so re-running edits current settings.
	next := cfg
	if next.Host == "" {
		next = config.Defaults()
	}

	fmt.Println()
	fmt.Println("  ┌─────────────────────────────────┐")
	fmt.Println("  │     gimpbridge — setup          │")
	fmt.Println("  └─────────────────────────────────┘")
	fmt.Println()

	var err error

	next.Host, err = ask("  Bridge bind host", next.Host)
	if err != nil {
		return fmt.Errorf("setup cancelled: %w", err)
	}
	next.Port, err = askInt("  Bridge bind port", next.Port)
	if err != nil {
		return fmt.Errorf("setup cancelled: %w", err)
	}
	next.HistoryDepth, err = askInt("  Undo history depth per project", next.HistoryDepth)
	if err != nil {
		return fmt.Errorf("setup cancelled: %w", err)
	}
	next.GimpBinary, err = ask("  GIMP binary (blank to auto-detect)", next.GimpBinary)
	if err != nil {
		return fmt.Errorf("setup cancelled: %w", err)
	}

	if err := config.SaveGlobal(next); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	fmt.Println("  ✓ Config saved.")
	fmt.Println("  Run 'gimpbridge start' to bring up the bridge.")
	fmt.Println()
	return nil
}

func init() {
	rootCmd.AddCommand(setupCmd)
}
