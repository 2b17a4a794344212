package engine

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// EnvBinary overrides engine binary resolution.
const EnvBinary = "GIMPBRIDGE_BIN"

// EnvProfileDir overrides where the engine keeps its scratch profile.
const EnvProfileDir = "GIMPBRIDGE_PROFILE_DIR"

// marker prefixes the single structured-output line the batch script prints.
const marker = "GIMPBRIDGE_JSON:"

// DefaultTimeout bounds one batch invocation when the caller's context
// carries no deadline.
const DefaultTimeout = 240 * time.Second

var binaryCandidates = []string{
	"gimp-console-3.0",
	"gimp-console",
	"gimp-3.0",
	"gimp",
}

// Gimp invokes the GIMP console binary in headless batch mode, one process
// per action. The batch script receives the action payload as JSON and
// prints a single marker-prefixed JSON line back.
type Gimp struct {
	// Binary is the configured engine binary. Empty means resolve from the
	// environment and PATH.
	Binary string

	// ProfileDir is the configured scratch profile directory. Empty means
	// resolve from the environment or default under the working directory.
	ProfileDir string
}

// ResolveBinary picks the engine binary: environment override first, then
// the configured path, then well-known names on PATH.
func (g *Gimp) ResolveBinary() (string, error) {
	if env := os.Getenv(EnvBinary); env != "" {
		if _, err := os.Stat(env); err == nil {
			return env, nil
		}
	}
	if g.Binary != "" {
		if _, err := os.Stat(g.Binary); err == nil {
			return g.Binary, nil
		}
	}
	for _, name := range binaryCandidates {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}
	return "", ErrNoBinary
}

// profileDir resolves and creates the engine's scratch profile. Keeping the
// engine off the user's real profile avoids first-run dialogs and font
// cache churn in their settings.
func (g *Gimp) profileDir() (string, error) {
	dir := os.Getenv(EnvProfileDir)
	if dir == "" {
		dir = g.ProfileDir
	}
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(cwd, ".gimp-profile", "GIMP", "3.0")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create engine profile dir: %w", err)
	}
	return dir, nil
}

// Invoke runs one batch action. The payload is injected into the embedded
// script base64-encoded so arbitrary strings survive the shell round trip.
func (g *Gimp) Invoke(ctx context.Context, action string, payload map[string]any) (map[string]any, error) {
	binary, err := g.ResolveBinary()
	if err != nil {
		return nil, err
	}
	profile, err := g.profileDir()
	if err != nil {
		return nil, err
	}
	script, err := renderScript(action, payload)
	if err != nil {
		return nil, err
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultTimeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, binary,
		"--no-interface",
		"--quit",
		"--batch-interpreter=python-fu-eval",
		"--batch", script,
	)
	cmd.Env = append(os.Environ(), "GIMP3_DIRECTORY="+profile)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	runErr := cmd.Run()

	merged := stdout.String() + "\n" + stderr.String()
	if runErr != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("engine batch timed out: %w", ctx.Err())
		}
		detail := strings.TrimSpace(merged)
		if detail == "" {
			detail = runErr.Error()
		}
		return nil, fmt.Errorf("engine batch failed: %s", detail)
	}
	return ParseOutput(merged)
}

// ParseOutput extracts the structured result from the engine's merged
// stdout/stderr. The script prints exactly one marker line; the last one
// wins if the engine echoes the batch argument back.
func ParseOutput(merged string) (map[string]any, error) {
	var line string
	scanner := bufio.NewScanner(strings.NewReader(merged))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if text := scanner.Text(); strings.HasPrefix(text, marker) {
			line = strings.TrimSpace(strings.TrimPrefix(text, marker))
		}
	}
	if line == "" {
		return nil, fmt.Errorf("engine returned no structured output")
	}
	var result map[string]any
	if err := json.Unmarshal([]byte(line), &result); err != nil {
		return nil, fmt.Errorf("invalid JSON from engine: %w", err)
	}
	return result, nil
}

func renderScript(action string, payload map[string]any) (string, error) {
	data := make(map[string]any, len(payload)+1)
	for k, v := range payload {
		data[k] = v
	}
	data["action"] = action
	blob, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("failed to encode engine payload: %w", err)
	}
	encoded := base64.StdEncoding.EncodeToString(blob)
	return strings.Replace(batchScript, "__PAYLOAD_B64__", encoded, 1), nil
}

// Version reports the engine binary's version banner, used by doctor.
func (g *Gimp) Version(ctx context.Context) (string, error) {
	binary, err := g.ResolveBinary()
	if err != nil {
		return "", err
	}
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	out, err := exec.CommandContext(ctx, binary, "--version").CombinedOutput()
	banner := strings.TrimSpace(string(out))
	if err != nil {
		if banner != "" {
			return banner, fmt.Errorf("engine version probe failed: %s", banner)
		}
		return "", fmt.Errorf("engine version probe failed: %w", err)
	}
	return banner, nil
}
