package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/spf13/cobra"

	"github.com/harnesslab/gimpbridge/internal/history"
	"github.com/harnesslab/gimpbridge/internal/protocol"
)

// execute runs the CLI with args and returns the captured stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

// decodeEnvelope parses the single JSON envelope a command printed.
func decodeEnvelope(t *testing.T, out string) protocol.Envelope {
	t.Helper()
	var env protocol.Envelope
	if err := json.Unmarshal([]byte(out), &env); err != nil {
		t.Fatalf("output is not one JSON envelope: %v\n%s", err, out)
	}
	return env
}

// isolate points config and state lookups at scratch directories so tests
// never touch the user's real files.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_STATE_HOME", t.TempDir())
	t.Setenv("GIMPBRIDGE_STATE_DIR", "")
	t.Setenv("GIMPBRIDGE_URL", "")
	urlOverride = ""
}

func TestVersionPrintsEnvelope(t *testing.T) {
	isolate(t)

	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	env := decodeEnvelope(t, out)
	if !env.OK {
		t.Fatalf("expected ok envelope, got %+v", env)
	}
	if env.Command != "version" {
		t.Errorf("command = %q, want version", env.Command)
	}
	if env.Data["protocolVersion"] != protocol.Version {
		t.Errorf("protocolVersion = %v, want %s", env.Data["protocolVersion"], protocol.Version)
	}
}

func TestStatusAgainstStubBridge(t *testing.T) {
	isolate(t)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			w.Write([]byte(`{"ok":true,"protocolVersion":"1.0","state":"Running"}`))
		case "/rpc":
			w.Write(protocol.EncodeReply(map[string]any{"state": "Running"}, nil))
		default:
			http.NotFound(w, r)
		}
	}))
	defer ts.Close()

	out, err := execute(t, "status", "--url", ts.URL)
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	env := decodeEnvelope(t, out)
	if !env.OK {
		t.Fatalf("expected ok envelope, got %+v", env)
	}
	if env.Data["running"] != true {
		t.Errorf("running = %v, want true", env.Data["running"])
	}
	if env.Data["url"] != ts.URL {
		t.Errorf("url = %v, want %s", env.Data["url"], ts.URL)
	}
}

func TestStatusDownBridgeExitsUnavailable(t *testing.T) {
	isolate(t)

	ts := httptest.NewServer(http.NotFoundHandler())
	ts.Close()

	out, err := execute(t, "status", "--url", ts.URL)
	env := decodeEnvelope(t, out)
	if env.OK {
		t.Fatalf("expected failure envelope, got %+v", env)
	}
	if env.Error.Code != protocol.CodeBridgeUnavailable {
		t.Errorf("code = %q, want %s", env.Error.Code, protocol.CodeBridgeUnavailable)
	}
	var ec *exitCodeError
	if !errors.As(err, &ec) {
		t.Fatalf("expected exitCodeError, got %v", err)
	}
	if ec.code != 5 {
		t.Errorf("exit code = %d, want 5", ec.code)
	}
}

func TestResizeSendsFullParams(t *testing.T) {
	isolate(t)

	var got protocol.Request
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rpc" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		w.Write(protocol.EncodeReply(map[string]any{"width": 800, "height": 600}, nil))
	}))
	defer ts.Close()

	out, err := execute(t, "resize", "photo.xcf", "--width", "800", "--height", "600", "--url", ts.URL)
	if err != nil {
		t.Fatalf("resize failed: %v", err)
	}
	env := decodeEnvelope(t, out)
	if !env.OK {
		t.Fatalf("expected ok envelope, got %+v", env)
	}

	if got.Method != "image.resize" {
		t.Errorf("method = %q, want image.resize", got.Method)
	}
	if got.Params["width"] != float64(800) || got.Params["height"] != float64(600) {
		t.Errorf("dimensions = %v x %v, want 800 x 600", got.Params["width"], got.Params["height"])
	}
	// No --output means edit in place.
	if got.Params["output"] != "photo.xcf" {
		t.Errorf("output = %v, want photo.xcf", got.Params["output"])
	}
}

func TestErrorReplyMapsToExitCode(t *testing.T) {
	isolate(t)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write(protocol.EncodeReply(nil, protocol.NewError(protocol.CodeFileNotFound, "no such image")))
	}))
	defer ts.Close()

	out, err := execute(t, "inspect", "gone.xcf", "--url", ts.URL)
	env := decodeEnvelope(t, out)
	if env.OK {
		t.Fatalf("expected failure envelope, got %+v", env)
	}
	if env.Error.Code != protocol.CodeFileNotFound {
		t.Errorf("code = %q, want %s", env.Error.Code, protocol.CodeFileNotFound)
	}
	var ec *exitCodeError
	if !errors.As(err, &ec) {
		t.Fatalf("expected exitCodeError, got %v", err)
	}
	if ec.code != 2 {
		t.Errorf("exit code = %d, want 2", ec.code)
	}
}

func TestHistoryViewPlain(t *testing.T) {
	isolate(t)
	stateDir := t.TempDir()
	t.Setenv("GIMPBRIDGE_STATE_DIR", stateDir)

	image := filepath.Join(t.TempDir(), "photo.xcf")
	if err := os.WriteFile(image, []byte(`{"width": 100, "height": 80}`), 0o644); err != nil {
		t.Fatal(err)
	}
	hist := history.NewManager(stateDir, 50)
	if err := hist.Baseline(image); err != nil {
		t.Fatal(err)
	}
	if _, err := hist.RecordMutation(image, "auto-after-resize"); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "history", "view", image, "--plain")
	if err != nil {
		t.Fatalf("history view failed: %v", err)
	}
	env := decodeEnvelope(t, out)
	if !env.OK {
		t.Fatalf("expected ok envelope, got %+v", env)
	}
	past, ok := env.Data["past"].([]any)
	if !ok || len(past) != 2 {
		t.Fatalf("past = %v, want 2 entries", env.Data["past"])
	}
	first := past[0].(map[string]any)
	if first["description"] != "open" {
		t.Errorf("first entry = %v, want open", first["description"])
	}
}

func TestVerifyCountsFailuresAgainstThreshold(t *testing.T) {
	isolate(t)

	// Fails the first three health probes, then recovers. INTERNAL is not
	// retried by the client, so every probe counts exactly once.
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rpc" {
			http.NotFound(w, r)
			return
		}
		if calls.Add(1) <= 3 {
			w.Write(protocol.EncodeReply(nil, protocol.NewError(protocol.CodeInternal, "engine hiccup")))
			return
		}
		w.Write(protocol.EncodeReply(map[string]any{"ok": true}, nil))
	}))
	defer ts.Close()

	out, err := execute(t, "verify", "--iterations", "10", "--max-failures", "2", "--url", ts.URL)
	env := decodeEnvelope(t, out)
	if !env.OK {
		t.Fatalf("verify must report via an ok envelope, got %+v", env)
	}
	if env.Data["stable"] != false {
		t.Errorf("stable = %v, want false (3 failures over a budget of 2)", env.Data["stable"])
	}
	if env.Data["failures"] != float64(3) {
		t.Errorf("failures = %v, want 3", env.Data["failures"])
	}

	var ec *exitCodeError
	if !errors.As(err, &ec) {
		t.Fatalf("expected exitCodeError, got %v", err)
	}
	if ec.code != 1 {
		t.Errorf("exit code = %d, want 1 for an unstable bridge", ec.code)
	}
}

func TestVerifyWithinThresholdStaysStable(t *testing.T) {
	isolate(t)

	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Write(protocol.EncodeReply(nil, protocol.NewError(protocol.CodeInternal, "engine hiccup")))
			return
		}
		w.Write(protocol.EncodeReply(map[string]any{"ok": true}, nil))
	}))
	defer ts.Close()

	out, err := execute(t, "verify", "--iterations", "5", "--max-failures", "2", "--url", ts.URL)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	env := decodeEnvelope(t, out)
	if env.Data["stable"] != true || env.Data["failures"] != float64(1) {
		t.Errorf("stable = %v failures = %v, want true / 1", env.Data["stable"], env.Data["failures"])
	}
}

func TestEmitFallbackEnvelopeNamesCommand(t *testing.T) {
	c := &cobra.Command{Use: "inspect"}
	buf := new(bytes.Buffer)
	c.SetOut(buf)

	// A channel cannot be marshaled, forcing the hand-built envelope.
	err := emit(c, map[string]any{"bad": make(chan int)}, nil)

	env := decodeEnvelope(t, buf.String())
	if env.OK {
		t.Error("fallback envelope must report ok=false")
	}
	if env.Command != "inspect" {
		t.Errorf("command = %q, want inspect", env.Command)
	}
	if env.Error == nil || env.Error.Code != protocol.CodeInternal {
		t.Errorf("error = %+v, want INTERNAL", env.Error)
	}
	var ec *exitCodeError
	if !errors.As(err, &ec) {
		t.Fatalf("expected exitCodeError, got %v", err)
	}
	if ec.code != protocol.ExitCode(protocol.CodeInternal) {
		t.Errorf("exit code = %d, want %d", ec.code, protocol.ExitCode(protocol.CodeInternal))
	}
}
