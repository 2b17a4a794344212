package dispatch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/harnesslab/gimpbridge/internal/engine"
	"github.com/harnesslab/gimpbridge/internal/history"
	"github.com/harnesslab/gimpbridge/internal/protocol"
	"github.com/harnesslab/gimpbridge/internal/session"
)

func newTestDispatcher(t *testing.T) (*Dispatcher, *engine.Fake, string) {
	t.Helper()
	dir := t.TempDir()
	fake := engine.NewFake()
	sess := session.New("127.0.0.1:0")
	startSession(t, sess)
	hist := history.NewManager(dir, 50)
	d := New(fake, sess, hist, "0.0.0-test", nil)
	return d, fake, dir
}

func startSession(t *testing.T, sess *session.Session) {
	t.Helper()
	for _, next := range []session.State{session.Starting, session.Running} {
		if err := sess.TransitionTo(next, "test"); err != nil {
			t.Fatalf("TransitionTo(%s): %v", next, err)
		}
	}
}

func seedImage(t *testing.T, dir string, content string) string {
	t.Helper()
	path := filepath.Join(dir, "photo.xcf")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("seed image: %v", err)
	}
	return path
}

const seedDoc = `{"width": 3000, "height": 2000, "layers": [{"name": "Background", "opacity": 100, "mode": "normal"}]}`

func TestExecuteUnknownMethod(t *testing.T) {
	d, _, _ := newTestDispatcher(t)
	_, err := d.Execute(context.Background(), "image.explode", nil)
	if got := protocol.CodeOf(err); got != protocol.CodeNotFound {
		t.Errorf("error code = %q, want NOT_FOUND (err %v)", got, err)
	}
}

func TestExecuteMissingFile(t *testing.T) {
	d, _, dir := newTestDispatcher(t)
	_, err := d.Execute(context.Background(), "image.inspect", map[string]any{
		"image": filepath.Join(dir, "absent.xcf"),
	})
	if got := protocol.CodeOf(err); got != protocol.CodeFileNotFound {
		t.Errorf("error code = %q, want FILE_NOT_FOUND (err %v)", got, err)
	}
}

func TestExecuteDomainValidation(t *testing.T) {
	d, _, dir := newTestDispatcher(t)
	image := seedImage(t, dir, seedDoc)

	tests := []struct {
		name   string
		method string
		params map[string]any
	}{
		{"zero width", "image.resize", map[string]any{"image": image, "width": 0, "height": 600}},
		{"bad degrees", "image.rotate", map[string]any{"image": image, "degrees": 45}},
		{"opacity range", "layer.opacity", map[string]any{"image": image, "layerIndex": 0, "opacity": 140.0}},
		{"levels inverted", "adjust.levels", map[string]any{"image": image, "black": 200.0, "white": 100.0}},
		{"blank layer name", "layer.add", map[string]any{"image": image, "name": "   "}},
		{"curves one point", "adjust.curves", map[string]any{"image": image, "points": []any{map[string]any{"x": 0, "y": 0}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.Execute(context.Background(), tt.method, tt.params)
			if got := protocol.CodeOf(err); got != protocol.CodeInvalidInput {
				t.Errorf("error code = %q, want INVALID_INPUT (err %v)", got, err)
			}
		})
	}
}

func TestResizeRecordsHistoryAndApplies(t *testing.T) {
	d, _, dir := newTestDispatcher(t)
	image := seedImage(t, dir, seedDoc)
	ctx := context.Background()

	result, err := d.Execute(ctx, "image.resize", map[string]any{
		"image": image, "width": 800, "height": 600,
	})
	if err != nil {
		t.Fatalf("resize: %v", err)
	}
	if result["width"] != 800 || result["height"] != 600 {
		t.Errorf("result = %v", result)
	}

	info, err := d.Execute(ctx, "image.inspect", map[string]any{"image": image})
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if info["width"] != 800 {
		t.Errorf("width after resize = %v, want 800", info["width"])
	}

	past, _, err := d.history.Entries(image)
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if len(past) != 2 {
		t.Fatalf("past length = %d, want baseline + mutation", len(past))
	}
	if past[0].Description != "open" || past[1].Description != "auto-after-resize" {
		t.Errorf("descriptions = %q, %q", past[0].Description, past[1].Description)
	}
}

func TestSaveToOtherPathSkipsHistory(t *testing.T) {
	d, _, dir := newTestDispatcher(t)
	image := seedImage(t, dir, seedDoc)

	_, err := d.Execute(context.Background(), "image.resize", map[string]any{
		"image": image, "width": 800, "height": 600,
		"output": filepath.Join(dir, "resized.xcf"),
	})
	if err != nil {
		t.Fatalf("resize to output: %v", err)
	}
	past, _, _ := d.history.Entries(image)
	if len(past) != 0 {
		t.Errorf("history entries = %d, want 0 for out-of-place edit", len(past))
	}
}

func TestUndoRedoScenario(t *testing.T) {
	d, _, dir := newTestDispatcher(t)
	image := seedImage(t, dir, seedDoc)
	ctx := context.Background()

	mustExec := func(method string, params map[string]any) map[string]any {
		t.Helper()
		result, err := d.Execute(ctx, method, params)
		if err != nil {
			t.Fatalf("%s: %v", method, err)
		}
		return result
	}

	mustExec("image.open", map[string]any{"image": image})
	mustExec("image.resize", map[string]any{"image": image, "width": 800, "height": 600})
	mustExec("image.snapshot", map[string]any{"image": image, "description": "after resize"})
	mustExec("adjust.invert", map[string]any{"image": image})

	result := mustExec("image.undo", map[string]any{"image": image})
	if result["description"] != "after resize" {
		t.Errorf("restored description = %v, want %q", result["description"], "after resize")
	}
	if result["undone"] != "auto-after-invert" {
		t.Errorf("undone = %v", result["undone"])
	}

	info := mustExec("image.inspect", map[string]any{"image": image})
	if info["width"] != 800 || info["height"] != 600 {
		t.Errorf("dimensions after undo = %vx%v, want 800x600", info["width"], info["height"])
	}

	redone := mustExec("image.redo", map[string]any{"image": image})
	if redone["description"] != "auto-after-invert" {
		t.Errorf("redone description = %v", redone["description"])
	}
}

func TestUndoWithoutHistory(t *testing.T) {
	d, _, dir := newTestDispatcher(t)
	image := seedImage(t, dir, seedDoc)

	_, err := d.Execute(context.Background(), "image.undo", map[string]any{"image": image})
	if got := protocol.CodeOf(err); got != protocol.CodeInvalidInput {
		t.Errorf("error code = %q, want INVALID_INPUT (err %v)", got, err)
	}
}

func TestEngineFailureLeavesNoHistoryEntry(t *testing.T) {
	d, fake, dir := newTestDispatcher(t)
	image := seedImage(t, dir, seedDoc)
	fake.Fail = os.ErrPermission

	_, err := d.Execute(context.Background(), "adjust.invert", map[string]any{"image": image})
	if got := protocol.CodeOf(err); got != protocol.CodeInternal {
		t.Errorf("error code = %q, want INTERNAL (err %v)", got, err)
	}
	past, _, _ := d.history.Entries(image)
	if len(past) > 1 {
		t.Errorf("history recorded a mutation despite engine failure: %d entries", len(past))
	}
}

func TestPlanEditMapsActions(t *testing.T) {
	d, fake, dir := newTestDispatcher(t)
	image := seedImage(t, dir, seedDoc)

	_, err := d.Execute(context.Background(), "project.plan_edit", map[string]any{
		"image":  image,
		"action": "rotate",
		"params": map[string]any{"degrees": 90},
	})
	if err != nil {
		t.Fatalf("plan_edit: %v", err)
	}
	calls := fake.Calls()
	if len(calls) != 1 || calls[0].Action != "rotate" {
		t.Errorf("engine calls = %+v", calls)
	}

	_, err = d.Execute(context.Background(), "project.plan_edit", map[string]any{
		"image":  image,
		"action": "explode",
	})
	if got := protocol.CodeOf(err); got != protocol.CodeInvalidInput {
		t.Errorf("unknown plan action code = %q, want INVALID_INPUT", got)
	}
}

func TestPresetApply(t *testing.T) {
	d, _, dir := newTestDispatcher(t)
	image := seedImage(t, dir, seedDoc)
	ctx := context.Background()

	listed, err := d.Execute(ctx, "preset.list", nil)
	if err != nil {
		t.Fatalf("preset.list: %v", err)
	}
	if presets := listed["presets"].([]string); len(presets) != 3 {
		t.Errorf("presets = %v", presets)
	}

	result, err := d.Execute(ctx, "preset.apply", map[string]any{"image": image, "preset": "thumbnail"})
	if err != nil {
		t.Fatalf("preset.apply: %v", err)
	}
	if steps := result["results"].([]any); len(steps) != 2 {
		t.Errorf("results = %v", steps)
	}

	info, _ := d.Execute(ctx, "image.inspect", map[string]any{"image": image})
	if info["width"] != 512 || info["height"] != 512 {
		t.Errorf("dimensions after thumbnail = %vx%v, want 512x512", info["width"], info["height"])
	}

	_, err = d.Execute(ctx, "preset.apply", map[string]any{"image": image, "preset": "nope"})
	if got := protocol.CodeOf(err); got != protocol.CodeInvalidInput {
		t.Errorf("unknown preset code = %q, want INVALID_INPUT", got)
	}
}

func TestMacroRunStopsAtFirstFailure(t *testing.T) {
	d, fake, dir := newTestDispatcher(t)
	image := seedImage(t, dir, seedDoc)

	_, err := d.Execute(context.Background(), "macro.run", map[string]any{
		"image": image,
		"macro": []any{
			map[string]any{"method": "image.resize", "params": map[string]any{"width": float64(800), "height": float64(600)}},
			map[string]any{"method": "image.rotate", "params": map[string]any{"degrees": float64(45)}},
			map[string]any{"method": "adjust.invert"},
		},
	})
	if got := protocol.CodeOf(err); got != protocol.CodeInvalidInput {
		t.Fatalf("error code = %q, want INVALID_INPUT (err %v)", got, err)
	}
	for _, call := range fake.Calls() {
		if call.Action == "invert" {
			t.Error("step after the failing one still ran")
		}
	}
}

func TestCloneAndDiff(t *testing.T) {
	d, _, dir := newTestDispatcher(t)
	image := seedImage(t, dir, seedDoc)
	target := filepath.Join(dir, "copy.xcf")
	ctx := context.Background()

	if _, err := d.Execute(ctx, "image.clone", map[string]any{"source": image, "target": target}); err != nil {
		t.Fatalf("clone: %v", err)
	}
	_, err := d.Execute(ctx, "image.clone", map[string]any{"source": image, "target": target})
	if got := protocol.CodeOf(err); got != protocol.CodeInvalidInput {
		t.Errorf("clone onto existing target code = %q, want INVALID_INPUT", got)
	}
	if _, err := d.Execute(ctx, "image.clone", map[string]any{"source": image, "target": target, "overwrite": true}); err != nil {
		t.Errorf("clone with overwrite: %v", err)
	}

	diff, err := d.Execute(ctx, "image.diff", map[string]any{"source": image, "target": target})
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	if diff["sameBytes"] != true || diff["sameDimensions"] != true {
		t.Errorf("diff = %v, want identical", diff)
	}
}

func TestSoakHealth(t *testing.T) {
	d, _, _ := newTestDispatcher(t)
	result, err := d.Execute(context.Background(), "system.soak", map[string]any{
		"iterations": 25,
	})
	if err != nil {
		t.Fatalf("soak: %v", err)
	}
	if result["stable"] != true || result["failures"] != int64(0) {
		t.Errorf("soak result = %v", result)
	}
}

func TestSystemSurface(t *testing.T) {
	d, _, _ := newTestDispatcher(t)
	ctx := context.Background()

	health, err := d.Execute(ctx, "system.health", nil)
	if err != nil || health["ok"] != true {
		t.Errorf("health = %v, %v", health, err)
	}

	version, err := d.Execute(ctx, "system.version", nil)
	if err != nil || version["packageVersion"] != "0.0.0-test" {
		t.Errorf("version = %v, %v", version, err)
	}

	acts, err := d.Execute(ctx, "system.actions", nil)
	if err != nil {
		t.Fatalf("actions: %v", err)
	}
	if methods := acts["actions"].([]string); len(methods) < 50 {
		t.Errorf("actions lists %d methods", len(methods))
	}

	doctor, err := d.Execute(ctx, "system.doctor", map[string]any{"verbose": true})
	if err != nil {
		t.Fatalf("doctor: %v", err)
	}
	if doctor["healthy"] != true {
		t.Errorf("doctor with in-process engine = %v", doctor)
	}
	if _, ok := doctor["runtime"]; !ok {
		t.Error("verbose doctor is missing runtime details")
	}
}

func TestCropCenterBounds(t *testing.T) {
	d, fake, dir := newTestDispatcher(t)
	image := seedImage(t, dir, seedDoc)
	ctx := context.Background()

	_, err := d.Execute(ctx, "image.crop_center", map[string]any{"image": image, "width": 9000, "height": 100})
	if got := protocol.CodeOf(err); got != protocol.CodeInvalidInput {
		t.Fatalf("oversized crop code = %q, want INVALID_INPUT", got)
	}

	if _, err := d.Execute(ctx, "image.crop_center", map[string]any{"image": image, "width": 1000, "height": 1000}); err != nil {
		t.Fatalf("crop_center: %v", err)
	}
	calls := fake.Calls()
	var crop *engine.Call
	for i := range calls {
		if calls[i].Action == "crop" {
			crop = &calls[i]
		}
	}
	if crop == nil {
		t.Fatal("no crop action reached the engine")
	}
	if crop.Payload["x"] != 1000 || crop.Payload["y"] != 500 {
		t.Errorf("crop offsets = %v,%v, want centered 1000,500", crop.Payload["x"], crop.Payload["y"])
	}
}

func TestExecuteRequiresRunningSession(t *testing.T) {
	dir := t.TempDir()
	sess := session.New("127.0.0.1:0")
	d := New(engine.NewFake(), sess, history.NewManager(dir, 50), "0.0.0-test", nil)
	image := seedImage(t, dir, seedDoc)
	ctx := context.Background()

	_, err := d.Execute(ctx, "image.resize", map[string]any{
		"image": image, "width": 800, "height": 600,
	})
	if got := protocol.CodeOf(err); got != protocol.CodeBridgeUnavailable {
		t.Fatalf("resize on not-running session code = %q, want BRIDGE_UNAVAILABLE (err %v)", got, err)
	}
	if d.session.Project(image) != nil {
		t.Error("rejected call still opened a project")
	}
	past, _, _ := d.history.Entries(image)
	if len(past) != 0 {
		t.Errorf("rejected call recorded %d history entries", len(past))
	}

	// Status-class probes keep answering so callers can watch startup.
	for _, method := range []string{"system.health", "system.version", "system.actions", "system.doctor"} {
		if _, err := d.Execute(ctx, method, nil); err != nil {
			t.Errorf("%s on not-running session: %v", method, err)
		}
	}
}

func TestInPlaceEditViaAlternatePathSpelling(t *testing.T) {
	d, _, dir := newTestDispatcher(t)
	image := seedImage(t, dir, seedDoc)
	alt := dir + string(filepath.Separator) + "." + string(filepath.Separator) + "photo.xcf"

	_, err := d.Execute(context.Background(), "image.resize", map[string]any{
		"image": image, "width": 800, "height": 600, "output": alt,
	})
	if err != nil {
		t.Fatalf("resize: %v", err)
	}
	past, _, err := d.history.Entries(image)
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if len(past) != 2 {
		t.Fatalf("past length = %d, want baseline + mutation for in-place edit", len(past))
	}
	if d.session.Project(alt) != d.session.Project(image) {
		t.Error("path spellings resolved to different projects")
	}
}

// serialEngine fails the test's overlap counter whenever two invocations
// run at the same time.
type serialEngine struct {
	engine.Engine
	inFlight atomic.Int32
	overlaps atomic.Int32
}

func (e *serialEngine) Invoke(ctx context.Context, action string, payload map[string]any) (map[string]any, error) {
	if e.inFlight.Add(1) > 1 {
		e.overlaps.Add(1)
	}
	defer e.inFlight.Add(-1)
	time.Sleep(2 * time.Millisecond)
	return e.Engine.Invoke(ctx, action, payload)
}

func TestConcurrentMutationsSerializePerProject(t *testing.T) {
	dir := t.TempDir()
	eng := &serialEngine{Engine: engine.NewFake()}
	sess := session.New("127.0.0.1:0")
	startSession(t, sess)
	d := New(eng, sess, history.NewManager(dir, 50), "0.0.0-test", nil)
	image := seedImage(t, dir, seedDoc)
	alt := dir + string(filepath.Separator) + "." + string(filepath.Separator) + "photo.xcf"

	const writers = 8
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		path := image
		if i%2 == 1 {
			path = alt
		}
		wg.Add(1)
		go func(path string) {
			defer wg.Done()
			_, err := d.Execute(context.Background(), "image.resize", map[string]any{
				"image": path, "width": 800, "height": 600,
			})
			if err != nil {
				t.Errorf("concurrent resize: %v", err)
			}
		}(path)
	}
	wg.Wait()

	if n := eng.overlaps.Load(); n != 0 {
		t.Errorf("engine saw %d overlapping invocations, want 0", n)
	}
	past, _, err := d.history.Entries(image)
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if len(past) != writers+1 {
		t.Errorf("past length = %d, want baseline + %d mutations", len(past), writers)
	}
}
