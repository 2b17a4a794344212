// Package dispatch executes bridge methods: it validates parameters against
// the registry, enforces domain rules, serializes work per project, drives
// the engine, and records history for in-place mutations.
package dispatch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/harnesslab/gimpbridge/internal/engine"
	"github.com/harnesslab/gimpbridge/internal/history"
	"github.com/harnesslab/gimpbridge/internal/macro"
	"github.com/harnesslab/gimpbridge/internal/protocol"
	"github.com/harnesslab/gimpbridge/internal/registry"
	"github.com/harnesslab/gimpbridge/internal/session"
)

// soakWorkers bounds concurrent iterations for read-only soak targets.
// Mutating targets run serially so per-project locking stays meaningful.
const soakWorkers = 4

// actions maps registry methods to engine batch actions. Methods absent
// here are handled entirely inside the dispatcher.
var actions = map[string]string{
	"image.open":                  "inspect",
	"image.inspect":               "inspect",
	"image.validate":              "inspect",
	"image.save":                  "export",
	"image.export":                "export",
	"image.resize":                "resize",
	"image.crop":                  "crop",
	"image.crop_center":           "crop",
	"image.rotate":                "rotate",
	"image.flip":                  "flip",
	"image.canvas_size":           "canvas_size",
	"adjust.brightness_contrast":  "brightness_contrast",
	"adjust.levels":               "levels",
	"adjust.curves":               "curves",
	"adjust.hue_saturation":       "hue_saturation",
	"adjust.color_balance":        "color_balance",
	"adjust.color_temperature":    "color_temperature",
	"adjust.invert":               "invert",
	"adjust.desaturate":           "desaturate",
	"filter.blur":                 "blur",
	"filter.gaussian_blur":        "gaussian_blur",
	"filter.sharpen":              "sharpen",
	"filter.unsharp_mask":         "unsharp_mask",
	"filter.noise_reduction":      "noise_reduction",
	"layer.list":                  "layer_list",
	"layer.add":                   "layer_add",
	"layer.remove":                "layer_remove",
	"layer.rename":                "layer_rename",
	"layer.opacity":               "layer_opacity",
	"layer.blend_mode":            "layer_blend_mode",
	"layer.duplicate":             "layer_duplicate",
	"layer.merge_down":            "layer_merge_down",
	"layer.reorder":               "layer_reorder",
	"selection.all":               "selection_all",
	"selection.none":              "selection_none",
	"selection.invert":            "selection_invert",
	"selection.feather":           "selection_feather",
	"selection.rectangle":         "selection_rectangle",
	"selection.ellipse":           "selection_ellipse",
	"mask.add":                    "mask_add",
	"mask.apply":                  "mask_apply",
	"text.add":                    "text_add",
	"text.update":                 "text_update",
	"annotation.stroke_selection": "stroke_selection",
}

// planActions maps project.plan_edit's hyphenated action names to methods.
var planActions = map[string]string{
	"resize":              "image.resize",
	"crop":                "image.crop",
	"crop-center":         "image.crop_center",
	"rotate":              "image.rotate",
	"flip":                "image.flip",
	"canvas-size":         "image.canvas_size",
	"brightness-contrast": "adjust.brightness_contrast",
	"levels":              "adjust.levels",
	"curves":              "adjust.curves",
	"hue-saturation":      "adjust.hue_saturation",
	"color-balance":       "adjust.color_balance",
	"color-temperature":   "adjust.color_temperature",
	"invert":              "adjust.invert",
	"desaturate":          "adjust.desaturate",
	"blur":                "filter.blur",
	"gaussian-blur":       "filter.gaussian_blur",
	"sharpen":             "filter.sharpen",
	"unsharp-mask":        "filter.unsharp_mask",
	"noise-reduction":     "filter.noise_reduction",
	"layer-add":           "layer.add",
	"layer-remove":        "layer.remove",
	"layer-rename":        "layer.rename",
	"layer-opacity":       "layer.opacity",
	"layer-blend-mode":    "layer.blend_mode",
	"layer-duplicate":     "layer.duplicate",
	"layer-merge-down":    "layer.merge_down",
	"layer-reorder":       "layer.reorder",
	"select-all":          "selection.all",
	"select-none":         "selection.none",
	"invert-selection":    "selection.invert",
	"feather-selection":   "selection.feather",
	"select-rectangle":    "selection.rectangle",
	"select-ellipse":      "selection.ellipse",
	"add-layer-mask":      "mask.add",
	"apply-layer-mask":    "mask.apply",
	"add-text":            "text.add",
	"update-text":         "text.update",
	"stroke-selection":    "annotation.stroke_selection",
}

// binaryProber is implemented by engines backed by an external binary.
type binaryProber interface {
	ResolveBinary() (string, error)
	Version(ctx context.Context) (string, error)
}

// Dispatcher executes validated method calls against the engine.
type Dispatcher struct {
	engine  engine.Engine
	session *session.Session
	history *history.Manager
	version string
	logger  *zap.Logger
}

// New wires a Dispatcher. A nil logger disables logging.
func New(eng engine.Engine, sess *session.Session, hist *history.Manager, version string, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{engine: eng, session: sess, history: hist, version: version, logger: logger}
}

// statusMethods answer even while the session is not Running, so callers can
// probe a bridge that is still starting up or draining.
var statusMethods = map[string]bool{
	"system.health":  true,
	"system.version": true,
	"system.actions": true,
	"system.doctor":  true,
}

// Execute runs one method call end to end. Errors carry protocol codes; a
// failed call leaves no partial history state behind.
func (d *Dispatcher) Execute(ctx context.Context, method string, params map[string]any) (map[string]any, error) {
	capability, err := registry.Lookup(method)
	if err != nil {
		return nil, err
	}
	if !statusMethods[method] {
		if state := d.session.State(); state != session.Running {
			return nil, protocol.NewError(protocol.CodeBridgeUnavailable, "bridge session is %s", state)
		}
	}
	args, err := capability.Validate(params)
	if err != nil {
		return nil, err
	}
	if capability.Target != "" {
		path, _ := args[capability.Target].(string)
		if strings.TrimSpace(path) == "" {
			return nil, protocol.NewError(protocol.CodeInvalidInput, "%s is required", capability.Target)
		}
		if _, err := os.Stat(path); err != nil {
			return nil, protocol.NewError(protocol.CodeFileNotFound, "file not found: %s", path)
		}
	}
	if err := checkParams(method, args); err != nil {
		return nil, err
	}

	d.logger.Debug("dispatching method",
		zap.String("method", method),
		zap.Bool("mutating", capability.Mutating),
	)

	switch method {
	case "system.health":
		return map[string]any{"ok": true}, nil
	case "system.version":
		return map[string]any{"packageVersion": d.version}, nil
	case "system.actions":
		return map[string]any{"actions": registry.Methods()}, nil
	case "system.doctor":
		return d.doctor(ctx, args["verbose"] == true), nil
	case "system.soak":
		return d.soak(ctx, args)
	case "project.plan_edit":
		return d.planEdit(ctx, args)
	case "image.clone":
		return d.clone(args)
	case "image.diff":
		return d.diff(ctx, args)
	case "image.open":
		return d.open(ctx, args)
	case "image.inspect":
		return d.inspect(ctx, args)
	case "image.validate":
		return d.validate(ctx, args)
	case "image.snapshot":
		return d.snapshot(args)
	case "image.undo":
		return d.undo(args)
	case "image.redo":
		return d.redo(args)
	case "image.crop_center":
		return d.cropCenter(ctx, args)
	case "macro.run":
		return d.runMacro(ctx, args)
	case "preset.list":
		return map[string]any{"presets": macro.Presets()}, nil
	case "preset.apply":
		return d.applyPreset(ctx, args)
	}

	action, ok := actions[method]
	if !ok {
		return nil, protocol.NewError(protocol.CodeInternal, "method %s has no engine action", method)
	}
	return d.mutate(ctx, method, action, args, capability.Mutating)
}

// mutate runs one engine-backed method under the project lock. An in-place
// edit gets a post-mutation history entry; writing to a different output
// path leaves history untouched.
func (d *Dispatcher) mutate(ctx context.Context, method, action string, args map[string]any, mutating bool) (map[string]any, error) {
	image, _ := args["image"].(string)
	payload := preparePayload(method, args)

	proj := d.session.OpenProject(image)
	proj.Lock()
	defer proj.Unlock()

	output, _ := payload["output"].(string)
	inPlace := mutating && samePath(output, image)
	if inPlace {
		if err := d.history.Baseline(image); err != nil {
			return nil, err
		}
	}

	result, err := d.engine.Invoke(ctx, action, payload)
	if err != nil {
		return nil, engineError(err)
	}
	if inPlace {
		label := "auto-after-" + strings.ReplaceAll(action, "_", "-")
		if _, err := d.history.RecordMutation(image, label); err != nil {
			return nil, err
		}
		proj.MarkDirty()
	}
	return result, nil
}

// samePath reports whether two spellings name the same file, so that
// "dir/./photo.xcf" written over "dir/photo.xcf" still counts as an
// in-place edit. Matches the keying history uses for its stacks.
func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}

// preparePayload copies validated args into an engine payload, defaulting
// output to the image itself and resolving cross-parameter defaults.
func preparePayload(method string, args map[string]any) map[string]any {
	payload := make(map[string]any, len(args)+1)
	for k, v := range args {
		payload[k] = v
	}
	image, _ := payload["image"].(string)
	if out, _ := payload["output"].(string); strings.TrimSpace(out) == "" {
		payload["output"] = image
	}
	switch method {
	case "filter.gaussian_blur":
		if _, ok := payload["radiusY"]; !ok {
			payload["radiusY"] = payload["radiusX"]
		}
	case "layer.duplicate":
		if _, ok := payload["position"]; !ok {
			if idx, ok := payload["layerIndex"].(int); ok {
				payload["position"] = idx + 1
			}
		}
	}
	return payload
}

// engineError classifies engine failures. Missing binaries mean the bridge
// host cannot serve at all; everything else is an internal engine fault.
func engineError(err error) error {
	var bridgeErr *protocol.BridgeError
	if errors.As(err, &bridgeErr) {
		return err
	}
	if errors.Is(err, engine.ErrNoBinary) {
		return protocol.NewError(protocol.CodeBridgeUnavailable, "%v", err)
	}
	return protocol.NewError(protocol.CodeInternal, "%v", err)
}

func (d *Dispatcher) open(ctx context.Context, args map[string]any) (map[string]any, error) {
	image, _ := args["image"].(string)
	d.session.OpenProject(image)
	if err := d.history.Baseline(image); err != nil {
		return nil, err
	}
	result, err := d.engine.Invoke(ctx, "inspect", map[string]any{"image": image})
	if err != nil {
		return nil, engineError(err)
	}
	return result, nil
}

func (d *Dispatcher) inspect(ctx context.Context, args map[string]any) (map[string]any, error) {
	image, _ := args["image"].(string)
	result, err := d.engine.Invoke(ctx, "inspect", map[string]any{"image": image})
	if err != nil {
		return nil, engineError(err)
	}
	orientation, ok := exifOrientation(image)
	if ok {
		result["exifOrientation"] = orientation
	} else {
		result["exifOrientation"] = nil
	}
	result["orientationWarning"] = ok && orientation != 1
	return result, nil
}

func (d *Dispatcher) validate(ctx context.Context, args map[string]any) (map[string]any, error) {
	image, _ := args["image"].(string)
	details, err := d.engine.Invoke(ctx, "inspect", map[string]any{"image": image})
	if err != nil {
		return nil, engineError(err)
	}
	valid := numArg(details, "width") > 0 && numArg(details, "height") > 0
	return map[string]any{"isValid": valid, "details": details}, nil
}

func (d *Dispatcher) diff(ctx context.Context, args map[string]any) (map[string]any, error) {
	source, _ := args["source"].(string)
	target, _ := args["target"].(string)
	if _, err := os.Stat(target); err != nil {
		return nil, protocol.NewError(protocol.CodeFileNotFound, "file not found: %s", target)
	}
	srcInfo, err := d.engine.Invoke(ctx, "inspect", map[string]any{"image": source})
	if err != nil {
		return nil, engineError(err)
	}
	tgtInfo, err := d.engine.Invoke(ctx, "inspect", map[string]any{"image": target})
	if err != nil {
		return nil, engineError(err)
	}
	srcHash, err := fileSHA256(source)
	if err != nil {
		return nil, err
	}
	tgtHash, err := fileSHA256(target)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"sameBytes": srcHash == tgtHash,
		"source": map[string]any{
			"path": source, "sha256": srcHash,
			"width": srcInfo["width"], "height": srcInfo["height"],
		},
		"target": map[string]any{
			"path": target, "sha256": tgtHash,
			"width": tgtInfo["width"], "height": tgtInfo["height"],
		},
		"sameDimensions": numArg(srcInfo, "width") == numArg(tgtInfo, "width") &&
			numArg(srcInfo, "height") == numArg(tgtInfo, "height"),
	}, nil
}

func (d *Dispatcher) clone(args map[string]any) (map[string]any, error) {
	source, _ := args["source"].(string)
	target, _ := args["target"].(string)
	if strings.TrimSpace(target) == "" {
		return nil, protocol.NewError(protocol.CodeInvalidInput, "target is required")
	}
	if _, err := os.Stat(target); err == nil && args["overwrite"] != true {
		return nil, protocol.NewError(protocol.CodeInvalidInput, "target exists: %s", target)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return nil, protocol.NewError(protocol.CodeInternal, "cannot create target directory: %v", err)
	}
	in, err := os.Open(source)
	if err != nil {
		return nil, protocol.NewError(protocol.CodeFileNotFound, "file not found: %s", source)
	}
	defer in.Close()
	out, err := os.Create(target)
	if err != nil {
		return nil, protocol.NewError(protocol.CodeInternal, "cannot create target: %v", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(target)
		return nil, protocol.NewError(protocol.CodeInternal, "copy failed: %v", err)
	}
	if err := out.Close(); err != nil {
		return nil, protocol.NewError(protocol.CodeInternal, "copy failed: %v", err)
	}
	return map[string]any{"source": source, "target": target}, nil
}

func (d *Dispatcher) snapshot(args map[string]any) (map[string]any, error) {
	image, _ := args["image"].(string)
	description, _ := args["description"].(string)

	proj := d.session.OpenProject(image)
	proj.Lock()
	defer proj.Unlock()

	if err := d.history.Baseline(image); err != nil {
		return nil, err
	}
	entry, err := d.history.Snapshot(image, description)
	if err != nil {
		return nil, err
	}
	past, future, err := d.history.Entries(image)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"snapshot":    entry.File,
		"description": entry.Description,
		"token":       entry.Token,
		"index":       len(past) - 1,
		"count":       len(past) + len(future),
	}, nil
}

func (d *Dispatcher) undo(args map[string]any) (map[string]any, error) {
	image, _ := args["image"].(string)

	proj := d.session.OpenProject(image)
	proj.Lock()
	defer proj.Unlock()

	undone, current, err := d.history.Undo(image)
	if err != nil {
		return nil, historyError(err)
	}
	past, future, err := d.history.Entries(image)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"image":       image,
		"snapshot":    current.File,
		"description": current.Description,
		"undone":      undone.Description,
		"index":       len(past) - 1,
		"count":       len(past) + len(future),
	}, nil
}

func (d *Dispatcher) redo(args map[string]any) (map[string]any, error) {
	image, _ := args["image"].(string)

	proj := d.session.OpenProject(image)
	proj.Lock()
	defer proj.Unlock()

	entry, err := d.history.Redo(image)
	if err != nil {
		return nil, historyError(err)
	}
	past, future, err := d.history.Entries(image)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"image":       image,
		"snapshot":    entry.File,
		"description": entry.Description,
		"index":       len(past) - 1,
		"count":       len(past) + len(future),
	}, nil
}

func historyError(err error) error {
	if errors.Is(err, history.ErrEmptyStack) {
		return protocol.NewError(protocol.CodeInvalidInput, "no further history step available")
	}
	return err
}

func (d *Dispatcher) cropCenter(ctx context.Context, args map[string]any) (map[string]any, error) {
	image, _ := args["image"].(string)
	width, _ := args["width"].(int)
	height, _ := args["height"].(int)

	info, err := d.engine.Invoke(ctx, "inspect", map[string]any{"image": image})
	if err != nil {
		return nil, engineError(err)
	}
	srcW := int(numArg(info, "width"))
	srcH := int(numArg(info, "height"))
	if width > srcW || height > srcH {
		return nil, protocol.NewError(protocol.CodeInvalidInput, "crop size cannot exceed source dimensions")
	}
	cropArgs := map[string]any{
		"image":  image,
		"width":  width,
		"height": height,
		"x":      (srcW - width) / 2,
		"y":      (srcH - height) / 2,
	}
	if out, ok := args["output"]; ok {
		cropArgs["output"] = out
	}
	return d.mutate(ctx, "image.crop", "crop", cropArgs, true)
}

func (d *Dispatcher) planEdit(ctx context.Context, args map[string]any) (map[string]any, error) {
	action, _ := args["action"].(string)
	method, ok := planActions[strings.TrimSpace(action)]
	if !ok {
		return nil, protocol.NewError(protocol.CodeInvalidInput, "unsupported plan action: %s", action)
	}
	merged := map[string]any{"image": args["image"]}
	if extra, ok := args["params"].(map[string]any); ok {
		for k, v := range extra {
			merged[k] = v
		}
	}
	return d.Execute(ctx, method, merged)
}

func (d *Dispatcher) runMacro(ctx context.Context, args map[string]any) (map[string]any, error) {
	image, _ := args["image"].(string)
	steps, err := macro.Resolve(args["macro"])
	if err != nil {
		return nil, err
	}
	shared, _ := args["params"].(map[string]any)

	outputs := make([]any, 0, len(steps))
	for _, step := range steps {
		stepParams := make(map[string]any, len(step.Params)+len(shared)+1)
		for k, v := range step.Params {
			stepParams[k] = v
		}
		if _, ok := stepParams["image"]; !ok {
			stepParams["image"] = image
		}
		for k, v := range shared {
			if _, ok := stepParams[k]; !ok {
				stepParams[k] = v
			}
		}
		result, err := d.Execute(ctx, step.Method, stepParams)
		if err != nil {
			return nil, err
		}
		outputs = append(outputs, map[string]any{"method": step.Method, "result": result})
	}
	return map[string]any{"steps": outputs}, nil
}

func (d *Dispatcher) applyPreset(ctx context.Context, args map[string]any) (map[string]any, error) {
	image, _ := args["image"].(string)
	name, _ := args["preset"].(string)
	steps, err := macro.Preset(strings.TrimSpace(name))
	if err != nil {
		return nil, err
	}
	results := make([]any, 0, len(steps))
	for _, step := range steps {
		stepParams := make(map[string]any, len(step.Params)+2)
		for k, v := range step.Params {
			stepParams[k] = v
		}
		stepParams["image"] = image
		if _, ok := stepParams["output"]; !ok {
			stepParams["output"] = image
		}
		result, err := d.Execute(ctx, step.Method, stepParams)
		if err != nil {
			return nil, err
		}
		results = append(results, map[string]any{"method": step.Method, "result": result})
	}
	return map[string]any{"preset": name, "results": results}, nil
}

func (d *Dispatcher) doctor(ctx context.Context, verbose bool) map[string]any {
	data := map[string]any{
		"healthy":                    true,
		"issues":                     []any{},
		"nonFatalWarningsSuppressed": true,
	}
	if prober, ok := d.engine.(binaryProber); ok {
		binary, err := prober.ResolveBinary()
		if err != nil {
			return map[string]any{"healthy": false, "issues": []any{err.Error()}}
		}
		data["gimpBinary"] = binary
		banner, err := prober.Version(ctx)
		data["gimpVersionRaw"] = banner
		if err != nil {
			data["healthy"] = false
			data["issues"] = []any{"unable to run gimp --version"}
		}
	} else {
		data["gimpBinary"] = "in-process"
		data["gimpVersionRaw"] = "embedded engine"
	}
	if verbose {
		data["runtime"] = map[string]any{
			"goVersion": runtime.Version(),
			"os":        runtime.GOOS,
			"arch":      runtime.GOARCH,
			"session":   d.session.Status().State,
		}
	}
	return data
}

// soak repeatedly executes a target method and reports the failure count.
// Read-only targets fan out across a bounded worker pool.
func (d *Dispatcher) soak(ctx context.Context, args map[string]any) (map[string]any, error) {
	iterations, _ := args["iterations"].(int)
	if iterations < 1 {
		iterations = 1
	}
	target, _ := args["action"].(string)
	targetParams, _ := args["action_params"].(map[string]any)

	capability, err := registry.Lookup(target)
	if err != nil {
		return nil, protocol.NewError(protocol.CodeInvalidInput, "unknown soak action: %s", target)
	}

	workers := soakWorkers
	if capability.Mutating {
		workers = 1
	}

	var failures atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := 0; i < iterations; i++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if _, err := d.Execute(gctx, target, targetParams); err != nil {
				failures.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, protocol.NewError(protocol.CodeInternal, "soak interrupted: %v", err)
	}

	failed := failures.Load()
	return map[string]any{
		"iterations": iterations,
		"action":     target,
		"failures":   failed,
		"stable":     failed == 0,
	}, nil
}

// checkParams enforces the domain rules that go beyond type checking.
func checkParams(method string, args map[string]any) error {
	switch method {
	case "image.resize", "image.crop", "image.crop_center", "image.canvas_size":
		if intVal(args, "width") <= 0 || intVal(args, "height") <= 0 {
			return protocol.NewError(protocol.CodeInvalidInput, "width and height must be > 0")
		}
	case "selection.rectangle", "selection.ellipse":
		if floatVal(args, "width") <= 0 || floatVal(args, "height") <= 0 {
			return protocol.NewError(protocol.CodeInvalidInput, "width and height must be > 0")
		}
	case "image.rotate":
		switch intVal(args, "degrees") {
		case 90, 180, 270:
		default:
			return protocol.NewError(protocol.CodeInvalidInput, "degrees must be one of 90, 180, 270")
		}
	case "adjust.levels":
		if floatVal(args, "white") <= floatVal(args, "black") {
			return protocol.NewError(protocol.CodeInvalidInput, "white must be greater than black")
		}
	case "adjust.curves":
		points, _ := args["points"].([]any)
		if len(points) < 2 {
			return protocol.NewError(protocol.CodeInvalidInput, "points must hold at least two entries")
		}
	case "layer.opacity":
		if o := floatVal(args, "opacity"); o < 0 || o > 100 {
			return protocol.NewError(protocol.CodeInvalidInput, "opacity must be between 0 and 100")
		}
	case "layer.add", "layer.rename":
		if name, _ := args["name"].(string); strings.TrimSpace(name) == "" {
			return protocol.NewError(protocol.CodeInvalidInput, "name is required")
		}
	case "layer.blend_mode":
		if mode, _ := args["mode"].(string); strings.TrimSpace(mode) == "" {
			return protocol.NewError(protocol.CodeInvalidInput, "mode is required")
		}
	case "filter.noise_reduction":
		if s := intVal(args, "strength"); s < 1 || s > 10 {
			return protocol.NewError(protocol.CodeInvalidInput, "strength must be between 1 and 10")
		}
	}
	return nil
}

func intVal(args map[string]any, key string) int {
	switch v := args[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}

func floatVal(args map[string]any, key string) float64 {
	switch v := args[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}

// numArg reads numeric engine results that may arrive as int or float64
// depending on whether they crossed a JSON boundary.
func numArg(result map[string]any, key string) float64 {
	switch v := result[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}

func fileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", protocol.NewError(protocol.CodeFileNotFound, "file not found: %s", path)
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
