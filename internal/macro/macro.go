// Package macro holds the built-in preset pipelines and the loader for
// user-supplied macro files. A macro is an ordered list of steps; the
// dispatcher executes each step as a regular method call.
package macro

import (
	"encoding/json"
	"os"
	"sort"

	"github.com/harnesslab/gimpbridge/internal/protocol"
)

// Step is one method invocation inside a macro or preset.
type Step struct {
	Method string         `json:"method"`
	Params map[string]any `json:"params,omitempty"`
}

// presets are the built-in pipelines applied in place to a project file.
var presets = map[string][]Step{
	"web-optimize": {
		{Method: "image.resize", Params: map[string]any{"width": 1920, "height": 1080}},
		{Method: "adjust.levels", Params: map[string]any{"black": 5, "white": 250, "gamma": 1.0}},
	},
	"thumbnail": {
		{Method: "image.resize", Params: map[string]any{"width": 512, "height": 512}},
		{Method: "adjust.brightness_contrast", Params: map[string]any{"brightness": 4, "contrast": 8}},
	},
	"social-crop": {
		{Method: "image.crop", Params: map[string]any{"x": 0, "y": 0, "width": 1080, "height": 1080}},
	},
}

// Presets returns the built-in preset names in sorted order.
func Presets() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Preset returns the steps of a built-in preset.
func Preset(name string) ([]Step, error) {
	steps, ok := presets[name]
	if !ok {
		return nil, protocol.NewError(protocol.CodeInvalidInput, "unknown preset: %s", name)
	}
	out := make([]Step, len(steps))
	copy(out, steps)
	return out, nil
}

// Resolve turns the macro param of macro.run into steps. It accepts either
// an inline step list or a path to a JSON file holding one.
func Resolve(raw any) ([]Step, error) {
	switch v := raw.(type) {
	case []any:
		return decodeSteps(v)
	case string:
		data, err := os.ReadFile(v)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, protocol.NewError(protocol.CodeFileNotFound, "macro file not found: %s", v)
			}
			return nil, protocol.NewError(protocol.CodeInvalidInput, "cannot read macro file: %v", err)
		}
		var items []any
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, protocol.NewError(protocol.CodeInvalidInput, "macro file must hold a JSON list of steps: %v", err)
		}
		return decodeSteps(items)
	default:
		return nil, protocol.NewError(protocol.CodeInvalidInput, "macro must be a step list or a file path")
	}
}

func decodeSteps(items []any) ([]Step, error) {
	if len(items) == 0 {
		return nil, protocol.NewError(protocol.CodeInvalidInput, "macro must contain at least one step")
	}
	steps := make([]Step, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, protocol.NewError(protocol.CodeInvalidInput, "each macro step must be an object")
		}
		method, ok := obj["method"].(string)
		if !ok || method == "" {
			return nil, protocol.NewError(protocol.CodeInvalidInput, "each macro step must contain method")
		}
		params, _ := obj["params"].(map[string]any)
		steps = append(steps, Step{Method: method, Params: params})
	}
	return steps, nil
}
