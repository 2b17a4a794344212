package registry_test

import (
	"testing"

	"github.com/harnesslab/gimpbridge/internal/protocol"
	"github.com/harnesslab/gimpbridge/internal/registry"
)

func TestLookupUnknownMethod(t *testing.T) {
	_, err := registry.Lookup("image.sparkle")
	if err == nil {
		t.Fatal("expected error for unknown method")
	}
	if protocol.CodeOf(err) != protocol.CodeNotFound {
		t.Errorf("code = %s, want NOT_FOUND", protocol.CodeOf(err))
	}
}

func TestMethodsCoversActionSurface(t *testing.T) {
	methods := registry.Methods()
	seen := map[string]bool{}
	for _, m := range methods {
		seen[m] = true
	}
	for _, want := range []string{
		"system.health", "system.soak", "project.plan_edit",
		"image.resize", "image.undo", "image.redo", "image.snapshot",
		"adjust.invert", "filter.gaussian_blur", "layer.merge_down",
		"selection.ellipse", "mask.add", "text.update",
		"annotation.stroke_selection", "macro.run", "preset.apply",
	} {
		if !seen[want] {
			t.Errorf("registry is missing %s", want)
		}
	}
	if len(methods) < 55 {
		t.Errorf("registry has %d methods, expected the full action surface", len(methods))
	}
}

func TestValidateResize(t *testing.T) {
	cap, err := registry.Lookup("image.resize")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}

	cases := []struct {
		name     string
		params   map[string]any
		wantCode string
	}{
		{"valid", map[string]any{"image": "a.xcf", "width": float64(100), "height": float64(80)}, ""},
		{"missing required", map[string]any{"image": "a.xcf", "width": float64(100)}, protocol.CodeInvalidInput},
		{"unknown param", map[string]any{"image": "a.xcf", "width": float64(1), "height": float64(1), "depth": float64(8)}, protocol.CodeInvalidInput},
		{"string where int required", map[string]any{"image": "a.xcf", "width": "wide", "height": float64(1)}, protocol.CodeInvalidInput},
		{"fractional int", map[string]any{"image": "a.xcf", "width": 10.5, "height": float64(1)}, protocol.CodeInvalidInput},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := cap.Validate(tc.params)
			if tc.wantCode == "" {
				if err != nil {
					t.Fatalf("Validate: %v", err)
				}
				return
			}
			if protocol.CodeOf(err) != tc.wantCode {
				t.Errorf("code = %s, want %s (err=%v)", protocol.CodeOf(err), tc.wantCode, err)
			}
		})
	}
}

func TestValidateAppliesDefaults(t *testing.T) {
	cap, _ := registry.Lookup("adjust.levels")
	out, err := cap.Validate(map[string]any{"image": "a.xcf"})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if out["white"] != 255.0 || out["black"] != 0.0 || out["gamma"] != 1.0 {
		t.Errorf("defaults not applied: %v", out)
	}
	if out["layerIndex"] != 0 {
		t.Errorf("layerIndex default = %v, want 0", out["layerIndex"])
	}
	if _, present := out["output"]; present {
		t.Error("output has no default and must stay unset")
	}
}

func TestValidateAliasCanonicalization(t *testing.T) {
	cap, _ := registry.Lookup("mask.add")

	out, err := cap.Validate(map[string]any{"image": "a.xcf", "layerId": float64(2)})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if out["layerIndex"] != 2 {
		t.Errorf("layerIndex = %v, want 2", out["layerIndex"])
	}
	if _, present := out["layerId"]; present {
		t.Error("alias must not survive canonicalization")
	}

	// Both names with agreeing values is accepted.
	if _, err := cap.Validate(map[string]any{"image": "a.xcf", "layerId": float64(2), "layerIndex": float64(2)}); err != nil {
		t.Errorf("agreeing alias pair rejected: %v", err)
	}

	// Conflicting values are rejected.
	_, err = cap.Validate(map[string]any{"image": "a.xcf", "layerId": float64(2), "layerIndex": float64(3)})
	if protocol.CodeOf(err) != protocol.CodeInvalidInput {
		t.Errorf("conflicting aliases: code = %s, want INVALID_INPUT", protocol.CodeOf(err))
	}
}

func TestValidateEnums(t *testing.T) {
	cap, _ := registry.Lookup("image.flip")
	if _, err := cap.Validate(map[string]any{"image": "a.xcf", "axis": "diagonal"}); protocol.CodeOf(err) != protocol.CodeInvalidInput {
		t.Errorf("bad axis: code = %s, want INVALID_INPUT", protocol.CodeOf(err))
	}
	out, err := cap.Validate(map[string]any{"image": "a.xcf"})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if out["axis"] != "horizontal" {
		t.Errorf("axis default = %v", out["axis"])
	}
}

func TestValidateNumericCoercion(t *testing.T) {
	cap, _ := registry.Lookup("filter.blur")
	out, err := cap.Validate(map[string]any{"image": "a.xcf", "radius": float64(6)})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if out["radius"] != 6.0 {
		t.Errorf("radius = %v (%T), want 6.0", out["radius"], out["radius"])
	}
}

func TestMutatingFlags(t *testing.T) {
	readOnly := []string{
		"system.health", "system.version", "system.actions", "system.doctor",
		"system.soak", "project.plan_edit", "image.open", "image.inspect",
		"image.validate", "image.diff", "image.clone", "layer.list", "preset.list",
	}
	for _, m := range readOnly {
		c, err := registry.Lookup(m)
		if err != nil {
			t.Fatalf("Lookup(%s): %v", m, err)
		}
		if c.Mutating {
			t.Errorf("%s must be read-only", m)
		}
	}
	for _, m := range []string{"image.resize", "image.undo", "image.snapshot", "adjust.invert", "macro.run"} {
		c, _ := registry.Lookup(m)
		if !c.Mutating {
			t.Errorf("%s must be mutating", m)
		}
	}
}
