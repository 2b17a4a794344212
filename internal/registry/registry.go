// Package registry maps method names to capability descriptors and performs
// schema-driven parameter validation. Handlers never re-check shapes: by the
// time the dispatcher sees params they are canonical, typed, and defaulted.
package registry

import (
	"fmt"
	"math"
	"sort"

	"github.com/harnesslab/gimpbridge/internal/protocol"
)

// Kind is the wire type a parameter must carry.
type Kind int

const (
	String Kind = iota
	Int
	Float
	Bool
	List
	Object
	// Any admits string, number, bool, list or object. Used for macro bodies
	// that may be an inline step list or a file path.
	Any
)

func (k Kind) String() string {
	switch k {
	case String:
		return "string"
	case Int:
		return "int"
	case Float:
		return "float"
	case Bool:
		return "bool"
	case List:
		return "list"
	case Object:
		return "object"
	default:
		return "any"
	}
}

// Param describes one accepted parameter of a capability.
type Param struct {
	Name     string
	Kind     Kind
	Required bool
	Default  any      // applied when absent; nil means "leave unset"
	Aliases  []string // alternate accepted names, canonicalized before validation
	Enum     []string // for String params: the closed set of accepted values
}

// Capability describes one callable bridge method.
type Capability struct {
	Method   string
	Mutating bool
	// Target names the parameter holding the project path the dispatcher
	// locks and existence-checks. Empty for session-level methods.
	Target string
	// Creating marks capabilities allowed to address a Target path that does
	// not exist yet.
	Creating bool
	Params   []Param
}

// Validate canonicalizes aliases, rejects unknown parameters, checks
// presence and types, and applies defaults. The input map is not modified.
func (c *Capability) Validate(params map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(params))
	for k, v := range params {
		out[k] = v
	}

	// Alias resolution happens before any schema check so downstream code
	// only ever sees canonical names.
	for _, p := range c.Params {
		for _, alias := range p.Aliases {
			av, ok := out[alias]
			if !ok {
				continue
			}
			if cv, exists := out[p.Name]; exists {
				if fmt.Sprint(cv) != fmt.Sprint(av) {
					return nil, protocol.NewError(protocol.CodeInvalidInput,
						"%s and %s are aliases and disagree", p.Name, alias)
				}
			} else {
				out[p.Name] = av
			}
			delete(out, alias)
		}
	}

	known := make(map[string]*Param, len(c.Params))
	for i := range c.Params {
		known[c.Params[i].Name] = &c.Params[i]
	}
	for k := range out {
		if _, ok := known[k]; !ok {
			return nil, protocol.NewError(protocol.CodeInvalidInput,
				"unknown parameter %q for %s", k, c.Method)
		}
	}

	for _, p := range c.Params {
		v, present := out[p.Name]
		if !present {
			if p.Required {
				return nil, protocol.NewError(protocol.CodeInvalidInput,
					"%s requires parameter %q", c.Method, p.Name)
			}
			if p.Default != nil {
				out[p.Name] = p.Default
			}
			continue
		}
		coerced, err := coerce(p, v)
		if err != nil {
			return nil, err
		}
		out[p.Name] = coerced
	}
	return out, nil
}

// coerce checks v against the param's kind and enum, normalizing numeric
// representations (JSON decodes every number as float64).
func coerce(p Param, v any) (any, error) {
	mismatch := func() error {
		return protocol.NewError(protocol.CodeInvalidInput,
			"parameter %q must be a %s", p.Name, p.Kind)
	}
	switch p.Kind {
	case String:
		s, ok := v.(string)
		if !ok {
			return nil, mismatch()
		}
		if len(p.Enum) > 0 {
			for _, allowed := range p.Enum {
				if s == allowed {
					return s, nil
				}
			}
			return nil, protocol.NewError(protocol.CodeInvalidInput,
				"parameter %q must be one of %v", p.Name, p.Enum)
		}
		return s, nil
	case Int:
		switch n := v.(type) {
		case int:
			return n, nil
		case int64:
			return int(n), nil
		case float64:
			if n != math.Trunc(n) {
				return nil, protocol.NewError(protocol.CodeInvalidInput,
					"parameter %q must be an integer", p.Name)
			}
			return int(n), nil
		}
		return nil, mismatch()
	case Float:
		switch n := v.(type) {
		case float64:
			return n, nil
		case int:
			return float64(n), nil
		case int64:
			return float64(n), nil
		}
		return nil, mismatch()
	case Bool:
		b, ok := v.(bool)
		if !ok {
			return nil, mismatch()
		}
		return b, nil
	case List:
		l, ok := v.([]any)
		if !ok {
			return nil, mismatch()
		}
		return l, nil
	case Object:
		m, ok := v.(map[string]any)
		if !ok {
			return nil, mismatch()
		}
		return m, nil
	case Any:
		return v, nil
	}
	return nil, mismatch()
}

// Lookup resolves a method name. Unknown methods fail with CodeNotFound.
func Lookup(method string) (*Capability, error) {
	c, ok := capabilities[method]
	if !ok {
		return nil, protocol.NewError(protocol.CodeNotFound, "unknown method: %s", method)
	}
	return c, nil
}

// Methods returns every registered method name, sorted.
func Methods() []string {
	out := make([]string, 0, len(capabilities))
	for m := range capabilities {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

var capabilities = map[string]*Capability{}

func register(c *Capability) {
	if _, dup := capabilities[c.Method]; dup {
		panic("duplicate capability: " + c.Method)
	}
	capabilities[c.Method] = c
}

// Shared param shorthands.
func imageParam() Param { return Param{Name: "image", Kind: String, Required: true} }
func outputParam() Param {
	return Param{Name: "output", Kind: String}
}
func layerIndexParam(required bool) Param {
	p := Param{Name: "layerIndex", Kind: Int, Aliases: []string{"layerId"}}
	if required {
		p.Required = true
	} else {
		p.Default = 0
	}
	return p
}

func init() {
	register(&Capability{Method: "system.health"})
	register(&Capability{Method: "system.version"})
	register(&Capability{Method: "system.actions"})
	register(&Capability{Method: "system.doctor", Params: []Param{
		{Name: "verbose", Kind: Bool, Default: false},
	}})
	register(&Capability{Method: "system.soak", Params: []Param{
		{Name: "iterations", Kind: Int, Default: 100},
		{Name: "action", Kind: String, Default: "system.health"},
		{Name: "action_params", Kind: Object},
	}})
	register(&Capability{Method: "project.plan_edit", Target: "image", Params: []Param{
		imageParam(),
		{Name: "action", Kind: String, Required: true},
		{Name: "params", Kind: Object},
	}})

	register(&Capability{Method: "image.open", Target: "image", Params: []Param{imageParam()}})
	register(&Capability{Method: "image.inspect", Target: "image", Params: []Param{imageParam()}})
	register(&Capability{Method: "image.validate", Target: "image", Params: []Param{imageParam()}})
	register(&Capability{Method: "image.diff", Params: []Param{
		{Name: "source", Kind: String, Required: true},
		{Name: "target", Kind: String, Required: true},
	}})
	register(&Capability{Method: "image.snapshot", Mutating: true, Target: "image", Params: []Param{
		imageParam(),
		{Name: "description", Kind: String, Default: "snapshot"},
	}})
	register(&Capability{Method: "image.undo", Mutating: true, Target: "image", Params: []Param{imageParam()}})
	register(&Capability{Method: "image.redo", Mutating: true, Target: "image", Params: []Param{imageParam()}})
	register(&Capability{Method: "image.save", Mutating: true, Target: "image", Params: []Param{
		imageParam(),
		{Name: "output", Kind: String, Required: true},
	}})
	register(&Capability{Method: "image.clone", Target: "source", Params: []Param{
		{Name: "source", Kind: String, Required: true},
		{Name: "target", Kind: String, Required: true},
		{Name: "overwrite", Kind: Bool, Default: false},
	}})
	register(&Capability{Method: "image.resize", Mutating: true, Target: "image", Params: []Param{
		imageParam(),
		{Name: "width", Kind: Int, Required: true},
		{Name: "height", Kind: Int, Required: true},
		outputParam(),
	}})
	register(&Capability{Method: "image.crop", Mutating: true, Target: "image", Params: []Param{
		imageParam(),
		{Name: "x", Kind: Int, Default: 0},
		{Name: "y", Kind: Int, Default: 0},
		{Name: "width", Kind: Int, Required: true},
		{Name: "height", Kind: Int, Required: true},
		outputParam(),
	}})
	register(&Capability{Method: "image.crop_center", Mutating: true, Target: "image", Params: []Param{
		imageParam(),
		{Name: "width", Kind: Int, Required: true},
		{Name: "height", Kind: Int, Required: true},
		outputParam(),
	}})
	register(&Capability{Method: "image.rotate", Mutating: true, Target: "image", Params: []Param{
		imageParam(),
		{Name: "degrees", Kind: Int, Required: true},
		outputParam(),
	}})
	register(&Capability{Method: "image.flip", Mutating: true, Target: "image", Params: []Param{
		imageParam(),
		{Name: "axis", Kind: String, Default: "horizontal", Enum: []string{"horizontal", "vertical"}},
		outputParam(),
	}})
	register(&Capability{Method: "image.canvas_size", Mutating: true, Target: "image", Params: []Param{
		imageParam(),
		{Name: "width", Kind: Int, Required: true},
		{Name: "height", Kind: Int, Required: true},
		{Name: "offsetX", Kind: Int, Default: 0},
		{Name: "offsetY", Kind: Int, Default: 0},
		outputParam(),
	}})
	register(&Capability{Method: "image.export", Mutating: true, Target: "image", Params: []Param{
		imageParam(),
		{Name: "output", Kind: String, Required: true},
	}})

	register(&Capability{Method: "adjust.brightness_contrast", Mutating: true, Target: "image", Params: []Param{
		imageParam(),
		{Name: "brightness", Kind: Float, Default: 0.0},
		{Name: "contrast", Kind: Float, Default: 0.0},
		layerIndexParam(false),
		outputParam(),
	}})
	register(&Capability{Method: "adjust.levels", Mutating: true, Target: "image", Params: []Param{
		imageParam(),
		{Name: "black", Kind: Float, Default: 0.0},
		{Name: "white", Kind: Float, Default: 255.0},
		{Name: "gamma", Kind: Float, Default: 1.0},
		layerIndexParam(false),
		outputParam(),
	}})
	register(&Capability{Method: "adjust.curves", Mutating: true, Target: "image", Params: []Param{
		imageParam(),
		{Name: "channel", Kind: String, Default: "value", Enum: []string{"value", "red", "green", "blue", "alpha"}},
		{Name: "points", Kind: List, Required: true},
		layerIndexParam(false),
		outputParam(),
	}})
	register(&Capability{Method: "adjust.hue_saturation", Mutating: true, Target: "image", Params: []Param{
		imageParam(),
		{Name: "hue", Kind: Float, Default: 0.0},
		{Name: "saturation", Kind: Float, Default: 0.0},
		{Name: "lightness", Kind: Float, Default: 0.0},
		layerIndexParam(false),
		outputParam(),
	}})
	register(&Capability{Method: "adjust.color_balance", Mutating: true, Target: "image", Params: []Param{
		imageParam(),
		{Name: "transferMode", Kind: String, Default: "MIDTONES", Enum: []string{"SHADOWS", "MIDTONES", "HIGHLIGHTS"}},
		{Name: "cyanRed", Kind: Float, Default: 0.0},
		{Name: "magentaGreen", Kind: Float, Default: 0.0},
		{Name: "yellowBlue", Kind: Float, Default: 0.0},
		layerIndexParam(false),
		outputParam(),
	}})
	register(&Capability{Method: "adjust.color_temperature", Mutating: true, Target: "image", Params: []Param{
		imageParam(),
		{Name: "temperature", Kind: Float, Default: 6500.0},
		layerIndexParam(false),
		outputParam(),
	}})
	register(&Capability{Method: "adjust.invert", Mutating: true, Target: "image", Params: []Param{
		imageParam(),
		layerIndexParam(false),
		outputParam(),
	}})
	register(&Capability{Method: "adjust.desaturate", Mutating: true, Target: "image", Params: []Param{
		imageParam(),
		{Name: "mode", Kind: String, Default: "luma", Enum: []string{"luma", "average", "lightness"}},
		layerIndexParam(false),
		outputParam(),
	}})

	register(&Capability{Method: "filter.blur", Mutating: true, Target: "image", Params: []Param{
		imageParam(),
		{Name: "radius", Kind: Float, Default: 4.0},
		layerIndexParam(false),
		outputParam(),
	}})
	register(&Capability{Method: "filter.gaussian_blur", Mutating: true, Target: "image", Params: []Param{
		imageParam(),
		{Name: "radiusX", Kind: Float, Default: 4.0},
		// radiusY defaults to radiusX downstream when unset.
		{Name: "radiusY", Kind: Float},
		layerIndexParam(false),
		outputParam(),
	}})
	register(&Capability{Method: "filter.sharpen", Mutating: true, Target: "image", Params: []Param{
		imageParam(),
		{Name: "radius", Kind: Float, Default: 2.0},
		{Name: "amount", Kind: Float, Default: 1.0},
		layerIndexParam(false),
		outputParam(),
	}})
	register(&Capability{Method: "filter.unsharp_mask", Mutating: true, Target: "image", Params: []Param{
		imageParam(),
		{Name: "radius", Kind: Float, Default: 2.0},
		{Name: "amount", Kind: Float, Default: 1.0},
		{Name: "threshold", Kind: Float, Default: 0.0},
		layerIndexParam(false),
		outputParam(),
	}})
	register(&Capability{Method: "filter.noise_reduction", Mutating: true, Target: "image", Params: []Param{
		imageParam(),
		{Name: "strength", Kind: Int, Default: 3},
		layerIndexParam(false),
		outputParam(),
	}})

	register(&Capability{Method: "layer.list", Target: "image", Params: []Param{imageParam()}})
	register(&Capability{Method: "layer.add", Mutating: true, Target: "image", Params: []Param{
		imageParam(),
		{Name: "name", Kind: String, Required: true},
		{Name: "position", Kind: Int, Default: 0},
		outputParam(),
	}})
	register(&Capability{Method: "layer.remove", Mutating: true, Target: "image", Params: []Param{
		imageParam(),
		layerIndexParam(true),
		outputParam(),
	}})
	register(&Capability{Method: "layer.rename", Mutating: true, Target: "image", Params: []Param{
		imageParam(),
		layerIndexParam(true),
		{Name: "name", Kind: String, Required: true},
		outputParam(),
	}})
	register(&Capability{Method: "layer.opacity", Mutating: true, Target: "image", Params: []Param{
		imageParam(),
		layerIndexParam(true),
		{Name: "opacity", Kind: Float, Required: true},
		outputParam(),
	}})
	register(&Capability{Method: "layer.blend_mode", Mutating: true, Target: "image", Params: []Param{
		imageParam(),
		layerIndexParam(true),
		{Name: "mode", Kind: String, Required: true},
		outputParam(),
	}})
	register(&Capability{Method: "layer.duplicate", Mutating: true, Target: "image", Params: []Param{
		imageParam(),
		layerIndexParam(true),
		{Name: "position", Kind: Int},
		outputParam(),
	}})
	register(&Capability{Method: "layer.merge_down", Mutating: true, Target: "image", Params: []Param{
		imageParam(),
		layerIndexParam(true),
		outputParam(),
	}})
	register(&Capability{Method: "layer.reorder", Mutating: true, Target: "image", Params: []Param{
		imageParam(),
		layerIndexParam(true),
		{Name: "index", Kind: Int, Required: true},
		outputParam(),
	}})

	for _, m := range []string{"selection.all", "selection.none", "selection.invert"} {
		register(&Capability{Method: m, Mutating: true, Target: "image", Params: []Param{
			imageParam(),
			outputParam(),
		}})
	}
	register(&Capability{Method: "selection.feather", Mutating: true, Target: "image", Params: []Param{
		imageParam(),
		{Name: "radius", Kind: Float, Default: 5.0},
		outputParam(),
	}})
	for _, m := range []string{"selection.rectangle", "selection.ellipse"} {
		register(&Capability{Method: m, Mutating: true, Target: "image", Params: []Param{
			imageParam(),
			{Name: "x", Kind: Float, Default: 0.0},
			{Name: "y", Kind: Float, Default: 0.0},
			{Name: "width", Kind: Float, Required: true},
			{Name: "height", Kind: Float, Required: true},
			outputParam(),
		}})
	}

	register(&Capability{Method: "mask.add", Mutating: true, Target: "image", Params: []Param{
		imageParam(),
		layerIndexParam(true),
		{Name: "mode", Kind: String, Default: "WHITE", Enum: []string{"WHITE", "BLACK", "ALPHA", "SELECTION", "COPY"}},
		outputParam(),
	}})
	register(&Capability{Method: "mask.apply", Mutating: true, Target: "image", Params: []Param{
		imageParam(),
		layerIndexParam(true),
		outputParam(),
	}})

	register(&Capability{Method: "text.add", Mutating: true, Target: "image", Params: []Param{
		imageParam(),
		{Name: "text", Kind: String, Required: true},
		{Name: "x", Kind: Int, Default: 0},
		{Name: "y", Kind: Int, Default: 0},
		{Name: "font", Kind: String, Default: "Sans"},
		{Name: "size", Kind: Float, Default: 36.0},
		{Name: "color", Kind: String},
		layerIndexParam(false),
		outputParam(),
	}})
	register(&Capability{Method: "text.update", Mutating: true, Target: "image", Params: []Param{
		imageParam(),
		layerIndexParam(true),
		{Name: "text", Kind: String, Required: true},
		outputParam(),
	}})
	register(&Capability{Method: "annotation.stroke_selection", Mutating: true, Target: "image", Params: []Param{
		imageParam(),
		{Name: "width", Kind: Float, Default: 1.0},
		{Name: "color", Kind: String, Default: "#ffffff"},
		layerIndexParam(false),
		outputParam(),
	}})

	register(&Capability{Method: "macro.run", Mutating: true, Target: "image", Params: []Param{
		imageParam(),
		{Name: "macro", Kind: Any, Required: true},
		{Name: "params", Kind: Object},
	}})
	register(&Capability{Method: "preset.list"})
	register(&Capability{Method: "preset.apply", Mutating: true, Target: "image", Params: []Param{
		imageParam(),
		{Name: "preset", Kind: String, Required: true},
	}})
}
