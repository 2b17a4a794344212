package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// fakeLayer mirrors what the real engine reports per layer.
type fakeLayer struct {
	Name    string  `json:"name"`
	Opacity float64 `json:"opacity"`
	Mode    string  `json:"mode"`
}

// fakeImage is the Fake's on-disk document: a JSON stand-in for pixel data.
// Edits accumulates applied action names so byte content changes with every
// mutation, which is what snapshot diffing cares about.
type fakeImage struct {
	Width  int         `json:"width"`
	Height int         `json:"height"`
	Layers []fakeLayer `json:"layers"`
	Edits  []string    `json:"edits,omitempty"`
}

// Call records one Invoke for test assertions.
type Call struct {
	Action  string
	Payload map[string]any
}

// Fake is an in-process Engine that stores image state as JSON documents in
// the image files themselves. Unparseable files are treated as a fresh
// 640x480 single-layer image.
type Fake struct {
	mu    sync.Mutex
	calls []Call

	// Fail, when set, makes every Invoke return this error.
	Fail error
}

// NewFake returns a Fake ready for use.
func NewFake() *Fake { return &Fake{} }

// Calls returns a copy of the recorded invocations.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

func loadFakeImage(path string) (*fakeImage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var img fakeImage
	if json.Unmarshal(data, &img) != nil || img.Width == 0 {
		img = fakeImage{
			Width:  640,
			Height: 480,
			Layers: []fakeLayer{{Name: "Background", Opacity: 100, Mode: "normal"}},
		}
	}
	return &img, nil
}

func (img *fakeImage) save(path string) error {
	data, err := json.MarshalIndent(img, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (img *fakeImage) layerAt(payload map[string]any) (*fakeLayer, int, error) {
	idx := intArg(payload, "layerIndex", 0)
	if idx < 0 || idx >= len(img.Layers) {
		return nil, 0, fmt.Errorf("invalid layer index: %d", idx)
	}
	return &img.Layers[idx], idx, nil
}

func intArg(payload map[string]any, key string, fallback int) int {
	switch v := payload[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return fallback
	}
}

func floatArg(payload map[string]any, key string, fallback float64) float64 {
	switch v := payload[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return fallback
	}
}

func stringArg(payload map[string]any, key, fallback string) string {
	if s, ok := payload[key].(string); ok && s != "" {
		return s
	}
	return fallback
}

// Invoke applies the action to the JSON image document and returns result
// maps shaped like the real engine's.
func (f *Fake) Invoke(ctx context.Context, action string, payload map[string]any) (map[string]any, error) {
	f.mu.Lock()
	f.calls = append(f.calls, Call{Action: action, Payload: payload})
	fail := f.Fail
	f.mu.Unlock()
	if fail != nil {
		return nil, fail
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := stringArg(payload, "image", "")
	img, err := loadFakeImage(path)
	if err != nil {
		return nil, err
	}
	output := stringArg(payload, "output", path)

	switch action {
	case "inspect":
		return map[string]any{
			"width":      img.Width,
			"height":     img.Height,
			"layerCount": len(img.Layers),
			"layers":     layerList(img),
		}, nil

	case "layer_list":
		return map[string]any{"layers": layerList(img), "count": len(img.Layers)}, nil

	case "resize":
		img.Width = intArg(payload, "width", img.Width)
		img.Height = intArg(payload, "height", img.Height)
		img.Edits = append(img.Edits, action)
		if err := img.save(output); err != nil {
			return nil, err
		}
		return map[string]any{"output": output, "width": img.Width, "height": img.Height}, nil

	case "crop", "canvas_size":
		img.Width = intArg(payload, "width", img.Width)
		img.Height = intArg(payload, "height", img.Height)
		img.Edits = append(img.Edits, action)
		if err := img.save(output); err != nil {
			return nil, err
		}
		return map[string]any{"output": output}, nil

	case "rotate":
		degrees := intArg(payload, "degrees", 0)
		if degrees == 90 || degrees == 270 {
			img.Width, img.Height = img.Height, img.Width
		}
		img.Edits = append(img.Edits, action)
		if err := img.save(output); err != nil {
			return nil, err
		}
		return map[string]any{"output": output, "degrees": degrees}, nil

	case "export":
		if err := img.save(output); err != nil {
			return nil, err
		}
		return map[string]any{"output": output}, nil

	case "layer_add":
		pos := intArg(payload, "position", 0)
		if pos < 0 || pos > len(img.Layers) {
			pos = 0
		}
		layer := fakeLayer{Name: stringArg(payload, "name", "Layer"), Opacity: 100, Mode: "normal"}
		img.Layers = append(img.Layers[:pos], append([]fakeLayer{layer}, img.Layers[pos:]...)...)
		img.Edits = append(img.Edits, action)
		if err := img.save(output); err != nil {
			return nil, err
		}
		return map[string]any{"output": output}, nil

	case "layer_remove":
		_, idx, err := img.layerAt(payload)
		if err != nil {
			return nil, err
		}
		img.Layers = append(img.Layers[:idx], img.Layers[idx+1:]...)
		img.Edits = append(img.Edits, action)
		if err := img.save(output); err != nil {
			return nil, err
		}
		return map[string]any{"output": output}, nil

	case "layer_rename":
		layer, _, err := img.layerAt(payload)
		if err != nil {
			return nil, err
		}
		layer.Name = stringArg(payload, "name", layer.Name)
		img.Edits = append(img.Edits, action)
		if err := img.save(output); err != nil {
			return nil, err
		}
		return map[string]any{"output": output}, nil

	case "layer_opacity":
		layer, _, err := img.layerAt(payload)
		if err != nil {
			return nil, err
		}
		layer.Opacity = floatArg(payload, "opacity", layer.Opacity)
		img.Edits = append(img.Edits, action)
		if err := img.save(output); err != nil {
			return nil, err
		}
		return map[string]any{"output": output}, nil

	case "layer_blend_mode":
		layer, _, err := img.layerAt(payload)
		if err != nil {
			return nil, err
		}
		layer.Mode = stringArg(payload, "mode", layer.Mode)
		img.Edits = append(img.Edits, action)
		if err := img.save(output); err != nil {
			return nil, err
		}
		return map[string]any{"output": output, "mode": layer.Mode}, nil

	case "layer_duplicate":
		layer, idx, err := img.layerAt(payload)
		if err != nil {
			return nil, err
		}
		dup := *layer
		dup.Name = dup.Name + " copy"
		pos := intArg(payload, "position", idx+1)
		if pos < 0 || pos > len(img.Layers) {
			pos = len(img.Layers)
		}
		img.Layers = append(img.Layers[:pos], append([]fakeLayer{dup}, img.Layers[pos:]...)...)
		img.Edits = append(img.Edits, action)
		if err := img.save(output); err != nil {
			return nil, err
		}
		return map[string]any{"output": output}, nil

	case "layer_merge_down":
		idx := intArg(payload, "layerIndex", -1)
		if len(img.Layers) < 2 || idx < 0 || idx >= len(img.Layers)-1 {
			return nil, fmt.Errorf("layerIndex must reference a layer with another layer below it")
		}
		img.Layers = append(img.Layers[:idx], img.Layers[idx+1:]...)
		img.Edits = append(img.Edits, action)
		if err := img.save(output); err != nil {
			return nil, err
		}
		return map[string]any{"output": output}, nil

	case "layer_reorder":
		layer, idx, err := img.layerAt(payload)
		if err != nil {
			return nil, err
		}
		target := intArg(payload, "index", 0)
		if target < 0 || target >= len(img.Layers) {
			return nil, fmt.Errorf("invalid target index: %d", target)
		}
		moved := *layer
		img.Layers = append(img.Layers[:idx], img.Layers[idx+1:]...)
		img.Layers = append(img.Layers[:target], append([]fakeLayer{moved}, img.Layers[target:]...)...)
		img.Edits = append(img.Edits, action)
		if err := img.save(output); err != nil {
			return nil, err
		}
		return map[string]any{"output": output}, nil

	default:
		// Pixel-level adjustments, filters, selections, masks and text all
		// reduce to "the document changed" in this model.
		img.Edits = append(img.Edits, action)
		if err := img.save(output); err != nil {
			return nil, err
		}
		return map[string]any{"output": output}, nil
	}
}

func layerList(img *fakeImage) []any {
	out := make([]any, 0, len(img.Layers))
	for idx, layer := range img.Layers {
		out = append(out, map[string]any{
			"index":   idx,
			"name":    layer.Name,
			"opacity": layer.Opacity,
			"mode":    layer.Mode,
		})
	}
	return out
}
