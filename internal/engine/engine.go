// Package engine abstracts the image engine behind a single Invoke call.
// The production implementation shells out to a GIMP console binary in batch
// mode; tests use the in-process Fake.
package engine

import (
	"context"
	"errors"
)

// ErrNoBinary is returned when no engine binary can be located.
var ErrNoBinary = errors.New("engine binary not found, set GIMPBRIDGE_BIN")

// Engine runs one named action against image files and returns the engine's
// structured result. Implementations must be safe for concurrent use; the
// dispatcher serializes actions that touch the same project.
type Engine interface {
	Invoke(ctx context.Context, action string, payload map[string]any) (map[string]any, error)
}
