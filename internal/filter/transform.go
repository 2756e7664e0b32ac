package filter

import (
	"fmt"

	"github.com/ironsheep/photo-filter-mcp/internal/imaging"
)

// Transform is one catalog entry: a stable engine key, a display name and
// the engine that renders it. Transforms are created by NewRegistry and never
// change afterwards.
type Transform struct {
	key    string
	name   string
	engine *Engine
}

// Key returns the engine key, e.g. "CIPhotoEffectMono".
func (t *Transform) Key() string { return t.key }

// DisplayName returns the human-readable name, e.g. "Mono".
func (t *Transform) DisplayName() string { return t.name }

// Apply renders the transform onto src and returns a new Buffer.
//
// src is not modified. Failures wrap ErrEngineUnavailable; callers are
// expected to fall back to the unfiltered image.
func (t *Transform) Apply(src *imaging.Buffer) (*imaging.Buffer, error) {
	out, err := t.engine.Render(t.key, src)
	if err != nil {
		return nil, fmt.Errorf("apply %s: %w", t.name, err)
	}
	return out, nil
}

// ApplyOrOriginal renders the transform, returning src unchanged together
// with the error when the engine fails.
func (t *Transform) ApplyOrOriginal(src *imaging.Buffer) (*imaging.Buffer, error) {
	out, err := t.Apply(src)
	if err != nil {
		return src, err
	}
	return out, nil
}
