package filter

import (
	"fmt"
	"image"
	"sort"

	"github.com/ironsheep/photo-filter-mcp/internal/imaging"
)

// Effect is a named colour/tone operation. It must return a new image of the
// same size as its input and must not modify the input.
type Effect func(image.Image) image.Image

// Engine renders named effects onto Buffers.
//
// The effect table is fixed at construction. Engine is safe for concurrent use.
type Engine struct {
	effects map[string]Effect
}

// NewEngine creates an engine over the given effect table. The map is copied.
func NewEngine(effects map[string]Effect) *Engine {
	e := &Engine{effects: make(map[string]Effect, len(effects))}
	for k, fn := range effects {
		e.effects[k] = fn
	}
	return e
}

// DefaultEngine returns an engine with the built-in photo effects.
func DefaultEngine() *Engine {
	return NewEngine(builtinEffects())
}

// Keys lists the effect keys this engine supports, sorted.
func (e *Engine) Keys() []string {
	keys := make([]string, 0, len(e.effects))
	for k := range e.effects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Has reports whether the engine knows key.
func (e *Engine) Has(key string) bool {
	_, ok := e.effects[key]
	return ok
}

// Render applies the effect named key to src and returns a new Buffer.
//
// Any failure (unknown key, nil input, a panicking effect, a nil result or a
// result whose size differs from the input) is reported as
// ErrEngineUnavailable. src is never modified.
func (e *Engine) Render(key string, src *imaging.Buffer) (out *imaging.Buffer, err error) {
	effect, ok := e.effects[key]
	if !ok {
		return nil, fmt.Errorf("%w: no effect named %q", ErrEngineUnavailable, key)
	}
	if src == nil {
		return nil, fmt.Errorf("%w: %s: no input image", ErrEngineUnavailable, key)
	}

	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = fmt.Errorf("%w: %s: %v", ErrEngineUnavailable, key, r)
		}
	}()

	img := effect(src.Image())
	if img == nil {
		return nil, fmt.Errorf("%w: %s produced no output", ErrEngineUnavailable, key)
	}
	if b := img.Bounds(); b.Dx() != src.Width() || b.Dy() != src.Height() {
		return nil, fmt.Errorf("%w: %s produced %dx%d from %s",
			ErrEngineUnavailable, key, b.Dx(), b.Dy(), src)
	}

	return imaging.NewBuffer(img), nil
}
