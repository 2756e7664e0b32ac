package filter

import (
	"fmt"
)

// Entry pairs a display name with an engine key.
type Entry struct {
	DisplayName string `json:"name"`
	Key         string `json:"key"`
}

// DefaultCatalog returns the built-in filter list in display order.
func DefaultCatalog() []Entry {
	return []Entry{
		{DisplayName: "Vivid", Key: KeyChrome},
		{DisplayName: "Fade", Key: KeyFade},
		{DisplayName: "Instant", Key: KeyInstant},
		{DisplayName: "Mono", Key: KeyMono},
		{DisplayName: "Noir", Key: KeyNoir},
		{DisplayName: "Process", Key: KeyProcess},
		{DisplayName: "Tonal", Key: KeyTonal},
		{DisplayName: "Transfer", Key: KeyTransfer},
		{DisplayName: "Curve", Key: KeyCurve},
		{DisplayName: "Linear", Key: KeyLinear},
	}
}

// Registry is a closed, ordered catalog of Transforms.
//
// Insertion order is display order and indexes stay valid for the lifetime
// of the registry: there is no way to add or remove entries after
// construction. Selection and thumbnails both depend on that. Registry is
// read-only and safe for concurrent use.
type Registry struct {
	transforms []*Transform
	byKey      map[string]int
}

// NewRegistry builds a registry over engine from entries.
//
// Keys must be unique and names and keys non-empty. A key the engine does not
// know is accepted; applying it fails with ErrEngineUnavailable.
func NewRegistry(engine *Engine, entries []Entry) (*Registry, error) {
	if engine == nil {
		return nil, fmt.Errorf("registry requires an engine")
	}

	r := &Registry{
		transforms: make([]*Transform, 0, len(entries)),
		byKey:      make(map[string]int, len(entries)),
	}
	for i, e := range entries {
		if e.Key == "" || e.DisplayName == "" {
			return nil, fmt.Errorf("catalog entry %d: name and key are required", i)
		}
		if prev, dup := r.byKey[e.Key]; dup {
			return nil, fmt.Errorf("catalog entry %d: key %q already used by entry %d", i, e.Key, prev)
		}
		r.byKey[e.Key] = i
		r.transforms = append(r.transforms, &Transform{key: e.Key, name: e.DisplayName, engine: engine})
	}
	return r, nil
}

// DefaultRegistry returns the ten built-in filters on the default engine.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(DefaultEngine(), DefaultCatalog())
	if err != nil {
		// The built-in catalog is static; this only trips if it is edited badly.
		panic(err)
	}
	return r
}

// Count returns the number of entries.
func (r *Registry) Count() int { return len(r.transforms) }

// Get returns the transform at index.
func (r *Registry) Get(index int) (*Transform, error) {
	if err := r.Check(index); err != nil {
		return nil, err
	}
	return r.transforms[index], nil
}

// Check returns ErrOutOfRange unless 0 <= index < Count().
func (r *Registry) Check(index int) error {
	if index < 0 || index >= len(r.transforms) {
		return fmt.Errorf("%w: %d not in [0,%d)", ErrOutOfRange, index, len(r.transforms))
	}
	return nil
}

// KeyOf returns the engine key at index.
func (r *Registry) KeyOf(index int) (string, error) {
	t, err := r.Get(index)
	if err != nil {
		return "", err
	}
	return t.Key(), nil
}

// NameOf returns the display name at index.
func (r *Registry) NameOf(index int) (string, error) {
	t, err := r.Get(index)
	if err != nil {
		return "", err
	}
	return t.DisplayName(), nil
}

// ByKey looks up an entry by engine key.
func (r *Registry) ByKey(key string) (int, *Transform, error) {
	i, ok := r.byKey[key]
	if !ok {
		return -1, nil, fmt.Errorf("%w: no entry with key %q", ErrOutOfRange, key)
	}
	return i, r.transforms[i], nil
}

// Entries returns the catalog in display order.
func (r *Registry) Entries() []Entry {
	out := make([]Entry, len(r.transforms))
	for i, t := range r.transforms {
		out[i] = Entry{DisplayName: t.name, Key: t.key}
	}
	return out
}
