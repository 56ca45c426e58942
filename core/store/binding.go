package store

import (
	"fmt"

	"github.com/asaidimu/go-presets/core/path"
	"github.com/asaidimu/go-presets/core/preset"
	"github.com/asaidimu/go-presets/utils"
)

// Binding is a view of one location inside a stored preset, for example a
// single scene's arguments or a scene's provider list.
//
// Bindings on disjoint paths never interfere. Two bindings on overlapping
// paths (a list and an element of that list) must not both be written from
// the same synchronous step; the later write wins over the whole subtree.
type Binding struct {
	store *Store
	id    string
	path  path.Path
}

// NewBinding creates a Binding for the location p of preset id.
func NewBinding(s *Store, id string, p path.Path) *Binding {
	return &Binding{store: s, id: id, path: p}
}

// PresetID returns the preset the binding points into.
func (b *Binding) PresetID() string { return b.id }

// Path returns the bound location.
func (b *Binding) Path() path.Path { return b.path }

// Sub derives a binding for a location below this one.
func (b *Binding) Sub(parts ...any) *Binding {
	return NewBinding(b.store, b.id, b.path.Append(parts...))
}

// Read returns the current value at the bound location.
func (b *Binding) Read() (any, bool) {
	doc, ok := b.store.Get(b.id)
	if !ok {
		return nil, false
	}
	return path.Get(doc, b.path)
}

// Write stores value at the bound location.
func (b *Binding) Write(value any) error {
	return b.commit(func(any) (any, error) { return value, nil }, false)
}

// Update replaces the value at the bound location with fn(prev). prev is a
// deep copy of the current value (nil when absent), so fn may modify it
// freely. An error from fn aborts the write.
func (b *Binding) Update(fn func(prev any) (any, error)) error {
	return b.commit(fn, true)
}

func (b *Binding) commit(fn func(prev any) (any, error), clonePrev bool) error {
	return b.store.Replace(b.id, func(doc preset.Preset) (preset.Preset, error) {
		var prev any
		if cur, _ := path.Get(doc, b.path); clonePrev && cur != nil {
			cloned, err := utils.Clone(cur)
			if err != nil {
				return doc, fmt.Errorf("clone %s: %w", b.path, err)
			}
			prev = cloned
		}

		value, err := fn(prev)
		if err != nil {
			return doc, err
		}

		out, err := path.Set(doc, b.path, value)
		if err != nil {
			return doc, err
		}
		next, ok := out.(preset.Preset)
		if !ok {
			return doc, &path.Error{Op: "set", Path: b.path, At: -1, Err: path.ErrTypeMismatch}
		}
		return next, nil
	})
}

// ReadAs decodes the value at the binding's location into T.
func ReadAs[T any](b *Binding) (T, bool, error) {
	var zero T
	v, ok := b.Read()
	if !ok || v == nil {
		return zero, false, nil
	}
	if typed, isT := v.(T); isT {
		return typed, true, nil
	}
	out, err := utils.Decode[T](v)
	if err != nil {
		return zero, true, err
	}
	return out, true, nil
}
