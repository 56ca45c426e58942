package editor

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/asaidimu/go-presets/core/preset"
	"github.com/asaidimu/go-presets/core/store"
)

// Providers edits the provider list stored in one scene argument. Every
// operation rewrites the whole list through the binding.
type Providers struct {
	store   *store.Store
	binding *store.Binding
}

// NewProviders creates an editor for the provider list argument of a scene.
func NewProviders(s *store.Store, id, sceneUUID, argument string) *Providers {
	return &Providers{store: s, binding: SceneBinding(s, id, sceneUUID).Sub(argument)}
}

// Binding returns the binding of the list.
func (p *Providers) Binding() *store.Binding { return p.binding }

// Items returns the current providers. A missing argument is an empty list.
func (p *Providers) Items() ([]preset.Provider, error) {
	v, _ := p.binding.Read()
	return preset.Providers(v)
}

// Add appends a provider of the given type, its arguments seeded from the
// provider schema (or the built-in defaults) and a fresh identifier.
func (p *Providers) Add(providerType string) (preset.Provider, error) {
	entry, _ := p.store.Providers().Find(providerType)
	item := preset.NewProvider(providerType, entry)

	err := p.edit(func(list []preset.Provider) ([]preset.Provider, error) {
		return append(list, item), nil
	})
	if err != nil {
		return preset.Provider{}, err
	}
	return item, nil
}

// Remove deletes the provider at index i.
func (p *Providers) Remove(i int) error {
	return p.edit(func(list []preset.Provider) ([]preset.Provider, error) {
		if i < 0 || i >= len(list) {
			return nil, indexError(i, len(list))
		}
		return append(list[:i], list[i+1:]...), nil
	})
}

// Move relocates the provider at index from to index to.
func (p *Providers) Move(from, to int) error {
	return p.edit(func(list []preset.Provider) ([]preset.Provider, error) {
		if from < 0 || from >= len(list) {
			return nil, indexError(from, len(list))
		}
		if to < 0 || to >= len(list) {
			return nil, indexError(to, len(list))
		}
		item := list[from]
		list = append(list[:from], list[from+1:]...)
		list = append(list[:to], append([]preset.Provider{item}, list[to:]...)...)
		return list, nil
	})
}

// Update replaces the provider at index i with fn's result. The provider's
// identifier cannot be changed.
func (p *Providers) Update(i int, fn func(preset.Provider) (preset.Provider, error)) error {
	return p.edit(func(list []preset.Provider) ([]preset.Provider, error) {
		if i < 0 || i >= len(list) {
			return nil, indexError(i, len(list))
		}
		next, err := fn(list[i])
		if err != nil {
			return nil, err
		}
		next.UUID = list[i].UUID
		list[i] = next
		return list, nil
	})
}

// SetPageRange edits the begin/end arguments of a pages provider from text
// input. A value that does not parse as an integer keeps its previous value.
func (p *Providers) SetPageRange(i int, begin, end string) error {
	return p.Update(i, func(item preset.Provider) (preset.Provider, error) {
		if item.Type != preset.ProviderPages {
			return item, fmt.Errorf("%w: provider %d is %q, not pages", ErrInvalidInput, i, item.Type)
		}
		args := make(map[string]any, len(item.Arguments)+2)
		for k, v := range item.Arguments {
			args[k] = v
		}
		if n, err := strconv.Atoi(strings.TrimSpace(begin)); err == nil {
			args["begin"] = float64(n)
		}
		if n, err := strconv.Atoi(strings.TrimSpace(end)); err == nil {
			args["end"] = float64(n)
		}
		item.Arguments = args
		return item, nil
	})
}

// Argument returns a binding for one argument of the provider at index i.
func (p *Providers) Argument(i int, name string) *store.Binding {
	return p.binding.Sub(i, "arguments", name)
}

func (p *Providers) edit(fn func([]preset.Provider) ([]preset.Provider, error)) error {
	return p.binding.Update(func(prev any) (any, error) {
		list, err := preset.Providers(prev)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		next, err := fn(list)
		if err != nil {
			return nil, err
		}
		return providersToValue(next)
	})
}

func indexError(i, n int) error {
	return fmt.Errorf("%w: index %d out of range [0, %d)", ErrInvalidInput, i, n)
}
