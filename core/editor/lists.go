package editor

import (
	"github.com/asaidimu/go-presets/core/store"
)

// AppendString adds s to the end of the string list at b. A missing list is
// created.
func AppendString(b *store.Binding, s string) error {
	return editStrings(b, func(items []string) ([]string, error) {
		return append(items, s), nil
	})
}

// RemoveStringAt deletes the item at index i of the string list at b.
func RemoveStringAt(b *store.Binding, i int) error {
	return editStrings(b, func(items []string) ([]string, error) {
		if i < 0 || i >= len(items) {
			return nil, indexError(i, len(items))
		}
		return append(items[:i], items[i+1:]...), nil
	})
}

// SetStringAt replaces the item at index i of the string list at b.
func SetStringAt(b *store.Binding, i int, s string) error {
	return editStrings(b, func(items []string) ([]string, error) {
		if i < 0 || i >= len(items) {
			return nil, indexError(i, len(items))
		}
		items[i] = s
		return items, nil
	})
}

func editStrings(b *store.Binding, fn func([]string) ([]string, error)) error {
	return b.Update(func(prev any) (any, error) {
		items, err := toStrings(prev)
		if err != nil {
			return nil, err
		}
		next, err := fn(items)
		if err != nil {
			return nil, err
		}
		out := make([]any, len(next))
		for i, s := range next {
			out[i] = s
		}
		return out, nil
	})
}
