package store

import (
	"context"
	"errors"
	"testing"

	"github.com/asaidimu/go-presets/core/path"
	"github.com/asaidimu/go-presets/core/preset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadedStore(t *testing.T) *Store {
	t.Helper()
	s, _ := newTestStore(t)
	_, err := s.Load(context.Background(), "p1")
	require.NoError(t, err)
	return s
}

func TestBindingWriteValue(t *testing.T) {
	s := loadedStore(t)
	b := NewBinding(s, "p1", path.Of("scenes", "s1", "arguments", "weight"))

	require.NoError(t, b.Write(5.0))
	v, ok := b.Read()
	require.True(t, ok)
	assert.Equal(t, 5.0, v)

	live, _ := s.Get("p1")
	assert.Equal(t, 5.0, preset.ToWire(live).Scenes[0].Arguments["weight"])
	base, _ := s.Baseline("p1")
	assert.Equal(t, 1.0, base.Scenes["s1"].Arguments["weight"])
}

func TestBindingUpdateTransformsCurrentValue(t *testing.T) {
	s := loadedStore(t)
	args := NewBinding(s, "p1", path.Of("scenes", "s1", "arguments"))
	weight := args.Sub("weight")
	invert := args.Sub("invert")

	require.NoError(t, weight.Update(func(prev any) (any, error) {
		f, ok := prev.(float64)
		require.True(t, ok, "prev is %T", prev)
		return f + 1, nil
	}))
	v, _ := weight.Read()
	assert.Equal(t, 2.0, v)

	require.NoError(t, invert.Write(false))
	for _, want := range []bool{true, false} {
		require.NoError(t, invert.Update(func(prev any) (any, error) {
			b, ok := prev.(bool)
			require.True(t, ok, "prev is %T", prev)
			return !b, nil
		}))
		v, _ := invert.Read()
		assert.Equal(t, want, v)
	}

	base, _ := s.Baseline("p1")
	assert.Equal(t, 1.0, base.Scenes["s1"].Arguments["weight"])
}

func TestBindingUpdateExistingList(t *testing.T) {
	s := loadedStore(t)
	b := NewBinding(s, "p1", path.Of("scenes", "s1", "arguments", "tags"))
	require.NoError(t, b.Write([]any{"a", "b"}))

	require.NoError(t, b.Update(func(prev any) (any, error) {
		list, ok := prev.([]any)
		require.True(t, ok, "prev is %T", prev)
		list[0] = "changed"
		return append(list, "c"), nil
	}))
	v, _ := b.Read()
	assert.Equal(t, []any{"changed", "b", "c"}, v)

	require.NoError(t, b.Update(func(prev any) (any, error) {
		list := prev.([]any)
		return append(list[:1], list[2:]...), nil
	}))
	v, _ = b.Read()
	assert.Equal(t, []any{"changed", "c"}, v)
}

func TestBindingAppendProvider(t *testing.T) {
	s := loadedStore(t)
	b := NewBinding(s, "p1", path.Of("scenes", "s1", "arguments", "providers"))

	before, _ := b.Read()
	beforeLen := 0
	if list, ok := before.([]any); ok {
		beforeLen = len(list)
	}

	err := b.Update(func(prev any) (any, error) {
		list, _ := prev.([]any)
		return append(list, preset.Provider{
			Type:      preset.ProviderPages,
			UUID:      "pr1",
			Arguments: map[string]any{"begin": 0, "end": -1},
		}), nil
	})
	require.NoError(t, err)

	providers, ok, err := ReadAs[[]preset.Provider](b)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, providers, beforeLen+1)
	assert.Equal(t, "pr1", providers[len(providers)-1].UUID)

	// Appending again through the same binding keeps earlier entries.
	err = b.Update(func(prev any) (any, error) {
		return append(prev.([]any), map[string]any{"type": "random", "uuid": "pr2", "arguments": map[string]any{}}), nil
	})
	require.NoError(t, err)
	providers, _, err = ReadAs[[]preset.Provider](b)
	require.NoError(t, err)
	assert.Equal(t, []string{"pr1", "pr2"}, []string{providers[0].UUID, providers[1].UUID})
}

func TestBindingMissingIntermediate(t *testing.T) {
	s := loadedStore(t)
	before, _ := s.Get("p1")

	b := NewBinding(s, "p1", path.MustParse("scenes.s9.arguments.weight"))
	err := b.Write(3.0)
	assert.ErrorIs(t, err, path.ErrNotFound)

	after, _ := s.Get("p1")
	assert.Equal(t, before, after)
	_, ok := b.Read()
	assert.False(t, ok)
}

func TestBindingUnloadedPreset(t *testing.T) {
	s, _ := newTestStore(t)
	b := NewBinding(s, "p1", path.MustParse("scenes.s1.arguments.weight"))

	assert.NoError(t, b.Write(3.0))
	_, ok := b.Read()
	assert.False(t, ok)
}

func TestBindingUpdateSeesClone(t *testing.T) {
	s := loadedStore(t)
	args := NewBinding(s, "p1", path.MustParse("scenes.s1.arguments"))

	boom := errors.New("abort")
	err := args.Update(func(prev any) (any, error) {
		prev.(map[string]any)["weight"] = 42.0
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)

	w, _ := args.Sub("weight").Read()
	assert.Equal(t, 1.0, w)
}

func TestBindingDisjointPaths(t *testing.T) {
	s := loadedStore(t)
	require.NoError(t, s.Replace("p1", func(p preset.Preset) (preset.Preset, error) {
		out, err := path.Set(p, path.Of("scenes", "s2"), preset.Scene{
			UUID: "s2", Type: "rainbow", Arguments: map[string]any{"weight": 1.0},
		})
		if err != nil {
			return p, err
		}
		return out.(preset.Preset), nil
	}))

	a := NewBinding(s, "p1", path.MustParse("scenes.s1.arguments.weight"))
	b := NewBinding(s, "p1", path.MustParse("scenes.s2.arguments.weight"))
	for i := 0; i < 10; i++ {
		require.NoError(t, a.Write(float64(i)))
		v, _ := b.Read()
		assert.Equal(t, 1.0, v)
	}
	require.NoError(t, b.Write(3.0))
	v, _ := a.Read()
	assert.Equal(t, 9.0, v)
}

func TestBindingTypeMismatch(t *testing.T) {
	s := loadedStore(t)
	root := NewBinding(s, "p1", nil)
	assert.ErrorIs(t, root.Write("not a preset"), path.ErrTypeMismatch)

	scene := NewBinding(s, "p1", path.MustParse("scenes.s1"))
	assert.ErrorIs(t, scene.Write(map[string]any{"type": "x"}), path.ErrTypeMismatch)
}

func TestReadAsMissing(t *testing.T) {
	s := loadedStore(t)
	v, ok, err := ReadAs[float64](NewBinding(s, "p1", path.MustParse("scenes.s1.arguments.speed")))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, v)

	w, ok, err := ReadAs[float64](NewBinding(s, "p1", path.MustParse("scenes.s1.arguments.weight")))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1.0, w)
}
