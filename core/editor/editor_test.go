package editor

import (
	"context"
	"testing"

	"github.com/asaidimu/go-presets/core/path"
	"github.com/asaidimu/go-presets/core/preset"
	"github.com/asaidimu/go-presets/core/schema"
	"github.com/asaidimu/go-presets/core/store"
	"github.com/asaidimu/go-presets/core/store/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func loadedStore(t *testing.T) *store.Store {
	t.Helper()
	backend := storetest.NewBackend(storetest.Catalogs())
	raw := storetest.ScenarioPreset()
	raw.Scenes[0].Arguments["speed"] = 2.0
	raw.Scenes[0].Arguments["glitter"] = "yes"
	raw.Scenes = append(raw.Scenes, preset.Scene{
		UUID: "s2",
		Type: "image",
		Arguments: map[string]any{
			"weight": 1.0,
			"providers": []any{
				map[string]any{"type": "pages", "uuid": "p-a", "arguments": map[string]any{"begin": 1.0, "end": 3.0}},
				map[string]any{"type": "random", "uuid": "p-b", "arguments": map[string]any{"min_page": 0.0, "max_page": 9.0}},
			},
		},
	}, preset.Scene{UUID: "s3", Type: "plasma", Arguments: map[string]any{"weight": 2.0}})
	backend.Seed("p1", raw)

	s, err := store.New(backend, zap.NewNop())
	require.NoError(t, err)
	_, err = s.Load(context.Background(), "p1")
	require.NoError(t, err)
	return s
}

func TestFields(t *testing.T) {
	s := loadedStore(t)

	fields, issues, err := Fields(s, "p1", "s1")
	require.NoError(t, err)

	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	assert.Equal(t, []string{"weight", "duration", "speed", "glitter"}, names)

	assert.True(t, fields[0].Known())
	assert.Equal(t, KindNumeric, fields[0].Behavior.Kind())
	assert.Equal(t, KindNumeric, fields[2].Behavior.Kind())
	assert.False(t, fields[3].Known(), "glitter has no schema property")

	var unknown bool
	for _, issue := range issues {
		if issue.Code == schema.IssueUnknownProperty {
			unknown = true
		}
	}
	assert.True(t, unknown)
}

func TestFieldsUnknownSceneType(t *testing.T) {
	s := loadedStore(t)

	fields, issues, err := Fields(s, "p1", "s3")
	require.NoError(t, err)
	require.Len(t, fields, 1)
	assert.False(t, fields[0].Known())
	assert.NotEmpty(t, issues)

	_, err = fields[0].Commit(3)
	assert.ErrorIs(t, err, ErrUnknownType)
	assert.ErrorIs(t, fields[0].Reset(), ErrUnknownType)
}

func TestFieldsErrors(t *testing.T) {
	s := loadedStore(t)

	_, _, err := Fields(s, "missing", "s1")
	assert.ErrorIs(t, err, ErrNotLoaded)

	_, _, err = Fields(s, "p1", "nope")
	assert.ErrorIs(t, err, ErrSceneNotFound)
}

func TestFieldCommit(t *testing.T) {
	s := loadedStore(t)
	fields, _, err := Fields(s, "p1", "s1")
	require.NoError(t, err)
	speed := fields[2]
	require.Equal(t, "speed", speed.Name)

	v, err := speed.Commit("25")
	require.NoError(t, err)
	assert.Equal(t, 10.0, v)

	stored, ok := speed.Value()
	require.True(t, ok)
	assert.Equal(t, 10.0, stored)

	p, _ := s.Get("p1")
	assert.Equal(t, 10.0, p.Scenes["s1"].Arguments["speed"])

	v, err = speed.Commit("fast")
	require.NoError(t, err)
	assert.Equal(t, 1.0, v, "unparsable input falls back to the default")

	_, err = speed.Commit(7)
	require.NoError(t, err)
	require.NoError(t, speed.Reset())
	v, _ = speed.Value()
	assert.Equal(t, 1.0, v)
}

func TestFieldCommitInvalid(t *testing.T) {
	s := loadedStore(t)
	before, _ := s.Get("p1")

	invert := NewField(s.Scenes()[0].Properties[3], SceneBinding(s, "p1", "s1").Sub("invert"))
	_, err := invert.Commit("maybe")
	assert.ErrorIs(t, err, ErrInvalidInput)

	after, _ := s.Get("p1")
	assert.Equal(t, before, after)

	v, err := invert.Commit("on")
	require.NoError(t, err)
	assert.Equal(t, true, v)

	p, _ := s.Get("p1")
	assert.Equal(t, true, p.Scenes["s1"].Arguments["invert"])
}

func TestArgumentOrder(t *testing.T) {
	got := ArgumentOrder(map[string]any{"zeta": 1, "duration": 1, "alpha": 1, "weight": 1}, nil)
	assert.Equal(t, []string{"weight", "duration", "alpha", "zeta"}, got)
	assert.Empty(t, ArgumentOrder(nil, nil))

	scenes, _ := storetest.Catalogs()
	rainbow, ok := scenes.Find("rainbow")
	require.True(t, ok)
	args := map[string]any{"invert": true, "alpha": 1, "speed": 1, "duration": 1, "weight": 1}
	assert.Equal(t, []string{"weight", "duration", "speed", "invert", "alpha"}, ArgumentOrder(args, rainbow),
		"schema properties keep declaration order ahead of undeclared arguments")
}

func TestProvidersEditor(t *testing.T) {
	s := loadedStore(t)
	ed := NewProviders(s, "p1", "s2", "providers")

	items, err := ed.Items()
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "p-a", items[0].UUID)

	t.Run("add", func(t *testing.T) {
		added, err := ed.Add(preset.ProviderPages)
		require.NoError(t, err)
		assert.NotEmpty(t, added.UUID)
		assert.Equal(t, map[string]any{"begin": 0.0, "end": -1.0}, added.Arguments)

		added, err = ed.Add(preset.ProviderShaderCollection)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"urls": []any{}}, added.Arguments)

		items, err := ed.Items()
		require.NoError(t, err)
		assert.Len(t, items, 4)
	})

	t.Run("move", func(t *testing.T) {
		require.NoError(t, ed.Move(0, 1))
		items, err := ed.Items()
		require.NoError(t, err)
		assert.Equal(t, "p-b", items[0].UUID)
		assert.Equal(t, "p-a", items[1].UUID)

		assert.ErrorIs(t, ed.Move(0, 10), ErrInvalidInput)
	})

	t.Run("page range", func(t *testing.T) {
		require.NoError(t, ed.SetPageRange(1, "4", "x"))
		items, err := ed.Items()
		require.NoError(t, err)
		assert.Equal(t, 4.0, items[1].Arguments["begin"])
		assert.Equal(t, 3.0, items[1].Arguments["end"], "unparsable end keeps the previous value")

		assert.ErrorIs(t, ed.SetPageRange(0, "1", "2"), ErrInvalidInput)
	})

	t.Run("update keeps identity", func(t *testing.T) {
		err := ed.Update(0, func(p preset.Provider) (preset.Provider, error) {
			p.UUID = "hijacked"
			p.Arguments["max_page"] = 20.0
			return p, nil
		})
		require.NoError(t, err)
		items, err := ed.Items()
		require.NoError(t, err)
		assert.Equal(t, "p-b", items[0].UUID)
		assert.Equal(t, 20.0, items[0].Arguments["max_page"])
	})

	t.Run("argument binding", func(t *testing.T) {
		v, ok := ed.Argument(0, "max_page").Read()
		require.True(t, ok)
		assert.Equal(t, 20.0, v)
	})

	t.Run("remove", func(t *testing.T) {
		require.NoError(t, ed.Remove(0))
		items, err := ed.Items()
		require.NoError(t, err)
		assert.Len(t, items, 3)
		assert.Equal(t, "p-a", items[0].UUID)

		assert.ErrorIs(t, ed.Remove(-1), ErrInvalidInput)
	})
}

func TestProvidersEditorCreatesList(t *testing.T) {
	s := loadedStore(t)
	ed := NewProviders(s, "p1", "s1", "providers")

	items, err := ed.Items()
	require.NoError(t, err)
	assert.Empty(t, items)

	_, err = ed.Add(preset.ProviderRandom)
	require.NoError(t, err)

	p, _ := s.Get("p1")
	list, ok := p.Scenes["s1"].Arguments["providers"].([]any)
	require.True(t, ok)
	assert.Len(t, list, 1)
}

func TestStringLists(t *testing.T) {
	s := loadedStore(t)
	b := SceneBinding(s, "p1", "s1").Sub("urls")

	require.NoError(t, AppendString(b, "a"))
	require.NoError(t, AppendString(b, "b"))
	require.NoError(t, AppendString(b, "c"))
	require.NoError(t, SetStringAt(b, 1, "B"))
	require.NoError(t, RemoveStringAt(b, 0))

	v, ok := b.Read()
	require.True(t, ok)
	assert.Equal(t, []any{"B", "c"}, v)

	assert.ErrorIs(t, RemoveStringAt(b, 5), ErrInvalidInput)
	assert.ErrorIs(t, SetStringAt(b, -1, "x"), ErrInvalidInput)

	require.NoError(t, b.Write([]any{"ok", 3}))
	assert.ErrorIs(t, AppendString(b, "d"), ErrInvalidInput)
}

func TestAddAndRemoveScene(t *testing.T) {
	s := loadedStore(t)

	scene, err := AddScene(s, "p1", "rainbow")
	require.NoError(t, err)
	assert.NotEmpty(t, scene.UUID)

	p, _ := s.Get("p1")
	stored, ok := p.Scenes[scene.UUID]
	require.True(t, ok)
	assert.Equal(t, "rainbow", stored.Type)
	assert.Equal(t, 15000.0, stored.Arguments["duration"])

	_, err = AddScene(s, "p1", "plasma")
	assert.ErrorIs(t, err, ErrUnknownType)
	_, err = AddScene(s, "missing", "rainbow")
	assert.ErrorIs(t, err, ErrNotLoaded)

	require.NoError(t, RemoveScene(s, "p1", scene.UUID))
	p, _ = s.Get("p1")
	_, ok = p.Scenes[scene.UUID]
	assert.False(t, ok)

	err = RemoveScene(s, "p1", scene.UUID)
	assert.ErrorIs(t, err, ErrSceneNotFound)
	assert.ErrorIs(t, err, path.ErrNotFound)
}
