package editor

import (
	"fmt"

	"github.com/asaidimu/go-presets/core/path"
	"github.com/asaidimu/go-presets/core/preset"
	"github.com/asaidimu/go-presets/core/store"
)

// AddScene adds a scene of sceneType to preset id, its arguments seeded from
// the scene schema. The type must be declared in the store's scene catalog.
func AddScene(s *store.Store, id, sceneType string) (preset.Scene, error) {
	if _, ok := s.Get(id); !ok {
		return preset.Scene{}, fmt.Errorf("%w: %q", ErrNotLoaded, id)
	}
	entry, ok := s.Scenes().Find(sceneType)
	if !ok {
		return preset.Scene{}, fmt.Errorf("%w: scene type %q", ErrUnknownType, sceneType)
	}

	scene := preset.NewScene(sceneType, entry)
	if err := store.NewBinding(s, id, path.Of("scenes", scene.UUID)).Write(scene); err != nil {
		return preset.Scene{}, err
	}
	return scene, nil
}

// RemoveScene deletes a scene from preset id.
func RemoveScene(s *store.Store, id, sceneUUID string) error {
	if _, ok := s.Get(id); !ok {
		return fmt.Errorf("%w: %q", ErrNotLoaded, id)
	}
	return s.Replace(id, func(p preset.Preset) (preset.Preset, error) {
		out, err := path.Delete(p, path.Of("scenes", sceneUUID))
		if err != nil {
			return p, fmt.Errorf("%w: %q: %w", ErrSceneNotFound, sceneUUID, err)
		}
		return out.(preset.Preset), nil
	})
}
