package preset

import (
	"fmt"
	"sort"
)

// ToEditable keys the scenes of raw by their UUID. Scene types and arguments
// are carried over verbatim. Every scene must have a non-empty UUID that is
// unique within the document.
func ToEditable(raw RawPreset) (Preset, error) {
	p := Preset{Scenes: make(map[string]Scene, len(raw.Scenes))}
	for i, s := range raw.Scenes {
		if s.UUID == "" {
			return Preset{}, fmt.Errorf("%w: scene %d has no uuid", ErrInvalidScene, i)
		}
		if _, dup := p.Scenes[s.UUID]; dup {
			return Preset{}, fmt.Errorf("%w: duplicate uuid %q", ErrInvalidScene, s.UUID)
		}
		p.Scenes[s.UUID] = s
	}
	return p, nil
}

// ToWire flattens p into its wire form. Scenes are emitted in display order
// (see SortedScenes) so that repeated saves of the same document produce the
// same payload.
func ToWire(p Preset) RawPreset {
	return RawPreset{Scenes: SortedScenes(p)}
}

// SortedScenes returns the scenes of p by descending weight, ties broken by
// UUID.
func SortedScenes(p Preset) []Scene {
	scenes := make([]Scene, 0, len(p.Scenes))
	for _, s := range p.Scenes {
		scenes = append(scenes, s)
	}
	sort.Slice(scenes, func(i, j int) bool {
		wi, wj := scenes[i].Weight(), scenes[j].Weight()
		if wi != wj {
			return wi > wj
		}
		return scenes[i].UUID < scenes[j].UUID
	})
	return scenes
}
