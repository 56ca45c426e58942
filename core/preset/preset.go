// Package preset defines the preset document in both of its forms: the
// array-keyed RawPreset exchanged with a device, and the map-keyed Preset that
// editors work on. The conversions between them are pure.
package preset

import (
	"errors"

	"github.com/asaidimu/go-presets/core/schema"
	"github.com/google/uuid"
)

// ErrInvalidScene is returned when a wire document carries a scene without a
// usable identifier.
var ErrInvalidScene = errors.New("invalid scene")

// Scene is one effect entry of a preset. Arguments hold JSON-shaped values:
// numbers, booleans, strings, string lists or provider lists.
type Scene struct {
	UUID      string         `json:"uuid"`
	Type      string         `json:"type"`
	Arguments map[string]any `json:"arguments"`
}

// RawPreset is the wire form of a preset.
type RawPreset struct {
	Scenes []Scene `json:"scenes"`
}

// Preset is the editing form of a preset, scenes keyed by UUID.
type Preset struct {
	Scenes map[string]Scene `json:"scenes"`
}

// Well-known scene argument names.
const (
	ArgWeight   = "weight"
	ArgDuration = "duration"
)

// Weight returns the scene's sort weight, zero when absent or non-numeric.
func (s Scene) Weight() float64 {
	w, _ := schema.AsFloat(s.Arguments[ArgWeight])
	return w
}

// NewScene creates a scene of the given type with a fresh identifier and its
// arguments seeded from the schema defaults. A nil entry yields empty
// arguments.
func NewScene(sceneType string, entry *schema.Entry) Scene {
	args := map[string]any{}
	if entry != nil {
		args = entry.Defaults()
	}
	return Scene{
		UUID:      uuid.NewString(),
		Type:      sceneType,
		Arguments: args,
	}
}

// Empty returns a preset without scenes.
func Empty() Preset {
	return Preset{Scenes: map[string]Scene{}}
}
