// Package storetest provides an in-memory device backend for tests of the
// state core.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/asaidimu/go-presets/core/preset"
	"github.com/asaidimu/go-presets/core/schema"
	"github.com/asaidimu/go-presets/utils"
)

// ErrOffline is returned by every call while Backend.Offline is set.
var ErrOffline = errors.New("device offline")

// Backend is a scriptable in-memory device. The zero value is not usable;
// call NewBackend.
type Backend struct {
	mu        sync.Mutex
	presets   map[string]preset.RawPreset
	scenes    schema.Catalog
	providers schema.Catalog

	offline   bool
	saveErr   error
	saves     []preset.RawPreset
	pushes    []preset.RawPreset
	pushFails int

	// Gate, when non-nil, blocks GetPreset until a value is received.
	Gate chan struct{}
}

// NewBackend creates a Backend serving the given catalogs.
func NewBackend(scenes, providers schema.Catalog) *Backend {
	return &Backend{
		presets:   make(map[string]preset.RawPreset),
		scenes:    scenes,
		providers: providers,
	}
}

// Seed stores raw under id, as if it had been saved earlier.
func (b *Backend) Seed(id string, raw preset.RawPreset) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.presets[id] = raw
}

// SetOffline makes every subsequent call fail with ErrOffline.
func (b *Backend) SetOffline(offline bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.offline = offline
}

// FailSaves makes SavePreset return err until called again with nil.
func (b *Backend) FailSaves(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.saveErr = err
}

// FailPushes makes the next n PushPreset calls fail.
func (b *Backend) FailPushes(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pushFails = n
}

// Saves returns every payload received by SavePreset, including failed ones.
func (b *Backend) Saves() []preset.RawPreset {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]preset.RawPreset(nil), b.saves...)
}

// Pushes returns every payload successfully received by PushPreset.
func (b *Backend) Pushes() []preset.RawPreset {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]preset.RawPreset(nil), b.pushes...)
}

func (b *Backend) GetPreset(ctx context.Context, id string) (preset.RawPreset, error) {
	if b.Gate != nil {
		select {
		case <-b.Gate:
		case <-ctx.Done():
			return preset.RawPreset{}, ctx.Err()
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.offline {
		return preset.RawPreset{}, ErrOffline
	}
	raw, ok := b.presets[id]
	if !ok {
		return preset.RawPreset{}, fmt.Errorf("preset %q not found", id)
	}
	// Hand out a copy so callers never share memory with the "device".
	return utils.Clone(raw)
}

func (b *Backend) ListScenes(ctx context.Context) (schema.Catalog, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.offline {
		return nil, ErrOffline
	}
	return b.scenes, nil
}

func (b *Backend) ListProviders(ctx context.Context) (schema.Catalog, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.offline {
		return nil, ErrOffline
	}
	return b.providers, nil
}

func (b *Backend) SavePreset(ctx context.Context, id string, raw preset.RawPreset) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.saves = append(b.saves, raw)
	if b.offline {
		return ErrOffline
	}
	if b.saveErr != nil {
		return b.saveErr
	}
	b.presets[id] = raw
	return nil
}

func (b *Backend) PushPreset(ctx context.Context, id string, raw preset.RawPreset) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.offline {
		return ErrOffline
	}
	if b.pushFails > 0 {
		b.pushFails--
		return fmt.Errorf("push rejected")
	}
	b.pushes = append(b.pushes, raw)
	return nil
}

// Catalogs returns a small scene and provider catalog used across tests:
// "rainbow" (weight, duration, speed, invert), "image" (weight, duration,
// providers) and the "pages" provider.
func Catalogs() (schema.Catalog, schema.Catalog) {
	min0 := 0.0
	max10 := 10.0
	scenes := schema.Catalog{
		{Name: "rainbow", Properties: []schema.Property{
			{Name: "weight", TypeID: schema.TypeInt, DefaultValue: 1.0, Min: &min0},
			{Name: "duration", TypeID: schema.TypeMillis, DefaultValue: 15000.0},
			{Name: "speed", TypeID: schema.TypeFloat, DefaultValue: 1.0, Min: &min0, Max: &max10},
			{Name: "invert", TypeID: schema.TypeBool, DefaultValue: false},
		}},
		{Name: "image", Properties: []schema.Property{
			{Name: "weight", TypeID: schema.TypeInt, DefaultValue: 1.0},
			{Name: "duration", TypeID: schema.TypeMillis, DefaultValue: 15000.0},
			{Name: "providers", TypeID: schema.TypeJSON, DefaultValue: []any{}},
		}},
	}
	providers := schema.Catalog{
		{Name: "pages", Properties: []schema.Property{
			{Name: "begin", TypeID: schema.TypeInt, DefaultValue: 0.0},
			{Name: "end", TypeID: schema.TypeInt, DefaultValue: -1.0},
		}},
	}
	return scenes, providers
}

// ScenarioPreset is the document {scenes:[{uuid:"s1", type:"rainbow",
// arguments:{weight:1, duration:1000}}]}.
func ScenarioPreset() preset.RawPreset {
	return preset.RawPreset{Scenes: []preset.Scene{{
		UUID:      "s1",
		Type:      "rainbow",
		Arguments: map[string]any{"weight": 1.0, "duration": 1000.0},
	}}}
}
