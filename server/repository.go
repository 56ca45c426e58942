package server

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/asaidimu/go-presets/core/preset"
	"github.com/asaidimu/go-presets/utils"
)

var (
	// ErrNotFound is returned for an unknown preset id.
	ErrNotFound = errors.New("preset not found")
	// ErrExists is returned when creating a preset whose id is taken.
	ErrExists = errors.New("preset already exists")
)

// Repository stores presets by id.
type Repository interface {
	List(ctx context.Context) (map[string]preset.RawPreset, error)
	IDs(ctx context.Context) ([]string, error)
	Get(ctx context.Context, id string) (preset.RawPreset, error)
	// Put creates or replaces a preset.
	Put(ctx context.Context, id string, raw preset.RawPreset) error
	// Create stores a new preset, failing with ErrExists if id is taken.
	Create(ctx context.Context, id string, raw preset.RawPreset) error
	Delete(ctx context.Context, id string) error
}

// MemoryRepository keeps presets in a map. Values are copied on the way in
// and out.
type MemoryRepository struct {
	mu      sync.RWMutex
	presets map[string]preset.RawPreset
}

// NewMemoryRepository creates an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{presets: make(map[string]preset.RawPreset)}
}

func (m *MemoryRepository) List(ctx context.Context) (map[string]preset.RawPreset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return utils.Clone(m.presets)
}

func (m *MemoryRepository) IDs(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	ids := make([]string, 0, len(m.presets))
	for id := range m.presets {
		ids = append(ids, id)
	}
	m.mu.RUnlock()
	slices.Sort(ids)
	return ids, nil
}

func (m *MemoryRepository) Get(ctx context.Context, id string) (preset.RawPreset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	raw, ok := m.presets[id]
	if !ok {
		return preset.RawPreset{}, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return utils.Clone(raw)
}

func (m *MemoryRepository) Put(ctx context.Context, id string, raw preset.RawPreset) error {
	cp, err := utils.Clone(raw)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.presets[id] = cp
	return nil
}

func (m *MemoryRepository) Create(ctx context.Context, id string, raw preset.RawPreset) error {
	cp, err := utils.Clone(raw)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.presets[id]; ok {
		return fmt.Errorf("%w: %q", ErrExists, id)
	}
	m.presets[id] = cp
	return nil
}

func (m *MemoryRepository) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.presets[id]; !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	delete(m.presets, id)
	return nil
}
