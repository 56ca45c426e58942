package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/asaidimu/go-presets/core/preset"
	"github.com/asaidimu/go-presets/core/store"
	"go.uber.org/zap"
)

// ErrSaveFailure wraps every error returned by Coordinator.Save.
var ErrSaveFailure = errors.New("failed to save preset")

// Persister writes a preset to the device.
type Persister interface {
	SavePreset(ctx context.Context, id string, raw preset.RawPreset) error
}

// Coordinator saves live presets and moves their baseline forward.
type Coordinator struct {
	store     *store.Store
	persister Persister
	logger    *zap.Logger
}

// NewCoordinator creates a Coordinator writing through persister.
func NewCoordinator(s *store.Store, persister Persister) *Coordinator {
	return &Coordinator{store: s, persister: persister, logger: s.Logger()}
}

// Save persists the current state of preset id.
//
// On success the baseline becomes a copy of exactly what was sent, so edits
// made while the request was in flight stay dirty, and a PresetSaved event
// carrying the wire document is published. If the preset was reloaded or
// removed in the meantime the baseline is left alone.
//
// On failure nothing in the store changes, a PresetSaveFailed event is
// published and the returned error wraps ErrSaveFailure. Save never retries
// and never deduplicates: every call issues a request.
func (c *Coordinator) Save(ctx context.Context, id string) error {
	start := time.Now()
	gen := c.store.Generation(id)

	live, ok := c.store.Get(id)
	if !ok {
		err := fmt.Errorf("%w %q: not loaded", ErrSaveFailure, id)
		c.store.Publish(store.NewEvent(store.PresetSaveFailed, id, gen, err, nil, start))
		return err
	}

	raw := preset.ToWire(live)
	if err := c.persister.SavePreset(ctx, id, raw); err != nil {
		err = fmt.Errorf("%w %q: %w", ErrSaveFailure, id, err)
		c.logger.Warn("Preset save failed", zap.String("preset", id), zap.Error(err))
		c.store.Publish(store.NewEvent(store.PresetSaveFailed, id, gen, err, raw, start))
		return err
	}

	committed, err := c.store.CommitBaseline(id, live, gen)
	if err != nil {
		c.logger.Error("Saved preset could not be snapshotted", zap.String("preset", id), zap.Error(err))
	} else if !committed {
		c.logger.Debug("Preset changed generation during save, baseline kept", zap.String("preset", id))
	}

	c.logger.Debug("Preset saved", zap.String("preset", id), zap.Int("scenes", len(raw.Scenes)))
	c.store.Publish(store.NewEvent(store.PresetSaved, id, gen, nil, raw, start))
	return nil
}
