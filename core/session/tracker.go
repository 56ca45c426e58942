// Package session implements the editing-session policies layered on top of
// a store.Store: dirty tracking against the persisted baseline, saving back to
// the device, and guarding navigation away from unsaved work.
package session

import (
	"github.com/asaidimu/go-presets/core/store"
	"github.com/asaidimu/go-presets/utils"
	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
)

// Tracker reports whether a preset has diverged from its baseline.
type Tracker struct {
	store *store.Store
	id    string
}

// NewTracker creates a Tracker for preset id.
func NewTracker(s *store.Store, id string) *Tracker {
	return &Tracker{store: s, id: id}
}

// IsDirty compares the live preset with its baseline by JSON value. A preset
// that was never loaded, or whose load failed, is never dirty.
func (t *Tracker) IsDirty() bool {
	live, ok := t.store.Get(t.id)
	if !ok {
		return false
	}
	base, ok := t.store.Baseline(t.id)
	if !ok {
		return false
	}

	equal, err := utils.Equal(live, base)
	if err != nil {
		// An unencodable document cannot be proven saved.
		t.store.Logger().Warn("Dirty check failed", zap.String("preset", t.id), zap.Error(err))
		return true
	}
	return !equal
}

// Diff returns a human readable description of the unsaved changes, empty
// when the preset is clean or not loaded.
func (t *Tracker) Diff() string {
	live, ok := t.store.Get(t.id)
	if !ok {
		return ""
	}
	base, ok := t.store.Baseline(t.id)
	if !ok {
		return ""
	}

	nb, err := utils.Normalize(base)
	if err != nil {
		return ""
	}
	nl, err := utils.Normalize(live)
	if err != nil {
		return ""
	}
	return cmp.Diff(nb, nl)
}
