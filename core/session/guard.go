package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/asaidimu/go-presets/core/store"
	"github.com/looplab/fsm"
	"go.uber.org/zap"
)

// Guard states.
const (
	StateIdle      = "idle"
	StatePrompting = "prompting"
	StateSaving    = "saving"
	StateLeft      = "left"
)

const (
	eventLeave      = "leave"
	eventPrompt     = "prompt"
	eventDiscard    = "discard"
	eventSave       = "save"
	eventSaved      = "saved"
	eventSaveFailed = "save_failed"
	eventCancel     = "cancel"
	eventReset      = "reset"
)

// ErrInvalidState is returned when a guard action is not allowed in the
// guard's current state, e.g. Discard without a pending leave.
var ErrInvalidState = errors.New("invalid guard state")

// Guard defers leaving an editing context while the preset has unsaved
// changes. A deferred leave is resolved by exactly one of Discard,
// SaveAndLeave (when the save succeeds) or Cancel.
//
//	idle --RequestLeave(clean)--> left
//	idle --RequestLeave(dirty)--> prompting
//	prompting --Discard--> left
//	prompting --Cancel--> idle
//	prompting --SaveAndLeave--> saving --ok--> left
//	                                   --err--> prompting
type Guard struct {
	store       *store.Store
	tracker     *Tracker
	coordinator *Coordinator
	id          string
	logger      *zap.Logger
	machine     *fsm.FSM

	mu      sync.Mutex
	pending func()
}

// NewGuard creates a Guard for preset id saving through coordinator.
func NewGuard(s *store.Store, coordinator *Coordinator, id string) *Guard {
	g := &Guard{
		store:       s,
		tracker:     NewTracker(s, id),
		coordinator: coordinator,
		id:          id,
		logger:      s.Logger(),
	}

	g.machine = fsm.NewFSM(
		StateIdle,
		fsm.Events{
			{Name: eventLeave, Src: []string{StateIdle}, Dst: StateLeft},
			{Name: eventPrompt, Src: []string{StateIdle}, Dst: StatePrompting},
			{Name: eventDiscard, Src: []string{StatePrompting}, Dst: StateLeft},
			{Name: eventSave, Src: []string{StatePrompting}, Dst: StateSaving},
			{Name: eventSaved, Src: []string{StateSaving}, Dst: StateLeft},
			{Name: eventSaveFailed, Src: []string{StateSaving}, Dst: StatePrompting},
			{Name: eventCancel, Src: []string{StatePrompting}, Dst: StateIdle},
			{Name: eventReset, Src: []string{StateLeft}, Dst: StateIdle},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				g.logger.Debug("Exit guard transition",
					zap.String("preset", g.id),
					zap.String("from", e.Src),
					zap.String("to", e.Dst))
			},
		},
	)
	return g
}

// State returns the guard's current state.
func (g *Guard) State() string { return g.machine.Current() }

// Pending reports whether a leave is waiting for a decision.
func (g *Guard) Pending() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pending != nil
}

// Dirty reports whether the guarded preset has unsaved changes.
func (g *Guard) Dirty() bool { return g.tracker.IsDirty() }

// RequestLeave asks to leave the editing context. When the preset is clean
// leave runs immediately and true is returned. Otherwise leave is deferred,
// the guard enters StatePrompting and false is returned.
func (g *Guard) RequestLeave(ctx context.Context, leave func()) (bool, error) {
	if !g.tracker.IsDirty() {
		if err := g.fire(ctx, eventLeave); err != nil {
			return false, err
		}
		if leave != nil {
			leave()
		}
		return true, nil
	}

	if err := g.fire(ctx, eventPrompt); err != nil {
		return false, err
	}
	g.mu.Lock()
	g.pending = leave
	g.mu.Unlock()
	return false, nil
}

// Discard drops the unsaved edits, resetting the live preset to its
// baseline, and runs the deferred leave.
func (g *Guard) Discard(ctx context.Context) error {
	if err := g.fire(ctx, eventDiscard); err != nil {
		return err
	}
	if err := g.store.Restore(g.id); err != nil {
		g.logger.Warn("Could not restore preset baseline", zap.String("preset", g.id), zap.Error(err))
	}
	g.runPending()
	return nil
}

// SaveAndLeave saves the preset and, on success, runs the deferred leave.
// On failure the guard returns to StatePrompting, the leave stays pending
// and the save error is returned.
func (g *Guard) SaveAndLeave(ctx context.Context) error {
	if err := g.fire(ctx, eventSave); err != nil {
		return err
	}

	if err := g.coordinator.Save(ctx, g.id); err != nil {
		if ferr := g.fire(ctx, eventSaveFailed); ferr != nil {
			return errors.Join(err, ferr)
		}
		return err
	}

	if err := g.fire(ctx, eventSaved); err != nil {
		return err
	}
	g.runPending()
	return nil
}

// Cancel abandons the deferred leave and stays in the editing context.
func (g *Guard) Cancel(ctx context.Context) error {
	if err := g.fire(ctx, eventCancel); err != nil {
		return err
	}
	g.mu.Lock()
	g.pending = nil
	g.mu.Unlock()
	return nil
}

// Reset returns a guard that has left to StateIdle so it can be reused when
// the editing context is entered again.
func (g *Guard) Reset(ctx context.Context) error {
	return g.fire(ctx, eventReset)
}

func (g *Guard) runPending() {
	g.mu.Lock()
	leave := g.pending
	g.pending = nil
	g.mu.Unlock()
	if leave != nil {
		leave()
	}
}

func (g *Guard) fire(ctx context.Context, event string) error {
	if err := g.machine.Event(ctx, event); err != nil {
		return fmt.Errorf("%w: %s from %s: %w", ErrInvalidState, event, g.machine.Current(), err)
	}
	return nil
}
