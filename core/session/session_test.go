package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/asaidimu/go-presets/core/path"
	"github.com/asaidimu/go-presets/core/preset"
	"github.com/asaidimu/go-presets/core/store"
	"github.com/asaidimu/go-presets/core/store/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	store       *store.Store
	backend     *storetest.Backend
	tracker     *Tracker
	coordinator *Coordinator
	guard       *Guard
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	backend := storetest.NewBackend(storetest.Catalogs())
	backend.Seed("p1", storetest.ScenarioPreset())

	s, err := store.New(backend, zap.NewNop())
	require.NoError(t, err)
	c := NewCoordinator(s, backend)
	return &fixture{
		store:       s,
		backend:     backend,
		tracker:     NewTracker(s, "p1"),
		coordinator: c,
		guard:       NewGuard(s, c, "p1"),
	}
}

func (f *fixture) load(t *testing.T) {
	t.Helper()
	_, err := f.store.Load(context.Background(), "p1")
	require.NoError(t, err)
}

func weight(s *store.Store) *store.Binding {
	return store.NewBinding(s, "p1", path.Of("scenes", "s1", "arguments", "weight"))
}

func TestScenarioLoad(t *testing.T) {
	f := newFixture(t)
	f.load(t)

	live, ok := f.store.Get("p1")
	require.True(t, ok)
	assert.Equal(t, "rainbow", live.Scenes["s1"].Type)
	assert.False(t, f.tracker.IsDirty())
	assert.Empty(t, f.tracker.Diff())
}

func TestScenarioEdit(t *testing.T) {
	f := newFixture(t)
	f.load(t)

	b := weight(f.store)
	require.NoError(t, b.Write(5))
	v, _ := b.Read()
	assert.Equal(t, 5, v)
	assert.True(t, f.tracker.IsDirty())
	assert.Contains(t, f.tracker.Diff(), "weight")

	live, _ := f.store.Get("p1")
	assert.EqualValues(t, 5, preset.ToWire(live).Scenes[0].Arguments["weight"])
}

func TestWritingSameValueIsNotDirty(t *testing.T) {
	f := newFixture(t)
	f.load(t)

	// An int 1 and the loaded float64 1 are the same JSON value.
	require.NoError(t, weight(f.store).Write(1))
	assert.False(t, f.tracker.IsDirty())
}

func TestScenarioSave(t *testing.T) {
	f := newFixture(t)
	f.load(t)
	require.NoError(t, weight(f.store).Write(5.0))

	require.NoError(t, f.coordinator.Save(context.Background(), "p1"))
	assert.False(t, f.tracker.IsDirty())

	// Saving again without edits sends the same payload.
	require.NoError(t, f.coordinator.Save(context.Background(), "p1"))
	saves := f.backend.Saves()
	require.Len(t, saves, 2)
	assert.Equal(t, saves[0], saves[1])
	assert.Equal(t, 5.0, saves[0].Scenes[0].Arguments["weight"])
	assert.False(t, f.tracker.IsDirty())
}

func TestScenarioSaveFailure(t *testing.T) {
	f := newFixture(t)
	f.load(t)
	require.NoError(t, weight(f.store).Write(5.0))
	f.backend.FailSaves(errors.New("connection reset"))

	err := f.coordinator.Save(context.Background(), "p1")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSaveFailure)
	assert.True(t, f.tracker.IsDirty())

	left := false
	immediate, err := f.guard.RequestLeave(context.Background(), func() { left = true })
	require.NoError(t, err)
	assert.False(t, immediate)
	assert.False(t, left)
	assert.Equal(t, StatePrompting, f.guard.State())
}

func TestDirtyLifecycle(t *testing.T) {
	f := newFixture(t)
	assert.False(t, f.tracker.IsDirty(), "nothing loaded")

	f.load(t)
	assert.False(t, f.tracker.IsDirty())

	require.NoError(t, store.NewBinding(f.store, "p1", path.MustParse("scenes.s1.arguments.duration")).Write(2000.0))
	assert.True(t, f.tracker.IsDirty())

	require.NoError(t, f.coordinator.Save(context.Background(), "p1"))
	assert.False(t, f.tracker.IsDirty())
}

func TestFailedLoadIsNeverDirty(t *testing.T) {
	f := newFixture(t)
	f.backend.SetOffline(true)
	_, err := f.store.Load(context.Background(), "p1")
	require.Error(t, err)

	assert.False(t, f.tracker.IsDirty())
	left := false
	immediate, err := f.guard.RequestLeave(context.Background(), func() { left = true })
	require.NoError(t, err)
	assert.True(t, immediate)
	assert.True(t, left)
}

func TestSaveNotLoaded(t *testing.T) {
	f := newFixture(t)
	err := f.coordinator.Save(context.Background(), "p1")
	assert.ErrorIs(t, err, ErrSaveFailure)
	assert.Empty(t, f.backend.Saves())
}

func TestSavePublishesEvents(t *testing.T) {
	f := newFixture(t)
	f.load(t)

	var mu sync.Mutex
	seen := map[store.EventType]int{}
	cb := func(_ context.Context, e store.Event) error {
		mu.Lock()
		defer mu.Unlock()
		seen[e.Type]++
		return nil
	}
	f.store.Subscribe(store.PresetSaved, cb)
	f.store.Subscribe(store.PresetSaveFailed, cb)

	require.NoError(t, f.coordinator.Save(context.Background(), "p1"))
	f.backend.FailSaves(errors.New("down"))
	require.Error(t, f.coordinator.Save(context.Background(), "p1"))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return seen[store.PresetSaved] == 1 && seen[store.PresetSaveFailed] == 1
	}, time.Second, 10*time.Millisecond)
}

// blockingPersister holds SavePreset until release is closed.
type blockingPersister struct {
	started chan struct{}
	release chan struct{}
}

func (p *blockingPersister) SavePreset(ctx context.Context, id string, raw preset.RawPreset) error {
	close(p.started)
	<-p.release
	return nil
}

func TestEditsDuringSaveStayDirty(t *testing.T) {
	f := newFixture(t)
	f.load(t)
	require.NoError(t, weight(f.store).Write(5.0))

	bp := &blockingPersister{started: make(chan struct{}), release: make(chan struct{})}
	c := NewCoordinator(f.store, bp)
	done := make(chan error, 1)
	go func() { done <- c.Save(context.Background(), "p1") }()

	<-bp.started
	require.NoError(t, weight(f.store).Write(6.0))
	close(bp.release)
	require.NoError(t, <-done)

	assert.True(t, f.tracker.IsDirty())
	base, _ := f.store.Baseline("p1")
	assert.Equal(t, 5.0, base.Scenes["s1"].Arguments["weight"])
}

func TestSaveAfterReloadKeepsNewBaseline(t *testing.T) {
	f := newFixture(t)
	f.load(t)
	require.NoError(t, weight(f.store).Write(5.0))

	bp := &blockingPersister{started: make(chan struct{}), release: make(chan struct{})}
	c := NewCoordinator(f.store, bp)
	done := make(chan error, 1)
	go func() { done <- c.Save(context.Background(), "p1") }()

	<-bp.started
	f.load(t)
	close(bp.release)
	require.NoError(t, <-done)

	base, _ := f.store.Baseline("p1")
	assert.Equal(t, 1.0, base.Scenes["s1"].Arguments["weight"])
	assert.False(t, f.tracker.IsDirty())
}

func TestGuardCleanLeave(t *testing.T) {
	f := newFixture(t)
	f.load(t)

	left := false
	immediate, err := f.guard.RequestLeave(context.Background(), func() { left = true })
	require.NoError(t, err)
	assert.True(t, immediate)
	assert.True(t, left)
	assert.Equal(t, StateLeft, f.guard.State())

	require.NoError(t, f.guard.Reset(context.Background()))
	assert.Equal(t, StateIdle, f.guard.State())
}

func TestGuardDiscard(t *testing.T) {
	f := newFixture(t)
	f.load(t)
	require.NoError(t, weight(f.store).Write(5.0))

	left := false
	immediate, err := f.guard.RequestLeave(context.Background(), func() { left = true })
	require.NoError(t, err)
	require.False(t, immediate)
	assert.True(t, f.guard.Pending())

	require.NoError(t, f.guard.Discard(context.Background()))
	assert.True(t, left)
	assert.False(t, f.guard.Pending())
	assert.Equal(t, StateLeft, f.guard.State())
	assert.False(t, f.tracker.IsDirty())
	assert.Empty(t, f.backend.Saves())
}

func TestGuardCancel(t *testing.T) {
	f := newFixture(t)
	f.load(t)
	require.NoError(t, weight(f.store).Write(5.0))

	left := false
	_, err := f.guard.RequestLeave(context.Background(), func() { left = true })
	require.NoError(t, err)
	require.NoError(t, f.guard.Cancel(context.Background()))

	assert.False(t, left)
	assert.Equal(t, StateIdle, f.guard.State())
	assert.True(t, f.tracker.IsDirty(), "cancel keeps the edits")

	assert.ErrorIs(t, f.guard.Discard(context.Background()), ErrInvalidState)
}

func TestGuardSaveAndLeave(t *testing.T) {
	f := newFixture(t)
	f.load(t)
	require.NoError(t, weight(f.store).Write(5.0))

	left := false
	_, err := f.guard.RequestLeave(context.Background(), func() { left = true })
	require.NoError(t, err)

	f.backend.FailSaves(errors.New("timeout"))
	err = f.guard.SaveAndLeave(context.Background())
	assert.ErrorIs(t, err, ErrSaveFailure)
	assert.False(t, left)
	assert.Equal(t, StatePrompting, f.guard.State())
	assert.True(t, f.guard.Pending())

	f.backend.FailSaves(nil)
	require.NoError(t, f.guard.SaveAndLeave(context.Background()))
	assert.True(t, left)
	assert.Equal(t, StateLeft, f.guard.State())
	assert.False(t, f.tracker.IsDirty())
}

func TestGuardRejectsOutOfOrderActions(t *testing.T) {
	f := newFixture(t)
	f.load(t)

	assert.ErrorIs(t, f.guard.Cancel(context.Background()), ErrInvalidState)
	assert.ErrorIs(t, f.guard.SaveAndLeave(context.Background()), ErrInvalidState)
	assert.ErrorIs(t, f.guard.Reset(context.Background()), ErrInvalidState)
}
