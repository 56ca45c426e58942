// Package store holds the live, editable presets of a session. A Store is the
// single source of truth for every editor: editors read narrowed views of a
// preset through a Binding and commit changes through Store.Replace, which
// swaps in a new copy-on-write version of the whole document.
//
// The store also owns the baseline of each preset (the last state known to be
// persisted on the device) and a per-preset generation number used to drop
// responses that arrive after the preset was reloaded or torn down.
package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/asaidimu/go-events"
	"github.com/asaidimu/go-presets/core/preset"
	"github.com/asaidimu/go-presets/core/schema"
	"github.com/asaidimu/go-presets/utils"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrLoadFailure wraps every error returned by Load.
	ErrLoadFailure = errors.New("failed to load preset")
	// ErrStale is returned when a response arrives for a preset that was
	// reloaded or removed while the request was in flight.
	ErrStale = errors.New("stale response")
)

// Backend is the part of the device API the store reads from.
type Backend interface {
	GetPreset(ctx context.Context, id string) (preset.RawPreset, error)
	ListScenes(ctx context.Context) (schema.Catalog, error)
	ListProviders(ctx context.Context) (schema.Catalog, error)
}

// Store maps preset identifiers to their live and baseline documents.
//
// Mutations are all-or-nothing: an updater either produces a complete new
// document or leaves the stored one untouched.
type Store struct {
	backend Backend
	logger  *zap.Logger
	bus     *events.TypedEventBus[Event]

	mu          sync.RWMutex
	presets     map[string]preset.Preset
	baselines   map[string]preset.Preset
	generations map[string]uint64
	scenes      schema.Catalog
	providers   schema.Catalog

	subMu         sync.RWMutex
	subscriptions map[string]*SubscriptionInfo
}

// New creates an empty Store reading from backend. A nil logger disables
// logging.
func New(backend Backend, logger *zap.Logger) (*Store, error) {
	bus, err := events.NewTypedEventBus[Event](events.DefaultConfig())
	if err != nil {
		return nil, fmt.Errorf("could not initialize event bus: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Store{
		backend:       backend,
		logger:        logger,
		bus:           bus,
		presets:       make(map[string]preset.Preset),
		baselines:     make(map[string]preset.Preset),
		generations:   make(map[string]uint64),
		subscriptions: make(map[string]*SubscriptionInfo),
	}, nil
}

// Logger returns the store's logger so collaborators log with the same sink.
func (s *Store) Logger() *zap.Logger { return s.logger }

// Load fetches preset id together with the scene and provider schemas,
// stores the editable form and snapshots it as the baseline.
//
// On failure the preset is left absent, dropping any copy from an earlier
// load, and the error wraps ErrLoadFailure.
// If the preset is loaded again or removed before this call completes, the
// response is discarded and the error wraps ErrStale.
func (s *Store) Load(ctx context.Context, id string) (preset.Preset, error) {
	start := time.Now()
	gen := s.bump(id)

	p, scenes, providers, err := s.fetch(ctx, id)
	if err != nil {
		return preset.Preset{}, s.loadFailed(id, gen, fmt.Errorf("%w %q: %w", ErrLoadFailure, id, err), start)
	}

	baseline, err := utils.Clone(p)
	if err != nil {
		return preset.Preset{}, s.loadFailed(id, gen, fmt.Errorf("%w %q: snapshot: %w", ErrLoadFailure, id, err), start)
	}

	s.mu.Lock()
	if s.generations[id] != gen {
		s.mu.Unlock()
		s.logger.Debug("Discarding stale preset load", zap.String("preset", id), zap.Uint64("generation", gen))
		return preset.Preset{}, fmt.Errorf("load %q: %w", id, ErrStale)
	}
	s.presets[id] = p
	s.baselines[id] = baseline
	s.scenes = scenes
	s.providers = providers
	s.mu.Unlock()

	s.logger.Debug("Preset loaded", zap.String("preset", id), zap.Int("scenes", len(p.Scenes)))
	s.publish(NewEvent(PresetLoaded, id, gen, nil, nil, start))
	return p, nil
}

// loadFailed drops id unless a newer load or removal has taken over.
func (s *Store) loadFailed(id string, gen uint64, err error, start time.Time) error {
	s.mu.Lock()
	if s.generations[id] == gen {
		delete(s.presets, id)
		delete(s.baselines, id)
	}
	s.mu.Unlock()

	s.logger.Warn("Preset load failed", zap.String("preset", id), zap.Error(err))
	s.publish(NewEvent(PresetLoadFailed, id, gen, err, nil, start))
	return err
}

func (s *Store) fetch(ctx context.Context, id string) (preset.Preset, schema.Catalog, schema.Catalog, error) {
	raw, err := s.backend.GetPreset(ctx, id)
	if err != nil {
		return preset.Preset{}, nil, nil, err
	}
	scenes, err := s.backend.ListScenes(ctx)
	if err != nil {
		return preset.Preset{}, nil, nil, fmt.Errorf("scene schema: %w", err)
	}
	providers, err := s.backend.ListProviders(ctx)
	if err != nil {
		return preset.Preset{}, nil, nil, fmt.Errorf("provider schema: %w", err)
	}
	p, err := preset.ToEditable(raw)
	if err != nil {
		return preset.Preset{}, nil, nil, err
	}
	return p, scenes, providers, nil
}

// Put stores p as a freshly loaded preset without contacting the backend.
// Both the live document and the baseline are set.
func (s *Store) Put(id string, p preset.Preset, scenes, providers schema.Catalog) error {
	baseline, err := utils.Clone(p)
	if err != nil {
		return fmt.Errorf("snapshot preset %q: %w", id, err)
	}
	gen := s.bump(id)

	s.mu.Lock()
	s.presets[id] = p
	s.baselines[id] = baseline
	if scenes != nil {
		s.scenes = scenes
	}
	if providers != nil {
		s.providers = providers
	}
	s.mu.Unlock()

	s.publish(NewEvent(PresetLoaded, id, gen, nil, nil, time.Time{}))
	return nil
}

// Get returns the live preset.
func (s *Store) Get(id string) (preset.Preset, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.presets[id]
	return p, ok
}

// IDs returns the identifiers of all loaded presets, sorted.
func (s *Store) IDs() []string {
	s.mu.RLock()
	ids := make([]string, 0, len(s.presets))
	for id := range s.presets {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	slices.Sort(ids)
	return ids
}

// Replace applies updater to the live preset and stores the result.
//
// If no preset is loaded under id the call is a logged no-op returning nil:
// an edit racing ahead of its load is a programming error, not a user
// failure. If updater fails, the stored preset is unchanged and the error is
// returned. updater runs with the store locked and must not call back into
// the Store.
func (s *Store) Replace(id string, updater func(preset.Preset) (preset.Preset, error)) error {
	s.mu.Lock()
	cur, ok := s.presets[id]
	if !ok {
		s.mu.Unlock()
		s.logger.Warn("Replace called for a preset that is not loaded", zap.String("preset", id))
		return nil
	}

	next, err := updater(cur)
	if err != nil {
		s.mu.Unlock()
		s.logger.Warn("Preset update rejected", zap.String("preset", id), zap.Error(err))
		return err
	}
	s.presets[id] = next
	gen := s.generations[id]
	s.mu.Unlock()

	s.publish(NewEvent(PresetReplaced, id, gen, nil, nil, time.Time{}))
	return nil
}

// Remove drops the live preset and its baseline. In-flight loads and saves
// for id become stale.
func (s *Store) Remove(id string) {
	gen := s.bump(id)

	s.mu.Lock()
	_, existed := s.presets[id]
	delete(s.presets, id)
	delete(s.baselines, id)
	s.mu.Unlock()

	if existed {
		s.publish(NewEvent(PresetRemoved, id, gen, nil, nil, time.Time{}))
	}
}

// Baseline returns the last persisted snapshot of a preset.
func (s *Store) Baseline(id string) (preset.Preset, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.baselines[id]
	return p, ok
}

// Generation returns the current generation of id. It changes whenever the
// preset is loaded or removed, never on edits.
func (s *Store) Generation(id string) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generations[id]
}

// CommitBaseline replaces the baseline of id with a deep copy of p, provided
// the preset is still loaded and its generation is still gen. It reports
// whether the baseline was written.
func (s *Store) CommitBaseline(id string, p preset.Preset, gen uint64) (bool, error) {
	snapshot, err := utils.Clone(p)
	if err != nil {
		return false, fmt.Errorf("snapshot preset %q: %w", id, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.presets[id]; !ok || s.generations[id] != gen {
		return false, nil
	}
	s.baselines[id] = snapshot
	return true, nil
}

// Restore resets the live preset to a copy of its baseline, discarding all
// unsaved edits.
func (s *Store) Restore(id string) error {
	s.mu.Lock()
	baseline, ok := s.baselines[id]
	if _, loaded := s.presets[id]; !ok || !loaded {
		s.mu.Unlock()
		return nil
	}
	live, err := utils.Clone(baseline)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("restore preset %q: %w", id, err)
	}
	s.presets[id] = live
	gen := s.generations[id]
	s.mu.Unlock()

	s.publish(NewEvent(PresetRestored, id, gen, nil, nil, time.Time{}))
	return nil
}

// Scenes returns the scene schema catalog of the most recent load.
func (s *Store) Scenes() schema.Catalog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scenes
}

// Providers returns the provider schema catalog of the most recent load.
func (s *Store) Providers() schema.Catalog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.providers
}

func (s *Store) bump(id string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generations[id]++
	return s.generations[id]
}

// Publish emits an event on the store's bus. Collaborators such as the save
// coordinator use it to announce their own outcomes.
func (s *Store) Publish(event Event) { s.publish(event) }

func (s *Store) publish(event Event) {
	if s.bus != nil {
		s.bus.Emit(string(event.Type), event)
	}
}

// Subscribe registers callback for events of the given type and returns the
// subscription id.
func (s *Store) Subscribe(event EventType, callback EventCallback) string {
	return s.SubscribeLabeled(event, "", callback)
}

// SubscribeLabeled is Subscribe with a label shown by Subscriptions.
func (s *Store) SubscribeLabeled(event EventType, label string, callback EventCallback) string {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	unsubscribe := s.bus.Subscribe(string(event), func(ctx context.Context, e Event) error {
		return callback(ctx, e)
	})
	id := uuid.New().String()

	s.subscriptions[id] = &SubscriptionInfo{
		ID:          id,
		Event:       event,
		Label:       label,
		Unsubscribe: unsubscribe,
	}
	return id
}

// Unsubscribe removes a subscription by its ID.
func (s *Store) Unsubscribe(id string) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	if info, ok := s.subscriptions[id]; ok {
		info.Unsubscribe()
		delete(s.subscriptions, id)
	}
}

// Subscriptions returns all active subscriptions.
func (s *Store) Subscriptions() []SubscriptionInfo {
	s.subMu.RLock()
	defer s.subMu.RUnlock()

	subs := make([]SubscriptionInfo, 0, len(s.subscriptions))
	for _, sub := range s.subscriptions {
		subs = append(subs, *sub)
	}
	return subs
}
