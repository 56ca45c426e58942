// Package push mirrors edits to a running device. A Pusher listens for
// replace and restore events on a store, waits for the edits to settle and
// sends the live preset, so the device previews changes before they are
// saved.
package push

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/asaidimu/go-presets/core/preset"
	"github.com/asaidimu/go-presets/core/store"
	"github.com/cenkalti/backoff"
	"go.uber.org/zap"
)

// ErrClosed is returned by Flush after Close.
var ErrClosed = errors.New("pusher closed")

// Device receives live presets.
type Device interface {
	PushPreset(ctx context.Context, id string, raw preset.RawPreset) error
}

// Options configures a Pusher.
type Options struct {
	// Debounce is how long a preset must stay unchanged before it is pushed.
	Debounce time.Duration
	// MaxRetries bounds the attempts after the first failed push.
	MaxRetries uint64
	// RetryInterval is the initial backoff between attempts.
	RetryInterval time.Duration
	// Timeout bounds a single push including retries. Zero means no limit.
	Timeout time.Duration
}

// DefaultOptions returns the options used when none are given.
func DefaultOptions() Options {
	return Options{
		Debounce:      300 * time.Millisecond,
		MaxRetries:    3,
		RetryInterval: 100 * time.Millisecond,
		Timeout:       10 * time.Second,
	}
}

// Pusher debounces store edits and pushes the result to a Device. Pushes are
// best effort: failures are logged and never reach the store.
type Pusher struct {
	store  *store.Store
	device Device
	opts   Options
	logger *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	subs   []string

	mu     sync.Mutex
	timers map[string]*time.Timer
	closed bool
	wg     sync.WaitGroup
}

// New creates a Pusher and subscribes it to s. A zero Debounce keeps the
// default.
func New(s *store.Store, device Device, opts Options) *Pusher {
	def := DefaultOptions()
	if opts.Debounce <= 0 {
		opts.Debounce = def.Debounce
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = def.RetryInterval
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pusher{
		store:  s,
		device: device,
		opts:   opts,
		logger: s.Logger().Named("push"),
		ctx:    ctx,
		cancel: cancel,
		timers: make(map[string]*time.Timer),
	}

	schedule := func(_ context.Context, e store.Event) error {
		p.schedule(e.Preset)
		return nil
	}
	p.subs = []string{
		s.SubscribeLabeled(store.PresetReplaced, "push", schedule),
		s.SubscribeLabeled(store.PresetRestored, "push", schedule),
	}
	return p
}

// schedule (re)starts the debounce timer of id.
func (p *Pusher) schedule(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	if t, ok := p.timers[id]; ok && t.Stop() {
		p.wg.Done()
	}
	p.wg.Add(1)
	var t *time.Timer
	t = time.AfterFunc(p.opts.Debounce, func() {
		defer p.wg.Done()
		p.mu.Lock()
		if p.timers[id] == t {
			delete(p.timers, id)
		}
		p.mu.Unlock()
		if err := p.push(p.ctx, id); err != nil {
			p.logger.Warn("Preset push failed", zap.String("preset", id), zap.Error(err))
		}
	})
	p.timers[id] = t
}

// Flush pushes id immediately, cancelling any pending debounce.
func (p *Pusher) Flush(ctx context.Context, id string) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	if t, ok := p.timers[id]; ok && t.Stop() {
		delete(p.timers, id)
		p.wg.Done()
	}
	p.mu.Unlock()
	return p.push(ctx, id)
}

// Pending reports the number of presets waiting for their debounce to end.
func (p *Pusher) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.timers)
}

func (p *Pusher) push(ctx context.Context, id string) error {
	live, ok := p.store.Get(id)
	if !ok {
		p.logger.Debug("Preset gone before push", zap.String("preset", id))
		return nil
	}
	raw := preset.ToWire(live)

	if p.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.Timeout)
		defer cancel()
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = p.opts.RetryInterval
	policy := backoff.WithContext(backoff.WithMaxRetries(exp, p.opts.MaxRetries), ctx)

	attempts := 0
	err := backoff.Retry(func() error {
		attempts++
		err := p.device.PushPreset(ctx, id, raw)
		if err != nil {
			p.logger.Debug("Push attempt failed",
				zap.String("preset", id),
				zap.Int("attempt", attempts),
				zap.Error(err))
		}
		return err
	}, policy)
	if err != nil {
		return fmt.Errorf("push preset %q after %d attempts: %w", id, attempts, err)
	}

	p.logger.Debug("Preset pushed", zap.String("preset", id), zap.Int("attempts", attempts))
	return nil
}

// Close unsubscribes from the store, drops pending pushes and waits for
// running ones to finish.
func (p *Pusher) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	for id, t := range p.timers {
		if t.Stop() {
			p.wg.Done()
		}
		delete(p.timers, id)
	}
	p.mu.Unlock()

	for _, sub := range p.subs {
		p.store.Unsubscribe(sub)
	}
	p.cancel()
	p.wg.Wait()
}
