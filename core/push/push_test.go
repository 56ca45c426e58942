package push

import (
	"context"
	"testing"
	"time"

	"github.com/asaidimu/go-presets/core/path"
	"github.com/asaidimu/go-presets/core/store"
	"github.com/asaidimu/go-presets/core/store/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setup(t *testing.T, opts Options) (*store.Store, *storetest.Backend, *Pusher) {
	t.Helper()
	backend := storetest.NewBackend(storetest.Catalogs())
	backend.Seed("p1", storetest.ScenarioPreset())

	s, err := store.New(backend, zap.NewNop())
	require.NoError(t, err)
	_, err = s.Load(context.Background(), "p1")
	require.NoError(t, err)

	p := New(s, backend, opts)
	t.Cleanup(p.Close)
	return s, backend, p
}

func fastOptions() Options {
	return Options{
		Debounce:      20 * time.Millisecond,
		MaxRetries:    3,
		RetryInterval: time.Millisecond,
		Timeout:       time.Second,
	}
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	assert.Equal(t, 300*time.Millisecond, opts.Debounce)
	assert.NotZero(t, opts.MaxRetries)
}

func TestBurstIsPushedOnce(t *testing.T) {
	s, backend, _ := setup(t, fastOptions())
	b := store.NewBinding(s, "p1", path.Of("scenes", "s1", "arguments", "weight"))

	for i := 1; i <= 5; i++ {
		require.NoError(t, b.Write(float64(i)))
	}

	assert.Eventually(t, func() bool { return len(backend.Pushes()) == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(60 * time.Millisecond)

	pushes := backend.Pushes()
	require.Len(t, pushes, 1)
	assert.Equal(t, 5.0, pushes[0].Scenes[0].Arguments["weight"])
}

func TestPushRetries(t *testing.T) {
	s, backend, p := setup(t, fastOptions())
	backend.FailPushes(2)

	require.NoError(t, p.Flush(context.Background(), "p1"))
	require.Len(t, backend.Pushes(), 1)

	backend.FailPushes(10)
	err := p.Flush(context.Background(), "p1")
	assert.Error(t, err)
	assert.Len(t, backend.Pushes(), 1)

	_, ok := s.Get("p1")
	assert.True(t, ok, "push failures never touch the store")
}

func TestRestoreIsPushed(t *testing.T) {
	s, backend, _ := setup(t, fastOptions())
	b := store.NewBinding(s, "p1", path.Of("scenes", "s1", "arguments", "weight"))
	require.NoError(t, b.Write(9.0))
	assert.Eventually(t, func() bool { return len(backend.Pushes()) == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, s.Restore("p1"))
	assert.Eventually(t, func() bool { return len(backend.Pushes()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1.0, backend.Pushes()[1].Scenes[0].Arguments["weight"])
}

func TestRemovedPresetIsSkipped(t *testing.T) {
	s, backend, p := setup(t, fastOptions())
	s.Remove("p1")

	require.NoError(t, p.Flush(context.Background(), "p1"))
	assert.Empty(t, backend.Pushes())
}

func TestClose(t *testing.T) {
	opts := fastOptions()
	opts.Debounce = time.Hour
	s, backend, p := setup(t, opts)
	b := store.NewBinding(s, "p1", path.Of("scenes", "s1", "arguments", "weight"))

	require.NoError(t, b.Write(3.0))
	assert.Eventually(t, func() bool { return p.Pending() == 1 }, time.Second, 5*time.Millisecond)

	p.Close()
	assert.Zero(t, p.Pending())
	assert.ErrorIs(t, p.Flush(context.Background(), "p1"), ErrClosed)

	require.NoError(t, b.Write(4.0))
	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, p.Pending())
	assert.Empty(t, backend.Pushes())
}
