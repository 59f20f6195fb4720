package warnings

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/elum-utils/wordfilter/adapters/storage"
	"github.com/stretchr/testify/assert"
)

func TestReaperSweep(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock()
	s := newTestStore(storage.NewMemoryAdapter(), clock)
	r := NewReaper(s, ReaperOptions{Window: 30 * time.Minute})

	s.RecordOffense(ctx, "u1", "alice")
	s.RecordOffense(ctx, "u2", "bob")
	clock.Advance(29 * time.Minute)
	assert.Equal(t, 0, r.Sweep(ctx))

	clock.Advance(time.Minute)
	assert.Equal(t, 2, r.Sweep(ctx))
	assert.Equal(t, 0, s.Get(ctx, "u1").Count)
}

func TestReaperDisabled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := New(Options{})
	r := NewReaper(s, ReaperOptions{})
	assert.False(t, r.Enabled())
	assert.Equal(t, 0, r.Sweep(ctx))

	cancel()
	assert.True(t, errors.Is(r.Run(ctx), context.Canceled))
}

func TestReaperRunTicks(t *testing.T) {
	clock := newTestClock()
	s := newTestStore(storage.NewMemoryAdapter(), clock)
	s.RecordOffense(context.Background(), "u1", "alice")
	clock.Advance(time.Hour)

	r := NewReaper(s, ReaperOptions{Window: time.Minute, Interval: time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	assert.Eventually(t, func() bool {
		return s.Get(context.Background(), "u1").Count == 0
	}, time.Second, 5*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestReaperConcurrentSweeps(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock()
	s := newTestStore(storage.NewMemoryAdapter(), clock)
	for _, id := range []string{"a", "b", "c"} {
		s.RecordOffense(ctx, id, id)
	}
	clock.Advance(time.Hour)
	r := NewReaper(s, ReaperOptions{Window: time.Minute})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Sweep(ctx)
			s.RecordOffense(ctx, "d", "d")
		}()
	}
	wg.Wait()
	for _, id := range []string{"a", "b", "c"} {
		assert.Equal(t, 0, s.Get(ctx, id).Count)
	}
}
