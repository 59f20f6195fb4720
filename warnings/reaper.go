package warnings

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/elum-utils/wordfilter/interfaces"
)

const defaultSweepInterval = 5 * time.Minute

// ReaperOptions configure a Reaper.
type ReaperOptions struct {
	// Window is the idle time after which a record is reset. Zero or
	// negative disables the reaper.
	Window   time.Duration
	Interval time.Duration
	Logger   interfaces.Logger
}

// Reaper periodically resets idle warning records. Concurrent sweeps
// collapse into one.
type Reaper struct {
	store    *Store
	window   time.Duration
	interval time.Duration
	logger   interfaces.Logger
	flight   singleflight.Group
}

// NewReaper creates a reaper over store.
func NewReaper(store *Store, opt ReaperOptions) *Reaper {
	r := &Reaper{
		store:    store,
		window:   opt.Window,
		interval: defaultSweepInterval,
		logger:   opt.Logger,
	}
	if opt.Interval > 0 {
		r.interval = opt.Interval
	}
	return r
}

// Enabled reports whether sweeps do anything.
func (r *Reaper) Enabled() bool {
	return r.window > 0
}

// Sweep resets idle records once and returns how many were reset. A call
// made while another sweep runs waits for it and shares its result.
func (r *Reaper) Sweep(ctx context.Context) int {
	if !r.Enabled() {
		return 0
	}
	v, _, _ := r.flight.Do("sweep", func() (any, error) {
		n := r.store.ExpireIdle(ctx, r.window)
		if n > 0 && r.logger != nil {
			r.logger.Info("expired warnings reset", map[string]any{"count": n, "window": r.window.String()})
		}
		return n, nil
	})
	return v.(int)
}

// Run sweeps on every interval tick until ctx is done.
func (r *Reaper) Run(ctx context.Context) error {
	if !r.Enabled() {
		<-ctx.Done()
		return ctx.Err()
	}
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.safeSweep(ctx)
		}
	}
}

func (r *Reaper) safeSweep(ctx context.Context) {
	defer func() {
		if rec := recover(); rec != nil && r.logger != nil {
			r.logger.Warn("warning sweep panic", map[string]any{"panic": fmt.Sprint(rec)})
		}
	}()
	r.Sweep(ctx)
}
