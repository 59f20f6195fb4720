// Package warnings keeps per-player offense records in an in-process cache
// backed by a WarningStorage relation.
//
// The cache is filled lazily on read miss, written through on every
// mutation and fully reloaded only by ListAll and ExpireIdle. Nothing here
// notices writes made by another process sharing the same relation.
package warnings

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/elum-utils/wordfilter/interfaces"
	"github.com/elum-utils/wordfilter/models"
)

const defaultPersistTimeout = 2 * time.Second

// Options configure a Store.
type Options struct {
	Storage interfaces.WarningStorage
	Logger  interfaces.Logger
	// Now replaces time.Now, mainly for tests.
	Now func() time.Time
	// PersistTimeout bounds each storage call.
	PersistTimeout time.Duration
}

// Store is the warning record cache. One mutex guards the whole map and is
// held across storage calls, so operations are strictly serialized.
type Store struct {
	mu    sync.Mutex
	cache map[string]*models.PlayerWarning

	storage interfaces.WarningStorage
	logger  interfaces.Logger
	now     func() time.Time
	timeout time.Duration
}

// New creates a store. A nil Storage keeps records in memory only.
func New(opt Options) *Store {
	s := &Store{
		cache:   make(map[string]*models.PlayerWarning),
		storage: opt.Storage,
		logger:  opt.Logger,
		now:     time.Now,
		timeout: defaultPersistTimeout,
	}
	if opt.Now != nil {
		s.now = opt.Now
	}
	if opt.PersistTimeout > 0 {
		s.timeout = opt.PersistTimeout
	}
	return s
}

// Now returns the store clock reading.
func (s *Store) Now() time.Time {
	return s.now()
}

// GetOrCreate returns the record of playerID, loading it from storage or
// creating a clean one on cache miss. A non-empty name refreshes the
// stored display name.
func (s *Store) GetOrCreate(ctx context.Context, playerID, name string) models.PlayerWarning {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.getOrCreateLocked(ctx, playerID, name)
}

// Get returns the record of playerID without touching its display name.
func (s *Store) Get(ctx context.Context, playerID string) models.PlayerWarning {
	return s.GetOrCreate(ctx, playerID, "")
}

// RecordOffense adds one warning stamped with the current time and
// persists the record.
func (s *Store) RecordOffense(ctx context.Context, playerID, name string) models.PlayerWarning {
	return s.Update(ctx, playerID, name, func(w *models.PlayerWarning, now time.Time) {
		w.AddWarning(now)
	})
}

// Update runs fn on the record of playerID under the store lock and
// persists the result. fn receives the store clock reading.
func (s *Store) Update(ctx context.Context, playerID, name string, fn func(w *models.PlayerWarning, now time.Time)) models.PlayerWarning {
	s.mu.Lock()
	defer s.mu.Unlock()
	w := s.getOrCreateLocked(ctx, playerID, name)
	fn(w, s.now())
	s.persistLocked(ctx, *w)
	return *w
}

// Reset zeroes a cached record and persists it. Unknown players are
// ignored; the return value reports whether a record was reset.
func (s *Store) Reset(ctx context.Context, playerID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.cache[playerID]
	if !ok {
		return false
	}
	w.Reset()
	s.persistLocked(ctx, *w)
	return true
}

// ListAll reloads the cache from storage and returns a snapshot of it.
func (s *Store) ListAll(ctx context.Context) map[string]models.PlayerWarning {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reloadLocked(ctx)
	out := make(map[string]models.PlayerWarning, len(s.cache))
	for id, w := range s.cache {
		out[id] = *w
	}
	return out
}

// ExpireIdle reloads the cache and resets every record idle for at least
// window. It returns the number of records reset.
func (s *Store) ExpireIdle(ctx context.Context, window time.Duration) int {
	if window <= 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reloadLocked(ctx)
	now := s.now()
	reset := 0
	for _, w := range s.cache {
		if w.Clean() || w.IdleFor(now) < window {
			continue
		}
		w.Reset()
		s.persistLocked(ctx, *w)
		reset++
	}
	return reset
}

// Len returns the number of cached records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cache)
}

func (s *Store) getOrCreateLocked(ctx context.Context, playerID, name string) *models.PlayerWarning {
	if w, ok := s.cache[playerID]; ok {
		if name != "" {
			w.PlayerName = name
		}
		return w
	}
	w := s.loadLocked(ctx, playerID, name)
	s.cache[playerID] = w
	return w
}

func (s *Store) loadLocked(ctx context.Context, playerID, name string) *models.PlayerWarning {
	fresh := models.NewPlayerWarning(playerID, name)
	if s.storage == nil {
		return &fresh
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	w, found, err := s.storage.GetWarning(ctx, playerID)
	if err != nil {
		s.logError("warning load failed", map[string]any{"error": err.Error(), "player_id": playerID})
		return &fresh
	}
	if !found {
		return &fresh
	}
	w.PlayerID = playerID
	if err := w.Validate(); err != nil {
		s.logWarn("malformed warning record ignored", map[string]any{"error": err.Error(), "player_id": playerID})
		return &fresh
	}
	if name != "" {
		w.PlayerName = name
	}
	return &w
}

// reloadLocked replaces the cache with the storage contents. On a read
// failure the current cache is kept.
func (s *Store) reloadLocked(ctx context.Context) {
	if s.storage == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	rows, err := s.storage.GetWarnings(ctx)
	if err != nil {
		if !errors.Is(err, models.ErrMalformedRecord) {
			s.logError("warnings reload failed", map[string]any{"error": err.Error()})
			return
		}
		s.logWarn("malformed warning rows skipped", map[string]any{"error": err.Error()})
	}
	next := make(map[string]*models.PlayerWarning, len(rows))
	for _, row := range rows {
		w := row
		if err := w.Validate(); err != nil {
			s.logWarn("malformed warning record skipped", map[string]any{"error": err.Error()})
			continue
		}
		next[w.PlayerID] = &w
	}
	s.cache = next
}

func (s *Store) persistLocked(ctx context.Context, w models.PlayerWarning) {
	if s.storage == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.storage.UpsertWarning(ctx, w); err != nil {
		s.logError("warning persist failed", map[string]any{"error": err.Error(), "player_id": w.PlayerID})
	}
}

func (s *Store) logWarn(msg string, fields map[string]any) {
	if s.logger != nil {
		s.logger.Warn(msg, fields)
	}
}

func (s *Store) logError(msg string, fields map[string]any) {
	if s.logger != nil {
		s.logger.Error(msg, fields)
	}
}
