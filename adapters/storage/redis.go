package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/elum-utils/wordfilter/models"
)

const defaultRedisPrefix = "wordfilter"

// RedisAdapter keeps rules in one hash (word → replacement) and warnings in
// another (player id → JSON record).
type RedisAdapter struct {
	client   redis.Cmdable
	rules    string
	warnings string
}

// NewRedisAdapter creates an adapter. Keys are prefixed with prefix, or
// "wordfilter" when empty.
func NewRedisAdapter(client redis.Cmdable, prefix string) (*RedisAdapter, error) {
	if client == nil {
		return nil, errors.New("storage: redis client is nil")
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisAdapter{
		client:   client,
		rules:    prefix + ":rules",
		warnings: prefix + ":warnings",
	}, nil
}

func (r *RedisAdapter) UpsertRule(ctx context.Context, rule models.Rule) error {
	return r.client.HSet(ctx, r.rules, rule.Word, rule.Replacement).Err()
}

func (r *RedisAdapter) DeleteRule(ctx context.Context, word string) error {
	return r.client.HDel(ctx, r.rules, word).Err()
}

func (r *RedisAdapter) GetRules(ctx context.Context) ([]models.Rule, error) {
	all, err := r.client.HGetAll(ctx, r.rules).Result()
	if err != nil {
		return nil, err
	}
	out := make([]models.Rule, 0, len(all))
	for word, repl := range all {
		out = append(out, models.Rule{Word: word, Replacement: repl})
	}
	// Hash order is random; keep reloads reproducible.
	sort.Slice(out, func(i, j int) bool { return out[i].Word < out[j].Word })
	return out, nil
}

func (r *RedisAdapter) UpsertWarning(ctx context.Context, w models.PlayerWarning) error {
	raw, err := json.Marshal(w)
	if err != nil {
		return err
	}
	return r.client.HSet(ctx, r.warnings, w.PlayerID, raw).Err()
}

func (r *RedisAdapter) GetWarning(ctx context.Context, playerID string) (models.PlayerWarning, bool, error) {
	raw, err := r.client.HGet(ctx, r.warnings, playerID).Result()
	if errors.Is(err, redis.Nil) {
		return models.PlayerWarning{}, false, nil
	}
	if err != nil {
		return models.PlayerWarning{}, false, err
	}
	w, err := decodeWarning(playerID, raw)
	if err != nil {
		return models.PlayerWarning{}, false, err
	}
	return w, true, nil
}

// GetWarnings skips entries that do not decode and reports them in an
// error wrapping models.ErrMalformedRecord.
func (r *RedisAdapter) GetWarnings(ctx context.Context) ([]models.PlayerWarning, error) {
	all, err := r.client.HGetAll(ctx, r.warnings).Result()
	if err != nil {
		return nil, err
	}
	out := make([]models.PlayerWarning, 0, len(all))
	var bad []error
	for id, raw := range all {
		w, err := decodeWarning(id, raw)
		if err != nil {
			bad = append(bad, err)
			continue
		}
		out = append(out, w)
	}
	if len(bad) > 0 {
		return out, errors.Join(bad...)
	}
	return out, nil
}

func decodeWarning(playerID, raw string) (models.PlayerWarning, error) {
	var w models.PlayerWarning
	if err := json.Unmarshal([]byte(raw), &w); err != nil {
		return models.PlayerWarning{}, fmt.Errorf("%w: player %s: %v", models.ErrMalformedRecord, playerID, err)
	}
	w.PlayerID = playerID
	return w, nil
}
