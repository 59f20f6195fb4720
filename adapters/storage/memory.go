package storage

import (
	"context"
	"sync"

	"github.com/elum-utils/wordfilter/models"
)

// MemoryAdapter is an in-memory storage implementation. Rules come back in
// insertion order.
type MemoryAdapter struct {
	mu       sync.RWMutex
	order    []string
	rules    map[string]string
	warnings map[string]models.PlayerWarning
}

// NewMemoryAdapter creates a memory storage adapter.
func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{
		rules:    make(map[string]string),
		warnings: make(map[string]models.PlayerWarning),
	}
}

func (m *MemoryAdapter) UpsertRule(_ context.Context, rule models.Rule) error {
	m.mu.Lock()
	if _, ok := m.rules[rule.Word]; !ok {
		m.order = append(m.order, rule.Word)
	}
	m.rules[rule.Word] = rule.Replacement
	m.mu.Unlock()
	return nil
}

func (m *MemoryAdapter) DeleteRule(_ context.Context, word string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rules[word]; !ok {
		return nil
	}
	delete(m.rules, word)
	order := m.order[:0]
	for _, w := range m.order {
		if w != word {
			order = append(order, w)
		}
	}
	m.order = order
	return nil
}

func (m *MemoryAdapter) GetRules(_ context.Context) ([]models.Rule, error) {
	m.mu.RLock()
	out := make([]models.Rule, 0, len(m.order))
	for _, w := range m.order {
		out = append(out, models.Rule{Word: w, Replacement: m.rules[w]})
	}
	m.mu.RUnlock()
	return out, nil
}

func (m *MemoryAdapter) UpsertWarning(_ context.Context, warning models.PlayerWarning) error {
	m.mu.Lock()
	m.warnings[warning.PlayerID] = warning
	m.mu.Unlock()
	return nil
}

func (m *MemoryAdapter) GetWarning(_ context.Context, playerID string) (models.PlayerWarning, bool, error) {
	m.mu.RLock()
	w, ok := m.warnings[playerID]
	m.mu.RUnlock()
	return w, ok, nil
}

func (m *MemoryAdapter) GetWarnings(_ context.Context) ([]models.PlayerWarning, error) {
	m.mu.RLock()
	out := make([]models.PlayerWarning, 0, len(m.warnings))
	for _, w := range m.warnings {
		out = append(out, w)
	}
	m.mu.RUnlock()
	return out, nil
}
