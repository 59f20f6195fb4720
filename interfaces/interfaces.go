package interfaces

import (
	"context"

	"github.com/elum-utils/wordfilter/models"
)

// RuleStorage persists filter rules keyed by word.
type RuleStorage interface {
	UpsertRule(ctx context.Context, rule models.Rule) error
	DeleteRule(ctx context.Context, word string) error
	GetRules(ctx context.Context) ([]models.Rule, error)
}

// WarningStorage persists warning records keyed by player id.
//
// GetWarnings may return the rows it could read together with an error
// wrapping models.ErrMalformedRecord for the ones it could not.
type WarningStorage interface {
	UpsertWarning(ctx context.Context, warning models.PlayerWarning) error
	GetWarning(ctx context.Context, playerID string) (models.PlayerWarning, bool, error)
	GetWarnings(ctx context.Context) ([]models.PlayerWarning, error)
}

// Storage is a backend holding both relations.
type Storage interface {
	RuleStorage
	WarningStorage
}

// Enforcer carries out kicks and timed bans. The result is not observed by
// the moderator beyond logging.
type Enforcer interface {
	Enforce(ctx context.Context, sanction models.Sanction) error
}

// ProcessedHandler handles every message that matched a rule.
type ProcessedHandler interface {
	OnProcessed(ctx context.Context, message models.Message, result models.Result) error
}

// Logger is an optional structured logger.
type Logger interface {
	Debug(msg string, fields map[string]any)
	Info(msg string, fields map[string]any)
	Warn(msg string, fields map[string]any)
	Error(msg string, fields map[string]any)
}
