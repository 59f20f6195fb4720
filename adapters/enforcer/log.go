package enforcer

import (
	"context"

	"github.com/elum-utils/wordfilter/interfaces"
	"github.com/elum-utils/wordfilter/models"
)

// LogOnly records sanctions without applying them. Useful for dry runs and
// for hosts that apply sanctions from event handlers instead.
type LogOnly struct {
	logger interfaces.Logger
}

func NewLogOnly(logger interfaces.Logger) *LogOnly {
	return &LogOnly{logger: logger}
}

func (l *LogOnly) Name() string { return "log" }

func (l *LogOnly) Enforce(_ context.Context, s models.Sanction) error {
	if l.logger == nil {
		return nil
	}
	action := "kick"
	if s.Ban {
		action = "ban"
	}
	l.logger.Info("wordfilter sanction (dry run)", map[string]any{
		"action":      action,
		"player_id":   s.PlayerID,
		"player_name": s.PlayerName,
		"duration":    s.Duration.String(),
		"reason":      s.Reason,
	})
	return nil
}
