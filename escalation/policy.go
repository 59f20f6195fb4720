// Package escalation decides what happens to a player who offended again.
//
// A player moves Clean → Warned → Kick → WarnedPostKick → Ban and back to
// Clean, driven only by the warning count. Decisions are pure functions of
// the record, the policy and the current time; applying them is left to the
// caller.
package escalation

import (
	"strconv"
	"strings"
	"time"

	"github.com/elum-utils/wordfilter/models"
)

// Tier is an escalation phase.
type Tier int

const (
	TierClean Tier = iota
	TierWarned
	TierKick
	TierWarnedPostKick
	TierBan
)

func (t Tier) String() string {
	switch t {
	case TierClean:
		return "clean"
	case TierWarned:
		return "warned"
	case TierKick:
		return "kick"
	case TierWarnedPostKick:
		return "warned_post_kick"
	case TierBan:
		return "ban"
	default:
		return "unknown"
	}
}

// Messages are the texts shown to sanctioned players. Placeholders:
// {current} {max} {warnings} {remaining} {duration}.
type Messages struct {
	Warning          string `json:"WarningMessage"`
	WarningAfterKick string `json:"WarningAfterKickMessage"`
	Kick             string `json:"KickMessage"`
	Ban              string `json:"BanMessage"`
}

// DefaultMessages returns the stock texts.
func DefaultMessages() Messages {
	return Messages{
		Warning:          "[WordFilter] Warning {current}/{max} before kick: Do not use inappropriate language!",
		WarningAfterKick: "[WordFilter] Warning {current}/{max} before a {duration} minute ban: Do not use inappropriate language!",
		Kick:             "Kicked for inappropriate language! You have {remaining} more warnings before a {duration} minute ban.",
		Ban:              "Banned for {duration} minutes for repeated use of inappropriate language.",
	}
}

// Policy holds the thresholds. KickAt or BanAt at or below zero disables
// that tier; ResetWindow at or below zero never forgets an offense.
type Policy struct {
	KickAt      int
	BanAt       int
	BanDuration time.Duration
	ResetWindow time.Duration
	Messages    Messages
}

// Decision is the outcome of one offense.
type Decision struct {
	// Stale is set when the previous history was discarded first.
	Stale bool
	// Count is the warning count after this offense.
	Count  int
	Tier   Tier
	Action models.Action
	// Reset is set when the record goes back to clean after the action.
	Reset bool
}

// Stale reports whether w is old enough to be forgotten at now.
func (p Policy) Stale(w models.PlayerWarning, now time.Time) bool {
	return p.ResetWindow > 0 && !w.Clean() && w.IdleFor(now) >= p.ResetWindow
}

// Decide returns what one more offense does to a player whose record is
// prev at now.
func (p Policy) Decide(prev models.PlayerWarning, now time.Time) Decision {
	stale := p.Stale(prev, now)
	base := prev.Count
	if stale || base < 0 {
		base = 0
	}
	d := p.Evaluate(base + 1)
	d.Stale = stale
	return d
}

// Evaluate returns the decision for a record that has just reached count.
func (p Policy) Evaluate(count int) Decision {
	d := Decision{Count: count, Tier: p.TierOf(count)}
	minutes := strconv.Itoa(int(p.BanDuration / time.Minute))

	switch d.Tier {
	case TierClean:
		d.Action = models.Action{Kind: models.ActionNone}
	case TierBan:
		d.Action = models.Action{
			Kind:     models.ActionBan,
			Duration: p.BanDuration,
			Message: render(p.Messages.Ban, map[string]string{
				"{warnings}": strconv.Itoa(count),
				"{duration}": minutes,
			}),
		}
		d.Reset = true
	case TierKick:
		remaining := 0
		if p.BanAt > count {
			remaining = p.BanAt - count
		}
		d.Action = models.Action{
			Kind: models.ActionKick,
			Message: render(p.Messages.Kick, map[string]string{
				"{warnings}":  strconv.Itoa(count),
				"{remaining}": strconv.Itoa(remaining),
				"{duration}":  minutes,
			}),
		}
	case TierWarned:
		d.Action = p.warn(p.Messages.Warning, count, p.KickAt, false, minutes)
	default:
		kick := max(p.KickAt, 0)
		limit := 0
		if p.BanAt > kick {
			limit = p.BanAt - kick
		}
		d.Action = p.warn(p.Messages.WarningAfterKick, count-kick, limit, true, minutes)
	}
	return d
}

// TierOf maps a count to its tier.
func (p Policy) TierOf(count int) Tier {
	switch {
	case count <= 0:
		return TierClean
	case p.BanAt > 0 && count == p.BanAt:
		return TierBan
	case p.KickAt > 0 && count == p.KickAt:
		return TierKick
	case p.KickAt > 0 && count < p.KickAt:
		return TierWarned
	default:
		return TierWarnedPostKick
	}
}

func (p Policy) warn(template string, current, limit int, postKick bool, minutes string) models.Action {
	return models.Action{
		Kind:     models.ActionWarn,
		Current:  current,
		Max:      limit,
		PostKick: postKick,
		Message: render(template, map[string]string{
			"{current}":  strconv.Itoa(current),
			"{max}":      strconv.Itoa(limit),
			"{duration}": minutes,
		}),
	}
}

func render(template string, values map[string]string) string {
	pairs := make([]string, 0, len(values)*2)
	for k, v := range values {
		pairs = append(pairs, k, v)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}
