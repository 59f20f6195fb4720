package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/elum-utils/wordfilter/engine"
	"github.com/elum-utils/wordfilter/escalation"
	"github.com/elum-utils/wordfilter/interfaces"
	"github.com/elum-utils/wordfilter/models"
	"github.com/elum-utils/wordfilter/warnings"
)

// ErrEmptyWord is returned when a rule word is blank.
var ErrEmptyWord = errors.New("core: empty word")

// EventName is a callback bus event.
type EventName string

const (
	EventWarn  EventName = "warn"
	EventKick  EventName = "kick"
	EventBan   EventName = "ban"
	EventReset EventName = "reset"
)

// OffenseEvent is callback payload.
type OffenseEvent struct {
	PlayerID   string
	PlayerName string
	Group      string
	Original   string
	Filtered   string
	Count      int
	Tier       escalation.Tier
	Action     models.Action
}

// EventHandler handles one moderation event.
type EventHandler func(ctx context.Context, event OffenseEvent) error

// Options configure the moderator.
type Options struct {
	RuleStorage    interfaces.RuleStorage
	WarningStorage interfaces.WarningStorage
	Enforcer       interfaces.Enforcer
	Processed      interfaces.ProcessedHandler
	Logger         interfaces.Logger

	Policy escalation.Policy
	// DisableWarnings turns escalation off; messages are still filtered.
	DisableWarnings bool
	// Immune reports whether a group skips escalation. When nil,
	// ImmunityGroups is used.
	Immune         func(group string) bool
	ImmunityGroups []string

	SweepInterval  time.Duration
	PersistTimeout time.Duration
	Now            func() time.Time
}

// Core filters chat messages and escalates repeated offenders.
type Core struct {
	rules    interfaces.RuleStorage
	engine   *engine.Engine
	warnings *warnings.Store
	reaper   *warnings.Reaper
	enforcer interfaces.Enforcer
	allCb    interfaces.ProcessedHandler
	logger   interfaces.Logger

	policy          escalation.Policy
	warningsEnabled bool
	immune          func(string) bool

	// rulesMu keeps rule storage and the engine in the same order of
	// mutations.
	rulesMu sync.Mutex

	eventsMu sync.RWMutex
	events   map[EventName][]EventHandler

	actions [4]atomic.Int64
}

// New creates a moderator.
func New(opt Options) *Core {
	c := &Core{
		rules:           opt.RuleStorage,
		engine:          engine.New(),
		enforcer:        opt.Enforcer,
		allCb:           opt.Processed,
		logger:          opt.Logger,
		policy:          opt.Policy,
		warningsEnabled: !opt.DisableWarnings,
		events:          make(map[EventName][]EventHandler, 4),
	}
	c.policy.Messages = withDefaultMessages(opt.Policy.Messages)

	c.immune = opt.Immune
	if c.immune == nil {
		groups := make(map[string]struct{}, len(opt.ImmunityGroups))
		for _, g := range opt.ImmunityGroups {
			groups[g] = struct{}{}
		}
		c.immune = func(group string) bool {
			_, ok := groups[group]
			return ok
		}
	}

	c.warnings = warnings.New(warnings.Options{
		Storage:        opt.WarningStorage,
		Logger:         opt.Logger,
		Now:            opt.Now,
		PersistTimeout: opt.PersistTimeout,
	})
	// With escalation off nothing accrues, so there is nothing to sweep.
	window := opt.Policy.ResetWindow
	if opt.DisableWarnings {
		window = 0
	}
	c.reaper = warnings.NewReaper(c.warnings, warnings.ReaperOptions{
		Window:   window,
		Interval: opt.SweepInterval,
		Logger:   opt.Logger,
	})
	return c
}

func withDefaultMessages(m escalation.Messages) escalation.Messages {
	def := escalation.DefaultMessages()
	if m.Warning == "" {
		m.Warning = def.Warning
	}
	if m.WarningAfterKick == "" {
		m.WarningAfterKick = def.WarningAfterKick
	}
	if m.Kick == "" {
		m.Kick = def.Kick
	}
	if m.Ban == "" {
		m.Ban = def.Ban
	}
	return m
}

// On registers event handlers.
func (c *Core) On(event EventName, handler EventHandler) error {
	if handler == nil {
		return errors.New("core: handler is nil")
	}
	c.eventsMu.Lock()
	c.events[event] = append(c.events[event], handler)
	c.eventsMu.Unlock()
	return nil
}

// OnWarn registers a handler for warnings.
func (c *Core) OnWarn(handler EventHandler) error { return c.On(EventWarn, handler) }

// OnKick registers a handler for kicks.
func (c *Core) OnKick(handler EventHandler) error { return c.On(EventKick, handler) }

// OnBan registers a handler for bans.
func (c *Core) OnBan(handler EventHandler) error { return c.On(EventBan, handler) }

// OnReset registers a handler for admin warning resets.
func (c *Core) OnReset(handler EventHandler) error { return c.On(EventReset, handler) }

// Run loads the rules and sweeps idle warnings until ctx is done.
func (c *Core) Run(ctx context.Context) error {
	if err := c.Reload(ctx); err != nil {
		c.logError("initial rule load failed", map[string]any{"error": err.Error()})
	}
	return c.reaper.Run(ctx)
}

// Reload replaces the rule table with the storage contents.
func (c *Core) Reload(ctx context.Context) error {
	if c.rules == nil {
		return errors.New("core: rule storage is nil")
	}
	c.rulesMu.Lock()
	defer c.rulesMu.Unlock()
	rules, err := c.rules.GetRules(ctx)
	if err != nil {
		return fmt.Errorf("core: load rules: %w", err)
	}
	c.engine.ReplaceAll(rules)
	c.logInfo("filter rules loaded", map[string]any{"count": c.engine.Count()})
	return nil
}

// Process filters one message and, when it matched, escalates its author.
func (c *Core) Process(ctx context.Context, message models.Message) models.Result {
	filtered, matched := c.engine.Apply(message.Text)
	res := models.Result{Text: filtered, Matched: matched}
	if !matched {
		return res
	}

	if c.warningsEnabled && message.PlayerID != "" && !c.immune(message.Group) {
		res.Action = c.onOffense(ctx, message, filtered)
	}
	c.actions[res.Action.Kind].Add(1)

	if c.allCb != nil {
		if err := c.allCb.OnProcessed(ctx, message, res); err != nil {
			c.logWarn("processed callback failed", map[string]any{"error": err.Error()})
		}
	}
	return res
}

func (c *Core) onOffense(ctx context.Context, message models.Message, filtered string) models.Action {
	var d escalation.Decision
	c.warnings.Update(ctx, message.PlayerID, message.PlayerName, func(w *models.PlayerWarning, now time.Time) {
		d = c.policy.Decide(*w, now)
		if d.Stale {
			w.Reset()
		}
		w.AddWarning(now)
		if d.Reset {
			w.Reset()
		}
	})

	fields := map[string]any{
		"player_id":   message.PlayerID,
		"player_name": message.PlayerName,
		"warnings":    d.Count,
		"tier":        d.Tier.String(),
	}
	if d.Stale {
		fields["stale_reset"] = true
	}

	var event EventName
	switch d.Action.Kind {
	case models.ActionBan:
		event = EventBan
		fields["duration"] = d.Action.Duration.String()
		c.logInfo("player banned", fields)
		c.enforce(ctx, models.Sanction{
			PlayerID:   message.PlayerID,
			PlayerName: message.PlayerName,
			Ban:        true,
			Duration:   d.Action.Duration,
			Reason:     d.Action.Message,
		})
	case models.ActionKick:
		event = EventKick
		c.logInfo("player kicked", fields)
		c.enforce(ctx, models.Sanction{
			PlayerID:   message.PlayerID,
			PlayerName: message.PlayerName,
			Reason:     d.Action.Message,
		})
	case models.ActionWarn:
		event = EventWarn
		c.logInfo("player warned", fields)
	default:
		return d.Action
	}

	c.dispatch(ctx, event, OffenseEvent{
		PlayerID:   message.PlayerID,
		PlayerName: message.PlayerName,
		Group:      message.Group,
		Original:   message.Text,
		Filtered:   filtered,
		Count:      d.Count,
		Tier:       d.Tier,
		Action:     d.Action,
	})
	return d.Action
}

func (c *Core) enforce(ctx context.Context, s models.Sanction) {
	if c.enforcer == nil {
		c.logWarn("no enforcer configured", map[string]any{"player_id": s.PlayerID})
		return
	}
	if err := c.enforcer.Enforce(ctx, s); err != nil {
		c.logWarn("sanction failed", map[string]any{"error": err.Error(), "player_id": s.PlayerID})
	}
}

func (c *Core) dispatch(ctx context.Context, event EventName, e OffenseEvent) {
	c.eventsMu.RLock()
	handlers := append([]EventHandler(nil), c.events[event]...)
	c.eventsMu.RUnlock()
	for _, h := range handlers {
		if err := h(ctx, e); err != nil {
			c.logWarn("event handler failed", map[string]any{"error": err.Error(), "event": event})
		}
	}
}

// AddRule persists and installs a rule. The in-memory table is updated
// even when persisting fails; the error is returned.
func (c *Core) AddRule(ctx context.Context, word, replacement string) error {
	w := engine.NormalizeWord(word)
	if w == "" {
		return ErrEmptyWord
	}
	c.rulesMu.Lock()
	defer c.rulesMu.Unlock()

	var err error
	if c.rules != nil {
		if err = c.rules.UpsertRule(ctx, models.Rule{Word: w, Replacement: replacement}); err != nil {
			c.logError("rule persist failed", map[string]any{"error": err.Error(), "word": w})
			err = fmt.Errorf("core: persist rule %q: %w", w, err)
		}
	}
	c.engine.AddRule(w, replacement)
	c.logInfo("filter rule added", map[string]any{"word": w, "replacement": replacement})
	return err
}

// RemoveRule deletes a rule. It reports whether the rule existed.
func (c *Core) RemoveRule(ctx context.Context, word string) (bool, error) {
	w := engine.NormalizeWord(word)
	if w == "" {
		return false, ErrEmptyWord
	}
	c.rulesMu.Lock()
	defer c.rulesMu.Unlock()

	var err error
	if c.rules != nil {
		if err = c.rules.DeleteRule(ctx, w); err != nil {
			c.logError("rule delete failed", map[string]any{"error": err.Error(), "word": w})
			err = fmt.Errorf("core: delete rule %q: %w", w, err)
		}
	}
	removed := c.engine.RemoveRule(w)
	if removed {
		c.logInfo("filter rule removed", map[string]any{"word": w})
	}
	return removed, err
}

// Rules returns the rule table in application order.
func (c *Core) Rules() []models.Rule {
	return c.engine.Rules()
}

// Filter applies the rule table without escalation.
func (c *Core) Filter(text string) (string, bool) {
	return c.engine.Apply(text)
}

// PlayerWarning returns the record of one player.
func (c *Core) PlayerWarning(ctx context.Context, playerID string) models.PlayerWarning {
	return c.warnings.Get(ctx, playerID)
}

// ResetWarnings clears the record of a known player.
func (c *Core) ResetWarnings(ctx context.Context, playerID string) bool {
	if !c.warnings.Reset(ctx, playerID) {
		return false
	}
	c.logInfo("player warnings reset", map[string]any{"player_id": playerID})
	c.dispatch(ctx, EventReset, OffenseEvent{PlayerID: playerID, Tier: escalation.TierClean})
	return true
}

// AllWarnings returns every stored record keyed by player id.
func (c *Core) AllWarnings(ctx context.Context) map[string]models.PlayerWarning {
	return c.warnings.ListAll(ctx)
}

// ActiveWarnings returns the records with at least one warning, highest
// count first.
func (c *Core) ActiveWarnings(ctx context.Context) []models.PlayerWarning {
	all := c.warnings.ListAll(ctx)
	out := make([]models.PlayerWarning, 0, len(all))
	for _, w := range all {
		if !w.Clean() {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].PlayerID < out[j].PlayerID
	})
	return out
}

// Sweep resets idle warning records now.
func (c *Core) Sweep(ctx context.Context) int {
	return c.reaper.Sweep(ctx)
}

// Policy returns the escalation thresholds in use.
func (c *Core) Policy() escalation.Policy {
	return c.policy
}

// Metrics returns counts of matched messages by resulting action.
func (c *Core) Metrics() map[models.ActionKind]int64 {
	out := make(map[models.ActionKind]int64, len(c.actions))
	for i := range c.actions {
		out[models.ActionKind(i)] = c.actions[i].Load()
	}
	return out
}

// RuleCount returns number of in-memory rules.
func (c *Core) RuleCount() int {
	return c.engine.Count()
}

// EngineStats returns filter engine metrics.
func (c *Core) EngineStats() engine.Stats {
	return c.engine.Stats()
}

func (c *Core) logInfo(msg string, fields map[string]any) {
	if c.logger != nil {
		c.logger.Info(msg, fields)
	}
}

func (c *Core) logWarn(msg string, fields map[string]any) {
	if c.logger != nil {
		c.logger.Warn(msg, fields)
	}
}

func (c *Core) logError(msg string, fields map[string]any) {
	if c.logger != nil {
		c.logger.Error(msg, fields)
	}
}
