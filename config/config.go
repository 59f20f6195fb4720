// Package config reads the word filter settings file.
//
// The file is JSON with the field names used by existing deployments.
// Missing fields keep their defaults, and a missing file is created with
// the defaults written out. Thresholds of zero or less disable their tier.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/elum-utils/wordfilter/core"
	"github.com/elum-utils/wordfilter/escalation"
)

// SweepInterval is how often idle warning records are checked.
const SweepInterval = 5 * time.Minute

// Config is the settings file.
type Config struct {
	// The chat overlay settings are carried through unchanged; the overlay
	// is drawn by the game host.
	ChatAboveHead         bool     `json:"ChatAboveHead"`
	ChatAboveHeadDuration int      `json:"ChatAboveHeadDuration"`
	MaxMessageLength      int      `json:"MaxMessageLength"`
	ShowForDeadPlayers    bool     `json:"ShowForDeadPlayers"`
	ExcludedGroups        []string `json:"ExcludedGroups"`

	EnableWarnings            bool `json:"EnableWarnings"`
	WarningsBeforeKick        int  `json:"WarningsBeforeKick"`
	WarningsBeforeBan         int  `json:"WarningsBeforeBan"`
	BanDurationMinutes        int  `json:"BanDurationMinutes"`
	ResetWarningsAfterMinutes int  `json:"ResetWarningsAfterMinutes"`

	escalation.Messages

	ImmunityGroups []string `json:"ImmunityGroups"`
}

// Default returns the stock settings.
func Default() Config {
	return Config{
		ChatAboveHead:             true,
		ChatAboveHeadDuration:     500,
		MaxMessageLength:          80,
		ShowForDeadPlayers:        true,
		ExcludedGroups:            []string{},
		EnableWarnings:            true,
		WarningsBeforeKick:        3,
		WarningsBeforeBan:         5,
		BanDurationMinutes:        60,
		ResetWarningsAfterMinutes: 30,
		Messages:                  escalation.DefaultMessages(),
		ImmunityGroups:            []string{"superadmin", "admin"},
	}
}

// Load reads path. When the file does not exist it is created with the
// defaults, which are returned.
func Load(path string) (Config, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, Save(path, cfg)
	}
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path as indented JSON.
func Save(path string, cfg Config) error {
	raw, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("config: create %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, append(raw, '\n'), 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

// Check lists settings worth logging at startup. None of them stop the
// filter from running.
func (c Config) Check() []string {
	var notes []string
	if c.BanDurationMinutes < 0 {
		notes = append(notes, fmt.Sprintf("BanDurationMinutes is %d, bans are permanent", c.BanDurationMinutes))
	}
	if c.EnableWarnings && c.WarningsBeforeKick <= 0 && c.WarningsBeforeBan <= 0 {
		notes = append(notes, "WarningsBeforeKick and WarningsBeforeBan are both disabled, offenses only warn")
	}
	return notes
}

// Env variables read by ApplyEnv.
const (
	EnvEnableWarnings     = "WORDFILTER_ENABLE_WARNINGS"
	EnvWarningsBeforeKick = "WORDFILTER_WARNINGS_BEFORE_KICK"
	EnvWarningsBeforeBan  = "WORDFILTER_WARNINGS_BEFORE_BAN"
	EnvBanDuration        = "WORDFILTER_BAN_DURATION_MINUTES"
	EnvResetAfter         = "WORDFILTER_RESET_WARNINGS_AFTER_MINUTES"
	EnvImmunityGroups     = "WORDFILTER_IMMUNITY_GROUPS"
)

// ApplyEnv overrides fields from the environment. lookup is usually
// os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvEnableWarnings); ok {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("config: %s: %w", EnvEnableWarnings, err)
		}
		c.EnableWarnings = b
	}
	ints := []struct {
		key string
		dst *int
	}{
		{EnvWarningsBeforeKick, &c.WarningsBeforeKick},
		{EnvWarningsBeforeBan, &c.WarningsBeforeBan},
		{EnvBanDuration, &c.BanDurationMinutes},
		{EnvResetAfter, &c.ResetWarningsAfterMinutes},
	}
	for _, f := range ints {
		v, ok := lookup(f.key)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("config: %s: %w", f.key, err)
		}
		*f.dst = n
	}
	if v, ok := lookup(EnvImmunityGroups); ok {
		c.ImmunityGroups = splitList(v)
	}
	return nil
}

func splitList(v string) []string {
	out := []string{}
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Policy converts the thresholds into an escalation policy. A negative
// ban duration becomes a permanent ban and a negative reset window never
// forgets.
func (c Config) Policy() escalation.Policy {
	return escalation.Policy{
		KickAt:      c.WarningsBeforeKick,
		BanAt:       c.WarningsBeforeBan,
		BanDuration: time.Duration(max(c.BanDurationMinutes, 0)) * time.Minute,
		ResetWindow: time.Duration(max(c.ResetWarningsAfterMinutes, 0)) * time.Minute,
		Messages:    c.Messages,
	}
}

// Options returns core options carrying these settings. Storage, enforcer
// and logger are left for the caller.
func (c Config) Options() core.Options {
	return core.Options{
		Policy:          c.Policy(),
		DisableWarnings: !c.EnableWarnings,
		ImmunityGroups:  append([]string(nil), c.ImmunityGroups...),
		SweepInterval:   SweepInterval,
	}
}
