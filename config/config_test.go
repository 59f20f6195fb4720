package config

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elum-utils/wordfilter/adapters/storage"
	"github.com/elum-utils/wordfilter/core"
	"github.com/elum-utils/wordfilter/models"
)

func TestLoadCreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tshock", "WordFilter.json")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))
	assert.Equal(t, float64(3), fields["WarningsBeforeKick"])
	assert.Equal(t, float64(5), fields["WarningsBeforeBan"])
	assert.Contains(t, fields, "WarningMessage")
	assert.Contains(t, fields, "WarningAfterKickMessage")
	assert.Contains(t, fields, "BanMessage")

	again, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}

func TestLoadKeepsDefaultsForMissingFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"WarningsBeforeKick":2,"KickMessage":"bye","ImmunityGroups":["mod"]}`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.WarningsBeforeKick)
	assert.Equal(t, 5, cfg.WarningsBeforeBan)
	assert.Equal(t, "bye", cfg.Kick)
	assert.Equal(t, Default().Warning, cfg.Warning)
	assert.Equal(t, []string{"mod"}, cfg.ImmunityGroups)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{`), 0o644))
	_, err := Load(bad)
	assert.Error(t, err)

	typed := filepath.Join(dir, "typed.json")
	require.NoError(t, os.WriteFile(typed, []byte(`{"WarningsBeforeKick":"three"}`), 0o644))
	_, err = Load(typed)
	assert.Error(t, err)
}

func TestLoadAcceptsDisabledTiers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"WarningsBeforeKick":-1,"WarningsBeforeBan":5,"BanDurationMinutes":-10,"ResetWarningsAfterMinutes":-1}`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, -1, cfg.WarningsBeforeKick)

	p := cfg.Policy()
	assert.Equal(t, -1, p.KickAt)
	assert.Equal(t, time.Duration(0), p.BanDuration)
	assert.Equal(t, time.Duration(0), p.ResetWindow)
	assert.Equal(t, []string{"BanDurationMinutes is -10, bans are permanent"}, cfg.Check())
}

type recordingEnforcer struct {
	mu    sync.Mutex
	calls []models.Sanction
}

func (r *recordingEnforcer) Enforce(_ context.Context, s models.Sanction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, s)
	return nil
}

func TestDisabledKickTierNeverKicks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"WarningsBeforeKick":-1}`), 0o644))
	cfg, err := Load(path)
	require.NoError(t, err)

	st := storage.NewMemoryAdapter()
	enf := &recordingEnforcer{}
	opt := cfg.Options()
	opt.RuleStorage = st
	opt.WarningStorage = st
	opt.Enforcer = enf
	c := core.New(opt)
	ctx := context.Background()
	require.NoError(t, c.AddRule(ctx, "darn", "****"))

	var kinds []models.ActionKind
	for i := 0; i < 6; i++ {
		res := c.Process(ctx, models.Message{PlayerID: "u1", PlayerName: "alice", Text: "darn"})
		kinds = append(kinds, res.Action.Kind)
	}
	assert.Equal(t, []models.ActionKind{
		models.ActionWarn, models.ActionWarn, models.ActionWarn, models.ActionWarn,
		models.ActionBan, models.ActionWarn,
	}, kinds)

	require.Len(t, enf.calls, 1)
	assert.True(t, enf.calls[0].Ban)
	assert.Zero(t, c.Metrics()[models.ActionKick])
}

func TestCheck(t *testing.T) {
	assert.Empty(t, Default().Check())

	cfg := Default()
	cfg.WarningsBeforeKick = 0
	cfg.WarningsBeforeBan = -1
	assert.Len(t, cfg.Check(), 1)

	cfg.EnableWarnings = false
	assert.Empty(t, cfg.Check())
}

func TestSaveKeepsOverlaySettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"ChatAboveHeadDuration":900,"MaxMessageLength":40,"ShowForDeadPlayers":false,"ExcludedGroups":["guest"]}`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, Save(path, cfg))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))
	assert.Equal(t, float64(900), fields["ChatAboveHeadDuration"])
	assert.Equal(t, float64(40), fields["MaxMessageLength"])
	assert.Equal(t, false, fields["ShowForDeadPlayers"])
	assert.Equal(t, []any{"guest"}, fields["ExcludedGroups"])
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvEnableWarnings:     "false",
		EnvWarningsBeforeKick: " 4 ",
		EnvBanDuration:        "15",
		EnvImmunityGroups:     "owner, ,mod",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
	cfg := Default()
	require.NoError(t, cfg.ApplyEnv(lookup))
	assert.False(t, cfg.EnableWarnings)
	assert.Equal(t, 4, cfg.WarningsBeforeKick)
	assert.Equal(t, 5, cfg.WarningsBeforeBan)
	assert.Equal(t, 15, cfg.BanDurationMinutes)
	assert.Equal(t, []string{"owner", "mod"}, cfg.ImmunityGroups)

	env = map[string]string{EnvWarningsBeforeBan: "lots"}
	assert.Error(t, cfg.ApplyEnv(lookup))
	env = map[string]string{EnvEnableWarnings: "maybe"}
	assert.Error(t, cfg.ApplyEnv(lookup))
	env = map[string]string{EnvResetAfter: "-5", EnvWarningsBeforeKick: "-1"}
	require.NoError(t, cfg.ApplyEnv(lookup))
	assert.Equal(t, -5, cfg.ResetWarningsAfterMinutes)
	assert.Equal(t, -1, cfg.WarningsBeforeKick)
	assert.Equal(t, time.Duration(0), cfg.Policy().ResetWindow)
}

func TestPolicyAndOptions(t *testing.T) {
	cfg := Default()
	p := cfg.Policy()
	assert.Equal(t, 3, p.KickAt)
	assert.Equal(t, 5, p.BanAt)
	assert.Equal(t, time.Hour, p.BanDuration)
	assert.Equal(t, 30*time.Minute, p.ResetWindow)
	assert.Equal(t, cfg.Messages, p.Messages)

	opt := cfg.Options()
	assert.False(t, opt.DisableWarnings)
	assert.Equal(t, []string{"superadmin", "admin"}, opt.ImmunityGroups)
	assert.Equal(t, SweepInterval, opt.SweepInterval)

	cfg.EnableWarnings = false
	assert.True(t, cfg.Options().DisableWarnings)
}
