package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elum-utils/wordfilter/interfaces"
)

var _ interfaces.Logger = (*Slog)(nil)

func newJSONLogger(buf *bytes.Buffer, level slog.Level) *Slog {
	return NewSlog(slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return a
		},
	})))
}

func TestSlogFields(t *testing.T) {
	var buf bytes.Buffer
	l := newJSONLogger(&buf, slog.LevelInfo)

	l.Warn("wordfilter kick", map[string]any{"player_id": "u1", "count": 3, "err": errors.New("x")})

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "WARN", line["level"])
	assert.Equal(t, "wordfilter kick", line["msg"])
	assert.Equal(t, "u1", line["player_id"])
	assert.Equal(t, float64(3), line["count"])
	assert.NotContains(t, line, "time")

	out := buf.String()
	assert.Less(t, strings.Index(out, `"count"`), strings.Index(out, `"player_id"`))
}

func TestSlogLevels(t *testing.T) {
	var buf bytes.Buffer
	l := newJSONLogger(&buf, slog.LevelInfo)

	l.Debug("hidden", nil)
	assert.Zero(t, buf.Len())

	l.Info("shown", nil)
	l.Error("failed", map[string]any{})
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], `"level":"ERROR"`)
}

func TestNewSlogDefault(t *testing.T) {
	assert.NotNil(t, NewSlog(nil).logger)
}
