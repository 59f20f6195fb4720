package logging

import (
	"context"
	"log/slog"
	"sort"
)

// Slog adapts *slog.Logger to interfaces.Logger. Fields are emitted in key
// order so output is stable.
type Slog struct {
	logger *slog.Logger
}

// NewSlog wraps logger, or slog.Default() when nil.
func NewSlog(logger *slog.Logger) *Slog {
	if logger == nil {
		logger = slog.Default()
	}
	return &Slog{logger: logger}
}

func (s *Slog) Debug(msg string, fields map[string]any) { s.log(slog.LevelDebug, msg, fields) }
func (s *Slog) Info(msg string, fields map[string]any)  { s.log(slog.LevelInfo, msg, fields) }
func (s *Slog) Warn(msg string, fields map[string]any)  { s.log(slog.LevelWarn, msg, fields) }
func (s *Slog) Error(msg string, fields map[string]any) { s.log(slog.LevelError, msg, fields) }

func (s *Slog) log(level slog.Level, msg string, fields map[string]any) {
	ctx := context.Background()
	if !s.logger.Enabled(ctx, level) {
		return
	}
	s.logger.LogAttrs(ctx, level, msg, attrs(fields)...)
}

func attrs(fields map[string]any) []slog.Attr {
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]slog.Attr, 0, len(keys))
	for _, k := range keys {
		out = append(out, slog.Any(k, fields[k]))
	}
	return out
}
