package wordfilter

import "github.com/elum-utils/wordfilter/core"

// Re-export core API at module root for convenient imports.
type (
	Core         = core.Core
	Options      = core.Options
	EventName    = core.EventName
	OffenseEvent = core.OffenseEvent
	EventHandler = core.EventHandler
)

const (
	EventWarn  = core.EventWarn
	EventKick  = core.EventKick
	EventBan   = core.EventBan
	EventReset = core.EventReset
)

// ErrEmptyWord is returned for blank rule words.
var ErrEmptyWord = core.ErrEmptyWord

// New creates a new chat moderator.
func New(opt Options) *Core {
	return core.New(opt)
}
