package models

import (
	"fmt"
	"time"
)

// ActionKind is the escalation outcome of one message.
type ActionKind int

const (
	ActionNone ActionKind = iota
	ActionWarn
	ActionKick
	ActionBan
)

var actionNames = [...]string{"none", "warn", "kick", "ban"}

// Valid returns true for known kinds.
func (k ActionKind) Valid() bool {
	return k >= ActionNone && k <= ActionBan
}

func (k ActionKind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("ActionKind(%d)", int(k))
	}
	return actionNames[k]
}

// MarshalText emits the lowercase kind name.
func (k ActionKind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("models: invalid action kind %d", int(k))
	}
	return []byte(actionNames[k]), nil
}

// UnmarshalText accepts the names produced by MarshalText.
func (k *ActionKind) UnmarshalText(data []byte) error {
	for i, name := range actionNames {
		if name == string(data) {
			*k = ActionKind(i)
			return nil
		}
	}
	return fmt.Errorf("models: unsupported action kind %q", string(data))
}

// Action is what the moderator decided for a player.
type Action struct {
	Kind    ActionKind `json:"kind"`
	Message string     `json:"message,omitempty"`
	// Duration is set for bans only.
	Duration time.Duration `json:"duration,omitempty"`
	// Current and Max describe the warning counter shown to the player.
	// After the kick tier they are relative to it.
	Current  int  `json:"current,omitempty"`
	Max      int  `json:"max,omitempty"`
	PostKick bool `json:"post_kick,omitempty"`
}

// Result is returned to the chat hook for every message.
type Result struct {
	Text    string `json:"text"`
	Matched bool   `json:"matched"`
	Action  Action `json:"action"`
}

// Sanction is what an enforcer is asked to carry out: a kick, or a ban
// lasting Duration.
type Sanction struct {
	PlayerID   string
	PlayerName string
	Ban        bool
	Duration   time.Duration
	Reason     string
}
