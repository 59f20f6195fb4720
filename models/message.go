package models

// Message is one inbound chat line supplied by the host's chat hook.
type Message struct {
	PlayerID   string `json:"player_id"`
	PlayerName string `json:"player_name"`
	Group      string `json:"group,omitempty"`
	Text       string `json:"text"`
}

// Rule maps a case-folded trigger word to its replacement text.
type Rule struct {
	Word        string `json:"word"`
	Replacement string `json:"replacement"`
}
