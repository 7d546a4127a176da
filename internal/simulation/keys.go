package simulation

import "strings"

// KeyMap binds keyboard keys to controller actions.
type KeyMap struct {
	Advance     string
	TogglePause string
}

// DefaultKeyMap mirrors the simulation page: Enter moves on, Space pauses.
var DefaultKeyMap = KeyMap{
	Advance:     "Enter",
	TogglePause: " ",
}

// normalizeKey folds the spellings browsers and terminals use for the same
// key into one form.
func normalizeKey(key string) string {
	switch strings.ToLower(key) {
	case "enter", "return", "\r", "\n":
		return "Enter"
	case " ", "space", "spacebar":
		return " "
	}
	return key
}
