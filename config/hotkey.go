package config

import (
	"fmt"
	"strings"
)

// KeyCombo represents a parsed keyboard combination
type KeyCombo struct {
	Ctrl  bool
	Shift bool
	Alt   bool
	Win   bool
	Key   string
}

// String formats the combo in canonical modifier order, e.g. "ctrl+shift+g"
func (kc KeyCombo) String() string {
	var parts []string
	if kc.Ctrl {
		parts = append(parts, "ctrl")
	}
	if kc.Shift {
		parts = append(parts, "shift")
	}
	if kc.Alt {
		parts = append(parts, "alt")
	}
	if kc.Win {
		parts = append(parts, "win")
	}
	if kc.Key != "" {
		parts = append(parts, kc.Key)
	}
	return strings.Join(parts, "+")
}

// ParseHotkey parses a hotkey combo string like "shift+g", "m" or "ctrl+win"
func ParseHotkey(combo string) (KeyCombo, error) {
	var kc KeyCombo
	combo = strings.TrimSpace(combo)
	if combo == "" {
		return kc, fmt.Errorf("empty hotkey combo")
	}

	parts := strings.Split(strings.ToLower(combo), "+")
	for i, part := range parts {
		part = strings.TrimSpace(part)

		isModifier := false
		switch part {
		case "ctrl", "control":
			kc.Ctrl = true
			isModifier = true
		case "shift":
			kc.Shift = true
			isModifier = true
		case "alt":
			kc.Alt = true
			isModifier = true
		case "win", "windows":
			kc.Win = true
			isModifier = true
		}

		// If it's not a modifier and it's the last part, it's the key
		if !isModifier {
			if part == "" {
				return kc, fmt.Errorf("empty key in combo: %s", combo)
			}
			if i == len(parts)-1 {
				kc.Key = part
			} else {
				return kc, fmt.Errorf("unknown modifier: %s", part)
			}
		}
	}

	return kc, nil
}
