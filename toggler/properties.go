package toggler

import (
	"markestedt/maphider/host"
)

// Settings keys
const (
	KeyImageName   = "MapHiderImage"
	KeyGuardScene  = "OBSsceneToCover"
	KeyRevealDelay = "rust_map_delay"
	KeyHotkey      = "RustMap Push to Hide"
)

// HotkeyDescription is shown next to the binding in the settings UI
const HotkeyDescription = "RustMap Push to Hide"

// Description is the text shown at the top of the settings page
const Description = "Rust Map Hider using Hotkey within Game.\n\n" +
	"Settings:\n" +
	"• Map Hider Image: The name of your Map Hider Image source\n" +
	"• OBS Scene To Cover: The scene that you want the hotkey to affect\n" +
	"• Reveal Delay: Time before the map cover disappears (seconds)\n\n" +
	"Setup:\n" +
	"1. Configure the settings above\n" +
	"2. Set 'RustMap Push to Hide' to your map key (e.g., Shift+G)\n\n" +
	"Follow & Support Appreciated\n" +
	"Twitch/Patreon: Mudlife318"

// PropertyKind is the widget used to edit a property
type PropertyKind string

const (
	Text        PropertyKind = "text"
	FloatSlider PropertyKind = "float_slider"
)

// Property declares one editable setting
type Property struct {
	Key   string       `json:"key"`
	Label string       `json:"label"`
	Kind  PropertyKind `json:"kind"`
	Min   float64      `json:"min,omitempty"`
	Max   float64      `json:"max,omitempty"`
	Step  float64      `json:"step,omitempty"`
}

// RevealDelayMin and RevealDelayMax bound the reveal delay slider
const (
	RevealDelayMin  = 0.0
	RevealDelayMax  = 3.0
	RevealDelayStep = 0.05
)

// Properties returns the settings UI declaration
func Properties() []Property {
	return []Property{
		{Key: KeyImageName, Label: "Map Hider Image:", Kind: Text},
		{Key: KeyGuardScene, Label: "OBS Scene To Cover:", Kind: Text},
		{
			Key:   KeyRevealDelay,
			Label: "Reveal Delay (seconds):",
			Kind:  FloatSlider,
			Min:   RevealDelayMin,
			Max:   RevealDelayMax,
			Step:  RevealDelayStep,
		},
	}
}

// ConfigFromSettings reads the configuration record from the settings store
func ConfigFromSettings(s host.SettingsStore) Config {
	return Config{
		ImageName:      s.GetString(KeyImageName),
		GuardSceneName: s.GetString(KeyGuardScene),
		RevealDelay:    s.GetDouble(KeyRevealDelay),
	}
}
