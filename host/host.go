package host

import (
	"context"
)

// Item identifies a scene item inside a scene
type Item struct {
	Scene string
	ID    int64
	Name  string
}

// SceneGraph provides access to the scene composition owned by the streaming application
type SceneGraph interface {
	CurrentScene(ctx context.Context) (string, error)
	FindItem(ctx context.Context, scene, name string) (Item, bool, error)
	Visible(ctx context.Context, item Item) (bool, error)
	SetVisible(ctx context.Context, item Item, visible bool) error
}

// SettingsStore is the persisted key/value settings store
type SettingsStore interface {
	GetString(key string) string
	GetDouble(key string) float64
	GetArray(key string) []string
	SetString(key, value string) error
	SetDouble(key string, value float64) error
	SetArray(key string, values []string) error
}

// HotkeyID is an opaque handle returned by HotkeyRegistry.Register
type HotkeyID int

// InvalidHotkeyID is never returned by a successful Register
const InvalidHotkeyID HotkeyID = -1

// HotkeyRegistry owns hotkey bindings. The saved blob is a list of key combos.
type HotkeyRegistry interface {
	Register(name, description string, callback func(pressed bool)) (HotkeyID, error)
	Load(id HotkeyID, blob []string) error
	Save(id HotkeyID) []string
	Unregister(id HotkeyID)
}
