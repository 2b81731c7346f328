package plugin

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"markestedt/maphider/host"
	"markestedt/maphider/toggler"
)

// ErrNotLoaded is returned by operations that need a prior Load
var ErrNotLoaded = errors.New("plugin not loaded")

// Plugin wires the toggler to the hotkey registry and settings store and
// exposes the load/update/save/unload lifecycle.
type Plugin struct {
	scenes        host.SceneGraph
	hotkeys       host.HotkeyRegistry
	defaultCombos []string

	mu       sync.Mutex
	toggler  *toggler.Toggler
	hotkeyID host.HotkeyID
	onFlip   []func(toggler.Flip)
}

// New creates a plugin. defaultCombos are bound when no hotkey has been saved yet.
func New(scenes host.SceneGraph, hotkeys host.HotkeyRegistry, defaultCombos []string) *Plugin {
	return &Plugin{
		scenes:        scenes,
		hotkeys:       hotkeys,
		defaultCombos: defaultCombos,
		hotkeyID:      host.InvalidHotkeyID,
	}
}

// OnFlip registers an observer attached to the toggler on every Load
func (p *Plugin) OnFlip(fn func(toggler.Flip)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onFlip = append(p.onFlip, fn)
	if p.toggler != nil {
		p.toggler.OnFlip(fn)
	}
}

// Load registers the hotkey, restores its saved binding and reads the configuration
func (p *Plugin) Load(settings host.SettingsStore) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.toggler != nil {
		return fmt.Errorf("plugin already loaded")
	}

	tg := toggler.New(p.scenes)
	for _, fn := range p.onFlip {
		tg.OnFlip(fn)
	}

	id, err := p.hotkeys.Register(toggler.KeyHotkey, toggler.HotkeyDescription, tg.OnHotkeyEvent)
	if err != nil {
		tg.Close()
		return fmt.Errorf("failed to register hotkey: %w", err)
	}

	blob := settings.GetArray(toggler.KeyHotkey)
	if blob == nil {
		blob = p.defaultCombos
	}
	if err := p.hotkeys.Load(id, blob); err != nil {
		p.hotkeys.Unregister(id)
		tg.Close()
		return fmt.Errorf("failed to load hotkey: %w", err)
	}

	p.toggler = tg
	p.hotkeyID = id

	if err := p.saveLocked(settings); err != nil {
		slog.Warn("Failed to save hotkey", "error", err)
	}

	cfg := toggler.ConfigFromSettings(settings)
	tg.UpdateConfiguration(cfg)
	slog.Info("Plugin loaded", "image", cfg.ImageName, "scene", cfg.GuardSceneName, "delay", cfg.RevealDelay)
	return nil
}

// Update re-reads the configuration after the settings changed
func (p *Plugin) Update(settings host.SettingsStore) {
	p.mu.Lock()
	tg := p.toggler
	p.mu.Unlock()

	if tg == nil {
		return
	}

	cfg := toggler.ConfigFromSettings(settings)
	tg.UpdateConfiguration(cfg)
	slog.Info("Settings updated", "image", cfg.ImageName, "scene", cfg.GuardSceneName, "delay", cfg.RevealDelay)
}

// Save persists the hotkey binding
func (p *Plugin) Save(settings host.SettingsStore) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.saveLocked(settings)
}

func (p *Plugin) saveLocked(settings host.SettingsStore) error {
	if p.toggler == nil {
		return ErrNotLoaded
	}
	return settings.SetArray(toggler.KeyHotkey, p.hotkeys.Save(p.hotkeyID))
}

// Rebind replaces the hotkey's combos and persists them
func (p *Plugin) Rebind(settings host.SettingsStore, combos []string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.toggler == nil {
		return ErrNotLoaded
	}
	if err := p.hotkeys.Load(p.hotkeyID, combos); err != nil {
		return err
	}
	return p.saveLocked(settings)
}

// Hotkey returns the currently bound combos
func (p *Plugin) Hotkey() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.toggler == nil {
		return nil
	}
	return p.hotkeys.Save(p.hotkeyID)
}

// Configuration returns the toggler's current configuration
func (p *Plugin) Configuration() (toggler.Config, bool) {
	p.mu.Lock()
	tg := p.toggler
	p.mu.Unlock()

	if tg == nil {
		return toggler.Config{}, false
	}
	return tg.Configuration(), true
}

// Unload releases the hotkey and cancels any pending reveal. It is safe to call repeatedly.
func (p *Plugin) Unload() {
	p.mu.Lock()
	tg := p.toggler
	id := p.hotkeyID
	p.toggler = nil
	p.hotkeyID = host.InvalidHotkeyID
	p.mu.Unlock()

	if tg == nil {
		return
	}

	p.hotkeys.Unregister(id)
	tg.Close()
	slog.Info("Plugin unloaded")
}
