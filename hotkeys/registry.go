package hotkeys

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"markestedt/maphider/config"
	"markestedt/maphider/host"
	"markestedt/maphider/platform"
)

type binding struct {
	name        string
	description string
	callback    func(pressed bool)

	// loadMu serializes Load and Unregister for this binding
	loadMu sync.Mutex
	combos []string
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// dispatchMu delivers one edge at a time, whichever combo produced it
	dispatchMu sync.Mutex
}

// Registry owns hotkey bindings and the platform listeners behind them
type Registry struct {
	ctx       context.Context
	newHotkey func() platform.Hotkey

	mu       sync.Mutex
	nextID   host.HotkeyID
	bindings map[host.HotkeyID]*binding
}

var _ host.HotkeyRegistry = (*Registry)(nil)

// NewRegistry creates a registry whose listeners stop when ctx is done
func NewRegistry(ctx context.Context, newHotkey func() platform.Hotkey) *Registry {
	return &Registry{
		ctx:       ctx,
		newHotkey: newHotkey,
		bindings:  make(map[host.HotkeyID]*binding),
	}
}

// Register adds a binding with no keys assigned
func (r *Registry) Register(name, description string, callback func(pressed bool)) (host.HotkeyID, error) {
	if callback == nil {
		return host.InvalidHotkeyID, fmt.Errorf("hotkey %q has no callback", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, b := range r.bindings {
		if b.name == name {
			return host.InvalidHotkeyID, fmt.Errorf("hotkey %q already registered", name)
		}
	}

	id := r.nextID
	r.nextID++
	r.bindings[id] = &binding{name: name, description: description, callback: callback}
	return id, nil
}

// Load replaces the keys of a binding with the combos in blob.
// Combos that fail to parse are logged and dropped. A combo whose listener
// fails to start stays in the binding so Save still returns it.
func (r *Registry) Load(id host.HotkeyID, blob []string) error {
	r.mu.Lock()
	b, ok := r.bindings[id]
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("unknown hotkey id %d", id)
	}

	b.loadMu.Lock()
	defer b.loadMu.Unlock()
	b.stop()

	ctx, cancel := context.WithCancel(r.ctx)
	var combos []string
	seen := make(map[string]bool)

	for _, raw := range blob {
		combo, err := config.ParseHotkey(raw)
		if err != nil {
			slog.Warn("Skipping invalid hotkey", "hotkey", b.name, "combo", raw, "error", err)
			continue
		}
		normalized := combo.String()
		if seen[normalized] {
			continue
		}

		vkCode, err := platform.VKCode(combo.Key)
		if err != nil {
			slog.Warn("Skipping invalid hotkey", "hotkey", b.name, "combo", raw, "error", err)
			continue
		}

		seen[normalized] = true
		combos = append(combos, normalized)

		events, err := r.newHotkey().Listen(ctx, platform.KeyCombo{
			Ctrl:  combo.Ctrl,
			Shift: combo.Shift,
			Alt:   combo.Alt,
			Win:   combo.Win,
			Key:   vkCode,
		})
		if err != nil {
			slog.Warn("Failed to start hotkey listener", "hotkey", b.name, "combo", normalized, "error", err)
			continue
		}

		b.wg.Add(1)
		go b.dispatch(ctx, events)
	}

	r.mu.Lock()
	b.combos = combos
	b.cancel = cancel
	r.mu.Unlock()

	slog.Info("Hotkey bound", "hotkey", b.name, "combos", combos)
	return nil
}

// Save returns the combos currently bound to id
func (r *Registry) Save(id host.HotkeyID) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.bindings[id]
	if !ok {
		return nil
	}
	return append([]string{}, b.combos...)
}

// Unregister stops the binding's listeners and forgets it
func (r *Registry) Unregister(id host.HotkeyID) {
	r.mu.Lock()
	b, ok := r.bindings[id]
	delete(r.bindings, id)
	r.mu.Unlock()

	if ok {
		b.loadMu.Lock()
		b.stop()
		b.loadMu.Unlock()
	}
}

// Close unregisters every binding
func (r *Registry) Close() {
	r.mu.Lock()
	ids := make([]host.HotkeyID, 0, len(r.bindings))
	for id := range r.bindings {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	for _, id := range ids {
		r.Unregister(id)
	}
}

func (b *binding) dispatch(ctx context.Context, events <-chan platform.Event) {
	defer b.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			b.dispatchMu.Lock()
			b.callback(evt.Type == platform.Pressed)
			b.dispatchMu.Unlock()
		}
	}
}

// stop cancels listeners and waits for in-flight callbacks. Callers hold loadMu.
func (b *binding) stop() {
	if b.cancel != nil {
		b.cancel()
		b.cancel = nil
	}
	b.wg.Wait()
}
