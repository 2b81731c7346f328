package toggler

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"markestedt/maphider/host"
)

// Config is the toggler's configuration record
type Config struct {
	ImageName      string  `json:"imageName"`
	GuardSceneName string  `json:"guardSceneName"`
	RevealDelay    float64 `json:"revealDelay"` // seconds
}

// Delay returns the reveal delay as a duration. Negative values yield zero.
func (c Config) Delay() time.Duration {
	if c.RevealDelay <= 0 {
		return 0
	}
	return time.Duration(math.Round(c.RevealDelay * float64(time.Second)))
}

// Edge is the hotkey edge that caused a flip
type Edge int

const (
	Press Edge = iota
	Release
)

func (e Edge) String() string {
	if e == Press {
		return "press"
	}
	return "release"
}

// Flip describes a single visibility change made by the toggler
type Flip struct {
	Edge    Edge
	Scene   string
	Item    string
	Visible bool // visibility after the flip
	Time    time.Time
}

// stopper is the part of *time.Timer the toggler needs
type stopper interface {
	Stop() bool
}

type pendingReveal struct {
	timer stopper
	done  chan struct{} // closed once the reveal has run or been dropped
}

// Toggler flips the visibility of the configured image in the current scene
// on hotkey edges. The release edge is deferred by the reveal delay.
type Toggler struct {
	scenes      host.SceneGraph
	callTimeout time.Duration
	afterFunc   func(d time.Duration, f func()) stopper

	ctx    context.Context
	cancel context.CancelFunc

	// flipMu serializes read-invert-write cycles across the dispatch and timer goroutines
	flipMu sync.Mutex

	mu      sync.Mutex
	cfg     Config
	pending []*pendingReveal
	closed  bool
	onFlip  []func(Flip)
}

// New creates a toggler operating on the given scene graph
func New(scenes host.SceneGraph) *Toggler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Toggler{
		scenes:      scenes,
		callTimeout: 2 * time.Second,
		afterFunc: func(d time.Duration, f func()) stopper {
			return time.AfterFunc(d, f)
		},
		ctx:    ctx,
		cancel: cancel,
	}
}

// UpdateConfiguration replaces the configuration record. Values are not validated.
func (t *Toggler) UpdateConfiguration(cfg Config) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cfg = cfg
}

// Configuration returns a copy of the current configuration record
func (t *Toggler) Configuration() Config {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cfg
}

// OnFlip registers a function called after every visibility change
func (t *Toggler) OnFlip(fn func(Flip)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onFlip = append(t.onFlip, fn)
}

// Pending reports the number of scheduled reveals
func (t *Toggler) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}

// OnHotkeyEvent handles a hotkey edge. It never blocks for the reveal delay.
func (t *Toggler) OnHotkeyEvent(pressed bool) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	cfg := t.cfg
	t.mu.Unlock()

	ctx, cancel := context.WithTimeout(t.ctx, t.callTimeout)
	defer cancel()

	scene, err := t.scenes.CurrentScene(ctx)
	if err != nil {
		slog.Warn("Failed to get current scene", "error", err)
		return
	}
	if cfg.GuardSceneName != "" && cfg.GuardSceneName != scene {
		slog.Debug("Hotkey ignored outside guarded scene", "scene", scene, "guard", cfg.GuardSceneName)
		return
	}

	if pressed {
		// A press during a pending reveal cancels it; the two flips would cancel out.
		cancelled, running := t.cancelLatestReveal()
		if cancelled {
			slog.Debug("Pending reveal cancelled by press")
			return
		}
		if running != nil {
			// The timer already fired; the reveal lands before this press
			<-running
		}
		t.flip(ctx, scene, cfg.ImageName, Press)
		return
	}

	delay := cfg.Delay()
	if delay == 0 {
		t.flip(ctx, scene, cfg.ImageName, Release)
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	p := &pendingReveal{done: make(chan struct{})}
	t.pending = append(t.pending, p)
	p.timer = t.afterFunc(delay, func() { t.reveal(p) })
}

// Close cancels pending reveals and in-flight host calls. Later events are ignored.
func (t *Toggler) Close() {
	t.mu.Lock()
	t.closed = true
	pending := t.pending
	t.pending = nil
	t.mu.Unlock()

	for _, p := range pending {
		if p.timer.Stop() {
			close(p.done)
		}
	}
	t.cancel()
}

// cancelLatestReveal stops the newest pending reveal. When its timer has
// already fired it returns the reveal's done channel instead.
func (t *Toggler) cancelLatestReveal() (bool, <-chan struct{}) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.pending) == 0 {
		return false, nil
	}
	p := t.pending[len(t.pending)-1]
	t.pending = t.pending[:len(t.pending)-1]
	if p.timer.Stop() {
		close(p.done)
		return true, nil
	}
	return false, p.done
}

func (t *Toggler) reveal(p *pendingReveal) {
	defer close(p.done)

	t.mu.Lock()
	for i, q := range t.pending {
		if q == p {
			t.pending = append(t.pending[:i], t.pending[i+1:]...)
			break
		}
	}
	closed := t.closed
	cfg := t.cfg
	t.mu.Unlock()

	if closed {
		return
	}

	ctx, cancel := context.WithTimeout(t.ctx, t.callTimeout)
	defer cancel()

	scene, err := t.scenes.CurrentScene(ctx)
	if err != nil {
		slog.Warn("Failed to get current scene", "error", err)
		return
	}
	t.flip(ctx, scene, cfg.ImageName, Release)
}

// flip inverts the item's visibility as read from the scene graph
func (t *Toggler) flip(ctx context.Context, scene, name string, edge Edge) {
	if name == "" {
		return
	}

	t.flipMu.Lock()
	defer t.flipMu.Unlock()

	item, ok, err := t.scenes.FindItem(ctx, scene, name)
	if err != nil {
		slog.Warn("Failed to find scene item", "scene", scene, "item", name, "error", err)
		return
	}
	if !ok {
		slog.Debug("Image not found in scene", "scene", scene, "item", name)
		return
	}

	visible, err := t.scenes.Visible(ctx, item)
	if err != nil {
		slog.Warn("Failed to read visibility", "scene", scene, "item", name, "error", err)
		return
	}
	if err := t.scenes.SetVisible(ctx, item, !visible); err != nil {
		slog.Warn("Failed to set visibility", "scene", scene, "item", name, "error", err)
		return
	}

	f := Flip{Edge: edge, Scene: scene, Item: name, Visible: !visible, Time: time.Now()}
	t.mu.Lock()
	observers := append([]func(Flip){}, t.onFlip...)
	t.mu.Unlock()
	for _, fn := range observers {
		fn(f)
	}
}
