package hotkeys

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"markestedt/maphider/platform"
)

type fakeListener struct {
	combo  platform.KeyCombo
	events chan platform.Event
	ctx    context.Context
}

type fakePlatform struct {
	mu        sync.Mutex
	listeners []*fakeListener
	fail      bool
}

func (p *fakePlatform) newHotkey() platform.Hotkey {
	return p
}

func (p *fakePlatform) Listen(ctx context.Context, combo platform.KeyCombo) (<-chan platform.Event, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return nil, errors.New("hook unavailable")
	}
	l := &fakeListener{combo: combo, events: make(chan platform.Event, 10), ctx: ctx}
	p.listeners = append(p.listeners, l)
	return l.events, nil
}

func (p *fakePlatform) listener(i int) *fakeListener {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.listeners[i]
}

type recorder struct {
	mu    sync.Mutex
	edges []bool
}

func (r *recorder) callback(pressed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.edges = append(r.edges, pressed)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.edges)
}

func waitForCount(t *testing.T, r *recorder, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for r.count() < n && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if got := r.count(); got != n {
		t.Fatalf("got %d edges, want %d", got, n)
	}
}

func TestRegisterLoadDispatch(t *testing.T) {
	p := &fakePlatform{}
	reg := NewRegistry(context.Background(), p.newHotkey)
	defer reg.Close()

	rec := &recorder{}
	id, err := reg.Register("RustMap Push to Hide", "RustMap Push to Hide", rec.callback)
	if err != nil {
		t.Fatal(err)
	}
	if err := reg.Load(id, []string{"Shift+G"}); err != nil {
		t.Fatal(err)
	}

	l := p.listener(0)
	if !l.combo.Shift || l.combo.Key != 0x47 {
		t.Errorf("unexpected platform combo: %+v", l.combo)
	}

	l.events <- platform.Event{Type: platform.Pressed}
	l.events <- platform.Event{Type: platform.Released}
	waitForCount(t, rec, 2)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if !rec.edges[0] || rec.edges[1] {
		t.Errorf("edges = %v, want [true false]", rec.edges)
	}
}

func TestSaveReturnsNormalizedCombos(t *testing.T) {
	p := &fakePlatform{}
	reg := NewRegistry(context.Background(), p.newHotkey)
	defer reg.Close()

	id, _ := reg.Register("hide", "", func(bool) {})
	if err := reg.Load(id, []string{"Shift+G", "shift+g", "not+a+key", "hyper", "m"}); err != nil {
		t.Fatal(err)
	}

	got := reg.Save(id)
	if len(got) != 2 || got[0] != "shift+g" || got[1] != "m" {
		t.Errorf("Save = %v, want [shift+g m]", got)
	}
}

func TestLoadReplacesListeners(t *testing.T) {
	p := &fakePlatform{}
	reg := NewRegistry(context.Background(), p.newHotkey)
	defer reg.Close()

	rec := &recorder{}
	id, _ := reg.Register("hide", "", rec.callback)
	reg.Load(id, []string{"g"})
	first := p.listener(0)

	reg.Load(id, []string{"m"})
	if first.ctx.Err() == nil {
		t.Error("previous listener context not cancelled")
	}
	if got := reg.Save(id); len(got) != 1 || got[0] != "m" {
		t.Errorf("Save = %v", got)
	}

	p.listener(1).events <- platform.Event{Type: platform.Pressed}
	waitForCount(t, rec, 1)
}

func TestListenFailureKeepsCombo(t *testing.T) {
	p := &fakePlatform{fail: true}
	reg := NewRegistry(context.Background(), p.newHotkey)
	defer reg.Close()

	id, _ := reg.Register("hide", "", func(bool) {})
	if err := reg.Load(id, []string{"g", "hyper+g", "ctrl+m"}); err != nil {
		t.Fatal(err)
	}
	got := reg.Save(id)
	if len(got) != 2 || got[0] != "g" || got[1] != "ctrl+m" {
		t.Errorf("Save = %v, want [g ctrl+m]", got)
	}
}

func TestRegisterErrors(t *testing.T) {
	reg := NewRegistry(context.Background(), (&fakePlatform{}).newHotkey)
	defer reg.Close()

	if _, err := reg.Register("hide", "", nil); err == nil {
		t.Error("nil callback accepted")
	}
	if _, err := reg.Register("hide", "", func(bool) {}); err != nil {
		t.Fatal(err)
	}
	if _, err := reg.Register("hide", "", func(bool) {}); err == nil {
		t.Error("duplicate name accepted")
	}
	if err := reg.Load(42, []string{"g"}); err == nil {
		t.Error("Load on unknown id succeeded")
	}
	if got := reg.Save(42); got != nil {
		t.Errorf("Save on unknown id = %v", got)
	}
}

func TestUnregisterStopsDispatch(t *testing.T) {
	p := &fakePlatform{}
	reg := NewRegistry(context.Background(), p.newHotkey)

	rec := &recorder{}
	id, _ := reg.Register("hide", "", rec.callback)
	reg.Load(id, []string{"g"})
	l := p.listener(0)

	reg.Unregister(id)
	if l.ctx.Err() == nil {
		t.Error("listener context not cancelled")
	}
	l.events <- platform.Event{Type: platform.Pressed}
	time.Sleep(20 * time.Millisecond)
	if rec.count() != 0 {
		t.Error("callback ran after Unregister")
	}
	if got := reg.Save(id); got != nil {
		t.Errorf("Save after Unregister = %v", got)
	}
}
