//go:build windows

package platform

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32              = windows.NewLazySystemDLL("user32.dll")
	setWindowsHookEx    = user32.NewProc("SetWindowsHookExW")
	callNextHookEx      = user32.NewProc("CallNextHookEx")
	unhookWindowsHookEx = user32.NewProc("UnhookWindowsHookEx")
	getMessage          = user32.NewProc("GetMessageW")
	postThreadMessage   = user32.NewProc("PostThreadMessageW")
	getAsyncKeyState    = user32.NewProc("GetAsyncKeyState")
)

const (
	whKeyboardLL = 13
	wmQuit       = 0x0012
	wmKeydown    = 0x0100
	wmSyskeydown = 0x0104
)

const (
	vkShift = 0x10
	vkCtrl  = 0x11
	vkAlt   = 0x12
	vkLwin  = 0x5B
	vkRwin  = 0x5C

	vkLshift   = 0xA0
	vkRshift   = 0xA1
	vkLcontrol = 0xA2
	vkRcontrol = 0xA3
	vkLmenu    = 0xA4
	vkRmenu    = 0xA5
)

type kbdllhookstruct struct {
	vkCode      uint32
	scanCode    uint32
	flags       uint32
	time        uint32
	dwExtraInfo uintptr
}

type msg struct {
	hwnd    uintptr
	message uint32
	wParam  uintptr
	lParam  uintptr
	time    uint32
	pt      struct{ x, y int32 }
}

// WindowsHotkey implements the Hotkey interface with a low-level keyboard hook
type WindowsHotkey struct {
	mu      sync.Mutex
	combo   KeyCombo
	pressed bool
	events  chan Event
}

// NewHotkey creates a new Windows hotkey listener
func NewHotkey() Hotkey {
	return &WindowsHotkey{}
}

// Listen installs the hook and reports edges of combo until ctx is done
func (h *WindowsHotkey) Listen(ctx context.Context, combo KeyCombo) (<-chan Event, error) {
	h.mu.Lock()
	h.combo = combo
	h.pressed = false
	h.events = make(chan Event, 10)
	h.mu.Unlock()

	type started struct {
		threadID uint32
		err      error
	}
	startCh := make(chan started, 1)

	go func() {
		// The hook is bound to this OS thread's message loop
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		defer close(h.events)

		hook, _, err := setWindowsHookEx.Call(
			whKeyboardLL,
			windows.NewCallback(h.hookProc),
			0,
			0,
		)
		if hook == 0 {
			startCh <- started{err: fmt.Errorf("SetWindowsHookEx failed: %w", err)}
			return
		}
		defer unhookWindowsHookEx.Call(hook)

		startCh <- started{threadID: windows.GetCurrentThreadId()}

		var m msg
		for {
			r, _, _ := getMessage.Call(uintptr(unsafe.Pointer(&m)), 0, 0, 0)
			if int32(r) <= 0 {
				return
			}
		}
	}()

	var s started
	select {
	case s = <-startCh:
		if s.err != nil {
			return nil, s.err
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	go func() {
		<-ctx.Done()
		postThreadMessage.Call(uintptr(s.threadID), wmQuit, 0, 0)
	}()

	return h.events, nil
}

func (h *WindowsHotkey) hookProc(nCode uintptr, wParam uintptr, lParam uintptr) uintptr {
	if int32(nCode) >= 0 {
		kbInfo := (*kbdllhookstruct)(unsafe.Pointer(lParam))
		h.handleKeyEvent(wParam == wmKeydown || wParam == wmSyskeydown, int(kbInfo.vkCode))
	}
	r, _, _ := callNextHookEx.Call(0, nCode, wParam, lParam)
	return r
}

func (h *WindowsHotkey) handleKeyEvent(isKeyDown bool, vk int) {
	h.mu.Lock()
	combo := h.combo
	h.mu.Unlock()

	if combo.Key != 0 {
		if vk != combo.Key {
			return
		}
	} else if !combo.hasModifier(vk) {
		return
	}

	if isKeyDown {
		// Key repeat arrives as further keydowns; only the first one counts
		if h.checkModifiers(combo) {
			h.emit(true)
		}
		return
	}
	h.emit(false)
}

// emit sends an edge when the pressed state changes
func (h *WindowsHotkey) emit(pressed bool) {
	h.mu.Lock()
	if h.pressed == pressed {
		h.mu.Unlock()
		return
	}
	h.pressed = pressed
	h.mu.Unlock()

	evt := Event{Type: Released}
	if pressed {
		evt.Type = Pressed
	}
	select {
	case h.events <- evt:
	default:
	}
}

func (c KeyCombo) hasModifier(vk int) bool {
	switch vk {
	case vkCtrl, vkLcontrol, vkRcontrol:
		return c.Ctrl
	case vkShift, vkLshift, vkRshift:
		return c.Shift
	case vkAlt, vkLmenu, vkRmenu:
		return c.Alt
	case vkLwin, vkRwin:
		return c.Win
	}
	return false
}

func (h *WindowsHotkey) checkModifiers(combo KeyCombo) bool {
	ctrl := isKeyPressed(vkCtrl)
	shift := isKeyPressed(vkShift)
	alt := isKeyPressed(vkAlt)
	win := isKeyPressed(vkLwin) || isKeyPressed(vkRwin)

	return ctrl == combo.Ctrl &&
		shift == combo.Shift &&
		alt == combo.Alt &&
		win == combo.Win
}

func isKeyPressed(vk int) bool {
	r, _, _ := getAsyncKeyState.Call(uintptr(vk))
	return r&0x8000 != 0
}
