//go:build !windows

package platform

import (
	"context"
	"errors"
	"runtime"
)

// ErrUnsupported is returned when global hotkeys are unavailable on this OS
var ErrUnsupported = errors.New("global hotkeys are not supported on " + runtime.GOOS)

type unsupportedHotkey struct{}

// NewHotkey returns a listener that always fails on this platform
func NewHotkey() Hotkey {
	return unsupportedHotkey{}
}

func (unsupportedHotkey) Listen(ctx context.Context, combo KeyCombo) (<-chan Event, error) {
	return nil, ErrUnsupported
}
