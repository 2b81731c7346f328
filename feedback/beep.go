package feedback

import (
	"log/slog"

	"github.com/gen2brain/beeep"

	"markestedt/maphider/toggler"
)

// Beeper plays a short tone when the cover is shown or removed
type Beeper struct {
	beep func(freq float64, duration int) error
}

// NewBeeper creates a beeper using the system speaker
func NewBeeper() *Beeper {
	return &Beeper{beep: beeep.Beep}
}

// OnFlip plays a lower tone when the item was hidden and a higher one when it was shown
func (b *Beeper) OnFlip(f toggler.Flip) {
	freq := beeep.DefaultFreq
	duration := beeep.DefaultDuration / 3
	if f.Visible {
		freq *= 2
	}

	// The speaker call can block for the tone's duration
	go func() {
		if err := b.beep(freq, duration); err != nil {
			slog.Debug("Beep failed", "error", err)
		}
	}()
}
