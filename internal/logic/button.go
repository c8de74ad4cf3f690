package logic

import "time"

// Button debounces a push button. A level must hold for the debounce
// duration before it is accepted, and a click is reported once per accepted
// released-to-pressed transition.
type Button struct {
	debounce time.Duration

	stable    bool // accepted level, true = pressed
	baselined bool

	// candidate is a level that differs from stable and is being timed.
	candidate bool
	timing    bool
	since     time.Time
}

// NewButton returns a button that accepts a level once it has held for
// debounce.
func NewButton(debounce time.Duration) *Button {
	return &Button{debounce: debounce}
}

// Process takes a raw sample (true = pressed) and reports whether a click
// completed. The first accepted level is the baseline and never clicks, so
// a button held down at boot does not toggle the outlet.
func (b *Button) Process(pressed bool, now time.Time) bool {
	if b.baselined && pressed == b.stable {
		b.timing = false
		return false
	}
	if !b.timing || b.candidate != pressed {
		b.candidate, b.since, b.timing = pressed, now, true
		return false
	}
	if now.Sub(b.since) < b.debounce {
		return false
	}

	b.timing = false
	b.stable = pressed
	if !b.baselined {
		b.baselined = true
		return false
	}
	return pressed
}

// IsBaselined reports whether the first level has been accepted.
func (b *Button) IsBaselined() bool {
	return b.baselined
}

// Pressed returns the accepted level.
func (b *Button) Pressed() bool {
	return b.stable
}
