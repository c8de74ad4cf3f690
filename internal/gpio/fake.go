package gpio

import "errors"

// FakeOutlet is a test double that records relay writes and returns
// scripted button samples.
type FakeOutlet struct {
	// RelayOn is the current relay level; LEDLit mirrors it.
	RelayOn bool
	LEDLit  bool

	// Writes records every SetRelay call in order.
	Writes []bool

	// ButtonSamples contains scripted button values (true = pressed).
	// Each call to Button() consumes the next sample.
	ButtonSamples []bool

	// index tracks current position in ButtonSamples
	index int

	// Closed tracks if Close was called
	Closed bool

	// SetError and ReadError, if set, are returned by SetRelay and Button.
	// RelayReadError is returned by Relay.
	SetError       error
	ReadError      error
	RelayReadError error

	// Stuck records writes without moving the relay, like welded contacts.
	Stuck bool
}

// NewFakeOutlet creates a FakeOutlet with the given button samples.
func NewFakeOutlet(buttonSamples []bool) *FakeOutlet {
	return &FakeOutlet{ButtonSamples: buttonSamples}
}

// SetRelay records the write.
func (f *FakeOutlet) SetRelay(on bool) error {
	if f.SetError != nil {
		return f.SetError
	}
	f.Writes = append(f.Writes, on)
	if !f.Stuck {
		f.RelayOn = on
		f.LEDLit = on
	}
	return nil
}

// Relay returns the current relay level.
func (f *FakeOutlet) Relay() (bool, error) {
	if f.RelayReadError != nil {
		return false, f.RelayReadError
	}
	return f.RelayOn, nil
}

// Button returns the next scripted sample.
// If samples are exhausted, returns the last sample repeatedly.
func (f *FakeOutlet) Button() (bool, error) {
	if f.ReadError != nil {
		return false, f.ReadError
	}
	if len(f.ButtonSamples) == 0 {
		return false, errors.New("no samples configured")
	}

	sample := f.ButtonSamples[f.index]
	if f.index < len(f.ButtonSamples)-1 {
		f.index++
	}
	return sample, nil
}

// Close opens the relay and marks the outlet as closed.
func (f *FakeOutlet) Close() error {
	f.RelayOn = false
	f.LEDLit = false
	f.Closed = true
	return nil
}

// Reset rewinds the button samples and clears recorded writes.
func (f *FakeOutlet) Reset() {
	f.index = 0
	f.Writes = nil
	f.Closed = false
}

var (
	_ Outlet = (*FakeOutlet)(nil)
	_ Outlet = (*RealOutlet)(nil)
)
