// Package gpio drives the outlet relay and status LED and reads the push
// button, with hardware abstraction.
// The real implementation uses Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Outlet is the outlet hardware: one relay output, one LED that mirrors it,
// and one push button input.
type Outlet interface {
	// SetRelay closes (true) or opens (false) the relay and updates the LED.
	SetRelay(on bool) error

	// Relay returns the current relay output level.
	Relay() (bool, error)

	// Button returns true while the push button is held down.
	// The raw GPIO value is inverted: the button pulls the line low.
	Button() (bool, error)

	// Close opens the relay and releases GPIO resources.
	Close() error
}

// Pin definitions (BCM numbering)
const (
	DefaultPinRelay  = 17
	DefaultPinLED    = 27
	DefaultPinButton = 22
)

// Pins selects the BCM lines used by the outlet.
type Pins struct {
	Relay  int
	LED    int
	Button int
}

// DefaultPins returns the standard wiring.
func DefaultPins() Pins {
	return Pins{Relay: DefaultPinRelay, LED: DefaultPinLED, Button: DefaultPinButton}
}
