//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealOutlet drives actual hardware using Linux GPIO character device.
type RealOutlet struct {
	chip   *gpiocdev.Chip
	relay  *gpiocdev.Line
	led    *gpiocdev.Line
	button *gpiocdev.Line
}

// NewRealOutlet requests the relay, LED and button lines. The relay starts
// open and the LED dark.
func NewRealOutlet(pins Pins) (*RealOutlet, error) {
	chip, err := gpiocdev.NewChip("gpiochip0")
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	relay, err := chip.RequestLine(pins.Relay, gpiocdev.AsOutput(0))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request relay pin %d: %w", pins.Relay, err)
	}

	// The LED is wired to 3V3 and lit when the line is driven low.
	led, err := chip.RequestLine(pins.LED, gpiocdev.AsOutput(1))
	if err != nil {
		relay.Close()
		chip.Close()
		return nil, fmt.Errorf("request LED pin %d: %w", pins.LED, err)
	}

	button, err := chip.RequestLine(pins.Button, gpiocdev.AsInput, gpiocdev.WithPullUp)
	if err != nil {
		led.Close()
		relay.Close()
		chip.Close()
		return nil, fmt.Errorf("request button pin %d: %w", pins.Button, err)
	}

	return &RealOutlet{
		chip:   chip,
		relay:  relay,
		led:    led,
		button: button,
	}, nil
}

// SetRelay drives the relay and mirrors it on the LED.
func (r *RealOutlet) SetRelay(on bool) error {
	v := 0
	if on {
		v = 1
	}
	if err := r.relay.SetValue(v); err != nil {
		return fmt.Errorf("write relay pin: %w", err)
	}
	if err := r.led.SetValue(1 - v); err != nil {
		return fmt.Errorf("write LED pin: %w", err)
	}
	return nil
}

// Relay returns the relay output level.
func (r *RealOutlet) Relay() (bool, error) {
	v, err := r.relay.Value()
	if err != nil {
		return false, fmt.Errorf("read relay pin: %w", err)
	}
	return v == 1, nil
}

// Button returns true while the button holds the line low.
func (r *RealOutlet) Button() (bool, error) {
	v, err := r.button.Value()
	if err != nil {
		return false, fmt.Errorf("read button pin: %w", err)
	}
	return v == 0, nil
}

// Close releases GPIO resources.
// Opens the relay, then reconfigures every line to input with pull-down
// (matching Pi boot defaults) so nothing is left energised across a reboot.
func (r *RealOutlet) Close() error {
	var errs []error

	if r.relay != nil {
		if err := r.relay.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("open relay: %w", err))
		}
	}
	for _, l := range []struct {
		name string
		line *gpiocdev.Line
	}{
		{"relay", r.relay},
		{"LED", r.led},
		{"button", r.button},
	} {
		if l.line == nil {
			continue
		}
		if err := l.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure %s pin: %w", l.name, err))
		}
		if err := l.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s pin: %w", l.name, err))
		}
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
