//go:build !linux

package gpio

import "errors"

var errUnsupported = errors.New("gpio: not supported on this platform (requires Linux)")

// RealOutlet is not available on non-Linux platforms.
type RealOutlet struct{}

// NewRealOutlet returns an error on non-Linux platforms.
func NewRealOutlet(pins Pins) (*RealOutlet, error) {
	return nil, errUnsupported
}

func (r *RealOutlet) SetRelay(on bool) error { return errUnsupported }

func (r *RealOutlet) Relay() (bool, error) { return false, errUnsupported }

func (r *RealOutlet) Button() (bool, error) { return false, errUnsupported }

func (r *RealOutlet) Close() error { return nil }
