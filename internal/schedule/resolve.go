package schedule

import "time"

// Contribution says whether a resolved cycle produces any transitions today.
type Contribution int

const (
	None Contribution = iota
	Transitions
)

func (c Contribution) String() string {
	if c == Transitions {
		return "transitions"
	}
	return "none"
}

// Reasons a cycle contributes nothing today.
const (
	ReasonDisabled   = "disabled"
	ReasonOutOfScope = "out of scope"
	ReasonNoSunrise  = "no sunrise"
	ReasonNoSunset   = "no sunset"
	ReasonZeroLength = "zero length"
)

// Resolved holds a cycle's concrete edges for the current day, in minutes
// past midnight. An edge >= MinutesPerDay is suspended: it had already
// passed when the table was built and waits for the next rollover. For a
// None contribution On and Off are both zero.
type Resolved struct {
	Contribution Contribution
	Reason       string
	On           int
	Off          int
	Jitter       int // shift actually applied
}

// Active reports whether the cycle produces transitions today.
func (r Resolved) Active() bool {
	return r.Contribution == Transitions
}

// OnSuspended reports whether the on edge waits for the next day.
func (r Resolved) OnSuspended() bool { return r.On >= MinutesPerDay }

// OffSuspended reports whether the off edge waits for the next day.
func (r Resolved) OffSuspended() bool { return r.Off >= MinutesPerDay }

func inactive(reason string) Resolved {
	return Resolved{Contribution: None, Reason: reason}
}

// sunMinutes carries today's solar events as local minutes past midnight.
type sunMinutes struct {
	rise, set     int
	riseOK, setOK bool
}

// resolveRule computes one cycle's edges. j is the jitter draw for the
// cycle and passed is the last minute already handled today; edges at or
// before it are suspended.
func resolveRule(r Rule, today time.Weekday, sun sunMinutes, j, passed int) Resolved {
	if !r.Enabled {
		return inactive(ReasonDisabled)
	}
	if !r.Scope.Includes(today) {
		return inactive(ReasonOutOfScope)
	}

	on, off := wrap(r.OnTime), wrap(r.OffTime)
	switch r.Anchor {
	case FixedOnFixedOff:
		if on == off {
			return inactive(ReasonZeroLength)
		}
		on, off = wrap(on+j), wrap(off+j)

	case SunriseAnchoredOff:
		if !sun.riseOK {
			return inactive(ReasonNoSunrise)
		}
		off = wrap(sun.rise + r.SolarOffset)
		d := wrap(off - on)
		if d == 0 {
			return inactive(ReasonZeroLength)
		}
		// Keep the cycle length within (0, 1440) so off stays after on.
		j = clamp(j, 1-d, MinutesPerDay-1-d)
		off = wrap(off + j)

	case SunsetAnchoredOn:
		if !sun.setOK {
			return inactive(ReasonNoSunset)
		}
		on = wrap(sun.set - r.SolarOffset)
		d := wrap(off - on)
		if d == 0 {
			return inactive(ReasonZeroLength)
		}
		j = clamp(j, d-(MinutesPerDay-1), d-1)
		on = wrap(on + j)
	}

	return Resolved{
		Contribution: Transitions,
		On:           suspend(on, passed),
		Off:          suspend(off, passed),
		Jitter:       j,
	}
}

func suspend(edge, passed int) int {
	if edge <= passed {
		return edge + MinutesPerDay
	}
	return edge
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
