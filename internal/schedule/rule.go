// Package schedule turns declarative on/off cycle rules into concrete
// minute-of-day trigger points and emits output actions as the clock passes
// them. It has no I/O: the host supplies clock readings and executes actions.
package schedule

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sweeney/wifi-outlet/internal/solar"
)

const (
	// MinutesPerDay is the length of the minute-of-day domain.
	MinutesPerDay = 1440

	// MaxCycles is the size of the cycle table.
	MaxCycles = 8

	// MaxJitter bounds the random shift applied to a cycle, in minutes.
	MaxJitter = 720
)

// ErrTooManyCycles is returned when a configuration holds more than MaxCycles rules.
var ErrTooManyCycles = errors.New("schedule: too many cycles")

// ValidationError describes a rejected rule or configuration field.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s (%v): %s", e.Field, e.Value, e.Message)
}

// Scope selects the days of the week a cycle applies to.
type Scope int

const (
	Daily Scope = iota
	Weekdays
	Weekends
)

var scopeNames = map[Scope]string{
	Daily:    "daily",
	Weekdays: "weekday",
	Weekends: "weekend",
}

func (s Scope) String() string {
	if name, ok := scopeNames[s]; ok {
		return name
	}
	return "scope(" + strconv.Itoa(int(s)) + ")"
}

// Includes reports whether the scope covers the given day.
func (s Scope) Includes(d time.Weekday) bool {
	switch s {
	case Daily:
		return true
	case Weekdays:
		return d >= time.Monday && d <= time.Friday
	case Weekends:
		return d == time.Saturday || d == time.Sunday
	}
	return false
}

// ParseScope parses "daily", "weekday" or "weekend".
func ParseScope(s string) (Scope, error) {
	want := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), "s")
	for scope, name := range scopeNames {
		if name == want {
			return scope, nil
		}
	}
	return 0, &ValidationError{Field: "scope", Value: s, Message: "must be daily, weekday or weekend"}
}

// Anchor selects how a cycle's edges are derived.
type Anchor int

const (
	// FixedOnFixedOff uses OnTime and OffTime as given.
	FixedOnFixedOff Anchor = iota
	// SunriseAnchoredOff turns on at OnTime and off SolarOffset minutes after sunrise.
	SunriseAnchoredOff
	// SunsetAnchoredOn turns on SolarOffset minutes before sunset and off at OffTime.
	SunsetAnchoredOn
)

var anchorNames = map[Anchor]string{
	FixedOnFixedOff:    "fixed",
	SunriseAnchoredOff: "sunrise-off",
	SunsetAnchoredOn:   "sunset-on",
}

func (a Anchor) String() string {
	if name, ok := anchorNames[a]; ok {
		return name
	}
	return "anchor(" + strconv.Itoa(int(a)) + ")"
}

// ParseAnchor parses "fixed", "sunrise-off" or "sunset-on".
func ParseAnchor(s string) (Anchor, error) {
	want := strings.ToLower(strings.TrimSpace(s))
	for anchor, name := range anchorNames {
		if name == want {
			return anchor, nil
		}
	}
	return 0, &ValidationError{Field: "anchor", Value: s, Message: "must be fixed, sunrise-off or sunset-on"}
}

// Rule is one declarative on/off cycle. Times are minutes past local midnight.
type Rule struct {
	Enabled     bool
	Scope       Scope
	Anchor      Anchor
	OnTime      int
	OffTime     int
	SolarOffset int // minutes after sunrise, or before sunset
	Jitter      int // maximum random shift in minutes
}

// Normalize returns the rule with times reduced modulo MinutesPerDay.
func (r Rule) Normalize() Rule {
	r.OnTime = wrap(r.OnTime)
	r.OffTime = wrap(r.OffTime)
	return r
}

// Validate checks a rule. Times are expected to be normalized.
func (r Rule) Validate() error {
	if _, ok := scopeNames[r.Scope]; !ok {
		return &ValidationError{Field: "scope", Value: int(r.Scope), Message: "unknown scope"}
	}
	if _, ok := anchorNames[r.Anchor]; !ok {
		return &ValidationError{Field: "anchor", Value: int(r.Anchor), Message: "unknown anchor"}
	}
	if r.OnTime < 0 || r.OnTime >= MinutesPerDay {
		return &ValidationError{Field: "on", Value: r.OnTime, Message: "must be within a day"}
	}
	if r.OffTime < 0 || r.OffTime >= MinutesPerDay {
		return &ValidationError{Field: "off", Value: r.OffTime, Message: "must be within a day"}
	}
	if r.SolarOffset <= -MinutesPerDay || r.SolarOffset >= MinutesPerDay {
		return &ValidationError{Field: "solar_offset", Value: r.SolarOffset, Message: "must be less than a day"}
	}
	if r.Jitter < 0 || r.Jitter > MaxJitter {
		return &ValidationError{Field: "jitter", Value: r.Jitter, Message: fmt.Sprintf("must be between 0 and %d", MaxJitter)}
	}
	if r.Anchor == FixedOnFixedOff && r.Enabled && r.OnTime == r.OffTime {
		return &ValidationError{Field: "off", Value: FormatClock(r.OffTime), Message: "equals on time"}
	}
	return nil
}

// Config is a validated snapshot of everything the scheduler needs.
type Config struct {
	Enabled bool
	Site    solar.Site
	Cycles  []Rule
}

// Validate checks the site and every rule.
func (c Config) Validate() error {
	if len(c.Cycles) > MaxCycles {
		return fmt.Errorf("%w: %d > %d", ErrTooManyCycles, len(c.Cycles), MaxCycles)
	}
	if err := c.Site.Validate(); err != nil {
		return err
	}
	for i, r := range c.Cycles {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("cycle %d: %w", i, err)
		}
	}
	return nil
}

// Clone returns a deep copy with normalized rule times.
func (c Config) Clone() Config {
	out := c
	out.Cycles = make([]Rule, len(c.Cycles))
	for i, r := range c.Cycles {
		out.Cycles[i] = r.Normalize()
	}
	return out
}

// WithCycle returns a copy with rule i replaced, growing the table with
// disabled rules if needed.
func (c Config) WithCycle(i int, r Rule) (Config, error) {
	if i < 0 || i >= MaxCycles {
		return c, &ValidationError{Field: "cycle", Value: i, Message: fmt.Sprintf("must be between 0 and %d", MaxCycles-1)}
	}
	r = r.Normalize()
	if err := r.Validate(); err != nil {
		return c, err
	}
	out := c.Clone()
	for len(out.Cycles) <= i {
		out.Cycles = append(out.Cycles, Rule{})
	}
	out.Cycles[i] = r
	return out, nil
}

// ParseClock parses "HH:MM" into minutes past midnight.
func ParseClock(s string) (int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, &ValidationError{Field: "time", Value: s, Message: "must be HH:MM"}
	}
	return t.Hour()*60 + t.Minute(), nil
}

// FormatClock formats minutes past midnight as "HH:MM". Suspended edges are
// shown with a "+1d" suffix.
func FormatClock(m int) string {
	suffix := ""
	if m >= MinutesPerDay {
		suffix = "+1d"
	}
	m = wrap(m)
	return fmt.Sprintf("%02d:%02d%s", m/60, m%60, suffix)
}

func wrap(m int) int {
	m %= MinutesPerDay
	if m < 0 {
		m += MinutesPerDay
	}
	return m
}
