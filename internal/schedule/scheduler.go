package schedule

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"github.com/sweeney/wifi-outlet/internal/solar"
)

// ActionKind is the direction of an output change.
type ActionKind int

const (
	Assert ActionKind = iota + 1
	Deassert
)

func (k ActionKind) String() string {
	switch k {
	case Assert:
		return "ASSERT"
	case Deassert:
		return "DEASSERT"
	}
	return "UNKNOWN"
}

// Action is an output change requested by a cycle.
type Action struct {
	Kind   ActionKind
	Cycle  int
	Minute int
}

// Reading is a local wall-clock sample supplied by the host.
type Reading struct {
	Year    int
	YearDay int
	Weekday time.Weekday
	Minute  int  // minutes past local midnight
	Valid   bool // false until the clock has been synchronized
}

// ReadingAt builds a Reading from a time already converted to local time.
func ReadingAt(t time.Time, valid bool) Reading {
	return Reading{
		Year:    t.Year(),
		YearDay: t.YearDay(),
		Weekday: t.Weekday(),
		Minute:  t.Hour()*60 + t.Minute(),
		Valid:   valid,
	}
}

// Source supplies jitter draws. *math/rand/v2.Rand satisfies it.
type Source interface {
	IntN(n int) int
}

// Scheduler owns the cycle table. It is driven from a single goroutine.
type Scheduler struct {
	cfg   Config
	loc   *time.Location
	rng   Source
	eph   *solar.Ephemeris
	sun   solar.Day
	local sunMinutes

	table      []Resolved
	dirty      bool
	hasDay     bool
	year, yday int
	lastMinute int // high-water minute of the resolved day
	generation uint64
}

// New validates cfg and returns a Scheduler whose first valid Tick resolves
// the table. loc converts solar events to local minutes.
func New(cfg Config, loc *time.Location, rng Source) (*Scheduler, error) {
	if loc == nil {
		loc = time.Local
	}
	s := &Scheduler{loc: loc, rng: rng, lastMinute: -1}
	if err := s.Apply(cfg); err != nil {
		return nil, err
	}
	return s, nil
}

// Apply replaces the configuration snapshot and marks the table dirty. The
// next Tick re-resolves every cycle.
func (s *Scheduler) Apply(cfg Config) error {
	cfg = cfg.Clone()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("apply schedule: %w", err)
	}
	if s.eph == nil || s.eph.Site() != cfg.Site {
		eph, err := solar.New(cfg.Site)
		if err != nil {
			return fmt.Errorf("apply schedule: %w", err)
		}
		s.eph = eph
	}
	s.cfg = cfg
	s.dirty = true
	return nil
}

// Config returns a copy of the current configuration.
func (s *Scheduler) Config() Config {
	return s.cfg.Clone()
}

// Generation increments on every resolution.
func (s *Scheduler) Generation() uint64 {
	return s.generation
}

// Table returns a copy of the resolved cycle table.
func (s *Scheduler) Table() []Resolved {
	out := make([]Resolved, len(s.table))
	copy(out, s.table)
	return out
}

// Tick advances the scheduler to the reading and returns the actions due
// since the previous tick. Minutes skipped within the day (a DST spring
// forward, a clock step, a suspended host) are caught up in order. A reading
// at or before the day's high-water minute (a DST fall back) emits nothing.
func (s *Scheduler) Tick(r Reading) []Action {
	if !r.Valid {
		return nil
	}

	from := s.lastMinute
	newDay := s.hasDay && (r.Year != s.year || r.YearDay != s.yday)
	switch {
	case newDay:
		// The current minute is still to be evaluated.
		from = r.Minute - 1
		s.resolve(r, from)
	case !s.hasDay:
		from = r.Minute
		s.resolve(r, from)
	case s.dirty:
		from = max(r.Minute, s.lastMinute)
		s.resolve(r, from)
	case r.Minute <= s.lastMinute:
		return nil
	}
	s.lastMinute = max(from, r.Minute)

	if !s.cfg.Enabled {
		return nil
	}
	return EvaluateRange(s.cfg.Cycles, s.table, r.Weekday, from, r.Minute)
}

func (s *Scheduler) resolve(r Reading, passed int) {
	s.sun = s.eph.Day(r.Year, r.YearDay)
	s.local = s.localSun(s.sun)

	table := make([]Resolved, len(s.cfg.Cycles))
	for i, rule := range s.cfg.Cycles {
		table[i] = resolveRule(rule, r.Weekday, s.local, s.draw(rule), passed)
	}
	s.table = table
	s.year, s.yday = r.Year, r.YearDay
	s.hasDay = true
	s.dirty = false
	s.generation++
}

func (s *Scheduler) localSun(d solar.Day) sunMinutes {
	if d.Kind != solar.Normal {
		return sunMinutes{}
	}
	rise := d.Sunrise.In(s.loc)
	set := d.Sunset.In(s.loc)
	return sunMinutes{
		rise:   rise.Hour()*60 + rise.Minute(),
		set:    set.Hour()*60 + set.Minute(),
		riseOK: true,
		setOK:  true,
	}
}

func (s *Scheduler) draw(r Rule) int {
	if !r.Enabled || r.Jitter <= 0 || s.rng == nil {
		return 0
	}
	return s.rng.IntN(2*r.Jitter+1) - r.Jitter
}

// Evaluate returns the actions for a single minute given a resolved table.
// Suspended edges never match.
func Evaluate(rules []Rule, table []Resolved, today time.Weekday, minute int) []Action {
	return EvaluateRange(rules, table, today, minute-1, minute)
}

// EvaluateRange returns the actions for edges in (after, upTo], ordered by
// minute and then by cycle.
func EvaluateRange(rules []Rule, table []Resolved, today time.Weekday, after, upTo int) []Action {
	if upTo <= after {
		return nil
	}
	var actions []Action
	due := func(m int) bool { return m > after && m <= upTo }
	for i, res := range table {
		if !res.Active() || i >= len(rules) || !rules[i].Scope.Includes(today) {
			continue
		}
		if due(res.On) {
			actions = append(actions, Action{Kind: Assert, Cycle: i, Minute: res.On})
		}
		if due(res.Off) {
			actions = append(actions, Action{Kind: Deassert, Cycle: i, Minute: res.Off})
		}
	}
	slices.SortStableFunc(actions, func(a, b Action) int { return cmp.Compare(a.Minute, b.Minute) })
	return actions
}

// CycleStatus pairs a rule with its resolution for today.
type CycleStatus struct {
	Index    int
	Rule     Rule
	Resolved Resolved
}

// Status is a read-only view of the scheduler for display.
type Status struct {
	Enabled  bool
	Resolved bool // false until the first valid tick
	Site     solar.Site
	Sun      solar.Day
	Location *time.Location
	Cycles   []CycleStatus
}

// Status returns the current configuration, today's solar events and the
// resolved table.
func (s *Scheduler) Status() Status {
	st := Status{
		Enabled:  s.cfg.Enabled,
		Resolved: s.hasDay,
		Site:     s.cfg.Site,
		Sun:      s.sun,
		Location: s.loc,
		Cycles:   make([]CycleStatus, len(s.cfg.Cycles)),
	}
	for i, rule := range s.cfg.Cycles {
		st.Cycles[i] = CycleStatus{Index: i, Rule: rule}
		if i < len(s.table) && !s.dirty {
			st.Cycles[i].Resolved = s.table[i]
		}
	}
	return st
}
