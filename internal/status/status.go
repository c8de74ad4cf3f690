// Package status keeps the daemon's externally visible state. The main loop
// writes it; the web server and MQTT status events read snapshots of it.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/wifi-outlet/internal/logic"
	"github.com/sweeney/wifi-outlet/internal/schedule"
)

// NetworkInfo is the network state pi-helper writes to its env file.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config is the part of the daemon configuration shown on the status page.
type Config struct {
	Name       string
	PollMs     int64
	DebounceMs int64
	Heartbeat  string
	Broker     string
	HTTPAddr   string
	Timezone   string
}

// Snapshot is a copy of the state at one instant. The slices inside
// Schedule are shared with the tracker and must not be modified.
type Snapshot struct {
	BootID        string
	Outlet        logic.State
	Counts        logic.EventCounts
	Schedule      schedule.Status
	ClockSynced   bool
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime is the time since StartTime, as of Now.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker guards a Snapshot. Writers replace fields; readers copy the
// whole thing.
type Tracker struct {
	now func() time.Time

	mu    sync.RWMutex
	state Snapshot
}

// NewTracker returns a tracker for one boot of the daemon.
func NewTracker(bootID string, startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		now:   time.Now,
		state: Snapshot{BootID: bootID, StartTime: startTime, Config: cfg},
	}
}

func (t *Tracker) write(f func(*Snapshot)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	f(&t.state)
}

// Update records the relay state, transition counts and clock validity.
// The main loop calls it every poll.
func (t *Tracker) Update(outlet logic.State, counts logic.EventCounts, clockSynced bool) {
	t.write(func(s *Snapshot) {
		s.Outlet = outlet
		s.Counts = counts
		s.ClockSynced = clockSynced
	})
}

// SetSchedule replaces the schedule view after a resolution or a rule change.
func (t *Tracker) SetSchedule(st schedule.Status) {
	t.write(func(s *Snapshot) { s.Schedule = st })
}

func (t *Tracker) SetMQTTConnected(connected bool) {
	t.write(func(s *Snapshot) { s.MQTTConnected = connected })
}

// SetNetwork replaces the network info. nil clears it.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.write(func(s *Snapshot) { s.Network = info })
}

// Snapshot copies the current state and stamps it with the current time.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	snap := t.state
	t.mu.RUnlock()
	snap.Now = t.now()
	return snap
}
