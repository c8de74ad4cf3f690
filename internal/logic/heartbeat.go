package logic

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Counts    EventCounts
}

// Heartbeat decides when periodic status events are due. The cadence is a
// standard cron expression or descriptor such as "@every 15m" or "@hourly".
type Heartbeat struct {
	schedule  cron.Schedule
	startTime time.Time
	next      time.Time
}

// NewHeartbeat parses spec. An empty spec, "off" or "0" disables heartbeats
// and returns a nil *Heartbeat, whose Check always returns nil.
func NewHeartbeat(spec string, startTime time.Time) (*Heartbeat, error) {
	spec = strings.TrimSpace(spec)
	switch spec {
	case "", "0", "off":
		return nil, nil
	}
	if d, err := time.ParseDuration(spec); err == nil {
		if d <= 0 {
			return nil, nil
		}
		spec = "@every " + d.String()
	}
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("parse heartbeat %q: %w", spec, err)
	}
	return &Heartbeat{
		schedule:  sched,
		startTime: startTime,
		next:      sched.Next(startTime),
	}, nil
}

// Next returns when the next heartbeat is due.
func (h *Heartbeat) Next() time.Time {
	if h == nil {
		return time.Time{}
	}
	return h.next
}

// Check returns heartbeat data if a heartbeat is due at now.
func (h *Heartbeat) Check(now time.Time, counts EventCounts) *HeartbeatData {
	if h == nil || now.Before(h.next) {
		return nil
	}
	h.next = h.schedule.Next(now)
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(h.startTime),
		Counts:    counts,
	}
}
