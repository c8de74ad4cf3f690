package status

import (
	"encoding/json"
	"time"

	"github.com/sweeney/wifi-outlet/internal/schedule"
	"github.com/sweeney/wifi-outlet/internal/solar"
)

// StatusJSON wraps the status document under a "status" key.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	Name          string       `json:"name"`
	BootID        string       `json:"boot_id"`
	Outlet        string       `json:"outlet"`
	ClockSynced   bool         `json:"clock_synced"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Counts        CountsJSON   `json:"event_counts"`
	Schedule      ScheduleJSON `json:"schedule"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

type CountsJSON struct {
	On       int `json:"on"`
	Off      int `json:"off"`
	Schedule int `json:"schedule"`
	Manual   int `json:"manual"`
}

// ScheduleJSON is today's schedule. Times are local "HH:MM".
type ScheduleJSON struct {
	Enabled  bool        `json:"enabled"`
	Resolved bool        `json:"resolved"`
	Day      string      `json:"day,omitempty"`
	Sunrise  string      `json:"sunrise,omitempty"`
	Noon     string      `json:"noon,omitempty"`
	Sunset   string      `json:"sunset,omitempty"`
	Cycles   []CycleJSON `json:"cycles"`
}

// CycleJSON is one rule with its resolution for today.
type CycleJSON struct {
	Index  int               `json:"index"`
	Rule   schedule.RuleSpec `json:"rule"`
	Active bool              `json:"active"`
	Reason string            `json:"reason,omitempty"`
	OnAt   string            `json:"on_at,omitempty"`
	OffAt  string            `json:"off_at,omitempty"`
}

// NetworkJSON mirrors NetworkInfo field for field.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

type ConfigJSON struct {
	PollMs     int64  `json:"poll_ms"`
	DebounceMs int64  `json:"debounce_ms"`
	Heartbeat  string `json:"heartbeat"`
	Broker     string `json:"broker"`
	HTTPAddr   string `json:"http_addr"`
	Timezone   string `json:"timezone"`
}

// BuildSchedule converts a schedule status for display.
func BuildSchedule(st schedule.Status) ScheduleJSON {
	out := ScheduleJSON{
		Enabled:  st.Enabled,
		Resolved: st.Resolved,
		Cycles:   make([]CycleJSON, 0, len(st.Cycles)),
	}
	if st.Resolved {
		loc := st.Location
		if loc == nil {
			loc = time.Local
		}
		out.Day = st.Sun.Kind.String()
		out.Noon = st.Sun.Noon.In(loc).Format("15:04")
		if st.Sun.Kind == solar.Normal {
			out.Sunrise = st.Sun.Sunrise.In(loc).Format("15:04")
			out.Sunset = st.Sun.Sunset.In(loc).Format("15:04")
		}
	}
	for _, c := range st.Cycles {
		cj := CycleJSON{
			Index:  c.Index,
			Rule:   schedule.SpecOf(c.Rule),
			Active: c.Resolved.Active(),
			Reason: c.Resolved.Reason,
		}
		if cj.Active {
			cj.OnAt = schedule.FormatClock(c.Resolved.On)
			cj.OffAt = schedule.FormatClock(c.Resolved.Off)
		}
		out.Cycles = append(out.Cycles, cj)
	}
	return out
}

// build assembles the document shared by the web endpoint and MQTT system
// events.
func build(snap Snapshot, event, reason string) StatusJSON {
	in := StatusInner{
		Event:         event,
		Reason:        reason,
		Name:          snap.Config.Name,
		BootID:        snap.BootID,
		Outlet:        "UNKNOWN",
		ClockSynced:   snap.ClockSynced,
		UptimeSeconds: int64(snap.Uptime() / time.Second),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts:        CountsJSON(snap.Counts),
		Schedule:      BuildSchedule(snap.Schedule),
	}
	if snap.Outlet != "" {
		in.Outlet = string(snap.Outlet)
	}
	if n := snap.Network; n != nil {
		nj := NetworkJSON(*n)
		in.Network = &nj
	}
	c := snap.Config
	in.Config = ConfigJSON{
		PollMs:     c.PollMs,
		DebounceMs: c.DebounceMs,
		Heartbeat:  c.Heartbeat,
		Broker:     c.Broker,
		HTTPAddr:   c.HTTPAddr,
		Timezone:   c.Timezone,
	}
	return StatusJSON{Status: in}
}

// FormatJSON renders the indented status served over HTTP.
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(build(snap, "", ""), "", "  ")
	return data
}

// FormatStatusEvent renders a compact status tagged with a lifecycle event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	data, _ := json.Marshal(build(snap, event, reason))
	return data
}
