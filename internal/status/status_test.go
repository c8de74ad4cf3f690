package status

import (
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sweeney/wifi-outlet/internal/logic"
	"github.com/sweeney/wifi-outlet/internal/schedule"
	"github.com/sweeney/wifi-outlet/internal/solar"
)

var start = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestNewTracker(t *testing.T) {
	cfg := Config{Name: "porch", PollMs: 100, DebounceMs: 50, Broker: "tcp://localhost:1883", HTTPAddr: ":80"}
	tr := NewTracker("boot-1", start, cfg)

	snap := tr.Snapshot()
	if !snap.StartTime.Equal(start) {
		t.Errorf("StartTime: got %v, want %v", snap.StartTime, start)
	}
	if snap.BootID != "boot-1" {
		t.Errorf("BootID: got %q", snap.BootID)
	}
	if snap.Config.HTTPAddr != ":80" {
		t.Errorf("Config.HTTPAddr: got %q, want %q", snap.Config.HTTPAddr, ":80")
	}
	if snap.ClockSynced || snap.MQTTConnected {
		t.Error("expected clock and MQTT to start false")
	}
}

func TestUpdateAndSnapshot(t *testing.T) {
	tr := NewTracker("b", time.Now(), Config{})
	tr.Update(logic.StateOn, logic.EventCounts{On: 3, Schedule: 2, Manual: 1}, true)

	snap := tr.Snapshot()
	if snap.Outlet != logic.StateOn {
		t.Errorf("Outlet: got %q, want ON", snap.Outlet)
	}
	if snap.Counts.On != 3 || snap.Counts.Manual != 1 {
		t.Errorf("Counts: got %+v", snap.Counts)
	}
	if !snap.ClockSynced {
		t.Error("expected ClockSynced=true")
	}
}

func TestSnapshotStampsNow(t *testing.T) {
	tr := NewTracker("b", start, Config{})
	tr.now = func() time.Time { return start.Add(42 * time.Second) }

	snap := tr.Snapshot()
	if snap.Uptime() != 42*time.Second {
		t.Errorf("Uptime: got %v, want 42s", snap.Uptime())
	}
}

func TestSnapshotUptime(t *testing.T) {
	s := Snapshot{StartTime: start, Now: start.Add(90 * time.Second)}
	if s.Uptime() != 90*time.Second {
		t.Errorf("Uptime: got %v", s.Uptime())
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	tr := NewTracker("b", start, Config{})
	tr.Update(logic.StateOff, logic.EventCounts{}, false)
	snap := tr.Snapshot()

	tr.Update(logic.StateOn, logic.EventCounts{On: 1}, true)
	if snap.Outlet != logic.StateOff {
		t.Error("snapshot changed after tracker update")
	}
}

func sampleSchedule() schedule.Status {
	return schedule.Status{
		Enabled:  true,
		Resolved: true,
		Location: time.UTC,
		Sun: solar.Day{
			Kind:    solar.Normal,
			Sunrise: time.Date(2026, 6, 1, 4, 45, 0, 0, time.UTC),
			Noon:    time.Date(2026, 6, 1, 12, 58, 0, 0, time.UTC),
			Sunset:  time.Date(2026, 6, 1, 21, 10, 0, 0, time.UTC),
		},
		Cycles: []schedule.CycleStatus{
			{
				Index:    0,
				Rule:     schedule.Rule{Enabled: true, OnTime: 540, OffTime: 600},
				Resolved: schedule.Resolved{Contribution: schedule.Transitions, On: 540 + schedule.MinutesPerDay, Off: 600},
			},
			{
				Index:    1,
				Rule:     schedule.Rule{Anchor: schedule.SunsetAnchoredOn, OffTime: 1380},
				Resolved: schedule.Resolved{Reason: schedule.ReasonDisabled},
			},
		},
	}
}

func TestBuildSchedule(t *testing.T) {
	got := BuildSchedule(sampleSchedule())

	if got.Sunrise != "04:45" || got.Noon != "12:58" || got.Sunset != "21:10" {
		t.Errorf("sun times: got %s/%s/%s", got.Sunrise, got.Noon, got.Sunset)
	}
	if got.Day != "normal" {
		t.Errorf("Day: got %q", got.Day)
	}
	if len(got.Cycles) != 2 {
		t.Fatalf("expected 2 cycles, got %d", len(got.Cycles))
	}
	c0 := got.Cycles[0]
	if !c0.Active || c0.OnAt != "09:00+1d" || c0.OffAt != "10:00" {
		t.Errorf("cycle 0: got %+v", c0)
	}
	c1 := got.Cycles[1]
	if c1.Active || c1.Reason != "disabled" || c1.OnAt != "" {
		t.Errorf("cycle 1: got %+v", c1)
	}
	if c1.Rule.Anchor != "sunset-on" || c1.Rule.Off != "23:00" {
		t.Errorf("cycle 1 rule: got %+v", c1.Rule)
	}
}

func TestBuildScheduleUnresolved(t *testing.T) {
	got := BuildSchedule(schedule.Status{Enabled: true})
	if got.Resolved || got.Sunrise != "" || got.Day != "" {
		t.Errorf("expected no sun data before resolution, got %+v", got)
	}
	if got.Cycles == nil {
		t.Error("cycles should encode as an empty list")
	}
}

func TestBuildSchedulePolarNight(t *testing.T) {
	st := sampleSchedule()
	st.Sun = solar.Day{Kind: solar.PolarNight, Noon: time.Date(2026, 12, 15, 11, 0, 0, 0, time.UTC)}
	got := BuildSchedule(st)
	if got.Day != "polar-night" || got.Sunrise != "" || got.Sunset != "" || got.Noon != "11:00" {
		t.Errorf("unexpected polar schedule %+v", got)
	}
}

func TestFormatJSON(t *testing.T) {
	snap := Snapshot{
		BootID:        "abc",
		Outlet:        logic.StateOn,
		Counts:        logic.EventCounts{On: 2, Off: 1, Schedule: 2, Manual: 1},
		Schedule:      sampleSchedule(),
		ClockSynced:   true,
		StartTime:     start,
		Now:           start.Add(time.Hour),
		MQTTConnected: true,
		Config:        Config{Name: "porch", Broker: "tcp://b:1883", Heartbeat: "@every 15m"},
	}

	data := FormatJSON(snap)
	if !strings.Contains(string(data), "\n  ") {
		t.Error("expected indented JSON")
	}

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	s := parsed.Status
	if s.Outlet != "ON" || s.Name != "porch" || s.BootID != "abc" {
		t.Errorf("unexpected header %+v", s)
	}
	if s.UptimeSeconds != 3600 {
		t.Errorf("UptimeSeconds: got %d", s.UptimeSeconds)
	}
	if !s.MQTT.Connected || s.MQTT.Broker != "tcp://b:1883" {
		t.Errorf("MQTT: got %+v", s.MQTT)
	}
	if s.Event != "" || s.Reason != "" {
		t.Error("web JSON should not carry event/reason")
	}
	if s.Network != nil {
		t.Error("network should be omitted when nil")
	}
	if len(s.Schedule.Cycles) != 2 {
		t.Errorf("expected 2 cycles, got %d", len(s.Schedule.Cycles))
	}
}

func TestFormatJSONUnknownState(t *testing.T) {
	var parsed StatusJSON
	json.Unmarshal(FormatJSON(Snapshot{}), &parsed)
	if parsed.Status.Outlet != "UNKNOWN" {
		t.Errorf("Outlet: got %q, want UNKNOWN", parsed.Status.Outlet)
	}
}

func TestFormatStatusEvent(t *testing.T) {
	snap := Snapshot{
		Outlet:    logic.StateOff,
		StartTime: start,
		Now:       start,
		Network:   &NetworkInfo{Type: "wifi", IP: "192.168.1.50", SSID: "MyNet"},
	}
	data := FormatStatusEvent(snap, "SHUTDOWN", "SIGTERM")
	if strings.Contains(string(data), "\n") {
		t.Error("event JSON should be compact")
	}

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if parsed.Status.Event != "SHUTDOWN" || parsed.Status.Reason != "SIGTERM" {
		t.Errorf("event/reason: got %q/%q", parsed.Status.Event, parsed.Status.Reason)
	}
	if parsed.Status.Network == nil || parsed.Status.Network.SSID != "MyNet" {
		t.Errorf("network: got %+v", parsed.Status.Network)
	}

	data = FormatStatusEvent(snap, "STARTUP", "")
	if strings.Contains(string(data), `"reason"`) {
		t.Error("empty reason should be omitted")
	}
}

func TestConcurrentAccess(t *testing.T) {
	tr := NewTracker("b", time.Now(), Config{})
	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			tr.Update(logic.StateOn, logic.EventCounts{On: i}, true)
			tr.SetMQTTConnected(i%2 == 0)
			tr.SetNetwork(&NetworkInfo{IP: "1.2.3.4"})
			tr.SetSchedule(schedule.Status{Enabled: i%2 == 0})
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			snap := tr.Snapshot()
			_ = FormatJSON(snap)
		}
	}()
	wg.Wait()
}
