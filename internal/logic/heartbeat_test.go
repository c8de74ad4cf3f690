package logic

import (
	"testing"
	"time"
)

func TestHeartbeatDisabled(t *testing.T) {
	for _, spec := range []string{"", "0", "off", "0s"} {
		h, err := NewHeartbeat(spec, t0)
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", spec, err)
		}
		if h != nil {
			t.Errorf("%q: expected disabled heartbeat", spec)
		}
		if hb := h.Check(t0.Add(24*time.Hour), EventCounts{}); hb != nil {
			t.Errorf("%q: disabled heartbeat fired", spec)
		}
	}
}

func TestHeartbeatEvery(t *testing.T) {
	h, err := NewHeartbeat("@every 15m", t0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := t0.Add(15 * time.Minute); !h.Next().Equal(want) {
		t.Errorf("expected next %v, got %v", want, h.Next())
	}

	if hb := h.Check(t0.Add(14*time.Minute), EventCounts{}); hb != nil {
		t.Error("heartbeat fired early")
	}

	counts := EventCounts{On: 3, Off: 2}
	hb := h.Check(t0.Add(15*time.Minute), counts)
	if hb == nil {
		t.Fatal("expected heartbeat")
	}
	if hb.Uptime != 15*time.Minute {
		t.Errorf("expected uptime 15m, got %v", hb.Uptime)
	}
	if hb.Counts != counts {
		t.Errorf("expected counts %+v, got %+v", counts, hb.Counts)
	}

	// Not again until the next interval.
	if hb := h.Check(t0.Add(16*time.Minute), counts); hb != nil {
		t.Error("heartbeat fired twice")
	}
	if hb := h.Check(t0.Add(30*time.Minute), counts); hb == nil {
		t.Error("expected second heartbeat")
	}
}

func TestHeartbeatDuration(t *testing.T) {
	h, err := NewHeartbeat("1h", t0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := t0.Add(time.Hour); !h.Next().Equal(want) {
		t.Errorf("expected next %v, got %v", want, h.Next())
	}
}

func TestHeartbeatCron(t *testing.T) {
	h, err := NewHeartbeat("0 * * * *", t0.Add(10*time.Minute))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := t0.Add(time.Hour); !h.Next().Equal(want) {
		t.Errorf("expected next %v, got %v", want, h.Next())
	}
}

func TestHeartbeatInvalid(t *testing.T) {
	if _, err := NewHeartbeat("every so often", t0); err == nil {
		t.Error("expected error")
	}
}
