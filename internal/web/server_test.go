package web

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/wifi-outlet/internal/control"
	"github.com/sweeney/wifi-outlet/internal/logic"
	"github.com/sweeney/wifi-outlet/internal/schedule"
	"github.com/sweeney/wifi-outlet/internal/status"
)

type testServer struct {
	*httptest.Server
	tracker  *status.Tracker
	commands chan control.Command
}

func newTestServer(t *testing.T, queue int) *testServer {
	t.Helper()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := status.Config{
		Name:       "porch",
		PollMs:     100,
		DebounceMs: 50,
		Heartbeat:  "@every 15m",
		Broker:     "tcp://192.168.1.200:1883",
		HTTPAddr:   ":80",
		Timezone:   "UTC",
	}
	ts := &testServer{
		tracker:  status.NewTracker("boot-1", start, cfg),
		commands: make(chan control.Command, queue),
	}
	srv := New(Options{
		Addr:     ":0",
		Tracker:  ts.tracker,
		Commands: ts.commands,
	})
	ts.Server = httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func (ts *testServer) do(t *testing.T, method, path, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, ts.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (ts *testServer) next(t *testing.T) control.Command {
	t.Helper()
	select {
	case cmd := <-ts.commands:
		return cmd
	default:
		t.Fatal("no command queued")
		return control.Command{}
	}
}

func TestJSONEndpoint(t *testing.T) {
	ts := newTestServer(t, 1)
	ts.tracker.Update(logic.StateOn, logic.EventCounts{On: 5, Off: 2}, true)
	ts.tracker.SetMQTTConnected(true)

	resp := ts.do(t, "GET", "/index.json", "")
	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}

	var sj status.StatusJSON
	if err := json.NewDecoder(resp.Body).Decode(&sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	if sj.Status.Outlet != "ON" {
		t.Errorf("Outlet: got %q, want ON", sj.Status.Outlet)
	}
	if !sj.Status.MQTT.Connected {
		t.Error("expected MQTT.Connected=true")
	}
	if sj.Status.Counts.On != 5 || sj.Status.Counts.Off != 2 {
		t.Errorf("Counts: got %+v", sj.Status.Counts)
	}
	if sj.Status.Config.PollMs != 100 {
		t.Errorf("Config.PollMs: got %d, want 100", sj.Status.Config.PollMs)
	}
}

func TestHTMLEndpoint(t *testing.T) {
	ts := newTestServer(t, 1)
	ts.tracker.Update(logic.StateOff, logic.EventCounts{}, false)
	ts.tracker.SetNetwork(&status.NetworkInfo{Type: "wifi", IP: "192.168.1.50", Status: "up", SSID: "MyNet"})
	ts.tracker.SetSchedule(schedule.Status{
		Enabled: true,
		Cycles: []schedule.CycleStatus{
			{Index: 0, Rule: schedule.Rule{Enabled: true, OnTime: 420, OffTime: 480}},
		},
	})

	for _, path := range []string{"/", "/index.html"} {
		resp := ts.do(t, "GET", path, "")
		if resp.StatusCode != 200 {
			t.Fatalf("%s: status %d", path, resp.StatusCode)
		}
		if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
			t.Errorf("%s: Content-Type %q", path, ct)
		}
		body, _ := io.ReadAll(resp.Body)
		for _, want := range []string{"Outlet: porch", `id="relay-state" class="off">OFF`, "waiting for NTP", "MyNet", "07:00", `action="/?outlet=toggle"`} {
			if !strings.Contains(string(body), want) {
				t.Errorf("%s: body missing %q", path, want)
			}
		}
	}
}

func TestNotFound(t *testing.T) {
	ts := newTestServer(t, 1)
	if resp := ts.do(t, "GET", "/nope", ""); resp.StatusCode != 404 {
		t.Errorf("status: got %d, want 404", resp.StatusCode)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	ts := newTestServer(t, 1)
	if resp := ts.do(t, "GET", "/outlet", ""); resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status: got %d, want 405", resp.StatusCode)
	}
}

func TestToggleForm(t *testing.T) {
	ts := newTestServer(t, 1)

	resp := ts.do(t, "POST", "/?outlet=toggle", "")
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("status: got %d, want 303", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "/" {
		t.Errorf("Location: got %q", loc)
	}
	if cmd := ts.next(t); cmd.Kind != control.KindToggle || cmd.Source != logic.SourceHTTP {
		t.Errorf("unexpected command %+v", cmd)
	}

	if resp := ts.do(t, "POST", "/?outlet=explode", ""); resp.StatusCode != 400 {
		t.Errorf("status: got %d, want 400", resp.StatusCode)
	}
}

func TestOutletEndpoint(t *testing.T) {
	ts := newTestServer(t, 4)

	for _, action := range []string{"on", "off", "toggle"} {
		resp := ts.do(t, "POST", "/outlet?action="+action, "")
		if resp.StatusCode != http.StatusAccepted {
			t.Fatalf("%s: status %d", action, resp.StatusCode)
		}
		if cmd := ts.next(t); string(cmd.Kind) != action {
			t.Errorf("expected %s, got %s", action, cmd.Kind)
		}
	}

	for _, action := range []string{"", "enable", "set-cycle", "bogus"} {
		if resp := ts.do(t, "POST", "/outlet?action="+action, ""); resp.StatusCode != 400 {
			t.Errorf("%q: status %d, want 400", action, resp.StatusCode)
		}
	}
}

func TestScheduleEndpoint(t *testing.T) {
	ts := newTestServer(t, 2)

	resp := ts.do(t, "PUT", "/schedule", `{"enabled": false}`)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status %d", resp.StatusCode)
	}
	if cmd := ts.next(t); cmd.Kind != control.KindDisable {
		t.Errorf("expected disable, got %s", cmd.Kind)
	}

	ts.do(t, "PUT", "/schedule", `{"enabled": true}`)
	if cmd := ts.next(t); cmd.Kind != control.KindEnable {
		t.Errorf("expected enable, got %s", cmd.Kind)
	}

	for _, body := range []string{``, `{}`, `{"enabled": "yes"}`, `{"enabled": true, "extra": 1}`} {
		if resp := ts.do(t, "PUT", "/schedule", body); resp.StatusCode != 400 {
			t.Errorf("%q: status %d, want 400", body, resp.StatusCode)
		}
	}
}

func TestCycleEndpoint(t *testing.T) {
	ts := newTestServer(t, 1)

	resp := ts.do(t, "PUT", "/cycles/3", `{"enabled":true,"scope":"weekend","anchor":"sunrise-off","on":"05:30","solar_offset":20}`)
	if resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("status %d: %s", resp.StatusCode, body)
	}
	var ack struct {
		Accepted string `json:"accepted"`
		Cycle    *int   `json:"cycle"`
	}
	json.NewDecoder(resp.Body).Decode(&ack)
	if ack.Accepted != "set-cycle" || ack.Cycle == nil || *ack.Cycle != 3 {
		t.Errorf("unexpected ack %+v", ack)
	}

	cmd := ts.next(t)
	want := schedule.Rule{Enabled: true, Scope: schedule.Weekends, Anchor: schedule.SunriseAnchoredOff, OnTime: 330, SolarOffset: 20}
	if cmd.Kind != control.KindSetCycle || cmd.Cycle != 3 || cmd.Rule != want {
		t.Errorf("unexpected command %+v", cmd)
	}

	bad := map[string]string{
		"/cycles/8": `{"enabled":false}`,
		"/cycles/0": `{"enabled":true,"on":"07:00","off":"07:00"}`,
		"/cycles/1": `{"on":"noon"}`,
	}
	for path, body := range bad {
		if resp := ts.do(t, "PUT", path, body); resp.StatusCode != 400 {
			t.Errorf("%s %s: status %d, want 400", path, body, resp.StatusCode)
		}
	}
	if resp := ts.do(t, "PUT", "/cycles/x", `{}`); resp.StatusCode != 404 {
		t.Errorf("non-numeric index: status %d, want 404", resp.StatusCode)
	}
}

func TestQueueFull(t *testing.T) {
	ts := newTestServer(t, 0)
	if resp := ts.do(t, "POST", "/outlet?action=on", ""); resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status: got %d, want 503", resp.StatusCode)
	}
}

func TestMetricsAndAccessLog(t *testing.T) {
	var access bytes.Buffer
	tr := status.NewTracker("boot-1", time.Now(), status.Config{Name: "porch"})
	srv := New(Options{
		Tracker:  tr,
		Commands: make(chan control.Command, 1),
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, "outlet_relay_on 1\n")
		}),
		AccessLog: &access,
	})

	// Served in-process so the log line is written before we read it.
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if !strings.Contains(rec.Body.String(), "outlet_relay_on 1") {
		t.Errorf("unexpected metrics body %q", rec.Body.String())
	}
	if !strings.Contains(access.String(), `"GET /metrics HTTP/1.1" 200`) {
		t.Errorf("access log missing request: %q", access.String())
	}
}
