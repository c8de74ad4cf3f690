package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/wifi-outlet/internal/status"
)

var funcs = template.FuncMap{
	"uptime":  formatUptime,
	"orDash":  orDash,
	"onOff":   onOff,
	"rfc3339": func(t time.Time) string { return t.UTC().Format(time.RFC3339) },
}

var indexTmpl = template.Must(template.New("index").Funcs(funcs).Parse(indexHTML))

// formatUptime renders d as "3d 04:05:06", or "04:05:06" under a day.
func formatUptime(d time.Duration) string {
	secs := int64(d / time.Second)
	days := secs / 86400
	clock := fmt.Sprintf("%02d:%02d:%02d", secs/3600%24, secs/60%60, secs%60)
	if days > 0 {
		return fmt.Sprintf("%dd %s", days, clock)
	}
	return clock
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// onOff picks a CSS class for a two-state cell.
func onOff(b bool) string {
	if b {
		return "good"
	}
	return "bad"
}

// page is the template input. Outlet and Schedule shadow the raw snapshot
// fields with display strings.
type page struct {
	status.Snapshot
	Outlet   string
	Schedule status.ScheduleJSON
}

const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Config.Name}} - Outlet</title>
<style>
body { font: 15px/1.4 system-ui, sans-serif; max-width: 36em; margin: 1.5em auto; padding: 0 1em; color: #222; }
section { margin-bottom: 1.5em; }
h1 { margin-bottom: 0.2em; }
h2 { font-size: 1em; text-transform: uppercase; letter-spacing: 0.05em; color: #666; border-bottom: 2px solid #eee; }
table { width: 100%; border-spacing: 0; }
th { text-align: left; font-weight: normal; color: #666; width: 35%; padding: 2px 0; }
td { padding: 2px 0; }
#relay-state { font-size: 1.6em; font-weight: bold; }
#relay-state.on { color: #1a7f37; }
#relay-state.off { color: #999; }
#relay-state.unknown { color: #bf8700; }
.good { color: #1a7f37; }
.bad { color: #cf222e; }
tr.inactive td { color: #aaa; }
form button { font-size: 1.1em; padding: 0.3em 1.5em; }
</style>
</head>
<body>
<h1>Outlet: {{.Config.Name}}</h1>

<section>
<p id="relay-state" class="{{if eq .Outlet "ON"}}on{{else if eq .Outlet "OFF"}}off{{else}}unknown{{end}}">{{.Outlet}}</p>
<form method="post" action="/?outlet=toggle"><button type="submit">Toggle</button></form>
</section>

<section>
<h2>Schedule</h2>
<table>
<tr><th>Status</th><td class="{{onOff .Schedule.Enabled}}">{{if .Schedule.Enabled}}enabled{{else}}disabled{{end}}</td></tr>
<tr><th>Clock</th><td class="{{onOff .ClockSynced}}">{{if .ClockSynced}}synchronized{{else}}waiting for NTP{{end}}</td></tr>
{{- if .Schedule.Resolved}}
<tr><th>Sunrise</th><td>{{orDash .Schedule.Sunrise}}</td></tr>
<tr><th>Solar noon</th><td>{{.Schedule.Noon}}</td></tr>
<tr><th>Sunset</th><td>{{orDash .Schedule.Sunset}}</td></tr>
{{- if ne .Schedule.Day "normal"}}
<tr><th>Day</th><td>{{.Schedule.Day}}</td></tr>
{{- end}}
{{- end}}
</table>
{{- with .Schedule.Cycles}}
<table>
<tr><th>Cycle</th><th>Rule</th><th>Today</th></tr>
{{- range .}}
<tr{{if not .Active}} class="inactive"{{end}}>
<td>{{.Index}}</td>
<td>{{if .Rule.Enabled}}{{.Rule.Scope}}, {{.Rule.Anchor}}, {{.Rule.On}}-{{.Rule.Off}}{{with .Rule.SolarOffset}}, offset {{.}}m{{end}}{{with .Rule.Jitter}}, &plusmn;{{.}}m{{end}}{{else}}-{{end}}</td>
<td>{{if .Active}}{{.OnAt}} to {{.OffAt}}{{else}}{{.Reason}}{{end}}</td>
</tr>
{{- end}}
</table>
{{- end}}
</section>

<section>
<h2>Transitions since boot</h2>
<table>
<tr><th>On / off</th><td>{{.Counts.On}} / {{.Counts.Off}}</td></tr>
<tr><th>Scheduled / manual</th><td>{{.Counts.Schedule}} / {{.Counts.Manual}}</td></tr>
</table>
</section>

<section>
<h2>Network</h2>
<table>
<tr><th>MQTT</th><td class="{{onOff .MQTTConnected}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}} ({{.Config.Broker}})</td></tr>
{{- with .Network}}
<tr><th>Link</th><td>{{.Status}} via {{orDash .Type}}{{with .SSID}} on {{.}}{{end}}</td></tr>
<tr><th>Address</th><td>{{orDash .IP}}</td></tr>
{{- end}}
</table>
</section>

<section>
<h2>Daemon</h2>
<table>
<tr><th>Up</th><td>{{uptime .Uptime}} since {{rfc3339 .StartTime}}</td></tr>
<tr><th>Boot ID</th><td>{{.BootID}}</td></tr>
<tr><th>Time zone</th><td>{{orDash .Config.Timezone}}</td></tr>
<tr><th>Poll / debounce</th><td>{{.Config.PollMs}}ms / {{.Config.DebounceMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{orDash .Config.Heartbeat}}</td></tr>
</table>
</section>

<p><a href="/index.json">index.json</a> &middot; <a href="/metrics">metrics</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) error {
	outlet := string(snap.Outlet)
	if outlet == "" {
		outlet = "UNKNOWN"
	}
	return indexTmpl.Execute(w, page{
		Snapshot: snap,
		Outlet:   outlet,
		Schedule: status.BuildSchedule(snap.Schedule),
	})
}
