package web

import (
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"time"

	"github.com/sweeney/occupancy-sensor/internal/logic"
	"github.com/sweeney/occupancy-sensor/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"ago": func(now, t time.Time) string {
		if t.IsZero() {
			return "never"
		}
		return now.Sub(t).Truncate(time.Second).String() + " ago"
	},
	"yesno": func(b bool) string {
		if b {
			return "yes"
		}
		return "no"
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="5">
<title>Occupancy Sensor</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.occupied { color: green; font-weight: bold; }
.vacant { color: #888; }
.unknown { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Occupancy Sensor</h1>

<h2>State</h2>
<table>
<tr><th>Status</th><td id="state" class="{{.LabelClass}}">{{.Label}} ({{.Engine.Status}})</td></tr>
<tr><th>Door</th><td>{{if .Engine.DoorClosed}}closed{{else}}open{{end}}, changed {{ago .Now .Engine.DoorChangedAt}}</td></tr>
<tr><th>Occupied</th><td>{{yesno .Engine.Occupied}}</td></tr>
<tr><th>Motion</th><td>{{if .Engine.MotionActive}}active{{else}}idle{{end}}, last {{ago .Now .Engine.LastMotionAt}}</td></tr>
<tr><th>Last bump</th><td>{{ago .Now .Engine.LastBumpAt}}</td></tr>
<tr><th>Last status</th><td>{{ago .Now .Engine.LastSentAt}}</td></tr>
</table>

<h2>Environment</h2>
<table>
{{range .Environment}}<tr><th>{{.Name}}</th><td>{{printf "%.2f" .Value}}</td></tr>
{{else}}<tr><td>no readings yet</td></tr>
{{end}}</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
<tr><th>Topic prefix</th><td>{{.Config.TopicPrefix}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>Publish Counts</h2>
<table>
<tr><th>Door</th><td>{{.Engine.Counts.Door}}</td></tr>
<tr><th>Occupancy</th><td>{{.Engine.Counts.Occupancy}}</td></tr>
<tr><th>Motion</th><td>{{.Engine.Counts.Motion}}</td></tr>
<tr><th>Motion ended</th><td>{{.Engine.Counts.MotionEnded}}</td></tr>
<tr><th>Keepalive</th><td>{{.Engine.Counts.Keepalive}}</td></tr>
<tr><th>Bumps dropped</th><td>{{.Engine.Counts.BumpsDropped}}</td></tr>
<tr><th>Events dropped</th><td>{{.EventsDropped}}</td></tr>
<tr><th>Button presses</th><td>{{.Engine.ButtonCount}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Node</th><td>{{.Config.NodeID}}</td></tr>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Door poll</th><td>{{.Config.DoorPollMs}}ms</td></tr>
<tr><th>Keepalive</th><td>{{.Config.KeepaliveMs}}ms</td></tr>
<tr><th>Accel position</th><td>{{if eq .Config.AccelPositionMs 0}}disabled{{else}}{{.Config.AccelPositionMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> | <a href="/metrics">metrics</a></p>
</body>
</html>
`

type envRow struct {
	Name  string
	Value float64
}

func renderHTML(w io.Writer, snap status.Snapshot) {
	label := "UNKNOWN"
	class := "unknown"
	if snap.Updated {
		label = snap.Engine.Status.Label()
		class = "vacant"
		if label != "VACANT" {
			class = "occupied"
		}
	}

	var env []envRow
	for _, c := range logic.Channels {
		if v, ok := snap.Engine.Environment[c]; ok {
			env = append(env, envRow{Name: string(c), Value: v})
		}
	}

	data := struct {
		status.Snapshot
		Uptime      time.Duration
		Label       string
		LabelClass  string
		Environment []envRow
	}{
		Snapshot:    snap,
		Uptime:      snap.Uptime(),
		Label:       label,
		LabelClass:  class,
		Environment: env,
	}
	if err := indexTmpl.Execute(w, data); err != nil {
		slog.Warn("render status page", "err", err)
	}
}
