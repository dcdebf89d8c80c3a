package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/tea-sensor/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"duration": formatDuration,
	"percent": func(v float64) string {
		return fmt.Sprintf("%.0f%%", v*100)
	},
	"orUnknown": func(s string) string {
		if s == "" {
			return "UNKNOWN"
		}
		return s
	},
	"alerting": func(s string) bool {
		return s == "silent_alert" || s == "sound_alert" || s == "alert_pause"
	},
}).Parse(indexHTML))

func formatDuration(d time.Duration) string {
	d = d.Truncate(time.Second)
	days := int(d.Hours()) / 24
	h := int(d.Hours()) % 24
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
	case h > 0:
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	case m > 0:
		return fmt.Sprintf("%dm %ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="5">
<title>Tea Sensor</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.alert { color: #c00; font-weight: bold; }
.calm { color: green; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Tea Sensor</h1>

<h2>Alarm</h2>
<table>
<tr><th>State</th><td id="state" class="{{if alerting .State}}alert{{else}}calm{{end}}">{{orUnknown .State}}</td></tr>
<tr><th>In state for</th><td>{{duration .TimeInState}}</td></tr>
<tr><th>Volume</th><td>{{percent .Volume}}</td></tr>
{{with .LastTransition}}<tr><th>Last change</th><td>{{.From}} &rarr; {{.To}} at {{.At.UTC.Format "15:04:05Z"}}</td></tr>{{end}}
</table>

<h2>Cup</h2>
<table>
<tr><th>Present</th><td>{{if .Present}}yes{{else}}no{{end}}</td></tr>
<tr><th>Ready</th><td>{{if .Baselined}}yes{{else}}no{{end}}</td></tr>
<tr><th>Placed</th><td>{{.Cups.Placed}}</td></tr>
<tr><th>Lifted</th><td>{{.Cups.Lifted}}</td></tr>
</table>

<h2>Light</h2>
<table>
<tr><th>State</th><td id="light-state">{{orUnknown .LightState}}</td></tr>
<tr><th>Brightness</th><td>{{percent .Brightness}}</td></tr>
<tr><th>Target</th><td>{{percent .Target}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{if .Config.Broker}}{{.Config.Broker}}{{else}}disabled{{end}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}} {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>System</h2>
<table>
<tr><th>Device</th><td>{{.Config.DeviceID}}</td></tr>
<tr><th>Uptime</th><td>{{duration .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Transitions</th><td>alarm {{.Transitions.Alarm}}, light {{.Transitions.Light}}</td></tr>
<tr><th>Brew</th><td>{{.Config.BrewMs}}ms</td></tr>
<tr><th>Drink</th><td>{{.Config.DrinkMs}}ms</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) error {
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	return indexTmpl.Execute(w, data)
}
