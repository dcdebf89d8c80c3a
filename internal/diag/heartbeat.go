package diag

import "time"

// HeartbeatData is produced each time a heartbeat interval elapses.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
}

// Heartbeat tracks when the next periodic status report is due.
type Heartbeat struct {
	interval time.Duration
	start    time.Time
	last     time.Time
}

// NewHeartbeat creates a Heartbeat. An interval <= 0 disables it.
func NewHeartbeat(interval time.Duration, start time.Time) *Heartbeat {
	return &Heartbeat{
		interval: interval,
		start:    start,
		last:     start,
	}
}

// Check returns heartbeat data if the interval has elapsed since the last
// heartbeat (or startup).
func (h *Heartbeat) Check(now time.Time) (HeartbeatData, bool) {
	if h.interval <= 0 || now.Sub(h.last) < h.interval {
		return HeartbeatData{}, false
	}
	h.last = now
	return HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(h.start),
	}, true
}
