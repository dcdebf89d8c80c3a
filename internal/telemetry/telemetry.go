// Package telemetry exports transitions and periodic status samples to
// InfluxDB v2. Writes are non-blocking and batched by the client library;
// nothing is ever read back.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/sweeney/tea-sensor/internal/config"
	"github.com/sweeney/tea-sensor/internal/diag"
)

// Measurement names.
const (
	MeasurementTransition = "tea_transition"
	MeasurementStatus     = "tea_status"
)

const connectTimeout = 10 * time.Second

var (
	// ErrDisabled is returned by Connect when export is switched off.
	ErrDisabled = errors.New("telemetry: influxdb disabled")

	// ErrConnectionFailed wraps ping failures during Connect.
	ErrConnectionFailed = errors.New("telemetry: connection failed")
)

// Sample is a periodic status reading.
type Sample struct {
	At          time.Time
	State       string
	LightState  string
	Brightness  float64
	Volume      float64
	Present     bool
	TimeInState time.Duration
}

// Client writes points for one device.
type Client struct {
	client   influxdb2.Client
	writeAPI api.WriteAPI
	deviceID string

	mu      sync.RWMutex
	onError func(error)
}

// Connect creates a client and pings the server once.
func Connect(ctx context.Context, cfg config.InfluxDBConfig, deviceID string) (*Client, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	flushSeconds := cfg.FlushInterval
	if flushSeconds <= 0 {
		flushSeconds = 10
	}

	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(uint(batchSize)).
			SetFlushInterval(uint(flushSeconds)*1000))

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	healthy, err := client.Ping(pingCtx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: ping: %w", ErrConnectionFailed, err)
	}
	if !healthy {
		client.Close()
		return nil, fmt.Errorf("%w: server not healthy", ErrConnectionFailed)
	}

	c := &Client{
		client:   client,
		writeAPI: client.WriteAPI(cfg.Org, cfg.Bucket),
		deviceID: deviceID,
	}
	go c.forwardErrors(c.writeAPI.Errors())
	return c, nil
}

func (c *Client) forwardErrors(errs <-chan error) {
	for err := range errs {
		c.mu.RLock()
		fn := c.onError
		c.mu.RUnlock()
		if fn != nil {
			fn(err)
		}
	}
}

// SetOnError sets the callback for asynchronous write failures.
func (c *Client) SetOnError(fn func(error)) {
	c.mu.Lock()
	c.onError = fn
	c.mu.Unlock()
}

// WriteTransition queues one tea_transition point.
func (c *Client) WriteTransition(t diag.Transition) {
	c.writeAPI.WritePoint(TransitionPoint(c.deviceID, t))
}

// WriteSample queues one tea_status point.
func (c *Client) WriteSample(s Sample) {
	c.writeAPI.WritePoint(StatusPoint(c.deviceID, s))
}

// Close flushes pending points and closes the client.
func (c *Client) Close() error {
	c.writeAPI.Flush()
	c.client.Close()
	return nil
}

// TransitionPoint builds the point for a transition.
func TransitionPoint(deviceID string, t diag.Transition) *write.Point {
	return write.NewPoint(
		MeasurementTransition,
		map[string]string{
			"device_id": deviceID,
			"machine":   t.Machine,
			"from":      t.From,
			"to":        t.To,
		},
		map[string]interface{}{
			"dwell_ms": t.Dwell.Milliseconds(),
			"seq":      int64(t.Seq),
		},
		t.At,
	)
}

// StatusPoint builds the point for a status sample.
func StatusPoint(deviceID string, s Sample) *write.Point {
	return write.NewPoint(
		MeasurementStatus,
		map[string]string{
			"device_id": deviceID,
			"state":     s.State,
			"light":     s.LightState,
		},
		map[string]interface{}{
			"brightness":       s.Brightness,
			"volume":           s.Volume,
			"present":          s.Present,
			"time_in_state_ms": s.TimeInState.Milliseconds(),
		},
		s.At,
	)
}
