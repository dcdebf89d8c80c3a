package mqtt

import (
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/sweeney/tea-sensor/internal/diag"
	"github.com/sweeney/tea-sensor/internal/logging"
)

// Options configures a RealPublisher.
type Options struct {
	Broker   string
	ClientID string
	// BufferSize is the number of messages kept while offline. Zero disables
	// buffering.
	BufferSize int
	Log        *logging.Logger
}

// RealPublisher publishes to a broker through paho. It never blocks the
// caller on the network: publishes are fire-and-forget and messages sent
// while offline are buffered and replayed on connect.
type RealPublisher struct {
	client paho.Client
	log    *logging.Logger

	mu     sync.Mutex
	buffer *ringBuffer
}

// NewRealPublisher creates a publisher and starts connecting in the
// background. It returns immediately even if the broker is unreachable.
func NewRealPublisher(o Options) *RealPublisher {
	if o.Log == nil {
		o.Log = logging.Discard()
	}
	p := &RealPublisher{log: o.Log.With("component", "mqtt")}
	if o.BufferSize > 0 {
		p.buffer = newRingBuffer(o.BufferSize)
	}

	will, _ := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: "OFFLINE", Reason: "LWT"})

	opts := paho.NewClientOptions().
		AddBroker(o.Broker).
		SetClientID(o.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetBinaryWill(TopicSystem, will, 1, true).
		SetOnConnectHandler(func(paho.Client) { p.onConnect() }).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			p.log.Warn("connection lost", "error", err)
		})

	p.client = paho.NewClient(opts)
	p.client.Connect()
	return p
}

// Publish sends a transition at QoS 0.
func (p *RealPublisher) Publish(t diag.Transition) error {
	payload, err := FormatPayload(t)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	return p.publish(bufferedMsg{topic: Topic, payload: payload})
}

// PublishSystem sends a lifecycle event at QoS 1.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	return p.publish(bufferedMsg{topic: TopicSystem, payload: payload, qos: 1, retained: event.Retained})
}

// publish buffers msg while offline. The connection check and the push share
// p.mu with onConnect's drain, so a message is never stranded in the buffer
// after a replay.
func (p *RealPublisher) publish(msg bufferedMsg) error {
	p.mu.Lock()
	if !p.client.IsConnectionOpen() {
		defer p.mu.Unlock()
		if p.buffer == nil {
			return ErrNotConnected
		}
		if p.buffer.push(msg) {
			p.log.Debug("offline buffer full, dropped oldest message")
		}
		return nil
	}
	p.mu.Unlock()
	p.send(msg)
	return nil
}

func (p *RealPublisher) send(msg bufferedMsg) {
	token := p.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
	go func() {
		if !token.WaitTimeout(5 * time.Second) {
			p.log.Warn("publish timeout", "topic", msg.topic)
			return
		}
		if err := token.Error(); err != nil {
			p.log.Warn("publish failed", "topic", msg.topic, "error", err)
		}
	}()
}

// onConnect replays buffered messages and announces the reconnection.
func (p *RealPublisher) onConnect() {
	p.mu.Lock()
	var queued []bufferedMsg
	var dropped int
	if p.buffer != nil {
		queued, dropped = p.buffer.drainAll()
	}
	p.mu.Unlock()

	p.log.Info("connected", "replayed", len(queued), "dropped", dropped)
	for _, msg := range queued {
		p.send(msg)
	}

	payload, err := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: "RECONNECTED"})
	if err == nil {
		p.send(bufferedMsg{topic: TopicSystem, payload: payload, qos: 1, retained: true})
	}
}

// IsConnected reports whether the client currently has an open connection.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Buffered returns the number of messages waiting for a connection.
func (p *RealPublisher) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.buffer == nil {
		return 0
	}
	return p.buffer.len()
}

// Close disconnects, allowing up to a second for in-flight messages.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000)
	return nil
}
