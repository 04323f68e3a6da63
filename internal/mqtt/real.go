package mqtt

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/sweeney/occupancy-sensor/internal/logic"
)

// Options configures a RealPublisher.
type Options struct {
	Broker   string
	ClientID string
	// Prefix is prepended to every subtopic, e.g. "node/<node-id>".
	Prefix string
	// BufferSize bounds the messages held while disconnected.
	BufferSize int
}

// RealPublisher publishes to an actual MQTT broker.
// Messages published while the connection is down are buffered and replayed
// in order after reconnecting.
type RealPublisher struct {
	client paho.Client
	prefix string

	mu  sync.Mutex
	buf *ringBuffer
}

// NewRealPublisher creates a publisher and starts connecting in the background.
// It does not wait for the broker; messages are buffered until it is reachable.
func NewRealPublisher(o Options) *RealPublisher {
	p := &RealPublisher{
		prefix: o.Prefix,
		buf:    newRingBuffer(o.BufferSize),
	}

	will, _ := FormatSystemPayload(SystemEvent{Event: "OFFLINE", Reason: "CONNECTION_LOST"})

	opts := paho.NewClientOptions().
		AddBroker(o.Broker).
		SetClientID(o.ClientID).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetMaxReconnectInterval(60 * time.Second).
		SetKeepAlive(30 * time.Second).
		SetBinaryWill(Topic(o.Prefix, SubtopicSystem), will, 1, true).
		SetOnConnectHandler(func(paho.Client) {
			slog.Info("mqtt connected", "broker", o.Broker)
			p.flush()
		}).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			slog.Warn("mqtt connection lost", "err", err)
		})

	p.client = paho.NewClient(opts)
	p.client.Connect()
	return p
}

// Publish sends an engine message without waiting for the broker.
func (p *RealPublisher) Publish(msg logic.Message) error {
	payload, err := FormatPayload(msg)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	p.send(bufferedMsg{
		topic:   Topic(p.prefix, msg.Topic),
		payload: payload,
		qos:     QoS(msg.Kind),
	})
	return nil
}

// PublishSystem sends a system lifecycle event and waits for the broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}

	// QoS 1 (at-least-once) - lifecycle events should not be lost
	token := p.client.Publish(Topic(p.prefix, SubtopicSystem), 1, event.Retained, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish system timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish system: %w", err)
	}
	return nil
}

// IsConnected reports whether the broker connection is up.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Buffered returns the number of messages waiting for a connection.
func (p *RealPublisher) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buf.len()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}

func (p *RealPublisher) send(m bufferedMsg) {
	p.mu.Lock()
	defer p.mu.Unlock()

	// Keep ordering: nothing goes out directly while older messages wait.
	if !p.client.IsConnectionOpen() || p.buf.len() > 0 {
		p.buf.push(m)
		return
	}
	p.publish(m)
}

func (p *RealPublisher) flush() {
	p.mu.Lock()
	defer p.mu.Unlock()

	msgs, dropped := p.buf.drain()
	if dropped > 0 {
		slog.Warn("mqtt messages dropped while disconnected", "dropped", dropped)
	}
	if len(msgs) > 0 {
		slog.Info("mqtt replaying buffered messages", "count", len(msgs))
	}
	for _, m := range msgs {
		p.publish(m)
	}
}

// publish hands a message to paho and logs the outcome asynchronously.
func (p *RealPublisher) publish(m bufferedMsg) {
	token := p.client.Publish(m.topic, m.qos, m.retained, m.payload)
	go func() {
		<-token.Done()
		if err := token.Error(); err != nil {
			slog.Error("mqtt publish failed", "topic", m.topic, "err", err)
		}
	}()
}
