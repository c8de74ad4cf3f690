package mqtt

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/sweeney/wifi-outlet/internal/logic"
)

// DefaultOutboxSize is the number of messages kept while the broker is unreachable.
const DefaultOutboxSize = 100

// Options configures a RealPublisher.
type Options struct {
	Broker     string
	ClientID   string
	Topics     Topics
	OutboxSize int
	Logger     *slog.Logger
}

// RealPublisher publishes to an actual MQTT broker and receives commands
// on the command topic. Messages published while disconnected are buffered
// and replayed on reconnect.
type RealPublisher struct {
	client   paho.Client
	topics   Topics
	log      *slog.Logger
	commands chan []byte

	mu        sync.Mutex
	outbox    *outbox
	connected bool // at least one successful connection
	online    bool // between a connect and the next connection loss
}

// NewRealPublisher creates a publisher for the given broker. If the broker is
// not reachable within the connect timeout the publisher is still returned:
// paho keeps retrying in the background and messages are buffered meanwhile.
func NewRealPublisher(o Options) (*RealPublisher, error) {
	if o.OutboxSize <= 0 {
		o.OutboxSize = DefaultOutboxSize
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	p := &RealPublisher{
		topics:   o.Topics,
		log:      o.Logger.With("component", "mqtt"),
		commands: make(chan []byte, 16),
		outbox:   newOutbox(o.OutboxSize),
	}

	opts := paho.NewClientOptions().
		AddBroker(o.Broker).
		SetClientID(o.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetWill(o.Topics.System, string(WillPayload()), 1, true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			p.goOffline()
			p.log.Warn("connection lost", "err", err)
		})

	p.client = paho.NewClient(opts)
	token := p.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		p.log.Warn("broker not reachable yet, queueing", "broker", o.Broker)
		return p, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}
	return p, nil
}

func (p *RealPublisher) onConnect(c paho.Client) {
	token := c.Subscribe(p.topics.Command, 1, func(_ paho.Client, msg paho.Message) {
		select {
		case p.commands <- msg.Payload():
		default:
			p.log.Warn("command queue full, dropping", "topic", msg.Topic())
		}
	})
	if token.WaitTimeout(5*time.Second) && token.Error() != nil {
		p.log.Error("subscribe failed", "topic", p.topics.Command, "err", token.Error())
	}

	reconnect, pending := p.goOnline()
	if reconnect {
		payload, _ := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: "RECONNECTED"})
		c.Publish(p.topics.System, 1, false, payload)
	}
	if len(pending) > 0 {
		p.log.Info("replaying queued messages", "count", len(pending))
	}
	for _, m := range pending {
		t := c.Publish(m.topic, m.qos, m.retained, m.payload)
		if t.WaitTimeout(5*time.Second) && t.Error() != nil {
			p.log.Error("replay failed", "topic", m.topic, "err", t.Error())
		}
	}
}

// goOnline marks the connection usable and takes the queued messages. Sends
// that raced with it either made the flush or see online and publish
// directly.
func (p *RealPublisher) goOnline() (reconnect bool, pending []outboxMsg) {
	p.mu.Lock()
	defer p.mu.Unlock()
	reconnect = p.connected
	p.connected = true
	p.online = true
	return reconnect, p.outbox.flush()
}

func (p *RealPublisher) goOffline() {
	p.mu.Lock()
	p.online = false
	p.mu.Unlock()
}

// queueIfOffline holds m for replay unless the connection is up.
func (p *RealPublisher) queueIfOffline(m outboxMsg) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.online {
		return false
	}
	if p.outbox.add(m) {
		p.log.Warn("outbox full, dropping oldest", "limit", p.outbox.limit)
	}
	return true
}

func (p *RealPublisher) send(topic string, qos byte, retained bool, payload []byte) error {
	if p.queueIfOffline(outboxMsg{topic: topic, payload: payload, qos: qos, retained: retained}) {
		return nil
	}

	token := p.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish to %s: timeout", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

// Publish sends an outlet event to the MQTT broker.
func (p *RealPublisher) Publish(event logic.Event) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	// QoS 1: transitions are rare and worth delivering.
	return p.send(p.topics.Events, 1, false, payload)
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	return p.send(p.topics.System, 1, event.Retained, payload)
}

// Commands returns the channel of raw command payloads.
func (p *RealPublisher) Commands() <-chan []byte {
	return p.commands
}

// IsConnected reports whether the client currently has an open connection.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}

var (
	_ Publisher        = (*RealPublisher)(nil)
	_ ConnectionStatus = (*RealPublisher)(nil)
	_ CommandSource    = (*RealPublisher)(nil)
)
