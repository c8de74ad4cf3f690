package mqtt

import "github.com/sweeney/wifi-outlet/internal/logic"

// Message is one publish as the broker would see it.
type Message struct {
	Topic    string
	Payload  []byte
	Retained bool
}

// FakePublisher stands in for the broker in tests. It routes publishes to
// the same topics as RealPublisher and records them in order.
type FakePublisher struct {
	Topics Topics

	// Messages holds every publish in order, outlet and system alike.
	Messages []Message

	// Events and Payloads record outlet events; SystemEvents and
	// SystemPayloads record lifecycle events.
	Events         []logic.Event
	Payloads       [][]byte
	SystemEvents   []SystemEvent
	SystemPayloads [][]byte

	// Injected failures.
	PublishError       error
	PublishSystemError error

	Connected bool
	Closed    bool

	// CommandCh feeds Commands; tests write raw payloads to it.
	CommandCh chan []byte
}

// NewFakePublisher returns a fake publishing to the topics of device "test".
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{
		Topics:    TopicsFor("test"),
		CommandCh: make(chan []byte, 16),
	}
}

func (f *FakePublisher) record(topic string, retained bool, payload []byte) {
	f.Messages = append(f.Messages, Message{Topic: topic, Payload: payload, Retained: retained})
}

// Publish formats and records an outlet event.
func (f *FakePublisher) Publish(event logic.Event) error {
	if f.PublishError != nil {
		return f.PublishError
	}
	payload, err := FormatPayload(event)
	if err != nil {
		return err
	}
	f.record(f.Topics.Events, false, payload)
	f.Events = append(f.Events, event)
	f.Payloads = append(f.Payloads, payload)
	return nil
}

// PublishSystem formats and records a lifecycle event.
func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	if f.PublishSystemError != nil {
		return f.PublishSystemError
	}
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return err
	}
	f.record(f.Topics.System, event.Retained, payload)
	f.SystemEvents = append(f.SystemEvents, event)
	f.SystemPayloads = append(f.SystemPayloads, payload)
	return nil
}

func (f *FakePublisher) Commands() <-chan []byte { return f.CommandCh }

func (f *FakePublisher) IsConnected() bool { return f.Connected }

func (f *FakePublisher) Close() error {
	f.Closed = true
	return nil
}

// Reset forgets everything recorded and clears injected state. Topics and
// the command channel are kept.
func (f *FakePublisher) Reset() {
	*f = FakePublisher{Topics: f.Topics, CommandCh: f.CommandCh}
}

var (
	_ Publisher        = (*FakePublisher)(nil)
	_ ConnectionStatus = (*FakePublisher)(nil)
	_ CommandSource    = (*FakePublisher)(nil)
)
