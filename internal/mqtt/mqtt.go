// Package mqtt carries outlet events to the broker and remote commands back.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/wifi-outlet/internal/logic"
)

// TopicPrefix is the root of every topic used by an outlet.
const TopicPrefix = "home/outlet"

// Topics are the per-device MQTT topics.
type Topics struct {
	Events  string // relay transitions
	System  string // lifecycle, retained
	Command string // inbound
}

// TopicsFor returns the topics for the named device.
func TopicsFor(name string) Topics {
	base := TopicPrefix + "/" + name
	return Topics{
		Events:  base + "/events",
		System:  base + "/system",
		Command: base + "/command",
	}
}

// Publisher is the outbound side of the broker connection. Publish errors
// are reported, never fatal.
type Publisher interface {
	Publish(event logic.Event) error
	PublishSystem(event SystemEvent) error
	Close() error
}

type ConnectionStatus interface {
	IsConnected() bool
}

// CommandSource yields raw payloads received on the command topic.
type CommandSource interface {
	Commands() <-chan []byte
}

// SystemEvent is a lifecycle message. When Body is set it is sent as is;
// otherwise a small {"system": ...} document is built from the other fields.
type SystemEvent struct {
	Timestamp time.Time
	Event     string
	Reason    string
	Body      []byte
	Retained  bool
}

// Payload is the document published on the events topic.
type Payload struct {
	Outlet OutletPayload `json:"outlet"`
}

type OutletPayload struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	State     string `json:"state"`
	Source    string `json:"source"`
	Cycle     *int   `json:"cycle,omitempty"`
}

func stamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// FormatPayload encodes a relay transition. Cycle is omitted for manual
// changes.
func FormatPayload(event logic.Event) ([]byte, error) {
	p := OutletPayload{
		Timestamp: stamp(event.Timestamp),
		Event:     string(event.Type),
		State:     string(event.State),
		Source:    string(event.Source),
	}
	if c := event.Cycle; c != logic.NoCycle {
		p.Cycle = &c
	}
	return json.Marshal(Payload{Outlet: p})
}

type systemBody struct {
	System struct {
		Timestamp string `json:"timestamp,omitempty"`
		Event     string `json:"event"`
		Reason    string `json:"reason,omitempty"`
	} `json:"system"`
}

// FormatSystemPayload returns event.Body, or a minimal document when no body
// was supplied.
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.Body != nil {
		return event.Body, nil
	}
	var b systemBody
	b.System.Event = event.Event
	b.System.Reason = event.Reason
	if !event.Timestamp.IsZero() {
		b.System.Timestamp = stamp(event.Timestamp)
	}
	return json.Marshal(b)
}

// WillPayload is registered as the last will and published, retained, if
// the outlet drops off the network.
func WillPayload() []byte {
	b, _ := FormatSystemPayload(SystemEvent{Event: "OFFLINE", Reason: "CONNECTION_LOST"})
	return b
}
