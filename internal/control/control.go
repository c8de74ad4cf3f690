// Package control defines the remote commands accepted over HTTP and MQTT.
// Commands are validated here and executed by the main loop.
package control

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sweeney/wifi-outlet/internal/logic"
	"github.com/sweeney/wifi-outlet/internal/schedule"
)

// Kind is the action a command requests.
type Kind string

const (
	KindOn       Kind = "on"
	KindOff      Kind = "off"
	KindToggle   Kind = "toggle"
	KindEnable   Kind = "enable"  // resume the schedule
	KindDisable  Kind = "disable" // suspend the schedule
	KindSetCycle Kind = "set-cycle"
)

// ErrUnknownCommand is returned for a command kind that is not recognised.
var ErrUnknownCommand = errors.New("unknown command")

// Command is a validated request to change the outlet or its schedule.
type Command struct {
	Kind   Kind
	Source logic.Source
	Cycle  int           // set-cycle only
	Rule   schedule.Rule // set-cycle only
}

// ParseKind parses a command kind, case-insensitively.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	switch k {
	case KindOn, KindOff, KindToggle, KindEnable, KindDisable, KindSetCycle:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCommand, s)
}

// Message is the JSON form of a command on the MQTT command topic.
//
//	{"command":"toggle"}
//	{"command":"set-cycle","cycle":2,"rule":{"enabled":true,"anchor":"sunset-on","off":"23:00"}}
type Message struct {
	Command string             `json:"command"`
	Cycle   *int               `json:"cycle,omitempty"`
	Rule    *schedule.RuleSpec `json:"rule,omitempty"`
}

// Parse decodes and validates a JSON command.
func Parse(payload []byte, source logic.Source) (Command, error) {
	var m Message
	if err := json.Unmarshal(payload, &m); err != nil {
		return Command{}, fmt.Errorf("decode command: %w", err)
	}
	return m.Resolve(source)
}

// Resolve validates the message and converts it to a Command.
func (m Message) Resolve(source logic.Source) (Command, error) {
	kind, err := ParseKind(m.Command)
	if err != nil {
		return Command{}, err
	}
	cmd := Command{Kind: kind, Source: source}
	if kind != KindSetCycle {
		return cmd, nil
	}

	if m.Cycle == nil {
		return Command{}, errors.New("set-cycle: missing cycle")
	}
	if m.Rule == nil {
		return Command{}, errors.New("set-cycle: missing rule")
	}
	return SetCycle(*m.Cycle, *m.Rule, source)
}

// SetCycle builds a validated set-cycle command.
func SetCycle(index int, spec schedule.RuleSpec, source logic.Source) (Command, error) {
	if index < 0 || index >= schedule.MaxCycles {
		return Command{}, fmt.Errorf("set-cycle: cycle %d out of range 0-%d", index, schedule.MaxCycles-1)
	}
	rule, err := spec.Rule()
	if err != nil {
		return Command{}, fmt.Errorf("set-cycle: %w", err)
	}
	return Command{Kind: KindSetCycle, Source: source, Cycle: index, Rule: rule}, nil
}
