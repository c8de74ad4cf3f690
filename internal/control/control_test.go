package control

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/wifi-outlet/internal/logic"
	"github.com/sweeney/wifi-outlet/internal/schedule"
)

func TestParseSimpleCommands(t *testing.T) {
	for _, kind := range []Kind{KindOn, KindOff, KindToggle, KindEnable, KindDisable} {
		cmd, err := Parse([]byte(`{"command":"`+string(kind)+`"}`), logic.SourceMQTT)
		require.NoError(t, err, kind)
		assert.Equal(t, kind, cmd.Kind)
		assert.Equal(t, logic.SourceMQTT, cmd.Source)
	}
}

func TestParseIsCaseInsensitive(t *testing.T) {
	cmd, err := Parse([]byte(`{"command":" TOGGLE "}`), logic.SourceMQTT)
	require.NoError(t, err)
	assert.Equal(t, KindToggle, cmd.Kind)
}

func TestParseSetCycle(t *testing.T) {
	payload := `{"command":"set-cycle","cycle":2,"rule":{"enabled":true,"scope":"weekday","anchor":"sunset-on","off":"23:00","solar_offset":15,"jitter":5}}`
	cmd, err := Parse([]byte(payload), logic.SourceMQTT)
	require.NoError(t, err)

	assert.Equal(t, KindSetCycle, cmd.Kind)
	assert.Equal(t, 2, cmd.Cycle)
	assert.Equal(t, schedule.Rule{
		Enabled:     true,
		Scope:       schedule.Weekdays,
		Anchor:      schedule.SunsetAnchoredOn,
		OffTime:     23 * 60,
		SolarOffset: 15,
		Jitter:      5,
	}, cmd.Rule)
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"not json", `toggle`},
		{"unknown command", `{"command":"explode"}`},
		{"missing cycle", `{"command":"set-cycle","rule":{}}`},
		{"missing rule", `{"command":"set-cycle","cycle":1}`},
		{"cycle out of range", `{"command":"set-cycle","cycle":8,"rule":{}}`},
		{"negative cycle", `{"command":"set-cycle","cycle":-1,"rule":{}}`},
		{"bad time", `{"command":"set-cycle","cycle":1,"rule":{"on":"25:00"}}`},
		{"zero length", `{"command":"set-cycle","cycle":1,"rule":{"enabled":true,"on":"07:00","off":"07:00"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.payload), logic.SourceMQTT)
			assert.Error(t, err)
		})
	}
}

func TestParseKindUnknown(t *testing.T) {
	_, err := ParseKind("reboot")
	assert.True(t, errors.Is(err, ErrUnknownCommand))
}
