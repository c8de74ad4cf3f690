package schedule

// RuleSpec is the text form of a Rule used by config files, HTTP bodies and
// MQTT commands.
type RuleSpec struct {
	Enabled     bool   `json:"enabled" mapstructure:"enabled"`
	Scope       string `json:"scope" mapstructure:"scope"`
	Anchor      string `json:"anchor" mapstructure:"anchor"`
	On          string `json:"on" mapstructure:"on"`
	Off         string `json:"off" mapstructure:"off"`
	SolarOffset int    `json:"solar_offset" mapstructure:"solar_offset"`
	Jitter      int    `json:"jitter" mapstructure:"jitter"`
}

// Rule parses and validates the spec. Empty scope and anchor default to
// daily and fixed; empty times default to midnight.
func (s RuleSpec) Rule() (Rule, error) {
	r := Rule{
		Enabled:     s.Enabled,
		SolarOffset: s.SolarOffset,
		Jitter:      s.Jitter,
	}
	var err error
	if s.Scope != "" {
		if r.Scope, err = ParseScope(s.Scope); err != nil {
			return Rule{}, err
		}
	}
	if s.Anchor != "" {
		if r.Anchor, err = ParseAnchor(s.Anchor); err != nil {
			return Rule{}, err
		}
	}
	if s.On != "" {
		if r.OnTime, err = ParseClock(s.On); err != nil {
			return Rule{}, err
		}
	}
	if s.Off != "" {
		if r.OffTime, err = ParseClock(s.Off); err != nil {
			return Rule{}, err
		}
	}
	if err := r.Validate(); err != nil {
		return Rule{}, err
	}
	return r, nil
}

// SpecOf returns the text form of a rule.
func SpecOf(r Rule) RuleSpec {
	return RuleSpec{
		Enabled:     r.Enabled,
		Scope:       r.Scope.String(),
		Anchor:      r.Anchor.String(),
		On:          FormatClock(r.OnTime),
		Off:         FormatClock(r.OffTime),
		SolarOffset: r.SolarOffset,
		Jitter:      r.Jitter,
	}
}
