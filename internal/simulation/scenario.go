// Package simulation replays scripted process values and operator commands
// against an in-process alarm registry.
package simulation

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/qj0r9j0vc2/alarm-engine/internal/infrastructure/config"
	"github.com/qj0r9j0vc2/alarm-engine/internal/usecase/alarm"
)

// Step actions besides the operator actions accepted by alarm.Actions.
const (
	ActionValue   = "value"
	ActionSummary = "summary"
	ActionAlarms  = "alarms"
)

// Step is one scenario instruction.
type Step struct {
	Action   string   `yaml:"action"`
	Tag      string   `yaml:"tag,omitempty"`
	Value    *float64 `yaml:"value,omitempty"`
	Operator string   `yaml:"operator,omitempty"`
}

// Scenario is a named list of steps, optionally with its own alarm set.
type Scenario struct {
	Name   string               `yaml:"name"`
	Alarms []config.AlarmConfig `yaml:"alarms"`
	Steps  []Step               `yaml:"steps"`
}

// LoadScenario reads and validates a YAML scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario: %w", err)
	}

	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing scenario: %w", err)
	}
	if s.Name == "" {
		s.Name = path
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks every step names a known action and carries what it needs.
func (s *Scenario) Validate() error {
	if len(s.Steps) == 0 {
		return fmt.Errorf("scenario %q has no steps", s.Name)
	}

	operator := make(map[string]bool)
	for _, a := range alarm.Actions() {
		operator[a] = true
	}

	var errs []string
	for i, step := range s.Steps {
		action := strings.ToLower(step.Action)
		switch {
		case action == ActionValue:
			if step.Tag == "" || step.Value == nil {
				errs = append(errs, fmt.Sprintf("steps[%d]: value needs tag and value", i))
			}
		case action == ActionSummary || action == ActionAlarms:
		case operator[action]:
			if step.Tag == "" {
				errs = append(errs, fmt.Sprintf("steps[%d]: %s needs a tag", i, action))
			}
		default:
			errs = append(errs, fmt.Sprintf("steps[%d]: unknown action %q", i, step.Action))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid scenario %q:\n  - %s", s.Name, strings.Join(errs, "\n  - "))
	}
	return nil
}

// DemoAlarms is the alarm set used when nothing else is configured.
func DemoAlarms() []config.AlarmConfig {
	return []config.AlarmConfig{
		{Tag: "TT101", Description: "Reactor Temperature High", Priority: "HIGH", Setpoint: 150, Deadband: 2},
		{Tag: "PT202", Description: "Feed Pressure Low", Priority: "MEDIUM", Setpoint: 50, Deadband: 5},
		{Tag: "FT303", Description: "Coolant Flow Low", Priority: "CRITICAL", Setpoint: 20, Deadband: 1},
		{Tag: "LT404", Description: "Tank Level High", Priority: "LOW", Setpoint: 80, Deadband: 3},
	}
}

// DemoScenario triggers TT101, feeds FT303 a low flow, acknowledges and
// clears TT101, then shelves FT303.
func DemoScenario() *Scenario {
	value := func(v float64) *float64 { return &v }
	return &Scenario{
		Name: "demo",
		Steps: []Step{
			{Action: ActionAlarms},
			{Action: ActionValue, Tag: "TT101", Value: value(155)},
			{Action: ActionValue, Tag: "FT303", Value: value(15)},
			{Action: ActionSummary},
			{Action: alarm.ActionAcknowledge, Tag: "TT101"},
			{Action: ActionValue, Tag: "TT101", Value: value(145)},
			{Action: alarm.ActionShelve, Tag: "FT303"},
			{Action: ActionSummary},
		},
	}
}
