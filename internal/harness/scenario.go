package harness

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Scenario defines an end-to-end quest scenario.
// It compiles one CUE quest, drives it through a flow of steps and asserts
// on the final state and the journaled events.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name" validate:"required"`

	// Description explains what this scenario validates.
	Description string `yaml:"description" validate:"required"`

	// Quest is the CUE quest directory, relative to the scenario file.
	Quest string `yaml:"quest" validate:"required"`

	// QuestID selects one quest when the directory declares several.
	QuestID string `yaml:"quest_id,omitempty"`

	// Now is the RFC3339 wall time the flow starts at. Defaults to the
	// quest start, or a fixed epoch for ungated quests.
	Now string `yaml:"now,omitempty" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`

	// Flow contains the steps to execute in order.
	Flow []Step `yaml:"flow" validate:"required,min=1,dive"`

	// Assertions validate the final state and event journal.
	Assertions []Assertion `yaml:"assertions" validate:"required,min=1,dive"`

	baseDir string
}

// Step is one action in the flow.
type Step struct {
	// Action is one of the Action* constants.
	Action string `yaml:"action" validate:"required,oneof=enroll validate_quester validate_mission set_status signal fulfill distribute pause resume advance fail_payout heal_payout"`

	// Caller overrides the acting address. Defaults to the quest owner
	// for admin actions and to the node's handler for set_status.
	Caller string `yaml:"caller,omitempty" validate:"omitempty,eth_addr"`

	Quester string `yaml:"quester,omitempty" validate:"omitempty,eth_addr"`

	// Handler selects the flag handler for signal steps. Defaults to the
	// node's handler.
	Handler string `yaml:"handler,omitempty" validate:"omitempty,eth_addr"`

	Node uint64 `yaml:"node,omitempty"`

	// Request is the oracle request id for fulfill steps.
	Request string `yaml:"request,omitempty"`

	// Done is the reported mission status for set_status and fulfill.
	// Defaults to true.
	Done *bool `yaml:"done,omitempty"`

	// Payout is the call kind for fail_payout and heal_payout.
	Payout string `yaml:"payout,omitempty" validate:"omitempty,oneof=native erc20 erc721 sbt conditional"`

	// Duration moves the clock for advance steps (e.g. "720h").
	Duration string `yaml:"duration,omitempty"`

	// Expect validates the step's result. Without it the step must succeed.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect specifies the expected step result.
type Expect struct {
	// OK is the expected answer of a validation step.
	OK *bool `yaml:"ok,omitempty"`

	// Error is the expected error code (e.g. "NOT_COMPLETED").
	// Empty means the step must succeed.
	Error string `yaml:"error,omitempty"`
}

// Assertion validates final state or the event journal.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type" validate:"required,oneof=progress rewards_available event_count event_order payout_total mission_status"`

	Quester string `yaml:"quester,omitempty" validate:"omitempty,eth_addr"`

	// Progress is the expected progress name (used by progress).
	Progress string `yaml:"progress,omitempty" validate:"omitempty,oneof=NotEnrolled InProgress Completed Rewarded"`

	// Available is the expected flag (used by rewards_available).
	Available *bool `yaml:"available,omitempty"`

	// Kind is the event kind (event_count) or payout call kind (payout_total).
	Kind string `yaml:"kind,omitempty"`

	// Count is the expected number of events (used by event_count).
	Count int `yaml:"count,omitempty" validate:"gte=0"`

	// Kinds is the expected relative event order (used by event_order).
	Kinds []string `yaml:"kinds,omitempty"`

	// Total is the expected decimal sum paid to Quester (used by payout_total).
	Total string `yaml:"total,omitempty" validate:"omitempty,number"`

	Node uint64 `yaml:"node,omitempty"`

	// Done is the expected cached status (used by mission_status).
	Done *bool `yaml:"done,omitempty"`
}

// Flow step actions.
const (
	ActionEnroll          = "enroll"
	ActionValidateQuester = "validate_quester"
	ActionValidateMission = "validate_mission"
	ActionSetStatus       = "set_status"
	ActionSignal          = "signal"
	ActionFulfill         = "fulfill"
	ActionDistribute      = "distribute"
	ActionPause           = "pause"
	ActionResume          = "resume"
	ActionAdvance         = "advance"
	ActionFailPayout      = "fail_payout"
	ActionHealPayout      = "heal_payout"
)

// Assertion type constants.
const (
	AssertProgress         = "progress"
	AssertRewardsAvailable = "rewards_available"
	AssertEventCount       = "event_count"
	AssertEventOrder       = "event_order"
	AssertPayoutTotal      = "payout_total"
	AssertMissionStatus    = "mission_status"
)

var scenarioValidate = validator.New(validator.WithRequiredStructEnabled())

func init() {
	scenarioValidate.RegisterStructValidation(stepValidator, Step{})
	scenarioValidate.RegisterStructValidation(assertionValidator, Assertion{})
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Parse YAML with strict field validation (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	scenario.baseDir = filepath.Dir(path)

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// QuestDir returns the quest directory resolved against the scenario file.
func (s *Scenario) QuestDir() string {
	if filepath.IsAbs(s.Quest) || s.baseDir == "" {
		return s.Quest
	}
	return filepath.Join(s.baseDir, s.Quest)
}

// validateScenario checks required fields and per-action arguments.
func validateScenario(s *Scenario) error {
	if err := scenarioValidate.Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%s: failed %q validation", fe.Namespace(), fe.Tag())
		}
		return err
	}

	if _, err := os.Stat(s.QuestDir()); os.IsNotExist(err) {
		return fmt.Errorf("quest directory not found: %s", s.QuestDir())
	}
	return nil
}

func stepValidator(sl validator.StructLevel) {
	step := sl.Current().Interface().(Step)

	switch step.Action {
	case ActionEnroll, ActionValidateQuester, ActionDistribute:
		if step.Quester == "" {
			sl.ReportError(step.Quester, "quester", "Quester", "required_for_action", step.Action)
		}
	case ActionValidateMission, ActionSetStatus, ActionSignal:
		if step.Quester == "" {
			sl.ReportError(step.Quester, "quester", "Quester", "required_for_action", step.Action)
		}
		if step.Node == 0 {
			sl.ReportError(step.Node, "node", "Node", "required_for_action", step.Action)
		}
	case ActionFulfill:
		if step.Request == "" {
			sl.ReportError(step.Request, "request", "Request", "required_for_action", step.Action)
		}
	case ActionAdvance:
		if _, err := time.ParseDuration(step.Duration); err != nil {
			sl.ReportError(step.Duration, "duration", "Duration", "duration", step.Action)
		}
	case ActionFailPayout, ActionHealPayout:
		if step.Payout == "" {
			sl.ReportError(step.Payout, "payout", "Payout", "required_for_action", step.Action)
		}
	}
}

func assertionValidator(sl validator.StructLevel) {
	a := sl.Current().Interface().(Assertion)

	switch a.Type {
	case AssertProgress:
		if a.Quester == "" || a.Progress == "" {
			sl.ReportError(a.Progress, "progress", "Progress", "required_for_type", a.Type)
		}
	case AssertRewardsAvailable:
		if a.Available == nil {
			sl.ReportError(a.Available, "available", "Available", "required_for_type", a.Type)
		}
	case AssertEventCount:
		if a.Kind == "" {
			sl.ReportError(a.Kind, "kind", "Kind", "required_for_type", a.Type)
		}
	case AssertEventOrder:
		if len(a.Kinds) == 0 {
			sl.ReportError(a.Kinds, "kinds", "Kinds", "required_for_type", a.Type)
		}
	case AssertPayoutTotal:
		if a.Quester == "" || a.Kind == "" || a.Total == "" {
			sl.ReportError(a.Total, "total", "Total", "required_for_type", a.Type)
		}
	case AssertMissionStatus:
		if a.Quester == "" || a.Node == 0 || a.Done == nil {
			sl.ReportError(a.Done, "done", "Done", "required_for_type", a.Type)
		}
	}
}
