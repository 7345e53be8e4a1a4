package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/tea2x/evm-d-quest/internal/ir"
)

// TraceSnapshot captures what a scenario run observably did.
// All fields use canonical JSON serialization for deterministic comparison.
type TraceSnapshot struct {
	ScenarioName string         `json:"scenario_name"`
	Trace        []TraceEvent   `json:"trace"`
	Events       []ir.Event     `json:"events"`
	Payouts      []PayoutRecord `json:"payouts"`
}

// toCanonicalMap converts a TraceSnapshot to a map[string]any for canonical
// JSON serialization. Event digests are left out so snapshots survive
// changes to the digest encoding.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	traceList := make([]any, len(s.Trace))
	for i, event := range s.Trace {
		m := map[string]any{
			"step":   event.Step,
			"action": event.Action,
		}
		if event.Quester != "" {
			m["quester"] = event.Quester
		}
		if event.Node != 0 {
			m["node"] = event.Node
		}
		if event.Request != "" {
			m["request"] = event.Request
		}
		if event.OK != nil {
			m["ok"] = *event.OK
		}
		if event.Error != "" {
			m["error"] = event.Error
		}
		traceList[i] = m
	}

	eventList := make([]any, len(s.Events))
	for i, ev := range s.Events {
		m := map[string]any{
			"seq":   ev.Seq,
			"quest": ev.Quest,
			"kind":  string(ev.Kind),
		}
		if ev.Quester != "" {
			m["quester"] = ev.Quester
		}
		if ev.Generation != 0 {
			m["generation"] = ev.Generation
		}
		if ev.RootID != 0 {
			m["root_id"] = ev.RootID
		}
		if ev.Count != 0 {
			m["count"] = ev.Count
		}
		if ev.OutcomeIndex != 0 {
			m["outcome_index"] = ev.OutcomeIndex
		}
		if ev.Selector != "" {
			m["selector"] = ev.Selector
		}
		if ev.Amount != "" {
			m["amount"] = ev.Amount
		}
		eventList[i] = m
	}

	payoutList := make([]any, len(s.Payouts))
	for i, p := range s.Payouts {
		m := map[string]any{
			"kind": p.Kind,
			"to":   p.To,
		}
		if p.Token != "" {
			m["token"] = p.Token
		}
		if p.From != "" {
			m["from"] = p.From
		}
		if p.Value != "" {
			m["value"] = p.Value
		}
		if p.Condition != "" {
			m["condition"] = p.Condition
		}
		payoutList[i] = m
	}

	return map[string]any{
		"scenario_name": s.ScenarioName,
		"trace":         traceList,
		"events":        eventList,
		"payouts":       payoutList,
	}
}

// Snapshot renders the result as canonical JSON.
func Snapshot(name string, result *Result) ([]byte, error) {
	snapshot := TraceSnapshot{
		ScenarioName: name,
		Trace:        result.Trace,
		Events:       result.Events,
		Payouts:      result.Payouts,
	}
	return ir.MarshalCanonical(snapshot.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := Snapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
