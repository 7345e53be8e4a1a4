package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tea2x/evm-d-quest/internal/ir"
)

func TestRun_GoldenScenarios(t *testing.T) {
	paths, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err)

			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestRun_Deterministic(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/oracle_and.yaml")
	require.NoError(t, err)

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	a, err := Snapshot(scenario.Name, first)
	require.NoError(t, err)
	b, err := Snapshot(scenario.Name, second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestRun_OracleRequestIDs(t *testing.T) {
	s := minimalScenario(t)
	s.Flow = []Step{
		{Action: ActionEnroll, Quester: alice},
		{Action: ActionEnroll, Quester: bob},
		{Action: ActionValidateQuester, Quester: alice},
		{Action: ActionValidateQuester, Quester: bob},
		{Action: ActionFulfill, Request: "req-2"},
	}
	s.Assertions = []Assertion{
		{Type: AssertMissionStatus, Quester: bob, Node: 2, Done: boolPtr(true)},
		{Type: AssertMissionStatus, Quester: alice, Node: 2, Done: boolPtr(false)},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_ExpectationMismatch(t *testing.T) {
	s := minimalScenario(t)
	s.Flow = []Step{
		{Action: ActionEnroll, Quester: alice},
		{Action: ActionDistribute, Quester: alice, Expect: &Expect{Error: "REENTRANT"}},
		{Action: ActionValidateQuester, Quester: alice, Expect: &Expect{OK: boolPtr(true)}},
		{Action: ActionEnroll, Quester: alice},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 3)
	assert.Contains(t, result.Errors[0], `expected error "REENTRANT", got "NOT_COMPLETED"`)
	assert.Contains(t, result.Errors[1], "expected ok=true, got ok=false")
	assert.Contains(t, result.Errors[2], "unexpected error")
	assert.Contains(t, result.Errors[2], "ALREADY_ENROLLED")

	require.Len(t, result.Trace, 4)
	assert.Equal(t, "NOT_COMPLETED", result.Trace[1].Error)
	assert.Equal(t, "ALREADY_ENROLLED", result.Trace[3].Error)
}

func TestRun_AssertionFailure(t *testing.T) {
	s := minimalScenario(t)
	s.Assertions = []Assertion{
		{Type: AssertProgress, Quester: alice, Progress: "Completed"},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "Assertion failed: progress")
	assert.Contains(t, result.Errors[0], "Actual: InProgress")
}

func TestRun_WithDBContinuesSequence(t *testing.T) {
	db := filepath.Join(t.TempDir(), "events.db")
	s := minimalScenario(t)

	first, err := Run(s, WithDB(db))
	require.NoError(t, err)
	require.True(t, first.Pass, "errors: %v", first.Errors)
	require.Len(t, first.Events, 3)

	second, err := Run(s, WithDB(db))
	require.NoError(t, err)
	require.True(t, second.Pass, "errors: %v", second.Errors)

	require.Len(t, second.Events, 6)
	assert.Equal(t, int64(4), second.Events[3].Seq)
	assert.Equal(t, ir.EventFormulaSet, second.Events[3].Kind)
	assert.Equal(t, int64(6), second.Events[5].Seq)
}

func TestRun_UnknownQuestID(t *testing.T) {
	s := minimalScenario(t)
	s.QuestID = "missing"

	_, err := Run(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `quest "missing" not declared`)
}

const (
	alice = "0x0000000000000000000000000000000000000011"
	bob   = "0x0000000000000000000000000000000000000022"
)

func minimalScenario(t *testing.T) *Scenario {
	t.Helper()
	return &Scenario{
		Name:        "minimal",
		Description: "one enrollment",
		Quest:       genesisDir(t),
		Flow:        []Step{{Action: ActionEnroll, Quester: alice}},
		Assertions:  []Assertion{{Type: AssertProgress, Quester: alice, Progress: "InProgress"}},
	}
}
