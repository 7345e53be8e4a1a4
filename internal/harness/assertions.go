package harness

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/tea2x/evm-d-quest/internal/ir"
	"github.com/tea2x/evm-d-quest/internal/quest"
	"github.com/tea2x/evm-d-quest/internal/testutil"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s", event.Step, event.Action)
			if event.Quester != "" {
				fmt.Fprintf(&buf, " quester=%s", event.Quester)
			}
			if event.Error != "" {
				fmt.Fprintf(&buf, " error=%s", event.Error)
			}
			buf.WriteString("\n")
		}
	}

	return buf.String()
}

// AssertionContext carries the state assertions inspect.
type AssertionContext struct {
	Quest   *quest.Quest
	Events  []ir.Event
	Payouts *testutil.RecordingPayout
}

// EvaluateAssertions runs every assertion and returns the failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluateAssertion(result.Trace, a, actx); err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d: %s", i, err.Error()))
		}
	}
	return errs
}

func evaluateAssertion(trace []TraceEvent, a Assertion, actx *AssertionContext) error {
	switch a.Type {
	case AssertProgress:
		return assertProgress(trace, a, actx.Quest)
	case AssertRewardsAvailable:
		return assertRewardsAvailable(trace, a, actx.Quest)
	case AssertEventCount:
		return assertEventCount(trace, a, actx.Events)
	case AssertEventOrder:
		return assertEventOrder(trace, a, actx.Events)
	case AssertPayoutTotal:
		return assertPayoutTotal(trace, a, actx.Payouts)
	case AssertMissionStatus:
		return assertMissionStatus(trace, a, actx.Quest)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func assertProgress(trace []TraceEvent, a Assertion, q *quest.Quest) error {
	got := q.Progress(common.HexToAddress(a.Quester)).String()
	if got != a.Progress {
		return &AssertionError{
			Type:     AssertProgress,
			Expected: fmt.Sprintf("%s is %s", a.Quester, a.Progress),
			Actual:   got,
			Trace:    trace,
		}
	}
	return nil
}

func assertRewardsAvailable(trace []TraceEvent, a Assertion, q *quest.Quest) error {
	got := q.RewardsAvailable()
	if got != *a.Available {
		return &AssertionError{
			Type:     AssertRewardsAvailable,
			Expected: fmt.Sprintf("rewards_available=%t", *a.Available),
			Actual:   fmt.Sprintf("rewards_available=%t", got),
			Trace:    trace,
		}
	}
	return nil
}

// assertEventCount checks that exactly Count journaled events have Kind,
// optionally restricted to one quester.
func assertEventCount(trace []TraceEvent, a Assertion, events []ir.Event) error {
	quester := ""
	if a.Quester != "" {
		quester = common.HexToAddress(a.Quester).Hex()
	}

	count := 0
	for _, ev := range events {
		if string(ev.Kind) != a.Kind {
			continue
		}
		if quester != "" && ev.Quester != quester {
			continue
		}
		count++
	}

	if count != a.Count {
		return &AssertionError{
			Type:     AssertEventCount,
			Expected: fmt.Sprintf("%d %s events", a.Count, a.Kind),
			Actual:   fmt.Sprintf("%d events", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertEventOrder checks that the kinds appear as a subsequence of the
// journal. Intervening events are allowed.
func assertEventOrder(trace []TraceEvent, a Assertion, events []ir.Event) error {
	next := 0
	for _, ev := range events {
		if next < len(a.Kinds) && string(ev.Kind) == a.Kinds[next] {
			next++
		}
	}

	if next < len(a.Kinds) {
		seen := make([]string, len(events))
		for i, ev := range events {
			seen[i] = string(ev.Kind)
		}
		return &AssertionError{
			Type:     AssertEventOrder,
			Expected: fmt.Sprintf("events in order: %v", a.Kinds),
			Actual:   fmt.Sprintf("missing %s in %v", a.Kinds[next], seen),
			Trace:    trace,
		}
	}
	return nil
}

func assertPayoutTotal(trace []TraceEvent, a Assertion, payouts *testutil.RecordingPayout) error {
	want, ok := new(big.Int).SetString(a.Total, 10)
	if !ok {
		return fmt.Errorf("payout_total: invalid total %q", a.Total)
	}
	got := payouts.Total(a.Kind, common.HexToAddress(a.Quester))
	if got.Cmp(want) != 0 {
		return &AssertionError{
			Type:     AssertPayoutTotal,
			Expected: fmt.Sprintf("%s %s paid to %s", a.Total, a.Kind, a.Quester),
			Actual:   got.String(),
			Trace:    trace,
		}
	}
	return nil
}

func assertMissionStatus(trace []TraceEvent, a Assertion, q *quest.Quest) error {
	got := q.MissionStatus(common.HexToAddress(a.Quester), a.Node)
	if got != *a.Done {
		return &AssertionError{
			Type:     AssertMissionStatus,
			Expected: fmt.Sprintf("node %d done=%t for %s", a.Node, *a.Done, a.Quester),
			Actual:   fmt.Sprintf("done=%t", got),
			Trace:    trace,
		}
	}
	return nil
}
