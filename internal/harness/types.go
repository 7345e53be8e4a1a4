package harness

import "github.com/tea2x/evm-d-quest/internal/ir"

// TraceEvent records one executed flow step.
type TraceEvent struct {
	Step    int    `json:"step"`
	Action  string `json:"action"`
	Quester string `json:"quester,omitempty"`
	Node    uint64 `json:"node,omitempty"`
	Request string `json:"request,omitempty"`
	OK      *bool  `json:"ok,omitempty"`    // validation steps only
	Error   string `json:"error,omitempty"` // error code, empty on success
}

// PayoutRecord is one reward-moving call made during the run.
type PayoutRecord struct {
	Kind      string `json:"kind"`
	Token     string `json:"token,omitempty"`
	From      string `json:"from,omitempty"`
	To        string `json:"to"`
	Value     string `json:"value,omitempty"`
	Condition string `json:"condition,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace contains the executed steps in order.
	Trace []TraceEvent `json:"trace"`

	// Events contains the events journaled during the run, in seq order.
	Events []ir.Event `json:"events"`

	// Payouts contains the successful payout calls, in order.
	Payouts []PayoutRecord `json:"payouts"`

	// Errors contains expectation and assertion failures.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:    true,
		Trace:   []TraceEvent{},
		Events:  []ir.Event{},
		Payouts: []PayoutRecord{},
		Errors:  []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
