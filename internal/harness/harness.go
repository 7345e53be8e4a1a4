package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/tea2x/evm-d-quest/internal/compiler"
	"github.com/tea2x/evm-d-quest/internal/ir"
	"github.com/tea2x/evm-d-quest/internal/mission"
	"github.com/tea2x/evm-d-quest/internal/quest"
	"github.com/tea2x/evm-d-quest/internal/store"
	"github.com/tea2x/evm-d-quest/internal/testutil"
)

// ErrCodeUnknownRequest is the trace code for fulfillments naming no
// pending oracle request.
const ErrCodeUnknownRequest = "UNKNOWN_REQUEST"

// errCodeGeneric is the trace code for errors outside the quest taxonomy.
const errCodeGeneric = "ERROR"

// ErrSimulatedPayout is returned by payout calls of a kind failed with a
// fail_payout step.
var ErrSimulatedPayout = errors.New("simulated payout failure")

// defaultEpoch is the flow start for ungated quests.
var defaultEpoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// Option configures a Run.
type Option func(*runConfig)

type runConfig struct {
	dbPath  string
	metrics *quest.Metrics
}

// WithDB journals events to the SQLite database at path instead of a
// fresh in-memory database. Sequence numbers continue from the quest's
// last journaled event.
func WithDB(path string) Option {
	return func(c *runConfig) {
		c.dbPath = path
	}
}

// WithMetrics records the run's quest activity in m. One Metrics may be
// shared by many runs.
func WithMetrics(m *quest.Metrics) Option {
	return func(c *runConfig) {
		c.metrics = m
	}
}

// Harness holds the simulated world for one run.
type Harness struct {
	def     *compiler.QuestDef
	quest   *quest.Quest
	store   *store.Store
	clock   *testutil.FixedClock
	payout  *testutil.RecordingPayout
	flags   map[common.Address]*mission.Flag
	oracles []*mission.OracleHandler
}

// Run executes a scenario and returns the result.
//
// Execution flow:
//  1. Compile the quest directory and open the event journal
//  2. Bind the declared mission handlers
//  3. Install formula and outcomes as the owner, one second before start
//  4. Move the clock to the scenario's start time and execute the flow
//  5. Evaluate assertions against the quest and the journal
//
// An error is returned only when the world cannot be built; expectation
// and assertion failures are reported through Result.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	cfg := runConfig{dbPath: ":memory:"}
	for _, opt := range opts {
		opt(&cfg)
	}

	def, err := selectQuest(scenario)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(cfg.dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open event store: %w", err)
	}
	defer st.Close()

	ctx := context.Background()
	h, err := newHarness(ctx, def, st, cfg.metrics)
	if err != nil {
		return nil, err
	}

	now := def.Start
	if now.IsZero() {
		now = defaultEpoch
	}
	if scenario.Now != "" {
		// Validated by LoadScenario.
		now, _ = time.Parse(time.RFC3339, scenario.Now)
	}
	h.clock.Set(now)

	result := NewResult()
	for i, step := range scenario.Flow {
		h.executeStep(ctx, i+1, step, result)
	}

	events, err := st.ReadEvents(ctx, store.Filter{Quest: def.ID})
	if err != nil {
		return nil, fmt.Errorf("failed to read events: %w", err)
	}
	result.Events = events
	result.Payouts = payoutRecords(h.payout.Calls())

	actx := &AssertionContext{
		Quest:   h.quest,
		Events:  events,
		Payouts: h.payout,
	}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	return result, nil
}

func selectQuest(s *Scenario) (*compiler.QuestDef, error) {
	defs, err := compiler.LoadDir(s.QuestDir())
	if err != nil {
		return nil, fmt.Errorf("failed to compile quest: %w", err)
	}
	if s.QuestID == "" {
		return defs[0], nil
	}
	for _, d := range defs {
		if d.ID == s.QuestID {
			return d, nil
		}
	}
	return nil, fmt.Errorf("quest %q not declared in %s", s.QuestID, s.QuestDir())
}

// newHarness builds the quest, binds its handlers and installs the
// formula and outcomes.
func newHarness(ctx context.Context, def *compiler.QuestDef, st *store.Store, metrics *quest.Metrics) (*Harness, error) {
	lastSeq, err := st.LastSeq(ctx, def.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to read last seq: %w", err)
	}

	setupAt := defaultEpoch
	if !def.Start.IsZero() {
		setupAt = def.Start.Add(-time.Second)
	}

	h := &Harness{
		def:    def,
		store:  st,
		clock:  testutil.NewFixedClock(setupAt),
		payout: testutil.NewRecordingPayout(),
		flags:  make(map[common.Address]*mission.Flag),
	}

	registry := mission.NewRegistry()
	h.quest = quest.New(
		quest.Config{ID: def.ID, Owner: def.Owner, Start: def.Start, End: def.End},
		registry,
		h.payout,
		quest.WithNow(h.clock.Now),
		quest.WithEventSink(st),
		quest.WithClock(quest.NewClockAt(lastSeq)),
		quest.WithMetrics(metrics),
	)

	ids := testutil.NewSequentialIDs("req")
	for _, hd := range def.Handlers {
		switch hd.Kind {
		case compiler.HandlerFlag:
			flag := mission.NewFlag(hd.Address, h.quest)
			h.flags[hd.Address] = flag
			registry.Register(hd.Address, flag)
		case compiler.HandlerOracle:
			oracle := mission.NewOracleHandler(hd.Oracle, h.quest, nil, ids)
			h.oracles = append(h.oracles, oracle)
			registry.Register(hd.Address, oracle)
		case compiler.HandlerAlways:
			registry.Register(hd.Address, constantHandler(true))
		case compiler.HandlerNever:
			registry.Register(hd.Address, constantHandler(false))
		}
	}

	if _, err := h.quest.SetMissionNodeFormulas(ctx, def.Owner, def.Formula); err != nil {
		return nil, fmt.Errorf("failed to set formula: %w", err)
	}
	if len(def.Outcomes) > 0 {
		if err := h.quest.SetOutcomes(ctx, def.Owner, def.Outcomes); err != nil {
			return nil, fmt.Errorf("failed to set outcomes: %w", err)
		}
	}
	return h, nil
}

func constantHandler(answer bool) mission.Func {
	return func(context.Context, common.Address, ir.MissionNode) (bool, error) {
		return answer, nil
	}
}

// executeStep runs one flow step, records it in the trace and checks its
// expect clause.
func (h *Harness) executeStep(ctx context.Context, n int, step Step, result *Result) {
	quester := common.HexToAddress(step.Quester)
	event := TraceEvent{
		Step:    n,
		Action:  step.Action,
		Node:    step.Node,
		Request: step.Request,
	}
	if step.Quester != "" {
		event.Quester = quester.Hex()
	}

	var (
		ok      bool
		checked bool
		err     error
	)
	switch step.Action {
	case ActionEnroll:
		err = h.quest.Enroll(ctx, quester)
	case ActionValidateQuester:
		ok, err = h.quest.ValidateQuester(ctx, quester)
		checked = true
	case ActionValidateMission:
		ok, err = h.quest.ValidateMission(ctx, quester, step.Node)
		checked = true
	case ActionSetStatus:
		caller := h.addressOr(step.Caller, h.nodeHandler(step.Node))
		err = h.quest.SetMissionStatus(ctx, caller, quester, step.Node, doneOrTrue(step.Done))
	case ActionSignal:
		err = h.signal(ctx, step, quester)
	case ActionFulfill:
		err = h.fulfill(ctx, step.Request, doneOrTrue(step.Done))
	case ActionDistribute:
		err = h.quest.Distribute(ctx, quester)
	case ActionPause:
		err = h.quest.Pause(ctx, h.addressOr(step.Caller, h.def.Owner))
	case ActionResume:
		err = h.quest.Resume(ctx, h.addressOr(step.Caller, h.def.Owner))
	case ActionAdvance:
		d, _ := time.ParseDuration(step.Duration)
		h.clock.Advance(d)
	case ActionFailPayout:
		h.payout.FailOn[step.Payout] = ErrSimulatedPayout
	case ActionHealPayout:
		delete(h.payout.FailOn, step.Payout)
	}

	event.Error = errorCode(err)
	if checked && err == nil {
		event.OK = &ok
	}
	result.Trace = append(result.Trace, event)

	slog.Debug("scenario step",
		"step", n,
		"action", step.Action,
		"quester", event.Quester,
		"error", event.Error,
	)

	if step.Expect == nil {
		if err != nil {
			result.AddError(fmt.Sprintf("step %d (%s): unexpected error: %v", n, step.Action, err))
		}
		return
	}
	if step.Expect.Error != event.Error {
		result.AddError(fmt.Sprintf("step %d (%s): expected error %q, got %q (%v)",
			n, step.Action, step.Expect.Error, event.Error, err))
		return
	}
	if step.Expect.OK != nil && (event.OK == nil || *event.OK != *step.Expect.OK) {
		result.AddError(fmt.Sprintf("step %d (%s): expected ok=%t, got %s",
			n, step.Action, *step.Expect.OK, formatOK(event.OK)))
	}
}

func (h *Harness) signal(ctx context.Context, step Step, quester common.Address) error {
	addr := h.addressOr(step.Handler, h.nodeHandler(step.Node))
	flag, ok := h.flags[addr]
	if !ok {
		return fmt.Errorf("no flag handler at %s", addr.Hex())
	}
	return flag.Signal(ctx, quester, step.Node)
}

// fulfill delivers the answer to whichever oracle holds the request.
func (h *Harness) fulfill(ctx context.Context, requestID string, done bool) error {
	for _, oracle := range h.oracles {
		err := oracle.Fulfill(ctx, requestID, done)
		if errors.Is(err, mission.ErrUnknownRequest) {
			continue
		}
		return err
	}
	return fmt.Errorf("fulfill %s: %w", requestID, mission.ErrUnknownRequest)
}

// nodeHandler returns the handler address of formula node id, or the zero
// address if the formula has no such node.
func (h *Harness) nodeHandler(id uint64) common.Address {
	for _, n := range h.quest.Formula() {
		if n.ID == id {
			return n.Handler
		}
	}
	return common.Address{}
}

func (h *Harness) addressOr(hex string, fallback common.Address) common.Address {
	if hex == "" {
		return fallback
	}
	return common.HexToAddress(hex)
}

func doneOrTrue(done *bool) bool {
	return done == nil || *done
}

func errorCode(err error) string {
	var qe *quest.Error
	switch {
	case err == nil:
		return ""
	case errors.As(err, &qe):
		return string(qe.Code)
	case errors.Is(err, mission.ErrUnknownRequest):
		return ErrCodeUnknownRequest
	default:
		return errCodeGeneric
	}
}

func formatOK(ok *bool) string {
	if ok == nil {
		return "no answer"
	}
	return fmt.Sprintf("ok=%t", *ok)
}

func payoutRecords(calls []testutil.PayoutCall) []PayoutRecord {
	records := make([]PayoutRecord, 0, len(calls))
	for _, c := range calls {
		r := PayoutRecord{Kind: c.Kind, To: c.To.Hex()}
		if c.Token != (common.Address{}) {
			r.Token = c.Token.Hex()
		}
		if c.From != (common.Address{}) {
			r.From = c.From.Hex()
		}
		if c.Value != nil {
			r.Value = c.Value.String()
		}
		if c.Condition != nil {
			r.Condition = c.Condition.String()
		}
		records = append(records, r)
	}
	return records
}
