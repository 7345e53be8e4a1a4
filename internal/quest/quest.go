package quest

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/tea2x/evm-d-quest/internal/formula"
	"github.com/tea2x/evm-d-quest/internal/ir"
	"github.com/tea2x/evm-d-quest/internal/mission"
	"github.com/tea2x/evm-d-quest/internal/reward"
)

// Phase is the position of the wall clock relative to the quest window.
type Phase uint8

const (
	// PhasePending is before the window opens. Admin operations are allowed.
	PhasePending Phase = iota
	// PhaseActive is inside [start, end). Validation and distribution are allowed.
	PhaseActive
	// PhaseClosed is at or after end.
	PhaseClosed
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhasePending:
		return "pending"
	case PhaseActive:
		return "active"
	case PhaseClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Config identifies a quest and its active window.
//
// A zero Start disables phase gating entirely: every operation is allowed
// at any time. A zero End leaves the window open forever.
type Config struct {
	ID    string
	Owner common.Address
	Start time.Time
	End   time.Time
}

// Quest is one quest instance: its formula, outcomes, quester progress and
// mission cache.
//
// Thread-safety: all methods are safe for concurrent use. See the package
// documentation for the transaction model.
type Quest struct {
	cfg      Config
	registry *mission.Registry
	payout   reward.Payout

	now      func() time.Time
	sink     EventSink
	clock    *Clock
	metrics  *Metrics
	maxDepth int

	mu       sync.Mutex
	formulas *formula.Store
	outcomes *reward.Store
	progress map[common.Address]ir.Progress
	cache    map[cacheKey]bool
	paused   bool

	distributing atomic.Bool
}

// cacheKey scopes mission results to the formula generation they were
// recorded against, so replacing the formula invalidates the whole cache.
type cacheKey struct {
	generation uint64
	quester    common.Address
	node       uint64
}

// Option configures a Quest.
type Option func(*Quest)

// WithNow sets the wall clock used for phase gating.
// Default: time.Now
func WithNow(now func() time.Time) Option {
	return func(q *Quest) {
		q.now = now
	}
}

// WithEventSink sets where committed events are written.
// Default: events are dropped.
func WithEventSink(sink EventSink) Option {
	return func(q *Quest) {
		q.sink = sink
	}
}

// WithClock sets the logical clock that stamps events, e.g. one resumed
// from a journal.
func WithClock(c *Clock) Option {
	return func(q *Quest) {
		q.clock = c
	}
}

// WithMetrics enables counters.
func WithMetrics(m *Metrics) Option {
	return func(q *Quest) {
		q.metrics = m
	}
}

// WithMaxDepth bounds formula depth for both validation and evaluation.
// Default: formula.DefaultMaxDepth
func WithMaxDepth(depth int) Option {
	return func(q *Quest) {
		q.maxDepth = depth
	}
}

// New creates a Quest. Handlers are resolved through registry at
// validation time; payout executes rewards.
func New(cfg Config, registry *mission.Registry, payout reward.Payout, opts ...Option) *Quest {
	q := &Quest{
		cfg:      cfg,
		registry: registry,
		payout:   payout,
		now:      time.Now,
		clock:    NewClock(),
		maxDepth: formula.DefaultMaxDepth,
		outcomes: reward.NewStore(),
		progress: make(map[common.Address]ir.Progress),
		cache:    make(map[cacheKey]bool),
	}
	for _, opt := range opts {
		opt(q)
	}
	q.formulas = formula.NewStore(formula.WithMaxDepth(q.maxDepth))
	return q
}

// ID returns the quest id.
func (q *Quest) ID() string { return q.cfg.ID }

// Owner returns the quest owner.
func (q *Quest) Owner() common.Address { return q.cfg.Owner }

// txKey marks a context as carrying a Quest's running transaction.
type txKey struct{}

// begin enters a transaction. If ctx already carries this quest's
// transaction the caller joins it; otherwise the lock is taken. The
// returned context must be handed to collaborators.
func (q *Quest) begin(ctx context.Context) (context.Context, func()) {
	if owner, _ := ctx.Value(txKey{}).(*Quest); owner == q {
		return ctx, func() {}
	}
	q.mu.Lock()
	return context.WithValue(ctx, txKey{}, q), q.mu.Unlock
}

// phase returns the current phase. Callers hold the lock.
func (q *Quest) phase() Phase {
	if q.cfg.Start.IsZero() {
		return PhaseActive
	}
	now := q.now()
	switch {
	case now.Before(q.cfg.Start):
		return PhasePending
	case !q.cfg.End.IsZero() && !now.Before(q.cfg.End):
		return PhaseClosed
	default:
		return PhaseActive
	}
}

// Phase returns the current phase.
func (q *Quest) Phase() Phase {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.phase()
}

func (q *Quest) gated() bool { return !q.cfg.Start.IsZero() }

func (q *Quest) requireOwner(caller common.Address, op string) error {
	if caller != q.cfg.Owner {
		return newError(ErrCodeAccessDenied, "%s: caller %s is not the owner", op, caller.Hex())
	}
	return nil
}

func (q *Quest) requireAdminPhase(op string) error {
	if q.gated() && q.phase() != PhasePending {
		return newError(ErrCodePhase, "%s: only allowed before the quest starts", op)
	}
	return nil
}

func (q *Quest) requireActive(op string) error {
	if q.paused {
		return newError(ErrCodePaused, "%s: quest is paused", op)
	}
	if p := q.phase(); p != PhaseActive {
		return newError(ErrCodePhase, "%s: quest is %s", op, p)
	}
	return nil
}

func (q *Quest) requireEnrolled(quester common.Address) (ir.Progress, error) {
	p := q.progress[quester]
	if p == ir.NotEnrolled {
		err := newError(ErrCodeNotEnrolled, "quester is not enrolled")
		err.Quester = quester.Hex()
		return p, err
	}
	return p, nil
}

// emit stamps ev and writes it to the sink. Called after the operation has
// committed; sink failures are logged only.
func (q *Quest) emit(ctx context.Context, ev ir.Event) {
	ev.Seq = q.clock.Next()
	ev.Quest = q.cfg.ID
	if q.sink == nil {
		return
	}
	if err := q.sink.WriteEvent(ctx, ev); err != nil {
		slog.Error("event sink write failed",
			"quest", q.cfg.ID,
			"kind", ev.Kind,
			"seq", ev.Seq,
			"error", err,
		)
	}
}
