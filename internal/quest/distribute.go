package quest

import (
	"context"
	"errors"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"

	"github.com/tea2x/evm-d-quest/internal/ir"
	"github.com/tea2x/evm-d-quest/internal/reward"
)

// Distribute pays every outcome to a Completed quester and marks them
// Rewarded.
//
// The pass is all-or-nothing: it runs on copies of the outcomes and the
// store is only updated once every Payout call has succeeded. Any failure
// leaves records, rewardsAvailable and progress untouched and emits no
// events.
//
// Calls from other goroutines wait for the quest lock like every other
// mutation. A call made from inside a running pass, with the context the
// Payout was handed, fails with REENTRANT.
func (q *Quest) Distribute(ctx context.Context, quester common.Address) (err error) {
	ctx, end := q.begin(ctx)
	defer end()

	if !q.distributing.CompareAndSwap(false, true) {
		qe := newError(ErrCodeReentrant, "distribution already in progress")
		qe.Quester = quester.Hex()
		return qe
	}
	defer q.distributing.Store(false)
	defer func() { q.metrics.distributed(err) }()

	if err := q.requireActive("distribute"); err != nil {
		return err
	}
	if q.progress[quester] != ir.Completed {
		qe := newError(ErrCodeNotCompleted, "quester is %s", q.progress[quester])
		qe.Quester = quester.Hex()
		return qe
	}
	if !q.outcomes.RewardsAvailable() {
		qe := newError(ErrCodeRewardsExhausted, "no outcome can pay out")
		qe.Quester = quester.Hex()
		return qe
	}

	res, err := reward.Distribute(ctx, q.payout, quester, q.outcomes.Outcomes())
	if err != nil {
		return q.distributionError(err, quester)
	}
	if err := q.outcomes.Apply(res); err != nil {
		// Updated records always come from the current generation, so this
		// means the store changed under the pass.
		return wrapError(ErrCodeNotFound, err, "apply distribution")
	}
	q.progress[quester] = ir.Rewarded

	for _, exec := range res.Executions {
		if exec.Skipped {
			continue
		}
		q.metrics.executed(exec.Selector)
		ev := ir.Event{
			Kind:         ir.EventOutcomeExecuted,
			Quester:      quester.Hex(),
			OutcomeIndex: exec.Index,
			Selector:     exec.Selector,
		}
		if exec.Amount != nil {
			ev.Amount = exec.Amount.String()
		}
		q.emit(ctx, ev)
	}

	slog.Info("quester rewarded",
		"quest", q.cfg.ID,
		"quester", quester.Hex(),
		"executions", len(res.Executions),
		"rewards_available", res.RewardsAvailable,
	)
	q.emit(ctx, ir.Event{Kind: ir.EventQuesterRewarded, Quester: quester.Hex()})
	return nil
}

func (q *Quest) distributionError(err error, quester common.Address) error {
	var qe *Error
	if errors.As(err, &qe) {
		return qe
	}

	code := ErrCodeExternalCallFailed
	if errors.Is(err, reward.ErrInsufficientCapacity) {
		code = ErrCodeRewardsExhausted
	}
	wrapped := wrapError(code, err, "distribution aborted")
	wrapped.Quester = quester.Hex()
	slog.Warn("distribution aborted",
		"quest", q.cfg.ID,
		"quester", quester.Hex(),
		"error", err,
	)
	return wrapped
}
