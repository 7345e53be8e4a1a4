package quest

import (
	"context"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"

	"github.com/tea2x/evm-d-quest/internal/ir"
)

// SetMissionNodeFormulas replaces the quest formula with nodes and returns
// the derived root id.
//
// Owner-only, and only before the quest starts. nodes is validated in full
// before anything changes; a rejected list fails with INPUT_REJECTED
// wrapping the *formula.ValidationError and leaves the previous formula in
// place.
func (q *Quest) SetMissionNodeFormulas(ctx context.Context, caller common.Address, nodes []ir.MissionNode) (uint64, error) {
	ctx, end := q.begin(ctx)
	defer end()

	if err := q.requireOwner(caller, "set formula"); err != nil {
		return 0, err
	}
	if err := q.requireAdminPhase("set formula"); err != nil {
		return 0, err
	}

	root, err := q.formulas.Set(nodes)
	if err != nil {
		return 0, wrapError(ErrCodeInputRejected, err, "formula rejected")
	}
	// Entries of older generations can never match again.
	clear(q.cache)

	digest, err := ir.FormulaDigest(q.formulas.Nodes())
	if err != nil {
		// The formula is committed; a missing digest only degrades the event.
		slog.Warn("formula digest failed", "quest", q.cfg.ID, "error", err)
	}

	slog.Info("formula set",
		"quest", q.cfg.ID,
		"generation", q.formulas.Generation(),
		"root", root,
		"nodes", len(nodes),
	)
	q.emit(ctx, ir.Event{
		Kind:       ir.EventFormulaSet,
		Generation: q.formulas.Generation(),
		RootID:     root,
		Count:      len(nodes),
		Digest:     digest,
	})
	return root, nil
}

// SetOutcomes replaces the quest outcomes.
//
// Owner-only, and only before the quest starts. Outcome indexes are
// reassigned from submission order. A rejected list fails with
// INPUT_REJECTED wrapping the *reward.ValidationError.
func (q *Quest) SetOutcomes(ctx context.Context, caller common.Address, outcomes []ir.Outcome) error {
	ctx, end := q.begin(ctx)
	defer end()

	if err := q.requireOwner(caller, "set outcomes"); err != nil {
		return err
	}
	if err := q.requireAdminPhase("set outcomes"); err != nil {
		return err
	}

	if err := q.outcomes.Set(outcomes); err != nil {
		return wrapError(ErrCodeInputRejected, err, "outcomes rejected")
	}

	digest, err := ir.OutcomeDigest(q.outcomes.Outcomes())
	if err != nil {
		slog.Warn("outcome digest failed", "quest", q.cfg.ID, "error", err)
	}

	slog.Info("outcomes set",
		"quest", q.cfg.ID,
		"generation", q.outcomes.Generation(),
		"outcomes", len(outcomes),
		"rewards_available", q.outcomes.RewardsAvailable(),
	)
	q.emit(ctx, ir.Event{
		Kind:       ir.EventOutcomesSet,
		Generation: q.outcomes.Generation(),
		Count:      len(outcomes),
		Digest:     digest,
	})
	return nil
}

// Pause stops enrollment, validation and distribution until Resume.
func (q *Quest) Pause(ctx context.Context, caller common.Address) error {
	return q.setPaused(ctx, caller, true)
}

// Resume lifts a Pause.
func (q *Quest) Resume(ctx context.Context, caller common.Address) error {
	return q.setPaused(ctx, caller, false)
}

func (q *Quest) setPaused(ctx context.Context, caller common.Address, paused bool) error {
	_, end := q.begin(ctx)
	defer end()

	if err := q.requireOwner(caller, "pause"); err != nil {
		return err
	}
	q.paused = paused
	slog.Info("quest pause changed", "quest", q.cfg.ID, "paused", paused)
	return nil
}

// Paused reports whether the quest is paused.
func (q *Quest) Paused() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.paused
}

// Enroll records quester as InProgress. Enrollment is open until the quest
// closes.
func (q *Quest) Enroll(ctx context.Context, quester common.Address) error {
	ctx, end := q.begin(ctx)
	defer end()

	if q.paused {
		return newError(ErrCodePaused, "enroll: quest is paused")
	}
	if q.gated() && q.phase() == PhaseClosed {
		return newError(ErrCodePhase, "enroll: quest is closed")
	}
	if q.progress[quester] != ir.NotEnrolled {
		err := newError(ErrCodeAlreadyEnrolled, "quester is already enrolled")
		err.Quester = quester.Hex()
		return err
	}

	q.progress[quester] = ir.InProgress
	slog.Info("quester enrolled", "quest", q.cfg.ID, "quester", quester.Hex())
	q.emit(ctx, ir.Event{Kind: ir.EventQuesterEnrolled, Quester: quester.Hex()})
	return nil
}

// Progress returns the quester's progress, NotEnrolled if unknown.
func (q *Quest) Progress(quester common.Address) ir.Progress {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.progress[quester]
}

// RewardsAvailable reports whether at least one outcome can still pay out.
func (q *Quest) RewardsAvailable() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.outcomes.RewardsAvailable()
}

// Root returns the current formula root, 0 if no formula is set.
func (q *Quest) Root() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.formulas.Root()
}

// Formula returns the current formula nodes in submission order.
func (q *Quest) Formula() []ir.MissionNode {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.formulas.Nodes()
}

// Outcomes returns copies of the current outcomes.
func (q *Quest) Outcomes() []ir.Outcome {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.outcomes.Outcomes()
}
