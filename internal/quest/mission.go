package quest

import (
	"context"
	"errors"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"

	"github.com/tea2x/evm-d-quest/internal/formula"
	"github.com/tea2x/evm-d-quest/internal/generation"
	"github.com/tea2x/evm-d-quest/internal/ir"
)

// ValidateMission reports whether quester has completed the mission leaf
// nodeID.
//
// A cached true is returned without calling the handler. Otherwise the
// handler registered at the node's handler address decides, and its answer
// is returned but not cached: only SetMissionStatus writes the cache.
func (q *Quest) ValidateMission(ctx context.Context, quester common.Address, nodeID uint64) (bool, error) {
	ctx, end := q.begin(ctx)
	defer end()

	if _, err := q.requireEnrolled(quester); err != nil {
		return false, err
	}
	node, err := q.missionNode(nodeID)
	if err != nil {
		return false, err
	}
	return q.validateMission(ctx, quester, node)
}

// validateMission is the shared leaf check. Callers hold the transaction.
func (q *Quest) validateMission(ctx context.Context, quester common.Address, node ir.MissionNode) (bool, error) {
	key := cacheKey{generation: q.formulas.Generation(), quester: quester, node: node.ID}
	if q.cache[key] {
		q.metrics.missionChecked("cache", true, nil)
		return true, nil
	}

	h, ok := q.registry.Lookup(node.Handler)
	if !ok {
		err := newError(ErrCodeExternalCallFailed, "no handler registered at %s", node.Handler.Hex())
		err.Quester = quester.Hex()
		err.NodeID = node.ID
		q.metrics.missionChecked("handler", false, err)
		return false, err
	}

	done, err := h.ValidateMission(ctx, quester, node)
	q.metrics.missionChecked("handler", done, err)
	if err != nil {
		qe := wrapError(ErrCodeExternalCallFailed, err, "mission handler failed")
		qe.Quester = quester.Hex()
		qe.NodeID = node.ID
		return false, qe
	}

	slog.Debug("mission checked",
		"quest", q.cfg.ID,
		"quester", quester.Hex(),
		"node", node.ID,
		"done", done,
	)
	return done, nil
}

// SetMissionStatus records the completion status of mission nodeID for
// quester. Only the node's handler or its oracle may write it.
func (q *Quest) SetMissionStatus(ctx context.Context, caller, quester common.Address, nodeID uint64, done bool) error {
	_, end := q.begin(ctx)
	defer end()

	node, err := q.missionNode(nodeID)
	if err != nil {
		return err
	}
	if caller != node.Handler && caller != node.Oracle {
		qe := newError(ErrCodeCrossMissionWrite, "caller %s may not write mission %d", caller.Hex(), nodeID)
		qe.Quester = quester.Hex()
		qe.NodeID = nodeID
		return qe
	}
	if _, err := q.requireEnrolled(quester); err != nil {
		return err
	}

	key := cacheKey{generation: q.formulas.Generation(), quester: quester, node: nodeID}
	if done {
		q.cache[key] = true
	} else {
		delete(q.cache, key)
	}
	slog.Debug("mission status set",
		"quest", q.cfg.ID,
		"quester", quester.Hex(),
		"node", nodeID,
		"done", done,
	)
	return nil
}

// MissionStatus returns the cached status of mission nodeID for quester.
func (q *Quest) MissionStatus(quester common.Address, nodeID uint64) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.cache[cacheKey{generation: q.formulas.Generation(), quester: quester, node: nodeID}]
}

// ValidateQuester evaluates the formula for quester and, on true, moves an
// InProgress quester to Completed. A false result never regresses progress.
//
// Every mission leaf is checked once per call, in left-first order.
func (q *Quest) ValidateQuester(ctx context.Context, quester common.Address) (bool, error) {
	ctx, end := q.begin(ctx)
	defer end()

	if err := q.requireActive("validate quester"); err != nil {
		return false, err
	}
	progress, err := q.requireEnrolled(quester)
	if err != nil {
		return false, err
	}
	if q.formulas.Len() == 0 {
		return false, newError(ErrCodeNotFound, "no formula set")
	}

	ok, err := formula.Evaluate(ctx, q.formulas, q.formulas.Root(),
		func(ctx context.Context, node ir.MissionNode) (bool, error) {
			return q.validateMission(ctx, quester, node)
		},
		formula.WithMaxDepth(q.maxDepth),
	)
	q.metrics.evaluated(ok, err)
	if err != nil {
		return false, q.evaluationError(err, quester)
	}

	if ok && progress == ir.InProgress {
		q.progress[quester] = ir.Completed
		slog.Info("quester completed", "quest", q.cfg.ID, "quester", quester.Hex())
		q.emit(ctx, ir.Event{Kind: ir.EventQuestCompleted, Quester: quester.Hex()})
	}
	return ok, nil
}

// missionNode resolves nodeID to a mission leaf of the current formula.
func (q *Quest) missionNode(nodeID uint64) (ir.MissionNode, error) {
	node, err := q.formulas.Node(nodeID)
	if err != nil {
		qe := wrapError(ErrCodeNotFound, err, "mission node %d", nodeID)
		qe.NodeID = nodeID
		return ir.MissionNode{}, qe
	}
	if !node.IsMission {
		qe := newError(ErrCodeNotAMission, "node %d is an operator", nodeID)
		qe.NodeID = nodeID
		return ir.MissionNode{}, qe
	}
	return node, nil
}

func (q *Quest) evaluationError(err error, quester common.Address) error {
	var qe *Error
	if errors.As(err, &qe) {
		return qe
	}
	code := ErrCodeExternalCallFailed
	switch {
	case errors.Is(err, generation.ErrNotFound):
		code = ErrCodeNotFound
	case errors.Is(err, formula.ErrDepthExceeded):
		code = ErrCodeInputRejected
	}
	wrapped := wrapError(code, err, "formula evaluation failed")
	wrapped.Quester = quester.Hex()
	return wrapped
}
