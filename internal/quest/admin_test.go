package quest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tea2x/evm-d-quest/internal/formula"
	"github.com/tea2x/evm-d-quest/internal/ir"
	"github.com/tea2x/evm-d-quest/internal/reward"
	"github.com/tea2x/evm-d-quest/internal/testutil"
)

func TestSetMissionNodeFormulas_OwnerOnly(t *testing.T) {
	f := newFixture(t, Config{})

	_, err := f.q.SetMissionNodeFormulas(context.Background(), alice, []ir.MissionNode{leaf(1, handlerA)})
	require.Error(t, err)
	assert.Equal(t, ErrCodeAccessDenied, codeOf(err))
	assert.Equal(t, uint64(0), f.q.Root())
	assert.Empty(t, f.sink.Events())
}

func TestSetMissionNodeFormulas_RejectedKeepsPrevious(t *testing.T) {
	f := newFixture(t, Config{})
	f.setFormula(t, and(1, 2, 3), leaf(2, handlerA), leaf(3, handlerB))

	_, err := f.q.SetMissionNodeFormulas(context.Background(), owner, []ir.MissionNode{and(1, 1, 2), leaf(2, handlerA)})
	require.Error(t, err)
	assert.True(t, IsCode(err, ErrCodeInputRejected))

	var ve *formula.ValidationError
	require.True(t, errors.As(err, &ve), "rejection should wrap the formula validation error")

	assert.Equal(t, uint64(1), f.q.Root())
	assert.Len(t, f.q.Formula(), 3)
}

func TestSetMissionNodeFormulas_EmitsEvent(t *testing.T) {
	f := newFixture(t, Config{ID: "genesis"})
	root := f.setFormula(t, or(7, 3, 4), leaf(3, handlerA), leaf(4, handlerB))
	assert.Equal(t, uint64(7), root)

	events := f.sink.Events()
	require.Len(t, events, 1)
	ev := events[0]
	assert.Equal(t, ir.EventFormulaSet, ev.Kind)
	assert.Equal(t, "genesis", ev.Quest)
	assert.Equal(t, int64(1), ev.Seq)
	assert.Equal(t, uint64(1), ev.Generation)
	assert.Equal(t, uint64(7), ev.RootID)
	assert.Equal(t, 3, ev.Count)
	assert.Len(t, ev.Digest, 64)

	f.setFormula(t, leaf(1, handlerA))
	events = f.sink.Events()
	require.Len(t, events, 2)
	assert.Equal(t, uint64(2), events[1].Generation)
	assert.NotEqual(t, ev.Digest, events[1].Digest)
}

func TestSetMissionNodeFormulas_DropsStaleMissionResults(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	f.setFormula(t, leaf(1, handlerA))
	f.enroll(t, alice)
	require.NoError(t, f.q.SetMissionStatus(ctx, handlerA, alice, 1, true))
	require.Len(t, f.q.cache, 1)

	f.setFormula(t, leaf(1, handlerA))
	assert.Empty(t, f.q.cache)
	assert.False(t, f.q.MissionStatus(alice, 1))

	// a rejected formula keeps the current generation's results
	require.NoError(t, f.q.SetMissionStatus(ctx, handlerA, alice, 1, true))
	_, err := f.q.SetMissionNodeFormulas(ctx, owner, []ir.MissionNode{leaf(5, handlerA), leaf(6, handlerA)})
	require.Error(t, err)
	assert.True(t, f.q.MissionStatus(alice, 1))
}

func TestSetOutcomes(t *testing.T) {
	f := newFixture(t, Config{})

	err := f.q.SetOutcomes(context.Background(), bob, []ir.Outcome{native(1, 1, true)})
	assert.Equal(t, ErrCodeAccessDenied, codeOf(err))

	err = f.q.SetOutcomes(context.Background(), owner, nil)
	require.Error(t, err)
	assert.Equal(t, ErrCodeInputRejected, codeOf(err))
	var ve *reward.ValidationError
	assert.True(t, errors.As(err, &ve))
	assert.False(t, f.q.RewardsAvailable())

	f.setOutcomes(t, native(5, 10, true), native(1, 0, false))
	assert.True(t, f.q.RewardsAvailable())

	outcomes := f.q.Outcomes()
	require.Len(t, outcomes, 2)
	assert.Equal(t, uint64(0), outcomes[0].Index)
	assert.Equal(t, uint64(1), outcomes[1].Index)

	assert.Equal(t, []ir.EventKind{ir.EventOutcomesSet}, f.sink.Kinds())
	assert.Equal(t, 2, f.sink.Events()[0].Count)
}

func TestEnroll(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()

	assert.Equal(t, ir.NotEnrolled, f.q.Progress(alice))
	require.NoError(t, f.q.Enroll(ctx, alice))
	assert.Equal(t, ir.InProgress, f.q.Progress(alice))

	err := f.q.Enroll(ctx, alice)
	assert.Equal(t, ErrCodeAlreadyEnrolled, codeOf(err))

	events := f.sink.Events()
	require.Len(t, events, 1)
	assert.Equal(t, ir.EventQuesterEnrolled, events[0].Kind)
	assert.Equal(t, alice.Hex(), events[0].Quester)
}

func TestPhaseGating(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := testutil.NewFixedClock(t0)
	f := newFixture(t, Config{Start: t0.Add(time.Hour), End: t0.Add(2 * time.Hour)}, WithNow(clock.Now))
	ctx := context.Background()

	// Pending: admin and enrollment allowed, validation not.
	assert.Equal(t, PhasePending, f.q.Phase())
	f.setFormula(t, leaf(1, handlerA))
	f.setOutcomes(t, native(1, 0, false))
	f.enroll(t, alice)
	_, err := f.q.ValidateQuester(ctx, alice)
	assert.Equal(t, ErrCodePhase, codeOf(err))

	// Active: admin closed, validation open.
	clock.Advance(time.Hour)
	assert.Equal(t, PhaseActive, f.q.Phase())
	_, err = f.q.SetMissionNodeFormulas(ctx, owner, []ir.MissionNode{leaf(2, handlerA)})
	assert.Equal(t, ErrCodePhase, codeOf(err))
	err = f.q.SetOutcomes(ctx, owner, []ir.Outcome{native(1, 0, false)})
	assert.Equal(t, ErrCodePhase, codeOf(err))
	f.complete(t, alice)
	f.enroll(t, bob)

	// Closed at end: nothing but reads.
	clock.Advance(time.Hour)
	assert.Equal(t, PhaseClosed, f.q.Phase())
	assert.Equal(t, ErrCodePhase, codeOf(f.q.Enroll(ctx, owner)))
	_, err = f.q.ValidateQuester(ctx, bob)
	assert.Equal(t, ErrCodePhase, codeOf(err))
	assert.Equal(t, ErrCodePhase, codeOf(f.q.Distribute(ctx, alice)))
}

func TestPauseResume(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	f.setOutcomes(t, native(1, 0, false))
	f.complete(t, alice)

	assert.Equal(t, ErrCodeAccessDenied, codeOf(f.q.Pause(ctx, alice)))
	require.NoError(t, f.q.Pause(ctx, owner))
	assert.True(t, f.q.Paused())

	assert.Equal(t, ErrCodePaused, codeOf(f.q.Enroll(ctx, bob)))
	_, err := f.q.ValidateQuester(ctx, alice)
	assert.Equal(t, ErrCodePaused, codeOf(err))
	assert.Equal(t, ErrCodePaused, codeOf(f.q.Distribute(ctx, alice)))

	assert.Equal(t, ErrCodeAccessDenied, codeOf(f.q.Resume(ctx, bob)))
	require.NoError(t, f.q.Resume(ctx, owner))
	require.NoError(t, f.q.Distribute(ctx, alice))
	assert.Equal(t, ir.Rewarded, f.q.Progress(alice))
}

func TestError_Format(t *testing.T) {
	err := &Error{Code: ErrCodeNotEnrolled, Message: "quester is not enrolled", Quester: alice.Hex()}
	assert.Equal(t, "NOT_ENROLLED: quester is not enrolled (quester="+alice.Hex()+")", err.Error())

	cause := errors.New("boom")
	wrapped := wrapError(ErrCodeExternalCallFailed, cause, "mission handler failed")
	assert.Equal(t, "EXTERNAL_CALL_FAILED: mission handler failed: boom", wrapped.Error())
	assert.ErrorIs(t, wrapped, cause)
	assert.False(t, IsCode(cause, ErrCodeExternalCallFailed))
}
