package quest

import (
	"context"
	"math/big"
	"sync/atomic"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/tea2x/evm-d-quest/internal/ir"
	"github.com/tea2x/evm-d-quest/internal/mission"
	"github.com/tea2x/evm-d-quest/internal/testutil"
)

var (
	owner    = common.HexToAddress("0x00000000000000000000000000000000000000f0")
	alice    = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	bob      = common.HexToAddress("0x00000000000000000000000000000000000000b1")
	handlerA = common.HexToAddress("0x1000000000000000000000000000000000000001")
	handlerB = common.HexToAddress("0x1000000000000000000000000000000000000002")
	oracle   = common.HexToAddress("0x2000000000000000000000000000000000000002")
	token    = common.HexToAddress("0x00000000000000000000000000000000000000c0")
	spender  = common.HexToAddress("0x00000000000000000000000000000000000000d0")
)

type fixture struct {
	q        *Quest
	registry *mission.Registry
	payout   *testutil.RecordingPayout
	sink     *MemorySink
}

// newFixture builds an ungated quest with a recording payout and an
// in-memory sink.
func newFixture(t *testing.T, cfg Config, opts ...Option) *fixture {
	t.Helper()
	if cfg.ID == "" {
		cfg.ID = "q1"
	}
	cfg.Owner = owner
	f := &fixture{
		registry: mission.NewRegistry(),
		payout:   testutil.NewRecordingPayout(),
		sink:     &MemorySink{},
	}
	opts = append([]Option{WithEventSink(f.sink)}, opts...)
	f.q = New(cfg, f.registry, f.payout, opts...)
	return f
}

func (f *fixture) setFormula(t *testing.T, nodes ...ir.MissionNode) uint64 {
	t.Helper()
	root, err := f.q.SetMissionNodeFormulas(context.Background(), owner, nodes)
	require.NoError(t, err)
	return root
}

func (f *fixture) setOutcomes(t *testing.T, outcomes ...ir.Outcome) {
	t.Helper()
	require.NoError(t, f.q.SetOutcomes(context.Background(), owner, outcomes))
}

func (f *fixture) enroll(t *testing.T, questers ...common.Address) {
	t.Helper()
	for _, qs := range questers {
		require.NoError(t, f.q.Enroll(context.Background(), qs))
	}
}

// complete drives quester to Completed through a handler that always
// answers true.
func (f *fixture) complete(t *testing.T, questers ...common.Address) {
	t.Helper()
	f.registry.Register(handlerA, mission.Func(func(context.Context, common.Address, ir.MissionNode) (bool, error) {
		return true, nil
	}))
	if f.q.Root() == 0 {
		f.setFormula(t, leaf(1, handlerA))
	}
	for _, qs := range questers {
		if f.q.Progress(qs) == ir.NotEnrolled {
			f.enroll(t, qs)
		}
		ok, err := f.q.ValidateQuester(context.Background(), qs)
		require.NoError(t, err)
		require.True(t, ok)
	}
}

// countingHandler answers with the value stored in answer and counts calls.
type countingHandler struct {
	answer atomic.Bool
	calls  atomic.Int64
}

func (h *countingHandler) ValidateMission(context.Context, common.Address, ir.MissionNode) (bool, error) {
	h.calls.Add(1)
	return h.answer.Load(), nil
}

func leaf(id uint64, handler common.Address) ir.MissionNode {
	return ir.MissionNode{ID: id, IsMission: true, Handler: handler, Oracle: oracle, Data: []byte{byte(id)}}
}

func and(id, left, right uint64) ir.MissionNode {
	return ir.MissionNode{ID: id, Operator: ir.OperatorAND, Left: left, Right: right}
}

func or(id, left, right uint64) ir.MissionNode {
	return ir.MissionNode{ID: id, Operator: ir.OperatorOR, Left: left, Right: right}
}

func native(amount, total int64, limited bool) ir.Outcome {
	return ir.Outcome{IsNative: true, NativeAmount: big.NewInt(amount), IsLimited: limited, TotalReward: big.NewInt(total)}
}

func tokenOutcome(t *testing.T, p ir.RewardParams, total int64, limited bool) ir.Outcome {
	t.Helper()
	data, err := p.Encode()
	require.NoError(t, err)
	return ir.Outcome{Token: token, Selector: p.Selector(), Data: data, IsLimited: limited, TotalReward: big.NewInt(total)}
}

func codeOf(err error) ErrorCode {
	if qe, ok := err.(*Error); ok {
		return qe.Code
	}
	return ""
}
