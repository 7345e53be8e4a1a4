package mission

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tea2x/evm-d-quest/internal/ir"
	"github.com/tea2x/evm-d-quest/internal/testutil"
)

var (
	quester    = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	handlerAt  = common.HexToAddress("0x00000000000000000000000000000000000000b1")
	oracleAt   = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	missionOne = ir.MissionNode{ID: 7, IsMission: true, Handler: handlerAt, Oracle: oracleAt, Data: []byte{1}}
)

type statusWrite struct {
	caller  common.Address
	quester common.Address
	nodeID  uint64
	done    bool
}

type recordingWriter struct {
	writes []statusWrite
	err    error
}

func (w *recordingWriter) SetMissionStatus(_ context.Context, caller, quester common.Address, nodeID uint64, done bool) error {
	if w.err != nil {
		return w.err
	}
	w.writes = append(w.writes, statusWrite{caller, quester, nodeID, done})
	return nil
}

type recordingRequester struct {
	requests []Request
	err      error
}

func (r *recordingRequester) Request(_ context.Context, req Request) error {
	if r.err != nil {
		return r.err
	}
	r.requests = append(r.requests, req)
	return nil
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	_, ok := r.Lookup(handlerAt)
	assert.False(t, ok)

	r.Register(handlerAt, Func(func(context.Context, common.Address, ir.MissionNode) (bool, error) {
		return true, nil
	}))
	h, ok := r.Lookup(handlerAt)
	require.True(t, ok)

	done, err := h.ValidateMission(context.Background(), quester, missionOne)
	require.NoError(t, err)
	assert.True(t, done)
}

func TestFlag_SignalPullsAndPushes(t *testing.T) {
	w := &recordingWriter{}
	f := NewFlag(handlerAt, w)

	done, err := f.ValidateMission(context.Background(), quester, missionOne)
	require.NoError(t, err)
	assert.False(t, done)

	require.NoError(t, f.Signal(context.Background(), quester, missionOne.ID))

	done, err = f.ValidateMission(context.Background(), quester, missionOne)
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, []statusWrite{{handlerAt, quester, 7, true}}, w.writes)
}

func TestFlag_PerQuester(t *testing.T) {
	f := NewFlag(handlerAt, nil)
	require.NoError(t, f.Signal(context.Background(), quester, missionOne.ID))

	other := common.HexToAddress("0x00000000000000000000000000000000000000a2")
	done, err := f.ValidateMission(context.Background(), other, missionOne)
	require.NoError(t, err)
	assert.False(t, done)
}

func TestOracleHandler_RequestAndFulfill(t *testing.T) {
	w := &recordingWriter{}
	req := &recordingRequester{}
	h := NewOracleHandler(oracleAt, w, req, testutil.NewSequentialIDs("req"))

	done, err := h.ValidateMission(context.Background(), quester, missionOne)
	require.NoError(t, err)
	assert.False(t, done)
	require.Len(t, req.requests, 1)
	assert.Equal(t, "req-1", req.requests[0].ID)

	// A second validation while pending opens no new request.
	_, err = h.ValidateMission(context.Background(), quester, missionOne)
	require.NoError(t, err)
	assert.Len(t, req.requests, 1)

	id, ok := h.PendingFor(quester, missionOne.ID)
	require.True(t, ok)
	require.NoError(t, h.Fulfill(context.Background(), id, true))

	assert.Equal(t, []statusWrite{{oracleAt, quester, 7, true}}, w.writes)
	assert.Empty(t, h.Pending())
}

func TestOracleHandler_NegativeFulfillReopens(t *testing.T) {
	w := &recordingWriter{}
	h := NewOracleHandler(oracleAt, w, nil, testutil.NewSequentialIDs("req"))

	_, err := h.ValidateMission(context.Background(), quester, missionOne)
	require.NoError(t, err)
	require.NoError(t, h.Fulfill(context.Background(), "req-1", false))
	assert.Empty(t, w.writes)

	_, err = h.ValidateMission(context.Background(), quester, missionOne)
	require.NoError(t, err)
	id, ok := h.PendingFor(quester, missionOne.ID)
	require.True(t, ok)
	assert.Equal(t, "req-2", id)
}

func TestOracleHandler_UnknownRequest(t *testing.T) {
	h := NewOracleHandler(oracleAt, nil, nil, nil)
	err := h.Fulfill(context.Background(), "nope", true)
	assert.ErrorIs(t, err, ErrUnknownRequest)
}

func TestOracleHandler_RequesterFailureForgetsRequest(t *testing.T) {
	boom := errors.New("oracle offline")
	h := NewOracleHandler(oracleAt, nil, &recordingRequester{err: boom}, testutil.NewSequentialIDs("req"))

	_, err := h.ValidateMission(context.Background(), quester, missionOne)
	require.ErrorIs(t, err, boom)
	_, ok := h.PendingFor(quester, missionOne.ID)
	assert.False(t, ok)
}

func TestUUIDv7Generator(t *testing.T) {
	a, b := UUIDv7Generator{}.Generate(), UUIDv7Generator{}.Generate()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
}
