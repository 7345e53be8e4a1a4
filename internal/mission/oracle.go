package mission

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/tea2x/evm-d-quest/internal/ir"
)

// ErrUnknownRequest is returned when a fulfillment names no pending request.
var ErrUnknownRequest = errors.New("unknown oracle request")

// IDGenerator produces oracle request ids.
// Implemented by UUIDv7Generator (production) and testutil.SequentialIDs (tests).
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 request ids.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 string. Panics if generation fails.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Requester sends a verification job to an off-chain oracle.
type Requester interface {
	Request(ctx context.Context, req Request) error
}

// Request is an outstanding oracle job for one quester and mission.
type Request struct {
	ID      string
	Quester common.Address
	Node    ir.MissionNode
}

// OracleHandler delegates missions to an asynchronous oracle.
//
// ValidateMission opens at most one request per (quester, node) and answers
// false until the oracle responds. Fulfill maps the response back to the
// quester and mission and writes the quest cache with Oracle as the caller.
type OracleHandler struct {
	Oracle    common.Address
	Writer    StatusWriter
	Requester Requester
	IDs       IDGenerator

	mu       sync.Mutex
	pending  map[string]Request
	inflight map[missionKey]string
}

// NewOracleHandler creates a handler calling back as oracle. A nil ids
// defaults to UUIDv7Generator; a nil requester only records requests.
func NewOracleHandler(oracle common.Address, w StatusWriter, requester Requester, ids IDGenerator) *OracleHandler {
	if ids == nil {
		ids = UUIDv7Generator{}
	}
	return &OracleHandler{
		Oracle:    oracle,
		Writer:    w,
		Requester: requester,
		IDs:       ids,
		pending:   make(map[string]Request),
		inflight:  make(map[missionKey]string),
	}
}

// ValidateMission implements Handler. It never answers true itself; a
// positive oracle response reaches the quest through Fulfill.
func (h *OracleHandler) ValidateMission(ctx context.Context, quester common.Address, node ir.MissionNode) (bool, error) {
	key := missionKey{quester, node.ID}

	h.mu.Lock()
	if id, ok := h.inflight[key]; ok {
		h.mu.Unlock()
		slog.Debug("oracle request already pending", "request_id", id, "node_id", node.ID)
		return false, nil
	}
	req := Request{ID: h.IDs.Generate(), Quester: quester, Node: node}
	h.pending[req.ID] = req
	h.inflight[key] = req.ID
	h.mu.Unlock()

	if h.Requester != nil {
		if err := h.Requester.Request(ctx, req); err != nil {
			h.forget(req)
			return false, fmt.Errorf("oracle request for node %d: %w", node.ID, err)
		}
	}

	slog.Debug("oracle request opened", "request_id", req.ID, "quester", quester.Hex(), "node_id", node.ID)
	return false, nil
}

// Fulfill delivers the oracle's answer for requestID. A negative answer
// only closes the request, so the next validation opens a new one.
func (h *OracleHandler) Fulfill(ctx context.Context, requestID string, done bool) error {
	h.mu.Lock()
	req, ok := h.pending[requestID]
	h.mu.Unlock()
	if !ok {
		return fmt.Errorf("fulfill %s: %w", requestID, ErrUnknownRequest)
	}
	h.forget(req)

	if !done || h.Writer == nil {
		return nil
	}
	return h.Writer.SetMissionStatus(ctx, h.Oracle, req.Quester, req.Node.ID, true)
}

// Pending returns the open requests.
func (h *OracleHandler) Pending() []Request {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Request, 0, len(h.pending))
	for _, r := range h.pending {
		out = append(out, r)
	}
	return out
}

// PendingFor returns the open request id for quester and node, if any.
func (h *OracleHandler) PendingFor(quester common.Address, nodeID uint64) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id, ok := h.inflight[missionKey{quester, nodeID}]
	return id, ok
}

func (h *OracleHandler) forget(req Request) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.pending, req.ID)
	delete(h.inflight, missionKey{req.Quester, req.Node.ID})
}
