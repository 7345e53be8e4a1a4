// Package mission provides mission handlers and the oracle fulfillment path.
//
// A handler decides one mission leaf for one quester. Handlers are
// addressed by the handler address stored on each mission node and are
// resolved through a Registry. Handlers that learn about completion
// out of band (a signal, an oracle response) push the result into the
// quest's per-quester cache through a StatusWriter, identifying themselves
// by their own address.
package mission

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/tea2x/evm-d-quest/internal/ir"
)

// Handler decides whether quester has completed the mission at node.
type Handler interface {
	ValidateMission(ctx context.Context, quester common.Address, node ir.MissionNode) (bool, error)
}

// Func adapts a function to Handler.
type Func func(ctx context.Context, quester common.Address, node ir.MissionNode) (bool, error)

// ValidateMission implements Handler.
func (f Func) ValidateMission(ctx context.Context, quester common.Address, node ir.MissionNode) (bool, error) {
	return f(ctx, quester, node)
}

// StatusWriter is the privileged cache write a handler or oracle performs.
// *quest.Quest implements it; caller must be the node's handler or oracle.
type StatusWriter interface {
	SetMissionStatus(ctx context.Context, caller, quester common.Address, nodeID uint64, done bool) error
}

// Registry maps handler addresses to implementations.
//
// Thread-safety: safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	handlers map[common.Address]Handler
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[common.Address]Handler)}
}

// Register binds addr to h, replacing any previous binding.
func (r *Registry) Register(addr common.Address, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[addr] = h
}

// Lookup returns the handler bound to addr.
func (r *Registry) Lookup(addr common.Address) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[addr]
	return h, ok
}

type missionKey struct {
	quester common.Address
	nodeID  uint64
}
