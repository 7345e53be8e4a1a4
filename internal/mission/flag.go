package mission

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/tea2x/evm-d-quest/internal/ir"
)

// Flag is a handler completed by an explicit external signal, such as an
// off-chain webhook confirming a social action.
//
// ValidateMission reports whether the signal has arrived (pull). Signal
// records it and writes the quest cache with Address as the caller (push).
type Flag struct {
	Address common.Address
	Writer  StatusWriter

	mu   sync.Mutex
	done map[missionKey]bool
}

// NewFlag creates a flag handler at addr. Writer may be bound later.
func NewFlag(addr common.Address, w StatusWriter) *Flag {
	return &Flag{Address: addr, Writer: w, done: make(map[missionKey]bool)}
}

// ValidateMission implements Handler.
func (f *Flag) ValidateMission(_ context.Context, quester common.Address, node ir.MissionNode) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.done[missionKey{quester, node.ID}], nil
}

// Signal marks the mission done for quester and pushes the status.
func (f *Flag) Signal(ctx context.Context, quester common.Address, nodeID uint64) error {
	f.mu.Lock()
	f.done[missionKey{quester, nodeID}] = true
	w := f.Writer
	f.mu.Unlock()

	if w == nil {
		return nil
	}
	return w.SetMissionStatus(ctx, f.Address, quester, nodeID, true)
}
