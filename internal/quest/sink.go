package quest

import (
	"context"
	"sync"

	"github.com/tea2x/evm-d-quest/internal/ir"
)

// EventSink receives committed quest events in seq order.
type EventSink interface {
	WriteEvent(ctx context.Context, ev ir.Event) error
}

// MemorySink keeps events in memory. Used by tests and the simulator when
// no journal is configured.
type MemorySink struct {
	mu     sync.Mutex
	events []ir.Event
}

// WriteEvent appends ev.
func (s *MemorySink) WriteEvent(_ context.Context, ev ir.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

// Events returns a copy of the recorded events.
func (s *MemorySink) Events() []ir.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ir.Event, len(s.events))
	copy(out, s.events)
	return out
}

// Kinds returns the kinds of the recorded events, in order.
func (s *MemorySink) Kinds() []ir.EventKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ir.EventKind, len(s.events))
	for i, ev := range s.events {
		out[i] = ev.Kind
	}
	return out
}
