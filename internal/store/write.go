package store

import (
	"context"
	"fmt"

	"github.com/tea2x/evm-d-quest/internal/ir"
)

// WriteEvent appends a quest event to the journal. It implements
// quest.EventSink.
//
// Uses ON CONFLICT(quest, seq) DO NOTHING for idempotency - re-delivered
// events are silently ignored.
func (s *Store) WriteEvent(ctx context.Context, ev ir.Event) error {
	if ev.Quest == "" {
		return fmt.Errorf("write event: quest id is required")
	}
	if ev.Seq <= 0 {
		return fmt.Errorf("write event: seq must be positive, got %d", ev.Seq)
	}

	payload, err := marshalEvent(ev)
	if err != nil {
		return fmt.Errorf("write event: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO events (quest, seq, kind, quester, payload)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(quest, seq) DO NOTHING
	`,
		ev.Quest,
		ev.Seq,
		string(ev.Kind),
		ev.Quester,
		payload,
	)
	if err != nil {
		return fmt.Errorf("write event: %w", err)
	}

	return nil
}
