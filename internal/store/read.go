package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tea2x/evm-d-quest/internal/ir"
)

// Filter narrows ReadEvents. Zero fields match everything.
type Filter struct {
	Quest   string
	Quester string
	Kind    ir.EventKind
}

// ReadEvents returns journaled events matching f.
// Results are ordered deterministically: ORDER BY seq ASC, quest ASC COLLATE BINARY.
//
// Returns an empty slice (not nil) if nothing matches.
func (s *Store) ReadEvents(ctx context.Context, f Filter) ([]ir.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT payload
		FROM events
		WHERE (? = '' OR quest = ?)
		  AND (? = '' OR quester = ?)
		  AND (? = '' OR kind = ?)
		ORDER BY seq ASC, quest COLLATE BINARY ASC
	`,
		f.Quest, f.Quest,
		f.Quester, f.Quester,
		string(f.Kind), string(f.Kind),
	)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []ir.Event{}
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev, err := unmarshalEvent(payload)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}

	return events, nil
}

// LastSeq returns the highest journaled seq for quest, 0 if it has none.
// Used to resume a quest's logical clock.
func (s *Store) LastSeq(ctx context.Context, quest string) (int64, error) {
	var seq sql.NullInt64
	err := s.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM events WHERE quest = ?`, quest).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("last seq: %w", err)
	}
	return seq.Int64, nil
}

// Quests returns the distinct quest ids in the journal, sorted.
func (s *Store) Quests(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT quest FROM events ORDER BY quest COLLATE BINARY ASC`)
	if err != nil {
		return nil, fmt.Errorf("query quests: %w", err)
	}
	defer rows.Close()

	quests := []string{}
	for rows.Next() {
		var q string
		if err := rows.Scan(&q); err != nil {
			return nil, fmt.Errorf("scan quest: %w", err)
		}
		quests = append(quests, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate quests: %w", err)
	}
	return quests, nil
}
