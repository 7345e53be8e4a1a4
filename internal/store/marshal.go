package store

import (
	"encoding/json"
	"fmt"

	"github.com/tea2x/evm-d-quest/internal/ir"
)

// marshalEvent converts an event to canonical JSON TEXT for storage.
// Zero-valued fields are omitted, matching the event's JSON form.
func marshalEvent(ev ir.Event) (string, error) {
	m := map[string]any{
		"seq":   ev.Seq,
		"quest": ev.Quest,
		"kind":  string(ev.Kind),
	}
	if ev.Quester != "" {
		m["quester"] = ev.Quester
	}
	if ev.Generation != 0 {
		m["generation"] = ev.Generation
	}
	if ev.RootID != 0 {
		m["root_id"] = ev.RootID
	}
	if ev.Count != 0 {
		m["count"] = ev.Count
	}
	if ev.OutcomeIndex != 0 {
		m["outcome_index"] = ev.OutcomeIndex
	}
	if ev.Selector != "" {
		m["selector"] = ev.Selector
	}
	if ev.Amount != "" {
		m["amount"] = ev.Amount
	}
	if ev.Digest != "" {
		m["digest"] = ev.Digest
	}

	data, err := ir.MarshalCanonical(m)
	if err != nil {
		return "", fmt.Errorf("marshal event: %w", err)
	}
	return string(data), nil
}

// unmarshalEvent parses a stored payload.
func unmarshalEvent(payload string) (ir.Event, error) {
	var ev ir.Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return ir.Event{}, fmt.Errorf("unmarshal event: %w", err)
	}
	return ev, nil
}
