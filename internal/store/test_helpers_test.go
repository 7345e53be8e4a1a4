package store

import (
	"path/filepath"
	"testing"

	"github.com/tea2x/evm-d-quest/internal/ir"
)

// createTestStore creates a new file-backed store in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestEvent creates an event with the minimal required fields.
func createTestEvent(quest string, seq int64, kind ir.EventKind, quester string) ir.Event {
	return ir.Event{Seq: seq, Quest: quest, Kind: kind, Quester: quester}
}
