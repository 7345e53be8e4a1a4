// Package store provides the SQLite-backed quest event journal.
//
// The journal is append-only: every committed quest event is one row keyed
// by (quest, seq). Store implements quest.EventSink, so a Quest writes to it
// directly.
//
// # Critical Patterns
//
// Logical Identity and Time
//   - All ordering uses seq INTEGER (the quest's logical clock), NEVER timestamps
//   - Replaying a journal yields the same order regardless of wall time
//
// Idempotent Writes
//   - ON CONFLICT(quest, seq) DO NOTHING
//   - Re-delivering an event is a no-op
//
// Deterministic Query Results
//   - All queries order by seq ASC, quest ASC COLLATE BINARY
//   - Payloads are canonical JSON, so identical events are identical bytes
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
