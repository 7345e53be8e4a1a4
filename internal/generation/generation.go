// Package generation provides a keyed collection with O(1) bulk replacement.
//
// Every Set advances a generation pointer before inserting, so all entries
// written under earlier generations become unreachable without being
// iterated or deleted. Generation 0 is reserved and never holds data.
//
// A Store is not safe for concurrent use; callers serialize access (the
// quest package holds its single-writer lock around every call).
package generation

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when an id is absent from the current generation.
var ErrNotFound = errors.New("not found in current generation")

// Keyed values declare their own id within a generation.
type Keyed interface {
	Key() uint64
}

type bucket[V Keyed] struct {
	values map[uint64]V
	order  []uint64 // insertion order
}

// Store is a generational collection of V keyed by V.Key().
type Store[V Keyed] struct {
	generation uint64
	buckets    map[uint64]*bucket[V]
}

// New creates an empty store at generation 0.
func New[V Keyed]() *Store[V] {
	return &Store[V]{buckets: make(map[uint64]*bucket[V])}
}

// Set advances the generation and inserts items keyed by their declared id.
//
// Returns false when items is empty. The advance has already happened by
// then, so the previous generation is no longer visible; callers that need
// the old data must check for emptiness before calling Set. A later item
// with a repeated key overwrites the earlier value but keeps its position.
func (s *Store[V]) Set(items []V) bool {
	s.generation++
	if len(items) == 0 {
		return false
	}

	b := &bucket[V]{
		values: make(map[uint64]V, len(items)),
		order:  make([]uint64, 0, len(items)),
	}
	for _, item := range items {
		id := item.Key()
		if _, dup := b.values[id]; !dup {
			b.order = append(b.order, id)
		}
		b.values[id] = item
	}
	s.buckets[s.generation] = b
	return true
}

// Get returns the value stored under id in the current generation.
func (s *Store[V]) Get(id uint64) (V, error) {
	var zero V
	b := s.current()
	if b == nil {
		return zero, fmt.Errorf("get %d: %w", id, ErrNotFound)
	}
	v, ok := b.values[id]
	if !ok {
		return zero, fmt.Errorf("get %d: %w", id, ErrNotFound)
	}
	return v, nil
}

// Replace overwrites the value of an existing id in the current generation.
// The replacement is stored under id regardless of v.Key().
func (s *Store[V]) Replace(id uint64, v V) error {
	b := s.current()
	if b == nil {
		return fmt.Errorf("replace %d: %w", id, ErrNotFound)
	}
	if _, ok := b.values[id]; !ok {
		return fmt.Errorf("replace %d: %w", id, ErrNotFound)
	}
	b.values[id] = v
	return nil
}

// Len returns the number of entries in the current generation.
func (s *Store[V]) Len() int {
	b := s.current()
	if b == nil {
		return 0
	}
	return len(b.order)
}

// Values returns the current generation's entries in insertion order.
// The returned slice is a copy; mutating it does not affect the store.
func (s *Store[V]) Values() []V {
	b := s.current()
	if b == nil {
		return nil
	}
	out := make([]V, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, b.values[id])
	}
	return out
}

// Generation returns the current generation pointer.
func (s *Store[V]) Generation() uint64 {
	return s.generation
}

// Prune drops every superseded generation and returns how many were freed.
// Reads never see superseded generations, so pruning only releases memory.
func (s *Store[V]) Prune() int {
	freed := 0
	for gen := range s.buckets {
		if gen != s.generation {
			delete(s.buckets, gen)
			freed++
		}
	}
	return freed
}

func (s *Store[V]) current() *bucket[V] {
	return s.buckets[s.generation]
}
