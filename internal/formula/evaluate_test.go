package formula

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tea2x/evm-d-quest/internal/generation"
	"github.com/tea2x/evm-d-quest/internal/ir"
)

// countingMissions answers from a fixed table and counts calls per node.
type countingMissions struct {
	answers map[uint64]bool
	calls   map[uint64]int
	order   []uint64
}

func newCountingMissions(answers map[uint64]bool) *countingMissions {
	return &countingMissions{answers: answers, calls: make(map[uint64]int)}
}

func (c *countingMissions) validate(_ context.Context, n ir.MissionNode) (bool, error) {
	c.calls[n.ID]++
	c.order = append(c.order, n.ID)
	return c.answers[n.ID], nil
}

func storeWith(t *testing.T, nodes ...ir.MissionNode) *Store {
	t.Helper()
	s := NewStore()
	_, err := s.Set(nodes)
	require.NoError(t, err)
	return s
}

func TestEvaluate_Operators(t *testing.T) {
	tests := []struct {
		name  string
		op    func(id, l, r uint64) ir.MissionNode
		left  bool
		right bool
		want  bool
	}{
		{"and tt", and, true, true, true},
		{"and tf", and, true, false, false},
		{"and ft", and, false, true, false},
		{"and ff", and, false, false, false},
		{"or tt", or, true, true, true},
		{"or tf", or, true, false, true},
		{"or ft", or, false, true, true},
		{"or ff", or, false, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := storeWith(t, tt.op(1, 2, 3), leaf(2), leaf(3))
			m := newCountingMissions(map[uint64]bool{2: tt.left, 3: tt.right})

			got, err := Evaluate(context.Background(), s, s.Root(), m.validate)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// TestEvaluate_NoShortCircuit verifies each leaf is visited exactly once even when
// the left side alone decides the operator.
func TestEvaluate_NoShortCircuit(t *testing.T) {
	s := storeWith(t,
		or(1, 2, 3),
		and(2, 4, 5),
		or(3, 6, 7),
		leaf(4), leaf(5), leaf(6), leaf(7),
	)
	// AND(false, x) and OR(true, x) both have a decided left side.
	m := newCountingMissions(map[uint64]bool{4: false, 5: true, 6: true, 7: false})

	got, err := Evaluate(context.Background(), s, s.Root(), m.validate)
	require.NoError(t, err)
	assert.True(t, got)

	assert.Equal(t, map[uint64]int{4: 1, 5: 1, 6: 1, 7: 1}, m.calls)
	assert.Equal(t, []uint64{4, 5, 6, 7}, m.order, "left subtree first")
}

// TestEvaluate_Pure verifies repeated evaluation without state change is stable.
func TestEvaluate_Pure(t *testing.T) {
	s := storeWith(t, and(1, 2, 3), leaf(2), leaf(3))
	m := newCountingMissions(map[uint64]bool{2: true, 3: false})

	first, err := Evaluate(context.Background(), s, s.Root(), m.validate)
	require.NoError(t, err)
	second, err := Evaluate(context.Background(), s, s.Root(), m.validate)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 2, m.calls[2])
}

func TestEvaluate_MissionError(t *testing.T) {
	s := storeWith(t, and(1, 2, 3), leaf(2), leaf(3))
	boom := errors.New("handler reverted")

	_, err := Evaluate(context.Background(), s, s.Root(), func(_ context.Context, n ir.MissionNode) (bool, error) {
		if n.ID == 3 {
			return false, boom
		}
		return true, nil
	})
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "mission 3")
}

func TestEvaluate_UnknownRoot(t *testing.T) {
	s := storeWith(t, leaf(1))
	_, err := Evaluate(context.Background(), s, 2, newCountingMissions(nil).validate)
	assert.ErrorIs(t, err, generation.ErrNotFound)
}

func TestEvaluate_DepthBound(t *testing.T) {
	s := NewStore(WithMaxDepth(20))
	_, err := s.Set(chain(20))
	require.NoError(t, err)

	m := newCountingMissions(nil)
	_, err = Evaluate(context.Background(), s, s.Root(), m.validate, WithMaxDepth(19))
	assert.ErrorIs(t, err, ErrDepthExceeded)

	_, err = Evaluate(context.Background(), s, s.Root(), m.validate, WithMaxDepth(20))
	assert.NoError(t, err)
}
