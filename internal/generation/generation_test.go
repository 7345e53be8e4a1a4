package generation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	id    uint64
	label string
}

func (i item) Key() uint64 { return i.id }

func TestStore_SetAndGet(t *testing.T) {
	s := New[item]()
	assert.Equal(t, uint64(0), s.Generation())

	ok := s.Set([]item{{7, "seven"}, {3, "three"}})
	require.True(t, ok)
	assert.Equal(t, uint64(1), s.Generation())
	assert.Equal(t, 2, s.Len())

	got, err := s.Get(7)
	require.NoError(t, err)
	assert.Equal(t, "seven", got.label)
}

func TestStore_ValuesKeepInsertionOrder(t *testing.T) {
	s := New[item]()
	s.Set([]item{{9, "a"}, {1, "b"}, {5, "c"}})

	var labels []string
	for _, v := range s.Values() {
		labels = append(labels, v.label)
	}
	assert.Equal(t, []string{"a", "b", "c"}, labels)
}

// TestStore_SetSupersedesPreviousGeneration verifies old entries become unreachable.
func TestStore_SetSupersedesPreviousGeneration(t *testing.T) {
	s := New[item]()
	s.Set([]item{{1, "old"}, {2, "old"}})
	s.Set([]item{{2, "new"}})

	assert.Equal(t, uint64(2), s.Generation())
	assert.Equal(t, 1, s.Len())

	_, err := s.Get(1)
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := s.Get(2)
	require.NoError(t, err)
	assert.Equal(t, "new", got.label)
}

// TestStore_EmptySetStillAdvances documents that the advance happens before the empty check.
func TestStore_EmptySetStillAdvances(t *testing.T) {
	s := New[item]()
	s.Set([]item{{1, "kept?"}})

	ok := s.Set(nil)
	assert.False(t, ok)
	assert.Equal(t, uint64(2), s.Generation())
	assert.Equal(t, 0, s.Len())
	assert.Nil(t, s.Values())
	_, err := s.Get(1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_Replace(t *testing.T) {
	s := New[item]()
	require.ErrorIs(t, s.Replace(1, item{1, "x"}), ErrNotFound)

	s.Set([]item{{1, "before"}, {2, "other"}})
	require.NoError(t, s.Replace(1, item{1, "after"}))

	got, err := s.Get(1)
	require.NoError(t, err)
	assert.Equal(t, "after", got.label)
	assert.Equal(t, []item{{1, "after"}, {2, "other"}}, s.Values())

	assert.ErrorIs(t, s.Replace(99, item{99, "x"}), ErrNotFound)
}

func TestStore_ReplaceOnlyTouchesCurrentGeneration(t *testing.T) {
	s := New[item]()
	s.Set([]item{{1, "gen1"}})
	s.Set([]item{{2, "gen2"}})

	assert.ErrorIs(t, s.Replace(1, item{1, "x"}), ErrNotFound)
}

func TestStore_GetBeforeAnySet(t *testing.T) {
	s := New[item]()
	_, err := s.Get(1)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 0, s.Len())
}

func TestStore_Prune(t *testing.T) {
	s := New[item]()
	s.Set([]item{{1, "a"}})
	s.Set([]item{{1, "b"}})
	s.Set([]item{{1, "c"}})

	assert.Equal(t, 2, s.Prune())
	assert.Equal(t, 0, s.Prune())

	got, err := s.Get(1)
	require.NoError(t, err)
	assert.Equal(t, "c", got.label)
}

func TestStore_ValuesIsACopy(t *testing.T) {
	s := New[item]()
	s.Set([]item{{1, "a"}})

	vals := s.Values()
	vals[0].label = "mutated"

	got, _ := s.Get(1)
	assert.Equal(t, "a", got.label)
}
