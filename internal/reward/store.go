package reward

import (
	"fmt"

	"github.com/tea2x/evm-d-quest/internal/generation"
	"github.com/tea2x/evm-d-quest/internal/ir"
)

// Store holds the current generation of a quest's outcomes together with
// the rewardsAvailable flag.
type Store struct {
	outcomes  *generation.Store[ir.Outcome]
	available bool
}

// NewStore creates an empty outcome store. RewardsAvailable is false until
// a list is set.
func NewStore() *Store {
	return &Store{outcomes: generation.New[ir.Outcome]()}
}

// Set validates outcomes and, only if they are accepted, replaces the
// stored list. Indexes are reassigned from submission order.
func (s *Store) Set(outcomes []ir.Outcome) error {
	if err := Validate(outcomes); err != nil {
		return err
	}

	owned := make([]ir.Outcome, len(outcomes))
	for i, o := range outcomes {
		c := o.Clone()
		c.Index = uint64(i)
		owned[i] = c
	}

	s.outcomes.Set(owned)
	s.outcomes.Prune()
	s.available = Available(owned)
	return nil
}

// Outcomes returns deep copies of the current outcomes in submission order.
func (s *Store) Outcomes() []ir.Outcome {
	vals := s.outcomes.Values()
	for i := range vals {
		vals[i] = vals[i].Clone()
	}
	return vals
}

// Get returns a copy of the outcome at index.
func (s *Store) Get(index uint64) (ir.Outcome, error) {
	o, err := s.outcomes.Get(index)
	if err != nil {
		return ir.Outcome{}, err
	}
	return o.Clone(), nil
}

// Apply commits the result of a successful distribution pass.
func (s *Store) Apply(res *Result) error {
	for _, o := range res.Updated {
		if err := s.outcomes.Replace(o.Index, o.Clone()); err != nil {
			return fmt.Errorf("apply outcome %d: %w", o.Index, err)
		}
	}
	s.available = res.RewardsAvailable
	return nil
}

// RewardsAvailable reports whether any outcome can still pay out.
func (s *Store) RewardsAvailable() bool { return s.available }

// Len returns the number of current outcomes.
func (s *Store) Len() int { return s.outcomes.Len() }

// Generation returns the outcome generation.
func (s *Store) Generation() uint64 { return s.outcomes.Generation() }

// Available is true iff any outcome is unlimited or any limited outcome
// still has positive remaining capacity.
func Available(outcomes []ir.Outcome) bool {
	for _, o := range outcomes {
		if !o.IsLimited || o.Remaining().Sign() > 0 {
			return true
		}
	}
	return false
}
