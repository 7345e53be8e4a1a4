package formula

import (
	"github.com/tea2x/evm-d-quest/internal/generation"
	"github.com/tea2x/evm-d-quest/internal/ir"
)

// Store holds the current generation of a quest's formula and its root.
type Store struct {
	nodes *generation.Store[ir.MissionNode]
	root  uint64
	opts  []Option
}

// NewStore creates an empty formula store. Options apply to every Set.
func NewStore(opts ...Option) *Store {
	return &Store{
		nodes: generation.New[ir.MissionNode](),
		opts:  opts,
	}
}

// Set validates nodes and, only if they are accepted, replaces the stored
// formula with them. A rejected list leaves the previous formula intact.
func (s *Store) Set(nodes []ir.MissionNode) (uint64, error) {
	root, err := Validate(nodes, s.opts...)
	if err != nil {
		return 0, err
	}

	owned := make([]ir.MissionNode, len(nodes))
	for i, n := range nodes {
		n.Data = append([]byte(nil), n.Data...)
		owned[i] = n
	}

	// Validate rejects empty lists, so Set always inserts here.
	s.nodes.Set(owned)
	s.nodes.Prune()
	s.root = root
	return root, nil
}

// Root returns the root id of the current formula, 0 if none is set.
func (s *Store) Root() uint64 { return s.root }

// Node returns a node of the current formula.
func (s *Store) Node(id uint64) (ir.MissionNode, error) { return s.nodes.Get(id) }

// Nodes returns the current formula in submission order.
func (s *Store) Nodes() []ir.MissionNode { return s.nodes.Values() }

// Len returns the number of nodes in the current formula.
func (s *Store) Len() int { return s.nodes.Len() }

// Generation returns the formula generation.
func (s *Store) Generation() uint64 { return s.nodes.Generation() }
