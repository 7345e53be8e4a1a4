package formula

import (
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"

	"github.com/tea2x/evm-d-quest/internal/ir"
)

// Validate checks a candidate node list and returns its root id.
//
// Checks run in a fixed order and the first failure is returned:
//  1. the list is non-empty
//  2. ids are unique
//  3. every mission leaf has a handler, an oracle, data and no children
//  4. exactly one id is never referenced as a child (the root)
//  5. a depth-first walk from the root never reaches a node twice
//
// Step 5 also rejects operator nodes with a zero or unknown child, nodes the
// walk never reaches, and trees deeper than the depth bound. A node reached
// twice is reported as a cycle even when it is only shared by two parents;
// formulas are trees, not DAGs.
func Validate(nodes []ir.MissionNode, opts ...Option) (uint64, error) {
	o := buildOptions(opts)

	// 1. empty list
	if len(nodes) == 0 {
		return 0, reject(ErrEmptyFormula, 0, "nodes", "at least one node is required")
	}

	// 2. duplicate ids
	byID := make(map[uint64]ir.MissionNode, len(nodes))
	for i, n := range nodes {
		if _, dup := byID[n.ID]; dup {
			return 0, reject(ErrDuplicateNode, n.ID, fmt.Sprintf("nodes[%d].id", i), "duplicate node id %d", n.ID)
		}
		byID[n.ID] = n
	}

	// 3. mission leaves
	for i, n := range nodes {
		if !n.IsMission {
			continue
		}
		if err := checkMission(i, n); err != nil {
			return 0, err
		}
	}

	// 4. root derivation
	root, err := deriveRoot(nodes)
	if err != nil {
		return 0, err
	}

	// 5. cycle detection
	if err := walk(root, byID, o.maxDepth); err != nil {
		return 0, err
	}

	return root, nil
}

func checkMission(i int, n ir.MissionNode) error {
	field := fmt.Sprintf("nodes[%d]", i)
	switch {
	case n.Handler == (common.Address{}):
		return reject(ErrMalformedMission, n.ID, field+".handler", "mission %d has no handler", n.ID)
	case n.Oracle == (common.Address{}):
		return reject(ErrMalformedMission, n.ID, field+".oracle", "mission %d has no oracle", n.ID)
	case n.Left != 0 || n.Right != 0:
		return reject(ErrMalformedMission, n.ID, field, "mission %d must not have children", n.ID)
	case len(n.Data) == 0:
		return reject(ErrMalformedMission, n.ID, field+".data", "mission %d has no data", n.ID)
	}
	return nil
}

// deriveRoot returns the unique id that no node references as a child.
func deriveRoot(nodes []ir.MissionNode) (uint64, error) {
	isChild := make(map[uint64]bool, len(nodes))
	for _, n := range nodes {
		if n.Left != 0 {
			isChild[n.Left] = true
		}
		if n.Right != 0 {
			isChild[n.Right] = true
		}
	}

	var roots []uint64
	for _, n := range nodes {
		if !isChild[n.ID] {
			roots = append(roots, n.ID)
		}
	}

	switch len(roots) {
	case 1:
		return roots[0], nil
	case 0:
		return 0, reject(ErrNoRoot, 0, "nodes", "every node is referenced as a child")
	default:
		sort.Slice(roots, func(i, j int) bool { return roots[i] < roots[j] })
		return 0, reject(ErrMultipleRoots, roots[0], "nodes", "multiple root candidates %v", roots)
	}
}

type walkFrame struct {
	id    uint64
	depth int
}

// walk visits every node reachable from root exactly once.
func walk(root uint64, byID map[uint64]ir.MissionNode, maxDepth int) error {
	visited := map[uint64]bool{root: true}
	stack := []walkFrame{{id: root, depth: 1}}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if f.depth > maxDepth {
			return reject(ErrTooDeep, f.id, "nodes", "node %d is at depth %d, limit is %d", f.id, f.depth, maxDepth)
		}

		n := byID[f.id]
		if n.IsMission {
			continue
		}
		if n.Left == 0 || n.Right == 0 {
			return reject(ErrMalformedOperator, n.ID, "nodes", "operator %d needs two non-zero children", n.ID)
		}
		if n.Operator != ir.OperatorAND && n.Operator != ir.OperatorOR {
			return reject(ErrMalformedOperator, n.ID, "nodes", "node %d has unknown operator %s", n.ID, n.Operator)
		}

		for _, child := range [2]uint64{n.Left, n.Right} {
			if visited[child] {
				return reject(ErrCycle, child, "nodes", "node %d is reached twice (via %d)", child, n.ID)
			}
			if _, ok := byID[child]; !ok {
				return reject(ErrUnknownNode, child, "nodes", "operator %d references unknown node %d", n.ID, child)
			}
			visited[child] = true
			stack = append(stack, walkFrame{id: child, depth: f.depth + 1})
		}
	}

	// Every unreached node has a parent that is also unreached, so the
	// unreached set always contains a cycle.
	if len(visited) != len(byID) {
		var detached []uint64
		for id := range byID {
			if !visited[id] {
				detached = append(detached, id)
			}
		}
		sort.Slice(detached, func(i, j int) bool { return detached[i] < detached[j] })
		return reject(ErrCycle, detached[0], "nodes", "nodes %v are not reachable from root %d", detached, root)
	}

	return nil
}
