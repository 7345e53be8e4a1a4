package formula

import (
	"context"
	"fmt"

	"github.com/tea2x/evm-d-quest/internal/ir"
)

// Lookup resolves node ids of a stored formula. *Store implements it.
type Lookup interface {
	Node(id uint64) (ir.MissionNode, error)
}

// MissionFunc decides a single mission leaf for the quester being evaluated.
type MissionFunc func(ctx context.Context, node ir.MissionNode) (bool, error)

type evalFrame struct {
	node     ir.MissionNode
	depth    int
	expanded bool
}

// Evaluate computes the formula rooted at root.
//
// Operator nodes always evaluate both children, left first, even when the
// left result already decides the operator. Every mission leaf is passed to
// mission exactly once per call, so handler side effects happen on both
// sides of every operator. The first error aborts the walk.
func Evaluate(ctx context.Context, tree Lookup, root uint64, mission MissionFunc, opts ...Option) (bool, error) {
	o := buildOptions(opts)

	rootNode, err := tree.Node(root)
	if err != nil {
		return false, fmt.Errorf("evaluate root: %w", err)
	}

	stack := []evalFrame{{node: rootNode, depth: 1}}
	var results []bool

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if f.depth > o.maxDepth {
			return false, fmt.Errorf("evaluate node %d at depth %d: %w", f.node.ID, f.depth, ErrDepthExceeded)
		}

		if f.node.IsMission {
			ok, err := mission(ctx, f.node)
			if err != nil {
				return false, fmt.Errorf("mission %d: %w", f.node.ID, err)
			}
			results = append(results, ok)
			continue
		}

		if !f.expanded {
			left, err := tree.Node(f.node.Left)
			if err != nil {
				return false, fmt.Errorf("node %d left child: %w", f.node.ID, err)
			}
			right, err := tree.Node(f.node.Right)
			if err != nil {
				return false, fmt.Errorf("node %d right child: %w", f.node.ID, err)
			}
			// Revisit this node once both children have produced a result.
			// Right is pushed first so left is evaluated first.
			f.expanded = true
			stack = append(stack, f,
				evalFrame{node: right, depth: f.depth + 1},
				evalFrame{node: left, depth: f.depth + 1},
			)
			continue
		}

		l, r := results[len(results)-2], results[len(results)-1]
		results = results[:len(results)-2]
		switch f.node.Operator {
		case ir.OperatorAND:
			results = append(results, l && r)
		case ir.OperatorOR:
			results = append(results, l || r)
		default:
			return false, fmt.Errorf("node %d: unknown operator %s", f.node.ID, f.node.Operator)
		}
	}

	return results[0], nil
}
