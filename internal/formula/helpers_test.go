package formula

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/tea2x/evm-d-quest/internal/ir"
)

var (
	testHandler = common.HexToAddress("0x1000000000000000000000000000000000000001")
	testOracle  = common.HexToAddress("0x2000000000000000000000000000000000000002")
)

func leaf(id uint64) ir.MissionNode {
	return ir.MissionNode{ID: id, IsMission: true, Handler: testHandler, Oracle: testOracle, Data: []byte{byte(id)}}
}

func and(id, left, right uint64) ir.MissionNode {
	return ir.MissionNode{ID: id, Operator: ir.OperatorAND, Left: left, Right: right}
}

func or(id, left, right uint64) ir.MissionNode {
	return ir.MissionNode{ID: id, Operator: ir.OperatorOR, Left: left, Right: right}
}

// chain builds a left-leaning AND chain of the given depth rooted at id 1.
func chain(depth int) []ir.MissionNode {
	var nodes []ir.MissionNode
	next := uint64(1)
	for d := 1; d < depth; d++ {
		op := next
		leftID, rightID := op+2, op+1
		nodes = append(nodes, and(op, leftID, rightID), leaf(rightID))
		next = leftID
	}
	return append(nodes, leaf(next))
}
