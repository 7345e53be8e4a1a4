// Package compiler turns CUE quest definitions into ir types.
//
// A quest file declares the quest's identity, window, mission formula,
// reward outcomes and the mission handlers a simulator should bind:
//
//	quest: genesis: {
//		owner: "0x00000000000000000000000000000000000000f0"
//		formula: [
//			{id: 1, op: "AND", left: 2, right: 3},
//			{id: 2, handler: "0x10...01", oracle: "0x20...02", data: "0x01"},
//			{id: 3, handler: "0x10...01", oracle: "0x20...02", data: "0x02"},
//		]
//		outcomes: [
//			{native: 10, limited: true, total: 10},
//			{token: "0xc0...", erc20: {spender: "0xd0...", amount: 5}},
//		]
//		handlers: "0x10...01": {kind: "oracle", oracle: "0x20...02"}
//	}
//
// Compilation is structural: field types, address and amount syntax, one
// reward kind per outcome. Tree shape and outcome consistency are checked
// by formula.Validate and reward.Validate.
package compiler
