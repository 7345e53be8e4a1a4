package ir

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Operator combines the results of an operator node's two children.
type Operator uint8

const (
	OperatorAND Operator = iota
	OperatorOR
)

// String returns the operator's canonical name.
func (o Operator) String() string {
	switch o {
	case OperatorAND:
		return "AND"
	case OperatorOR:
		return "OR"
	default:
		return fmt.Sprintf("Operator(%d)", uint8(o))
	}
}

// ParseOperator parses "AND" or "OR".
func ParseOperator(s string) (Operator, error) {
	switch s {
	case "AND", "and":
		return OperatorAND, nil
	case "OR", "or":
		return OperatorOR, nil
	default:
		return 0, fmt.Errorf("unknown operator %q", s)
	}
}

// MissionNode is one node of a quest's mission formula.
//
// A mission leaf (IsMission) is evaluated by the handler at Handler and has
// Left = Right = 0. An operator node combines Left and Right with Operator.
type MissionNode struct {
	ID        uint64         `json:"id"`
	IsMission bool           `json:"is_mission"`
	Operator  Operator       `json:"operator"`
	Left      uint64         `json:"left"`
	Right     uint64         `json:"right"`
	Handler   common.Address `json:"handler"`
	Oracle    common.Address `json:"oracle"`
	Data      []byte         `json:"data"`
}

// Key implements generation.Keyed.
func (n MissionNode) Key() uint64 { return n.ID }

// Selector identifies the reward-moving call an outcome performs.
type Selector uint8

const (
	SelectorNone Selector = iota
	SelectorERC20Transfer
	SelectorERC721Transfer
	SelectorSBTMint
	SelectorNFTConditionalMint
)

var selectorNames = map[Selector]string{
	SelectorNone:               "NONE",
	SelectorERC20Transfer:      "ERC20_TRANSFER",
	SelectorERC721Transfer:     "ERC721_TRANSFER",
	SelectorSBTMint:            "SBT_MINT",
	SelectorNFTConditionalMint: "NFT_CONDITIONAL_MINT",
}

// String returns the selector's wire name.
func (s Selector) String() string {
	if name, ok := selectorNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Selector(%d)", uint8(s))
}

// ParseSelector accepts the wire name ("ERC20_TRANSFER") or its short
// lowercase form ("erc20", "erc721", "sbt", "conditional").
func ParseSelector(s string) (Selector, error) {
	switch s {
	case "ERC20_TRANSFER", "erc20":
		return SelectorERC20Transfer, nil
	case "ERC721_TRANSFER", "erc721":
		return SelectorERC721Transfer, nil
	case "SBT_MINT", "sbt":
		return SelectorSBTMint, nil
	case "NFT_CONDITIONAL_MINT", "conditional":
		return SelectorNFTConditionalMint, nil
	case "", "NONE":
		return SelectorNone, nil
	default:
		return SelectorNone, fmt.Errorf("unknown selector %q", s)
	}
}

// Outcome is one configured reward. Index is its position in submission
// order and doubles as its id.
type Outcome struct {
	Index        uint64         `json:"index"`
	IsNative     bool           `json:"is_native"`
	NativeAmount *big.Int       `json:"native_amount,omitempty"`
	Token        common.Address `json:"token"`
	Selector     Selector       `json:"selector"`
	Data         []byte         `json:"data,omitempty"`
	IsLimited    bool           `json:"is_limited"`
	TotalReward  *big.Int       `json:"total_reward,omitempty"`
}

// Key implements generation.Keyed.
func (o Outcome) Key() uint64 { return o.Index }

// Clone returns a deep copy so callers can mutate amounts and data freely.
func (o Outcome) Clone() Outcome {
	c := o
	if o.NativeAmount != nil {
		c.NativeAmount = new(big.Int).Set(o.NativeAmount)
	}
	if o.TotalReward != nil {
		c.TotalReward = new(big.Int).Set(o.TotalReward)
	}
	if o.Data != nil {
		c.Data = append([]byte(nil), o.Data...)
	}
	return c
}

// Remaining returns TotalReward, treating nil as zero.
func (o Outcome) Remaining() *big.Int {
	if o.TotalReward == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(o.TotalReward)
}

// Exhausted reports whether a limited outcome has no capacity left.
func (o Outcome) Exhausted() bool {
	return o.IsLimited && o.Remaining().Sign() <= 0
}

// Progress is a quester's forward-only position in a quest.
type Progress uint8

const (
	NotEnrolled Progress = iota
	InProgress
	Completed
	Rewarded
)

// String returns the progress name.
func (p Progress) String() string {
	switch p {
	case NotEnrolled:
		return "NotEnrolled"
	case InProgress:
		return "InProgress"
	case Completed:
		return "Completed"
	case Rewarded:
		return "Rewarded"
	default:
		return fmt.Sprintf("Progress(%d)", uint8(p))
	}
}

// EventKind names an observable quest event.
type EventKind string

const (
	EventFormulaSet      EventKind = "formula_set"
	EventOutcomesSet     EventKind = "outcomes_set"
	EventQuesterEnrolled EventKind = "quester_enrolled"
	EventQuestCompleted  EventKind = "quest_completed"
	EventOutcomeExecuted EventKind = "outcome_executed"
	EventQuesterRewarded EventKind = "quester_rewarded"
)

// Event is emitted once per successful quest operation for external
// indexers. Seq is a logical clock value, never a timestamp.
type Event struct {
	Seq          int64     `json:"seq"`
	Quest        string    `json:"quest"`
	Kind         EventKind `json:"kind"`
	Quester      string    `json:"quester,omitempty"`
	Generation   uint64    `json:"generation,omitempty"`
	RootID       uint64    `json:"root_id,omitempty"`
	Count        int       `json:"count,omitempty"`
	OutcomeIndex uint64    `json:"outcome_index,omitempty"`
	Selector     string    `json:"selector,omitempty"`
	Amount       string    `json:"amount,omitempty"`
	Digest       string    `json:"digest,omitempty"`
}
