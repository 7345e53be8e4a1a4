package compiler

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"github.com/ethereum/go-ethereum/common"

	"github.com/tea2x/evm-d-quest/internal/ir"
)

// HandlerKind selects the mission handler a simulator binds at an address.
type HandlerKind string

const (
	HandlerFlag   HandlerKind = "flag"   // completed by an explicit signal
	HandlerOracle HandlerKind = "oracle" // completed by an oracle fulfillment
	HandlerAlways HandlerKind = "always" // always answers true
	HandlerNever  HandlerKind = "never"  // always answers false
)

// HandlerDef declares the handler at Address.
type HandlerDef struct {
	Address common.Address
	Kind    HandlerKind
	Oracle  common.Address // oracle handlers only
}

// QuestDef is a compiled quest definition.
type QuestDef struct {
	ID       string
	Owner    common.Address
	Start    time.Time // zero: ungated
	End      time.Time // zero: open-ended
	Formula  []ir.MissionNode
	Outcomes []ir.Outcome
	Handlers []HandlerDef
}

// CompileQuest parses a CUE value into a QuestDef.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value should be the quest struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`quest: genesis: { ... }`)
//	def, err := CompileQuest(v.LookupPath(cue.ParsePath("quest.genesis")))
//
// The quest id defaults to the struct label. Structural problems are
// returned together as CompileErrors.
func CompileQuest(v cue.Value) (*QuestDef, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	spec, err := extractQuest(v)
	if err != nil {
		return nil, err
	}

	if err := specValidate.Struct(spec); err != nil {
		return nil, validationErrors(err)
	}

	def, err := convertQuest(spec)
	if err != nil {
		if ce, ok := err.(*CompileError); ok && !ce.Pos.IsValid() {
			ce.Pos = v.Pos()
		}
		return nil, err
	}
	return def, nil
}

func extractQuest(v cue.Value) (questSpec, error) {
	var spec questSpec
	var err error

	if spec.ID, err = optString(v, "id"); err != nil {
		return spec, err
	}
	if spec.ID == "" {
		if labels := v.Path().Selectors(); len(labels) > 0 {
			spec.ID = strings.Trim(labels[len(labels)-1].String(), `"`)
		}
	}
	if spec.Owner, err = optString(v, "owner"); err != nil {
		return spec, err
	}
	if spec.Start, err = optString(v, "start"); err != nil {
		return spec, err
	}
	if spec.End, err = optString(v, "end"); err != nil {
		return spec, err
	}

	err = eachListItem(v, "formula", func(item cue.Value) error {
		n, err := extractNode(item)
		spec.Formula = append(spec.Formula, n)
		return err
	})
	if err != nil {
		return spec, err
	}

	err = eachListItem(v, "outcomes", func(item cue.Value) error {
		o, err := extractOutcome(item)
		spec.Outcomes = append(spec.Outcomes, o)
		return err
	})
	if err != nil {
		return spec, err
	}

	handlersVal := v.LookupPath(cue.ParsePath("handlers"))
	if handlersVal.Exists() {
		iter, err := handlersVal.Fields()
		if err != nil {
			return spec, formatCUEError(err)
		}
		for iter.Next() {
			h := handlerSpec{Address: strings.Trim(iter.Selector().String(), `"`)}
			if h.Kind, err = optString(iter.Value(), "kind"); err != nil {
				return spec, err
			}
			if h.Oracle, err = optString(iter.Value(), "oracle"); err != nil {
				return spec, err
			}
			spec.Handlers = append(spec.Handlers, h)
		}
	}

	return spec, nil
}

func extractNode(v cue.Value) (nodeSpec, error) {
	var n nodeSpec
	var err error
	if n.ID, err = optUint(v, "id"); err != nil {
		return n, err
	}
	if n.Op, err = optString(v, "op"); err != nil {
		return n, err
	}
	if n.Left, err = optUint(v, "left"); err != nil {
		return n, err
	}
	if n.Right, err = optUint(v, "right"); err != nil {
		return n, err
	}
	if n.Handler, err = optString(v, "handler"); err != nil {
		return n, err
	}
	if n.Oracle, err = optString(v, "oracle"); err != nil {
		return n, err
	}
	n.Data, err = optString(v, "data")
	return n, err
}

func extractOutcome(v cue.Value) (outcomeSpec, error) {
	var o outcomeSpec
	var err error
	if o.Native, err = optNumber(v, "native"); err != nil {
		return o, err
	}
	if o.Token, err = optString(v, "token"); err != nil {
		return o, err
	}
	if o.Limited, err = optBool(v, "limited"); err != nil {
		return o, err
	}
	if o.Total, err = optNumber(v, "total"); err != nil {
		return o, err
	}

	if sub := v.LookupPath(cue.ParsePath("erc20")); sub.Exists() {
		o.ERC20 = &erc20Spec{}
		if o.ERC20.Spender, err = optString(sub, "spender"); err != nil {
			return o, err
		}
		if o.ERC20.Amount, err = optNumber(sub, "amount"); err != nil {
			return o, err
		}
	}
	if sub := v.LookupPath(cue.ParsePath("erc721")); sub.Exists() {
		o.ERC721 = &erc721Spec{}
		if o.ERC721.Spender, err = optString(sub, "spender"); err != nil {
			return o, err
		}
		if o.ERC721.TokenID, err = optNumber(sub, "token_id"); err != nil {
			return o, err
		}
	}
	if sub := v.LookupPath(cue.ParsePath("sbt")); sub.Exists() {
		o.SBT = &sbtSpec{}
		if o.SBT.Expiration, err = optNumber(sub, "expiration"); err != nil {
			return o, err
		}
	}
	if sub := v.LookupPath(cue.ParsePath("conditional")); sub.Exists() {
		o.Conditional = &conditionalSpec{}
		if o.Conditional.ConditionID, err = optNumber(sub, "condition_id"); err != nil {
			return o, err
		}
		if o.Conditional.Amount, err = optNumber(sub, "amount"); err != nil {
			return o, err
		}
	}
	return o, nil
}

func convertQuest(spec questSpec) (*QuestDef, error) {
	def := &QuestDef{
		ID:    spec.ID,
		Owner: common.HexToAddress(spec.Owner),
	}

	// datetime validation already guarantees these parse.
	if spec.Start != "" {
		def.Start, _ = time.Parse(time.RFC3339, spec.Start)
	}
	if spec.End != "" {
		def.End, _ = time.Parse(time.RFC3339, spec.End)
		if def.Start.IsZero() {
			return nil, &CompileError{Field: "end", Message: "end requires start"}
		}
		if !def.End.After(def.Start) {
			return nil, &CompileError{Field: "end", Message: "end must be after start"}
		}
	}

	for _, n := range spec.Formula {
		node := ir.MissionNode{
			ID:    n.ID,
			Left:  n.Left,
			Right: n.Right,
		}
		if n.Op == "" {
			node.IsMission = true
			node.Handler = common.HexToAddress(n.Handler)
			if n.Oracle != "" {
				node.Oracle = common.HexToAddress(n.Oracle)
			}
			node.Data = common.FromHex(n.Data)
		} else {
			op, err := ir.ParseOperator(n.Op)
			if err != nil {
				return nil, &CompileError{Field: fmt.Sprintf("formula[id=%d].op", n.ID), Message: err.Error()}
			}
			node.Operator = op
		}
		def.Formula = append(def.Formula, node)
	}

	for i, o := range spec.Outcomes {
		out, err := convertOutcome(o)
		if err != nil {
			return nil, &CompileError{Field: fmt.Sprintf("outcomes[%d]", i), Message: err.Error()}
		}
		def.Outcomes = append(def.Outcomes, out)
	}

	for _, h := range spec.Handlers {
		hd := HandlerDef{Address: common.HexToAddress(h.Address), Kind: HandlerKind(h.Kind)}
		if h.Oracle != "" {
			hd.Oracle = common.HexToAddress(h.Oracle)
		}
		def.Handlers = append(def.Handlers, hd)
	}

	return def, nil
}

func convertOutcome(o outcomeSpec) (ir.Outcome, error) {
	out := ir.Outcome{
		IsLimited:   o.Limited,
		TotalReward: bigOrZero(o.Total),
	}
	if o.Native != "" {
		out.IsNative = true
		out.NativeAmount = bigOrZero(o.Native)
		return out, nil
	}

	var params ir.RewardParams
	switch {
	case o.ERC20 != nil:
		params = ir.ERC20Params{Spender: common.HexToAddress(o.ERC20.Spender), Amount: bigOrZero(o.ERC20.Amount)}
	case o.ERC721 != nil:
		params = ir.ERC721Params{Spender: common.HexToAddress(o.ERC721.Spender), TokenID: bigOrZero(o.ERC721.TokenID)}
	case o.SBT != nil:
		params = ir.SBTParams{Expiration: bigOrZero(o.SBT.Expiration)}
	case o.Conditional != nil:
		params = ir.ConditionalMintParams{ConditionID: bigOrZero(o.Conditional.ConditionID), Amount: bigOrZero(o.Conditional.Amount)}
	}

	data, err := params.Encode()
	if err != nil {
		return out, fmt.Errorf("encode %s params: %w", params.Selector(), err)
	}
	out.Token = common.HexToAddress(o.Token)
	out.Selector = params.Selector()
	out.Data = data
	return out, nil
}

// bigOrZero parses a decimal already checked by the uint256 validator.
func bigOrZero(s string) *big.Int {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return new(big.Int)
	}
	return n
}

// CUE field accessors. Absent fields yield zero values; present fields of
// the wrong kind are CompileErrors carrying the field's position.

func optString(v cue.Value, field string) (string, error) {
	f := v.LookupPath(cue.ParsePath(field))
	if !f.Exists() {
		return "", nil
	}
	s, err := f.String()
	if err != nil {
		return "", &CompileError{Field: field, Message: "must be a string", Pos: f.Pos()}
	}
	return s, nil
}

func optUint(v cue.Value, field string) (uint64, error) {
	f := v.LookupPath(cue.ParsePath(field))
	if !f.Exists() {
		return 0, nil
	}
	n, err := f.Uint64()
	if err != nil {
		return 0, &CompileError{Field: field, Message: "must be an unsigned integer", Pos: f.Pos()}
	}
	return n, nil
}

func optBool(v cue.Value, field string) (bool, error) {
	f := v.LookupPath(cue.ParsePath(field))
	if !f.Exists() {
		return false, nil
	}
	b, err := f.Bool()
	if err != nil {
		return false, &CompileError{Field: field, Message: "must be a bool", Pos: f.Pos()}
	}
	return b, nil
}

// optNumber accepts an integer or a decimal string, for amounts beyond
// what a config author wants to write as a literal.
func optNumber(v cue.Value, field string) (string, error) {
	f := v.LookupPath(cue.ParsePath(field))
	if !f.Exists() {
		return "", nil
	}
	switch f.IncompleteKind() {
	case cue.IntKind:
		n, err := f.Int(nil)
		if err != nil {
			return "", &CompileError{Field: field, Message: err.Error(), Pos: f.Pos()}
		}
		return n.String(), nil
	case cue.StringKind:
		return f.String()
	default:
		return "", &CompileError{Field: field, Message: "must be an integer or a decimal string", Pos: f.Pos()}
	}
}

func eachListItem(v cue.Value, field string, fn func(cue.Value) error) error {
	f := v.LookupPath(cue.ParsePath(field))
	if !f.Exists() {
		return nil
	}
	iter, err := f.List()
	if err != nil {
		return &CompileError{Field: field, Message: "must be a list", Pos: f.Pos()}
	}
	for iter.Next() {
		if err := fn(iter.Value()); err != nil {
			return err
		}
	}
	return nil
}
