package reward

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/tea2x/evm-d-quest/internal/ir"
)

// Payout moves value to questers. Implementations wrap the native transfer
// and the token/credential contracts an outcome targets.
type Payout interface {
	TransferNative(ctx context.Context, to common.Address, amount *big.Int) error
	TransferERC20From(ctx context.Context, token, from, to common.Address, amount *big.Int) error
	TransferERC721From(ctx context.Context, token, from, to common.Address, tokenID *big.Int) error
	MintSBT(ctx context.Context, token, to common.Address, expiration *big.Int) error
	MintConditional(ctx context.Context, token, to common.Address, conditionID, amount *big.Int) error
}

// ErrInsufficientCapacity is returned when a limited outcome has capacity
// left but less than one payout. The pass aborts before that outcome's
// transfer.
var ErrInsufficientCapacity = errors.New("insufficient outcome capacity")

// CallError wraps a failed Payout call with the outcome it belonged to.
type CallError struct {
	Index    uint64
	Selector string
	Err      error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("outcome %d (%s): %v", e.Index, e.Selector, e.Err)
}

func (e *CallError) Unwrap() error { return e.Err }

// Execution records what one outcome did during a pass.
type Execution struct {
	Index    uint64
	Selector string   // "NATIVE" or the token selector name
	Amount   *big.Int // units moved or minted; nil for SBT mints
	Skipped  bool     // limited outcome with no capacity left
}

// Result is the outcome of a successful pass, ready for Store.Apply.
type Result struct {
	Executions       []Execution
	Updated          []ir.Outcome
	RewardsAvailable bool
}

// Distribute runs one distribution pass for quester over outcomes, in order.
//
// outcomes is not modified. Native and ERC20 outcomes lose the amount they
// pay from TotalReward; ERC721 outcomes lose one and advance their token
// id. The counter of an unlimited outcome stops at zero and never blocks a
// payout. SBT and conditional mints carry no counter. The first failure
// aborts the pass and no Result is returned.
//
// A limited outcome is charged before its transfer, so an exhausted native
// outcome is skipped without a transfer.
func Distribute(ctx context.Context, payout Payout, quester common.Address, outcomes []ir.Outcome) (*Result, error) {
	res := &Result{}
	working := make([]ir.Outcome, len(outcomes))

	for i, orig := range outcomes {
		o := orig.Clone()

		if o.Exhausted() {
			slog.Debug("outcome exhausted, skipping", "index", o.Index)
			res.Executions = append(res.Executions, Execution{Index: o.Index, Selector: selectorName(o), Skipped: true})
			working[i] = o
			continue
		}

		exec, changed, err := execute(ctx, payout, quester, &o)
		if err != nil {
			return nil, err
		}
		res.Executions = append(res.Executions, exec)
		if changed {
			res.Updated = append(res.Updated, o)
		}
		working[i] = o
	}

	res.RewardsAvailable = Available(working)
	return res, nil
}

// execute performs one outcome and reports whether the record changed.
func execute(ctx context.Context, payout Payout, quester common.Address, o *ir.Outcome) (Execution, bool, error) {
	exec := Execution{Index: o.Index, Selector: selectorName(*o)}
	fail := func(err error) (Execution, bool, error) {
		return exec, false, &CallError{Index: o.Index, Selector: exec.Selector, Err: err}
	}

	if o.IsNative {
		if err := deplete(o, o.NativeAmount); err != nil {
			return exec, false, err
		}
		if err := payout.TransferNative(ctx, quester, o.NativeAmount); err != nil {
			return fail(err)
		}
		exec.Amount = new(big.Int).Set(o.NativeAmount)
		return exec, true, nil
	}

	params, err := ir.DecodeParams(o.Selector, o.Data)
	if err != nil {
		return exec, false, fmt.Errorf("outcome %d: %w", o.Index, err)
	}

	switch p := params.(type) {
	case ir.ERC20Params:
		if err := deplete(o, p.Amount); err != nil {
			return exec, false, err
		}
		if err := payout.TransferERC20From(ctx, o.Token, p.Spender, quester, p.Amount); err != nil {
			return fail(err)
		}
		exec.Amount = p.Amount
		return exec, true, nil

	case ir.ERC721Params:
		next := ir.ERC721Params{Spender: p.Spender, TokenID: new(big.Int).Add(p.TokenID, big.NewInt(1))}
		data, err := next.Encode()
		if err != nil {
			return exec, false, fmt.Errorf("outcome %d: token id %s cannot advance: %w", o.Index, p.TokenID, err)
		}
		if err := deplete(o, big.NewInt(1)); err != nil {
			return exec, false, err
		}
		if err := payout.TransferERC721From(ctx, o.Token, p.Spender, quester, p.TokenID); err != nil {
			return fail(err)
		}
		o.Data = data
		exec.Amount = big.NewInt(1)
		return exec, true, nil

	case ir.SBTParams:
		if err := payout.MintSBT(ctx, o.Token, quester, p.Expiration); err != nil {
			return fail(err)
		}
		return exec, false, nil

	case ir.ConditionalMintParams:
		if err := payout.MintConditional(ctx, o.Token, quester, p.ConditionID, p.Amount); err != nil {
			return fail(err)
		}
		exec.Amount = p.Amount
		return exec, false, nil

	default:
		return exec, false, fmt.Errorf("outcome %d: no dispatch for %T", o.Index, params)
	}
}

// deplete subtracts amount from o's TotalReward. A limited outcome must
// cover the whole amount; an unlimited one saturates at zero.
func deplete(o *ir.Outcome, amount *big.Int) error {
	remaining := o.Remaining()
	if remaining.Cmp(amount) < 0 {
		if o.IsLimited {
			return fmt.Errorf("outcome %d has %s left, needs %s: %w", o.Index, remaining, amount, ErrInsufficientCapacity)
		}
		o.TotalReward = new(big.Int)
		return nil
	}
	o.TotalReward = remaining.Sub(remaining, amount)
	return nil
}

func selectorName(o ir.Outcome) string {
	if o.IsNative {
		return "NATIVE"
	}
	return o.Selector.String()
}
