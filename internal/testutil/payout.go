package testutil

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Payout call kinds recorded by RecordingPayout.
const (
	CallNative      = "native"
	CallERC20       = "erc20"
	CallERC721      = "erc721"
	CallSBT         = "sbt"
	CallConditional = "conditional"
)

// PayoutCall is one recorded reward-moving call.
//
// Value holds the amount, token id or expiration depending on Kind;
// Condition is only set for conditional mints.
type PayoutCall struct {
	Kind      string
	Token     common.Address
	From      common.Address
	To        common.Address
	Value     *big.Int
	Condition *big.Int
}

// RecordingPayout implements reward.Payout by recording every call.
//
// FailOn makes every call of a kind fail with the given error. Hook, when
// set, runs before a call is recorded; a non-nil return fails the call.
// Failed calls are not recorded.
type RecordingPayout struct {
	mu     sync.Mutex
	calls  []PayoutCall
	FailOn map[string]error
	Hook   func(ctx context.Context, call PayoutCall) error
}

// NewRecordingPayout creates an empty recorder.
func NewRecordingPayout() *RecordingPayout {
	return &RecordingPayout{FailOn: make(map[string]error)}
}

// Calls returns a copy of the recorded calls.
func (p *RecordingPayout) Calls() []PayoutCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]PayoutCall(nil), p.calls...)
}

// Total sums Value over recorded calls of kind sent to to.
func (p *RecordingPayout) Total(kind string, to common.Address) *big.Int {
	total := new(big.Int)
	for _, c := range p.Calls() {
		if c.Kind == kind && c.To == to && c.Value != nil {
			total.Add(total, c.Value)
		}
	}
	return total
}

func (p *RecordingPayout) TransferNative(ctx context.Context, to common.Address, amount *big.Int) error {
	return p.record(ctx, PayoutCall{Kind: CallNative, To: to, Value: copyInt(amount)})
}

func (p *RecordingPayout) TransferERC20From(ctx context.Context, token, from, to common.Address, amount *big.Int) error {
	return p.record(ctx, PayoutCall{Kind: CallERC20, Token: token, From: from, To: to, Value: copyInt(amount)})
}

func (p *RecordingPayout) TransferERC721From(ctx context.Context, token, from, to common.Address, tokenID *big.Int) error {
	return p.record(ctx, PayoutCall{Kind: CallERC721, Token: token, From: from, To: to, Value: copyInt(tokenID)})
}

func (p *RecordingPayout) MintSBT(ctx context.Context, token, to common.Address, expiration *big.Int) error {
	return p.record(ctx, PayoutCall{Kind: CallSBT, Token: token, To: to, Value: copyInt(expiration)})
}

func (p *RecordingPayout) MintConditional(ctx context.Context, token, to common.Address, conditionID, amount *big.Int) error {
	return p.record(ctx, PayoutCall{Kind: CallConditional, Token: token, To: to, Value: copyInt(amount), Condition: copyInt(conditionID)})
}

func (p *RecordingPayout) record(ctx context.Context, call PayoutCall) error {
	p.mu.Lock()
	failure := p.FailOn[call.Kind]
	hook := p.Hook
	p.mu.Unlock()

	if failure != nil {
		return failure
	}
	// The hook runs unlocked so it may call back into code that pays out.
	if hook != nil {
		if err := hook(ctx, call); err != nil {
			return err
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, call)
	return nil
}

func copyInt(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}
