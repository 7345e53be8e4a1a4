package ir

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// RewardParams is the decoded form of an outcome's Data blob. Each
// selector has exactly one params type; the blob layout is the positional
// 32-byte-word ABI encoding of the type's fields, in declaration order.
type RewardParams interface {
	Selector() Selector
	Encode() ([]byte, error)
}

// ERC20Params moves Amount tokens from Spender to the quester.
type ERC20Params struct {
	Spender common.Address
	Amount  *big.Int
}

// ERC721Params moves the token TokenID from Spender to the quester.
type ERC721Params struct {
	Spender common.Address
	TokenID *big.Int
}

// SBTParams mints a soulbound credential expiring at Expiration.
type SBTParams struct {
	Expiration *big.Int
}

// ConditionalMintParams mints Amount units under ConditionID.
type ConditionalMintParams struct {
	ConditionID *big.Int
	Amount      *big.Int
}

var (
	addressType = mustType("address")
	uint256Type = mustType("uint256")

	erc20Args       = abi.Arguments{{Name: "spender", Type: addressType}, {Name: "amount", Type: uint256Type}}
	erc721Args      = abi.Arguments{{Name: "spender", Type: addressType}, {Name: "tokenId", Type: uint256Type}}
	sbtArgs         = abi.Arguments{{Name: "expiration", Type: uint256Type}}
	conditionalArgs = abi.Arguments{{Name: "conditionId", Type: uint256Type}, {Name: "amount", Type: uint256Type}}
)

func mustType(name string) abi.Type {
	t, err := abi.NewType(name, "", nil)
	if err != nil {
		panic(fmt.Sprintf("abi type %s: %v", name, err))
	}
	return t
}

func (ERC20Params) Selector() Selector           { return SelectorERC20Transfer }
func (ERC721Params) Selector() Selector          { return SelectorERC721Transfer }
func (SBTParams) Selector() Selector             { return SelectorSBTMint }
func (ConditionalMintParams) Selector() Selector { return SelectorNFTConditionalMint }

func (p ERC20Params) Encode() ([]byte, error) {
	return erc20Args.Pack(p.Spender, orZero(p.Amount))
}

func (p ERC721Params) Encode() ([]byte, error) {
	return erc721Args.Pack(p.Spender, orZero(p.TokenID))
}

func (p SBTParams) Encode() ([]byte, error) {
	return sbtArgs.Pack(orZero(p.Expiration))
}

func (p ConditionalMintParams) Encode() ([]byte, error) {
	return conditionalArgs.Pack(orZero(p.ConditionID), orZero(p.Amount))
}

// DecodeParams parses data according to the schema for sel.
func DecodeParams(sel Selector, data []byte) (RewardParams, error) {
	switch sel {
	case SelectorERC20Transfer:
		vals, err := unpack(erc20Args, sel, data)
		if err != nil {
			return nil, err
		}
		return ERC20Params{Spender: vals[0].(common.Address), Amount: vals[1].(*big.Int)}, nil
	case SelectorERC721Transfer:
		vals, err := unpack(erc721Args, sel, data)
		if err != nil {
			return nil, err
		}
		return ERC721Params{Spender: vals[0].(common.Address), TokenID: vals[1].(*big.Int)}, nil
	case SelectorSBTMint:
		vals, err := unpack(sbtArgs, sel, data)
		if err != nil {
			return nil, err
		}
		return SBTParams{Expiration: vals[0].(*big.Int)}, nil
	case SelectorNFTConditionalMint:
		vals, err := unpack(conditionalArgs, sel, data)
		if err != nil {
			return nil, err
		}
		return ConditionalMintParams{ConditionID: vals[0].(*big.Int), Amount: vals[1].(*big.Int)}, nil
	default:
		return nil, fmt.Errorf("decode params: no schema for selector %s", sel)
	}
}

func unpack(args abi.Arguments, sel Selector, data []byte) ([]interface{}, error) {
	// Trailing bytes would be silently ignored by Unpack.
	if want := 32 * len(args); len(data) != want {
		return nil, fmt.Errorf("decode %s params: blob is %d bytes, want %d", sel, len(data), want)
	}
	vals, err := args.Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s params: %w", sel, err)
	}
	return vals, nil
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
