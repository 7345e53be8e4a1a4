package reward

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/tea2x/evm-d-quest/internal/ir"
)

var (
	quester = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	token   = common.HexToAddress("0x00000000000000000000000000000000000000c0")
	spender = common.HexToAddress("0x00000000000000000000000000000000000000d0")
)

func native(amount, total int64, limited bool) ir.Outcome {
	return ir.Outcome{IsNative: true, NativeAmount: big.NewInt(amount), IsLimited: limited, TotalReward: big.NewInt(total)}
}

func tokenOutcome(t *testing.T, p ir.RewardParams, total int64, limited bool) ir.Outcome {
	t.Helper()
	data, err := p.Encode()
	require.NoError(t, err)
	return ir.Outcome{Token: token, Selector: p.Selector(), Data: data, IsLimited: limited, TotalReward: big.NewInt(total)}
}

func erc20(t *testing.T, amount, total int64, limited bool) ir.Outcome {
	return tokenOutcome(t, ir.ERC20Params{Spender: spender, Amount: big.NewInt(amount)}, total, limited)
}

func erc721(t *testing.T, tokenID, total int64, limited bool) ir.Outcome {
	return tokenOutcome(t, ir.ERC721Params{Spender: spender, TokenID: big.NewInt(tokenID)}, total, limited)
}

func erc721From(t *testing.T, tokenID *big.Int, total int64, limited bool) ir.Outcome {
	return tokenOutcome(t, ir.ERC721Params{Spender: spender, TokenID: tokenID}, total, limited)
}

func sbt(t *testing.T, expiration int64) ir.Outcome {
	return tokenOutcome(t, ir.SBTParams{Expiration: big.NewInt(expiration)}, 0, false)
}

func conditional(t *testing.T, condition, amount int64) ir.Outcome {
	return tokenOutcome(t, ir.ConditionalMintParams{ConditionID: big.NewInt(condition), Amount: big.NewInt(amount)}, 0, false)
}
