package ir

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSpender = common.HexToAddress("0x00000000000000000000000000000000000000aa")

// TestERC20Params_WordLayout pins the positional layout administrators encode against.
func TestERC20Params_WordLayout(t *testing.T) {
	blob, err := ERC20Params{Spender: testSpender, Amount: big.NewInt(5)}.Encode()
	require.NoError(t, err)
	require.Len(t, blob, 64)

	// word 0: left-padded address
	assert.Equal(t, make([]byte, 12), blob[:12])
	assert.Equal(t, testSpender.Bytes(), blob[12:32])

	// word 1: big-endian amount
	assert.Equal(t, byte(5), blob[63])
	assert.Equal(t, make([]byte, 31), blob[32:63])
}

func TestDecodeParams_ERC721(t *testing.T) {
	blob, err := ERC721Params{Spender: testSpender, TokenID: big.NewInt(41)}.Encode()
	require.NoError(t, err)

	p, err := DecodeParams(SelectorERC721Transfer, blob)
	require.NoError(t, err)

	got, ok := p.(ERC721Params)
	require.True(t, ok, "expected ERC721Params, got %T", p)
	assert.Equal(t, testSpender, got.Spender)
	assert.Equal(t, int64(41), got.TokenID.Int64())
}

func TestDecodeParams_ConditionalMint(t *testing.T) {
	blob, err := ConditionalMintParams{ConditionID: big.NewInt(3), Amount: big.NewInt(2)}.Encode()
	require.NoError(t, err)

	p, err := DecodeParams(SelectorNFTConditionalMint, blob)
	require.NoError(t, err)
	got := p.(ConditionalMintParams)
	assert.Equal(t, int64(3), got.ConditionID.Int64())
	assert.Equal(t, int64(2), got.Amount.Int64())
}

func TestDecodeParams_WrongLength(t *testing.T) {
	blob, err := SBTParams{Expiration: big.NewInt(1700000000)}.Encode()
	require.NoError(t, err)

	// An SBT blob is one word; the ERC20 schema needs two.
	_, err = DecodeParams(SelectorERC20Transfer, blob)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "want 64")

	_, err = DecodeParams(SelectorSBTMint, append(blob, 0x01))
	require.Error(t, err)
}

func TestDecodeParams_NoSchema(t *testing.T) {
	_, err := DecodeParams(SelectorNone, make([]byte, 32))
	require.Error(t, err)
}

func TestParseSelector(t *testing.T) {
	tests := []struct {
		in   string
		want Selector
	}{
		{"ERC20_TRANSFER", SelectorERC20Transfer},
		{"erc721", SelectorERC721Transfer},
		{"sbt", SelectorSBTMint},
		{"NFT_CONDITIONAL_MINT", SelectorNFTConditionalMint},
		{"", SelectorNone},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSelector(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseSelector("erc1155")
	assert.Error(t, err)
}
