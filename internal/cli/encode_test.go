package cli

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	spenderD0    = "0x00000000000000000000000000000000000000d0"
	erc20Blob    = "0x00000000000000000000000000000000000000000000000000000000000000d000000000000000000000000000000000000000000000000000000000000003e8"
	sbtBlob      = "0x000000000000000000000000000000000000000000000000000000006955b900"
	sbtHexExpiry = "0x6955b900"
)

func TestEncode(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"erc20", []string{"erc20", spenderD0, "1000"}, erc20Blob},
		{"erc20 hex amount", []string{"ERC20_TRANSFER", spenderD0, "0x3e8"}, erc20Blob},
		{"sbt", []string{"sbt", "1767225600"}, sbtBlob},
		{"sbt hex expiration", []string{"sbt", sbtHexExpiry}, sbtBlob},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := execute(t, append([]string{"encode"}, tt.args...)...)
			require.NoError(t, err)
			assert.Equal(t, tt.want+"\n", out)
		})
	}
}

func TestEncode_JSON(t *testing.T) {
	out, _, err := execute(t, "--format", "json", "encode", "erc20", spenderD0, "1000")
	require.NoError(t, err)

	var resp struct {
		Status string       `json:"status"`
		Data   EncodeResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, erc20Blob, resp.Data.Data)
	assert.Equal(t, "1000", resp.Data.Params["amount"])
	assert.Equal(t, common.HexToAddress(spenderD0).Hex(), resp.Data.Params["spender"])
}

func TestEncode_DecodeRoundTrip(t *testing.T) {
	out, _, err := execute(t, "encode", "--decode", "erc20", erc20Blob)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "spender: "+common.HexToAddress(spenderD0).Hex(), lines[0])
	assert.Equal(t, "amount: 1000", lines[1])

	out, _, err = execute(t, "encode", "--decode", "sbt", sbtBlob)
	require.NoError(t, err)
	assert.Equal(t, "expiration: 1767225600\n", out)
}

func TestEncode_Errors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"unknown selector", []string{"encode", "erc1155", spenderD0, "1"}, `unknown selector "erc1155"`},
		{"native has no params", []string{"encode", "native"}, `unknown selector "native"`},
		{"wrong arg count", []string{"encode", "erc20", spenderD0}, "takes 2 argument(s)"},
		{"bad spender", []string{"encode", "erc721", "0x12", "7"}, "is not an address"},
		{"non-numeric amount", []string{"encode", "erc20", spenderD0, "lots"}, "is not an unsigned integer"},
		{"decode needs one blob", []string{"encode", "--decode", "sbt"}, "exactly one hex blob"},
		{"decode bad hex", []string{"encode", "--decode", "sbt", "zz"}, "invalid hex blob"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Contains(t, out, ErrCodeBadArgs)
		})
	}
}
