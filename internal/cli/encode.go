package cli

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"

	"github.com/tea2x/evm-d-quest/internal/ir"
)

// EncodeOptions holds flags for the encode command.
type EncodeOptions struct {
	*RootOptions
	Decode bool
}

// EncodeResult is an encoded (or decoded) reward blob.
type EncodeResult struct {
	Selector string            `json:"selector"`
	Data     string            `json:"data"`
	Params   map[string]string `json:"params"`
}

// String renders the text output: the blob alone when encoding.
func (r EncodeResult) String() string {
	return r.Data
}

// selectorArgs names the positional arguments each selector takes.
var selectorArgs = map[ir.Selector][]string{
	ir.SelectorERC20Transfer:      {"spender", "amount"},
	ir.SelectorERC721Transfer:     {"spender", "token_id"},
	ir.SelectorSBTMint:            {"expiration"},
	ir.SelectorNFTConditionalMint: {"condition_id", "amount"},
}

// NewEncodeCommand creates the encode command.
func NewEncodeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EncodeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "encode <selector> [args...]",
		Short: "Encode a reward parameter blob",
		Long: `Encode the ABI parameter blob an outcome carries for its selector.

Selectors and arguments:
  erc20        <spender> <amount>
  erc721       <spender> <token-id>
  sbt          <expiration>
  conditional  <condition-id> <amount>

Numbers may be decimal or 0x-prefixed hex. With --decode, the single
argument is a hex blob and its parameters are printed instead.

Examples:
  dquest encode erc20 0x00000000000000000000000000000000000000d0 1000
  dquest encode sbt 1767225600
  dquest encode --decode erc721 0x...`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEncode(opts, args, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Decode, "decode", false, "decode a hex blob instead")

	return cmd
}

func runEncode(opts *EncodeOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	fail := func(msg string) error {
		return formatter.Fail(ExitCommandError, ErrCodeBadArgs, msg)
	}

	sel, err := ir.ParseSelector(args[0])
	if err != nil || sel == ir.SelectorNone {
		return fail(fmt.Sprintf("unknown selector %q", args[0]))
	}

	var params ir.RewardParams
	if opts.Decode {
		if len(args) != 2 {
			return fail("--decode takes exactly one hex blob")
		}
		data, err := hexutil.Decode(args[1])
		if err != nil {
			return fail(fmt.Sprintf("invalid hex blob: %v", err))
		}
		if params, err = ir.DecodeParams(sel, data); err != nil {
			return fail(err.Error())
		}
	} else {
		if params, err = parseParams(sel, args[1:]); err != nil {
			return fail(err.Error())
		}
	}

	data, err := params.Encode()
	if err != nil {
		return fail(err.Error())
	}

	result := EncodeResult{
		Selector: sel.String(),
		Data:     hexutil.Encode(data),
		Params:   describeParams(params),
	}
	if opts.Decode && opts.Format != "json" {
		for _, name := range selectorArgs[sel] {
			fmt.Fprintf(formatter.Writer, "%s: %s\n", name, result.Params[name])
		}
		return nil
	}
	return formatter.Success(result)
}

// parseParams builds the params for sel from positional arguments.
func parseParams(sel ir.Selector, args []string) (ir.RewardParams, error) {
	names := selectorArgs[sel]
	if len(args) != len(names) {
		return nil, fmt.Errorf("%s takes %d argument(s) %v, got %d", sel, len(names), names, len(args))
	}

	nums := make([]*big.Int, len(args))
	var spender common.Address
	for i, name := range names {
		if name == "spender" {
			if !common.IsHexAddress(args[i]) {
				return nil, fmt.Errorf("%s: %q is not an address", name, args[i])
			}
			spender = common.HexToAddress(args[i])
			continue
		}
		n, ok := new(big.Int).SetString(args[i], 0)
		if !ok || n.Sign() < 0 {
			return nil, fmt.Errorf("%s: %q is not an unsigned integer", name, args[i])
		}
		nums[i] = n
	}

	switch sel {
	case ir.SelectorERC20Transfer:
		return ir.ERC20Params{Spender: spender, Amount: nums[1]}, nil
	case ir.SelectorERC721Transfer:
		return ir.ERC721Params{Spender: spender, TokenID: nums[1]}, nil
	case ir.SelectorSBTMint:
		return ir.SBTParams{Expiration: nums[0]}, nil
	default:
		return ir.ConditionalMintParams{ConditionID: nums[0], Amount: nums[1]}, nil
	}
}

func describeParams(params ir.RewardParams) map[string]string {
	switch p := params.(type) {
	case ir.ERC20Params:
		return map[string]string{"spender": p.Spender.Hex(), "amount": p.Amount.String()}
	case ir.ERC721Params:
		return map[string]string{"spender": p.Spender.Hex(), "token_id": p.TokenID.String()}
	case ir.SBTParams:
		return map[string]string{"expiration": p.Expiration.String()}
	case ir.ConditionalMintParams:
		return map[string]string{"condition_id": p.ConditionID.String(), "amount": p.Amount.String()}
	default:
		return nil
	}
}
