package reward

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/tea2x/evm-d-quest/internal/ir"
)

// Validation error codes (E300-E399)
const (
	ErrEmptyOutcomes      = "E301" // outcome list is empty
	ErrMissingToken       = "E302" // non-native outcome without token
	ErrMissingSelector    = "E303" // non-native outcome without selector
	ErrMissingData        = "E304" // non-native outcome without data
	ErrZeroLimitedTotal   = "E305" // limited outcome created with no capacity
	ErrAmbiguousDispatch  = "E306" // native outcome also carries token fields
	ErrInvalidData        = "E307" // data does not decode for the selector
	ErrMissingAmount      = "E308" // native outcome without an amount
	ErrTokenIDOverflow    = "E309" // erc721 token id range exceeds uint256
)

// maxUint256 is the largest token id an ERC721 blob can carry.
var maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// ValidationError describes why an outcome list was rejected.
type ValidationError struct {
	Code    string `json:"code"`
	Field   string `json:"field"`
	Message string `json:"message"`
	Index   int    `json:"index"`
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// HasCode reports whether err is a ValidationError with the given code.
func HasCode(err error, code string) bool {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Code == code
	}
	return false
}

// Validate checks every outcome and returns the first violation.
//
// Each record must resolve to exactly one dispatch path: a native record
// carries no token, selector or data, and a token record carries all three
// with data that decodes under its selector's schema.
func Validate(outcomes []ir.Outcome) error {
	if len(outcomes) == 0 {
		return &ValidationError{Code: ErrEmptyOutcomes, Field: "outcomes", Message: "at least one outcome is required"}
	}
	for i, o := range outcomes {
		if err := validateOutcome(i, o); err != nil {
			return err
		}
	}
	return nil
}

func validateOutcome(i int, o ir.Outcome) error {
	field := fmt.Sprintf("outcomes[%d]", i)
	fail := func(code, suffix, format string, args ...any) error {
		return &ValidationError{Code: code, Field: field + suffix, Message: fmt.Sprintf(format, args...), Index: i}
	}

	if o.IsLimited && o.Remaining().Sign() <= 0 {
		return fail(ErrZeroLimitedTotal, ".total_reward", "limited outcome needs a positive total")
	}

	if o.IsNative {
		if o.Token != (common.Address{}) || o.Selector != ir.SelectorNone || len(o.Data) > 0 {
			return fail(ErrAmbiguousDispatch, "", "native outcome must not set token, selector or data")
		}
		if o.NativeAmount == nil {
			return fail(ErrMissingAmount, ".native_amount", "native amount is required")
		}
		return nil
	}

	if o.Token == (common.Address{}) {
		return fail(ErrMissingToken, ".token", "token address is required")
	}
	if o.Selector == ir.SelectorNone {
		return fail(ErrMissingSelector, ".selector", "selector is required")
	}
	if len(o.Data) == 0 {
		return fail(ErrMissingData, ".data", "data is required")
	}
	if o.NativeAmount != nil && o.NativeAmount.Sign() != 0 {
		return fail(ErrAmbiguousDispatch, ".native_amount", "token outcome must not set a native amount")
	}

	params, err := ir.DecodeParams(o.Selector, o.Data)
	if err != nil {
		return fail(ErrInvalidData, ".data", "%v", err)
	}
	if p, ok := params.(ir.ERC721Params); ok {
		// every payout stores the next id, so the last id handed out must
		// still have a successor
		steps := big.NewInt(1)
		if o.IsLimited {
			steps = o.Remaining()
		}
		if new(big.Int).Add(p.TokenID, steps).Cmp(maxUint256) > 0 {
			return fail(ErrTokenIDOverflow, ".data", "token id %s cannot advance %s time(s)", p.TokenID, steps)
		}
	}
	return nil
}
