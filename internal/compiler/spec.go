package compiler

import (
	"fmt"
	"math/big"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// The *Spec types mirror the CUE layout with every scalar still in its
// source form. They are checked by specValidate before conversion.

type questSpec struct {
	ID       string        `cue:"id" validate:"required"`
	Owner    string        `cue:"owner" validate:"required,eth_addr"`
	Start    string        `cue:"start" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	End      string        `cue:"end" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	Formula  []nodeSpec    `cue:"formula" validate:"required,min=1,dive"`
	Outcomes []outcomeSpec `cue:"outcomes" validate:"required,min=1,dive"`
	Handlers []handlerSpec `cue:"handlers" validate:"dive"`
}

type nodeSpec struct {
	ID      uint64 `cue:"id" validate:"required"`
	Op      string `cue:"op" validate:"omitempty,oneof=AND OR and or"`
	Left    uint64 `cue:"left"`
	Right   uint64 `cue:"right"`
	Handler string `cue:"handler" validate:"omitempty,eth_addr"`
	Oracle  string `cue:"oracle" validate:"omitempty,eth_addr"`
	Data    string `cue:"data" validate:"omitempty,hexadecimal"`
}

type outcomeSpec struct {
	Native      string           `cue:"native" validate:"omitempty,uint256"`
	Token       string           `cue:"token" validate:"omitempty,eth_addr"`
	ERC20       *erc20Spec       `cue:"erc20"`
	ERC721      *erc721Spec      `cue:"erc721"`
	SBT         *sbtSpec         `cue:"sbt"`
	Conditional *conditionalSpec `cue:"conditional"`
	Limited     bool             `cue:"limited"`
	Total       string           `cue:"total" validate:"omitempty,uint256"`
}

type erc20Spec struct {
	Spender string `cue:"spender" validate:"required,eth_addr"`
	Amount  string `cue:"amount" validate:"required,uint256"`
}

type erc721Spec struct {
	Spender string `cue:"spender" validate:"required,eth_addr"`
	TokenID string `cue:"token_id" validate:"required,uint256"`
}

type sbtSpec struct {
	Expiration string `cue:"expiration" validate:"required,uint256"`
}

type conditionalSpec struct {
	ConditionID string `cue:"condition_id" validate:"required,uint256"`
	Amount      string `cue:"amount" validate:"required,uint256"`
}

type handlerSpec struct {
	Address string `cue:"address" validate:"required,eth_addr"`
	Kind    string `cue:"kind" validate:"required,oneof=flag oracle always never"`
	Oracle  string `cue:"oracle" validate:"required_if=Kind oracle,omitempty,eth_addr"`
}

// Custom tags reported by the struct-level validators.
const (
	tagUint256         = "uint256"
	tagOneKind         = "one_kind"
	tagMissionHandler  = "mission_handler"
	tagOperatorHandler = "operator_handler"
)

var maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// specValidate is the validator for quest specs.
// Initialized in init() with custom validators.
var specValidate *validator.Validate

func init() {
	specValidate = validator.New()

	// Report CUE field names instead of Go field names.
	specValidate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("cue"), ",", 2)[0]
		if name == "" {
			return f.Name
		}
		return name
	})

	if err := specValidate.RegisterValidation(tagUint256, validateUint256); err != nil {
		panic(fmt.Sprintf("register %s validation: %v", tagUint256, err))
	}
	specValidate.RegisterStructValidation(nodeValidator, nodeSpec{})
	specValidate.RegisterStructValidation(outcomeValidator, outcomeSpec{})
}

// validateUint256 accepts a decimal integer in [0, 2^256).
func validateUint256(fl validator.FieldLevel) bool {
	n, ok := new(big.Int).SetString(fl.Field().String(), 10)
	return ok && n.Sign() >= 0 && n.Cmp(maxUint256) <= 0
}

func nodeValidator(sl validator.StructLevel) {
	n := sl.Current().Interface().(nodeSpec)
	switch {
	case n.Op == "" && n.Handler == "":
		sl.ReportError(n.Handler, "handler", "Handler", tagMissionHandler, "")
	case n.Op != "" && n.Handler != "":
		sl.ReportError(n.Handler, "handler", "Handler", tagOperatorHandler, "")
	}
}

func outcomeValidator(sl validator.StructLevel) {
	o := sl.Current().Interface().(outcomeSpec)

	kinds := 0
	for _, set := range []bool{o.Native != "", o.ERC20 != nil, o.ERC721 != nil, o.SBT != nil, o.Conditional != nil} {
		if set {
			kinds++
		}
	}
	if kinds != 1 {
		sl.ReportError(o, "kind", "Kind", tagOneKind, "")
	}
	if o.Native == "" && o.Token == "" {
		sl.ReportError(o.Token, "token", "Token", "required", "")
	}
	if o.Limited && o.Total == "" {
		sl.ReportError(o.Total, "total", "Total", "required", "")
	}
}

// validationErrors converts validator output into CompileErrors.
func validationErrors(err error) CompileErrors {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return CompileErrors{{Field: "quest", Message: err.Error()}}
	}

	out := make(CompileErrors, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, &CompileError{
			Field:   fieldPath(fe.Namespace()),
			Message: tagMessage(fe),
		})
	}
	return out
}

// fieldPath strips the root struct name from a validator namespace.
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func tagMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if":
		return "is required"
	case "min":
		return "must not be empty"
	case "eth_addr":
		return fmt.Sprintf("%q is not a 0x-prefixed 20-byte address", fe.Value())
	case "hexadecimal":
		return fmt.Sprintf("%q is not hex", fe.Value())
	case "datetime":
		return fmt.Sprintf("%q is not an RFC 3339 time", fe.Value())
	case "oneof":
		return fmt.Sprintf("%q must be one of %s", fe.Value(), fe.Param())
	case tagUint256:
		return fmt.Sprintf("%q is not an unsigned 256-bit integer", fe.Value())
	case tagOneKind:
		return "must set exactly one of native, erc20, erc721, sbt, conditional"
	case tagMissionHandler:
		return "mission node needs a handler (or set op for an operator node)"
	case tagOperatorHandler:
		return "operator node cannot have a handler"
	default:
		return fmt.Sprintf("failed %q validation", fe.Tag())
	}
}
