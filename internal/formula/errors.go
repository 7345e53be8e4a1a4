package formula

import (
	"errors"
	"fmt"
)

// Validation error codes (E200-E299)
const (
	ErrEmptyFormula      = "E201" // node list is empty
	ErrDuplicateNode     = "E202" // two nodes share an id
	ErrMalformedMission  = "E203" // mission leaf missing handler/oracle/data or has children
	ErrMultipleRoots     = "E204" // more than one node has no parent
	ErrNoRoot            = "E205" // every node has a parent
	ErrCycle             = "E206" // node reached twice or unreachable from root
	ErrMalformedOperator = "E207" // operator node with a zero child
	ErrUnknownNode       = "E208" // child id not present in the list
	ErrTooDeep           = "E209" // tree deeper than the configured bound
)

// ValidationError describes why a node list was rejected.
type ValidationError struct {
	Code    string `json:"code"`
	Field   string `json:"field"`
	Message string `json:"message"`
	NodeID  uint64 `json:"node_id,omitempty"`
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// HasCode reports whether err is a ValidationError with the given code.
// Uses errors.As to handle wrapped errors.
func HasCode(err error, code string) bool {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Code == code
	}
	return false
}

// ErrDepthExceeded is returned by Evaluate when a stored tree is deeper
// than the evaluation bound.
var ErrDepthExceeded = errors.New("formula depth exceeded")

func reject(code string, id uint64, field, format string, args ...any) *ValidationError {
	return &ValidationError{
		Code:    code,
		Field:   field,
		Message: fmt.Sprintf(format, args...),
		NodeID:  id,
	}
}
