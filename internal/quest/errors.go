package quest

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes quest errors.
type ErrorCode string

const (
	// ErrCodeInputRejected wraps a formula or outcome validation failure.
	ErrCodeInputRejected ErrorCode = "INPUT_REJECTED"

	// ErrCodeAccessDenied indicates a non-owner called an owner-only operation.
	ErrCodeAccessDenied ErrorCode = "ACCESS_DENIED"

	// ErrCodeCrossMissionWrite indicates a status write from an address that is
	// neither the node's handler nor its oracle.
	ErrCodeCrossMissionWrite ErrorCode = "CROSS_MISSION_WRITE"

	// ErrCodeNotFound indicates an id absent from the current generation.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrCodeNotAMission indicates a mission operation on an operator node.
	ErrCodeNotAMission ErrorCode = "NOT_A_MISSION"

	// ErrCodeNotEnrolled indicates the quester has no progress record.
	ErrCodeNotEnrolled ErrorCode = "NOT_ENROLLED"

	// ErrCodeAlreadyEnrolled indicates a second enrollment.
	ErrCodeAlreadyEnrolled ErrorCode = "ALREADY_ENROLLED"

	// ErrCodeNotCompleted indicates distribution for a quester not in Completed.
	ErrCodeNotCompleted ErrorCode = "NOT_COMPLETED"

	// ErrCodeRewardsExhausted indicates no outcome can pay out.
	ErrCodeRewardsExhausted ErrorCode = "REWARDS_EXHAUSTED"

	// ErrCodeExternalCallFailed wraps a failing handler or payout call.
	ErrCodeExternalCallFailed ErrorCode = "EXTERNAL_CALL_FAILED"

	// ErrCodeReentrant indicates Distribute was called while a pass was running.
	ErrCodeReentrant ErrorCode = "REENTRANT"

	// ErrCodePhase indicates the operation is not allowed in the current phase.
	ErrCodePhase ErrorCode = "PHASE"

	// ErrCodePaused indicates the quest is paused.
	ErrCodePaused ErrorCode = "PAUSED"
)

// Error is returned by every Quest operation.
//
// Error includes structured fields for diagnostics; Err carries the
// collaborator's or validator's own error when there is one.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Quester identifies the affected quester, if any.
	Quester string

	// NodeID identifies the affected mission node, if any.
	NodeID uint64

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Quester != "" {
		msg += fmt.Sprintf(" (quester=%s)", e.Quester)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsCode reports whether err is a quest Error with the given code.
// Uses errors.As to handle wrapped errors.
func IsCode(err error, code ErrorCode) bool {
	var qe *Error
	if errors.As(err, &qe) {
		return qe.Code == code
	}
	return false
}

func newError(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func wrapError(code ErrorCode, err error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Err: err}
}
