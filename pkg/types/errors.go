package types

import (
	"errors"
	"fmt"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeAuthorization ErrorType = "authorization"
	ErrorTypeConflict      ErrorType = "conflict"
	ErrorTypeNotFound      ErrorType = "not_found"
	ErrorTypeState         ErrorType = "state"
	ErrorTypeValidation    ErrorType = "validation"
	ErrorTypeInternal      ErrorType = "internal"
)

// LedgerError represents a structured error surfaced by the clinical ledger.
// Every failure aborts the whole call; the code identifies the failure kind to
// the caller.
type LedgerError struct {
	Type    ErrorType `json:"type"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
	Cause   error     `json:"-"`
}

// Error implements the error interface
func (e *LedgerError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error
func (e *LedgerError) Unwrap() error {
	return e.Cause
}

// Failure kind codes.
const (
	CodeUnauthorized   = "UNAUTHORIZED"
	CodeDuplicateRole  = "DUPLICATE_ROLE"
	CodeNotFound       = "NOT_FOUND"
	CodeInvalidTarget  = "INVALID_TARGET"
	CodeInvalidSource  = "INVALID_SOURCE"
	CodeSameDoctor     = "SAME_DOCTOR"
	CodeSelfTreatment  = "SELF_TREATMENT"
	CodeAlreadyPatient = "ALREADY_PATIENT"
	CodeRecordMissing  = "RECORD_MISSING"
	CodeRecordClosed   = "RECORD_CLOSED"
	CodeInvalidState   = "INVALID_STATE"
	CodeInternalError  = "INTERNAL_ERROR"
)

// ErrUnauthorized creates an authorization failure.
func ErrUnauthorized(message string) *LedgerError {
	return &LedgerError{Type: ErrorTypeAuthorization, Code: CodeUnauthorized, Message: message}
}

// ErrDuplicateRole reports an attempt to grant a role a principal already holds.
func ErrDuplicateRole(message string) *LedgerError {
	return &LedgerError{Type: ErrorTypeConflict, Code: CodeDuplicateRole, Message: message}
}

// ErrNotFound reports a missing principal, record or treatment.
func ErrNotFound(message string) *LedgerError {
	return &LedgerError{Type: ErrorTypeNotFound, Code: CodeNotFound, Message: message}
}

// ErrInvalidTarget reports a transfer destination failing a role check.
func ErrInvalidTarget(message string) *LedgerError {
	return &LedgerError{Type: ErrorTypeValidation, Code: CodeInvalidTarget, Message: message}
}

// ErrInvalidSource reports a transfer source failing a role check.
func ErrInvalidSource(message string) *LedgerError {
	return &LedgerError{Type: ErrorTypeValidation, Code: CodeInvalidSource, Message: message}
}

// ErrSameDoctor reports a transfer whose target equals the current assignee.
func ErrSameDoctor(message string) *LedgerError {
	return &LedgerError{Type: ErrorTypeValidation, Code: CodeSameDoctor, Message: message}
}

// ErrSelfTreatment reports a doctor opening a record naming themselves.
func ErrSelfTreatment(message string) *LedgerError {
	return &LedgerError{Type: ErrorTypeValidation, Code: CodeSelfTreatment, Message: message}
}

// ErrAlreadyPatient reports a second record for an existing patient.
func ErrAlreadyPatient(message string) *LedgerError {
	return &LedgerError{Type: ErrorTypeConflict, Code: CodeAlreadyPatient, Message: message}
}

// ErrRecordMissing reports a mutation forbidden while a record is missing.
func ErrRecordMissing(message string) *LedgerError {
	return &LedgerError{Type: ErrorTypeState, Code: CodeRecordMissing, Message: message}
}

// ErrRecordClosed reports a mutation forbidden once a record is closed.
func ErrRecordClosed(message string) *LedgerError {
	return &LedgerError{Type: ErrorTypeState, Code: CodeRecordClosed, Message: message}
}

// ErrInvalidState reports a lifecycle transition unreachable from the current state.
func ErrInvalidState(message string) *LedgerError {
	return &LedgerError{Type: ErrorTypeState, Code: CodeInvalidState, Message: message}
}

// ErrInternal wraps an unexpected substrate failure.
func ErrInternal(message string, cause error) *LedgerError {
	return &LedgerError{Type: ErrorTypeInternal, Code: CodeInternalError, Message: message, Cause: cause}
}

// ErrorCode extracts the failure kind code from err, or "" when err is not a
// LedgerError.
func ErrorCode(err error) string {
	var le *LedgerError
	if errors.As(err, &le) {
		return le.Code
	}
	return ""
}
