package types

import (
	"errors"
	"fmt"
)

// ErrorKind categorizes failures of ledger interactions.
type ErrorKind string

const (
	// ErrorKindAbsence marks a query that failed because the queried
	// entity does not exist. A valid negative result, not a failure.
	ErrorKindAbsence ErrorKind = "absence"

	// ErrorKindUserDeclined marks a command rejected by the signer
	// before submission.
	ErrorKindUserDeclined ErrorKind = "user_declined"

	// ErrorKindLedgerRejected marks a submitted command that reverted.
	ErrorKindLedgerRejected ErrorKind = "ledger_rejected"

	// ErrorKindConnectivity marks an unreachable gateway.
	ErrorKindConnectivity ErrorKind = "connectivity"

	// ErrorKindIntegrity marks a malformed ledger response, such as a
	// parallel-array length mismatch or an undecodable event payload.
	// Fatal to the affected component only.
	ErrorKindIntegrity ErrorKind = "integrity"
)

// LedgerError is a structured error for a failed ledger interaction.
type LedgerError struct {
	Kind    ErrorKind `json:"kind"`
	Op      string    `json:"op"`
	Message string    `json:"message"`
	Cause   error     `json:"-"`
}

// Error implements the error interface.
func (e *LedgerError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %s: %v", e.Kind, e.Op, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s: %s", e.Kind, e.Op, e.Message)
}

// Unwrap returns the underlying cause error.
func (e *LedgerError) Unwrap() error {
	return e.Cause
}

// NewAbsenceError creates an absence error for the given operation.
func NewAbsenceError(op, message string) *LedgerError {
	return &LedgerError{Kind: ErrorKindAbsence, Op: op, Message: message}
}

// NewUserDeclinedError creates a user-declined error.
func NewUserDeclinedError(op, message string) *LedgerError {
	return &LedgerError{Kind: ErrorKindUserDeclined, Op: op, Message: message}
}

// NewLedgerRejectedError creates a ledger-rejected error.
func NewLedgerRejectedError(op, message string, cause error) *LedgerError {
	return &LedgerError{Kind: ErrorKindLedgerRejected, Op: op, Message: message, Cause: cause}
}

// NewConnectivityError creates a connectivity error.
func NewConnectivityError(op string, cause error) *LedgerError {
	return &LedgerError{Kind: ErrorKindConnectivity, Op: op, Message: "gateway unreachable", Cause: cause}
}

// NewIntegrityError creates an integrity error.
func NewIntegrityError(op, message string) *LedgerError {
	return &LedgerError{Kind: ErrorKindIntegrity, Op: op, Message: message}
}

// KindOf returns the error kind, or empty string for unclassified errors.
func KindOf(err error) ErrorKind {
	var le *LedgerError
	if errors.As(err, &le) {
		return le.Kind
	}
	return ""
}

// IsAbsence reports whether err is evidence of absence rather than failure.
func IsAbsence(err error) bool {
	return KindOf(err) == ErrorKindAbsence
}

// IsUserDeclined reports whether err is a signer rejection.
func IsUserDeclined(err error) bool {
	return KindOf(err) == ErrorKindUserDeclined
}

// IsLedgerRejected reports whether err is a reverted command.
func IsLedgerRejected(err error) bool {
	return KindOf(err) == ErrorKindLedgerRejected
}

// IsConnectivity reports whether err is a transport failure.
func IsConnectivity(err error) bool {
	return KindOf(err) == ErrorKindConnectivity
}

// IsIntegrity reports whether err is a malformed ledger response.
func IsIntegrity(err error) bool {
	return KindOf(err) == ErrorKindIntegrity
}
