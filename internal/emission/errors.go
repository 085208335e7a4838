package emission

import (
	"errors"
	"fmt"
)

// Stable machine-readable outcome codes. Handlers map codes to HTTP
// statuses; the code set is part of the API contract and must not change
// meaning between releases. BRIDGE_NOT_CONNECTED and CARD_NOT_READY are
// refinements of SEAL_ERROR carried through from the fiscal package.
const (
	CodeAllocationNotFound = "ALLOCATION_NOT_FOUND"
	CodeQuotaExceeded      = "QUOTA_EXCEEDED"
	CodeNoSeatsAvailable   = "NO_SEATS_AVAILABLE"
	CodeSealError          = "SEAL_ERROR"
	CodeBridgeNotConnected = "BRIDGE_NOT_CONNECTED"
	CodeCardNotReady       = "CARD_NOT_READY"
	CodeAlreadyCancelled   = "ALREADY_CANCELLED"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeInvalidReasonCode  = "INVALID_REASON_CODE"

	CodeTicketNotFound = "TICKET_NOT_FOUND"
	CodeEventNotFound  = "EVENT_NOT_FOUND"
	CodeSectorNotFound = "SECTOR_NOT_FOUND"
	CodeEventNotOnSale = "EVENT_NOT_ON_SALE"

	// CodeInternal marks unexpected faults (lost connectivity, corrupt
	// rows). The wrapped cause is logged server-side and never surfaced
	// to API callers.
	CodeInternal = "INTERNAL"
)

// Error is the tagged outcome value returned by the engine and its
// stores. Expected domain outcomes (quota exhausted, already cancelled)
// travel as *Error values, not panics, and carry no raw storage detail.
type Error struct {
	Code    string
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return e.Code + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// newError builds a domain outcome with a formatted message.
func newError(code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// internalErr wraps an unexpected fault. The cause stays attached for
// logging but the message shown to callers is generic.
func internalErr(cause error) *Error {
	return &Error{Code: CodeInternal, Message: "internal error", cause: cause}
}

// AsError extracts the *Error inside err, wrapping unexpected faults as
// CodeInternal so callers always observe a typed outcome.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return internalErr(err)
}

// ErrorCode returns the stable code carried by err, or CodeInternal for
// anything that is not a typed outcome.
func ErrorCode(err error) string {
	return AsError(err).Code
}

// IsCode reports whether err carries the given outcome code.
func IsCode(err error, code string) bool {
	return err != nil && ErrorCode(err) == code
}
