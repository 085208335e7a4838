package model

// Fiscal cancellation reason codes.  The set is fixed: the code is
// reported to the tax authority together with the zero-value cancellation
// seal, so free-form values are rejected with INVALID_REASON_CODE before
// any seal is requested.
const (
    ReasonEventCancelled    = "EVENT_CANCELLED"
    ReasonCustomerRefund    = "CUSTOMER_REFUND"
    ReasonEmissionError     = "EMISSION_ERROR"
    ReasonDuplicateEmission = "DUPLICATE_EMISSION"
    ReasonPrintFailure      = "PRINT_FAILURE"
)

// cancelReasons maps each accepted code to its report label.
var cancelReasons = map[string]string{
    ReasonEventCancelled:    "event cancelled by organizer",
    ReasonCustomerRefund:    "refund requested by customer",
    ReasonEmissionError:     "cashier emission error",
    ReasonDuplicateEmission: "duplicate emission",
    ReasonPrintFailure:      "ticket print failure",
}

// ValidCancelReason reports whether code belongs to the fixed fiscal set.
func ValidCancelReason(code string) bool {
    _, ok := cancelReasons[code]
    return ok
}

// CancelReasonLabel returns the human-readable label for a reason code,
// or the empty string for unknown codes.
func CancelReasonLabel(code string) string {
    return cancelReasons[code]
}

// CancelReasonCodes returns the accepted codes in a stable order, for
// listing in API responses.
func CancelReasonCodes() []string {
    return []string{
        ReasonEventCancelled,
        ReasonCustomerRefund,
        ReasonEmissionError,
        ReasonDuplicateEmission,
        ReasonPrintFailure,
    }
}
