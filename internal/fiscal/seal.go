// Package fiscal defines the contract with the fiscal seal device: a
// smart-card reader attached to a bridge agent that stamps every emitted
// ticket (and every cancellation, at price zero) with a sequential
// hardware-backed seal. The card computes one seal at a time, so all
// implementations serialize RequestSeal internally.
package fiscal

import (
	"context"
	"time"
)

// Stable machine-readable codes carried by SealError. BRIDGE_NOT_CONNECTED
// and CARD_NOT_READY are refinements of the generic SEAL_ERROR; callers
// that do not care about the distinction can treat all three alike.
const (
	CodeSealError          = "SEAL_ERROR"
	CodeBridgeNotConnected = "BRIDGE_NOT_CONNECTED"
	CodeCardNotReady       = "CARD_NOT_READY"
)

// SealRecord is the immutable stamp returned by the device for one price.
// Counter is the card's monotonically increasing emission counter; once a
// counter value is returned it is consumed forever, whether or not the
// ticket it was requested for is eventually persisted.
type SealRecord struct {
	Counter      uint32    // card emission counter
	SealCode     string    // printable seal code derived from the MAC
	SerialNumber string    // serial number of the fiscal card
	MAC          string    // hex-encoded 8-byte MAC computed by the card
	Timestamp    time.Time // date/time the card bound into the seal
}

// SealError is the typed failure returned by Device implementations.
// Code is stable and machine-readable; Message is for humans only.
type SealError struct {
	Code    string
	Message string
}

func (e *SealError) Error() string { return e.Code + ": " + e.Message }

// AsSealError returns the *SealError inside err, or nil.
func AsSealError(err error) *SealError {
	if se, ok := err.(*SealError); ok {
		return se
	}
	return nil
}

// Device is the capability the emission engine depends on. RequestSeal
// blocks for the duration of the hardware operation; it must always be
// called outside any database transaction. The two probes answer the
// issuance preconditions cheaply without consuming a counter.
type Device interface {
	// RequestSeal obtains a seal for the given price in minor currency
	// units. Price zero requests a cancellation seal. On failure the
	// returned error is a *SealError.
	RequestSeal(ctx context.Context, priceCents uint32) (SealRecord, error)

	// IsDeviceConnected reports whether the bridge agent and reader are
	// reachable at all.
	IsDeviceConnected(ctx context.Context) bool

	// IsCardReady reports whether a fiscal card is inserted and unlocked.
	// When not ready, the second value carries the device's reason.
	IsCardReady(ctx context.Context) (bool, string)
}
