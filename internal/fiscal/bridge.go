package fiscal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Bridge talks JSON over HTTP to the card-reader bridge agent running on
// the box-office machine. A mutex serializes seal requests because the
// physical card computes one seal at a time; status probes bypass the
// mutex so a slow seal does not block readiness checks.
type Bridge struct {
	baseURL string
	client  *http.Client

	mu sync.Mutex // held for the duration of one seal request
}

// NewBridge returns a Bridge for the agent at baseURL. The timeout bounds
// every HTTP call; seal computation on the card takes 1-3 seconds, so
// timeouts below 5s are raised to 5s.
func NewBridge(baseURL string, timeout time.Duration) *Bridge {
	if timeout < 5*time.Second {
		timeout = 5 * time.Second
	}
	return &Bridge{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// BridgeStatus is the payload of the agent's GET /status endpoint.
type BridgeStatus struct {
	Connected    bool   `json:"connected"`
	CardIn       bool   `json:"card_in"`
	CardError    string `json:"card_error,omitempty"`
	SerialNumber string `json:"serial_number,omitempty"`
	Counter      uint32 `json:"counter,omitempty"`
}

// Status fetches the agent's current device/card state. A transport-level
// failure is reported as a disconnected bridge rather than an error so
// callers can render a status page even when the agent is down.
func (b *Bridge) Status(ctx context.Context) (BridgeStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/status", nil)
	if err != nil {
		return BridgeStatus{}, err
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return BridgeStatus{Connected: false}, nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return BridgeStatus{Connected: false}, nil
	}
	var st BridgeStatus
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&st); err != nil {
		return BridgeStatus{Connected: false}, nil
	}
	return st, nil
}

// IsDeviceConnected implements Device.
func (b *Bridge) IsDeviceConnected(ctx context.Context) bool {
	st, err := b.Status(ctx)
	return err == nil && st.Connected
}

// IsCardReady implements Device.
func (b *Bridge) IsCardReady(ctx context.Context) (bool, string) {
	st, err := b.Status(ctx)
	if err != nil || !st.Connected {
		return false, "bridge not reachable"
	}
	if !st.CardIn {
		reason := st.CardError
		if reason == "" {
			reason = "no fiscal card inserted"
		}
		return false, reason
	}
	return true, ""
}

type sealRequest struct {
	PriceCents uint32 `json:"price_cents"`
}

type sealResponse struct {
	Counter      uint32 `json:"counter"`
	SealCode     string `json:"seal_code"`
	SerialNumber string `json:"serial_number"`
	MAC          string `json:"mac"`
	Timestamp    string `json:"timestamp"`
	ErrorCode    string `json:"code,omitempty"`
	ErrorMessage string `json:"error,omitempty"`
}

// RequestSeal implements Device. Failure mapping matters fiscally: a
// refused connection means the card never saw the request
// (BRIDGE_NOT_CONNECTED, counter intact), while a timeout after the
// request was sent may have consumed a counter on the card, so it is
// reported as the generic SEAL_ERROR and logged upstream.
func (b *Bridge) RequestSeal(ctx context.Context, priceCents uint32) (SealRecord, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	body, err := json.Marshal(sealRequest{PriceCents: priceCents})
	if err != nil {
		return SealRecord{}, &SealError{Code: CodeSealError, Message: err.Error()}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/seal", bytes.NewReader(body))
	if err != nil {
		return SealRecord{}, &SealError{Code: CodeSealError, Message: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return SealRecord{}, &SealError{Code: CodeSealError, Message: "seal request timed out: " + err.Error()}
		}
		return SealRecord{}, &SealError{Code: CodeBridgeNotConnected, Message: "bridge unreachable: " + err.Error()}
	}
	defer resp.Body.Close()

	var sr sealResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&sr); err != nil {
		return SealRecord{}, &SealError{Code: CodeSealError, Message: "malformed bridge response: " + err.Error()}
	}
	if resp.StatusCode != http.StatusOK {
		code := sr.ErrorCode
		if code != CodeBridgeNotConnected && code != CodeCardNotReady {
			code = CodeSealError
		}
		msg := sr.ErrorMessage
		if msg == "" {
			msg = fmt.Sprintf("bridge returned HTTP %d", resp.StatusCode)
		}
		return SealRecord{}, &SealError{Code: code, Message: msg}
	}

	ts, err := time.Parse(time.RFC3339, sr.Timestamp)
	if err != nil {
		return SealRecord{}, &SealError{Code: CodeSealError, Message: "bad seal timestamp: " + sr.Timestamp}
	}
	if sr.SealCode == "" || sr.MAC == "" {
		return SealRecord{}, &SealError{Code: CodeSealError, Message: "incomplete seal in bridge response"}
	}
	return SealRecord{
		Counter:      sr.Counter,
		SealCode:     sr.SealCode,
		SerialNumber: sr.SerialNumber,
		MAC:          sr.MAC,
		Timestamp:    ts.UTC(),
	}, nil
}

// isTimeout covers both client-side deadlines and context expiry;
// url.Error forwards Timeout() from the wrapped cause.
func isTimeout(err error) bool {
	ne, ok := err.(net.Error)
	return ok && ne.Timeout()
}
