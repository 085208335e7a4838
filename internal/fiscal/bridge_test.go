package fiscal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestBridgeRequestSeal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/seal" || r.Method != http.MethodPost {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var req sealRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.PriceCents != 2500 {
			t.Errorf("price = %d, want 2500", req.PriceCents)
		}
		json.NewEncoder(w).Encode(sealResponse{
			Counter:      42,
			SealCode:     "AB34EF",
			SerialNumber: "IT-0001234",
			MAC:          "0011223344556677",
			Timestamp:    "2026-08-25T10:30:00Z",
		})
	}))
	defer srv.Close()

	b := NewBridge(srv.URL, 5*time.Second)
	seal, err := b.RequestSeal(context.Background(), 2500)
	if err != nil {
		t.Fatal(err)
	}
	if seal.Counter != 42 {
		t.Errorf("counter = %d, want 42", seal.Counter)
	}
	if seal.SealCode != "AB34EF" {
		t.Errorf("seal code = %q", seal.SealCode)
	}
	if seal.SerialNumber != "IT-0001234" {
		t.Errorf("serial = %q", seal.SerialNumber)
	}
	want := time.Date(2026, 8, 25, 10, 30, 0, 0, time.UTC)
	if !seal.Timestamp.Equal(want) {
		t.Errorf("timestamp = %v, want %v", seal.Timestamp, want)
	}
}

func TestBridgeRequestSealRefusedConnection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing listens here anymore

	b := NewBridge(srv.URL, 5*time.Second)
	_, err := b.RequestSeal(context.Background(), 1000)
	se := AsSealError(err)
	if se == nil {
		t.Fatalf("want *SealError, got %v", err)
	}
	// refused connection = the card never saw the request
	if se.Code != CodeBridgeNotConnected {
		t.Errorf("code = %s, want %s", se.Code, CodeBridgeNotConnected)
	}
}

func TestBridgeRequestSealCardNotReady(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(sealResponse{
			ErrorCode:    CodeCardNotReady,
			ErrorMessage: "no fiscal card inserted",
		})
	}))
	defer srv.Close()

	b := NewBridge(srv.URL, 5*time.Second)
	_, err := b.RequestSeal(context.Background(), 1000)
	se := AsSealError(err)
	if se == nil {
		t.Fatalf("want *SealError, got %v", err)
	}
	if se.Code != CodeCardNotReady {
		t.Errorf("code = %s, want %s", se.Code, CodeCardNotReady)
	}
	if se.Message != "no fiscal card inserted" {
		t.Errorf("message = %q", se.Message)
	}
}

func TestBridgeRequestSealUnknownErrorCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(sealResponse{ErrorCode: "EXPLODED", ErrorMessage: "boom"})
	}))
	defer srv.Close()

	b := NewBridge(srv.URL, 5*time.Second)
	_, err := b.RequestSeal(context.Background(), 1000)
	se := AsSealError(err)
	if se == nil || se.Code != CodeSealError {
		t.Fatalf("want generic %s, got %v", CodeSealError, err)
	}
}

func TestBridgeRequestSealIncompleteSeal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// HTTP 200 but the MAC is missing
		json.NewEncoder(w).Encode(sealResponse{
			Counter:   7,
			SealCode:  "ABCDEF",
			Timestamp: "2026-08-25T10:30:00Z",
		})
	}))
	defer srv.Close()

	b := NewBridge(srv.URL, 5*time.Second)
	_, err := b.RequestSeal(context.Background(), 1000)
	se := AsSealError(err)
	if se == nil || se.Code != CodeSealError {
		t.Fatalf("want %s for incomplete seal, got %v", CodeSealError, err)
	}
}

func TestBridgeStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/status" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(BridgeStatus{
			Connected:    true,
			CardIn:       true,
			SerialNumber: "IT-0001234",
			Counter:      99,
		})
	}))
	defer srv.Close()

	b := NewBridge(srv.URL, 5*time.Second)
	if !b.IsDeviceConnected(context.Background()) {
		t.Error("device should be connected")
	}
	ready, reason := b.IsCardReady(context.Background())
	if !ready || reason != "" {
		t.Errorf("card ready = %v (%q), want true", ready, reason)
	}
	st, err := b.Status(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if st.Counter != 99 || st.SerialNumber != "IT-0001234" {
		t.Errorf("status = %+v", st)
	}
}

func TestBridgeStatusDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	b := NewBridge(srv.URL, 5*time.Second)
	// a dead agent is "disconnected", not an error
	st, err := b.Status(context.Background())
	if err != nil {
		t.Fatalf("status on dead agent: %v", err)
	}
	if st.Connected {
		t.Error("dead agent reported as connected")
	}
	if b.IsDeviceConnected(context.Background()) {
		t.Error("IsDeviceConnected should be false")
	}
	ready, reason := b.IsCardReady(context.Background())
	if ready {
		t.Error("card cannot be ready without a bridge")
	}
	if reason != "bridge not reachable" {
		t.Errorf("reason = %q", reason)
	}
}

func TestBridgeCardPulled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(BridgeStatus{
			Connected: true,
			CardIn:    false,
			CardError: "card removed mid-session",
		})
	}))
	defer srv.Close()

	b := NewBridge(srv.URL, 5*time.Second)
	ready, reason := b.IsCardReady(context.Background())
	if ready {
		t.Error("pulled card reported ready")
	}
	if reason != "card removed mid-session" {
		t.Errorf("reason = %q", reason)
	}
}
