package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/botteghino/fiscal-ticketing/internal/emission"
	"github.com/botteghino/fiscal-ticketing/internal/fiscal"
	"github.com/botteghino/fiscal-ticketing/internal/model"
)

const testCashierID = uint64(7)

// newTicketFixture wires a handler to the in-memory store and the stub
// seal device: one ON_SALE event, one sector priced at 25.00, and an
// active allocation for the test cashier.
func newTicketFixture(quota, seats uint32) (*CashierTicketHandler, *emission.MemStore, uint64, uint64) {
	st := emission.NewMemStore()
	eventID := st.SeedEvent(emission.EventState{Title: "Summer Gala", Status: model.EventStatusOnSale})
	sectorID := st.SeedSector(emission.SectorState{
		EventID:        eventID,
		Name:           "Platea",
		Capacity:       seats,
		AvailableSeats: seats,
		PriceCents:     2500,
	})
	st.SeedAllocation(emission.AllocationState{
		CashierID:     testCashierID,
		EventID:       eventID,
		QuotaQuantity: quota,
		IsActive:      true,
	})
	eng := emission.NewEngine(st, fiscal.NewStubDevice(), nil, false)
	return &CashierTicketHandler{Engine: eng}, st, eventID, sectorID
}

// invoke runs an echo handler against a synthetic JSON request with the
// cashier's auth claims preinstalled, the way the JWT middleware would
// leave them.
func invoke(t *testing.T, h echo.HandlerFunc, method, target, body string, mods ...func(echo.Context)) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("user_id", testCashierID)
	c.Set("role", model.RoleCashier)
	for _, m := range mods {
		m(c)
	}
	if err := h(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	return rec
}

func withParam(name, value string) func(echo.Context) {
	return func(c echo.Context) {
		c.SetParamNames(name)
		c.SetParamValues(value)
	}
}

type wireTicket struct {
	ID                uint64  `json:"id"`
	PublicCode        string  `json:"public_code"`
	ProgressiveNumber uint32  `json:"progressive_number"`
	TicketType        string  `json:"ticket_type"`
	PriceCents        uint32  `json:"price_cents"`
	Status            string  `json:"status"`
	PaymentMethod     string  `json:"payment_method"`
	SealCounter       uint32  `json:"seal_counter"`
	SealCode          string  `json:"seal_code"`
	CancelReason      *string `json:"cancel_reason"`
}

type wireBatch struct {
	RequestedCount int          `json:"requested_count"`
	EmittedCount   int          `json:"emitted_count"`
	Tickets        []wireTicket `json:"tickets"`
	Err            *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func TestEmitSingleTicket(t *testing.T) {
	h, _, eventID, sectorID := newTicketFixture(10, 50)

	body := fmt.Sprintf(`{"event_id":%d,"sector_id":%d,"quantity":1}`, eventID, sectorID)
	rec := invoke(t, h.Emit, http.MethodPost, "/v1/tickets", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201; body %s", rec.Code, rec.Body.String())
	}

	var got wireTicket
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.ProgressiveNumber != 1 {
		t.Errorf("progressive_number = %d, want 1", got.ProgressiveNumber)
	}
	if got.TicketType != "FULL" {
		t.Errorf("ticket_type = %q, want FULL (default)", got.TicketType)
	}
	if got.PriceCents != 2500 {
		t.Errorf("price_cents = %d, want sector default 2500", got.PriceCents)
	}
	if got.PaymentMethod != "CASH" {
		t.Errorf("payment_method = %q, want CASH (default)", got.PaymentMethod)
	}
	if got.Status != model.TicketStatusActive {
		t.Errorf("status = %q, want ACTIVE", got.Status)
	}
	if got.PublicCode == "" || got.SealCode == "" {
		t.Errorf("public_code %q / seal_code %q must both be set", got.PublicCode, got.SealCode)
	}
}

func TestEmitValidation(t *testing.T) {
	h, _, eventID, sectorID := newTicketFixture(10, 50)

	cases := []struct {
		name       string
		body       string
		mods       []func(echo.Context)
		wantStatus int
		wantError  string
	}{
		{
			name:       "missing ids",
			body:       `{"quantity":1}`,
			wantStatus: http.StatusBadRequest,
			wantError:  "event_id and sector_id required",
		},
		{
			name:       "unknown ticket type",
			body:       fmt.Sprintf(`{"event_id":%d,"sector_id":%d,"ticket_type":"HALF"}`, eventID, sectorID),
			wantStatus: http.StatusBadRequest,
			wantError:  "ticket_type must be FULL, REDUCED or COMP",
		},
		{
			name:       "malformed json",
			body:       `{"event_id":`,
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid body",
		},
		{
			name:       "no auth claims",
			body:       fmt.Sprintf(`{"event_id":%d,"sector_id":%d}`, eventID, sectorID),
			mods:       []func(echo.Context){func(c echo.Context) { c.Set("user_id", nil) }},
			wantStatus: http.StatusUnauthorized,
			wantError:  "unauthorized",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := invoke(t, h.Emit, http.MethodPost, "/v1/tickets", tc.body, tc.mods...)
			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d; body %s", rec.Code, tc.wantStatus, rec.Body.String())
			}
			if !strings.Contains(rec.Body.String(), tc.wantError) {
				t.Errorf("body %s does not mention %q", rec.Body.String(), tc.wantError)
			}
		})
	}
}

func TestEmitBatchFullSuccess(t *testing.T) {
	h, _, eventID, sectorID := newTicketFixture(10, 50)

	body := fmt.Sprintf(`{"event_id":%d,"sector_id":%d,"quantity":4}`, eventID, sectorID)
	rec := invoke(t, h.Emit, http.MethodPost, "/v1/tickets", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201; body %s", rec.Code, rec.Body.String())
	}

	var got wireBatch
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.RequestedCount != 4 || got.EmittedCount != 4 {
		t.Fatalf("counts = %d/%d, want 4/4", got.EmittedCount, got.RequestedCount)
	}
	if got.Err != nil {
		t.Fatalf("unexpected batch error %+v", got.Err)
	}
	for i, tk := range got.Tickets {
		if want := uint32(i + 1); tk.ProgressiveNumber != want {
			t.Errorf("ticket %d progressive = %d, want %d", i, tk.ProgressiveNumber, want)
		}
	}
}

func TestEmitBatchPartialOnQuota(t *testing.T) {
	h, _, eventID, sectorID := newTicketFixture(2, 50)

	body := fmt.Sprintf(`{"event_id":%d,"sector_id":%d,"quantity":5}`, eventID, sectorID)
	rec := invoke(t, h.Emit, http.MethodPost, "/v1/tickets", body)
	// Partial success is 200, not 201: the client must inspect the
	// envelope and hand out the tickets that were emitted.
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", rec.Code, rec.Body.String())
	}

	var got wireBatch
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.RequestedCount != 5 || got.EmittedCount != 2 {
		t.Fatalf("counts = %d/%d, want 2/5", got.EmittedCount, got.RequestedCount)
	}
	if got.Err == nil || got.Err.Code != emission.CodeQuotaExceeded {
		t.Fatalf("batch error = %+v, want code QUOTA_EXCEEDED", got.Err)
	}
	if len(got.Tickets) != 2 {
		t.Fatalf("tickets in envelope = %d, want the 2 emitted", len(got.Tickets))
	}
}

func TestEmitBatchFullFailure(t *testing.T) {
	st := emission.NewMemStore()
	eventID := st.SeedEvent(emission.EventState{Title: "Unopened", Status: model.EventStatusDraft})
	sectorID := st.SeedSector(emission.SectorState{
		EventID: eventID, Name: "Platea", Capacity: 50, AvailableSeats: 50, PriceCents: 2500,
	})
	st.SeedAllocation(emission.AllocationState{
		CashierID: testCashierID, EventID: eventID, QuotaQuantity: 10, IsActive: true,
	})
	h := &CashierTicketHandler{Engine: emission.NewEngine(st, fiscal.NewStubDevice(), nil, false)}

	body := fmt.Sprintf(`{"event_id":%d,"sector_id":%d,"quantity":3}`, eventID, sectorID)
	rec := invoke(t, h.Emit, http.MethodPost, "/v1/tickets", body)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409; body %s", rec.Code, rec.Body.String())
	}

	var got wireBatch
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.EmittedCount != 0 || len(got.Tickets) != 0 {
		t.Fatalf("emitted %d tickets from a DRAFT event, want 0", got.EmittedCount)
	}
	if got.Err == nil || got.Err.Code != emission.CodeEventNotOnSale {
		t.Fatalf("batch error = %+v, want code EVENT_NOT_ON_SALE", got.Err)
	}
}

func TestCancelTicket(t *testing.T) {
	h, _, eventID, sectorID := newTicketFixture(10, 50)

	emitBody := fmt.Sprintf(`{"event_id":%d,"sector_id":%d,"quantity":1}`, eventID, sectorID)
	rec := invoke(t, h.Emit, http.MethodPost, "/v1/tickets", emitBody)
	if rec.Code != http.StatusCreated {
		t.Fatalf("emit failed: %s", rec.Body.String())
	}
	var issued wireTicket
	if err := json.Unmarshal(rec.Body.Bytes(), &issued); err != nil {
		t.Fatalf("decode emit response: %v", err)
	}
	id := fmt.Sprintf("%d", issued.ID)

	rec = invoke(t, h.Cancel, http.MethodPost, "/v1/tickets/"+id+"/cancel",
		`{"reason_code":"customer_refund","note":"changed their mind"}`, withParam("id", id))
	if rec.Code != http.StatusOK {
		t.Fatalf("cancel status = %d, want 200; body %s", rec.Code, rec.Body.String())
	}
	var cancelled wireTicket
	if err := json.Unmarshal(rec.Body.Bytes(), &cancelled); err != nil {
		t.Fatalf("decode cancel response: %v", err)
	}
	if cancelled.Status != model.TicketStatusCancelled {
		t.Errorf("status = %q, want CANCELLED", cancelled.Status)
	}
	// The handler uppercases the reason before it reaches the engine.
	if cancelled.CancelReason == nil || *cancelled.CancelReason != "CUSTOMER_REFUND" {
		t.Errorf("cancel_reason = %v, want CUSTOMER_REFUND", cancelled.CancelReason)
	}

	// Cancelling the same ticket again must be rejected as a conflict.
	rec = invoke(t, h.Cancel, http.MethodPost, "/v1/tickets/"+id+"/cancel",
		`{"reason_code":"CUSTOMER_REFUND"}`, withParam("id", id))
	if rec.Code != http.StatusConflict {
		t.Fatalf("second cancel status = %d, want 409; body %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), emission.CodeAlreadyCancelled) {
		t.Errorf("body %s does not carry ALREADY_CANCELLED", rec.Body.String())
	}
}

func TestCancelRejectsUnknownReason(t *testing.T) {
	h, _, eventID, sectorID := newTicketFixture(10, 50)

	emitBody := fmt.Sprintf(`{"event_id":%d,"sector_id":%d,"quantity":1}`, eventID, sectorID)
	rec := invoke(t, h.Emit, http.MethodPost, "/v1/tickets", emitBody)
	if rec.Code != http.StatusCreated {
		t.Fatalf("emit failed: %s", rec.Body.String())
	}
	var issued wireTicket
	if err := json.Unmarshal(rec.Body.Bytes(), &issued); err != nil {
		t.Fatalf("decode emit response: %v", err)
	}
	id := fmt.Sprintf("%d", issued.ID)

	rec = invoke(t, h.Cancel, http.MethodPost, "/v1/tickets/"+id+"/cancel",
		`{"reason_code":"BECAUSE"}`, withParam("id", id))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400; body %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), emission.CodeInvalidReasonCode) {
		t.Errorf("body %s does not carry INVALID_REASON_CODE", rec.Body.String())
	}

	rec = invoke(t, h.Cancel, http.MethodPost, "/v1/tickets/abc/cancel",
		`{"reason_code":"CUSTOMER_REFUND"}`, withParam("id", "abc"))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("non-numeric id status = %d, want 400", rec.Code)
	}
}

func TestCancelReasonsEndpoint(t *testing.T) {
	h := &CashierTicketHandler{}

	rec := invoke(t, h.CancelReasons, http.MethodGet, "/v1/tickets/cancel-reasons", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var got struct {
		Reasons []struct {
			Code  string `json:"code"`
			Label string `json:"label"`
		} `json:"reasons"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(got.Reasons) != len(model.CancelReasonCodes()) {
		t.Fatalf("reasons = %d, want %d", len(got.Reasons), len(model.CancelReasonCodes()))
	}
	for _, r := range got.Reasons {
		if r.Code == "" || r.Label == "" {
			t.Errorf("reason %+v has empty code or label", r)
		}
		if !model.ValidCancelReason(r.Code) {
			t.Errorf("listed reason %q is not accepted by validation", r.Code)
		}
	}
}
