package model

import "testing"

func TestValidCancelReason(t *testing.T) {
	for _, code := range CancelReasonCodes() {
		if !ValidCancelReason(code) {
			t.Errorf("listed code %q rejected", code)
		}
		if CancelReasonLabel(code) == "" {
			t.Errorf("code %q has no label", code)
		}
	}
	for _, code := range []string{"", "REFUND", "customer_refund", "BECAUSE"} {
		if ValidCancelReason(code) {
			t.Errorf("code %q accepted", code)
		}
	}
}

func TestCancelReasonCodesStable(t *testing.T) {
	a, b := CancelReasonCodes(), CancelReasonCodes()
	if len(a) != len(b) {
		t.Fatal("length changed between calls")
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("order changed at %d: %s vs %s", i, a[i], b[i])
		}
	}
}

func TestValidTicketType(t *testing.T) {
	for _, tt := range []string{TicketTypeFull, TicketTypeReduced, TicketTypeComp} {
		if !ValidTicketType(tt) {
			t.Errorf("type %q rejected", tt)
		}
	}
	for _, tt := range []string{"", "full", "VIP"} {
		if ValidTicketType(tt) {
			t.Errorf("type %q accepted", tt)
		}
	}
}

func TestRoles(t *testing.T) {
	if !ValidRole(RoleCashier) || !ValidRole(RoleManager) || !ValidRole(RoleAdmin) {
		t.Error("known role rejected")
	}
	if ValidRole("OWNER") || ValidRole("cashier") || ValidRole("") {
		t.Error("unknown role accepted")
	}

	if ManagerTier(RoleCashier) {
		t.Error("cashier must not be manager tier")
	}
	if !ManagerTier(RoleManager) || !ManagerTier(RoleAdmin) {
		t.Error("manager/admin must be manager tier")
	}
}

func TestQuotaRemaining(t *testing.T) {
	tests := []struct {
		quantity, used, want uint32
	}{
		{10, 0, 10},
		{10, 4, 6},
		{10, 10, 0},
		{10, 12, 0}, // drifted past the cap still reports zero
	}
	for _, tc := range tests {
		a := CashierAllocation{QuotaQuantity: tc.quantity, QuotaUsed: tc.used}
		if got := a.QuotaRemaining(); got != tc.want {
			t.Errorf("remaining(%d,%d) = %d, want %d", tc.quantity, tc.used, got, tc.want)
		}
	}
}
