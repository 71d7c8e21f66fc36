package models

import (
	"errors"
	"testing"
)

func TestIsTerminal(t *testing.T) {
	tests := []struct {
		kind     Kind
		status   Status
		terminal bool
	}{
		{KindPayment, StatusProcessing, false},
		{KindPayment, StatusPending, false},
		{KindPayment, StatusSuccess, true},
		{KindPayment, StatusSettled, true},
		{KindPayment, StatusFailed, true},
		{KindPayout, StatusAuthorized, false},
		{KindPayout, StatusPending, false},
		{KindPayout, StatusProcessing, false},
		{KindPayout, StatusSuccess, true},
		{KindPayout, StatusFailed, true},
		{KindPayout, StatusReversed, true},
		{KindPayout, StatusRefunded, true},
	}
	for _, tt := range tests {
		if got := IsTerminal(tt.kind, tt.status); got != tt.terminal {
			t.Errorf("IsTerminal(%s, %s) = %v, want %v", tt.kind, tt.status, got, tt.terminal)
		}
	}
}

func TestValidStatusPerKind(t *testing.T) {
	// SETTLED exists for payments only, AUTHORIZED and REVERSED for payouts only
	if !ValidStatus(KindPayment, StatusSettled) {
		t.Error("SETTLED must be a valid payment status")
	}
	if ValidStatus(KindPayout, StatusSettled) {
		t.Error("SETTLED must not be a valid payout status")
	}
	if ValidStatus(KindPayment, StatusAuthorized) {
		t.Error("AUTHORIZED must not be a valid payment status")
	}
	if !ValidStatus(KindPayout, StatusReversed) {
		t.Error("REVERSED must be a valid payout status")
	}
	if ValidStatus(KindPayment, Status("BANANA")) {
		t.Error("unknown status must not validate")
	}
}

func TestIsSuccessful(t *testing.T) {
	if !IsSuccessful(KindPayment, StatusSuccess) || !IsSuccessful(KindPayment, StatusSettled) {
		t.Error("SUCCESS and SETTLED payments are successful")
	}
	if IsSuccessful(KindPayment, StatusFailed) {
		t.Error("FAILED payment is not successful")
	}
	if !IsSuccessful(KindPayout, StatusSuccess) {
		t.Error("SUCCESS payout is successful")
	}
	if IsSuccessful(KindPayout, StatusRefunded) || IsSuccessful(KindPayout, StatusReversed) {
		t.Error("REFUNDED and REVERSED payouts are not successful")
	}
}

func TestCheckTransition(t *testing.T) {
	tests := []struct {
		name    string
		kind    Kind
		from    Status
		to      Status
		wantErr bool
	}{
		{"payment advances", KindPayment, StatusProcessing, StatusSuccess, false},
		{"payment fails", KindPayment, StatusPending, StatusFailed, false},
		{"payment moves back to pending", KindPayment, StatusProcessing, StatusPending, false},
		{"terminal replay is a no-op", KindPayment, StatusSuccess, StatusSuccess, false},
		{"terminal to different terminal", KindPayment, StatusSuccess, StatusFailed, true},
		{"terminal to non-terminal", KindPayment, StatusFailed, StatusProcessing, true},
		{"settled may not become failed", KindPayment, StatusSettled, StatusFailed, true},
		{"unknown target", KindPayment, StatusProcessing, Status("BANANA"), true},
		{"payout advances", KindPayout, StatusAuthorized, StatusProcessing, false},
		{"payout reverses from processing", KindPayout, StatusProcessing, StatusReversed, false},
		{"payout terminal replay", KindPayout, StatusRefunded, StatusRefunded, false},
		{"payout success may not reverse", KindPayout, StatusSuccess, StatusReversed, true},
		{"payment-only status rejected for payout", KindPayout, StatusProcessing, StatusSettled, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckTransition(tt.kind, tt.from, tt.to)
			if !tt.wantErr {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error for %s -> %s", tt.from, tt.to)
			}
			var ise *InconsistentStateError
			if !errors.As(err, &ise) {
				t.Fatalf("expected InconsistentStateError, got %T", err)
			}
			if ise.From != tt.from || ise.To != tt.to {
				t.Errorf("error carries %s -> %s, want %s -> %s", ise.From, ise.To, tt.from, tt.to)
			}
		})
	}
}

func TestNonTerminalStatuses(t *testing.T) {
	payment := NonTerminalStatuses(KindPayment)
	if len(payment) != 2 {
		t.Errorf("expected 2 non-terminal payment statuses, got %v", payment)
	}
	payout := NonTerminalStatuses(KindPayout)
	if len(payout) != 3 {
		t.Errorf("expected 3 non-terminal payout statuses, got %v", payout)
	}
	for _, s := range payout {
		if IsTerminal(KindPayout, s) {
			t.Errorf("%s listed as non-terminal but is terminal", s)
		}
	}
}
