package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tzpesa/pesa-service/internal/models"
)

func testTransaction(ref string, kind models.Kind, status models.Status) *models.Transaction {
	return &models.Transaction{
		LocalReference:    ref,
		Kind:              kind,
		Status:            status,
		Amount:            decimal.NewFromInt(10000),
		Currency:          models.CurrencyTZS,
		CounterpartyPhone: "255712345678",
	}
}

func TestMemoryCreateRejectsDuplicate(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	if err := m.CreateTransaction(ctx, testTransaction("BOOKING-1", models.KindPayment, models.StatusProcessing)); err != nil {
		t.Fatalf("first create: %v", err)
	}
	err := m.CreateTransaction(ctx, testTransaction("BOOKING-1", models.KindPayment, models.StatusPending))
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	stored, err := m.GetTransaction(ctx, "BOOKING-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Status != models.StatusProcessing {
		t.Errorf("first writer must win, got %s", stored.Status)
	}
}

func TestMemoryGetUnknownReference(t *testing.T) {
	m := NewMemory()
	if _, err := m.GetTransaction(context.Background(), "MISSING"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryConditionalUpdate(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	if err := m.CreateTransaction(ctx, testTransaction("BOOKING-1", models.KindPayment, models.StatusProcessing)); err != nil {
		t.Fatalf("create: %v", err)
	}

	updated := testTransaction("BOOKING-1", models.KindPayment, models.StatusSuccess)
	if err := m.UpdateTransactionStatus(ctx, updated, models.StatusProcessing); err != nil {
		t.Fatalf("conditional update with matching status: %v", err)
	}

	// The expected status no longer matches
	stale := testTransaction("BOOKING-1", models.KindPayment, models.StatusFailed)
	err := m.UpdateTransactionStatus(ctx, stale, models.StatusProcessing)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for stale update, got %v", err)
	}

	stored, _ := m.GetTransaction(ctx, "BOOKING-1")
	if stored.Status != models.StatusSuccess {
		t.Errorf("stale update must not apply, got %s", stored.Status)
	}
}

func TestMemoryUpdateUnknownReference(t *testing.T) {
	m := NewMemory()
	err := m.UpdateTransactionStatus(context.Background(),
		testTransaction("MISSING", models.KindPayment, models.StatusSuccess), models.StatusProcessing)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestMemoryListPendingTransactions(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	seed := []*models.Transaction{
		testTransaction("BOOKING-1", models.KindPayment, models.StatusProcessing),
		testTransaction("BOOKING-2", models.KindPayment, models.StatusSuccess),
		testTransaction("PAYOUT-1", models.KindPayout, models.StatusPending),
		testTransaction("PAYOUT-2", models.KindPayout, models.StatusReversed),
	}
	for _, tx := range seed {
		if err := m.CreateTransaction(ctx, tx); err != nil {
			t.Fatalf("seed %s: %v", tx.LocalReference, err)
		}
	}

	payments, err := m.ListPendingTransactions(ctx, models.KindPayment)
	if err != nil {
		t.Fatalf("list payments: %v", err)
	}
	if len(payments) != 1 || payments[0].LocalReference != "BOOKING-1" {
		t.Errorf("unexpected pending payments: %+v", payments)
	}

	payouts, err := m.ListPendingTransactions(ctx, models.KindPayout)
	if err != nil {
		t.Fatalf("list payouts: %v", err)
	}
	if len(payouts) != 1 || payouts[0].LocalReference != "PAYOUT-1" {
		t.Errorf("unexpected pending payouts: %+v", payouts)
	}
}

func TestMemoryCredentialLifecycle(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	if _, err := m.ActiveCredential(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on empty store, got %v", err)
	}

	first := &models.Credential{Token: "Bearer one", IssuedAt: time.Now(), ExpiresAt: time.Now().Add(time.Hour)}
	if err := m.SaveCredential(ctx, first); err != nil {
		t.Fatalf("save first: %v", err)
	}
	second := &models.Credential{Token: "Bearer two", IssuedAt: time.Now(), ExpiresAt: time.Now().Add(time.Hour)}
	if err := m.SaveCredential(ctx, second); err != nil {
		t.Fatalf("save second: %v", err)
	}

	active, err := m.ActiveCredential(ctx)
	if err != nil {
		t.Fatalf("active: %v", err)
	}
	if active.Token != "Bearer two" {
		t.Errorf("latest credential must be active, got %q", active.Token)
	}

	if err := m.InvalidateCredentials(ctx); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, err := m.ActiveCredential(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected no active credential after invalidation, got %v", err)
	}
}

func TestMemoryExpiredCredentialNotActive(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	expired := &models.Credential{Token: "Bearer old", IssuedAt: time.Now().Add(-2 * time.Hour), ExpiresAt: time.Now().Add(-time.Hour)}
	if err := m.SaveCredential(ctx, expired); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := m.ActiveCredential(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected expired credential to be skipped, got %v", err)
	}
}
