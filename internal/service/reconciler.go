package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/tzpesa/pesa-service/internal/models"
	"github.com/tzpesa/pesa-service/internal/repository"
)

// Reconciler merges gateway-reported status into stored transaction records
// under the transition policy: non-terminal records may advance, terminal
// records accept only idempotent replays, and a terminal record reported
// with a different terminal status is rejected and left unchanged.
type Reconciler struct {
	gw       Gateway
	store    repository.TransactionStore
	notifier *Notifier
	log      *logrus.Logger
}

// NewReconciler initializes a status reconciler
func NewReconciler(gw Gateway, store repository.TransactionStore, notifier *Notifier, log *logrus.Logger) *Reconciler {
	return &Reconciler{gw: gw, store: store, notifier: notifier, log: log}
}

// Reconcile fetches the authoritative gateway status for a transaction and
// applies it to the stored record.
func (r *Reconciler) Reconcile(ctx context.Context, kind models.Kind, reference string) (*models.Transaction, error) {
	rec, err := r.store.GetTransaction(ctx, reference)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s %q: %w", kind, reference, err)
		}
		return nil, err
	}
	if rec.Kind != kind {
		return nil, fmt.Errorf("%s %q: %w", kind, reference, repository.ErrNotFound)
	}

	var reported models.Status
	var patch func(*models.Transaction)
	if kind == models.KindPayout {
		resp, err := r.gw.QueryPayout(ctx, reference)
		if err != nil {
			return nil, err
		}
		reported = models.Status(resp.Status)
		patch = func(t *models.Transaction) {
			if resp.ID != "" {
				t.GatewayID = resp.ID
			}
			if resp.ChannelProvider != "" {
				t.ChannelProvider = resp.ChannelProvider
			}
			if resp.Fee.IsPositive() {
				t.Fee = decimal.NewNullDecimal(resp.Fee)
			}
			if resp.Beneficiary != nil {
				t.BeneficiaryAmount = decimal.NewNullDecimal(resp.Beneficiary.Amount)
			}
			if resp.Notes != "" {
				t.Message = resp.Notes
			}
		}
	} else {
		resp, err := r.gw.QueryPayment(ctx, reference)
		if err != nil {
			return nil, err
		}
		reported = models.Status(resp.Status)
		patch = func(t *models.Transaction) {
			if resp.ID != "" {
				t.GatewayID = resp.ID
			}
			if resp.ChannelProvider != "" {
				t.ChannelProvider = resp.ChannelProvider
			}
			if resp.CollectedAmount.IsPositive() {
				t.Amount = resp.CollectedAmount
			}
			if resp.Message != "" {
				t.Message = resp.Message
			}
		}
	}

	return r.apply(ctx, rec, reported, patch)
}

// Apply merges an externally reported status (a verified webhook) into the
// stored record without a gateway round-trip.
func (r *Reconciler) Apply(ctx context.Context, kind models.Kind, reference string, reported models.Status) (*models.Transaction, error) {
	rec, err := r.store.GetTransaction(ctx, reference)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s %q: %w", kind, reference, err)
		}
		return nil, err
	}
	if rec.Kind != kind {
		return nil, fmt.Errorf("%s %q: %w", kind, reference, repository.ErrNotFound)
	}
	return r.apply(ctx, rec, reported, nil)
}

// ReconcilePending re-checks every non-terminal transaction of both kinds.
// Individual failures are logged and do not stop the sweep.
func (r *Reconciler) ReconcilePending(ctx context.Context) (int, error) {
	var processed int
	for _, kind := range []models.Kind{models.KindPayment, models.KindPayout} {
		pending, err := r.store.ListPendingTransactions(ctx, kind)
		if err != nil {
			return processed, fmt.Errorf("failed to list pending %s records: %w", kind, err)
		}
		r.log.Infof("Reconciling %d pending %s transactions", len(pending), kind)
		for i := range pending {
			if _, err := r.Reconcile(ctx, kind, pending[i].LocalReference); err != nil {
				r.log.Errorf("Failed to reconcile %s %s: %v", kind, pending[i].LocalReference, err)
				continue
			}
			processed++
		}
	}
	return processed, nil
}

func (r *Reconciler) apply(ctx context.Context, rec *models.Transaction, reported models.Status, patch func(*models.Transaction)) (*models.Transaction, error) {
	if err := models.CheckTransition(rec.Kind, rec.Status, reported); err != nil {
		var ise *models.InconsistentStateError
		if errors.As(err, &ise) {
			ise.Reference = rec.LocalReference
		}
		// Recorded for operator inspection; the stored record stays intact
		r.log.WithFields(logrus.Fields{
			"kind":      rec.Kind,
			"reference": rec.LocalReference,
			"stored":    rec.Status,
			"reported":  reported,
		}).Error("Rejected illegal status transition")
		return rec, err
	}

	if reported == rec.Status {
		// No-op: nothing written, no notification, updatedAt untouched
		return rec, nil
	}

	old := rec.Status
	updated := *rec
	updated.Status = reported
	if patch != nil {
		patch(&updated)
	}
	if updated.Successful() && updated.CompletedAt == nil {
		now := time.Now()
		updated.CompletedAt = &now
	}

	if err := r.store.UpdateTransactionStatus(ctx, &updated, old); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			// Another reconciler won the conditional write; their result stands
			current, getErr := r.store.GetTransaction(ctx, rec.LocalReference)
			if getErr == nil {
				return current, nil
			}
		}
		return nil, err
	}

	r.log.Infof("%s %s status updated: %s -> %s", rec.Kind, rec.LocalReference, old, reported)
	r.notifier.Emit(Event{
		Kind:           rec.Kind,
		LocalReference: rec.LocalReference,
		OldStatus:      old,
		NewStatus:      reported,
		Record:         updated,
	})
	return &updated, nil
}
