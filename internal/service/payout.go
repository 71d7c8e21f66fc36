package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/tzpesa/pesa-service/internal/integrations/clickpesa"
	"github.com/tzpesa/pesa-service/internal/models"
	"github.com/tzpesa/pesa-service/internal/repository"
	"github.com/tzpesa/pesa-service/internal/utils"
)

// CreatePayoutInput describes an operator-initiated disbursement
type CreatePayoutInput struct {
	Amount         decimal.Decimal
	PhoneNumber    string
	OrderReference string
	Currency       string
	Channel        string
	PreviewFirst   bool
}

// PayoutService orchestrates the preview, create, persist workflow for
// disbursements and guarantees idempotency on the order reference.
type PayoutService struct {
	gw         Gateway
	store      repository.TransactionStore
	reconciler *Reconciler
	notifier   *Notifier
	log        *logrus.Logger
}

// NewPayoutService initializes a payout orchestrator
func NewPayoutService(gw Gateway, store repository.TransactionStore, reconciler *Reconciler, notifier *Notifier, log *logrus.Logger) *PayoutService {
	return &PayoutService{gw: gw, store: store, reconciler: reconciler, notifier: notifier, log: log}
}

// CreatePayout validates the request, suppresses duplicates, optionally
// previews fees and balance coverage, creates the payout at the gateway,
// and persists exactly one record for the reference.
func (s *PayoutService) CreatePayout(ctx context.Context, in CreatePayoutInput) (*models.Transaction, error) {
	currency, err := utils.ValidateCurrency(in.Currency)
	if err != nil {
		return nil, err
	}
	if err := utils.ValidateAmount(in.Amount, currency); err != nil {
		return nil, err
	}
	phone, err := utils.NormalizePhone(in.PhoneNumber)
	if err != nil {
		return nil, err
	}
	reference, err := utils.ValidateReference(in.OrderReference)
	if err != nil {
		return nil, err
	}

	if existing, err := s.store.GetTransaction(ctx, reference); err == nil {
		if existing.Kind != models.KindPayout {
			return nil, &models.DuplicateReferenceError{Reference: reference}
		}
		s.log.Infof("Payout %s already exists, returning stored record", reference)
		return existing, nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to check existing payout: %w", err)
	}

	req := clickpesa.PayoutRequest{
		Amount:         in.Amount,
		PhoneNumber:    phone,
		Currency:       string(currency),
		OrderReference: reference,
		Channel:        in.Channel,
	}

	if in.PreviewFirst {
		preview, err := s.gw.PreviewPayout(ctx, req)
		if err != nil {
			return nil, err
		}
		total := in.Amount.Add(preview.Fee)
		if preview.Balance.LessThan(total) {
			return nil, &models.InsufficientBalanceError{
				Required:  total.String(),
				Available: preview.Balance.String(),
			}
		}
		s.log.Infof("Payout preview for %s: amount=%s fee=%s balance=%s",
			reference, in.Amount, preview.Fee, preview.Balance)
	}

	resp, err := s.gw.CreatePayout(ctx, req)
	if err != nil {
		resp, err = s.recoverPayoutCreate(ctx, reference, err)
		if err != nil {
			return nil, err
		}
	}

	t := s.recordFromResponse(in, currency, phone, reference, resp)
	if err := s.store.CreateTransaction(ctx, t); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return s.store.GetTransaction(ctx, reference)
		}
		return nil, fmt.Errorf("payout created but record not saved: %w", err)
	}

	s.log.Infof("Payout created: %s (gateway id %s, status %s)", reference, t.GatewayID, t.Status)
	s.notifier.Emit(Event{
		Kind:           models.KindPayout,
		LocalReference: reference,
		NewStatus:      t.Status,
		Created:        true,
		Record:         *t,
	})
	return t, nil
}

// CheckStatus reconciles the stored payout against the gateway
func (s *PayoutService) CheckStatus(ctx context.Context, orderReference string) (*models.Transaction, error) {
	reference, err := utils.ValidateReference(orderReference)
	if err != nil {
		return nil, err
	}
	return s.reconciler.Reconcile(ctx, models.KindPayout, reference)
}

func (s *PayoutService) recoverPayoutCreate(ctx context.Context, reference string, createErr error) (*clickpesa.PayoutResponse, error) {
	var dup *models.DuplicateReferenceError
	var unavail *models.GatewayUnavailableError
	switch {
	case errors.As(createErr, &dup):
		s.log.Warnf("Gateway reports duplicate reference %s, querying status", reference)
	case errors.As(createErr, &unavail), errors.Is(createErr, context.DeadlineExceeded):
		s.log.Warnf("Payout creation for %s did not complete (%v), querying status before failing", reference, createErr)
	default:
		return nil, createErr
	}

	resp, queryErr := s.gw.QueryPayout(ctx, reference)
	if queryErr != nil {
		return nil, createErr
	}
	return resp, nil
}

func (s *PayoutService) recordFromResponse(in CreatePayoutInput, currency models.Currency, phone, reference string, resp *clickpesa.PayoutResponse) *models.Transaction {
	status := models.Status(resp.Status)
	if !models.ValidStatus(models.KindPayout, status) {
		status = models.StatusProcessing
	}
	amount := in.Amount
	if resp.Amount.IsPositive() {
		amount = resp.Amount
	}

	now := time.Now()
	t := &models.Transaction{
		LocalReference:    reference,
		GatewayID:         resp.ID,
		Kind:              models.KindPayout,
		Status:            status,
		Amount:            amount,
		Currency:          currency,
		CounterpartyPhone: phone,
		Channel:           resp.Channel,
		ChannelProvider:   resp.ChannelProvider,
		Fee:               decimal.NewNullDecimal(resp.Fee),
		Exchanged:         resp.Exchanged,
		Message:           resp.Notes,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if resp.Beneficiary != nil {
		t.BeneficiaryAmount = decimal.NewNullDecimal(resp.Beneficiary.Amount)
	}
	if resp.Exchanged && resp.Exchange != nil {
		t.ExchangeRate = decimal.NewNullDecimal(resp.Exchange.Rate)
	}
	return t
}
