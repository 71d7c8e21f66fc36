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

// CreatePaymentInput describes a customer-facing collection request
type CreatePaymentInput struct {
	Amount         decimal.Decimal
	PhoneNumber    string
	OrderReference string
	Currency       string
	PreviewFirst   bool
}

// PaymentService orchestrates the preview, initiate, persist workflow for
// collections and guarantees idempotency on the order reference.
type PaymentService struct {
	gw         Gateway
	store      repository.TransactionStore
	reconciler *Reconciler
	notifier   *Notifier
	log        *logrus.Logger
}

// NewPaymentService initializes a payment orchestrator
func NewPaymentService(gw Gateway, store repository.TransactionStore, reconciler *Reconciler, notifier *Notifier, log *logrus.Logger) *PaymentService {
	return &PaymentService{gw: gw, store: store, reconciler: reconciler, notifier: notifier, log: log}
}

// CreatePayment validates the request, suppresses duplicates, optionally
// previews available methods, initiates the USSD push, and persists exactly
// one record for the reference.
func (s *PaymentService) CreatePayment(ctx context.Context, in CreatePaymentInput) (*models.Transaction, error) {
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

	// Idempotency: a repeated request for a known reference returns the
	// stored record and never re-hits the gateway.
	if existing, err := s.store.GetTransaction(ctx, reference); err == nil {
		if existing.Kind != models.KindPayment {
			return nil, &models.DuplicateReferenceError{Reference: reference}
		}
		s.log.Infof("Payment %s already exists, returning stored record", reference)
		return existing, nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to check existing payment: %w", err)
	}

	req := clickpesa.PaymentRequest{
		Amount:         in.Amount,
		Currency:       string(currency),
		OrderReference: reference,
		PhoneNumber:    phone,
	}

	if in.PreviewFirst {
		req.FetchSenderDetails = true
		preview, err := s.gw.PreviewPayment(ctx, req)
		if err != nil {
			return nil, err
		}
		req.FetchSenderDetails = false
		if !anyMethodAvailable(preview.ActiveMethods) {
			return nil, &models.PaymentMethodUnavailableError{Reference: reference}
		}
	}

	resp, err := s.gw.InitiatePayment(ctx, req)
	if err != nil {
		resp, err = s.recoverPaymentCreate(ctx, reference, err)
		if err != nil {
			return nil, err
		}
	}

	t := s.recordFromResponse(in, currency, phone, reference, resp)
	if err := s.store.CreateTransaction(ctx, t); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			// Lost the compare-and-create race: the winner's record stands
			return s.store.GetTransaction(ctx, reference)
		}
		return nil, fmt.Errorf("payment initiated but record not saved: %w", err)
	}

	s.log.Infof("Payment created: %s (gateway id %s, status %s)", reference, t.GatewayID, t.Status)
	s.notifier.Emit(Event{
		Kind:           models.KindPayment,
		LocalReference: reference,
		NewStatus:      t.Status,
		Created:        true,
		Record:         *t,
	})
	return t, nil
}

// CheckStatus reconciles the stored payment against the gateway
func (s *PaymentService) CheckStatus(ctx context.Context, orderReference string) (*models.Transaction, error) {
	reference, err := utils.ValidateReference(orderReference)
	if err != nil {
		return nil, err
	}
	return s.reconciler.Reconcile(ctx, models.KindPayment, reference)
}

// recoverPaymentCreate handles the two creation outcomes that are not real
// failures: the gateway already holds the reference (race with another
// process), and a timed-out call the gateway may still have accepted. Both
// resolve by querying status instead of concluding failure.
func (s *PaymentService) recoverPaymentCreate(ctx context.Context, reference string, createErr error) (*clickpesa.PaymentResponse, error) {
	var dup *models.DuplicateReferenceError
	var unavail *models.GatewayUnavailableError
	switch {
	case errors.As(createErr, &dup):
		s.log.Warnf("Gateway reports duplicate reference %s, querying status", reference)
	case errors.As(createErr, &unavail), errors.Is(createErr, context.DeadlineExceeded):
		s.log.Warnf("Payment creation for %s did not complete (%v), querying status before failing", reference, createErr)
	default:
		return nil, createErr
	}

	resp, queryErr := s.gw.QueryPayment(ctx, reference)
	if queryErr != nil {
		return nil, createErr
	}
	return resp, nil
}

func (s *PaymentService) recordFromResponse(in CreatePaymentInput, currency models.Currency, phone, reference string, resp *clickpesa.PaymentResponse) *models.Transaction {
	status := models.Status(resp.Status)
	if !models.ValidStatus(models.KindPayment, status) {
		status = models.StatusProcessing
	}
	amount := in.Amount
	if resp.CollectedAmount.IsPositive() {
		amount = resp.CollectedAmount
	}
	now := time.Now()
	return &models.Transaction{
		LocalReference:    reference,
		GatewayID:         resp.ID,
		Kind:              models.KindPayment,
		Status:            status,
		Amount:            amount,
		Currency:          currency,
		CounterpartyPhone: phone,
		Channel:           resp.Channel,
		ChannelProvider:   resp.ChannelProvider,
		Message:           resp.Message,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

func anyMethodAvailable(methods []clickpesa.PaymentMethod) bool {
	for _, m := range methods {
		if m.Status == clickpesa.MethodAvailable {
			return true
		}
	}
	return false
}
