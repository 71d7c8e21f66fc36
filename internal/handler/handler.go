package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"
	"github.com/tzpesa/pesa-service/internal/integrations/clickpesa"
	"github.com/tzpesa/pesa-service/internal/models"
	"github.com/tzpesa/pesa-service/internal/repository"
	"github.com/tzpesa/pesa-service/internal/service"
)

// BalanceGetter is the slice of the gateway client the balance endpoint needs
type BalanceGetter interface {
	GetBalance(ctx context.Context) (*clickpesa.BalanceResponse, error)
}

// Handler exposes the payment API and the webhook endpoints
type Handler struct {
	payments       *service.PaymentService
	payouts        *service.PayoutService
	reconciler     *service.Reconciler
	balance        BalanceGetter
	checksumSecret string
	log            *logrus.Logger
}

// NewHandler initializes the HTTP handler set
func NewHandler(payments *service.PaymentService, payouts *service.PayoutService, reconciler *service.Reconciler, balance BalanceGetter, checksumSecret string, log *logrus.Logger) *Handler {
	return &Handler{
		payments:       payments,
		payouts:        payouts,
		reconciler:     reconciler,
		balance:        balance,
		checksumSecret: checksumSecret,
		log:            log,
	}
}

// GetBalance returns the merchant account balance
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	resp, err := h.balance.GetBalance(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Errorf("Failed to encode response: %v", err)
	}
}

// writeError maps the error taxonomy to HTTP status codes
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var (
		validation   *models.ValidationError
		duplicate    *models.DuplicateReferenceError
		auth         *models.AuthenticationError
		unavailable  *models.GatewayUnavailableError
		insufficient *models.InsufficientBalanceError
		noMethod     *models.PaymentMethodUnavailableError
		inconsistent *models.InconsistentStateError
	)

	status := http.StatusInternalServerError
	body := map[string]any{"error": err.Error()}

	switch {
	case errors.As(err, &validation):
		status = http.StatusUnprocessableEntity
		if len(validation.Fields) > 0 {
			body["fields"] = validation.Fields
		}
	case errors.As(err, &duplicate):
		status = http.StatusConflict
	case errors.As(err, &insufficient):
		status = http.StatusUnprocessableEntity
	case errors.As(err, &noMethod):
		status = http.StatusUnprocessableEntity
	case errors.As(err, &auth):
		status = http.StatusBadGateway
	case errors.As(err, &unavailable):
		status = http.StatusServiceUnavailable
	case errors.As(err, &inconsistent):
		status = http.StatusConflict
	case errors.Is(err, repository.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, clickpesa.ErrNoRecords):
		status = http.StatusNotFound
	}

	h.writeJSON(w, status, body)
}
