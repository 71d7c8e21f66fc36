package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/tzpesa/pesa-service/internal/models"
	"github.com/tzpesa/pesa-service/internal/service"
)

type createPaymentRequest struct {
	Amount         decimal.Decimal `json:"amount"`
	PhoneNumber    string          `json:"phoneNumber"`
	OrderReference string          `json:"orderReference"`
	Currency       string          `json:"currency"`
	PreviewFirst   *bool           `json:"previewFirst,omitempty"`
}

// CreatePayment initiates a USSD-push collection
func (h *Handler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var req createPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, &models.ValidationError{Message: "invalid JSON body"})
		return
	}

	previewFirst := true
	if req.PreviewFirst != nil {
		previewFirst = *req.PreviewFirst
	}

	t, err := h.payments.CreatePayment(r.Context(), service.CreatePaymentInput{
		Amount:         req.Amount,
		PhoneNumber:    req.PhoneNumber,
		OrderReference: req.OrderReference,
		Currency:       req.Currency,
		PreviewFirst:   previewFirst,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, t)
}

// GetPayment reconciles and returns a payment by order reference
func (h *Handler) GetPayment(w http.ResponseWriter, r *http.Request) {
	reference := mux.Vars(r)["reference"]
	t, err := h.payments.CheckStatus(r.Context(), reference)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, t)
}
