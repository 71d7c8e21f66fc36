package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/tzpesa/pesa-service/internal/models"
	"github.com/tzpesa/pesa-service/internal/service"
)

type createPayoutRequest struct {
	Amount         decimal.Decimal `json:"amount"`
	PhoneNumber    string          `json:"phoneNumber"`
	OrderReference string          `json:"orderReference"`
	Currency       string          `json:"currency"`
	Channel        string          `json:"channel,omitempty"`
	PreviewFirst   *bool           `json:"previewFirst,omitempty"`
}

// CreatePayout initiates a mobile-money disbursement
func (h *Handler) CreatePayout(w http.ResponseWriter, r *http.Request) {
	var req createPayoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, &models.ValidationError{Message: "invalid JSON body"})
		return
	}

	previewFirst := true
	if req.PreviewFirst != nil {
		previewFirst = *req.PreviewFirst
	}

	t, err := h.payouts.CreatePayout(r.Context(), service.CreatePayoutInput{
		Amount:         req.Amount,
		PhoneNumber:    req.PhoneNumber,
		OrderReference: req.OrderReference,
		Currency:       req.Currency,
		Channel:        req.Channel,
		PreviewFirst:   previewFirst,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, t)
}

// GetPayout reconciles and returns a payout by order reference
func (h *Handler) GetPayout(w http.ResponseWriter, r *http.Request) {
	reference := mux.Vars(r)["reference"]
	t, err := h.payouts.CheckStatus(r.Context(), reference)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, t)
}
