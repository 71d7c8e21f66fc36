package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/tzpesa/pesa-service/internal/models"
	"github.com/tzpesa/pesa-service/internal/utils"
)

// SignatureHeader carries the sender's HMAC over the raw request body
const SignatureHeader = "X-Clickpesa-Signature"

type callbackPayload struct {
	ID             string `json:"id"`
	OrderReference string `json:"orderReference"`
	Reference      string `json:"reference"`
	Status         string `json:"status"`
}

func (p *callbackPayload) reference() string {
	if p.OrderReference != "" {
		return p.OrderReference
	}
	return p.Reference
}

// PaymentCallback handles gateway payment status notifications
func (h *Handler) PaymentCallback(w http.ResponseWriter, r *http.Request) {
	h.handleCallback(w, r, models.KindPayment)
}

// PayoutCallback handles gateway payout status notifications
func (h *Handler) PayoutCallback(w http.ResponseWriter, r *http.Request) {
	h.handleCallback(w, r, models.KindPayout)
}

// handleCallback verifies the signature over the exact payload bytes before
// touching the store. Unverified notifications are discarded and logged.
// Business errors after acceptance still answer 200 so the gateway does not
// retry a callback we cannot process; integrity violations answer 409.
func (h *Handler) handleCallback(w http.ResponseWriter, r *http.Request, kind models.Kind) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unreadable body"})
		return
	}

	signature := r.Header.Get(SignatureHeader)
	if !utils.Verify(body, signature, h.checksumSecret) {
		h.log.Warnf("Discarding %s callback with invalid signature", kind)
		h.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid signature"})
		return
	}

	var payload callbackPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	reference := payload.reference()
	if reference == "" {
		h.log.Warnf("%s callback received without order reference", kind)
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing order reference"})
		return
	}

	h.log.Infof("Received %s callback for %s: %s", kind, reference, payload.Status)

	t, err := h.reconciler.Apply(r.Context(), kind, reference, models.Status(payload.Status))
	if err != nil {
		var inconsistent *models.InconsistentStateError
		if errors.As(err, &inconsistent) {
			h.writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
			return
		}
		h.log.Errorf("Failed to apply %s callback for %s: %v", kind, reference, err)
		h.writeJSON(w, http.StatusOK, map[string]string{
			"status":  "processed_with_error",
			"message": err.Error(),
		})
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{
		"status":          "received",
		"order_reference": t.LocalReference,
		"current_status":  string(t.Status),
	})
}
