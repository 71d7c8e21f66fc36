package clickpesa

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tzpesa/pesa-service/internal/config"
	"github.com/tzpesa/pesa-service/internal/models"
	"github.com/tzpesa/pesa-service/internal/utils"
)

// ErrNoRecords means the gateway has no transaction for the queried reference
var ErrNoRecords = errors.New("no gateway records found for reference")

const defaultBackoff = 500 * time.Millisecond

// Client handles integration with the ClickPesa third-party API. It is a
// stateless transport wrapper: it signs requests, maps responses to typed
// values and errors, and retries only idempotent read operations.
type Client struct {
	baseURL     string
	client      *http.Client
	tokens      *TokenSource
	secret      string
	log         *logrus.Logger
	maxAttempts int
	backoff     time.Duration
}

// NewClient initializes a new gateway client
func NewClient(cfg *config.Config, tokens *TokenSource, log *logrus.Logger) *Client {
	return &Client{
		baseURL:     strings.TrimRight(cfg.ClickPesaBaseURL, "/"),
		client:      &http.Client{Timeout: cfg.GatewayTimeout},
		tokens:      tokens,
		secret:      cfg.ChecksumSecret,
		log:         log,
		maxAttempts: 3,
		backoff:     defaultBackoff,
	}
}

// PreviewPayment validates a prospective collection and returns the
// available payment methods with their fees.
func (c *Client) PreviewPayment(ctx context.Context, r PaymentRequest) (*PreviewPaymentResponse, error) {
	payload := map[string]any{
		"amount":             r.Amount.String(),
		"currency":           r.Currency,
		"orderReference":     r.OrderReference,
		"phoneNumber":        r.PhoneNumber,
		"fetchSenderDetails": r.FetchSenderDetails,
	}
	var out PreviewPaymentResponse
	if err := c.do(ctx, http.MethodPost, endpointPreviewUSSD, payload, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

// InitiatePayment sends a USSD-push collection request to the customer's
// handset. Never retried by this layer: duplicate suppression belongs to
// the orchestrator.
func (c *Client) InitiatePayment(ctx context.Context, r PaymentRequest) (*PaymentResponse, error) {
	payload := map[string]any{
		"amount":         r.Amount.String(),
		"currency":       r.Currency,
		"orderReference": r.OrderReference,
		"phoneNumber":    r.PhoneNumber,
	}
	var out PaymentResponse
	if err := c.do(ctx, http.MethodPost, endpointInitiateUSSD, payload, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

// QueryPayment fetches the current gateway status of a collection
func (c *Client) QueryPayment(ctx context.Context, orderReference string) (*PaymentResponse, error) {
	var out PaymentResponse
	path := endpointQueryPayment + url.PathEscape(orderReference)
	if err := c.do(ctx, http.MethodGet, path, nil, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

// PreviewPayout reports fees, balance coverage and exchange details for a
// prospective disbursement.
func (c *Client) PreviewPayout(ctx context.Context, r PayoutRequest) (*PreviewPayoutResponse, error) {
	var out PreviewPayoutResponse
	if err := c.do(ctx, http.MethodPost, endpointPreviewPayout, c.payoutPayload(r), &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreatePayout initiates a disbursement to the beneficiary's mobile wallet.
// Never retried by this layer.
func (c *Client) CreatePayout(ctx context.Context, r PayoutRequest) (*PayoutResponse, error) {
	var out PayoutResponse
	if err := c.do(ctx, http.MethodPost, endpointCreatePayout, c.payoutPayload(r), &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

// QueryPayout fetches the current gateway status of a disbursement
func (c *Client) QueryPayout(ctx context.Context, orderReference string) (*PayoutResponse, error) {
	var out PayoutResponse
	path := endpointQueryPayout + url.PathEscape(orderReference)
	if err := c.do(ctx, http.MethodGet, path, nil, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetBalance retrieves the merchant account balance
func (c *Client) GetBalance(ctx context.Context) (*BalanceResponse, error) {
	var out BalanceResponse
	if err := c.do(ctx, http.MethodGet, endpointBalance, nil, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

// payout endpoints take numeric amounts, payment endpoints take strings
func (c *Client) payoutPayload(r PayoutRequest) map[string]any {
	payload := map[string]any{
		"amount":         r.Amount.InexactFloat64(),
		"phoneNumber":    r.PhoneNumber,
		"currency":       r.Currency,
		"orderReference": r.OrderReference,
	}
	if r.Channel != "" {
		payload["channel"] = r.Channel
	}
	return payload
}

// do issues one gateway call. A 401 triggers one credential invalidation
// plus a retry with a fresh token; 5xx and transport failures are retried
// with exponential backoff only when idempotent is set.
func (c *Client) do(ctx context.Context, method, path string, payload map[string]any, out any, idempotent bool) error {
	var body []byte
	if payload != nil {
		if c.secret != "" {
			sum, err := utils.PayloadChecksum(payload, c.secret)
			if err != nil {
				return fmt.Errorf("failed to compute request checksum: %w", err)
			}
			payload["checksum"] = sum
		}
		var err error
		if body, err = json.Marshal(payload); err != nil {
			return fmt.Errorf("failed to encode request payload: %w", err)
		}
	}

	attempts := 1
	if idempotent {
		attempts = c.maxAttempts
	}

	fullURL := c.baseURL + path
	c.log.Infof("ClickPesa API request: %s %s", method, fullURL)

	refreshed := false
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			if err := sleepCtx(ctx, c.backoff<<(attempt-1)); err != nil {
				return lastErr
			}
			c.log.Warnf("Retrying %s %s (attempt %d/%d)", method, fullURL, attempt+1, attempts)
		}

		token, err := c.tokens.Token(ctx)
		if err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, method, fullURL, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Authorization", token)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = &models.GatewayUnavailableError{Message: "request failed", Err: err}
			if ctx.Err() != nil {
				return lastErr
			}
			continue
		}

		data, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = &models.GatewayUnavailableError{Message: "failed to read response", Err: readErr}
			continue
		}
		c.log.Debugf("ClickPesa API response: %d", resp.StatusCode)

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			if out == nil {
				return nil
			}
			return unmarshalBody(data, out)

		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			if !refreshed {
				refreshed = true
				if err := c.tokens.Invalidate(ctx); err != nil {
					c.log.Errorf("Failed to invalidate credentials: %v", err)
				}
				attempt--
				continue
			}
			return &models.AuthenticationError{
				Message:    "gateway rejected credentials after refresh",
				StatusCode: resp.StatusCode,
			}

		case resp.StatusCode == http.StatusConflict:
			return &models.DuplicateReferenceError{Reference: referenceFrom(payload)}

		case resp.StatusCode >= 500:
			lastErr = &models.GatewayUnavailableError{
				Message:    "gateway error",
				StatusCode: resp.StatusCode,
			}
			continue

		default:
			return mapClientError(resp.StatusCode, data, payload)
		}
	}
	return lastErr
}

// mapClientError turns a 4xx body into the right typed error
func mapClientError(status int, data []byte, payload map[string]any) error {
	var er errorResponse
	_ = json.Unmarshal(data, &er)
	if er.Message == "" {
		er.Message = fmt.Sprintf("gateway request failed with status %d", status)
	}

	msg := strings.ToLower(er.Message)
	switch {
	case strings.Contains(msg, "already exist") || strings.Contains(msg, "duplicate"):
		return &models.DuplicateReferenceError{Reference: referenceFrom(payload)}
	case strings.Contains(msg, "insufficient"):
		return &models.InsufficientBalanceError{}
	default:
		return &models.ValidationError{Message: er.Message, Fields: er.Errors}
	}
}

// unmarshalBody decodes a response that may arrive as an object or as a
// single-element list (the query endpoints do both).
func unmarshalBody(data []byte, out any) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return &models.GatewayUnavailableError{Message: "malformed response body", Err: err}
		}
		if len(items) == 0 {
			return ErrNoRecords
		}
		trimmed = items[0]
	}
	if err := json.Unmarshal(trimmed, out); err != nil {
		return &models.GatewayUnavailableError{Message: "malformed response body", Err: err}
	}
	return nil
}

func referenceFrom(payload map[string]any) string {
	if payload == nil {
		return ""
	}
	ref, _ := payload["orderReference"].(string)
	return ref
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
