package clickpesa

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"github.com/tzpesa/pesa-service/internal/config"
	"github.com/tzpesa/pesa-service/internal/models"
	"golang.org/x/sync/singleflight"
)

const (
	// tokenValidity is assumed when the gateway token carries no exp claim
	tokenValidity = time.Hour
	// refreshBuffer keeps a token from being used close to expiry
	refreshBuffer = 5 * time.Minute
	// acquireTimeout bounds a single token acquisition call
	acquireTimeout = 30 * time.Second
)

// CredentialStore is the persistence the token source needs
type CredentialStore interface {
	ActiveCredential(ctx context.Context) (*models.Credential, error)
	SaveCredential(ctx context.Context, c *models.Credential) error
	InvalidateCredentials(ctx context.Context) error
}

// TokenSource acquires, caches and invalidates gateway bearer credentials.
// Concurrent callers that observe no valid credential coordinate through a
// single-flight group so only one acquisition hits the network.
type TokenSource struct {
	baseURL  string
	clientID string
	apiKey   string
	store    CredentialStore
	client   *http.Client
	log      *logrus.Logger
	group    singleflight.Group
}

// NewTokenSource initializes a token source backed by the given store
func NewTokenSource(cfg *config.Config, store CredentialStore, log *logrus.Logger) *TokenSource {
	return &TokenSource{
		baseURL:  strings.TrimRight(cfg.ClickPesaBaseURL, "/"),
		clientID: cfg.ClickPesaClientID,
		apiKey:   cfg.ClickPesaAPIKey,
		store:    store,
		client:   &http.Client{Timeout: cfg.GatewayTimeout},
		log:      log,
	}
}

// Token returns a valid bearer token (with Bearer prefix), acquiring a new
// one when the cached credential is absent, expired, or close to expiry.
func (s *TokenSource) Token(ctx context.Context) (string, error) {
	if cred, err := s.store.ActiveCredential(ctx); err == nil && cred.Valid(time.Now(), refreshBuffer) {
		return cred.Token, nil
	}

	ch := s.group.DoChan("token", func() (interface{}, error) {
		acquireCtx, cancel := context.WithTimeout(context.Background(), acquireTimeout)
		defer cancel()
		return s.acquire(acquireCtx)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Invalidate deactivates all cached credentials. Used after the gateway
// rejects a token that should still have been valid.
func (s *TokenSource) Invalidate(ctx context.Context) error {
	s.log.Info("Invalidating cached gateway credentials")
	return s.store.InvalidateCredentials(ctx)
}

func (s *TokenSource) acquire(ctx context.Context) (string, error) {
	// Another waiter may have finished acquisition while we queued
	if cred, err := s.store.ActiveCredential(ctx); err == nil && cred.Valid(time.Now(), refreshBuffer) {
		return cred.Token, nil
	}

	s.log.Info("Generating new gateway authentication token")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.baseURL+endpointGenerateToken, bytes.NewReader(nil))
	if err != nil {
		return "", &models.AuthenticationError{Message: err.Error()}
	}
	req.Header.Set("client-id", s.clientID)
	req.Header.Set("api-key", s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", &models.AuthenticationError{Message: fmt.Sprintf("token request failed: %v", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &models.AuthenticationError{Message: fmt.Sprintf("failed to read token response: %v", err)}
	}
	if resp.StatusCode != http.StatusOK {
		return "", &models.AuthenticationError{
			Message:    "token generation rejected, check client id and API key",
			StatusCode: resp.StatusCode,
		}
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return "", &models.AuthenticationError{Message: fmt.Sprintf("malformed token response: %v", err)}
	}
	if !tr.Success || tr.Token == "" {
		return "", &models.AuthenticationError{Message: "token generation failed: no token in response"}
	}

	token := tr.Token
	if !strings.HasPrefix(token, "Bearer ") {
		token = "Bearer " + token
	}

	now := time.Now()
	cred := &models.Credential{
		Token:     token,
		IssuedAt:  now,
		ExpiresAt: tokenExpiry(token, now),
		Active:    true,
	}
	if err := s.store.SaveCredential(ctx, cred); err != nil {
		return "", &models.AuthenticationError{Message: fmt.Sprintf("failed to cache token: %v", err)}
	}

	s.log.Info("Generated and cached new gateway token")
	return token, nil
}

// tokenExpiry reads the exp claim from the gateway-issued JWT. The claim is
// informational here, so the token is decoded without signature checks;
// tokens that do not decode fall back to the documented validity window.
func tokenExpiry(bearer string, now time.Time) time.Time {
	raw := strings.TrimPrefix(bearer, "Bearer ")
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(raw, claims); err == nil {
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			return exp.Time
		}
	}
	return now.Add(tokenValidity)
}
