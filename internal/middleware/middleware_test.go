package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"github.com/tzpesa/pesa-service/internal/config"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func signToken(t *testing.T, secret, subject string, ttl time.Duration) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": subject,
		"exp": time.Now().Add(ttl).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func TestAuthMiddleware(t *testing.T) {
	cfg := &config.Config{JWTSecret: "api-secret"}
	handler := AuthMiddleware(cfg)(okHandler())

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"valid token", "Bearer " + signToken(t, "api-secret", "svc-booking", time.Hour), http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"wrong secret", "Bearer " + signToken(t, "other-secret", "svc-booking", time.Hour), http.StatusUnauthorized},
		{"expired token", "Bearer " + signToken(t, "api-secret", "svc-booking", -time.Hour), http.StatusUnauthorized},
		{"garbage token", "Bearer not.a.jwt", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/payments/BOOKING-1", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("got %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestAuthMiddlewareExposesCaller(t *testing.T) {
	cfg := &config.Config{JWTSecret: "api-secret"}
	var caller string
	handler := AuthMiddleware(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller, _ = r.Context().Value(CallerKey).(string)
	}))

	req := httptest.NewRequest(http.MethodGet, "/balance", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "api-secret", "svc-booking", time.Hour))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if caller != "svc-booking" {
		t.Errorf("expected caller subject, got %q", caller)
	}
}

func TestWebhookIPAllowlist(t *testing.T) {
	handler := WebhookIPAllowlist([]string{"203.0.113.10"}, testLogger())(okHandler())

	tests := []struct {
		name       string
		remoteAddr string
		forwarded  string
		want       int
	}{
		{"listed remote addr", "203.0.113.10:4431", "", http.StatusOK},
		{"unlisted remote addr", "198.51.100.7:4431", "", http.StatusForbidden},
		{"listed via forwarded header", "10.0.0.1:80", "203.0.113.10, 10.0.0.1", http.StatusOK},
		{"unlisted via forwarded header", "10.0.0.1:80", "198.51.100.7", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/webhooks/clickpesa/payment", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("got %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestWebhookIPAllowlistEmptyAllowsAll(t *testing.T) {
	handler := WebhookIPAllowlist(nil, testLogger())(okHandler())
	req := httptest.NewRequest(http.MethodPost, "/webhooks/clickpesa/payment", nil)
	req.RemoteAddr = "198.51.100.7:4431"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("empty allowlist must allow all senders, got %d", rec.Code)
	}
}
