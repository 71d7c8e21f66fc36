package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
)

// WebhookIPAllowlist rejects webhook calls from outside the configured
// sender IPs. An empty list allows all senders; this gate is independent of
// signature verification, which the handler still performs.
func WebhookIPAllowlist(allowed []string, log *logrus.Logger) func(http.Handler) http.Handler {
	allowedSet := make(map[string]bool, len(allowed))
	for _, ip := range allowed {
		allowedSet[ip] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(allowedSet) == 0 {
				next.ServeHTTP(w, r)
				return
			}

			ip := clientIP(r)
			if !allowedSet[ip] {
				log.Warnf("Webhook call from unlisted IP %s rejected", ip)
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
