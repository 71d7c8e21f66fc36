package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port     string
	DBConn   string
	LogLevel string

	// Auth for this service's own API
	JWTSecret string

	// Gateway credentials and tuning
	ClickPesaBaseURL  string
	ClickPesaClientID string
	ClickPesaAPIKey   string
	ChecksumSecret    string
	GatewayTimeout    time.Duration

	// Webhook hardening
	WebhookAllowedIPs []string

	// Notifications
	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SenderEmail  string
	NotifyEmail  string

	// Reconciliation sweep schedule (robfig/cron spec)
	ReconcileSpec string
}

// NewConfig loads configuration from environment variables
func NewConfig() (*Config, error) {
	cfg := &Config{
		Port:              getEnv("PORT", "8080"),
		DBConn:            getEnv("DB_CONN", "host=localhost port=5432 user=pesa password=pesa dbname=pesa sslmode=disable"),
		LogLevel:          getEnv("LOG_LEVEL", "INFO"),
		JWTSecret:         getEnv("JWT_SECRET", ""),
		ClickPesaBaseURL:  getEnv("CLICKPESA_BASE_URL", "https://api.clickpesa.com"),
		ClickPesaClientID: getEnv("CLICKPESA_CLIENT_ID", ""),
		ClickPesaAPIKey:   getEnv("CLICKPESA_API_KEY", ""),
		ChecksumSecret:    getEnv("CLICKPESA_CHECKSUM_SECRET", ""),
		GatewayTimeout:    30 * time.Second,
		SMTPHost:          getEnv("SMTP_HOST", ""),
		SMTPPort:          getEnv("SMTP_PORT", "587"),
		SMTPUsername:      getEnv("SMTP_USERNAME", ""),
		SMTPPassword:      getEnv("SMTP_PASSWORD", ""),
		SenderEmail:       getEnv("SENDER_EMAIL", ""),
		NotifyEmail:       getEnv("NOTIFY_EMAIL", ""),
		ReconcileSpec:     getEnv("RECONCILE_SPEC", "@every 5m"),
	}

	if ips := getEnv("CLICKPESA_WEBHOOK_IPS", ""); ips != "" {
		for _, ip := range strings.Split(ips, ",") {
			if ip = strings.TrimSpace(ip); ip != "" {
				cfg.WebhookAllowedIPs = append(cfg.WebhookAllowedIPs, ip)
			}
		}
	}

	if cfg.DBConn == "" {
		return nil, fmt.Errorf("DB_CONN is required")
	}
	if cfg.ClickPesaClientID == "" {
		return nil, fmt.Errorf("CLICKPESA_CLIENT_ID is required")
	}
	if cfg.ClickPesaAPIKey == "" {
		return nil, fmt.Errorf("CLICKPESA_API_KEY is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}
