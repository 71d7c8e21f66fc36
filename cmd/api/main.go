package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"database/sql"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/tzpesa/pesa-service/internal/config"
	"github.com/tzpesa/pesa-service/internal/handler"
	"github.com/tzpesa/pesa-service/internal/integrations/clickpesa"
	"github.com/tzpesa/pesa-service/internal/middleware"
	"github.com/tzpesa/pesa-service/internal/repository"
	"github.com/tzpesa/pesa-service/internal/service"
	"github.com/tzpesa/pesa-service/internal/utils/email"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logLevel, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Load configuration
	_ = godotenv.Load()
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	// Initialize database
	db, err := sql.Open("postgres", cfg.DBConn)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Fatalf("Failed to ping database: %v", err)
	}

	// Initialize layers
	repo := repository.NewRepository(db)
	tokens := clickpesa.NewTokenSource(cfg, repo, logger)
	gateway := clickpesa.NewClient(cfg, tokens, logger)
	notifier := service.NewNotifier(logger, email.NewSender(cfg, logger))
	reconciler := service.NewReconciler(gateway, repo, notifier, logger)
	payments := service.NewPaymentService(gateway, repo, reconciler, notifier, logger)
	payouts := service.NewPayoutService(gateway, repo, reconciler, notifier, logger)
	h := handler.NewHandler(payments, payouts, reconciler, gateway, cfg.ChecksumSecret, logger)

	// Periodic reconciliation of pending transactions
	c := cron.New()
	if _, err := c.AddFunc(cfg.ReconcileSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		n, err := reconciler.ReconcilePending(ctx)
		if err != nil {
			logger.Errorf("Reconciliation sweep failed: %v", err)
			return
		}
		logger.Infof("Reconciliation sweep processed %d transactions", n)
	}); err != nil {
		logger.Fatalf("Failed to schedule reconciliation: %v", err)
	}
	c.Start()
	defer c.Stop()

	// Setup router
	r := mux.NewRouter()

	// Gateway callbacks: signature-verified, optionally IP-restricted
	webhooks := r.PathPrefix("/webhooks/clickpesa").Subrouter()
	webhooks.Use(middleware.WebhookIPAllowlist(cfg.WebhookAllowedIPs, logger))
	webhooks.HandleFunc("/payment", h.PaymentCallback).Methods("POST")
	webhooks.HandleFunc("/payout", h.PayoutCallback).Methods("POST")

	// Protected API routes
	api := r.PathPrefix("/").Subrouter()
	api.Use(middleware.AuthMiddleware(cfg))
	api.HandleFunc("/payments", h.CreatePayment).Methods("POST")
	api.HandleFunc("/payments/{reference}", h.GetPayment).Methods("GET")
	api.HandleFunc("/payouts", h.CreatePayout).Methods("POST")
	api.HandleFunc("/payouts/{reference}", h.GetPayout).Methods("GET")
	api.HandleFunc("/balance", h.GetBalance).Methods("GET")

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
	logger.Infof("Starting server on %s", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("Server failed: %v", err)
	}
}
