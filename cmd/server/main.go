package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/docbook/docbook-payments/internal/application/services"
	"github.com/docbook/docbook-payments/internal/audit"
	"github.com/docbook/docbook-payments/internal/config"
	"github.com/docbook/docbook-payments/internal/infrastructure/gateway"
	"github.com/docbook/docbook-payments/internal/infrastructure/notify"
	"github.com/docbook/docbook-payments/internal/infrastructure/persistence/postgres"
	"github.com/docbook/docbook-payments/internal/interfaces/rest/handlers"
	"github.com/docbook/docbook-payments/internal/interfaces/rest/middleware"
	"github.com/docbook/docbook-payments/internal/security"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := cfg.Logger.NewLogger()
	slog.SetDefault(logger)

	logger.Info("starting payments service",
		"port", cfg.Server.Port,
		"log_level", cfg.Logger.Level,
	)

	fieldKey, err := cfg.Security.FieldKeyBytes()
	if err != nil {
		logger.Error("invalid field encryption key", "error", err)
		os.Exit(1)
	}
	cipher, err := security.NewFieldCipher(fieldKey)
	if err != nil {
		logger.Error("failed to initialize field cipher", "error", err)
		os.Exit(1)
	}

	verifier := security.NewSignatureVerifier(
		cfg.Gateway.KeySecret,
		cfg.Gateway.WebhookSecret,
		cfg.Gateway.AllowUnverifiedWebhooks,
		logger,
	)

	ctx := context.Background()
	db, err := postgres.Connect(ctx, &cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	paymentRepo := postgres.NewPaymentRepository(db.Pool, cipher)
	auditRepo := postgres.NewAuditRepository(db.Pool)

	recorder := audit.NewRecorder(auditRepo, cfg.Audit.QueueSize, logger)
	recorderCtx, stopRecorder := context.WithCancel(context.Background())
	go recorder.Start(recorderCtx)

	gatewayClient := gateway.NewGatewayClient(cfg.Gateway)
	retryGatewayClient := gateway.NewRetryGatewayClient(gatewayClient, cfg.Retry)

	notifier := notify.NewLogNotifier(logger)

	orderService := services.NewOrderService(paymentRepo, retryGatewayClient, recorder, logger)
	confirmService := services.NewConfirmService(paymentRepo, verifier, notifier, recorder, logger)
	reconciler := services.NewWebhookReconciler(paymentRepo, notifier, recorder, logger)
	refundProcessor := services.NewRefundProcessor(paymentRepo, retryGatewayClient, notifier, recorder, logger)
	queryService := services.NewQueryService(paymentRepo)

	h := handlers.NewHandlers(
		orderService,
		confirmService,
		refundProcessor,
		reconciler,
		queryService,
		verifier,
		cfg.Gateway.KeyID,
		logger,
	)

	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	handler := http.Handler(mux)
	handler = middleware.Recovery(logger)(handler)
	handler = middleware.Logging(logger)(handler)
	handler = middleware.Timeout(cfg.Server.ReadTimeout)(handler)

	server := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	// Stop the audit recorder only after in-flight requests have drained so
	// their entries still land.
	stopRecorder()
	recorder.Wait()

	logger.Info("server exited")
}
