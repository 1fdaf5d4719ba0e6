package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gym_notification_service/internal/app"
	"gym_notification_service/internal/infra/config"
	idb "gym_notification_service/internal/infra/database"
	"gym_notification_service/internal/infra/health"
	"gym_notification_service/internal/infra/httpapi"
	"gym_notification_service/internal/infra/logger"
	"gym_notification_service/internal/infra/metrics"
	"gym_notification_service/internal/infra/push"
	"gym_notification_service/internal/infra/scheduler"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	fmt.Println("GymSetu notification service starting...")

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Could not load application configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg)
	log := logger.Get()
	log.Infof("Configuration loaded. LogLevel: %s, Environment: %s, DailyCheck: %02d:%02d UTC",
		cfg.LogLevel, cfg.Environment, cfg.DailyCheckHour, cfg.DailyCheckMinute)

	// Initialize Database Connection
	db, err := idb.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("FATAL: Could not connect to database: %v", err)
	}
	defer db.Close()
	log.Info("Database connection established successfully.")

	// Initialize Repositories
	memberRepo := idb.NewPostgresMemberRepository(db)
	notificationRepo := idb.NewPostgresNotificationRepository(db)
	subscriptionRepo := idb.NewPostgresSubscriptionRepository(db)
	log.Info("Repositories initialized.")

	// Metrics registry with the standard process/go collectors plus ours.
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	pipelineMetrics := metrics.NewPipeline(registry)

	// Push transport: real web push when VAPID keys are present, otherwise
	// a no-op that degrades dispatch without crashing.
	transport := push.NewTransport(push.VAPIDCredentials{
		PublicKey:  cfg.VAPIDPublicKey,
		PrivateKey: cfg.VAPIDPrivateKey,
		Subject:    cfg.VAPIDSubject,
	}, log)

	dispatcher := app.NewPushDispatcher(subscriptionRepo, transport, pipelineMetrics, log)
	expirationService := app.NewExpirationService(memberRepo, notificationRepo, dispatcher, pipelineMetrics, log)
	log.Info("Expiration service initialized.")

	dbPing := func(ctx context.Context) error { return db.PingContext(ctx) }
	prober := health.NewProber(cfg.ExternalBaseURL, &http.Client{Timeout: 10 * time.Second}, dbPing, log)

	pipelineScheduler := scheduler.NewPipelineScheduler(
		expirationService,
		prober,
		pipelineMetrics,
		log,
		cfg.DailyCheckHour,
		cfg.DailyCheckMinute,
		cfg.KeepAliveInterval,
	)
	if err := pipelineScheduler.Start(); err != nil {
		log.Fatalf("FATAL: Could not start scheduler: %v", err)
	}

	// HTTP surface: liveness endpoint, metrics, and the dashboard's
	// notification/subscription API.
	notificationHandler := httpapi.NewNotificationHandler(notificationRepo, subscriptionRepo, cfg.VAPIDPublicKey, log)
	healthHandler := httpapi.NewHealthHandler(dbPing, log)
	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: httpapi.NewRouter(notificationHandler, healthHandler, registry),
	}
	go func() {
		log.Infof("HTTP server listening on %s", cfg.ListenAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("FATAL: HTTP server failed: %v", err)
		}
	}()

	log.Info("Application setup complete. Scheduler and HTTP server are running.")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down application...")
	pipelineScheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorf("HTTP server shutdown error: %v", err)
	}
	// db.Close() is handled by defer
	log.Info("Application shut down gracefully.")
}
