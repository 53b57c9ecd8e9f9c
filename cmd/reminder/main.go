package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"bitewise_backend/internal/app"
	"bitewise_backend/internal/infra/config"
	"bitewise_backend/internal/infra/fcm"
	"bitewise_backend/internal/infra/logger"
	"bitewise_backend/internal/infra/scheduler"
	"bitewise_backend/internal/infra/storage"
	"bitewise_backend/internal/infra/telegram"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Could not load application configuration: %v", err)
	}
	logger.Init(cfg)
	log := logger.Component("reminder")

	log.WithFields(logrus.Fields{
		"environment": cfg.Environment,
		"store":       cfg.StoreBackend,
		"cron_spec":   cfg.ReminderCronSpec,
	}).Info("Configuration loaded.")

	ctx := context.Background()

	repos, err := storage.Open(ctx, cfg, log)
	if err != nil {
		log.Fatalf("Could not open store: %v", err)
	}
	defer repos.Close()

	// The Firestore backend already built the app; reuse it for messaging.
	fbApp := repos.Firebase
	if fbApp == nil {
		fbApp, err = fcm.NewApp(ctx, cfg)
		if err != nil {
			log.Fatalf("Could not initialize Firebase: %v", err)
		}
	}
	sender, err := fcm.NewSenderFromApp(ctx, fbApp)
	if err != nil {
		log.Fatalf("Could not initialize push sender: %v", err)
	}

	opts := []app.ReminderOption{app.WithLocation(cfg.ReminderLocation)}
	if cfg.OpsReportEnabled() {
		bot, err := telegram.NewOfflineBot(cfg.OpsTelegramToken)
		if err != nil {
			log.Fatalf("Could not create Telegram bot: %v", err)
		}
		opts = append(opts, app.WithRunReporter(
			telegram.NewRunReporter(telegram.NewTelebotAdapter(bot), cfg.OpsTelegramChatID),
		))
		log.Info("Run reports will be posted to Telegram.")
	}

	reminderService := app.NewReminderService(repos.Users, repos.Meals, sender, log, opts...)

	if cfg.ReminderCronSpec == "" {
		runCtx, cancel := context.WithTimeout(ctx, cfg.ReminderTimeout)
		defer cancel()
		if _, err := reminderService.Run(runCtx); err != nil {
			log.Errorf("Calorie reminder run failed: %v", err)
			repos.Close()
			os.Exit(1)
		}
		return
	}

	reminderScheduler := scheduler.NewReminderScheduler(
		reminderService,
		log,
		cfg.ReminderCronSpec,
		cfg.ReminderTimeout,
		cfg.ReminderLocation,
	)
	if err := reminderScheduler.Start(); err != nil {
		log.Fatalf("Could not start scheduler: %v", err)
	}

	metricsServer := serveMetrics(cfg.MetricsAddress, log)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down application...")
	reminderScheduler.Stop()
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_ = metricsServer.Shutdown(shutdownCtx)
	log.Info("Application shut down gracefully.")
}

func serveMetrics(addr string, log logrus.FieldLogger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("Metrics server stopped")
		}
	}()
	log.WithField("address", addr).Info("Metrics server listening.")
	return server
}
