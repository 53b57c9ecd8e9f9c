package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"bitewise_backend/internal/app"
	"bitewise_backend/internal/infra/config"
	"bitewise_backend/internal/infra/events"
	"bitewise_backend/internal/infra/logger"
	"bitewise_backend/internal/infra/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Could not load application configuration: %v", err)
	}
	logger.Init(cfg)
	log := logger.Component("aggregator")

	log.WithFields(logrus.Fields{
		"environment": cfg.Environment,
		"store":       cfg.StoreBackend,
		"brokers":     cfg.KafkaBrokers,
		"topic":       cfg.MealEventTopic,
	}).Info("Configuration loaded.")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repos, err := storage.Open(ctx, cfg, log)
	if err != nil {
		log.Fatalf("Could not open store: %v", err)
	}
	defer repos.Close()

	aggregateService := app.NewAggregateService(repos.Analytics, log)

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.KafkaBrokers,
		GroupID:  cfg.KafkaGroupID,
		Topic:    cfg.MealEventTopic,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	defer reader.Close()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{Addr: cfg.MetricsAddress, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("Metrics server stopped")
		}
	}()

	processor := events.NewProcessor(reader, aggregateService, log)
	log.Info("Meal event consumer started.")
	if err := processor.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Error("Meal event consumer stopped")
	}

	log.Info("Shutting down application...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = metricsServer.Shutdown(shutdownCtx)
	log.Info("Application shut down gracefully.")
}
