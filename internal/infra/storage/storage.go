// Package storage opens the repositories of the configured backend.
package storage

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"github.com/sirupsen/logrus"

	"bitewise_backend/internal/domain/analytics"
	"bitewise_backend/internal/domain/meal"
	"bitewise_backend/internal/domain/user"
	"bitewise_backend/internal/infra/config"
	idb "bitewise_backend/internal/infra/database"
	"bitewise_backend/internal/infra/fcm"
	"bitewise_backend/internal/infra/firestoredb"
	"bitewise_backend/internal/infra/memory"
)

// Repositories bundles the stores of one backend. Close releases the underlying connection.
type Repositories struct {
	Users     user.Repository
	Meals     meal.Repository
	Analytics analytics.Repository
	Close     func() error

	// Firebase is the app the Firestore backend was opened with; nil for other backends.
	Firebase *firebase.App
}

// Open connects to the backend selected by cfg.StoreBackend.
func Open(ctx context.Context, cfg *config.AppConfig, logger logrus.FieldLogger) (*Repositories, error) {
	switch cfg.StoreBackend {
	case config.StoreBackendPostgres:
		db, err := idb.NewPostgresConnection(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := idb.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
		logger.Info("Database connection established successfully.")
		return &Repositories{
			Users:     idb.NewPostgresUserRepository(db),
			Meals:     idb.NewPostgresMealRepository(db),
			Analytics: idb.NewPostgresAnalyticsRepository(db),
			Close:     db.Close,
		}, nil

	case config.StoreBackendMemory:
		store := memory.NewStore()
		if cfg.MemorySeedFile != "" {
			users, meals, err := store.LoadSeedFile(cfg.MemorySeedFile)
			if err != nil {
				return nil, err
			}
			logger.WithFields(logrus.Fields{"users": users, "meals": meals}).Info("Memory store seeded.")
		}
		logger.Warn("Using the in-memory store; nothing is persisted.")
		return &Repositories{
			Users:     store,
			Meals:     store,
			Analytics: store,
			Close:     func() error { return nil },
		}, nil

	case config.StoreBackendFirestore, "":
		app, err := fcm.NewApp(ctx, cfg)
		if err != nil {
			return nil, err
		}
		client, err := app.Firestore(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create firestore client: %w", err)
		}
		logger.Info("Firestore client initialized.")
		return &Repositories{
			Users:     firestoredb.NewUserRepository(client, logger),
			Meals:     firestoredb.NewMealRepository(client),
			Analytics: firestoredb.NewAnalyticsRepository(client),
			Close:     client.Close,
			Firebase:  app,
		}, nil

	default:
		return nil, fmt.Errorf("unsupported store backend %q", cfg.StoreBackend)
	}
}
