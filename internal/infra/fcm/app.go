// Package fcm wires the Firebase Admin SDK: app bootstrap, Firestore client and push delivery.
package fcm

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"

	"bitewise_backend/internal/infra/config"
)

// NewApp initializes the Firebase app from the configured service-account file,
// or from application default credentials when no path is set.
func NewApp(ctx context.Context, cfg *config.AppConfig) (*firebase.App, error) {
	var fbConfig *firebase.Config
	if cfg.FirebaseProjectID != "" {
		fbConfig = &firebase.Config{ProjectID: cfg.FirebaseProjectID}
	}

	var opts []option.ClientOption
	if cfg.FirebaseCredsPath != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.FirebaseCredsPath))
	}

	app, err := firebase.NewApp(ctx, fbConfig, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}
	return app, nil
}
