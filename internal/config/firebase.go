package config

// This file builds the Firestore client used by the firestore store driver.
// Credentials come from FIRESTORE_CREDENTIALS_FILE when set, otherwise from
// the ambient Google application default credentials.

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"
)

// NewFirestoreClient initializes the Firebase App for the configured
// project and returns its Firestore client. Callers must Close it.
func NewFirestoreClient(ctx context.Context, cfg Config) (*firestore.Client, error) {
	var opts []option.ClientOption
	if cfg.FirestoreCredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.FirestoreCredentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.FirestoreProjectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase: initializing app: %w", err)
	}
	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase: getting Firestore client: %w", err)
	}
	return client, nil
}
