package services

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"
	"github.com/Lllllllleong/pitchflow/internal/gcp"
)

// backends are the clients shared by every function.
type backends struct {
	store *gcp.FirestoreStore
	blobs *gcp.GCSBlobStore
}

// newBackends builds the Firestore store and, when a bucket is given,
// the Cloud Storage blob store.
func newBackends(ctx context.Context, projectID, collection, bucket string) (*backends, error) {
	firestoreClient, err := gcp.NewFirestoreClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	b := &backends{store: gcp.NewFirestoreStore(firestoreClient, collection)}
	if bucket == "" {
		return b, nil
	}
	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Storage client: %w", err)
	}
	b.blobs = gcp.NewGCSBlobStore(storageClient, bucket)
	return b, nil
}

func requireProjectID() (string, error) {
	projectID := gcp.GetEnv("PROJECT_ID", "")
	if projectID == "" {
		return "", fmt.Errorf("PROJECT_ID environment variable must be set")
	}
	return projectID, nil
}

// NewDraftDeleterFromEnv creates a DraftDeleter configured from the environment.
func NewDraftDeleterFromEnv(ctx context.Context) (*DraftDeleter, error) {
	projectID, err := requireProjectID()
	if err != nil {
		return nil, err
	}
	bucket := gcp.GetEnv("PITCH_ASSETS_BUCKET", "")
	if bucket == "" {
		return nil, fmt.Errorf("PITCH_ASSETS_BUCKET environment variable must be set")
	}
	b, err := newBackends(ctx, projectID, gcp.GetEnv("PROJECTS_COLLECTION", "projects"), bucket)
	if err != nil {
		return nil, err
	}
	return NewDraftDeleter(b.store, b.blobs), nil
}

// NewNotifierFromEnv creates a Notifier configured from the environment.
func NewNotifierFromEnv(ctx context.Context) (*Notifier, error) {
	projectID, err := requireProjectID()
	if err != nil {
		return nil, err
	}
	b, err := newBackends(ctx, projectID, gcp.GetEnv("PROJECTS_COLLECTION", "projects"), "")
	if err != nil {
		return nil, err
	}
	return NewNotifier(b.store, StoreDispatcher{Store: b.store}, gcp.GetEnvInt("NOTIFY_CONCURRENCY", 10)), nil
}
