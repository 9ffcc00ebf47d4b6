package gcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"cloud.google.com/go/firestore"
	"github.com/Lllllllleong/pitchflow/internal/models"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrNotFound is returned when a requested document does not exist.
var ErrNotFound = errors.New("document not found")

// NewFirestoreClient creates and returns a new Firestore client for the given project ID.
// It centralizes client creation for all services.
func NewFirestoreClient(ctx context.Context, projectID string) (*firestore.Client, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID must be provided to create a firestore client")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}

	return client, nil
}

// FirestoreStore keeps project records and their side documents in Firestore.
type FirestoreStore struct {
	client   *firestore.Client
	projects string
}

// NewFirestoreStore wraps client; projects is the collection holding records.
func NewFirestoreStore(client *firestore.Client, projects string) *FirestoreStore {
	if projects == "" {
		projects = "projects"
	}
	return &FirestoreStore{client: client, projects: projects}
}

func (s *FirestoreStore) NewProjectID() string {
	return s.client.Collection(s.projects).NewDoc().ID
}

func (s *FirestoreStore) GetProject(ctx context.Context, id string) (*models.Project, error) {
	snap, err := s.client.Collection(s.projects).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("project %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load project %s: %w", id, err)
	}
	return decodeProject(snap)
}

// SetProject writes the whole record. Concurrent writers follow last write wins.
func (s *FirestoreStore) SetProject(ctx context.Context, p *models.Project) error {
	if p.ID == "" {
		return fmt.Errorf("project has no id")
	}
	if _, err := s.client.Collection(s.projects).Doc(p.ID).Set(ctx, p); err != nil {
		return fmt.Errorf("failed to write project %s: %w", p.ID, err)
	}
	return nil
}

func (s *FirestoreStore) RemoveProject(ctx context.Context, id string) error {
	if _, err := s.client.Collection(s.projects).Doc(id).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete project %s: %w", id, err)
	}
	return nil
}

// WatchProject attaches a snapshot listener to the record. Deleted
// snapshots end the stream.
func (s *FirestoreStore) WatchProject(ctx context.Context, id string) (<-chan *models.Project, error) {
	it := s.client.Collection(s.projects).Doc(id).Snapshots(ctx)
	out := make(chan *models.Project)
	logCtx := slog.With("projectId", id)

	go func() {
		defer close(out)
		defer it.Stop()
		for {
			snap, err := it.Next()
			if err != nil {
				if status.Code(err) != codes.Canceled && ctx.Err() == nil {
					logCtx.Error("Project listener stopped", "error", err)
				}
				return
			}
			if !snap.Exists() {
				logCtx.Info("Watched project was deleted.")
				return
			}
			p, err := decodeProject(snap)
			if err != nil {
				logCtx.Error("Failed to decode project snapshot", "error", err)
				continue
			}
			select {
			case out <- p:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (s *FirestoreStore) InvestorIDs(ctx context.Context, collection, projectID string) ([]string, error) {
	it := s.client.Collection(collection).
		Where("projectId", "==", projectID).
		OrderBy("createdAt", firestore.Asc).
		Documents(ctx)
	defer it.Stop()

	var ids []string
	for {
		doc, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to query %s for project %s: %w", collection, projectID, err)
		}
		if id, ok := doc.Data()["investorId"].(string); ok && id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (s *FirestoreStore) Append(ctx context.Context, collection string, doc interface{}) error {
	if _, _, err := s.client.Collection(collection).Add(ctx, doc); err != nil {
		return fmt.Errorf("failed to add to %s: %w", collection, err)
	}
	return nil
}

func (s *FirestoreStore) Put(ctx context.Context, collection, id string, doc interface{}) error {
	if _, err := s.client.Collection(collection).Doc(id).Set(ctx, doc); err != nil {
		return fmt.Errorf("failed to write %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *FirestoreStore) Merge(ctx context.Context, collection, id string, fields map[string]interface{}) error {
	if _, err := s.client.Collection(collection).Doc(id).Set(ctx, fields, firestore.MergeAll); err != nil {
		return fmt.Errorf("failed to merge into %s/%s: %w", collection, id, err)
	}
	return nil
}

func decodeProject(snap *firestore.DocumentSnapshot) (*models.Project, error) {
	var p models.Project
	if err := snap.DataTo(&p); err != nil {
		return nil, fmt.Errorf("failed to decode project %s: %w", snap.Ref.ID, err)
	}
	if p.ID == "" {
		p.ID = snap.Ref.ID
	}
	return &p, nil
}
