package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/Lllllllleong/pitchflow/internal/models"
	"github.com/Lllllllleong/pitchflow/internal/services"
	cloudevents "github.com/cloudevents/sdk-go/v2"
)

var (
	notifierInstance *services.Notifier
	once             sync.Once
	initErr          error
)

func init() {
	// --- Set up structured logging ---
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	functions.CloudEvent("NotifyInvestors", notifyInvestors)
}

// main is required by the Go Functions Framework.
func main() {}

// notifyInvestors fans a pitch update out to the project's voters and pledgers.
func notifyInvestors(ctx context.Context, e cloudevents.Event) error {
	once.Do(func() {
		notifierInstance, initErr = services.NewNotifierFromEnv(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		return initErr
	}

	var data models.PitchUpdatedEvent
	if err := e.DataAs(&data); err != nil {
		slog.Error("Failed to decode event data", "error", err, "eventId", e.ID())
		return fmt.Errorf("event.DataAs: %w", err)
	}
	if data.ProjectID == "" {
		slog.Warn("Event carries no projectId, ignoring.", "eventId", e.ID())
		return nil
	}

	// Individual dispatch failures are already logged and counted.
	_, err := notifierInstance.Notify(ctx, data.ProjectID, data.ProjectName)
	return err
}
