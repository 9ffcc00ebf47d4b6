package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/Lllllllleong/pitchflow/internal/models"
	"github.com/Lllllllleong/pitchflow/internal/services"
)

var (
	deleterInstance *services.DraftDeleter
	once            sync.Once
	initErr         error
)

func init() {
	// --- Set up structured logging ---
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	functions.HTTP("HandleDeleteDraft", handleDeleteDraft)
}

func main() {}

// handleDeleteDraft is the HTTP handler for draft deletion.
func handleDeleteDraft(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		deleterInstance, initErr = services.NewDraftDeleterFromEnv(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical: DraftDeleter initialization failed", "error", initErr)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}

	var req models.DeleteDraftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Could not decode request body", "error", err)
		http.Error(w, "Bad Request: could not parse JSON", http.StatusBadRequest)
		return
	}
	if req.ProjectID == "" || req.Actor.ID == "" {
		http.Error(w, "Bad Request: projectId and actor are required", http.StatusBadRequest)
		return
	}

	res, err := deleterInstance.Process(r.Context(), &req)
	switch {
	case errors.Is(err, services.ErrNotFound):
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	case errors.Is(err, services.ErrForbidden):
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	case errors.Is(err, services.ErrNotDraft):
		http.Error(w, "Conflict: only drafts can be deleted", http.StatusConflict)
		return
	case err != nil:
		http.Error(w, "Internal Server Error: deletion failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(res); err != nil {
		slog.Error("Failed to write response", "error", err, "projectId", req.ProjectID)
		http.Error(w, "Internal Server Error: failed to encode response", http.StatusInternalServerError)
	}
}
