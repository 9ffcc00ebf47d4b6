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
	validatorInstance *services.StepValidatorFunction
	once              sync.Once
	initErr           error
)

func init() {
	// --- Set up structured logging ---
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// "HandleValidateStep" is the entry point name configured in GCP.
	functions.HTTP("HandleValidateStep", handleValidateStep)
}

// main is required by the Go Functions Framework.
func main() {}

// handleValidateStep checks one wizard step and returns the step to show next.
func handleValidateStep(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		validatorInstance, initErr = services.NewStepValidatorFromEnv(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical: StepValidator initialization failed", "error", initErr)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}

	var req models.ValidateStepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Could not decode request body", "error", err)
		http.Error(w, "Bad Request: could not parse JSON", http.StatusBadRequest)
		return
	}

	res, err := validatorInstance.Process(r.Context(), &req)
	switch {
	case errors.Is(err, services.ErrNotFound):
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	case errors.Is(err, services.ErrForbidden):
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	case err != nil:
		http.Error(w, "Internal Server Error: validation failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(res); err != nil {
		slog.Error("Failed to write response", "error", err, "step", req.Step.String())
		http.Error(w, "Internal Server Error: failed to encode response", http.StatusInternalServerError)
	}
}
