package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/Lllllllleong/pitchflow/internal/models"
	"github.com/Lllllllleong/pitchflow/internal/services"
	"github.com/Lllllllleong/pitchflow/internal/wizard"
)

const maxMemory = 32 << 20

var (
	submitterInstance *services.PitchSubmitter
	once              sync.Once
	initErr           error
)

func init() {
	// --- Set up structured logging ---
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	functions.HTTP("HandleSubmitPitch", handleSubmitPitch)
}

func main() {}

// handleSubmitPitch accepts a multipart request: a JSON "form" part plus
// the files for the cover, supportingDocuments and presentationDocument slots.
func handleSubmitPitch(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		submitterInstance, initErr = services.NewPitchSubmitter(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical: PitchSubmitter initialization failed", "error", initErr)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}

	if err := r.ParseMultipartForm(maxMemory); err != nil {
		slog.Warn("Could not parse multipart body", "error", err)
		http.Error(w, "Bad Request: expected multipart/form-data", http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	var req models.SubmitPitchRequest
	if err := json.Unmarshal([]byte(r.FormValue("form")), &req); err != nil {
		slog.Warn("Could not decode form part", "error", err)
		http.Error(w, "Bad Request: could not parse JSON", http.StatusBadRequest)
		return
	}
	nav := wizard.ParseNav(r.URL.Query())
	if nav.EditID != "" {
		req.EditID = nav.EditID
	}
	if nav.OnBehalf() {
		req.IssuerID = nav.IssuerID
	}

	files := make(map[models.Slot][]models.PendingFile)
	for _, slot := range []models.Slot{models.SlotCover, models.SlotSupporting, models.SlotPresentation} {
		for _, fh := range r.MultipartForm.File[string(slot)] {
			files[slot] = append(files[slot], pendingFile(fh))
		}
	}

	res, err := submitterInstance.Process(r.Context(), &req, files)
	if err != nil {
		writeError(w, res, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func pendingFile(fh *multipart.FileHeader) models.PendingFile {
	return models.PendingFile{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}

func writeError(w http.ResponseWriter, res *models.SubmitPitchResponse, err error) {
	var validationErr *services.ValidationError
	var selectionErr *wizard.SelectionError
	switch {
	case errors.As(err, &validationErr):
		writeJSON(w, http.StatusUnprocessableEntity, validationErr.Result)
	case errors.As(err, &selectionErr):
		http.Error(w, "Bad Request: "+selectionErr.Error(), http.StatusBadRequest)
	case errors.Is(err, services.ErrNotFound):
		http.Error(w, "Not Found", http.StatusNotFound)
	case errors.Is(err, services.ErrForbidden):
		http.Error(w, "Forbidden", http.StatusForbidden)
	case res != nil:
		// Upload and save failures carry a retryable failed state.
		writeJSON(w, http.StatusInternalServerError, res)
	default:
		http.Error(w, "Internal Server Error: processing failed", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to write response", "error", err)
	}
}
