package services

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/Lllllllleong/pitchflow/internal/models"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// UploadTarget locates the blob folder of a record.
type UploadTarget struct {
	OwnerID   string
	ProjectID string
}

// UploadedAssets accumulates the descriptors produced by each stage.
type UploadedAssets struct {
	Cover                models.Attachments
	SupportingDocuments  models.Attachments
	PresentationDocument models.Attachments
}

// ProgressFunc receives upload progress updates. It may be called from
// several goroutines at once.
type ProgressFunc func(models.UploadProgress)

// Uploader sends a wizard's pending files to the blob store, one stage at
// a time: cover, supporting documents, presentation document.
type Uploader struct {
	blobs        BlobStore
	concurrency  int
	newStorageID func() string
	now          func() time.Time
}

// NewUploader returns an uploader running at most concurrency uploads per stage.
func NewUploader(blobs BlobStore, concurrency int) *Uploader {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Uploader{
		blobs:        blobs,
		concurrency:  concurrency,
		newStorageID: newStorageID,
		now:          time.Now,
	}
}

// newStorageID returns a time-ordered id so later uploads sort after earlier ones.
func newStorageID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

// UploadAll runs the three stages in order. A failing file fails its
// stage and the whole call; nothing is retried here.
func (u *Uploader) UploadAll(ctx context.Context, target UploadTarget, form *models.FormState, onProgress ProgressFunc) (UploadedAssets, error) {
	if onProgress == nil {
		onProgress = func(models.UploadProgress) {}
	}
	logCtx := slog.With("projectId", target.ProjectID, "ownerId", target.OwnerID)
	var assets UploadedAssets

	cover, err := u.uploadCover(ctx, target, form, onProgress)
	if err != nil {
		logCtx.Error("Cover upload failed", "error", err)
		return assets, fmt.Errorf("cover stage: %w", err)
	}
	assets.Cover = cover

	supporting, err := u.uploadAggregated(ctx, target, models.StageSupporting, string(models.SlotSupporting), form.PendingSupporting, onProgress)
	if err != nil {
		logCtx.Error("Supporting documents upload failed", "error", err)
		return assets, fmt.Errorf("supporting documents stage: %w", err)
	}
	assets.SupportingDocuments = supporting

	presentation, err := u.uploadPerFile(ctx, target, models.StagePresentation, string(models.SlotPresentation), form.PendingPresentation, onProgress)
	if err != nil {
		logCtx.Error("Presentation upload failed", "error", err)
		return assets, fmt.Errorf("presentation stage: %w", err)
	}
	assets.PresentationDocument = presentation

	logCtx.Info("All stages uploaded.",
		"cover", len(assets.Cover),
		"supportingDocuments", len(assets.SupportingDocuments),
		"presentationDocument", len(assets.PresentationDocument))
	return assets, nil
}

func (u *Uploader) uploadCover(ctx context.Context, target UploadTarget, form *models.FormState, onProgress ProgressFunc) (models.Attachments, error) {
	switch form.CoverChoice {
	case models.CoverNone:
		return nil, nil
	case models.CoverVideoURL:
		videoURL := form.TrimmedVideoURL()
		if videoURL == "" {
			return nil, nil
		}
		for _, c := range form.Existing(models.SlotCover).Active() {
			if c.Type == models.VideoType && c.URL == videoURL {
				return nil, nil // unchanged
			}
		}
		onProgress(models.UploadProgress{Stage: models.StageCover, Percent: 100})
		return models.Attachments{{
			URL:        videoURL,
			Name:       videoURL,
			Type:       models.VideoType,
			State:      models.AttachmentActive,
			UploadedAt: u.now(),
		}}, nil
	}
	return u.uploadPerFile(ctx, target, models.StageCover, string(models.SlotCover), form.PendingCover, onProgress)
}

// uploadPerFile reports each file's own byte progress.
func (u *Uploader) uploadPerFile(ctx context.Context, target UploadTarget, stage models.UploadStage, category string, files []models.PendingFile, onProgress ProgressFunc) (models.Attachments, error) {
	if len(files) == 0 {
		return nil, nil
	}
	onProgress(models.UploadProgress{Stage: stage, Percent: 0})
	return u.runStage(ctx, target, category, files,
		func(f models.PendingFile) func(int64) {
			if f.Size <= 0 {
				return nil
			}
			return func(written int64) {
				pct := float64(written) * 100 / float64(f.Size)
				if pct > 100 {
					pct = 100
				}
				onProgress(models.UploadProgress{Stage: stage, Percent: pct})
			}
		},
		func(completed, total int) {
			if completed == total {
				onProgress(models.UploadProgress{Stage: stage, Percent: 100})
			}
		})
}

// uploadAggregated reports completed*100/total as files finish.
func (u *Uploader) uploadAggregated(ctx context.Context, target UploadTarget, stage models.UploadStage, category string, files []models.PendingFile, onProgress ProgressFunc) (models.Attachments, error) {
	if len(files) == 0 {
		return nil, nil
	}
	onProgress(models.UploadProgress{Stage: stage, Percent: 0})
	return u.runStage(ctx, target, category, files, nil, func(completed, total int) {
		onProgress(models.UploadProgress{Stage: stage, Percent: float64(completed) * 100 / float64(total)})
	})
}

// runStage uploads files concurrently and returns their descriptors in
// completion order.
func (u *Uploader) runStage(ctx context.Context, target UploadTarget, category string, files []models.PendingFile,
	fileProgress func(models.PendingFile) func(int64), onDone func(completed, total int)) (models.Attachments, error) {

	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(u.concurrency)

	var (
		mu  sync.Mutex
		out models.Attachments
	)
	for _, file := range files {
		file := file
		eg.Go(func() error {
			var progress func(int64)
			if fileProgress != nil {
				progress = fileProgress(file)
			}
			a, err := u.uploadFile(gctx, target, category, file, progress)
			if err != nil {
				return fmt.Errorf("%s: %w", file.Name, err)
			}
			mu.Lock()
			out = append(out, a)
			completed := len(out)
			onDone(completed, len(files))
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (u *Uploader) uploadFile(ctx context.Context, target UploadTarget, category string, file models.PendingFile, progress func(int64)) (models.Attachment, error) {
	if file.Open == nil {
		return models.Attachment{}, fmt.Errorf("file has no content")
	}
	storageID := u.newStorageID()
	path := BlobPath(target, category, file.Name, storageID)

	rc, err := file.Open()
	if err != nil {
		return models.Attachment{}, fmt.Errorf("could not open upload: %w", err)
	}
	defer rc.Close()

	if err := u.blobs.Put(ctx, path, rc, file.ContentType, progress); err != nil {
		return models.Attachment{}, err
	}
	downloadURL, err := u.blobs.DownloadURL(ctx, path)
	if err != nil {
		return models.Attachment{}, err
	}
	return models.Attachment{
		URL:        downloadURL,
		Name:       file.Name,
		Type:       file.ContentType,
		StorageID:  storageID,
		Path:       path,
		State:      models.AttachmentActive,
		UploadedAt: u.now(),
	}, nil
}

// BlobPath builds "<owner>/projects/<project>/<category>/<name>_<storageId><ext>".
func BlobPath(target UploadTarget, category, filename, storageID string) string {
	ext := sanitizeFileName(strings.TrimPrefix(filepath.Ext(filename), "."))
	if ext != "" {
		ext = "." + ext
	}
	base := sanitizeFileName(strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename)))
	if base == "" {
		base = "file"
	}
	return fmt.Sprintf("%s/projects/%s/%s/%s_%s%s", target.OwnerID, target.ProjectID, category, base, storageID, ext)
}

var nonAlphanumericRegex = regexp.MustCompile(`[^a-z0-9]+`)

// sanitizeFileName converts a user file name into a safe object name component.
func sanitizeFileName(name string) string {
	sanitized := nonAlphanumericRegex.ReplaceAllString(strings.ToLower(name), "_")
	sanitized = strings.Trim(sanitized, "_")

	const maxLength = 100
	if len(sanitized) > maxLength {
		sanitized = strings.Trim(sanitized[:maxLength], "_")
	}
	return sanitized
}
