package gcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"google.golang.org/api/googleapi"
)

// GetEnv is a helper to read an environment variable or return a default value.
func GetEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// GetEnvInt reads an integer environment variable, returning fallback when
// it is unset or malformed.
func GetEnvInt(key string, fallback int) int {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		slog.Warn("Ignoring malformed integer environment variable", "key", key, "value", raw)
		return fallback
	}
	return n
}

// DownloadTokenKey is the object metadata key holding the token that
// authorises download URLs, as used by Firebase Storage.
const DownloadTokenKey = "firebaseStorageDownloadTokens"

const (
	firebaseBase = "https://firebasestorage.googleapis.com"
	publicBase   = "https://storage.googleapis.com"
)

// GCSBlobStore stores pitch files in a single Cloud Storage bucket.
// Objects are written with a download token, so their URLs work without
// making the bucket public.
type GCSBlobStore struct {
	bucket     *storage.BucketHandle
	bucketName string
	newToken   func() string
}

// NewGCSBlobStore returns a blob store writing to bucketName.
func NewGCSBlobStore(client *storage.Client, bucketName string) *GCSBlobStore {
	return &GCSBlobStore{
		bucket:     client.Bucket(bucketName),
		bucketName: bucketName,
		newToken:   uuid.NewString,
	}
}

// Put writes r to path only if the object doesn't already exist. Object
// names carry a unique storage id, so an existing object means a previous
// attempt already stored the same upload.
func (s *GCSBlobStore) Put(ctx context.Context, path string, r io.Reader, contentType string, progress func(written int64)) error {
	writer := s.bucket.Object(path).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	writer.ContentType = contentType
	writer.Metadata = map[string]string{DownloadTokenKey: s.newToken()}
	if progress != nil {
		writer.ProgressFunc = progress
	}

	if _, err := io.Copy(writer, r); err != nil {
		_ = writer.Close()
		if isPreconditionFailed(err) {
			slog.Info("SKIPPING: Object already exists.", "gcsObject", path)
			return nil
		}
		slog.Error("Failed to copy content to GCS object", "gcsObject", path, "error", err)
		return fmt.Errorf("failed to write to GCS: %w", err)
	}

	if err := writer.Close(); err != nil {
		if isPreconditionFailed(err) {
			slog.Info("SKIPPING: Object already exists.", "gcsObject", path)
			return nil
		}
		slog.Error("Failed to close GCS writer", "gcsObject", path, "error", err)
		return fmt.Errorf("failed to finalize GCS write: %w", err)
	}
	return nil
}

// DownloadURL returns the token-bearing URL of a stored object. Objects
// without a token, written by other tools, get the public object URL,
// which only resolves on a public-read bucket.
func (s *GCSBlobStore) DownloadURL(ctx context.Context, path string) (string, error) {
	attrs, err := s.bucket.Object(path).Attrs(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to read attributes of gs://%s/%s: %w", s.bucketName, path, err)
	}
	return downloadURL(s.bucketName, path, attrs.Metadata), nil
}

func downloadURL(bucket, path string, metadata map[string]string) string {
	token, _, _ := strings.Cut(metadata[DownloadTokenKey], ",")
	if token == "" {
		slog.Warn("Object has no download token, using public URL.", "gcsObject", path)
		return ObjectURL(publicBase, bucket, path)
	}
	return TokenURL(firebaseBase, bucket, path, token)
}

// TokenURL builds a Firebase Storage download URL. The object name is a
// single escaped path segment.
func TokenURL(base, bucket, path, token string) string {
	q := url.Values{}
	q.Set("alt", "media")
	q.Set("token", token)
	return fmt.Sprintf("%s/v0/b/%s/o/%s?%s", strings.TrimSuffix(base, "/"), bucket, url.PathEscape(path), q.Encode())
}

// Delete removes an object. A missing object counts as deleted.
func (s *GCSBlobStore) Delete(ctx context.Context, path string) error {
	err := s.bucket.Object(path).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		slog.Warn("Object already gone.", "gcsObject", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to delete gs://%s/%s: %w", s.bucketName, path, err)
	}
	return nil
}

// ObjectURL builds the download URL of an object with every path segment escaped.
func ObjectURL(base, bucket, path string) string {
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return fmt.Sprintf("%s/%s/%s", strings.TrimSuffix(base, "/"), bucket, strings.Join(segments, "/"))
}

func isPreconditionFailed(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed
}
