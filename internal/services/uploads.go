package services

import (
	"context"
	"io"
	"log/slog"
)

// Upload is a file received with a create or update request.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// ObjectStore is satisfied by *storage.Storage.
type ObjectStore interface {
	Upload(ctx context.Context, namespace, filename string, r io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

func storeUpload(ctx context.Context, objects ObjectStore, namespace string, upload *Upload) (string, error) {
	if upload == nil {
		return "", nil
	}
	return objects.Upload(ctx, namespace, upload.Filename, upload.Body, upload.Size, upload.ContentType)
}

// discardObject removes an object that is no longer referenced. Failures
// leave an orphan object behind and are only logged.
func discardObject(ctx context.Context, objects ObjectStore, logger *slog.Logger, key string) {
	if key == "" {
		return
	}
	if err := objects.Delete(ctx, key); err != nil {
		logger.WarnContext(ctx, "delete object failed", slog.String("key", key), slog.Any("error", err))
	}
}
