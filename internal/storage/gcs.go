package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/reseau-affaires/apiserver/config"
)

// GCSClient stores attachments and images in a Google Cloud Storage bucket.
type GCSClient struct {
	client    *storage.Client
	bucket    *storage.BucketHandle
	name      string
	projectID string
}

// NewGCSClient constructs a GCS client from config.
func NewGCSClient(ctx context.Context, cfg config.GCSConfig) (*GCSClient, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.New("gcs bucket is required")
	}

	var opts []option.ClientOption
	if strings.TrimSpace(cfg.CredentialsFile) != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}

	return &GCSClient{
		client:    client,
		bucket:    client.Bucket(cfg.Bucket),
		name:      cfg.Bucket,
		projectID: cfg.ProjectID,
	}, nil
}

// EnsureBucket creates the bucket when missing, which needs a project id.
func (g *GCSClient) EnsureBucket(ctx context.Context) error {
	_, err := g.bucket.Attrs(ctx)
	switch {
	case err == nil:
		return nil
	case !errors.Is(err, storage.ErrBucketNotExist):
		return fmt.Errorf("check bucket %s: %w", g.name, err)
	case strings.TrimSpace(g.projectID) == "":
		return fmt.Errorf("gcs bucket %s does not exist and no project id is set to create it", g.name)
	}
	return g.bucket.Create(ctx, g.projectID, nil)
}

// Put streams r into the object. The write is only committed by Close, so
// a failed copy leaves no partial object behind.
func (g *GCSClient) Put(ctx context.Context, key string, r io.Reader, _ int64, meta ObjectMeta) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	writer := g.bucket.Object(key).NewWriter(ctx)
	writer.ContentType = meta.ContentType
	if meta.Filename != "" {
		writer.Metadata = map[string]string{metaFilename: meta.Filename}
	}
	if _, err := io.Copy(writer, r); err != nil {
		cancel()
		_ = writer.Close()
		return err
	}
	return writer.Close()
}

func (g *GCSClient) Open(ctx context.Context, key string) (*Object, error) {
	handle := g.bucket.Object(key)
	attrs, err := handle.Attrs(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	reader, err := handle.Generation(attrs.Generation).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &Object{
		ObjectMeta: ObjectMeta{
			ContentType: attrs.ContentType,
			Filename:    attrs.Metadata[metaFilename],
		},
		Body: reader,
		Size: attrs.Size,
	}, nil
}

// Delete treats a missing object as already deleted.
func (g *GCSClient) Delete(ctx context.Context, key string) error {
	err := g.bucket.Object(key).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil
	}
	return err
}
