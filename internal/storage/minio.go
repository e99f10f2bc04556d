package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/reseau-affaires/apiserver/config"
)

// MinioClient stores attachments and images in a MinIO or S3 bucket.
type MinioClient struct {
	client *minio.Client
	bucket string
}

// NewMinioClient constructs a MinIO client from config.
func NewMinioClient(cfg config.MinioConfig) (*MinioClient, error) {
	switch {
	case strings.TrimSpace(cfg.Endpoint) == "":
		return nil, errors.New("minio endpoint is required")
	case strings.TrimSpace(cfg.AccessKey) == "" || strings.TrimSpace(cfg.SecretKey) == "":
		return nil, errors.New("minio access key and secret key are required")
	case strings.TrimSpace(cfg.Bucket) == "":
		return nil, errors.New("minio bucket is required")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	return &MinioClient{client: client, bucket: cfg.Bucket}, nil
}

func (m *MinioClient) EnsureBucket(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", m.bucket, err)
	}
	if exists {
		return nil
	}
	return m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{})
}

// Put uploads the object with its content type and uploaded file name.
// A negative size streams the body in parts.
func (m *MinioClient) Put(ctx context.Context, key string, r io.Reader, size int64, meta ObjectMeta) error {
	opts := minio.PutObjectOptions{ContentType: meta.ContentType}
	if meta.Filename != "" {
		opts.UserMetadata = map[string]string{metaFilename: meta.Filename}
	}
	_, err := m.client.PutObject(ctx, m.bucket, key, r, size, opts)
	return err
}

// Open stats the object before returning it: GetObject is lazy and would
// otherwise report a missing key on first read.
func (m *MinioClient) Open(ctx context.Context, key string) (*Object, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	info, err := obj.Stat()
	if err != nil {
		_ = obj.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &Object{
		ObjectMeta: ObjectMeta{
			ContentType: info.ContentType,
			Filename:    userMetadata(info.UserMetadata, metaFilename),
		},
		Body: obj,
		Size: info.Size,
	}, nil
}

func (m *MinioClient) Delete(ctx context.Context, key string) error {
	return m.client.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{})
}

// userMetadata looks up a user metadata key, which MinIO returns in
// canonical header form.
func userMetadata(metadata map[string]string, key string) string {
	for k, v := range metadata {
		if strings.EqualFold(strings.TrimPrefix(strings.ToLower(k), "x-amz-meta-"), key) {
			return v
		}
	}
	return ""
}
