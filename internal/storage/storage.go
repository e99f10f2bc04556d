package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/reseau-affaires/apiserver/config"
)

// Namespaces group uploaded files by owning entity.
const (
	NamespaceAnnonces   = "annonces"
	NamespaceEvenements = "evenements"
)

var (
	// ErrNotFound is returned when an object does not exist.
	ErrNotFound = errors.New("object not found")
	// ErrDisabled is returned by uploads when no backend is configured.
	ErrDisabled = errors.New("object storage disabled")
)

// metaFilename is the object metadata key holding the uploaded file name.
const metaFilename = "original-filename"

// ObjectMeta is stored alongside an object's content.
type ObjectMeta struct {
	ContentType string
	// Filename is the name the file was uploaded under, without directories.
	Filename string
}

// Object is a stored file opened for reading. The caller closes Body.
type Object struct {
	ObjectMeta
	Body io.ReadCloser
	// Size is -1 when the backend does not report it.
	Size int64
}

// ObjectStorage defines common object operations across backends.
type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, meta ObjectMeta) error
	Open(ctx context.Context, key string) (*Object, error)
	Delete(ctx context.Context, key string) error
}

// Storage wraps an ObjectStorage backend with the upload naming scheme.
// A Storage with a nil backend rejects every operation with ErrDisabled.
type Storage struct {
	backend ObjectStorage
}

// NewStorage constructs a Storage wrapper for the provided backend.
func NewStorage(backend ObjectStorage) *Storage {
	return &Storage{backend: backend}
}

// Open builds the backend selected by cfg.Backend and makes sure its bucket exists.
func Open(ctx context.Context, cfg config.StorageConfig) (*Storage, error) {
	var (
		backend ObjectStorage
		err     error
	)
	switch cfg.Backend {
	case "minio":
		backend, err = NewMinioClient(cfg.Minio)
	case "gcs":
		backend, err = NewGCSClient(ctx, cfg.GCS)
	case "none", "":
		return NewStorage(nil), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("init %s storage: %w", cfg.Backend, err)
	}
	if err := backend.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("ensure %s bucket: %w", cfg.Backend, err)
	}
	return NewStorage(backend), nil
}

// Enabled reports whether a backend is configured.
func (s *Storage) Enabled() bool {
	return s != nil && s.backend != nil
}

// ObjectKey returns a fresh key "<namespace>/<uuid><ext>" keeping the
// extension of filename.
func ObjectKey(namespace, filename string) string {
	ext := strings.ToLower(path.Ext(baseName(filename)))
	return namespace + "/" + uuid.NewString() + ext
}

// baseName strips client-side directories, Windows ones included.
func baseName(filename string) string {
	name := path.Base(strings.ReplaceAll(filename, `\`, "/"))
	if name == "." || name == "/" {
		return ""
	}
	return name
}

// Upload stores r under a fresh key in namespace and returns the key.
func (s *Storage) Upload(ctx context.Context, namespace, filename string, r io.Reader, size int64, contentType string) (string, error) {
	if !s.Enabled() {
		return "", ErrDisabled
	}
	key := ObjectKey(namespace, filename)
	meta := ObjectMeta{ContentType: contentType, Filename: baseName(filename)}
	if err := s.backend.Put(ctx, key, r, size, meta); err != nil {
		return "", fmt.Errorf("put %s: %w", key, err)
	}
	return key, nil
}

// Open returns the object stored under key with its metadata.
func (s *Storage) Open(ctx context.Context, key string) (*Object, error) {
	if !s.Enabled() {
		return nil, ErrNotFound
	}
	return s.backend.Open(ctx, key)
}

// Delete removes an object. Deleting with storage disabled is a no-op.
func (s *Storage) Delete(ctx context.Context, key string) error {
	if !s.Enabled() || key == "" {
		return nil
	}
	return s.backend.Delete(ctx, key)
}
