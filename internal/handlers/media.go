package handlers

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/reseau-affaires/apiserver/internal/storage"
)

// ObjectReader is satisfied by *storage.Storage.
type ObjectReader interface {
	Open(ctx context.Context, key string) (*storage.Object, error)
}

// inlineTypes may render in the browser. Every other upload, HTML and SVG
// included, is served as a download.
var inlineTypes = map[string]bool{
	"application/pdf": true,
	"image/gif":       true,
	"image/jpeg":      true,
	"image/png":       true,
	"image/webp":      true,
	"text/plain":      true,
}

func disposition(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err == nil && inlineTypes[strings.ToLower(mediaType)] {
		return "inline"
	}
	return "attachment"
}

// MediaRouter serves stored attachments and images under their key.
func MediaRouter(r chi.Router, objects ObjectReader) {
	r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimPrefix(path.Clean("/"+chi.URLParam(r, "*")), "/")
		if key == "" {
			writeError(w, http.StatusNotFound, "not found")
			return
		}

		obj, err := objects.Open(r.Context(), key)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				writeError(w, http.StatusNotFound, "not found")
				return
			}
			writeServiceError(w, r, err)
			return
		}
		defer obj.Body.Close()

		contentType := obj.ContentType
		if contentType == "" || contentType == "application/octet-stream" {
			if byExt := mime.TypeByExtension(path.Ext(key)); byExt != "" {
				contentType = byExt
			}
		}
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		w.Header().Set("Content-Type", contentType)
		if obj.Size >= 0 {
			w.Header().Set("Content-Length", strconv.FormatInt(obj.Size, 10))
		}
		w.Header().Set("X-Content-Type-Options", "nosniff")
		filename := obj.Filename
		if filename == "" {
			filename = path.Base(key)
		}
		w.Header().Set("Content-Disposition", mime.FormatMediaType(disposition(contentType), map[string]string{"filename": filename}))
		w.WriteHeader(http.StatusOK)
		_, _ = io.Copy(w, obj.Body)
	})
}
