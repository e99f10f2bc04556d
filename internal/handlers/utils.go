package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/reseau-affaires/apiserver/internal/authz"
	"github.com/reseau-affaires/apiserver/internal/services"
	"github.com/reseau-affaires/apiserver/internal/storage"
	"github.com/reseau-affaires/apiserver/internal/store"
	"github.com/reseau-affaires/apiserver/types"
)

const (
	defaultPage        = 1
	defaultLimit       = 20
	maxLimit           = 100
	maxMultipartMemory = 32 << 20
	maxJSONBytes       = 1 << 20
)

type contextKey string

const contextActorKey contextKey = "actor"

func withActor(ctx context.Context, actor authz.Actor) context.Context {
	return context.WithValue(ctx, contextActorKey, actor)
}

// actorFromContext returns the caller resolved by the authentication
// middleware, or the anonymous actor.
func actorFromContext(ctx context.Context) authz.Actor {
	actor, ok := ctx.Value(contextActorKey).(authz.Actor)
	if !ok {
		return authz.Anonymous
	}
	return actor
}

// ErrorResponse is the error payload. Fields maps JSON field paths to
// messages for invalid input.
type ErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// ListResponse is the paginated list response payload.
type ListResponse[T any] struct {
	Items []T `json:"items"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

func newListResponse[T any](items []T, page, limit int) ListResponse[T] {
	if items == nil {
		items = []T{}
	}
	return ListResponse[T]{Items: items, Page: page, Limit: limit}
}

// Healthz reports liveness.
func Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

func writeValidationError(w http.ResponseWriter, err *services.ValidationError) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid input", Fields: err.Fields})
}

// writeServiceError maps the service error taxonomy to a status code.
// Unexpected errors are logged and reported as 500 without detail.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *services.ValidationError
	var choiceErr *types.InvalidChoiceError
	switch {
	case errors.As(err, &validationErr):
		writeValidationError(w, validationErr)
	case errors.As(err, &choiceErr):
		writeError(w, http.StatusBadRequest, choiceErr.Error())
	case errors.Is(err, authz.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, "authentication required")
	case errors.Is(err, authz.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, services.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, services.ErrAccountInactive):
		writeError(w, http.StatusUnauthorized, "account inactive")
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, store.ErrConflict):
		writeError(w, http.StatusConflict, "integrity error")
	case errors.Is(err, storage.ErrDisabled):
		writeError(w, http.StatusBadRequest, "file uploads are disabled")
	default:
		slog.ErrorContext(r.Context(), "request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Any("error", err),
		)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func parsePagination(r *http.Request) (page, limit, offset int, err error) {
	page = defaultPage
	limit = defaultLimit

	if raw := strings.TrimSpace(r.URL.Query().Get("page")); raw != "" {
		page, err = strconv.Atoi(raw)
		if err != nil || page < 1 {
			return 0, 0, 0, errors.New("invalid page")
		}
	}

	rawLimit := strings.TrimSpace(r.URL.Query().Get("limit"))
	if rawLimit == "" {
		rawLimit = strings.TrimSpace(r.URL.Query().Get("per_page"))
	}
	if rawLimit != "" {
		limit, err = strconv.Atoi(rawLimit)
		if err != nil || limit < 1 {
			return 0, 0, 0, errors.New("invalid limit")
		}
	}

	if limit > maxLimit {
		limit = maxLimit
	}

	offset = (page - 1) * limit
	return page, limit, offset, nil
}

func parseID(r *http.Request, param string) (int, error) {
	raw := chi.URLParam(r, param)
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid %s", param)
	}
	return id, nil
}

var (
	dateType      = reflect.TypeOf((*types.Date)(nil)).Elem()
	timeOfDayType = reflect.TypeOf((*types.TimeOfDay)(nil)).Elem()
	choiceType    = reflect.TypeOf((*interface{ Valid() bool })(nil)).Elem()
)

// decodeJSON reads a JSON body into v. Type mismatches, unknown choices
// and malformed dates or times are reported as field errors.
func decodeJSON(r *http.Request, v any) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxJSONBytes)).Decode(v)
	if err == nil {
		return nil
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return &services.ValidationError{Fields: map[string]string{
			typeErr.Field: typeErrorMessage(typeErr),
		}}
	}
	if errors.Is(err, io.EOF) {
		return errors.New("empty request body")
	}
	return errors.New("invalid request body")
}

func typeErrorMessage(err *json.UnmarshalTypeError) string {
	switch {
	case err.Type == dateType:
		return "Date has wrong format. Use one of these formats instead: YYYY-MM-DD."
	case err.Type == timeOfDayType:
		return "Time has wrong format. Use one of these formats instead: hh:mm[:ss]."
	case err.Type.Implements(choiceType):
		return fmt.Sprintf("%s is not a valid choice.", err.Value)
	default:
		return fmt.Sprintf("Expected a %s value.", err.Type.Kind())
	}
}

// writeDecodeError reports a body decoding failure as a 400.
func writeDecodeError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *services.ValidationError
	if errors.As(err, &validationErr) {
		writeValidationError(w, validationErr)
		return
	}
	writeError(w, http.StatusBadRequest, err.Error())
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

// formValue returns the trimmed value of a multipart field and whether
// the field was sent at all.
func formValue(r *http.Request, field string) (string, bool) {
	if r.MultipartForm == nil {
		return "", false
	}
	values, ok := r.MultipartForm.Value[field]
	if !ok || len(values) == 0 {
		return "", false
	}
	return strings.TrimSpace(values[0]), true
}

func formString(r *http.Request, field string) *string {
	value, ok := formValue(r, field)
	if !ok {
		return nil
	}
	return &value
}

// readUpload opens the file sent in field. It returns a nil upload when
// the field is absent. The caller closes the returned file.
func readUpload(r *http.Request, field string, maxBytes int64) (*services.Upload, io.Closer, error) {
	if r.MultipartForm == nil {
		return nil, nil, nil
	}
	files := r.MultipartForm.File[field]
	if len(files) == 0 {
		return nil, nil, nil
	}
	if len(files) > 1 {
		return nil, nil, &services.ValidationError{Fields: map[string]string{field: "Only one file is allowed."}}
	}

	header := files[0]
	if maxBytes > 0 && header.Size > maxBytes {
		return nil, nil, &services.ValidationError{Fields: map[string]string{
			field: fmt.Sprintf("File exceeds %d bytes.", maxBytes),
		}}
	}
	file, err := header.Open()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read %s file: %w", field, err)
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return &services.Upload{
		Filename:    header.Filename,
		ContentType: contentType,
		Size:        header.Size,
		Body:        file,
	}, file, nil
}

func closeQuietly(c io.Closer) {
	if c != nil {
		_ = c.Close()
	}
}

// absoluteURL builds the public URL of a stored object from the request
// scheme and host.
func absoluteURL(r *http.Request, key string) *string {
	if key == "" {
		return nil
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := strings.TrimSpace(strings.Split(r.Header.Get("X-Forwarded-Proto"), ",")[0]); proto != "" {
		scheme = strings.ToLower(proto)
	}
	url := scheme + "://" + r.Host + "/media/" + key
	return &url
}
