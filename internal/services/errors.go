package services

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountInactive    = errors.New("account inactive")
)

// ValidationError reports invalid input, keyed by JSON field path
// ("user.username", "tags").
type ValidationError struct {
	Fields map[string]string
}

func newValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for key := range e.Fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, key+": "+e.Fields[key])
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

// prefixed returns a copy with every field nested under prefix.
func (e *ValidationError) prefixed(prefix string) *ValidationError {
	fields := make(map[string]string, len(e.Fields))
	for key, message := range e.Fields {
		fields[prefix+"."+key] = message
	}
	return &ValidationError{Fields: fields}
}
