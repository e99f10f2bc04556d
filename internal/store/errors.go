package store

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a write violates a uniqueness or
// referential constraint.
var ErrConflict = errors.New("conflict")

// ConflictError carries the violated constraint. It matches ErrConflict.
type ConflictError struct {
	Constraint string
	Detail     string
}

func (e *ConflictError) Error() string {
	if e.Constraint == "" {
		return ErrConflict.Error()
	}
	return fmt.Sprintf("conflict on %s", e.Constraint)
}

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
	pqCheckViolation      = "23514"
)

// mapError translates driver constraint violations to store errors.
func mapError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch pqErr.Code {
	case pqUniqueViolation, pqForeignKeyViolation, pqCheckViolation:
		return &ConflictError{Constraint: pqErr.Constraint, Detail: pqErr.Detail}
	}
	return err
}
