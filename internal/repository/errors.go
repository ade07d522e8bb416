// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios. For
// example, ErrForbidden indicates that the current user is not
// authorized to touch a count owned by someone else, while ErrConflict
// signals that an operation cannot proceed because of existing state
// (duplicate session name, second reconciliation for the same article).
package repository

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when a session, article, count or result
// identity does not resolve. Handlers translate this into HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own and they are not privileged. Handlers
// translate this into HTTP 403.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when an insert collides with existing state,
// such as creating a session whose name is taken or reconciling an
// article twice. Handlers translate this into HTTP 409.
var ErrConflict = errors.New("conflict")

// ErrInvalidState is returned when a mutation targets a session in the
// wrong state, e.g. submitting a count against a closed session or
// reopening a finalized one. Handlers translate this into HTTP 422.
var ErrInvalidState = errors.New("invalid state")

// ValidationError carries the failing field so the caller can surface it.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string { return fmt.Sprintf("%s: %s", e.Field, e.Msg) }

// Validationf builds a ValidationError for a field.
func Validationf(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Msg: fmt.Sprintf(format, args...)}
}

// isDuplicateKey reports whether err is a MySQL duplicate-key violation
// (error 1062). Repositories use it to turn unique-index collisions into
// domain conflicts.
func isDuplicateKey(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "1062")
}

// isForeignKey reports whether err is a MySQL foreign-key violation
// (error 1451/1452), e.g. deleting an article still referenced by counts.
func isForeignKey(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "1451") || strings.Contains(msg, "1452")
}
