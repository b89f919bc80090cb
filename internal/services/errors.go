package services

import (
	"errors"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// HTTPError is implemented by every error a service returns to a handler.
type HTTPError interface {
	error
	StatusCode() int
}

var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrServer     = errors.New("server error")
)

type (
	// ValidationError is malformed or missing input.
	ValidationError struct {
		Message string
	}

	// NotFoundError means the entity is absent or not owned by the caller.
	NotFoundError struct {
		Message string
	}

	// ConflictError is a uniqueness or structural constraint violation.
	// Status defaults to 400 to match the folder API contract.
	ConflictError struct {
		Message string
		Status  int
	}

	// ServerError wraps a store or filesystem failure. Cause is logged but
	// never sent to clients.
	ServerError struct {
		Message string
		Cause   error
	}
)

func (e *ValidationError) Error() string { return e.Message }
func (e *NotFoundError) Error() string   { return e.Message }
func (e *ConflictError) Error() string   { return e.Message }

func (e *ServerError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ValidationError) StatusCode() int { return http.StatusBadRequest }
func (e *NotFoundError) StatusCode() int   { return http.StatusNotFound }
func (e *ServerError) StatusCode() int     { return http.StatusInternalServerError }

func (e *ConflictError) StatusCode() int {
	if e.Status != 0 {
		return e.Status
	}
	return http.StatusBadRequest
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }
func (e *NotFoundError) Is(target error) bool   { return target == ErrNotFound }
func (e *ConflictError) Is(target error) bool   { return target == ErrConflict }
func (e *ServerError) Is(target error) bool     { return target == ErrServer }

func (e *ServerError) Unwrap() error { return e.Cause }

// PublicMessage is the client-facing text for err. Unknown errors collapse to
// a generic message.
func PublicMessage(err error) (int, string) {
	var serverErr *ServerError
	if errors.As(err, &serverErr) {
		return serverErr.StatusCode(), serverErr.Message
	}
	var httpErr HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode(), httpErr.Error()
	}
	return http.StatusInternalServerError, "Server error"
}

// IsUniqueViolation recognises a uniqueness failure from any supported store.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
