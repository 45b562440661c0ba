package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/stemsi/quizhub-backend/internal/repository"
)

// Domain errors. Handlers map each onto an HTTP status and response.ErrCode.
var (
	// Authentication
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrPendingApproval    = errors.New("account pending approval")
	ErrInvalidToken       = errors.New("invalid or expired token")

	// Authorization
	ErrForbidden                 = errors.New("forbidden")
	ErrNotQuizAuthor             = errors.New("not the author of this quiz")
	ErrNotResultOwner            = errors.New("result belongs to another account")
	ErrTooEarly                  = errors.New("results are not available before the quiz ends")
	ErrAdminRegistrationDisabled = errors.New("admin self-registration is disabled")

	// Resources
	ErrNotFound         = errors.New("not found")
	ErrRollNumberTaken  = errors.New("roll number already registered")
	ErrAlreadySubmitted = errors.New("result already submitted for this quiz")

	// Scheduling window
	ErrQuizNotStarted = errors.New("quiz has not started")
	ErrQuizEnded      = errors.New("quiz has ended")

	// Media
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrFileTooLarge        = errors.New("file too large")
)

// ValidationError carries per-field messages for input the binding layer cannot check.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func newValidationError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

// BatchError aggregates per-item failures of a batch operation. Items not listed succeeded.
type BatchError struct {
	Failures map[uuid.UUID]error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("%d item(s) failed", len(e.Failures))
}

// AllNotFound reports whether every failure is ErrNotFound.
func (e *BatchError) AllNotFound() bool {
	for _, err := range e.Failures {
		if !errors.Is(err, ErrNotFound) {
			return false
		}
	}
	return len(e.Failures) > 0
}

// notFoundOr maps repository.ErrNotFound to ErrNotFound and wraps anything else with op.
func notFoundOr(err error, op string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}
