package service

import (
	"errors"
	"fmt"

	"github.com/grahaedukasi/graha-cbt/internal/schedule"
)

// Common service errors.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrStudentNotFound    = errors.New("student not found")
	ErrQuestionNotFound   = errors.New("question not found")
	ErrSessionNotFound    = errors.New("no live exam session for student")
	ErrNotCompleted       = errors.New("exam not completed yet")
	ErrInvalidImport      = errors.New("import file is not a valid array")
)

// ValidationError rejects an authoring input. Message is shown to the admin.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// ScheduleDeniedError is returned when the schedule gate refuses a login.
type ScheduleDeniedError struct {
	Decision schedule.Decision
}

func (e *ScheduleDeniedError) Error() string {
	return fmt.Sprintf("login denied: %s", e.Decision.Reason)
}
