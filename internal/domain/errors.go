package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrQuizNotFound indicates an unknown quiz id, or that no quiz exists yet.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrSubmissionNotFound indicates no submission exists for a
	// (participant, quiz) key.
	ErrSubmissionNotFound = errors.New("submission not found")
	// ErrUserNotFound indicates an unknown user id.
	ErrUserNotFound = errors.New("user not found")
	// ErrEmailTaken is returned when registering with an email already in use.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidCredentials covers both unknown email and wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthorized is returned when an anonymous actor invokes an
	// operation that requires identity.
	ErrUnauthorized = errors.New("authentication required")
	// ErrForbidden is returned when the access policy denies the operation
	// for the actor's role or the quiz's phase.
	ErrForbidden = errors.New("operation not permitted")
	// ErrQuizClosed is returned when a participant submits after the deadline.
	ErrQuizClosed = errors.New("quiz is closed")
	// ErrConfirmRequired is returned when editing a quiz that already has
	// submissions without the explicit confirmation flag.
	ErrConfirmRequired = errors.New("quiz has submissions, confirmation required")
)

// ValidationError marks malformed input. It is always recoverable and is
// surfaced to the caller without retry.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Validationf builds a ValidationError for the given field.
func Validationf(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
