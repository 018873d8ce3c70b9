package app

import "errors"

var (
	// ErrDocumentNotFound indicates no document exists for the requested id.
	ErrDocumentNotFound = errors.New("document not found")
)

// ValidationError is a rejected caller input. Message is safe to show.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func invalid(msg string) error { return &ValidationError{Message: msg} }

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
