package core

import "github.com/pkg/errors"

// FieldError reports a request failure tied to a single input field, e.g.
// "email": "a user with this email already exists".
type FieldError struct {
	Field string
	Error string
}

// ValidationError is the error the API maps to a 400 response. Err may be
// nil when the failure is fully described by Fields.
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{Err: err, Fields: flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// shutdown signals an unrecoverable state, such as a lost database
// connection. The API's error handler turns it into a graceful stop.
type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

// IsShutdown checks if an error chain bottoms out in a shutdown error.
func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
