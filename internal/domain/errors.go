package domain

import (
	"errors"
	"fmt"
)

var (
	ErrOverlap            = errors.New("laboratory is not available for the selected time range")
	ErrBookingNotFound    = errors.New("booking not found or already cancelled")
	ErrLaboratoryNotFound = errors.New("laboratory not found")
)

// Validation failure codes, in the order they are checked.
const (
	CodeMissing = "missing"
	CodeFormat  = "format"
	CodePast    = "past"
	CodeRange   = "range"
)

// ValidationError reports the first invalid field of a request.
type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError builds a ValidationError.
func NewValidationError(field, code, message string) *ValidationError {
	return &ValidationError{Field: field, Code: code, Message: message}
}

// AsValidation unwraps err into a ValidationError if it is one.
func AsValidation(err error) (*ValidationError, bool) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}
