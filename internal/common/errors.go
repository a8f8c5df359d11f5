package common

import (
	"errors"
	"fmt"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Engine error taxonomy. The orchestrator matches these with errors.Is
// when deciding the terminal failure reason for a document.
var (
	// ErrVendorUnresolved: the classification call returned no usable
	// vendor name for the document's first page.
	ErrVendorUnresolved = errors.New("vendor unresolved")

	// ErrTemplateNotFound: no template persisted for a vendor key.
	// Not a failure; it signals the orchestrator to learn one.
	ErrTemplateNotFound = errors.New("template not found")

	// ErrTemplateIncomplete: structural analysis came back without the
	// minimum field floor (invoice number, a date field, a total).
	ErrTemplateIncomplete = errors.New("template incomplete")

	// ErrExtractionFailed: the extraction call errored or returned data
	// that cannot be parsed into the invoice shape. Retryable up to the
	// configured bound.
	ErrExtractionFailed = errors.New("extraction failed")

	// ErrCallBudgetExceeded: admission wait on the shared call budget
	// outlasted its timeout. Distinct from extraction failure.
	ErrCallBudgetExceeded = errors.New("call budget exceeded")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
