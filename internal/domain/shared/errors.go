package shared

import "errors"

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap returns the underlying cause
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a DomainError with the same code.
// This lets callers match a detailed error against the taxonomy sentinels.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WrapDomainError creates a domain error carrying an underlying cause
func WrapDomainError(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Error codes
const (
	CodeValidation       = "VALIDATION_ERROR"
	CodeNotFound         = "NOT_FOUND"
	CodeFeedGeneration   = "FEED_GENERATION_ERROR"
	CodeDelivery         = "DELIVERY_ERROR"
	CodeConfiguration    = "CONFIGURATION_ERROR"
	CodeIngestionPayload = "INGESTION_PAYLOAD_ERROR"
	CodeConflict         = "CONFLICT"
	CodeStorage          = "STORAGE_ERROR"
)

// Error taxonomy sentinels. Match with errors.Is.
var (
	ErrValidation       = NewDomainError(CodeValidation, "Validation failed")
	ErrNotFound         = NewDomainError(CodeNotFound, "Resource not found")
	ErrFeedGeneration   = NewDomainError(CodeFeedGeneration, "Feed generation failed")
	ErrDelivery         = NewDomainError(CodeDelivery, "Feed delivery failed")
	ErrConfiguration    = NewDomainError(CodeConfiguration, "Configuration error")
	ErrIngestionPayload = NewDomainError(CodeIngestionPayload, "Malformed ingestion payload")
	ErrConflict         = NewDomainError(CodeConflict, "Resource was modified by another process")
	ErrStorage          = NewDomainError(CodeStorage, "Feed storage failed")
)

// NewValidationError creates a validation error with a specific message
func NewValidationError(message string) *DomainError {
	return NewDomainError(CodeValidation, message)
}

// NewNotFoundError creates a not found error with a specific message
func NewNotFoundError(message string) *DomainError {
	return NewDomainError(CodeNotFound, message)
}

// NewConfigurationError creates a configuration error with a specific message
func NewConfigurationError(message string) *DomainError {
	return NewDomainError(CodeConfiguration, message)
}

// ErrorCode extracts the domain error code from err, or "" when err is not a DomainError
func ErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}
