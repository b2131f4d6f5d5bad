// Package apierror provides the error kinds used across the service and the
// envelope every 4xx/5xx HTTP response is written in. Internal causes
// (driver errors, stack traces) are never copied into the envelope.
package apierror

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
type APIError struct {
	Detail string `json:"detail"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

// BindingError wraps per-field request binding failures.
type BindingError struct {
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields"`
}

func NewBinding(fields map[string]string) *BindingError {
	return &BindingError{Detail: "validation failed", Fields: fields}
}
