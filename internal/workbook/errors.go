package workbook

import (
	"errors"
	"fmt"
)

// ErrUnsafeFilter is returned when a filter identifier or value cannot be
// embedded in a formula without changing its meaning.
var ErrUnsafeFilter = errors.New("unsafe filter")

// ConfigurationError reports a workbook whose shape does not match what the
// exporter expects: a missing table or a drifted column.
type ConfigurationError struct {
	Table  string
	Detail string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: table %q: %s", e.Table, e.Detail)
}

// RemoteQueryError wraps a failed call to the workbook API.
type RemoteQueryError struct {
	Op    string
	Table string
	Err   error
}

func (e *RemoteQueryError) Error() string {
	if e.Table == "" {
		return fmt.Sprintf("workbook %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("workbook %s %q: %v", e.Op, e.Table, e.Err)
}

func (e *RemoteQueryError) Unwrap() error { return e.Err }

// APIError is a non-2xx response from the workbook API.
type APIError struct {
	StatusCode int
	Type       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("status %d: %s: %s", e.StatusCode, e.Type, e.Message)
}
