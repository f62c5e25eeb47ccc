// Package errors provides structured error handling for surfacesync operations.
// It defines error codes, error types, and provides utilities for creating
// and handling errors with context and structured information.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// ErrorCode represents different types of errors that can occur.
type ErrorCode string

const (
	// General errors.
	CodeUnknown       ErrorCode = "UNKNOWN"
	CodeValidation    ErrorCode = "VALIDATION"
	CodeConfiguration ErrorCode = "CONFIGURATION"

	// Report errors.
	CodeMalformedReport  ErrorCode = "MALFORMED_REPORT"
	CodeReportUnreadable ErrorCode = "REPORT_UNREADABLE"
	CodeMissingAddress   ErrorCode = "MISSING_ADDRESS"
	CodeScanFailed       ErrorCode = "SCAN_FAILED"

	// Store errors.
	CodeStoreUnavailable    ErrorCode = "STORE_UNAVAILABLE"
	CodeDuplicateHostname   ErrorCode = "DUPLICATE_HOSTNAME"
	CodeBatchRejected       ErrorCode = "BATCH_REJECTED"
	CodeBatchPartialFailure ErrorCode = "BATCH_PARTIAL_FAILURE"
)

// IngestError represents an error that occurred while ingesting a report.
type IngestError struct {
	Code     ErrorCode
	Message  string
	Hostname string
	Cause    error
	Context  map[string]interface{}
}

// Error implements the error interface.
func (e *IngestError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Hostname != "" {
		msg = fmt.Sprintf("%s (hostname: %s)", msg, e.Hostname)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying error for error unwrapping.
func (e *IngestError) Unwrap() error {
	return e.Cause
}

// WithContext adds context information to the error.
func (e *IngestError) WithContext(key string, value interface{}) *IngestError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithHostname records the host the error relates to.
func (e *IngestError) WithHostname(hostname string) *IngestError {
	e.Hostname = hostname
	return e
}

// NewIngestError creates a new ingest error with the specified code and message.
func NewIngestError(code ErrorCode, message string) *IngestError {
	return &IngestError{
		Code:    code,
		Message: message,
		Context: make(map[string]interface{}),
	}
}

// WrapIngestError wraps an existing error as an ingest error.
func WrapIngestError(code ErrorCode, message string, err error) *IngestError {
	return &IngestError{
		Code:    code,
		Message: message,
		Cause:   err,
		Context: make(map[string]interface{}),
	}
}

// BulkItemFailure describes one bulk item the store refused.
type BulkItemFailure struct {
	Position int
	Action   string
	ID       string
	Status   int
	Type     string
	Reason   string
}

// BatchPartialFailureError is returned when the store accepted the bulk
// request but rejected some of its items.
type BatchPartialFailureError struct {
	Total int
	Items []BulkItemFailure
}

// Error implements the error interface.
func (e *BatchPartialFailureError) Error() string {
	parts := make([]string, 0, len(e.Items))
	for _, item := range e.Items {
		parts = append(parts, fmt.Sprintf("#%d %s %s: %s (%s)", item.Position, item.Action, item.ID, item.Reason, item.Type))
	}
	return fmt.Sprintf("[%s] %d of %d bulk items failed: %s",
		CodeBatchPartialFailure, len(e.Items), e.Total, strings.Join(parts, "; "))
}

// ConfigError represents configuration-related errors.
type ConfigError struct {
	Code    ErrorCode
	Message string
	Field   string
	Value   interface{}
	Cause   error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("[%s] %s (field: %s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// NewConfigFieldError creates a configuration error for a specific field.
func NewConfigFieldError(code ErrorCode, message, field string, value interface{}) *ConfigError {
	return &ConfigError{
		Code:    code,
		Message: message,
		Field:   field,
		Value:   value,
	}
}

// WrapConfigError wraps an existing error as a configuration error.
func WrapConfigError(code ErrorCode, message string, err error) *ConfigError {
	return &ConfigError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Utility functions for common error operations

// GetCode extracts the error code from an error chain if it has one.
func GetCode(err error) ErrorCode {
	var ingestErr *IngestError
	if stderrors.As(err, &ingestErr) {
		return ingestErr.Code
	}
	var partial *BatchPartialFailureError
	if stderrors.As(err, &partial) {
		return CodeBatchPartialFailure
	}
	var cfgErr *ConfigError
	if stderrors.As(err, &cfgErr) {
		return cfgErr.Code
	}
	return CodeUnknown
}

// IsCode checks if an error has a specific error code.
func IsCode(err error, code ErrorCode) bool {
	return err != nil && GetCode(err) == code
}

// Common error creation functions

// ErrMalformedReport creates an error for a report that is not well-formed XML.
func ErrMalformedReport(path string, err error) *IngestError {
	return WrapIngestError(CodeMalformedReport, "scan report is not well-formed", err).WithContext("path", path)
}

// ErrReportUnreadable creates an error for a report file that cannot be read.
func ErrReportUnreadable(path string, err error) *IngestError {
	return WrapIngestError(CodeReportUnreadable, "cannot read scan report", err).WithContext("path", path)
}

// ErrMissingAddress creates an error for a host entry without an address.
func ErrMissingAddress(hostname string, position int) *IngestError {
	return NewIngestError(CodeMissingAddress, "host entry has no address").
		WithHostname(hostname).
		WithContext("position", position)
}

// ErrStoreUnavailable creates an error for a transport failure talking to the store.
func ErrStoreUnavailable(operation string, err error) *IngestError {
	return WrapIngestError(CodeStoreUnavailable, "document store unavailable", err).WithContext("operation", operation)
}

// ErrDuplicateHostname creates an error for a hostname matching several documents.
func ErrDuplicateHostname(hostname string, total int64) *IngestError {
	return NewIngestError(CodeDuplicateHostname, fmt.Sprintf("%d documents match hostname", total)).
		WithHostname(hostname).
		WithContext("total", total)
}

// ErrBatchRejected creates an error for a bulk request answered with a non-200 status.
func ErrBatchRejected(status int, body string) *IngestError {
	return NewIngestError(CodeBatchRejected, fmt.Sprintf("bulk request returned status %d", status)).
		WithContext("status", status).
		WithContext("body", body)
}

// ErrConfigInvalid creates an error for invalid configuration.
func ErrConfigInvalid(field string, value interface{}) *ConfigError {
	return NewConfigFieldError(CodeValidation, "Invalid configuration value", field, value)
}

// ErrConfigMissing creates an error for missing required configuration.
func ErrConfigMissing(field string) *ConfigError {
	return NewConfigFieldError(CodeConfiguration, "Required configuration field missing", field, nil)
}
