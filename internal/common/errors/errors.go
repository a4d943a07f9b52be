// Package errors provides the standardized error taxonomy for the distribution engine
// and its BPMN job workers.
package errors

import (
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Resolution
	ErrCodeDirectoryLookupFailed  ErrorCode = "DIRECTORY_LOOKUP_FAILED"
	ErrCodeSeriesResolutionFailed ErrorCode = "SERIES_RESOLUTION_FAILED"

	// Validation
	ErrCodeAllocationValidationFailed ErrorCode = "ALLOCATION_VALIDATION_FAILED"
	ErrCodeRequiredFieldMissing       ErrorCode = "REQUIRED_FIELD_MISSING"
	ErrCodeReadOnlyField              ErrorCode = "READ_ONLY_FIELD"
	ErrCodeParseError                 ErrorCode = "PARSE_ERROR"

	// Submission
	ErrCodeSubmissionFailed     ErrorCode = "SUBMISSION_FAILED"
	ErrCodeSubmissionInProgress ErrorCode = "SUBMISSION_IN_PROGRESS"

	// Fatal / programmer errors
	ErrCodeUnknownFormType ErrorCode = "UNKNOWN_FORM_TYPE"
	ErrCodeMissingEditID   ErrorCode = "MISSING_EDIT_ID"
	ErrCodeUnknownField    ErrorCode = "UNKNOWN_FIELD"
	ErrCodeInvalidSession  ErrorCode = "INVALID_SESSION"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

// NewDirectoryLookupFailedError creates a retryable directory read error.
func NewDirectoryLookupFailedError(path string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDirectoryLookupFailed,
		Message:   "Directory lookup failed",
		Details:   fmt.Sprintf("path: %s, error: %s", path, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewSeriesResolutionFailedError creates a retryable series lookup error.
func NewSeriesResolutionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSeriesResolutionFailed,
		Message:   "Application series lookup failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewAllocationValidationFailedError carries the per-field messages in Metadata.
func NewAllocationValidationFailedError(fieldErrors map[string]string) *StandardError {
	meta := make(map[string]interface{}, len(fieldErrors))
	parts := make([]string, 0, len(fieldErrors))
	for field, msg := range fieldErrors {
		meta[field] = msg
		parts = append(parts, fmt.Sprintf("%s: %s", field, msg))
	}
	sort.Strings(parts)
	return &StandardError{
		Code:      ErrCodeAllocationValidationFailed,
		Message:   "Allocation is not valid",
		Details:   strings.Join(parts, "; "),
		Retryable: false,
		Metadata:  meta,
		Timestamp: time.Now().UTC(),
	}
}

// NewRequiredFieldMissingError is raised when an id-bearing field has no resolved id.
func NewRequiredFieldMissingError(field string) *StandardError {
	return &StandardError{
		Code:      ErrCodeRequiredFieldMissing,
		Message:   fmt.Sprintf("%s is required", field),
		Details:   fmt.Sprintf("field: %s", field),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewReadOnlyFieldError(field string) *StandardError {
	return &StandardError{
		Code:      ErrCodeReadOnlyField,
		Message:   fmt.Sprintf("%s is computed and cannot be edited", field),
		Details:   fmt.Sprintf("field: %s", field),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewParseError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeParseError,
		Message:   "Failed to parse input",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewSubmissionFailedError keeps the backend text verbatim as Message.
func NewSubmissionFailedError(status int, message string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSubmissionFailed,
		Message:   message,
		Details:   fmt.Sprintf("status: %d", status),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewSubmissionInProgressError() *StandardError {
	return &StandardError{
		Code:      ErrCodeSubmissionInProgress,
		Message:   "A submission is already in progress",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewUnknownFormTypeError(formType string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUnknownFormType,
		Message:   fmt.Sprintf("Unknown form type: %q", formType),
		Details:   "expected one of zone, dgm, campus",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewMissingEditIDError() *StandardError {
	return &StandardError{
		Code:      ErrCodeMissingEditID,
		Message:   "Missing editId for update call",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewUnknownFieldError(field string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUnknownField,
		Message:   fmt.Sprintf("Unknown field: %q", field),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewInvalidSessionError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidSession,
		Message:   "Session context is not valid for this form",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// BPMNErrorMapping maps internal error codes to the BPMN error codes caught by boundary events.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeDirectoryLookupFailed:      "DIRECTORY_LOOKUP_FAILED",
	ErrCodeSeriesResolutionFailed:     "SERIES_RESOLUTION_FAILED",
	ErrCodeAllocationValidationFailed: "ALLOCATION_INVALID",
	ErrCodeRequiredFieldMissing:       "ALLOCATION_INVALID",
	ErrCodeParseError:                 "PARSE_ERROR",
	ErrCodeSubmissionFailed:           "SUBMISSION_FAILED",
	ErrCodeUnknownFormType:            "FATAL_ERROR",
	ErrCodeMissingEditID:              "FATAL_ERROR",
}

// GetRetryCount returns the recommended job retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDirectoryLookupFailed,
		ErrCodeSeriesResolutionFailed:
		return 3

	case ErrCodeSubmissionFailed:
		// operator-facing: retries are manual once the backend has answered
		return 1

	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      bpmnCode,
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory maps a code onto RESOLUTION, VALIDATION, SUBMISSION or FATAL.
func GetErrorCategory(code ErrorCode) string {
	switch code {
	case ErrCodeDirectoryLookupFailed, ErrCodeSeriesResolutionFailed:
		return "RESOLUTION"
	case ErrCodeAllocationValidationFailed, ErrCodeRequiredFieldMissing,
		ErrCodeReadOnlyField, ErrCodeParseError:
		return "VALIDATION"
	case ErrCodeSubmissionFailed, ErrCodeSubmissionInProgress:
		return "SUBMISSION"
	case ErrCodeUnknownFormType, ErrCodeMissingEditID, ErrCodeUnknownField, ErrCodeInvalidSession:
		return "FATAL"
	default:
		return "OTHER"
	}
}

// AsStandard unwraps err into a *StandardError.
func AsStandard(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// HasCode reports whether err is a StandardError with the given code.
func HasCode(err error, code ErrorCode) bool {
	stdErr, ok := AsStandard(err)
	return ok && stdErr.Code == code
}

// IsFatal reports programmer errors that must never be retried.
func IsFatal(err error) bool {
	stdErr, ok := AsStandard(err)
	return ok && GetErrorCategory(stdErr.Code) == "FATAL"
}
