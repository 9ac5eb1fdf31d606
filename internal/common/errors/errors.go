// Package errors provides the standardized error taxonomy for the command pipeline.
package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Validation errors: bad envelope shape. Permanent, never retried.
	ErrCodeInvalidKeys ErrorCode = "INVALID_KEYS"
	ErrCodeMissingKeys ErrorCode = "MISSING_KEYS"

	// Security errors: sanitization rejections. Permanent, never retried.
	ErrCodePromptBlocked ErrorCode = "PROMPT_BLOCKED"

	// Transient processing errors: retried once by the retry controller.
	ErrCodeRecordReadFailed        ErrorCode = "RECORD_READ_FAILED"
	ErrCodeRecordWriteFailed       ErrorCode = "RECORD_WRITE_FAILED"
	ErrCodeNodeLookupFailed        ErrorCode = "NODE_LOOKUP_FAILED"
	ErrCodeTranscriptionFailed     ErrorCode = "TRANSCRIPTION_FAILED"
	ErrCodeConversionTriggerFailed ErrorCode = "CONVERSION_TRIGGER_FAILED"

	// Terminal pipeline outcomes.
	ErrCodeNoTextAvailable ErrorCode = "NO_TEXT_AVAILABLE"

	// Internal-consistency errors: should be unreachable.
	ErrCodeUnregisteredAction ErrorCode = "UNREGISTERED_ACTION_TYPE"
)

// PipelineError represents a structured application error.
type PipelineError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Fatal     bool                   `json:"fatal,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("PipelineError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. Error Constructors
// ==========================

// NewRecordReadFailedError creates a retryable persistence read error.
func NewRecordReadFailedError(recordID string, err error) *PipelineError {
	return &PipelineError{
		Code:      ErrCodeRecordReadFailed,
		Message:   "Command record read failed",
		Details:   fmt.Sprintf("recordId: %s, error: %s", recordID, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewRecordWriteFailedError creates a retryable persistence write error.
func NewRecordWriteFailedError(recordID string, err error) *PipelineError {
	return &PipelineError{
		Code:      ErrCodeRecordWriteFailed,
		Message:   "Command record write failed",
		Details:   fmt.Sprintf("recordId: %s, error: %s", recordID, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewNodeLookupFailedError creates a retryable node catalogue error.
func NewNodeLookupFailedError(tenantID string, err error) *PipelineError {
	return &PipelineError{
		Code:      ErrCodeNodeLookupFailed,
		Message:   "IoT node lookup failed",
		Details:   fmt.Sprintf("tenantId: %s, error: %s", tenantID, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewTranscriptionFailedError creates a retryable speech provider error.
func NewTranscriptionFailedError(err error) *PipelineError {
	return &PipelineError{
		Code:      ErrCodeTranscriptionFailed,
		Message:   "Speech provider error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewConversionTriggerFailedError creates a retryable conversion trigger error.
func NewConversionTriggerFailedError(target string, err error) *PipelineError {
	return &PipelineError{
		Code:      ErrCodeConversionTriggerFailed,
		Message:   "Conversion pipeline trigger failed",
		Details:   fmt.Sprintf("target: %s, error: %s", target, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewNoTextAvailableError creates a non-retryable missing-text error.
// There is no text to analyze, so a second attempt cannot change the outcome.
func NewNoTextAvailableError(recordID string) *PipelineError {
	return &PipelineError{
		Code:      ErrCodeNoTextAvailable,
		Message:   "No text available to analyze",
		Details:   fmt.Sprintf("recordId: %s", recordID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewUnregisteredActionError creates a fatal internal-consistency error.
func NewUnregisteredActionError(actionType string) *PipelineError {
	return &PipelineError{
		Code:      ErrCodeUnregisteredAction,
		Message:   "No handler registered for action type",
		Details:   fmt.Sprintf("actionType: %s", actionType),
		Retryable: false,
		Fatal:     true,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Utility Functions
// ==========================

// IsRetryable reports whether the retry controller may re-run the pipeline
// for this error. Unknown error values are treated as transient, matching
// the "uncaught pipeline error" contract.
func IsRetryable(err error) bool {
	var pe *PipelineError
	if stderrors.As(err, &pe) {
		return pe.Retryable
	}
	return true
}

// IsFatal reports whether the error is an internal-consistency failure.
func IsFatal(err error) bool {
	var pe *PipelineError
	if stderrors.As(err, &pe) {
		return pe.Fatal
	}
	return false
}

// CodeOf extracts the error code, or UNKNOWN for foreign errors.
func CodeOf(err error) ErrorCode {
	var pe *PipelineError
	if stderrors.As(err, &pe) {
		return pe.Code
	}
	return "UNKNOWN"
}
