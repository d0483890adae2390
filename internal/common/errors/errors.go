// Package errors provides standardized error handling for eSignature workflows.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeRemoteAPIError   ErrorCode = "REMOTE_API_ERROR"
	ErrCodeAuthExpired      ErrorCode = "AUTH_EXPIRED"
	ErrCodeBatchPollTimeout ErrorCode = "BATCH_POLL_TIMEOUT"
	ErrCodeInternal         ErrorCode = "INTERNAL_ERROR"

	ErrCodeSessionStoreFailed ErrorCode = "SESSION_STORE_FAILED"
	ErrCodeDocumentNotFound   ErrorCode = "DOCUMENT_NOT_FOUND"
	ErrCodeEngineUnavailable  ErrorCode = "ENGINE_UNAVAILABLE"
)

// Metadata keys shared by the workflow layer.
const (
	MetaStep              = "step"
	MetaEnvelopeID        = "envelopeId"
	MetaStatusCode        = "statusCode"
	MetaProviderErrorCode = "providerErrorCode"
	MetaProviderMessage   = "providerMessage"
	MetaBatchStatus       = "batchStatus"
	MetaBatchID           = "batchId"
	MetaOrphaned          = "orphaned"
	MetaFields            = "fields"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause, if any.
func (e *StandardError) Unwrap() error {
	return e.cause
}

// Step returns the workflow step recorded on the error, or "".
func (e *StandardError) Step() string {
	if s, ok := e.Metadata[MetaStep].(string); ok {
		return s
	}
	return ""
}

// WithMetadata sets a metadata key and returns the same error for chaining.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// WithCause records the underlying error returned by Unwrap.
func (e *StandardError) WithCause(cause error) *StandardError {
	e.cause = cause
	return e
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

// NewValidationError creates a non-retryable input validation error.
func NewValidationError(details string, fields ...string) *StandardError {
	err := &StandardError{
		Code:      ErrCodeValidationFailed,
		Message:   "Input validation failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
	if len(fields) > 0 {
		err.WithMetadata(MetaFields, fields)
	}
	return err
}

// NewRemoteAPIError wraps a failed eSignature call made during the named step.
// Remote failures are terminal: nothing in a workflow retries them.
func NewRemoteAPIError(step string, cause error) *StandardError {
	err := &StandardError{
		Code:      ErrCodeRemoteAPIError,
		Message:   fmt.Sprintf("eSignature request failed during %s", step),
		Details:   cause.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
	return err.WithMetadata(MetaStep, step)
}

// NewAuthExpiredError is returned when the session token is missing or too close to expiry.
func NewAuthExpiredError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeAuthExpired,
		Message:   "Re-authentication required",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewBatchPollTimeoutError reports that the polling cap was reached while the batch still had queued items.
func NewBatchPollTimeoutError(batchID string, attempts int, lastStatus interface{}) *StandardError {
	err := &StandardError{
		Code:      ErrCodeBatchPollTimeout,
		Message:   "Bulk send batch still processing",
		Details:   fmt.Sprintf("batchId: %s, attempts: %d", batchID, attempts),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
	return err.WithMetadata(MetaBatchStatus, lastStatus).WithMetadata(MetaBatchID, batchID)
}

// NewSessionStoreError creates an error for session persistence failures.
func NewSessionStoreError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSessionStoreFailed,
		Message:   "Session store error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewDocumentNotFoundError creates a non-retryable document lookup error.
func NewDocumentNotFoundError(name string) *StandardError {
	return &StandardError{
		Code:      ErrCodeDocumentNotFound,
		Message:   "Document not found in library",
		Details:   fmt.Sprintf("document: %s", name),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewEngineUnavailableError wraps a failed call to the workflow engine gateway.
func NewEngineUnavailableError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeEngineUnavailable,
		Message:   fmt.Sprintf("Workflow engine unavailable during %s", operation),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewInternalError wraps anything that does not fit the taxonomy.
func NewInternalError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// ==========================
// 4. Inspection Helpers
// ==========================

// AsStandard returns the first StandardError in err's chain.
func AsStandard(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// Normalize always yields a StandardError, wrapping foreign errors as INTERNAL_ERROR.
func Normalize(err error) *StandardError {
	if stdErr, ok := AsStandard(err); ok {
		return stdErr
	}
	return NewInternalError(err)
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code ErrorCode) bool {
	stdErr, ok := AsStandard(err)
	return ok && stdErr.Code == code
}

// ==========================
// 5. Error Conversion to BPMN
// ==========================

// BPMNErrorMapping maps internal error codes to BPMN error codes.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeValidationFailed:   "ESIGN_VALIDATION_FAILED",
	ErrCodeRemoteAPIError:     "ESIGN_REMOTE_API_ERROR",
	ErrCodeAuthExpired:        "ESIGN_AUTH_EXPIRED",
	ErrCodeBatchPollTimeout:   "ESIGN_BATCH_POLL_TIMEOUT",
	ErrCodeSessionStoreFailed: "ESIGN_SESSION_STORE_FAILED",
	ErrCodeDocumentNotFound:   "ESIGN_DOCUMENT_NOT_FOUND",
	ErrCodeEngineUnavailable:  "ESIGN_ENGINE_UNAVAILABLE",
}

// GetRetryCount returns the job retry budget for a code.
// Workflow steps have side effects on the remote account, so only infrastructure failures get retries.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeSessionStoreFailed, ErrCodeEngineUnavailable:
		return 3
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

	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	if step := stdErr.Step(); step != "" {
		vars["failedStep"] = step
	}
	if envelopeID, ok := stdErr.Metadata[MetaEnvelopeID].(string); ok && envelopeID != "" {
		if orphaned, _ := stdErr.Metadata[MetaOrphaned].(bool); orphaned {
			vars["orphanedEnvelopeId"] = envelopeID
		} else {
			vars["envelopeId"] = envelopeID
		}
	}
	if batchID, ok := stdErr.Metadata[MetaBatchID].(string); ok && batchID != "" {
		vars["batchId"] = batchID
	}

	return &BPMNError{
		Code:           bpmnCode,
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
	}
}

// ==========================
// 6. Utility Functions
// ==========================

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "VALIDATION"):
		return "VALIDATION"
	case strings.Contains(codeStr, "REMOTE") || strings.Contains(codeStr, "BATCH"):
		return "REMOTE"
	case strings.Contains(codeStr, "AUTH") || strings.Contains(codeStr, "SESSION"):
		return "AUTH/SESSION"
	case strings.Contains(codeStr, "DOCUMENT"):
		return "DOCUMENT"
	case strings.Contains(codeStr, "ENGINE"):
		return "ENGINE"
	default:
		return "OTHER"
	}
}
