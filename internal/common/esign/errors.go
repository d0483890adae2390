package esign

import (
	"encoding/json"
	"fmt"
)

// APIError is a non-2xx response from the eSignature API.
type APIError struct {
	Operation  string
	StatusCode int
	ErrorCode  string
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	if e.ErrorCode != "" {
		return fmt.Sprintf("%s: %d %s: %s", e.Operation, e.StatusCode, e.ErrorCode, e.Message)
	}
	return fmt.Sprintf("%s: unexpected status %d", e.Operation, e.StatusCode)
}

func newAPIError(operation string, status int, body []byte) *APIError {
	apiErr := &APIError{Operation: operation, StatusCode: status, Body: string(body)}
	var details errorDetails
	if json.Unmarshal(body, &details) == nil {
		apiErr.ErrorCode = details.ErrorCode
		apiErr.Message = details.Message
	}
	return apiErr
}
