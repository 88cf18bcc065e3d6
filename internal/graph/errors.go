package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

const maxErrorBodyLog = 500

// APIError is returned for non-2xx responses (Status set) and transport
// failures (Status 0, Err set). Graph error objects are decoded when present.
type APIError struct {
	Status    int
	Body      []byte
	Message   string
	Type      string
	Code      int
	Subcode   int
	FBTraceID string
	Err       error
}

type graphErrorEnvelope struct {
	Error *struct {
		Message      string `json:"message"`
		Type         string `json:"type"`
		Code         int    `json:"code"`
		ErrorSubcode int    `json:"error_subcode"`
		FBTraceID    string `json:"fbtrace_id"`
	} `json:"error"`
	// Instagram OAuth host error shape
	ErrorType    string `json:"error_type"`
	Code         int    `json:"code"`
	ErrorMessage string `json:"error_message"`
}

func newAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{Status: status, Body: body}

	var envelope graphErrorEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil {
		switch {
		case envelope.Error != nil:
			apiErr.Message = envelope.Error.Message
			apiErr.Type = envelope.Error.Type
			apiErr.Code = envelope.Error.Code
			apiErr.Subcode = envelope.Error.ErrorSubcode
			apiErr.FBTraceID = envelope.Error.FBTraceID
		case envelope.ErrorMessage != "":
			apiErr.Message = envelope.ErrorMessage
			apiErr.Type = envelope.ErrorType
			apiErr.Code = envelope.Code
		}
	}
	return apiErr
}

func (e *APIError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("graph api: %v", e.Err)
	}
	if e.Message != "" {
		return fmt.Sprintf("graph api: status %d: %s (type: %s, code: %d, fbtrace_id: %s)",
			e.Status, e.Message, e.Type, e.Code, e.FBTraceID)
	}
	return fmt.Sprintf("graph api: status %d: %s", e.Status, truncate(string(e.Body), maxErrorBodyLog))
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Retryable reports whether repeating the same idempotent request may succeed.
func (e *APIError) Retryable() bool {
	if e.Status == 0 {
		return !errors.Is(e.Err, context.Canceled) && !errors.Is(e.Err, context.DeadlineExceeded)
	}
	return e.Status == http.StatusTooManyRequests || e.Status >= 500
}

// AsAPIError extracts an *APIError from err.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
