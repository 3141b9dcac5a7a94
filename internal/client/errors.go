package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidBaseURL is returned by NewClient for unusable base URLs.
var ErrInvalidBaseURL = errors.New("invalid base URL")

// APIError is a failed request: either the server answered with an error
// status or the request never completed. Message is the single display
// string that is also published as a notification.
type APIError struct {
	Endpoint   string // request path, e.g. /api/v1/map
	StatusCode int    // 0 when no response was received
	Message    string
	Body       []byte
	RequestID  string
	Err        error // transport or decoding failure, if any
}

// Error implements error.
func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("GET %s: status %d: %s", e.Endpoint, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("GET %s: %s", e.Endpoint, e.Message)
}

// Unwrap returns the underlying transport error.
func (e *APIError) Unwrap() error {
	return e.Err
}

// IsTransport reports whether the request failed before a response arrived.
func (e *APIError) IsTransport() bool {
	return e.StatusCode == 0
}

// ValidationError reports filters rejected before any request was sent.
type ValidationError struct {
	Endpoint string
	Fields   []FieldError
}

// FieldError describes one rejected filter field.
type FieldError struct {
	Field      string
	Constraint string
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = fmt.Sprintf("%s (%s)", f.Field, f.Constraint)
	}
	return fmt.Sprintf("invalid filters for %s: %s", e.Endpoint, strings.Join(parts, ", "))
}

func newValidationError(endpoint string, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		var fe FieldError
		if errors.As(err, &fe) {
			return &ValidationError{Endpoint: endpoint, Fields: []FieldError{fe}}
		}
		return fmt.Errorf("validating filters for %s: %w", endpoint, err)
	}
	ve := &ValidationError{Endpoint: endpoint}
	for _, fe := range verrs {
		constraint := fe.Tag()
		if fe.Param() != "" {
			constraint += "=" + fe.Param()
		}
		ve.Fields = append(ve.Fields, FieldError{Field: fe.Field(), Constraint: constraint})
	}
	return ve
}

// Error lets a single FieldError be returned from cross-field checks.
func (f FieldError) Error() string {
	return fmt.Sprintf("%s (%s)", f.Field, f.Constraint)
}

// ErrorMessage derives the display message for a failed response, falling
// back through the shapes the backend produces:
//
//  1. {"detail": "text"}                → text
//  2. {"detail": {"message": "text"}}   → text
//  3. any other JSON                    → the raw JSON of detail, or of the body
//
// A body that is empty or not JSON yields a generic status message.
func ErrorMessage(statusCode int, body []byte) string {
	if msg, ok := messageFromBody(body); ok {
		return msg
	}
	return fmt.Sprintf("Request failed with status code %d", statusCode)
}

func messageFromBody(body []byte) (string, bool) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || !json.Valid(trimmed) {
		return "", false
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &payload); err != nil {
		// Valid JSON but not an object (array, string, number).
		return string(trimmed), true
	}

	detail, ok := payload["detail"]
	if !ok || isJSONNull(detail) {
		return string(trimmed), true
	}

	var text string
	if err := json.Unmarshal(detail, &text); err == nil && text != "" {
		return text, true
	}

	var withMessage struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(detail, &withMessage); err == nil && withMessage.Message != "" {
		return withMessage.Message, true
	}

	return string(bytes.TrimSpace(detail)), true
}

func isJSONNull(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}
