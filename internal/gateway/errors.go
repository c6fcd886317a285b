// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error variables for common chat service failures.
var (
	// ErrUnauthorized indicates a missing, expired or rejected session.
	ErrUnauthorized = errors.New("not authenticated")

	// ErrNotFound indicates the conversation does not exist or is not ours.
	ErrNotFound = errors.New("not found")

	// ErrValidation indicates the service rejected the request body.
	ErrValidation = errors.New("invalid request")

	// ErrConflict indicates the resource already exists (e.g. e-mail taken).
	ErrConflict = errors.New("conflict")

	// ErrQuotaExceeded indicates the account used up its token quota.
	ErrQuotaExceeded = errors.New("token quota exceeded")

	// ErrServer indicates a 5xx response.
	ErrServer = errors.New("server error")

	// ErrTransport indicates the request never produced a response.
	ErrTransport = errors.New("chat service unreachable")

	// ErrInvalidID indicates an identifier the service cannot address.
	ErrInvalidID = errors.New("identifier is not server-issued")
)

// FieldError is one entry of a validation failure.
type FieldError struct {
	Field   string
	Message string
}

// APIError represents an error response from the chat service.
type APIError struct {
	Status int
	Detail string
	Fields []FieldError
}

// Error implements the error interface.
func (e *APIError) Error() string {
	msg := e.Message()
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return fmt.Sprintf("chat service error (HTTP %d): %s", e.Status, msg)
}

// Message returns the human-readable detail, with validation failures
// grouped per field.
func (e *APIError) Message() string {
	if len(e.Fields) == 0 {
		return e.Detail
	}

	var order []string
	grouped := make(map[string][]string)
	for _, f := range e.Fields {
		if _, ok := grouped[f.Field]; !ok {
			order = append(order, f.Field)
		}
		grouped[f.Field] = append(grouped[f.Field], f.Message)
	}

	parts := make([]string, 0, len(order))
	for _, field := range order {
		msgs := strings.Join(grouped[field], ", ")
		if field == "" {
			parts = append(parts, msgs)
			continue
		}
		parts = append(parts, field+": "+msgs)
	}
	return strings.Join(parts, "; ")
}

// Is maps the status code onto the package sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	case ErrValidation:
		return e.Status == http.StatusUnprocessableEntity || e.Status == http.StatusBadRequest
	case ErrConflict:
		return e.Status == http.StatusConflict
	case ErrQuotaExceeded:
		return e.Status == http.StatusTooManyRequests
	case ErrServer:
		return e.Status >= 500
	}
	return false
}

// errorBody is the service's error envelope. detail is either a string or a
// list of validation entries.
type errorBody struct {
	Detail json.RawMessage `json:"detail"`
}

type validationEntry struct {
	Loc []any  `json:"loc"`
	Msg string `json:"msg"`
}

// parseError converts a non-2xx response into an *APIError.
func parseError(status int, body []byte) *APIError {
	apiErr := &APIError{Status: status}

	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil || len(eb.Detail) == 0 {
		apiErr.Detail = strings.TrimSpace(string(body))
		return apiErr
	}

	var detail string
	if err := json.Unmarshal(eb.Detail, &detail); err == nil {
		apiErr.Detail = detail
		return apiErr
	}

	var entries []validationEntry
	if err := json.Unmarshal(eb.Detail, &entries); err == nil {
		for _, entry := range entries {
			apiErr.Fields = append(apiErr.Fields, FieldError{
				Field:   fieldName(entry.Loc),
				Message: entry.Msg,
			})
		}
		return apiErr
	}

	apiErr.Detail = string(eb.Detail)
	return apiErr
}

// fieldName joins a validation location, dropping the leading "body".
func fieldName(loc []any) string {
	parts := make([]string, 0, len(loc))
	for i, p := range loc {
		s := fmt.Sprint(p)
		if i == 0 && s == "body" {
			continue
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, ".")
}
