// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/jeranaias/routerchat/internal/model"
)

// CompletionError is a failed completion. Status is zero when no HTTP
// response was received.
type CompletionError struct {
	Status int
	Detail string
	Err    error
}

// Error implements the error interface.
func (e *CompletionError) Error() string {
	if e.Status != 0 && (e.Status < 200 || e.Status > 299) {
		return fmt.Sprintf("API error (%d): %s", e.Status, e.Detail)
	}
	return e.Detail
}

// Unwrap returns the underlying transport error, if any.
func (e *CompletionError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match model.ErrCompletionFailed.
func (e *CompletionError) Is(target error) bool {
	return target == model.ErrCompletionFailed
}

// httpError builds a CompletionError for a non-2xx response. The detail is
// taken from error.message, then detail, then the status text.
func httpError(status int, body []byte) *CompletionError {
	var parsed struct {
		Error  *apiError `json:"error"`
		Detail string    `json:"detail"`
	}
	detail := ""
	if err := json.Unmarshal(body, &parsed); err == nil {
		if parsed.Error != nil && parsed.Error.Message != "" {
			detail = parsed.Error.Message
		} else if parsed.Detail != "" {
			detail = parsed.Detail
		}
	}
	if detail == "" {
		detail = http.StatusText(status)
	}
	if detail == "" {
		detail = "Unknown API error"
	}
	return &CompletionError{Status: status, Detail: detail}
}
