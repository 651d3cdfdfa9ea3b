// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// json_output.go - Machine-readable output for every command run with --json.

package cli

import (
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/jeranaias/routerchat/internal/model"
)

// JSONResponse is the envelope every --json command prints.
type JSONResponse struct {
	// Success indicates whether the command completed successfully
	Success bool `json:"success"`

	// Data contains the command-specific response data
	Data any `json:"data"`

	// Error contains the error message if Success is false, null otherwise
	Error *string `json:"error"`

	// ErrorKind is the model error kind (validation, not_found, ...), if any
	ErrorKind string `json:"error_kind,omitempty"`

	// Timestamp is the RFC3339 time the response was generated
	Timestamp string `json:"timestamp"`

	// Command is the command that was executed
	Command string `json:"command,omitempty"`
}

// NewJSONResponse creates a successful response.
func NewJSONResponse(command string, data any) *JSONResponse {
	return &JSONResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// NewJSONErrorResponse creates an error response.
func NewJSONErrorResponse(command string, err error) *JSONResponse {
	errStr := err.Error()
	resp := &JSONResponse{
		Error:     &errStr,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
	var me *model.Error
	if errors.As(err, &me) {
		resp.ErrorKind = me.Kind.String()
	}
	return resp
}

// Write encodes the response as indented JSON.
func (r *JSONResponse) Write(w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(r)
}

// emit prints data as a JSON envelope in JSON mode and runs human otherwise.
func emit(env *Env, jsonMode bool, command string, data any, human func(w io.Writer)) error {
	if jsonMode {
		return NewJSONResponse(command, data).Write(env.Out)
	}
	human(env.Out)
	return nil
}
