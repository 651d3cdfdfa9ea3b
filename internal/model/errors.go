// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "fmt"

// Kind classifies an Error.
type Kind int

const (
	// KindValidation is a user-supplied value that failed validation.
	KindValidation Kind = iota + 1
	// KindPrecondition is an operation attempted in a state that forbids it.
	KindPrecondition
	// KindNotFound is a reference to an id that does not exist.
	KindNotFound
	// KindInvalidArgument is a programming error at a component boundary.
	KindInvalidArgument
	// KindCompletionFailed is a failed call to the completion API.
	KindCompletionFailed
)

// String returns the taxonomy name of the kind.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "ValidationError"
	case KindPrecondition:
		return "PreconditionFailed"
	case KindNotFound:
		return "NotFound"
	case KindInvalidArgument:
		return "InvalidArgument"
	case KindCompletionFailed:
		return "CompletionFailed"
	default:
		return "Unknown"
	}
}

// Error is the error type returned by the routerchat components.
type Error struct {
	Kind    Kind
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// Is matches any *Error of the same kind, so callers can compare against
// the sentinels below with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// Sentinels for errors.Is.
var (
	ErrValidation       = &Error{Kind: KindValidation, Message: "validation error"}
	ErrPrecondition     = &Error{Kind: KindPrecondition, Message: "precondition failed"}
	ErrNotFound         = &Error{Kind: KindNotFound, Message: "not found"}
	ErrInvalidArgument  = &Error{Kind: KindInvalidArgument, Message: "invalid argument"}
	ErrCompletionFailed = &Error{Kind: KindCompletionFailed, Message: "completion failed"}
)

// Validationf returns a KindValidation error.
func Validationf(format string, args ...any) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// Preconditionf returns a KindPrecondition error.
func Preconditionf(format string, args ...any) error {
	return &Error{Kind: KindPrecondition, Message: fmt.Sprintf(format, args...)}
}

// NotFoundf returns a KindNotFound error.
func NotFoundf(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// InvalidArgumentf returns a KindInvalidArgument error.
func InvalidArgumentf(format string, args ...any) error {
	return &Error{Kind: KindInvalidArgument, Message: fmt.Sprintf(format, args...)}
}
