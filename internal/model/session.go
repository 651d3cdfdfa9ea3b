// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"time"

	"github.com/google/uuid"
)

// Session is a named chat. Model and APIKeyID are captured at creation and
// never change afterwards.
type Session struct {
	ID        string
	Title     string
	Messages  []Message
	CreatedAt time.Time
	Model     string
	APIKeyID  string
}

// NewSessionID returns a fresh session identifier.
func NewSessionID() string {
	return uuid.NewString()
}

// Clone returns a deep copy of the session. The message slice is copied so
// callers may hold the result without racing the owner.
func (s Session) Clone() Session {
	out := s
	if s.Messages != nil {
		out.Messages = make([]Message, len(s.Messages))
		copy(out.Messages, s.Messages)
	}
	return out
}

// LastMessage returns the final message of the log, if any.
func (s Session) LastMessage() (Message, bool) {
	if len(s.Messages) == 0 {
		return Message{}, false
	}
	return s.Messages[len(s.Messages)-1], true
}

// LastAssistantMessage returns the most recent assistant reply.
func (s Session) LastAssistantMessage() (Message, bool) {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == RoleAssistant {
			return s.Messages[i], true
		}
	}
	return Message{}, false
}
