// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jeranaias/routerchat/internal/model"
)

// =============================================================================
// STORED TYPES
// =============================================================================

// The stored types use pointers for required fields so decoding can tell a
// missing field from a zero value.

// StoredKey is the persisted form of a KeyEntry.
type StoredKey struct {
	ID     *string `json:"id"`
	Name   *string `json:"name"`
	APIKey *string `json:"apiKey"`
	Status *string `json:"status"`
}

// StoredMessage is the persisted form of a Message.
type StoredMessage struct {
	ID        *string `json:"id"`
	Role      *string `json:"role"`
	Content   *string `json:"content"`
	Timestamp *int64  `json:"timestamp"`
}

// StoredSession is the persisted form of a Session. Times are Unix
// milliseconds.
type StoredSession struct {
	ID        *string          `json:"id"`
	Title     *string          `json:"title"`
	Messages  *[]StoredMessage `json:"messages"`
	CreatedAt *int64           `json:"createdAt"`
	Model     *string          `json:"model"`
	APIKeyID  *string          `json:"apiKeyId,omitempty"`
}

func ptr[T any](v T) *T { return &v }

// =============================================================================
// ENCODING
// =============================================================================

// EncodeKeys serializes the key list.
func EncodeKeys(entries []model.KeyEntry) (string, error) {
	out := make([]StoredKey, 0, len(entries))
	for _, e := range entries {
		out = append(out, StoredKey{
			ID:     ptr(e.ID),
			Name:   ptr(e.Name),
			APIKey: ptr(e.APIKey),
			Status: ptr(string(e.Status)),
		})
	}
	data, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("failed to encode keys: %w", err)
	}
	return string(data), nil
}

// StoredFromSession converts a session to its persisted form.
func StoredFromSession(s model.Session) StoredSession {
	msgs := make([]StoredMessage, 0, len(s.Messages))
	for _, m := range s.Messages {
		msgs = append(msgs, StoredMessage{
			ID:        ptr(m.ID),
			Role:      ptr(string(m.Role)),
			Content:   ptr(m.Content),
			Timestamp: ptr(m.Timestamp.UnixMilli()),
		})
	}
	stored := StoredSession{
		ID:        ptr(s.ID),
		Title:     ptr(s.Title),
		Messages:  &msgs,
		CreatedAt: ptr(s.CreatedAt.UnixMilli()),
		Model:     ptr(s.Model),
	}
	if s.APIKeyID != "" {
		stored.APIKeyID = ptr(s.APIKeyID)
	}
	return stored
}

// EncodeSessions serializes the session list.
func EncodeSessions(sessions []model.Session) (string, error) {
	out := make([]StoredSession, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, StoredFromSession(s))
	}
	data, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("failed to encode sessions: %w", err)
	}
	return string(data), nil
}

// =============================================================================
// DECODING
// =============================================================================

// DecodeKeys parses the key list slot. Any malformed record rejects the
// whole slot.
func DecodeKeys(data string) ([]model.KeyEntry, error) {
	var stored []StoredKey
	if err := json.Unmarshal([]byte(data), &stored); err != nil {
		return nil, fmt.Errorf("keys: %w", err)
	}
	if stored == nil {
		return nil, fmt.Errorf("keys: not an array")
	}

	seen := make(map[string]bool, len(stored))
	out := make([]model.KeyEntry, 0, len(stored))
	for i, k := range stored {
		if k.ID == nil || *k.ID == "" || k.Name == nil || k.APIKey == nil || k.Status == nil {
			return nil, fmt.Errorf("keys: record %d is missing a field", i)
		}
		if seen[*k.ID] {
			return nil, fmt.Errorf("keys: duplicate id %q", *k.ID)
		}
		seen[*k.ID] = true
		status, ok := model.ParseKeyStatus(*k.Status)
		if !ok {
			return nil, fmt.Errorf("keys: record %d has unknown status %q", i, *k.Status)
		}
		out = append(out, model.KeyEntry{ID: *k.ID, Name: *k.Name, APIKey: *k.APIKey, Status: status})
	}
	return out, nil
}

// DecodeSessions parses the sessions slot. Any malformed session or
// message rejects the whole slot.
func DecodeSessions(data string) ([]model.Session, error) {
	var stored []StoredSession
	if err := json.Unmarshal([]byte(data), &stored); err != nil {
		return nil, fmt.Errorf("sessions: %w", err)
	}
	if stored == nil {
		return nil, fmt.Errorf("sessions: not an array")
	}

	seen := make(map[string]bool, len(stored))
	out := make([]model.Session, 0, len(stored))
	for i, s := range stored {
		if s.ID == nil || *s.ID == "" || s.Title == nil || s.Messages == nil || s.CreatedAt == nil || s.Model == nil {
			return nil, fmt.Errorf("sessions: record %d is missing a field", i)
		}
		if seen[*s.ID] {
			return nil, fmt.Errorf("sessions: duplicate id %q", *s.ID)
		}
		seen[*s.ID] = true

		msgs := make([]model.Message, 0, len(*s.Messages))
		for j, m := range *s.Messages {
			if m.ID == nil || *m.ID == "" || m.Role == nil || m.Content == nil || m.Timestamp == nil {
				return nil, fmt.Errorf("sessions: record %d message %d is missing a field", i, j)
			}
			role := model.Role(*m.Role)
			if !role.Valid() {
				return nil, fmt.Errorf("sessions: record %d message %d has unknown role %q", i, j, *m.Role)
			}
			msgs = append(msgs, model.Message{
				ID:        *m.ID,
				Role:      role,
				Content:   *m.Content,
				Timestamp: time.UnixMilli(*m.Timestamp),
			})
		}

		sess := model.Session{
			ID:        *s.ID,
			Title:     *s.Title,
			Messages:  msgs,
			CreatedAt: time.UnixMilli(*s.CreatedAt),
			Model:     *s.Model,
		}
		if s.APIKeyID != nil {
			sess.APIKeyID = *s.APIKeyID
		}
		out = append(out, sess)
	}
	return out, nil
}
