// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/jeranaias/routerchat/internal/model"
)

// Slot names. They match the browser app's localStorage keys.
const (
	SlotKeys          = "openrouter_api_keys_list"
	SlotActiveKeyID   = "openrouter_active_api_key_id"
	SlotSelectedModel = "openrouter_selected_model_name"
	SlotSessions      = "openrouter_chat_sessions"
)

// State is everything read from the four slots.
type State struct {
	Keys          []model.KeyEntry
	ActiveKeyID   string
	SelectedModel string
	Sessions      []model.Session

	// Present reports which slots existed, keyed by slot name.
	Present map[string]bool
}

// Store reads and writes the four slots on a KV backend.
type Store struct {
	kv           KV
	logger       *slog.Logger
	defaultModel string
}

// NewStore wraps kv. A nil logger discards warnings.
func NewStore(kv KV, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Store{kv: kv, logger: logger, defaultModel: model.DefaultModel()}
}

// WithDefaultModel overrides the model used when the slot is empty.
func (s *Store) WithDefaultModel(m string) *Store {
	if strings.TrimSpace(m) != "" {
		s.defaultModel = m
	}
	return s
}

// Load reads every slot. It never fails: an absent, unreadable or malformed
// slot yields its default and a warning.
func (s *Store) Load() State {
	st := State{
		Keys:          []model.KeyEntry{},
		SelectedModel: s.defaultModel,
		Sessions:      []model.Session{},
		Present:       make(map[string]bool, 4),
	}

	if raw, ok := s.read(SlotKeys); ok {
		st.Present[SlotKeys] = true
		if keys, err := DecodeKeys(raw); err != nil {
			s.logger.Warn("discarding unparsable slot", "slot", SlotKeys, "error", err)
		} else {
			st.Keys = keys
		}
	}

	if raw, ok := s.read(SlotActiveKeyID); ok {
		st.Present[SlotActiveKeyID] = true
		st.ActiveKeyID = strings.TrimSpace(raw)
	}

	if raw, ok := s.read(SlotSelectedModel); ok {
		st.Present[SlotSelectedModel] = true
		if m := strings.TrimSpace(raw); m != "" {
			st.SelectedModel = m
		}
	}

	if raw, ok := s.read(SlotSessions); ok {
		st.Present[SlotSessions] = true
		if sessions, err := DecodeSessions(raw); err != nil {
			s.logger.Warn("discarding unparsable slot", "slot", SlotSessions, "error", err)
		} else {
			st.Sessions = sessions
		}
	}

	return st
}

func (s *Store) read(slot string) (string, bool) {
	raw, ok, err := s.kv.Get(slot)
	if err != nil {
		s.logger.Warn("failed to read slot", "slot", slot, "error", err)
		return "", false
	}
	return raw, ok
}

// SaveKeys writes the key list slot.
func (s *Store) SaveKeys(entries []model.KeyEntry) error {
	data, err := EncodeKeys(entries)
	if err != nil {
		return err
	}
	return s.write(SlotKeys, data)
}

// SaveActiveKeyID writes the active id, removing the slot when id is empty.
func (s *Store) SaveActiveKeyID(id string) error {
	if id == "" {
		if err := s.kv.Delete(SlotActiveKeyID); err != nil {
			return fmt.Errorf("save %s: %w", SlotActiveKeyID, err)
		}
		return nil
	}
	return s.write(SlotActiveKeyID, id)
}

// SaveSelectedModel writes the selected model slot.
func (s *Store) SaveSelectedModel(m string) error {
	return s.write(SlotSelectedModel, m)
}

// SaveSessions writes the sessions slot.
func (s *Store) SaveSessions(sessions []model.Session) error {
	data, err := EncodeSessions(sessions)
	if err != nil {
		return err
	}
	return s.write(SlotSessions, data)
}

func (s *Store) write(slot, value string) error {
	if err := s.kv.Set(slot, value); err != nil {
		return fmt.Errorf("save %s: %w", slot, err)
	}
	s.logger.Debug("slot saved", "slot", slot, "bytes", len(value))
	return nil
}

// Close closes the backend.
func (s *Store) Close() error {
	return s.kv.Close()
}
