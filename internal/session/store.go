// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jeranaias/routerchat/internal/model"
	"github.com/jeranaias/routerchat/internal/util"
)

// DefaultTitle is used when a session is created without a title.
const DefaultTitle = "New Chat"

// =============================================================================
// SESSION STORE
// =============================================================================

// Store owns every session. The slice keeps storage order (newest first,
// as created); List sorts by CreatedAt for display.
type Store struct {
	mu        sync.Mutex
	sessions  []model.Session
	currentID string

	// pending maps session id to the id of its uncommitted user message
	pending map[string]string

	now func() time.Time
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		pending: make(map[string]string),
		now:     time.Now,
	}
}

// Restore replaces the contents with persisted sessions and selects the
// one created most recently.
func (s *Store) Restore(sessions []model.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions = make([]model.Session, 0, len(sessions))
	for _, sess := range sessions {
		s.sessions = append(s.sessions, sess.Clone())
	}
	s.pending = make(map[string]string)
	s.currentID = s.latestLocked()
}

// =============================================================================
// QUERIES
// =============================================================================

// All returns deep copies of every session in storage order.
func (s *Store) All() []model.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Session, len(s.sessions))
	for i, sess := range s.sessions {
		out[i] = sess.Clone()
	}
	return out
}

// List returns deep copies sorted by CreatedAt, newest first.
func (s *Store) List() []model.Session {
	out := s.All()
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Len returns the number of sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Get returns a copy of the session with the given id.
func (s *Store) Get(id string) (model.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(id); i >= 0 {
		return s.sessions[i].Clone(), true
	}
	return model.Session{}, false
}

// CurrentID returns the current session id, or "" when none is selected.
func (s *Store) CurrentID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentID
}

// Current returns a copy of the current session.
func (s *Store) Current() (model.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(s.currentID); i >= 0 {
		return s.sessions[i].Clone(), true
	}
	return model.Session{}, false
}

// Pending reports whether the session has an unsettled optimistic message.
func (s *Store) Pending(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pending[id]
	return ok
}

// AnyPending reports whether any session is waiting on a reply.
func (s *Store) AnyPending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending) > 0
}

// =============================================================================
// MUTATIONS
// =============================================================================

// Create adds a session and makes it current. The model and key id are
// fixed for the life of the session.
func (s *Store) Create(title, modelID, apiKeyID string) (model.Session, error) {
	if strings.TrimSpace(modelID) == "" {
		return model.Session{}, model.Preconditionf("no model selected")
	}
	if strings.TrimSpace(apiKeyID) == "" {
		return model.Session{}, model.Preconditionf("no active API key")
	}
	title = util.CleanText(title)
	if title == "" {
		title = DefaultTitle
	}

	sess := model.Session{
		ID:        model.NewSessionID(),
		Title:     title,
		Messages:  []model.Message{},
		CreatedAt: s.now(),
		Model:     modelID,
		APIKeyID:  apiKeyID,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = append([]model.Session{sess}, s.sessions...)
	s.currentID = sess.ID
	return sess.Clone(), nil
}

// Select makes id the current session.
func (s *Store) Select(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexOf(id) < 0 {
		return model.NotFoundf("session %q not found", id)
	}
	s.currentID = id
	return nil
}

// Rename sets a new title and returns the effective one. A blank title
// keeps the old title and is not an error.
func (s *Store) Rename(id, title string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return "", model.NotFoundf("session %q not found", id)
	}
	if title = util.CleanText(title); title != "" {
		s.sessions[i].Title = title
	}
	return s.sessions[i].Title, nil
}

// Delete removes a session. When it was current, the remaining session
// with the latest CreatedAt becomes current.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return model.NotFoundf("session %q not found", id)
	}
	s.sessions = append(s.sessions[:i], s.sessions[i+1:]...)
	delete(s.pending, id)
	if s.currentID == id {
		s.currentID = s.latestLocked()
	}
	return nil
}

// AppendOptimistic appends a user message before its reply is known. Only
// one message per session may be pending.
func (s *Store) AppendOptimistic(sessionID string, msg model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(sessionID)
	if i < 0 {
		return model.NotFoundf("session %q not found", sessionID)
	}
	if _, busy := s.pending[sessionID]; busy {
		return model.Preconditionf("a reply is already pending for this chat")
	}
	s.sessions[i].Messages = append(s.sessions[i].Messages, msg)
	s.pending[sessionID] = msg.ID
	return nil
}

// Commit settles the pending message and appends the reply.
func (s *Store) Commit(sessionID, pendingID string, reply model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(sessionID)
	if i < 0 {
		return model.NotFoundf("session %q not found", sessionID)
	}
	if s.pending[sessionID] != pendingID {
		return model.Preconditionf("message %q is not pending", pendingID)
	}
	delete(s.pending, sessionID)
	s.sessions[i].Messages = append(s.sessions[i].Messages, reply)
	return nil
}

// RollbackLast removes the pending message if it is still the last one in
// the log. It never removes more than that one message, so calling it again
// is a no-op. It reports whether a message was removed.
func (s *Store) RollbackLast(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	pendingID, ok := s.pending[sessionID]
	if !ok {
		return false
	}
	delete(s.pending, sessionID)

	i := s.indexOf(sessionID)
	if i < 0 {
		return false
	}
	msgs := s.sessions[i].Messages
	if n := len(msgs); n > 0 && msgs[n-1].ID == pendingID {
		s.sessions[i].Messages = msgs[:n-1]
		return true
	}
	return false
}

// =============================================================================
// HELPERS
// =============================================================================

func (s *Store) indexOf(id string) int {
	if id == "" {
		return -1
	}
	for i := range s.sessions {
		if s.sessions[i].ID == id {
			return i
		}
	}
	return -1
}

// latestLocked returns the id of the session with the newest CreatedAt.
func (s *Store) latestLocked() string {
	best := -1
	for i := range s.sessions {
		if best < 0 || s.sessions[i].CreatedAt.After(s.sessions[best].CreatedAt) {
			best = i
		}
	}
	if best < 0 {
		return ""
	}
	return s.sessions[best].ID
}
