// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/jeranaias/routerchat/internal/cloud"
	"github.com/jeranaias/routerchat/internal/keys"
	"github.com/jeranaias/routerchat/internal/model"
	"github.com/jeranaias/routerchat/internal/session"
	"github.com/jeranaias/routerchat/internal/storage"
)

// Client is the slice of the completion API the controller needs.
// *cloud.Client satisfies it.
type Client interface {
	Complete(ctx context.Context, secretKey, modelID string, messages []cloud.ChatMessage) (string, error)
	Test(ctx context.Context, secretKey, modelID string) bool
}

// Options configures New.
type Options struct {
	Store  *storage.Store
	Client Client
	Logger *slog.Logger

	// CanaryModel is used to check keys. Defaults to model.CanaryModel.
	CanaryModel string
	// CheckConcurrency and CheckRatePerSec bound CheckAllKeys.
	CheckConcurrency int
	CheckRatePerSec  float64

	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Controller owns the key registry, the session store and the UI-facing
// flags. All methods are safe for concurrent use.
type Controller struct {
	keys     *keys.Registry
	sessions *session.Store
	store    *storage.Store
	client   Client
	logger   *slog.Logger
	now      func() time.Time

	checkOpts keys.CheckAllOptions

	mu            sync.Mutex
	selectedModel string
	lastError     string
	keySetupOpen  bool
	inflight      int

	// saveMu orders slot writes so the newest snapshot always lands last
	saveMu sync.Mutex
}

// New builds a controller from the persisted state. Key setup is opened
// when there are no keys or no active key, and the newest session becomes
// current.
func New(opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	store := opts.Store
	if store == nil {
		store = storage.NewStore(storage.NewMemoryKV(), logger)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	c := &Controller{
		keys:     keys.NewRegistry(opts.Client, opts.CanaryModel),
		sessions: session.NewStore(),
		store:    store,
		client:   opts.Client,
		logger:   logger,
		now:      now,
		checkOpts: keys.CheckAllOptions{
			Concurrency: opts.CheckConcurrency,
			RatePerSec:  opts.CheckRatePerSec,
		},
	}

	st := store.Load()
	c.keys.Restore(st.Keys, st.ActiveKeyID)
	c.sessions.Restore(st.Sessions)
	c.selectedModel = st.SelectedModel
	c.keySetupOpen = c.keys.Len() == 0 || c.keys.ActiveID() == ""

	if st.ActiveKeyID != "" && c.keys.ActiveID() == "" {
		logger.Warn("active key id names no stored key, clearing it", "id", st.ActiveKeyID)
		c.persistActive()
	}
	logger.Info("state loaded",
		"keys", c.keys.Len(),
		"sessions", c.sessions.Len(),
		"model", c.selectedModel,
		"key_setup", c.keySetupOpen,
	)
	return c
}

// =============================================================================
// SNAPSHOT
// =============================================================================

// Snapshot is an immutable view of the controller state for rendering.
type Snapshot struct {
	Keys             []model.KeyEntry
	ActiveKeyID      string
	SelectedModel    string
	Sessions         []model.Session // newest first
	CurrentSessionID string
	PendingSessions  map[string]bool
	Loading          bool
	Error            string
	KeySetupOpen     bool
	Suggestions      []model.ModelSuggestion
}

// CurrentSession returns the current session from the snapshot.
func (s Snapshot) CurrentSession() (model.Session, bool) {
	for _, sess := range s.Sessions {
		if sess.ID == s.CurrentSessionID {
			return sess, true
		}
	}
	return model.Session{}, false
}

// ActiveKey returns the active key from the snapshot.
func (s Snapshot) ActiveKey() (model.KeyEntry, bool) {
	for _, k := range s.Keys {
		if k.ID == s.ActiveKeyID {
			return k, true
		}
	}
	return model.KeyEntry{}, false
}

// Snapshot captures the current state.
func (c *Controller) Snapshot() Snapshot {
	snap := Snapshot{
		Keys:             c.keys.List(),
		ActiveKeyID:      c.keys.ActiveID(),
		Sessions:         c.sessions.List(),
		CurrentSessionID: c.sessions.CurrentID(),
		PendingSessions:  make(map[string]bool),
		Suggestions:      append([]model.ModelSuggestion(nil), model.DefaultSuggestions...),
	}
	for _, s := range snap.Sessions {
		if c.sessions.Pending(s.ID) {
			snap.PendingSessions[s.ID] = true
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	snap.SelectedModel = c.selectedModel
	snap.Loading = c.inflight > 0
	snap.Error = c.lastError
	snap.KeySetupOpen = c.keySetupOpen
	return snap
}

// Loading reports whether any send is outstanding.
func (c *Controller) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inflight > 0
}

// SelectedModel returns the globally selected model.
func (c *Controller) SelectedModel() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selectedModel
}

// Session returns a copy of one session.
func (c *Controller) Session(id string) (model.Session, bool) {
	return c.sessions.Get(id)
}

// Key returns a copy of one key entry.
func (c *Controller) Key(id string) (model.KeyEntry, bool) {
	return c.keys.Get(id)
}

// =============================================================================
// UI FLAGS
// =============================================================================

// OpenKeySetup shows the key manager.
func (c *Controller) OpenKeySetup() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.keySetupOpen = true
}

// CloseKeySetup hides the key manager. It is refused while there is no
// usable active key.
func (c *Controller) CloseKeySetup() error {
	active, ok := c.keys.Active()
	if !ok || !active.Status.Usable() {
		err := model.Preconditionf("an active and valid API key is required")
		c.setError(err.Error())
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.keySetupOpen = false
	return nil
}

// DismissError clears the last error.
func (c *Controller) DismissError() {
	c.setError("")
}

func (c *Controller) setError(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastError = msg
}

// fail records err as the last error, optionally opening key setup, and
// returns it.
func (c *Controller) fail(err error, openSetup bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastError = err.Error()
	if openSetup {
		c.keySetupOpen = true
	}
	return err
}

// =============================================================================
// MODEL SELECTION
// =============================================================================

// SelectModel sets the model used for new sessions and new messages.
func (c *Controller) SelectModel(name string) error {
	name = trim(name)
	if name == "" {
		return model.Validationf("model name is required")
	}
	c.mu.Lock()
	c.selectedModel = name
	c.mu.Unlock()

	c.saveMu.Lock()
	defer c.saveMu.Unlock()
	c.report(c.store.SaveSelectedModel(name))
	return nil
}

// =============================================================================
// PERSISTENCE
// =============================================================================

func (c *Controller) persistKeys() {
	c.saveMu.Lock()
	defer c.saveMu.Unlock()
	c.report(c.store.SaveKeys(c.keys.List()))
}

func (c *Controller) persistActive() {
	c.saveMu.Lock()
	defer c.saveMu.Unlock()
	c.report(c.store.SaveActiveKeyID(c.keys.ActiveID()))
}

func (c *Controller) persistSessions() {
	c.saveMu.Lock()
	defer c.saveMu.Unlock()
	c.report(c.store.SaveSessions(c.sessions.All()))
}

// report logs a failed write and surfaces it. Memory is never rolled back.
func (c *Controller) report(err error) {
	if err == nil {
		return
	}
	c.logger.Error("persist failed", "error", err)
	c.setError("Failed to save: " + err.Error())
}

// Flush rewrites all four slots and returns the first error.
func (c *Controller) Flush() error {
	c.saveMu.Lock()
	defer c.saveMu.Unlock()
	return errors.Join(
		c.store.SaveKeys(c.keys.List()),
		c.store.SaveActiveKeyID(c.keys.ActiveID()),
		c.store.SaveSelectedModel(c.SelectedModel()),
		c.store.SaveSessions(c.sessions.All()),
	)
}

// Close flushes and releases the storage backend.
func (c *Controller) Close() error {
	return errors.Join(c.Flush(), c.store.Close())
}
