// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package keys

import (
	"context"
	"strings"
	"sync"

	"github.com/jeranaias/routerchat/internal/model"
	"github.com/jeranaias/routerchat/internal/util"
)

// Tester checks whether a secret is accepted by the completion API.
// *cloud.Client satisfies it.
type Tester interface {
	Test(ctx context.Context, secretKey, modelID string) bool
}

// ImportEntry is one element of a bulk import.
type ImportEntry struct {
	Name   string `json:"name"`
	APIKey string `json:"apiKey"`
}

// Registry holds the key list and the active pointer. All methods are safe
// for concurrent use and return copies.
type Registry struct {
	mu       sync.Mutex
	entries  []model.KeyEntry
	activeID string

	// latest maps key id to the token of its most recent check or edit
	latest    map[string]uint64
	nextToken uint64

	tester      Tester
	canaryModel string
}

// NewRegistry creates an empty registry that checks keys against
// canaryModel.
func NewRegistry(tester Tester, canaryModel string) *Registry {
	if canaryModel == "" {
		canaryModel = model.CanaryModel
	}
	return &Registry{
		latest:      make(map[string]uint64),
		tester:      tester,
		canaryModel: canaryModel,
	}
}

// Restore replaces the registry contents with persisted state. Entries left
// in checking by an interrupted check come back as unchecked, and an active
// id that names no entry is dropped.
func (r *Registry) Restore(entries []model.KeyEntry, activeID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = make([]model.KeyEntry, 0, len(entries))
	r.latest = make(map[string]uint64)
	for _, e := range entries {
		if e.Status == model.KeyChecking || e.Status == "" {
			e.Status = model.KeyUnchecked
		}
		r.entries = append(r.entries, e)
	}
	r.activeID = ""
	if r.indexOf(activeID) >= 0 {
		r.activeID = activeID
	}
}

// =============================================================================
// QUERIES
// =============================================================================

// List returns all entries in insertion order.
func (r *Registry) List() []model.KeyEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.KeyEntry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Len returns the number of keys.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Get returns the entry with the given id.
func (r *Registry) Get(id string) (model.KeyEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i := r.indexOf(id); i >= 0 {
		return r.entries[i], true
	}
	return model.KeyEntry{}, false
}

// ActiveID returns the id of the active key, or "" when none is set.
func (r *Registry) ActiveID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.activeID
}

// Active returns the active entry, if any.
func (r *Registry) Active() (model.KeyEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i := r.indexOf(r.activeID); i >= 0 {
		return r.entries[i], true
	}
	return model.KeyEntry{}, false
}

// FirstUsable returns the first entry whose status allows activation.
func (r *Registry) FirstUsable() (model.KeyEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.Status.Usable() {
			return e, true
		}
	}
	return model.KeyEntry{}, false
}

// =============================================================================
// MUTATIONS
// =============================================================================

// Add registers a new key with status unchecked.
func (r *Registry) Add(name, secret string) (model.KeyEntry, error) {
	name, secret, err := validate(name, secret)
	if err != nil {
		return model.KeyEntry{}, err
	}

	entry := model.KeyEntry{
		ID:     model.NewKeyID(),
		Name:   name,
		APIKey: secret,
		Status: model.KeyUnchecked,
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return entry, nil
}

// Edit replaces the name and secret of an entry and resets it to unchecked.
// Any check still in flight for the entry is invalidated.
func (r *Registry) Edit(id, name, secret string) (model.KeyEntry, error) {
	name, secret, err := validate(name, secret)
	if err != nil {
		return model.KeyEntry{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexOf(id)
	if i < 0 {
		return model.KeyEntry{}, model.NotFoundf("API key %q not found", id)
	}
	r.entries[i].Name = name
	r.entries[i].APIKey = secret
	r.entries[i].Status = model.KeyUnchecked
	r.bumpLocked(id)
	return r.entries[i], nil
}

// Delete removes an entry. wasActive reports whether it was the active key;
// the active pointer is cleared in that case and the caller decides on a
// replacement.
func (r *Registry) Delete(id string) (wasActive bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexOf(id)
	if i < 0 {
		return false, model.NotFoundf("API key %q not found", id)
	}
	r.entries = append(r.entries[:i], r.entries[i+1:]...)
	delete(r.latest, id)
	if r.activeID == id {
		r.activeID = ""
		return true, nil
	}
	return false, nil
}

// BulkImport appends every entry, or none of them if any entry has a blank
// name or secret.
func (r *Registry) BulkImport(items []ImportEntry) ([]model.KeyEntry, error) {
	added := make([]model.KeyEntry, 0, len(items))
	for i, item := range items {
		name, secret, err := validate(item.Name, item.APIKey)
		if err != nil {
			return nil, model.Validationf("import entry %d: %v", i+1, err)
		}
		added = append(added, model.KeyEntry{
			ID:     model.NewKeyID(),
			Name:   name,
			APIKey: secret,
			Status: model.KeyUnchecked,
		})
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, added...)
	return added, nil
}

// SetActive makes id the active key. An empty id clears the pointer. Keys
// that are checking or invalid are refused and the pointer is unchanged.
func (r *Registry) SetActive(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id == "" {
		r.activeID = ""
		return nil
	}
	i := r.indexOf(id)
	if i < 0 {
		return model.NotFoundf("API key %q not found", id)
	}
	if st := r.entries[i].Status; !st.Usable() {
		return model.Preconditionf("API key %q is %s and cannot be activated", r.entries[i].Name, st)
	}
	r.activeID = id
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func (r *Registry) indexOf(id string) int {
	if id == "" {
		return -1
	}
	for i := range r.entries {
		if r.entries[i].ID == id {
			return i
		}
	}
	return -1
}

// bumpLocked issues a new token for id, making older ones stale.
func (r *Registry) bumpLocked(id string) uint64 {
	r.nextToken++
	r.latest[id] = r.nextToken
	return r.nextToken
}

func validate(name, secret string) (string, string, error) {
	name = util.CleanText(name)
	secret = strings.TrimSpace(secret)
	if name == "" {
		return "", "", model.Validationf("key name is required")
	}
	if secret == "" {
		return "", "", model.Validationf("API key is required")
	}
	return name, secret, nil
}
