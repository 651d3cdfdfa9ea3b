// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/jeranaias/routerchat/internal/keys"
	"github.com/jeranaias/routerchat/internal/model"
)

func trim(s string) string { return strings.TrimSpace(s) }

// AddKey registers a new API key.
func (c *Controller) AddKey(name, secret string) (model.KeyEntry, error) {
	entry, err := c.keys.Add(name, secret)
	if err != nil {
		return model.KeyEntry{}, err
	}
	c.logger.Info("key added", "id", entry.ID)
	c.persistKeys()
	return entry, nil
}

// EditKey changes a key's name and secret. Its status goes back to
// unchecked.
func (c *Controller) EditKey(id, name, secret string) (model.KeyEntry, error) {
	entry, err := c.keys.Edit(id, name, secret)
	if err != nil {
		return model.KeyEntry{}, err
	}
	c.persistKeys()
	return entry, nil
}

// DeleteKey removes a key. When it was active, the first remaining key that
// may be activated takes over; otherwise no key is active and key setup
// opens.
func (c *Controller) DeleteKey(id string) error {
	wasActive, err := c.keys.Delete(id)
	if err != nil {
		return err
	}
	if wasActive {
		if next, ok := c.keys.FirstUsable(); ok {
			if err := c.keys.SetActive(next.ID); err != nil {
				c.logger.Warn("could not reassign active key", "id", next.ID, "error", err)
			}
		}
		if c.keys.ActiveID() == "" {
			c.OpenKeySetup()
		}
		c.persistActive()
	}
	c.persistKeys()
	return nil
}

// ImportKeys parses a bulk import file and appends every entry, or none.
func (c *Controller) ImportKeys(data []byte) ([]model.KeyEntry, error) {
	items, err := keys.ParseImport(data)
	if err != nil {
		return nil, err
	}
	added, err := c.keys.BulkImport(items)
	if err != nil {
		return nil, err
	}
	c.logger.Info("keys imported", "count", len(added))
	c.persistKeys()
	return added, nil
}

// CheckKey checks one key and returns the resulting status. A result that
// went stale while in flight is dropped; the returned status is whatever
// the key holds afterwards. When ctx ends first the key goes back to
// unchecked and the context error is returned.
func (c *Controller) CheckKey(ctx context.Context, id string) (model.KeyStatus, error) {
	check, err := c.keys.BeginCheck(id)
	if err != nil {
		return "", err
	}
	c.persistKeys()

	ok := c.keys.RunCheck(ctx, check)
	if err := ctx.Err(); err != nil {
		c.keys.AbandonCheck(check)
		c.persistKeys()
		return "", err
	}
	if !c.keys.FinishCheck(check, ok) {
		c.logger.Debug("stale key check dropped", "id", id, "token", check.Token)
	}
	c.persistKeys()

	entry, found := c.keys.Get(id)
	if !found {
		return "", model.NotFoundf("API key %q was removed during the check", id)
	}
	if id == c.keys.ActiveID() && entry.Status == model.KeyInvalid {
		c.setError(fmt.Sprintf("Active API key %q is invalid. Please select a valid one.", entry.Name))
	}
	return entry.Status, nil
}

// CheckAllKeys checks every key with bounded concurrency.
func (c *Controller) CheckAllKeys(ctx context.Context) error {
	opts := c.checkOpts
	opts.OnBegin = func(string) { c.persistKeys() }
	opts.OnFinish = func(string, model.KeyStatus) { c.persistKeys() }
	err := c.keys.CheckAll(ctx, opts)
	if err != nil {
		// abandoned checks reset their keys without an OnFinish
		c.persistKeys()
	}

	if active, ok := c.keys.Active(); ok && active.Status == model.KeyInvalid {
		c.setError(fmt.Sprintf("Active API key %q is invalid. Please select a valid one.", active.Name))
	}
	return err
}

// SetActiveKey selects the key used for requests. An empty id clears it.
// On success key setup closes, the error clears, and a first chat is
// created when there are none.
func (c *Controller) SetActiveKey(id string) error {
	if err := c.keys.SetActive(id); err != nil {
		return c.fail(err, false)
	}
	c.persistActive()

	c.mu.Lock()
	c.keySetupOpen = id == ""
	c.lastError = ""
	c.mu.Unlock()

	if id != "" && c.sessions.Len() == 0 {
		if _, err := c.NewSession(); err != nil {
			c.logger.Warn("could not create first chat", "error", err)
		}
	}
	return nil
}
