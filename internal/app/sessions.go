// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"fmt"

	"github.com/jeranaias/routerchat/internal/model"
)

// usableActiveKey returns the active key or the precondition error that
// send and new-session report, opening key setup.
func (c *Controller) usableActiveKey() (model.KeyEntry, error) {
	active, ok := c.keys.Active()
	if !ok {
		return model.KeyEntry{}, c.fail(model.Preconditionf("Please set an active API key first."), true)
	}
	if !active.Status.Usable() {
		return model.KeyEntry{}, c.fail(model.Preconditionf(
			"Active API key %q is %s. Please select a valid one or check its status.", active.Name, active.Status), true)
	}
	return active, nil
}

// NewSession starts a chat bound to the active key and the selected model,
// and makes it current.
func (c *Controller) NewSession() (model.Session, error) {
	active, err := c.usableActiveKey()
	if err != nil {
		return model.Session{}, err
	}
	modelID := c.SelectedModel()
	if modelID == "" {
		return model.Session{}, c.fail(model.Preconditionf("Please select an AI model before starting a new chat."), false)
	}

	title := fmt.Sprintf("Chat %d (%s)", c.sessions.Len()+1, c.now().Format("15:04:05"))
	sess, err := c.sessions.Create(title, modelID, active.ID)
	if err != nil {
		return model.Session{}, c.fail(err, false)
	}
	c.setError("")
	c.persistSessions()
	return sess, nil
}

// SelectSession makes id the current session.
func (c *Controller) SelectSession(id string) error {
	if err := c.sessions.Select(id); err != nil {
		return err
	}
	c.setError("")
	return nil
}

// RenameSession sets a session title. A blank title keeps the old one.
func (c *Controller) RenameSession(id, title string) (string, error) {
	effective, err := c.sessions.Rename(id, title)
	if err != nil {
		return "", err
	}
	c.persistSessions()
	return effective, nil
}

// DeleteSession removes a session; the newest remaining one becomes current
// if it was current.
func (c *Controller) DeleteSession(id string) error {
	if err := c.sessions.Delete(id); err != nil {
		return err
	}
	c.persistSessions()
	return nil
}
