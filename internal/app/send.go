// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"context"
	"errors"
	"time"

	"github.com/jeranaias/routerchat/internal/cloud"
	"github.com/jeranaias/routerchat/internal/model"
)

// SendMessage appends text to the current session and asks for a reply.
//
// The user message is shown right away. On success the reply is appended to
// the session that was current when the call started; on failure the user
// message is rolled back and the error is surfaced. A session accepts one
// outstanding send at a time.
func (c *Controller) SendMessage(ctx context.Context, text string) (model.Message, error) {
	active, err := c.usableActiveKey()
	if err != nil {
		return model.Message{}, err
	}
	sess, ok := c.sessions.Current()
	if !ok {
		return model.Message{}, c.fail(model.Preconditionf("No active chat session. Please create or select a chat."), false)
	}
	modelID := c.SelectedModel()
	if modelID == "" {
		return model.Message{}, c.fail(model.Preconditionf("No AI model selected. Please choose a model."), false)
	}
	if trim(text) == "" {
		return model.Message{}, model.Validationf("message is empty")
	}

	user := model.NewMessage(model.RoleUser, text)
	if err := c.sessions.AppendOptimistic(sess.ID, user); err != nil {
		return model.Message{}, c.fail(err, false)
	}
	c.mu.Lock()
	c.inflight++
	c.lastError = ""
	c.mu.Unlock()
	c.persistSessions()

	defer func() {
		c.mu.Lock()
		c.inflight--
		c.mu.Unlock()
	}()

	outbound := cloud.FromMessages(append(sess.Messages, user))
	start := time.Now()
	content, err := c.client.Complete(ctx, active.APIKey, modelID, outbound)
	log := c.logger.With("session", sess.ID, "model", modelID, "duration", time.Since(start).Round(time.Millisecond))

	if err != nil {
		removed := c.sessions.RollbackLast(sess.ID)
		if _, exists := c.sessions.Get(sess.ID); !exists {
			log.Info("reply dropped, session deleted", "error", err)
			return model.Message{}, model.NotFoundf("chat was deleted before the reply arrived")
		}
		log.Warn("completion failed", "error", err, "rolled_back", removed)
		c.setError("Failed to get response: " + errorDetail(err))
		c.persistSessions()
		return model.Message{}, err
	}

	reply := model.NewMessage(model.RoleAssistant, content)
	if err := c.sessions.Commit(sess.ID, user.ID, reply); err != nil {
		log.Info("reply dropped", "error", err)
		return model.Message{}, err
	}
	log.Info("reply received", "chars", len(content))
	c.persistSessions()
	return reply, nil
}

// errorDetail extracts the human-readable part of a completion failure.
func errorDetail(err error) string {
	var ce *cloud.CompletionError
	if errors.As(err, &ce) {
		return ce.Error()
	}
	return err.Error()
}
