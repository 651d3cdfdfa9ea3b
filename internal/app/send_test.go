// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/routerchat/internal/cloud"
	"github.com/jeranaias/routerchat/internal/model"
)

func TestSendMessage_Success(t *testing.T) {
	h := newHarness(t)
	sess := h.ready(t)
	require.NoError(t, h.ctrl.SelectModel("openai/gpt-4o"))

	reply, err := h.ctrl.SendMessage(context.Background(), "ping")
	require.NoError(t, err)
	assert.Equal(t, model.RoleAssistant, reply.Role)
	assert.Equal(t, "pong", reply.Content)

	// the globally selected model is used, not the session's
	assert.Equal(t, "openai/gpt-4o", h.client.lastModel)
	assert.Equal(t, "sk-good", h.client.lastSecret)
	assert.Equal(t, []cloud.ChatMessage{{Role: "user", Content: "ping"}}, h.client.lastMsgs)

	got, _ := h.ctrl.Session(sess.ID)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "ping", got.Messages[0].Content)
	assert.Equal(t, "pong", got.Messages[1].Content)
	assert.False(t, h.ctrl.Loading())

	// second turn carries the full history
	_, err = h.ctrl.SendMessage(context.Background(), "again")
	require.NoError(t, err)
	assert.Len(t, h.client.lastMsgs, 3)

	persisted, _ := h.reload(t).Session(sess.ID)
	assert.Len(t, persisted.Messages, 4)
}

func TestSendMessage_FailureRollsBack(t *testing.T) {
	h := newHarness(t)
	sess := h.ready(t)
	_, err := h.ctrl.SendMessage(context.Background(), "first")
	require.NoError(t, err)

	h.client.err = &cloud.CompletionError{Status: 200, Detail: "invalid response structure"}
	_, err = h.ctrl.SendMessage(context.Background(), "second")
	assert.ErrorIs(t, err, model.ErrCompletionFailed)

	got, _ := h.ctrl.Session(sess.ID)
	require.Len(t, got.Messages, 2, "log must equal its state before the failed send")
	assert.Equal(t, "pong", got.Messages[1].Content)

	snap := h.ctrl.Snapshot()
	assert.Equal(t, "Failed to get response: invalid response structure", snap.Error)
	assert.False(t, snap.Loading)
	assert.Empty(t, snap.PendingSessions)

	persisted, _ := h.reload(t).Session(sess.ID)
	assert.Len(t, persisted.Messages, 2)

	h.ctrl.DismissError()
	assert.Empty(t, h.ctrl.Snapshot().Error)
}

func TestSendMessage_Preconditions(t *testing.T) {
	t.Run("no active key", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.ctrl.SendMessage(context.Background(), "hi")
		assert.ErrorIs(t, err, model.ErrPrecondition)
		assert.True(t, h.ctrl.Snapshot().KeySetupOpen)
		assert.Zero(t, h.client.calls())
	})

	t.Run("invalid active key", func(t *testing.T) {
		h := newHarness(t)
		k, _ := h.ctrl.AddKey("A", "sk-revoked")
		require.NoError(t, h.ctrl.SetActiveKey(k.ID))
		sess, _ := h.ctrl.Snapshot().CurrentSession()
		h.ctrl.CheckKey(context.Background(), k.ID)
		h.ctrl.CloseKeySetup()

		_, err := h.ctrl.SendMessage(context.Background(), "hi")
		assert.ErrorIs(t, err, model.ErrPrecondition)
		assert.Zero(t, h.client.calls())
		assert.True(t, h.ctrl.Snapshot().KeySetupOpen)
		got, _ := h.ctrl.Session(sess.ID)
		assert.Empty(t, got.Messages)
	})

	t.Run("no current session", func(t *testing.T) {
		h := newHarness(t)
		sess := h.ready(t)
		require.NoError(t, h.ctrl.DeleteSession(sess.ID))
		_, err := h.ctrl.SendMessage(context.Background(), "hi")
		assert.ErrorIs(t, err, model.ErrPrecondition)
		assert.Zero(t, h.client.calls())
	})

	t.Run("blank text", func(t *testing.T) {
		h := newHarness(t)
		h.ready(t)
		_, err := h.ctrl.SendMessage(context.Background(), "   ")
		assert.ErrorIs(t, err, model.ErrValidation)
		assert.Zero(t, h.client.calls())
	})
}

func TestSendMessage_OneInFlightPerSession(t *testing.T) {
	h := newHarness(t)
	sess := h.ready(t)
	h.client.gate = make(chan struct{})
	h.client.entered = make(chan struct{}, 1)

	done := make(chan error, 1)
	go func() {
		_, err := h.ctrl.SendMessage(context.Background(), "slow")
		done <- err
	}()
	<-h.client.entered

	assert.True(t, h.ctrl.Loading())
	assert.True(t, h.ctrl.Snapshot().PendingSessions[sess.ID])

	_, err := h.ctrl.SendMessage(context.Background(), "impatient")
	assert.ErrorIs(t, err, model.ErrPrecondition)

	close(h.client.gate)
	require.NoError(t, <-done)

	got, _ := h.ctrl.Session(sess.ID)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "slow", got.Messages[0].Content)
	assert.False(t, h.ctrl.Loading())
}

func TestSendMessage_ReplyTargetsOriginatingSession(t *testing.T) {
	h := newHarness(t)
	first := h.ready(t)
	h.client.gate = make(chan struct{})
	h.client.entered = make(chan struct{}, 1)

	done := make(chan error, 1)
	go func() {
		_, err := h.ctrl.SendMessage(context.Background(), "question")
		done <- err
	}()
	<-h.client.entered

	second, err := h.ctrl.NewSession()
	require.NoError(t, err)
	close(h.client.gate)
	require.NoError(t, <-done)

	a, _ := h.ctrl.Session(first.ID)
	b, _ := h.ctrl.Session(second.ID)
	assert.Len(t, a.Messages, 2)
	assert.Empty(t, b.Messages)
}

func TestSendMessage_SessionDeletedInFlight(t *testing.T) {
	h := newHarness(t)
	sess := h.ready(t)
	h.client.gate = make(chan struct{})
	h.client.entered = make(chan struct{}, 1)

	done := make(chan error, 1)
	go func() {
		_, err := h.ctrl.SendMessage(context.Background(), "question")
		done <- err
	}()
	<-h.client.entered
	require.NoError(t, h.ctrl.DeleteSession(sess.ID))
	close(h.client.gate)

	assert.ErrorIs(t, <-done, model.ErrNotFound)
	snap := h.ctrl.Snapshot()
	assert.Empty(t, snap.Sessions)
	assert.Empty(t, snap.Error)
}
