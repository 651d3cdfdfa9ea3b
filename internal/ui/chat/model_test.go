// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"testing"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/routerchat/internal/app"
	"github.com/jeranaias/routerchat/internal/cloud"
	"github.com/jeranaias/routerchat/internal/model"
	"github.com/jeranaias/routerchat/internal/storage"
	"github.com/jeranaias/routerchat/internal/ui/styles"
)

// =============================================================================
// HELPERS
// =============================================================================

type stubClient struct {
	reply string
	err   error
}

func (s *stubClient) Complete(ctx context.Context, secret, modelID string, msgs []cloud.ChatMessage) (string, error) {
	return s.reply, s.err
}

func (s *stubClient) Test(ctx context.Context, secret, modelID string) bool {
	return secret == "sk-good"
}

type fixture struct {
	m      Model
	ctrl   *app.Controller
	client *stubClient
	copied string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{client: &stubClient{reply: "**pong**"}}
	f.ctrl = app.New(app.Options{
		Store:  storage.NewStore(storage.NewMemoryKV(), nil),
		Client: f.client,
	})
	f.m = New(context.Background(), f.ctrl, styles.NewThemeFor(true, termenv.Ascii), Options{
		Clipboard: func(s string) error { f.copied = s; return nil },
	})
	f.send(tea.WindowSizeMsg{Width: 120, Height: 40})
	return f
}

// send feeds one message and returns the command, if any.
func (f *fixture) send(msg tea.Msg) tea.Cmd {
	next, cmd := f.m.Update(msg)
	f.m = next.(Model)
	return cmd
}

// press feeds a key and discards the command. Used for typing, where the
// widgets return cursor blink timers.
func (f *fixture) press(msgs ...tea.KeyMsg) {
	for _, msg := range msgs {
		f.send(msg)
	}
}

func (f *fixture) typeText(s string) {
	f.press(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
}

// run executes cmd and feeds the results back, skipping spinner ticks.
func (f *fixture) run(cmd tea.Cmd) {
	if cmd == nil {
		return
	}
	switch msg := cmd().(type) {
	case tea.BatchMsg:
		for _, c := range msg {
			f.run(c)
		}
	case spinner.TickMsg, nil:
	default:
		f.run(f.send(msg))
	}
}

func keyPress(t tea.KeyType) tea.KeyMsg { return tea.KeyMsg{Type: t} }

// ready adds a valid key through the key manager and activates it.
func (f *fixture) ready(t *testing.T) {
	t.Helper()
	f.typeText("a")
	f.typeText("main")
	f.press(keyPress(tea.KeyTab))
	f.typeText("sk-good")
	f.press(keyPress(tea.KeyEnter))
	require.Len(t, f.ctrl.Snapshot().Keys, 1)
	f.press(keyPress(tea.KeyEnter))
	require.False(t, f.ctrl.Snapshot().KeySetupOpen)
}

// =============================================================================
// TESTS
// =============================================================================

func TestStartup_ShowsKeyManager(t *testing.T) {
	f := newFixture(t)
	view := f.m.View()
	assert.Contains(t, view, "API Keys")
	assert.Contains(t, view, "No keys yet")

	// esc cannot close setup without a usable active key
	f.press(keyPress(tea.KeyEsc))
	assert.True(t, f.ctrl.Snapshot().KeySetupOpen)
	assert.Contains(t, f.m.View(), "Activate a valid key before closing.")
}

func TestKeyManager_AddActivateCreatesChat(t *testing.T) {
	f := newFixture(t)
	f.ready(t)

	snap := f.ctrl.Snapshot()
	require.Len(t, snap.Sessions, 1)
	view := f.m.View()
	assert.Contains(t, view, "routerchat")
	assert.Contains(t, view, snap.Sessions[0].Title)
	assert.Contains(t, view, "main [ ] Unchecked")
}

func TestKeyManager_CheckKey(t *testing.T) {
	f := newFixture(t)
	f.ready(t)

	f.press(keyPress(tea.KeyCtrlK))
	require.True(t, f.ctrl.Snapshot().KeySetupOpen)
	f.run(f.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("c")}))

	assert.Equal(t, model.KeyValid, f.ctrl.Snapshot().Keys[0].Status)
	assert.Contains(t, f.m.View(), "Check finished: Valid")
	assert.Zero(t, f.m.keyMgr.checking)

	f.press(keyPress(tea.KeyEsc))
	assert.False(t, f.ctrl.Snapshot().KeySetupOpen)
}

func TestSend_RendersReply(t *testing.T) {
	f := newFixture(t)
	f.ready(t)

	f.typeText("ping")
	cmd := f.send(keyPress(tea.KeyEnter))
	assert.Empty(t, f.m.input.Value(), "input clears on submit")
	f.run(cmd)

	sess, ok := f.ctrl.Snapshot().CurrentSession()
	require.True(t, ok)
	require.Len(t, sess.Messages, 2)
	assert.Equal(t, "ping", sess.Messages[0].Content)
	assert.Equal(t, "**pong**", sess.Messages[1].Content)
	assert.Contains(t, f.m.viewport.View(), "pong")

	f.run(f.send(keyPress(tea.KeyCtrlY)))
	assert.Equal(t, "**pong**", f.copied)
	assert.Contains(t, f.m.View(), "Copied reply (8 chars).")
}

func TestSend_FailureShowsBannerAndRollsBack(t *testing.T) {
	f := newFixture(t)
	f.ready(t)
	f.client.err = &cloud.CompletionError{Status: 401, Detail: "No auth credentials found"}

	f.typeText("ping")
	f.run(f.send(keyPress(tea.KeyEnter)))

	sess, _ := f.ctrl.Snapshot().CurrentSession()
	assert.Empty(t, sess.Messages)
	assert.Contains(t, f.m.View(), "Failed to get response: API error (401): No auth credentials found")

	f.press(keyPress(tea.KeyEsc))
	assert.Empty(t, f.ctrl.Snapshot().Error)
	assert.NotContains(t, f.m.View(), "Failed to get response")
}

func TestSend_RefusedRestoresInput(t *testing.T) {
	f := newFixture(t)
	f.ready(t)

	// delete the only chat
	f.press(keyPress(tea.KeyCtrlX))
	assert.Contains(t, f.m.View(), "Delete chat")
	f.typeText("y")
	require.Empty(t, f.ctrl.Snapshot().Sessions)

	f.typeText("hello")
	f.run(f.send(keyPress(tea.KeyEnter)))
	assert.Equal(t, "hello", f.m.input.Value())
	assert.Contains(t, f.ctrl.Snapshot().Error, "No active chat session")
}

func TestModelPicker(t *testing.T) {
	f := newFixture(t)
	f.ready(t)

	f.press(keyPress(tea.KeyCtrlO))
	assert.Contains(t, f.m.View(), "Select model")
	f.press(keyPress(tea.KeyDown), keyPress(tea.KeyEnter))

	assert.Equal(t, model.DefaultSuggestions[1].Value, f.ctrl.SelectedModel())
	assert.Equal(t, overlayNone, f.m.overlay)

	// custom model row
	f.press(keyPress(tea.KeyCtrlO))
	for range model.DefaultSuggestions {
		f.press(keyPress(tea.KeyDown))
	}
	f.press(keyPress(tea.KeyEnter))
	require.True(t, f.m.picker.editing)
	f.m.picker.custom.SetValue("mistralai/mistral-large")
	f.press(keyPress(tea.KeyEnter))
	assert.Equal(t, "mistralai/mistral-large", f.ctrl.SelectedModel())
}

func TestRenameChat(t *testing.T) {
	f := newFixture(t)
	f.ready(t)
	id := f.ctrl.Snapshot().CurrentSessionID

	f.press(keyPress(tea.KeyCtrlR))
	require.Equal(t, overlayRename, f.m.overlay)
	f.m.rename.SetValue("Trip planning")
	f.press(keyPress(tea.KeyEnter))

	s, _ := f.ctrl.Session(id)
	assert.Equal(t, "Trip planning", s.Title)
	assert.Contains(t, f.m.View(), `Renamed to "Trip planning".`)
}

func TestSidebarNavigation(t *testing.T) {
	f := newFixture(t)
	f.ready(t)
	first := f.ctrl.Snapshot().CurrentSessionID
	f.press(keyPress(tea.KeyCtrlN))
	second := f.ctrl.Snapshot().CurrentSessionID
	require.NotEqual(t, first, second)

	f.press(keyPress(tea.KeyTab))
	require.Equal(t, focusSidebar, f.m.focus)
	f.press(keyPress(tea.KeyDown), keyPress(tea.KeyEnter))

	assert.Equal(t, first, f.ctrl.Snapshot().CurrentSessionID)
	assert.Equal(t, focusInput, f.m.focus)
}

func TestHelpOverlay(t *testing.T) {
	f := newFixture(t)
	f.ready(t)
	f.press(keyPress(tea.KeyF1))
	view := f.m.View()
	assert.Contains(t, view, "Shortcuts")
	assert.Contains(t, view, "new chat")
	f.press(keyPress(tea.KeyEsc))
	assert.Equal(t, overlayNone, f.m.overlay)
}

func TestCopy_FailureNotice(t *testing.T) {
	f := newFixture(t)
	f.ready(t)
	f.m.opts.Clipboard = func(string) error { return errors.New("no clipboard") }

	f.press(keyPress(tea.KeyCtrlY))
	assert.Contains(t, f.m.View(), "No reply to copy.")

	f.typeText("ping")
	f.run(f.send(keyPress(tea.KeyEnter)))
	f.run(f.send(keyPress(tea.KeyCtrlY)))
	assert.Contains(t, f.m.View(), "Copy failed: no clipboard")
}
