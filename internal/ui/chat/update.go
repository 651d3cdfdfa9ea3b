// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/routerchat/internal/app"
	"github.com/jeranaias/routerchat/internal/model"
)

// =============================================================================
// UPDATE
// =============================================================================

// Update handles Bubble Tea messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	var next tea.Model

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.ready = true
		m.layout()
		next = m

	case tea.KeyMsg:
		next, cmd = m.handleKey(msg)

	case spinner.TickMsg:
		if !m.busy() {
			m.spinning = false
			next = m
			break
		}
		m.spinner, cmd = m.spinner.Update(msg)
		next = m

	case replyMsg:
		next, cmd = m.handleReply(msg)

	case keyCheckedMsg:
		m.keyMgr.checking = max(m.keyMgr.checking-1, 0)
		switch {
		case msg.Err != nil:
			m.keyMgr.notice = msg.Err.Error()
		default:
			m.keyMgr.notice = "Check finished: " + msg.Status.Label()
		}
		next = m

	case keysCheckedMsg:
		m.keyMgr.checking = max(m.keyMgr.checking-1, 0)
		m.keyMgr.notice = "All keys checked."
		if msg.Err != nil {
			m.keyMgr.notice = "Check stopped: " + msg.Err.Error()
		}
		next = m

	case keysImportedMsg:
		if msg.Err != nil {
			m.keyMgr.notice = "Import failed: " + msg.Err.Error()
		} else {
			m.keyMgr.notice = fmt.Sprintf("Imported %d keys.", msg.Count)
		}
		next = m

	case copiedMsg:
		if msg.Err != nil {
			m.notice = "Copy failed: " + msg.Err.Error()
		} else {
			m.notice = fmt.Sprintf("Copied reply (%d chars).", msg.Chars)
		}
		next = m

	case exportedMsg:
		if msg.Err != nil {
			m.notice = "Export failed: " + msg.Err.Error()
		} else {
			m.notice = "Exported to " + msg.Path
		}
		next = m

	default:
		next = m
	}

	mm := next.(Model)
	mm.syncLayout()
	mm.refresh()
	return mm, cmd
}

// syncLayout re-lays out when the error banner appeared or went away.
func (m *Model) syncLayout() {
	if !m.ready {
		return
	}
	banner := 0
	if m.ctrl.Snapshot().Error != "" {
		banner = 1
	}
	want := max(m.bodyHeight(banner)-inputHeight-1, 1)
	if m.viewport.Height != want {
		m.layout()
	}
}

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		return m, tea.Quit
	}

	snap := m.ctrl.Snapshot()
	if snap.KeySetupOpen {
		return m.handleKeyManagerKey(msg, snap)
	}
	switch m.overlay {
	case overlayModel:
		return m.handleModelPickerKey(msg, snap)
	case overlayRename:
		return m.handleRenameKey(msg)
	case overlayConfirmDelete:
		return m.handleConfirmDeleteKey(msg)
	case overlayHelp:
		if key.Matches(msg, m.keys.Dismiss, m.keys.Help) {
			m.overlay = overlayNone
		}
		return m, nil
	}

	m.notice = ""
	switch {
	case key.Matches(msg, m.keys.Dismiss):
		if snap.Error != "" {
			m.ctrl.DismissError()
		} else if m.focus == focusSidebar {
			m.focusInput()
		}
		return m, nil

	case key.Matches(msg, m.keys.Help):
		m.overlay = overlayHelp
		return m, nil

	case key.Matches(msg, m.keys.NewChat):
		if _, err := m.ctrl.NewSession(); err == nil {
			m.sidebarCursor = 0
			m.focusInput()
		}
		return m, nil

	case key.Matches(msg, m.keys.Keys):
		m.ctrl.OpenKeySetup()
		m.keyMgr.mode = keyModeList
		return m, nil

	case key.Matches(msg, m.keys.Model):
		m.picker.open(snap)
		m.overlay = overlayModel
		return m, nil

	case key.Matches(msg, m.keys.Rename):
		if id := m.targetSession(snap); id != "" {
			m.targetID = id
			title := ""
			if s, ok := m.ctrl.Session(id); ok {
				title = s.Title
			}
			m.rename.SetValue(title)
			m.rename.CursorEnd()
			m.rename.Focus()
			m.overlay = overlayRename
		}
		return m, nil

	case key.Matches(msg, m.keys.Delete):
		if id := m.targetSession(snap); id != "" {
			m.targetID = id
			m.overlay = overlayConfirmDelete
		}
		return m, nil

	case key.Matches(msg, m.keys.Copy):
		sess, ok := snap.CurrentSession()
		if !ok {
			m.notice = "No chat selected."
			return m, nil
		}
		last, ok := sess.LastAssistantMessage()
		if !ok || last.Content == "" {
			m.notice = "No reply to copy."
			return m, nil
		}
		return m, copyCmd(m.opts.Clipboard, last.Content)

	case key.Matches(msg, m.keys.Export):
		sess, ok := snap.CurrentSession()
		if !ok {
			m.notice = "No chat selected."
			return m, nil
		}
		return m, exportCmd(sess, m.opts.ExportDir)

	case key.Matches(msg, m.keys.Focus):
		if m.focus == focusInput && m.sidebarVisible() {
			m.focus = focusSidebar
			m.input.Blur()
			m.sidebarCursor = indexOfSession(snap, snap.CurrentSessionID)
		} else {
			m.focusInput()
		}
		return m, nil

	case key.Matches(msg, m.keys.PageUp, m.keys.PageDown):
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	if m.focus == focusSidebar {
		return m.handleSidebarKey(msg, snap)
	}

	if key.Matches(msg, m.keys.Submit) {
		return m.submit()
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleSidebarKey(msg tea.KeyMsg, snap app.Snapshot) (tea.Model, tea.Cmd) {
	n := len(snap.Sessions)
	switch {
	case key.Matches(msg, m.keys.Up):
		m.sidebarCursor = max(m.sidebarCursor-1, 0)
	case key.Matches(msg, m.keys.Down):
		m.sidebarCursor = min(m.sidebarCursor+1, max(n-1, 0))
	case key.Matches(msg, m.keys.Submit):
		if m.sidebarCursor < n {
			if err := m.ctrl.SelectSession(snap.Sessions[m.sidebarCursor].ID); err == nil {
				m.focusInput()
			}
		}
	case msg.String() == "d":
		if m.sidebarCursor < n {
			m.targetID = snap.Sessions[m.sidebarCursor].ID
			m.overlay = overlayConfirmDelete
		}
	case msg.String() == "r":
		if m.sidebarCursor < n {
			s := snap.Sessions[m.sidebarCursor]
			m.targetID = s.ID
			m.rename.SetValue(s.Title)
			m.rename.CursorEnd()
			m.rename.Focus()
			m.overlay = overlayRename
		}
	}
	return m, nil
}

// submit sends the input. The box is cleared right away; a send refused
// before reaching the network puts the text back.
func (m Model) submit() (tea.Model, tea.Cmd) {
	text := m.input.Value()
	if strings.TrimSpace(text) == "" {
		return m, nil
	}
	m.input.Reset()
	return m, tea.Batch(sendCmd(m.ctx, m.ctrl, text), m.startSpinner())
}

func (m Model) handleReply(msg replyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.Err == nil:
		m.logger.Debug("reply rendered", "id", msg.Reply.ID)
	case errors.Is(msg.Err, model.ErrPrecondition), errors.Is(msg.Err, model.ErrValidation):
		if m.input.Value() == "" {
			m.input.SetValue(msg.Text)
		}
	case errors.Is(msg.Err, model.ErrNotFound):
		// chat deleted while waiting; nothing to show
	}
	return m, nil
}

func (m *Model) focusInput() {
	m.focus = focusInput
	m.input.Focus()
}

// targetSession is the highlighted session when the sidebar has focus,
// otherwise the current one.
func (m Model) targetSession(snap app.Snapshot) string {
	if m.focus == focusSidebar && m.sidebarCursor < len(snap.Sessions) {
		return snap.Sessions[m.sidebarCursor].ID
	}
	return snap.CurrentSessionID
}

func indexOfSession(snap app.Snapshot, id string) int {
	for i, s := range snap.Sessions {
		if s.ID == id {
			return i
		}
	}
	return 0
}
