// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/routerchat/internal/app"
	"github.com/jeranaias/routerchat/internal/model"
	"github.com/jeranaias/routerchat/internal/ui/styles"
	"github.com/jeranaias/routerchat/internal/util"
)

// =============================================================================
// KEY MANAGER
// =============================================================================

type keyMode int

const (
	keyModeList keyMode = iota
	keyModeForm
	keyModeImport
	keyModeConfirmDelete
)

type keyManager struct {
	mode     keyMode
	cursor   int
	editID   string // empty while adding
	field    int    // 0 name, 1 secret
	name     textinput.Model
	secret   textinput.Model
	path     textinput.Model
	notice   string
	checking int
}

func newKeyManager() keyManager {
	name := textinput.New()
	name.Placeholder = "My key"
	name.CharLimit = 80

	secret := textinput.New()
	secret.Placeholder = "sk-or-..."
	secret.EchoMode = textinput.EchoPassword
	secret.EchoCharacter = '*'

	path := textinput.New()
	path.Placeholder = "/path/to/keys.json"

	return keyManager{name: name, secret: secret, path: path}
}

func (k *keyManager) openForm(entry *model.KeyEntry) {
	k.mode = keyModeForm
	k.field = 0
	k.editID = ""
	k.name.Reset()
	k.secret.Reset()
	if entry != nil {
		k.editID = entry.ID
		k.name.SetValue(entry.Name)
		k.secret.SetValue(entry.APIKey)
	}
	k.name.Focus()
	k.secret.Blur()
}

func (k *keyManager) toggleField() {
	k.field = 1 - k.field
	if k.field == 0 {
		k.name.Focus()
		k.secret.Blur()
	} else {
		k.secret.Focus()
		k.name.Blur()
	}
}

func (m Model) handleKeyManagerKey(msg tea.KeyMsg, snap app.Snapshot) (tea.Model, tea.Cmd) {
	km := &m.keyMgr
	switch km.mode {
	case keyModeForm:
		return m.handleKeyForm(msg)
	case keyModeImport:
		switch msg.String() {
		case "esc":
			km.mode = keyModeList
			return m, nil
		case "enter":
			path := strings.TrimSpace(km.path.Value())
			if path == "" {
				km.notice = "Enter the path of a JSON file."
				return m, nil
			}
			km.mode = keyModeList
			km.notice = "Importing..."
			return m, importKeysCmd(m.ctrl, util.ExpandHome(path))
		}
		var cmd tea.Cmd
		km.path, cmd = km.path.Update(msg)
		return m, cmd
	case keyModeConfirmDelete:
		km.mode = keyModeList
		if msg.String() == "y" && km.cursor < len(snap.Keys) {
			entry := snap.Keys[km.cursor]
			if err := m.ctrl.DeleteKey(entry.ID); err != nil {
				km.notice = err.Error()
			} else {
				km.notice = fmt.Sprintf("Deleted %q.", entry.Name)
				km.cursor = max(0, min(km.cursor, len(snap.Keys)-2))
			}
		}
		return m, nil
	}

	var selected *model.KeyEntry
	if km.cursor < len(snap.Keys) {
		selected = &snap.Keys[km.cursor]
	}

	switch msg.String() {
	case "esc":
		if err := m.ctrl.CloseKeySetup(); err != nil {
			km.notice = "Activate a valid key before closing."
		}
		return m, nil
	case "up", "k":
		km.cursor = max(km.cursor-1, 0)
	case "down", "j":
		km.cursor = min(km.cursor+1, max(len(snap.Keys)-1, 0))
	case "a":
		km.openForm(nil)
		km.notice = ""
	case "e":
		if selected != nil {
			km.openForm(selected)
			km.notice = ""
		}
	case "d":
		if selected != nil {
			km.mode = keyModeConfirmDelete
		}
	case "i":
		km.mode = keyModeImport
		km.path.Reset()
		km.path.Focus()
		km.notice = ""
	case "c":
		if selected != nil {
			km.checking++
			km.notice = fmt.Sprintf("Checking %q...", selected.Name)
			return m, tea.Batch(checkKeyCmd(m.ctx, m.ctrl, selected.ID), m.startSpinner())
		}
	case "C":
		if len(snap.Keys) > 0 {
			km.checking++
			km.notice = "Checking all keys..."
			return m, tea.Batch(checkAllCmd(m.ctx, m.ctrl), m.startSpinner())
		}
	case "enter", " ":
		if selected != nil {
			if err := m.ctrl.SetActiveKey(selected.ID); err != nil {
				km.notice = err.Error()
			} else {
				km.notice = ""
				m.notice = fmt.Sprintf("Using key %q.", selected.Name)
				m.focusInput()
			}
		}
	}
	return m, nil
}

func (m Model) handleKeyForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	km := &m.keyMgr
	switch msg.String() {
	case "esc":
		km.mode = keyModeList
		return m, nil
	case "tab", "shift+tab", "up", "down":
		km.toggleField()
		return m, nil
	case "enter":
		if km.field == 0 {
			km.toggleField()
			return m, nil
		}
		var (
			entry model.KeyEntry
			err   error
		)
		if km.editID == "" {
			entry, err = m.ctrl.AddKey(km.name.Value(), km.secret.Value())
		} else {
			entry, err = m.ctrl.EditKey(km.editID, km.name.Value(), km.secret.Value())
		}
		if err != nil {
			km.notice = err.Error()
			return m, nil
		}
		km.mode = keyModeList
		km.notice = fmt.Sprintf("Saved %q. Press c to check it, enter to use it.", entry.Name)
		for i, k := range m.ctrl.Snapshot().Keys {
			if k.ID == entry.ID {
				km.cursor = i
			}
		}
		return m, nil
	}

	var cmd tea.Cmd
	if km.field == 0 {
		km.name, cmd = km.name.Update(msg)
	} else {
		km.secret, cmd = km.secret.Update(msg)
	}
	return m, cmd
}

func (m Model) viewKeyManager(snap app.Snapshot) string {
	t := m.theme
	km := m.keyMgr
	var b strings.Builder
	b.WriteString(t.OverlayTitle.Render("API Keys"))
	b.WriteString("\n")

	switch km.mode {
	case keyModeForm:
		title := "Add key"
		if km.editID != "" {
			title = "Edit key"
		}
		b.WriteString(t.ListGroup.Render(title) + "\n")
		b.WriteString(t.FormLabel.Render("Name") + km.name.View() + "\n")
		b.WriteString(t.FormLabel.Render("API key") + km.secret.View() + "\n")
		b.WriteString(t.Hint.Render("tab switch field · enter save · esc cancel"))
	case keyModeImport:
		b.WriteString(t.ListGroup.Render(`Import a JSON array of {"name", "apiKey"}`) + "\n")
		b.WriteString(km.path.View() + "\n")
		b.WriteString(t.Hint.Render("enter import · esc cancel"))
	default:
		if len(snap.Keys) == 0 {
			b.WriteString(t.SessionMeta.Render("No keys yet. Press a to add your OpenRouter API key.") + "\n")
		}
		for i, k := range snap.Keys {
			marker := "  "
			if k.ID == snap.ActiveKeyID {
				marker = styles.StatusIndicators.Active + " "
			}
			line := fmt.Sprintf("%s%-18s %-12s %s", marker,
				util.TruncateWidth(k.Name, 18), k.Masked(), styles.RenderKeyStatus(k.Status))
			if i == km.cursor {
				b.WriteString(t.ListItemActive.Render(line) + "\n")
			} else {
				b.WriteString(t.ListItem.Render(line) + "\n")
			}
		}
		if km.mode == keyModeConfirmDelete && km.cursor < len(snap.Keys) {
			b.WriteString(styles.RenderWarning(fmt.Sprintf("Delete %q? y/n", snap.Keys[km.cursor].Name)) + "\n")
		}
		b.WriteString(t.Hint.Render("enter use · a add · e edit · d delete · c check · C check all · i import · esc close"))
	}

	if km.notice != "" {
		b.WriteString("\n" + t.ThinkingText.Render(km.notice))
	}
	return t.OverlayBox.Width(min(max(m.width-8, 40), 78)).Render(b.String())
}

// =============================================================================
// MODEL PICKER
// =============================================================================

type modelPicker struct {
	cursor  int
	editing bool
	custom  textinput.Model
}

func newModelPicker() modelPicker {
	in := textinput.New()
	in.Placeholder = "vendor/model-name"
	in.CharLimit = 200
	return modelPicker{custom: in}
}

// open places the cursor on the selected model, or on the custom row.
func (p *modelPicker) open(snap app.Snapshot) {
	p.editing = false
	p.cursor = len(snap.Suggestions)
	for i, s := range snap.Suggestions {
		if s.Value == snap.SelectedModel {
			p.cursor = i
		}
	}
	p.custom.SetValue(snap.SelectedModel)
}

func (m Model) handleModelPickerKey(msg tea.KeyMsg, snap app.Snapshot) (tea.Model, tea.Cmd) {
	p := &m.picker
	if p.editing {
		switch msg.String() {
		case "esc":
			p.editing = false
			p.custom.Blur()
			return m, nil
		case "enter":
			return m.chooseModel(p.custom.Value())
		}
		var cmd tea.Cmd
		p.custom, cmd = p.custom.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "esc":
		m.overlay = overlayNone
	case "up", "k":
		p.cursor = max(p.cursor-1, 0)
	case "down", "j":
		p.cursor = min(p.cursor+1, len(snap.Suggestions))
	case "enter":
		if p.cursor < len(snap.Suggestions) {
			return m.chooseModel(snap.Suggestions[p.cursor].Value)
		}
		p.editing = true
		p.custom.Focus()
	}
	return m, nil
}

func (m Model) chooseModel(name string) (tea.Model, tea.Cmd) {
	if err := m.ctrl.SelectModel(name); err != nil {
		m.notice = err.Error()
		return m, nil
	}
	m.overlay = overlayNone
	m.picker.editing = false
	m.picker.custom.Blur()
	m.notice = "Model: " + model.ModelDisplayName(m.ctrl.SelectedModel())
	return m, nil
}

func (m Model) viewModelPicker(snap app.Snapshot) string {
	t := m.theme
	var b strings.Builder
	b.WriteString(t.OverlayTitle.Render("Select model") + "\n")

	group := ""
	for i, s := range snap.Suggestions {
		if s.Group != group {
			group = s.Group
			b.WriteString(t.ListGroup.Render(group) + "\n")
		}
		line := s.Name
		if s.Value == snap.SelectedModel {
			line += " " + styles.StatusIndicators.Active
		}
		if i == m.picker.cursor {
			b.WriteString(t.ListItemActive.Render(line) + "\n")
		} else {
			b.WriteString(t.ListItem.Render(line) + "\n")
		}
	}

	custom := "Custom model..."
	if m.picker.cursor == len(snap.Suggestions) {
		b.WriteString(t.ListItemActive.Render(custom) + "\n")
	} else {
		b.WriteString(t.ListItem.Render(custom) + "\n")
	}
	if m.picker.editing {
		b.WriteString(m.picker.custom.View() + "\n")
	}
	b.WriteString(t.Hint.Render("New messages use the selected model. enter choose · esc close"))
	return t.OverlayBox.Width(min(max(m.width-8, 40), 64)).Render(b.String())
}

// =============================================================================
// RENAME / DELETE / HELP
// =============================================================================

func (m Model) handleRenameKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.overlay = overlayNone
		m.rename.Blur()
		return m, nil
	case "enter":
		title, err := m.ctrl.RenameSession(m.targetID, m.rename.Value())
		if err != nil && !errors.Is(err, model.ErrNotFound) {
			m.notice = err.Error()
			return m, nil
		}
		m.overlay = overlayNone
		m.rename.Blur()
		if err == nil {
			m.notice = fmt.Sprintf("Renamed to %q.", title)
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.rename, cmd = m.rename.Update(msg)
	return m, cmd
}

func (m Model) handleConfirmDeleteKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.overlay = overlayNone
	if msg.String() != "y" {
		return m, nil
	}
	if err := m.ctrl.DeleteSession(m.targetID); err != nil && !errors.Is(err, model.ErrNotFound) {
		m.notice = err.Error()
		return m, nil
	}
	m.notice = "Chat deleted."
	m.sidebarCursor = max(0, min(m.sidebarCursor, len(m.ctrl.Snapshot().Sessions)-1))
	return m, nil
}

func (m Model) viewRename() string {
	t := m.theme
	body := t.OverlayTitle.Render("Rename chat") + "\n" + m.rename.View() + "\n" +
		t.Hint.Render("enter save · esc cancel · blank keeps the current title")
	return t.OverlayBox.Width(min(max(m.width-8, 40), 60)).Render(body)
}

func (m Model) viewConfirmDelete(snap app.Snapshot) string {
	title := m.targetID
	for _, s := range snap.Sessions {
		if s.ID == m.targetID {
			title = s.Title
		}
	}
	t := m.theme
	body := t.OverlayTitle.Render("Delete chat") + "\n" +
		styles.RenderWarning(fmt.Sprintf("Delete %q and its messages? y/n", title))
	return t.OverlayBox.Width(min(max(m.width-8, 40), 60)).Render(body)
}

func (m Model) viewHelp() string {
	t := m.theme
	h := m.help
	body := t.OverlayTitle.Render("Shortcuts") + "\n" + h.FullHelpView(m.keys.FullHelp()) + "\n" +
		t.Hint.Render("esc close")
	return t.OverlayBox.Render(body)
}

// place centers an overlay box on the screen.
func (m Model) place(box string) string {
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}
