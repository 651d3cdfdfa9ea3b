// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/routerchat/internal/app"
	"github.com/jeranaias/routerchat/internal/model"
	"github.com/jeranaias/routerchat/internal/ui/components"
	"github.com/jeranaias/routerchat/internal/util"
)

// =============================================================================
// VIEW
// =============================================================================

// View renders the chat view.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	snap := m.ctrl.Snapshot()

	switch {
	case snap.KeySetupOpen:
		return m.place(m.viewKeyManager(snap))
	case m.overlay == overlayModel:
		return m.place(m.viewModelPicker(snap))
	case m.overlay == overlayRename:
		return m.place(m.viewRename())
	case m.overlay == overlayConfirmDelete:
		return m.place(m.viewConfirmDelete(snap))
	case m.overlay == overlayHelp:
		return m.place(m.viewHelp())
	}

	rows := []string{m.viewHeader(snap)}
	if banner := components.ErrorBanner(snap.Error, m.width, m.theme); banner != "" {
		rows = append(rows, banner)
	}

	column := lipgloss.JoinVertical(lipgloss.Left,
		m.viewport.View(),
		m.theme.InputContainer.Width(m.viewport.Width).Render(m.input.View()),
	)
	if m.sidebarVisible() {
		side := components.Sidebar{
			Sessions:  snap.Sessions,
			CurrentID: snap.CurrentSessionID,
			Cursor:    m.sidebarCursor,
			Focused:   m.focus == focusSidebar,
			Pending:   snap.PendingSessions,
			Width:     m.opts.SidebarWidth,
			Height:    lipgloss.Height(column),
		}.View(m.theme)
		column = lipgloss.JoinHorizontal(lipgloss.Top, side, column)
	}
	rows = append(rows, column, m.viewStatus(snap))
	return strings.Join(rows, "\n")
}

func (m Model) viewHeader(snap app.Snapshot) string {
	t := m.theme
	title := "no chat"
	if s, ok := snap.CurrentSession(); ok {
		title = s.Title
	}
	left := t.HeaderBrand.Render("routerchat") + "  " + util.TruncateWidth(title, max(m.width/2, 10))
	right := t.HeaderModel.Render(model.ModelDisplayName(snap.SelectedModel))

	gap := max(m.width-2-lipgloss.Width(left)-lipgloss.Width(right), 1)
	return t.Header.Width(m.width).MaxHeight(1).Render(left + strings.Repeat(" ", gap) + right)
}

func (m Model) viewStatus(snap app.Snapshot) string {
	bar := components.StatusBar{
		Width:     m.width,
		Loading:   snap.Loading || m.keyMgr.checking > 0,
		Spinner:   m.spinner.View(),
		Notice:    m.notice,
		Shortcuts: m.keys.ShortHelp(),
	}
	if k, ok := snap.ActiveKey(); ok {
		bar.ActiveKey = &k
	}
	return bar.View(m.theme)
}
