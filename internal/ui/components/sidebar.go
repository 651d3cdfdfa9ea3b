// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"strings"

	"github.com/jeranaias/routerchat/internal/model"
	"github.com/jeranaias/routerchat/internal/ui/styles"
	"github.com/jeranaias/routerchat/internal/util"
)

// =============================================================================
// SESSION SIDEBAR
// =============================================================================

// Sidebar renders the session list, newest first.
type Sidebar struct {
	Sessions  []model.Session
	CurrentID string
	// Cursor is the highlighted row while the sidebar has focus; -1 hides it.
	Cursor  int
	Focused bool
	Pending map[string]bool
	Width   int
	Height  int
}

// View renders the sidebar box. Rows that do not fit scroll with the
// cursor.
func (s Sidebar) View(theme *styles.Theme) string {
	box := theme.Sidebar
	if s.Focused {
		box = theme.SidebarFocused
	}
	// lipgloss counts padding inside Width, the border outside it
	inner := max(s.Width-box.GetHorizontalFrameSize(), 8)

	lines := []string{theme.SidebarTitle.Render(fmt.Sprintf("Chats (%d)", len(s.Sessions)))}
	if len(s.Sessions) == 0 {
		lines = append(lines, theme.SessionMeta.Render("No chats yet"))
	}

	rows := max(s.Height-4, 1) / 2
	first := 0
	if s.Cursor >= rows {
		first = s.Cursor - rows + 1
	}
	for i := first; i < len(s.Sessions) && i < first+rows; i++ {
		sess := s.Sessions[i]
		marker := "  "
		if sess.ID == s.CurrentID {
			marker = "> "
		}
		if s.Pending[sess.ID] {
			marker = "~ "
		}
		title := util.PadWidth(util.TruncateWidth(marker+sess.Title, inner), inner)
		meta := util.TruncateWidth(
			fmt.Sprintf("  %d msgs · %s", len(sess.Messages), model.ModelDisplayName(sess.Model)), inner)

		style := theme.SessionItem
		if s.Focused && i == s.Cursor {
			style = theme.SessionItemSelected
		}
		lines = append(lines, style.Render(title), theme.SessionMeta.Render(meta))
	}

	return box.Width(inner + box.GetHorizontalPadding()).Height(max(s.Height-2, 1)).Render(strings.Join(lines, "\n"))
}
