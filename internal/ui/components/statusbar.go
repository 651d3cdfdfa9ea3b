// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/routerchat/internal/model"
	"github.com/jeranaias/routerchat/internal/ui/styles"
	"github.com/jeranaias/routerchat/internal/util"
)

// =============================================================================
// STATUS BAR
// =============================================================================

// StatusBar shows the active key, a loading indicator, a transient notice
// and the most useful shortcuts.
type StatusBar struct {
	Width     int
	ActiveKey *model.KeyEntry
	Loading   bool
	Spinner   string
	Notice    string
	Shortcuts []key.Binding
}

// View renders the status bar on one line.
func (s StatusBar) View(theme *styles.Theme) string {
	var left []string
	if s.ActiveKey != nil {
		left = append(left, s.ActiveKey.Name+" "+styles.RenderKeyStatus(s.ActiveKey.Status))
	} else {
		left = append(left, styles.RenderWarning("no active key"))
	}
	if s.Loading {
		left = append(left, theme.Spinner.Render(s.Spinner)+" "+theme.ThinkingText.Render("Waiting for reply..."))
	}
	if s.Notice != "" {
		left = append(left, s.Notice)
	}

	var hints []string
	for _, b := range s.Shortcuts {
		h := b.Help()
		hints = append(hints, theme.ShortcutKey.Render(h.Key)+" "+theme.ShortcutDesc.Render(h.Desc))
	}

	l := strings.Join(left, "  ")
	r := strings.Join(hints, "  ")
	inner := max(s.Width-2, 0)
	gap := inner - lipgloss.Width(l) - lipgloss.Width(r)
	if gap < 1 {
		// drop shortcuts before truncating state
		r = ""
		gap = max(inner-lipgloss.Width(l), 0)
		if gap == 0 {
			l = lipgloss.NewStyle().MaxWidth(inner).Render(l)
		}
	}
	return theme.StatusBar.Width(s.Width).Render(l + strings.Repeat(" ", gap) + r)
}

// =============================================================================
// ERROR BANNER
// =============================================================================

// ErrorBanner renders the controller's last error with a dismiss hint.
// An empty message renders nothing.
func ErrorBanner(message string, width int, theme *styles.Theme) string {
	if message == "" {
		return ""
	}
	text := styles.StatusIndicators.Error + " " + message + "  (esc to dismiss)"
	return theme.ErrorBanner.Width(width).Render(util.TruncateWidth(text, max(width-2, 1)))
}
