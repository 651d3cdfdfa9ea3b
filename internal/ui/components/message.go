// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/routerchat/internal/model"
	"github.com/jeranaias/routerchat/internal/ui/styles"
)

// =============================================================================
// MESSAGE BUBBLE
// =============================================================================

// MessageBubble renders one chat message.
type MessageBubble struct {
	Message       model.Message
	Width         int
	ShowTimestamp bool
	// Markdown renders assistant content; nil leaves it as plain text.
	Markdown *Markdown
	// Pending marks a user message still waiting for its reply.
	Pending bool
}

// View renders the bubble. User messages sit on the right, everything else
// on the left.
func (b MessageBubble) View(theme *styles.Theme) string {
	width := max(b.Width, 24)
	inner := width - 8 // border, padding and gutter

	var bubble lipgloss.Style
	content := strings.TrimRight(b.Message.Content, "\n")
	switch b.Message.Role {
	case model.RoleUser:
		bubble = theme.UserBubble
		content = wrap(content, inner)
	case model.RoleAssistant:
		bubble = theme.AssistantBubble
		if b.Markdown != nil {
			content = b.Markdown.Render(content, inner)
		} else {
			content = wrap(content, inner)
		}
	default:
		bubble = theme.SystemBubble
		content = wrap(content, inner)
	}
	if content == "" {
		content = "..."
	}

	header := theme.RoleLabel.Render(strings.ToLower(b.Message.Role.DisplayName()))
	if b.ShowTimestamp && !b.Message.Timestamp.IsZero() {
		header += " " + theme.Timestamp.Render(b.Message.Timestamp.Local().Format("15:04"))
	}
	if b.Pending {
		header += " " + theme.Timestamp.Render("sending...")
	}

	box := bubble.MaxWidth(width - 2).Render(content)
	if b.Message.Role == model.RoleUser {
		return lipgloss.PlaceHorizontal(width, lipgloss.Right, lipgloss.JoinVertical(lipgloss.Right, header, box))
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, box)
}

// RenderConversation renders all messages separated by blank lines.
// pendingID marks the optimistic user message, if any.
func RenderConversation(msgs []model.Message, width int, theme *styles.Theme, md *Markdown, showTimestamps bool, pendingID string) string {
	if len(msgs) == 0 {
		return theme.EmptyState.Render("No messages yet. Type below and press Enter to start.")
	}
	parts := make([]string, 0, len(msgs))
	for _, m := range msgs {
		parts = append(parts, MessageBubble{
			Message:       m,
			Width:         width,
			ShowTimestamp: showTimestamps,
			Markdown:      md,
			Pending:       pendingID != "" && m.ID == pendingID,
		}.View(theme))
	}
	return strings.Join(parts, "\n\n")
}
