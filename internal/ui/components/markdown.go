// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
)

// Markdown renders markdown through glamour. Renderers are built lazily per
// wrap width and reused. A nil *Markdown renders text unchanged.
type Markdown struct {
	style string

	mu        sync.Mutex
	renderers map[int]*glamour.TermRenderer
}

// NewMarkdown creates a renderer using a glamour standard style name
// ("dark", "light", "notty").
func NewMarkdown(style string) *Markdown {
	if style == "" {
		style = "dark"
	}
	return &Markdown{style: style, renderers: make(map[int]*glamour.TermRenderer)}
}

// Render renders content wrapped to width. On any renderer failure the
// content is returned as-is.
func (m *Markdown) Render(content string, width int) string {
	if m == nil || strings.TrimSpace(content) == "" {
		return content
	}
	r := m.renderer(max(width, 20))
	if r == nil {
		return content
	}
	out, err := r.Render(content)
	if err != nil {
		return content
	}
	return strings.Trim(out, "\n")
}

func (m *Markdown) renderer(width int) *glamour.TermRenderer {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.renderers[width]; ok {
		return r
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(m.style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		r = nil
	}
	m.renderers[width] = r
	return r
}
