// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/routerchat/internal/app"
	"github.com/jeranaias/routerchat/internal/ui/components"
	"github.com/jeranaias/routerchat/internal/ui/styles"
)

// =============================================================================
// OPTIONS
// =============================================================================

// Options configures the chat view.
type Options struct {
	RenderMarkdown bool
	ShowTimestamps bool
	SidebarWidth   int
	// ExportDir is where ctrl+e writes Markdown exports. Empty means the
	// working directory.
	ExportDir string
	Logger    *slog.Logger
	// Clipboard writes text to the system clipboard. Defaults to
	// clipboard.WriteAll.
	Clipboard func(string) error
}

// =============================================================================
// CHAT STATE
// =============================================================================

type focus int

const (
	focusInput focus = iota
	focusSidebar
)

// overlay is a modal drawn over the chat. The key manager is not listed:
// it is shown whenever the controller reports key setup open.
type overlay int

const (
	overlayNone overlay = iota
	overlayModel
	overlayRename
	overlayConfirmDelete
	overlayHelp
)

// Input box height in lines, without its border.
const inputHeight = 3

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat view.
type Model struct {
	ctx    context.Context
	ctrl   *app.Controller
	theme  *styles.Theme
	opts   Options
	keys   KeyMap
	logger *slog.Logger

	// Dimensions
	width  int
	height int
	ready  bool

	// Widgets
	input    textarea.Model
	viewport viewport.Model
	spinner  spinner.Model
	help     help.Model
	md       *components.Markdown

	// UI state
	focus         focus
	overlay       overlay
	sidebarCursor int
	spinning      bool
	notice        string
	contentKey    string

	// Overlay state
	keyMgr   keyManager
	picker   modelPicker
	rename   textinput.Model
	targetID string // session being renamed or deleted
}

// New creates the chat view over ctrl.
func New(ctx context.Context, ctrl *app.Controller, theme *styles.Theme, opts Options) Model {
	if opts.SidebarWidth <= 0 {
		opts.SidebarWidth = 28
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Clipboard == nil {
		opts.Clipboard = clipboard.WriteAll
	}

	ta := textarea.New()
	ta.Placeholder = "Type a message..."
	ta.ShowLineNumbers = false
	ta.Prompt = "> "
	ta.CharLimit = 0
	ta.SetHeight(inputHeight)
	ta.KeyMap.InsertNewline = DefaultKeyMap().Newline
	ta.Focus()

	sp := spinner.New(spinner.WithSpinner(styles.LineSpinner.Bubbles()))
	sp.Style = theme.Spinner

	rn := textinput.New()
	rn.Placeholder = "Chat title"
	rn.CharLimit = 120

	var md *components.Markdown
	if opts.RenderMarkdown {
		md = components.NewMarkdown(theme.GlamourStyle())
	}

	return Model{
		ctx:      ctx,
		ctrl:     ctrl,
		theme:    theme,
		opts:     opts,
		keys:     DefaultKeyMap(),
		logger:   opts.Logger,
		input:    ta,
		viewport: viewport.New(80, 20),
		spinner:  sp,
		help:     help.New(),
		md:       md,
		keyMgr:   newKeyManager(),
		picker:   newModelPicker(),
		rename:   rn,
	}
}

// Init starts the cursor blink and sets the terminal title.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, tea.SetWindowTitle("routerchat"))
}

// Run starts the full-screen program and blocks until the user quits.
func Run(ctx context.Context, ctrl *app.Controller, theme *styles.Theme, opts Options) error {
	p := tea.NewProgram(New(ctx, ctrl, theme, opts), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}

// =============================================================================
// LAYOUT
// =============================================================================

func (m Model) sidebarVisible() bool {
	return m.theme.GetLayoutMode() != styles.LayoutNarrow
}

// bodyHeight is the height shared by the sidebar and the conversation
// column (viewport plus input).
func (m Model) bodyHeight(bannerLines int) int {
	// header + status bar
	return max(m.height-2-bannerLines, 4)
}

func (m *Model) layout() {
	m.theme.SetSize(m.width, m.height)
	banner := 0
	if m.ctrl.Snapshot().Error != "" {
		banner = 1
	}
	mainWidth := m.width
	if m.sidebarVisible() {
		mainWidth -= m.opts.SidebarWidth
	}
	mainWidth = max(mainWidth, 10)

	m.input.SetWidth(mainWidth)
	m.viewport.Width = mainWidth
	m.viewport.Height = max(m.bodyHeight(banner)-inputHeight-1, 1)
	m.help.Width = m.width
	m.contentKey = ""
}

// refresh re-renders the conversation when it changed since the last
// render. The viewport sticks to the bottom on change.
func (m *Model) refresh() {
	if !m.ready {
		return
	}
	snap := m.ctrl.Snapshot()
	sess, ok := snap.CurrentSession()
	pendingID := ""
	if ok && snap.PendingSessions[sess.ID] {
		if last, has := sess.LastMessage(); has {
			pendingID = last.ID
		}
	}

	key := fmt.Sprintf("%s|%d|%s|%d|%d", sess.ID, len(sess.Messages), pendingID, m.viewport.Width, m.viewport.Height)
	if ok && len(sess.Messages) > 0 {
		key += "|" + sess.Messages[len(sess.Messages)-1].ID
	}
	if key == m.contentKey {
		return
	}
	m.contentKey = key

	if !ok {
		m.viewport.SetContent(m.theme.EmptyState.Render("No chat selected. Press ctrl+n to start one."))
		return
	}
	m.viewport.SetContent(components.RenderConversation(
		sess.Messages, m.viewport.Width-1, m.theme, m.md, m.opts.ShowTimestamps, pendingID))
	m.viewport.GotoBottom()
}

// busy reports whether the spinner should run.
func (m Model) busy() bool {
	return m.ctrl.Loading() || m.keyMgr.checking > 0
}

// startSpinner starts one tick loop if none is running.
func (m *Model) startSpinner() tea.Cmd {
	if m.spinning {
		return nil
	}
	m.spinning = true
	return m.spinner.Tick
}
