// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/routerchat/internal/app"
	"github.com/jeranaias/routerchat/internal/export"
	"github.com/jeranaias/routerchat/internal/model"
)

// =============================================================================
// ASYNC COMMANDS
// =============================================================================

// The controller is safe for concurrent use, so commands call it directly
// from the tea.Cmd goroutine.

func sendCmd(ctx context.Context, ctrl *app.Controller, text string) tea.Cmd {
	return func() tea.Msg {
		reply, err := ctrl.SendMessage(ctx, text)
		return replyMsg{Reply: reply, Text: text, Err: err}
	}
}

func checkKeyCmd(ctx context.Context, ctrl *app.Controller, id string) tea.Cmd {
	return func() tea.Msg {
		status, err := ctrl.CheckKey(ctx, id)
		return keyCheckedMsg{ID: id, Status: status, Err: err}
	}
}

func checkAllCmd(ctx context.Context, ctrl *app.Controller) tea.Cmd {
	return func() tea.Msg {
		return keysCheckedMsg{Err: ctrl.CheckAllKeys(ctx)}
	}
}

func importKeysCmd(ctrl *app.Controller, path string) tea.Cmd {
	return func() tea.Msg {
		data, err := os.ReadFile(path)
		if err != nil {
			return keysImportedMsg{Err: fmt.Errorf("read import file: %w", err)}
		}
		added, err := ctrl.ImportKeys(data)
		return keysImportedMsg{Count: len(added), Err: err}
	}
}

func copyCmd(write func(string) error, text string) tea.Cmd {
	return func() tea.Msg {
		return copiedMsg{Chars: len([]rune(text)), Err: write(text)}
	}
}

func exportCmd(sess model.Session, dir string) tea.Cmd {
	return func() tea.Msg {
		exp := export.NewMarkdownExporter(nil)
		path := filepath.Join(dir, export.DefaultFilename(&sess, exp, time.Now()))
		out, err := export.ToFile(&sess, exp, path)
		return exportedMsg{Path: out, Err: err}
	}
}
