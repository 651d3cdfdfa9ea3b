// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - The "ask" command.
//
// Command: ask
// Short:   Ask a single question and print the reply
//
// Examples:
//   routerchat ask "What is a goroutine?"          New chat with the selected model
//   routerchat ask -m openai/gpt-4o "Explain CRDTs" Select a model first
//   routerchat ask -s 3f2a "And in Rust?"          Continue an existing chat
//   git diff | routerchat ask -                     Question from stdin
//
// The exchange is saved like any other chat and shows up in the UI.

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jeranaias/routerchat/internal/model"
)

// AskResult is the --json payload of ask.
type AskResult struct {
	SessionID string `json:"session_id"`
	Model     string `json:"model"`
	MessageID string `json:"message_id"`
	Reply     string `json:"reply"`
}

// RunAsk sends one question and prints the reply.
func RunAsk(ctx context.Context, env *Env, args Args) error {
	query := args.Query
	if query == "-" {
		data, err := io.ReadAll(env.In)
		if err != nil {
			return fmt.Errorf("failed to read question from stdin: %w", err)
		}
		query = strings.TrimSpace(string(data))
	}
	if query == "" {
		return ErrMissingArgument("question", `routerchat ask "question"`)
	}

	if args.Model != "" {
		if err := env.Ctrl.SelectModel(args.Model); err != nil {
			return err
		}
	}

	var sessionID string
	if args.Session != "" {
		s, err := resolveSession(env.Ctrl.Snapshot().Sessions, args.Session)
		if err != nil {
			return err
		}
		if err := env.Ctrl.SelectSession(s.ID); err != nil {
			return err
		}
		sessionID = s.ID
	} else {
		s, err := env.Ctrl.NewSession()
		if err != nil {
			return err
		}
		sessionID = s.ID
	}

	reply, err := env.Ctrl.SendMessage(ctx, query)
	if err != nil {
		if errors.Is(err, model.ErrCompletionFailed) {
			return fmt.Errorf("failed to get response: %w", err)
		}
		return err
	}

	result := AskResult{
		SessionID: sessionID,
		Model:     env.Ctrl.SelectedModel(),
		MessageID: reply.ID,
		Reply:     reply.Content,
	}
	return emit(env, args.JSON, "ask", result, func(w io.Writer) {
		fmt.Fprintln(w, newMarkdownPrinter(env).render(reply.Content))
	})
}
