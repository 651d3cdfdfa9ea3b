// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the non-interactive routerchat commands and the
// line-based chat REPL.
//
// # Commands
//
//   - chat: Line-editing REPL over the controller
//   - ask: One-shot question into a new or existing chat
//   - keys: API key management (list, add, edit, delete, import, check, activate)
//   - sessions: Chat management (list, show, rename, delete, export)
//   - models: Model selection and the remote catalogue
//   - config: Show, locate or initialize the config file
//   - version, help
//
// Every handler takes an Env, so tests drive commands with in-memory
// readers and writers. The terminal UI is started by main and lives in
// internal/ui/chat.
//
// # Usage
//
//	cmd, args, err := cli.Parse(os.Args[1:])
//	if err != nil {
//	    // usage error
//	}
//	err = cli.Execute(ctx, env, cmd, args)
package cli
