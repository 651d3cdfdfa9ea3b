// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists routerchat state in four named string slots.
//
// The slot names and JSON layouts match the browser app's localStorage
// format, so data can be copied between the two:
//
//   - openrouter_api_keys_list: JSON array of {id, name, apiKey, status}
//   - openrouter_active_api_key_id: plain id string, absent when none
//   - openrouter_selected_model_name: plain model id string
//   - openrouter_chat_sessions: JSON array of sessions with epoch-ms times
//
// # Backends
//
// Slots live in a KV backend:
//
//   - FileKV: one file per slot under a data directory (0600)
//   - SQLiteKV: a slots table in a SQLite database (modernc.org/sqlite)
//   - MemoryKV: in-process map, for tests and --storage memory
//
// # Usage
//
//	kv, err := storage.Open(storage.Options{Backend: "file", DataDir: dir})
//	store := storage.NewStore(kv, logger)
//	state := store.Load()
//	err = store.SaveSessions(sessions)
//
// Loading never fails. A slot that is absent or does not parse is replaced
// by its default and a warning is logged.
package storage
