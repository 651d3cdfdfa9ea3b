// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session holds the ordered set of chat sessions and the
// current-session pointer.
//
// Messages are appended in two steps. AppendOptimistic adds the user's
// message right away and marks it pending. Commit then adds the reply, or
// RollbackLast removes the pending message when the completion failed. A
// session has at most one pending message, so a second send to the same
// session is refused until the first one settles.
//
// # Key Types
//
//   - Store: Mutex-guarded session list with a current pointer
//
// # Usage
//
//	store := session.NewStore()
//	s, err := store.Create("Chat 1", "openai/gpt-4o", keyID)
//	err = store.AppendOptimistic(s.ID, model.NewMessage(model.RoleUser, "hi"))
package session
