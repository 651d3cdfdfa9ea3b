// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures shared by every routerchat
// component: chat sessions, messages, API key entries and the model list.
//
// # Key Types
//
//   - Session: A named chat with an ordered message log and a fixed model
//   - Message: Single immutable message with role, content and timestamp
//   - KeyEntry: A named OpenRouter API key and its validation status
//   - ModelSuggestion: An entry of the built-in model picker list
//   - Error: Typed error carrying one of the Kind values below
//
// # Usage
//
//	msg := model.NewMessage(model.RoleUser, "Hello!")
//	if errors.Is(err, model.ErrPrecondition) {
//	    // reopen key setup
//	}
package model
