// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cloud provides the OpenRouter chat-completions client.
//
// Every call makes exactly one HTTP request. There are no retries and no
// streaming. The secret key is passed per call so a single Client serves
// every key held in the registry.
//
// # Key Types
//
//   - Client: HTTP client for the OpenRouter API
//   - ChatMessage: Role/content pair in the wire format
//   - CompletionError: Failed completion with HTTP status and provider detail
//
// # Usage
//
//	client := cloud.NewClient().WithBaseURL(cfg.API.BaseURL)
//	reply, err := client.Complete(ctx, secret, "openai/gpt-4o", []cloud.ChatMessage{
//	    cloud.NewUserMessage("Hello"),
//	})
//
// # Security
//
// Secrets are never logged. Log lines carry a short SHA-256 fingerprint of
// the key instead.
package cloud
