// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package keys manages the set of OpenRouter API keys and the active-key
// pointer.
//
// Each key moves through unchecked → checking → valid/invalid. Editing a key
// resets it to unchecked. Checks are tagged with a per-key token, and a result
// whose token is no longer the latest for that key is dropped. A slow check
// therefore cannot overwrite the outcome of a newer check or of an edit.
//
// # Usage
//
//	reg := keys.NewRegistry(client, model.CanaryModel)
//	entry, err := reg.Add("personal", "sk-or-...")
//	status, err := reg.CheckStatus(ctx, entry.ID)
//	err = reg.SetActive(entry.ID)
package keys
