// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "strings"

const (
	// FallbackModel is used when no selection was persisted and the
	// suggestion list is somehow empty.
	FallbackModel = "openai/gpt-3.5-turbo"

	// CanaryModel is the cheap model used to test whether a key works.
	CanaryModel = "google/gemini-2.0-flash-exp:free"
)

// ModelSuggestion is an entry of the model picker.
type ModelSuggestion struct {
	Name  string
	Value string
	Group string
}

// Groups used by DefaultSuggestions.
const (
	GroupFree    = "Free Models"
	GroupPopular = "Popular Models"
)

// DefaultSuggestions is the built-in model picker list. The first entry is
// the default selection.
var DefaultSuggestions = []ModelSuggestion{
	{Name: "Gemini 2.0 Flash Exp (Free)", Value: "google/gemini-2.0-flash-exp:free", Group: GroupFree},
	{Name: "DeepSeek V3 Base (Free)", Value: "deepseek/deepseek-v3-base:free", Group: GroupFree},
	{Name: "Qwen3 32B (Free)", Value: "qwen/qwen3-32b:free", Group: GroupFree},
	{Name: "DeepSeek R1 0528 (Free)", Value: "deepseek/deepseek-r1-0528:free", Group: GroupFree},
	{Name: "GPT-3.5 Turbo", Value: "openai/gpt-3.5-turbo", Group: GroupPopular},
	{Name: "GPT-4o", Value: "openai/gpt-4o", Group: GroupPopular},
	{Name: "Mistral Large", Value: "mistralai/mistral-large-latest", Group: GroupPopular},
	{Name: "Claude 3 Opus", Value: "anthropic/claude-3-opus", Group: GroupPopular},
}

// DefaultModel returns the model selected when nothing was persisted.
func DefaultModel() string {
	if len(DefaultSuggestions) > 0 {
		return DefaultSuggestions[0].Value
	}
	return FallbackModel
}

// SuggestionFor looks up a suggestion by model id or by case-insensitive
// display name.
func SuggestionFor(s string) (ModelSuggestion, bool) {
	for _, m := range DefaultSuggestions {
		if m.Value == s || strings.EqualFold(m.Name, s) {
			return m, true
		}
	}
	return ModelSuggestion{}, false
}

// ModelDisplayName returns the friendly name of a model id, or the id
// itself when it is not one of the suggestions.
func ModelDisplayName(id string) string {
	if m, ok := SuggestionFor(id); ok {
		return m.Name
	}
	return id
}
