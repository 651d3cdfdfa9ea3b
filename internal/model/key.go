// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"

	"github.com/google/uuid"
)

// KeyStatus is the validation state of an API key.
type KeyStatus string

const (
	KeyUnchecked KeyStatus = "unchecked"
	KeyChecking  KeyStatus = "checking"
	KeyValid     KeyStatus = "valid"
	KeyInvalid   KeyStatus = "invalid"
)

// ParseKeyStatus converts a stored status string. Unknown values are
// reported with ok=false.
func ParseKeyStatus(s string) (KeyStatus, bool) {
	switch KeyStatus(s) {
	case KeyUnchecked, KeyChecking, KeyValid, KeyInvalid:
		return KeyStatus(s), true
	}
	return "", false
}

// Usable reports whether a key in this state may be made active or used
// for a request. Checking and invalid keys are refused.
func (s KeyStatus) Usable() bool {
	return s == KeyValid || s == KeyUnchecked
}

// Label returns the short status label shown next to a key.
func (s KeyStatus) Label() string {
	switch s {
	case KeyValid:
		return "Valid"
	case KeyInvalid:
		return "Invalid"
	case KeyChecking:
		return "Checking..."
	default:
		return "Unchecked"
	}
}

// KeyEntry is a named OpenRouter API key.
type KeyEntry struct {
	ID     string
	Name   string
	APIKey string
	Status KeyStatus
}

// NewKeyID returns a fresh key identifier.
func NewKeyID() string {
	return uuid.NewString()
}

// Masked returns the key with everything but the last four characters
// hidden.
func (k KeyEntry) Masked() string {
	return MaskSecret(k.APIKey)
}

// MaskSecret hides all but the last four characters of secret.
func MaskSecret(secret string) string {
	r := []rune(secret)
	if len(r) <= 4 {
		return strings.Repeat("*", len(r))
	}
	return "******" + string(r[len(r)-4:])
}
