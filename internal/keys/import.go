// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package keys

import (
	"encoding/json"
	"strings"

	"github.com/jeranaias/routerchat/internal/model"
)

// ParseImport decodes a bulk import file: a JSON array of objects, each with
// a non-empty string "name" and "apiKey". One bad element voids the whole
// payload.
func ParseImport(data []byte) ([]ImportEntry, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil || raw == nil {
		return nil, model.Validationf("invalid import file: expected a JSON array of objects with name and apiKey")
	}

	out := make([]ImportEntry, 0, len(raw))
	for i, elem := range raw {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(elem, &fields); err != nil || fields == nil {
			return nil, model.Validationf("invalid import file: entry %d is not an object", i+1)
		}
		name, ok := stringField(fields, "name")
		if !ok {
			return nil, model.Validationf("invalid import file: entry %d has no name", i+1)
		}
		secret, ok := stringField(fields, "apiKey")
		if !ok {
			return nil, model.Validationf("invalid import file: entry %d has no apiKey", i+1)
		}
		out = append(out, ImportEntry{Name: name, APIKey: secret})
	}
	return out, nil
}

func stringField(fields map[string]json.RawMessage, key string) (string, bool) {
	raw, ok := fields[key]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	if strings.TrimSpace(s) == "" {
		return "", false
	}
	return s, true
}
