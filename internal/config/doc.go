// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading for routerchat.
//
// Supports both TOML and JSON configuration formats, with defaults,
// environment variable overrides, and validation.
//
// Configuration file locations (in order of precedence):
//   - ~/.routerchat/config.toml
//   - ~/.routerchat/config.json
//   - Built-in defaults
//
// # Environment Variables
//
//   - ROUTERCHAT_HOME: Directory holding config, data and log
//   - ROUTERCHAT_API_URL: OpenRouter API base URL
//   - ROUTERCHAT_TIMEOUT: Request timeout in seconds
//   - ROUTERCHAT_DATA_DIR: Storage directory
//   - ROUTERCHAT_STORAGE: Storage backend (file, sqlite, memory)
//   - ROUTERCHAT_MODEL: Default model
//   - ROUTERCHAT_LOG_LEVEL: debug, info, warn or error
//   - ROUTERCHAT_LOG_FILE: Log file path
package config
