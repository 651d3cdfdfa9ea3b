// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/routerchat/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete routerchat configuration.
type Config struct {
	API     APIConfig     `toml:"api" json:"api"`
	Storage StorageConfig `toml:"storage" json:"storage"`
	Chat    ChatConfig    `toml:"chat" json:"chat"`
	Keys    KeysConfig    `toml:"keys" json:"keys"`
	UI      UIConfig      `toml:"ui" json:"ui"`
	Log     LogConfig     `toml:"log" json:"log"`
}

// APIConfig configures the OpenRouter client.
type APIConfig struct {
	BaseURL       string `toml:"base_url" json:"base_url"`
	Referer       string `toml:"referer" json:"referer"`
	Title         string `toml:"title" json:"title"`
	TimeoutSecs   int    `toml:"timeout_secs" json:"timeout_secs"`
	CanaryModel   string `toml:"canary_model" json:"canary_model"`
	TestMaxTokens int    `toml:"test_max_tokens" json:"test_max_tokens"`
}

// StorageConfig selects where chat state is persisted.
type StorageConfig struct {
	// Backend is one of: file, sqlite, memory
	Backend    string `toml:"backend" json:"backend"`
	DataDir    string `toml:"data_dir" json:"data_dir"`
	SQLitePath string `toml:"sqlite_path" json:"sqlite_path"`
}

// ChatConfig holds chat defaults.
type ChatConfig struct {
	// DefaultModel is selected when no model was persisted yet
	DefaultModel string `toml:"default_model" json:"default_model"`
}

// KeysConfig bounds bulk key checks.
type KeysConfig struct {
	CheckConcurrency int     `toml:"check_concurrency" json:"check_concurrency"`
	CheckRatePerSec  float64 `toml:"check_rate_per_sec" json:"check_rate_per_sec"`
}

// UIConfig holds terminal UI preferences.
type UIConfig struct {
	RenderMarkdown bool `toml:"render_markdown" json:"render_markdown"`
	ShowTimestamps bool `toml:"show_timestamps" json:"show_timestamps"`
	SidebarWidth   int  `toml:"sidebar_width" json:"sidebar_width"`
}

// LogConfig configures the log file.
type LogConfig struct {
	Level string `toml:"level" json:"level"`
	File  string `toml:"file" json:"file"`
}

// Default returns a configuration with all defaults applied.
func Default() *Config {
	dir, err := ConfigDir()
	if err != nil {
		dir = ".routerchat"
	}
	return &Config{
		API: APIConfig{
			BaseURL:       "https://openrouter.ai/api/v1",
			Referer:       "http://localhost:3000",
			Title:         "routerchat",
			TimeoutSecs:   60,
			CanaryModel:   "google/gemini-2.0-flash-exp:free",
			TestMaxTokens: 5,
		},
		Storage: StorageConfig{
			Backend: "file",
			DataDir: filepath.Join(dir, "data"),
		},
		Chat: ChatConfig{
			DefaultModel: "google/gemini-2.0-flash-exp:free",
		},
		Keys: KeysConfig{
			CheckConcurrency: 4,
			CheckRatePerSec:  2,
		},
		UI: UIConfig{
			RenderMarkdown: true,
			ShowTimestamps: true,
			SidebarWidth:   28,
		},
		Log: LogConfig{
			Level: "info",
			File:  filepath.Join(dir, "routerchat.log"),
		},
	}
}

// Timeout returns the API timeout as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.API.TimeoutSecs) * time.Second
}

// SQLitePath returns the database path, derived from the data dir when unset.
func (c *Config) SQLitePath() string {
	if c.Storage.SQLitePath != "" {
		return c.Storage.SQLitePath
	}
	return filepath.Join(c.Storage.DataDir, "routerchat.db")
}

// =============================================================================
// PATHS
// =============================================================================

// ConfigDir returns the routerchat home directory. ROUTERCHAT_HOME overrides
// the default of ~/.routerchat.
func ConfigDir() (string, error) {
	if dir := os.Getenv("ROUTERCHAT_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".routerchat"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// ensureSecurePermissions tightens a config file to 0600.
// SECURITY: Config files may reference key material; keep them owner-only.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load reads ~/.routerchat/config.toml, then config.json, falling back to
// defaults when neither exists. Environment overrides are applied last.
func Load() (*Config, error) {
	if path, err := ConfigPathTOML(); err == nil && fileExists(path) {
		return LoadFromPath(path)
	}
	if path, err := ConfigPathJSON(); err == nil && fileExists(path) {
		return LoadFromPath(path)
	}
	return finish(Default())
}

// LoadFromPath loads a specific file. Files ending in .json are read as
// JSON, everything else as TOML.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	if strings.HasSuffix(strings.ToLower(path), ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}
	return finish(cfg)
}

func finish(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file over cfg.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		fmt.Fprintf(os.Stderr, "Warning: unknown config keys in %s: %v\n", path, undecoded)
	}
	return nil
}

// LoadJSON decodes a JSON file over cfg.
func LoadJSON(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// SaveTOML writes the configuration as TOML with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	fmt.Fprintln(&buf, "# routerchat configuration file")
	fmt.Fprintln(&buf, "# Environment variables ROUTERCHAT_* override these values.")
	fmt.Fprintln(&buf)
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// String renders the configuration as TOML.
func (c *Config) String() string {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return fmt.Sprintf("<config: %v>", err)
	}
	return buf.String()
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate checks the configuration and returns all problems at once.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if u, err := url.Parse(c.API.BaseURL); err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		errs = append(errs, ValidationError{
			Field:   "api.base_url",
			Message: fmt.Sprintf("invalid URL '%s', must be http(s)://host[/path]", c.API.BaseURL),
		})
	}
	if c.API.TimeoutSecs < 1 || c.API.TimeoutSecs > 600 {
		errs = append(errs, ValidationError{
			Field:   "api.timeout_secs",
			Message: fmt.Sprintf("must be between 1 and 600, got %d", c.API.TimeoutSecs),
		})
	}
	if c.API.TestMaxTokens < 1 {
		errs = append(errs, ValidationError{Field: "api.test_max_tokens", Message: "must be positive"})
	}

	switch strings.ToLower(c.Storage.Backend) {
	case "file", "sqlite", "memory":
	default:
		errs = append(errs, ValidationError{
			Field:   "storage.backend",
			Message: fmt.Sprintf("invalid backend '%s', must be one of: file, sqlite, memory", c.Storage.Backend),
		})
	}
	if strings.TrimSpace(c.Storage.DataDir) == "" {
		errs = append(errs, ValidationError{Field: "storage.data_dir", Message: "must not be empty"})
	}

	if c.Keys.CheckConcurrency < 1 || c.Keys.CheckConcurrency > 32 {
		errs = append(errs, ValidationError{
			Field:   "keys.check_concurrency",
			Message: fmt.Sprintf("must be between 1 and 32, got %d", c.Keys.CheckConcurrency),
		})
	}
	if c.Keys.CheckRatePerSec < 0 {
		errs = append(errs, ValidationError{Field: "keys.check_rate_per_sec", Message: "must not be negative"})
	}

	if c.UI.SidebarWidth < 12 || c.UI.SidebarWidth > 80 {
		errs = append(errs, ValidationError{
			Field:   "ui.sidebar_width",
			Message: fmt.Sprintf("must be between 12 and 80, got %d", c.UI.SidebarWidth),
		})
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, ValidationError{
			Field:   "log.level",
			Message: fmt.Sprintf("invalid level '%s', must be one of: debug, info, warn, error", c.Log.Level),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// SetDefaults fills zero values and expands ~ in paths.
func (c *Config) SetDefaults() {
	d := Default()
	if c.API.BaseURL == "" {
		c.API.BaseURL = d.API.BaseURL
	}
	c.API.BaseURL = strings.TrimSuffix(c.API.BaseURL, "/")
	if c.API.Title == "" {
		c.API.Title = d.API.Title
	}
	if c.API.TimeoutSecs == 0 {
		c.API.TimeoutSecs = d.API.TimeoutSecs
	}
	if c.API.CanaryModel == "" {
		c.API.CanaryModel = d.API.CanaryModel
	}
	if c.API.TestMaxTokens == 0 {
		c.API.TestMaxTokens = d.API.TestMaxTokens
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = d.Storage.Backend
	}
	c.Storage.Backend = strings.ToLower(c.Storage.Backend)
	if c.Storage.DataDir == "" {
		c.Storage.DataDir = d.Storage.DataDir
	}
	c.Storage.DataDir = util.ExpandHome(c.Storage.DataDir)
	c.Storage.SQLitePath = util.ExpandHome(c.Storage.SQLitePath)
	if c.Chat.DefaultModel == "" {
		c.Chat.DefaultModel = d.Chat.DefaultModel
	}
	if c.Keys.CheckConcurrency == 0 {
		c.Keys.CheckConcurrency = d.Keys.CheckConcurrency
	}
	if c.UI.SidebarWidth == 0 {
		c.UI.SidebarWidth = d.UI.SidebarWidth
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	c.Log.Level = strings.ToLower(c.Log.Level)
	if c.Log.File == "" {
		c.Log.File = d.Log.File
	}
	c.Log.File = util.ExpandHome(c.Log.File)
}

// ApplyEnvOverrides applies ROUTERCHAT_* environment variables.
func (c *Config) ApplyEnvOverrides() {
	// ROUTERCHAT_API_URL
	if v := os.Getenv("ROUTERCHAT_API_URL"); v != "" {
		c.API.BaseURL = v
	}

	// ROUTERCHAT_TIMEOUT
	if v := os.Getenv("ROUTERCHAT_TIMEOUT"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			c.API.TimeoutSecs = secs
		}
	}

	// ROUTERCHAT_DATA_DIR
	if v := os.Getenv("ROUTERCHAT_DATA_DIR"); v != "" {
		c.Storage.DataDir = v
	}

	// ROUTERCHAT_STORAGE
	if v := os.Getenv("ROUTERCHAT_STORAGE"); v != "" {
		c.Storage.Backend = v
	}

	// ROUTERCHAT_MODEL
	if v := os.Getenv("ROUTERCHAT_MODEL"); v != "" {
		c.Chat.DefaultModel = v
	}

	// ROUTERCHAT_LOG_LEVEL
	if v := os.Getenv("ROUTERCHAT_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}

	// ROUTERCHAT_LOG_FILE
	if v := os.Getenv("ROUTERCHAT_LOG_FILE"); v != "" {
		c.Log.File = v
	}
}

// ErrConfigExists is returned by Init when a config file is already present.
var ErrConfigExists = errors.New("config file already exists")

// Init writes a default config file unless one exists and force is false.
func Init(force bool) (string, error) {
	path, err := ConfigPathTOML()
	if err != nil {
		return "", err
	}
	if fileExists(path) && !force {
		return path, ErrConfigExists
	}
	cfg := Default()
	cfg.SetDefaults()
	return path, SaveTOML(cfg, path)
}
