// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/jeranaias/routerchat/internal/util"
)

// KV is a flat string key/value store.
type KV interface {
	// Get returns the value of key. ok is false when the key is absent.
	Get(key string) (value string, ok bool, err error)
	// Set stores value under key, replacing any previous value.
	Set(key, value string) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(key string) error
	// Close releases the backend.
	Close() error
}

// ErrClosed is returned by a backend after Close.
var ErrClosed = errors.New("storage: closed")

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Options selects and configures a backend.
type Options struct {
	Backend    string
	DataDir    string
	SQLitePath string
}

// Open creates the backend named by opts.Backend.
func Open(opts Options) (KV, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Backend)) {
	case "", BackendFile:
		return NewFileKV(opts.DataDir)
	case BackendSQLite:
		path := opts.SQLitePath
		if path == "" {
			path = filepath.Join(opts.DataDir, "routerchat.db")
		}
		return NewSQLiteKV(path)
	case BackendMemory:
		return NewMemoryKV(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", opts.Backend)
	}
}

// =============================================================================
// MEMORY
// =============================================================================

// MemoryKV keeps slots in a map.
type MemoryKV struct {
	mu     sync.RWMutex
	data   map[string]string
	closed bool
}

// NewMemoryKV creates an empty in-memory store.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string]string)}
}

func (m *MemoryKV) Get(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return "", false, ErrClosed
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *MemoryKV) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.data[key] = value
	return nil
}

func (m *MemoryKV) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	delete(m.data, key)
	return nil
}

func (m *MemoryKV) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// =============================================================================
// FILE
// =============================================================================

// validKey restricts slot names to a safe file name alphabet.
var validKey = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// FileKV stores each slot as a file named after the key.
type FileKV struct {
	// BaseDir is the directory holding the slot files
	// Default: ~/.routerchat/data/
	BaseDir string

	mu sync.Mutex
}

// NewFileKV creates a file store rooted at baseDir.
func NewFileKV(baseDir string) (*FileKV, error) {
	if strings.TrimSpace(baseDir) == "" {
		return nil, errors.New("storage: data directory is required")
	}
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &FileKV{BaseDir: baseDir}, nil
}

func (f *FileKV) path(key string) (string, error) {
	if !validKey.MatchString(key) || strings.Trim(key, ".") == "" {
		return "", fmt.Errorf("storage: invalid key %q", key)
	}
	return filepath.Join(f.BaseDir, key), nil
}

func (f *FileKV) Get(key string) (string, bool, error) {
	p, err := f.path(key)
	if err != nil {
		return "", false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	data, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return string(data), true, nil
}

func (f *FileKV) Set(key, value string) error {
	p, err := f.path(key)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	// SECURITY: slots hold API keys in clear text, keep them owner-only
	return util.AtomicWriteFile(p, []byte(value), 0600)
}

func (f *FileKV) Delete(key string) error {
	p, err := f.path(key)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

func (f *FileKV) Close() error { return nil }
