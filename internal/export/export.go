// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/jeranaias/routerchat/internal/model"
	"github.com/jeranaias/routerchat/internal/util"
)

// =============================================================================
// EXPORT INTERFACE
// =============================================================================

// Exporter defines the interface for session exporters.
type Exporter interface {
	// Export converts a session to the target format and returns the content.
	Export(sess *model.Session) ([]byte, error)

	// FileExtension returns the appropriate file extension (e.g., ".md").
	FileExtension() string

	// MimeType returns the MIME type for the exported format.
	MimeType() string
}

// Format names an export format.
type Format string

const (
	FormatMarkdown Format = "md"
	FormatJSON     Format = "json"
)

// ParseFormat accepts the short and long spellings of each format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "md", "markdown":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", model.InvalidArgumentf("unknown export format %q (use md or json)", s)
	}
}

// =============================================================================
// EXPORT OPTIONS
// =============================================================================

// Options configures export behavior.
type Options struct {
	// IncludeMetadata includes the frontmatter and session information block.
	IncludeMetadata bool

	// IncludeTimestamps includes per-message timestamps.
	IncludeTimestamps bool

	// Now stamps the export; defaults to time.Now.
	Now func() time.Time
}

// DefaultOptions returns default export options.
func DefaultOptions() *Options {
	return &Options{
		IncludeMetadata:   true,
		IncludeTimestamps: true,
		Now:               time.Now,
	}
}

func (o *Options) now() time.Time {
	if o.Now == nil {
		return time.Now()
	}
	return o.Now()
}

// ForFormat returns the exporter for f.
func ForFormat(f Format, opts *Options) (Exporter, error) {
	switch f {
	case FormatMarkdown:
		return NewMarkdownExporter(opts), nil
	case FormatJSON:
		return NewJSONExporter(opts), nil
	default:
		return nil, model.InvalidArgumentf("unknown export format %q", f)
	}
}

// =============================================================================
// EXPORT FUNCTIONS
// =============================================================================

// ToFile exports a session and writes it to path. An empty path derives a
// file name from the session title in the current directory. The file is
// written atomically with owner-only permissions; it may contain private
// conversation text.
func ToFile(sess *model.Session, exporter Exporter, path string) (string, error) {
	content, err := exporter.Export(sess)
	if err != nil {
		return "", fmt.Errorf("export failed: %w", err)
	}
	if path == "" {
		path = DefaultFilename(sess, exporter, time.Now())
	}
	path = filepath.Clean(path)
	if err := util.AtomicWriteFile(path, content, 0600); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return path, nil
}

// DefaultFilename builds "chat_<title>_<stamp><ext>".
func DefaultFilename(sess *model.Session, exporter Exporter, at time.Time) string {
	title := "chat"
	if sess != nil {
		title = sess.Title
	}
	return fmt.Sprintf("chat_%s_%s%s", sanitizeFilename(title), at.Format("20060102_150405"), exporter.FileExtension())
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

var filenameReplacer = map[rune]rune{
	'/': '-', '\\': '-', ':': '-', '*': '-', '?': '-', '"': '-', '<': '-', '>': '-', '|': '-',
	' ': '_', '\t': '_', '\n': '_', '\r': '_',
}

// sanitizeFilename removes or replaces characters that are invalid in filenames.
func sanitizeFilename(s string) string {
	s = util.TruncateRunes(strings.TrimSpace(s), 50)

	var b strings.Builder
	for _, r := range s {
		if rep, ok := filenameReplacer[r]; ok {
			b.WriteRune(rep)
		} else if r < 32 || r == 127 {
			b.WriteRune('-')
		} else {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "chat"
	}
	return b.String()
}

// validate rejects sessions that cannot be exported meaningfully.
func validate(sess *model.Session) error {
	if sess == nil {
		return fmt.Errorf("session is nil")
	}
	if sess.CreatedAt.IsZero() {
		return fmt.Errorf("session has invalid creation timestamp")
	}
	return nil
}

// formatTimestamp formats a timestamp for display.
func formatTimestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}

// formatShortTimestamp formats a timestamp for inline display.
func formatShortTimestamp(t time.Time) string {
	return t.Format("15:04:05")
}
