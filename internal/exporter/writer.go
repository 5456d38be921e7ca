package exporter

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Writer persists rendered tables to a local directory. The batch job uses
// it as a fallback or alongside the remote content store.
type Writer struct {
	dir    string
	logger *slog.Logger
}

// NewWriter creates a table writer rooted at dir.
func NewWriter(dir string, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{dir: dir, logger: logger}
}

// Write stores one rendered table under its artifact name and returns the
// full path.
func (w *Writer) Write(name, payload string) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}
	path := filepath.Join(w.dir, name)
	if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
		return "", fmt.Errorf("write table %s: %w", name, err)
	}
	w.logger.Info("wrote table",
		slog.String("path", path),
		slog.Int("bytes", len(payload)))
	return path, nil
}
