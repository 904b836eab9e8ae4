package storage

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"mediavault/internal/logging"
	"mediavault/internal/media"
)

// CleanResult contains the outcome of a temp cleanup operation.
type CleanResult struct {
	Removed []string
	Errors  []CleanupError
}

// CleanupError pairs a file path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

// TempFile describes a temporary playable file.
type TempFile struct {
	Kind    media.FileKind
	Path    string
	Size    int64
	ModTime time.Time
}

// ListTemps returns the temporary playable files currently on disk.
func (l Layout) ListTemps() ([]TempFile, error) {
	var temps []TempFile
	for _, kind := range media.Kinds() {
		path := l.TempPath(kind)
		info, err := os.Stat(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, err
		}
		temps = append(temps, TempFile{Kind: kind, Path: path, Size: info.Size(), ModTime: info.ModTime()})
	}
	return temps, nil
}

// CleanStaleTemps removes temporary playable files older than maxAge along
// with lock files left behind in the temp directory. A maxAge of zero
// removes every temp file but keeps lock files.
func (l Layout) CleanStaleTemps(ctx context.Context, maxAge time.Duration, logger *slog.Logger) CleanResult {
	result := CleanResult{}

	tempDir := strings.TrimSpace(l.TempDir)
	if tempDir == "" {
		return result
	}

	entries, err := os.ReadDir(tempDir)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			result.Errors = append(result.Errors, CleanupError{Path: tempDir, Error: err})
		}
		return result
	}

	cutoff := time.Now().Add(-maxAge)

	for _, entry := range entries {
		if ctx.Err() != nil {
			break
		}
		if entry.IsDir() || !isTempName(entry.Name()) {
			continue
		}

		path := filepath.Join(tempDir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: path, Error: err})
			continue
		}
		if maxAge > 0 && !info.ModTime().Before(cutoff) {
			continue
		}
		// Lock files may be held by a running pipeline; only age evicts them.
		if maxAge <= 0 && strings.HasSuffix(entry.Name(), ".lock") {
			continue
		}

		if err := Remove(path); err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: path, Error: err})
			if logger != nil {
				logger.Warn("failed to remove stale temp file",
					logging.String("path", path),
					logging.Error(err),
					logging.String(logging.FieldEventType, "temp_cleanup_failed"),
					logging.String(logging.FieldErrorHint, "check temp_dir permissions"),
					logging.String(logging.FieldImpact, "disk space not reclaimed"),
				)
			}
			continue
		}
		result.Removed = append(result.Removed, path)
		if logger != nil {
			logger.Info("removed stale temp file",
				logging.String("path", path),
				logging.Duration("age", time.Since(info.ModTime())),
				logging.String(logging.FieldEventType, "temp_cleanup"),
			)
		}
	}

	return result
}

func isTempName(name string) bool {
	base := strings.TrimSuffix(name, ".lock")
	ext, ok := strings.CutPrefix(base, "temp.")
	if !ok {
		return false
	}
	_, err := media.ParseFileKind(ext)
	return err == nil
}
