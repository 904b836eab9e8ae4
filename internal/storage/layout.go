package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"mediavault/internal/config"
	"mediavault/internal/media"
	"mediavault/internal/services"
)

// Layout resolves stored and temporary file paths.
type Layout struct {
	StorageDir string
	TempDir    string
}

// NewLayout builds a Layout from configuration.
func NewLayout(cfg *config.Config) Layout {
	if cfg == nil {
		return Layout{}
	}
	return Layout{StorageDir: cfg.Paths.StorageDir, TempDir: cfg.Paths.TempDir}
}

// StoredPath returns the stored file path for item.
func (l Layout) StoredPath(item media.Item) string {
	return filepath.Join(l.StorageDir, item.FileName())
}

// TempPath returns the temporary playable file path for kind.
func (l Layout) TempPath(kind media.FileKind) string {
	return filepath.Join(l.TempDir, "temp."+kind.Ext())
}

// StoredFile describes a file found in the storage directory.
type StoredFile struct {
	Name    string
	Path    string
	ID      int64
	Kind    media.FileKind
	Size    int64
	ModTime time.Time
}

// ListStored returns every recognizable {id}.{ext} file in the storage
// directory ordered by id. A missing directory yields an empty list.
func (l Layout) ListStored() ([]StoredFile, error) {
	entries, err := os.ReadDir(l.StorageDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, services.Wrap(services.ErrIO, "storage", "list stored", l.StorageDir, err)
	}

	files := make([]StoredFile, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		id, kind, ok := parseStoredName(entry.Name())
		if !ok {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, StoredFile{
			Name:    entry.Name(),
			Path:    filepath.Join(l.StorageDir, entry.Name()),
			ID:      id,
			Kind:    kind,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	sort.Slice(files, func(i, j int) bool {
		if files[i].ID == files[j].ID {
			return files[i].Name < files[j].Name
		}
		return files[i].ID < files[j].ID
	})
	return files, nil
}

// StoredNames returns the set of stored file names, used to derive the
// downloaded flag of catalog items.
func (l Layout) StoredNames() (map[string]struct{}, error) {
	files, err := l.ListStored()
	if err != nil {
		return nil, err
	}
	names := make(map[string]struct{}, len(files))
	for _, file := range files {
		names[file.Name] = struct{}{}
	}
	return names, nil
}

func parseStoredName(name string) (int64, media.FileKind, bool) {
	base, ext, found := strings.Cut(name, ".")
	if !found || strings.Contains(ext, ".") {
		return 0, "", false
	}
	id, err := strconv.ParseInt(base, 10, 64)
	if err != nil || id <= 0 {
		return 0, "", false
	}
	kind, err := media.ParseFileKind(ext)
	if err != nil {
		return 0, "", false
	}
	return id, kind, true
}

// Exists reports whether path is an existing regular file.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// Size returns the byte length of path. Missing files map to
// services.ErrNotFound.
func Size(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, services.Wrap(services.ErrNotFound, "storage", "stat", path, err)
		}
		return 0, services.Wrap(services.ErrIO, "storage", "stat", path, err)
	}
	if info.IsDir() {
		return 0, services.Wrap(services.ErrValidation, "storage", "stat", path+" is a directory", nil)
	}
	return info.Size(), nil
}

// Remove deletes path. Deleting a missing file is not an error.
func Remove(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return services.Wrap(services.ErrIO, "storage", "remove", path, err)
	}
	return nil
}

// Create opens path for writing, truncating any previous content and
// creating parent directories as needed.
func Create(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, services.Wrap(services.ErrIO, "storage", "create", fmt.Sprintf("mkdir %s", filepath.Dir(path)), err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, services.Wrap(services.ErrIO, "storage", "create", path, err)
	}
	return file, nil
}

// Open opens path for reading. Missing files map to services.ErrNotFound.
func Open(path string) (*os.File, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, services.Wrap(services.ErrNotFound, "storage", "open", path, err)
		}
		return nil, services.Wrap(services.ErrIO, "storage", "open", path, err)
	}
	return file, nil
}
