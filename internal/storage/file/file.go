// Package file stores the usage document as a JSON file with a sibling backup.
package file

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/goodtune/screentime/internal/storage"
)

// Backend implements storage.Backend on the local filesystem.
type Backend struct {
	path       string
	backupPath string
}

// Open prepares a file backend. The parent directory of path is created if
// needed; the document itself is created on first write.
func Open(path, backupPath string) (*Backend, error) {
	if path == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	if backupPath == "" {
		backupPath = filepath.Join(filepath.Dir(path), "screen-time-data-backup.json")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(backupPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}

	return &Backend{path: path, backupPath: backupPath}, nil
}

// Read returns the primary document.
func (b *Backend) Read(ctx context.Context) ([]byte, error) {
	data, err := os.ReadFile(b.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", b.path, err)
	}
	return data, nil
}

// Backup copies the primary document over the backup file.
func (b *Backend) Backup(ctx context.Context) error {
	src, err := os.Open(b.path)
	if errors.Is(err, fs.ErrNotExist) {
		return storage.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", b.path, err)
	}
	defer func() { _ = src.Close() }()

	return writeAtomic(b.backupPath, func(w io.Writer) error {
		_, err := io.Copy(w, src)
		return err
	})
}

// Write replaces the primary document.
func (b *Backend) Write(ctx context.Context, data []byte) error {
	return writeAtomic(b.path, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

// writeAtomic writes to a temporary file in the target directory, syncs it
// and renames it over path.
func writeAtomic(path string, fill func(io.Writer) error) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if err = fill(tmp); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync %s: %w", path, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err = os.Chmod(tmp.Name(), 0644); err != nil {
		return fmt.Errorf("failed to chmod %s: %w", path, err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

// Info describes the file locations.
func (b *Backend) Info() storage.DataInfo {
	return storage.DataInfo{
		Backend:    "file",
		DataPath:   b.path,
		BackupPath: b.backupPath,
	}
}

// Close is a no-op for the file backend.
func (b *Backend) Close() error {
	return nil
}
