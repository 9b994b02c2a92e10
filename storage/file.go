package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ruteri/ork-registry/interfaces"
)

// FileBackend keeps snapshots as <dir>/<content id>.json.
type FileBackend struct {
	dir string
	log *slog.Logger
}

func NewFileBackend(dir string, log *slog.Logger) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("could not create snapshot directory %s: %w", dir, err)
	}
	return &FileBackend{dir: dir, log: log}, nil
}

func (b *FileBackend) path(id interfaces.ContentID) string {
	return filepath.Join(b.dir, id.String()+".json")
}

func (b *FileBackend) Store(ctx context.Context, data []byte) (interfaces.ContentID, error) {
	id := interfaces.ComputeID(data)
	target := b.path(id)
	if _, err := os.Stat(target); err == nil {
		return id, nil
	}

	tmp, err := os.CreateTemp(b.dir, ".snapshot-*")
	if err != nil {
		return id, err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return id, err
	}
	if err := tmp.Close(); err != nil {
		return id, err
	}
	// rename is atomic, readers never see a partial snapshot
	if err := os.Rename(tmp.Name(), target); err != nil {
		return id, err
	}

	b.log.Debug("Wrote snapshot file", "path", target, "size", len(data))
	return id, nil
}

func (b *FileBackend) Fetch(ctx context.Context, id interfaces.ContentID) ([]byte, error) {
	data, err := os.ReadFile(b.path(id))
	switch {
	case errors.Is(err, os.ErrNotExist):
		return nil, interfaces.ErrContentNotFound
	case err != nil:
		return nil, fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}
	return data, nil
}

func (b *FileBackend) Ping(ctx context.Context) error {
	info, err := os.Stat(b.dir)
	if err != nil {
		return fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", interfaces.ErrBackendUnavailable, b.dir)
	}
	return nil
}

func (b *FileBackend) String() string {
	return "file://" + filepath.ToSlash(b.dir)
}
