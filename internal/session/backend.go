package session

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/jask/papertriage/internal/database/repository"
)

// SQLiteBackend keeps snapshots in the snapshots table.
type SQLiteBackend struct {
	Snapshots *repository.SnapshotRepo
}

func (b *SQLiteBackend) Get(ctx context.Context, id string) ([]byte, bool, error) {
	return b.Snapshots.Get(ctx, id)
}

func (b *SQLiteBackend) Put(ctx context.Context, id string, body []byte) error {
	return b.Snapshots.Put(ctx, id, body)
}

func (b *SQLiteBackend) Delete(ctx context.Context, id string) error {
	return b.Snapshots.Delete(ctx, id)
}

func (b *SQLiteBackend) List(ctx context.Context) (map[string][]byte, error) {
	return b.Snapshots.List(ctx)
}

const fileSuffix = ".json"

// FileBackend keeps one JSON file per collection in Dir.
type FileBackend struct {
	Dir string
}

func (b *FileBackend) path(id string) string {
	return filepath.Join(b.Dir, url.PathEscape(id)+fileSuffix)
}

func (b *FileBackend) Get(_ context.Context, id string) ([]byte, bool, error) {
	data, err := os.ReadFile(b.path(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

// Put writes through a temp file and rename so readers never see a partial snapshot.
func (b *FileBackend) Put(_ context.Context, id string, body []byte) error {
	if err := os.MkdirAll(b.Dir, 0o755); err != nil {
		return fmt.Errorf("mkdir snapshot dir: %w", err)
	}
	path := b.path(id)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, body, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (b *FileBackend) Delete(_ context.Context, id string) error {
	err := os.Remove(b.path(id))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (b *FileBackend) List(_ context.Context) (map[string][]byte, error) {
	entries, err := os.ReadDir(b.Dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string][]byte{}, nil
		}
		return nil, err
	}
	out := map[string][]byte{}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		id, err := url.PathUnescape(strings.TrimSuffix(name, fileSuffix))
		if err != nil {
			continue
		}
		data, err := os.ReadFile(filepath.Join(b.Dir, name))
		if err != nil {
			return nil, err
		}
		out[id] = data
	}
	return out, nil
}
