package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileExt is appended to every record file written by FileBackend.
const FileExt = ".rmp"

// FileBackend stores each record as {root}/{dir}/{key}.rmp.
type FileBackend struct {
	root string
}

// NewFileBackend creates the root directory if needed.
func NewFileBackend(root string) (*FileBackend, error) {
	if root == "" {
		return nil, fmt.Errorf("data directory is empty")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &FileBackend{root: root}, nil
}

func (b *FileBackend) path(dir, key string) (string, error) {
	if err := validateLocation(dir, key); err != nil {
		return "", err
	}
	return filepath.Join(b.root, filepath.FromSlash(dir), key+FileExt), nil
}

func (b *FileBackend) Get(ctx context.Context, dir, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := b.path(dir, key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", p, err)
	}
	return data, nil
}

// Put writes through a temp file and rename so readers never observe a partial record.
func (b *FileBackend) Put(ctx context.Context, dir, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := b.path(dir, key)
	if err != nil {
		return err
	}
	parent := filepath.Dir(p)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", parent, err)
	}
	tmp, err := os.CreateTemp(parent, "."+key+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(value); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, p); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename %s: %w", p, err)
	}
	return nil
}

func (b *FileBackend) Delete(ctx context.Context, dir, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := b.path(dir, key)
	if err != nil {
		return err
	}
	err = os.Remove(p)
	if errors.Is(err, fs.ErrNotExist) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("remove %s: %w", p, err)
	}
	return nil
}

func (b *FileBackend) Has(ctx context.Context, dir, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	p, err := b.path(dir, key)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(p)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

func (b *FileBackend) Close() error { return nil }
