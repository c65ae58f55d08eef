package storage

import (
	"context"
	"path"
	"sync"
)

// MemoryBackend keeps records in process memory. Used by tests and by
// deployments that do not need state to survive a restart.
type MemoryBackend struct {
	mu      sync.RWMutex
	records map[string][]byte
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{records: make(map[string][]byte)}
}

func (b *MemoryBackend) Get(_ context.Context, dir, key string) ([]byte, error) {
	if err := validateLocation(dir, key); err != nil {
		return nil, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.records[path.Join(dir, key)]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (b *MemoryBackend) Put(_ context.Context, dir, key string, value []byte) error {
	if err := validateLocation(dir, key); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.records[path.Join(dir, key)] = append([]byte(nil), value...)
	return nil
}

func (b *MemoryBackend) Delete(_ context.Context, dir, key string) error {
	if err := validateLocation(dir, key); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	k := path.Join(dir, key)
	if _, ok := b.records[k]; !ok {
		return ErrNotFound
	}
	delete(b.records, k)
	return nil
}

func (b *MemoryBackend) Has(_ context.Context, dir, key string) (bool, error) {
	if err := validateLocation(dir, key); err != nil {
		return false, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.records[path.Join(dir, key)]
	return ok, nil
}

// Len returns the number of stored records.
func (b *MemoryBackend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.records)
}

func (b *MemoryBackend) Close() error { return nil }
