package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/vmihailenco/msgpack/v5"
)

// ErrNotFound is returned when no record exists under the requested key.
var ErrNotFound = errors.New("record not found")

// Backend persists opaque encoded records addressed by a directory and a key.
// Implementations return ErrNotFound from Get and Delete when the record is absent.
type Backend interface {
	Get(ctx context.Context, dir, key string) ([]byte, error)
	Put(ctx context.Context, dir, key string, value []byte) error
	Delete(ctx context.Context, dir, key string) error
	Has(ctx context.Context, dir, key string) (bool, error)
	Close() error
}

// Req addresses one persisted record of type T.
type Req[T any] struct {
	Dir string
	Key string
}

// NewReq builds a request for the record stored at dir/key.
func NewReq[T any](dir, key string) Req[T] {
	return Req[T]{Dir: dir, Key: key}
}

// Path returns the slash-joined location of the record, used as its lock key.
func (r Req[T]) Path() string {
	return path.Join(r.Dir, r.Key)
}

func (r Req[T]) String() string { return r.Path() }

// Store layers encoding, per-key locking and an optional read cache over a Backend.
type Store struct {
	backend Backend
	locks   *KeyedMutex
	cache   *lru.Cache[string, []byte]
}

// Option configures a Store.
type Option func(*Store) error

// WithCache enables an LRU cache of encoded records. A size of zero or less disables it.
func WithCache(size int) Option {
	return func(s *Store) error {
		if size <= 0 {
			s.cache = nil
			return nil
		}
		c, err := lru.New[string, []byte](size)
		if err != nil {
			return fmt.Errorf("create record cache: %w", err)
		}
		s.cache = c
		return nil
	}
}

// NewStore wraps backend. It fails only when an option fails.
func NewStore(backend Backend, opts ...Option) (*Store, error) {
	if backend == nil {
		return nil, errors.New("storage backend is nil")
	}
	s := &Store{backend: backend, locks: NewKeyedMutex()}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Close releases the backend.
func (s *Store) Close() error {
	if s == nil || s.backend == nil {
		return nil
	}
	return s.backend.Close()
}

// Lock acquires the exclusive locks for every given key and returns the
// function that releases them. Keys are taken in sorted order so callers
// locking overlapping sets cannot deadlock.
func (s *Store) Lock(keys ...string) func() {
	uniq := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		uniq = append(uniq, k)
	}
	sort.Strings(uniq)
	for _, k := range uniq {
		s.locks.Lock(k)
	}
	return func() {
		for i := len(uniq) - 1; i >= 0; i-- {
			s.locks.Unlock(uniq[i])
		}
	}
}

func (s *Store) get(ctx context.Context, dir, key string) ([]byte, error) {
	cacheKey := path.Join(dir, key)
	if s.cache != nil {
		if b, ok := s.cache.Get(cacheKey); ok {
			return b, nil
		}
	}
	b, err := s.backend.Get(ctx, dir, key)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Add(cacheKey, b)
	}
	return b, nil
}

func (s *Store) put(ctx context.Context, dir, key string, b []byte) error {
	if err := s.backend.Put(ctx, dir, key, b); err != nil {
		if s.cache != nil {
			s.cache.Remove(path.Join(dir, key))
		}
		return err
	}
	if s.cache != nil {
		s.cache.Add(path.Join(dir, key), b)
	}
	return nil
}

func (s *Store) delete(ctx context.Context, dir, key string) error {
	if s.cache != nil {
		s.cache.Remove(path.Join(dir, key))
	}
	return s.backend.Delete(ctx, dir, key)
}

func (s *Store) has(ctx context.Context, dir, key string) (bool, error) {
	if s.cache != nil && s.cache.Contains(path.Join(dir, key)) {
		return true, nil
	}
	return s.backend.Has(ctx, dir, key)
}

// Read decodes the record addressed by r. It returns ErrNotFound when absent.
func Read[T any](ctx context.Context, s *Store, r Req[T]) (T, error) {
	var v T
	b, err := s.get(ctx, r.Dir, r.Key)
	if err != nil {
		return v, err
	}
	if err := msgpack.Unmarshal(b, &v); err != nil {
		return v, fmt.Errorf("decode %s: %w", r.Path(), err)
	}
	return v, nil
}

// Write encodes v and replaces the record addressed by r.
func Write[T any](ctx context.Context, s *Store, r Req[T], v T) error {
	b, err := msgpack.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", r.Path(), err)
	}
	return s.put(ctx, r.Dir, r.Key, b)
}

// Remove deletes the record addressed by r. It returns ErrNotFound when absent.
func Remove[T any](ctx context.Context, s *Store, r Req[T]) error {
	return s.delete(ctx, r.Dir, r.Key)
}

// Exists reports whether a record is stored at r. Backend failures count as absent.
func Exists[T any](ctx context.Context, s *Store, r Req[T]) bool {
	ok, err := s.has(ctx, r.Dir, r.Key)
	return err == nil && ok
}

// Update runs fn on the current value of r under its lock and writes the
// result back. exists is false when the record was absent, in which case fn
// receives the zero value. Returning an error from fn skips the write.
func Update[T any](ctx context.Context, s *Store, r Req[T], fn func(v *T, exists bool) error) (T, error) {
	unlock := s.Lock(r.Path())
	defer unlock()

	v, err := Read(ctx, s, r)
	exists := true
	if errors.Is(err, ErrNotFound) {
		exists = false
	} else if err != nil {
		return v, err
	}
	if err := fn(&v, exists); err != nil {
		return v, err
	}
	if err := Write(ctx, s, r, v); err != nil {
		return v, err
	}
	return v, nil
}

// validateSegment rejects keys and directory segments that would escape the data root.
func validateSegment(kind, s string) error {
	if s == "" {
		return fmt.Errorf("empty %s", kind)
	}
	for _, part := range strings.Split(s, "/") {
		if part == "" || part == "." || part == ".." || strings.ContainsRune(part, '\\') {
			return fmt.Errorf("invalid %s: %q", kind, s)
		}
	}
	return nil
}

func validateLocation(dir, key string) error {
	if err := validateSegment("dir", dir); err != nil {
		return err
	}
	if strings.Contains(key, "/") {
		return fmt.Errorf("invalid key: %q", key)
	}
	return validateSegment("key", key)
}
