package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

type testRecord struct {
	Name  string            `msgpack:"name"`
	Count int               `msgpack:"count"`
	Tags  map[string]string `msgpack:"tags,omitempty"`
}

func backends(t *testing.T) map[string]Backend {
	t.Helper()
	fb, err := NewFileBackend(t.TempDir())
	if err != nil {
		t.Fatalf("file backend: %v", err)
	}
	sb := NewSQLiteBackend(filepath.Join(t.TempDir(), "test.db"))
	if err := sb.Init(); err != nil {
		t.Fatalf("init sqlite: %v", err)
	}
	t.Cleanup(func() { _ = sb.Close() })
	return map[string]Backend{
		"file":   fb,
		"sqlite": sb,
		"memory": NewMemoryBackend(),
	}
}

func TestStoreRoundTripAcrossBackends(t *testing.T) {
	ctx := context.Background()
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s, err := NewStore(b)
			if err != nil {
				t.Fatalf("new store: %v", err)
			}
			req := NewReq[testRecord]("poll/111", "222")

			if _, err := Read(ctx, s, req); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound before write, got %v", err)
			}
			if Exists(ctx, s, req) {
				t.Fatal("expected record to be absent")
			}

			want := testRecord{Name: "a", Count: 3, Tags: map[string]string{"k": "v"}}
			if err := Write(ctx, s, req, want); err != nil {
				t.Fatalf("write: %v", err)
			}
			got, err := Read(ctx, s, req)
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			if got.Name != want.Name || got.Count != want.Count || got.Tags["k"] != "v" {
				t.Fatalf("unexpected record: %+v", got)
			}
			if !Exists(ctx, s, req) {
				t.Fatal("expected record to exist")
			}

			want.Count = 4
			if err := Write(ctx, s, req, want); err != nil {
				t.Fatalf("overwrite: %v", err)
			}
			got, _ = Read(ctx, s, req)
			if got.Count != 4 {
				t.Fatalf("expected overwrite to win, got %d", got.Count)
			}

			if err := Remove(ctx, s, req); err != nil {
				t.Fatalf("remove: %v", err)
			}
			if err := Remove(ctx, s, req); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound on second remove, got %v", err)
			}
		})
	}
}

func TestRecordsAreIsolatedByDirAndKey(t *testing.T) {
	ctx := context.Background()
	s, _ := NewStore(NewMemoryBackend())
	a := NewReq[testRecord]("apply/1", "2")
	b := NewReq[testRecord]("apply/2", "1")
	if err := Write(ctx, s, a, testRecord{Name: "a"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if Exists(ctx, s, b) {
		t.Fatal("records under different dirs must not collide")
	}
}

func TestFileBackendLayout(t *testing.T) {
	root := t.TempDir()
	fb, err := NewFileBackend(root)
	if err != nil {
		t.Fatalf("file backend: %v", err)
	}
	s, _ := NewStore(fb)
	if err := Write(context.Background(), s, NewReq[testRecord]("apply/10", ".cfg"), testRecord{Name: "cfg"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "apply", "10", ".cfg"+FileExt)); err != nil {
		t.Fatalf("expected record file on disk: %v", err)
	}
	entries, _ := os.ReadDir(filepath.Join(root, "apply", "10"))
	if len(entries) != 1 {
		t.Fatalf("expected temp files to be cleaned up, found %d entries", len(entries))
	}
}

func TestInvalidLocationsRejected(t *testing.T) {
	ctx := context.Background()
	cases := []struct{ dir, key string }{
		{"", "k"},
		{"poll", ""},
		{"../etc", "k"},
		{"poll", "../k"},
		{"poll//x", "k"},
		{"poll", `a\b`},
	}
	for name, b := range backends(t) {
		for _, tc := range cases {
			t.Run(fmt.Sprintf("%s/%s/%s", name, tc.dir, tc.key), func(t *testing.T) {
				if err := b.Put(ctx, tc.dir, tc.key, []byte{1}); err == nil {
					t.Fatal("expected invalid location to be rejected")
				}
			})
		}
	}
}

func TestUpdateSerializesConcurrentWriters(t *testing.T) {
	ctx := context.Background()
	s, _ := NewStore(NewMemoryBackend())
	req := NewReq[testRecord]("poll", ".dat")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := Update(ctx, s, req, func(v *testRecord, _ bool) error {
				v.Count++
				return nil
			})
			if err != nil {
				t.Errorf("update: %v", err)
			}
		}()
	}
	wg.Wait()

	got, err := Read(ctx, s, req)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Count != 50 {
		t.Fatalf("expected 50 increments, got %d", got.Count)
	}
	if n := s.locks.size(); n != 0 {
		t.Fatalf("expected lock table to drain, %d keys remain", n)
	}
}

func TestUpdateSkipsWriteOnError(t *testing.T) {
	ctx := context.Background()
	s, _ := NewStore(NewMemoryBackend())
	req := NewReq[testRecord]("role/1", "2")
	boom := errors.New("boom")

	_, err := Update(ctx, s, req, func(v *testRecord, exists bool) error {
		if exists {
			t.Fatal("record should not exist yet")
		}
		v.Name = "ignored"
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected fn error, got %v", err)
	}
	if Exists(ctx, s, req) {
		t.Fatal("failed update must not write")
	}
}

func TestCacheServesReadsAndTracksRemoval(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryBackend()
	s, err := NewStore(mem, WithCache(8))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	req := NewReq[testRecord]("poll/1", "2")
	if err := Write(ctx, s, req, testRecord{Name: "cached"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	// Drop the backing record; the cached copy must still be served.
	if err := mem.Delete(ctx, "poll/1", "2"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, err := Read(ctx, s, req)
	if err != nil || got.Name != "cached" {
		t.Fatalf("expected cached read, got %+v, %v", got, err)
	}

	_ = Write(ctx, s, req, testRecord{Name: "again"})
	if err := Remove(ctx, s, req); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := Read(ctx, s, req); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected removal to evict cache entry, got %v", err)
	}
}

func TestLockOrdersOverlappingKeys(t *testing.T) {
	s, _ := NewStore(NewMemoryBackend())
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			unlock := s.Lock("poll/1/2", "poll/.dat")
			unlock()
		}()
		go func() {
			defer wg.Done()
			unlock := s.Lock("poll/.dat", "poll/1/2", "poll/.dat")
			unlock()
		}()
	}
	wg.Wait()
}

func TestOpenBackend(t *testing.T) {
	dir := t.TempDir()
	for _, kind := range []string{"", KindFile, KindSQLite, KindMemory} {
		b, err := OpenBackend(kind, dir)
		if err != nil {
			t.Fatalf("open %q: %v", kind, err)
		}
		_ = b.Close()
	}
	if _, err := OpenBackend("redis", dir); err == nil {
		t.Fatal("expected unknown kind to fail")
	}
}

func TestSQLiteCount(t *testing.T) {
	ctx := context.Background()
	sb := NewSQLiteBackend(filepath.Join(t.TempDir(), "count.db"))
	if err := sb.Init(); err != nil {
		t.Fatalf("init: %v", err)
	}
	defer sb.Close()
	for i := 0; i < 3; i++ {
		if err := sb.Put(ctx, "poll/1", fmt.Sprint(i), []byte{byte(i)}); err != nil {
			t.Fatalf("put: %v", err)
		}
	}
	n, err := sb.Count(ctx, "poll/1")
	if err != nil || n != 3 {
		t.Fatalf("expected 3 records, got %d (%v)", n, err)
	}
}
