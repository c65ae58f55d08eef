package storage

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Backend kinds accepted by OpenBackend.
const (
	KindFile   = "file"
	KindSQLite = "sqlite"
	KindMemory = "memory"
)

// SQLiteFileName is the database file created under the data directory by the sqlite backend.
const SQLiteFileName = "guildkit.db"

// OpenBackend creates the backend named by kind rooted at dataDir.
// An empty kind selects the file backend.
func OpenBackend(kind, dataDir string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", KindFile:
		return NewFileBackend(dataDir)
	case KindSQLite:
		b := NewSQLiteBackend(filepath.Join(dataDir, SQLiteFileName))
		if err := b.Init(); err != nil {
			return nil, err
		}
		return b, nil
	case KindMemory:
		return NewMemoryBackend(), nil
	default:
		return nil, fmt.Errorf("unknown store kind %q", kind)
	}
}
