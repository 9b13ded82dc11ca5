package store

import (
	"log/slog"
)

// Open picks the storage backend: SQLite at the given path, degrading to
// the in-memory store with a logged warning when the database cannot be
// opened or migrated. Callers see one Repository either way.
func Open(dbPath string) Repository {
	db, err := OpenSQLite(dbPath)
	if err != nil {
		slog.Warn("sqlite unavailable, falling back to in-memory store", "path", dbPath, "error", err)
		return NewMemory()
	}
	s, err := New(db)
	if err != nil {
		db.Close()
		slog.Warn("sqlite migration failed, falling back to in-memory store", "path", dbPath, "error", err)
		return NewMemory()
	}
	return s
}
