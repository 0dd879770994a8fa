// Package zombiezen is the sole storage backend for store.Store, built on
// zombiezen.com/go/sqlite. The teacher ships two interchangeable SQLite
// drivers (crawshaw, zombiezen) behind one db.Db interface; this core keeps
// only zombiezen (see DESIGN.md for the dropped-dependency note on
// crawshaw.io/sqlite).
package zombiezen

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path/filepath"
	"runtime"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/caasmo/regverify/store"
)

//go:embed migrations
var embeddedMigrations embed.FS

var _ store.Store = (*Store)(nil)

// Store is the zombiezen-backed implementation of store.Store. It owns a
// pooled set of connections; all operations take one from the pool per
// call, grounded on the teacher's db/zombiezen.Db pool-per-operation shape.
type Store struct {
	pool *sqlitex.Pool
}

// New opens (creating if necessary) the SQLite database at path and applies
// any pending migrations embedded at build time.
func New(path string) (*Store, error) {
	pool, err := sqlitex.NewPool(fmt.Sprintf("file:%s", path), sqlitex.PoolOptions{
		PoolSize: runtime.NumCPU(),
	})
	if err != nil {
		return nil, fmt.Errorf("store/zombiezen: open pool: %w", err)
	}

	conn, err := pool.Take(context.Background())
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("store/zombiezen: take migration conn: %w", err)
	}
	err = applyMigrations(conn)
	pool.Put(conn)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("store/zombiezen: migrate: %w", err)
	}

	return &Store{pool: pool}, nil
}

func (s *Store) Close() error {
	return s.pool.Close()
}

func (s *Store) take(ctx context.Context) (*sqlite.Conn, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("store/zombiezen: take conn: %w", err)
	}
	return conn, nil
}

func (s *Store) put(conn *sqlite.Conn) {
	s.pool.Put(conn)
}

// applyMigrations executes every embedded .sql file in path order, matching
// the teacher's db/zombiezen/migration.go fs.WalkDir pattern.
func applyMigrations(conn *sqlite.Conn) error {
	sub, err := fs.Sub(embeddedMigrations, "migrations")
	if err != nil {
		return err
	}
	return fs.WalkDir(sub, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".sql" {
			return nil
		}
		sqlBytes, err := fs.ReadFile(sub, path)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", path, err)
		}
		if err := sqlitex.ExecuteScript(conn, string(sqlBytes), nil); err != nil {
			return fmt.Errorf("exec migration %s: %w", path, err)
		}
		return nil
	})
}
