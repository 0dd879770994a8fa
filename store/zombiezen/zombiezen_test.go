package zombiezen

import (
	"context"
	"testing"

	"zombiezen.com/go/sqlite/sqlitex"
)

// newTestStore creates an in-memory store with a single-connection pool (so
// every Take returns the same connection and in-memory state survives
// across calls) and applies migrations, grounded on the teacher's
// db/zombiezen/config_test.go newTestDB helper.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	pool, err := sqlitex.NewPool("file::memory:", sqlitex.PoolOptions{PoolSize: 1})
	if err != nil {
		t.Fatalf("failed to create pool: %v", err)
	}
	t.Cleanup(func() {
		if err := pool.Close(); err != nil {
			t.Errorf("failed to close pool: %v", err)
		}
	})

	conn, err := pool.Take(context.Background())
	if err != nil {
		t.Fatalf("failed to take conn: %v", err)
	}
	if err := applyMigrations(conn); err != nil {
		pool.Put(conn)
		t.Fatalf("failed to apply migrations: %v", err)
	}
	pool.Put(conn)

	return &Store{pool: pool}
}
