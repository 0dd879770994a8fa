package zombiezen

import (
	"context"
	"fmt"
	"io"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// LatestConfig retrieves the most recently inserted encrypted configuration
// blob for scope, or a nil slice if none exists, grounded on the teacher's
// db/zombiezen/config.go GetConfig.
func (s *Store) LatestConfig(ctx context.Context, scope string) ([]byte, error) {
	conn, err := s.take(ctx)
	if err != nil {
		return nil, err
	}
	defer s.put(conn)

	var content []byte
	err = sqlitex.Execute(conn,
		`SELECT content FROM secure_config WHERE scope = ? ORDER BY id DESC LIMIT 1;`,
		&sqlitex.ExecOptions{
			Args: []any{scope},
			ResultFunc: func(stmt *sqlite.Stmt) (err error) {
				content, err = io.ReadAll(stmt.ColumnReader(0))
				return err
			},
		})
	if err != nil {
		return nil, fmt.Errorf("store/zombiezen: latest config for scope %q: %w", scope, err)
	}
	return content, nil
}

// InsertConfig appends a new encrypted configuration version for scope.
func (s *Store) InsertConfig(ctx context.Context, scope string, content []byte, format, description string) error {
	conn, err := s.take(ctx)
	if err != nil {
		return err
	}
	defer s.put(conn)

	err = sqlitex.Execute(conn,
		`INSERT INTO secure_config (scope, content, format, description, created_at) VALUES (?, ?, ?, ?, ?);`,
		&sqlitex.ExecOptions{
			Args: []any{scope, content, format, description, time.Now().UTC().Format(time.RFC3339Nano)},
		})
	if err != nil {
		return fmt.Errorf("store/zombiezen: insert config for scope %q: %w", scope, err)
	}
	return nil
}
