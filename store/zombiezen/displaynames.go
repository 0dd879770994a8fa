package zombiezen

import (
	"context"
	"fmt"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/caasmo/regverify/primitives"
)

func (s *Store) UpsertDisplayName(ctx context.Context, entry primitives.DisplayNameEntry) (bool, error) {
	conn, err := s.take(ctx)
	if err != nil {
		return false, err
	}
	defer s.put(conn)

	err = sqlitex.Execute(conn,
		`INSERT INTO display_names (address, chain, display_name)
		 VALUES (?, ?, ?)
		 ON CONFLICT (address, chain, display_name) DO NOTHING`,
		&sqlitex.ExecOptions{
			Args: []any{string(entry.Context.Address), string(entry.Context.Chain), entry.DisplayName},
		})
	if err != nil {
		return false, fmt.Errorf("store/zombiezen: upsert display name: %w", err)
	}
	return conn.Changes() > 0, nil
}

func (s *Store) FetchDisplayNames(ctx context.Context, chain primitives.ChainName) ([]primitives.DisplayNameEntry, error) {
	conn, err := s.take(ctx)
	if err != nil {
		return nil, err
	}
	defer s.put(conn)

	var entries []primitives.DisplayNameEntry
	err = sqlitex.Execute(conn,
		`SELECT address, display_name FROM display_names WHERE chain = ?`,
		&sqlitex.ExecOptions{
			Args: []any{string(chain)},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				entries = append(entries, primitives.DisplayNameEntry{
					Context:     primitives.NewIdentityContext(stmt.GetText("address"), chain),
					DisplayName: stmt.GetText("display_name"),
				})
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("store/zombiezen: fetch display names: %w", err)
	}
	return entries, nil
}
