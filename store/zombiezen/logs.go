package zombiezen

import (
	"context"
	"fmt"

	"zombiezen.com/go/sqlite/sqlitex"
)

// LogEntry is a pre-processed application log record ready for batch
// insertion, mirroring the teacher's db.Log shape (db/types.go).
type LogEntry struct {
	Level    int64
	Message  string
	JSONData string
	Created  string
}

// WriteLogBatch inserts a batch of log entries in a single transaction,
// grounded on the teacher's db/zombiezen/log.go WriteLogBatch.
func (s *Store) WriteLogBatch(ctx context.Context, batch []LogEntry) error {
	if len(batch) == 0 {
		return nil
	}

	conn, err := s.take(ctx)
	if err != nil {
		return err
	}
	defer s.put(conn)

	if err := sqlitex.Execute(conn, "BEGIN;", nil); err != nil {
		return fmt.Errorf("store/zombiezen: begin log batch: %w", err)
	}

	stmt, err := conn.Prepare(`INSERT INTO log_entries (level, message, json_data, created) VALUES ($level, $message, $json_data, $created)`)
	if err != nil {
		sqlitex.Execute(conn, "ROLLBACK;", nil)
		return fmt.Errorf("store/zombiezen: prepare log insert: %w", err)
	}
	defer stmt.Finalize()

	for _, entry := range batch {
		stmt.SetInt64("$level", entry.Level)
		stmt.SetText("$message", entry.Message)
		stmt.SetText("$json_data", entry.JSONData)
		stmt.SetText("$created", entry.Created)

		if _, err := stmt.Step(); err != nil {
			stmt.Reset()
			sqlitex.Execute(conn, "ROLLBACK;", nil)
			return fmt.Errorf("store/zombiezen: insert log entry %q: %w", entry.Message, err)
		}
		stmt.Reset()
	}

	if err := sqlitex.Execute(conn, "COMMIT;", nil); err != nil {
		return fmt.Errorf("store/zombiezen: commit log batch: %w", err)
	}
	return nil
}
