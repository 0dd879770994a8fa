package zombiezen

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/caasmo/regverify/primitives"
)

func (s *Store) InsertEvent(ctx context.Context, msg primitives.NotificationMessage) error {
	conn, err := s.take(ctx)
	if err != nil {
		return err
	}
	defer s.put(conn)

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("store/zombiezen: encode event payload: %w", err)
	}

	return sqlitex.Execute(conn,
		`INSERT INTO event_log (timestamp, kind, payload) VALUES (?, ?, ?)`,
		&sqlitex.ExecOptions{
			Args: []any{time.Now().Unix(), string(msg.Kind), string(payload)},
		})
}

// FetchEvents returns every event logged after the given cursor, along with
// the maximum timestamp observed, so a caller like the notifier can advance
// its cursor to exactly that value on the next poll.
func (s *Store) FetchEvents(ctx context.Context, after int64) ([]primitives.Event, int64, error) {
	conn, err := s.take(ctx)
	if err != nil {
		return nil, 0, err
	}
	defer s.put(conn)

	var events []primitives.Event
	var decodeErr error
	maxTimestamp := after

	err = sqlitex.Execute(conn,
		`SELECT timestamp, payload FROM event_log WHERE timestamp > ? ORDER BY timestamp, id`,
		&sqlitex.ExecOptions{
			Args: []any{after},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				ts := stmt.GetInt64("timestamp")
				var msg primitives.NotificationMessage
				if err := json.Unmarshal([]byte(stmt.GetText("payload")), &msg); err != nil {
					decodeErr = err
					return nil
				}
				events = append(events, primitives.Event{Timestamp: ts, Message: msg})
				if ts > maxTimestamp {
					maxTimestamp = ts
				}
				return nil
			},
		})
	if err != nil {
		return nil, 0, fmt.Errorf("store/zombiezen: fetch events: %w", err)
	}
	if decodeErr != nil {
		return nil, 0, fmt.Errorf("store/zombiezen: decode event: %w", decodeErr)
	}
	return events, maxTimestamp, nil
}
