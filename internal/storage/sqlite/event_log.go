package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/felixgeelhaar/rehearse/internal/interview"
)

// EventLog records committed session events locally. It satisfies
// interview.EventPublisher so it can be used with or instead of the queue.
type EventLog struct {
	db *DB
}

// NewEventLog creates a new SQLite-backed event log
func NewEventLog(db *DB) *EventLog {
	return &EventLog{db: db}
}

// Publish stores an event. Re-publishing the same event ID is a no-op.
func (l *EventLog) Publish(ctx context.Context, e interview.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	occurred := e.OccurredAt
	if occurred.IsZero() {
		occurred = time.Now()
	}

	_, err = l.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO session_events (event_id, event_type, session_id, data, occurred_at)
		VALUES (?, ?, ?, ?, ?)`,
		e.ID, string(e.Type), e.SessionID, string(data), occurred,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// List returns a session's events in publish order. An empty eventType
// matches every type.
func (l *EventLog) List(ctx context.Context, sessionID string, eventType interview.EventType) ([]interview.Event, error) {
	query := "SELECT data FROM session_events WHERE session_id = ?"
	args := []any{sessionID}
	if eventType != "" {
		query += " AND event_type = ?"
		args = append(args, string(eventType))
	}
	query += " ORDER BY seq"

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []interview.Event
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		var e interview.Event
		if err := json.Unmarshal([]byte(data), &e); err != nil {
			return nil, fmt.Errorf("unmarshal event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
