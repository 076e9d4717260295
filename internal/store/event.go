package store

import (
	"context"
	"database/sql"

	"github.com/ayusman/mudra/internal/command"
)

// EventRepository stores delivered command events.
type EventRepository struct {
	db *sql.DB
}

// Events returns the event repository for this store.
func (s *Store) Events() *EventRepository {
	return &EventRepository{db: s.db}
}

// Record inserts e.
func (r *EventRepository) Record(e command.Event) error {
	_, err := r.db.Exec(
		`INSERT INTO command_events (id, action, response, urgent, source, trigger_text, triggered_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Action, e.Response, e.Urgent, string(e.Source), e.Trigger, e.TriggeredAt.UTC(),
	)
	return err
}

// Handle records e. It has the bus handler signature.
func (r *EventRepository) Handle(_ context.Context, e command.Event) error {
	return r.Record(e)
}

// List returns up to limit events, newest first.
func (r *EventRepository) List(limit, offset int) ([]command.Event, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.Query(
		`SELECT id, action, response, urgent, source, trigger_text, triggered_at
		 FROM command_events ORDER BY triggered_at DESC, rowid DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []command.Event{}
	for rows.Next() {
		var (
			e      command.Event
			urgent int
			source string
		)
		if err := rows.Scan(&e.ID, &e.Action, &e.Response, &urgent, &source, &e.Trigger, &e.TriggeredAt); err != nil {
			return nil, err
		}
		e.Urgent = urgent != 0
		e.Source = command.Source(source)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

// Count returns the number of stored events.
func (r *EventRepository) Count() (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM command_events`).Scan(&n)
	return n, err
}

// Clear deletes all events and returns how many were removed.
func (r *EventRepository) Clear() (int64, error) {
	result, err := r.db.Exec(`DELETE FROM command_events`)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
