package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ayusman/mudra/internal/command"
	"github.com/ayusman/mudra/internal/gesture"
)

// CommandRepository stores command definitions.
type CommandRepository struct {
	db *sql.DB
}

// Commands returns the command repository for this store.
func (s *Store) Commands() *CommandRepository {
	return &CommandRepository{db: s.db}
}

// Seed inserts defs when the table is empty and reports whether it did.
// An existing table is left untouched so local edits survive restarts.
func (r *CommandRepository) Seed(defs []command.Definition) (bool, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	var n int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM commands`).Scan(&n); err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}

	for i, d := range defs {
		keywords, err := json.Marshal(nonNil(d.Keywords))
		if err != nil {
			return false, err
		}
		phrases, err := json.Marshal(nonNil(d.Phrases))
		if err != nil {
			return false, err
		}

		_, err = tx.Exec(
			`INSERT INTO commands (action, position, gesture, keywords, phrases, response, description, urgent)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			d.Action, i, d.Gesture.String(), string(keywords), string(phrases), d.Response, d.Description, d.Urgent,
		)
		if err != nil {
			return false, fmt.Errorf("insert command %s: %w", d.Action, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

const commandColumns = `action, gesture, keywords, phrases, response, description, urgent`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCommand(row rowScanner) (command.Definition, error) {
	var (
		d                        command.Definition
		label, keywords, phrases string
		urgent                   int
	)
	if err := row.Scan(&d.Action, &label, &keywords, &phrases, &d.Response, &d.Description, &urgent); err != nil {
		return d, err
	}

	g, err := gesture.ParseLabel(label)
	if err != nil {
		return d, fmt.Errorf("command %s: %w", d.Action, err)
	}
	d.Gesture = g
	d.Urgent = urgent != 0

	if err := json.Unmarshal([]byte(keywords), &d.Keywords); err != nil {
		return d, fmt.Errorf("command %s keywords: %w", d.Action, err)
	}
	if err := json.Unmarshal([]byte(phrases), &d.Phrases); err != nil {
		return d, fmt.Errorf("command %s phrases: %w", d.Action, err)
	}
	return d, nil
}

// List returns all definitions in matching order.
func (r *CommandRepository) List() ([]command.Definition, error) {
	rows, err := r.db.Query(`SELECT ` + commandColumns + ` FROM commands ORDER BY position, action`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var defs []command.Definition
	for rows.Next() {
		d, err := scanCommand(rows)
		if err != nil {
			return nil, err
		}
		defs = append(defs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return defs, nil
}

// Get returns the definition for action.
func (r *CommandRepository) Get(action string) (command.Definition, error) {
	d, err := scanCommand(r.db.QueryRow(`SELECT `+commandColumns+` FROM commands WHERE action = ?`, action))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return command.Definition{}, ErrNotFound
		}
		return command.Definition{}, err
	}
	return d, nil
}

// Table loads the stored definitions as a command table.
func (r *CommandRepository) Table() (*command.Table, error) {
	defs, err := r.List()
	if err != nil {
		return nil, err
	}
	return command.NewTable(defs)
}
