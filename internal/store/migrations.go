package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Command definitions, in keyword matching order
		`CREATE TABLE IF NOT EXISTS commands (
			action TEXT PRIMARY KEY,
			position INTEGER NOT NULL,
			gesture TEXT NOT NULL DEFAULT 'none',
			keywords TEXT NOT NULL DEFAULT '[]',
			phrases TEXT NOT NULL DEFAULT '[]',
			response TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			urgent INTEGER NOT NULL DEFAULT 0
		)`,

		// Delivered command events
		`CREATE TABLE IF NOT EXISTS command_events (
			id TEXT PRIMARY KEY,
			action TEXT NOT NULL DEFAULT '',
			response TEXT NOT NULL,
			urgent INTEGER NOT NULL DEFAULT 0,
			source TEXT NOT NULL CHECK(source IN ('gesture', 'voice')),
			trigger_text TEXT NOT NULL DEFAULT '',
			triggered_at DATETIME NOT NULL
		)`,

		// Application settings as key-value pairs
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_command_events_triggered_at ON command_events(triggered_at)`,
		`CREATE INDEX IF NOT EXISTS idx_command_events_action ON command_events(action)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
