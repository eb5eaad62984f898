package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// One row per dataset extraction.
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			input_dir TEXT NOT NULL,
			output_dir TEXT NOT NULL,
			feature_dim INTEGER NOT NULL,
			scale_normalized INTEGER NOT NULL,
			finger_features INTEGER NOT NULL,
			max_frames INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL CHECK(status IN ('running', 'completed', 'failed')),
			clips_ok INTEGER NOT NULL DEFAULT 0,
			clips_failed INTEGER NOT NULL DEFAULT 0,
			started_at DATETIME NOT NULL,
			finished_at DATETIME
		)`,

		// Every clip attempted by a run, successful or not.
		`CREATE TABLE IF NOT EXISTS clips (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			class TEXT NOT NULL,
			video TEXT NOT NULL,
			output TEXT NOT NULL DEFAULT '',
			num_frames INTEGER NOT NULL DEFAULT 0,
			fps REAL NOT NULL DEFAULT 0,
			detection_rate REAL NOT NULL DEFAULT 0,
			error TEXT NOT NULL DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_clips_run_id ON clips(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_clips_class ON clips(class)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
