package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// RunStatus is the lifecycle state of an extraction run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// Run describes one dataset extraction.
type Run struct {
	ID              string     `json:"id"`
	InputDir        string     `json:"input_dir"`
	OutputDir       string     `json:"output_dir"`
	FeatureDim      int        `json:"feature_dim"`
	ScaleNormalized bool       `json:"scale_normalized"`
	FingerFeatures  bool       `json:"include_finger_features"`
	MaxFrames       int        `json:"max_frames"`
	Status          RunStatus  `json:"status"`
	ClipsOK         int        `json:"clips_ok"`
	ClipsFailed     int        `json:"clips_failed"`
	StartedAt       time.Time  `json:"started_at"`
	FinishedAt      *time.Time `json:"finished_at,omitempty"`
}

// RunRepository provides access to extraction runs.
type RunRepository struct {
	db *sql.DB
}

// Runs returns the run repository for this store.
func (s *Store) Runs() *RunRepository {
	return &RunRepository{db: s.db}
}

// Create inserts a new run in the running state. An empty ID is replaced by
// a fresh UUID.
func (r *RunRepository) Create(run *Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	run.Status = RunRunning
	run.StartedAt = time.Now().UTC()

	_, err := r.db.Exec(
		`INSERT INTO runs (id, input_dir, output_dir, feature_dim, scale_normalized,
		 finger_features, max_frames, status, started_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.InputDir, run.OutputDir, run.FeatureDim, run.ScaleNormalized,
		run.FingerFeatures, run.MaxFrames, string(run.Status), run.StartedAt,
	)
	return err
}

// Finish records the final status and clip counters of a run.
func (r *RunRepository) Finish(id string, status RunStatus, ok, failed int) error {
	res, err := r.db.Exec(
		`UPDATE runs SET status = ?, clips_ok = ?, clips_failed = ?, finished_at = ?
		 WHERE id = ?`,
		string(status), ok, failed, time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

const runColumns = `id, input_dir, output_dir, feature_dim, scale_normalized, finger_features,
	max_frames, status, clips_ok, clips_failed, started_at, finished_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	run := &Run{}
	var status string
	var finished sql.NullTime

	err := row.Scan(&run.ID, &run.InputDir, &run.OutputDir, &run.FeatureDim,
		&run.ScaleNormalized, &run.FingerFeatures, &run.MaxFrames, &status,
		&run.ClipsOK, &run.ClipsFailed, &run.StartedAt, &finished)
	if err != nil {
		return nil, err
	}

	run.Status = RunStatus(status)
	if finished.Valid {
		t := finished.Time
		run.FinishedAt = &t
	}
	return run, nil
}

// GetByID retrieves a run by its ID.
func (r *RunRepository) GetByID(id string) (*Run, error) {
	run, err := scanRun(r.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return run, nil
}

// List returns runs, most recent first. A non-positive limit returns all.
func (r *RunRepository) List(limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.Query(
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// Delete removes a run and, through the foreign key, its clips.
func (r *RunRepository) Delete(id string) error {
	res, err := r.db.Exec(`DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
