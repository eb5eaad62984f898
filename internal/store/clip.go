package store

import (
	"database/sql"
	"time"
)

// Clip records the outcome of processing one video within a run.
type Clip struct {
	ID            int64     `json:"id"`
	RunID         string    `json:"run_id"`
	Class         string    `json:"class"`
	Video         string    `json:"video"`
	Output        string    `json:"output,omitempty"`
	NumFrames     int       `json:"num_frames"`
	FPS           float64   `json:"fps"`
	DetectionRate float64   `json:"detection_rate"`
	Error         string    `json:"error,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// ClipRepository provides access to clip records.
type ClipRepository struct {
	db *sql.DB
}

// Clips returns the clip repository for this store.
func (s *Store) Clips() *ClipRepository {
	return &ClipRepository{db: s.db}
}

// Create inserts a clip record and sets its ID.
func (r *ClipRepository) Create(c *Clip) error {
	c.CreatedAt = time.Now().UTC()
	res, err := r.db.Exec(
		`INSERT INTO clips (run_id, class, video, output, num_frames, fps, detection_rate, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.RunID, c.Class, c.Video, c.Output, c.NumFrames, c.FPS, c.DetectionRate, c.Error, c.CreatedAt,
	)
	if err != nil {
		return err
	}
	c.ID, err = res.LastInsertId()
	return err
}

// ListByRun returns the clips of a run in insertion order.
func (r *ClipRepository) ListByRun(runID string) ([]*Clip, error) {
	rows, err := r.db.Query(
		`SELECT id, run_id, class, video, output, num_frames, fps, detection_rate, error, created_at
		 FROM clips WHERE run_id = ? ORDER BY id`,
		runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clips []*Clip
	for rows.Next() {
		c := &Clip{}
		if err := rows.Scan(&c.ID, &c.RunID, &c.Class, &c.Video, &c.Output, &c.NumFrames,
			&c.FPS, &c.DetectionRate, &c.Error, &c.CreatedAt); err != nil {
			return nil, err
		}
		clips = append(clips, c)
	}

	return clips, rows.Err()
}
