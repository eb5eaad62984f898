package dataset

import (
	"log/slog"

	"github.com/paranroman/bisimo/internal/logging"
	"github.com/paranroman/bisimo/internal/store"
)

// recorder mirrors run progress into the optional store. Catalog failures
// are logged and never abort the extraction.
type recorder struct {
	store  *store.Store
	run    *store.Run
	meta   *Metadata
	logger *slog.Logger
}

func newRecorder(cfg Config, meta *Metadata, logger *slog.Logger) *recorder {
	r := &recorder{store: cfg.Store, meta: meta, logger: logger}
	if cfg.Store != nil {
		r.run = &store.Run{
			InputDir:        cfg.InputDir,
			OutputDir:       cfg.OutputDir,
			FeatureDim:      meta.FeatureDim,
			ScaleNormalized: cfg.Features.NormalizeScale,
			FingerFeatures:  cfg.Features.IncludeFingerFeatures,
			MaxFrames:       cfg.MaxFrames,
		}
	}
	return r
}

func (r *recorder) start() {
	if r.run == nil {
		return
	}
	if err := r.store.Runs().Create(r.run); err != nil {
		r.logger.Warn("run catalog unavailable", logging.Err(err))
		r.run = nil
		return
	}
	r.meta.RunID = r.run.ID
}

func (r *recorder) clip(c *store.Clip) {
	if r.run == nil {
		return
	}
	c.RunID = r.run.ID
	if err := r.store.Clips().Create(c); err != nil {
		r.logger.Warn("failed to record clip", slog.String("video", c.Video), logging.Err(err))
	}
}

func (r *recorder) finish(runErr error) {
	if r.run == nil {
		return
	}
	status := store.RunCompleted
	if runErr != nil {
		status = store.RunFailed
	}
	if err := r.store.Runs().Finish(r.run.ID, status, len(r.meta.Videos), r.meta.Failed); err != nil {
		r.logger.Warn("failed to finish run", logging.Err(err))
	}
}
