// Package dataset walks a directory of class folders, extracts features
// from every clip and writes one .npy file per clip plus a metadata index.
package dataset

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"

	"github.com/paranroman/bisimo/internal/detector"
	"github.com/paranroman/bisimo/internal/extract"
	"github.com/paranroman/bisimo/internal/features"
	"github.com/paranroman/bisimo/internal/logging"
	"github.com/paranroman/bisimo/internal/store"
)

// MetadataFile is the name of the index written at the output root.
const MetadataFile = "metadata.json"

// VideoExtensions lists the clip suffixes picked up from class folders.
var VideoExtensions = []string{".mp4", ".avi", ".mov", ".mkv", ".MP4", ".AVI", ".MOV"}

// Config describes one batch extraction.
type Config struct {
	InputDir  string
	OutputDir string
	Features  features.Config
	MaxFrames int

	Detector detector.Detector
	Open     extract.OpenFunc // nil uses capture.OpenVideoFile

	// Store, when set, receives a run record and one record per clip.
	Store  *store.Store
	Logger *slog.Logger
}

// Validate checks the fields Run depends on.
func (c Config) Validate() error {
	if strings.TrimSpace(c.InputDir) == "" {
		return errors.New("input directory is required")
	}
	if strings.TrimSpace(c.OutputDir) == "" {
		return errors.New("output directory is required")
	}
	if c.Detector == nil {
		return errors.New("detector is required")
	}
	if c.MaxFrames < 0 {
		return fmt.Errorf("max frames must be >= 0, got %d", c.MaxFrames)
	}
	info, err := os.Stat(c.InputDir)
	if err != nil {
		return fmt.Errorf("input directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("input %s is not a directory", c.InputDir)
	}
	return nil
}

// VideoRecord is one successfully processed clip in the metadata index.
type VideoRecord struct {
	Class         string  `json:"class"`
	Video         string  `json:"video"`
	Output        string  `json:"output"`
	NumFrames     int     `json:"num_frames"`
	DetectionRate float64 `json:"detection_rate"`
}

// Metadata is the content of metadata.json.
type Metadata struct {
	Classes               []string      `json:"classes"`
	Videos                []VideoRecord `json:"videos"`
	FeatureDim            int           `json:"feature_dim"`
	CoordinateType        string        `json:"coordinate_type"`
	ScaleNormalized       bool          `json:"scale_normalized"`
	IncludeFingerFeatures bool          `json:"include_finger_features"`

	// Failed counts clips that were skipped; it is not written to disk.
	Failed int    `json:"-"`
	RunID  string `json:"-"`
}

// Run processes every class folder under cfg.InputDir. Per-clip failures are
// logged and skipped; only setup errors, a failed metadata write or context
// cancellation abort the run.
func Run(ctx context.Context, cfg Config) (*Metadata, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	classes, err := classFolders(cfg.InputDir)
	if err != nil {
		return nil, err
	}
	logger.Info("found classes", slog.Int("count", len(classes)), slog.String("input", cfg.InputDir))

	ext := features.New(cfg.Features)
	opts := []extract.Option{extract.WithMaxFrames(cfg.MaxFrames), extract.WithLogger(logger)}
	if cfg.Open != nil {
		opts = append(opts, extract.WithOpener(cfg.Open))
	}
	proc := extract.NewProcessor(cfg.Detector, ext, opts...)

	meta := &Metadata{
		Classes:               []string{},
		Videos:                []VideoRecord{},
		FeatureDim:            ext.PerFrame(),
		CoordinateType:        features.CoordinateType,
		ScaleNormalized:       cfg.Features.NormalizeScale,
		IncludeFingerFeatures: cfg.Features.IncludeFingerFeatures,
	}

	rec := newRecorder(cfg, meta, logger)
	rec.start()

	runErr := func() error {
		for _, class := range classes {
			meta.Classes = append(meta.Classes, class)

			classOut := filepath.Join(cfg.OutputDir, class)
			if err := os.MkdirAll(classOut, 0o755); err != nil {
				return fmt.Errorf("create class directory: %w", err)
			}

			videos, err := classVideos(filepath.Join(cfg.InputDir, class))
			if err != nil {
				return err
			}
			logger.Info("processing class", slog.String("class", class), slog.Int("videos", len(videos)))

			for _, name := range videos {
				if err := ctx.Err(); err != nil {
					return err
				}
				if err := processVideo(ctx, cfg, proc, meta, rec, class, name); err != nil {
					if ctxErr := ctx.Err(); ctxErr != nil {
						return ctxErr
					}
					meta.Failed++
					logger.Error("clip failed", slog.String("class", class), slog.String("video", name), logging.Err(err))
				}
			}
		}
		return writeMetadata(filepath.Join(cfg.OutputDir, MetadataFile), meta)
	}()

	rec.finish(runErr)
	if runErr != nil {
		return meta, runErr
	}

	logger.Info("extraction complete",
		slog.Int("classes", len(meta.Classes)),
		slog.Int("videos", len(meta.Videos)),
		slog.Int("failed", meta.Failed),
		slog.Int("features", meta.FeatureDim),
		slog.Bool("scale_normalized", meta.ScaleNormalized),
		slog.String("output", cfg.OutputDir))

	return meta, nil
}

func processVideo(ctx context.Context, cfg Config, proc *extract.Processor, meta *Metadata, rec *recorder, class, name string) error {
	path := filepath.Join(cfg.InputDir, class, name)

	result, err := proc.ProcessClip(ctx, path)
	if err != nil {
		rec.clip(&store.Clip{Class: class, Video: name, Error: err.Error()})
		return err
	}

	stem := strings.TrimSuffix(name, filepath.Ext(name))
	output := filepath.Join(class, stem+".npy")
	if err := WriteNPY(filepath.Join(cfg.OutputDir, output), result.Landmarks); err != nil {
		rec.clip(&store.Clip{Class: class, Video: name, Error: err.Error()})
		return err
	}

	record := VideoRecord{
		Class:         class,
		Video:         name,
		Output:        filepath.ToSlash(output),
		NumFrames:     len(result.Landmarks),
		DetectionRate: result.Metadata.DetectionRate,
	}
	meta.Videos = append(meta.Videos, record)

	rec.clip(&store.Clip{
		Class:         class,
		Video:         name,
		Output:        record.Output,
		NumFrames:     record.NumFrames,
		FPS:           result.Metadata.FPS,
		DetectionRate: record.DetectionRate,
	})
	return nil
}

// classFolders returns the sorted names of the subdirectories of dir.
func classFolders(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read input directory: %w", err)
	}
	var classes []string
	for _, e := range entries {
		if e.IsDir() {
			classes = append(classes, e.Name())
		}
	}
	return classes, nil
}

// classVideos returns the clip file names of a class folder, sorted.
func classVideos(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read class directory: %w", err)
	}
	var videos []string
	for _, e := range entries {
		if e.Type().IsRegular() && IsVideo(e.Name()) {
			videos = append(videos, e.Name())
		}
	}
	return videos, nil
}

// IsVideo reports whether name carries one of the accepted clip suffixes.
func IsVideo(name string) bool {
	return slices.Contains(VideoExtensions, filepath.Ext(name))
}

// WriteNPY stores rows as a float64 array of shape (len(rows), len(rows[0])).
// An empty clip is written as a zero-length one-dimensional array.
func WriteNPY(path string, rows [][]float64) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	if len(rows) == 0 {
		err = npyio.Write(f, []float64{})
	} else {
		cols := len(rows[0])
		data := make([]float64, 0, len(rows)*cols)
		for i, row := range rows {
			if len(row) != cols {
				f.Close()
				return fmt.Errorf("row %d has %d values, want %d", i, len(row), cols)
			}
			data = append(data, row...)
		}
		err = npyio.Write(f, mat.NewDense(len(rows), cols, data))
	}
	if err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// ReadNPY loads a file written by WriteNPY.
func ReadNPY(path string) ([][]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r, err := npyio.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	shape := r.Header.Descr.Shape
	if len(shape) == 1 && shape[0] == 0 {
		return [][]float64{}, nil
	}
	if len(shape) != 2 {
		return nil, fmt.Errorf("%s: unexpected shape %v", path, shape)
	}

	var m mat.Dense
	if err := r.Read(&m); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	rows := make([][]float64, shape[0])
	for i := range rows {
		rows[i] = mat.Row(nil, i, &m)
	}
	return rows, nil
}

func writeMetadata(path string, meta *Metadata) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	return nil
}

// ReadMetadata loads a metadata.json written by Run.
func ReadMetadata(path string) (*Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &meta, nil
}
