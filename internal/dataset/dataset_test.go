package dataset

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/paranroman/bisimo/internal/capture"
	"github.com/paranroman/bisimo/internal/detector"
	"github.com/paranroman/bisimo/internal/features"
	"github.com/paranroman/bisimo/internal/store"
)

// makeTree creates files (relative paths) under a fresh input directory.
func makeTree(t *testing.T, files ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, f := range files {
		p := filepath.Join(root, f)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte("video"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

// mockOpener plays back frames[base name] blank frames, failing to open
// names listed in broken.
func mockOpener(frames map[string]int, broken ...string) func(string) (capture.Source, error) {
	return func(path string) (capture.Source, error) {
		name := filepath.Base(path)
		for _, b := range broken {
			if b == name {
				return nil, errors.New("cannot decode")
			}
		}
		src := capture.NewMockSource(frames[name], 30)
		if err := src.Open(); err != nil {
			return nil, err
		}
		return src, nil
	}
}

func handsDetector() *detector.MockDetector {
	det := detector.NewMockDetector()
	det.SetHands([]detector.HandLandmarks{detector.OpenPalmLandmarks()})
	return det
}

func TestIsVideo(t *testing.T) {
	tests := map[string]bool{
		"a.mp4":   true,
		"a.MP4":   true,
		"a.avi":   true,
		"a.mov":   true,
		"a.MOV":   true,
		"a.mkv":   true,
		"a.MKV":   false,
		"a.txt":   false,
		"notes":   false,
		".hidden": false,
	}
	for name, want := range tests {
		if got := IsVideo(name); got != want {
			t.Errorf("IsVideo(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestConfig_Validate(t *testing.T) {
	in := t.TempDir()
	file := filepath.Join(in, "file.txt")
	os.WriteFile(file, nil, 0o644)

	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid", Config{InputDir: in, OutputDir: "out", Detector: detector.NewMockDetector()}, false},
		{"missing input", Config{OutputDir: "out", Detector: detector.NewMockDetector()}, true},
		{"missing output", Config{InputDir: in, Detector: detector.NewMockDetector()}, true},
		{"missing detector", Config{InputDir: in, OutputDir: "out"}, true},
		{"negative max frames", Config{InputDir: in, OutputDir: "out", Detector: detector.NewMockDetector(), MaxFrames: -1}, true},
		{"input is a file", Config{InputDir: file, OutputDir: "out", Detector: detector.NewMockDetector()}, true},
		{"input does not exist", Config{InputDir: filepath.Join(in, "nope"), OutputDir: "out", Detector: detector.NewMockDetector()}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRun_WritesClipsAndMetadata(t *testing.T) {
	in := makeTree(t,
		"terima_kasih/b.mp4",
		"terima_kasih/a.MOV",
		"halo/x.avi",
		"halo/readme.txt",
	)
	out := filepath.Join(t.TempDir(), "landmarks")

	meta, err := Run(context.Background(), Config{
		InputDir:  in,
		OutputDir: out,
		Features:  features.DefaultConfig(),
		Detector:  handsDetector(),
		Open:      mockOpener(map[string]int{"b.mp4": 5, "a.MOV": 3, "x.avi": 4}),
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if strings.Join(meta.Classes, ",") != "halo,terima_kasih" {
		t.Errorf("Classes = %v, want sorted [halo terima_kasih]", meta.Classes)
	}
	if len(meta.Videos) != 3 {
		t.Fatalf("Videos = %d, want 3", len(meta.Videos))
	}
	if meta.FeatureDim != 154 || meta.CoordinateType != "relative_to_wrist" {
		t.Errorf("FeatureDim = %d, CoordinateType = %q", meta.FeatureDim, meta.CoordinateType)
	}

	first := meta.Videos[0]
	if first.Class != "halo" || first.Video != "x.avi" || first.Output != "halo/x.npy" || first.NumFrames != 4 {
		t.Errorf("first record = %+v", first)
	}
	if first.DetectionRate != 1 {
		t.Errorf("DetectionRate = %v, want 1", first.DetectionRate)
	}

	rows, err := ReadNPY(filepath.Join(out, "terima_kasih", "b.npy"))
	if err != nil {
		t.Fatalf("ReadNPY() error = %v", err)
	}
	if len(rows) != 5 || len(rows[0]) != 154 {
		t.Errorf("b.npy shape = %dx%d, want 5x154", len(rows), len(rows[0]))
	}

	onDisk, err := ReadMetadata(filepath.Join(out, MetadataFile))
	if err != nil {
		t.Fatalf("ReadMetadata() error = %v", err)
	}
	if len(onDisk.Videos) != 3 || !onDisk.IncludeFingerFeatures || !onDisk.ScaleNormalized {
		t.Errorf("metadata.json = %+v", onDisk)
	}

	raw, _ := os.ReadFile(filepath.Join(out, MetadataFile))
	if !strings.Contains(string(raw), "\n  \"classes\"") {
		t.Error("metadata.json should be indented by two spaces")
	}
}

func TestRun_FailedClipIsSkipped(t *testing.T) {
	in := makeTree(t, "halo/good.mp4", "halo/bad.mp4")
	out := t.TempDir()

	meta, err := Run(context.Background(), Config{
		InputDir:  in,
		OutputDir: out,
		Features:  features.DefaultConfig(),
		Detector:  handsDetector(),
		Open:      mockOpener(map[string]int{"good.mp4": 2}, "bad.mp4"),
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(meta.Videos) != 1 || meta.Videos[0].Video != "good.mp4" {
		t.Errorf("Videos = %+v, want only good.mp4", meta.Videos)
	}
	if meta.Failed != 1 {
		t.Errorf("Failed = %d, want 1", meta.Failed)
	}
	if _, err := os.Stat(filepath.Join(out, "halo", "bad.npy")); !os.IsNotExist(err) {
		t.Error("no output should be written for a failed clip")
	}
}

func TestRun_EmptyClassAndEmptyClip(t *testing.T) {
	in := makeTree(t, "kosong/.keep", "halo/empty.mp4")
	out := t.TempDir()

	meta, err := Run(context.Background(), Config{
		InputDir:  in,
		OutputDir: out,
		Features:  features.Config{NormalizeScale: true},
		Detector:  handsDetector(),
		Open:      mockOpener(map[string]int{"empty.mp4": 0}),
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(meta.Classes) != 2 {
		t.Errorf("Classes = %v, want both folders listed", meta.Classes)
	}
	if _, err := os.Stat(filepath.Join(out, "kosong")); err != nil {
		t.Errorf("empty class should still get an output folder: %v", err)
	}
	if meta.FeatureDim != 136 {
		t.Errorf("FeatureDim = %d, want 136", meta.FeatureDim)
	}
	if len(meta.Videos) != 1 || meta.Videos[0].NumFrames != 0 || meta.Videos[0].DetectionRate != 0 {
		t.Errorf("empty clip record = %+v", meta.Videos)
	}

	rows, err := ReadNPY(filepath.Join(out, "halo", "empty.npy"))
	if err != nil {
		t.Fatalf("ReadNPY() error = %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("empty clip has %d rows, want 0", len(rows))
	}
}

func TestRun_RecordsCatalog(t *testing.T) {
	db, err := store.New(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer db.Close()

	in := makeTree(t, "halo/a.mp4", "halo/b.mp4")
	meta, err := Run(context.Background(), Config{
		InputDir:  in,
		OutputDir: t.TempDir(),
		Features:  features.DefaultConfig(),
		Detector:  handsDetector(),
		Open:      mockOpener(map[string]int{"a.mp4": 3}, "b.mp4"),
		Store:     db,
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if meta.RunID == "" {
		t.Fatal("RunID should be set when a store is configured")
	}

	run, err := db.Runs().GetByID(meta.RunID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if run.Status != store.RunCompleted || run.ClipsOK != 1 || run.ClipsFailed != 1 {
		t.Errorf("run = %+v", run)
	}

	clips, err := db.Clips().ListByRun(meta.RunID)
	if err != nil {
		t.Fatalf("ListByRun() error = %v", err)
	}
	if len(clips) != 2 {
		t.Fatalf("clips = %d, want 2", len(clips))
	}
	if clips[0].Video != "a.mp4" || clips[0].NumFrames != 3 || clips[0].Error != "" {
		t.Errorf("first clip = %+v", clips[0])
	}
	if clips[1].Error == "" {
		t.Error("failed clip should record its error")
	}
}

func TestRun_Cancelled(t *testing.T) {
	in := makeTree(t, "halo/a.mp4")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, Config{
		InputDir:  in,
		OutputDir: t.TempDir(),
		Features:  features.DefaultConfig(),
		Detector:  handsDetector(),
		Open:      mockOpener(map[string]int{"a.mp4": 3}),
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
}

func TestWriteNPY_RaggedRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.npy")
	if err := WriteNPY(path, [][]float64{{1, 2}, {3}}); err == nil {
		t.Fatal("expected error for ragged rows")
	}
}

func TestWriteNPY_Values(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.npy")
	in := [][]float64{{1, 2, 3}, {4, 5, 6}}
	if err := WriteNPY(path, in); err != nil {
		t.Fatalf("WriteNPY() error = %v", err)
	}
	out, err := ReadNPY(path)
	if err != nil {
		t.Fatalf("ReadNPY() error = %v", err)
	}
	if len(out) != 2 || out[1][2] != 6 || out[0][1] != 2 {
		t.Errorf("ReadNPY() = %v, want %v", out, in)
	}
}
