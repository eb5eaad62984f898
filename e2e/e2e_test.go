package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/paranroman/bisimo/internal/capture"
	"github.com/paranroman/bisimo/internal/chat"
	"github.com/paranroman/bisimo/internal/dataset"
	"github.com/paranroman/bisimo/internal/detector"
	"github.com/paranroman/bisimo/internal/emotion"
	"github.com/paranroman/bisimo/internal/features"
	"github.com/paranroman/bisimo/internal/llm"
	"github.com/paranroman/bisimo/internal/server"
	"github.com/paranroman/bisimo/internal/store"
)

type echoProvider struct{}

func (echoProvider) Name() string { return "echo" }

func (echoProvider) Complete(context.Context, llm.Request) (string, error) {
	return "Aku dengerin kok, **pelan-pelan** aja ceritanya", nil
}

func TestE2E_ExtractionCatalog(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	tmpDir := t.TempDir()
	in := filepath.Join(tmpDir, "videos")
	out := filepath.Join(tmpDir, "out")
	for _, f := range []string{"halo/a.mp4", "halo/b.mp4", "terima_kasih/c.mp4"} {
		p := filepath.Join(in, f)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte("video"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	s, err := store.New(filepath.Join(tmpDir, "data.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	det := detector.NewMockDetector()
	det.SetHands([]detector.HandLandmarks{detector.OpenPalmLandmarks(), detector.Mirror(detector.FistLandmarks())})

	open := func(path string) (capture.Source, error) {
		if filepath.Base(path) == "c.mp4" {
			return nil, errors.New("cannot decode")
		}
		src := capture.NewMockSource(4, 30)
		if err := src.Open(); err != nil {
			return nil, err
		}
		return src, nil
	}

	meta, err := dataset.Run(context.Background(), dataset.Config{
		InputDir:  in,
		OutputDir: out,
		Features:  features.DefaultConfig(),
		Detector:  det,
		Open:      open,
		Store:     s,
	})
	if err != nil {
		t.Fatalf("dataset.Run() error = %v", err)
	}

	t.Run("Metadata", func(t *testing.T) {
		if len(meta.Videos) != 2 || meta.Failed != 1 {
			t.Fatalf("videos = %d, failed = %d, want 2 and 1", len(meta.Videos), meta.Failed)
		}
		if meta.FeatureDim != 154 {
			t.Errorf("FeatureDim = %d, want 154", meta.FeatureDim)
		}

		onDisk, err := dataset.ReadMetadata(filepath.Join(out, dataset.MetadataFile))
		if err != nil {
			t.Fatalf("ReadMetadata() error = %v", err)
		}
		if len(onDisk.Classes) != 2 || onDisk.Classes[0] != "halo" {
			t.Errorf("classes = %v", onDisk.Classes)
		}
	})

	t.Run("Arrays", func(t *testing.T) {
		rows, err := dataset.ReadNPY(filepath.Join(out, "halo", "a.npy"))
		if err != nil {
			t.Fatalf("ReadNPY() error = %v", err)
		}
		if len(rows) != 4 || len(rows[0]) != 154 {
			t.Fatalf("shape = %dx%d, want 4x154", len(rows), len(rows[0]))
		}
	})

	ts := httptest.NewServer(server.New(server.Config{Store: s}))
	defer ts.Close()

	var runID string
	t.Run("ListRuns", func(t *testing.T) {
		resp, err := ts.Client().Get(ts.URL + "/api/runs")
		if err != nil {
			t.Fatalf("GET /api/runs error = %v", err)
		}
		defer resp.Body.Close()

		var body struct {
			Runs []store.Run `json:"runs"`
		}
		json.NewDecoder(resp.Body).Decode(&body)
		if len(body.Runs) != 1 {
			t.Fatalf("runs = %d, want 1", len(body.Runs))
		}
		run := body.Runs[0]
		if run.Status != store.RunCompleted || run.ClipsOK != 2 || run.ClipsFailed != 1 {
			t.Errorf("run = %+v", run)
		}
		runID = run.ID
	})

	t.Run("RunClips", func(t *testing.T) {
		if runID == "" {
			t.Skip("no run recorded")
		}
		resp, err := ts.Client().Get(ts.URL + "/api/runs/" + runID)
		if err != nil {
			t.Fatalf("GET run error = %v", err)
		}
		defer resp.Body.Close()

		var body struct {
			Clips []store.Clip `json:"clips"`
		}
		json.NewDecoder(resp.Body).Decode(&body)
		if len(body.Clips) != 3 {
			t.Fatalf("clips = %d, want 3", len(body.Clips))
		}
	})
}

func TestE2E_ChatWithClassifier(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	model := http.NewServeMux()
	model.HandleFunc("/predict", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"probabilities": []float64{0.02, 0.03, 0.05, 0.8, 0.04, 0.03, 0.03},
		})
	})
	modelSrv := httptest.NewServer(model)
	defer modelSrv.Close()

	classifier := emotion.NewRemoteClassifier(modelSrv.URL, time.Second)
	defer classifier.Close()

	svc := chat.NewService(echoProvider{}, emotion.NewAnalyzer(classifier, nil))
	ts := httptest.NewServer(server.New(server.Config{Chat: svc}))
	defer ts.Close()

	resp, err := ts.Client().Post(ts.URL+"/chat", "application/json",
		bytes.NewBufferString(`{"message": "aku lagi sedih banget hari ini", "session_id": "e2e"}`))
	if err != nil {
		t.Fatalf("POST /chat error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var reply chat.Reply
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		t.Fatalf("decode error = %v", err)
	}
	if reply.Emotion != emotion.Sadness || reply.DetectionMethod != emotion.MethodModel {
		t.Errorf("emotion = %q via %q, want sadness via model", reply.Emotion, reply.DetectionMethod)
	}
	if !reply.ModelActive {
		t.Error("indobert_active = false, want true")
	}
	if reply.Message != "Aku dengerin kok, pelan-pelan aja ceritanya" {
		t.Errorf("message = %q, markdown should be stripped", reply.Message)
	}

	health, err := ts.Client().Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health error = %v", err)
	}
	defer health.Body.Close()

	var status struct {
		Classifier struct {
			Available bool              `json:"available"`
			Labels    map[string]string `json:"labels"`
		} `json:"classifier"`
		ActiveSessions int `json:"active_sessions"`
	}
	json.NewDecoder(health.Body).Decode(&status)
	if !status.Classifier.Available || len(status.Classifier.Labels) != 7 {
		t.Errorf("classifier status = %+v", status.Classifier)
	}
	if status.ActiveSessions != 1 {
		t.Errorf("active_sessions = %d, want 1", status.ActiveSessions)
	}
}
