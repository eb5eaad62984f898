package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/paranroman/bisimo/internal/app"
	"github.com/paranroman/bisimo/internal/capture"
	"github.com/paranroman/bisimo/internal/features"
	"github.com/paranroman/bisimo/internal/server"
)

func newPreviewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Run live hand landmark extraction on a camera",
		Long: `Reads frames from a camera, detects both hands and logs the palm orientation
of each. With --addr the per-frame reports are streamed over a WebSocket at
/api/landmarks.`,
		Args: cobra.NoArgs,
		RunE: runPreview,
	}

	cmd.Flags().IntP("camera", "c", 0, "Camera device ID")
	cmd.Flags().String("addr", "", "Serve the landmark feed on this address")
	cmd.Flags().Float64("fps", 15, "Frames per second to process")
	cmd.Flags().Float64("motion-threshold", 0, "Skip detection while less than this percent of pixels change (0 disables)")
	addDetectorFlags(cmd)

	return cmd
}

func runPreview(cmd *cobra.Command, _ []string) error {
	cameraID, _ := cmd.Flags().GetInt("camera")
	addr, _ := cmd.Flags().GetString("addr")
	fps, _ := cmd.Flags().GetFloat64("fps")
	threshold, _ := cmd.Flags().GetFloat64("motion-threshold")

	logger := loggerFor(cmd)

	det, err := newDetector(cmd)
	if err != nil {
		return err
	}
	defer det.Close()

	var hub *server.FeedHub
	if addr != "" {
		hub = server.NewFeedHub(logger)
	}

	cfg := app.Config{
		Source:          capture.NewCamera(cameraID),
		Detector:        det,
		Extractor:       features.New(features.DefaultConfig()),
		Logger:          logger,
		FPS:             fps,
		MotionThreshold: threshold,
	}
	if hub != nil {
		cfg.Publisher = hub
	}

	preview, err := app.NewPreview(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if hub == nil {
		return preview.Run(ctx)
	}

	srv := server.New(server.Config{StaticDir: findWebDir(), Feed: hub, Logger: logger})
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.ListenAndServe(ctx, addr)
		stop()
	}()

	runErr := preview.Run(ctx)
	stop()
	if err := <-serveErr; err != nil {
		return err
	}
	return runErr
}
