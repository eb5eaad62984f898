package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/paranroman/bisimo/internal/dataset"
	"github.com/paranroman/bisimo/internal/features"
)

func newExtractCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract per-frame hand features from a folder of class videos",
		Example: `  bisimo extract -i data/raw/wl_bisindo_organized -o data/landmarks/relative
  bisimo extract -i raw -o out --no-finger-features --max-frames 120`,
		Args: cobra.NoArgs,
		RunE: runExtract,
	}

	cmd.Flags().StringP("input", "i", "", "Input directory with one folder per class")
	cmd.Flags().StringP("output", "o", "", "Output directory for .npy files and metadata.json")
	cmd.Flags().Bool("no-finger-features", false, "Disable finger extension and spread features")
	cmd.Flags().Bool("no-scale-normalize", false, "Disable hand-scale normalization")
	cmd.Flags().Int("max-frames", 0, "Max frames per video (0 reads every frame)")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("output")
	addDetectorFlags(cmd)

	return cmd
}

func runExtract(cmd *cobra.Command, _ []string) error {
	input, _ := cmd.Flags().GetString("input")
	output, _ := cmd.Flags().GetString("output")
	noFingers, _ := cmd.Flags().GetBool("no-finger-features")
	noScale, _ := cmd.Flags().GetBool("no-scale-normalize")
	maxFrames, _ := cmd.Flags().GetInt("max-frames")

	logger := loggerFor(cmd)

	det, err := newDetector(cmd)
	if err != nil {
		return err
	}
	defer det.Close()

	st, err := openStore(cmd)
	if err != nil {
		return err
	}
	if st != nil {
		defer st.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := dataset.Config{
		InputDir:  input,
		OutputDir: output,
		Features: features.Config{
			NormalizeScale:        !noScale,
			IncludeFingerFeatures: !noFingers,
		},
		MaxFrames: maxFrames,
		Detector:  det,
		Store:     st,
		Logger:    logger,
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	meta, err := dataset.Run(ctx, cfg)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%d classes, %d clips written, %d failed, %d features per frame\n",
		len(meta.Classes), len(meta.Videos), meta.Failed, meta.FeatureDim)
	if meta.RunID != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "run %s\n", meta.RunID)
	}
	return nil
}
