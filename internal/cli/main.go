// Package cli wires the bisimo subcommands.
package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/paranroman/bisimo/internal/detector"
	"github.com/paranroman/bisimo/internal/logging"
	"github.com/paranroman/bisimo/internal/store"
)

// Main runs the command line and exits non-zero on failure.
func Main() {
	_ = godotenv.Load() // .env is optional

	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "bisimo",
		Short:         "Sign language landmark extraction and emotion-aware companion chat",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)

	root.PersistentFlags().Bool("log-json", false, "Log as JSON instead of text")
	root.PersistentFlags().String("db", defaultDBPath(), "Run catalog database (empty disables it)")

	root.AddCommand(
		newExtractCommand(),
		newPreviewCommand(),
		newServeCommand(),
		newRunsCommand(),
	)
	return root
}

func loggerFor(cmd *cobra.Command) *slog.Logger {
	asJSON, _ := cmd.Flags().GetBool("log-json")
	return logging.FromEnv(asJSON)
}

// openStore opens the catalog named by --db, or returns nil when it is
// disabled.
func openStore(cmd *cobra.Command) (*store.Store, error) {
	path, _ := cmd.Flags().GetString("db")
	if path == "" {
		return nil, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	st, err := store.New(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	return st, nil
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".bisimo", "bisimo.db")
}

func addDetectorFlags(cmd *cobra.Command) {
	cmd.Flags().String("python", "", "Python interpreter for the landmark service")
	cmd.Flags().String("script", "", "Path to holistic_service.py")
	cmd.Flags().Int("model-complexity", 2, "Holistic model complexity (0, 1 or 2)")
	_ = cmd.Flags().MarkHidden("model-complexity")
}

func newDetector(cmd *cobra.Command) (detector.Detector, error) {
	cfg := detector.DefaultConfig()
	cfg.PythonPath, _ = cmd.Flags().GetString("python")
	cfg.ScriptPath, _ = cmd.Flags().GetString("script")
	cfg.ModelComplexity, _ = cmd.Flags().GetInt("model-complexity")

	d, err := detector.NewHolisticDetector(cfg)
	if err != nil {
		return nil, fmt.Errorf("landmark detector: %w", err)
	}
	return d, nil
}

// findWebDir searches for the web directory in common locations.
func findWebDir() string {
	for _, p := range []string{"web", "../web", "../../web"} {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	homeWebDir := filepath.Join(home, ".bisimo", "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}
	return ""
}
