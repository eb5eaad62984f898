package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/paranroman/bisimo/internal/chat"
	"github.com/paranroman/bisimo/internal/config"
	"github.com/paranroman/bisimo/internal/emotion"
	"github.com/paranroman/bisimo/internal/llm"
	"github.com/paranroman/bisimo/internal/llm/gemini"
	"github.com/paranroman/bisimo/internal/llm/mistral"
	"github.com/paranroman/bisimo/internal/server"
)

func newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the companion chat API",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}

	cmd.Flags().String("config", "", "YAML config file")
	cmd.Flags().String("addr", "", "Listen address (overrides the config)")
	cmd.Flags().String("static", "", "Directory with the web client (default: search ./web and ~/.bisimo/web)")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	path, _ := cmd.Flags().GetString("config")
	addr, _ := cmd.Flags().GetString("addr")
	static, _ := cmd.Flags().GetString("static")

	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.Addr = addr
	}
	if static != "" {
		cfg.StaticDir = static
	}
	if cfg.StaticDir == "" {
		cfg.StaticDir = findWebDir()
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger := loggerFor(cmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	provider, err := newProvider(ctx, cfg)
	if err != nil {
		return err
	}

	var classifier emotion.Classifier
	if cfg.ClassifierURL != "" {
		classifier = emotion.NewRemoteClassifier(cfg.ClassifierURL, cfg.ClassifierTimeout)
		defer classifier.Close()
	}
	analyzer := emotion.NewAnalyzer(classifier, logger)

	svc := chat.NewService(provider, analyzer, chat.WithLogger(logger))

	st, err := openStore(cmd)
	if err != nil {
		return err
	}
	if st != nil {
		defer st.Close()
	}

	if cfg.SessionIdle > 0 {
		go pruneSessions(ctx, svc.Sessions(), cfg.SessionIdle, logger)
	}

	logger.Info("chat server configured",
		slog.String("provider", provider.Name()),
		slog.Bool("classifier", analyzer.HasModel()),
		slog.String("static", cfg.StaticDir),
	)

	srv := server.New(server.Config{
		StaticDir: cfg.StaticDir,
		Chat:      svc,
		Store:     st,
		Logger:    logger,
	})
	return srv.ListenAndServe(ctx, cfg.Addr)
}

func newProvider(ctx context.Context, cfg config.Server) (llm.Provider, error) {
	switch cfg.Provider {
	case config.ProviderGemini:
		a, err := gemini.New(ctx, gemini.Options{APIKey: cfg.GeminiKey, Model: cfg.Model})
		if err != nil {
			return nil, fmt.Errorf("gemini: %w", err)
		}
		return a, nil
	case config.ProviderMistral:
		return mistral.New(cfg.MistralKey, cfg.Model, cfg.MistralBaseURL), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}

func pruneSessions(ctx context.Context, sessions *chat.SessionManager, idle time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(idle / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := sessions.Prune(idle); n > 0 {
				logger.Debug("pruned idle sessions", slog.Int("count", n))
			}
		}
	}
}
