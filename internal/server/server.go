// Package server provides the HTTP server for bisimo: the companion chat
// API, the extraction run catalog and the live landmark feed.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/paranroman/bisimo/internal/chat"
	"github.com/paranroman/bisimo/internal/logging"
	"github.com/paranroman/bisimo/internal/server/api"
	"github.com/paranroman/bisimo/internal/store"
)

// Config holds the server configuration. Every component is optional; routes
// are registered only for the ones that are set.
type Config struct {
	StaticDir string
	Chat      *chat.Service
	Store     *store.Store
	Feed      *FeedHub
	Logger    *slog.Logger
}

// Server represents the HTTP server for the bisimo application.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
	logger *slog.Logger
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
		logger: config.Logger,
	}
	if s.logger == nil {
		s.logger = logging.Discard()
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if s.config.Chat != nil {
		api.NewChatHandler(s.config.Chat, s.logger).Register(s.mux)
	}

	if s.config.Store != nil {
		runs := api.NewRunHandler(s.config.Store)
		s.mux.Handle("/api/runs", runs)
		s.mux.Handle("/api/runs/", runs)
	}

	if s.config.Feed != nil {
		s.mux.Handle("/api/landmarks", s.config.Feed)
	}

	// Serve static files if StaticDir is configured
	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

type classifierHealth struct {
	Available bool           `json:"available"`
	Labels    map[int]string `json:"labels"`
}

type healthResponse struct {
	Status         string            `json:"status"`
	Uptime         string            `json:"uptime"`
	Provider       string            `json:"provider,omitempty"`
	Classifier     *classifierHealth `json:"classifier,omitempty"`
	ActiveSessions int               `json:"active_sessions"`
	FeedClients    int               `json:"feed_clients"`
}

// handleHealth handles GET requests to /health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	resp := healthResponse{
		Status: "ok",
		Uptime: time.Since(s.start).Round(time.Second).String(),
	}
	if c := s.config.Chat; c != nil {
		resp.Provider = c.Provider().Name()
		resp.Classifier = &classifierHealth{
			Available: c.Analyzer().HasModel(),
			Labels:    c.Analyzer().Labels(),
		}
		resp.ActiveSessions = c.ActiveSessions()
	}
	if s.config.Feed != nil {
		resp.FeedClients = s.config.Feed.Clients()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", slog.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
