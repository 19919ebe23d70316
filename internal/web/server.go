// Package web provides an HTTP service for uploading CSV files and
// compiling and running transformation scripts against them.
package web

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/yasurirashmika/dtlc/internal/runner"
	"github.com/yasurirashmika/dtlc/internal/state"
)

// Server is the compile-and-run web service.
type Server struct {
	store       state.Store
	runner      *runner.Runner
	port        int
	uploadsDir  string
	outputsDir  string
	previewRows int
	logger      *slog.Logger
}

// Config holds configuration for the web server.
type Config struct {
	Store       state.Store
	Runner      *runner.Runner
	Port        int
	UploadsDir  string
	OutputsDir  string
	PreviewRows int
	Logger      *slog.Logger
}

// NewServer creates a new server instance.
func NewServer(cfg Config) *Server {
	previewRows := cfg.PreviewRows
	if previewRows <= 0 {
		previewRows = 20
	}
	r := cfg.Runner
	if r == nil {
		r = &runner.Runner{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		store:       cfg.Store,
		runner:      r,
		port:        cfg.Port,
		uploadsDir:  cfg.UploadsDir,
		outputsDir:  cfg.OutputsDir,
		previewRows: previewRows,
		logger:      logger,
	}
}

// Routes builds the HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.Logger,
		middleware.Recoverer,
		middleware.Compress(5),
	)

	r.Post("/upload", s.handleUpload)
	r.Post("/compile", s.handleCompile)
	r.Get("/download/python", s.handleDownloadPython)
	r.Get("/download/csv", s.handleDownloadCSV)

	return r
}

// Serve starts the server and blocks until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	for _, dir := range []string{s.uploadsDir, s.outputsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("starting web server", "addr", fmt.Sprintf("http://localhost:%d", s.port))

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:    addr,
		Handler: s.Routes(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down web server...")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}
