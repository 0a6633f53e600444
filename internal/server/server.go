// Package server provides the HTTP API for deckfill.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/deckfill/internal/config"
	"github.com/hyperjump/deckfill/internal/pipeline"
)

// InboxService reports the hot-folder directories. Nil when the inbox is disabled.
type InboxService interface {
	Directories() []string
}

// Server is the HTTP server for the deckfill API.
type Server struct {
	svc    *pipeline.Service
	inbox  InboxService
	config *config.ServerConfig
	logger *zap.Logger
	server *http.Server
}

// NewServer creates a server with the given dependencies. inbox may be nil.
func NewServer(svc *pipeline.Service, cfg *config.ServerConfig, logger *zap.Logger, inbox InboxService) *Server {
	return &Server{
		svc:    svc,
		inbox:  inbox,
		config: cfg,
		logger: logger,
	}
}

// Router returns the API routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Minute))

	r.Post("/upload-pptx", s.handleUploadTemplate)
	r.Post("/process-pptx", s.handleProcessTemplate)
	r.Get("/get-ai-prompt", s.handlePrompt)
	r.Post("/save-user-content", s.handleSaveContent)
	r.Post("/generate-pptx", s.handleGenerate)
	r.Get("/check-file", s.handleCheckFile)
	r.Get("/preview-pptx", s.handlePreview)
	r.Get("/download-pptx", s.handleDownload)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/placeholders", s.handlePlaceholders)
		r.Get("/content", s.handleContent)
		r.Get("/mapping", s.handleMapping)
		r.Get("/generations", s.handleGenerations)
		r.Get("/status", s.handleStatus)
		r.Get("/inbox", s.handleInbox)
	})
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
