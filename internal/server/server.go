// Package server wires the application together: database, service, render
// cache, handlers, routes, and graceful shutdown.
//
// This is the composition root; every dependency is constructed here and
// injected downward, so no other package reaches for globals. The service
// gets the repository interface (not the concrete sqlite.DB), handlers get
// the service, and the render cache is shared between the service (which
// invalidates it) and the preview path (which reads through it).
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/Xeven777/flyo/internal/config"
	"github.com/Xeven777/flyo/internal/handler"
	"github.com/Xeven777/flyo/internal/middleware"
	sqliteRepo "github.com/Xeven777/flyo/internal/repository/sqlite"
	"github.com/Xeven777/flyo/internal/service"
)

// Server owns the router and the resources that need closing on shutdown.
type Server struct {
	router *chi.Mux
	config config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New assembles the dependency chain:
// sqlite.DB → SnippetService (+ RenderCache) → handlers → routes.
func New(cfg config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes configures middleware and all route handlers.
//
// Route map:
//
//	POST   /api/snippets                  create
//	GET    /api/snippets                  list (dashboard, newest first)
//	GET    /api/snippets/{slug}           raw fetch for editors (ungated)
//	PUT    /api/snippets/{slug}           sparse update / rename
//	DELETE /api/snippets/{slug}           delete
//	POST   /api/snippets/{slug}/disable   kill switch on
//	POST   /api/snippets/{slug}/enable    kill switch off
//	GET    /p/{slug}                      sandboxed embed page (gated, counts a view)
//	GET    /raw/{slug}                    composed document (gated, counts a view)
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	renders := service.NewRenderCache(s.config.RenderCacheTTL)
	snippetService := service.NewSnippetService(s.db, renders, renders, s.logger)
	snippetHandler := handler.NewSnippetHandler(snippetService, s.logger)

	previewHandler, err := handler.NewPreviewHandler(snippetService, s.logger)
	if err != nil {
		return fmt.Errorf("creating preview handler: %w", err)
	}

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/snippets", snippetHandler.HandleCreate)
		r.Get("/snippets", snippetHandler.HandleList)
		r.Get("/snippets/{slug}", snippetHandler.HandleGet)
		r.Put("/snippets/{slug}", snippetHandler.HandleUpdate)
		r.Delete("/snippets/{slug}", snippetHandler.HandleDelete)
		r.Post("/snippets/{slug}/disable", snippetHandler.HandleDisable)
		r.Post("/snippets/{slug}/enable", snippetHandler.HandleEnable)
	})

	s.router.Get("/p/{slug}", previewHandler.HandleEmbed)
	s.router.Get("/raw/{slug}", previewHandler.HandleRaw)

	return nil
}

// Start runs the HTTP server until SIGINT/SIGTERM, then shuts down
// gracefully: stop accepting connections, drain in-flight requests (30s
// budget), close the database so the WAL is flushed.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
