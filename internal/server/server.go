// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer — it connects handlers, middleware, and routes.
// Think of it as the control centre that decides:
// - Which URL patterns map to which handler functions
// - What middleware runs on which routes
// - How the server starts and stops gracefully
//
// DEPENDENCY INJECTION FLOW:
// main.go loads config.Config and passes it here.
// Server.New() creates: sqlite.DB → MovieService → MovieHandler
//
// This is the "composition root" pattern — all dependencies are wired
// in one place (New/setupRoutes), rather than scattered across the codebase.
package server

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/csrf"

	"github.com/sakif/movielog/internal/config"
	"github.com/sakif/movielog/internal/handler"
	"github.com/sakif/movielog/internal/middleware"
	"github.com/sakif/movielog/internal/model"
	sqliteRepo "github.com/sakif/movielog/internal/repository/sqlite"
	"github.com/sakif/movielog/internal/seed"
	"github.com/sakif/movielog/internal/service"
	"github.com/sakif/movielog/web"
)

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the database connection (db). It is closed during graceful
// shutdown in Start(), or by Close() when the server is never started.
type Server struct {
	router *chi.Mux
	config config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New opens the database, makes sure it has been seeded and wires the routes.
//
// STARTUP HEALTH CHECK:
// A missing movies table means a first run, so the demo data is loaded. Any
// other storage failure is returned and main exits: resetting a database that
// merely failed to answer would destroy the user's log.
//
// IMPORT ALIAS:
// We import repository/sqlite as `sqliteRepo` to avoid confusion with
// the sqlite driver package.
func New(cfg config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	loadSeed := func() ([]model.SeedRow, error) {
		return seed.LoadFile(cfg.SeedCSV)
	}
	movieService := service.NewMovieService(db, loadSeed, logger)

	reseeded, err := movieService.EnsureSeeded(context.Background())
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("preparing database: %w", err)
	}
	if reseeded {
		logger.Info("database seeded with demo data", slog.String("seed", cfg.SeedCSV))
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(movieService); err != nil {
		db.Close() // Clean up DB if route setup fails
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
// GET        /              → Home page
// GET        /movies        → Movie list (edit/delete links in admin mode)
// GET, POST  /create        → Log form / store a new entry
// GET, POST  /edit/{id}     → Prefilled form / overwrite an entry
// GET        /view/{id}     → One entry, notes rendered as Markdown
// GET        /delete/{id}   → Delete, back to the list
// GET        /reset-db      → Wipe and reload the demo data
// GET        /toggle-admin  → Flip the admin display cookie
// GET        /stats         → Average rating and counts
// GET        /static/*      → Embedded CSS
//
// MIDDLEWARE ORDER MATTERS:
// Middleware executes in the order it's added. Our order:
// 1. RequestID — assigns unique ID to each request (for tracing)
// 2. RealIP — extracts real client IP from proxy headers
// 3. Recoverer — catches panics and returns 500 instead of crashing
// 4. Logger — logs each request with timing info and the request ID
// 5. CSRF — only when a CSRF key is configured
func (s *Server) setupRoutes(movieService *service.MovieService) error {
	pages, err := handler.NewPages(web.FS, s.logger)
	if err != nil {
		return fmt.Errorf("parsing templates: %w", err)
	}
	movieHandler := handler.NewMovieHandler(movieService, pages, s.logger)

	s.router.Use(chimiddleware.RequestID) // Adds a request ID to the context
	s.router.Use(chimiddleware.RealIP)    // Extracts real IP from X-Forwarded-For
	s.router.Use(chimiddleware.Recoverer) // Recovers from panics, returns 500
	s.router.Use(middleware.Logger(s.logger))

	csrfMiddleware, err := s.csrfProtection(movieHandler)
	if err != nil {
		return err
	}
	s.router.Use(csrfMiddleware...)

	// === Static Files ===
	// The stylesheet is embedded in the binary (see package web).
	// http.StripPrefix removes "/static/" so GET /static/style.css → static/style.css.
	staticFS, err := fs.Sub(web.FS, "static")
	if err != nil {
		return fmt.Errorf("opening static assets: %w", err)
	}
	s.router.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))

	// === Page Routes ===
	s.router.Get("/", movieHandler.HandleIndex)
	s.router.Get("/movies", movieHandler.HandleList)
	s.router.Get("/create", movieHandler.HandleCreateForm)
	s.router.Post("/create", movieHandler.HandleCreate)
	s.router.Get("/edit/{id}", movieHandler.HandleEditForm)
	s.router.Post("/edit/{id}", movieHandler.HandleEdit)
	s.router.Get("/view/{id}", movieHandler.HandleView)
	s.router.Get("/delete/{id}", movieHandler.HandleDelete)
	s.router.Get("/reset-db", movieHandler.HandleReset)
	s.router.Get("/toggle-admin", movieHandler.HandleToggleAdmin)
	s.router.Get("/stats", movieHandler.HandleStats)

	s.router.NotFound(movieHandler.HandleNotFound)

	return nil
}

// csrfProtection builds the gorilla/csrf middleware, or returns nil when no
// key is configured.
//
// PLAIN HTTP:
// gorilla/csrf assumes HTTPS and checks the Referer of every form post. When
// the cookie is not marked Secure the app is being served over plain HTTP, so
// each request is flagged with csrf.PlaintextHTTPRequest first.
func (s *Server) csrfProtection(h *handler.MovieHandler) ([]func(http.Handler) http.Handler, error) {
	key, err := s.config.CSRFAuthKey()
	if err != nil {
		return nil, err
	}
	if key == nil {
		s.logger.Warn("CSRF_KEY not set, form posts are not CSRF-protected")
		return nil, nil
	}

	protect := csrf.Protect(key,
		csrf.Secure(s.config.CSRFSecure),
		csrf.Path("/"),
		csrf.ErrorHandler(http.HandlerFunc(h.HandleCSRFFailure)),
	)

	if s.config.CSRFSecure {
		return []func(http.Handler) http.Handler{protect}, nil
	}

	plaintext := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, csrf.PlaintextHTTPRequest(r))
		})
	}
	return []func(http.Handler) http.Handler{plaintext, protect}, nil
}

// Handler returns the fully wired router. Tests drive it with httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database without starting the server.
func (s *Server) Close() error {
	return s.db.Close()
}

// Start starts the HTTP server and handles graceful shutdown.
//
// GRACEFUL SHUTDOWN:
// 1. Stop accepting new HTTP connections
// 2. Wait for in-flight requests to finish (30s timeout)
// 3. Close the database connection (flushes WAL, releases file lock)
//
// The `defer s.db.Close()` ensures step 3 happens even if something panics.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Channel to receive OS signals
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Channel to receive server errors
	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	// Block until we receive a signal or server error
	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		// Give in-flight requests 30 seconds to complete
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
