// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses forms and paths, renders pages
//	Service (Business layer) → title rules, stats rounding, seeding
//	Repository (Data layer)  → reads/writes the movies table
//
// MovieService takes a repository.MovieRepository (interface), not a
// *sqlite.DB. Tests hand it an in-memory fake; production hands it SQLite.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/rs/xid"

	"github.com/sakif/movielog/internal/apperror"
	"github.com/sakif/movielog/internal/model"
	"github.com/sakif/movielog/internal/repository"
)

// SeedLoader supplies the demo dataset for a reset. In production it reads
// the seed CSV from disk (seed.LoadFile); tests return fixed rows.
type SeedLoader func() ([]model.SeedRow, error)

// ResetResult describes one reset-and-seed run.
type ResetResult struct {
	// RunID identifies the run in logs and on the confirmation page.
	// xid ids sort by creation time, so later resets compare greater.
	RunID string
	Rows  int
}

// MovieService handles business logic for movie log entries.
type MovieService struct {
	repo     repository.MovieRepository
	loadSeed SeedLoader
	logger   *slog.Logger
}

// NewMovieService creates a new MovieService.
func NewMovieService(repo repository.MovieRepository, loadSeed SeedLoader, logger *slog.Logger) *MovieService {
	return &MovieService{
		repo:     repo,
		loadSeed: loadSeed,
		logger:   logger,
	}
}

// List returns every entry in insertion order.
func (s *MovieService) List(ctx context.Context) ([]model.MovieLog, error) {
	movies, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Error("failed to list movies", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing movies: %w", err)
	}
	return movies, nil
}

// Get returns one entry, or an error wrapping apperror.ErrNotFound.
// NotFound is an expected outcome and is not logged.
func (s *MovieService) Get(ctx context.Context, id int64) (*model.MovieLog, error) {
	return s.repo.GetByID(ctx, id)
}

// Create trims and checks the title, then stores the entry.
//
// A title is the one field an entry cannot do without. Every other field is
// stored as it arrives: the form extractor has already done all the coercion
// the log ever does.
func (s *MovieService) Create(ctx context.Context, in model.MovieLogInput) (int64, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return 0, apperror.ValidationFailed("movie-title", "a movie title is required")
	}

	id, err := s.repo.Create(ctx, in)
	if err != nil {
		s.logger.Error("failed to create movie log",
			slog.String("title", in.Title),
			slog.String("error", err.Error()),
		)
		return 0, fmt.Errorf("creating movie log: %w", err)
	}

	s.logger.Info("movie logged",
		slog.Int64("id", id),
		slog.String("title", in.Title),
	)
	return id, nil
}

// Update replaces every field of an entry. A blank title keeps the stored one;
// the repository does the read-before-write inside its transaction.
func (s *MovieService) Update(ctx context.Context, id int64, in model.MovieLogInput) error {
	in.Title = strings.TrimSpace(in.Title)

	if err := s.repo.Update(ctx, id, in); err != nil {
		return fmt.Errorf("updating movie log: %w", err)
	}

	s.logger.Info("movie log updated",
		slog.Int64("id", id),
		slog.Bool("titleKept", in.Title == ""),
	)
	return nil
}

// Delete removes an entry. Unknown ids succeed silently.
func (s *MovieService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		s.logger.Error("failed to delete movie log",
			slog.Int64("id", id),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("deleting movie log: %w", err)
	}

	s.logger.Info("movie log deleted", slog.Int64("id", id))
	return nil
}

// Stats computes the aggregate figures for the stats page.
//
// The average is rounded to 2 decimal places and is exactly 0 when nothing is
// rated. "No data" reads as 0, never as NaN or a missing value.
func (s *MovieService) Stats(ctx context.Context) (model.Stats, error) {
	avg, rated, err := s.repo.AverageRating(ctx)
	if err != nil {
		return model.Stats{}, fmt.Errorf("computing average rating: %w", err)
	}
	total, err := s.repo.Count(ctx)
	if err != nil {
		return model.Stats{}, fmt.Errorf("counting movie logs: %w", err)
	}

	stats := model.Stats{RatedCount: rated, TotalLogged: total}
	if rated > 0 {
		stats.AverageRating = roundTo2(avg)
	}
	return stats, nil
}

func roundTo2(f float64) float64 {
	return math.Round(f*100) / 100
}

// Reset destroys the log and reloads the demo dataset.
func (s *MovieService) Reset(ctx context.Context) (ResetResult, error) {
	run := ResetResult{RunID: xid.New().String()}

	rows, err := s.loadSeed()
	if err != nil {
		s.logger.Error("failed to load seed data",
			slog.String("run", run.RunID),
			slog.String("error", err.Error()),
		)
		return ResetResult{}, fmt.Errorf("loading seed data: %w", err)
	}

	if err := s.repo.Reset(ctx, rows); err != nil {
		s.logger.Error("failed to reset database",
			slog.String("run", run.RunID),
			slog.String("error", err.Error()),
		)
		return ResetResult{}, fmt.Errorf("resetting database: %w", err)
	}

	run.Rows = len(rows)
	s.logger.Warn("database reset and reseeded",
		slog.String("run", run.RunID),
		slog.Int("rows", run.Rows),
	)
	return run, nil
}

// EnsureSeeded is the startup health check. A missing movies table means a
// first run, so it is created from seed data; reseeded reports whether that
// happened. Any other storage failure is returned for the caller to treat as
// fatal.
func (s *MovieService) EnsureSeeded(ctx context.Context) (reseeded bool, err error) {
	exists, err := s.repo.TableExists(ctx)
	if err != nil {
		return false, fmt.Errorf("checking storage: %w", err)
	}
	if exists {
		return false, nil
	}

	s.logger.Info("movies table missing, seeding a fresh database")
	if _, err := s.Reset(ctx); err != nil {
		return false, err
	}
	return true, nil
}
