// Package repository declares the storage contract the rest of the app codes
// against. The only implementation lives in repository/sqlite; tests swap in
// an in-memory fake.
package repository

import (
	"context"

	"github.com/sakif/movielog/internal/model"
)

type MovieRepository interface {
	// List returns every entry in primary-key (insertion) order.
	List(ctx context.Context) ([]model.MovieLog, error)
	// GetByID returns apperror.ErrNotFound when no entry has the id.
	GetByID(ctx context.Context, id int64) (*model.MovieLog, error)
	// Create stores a new entry and returns the id storage assigned to it.
	Create(ctx context.Context, in model.MovieLogInput) (int64, error)
	// Update overwrites every field except the id. An empty title keeps the
	// stored one.
	Update(ctx context.Context, id int64, in model.MovieLogInput) error
	// Delete never fails because the id is unknown.
	Delete(ctx context.Context, id int64) error
	// AverageRating returns the raw mean over rated entries and how many
	// entries were rated. The mean is 0 when that count is 0.
	AverageRating(ctx context.Context) (float64, int, error)
	Count(ctx context.Context) (int, error)
	// Reset destroys the table and reloads it from rows.
	Reset(ctx context.Context, rows []model.SeedRow) error
	// TableExists is the startup health check.
	TableExists(ctx context.Context) (bool, error)
}
