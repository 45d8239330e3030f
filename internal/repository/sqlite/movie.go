package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/sakif/movielog/internal/apperror"
	"github.com/sakif/movielog/internal/coerce"
	"github.com/sakif/movielog/internal/model"
	"github.com/sakif/movielog/internal/repository"
)

var _ repository.MovieRepository = (*DB)(nil)

const createMoviesTable = `
	CREATE TABLE movies (
		id           INTEGER PRIMARY KEY,
		title        VARCHAR(255),
		details      TEXT,
		watched_date DATE,
		rating       FLOAT,
		release_year INTEGER
	)`

// selectMovies lists the columns in the fixed order scanMovie expects.
const selectMovies = `SELECT id, title, details, watched_date, rating, release_year FROM movies`

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanMovie unpacks one row, column by column, into a MovieLog.
//
// RATING:
// The rating column may hold a REAL, an INTEGER, TEXT the user typed, an empty
// string from the seed file, or NULL. It is scanned into `any` and handed to
// coerce.OptionalInt, which truncates numbers and turns everything else into
// "no rating". A bad stored rating never fails the read.
func scanMovie(row rowScanner) (model.MovieLog, error) {
	var (
		m       model.MovieLog
		title   sql.NullString
		details sql.NullString
		rating  any
	)
	if err := row.Scan(&m.ID, &title, &details, &m.WatchedDate, &rating, &m.ReleaseYear); err != nil {
		return model.MovieLog{}, err
	}
	m.Title = title.String
	m.LogDetails = details.String
	m.Rating = coerce.OptionalInt(rating)
	return m, nil
}

// nullIfBlank stores whitespace-only input as NULL and anything else exactly
// as given.
func nullIfBlank(s string) sql.NullString {
	if strings.TrimSpace(s) == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// List retrieves every entry in primary-key order.
func (db *DB) List(ctx context.Context) ([]model.MovieLog, error) {
	rows, err := db.conn.QueryContext(ctx, selectMovies+` ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing movies: %w", err)
	}
	defer rows.Close()

	movies := []model.MovieLog{}
	for rows.Next() {
		m, err := scanMovie(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning movie row: %w", err)
		}
		movies = append(movies, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating movies: %w", err)
	}

	return movies, nil
}

// GetByID retrieves a single entry. sql.ErrNoRows becomes apperror.NotFound so
// the handler can render the not-found page.
func (db *DB) GetByID(ctx context.Context, id int64) (*model.MovieLog, error) {
	m, err := scanMovie(db.conn.QueryRowContext(ctx, selectMovies+` WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("movie log", strconv.FormatInt(id, 10))
		}
		return nil, fmt.Errorf("sqlite: getting movie %d: %w", id, err)
	}
	return &m, nil
}

// Create inserts a new entry and returns its id.
//
// ID ASSIGNMENT:
// The id comes from the INSERT's own result (LastInsertId), which SQLite
// reports per connection. Asking for "the largest id" afterwards would race
// with any other insert landing in between.
func (db *DB) Create(ctx context.Context, in model.MovieLogInput) (int64, error) {
	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO movies (title, details, watched_date, rating, release_year)
		 VALUES (?, ?, ?, ?, ?)`,
		in.Title,
		nullIfBlank(in.LogDetails),
		in.WatchedDate,
		nullIfBlank(in.Rating),
		in.ReleaseYear,
	)
	if err != nil {
		return 0, fmt.Errorf("sqlite: creating movie: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("sqlite: reading new movie id: %w", err)
	}
	return id, nil
}

// Update overwrites every field of an entry.
//
// TITLE FALLBACK:
// An empty in.Title means "keep the current title". The current title is read
// and the row rewritten inside one transaction, so a concurrent edit cannot
// slip between the read and the write.
func (db *DB) Update(ctx context.Context, id int64, in model.MovieLogInput) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning update of movie %d: %w", id, err)
	}
	// Rollback after a successful Commit is a no-op.
	defer tx.Rollback()

	var stored sql.NullString
	err = tx.QueryRowContext(ctx, `SELECT title FROM movies WHERE id = ?`, id).Scan(&stored)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperror.NotFound("movie log", strconv.FormatInt(id, 10))
		}
		return fmt.Errorf("sqlite: reading title of movie %d: %w", id, err)
	}

	title := in.Title
	if title == "" {
		title = stored.String
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE movies
		 SET title = ?, details = ?, watched_date = ?, rating = ?, release_year = ?
		 WHERE id = ?`,
		title,
		nullIfBlank(in.LogDetails),
		in.WatchedDate,
		nullIfBlank(in.Rating),
		in.ReleaseYear,
		id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating movie %d: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing update of movie %d: %w", id, err)
	}
	return nil
}

// Delete removes an entry. Zero rows affected is not an error: deleting an
// entry that is already gone leaves the log in the state the caller wanted.
func (db *DB) Delete(ctx context.Context, id int64) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM movies WHERE id = ?`, id); err != nil {
		return fmt.Errorf("sqlite: deleting movie %d: %w", id, err)
	}
	return nil
}

// AverageRating averages the ratings that are actually numbers.
//
// typeof() filters out NULL (never rated) as well as the empty strings and
// free text the loose rating column can end up holding, so none of them count
// as a zero.
func (db *DB) AverageRating(ctx context.Context) (float64, int, error) {
	var (
		avg   float64
		count int
	)
	err := db.conn.QueryRowContext(ctx,
		`SELECT COALESCE(AVG(rating), 0.0), COUNT(rating)
		 FROM movies
		 WHERE typeof(rating) IN ('integer', 'real')`,
	).Scan(&avg, &count)
	if err != nil {
		return 0, 0, fmt.Errorf("sqlite: averaging ratings: %w", err)
	}
	return avg, count, nil
}

// Count returns the number of entries, however incomplete they are.
func (db *DB) Count(ctx context.Context) (int, error) {
	var n int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM movies`).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: counting movies: %w", err)
	}
	return n, nil
}

// Reset drops the movies table, recreates it and loads rows into it.
//
// The whole reset is one transaction: a bad seed row leaves the previous table
// untouched rather than half-loaded. Seed values are inserted verbatim as
// strings and SQLite's column affinity converts what it can.
func (db *DB) Reset(ctx context.Context, rows []model.SeedRow) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning reset: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS movies`); err != nil {
		return fmt.Errorf("sqlite: dropping movies table: %w", err)
	}
	if _, err := tx.ExecContext(ctx, createMoviesTable); err != nil {
		return fmt.Errorf("sqlite: creating movies table: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO movies (title, details, watched_date, rating, release_year)
		 VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("sqlite: preparing seed insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range rows {
		if _, err := stmt.ExecContext(ctx, r.Title, r.LogDetails, r.WatchedDate, r.Rating, r.ReleaseYear); err != nil {
			return fmt.Errorf("sqlite: seeding row %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing reset: %w", err)
	}
	return nil
}
