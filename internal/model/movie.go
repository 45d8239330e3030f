// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data — similar to classes in other languages,
// but without inheritance. Go favours composition over inheritance.
package model

import "github.com/sakif/movielog/internal/coerce"

// MovieLog is one recorded movie-watching event, as read back from storage.
//
// OPTIONAL FIELDS:
// Rating is a *int, not an int, because "no rating" and "rated 0" are
// different things. A nil Rating is skipped when averaging; a zero is not.
//
// Rating is stored as a number but always displayed as an integer: the
// repository truncates any fractional part when it reads the row.
type MovieLog struct {
	ID          int64
	Title       string
	LogDetails  string
	WatchedDate Date
	Rating      *int
	ReleaseYear coerce.Number
}

// MovieLogInput holds the five writable fields of a log entry as they come out
// of a submitted form. ID is never part of it: ids are assigned by storage
// and never change.
//
// Rating is kept as the raw submitted string. It is not validated on the way
// in; coercion happens only when the entry is read back.
type MovieLogInput struct {
	Title       string
	LogDetails  string
	WatchedDate Date
	Rating      string
	ReleaseYear coerce.Number
}

// Stats summarises the whole log.
type Stats struct {
	AverageRating float64 // mean of rated entries, 2 decimals; 0 when none are rated
	RatedCount    int
	TotalLogged   int
}

// SeedRow is one line of the demo dataset, in column order. Every field is
// kept as text and written to storage verbatim.
type SeedRow struct {
	Title       string
	LogDetails  string
	WatchedDate string
	Rating      string
	ReleaseYear string
}
