// Package seed reads the demo dataset used to initialise and reset the log.
//
// FILE FORMAT:
// A CSV file whose first row is a header (skipped, whatever it says), followed
// by one row per movie in column order:
//
//	title, log details, watched date, rating, release year
//
// Values are returned exactly as written. No trimming and no type conversion:
// the repository stores them verbatim and the read path does the coercing.
package seed

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sakif/movielog/internal/model"
)

// Columns is the number of fields each data row must carry.
const Columns = 5

// ErrShortRow is wrapped when a data row has fewer than Columns fields.
var ErrShortRow = errors.New("seed: row has too few columns")

// Load parses a seed CSV stream. An empty stream, or one holding only the
// header, yields an empty slice.
func Load(r io.Reader) ([]model.SeedRow, error) {
	cr := csv.NewReader(r)
	// Rows are checked below; extra trailing columns are tolerated.
	cr.FieldsPerRecord = -1

	if _, err := cr.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return []model.SeedRow{}, nil
		}
		return nil, fmt.Errorf("seed: reading header: %w", err)
	}

	rows := []model.SeedRow{}
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("seed: reading row %d: %w", line, err)
		}
		if len(rec) < Columns {
			return nil, fmt.Errorf("%w: row %d has %d, want %d", ErrShortRow, line, len(rec), Columns)
		}
		rows = append(rows, model.SeedRow{
			Title:       rec[0],
			LogDetails:  rec[1],
			WatchedDate: rec[2],
			Rating:      rec[3],
			ReleaseYear: rec[4],
		})
	}

	return rows, nil
}

// LoadFile opens path and parses it with Load.
func LoadFile(path string) ([]model.SeedRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("seed: opening %s: %w", path, err)
	}
	defer f.Close()

	return Load(f)
}
