package sqlite

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/sakif/movielog/internal/apperror"
	"github.com/sakif/movielog/internal/coerce"
	"github.com/sakif/movielog/internal/model"
)

// newTestDB opens a fresh in-memory database with an empty movies table.
// t.Cleanup closes it when the test (or subtest) finishes.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(Memory)
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Reset(context.Background(), nil); err != nil {
		t.Fatalf("failed to create movies table: %v", err)
	}
	return db
}

var demoRows = []model.SeedRow{
	{Title: "Alien", LogDetails: "Lights off.", WatchedDate: "2024-01-05", Rating: "4", ReleaseYear: "1979"},
	{Title: "Heat", LogDetails: "", WatchedDate: "2024-02-10", Rating: "4.5", ReleaseYear: "1995"},
	{Title: "Cats", LogDetails: "Why.", WatchedDate: "", Rating: "", ReleaseYear: ""},
}

func date(y int, m time.Month, d int) model.Date {
	return model.NewDate(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}

func intPtr(i int) *int { return &i }

func strPtr(s string) *string { return &s }

// createTestMovie creates an entry and fails the test if it errors.
func createTestMovie(t *testing.T, db *DB, in model.MovieLogInput) int64 {
	t.Helper()
	id, err := db.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("failed to create test movie: %v", err)
	}
	return id
}

// =========================================================================
// CREATE / GET
// =========================================================================

func TestCreate_RoundTrip(t *testing.T) {
	db := newTestDB(t)

	in := model.MovieLogInput{
		Title:       "Arrival",
		LogDetails:  "Heptapods!",
		WatchedDate: date(2024, time.March, 9),
		Rating:      "5",
		ReleaseYear: coerce.StringToNumber(strPtr("2016")),
	}
	id := createTestMovie(t, db, in)

	got, err := db.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}

	want := &model.MovieLog{
		ID:          id,
		Title:       "Arrival",
		LogDetails:  "Heptapods!",
		WatchedDate: date(2024, time.March, 9),
		Rating:      intPtr(5),
		ReleaseYear: coerce.Int64(2016),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("GetByID() mismatch (-want +got):\n%s", diff)
	}
}

func TestCreate_AssignsIncreasingIDs(t *testing.T) {
	db := newTestDB(t)

	first := createTestMovie(t, db, model.MovieLogInput{Title: "One"})
	second := createTestMovie(t, db, model.MovieLogInput{Title: "Two"})

	if second <= first {
		t.Errorf("second id %d should be greater than first id %d", second, first)
	}
}

func TestCreate_RatingTruncatedOnReadNotWrite(t *testing.T) {
	db := newTestDB(t)
	id := createTestMovie(t, db, model.MovieLogInput{Title: "Heat", Rating: "4.7"})

	got, err := db.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Rating == nil || *got.Rating != 4 {
		t.Errorf("Rating = %v, want 4", got.Rating)
	}

	// The stored value keeps its fraction, so the average still sees 4.7.
	avg, _, err := db.AverageRating(context.Background())
	if err != nil {
		t.Fatalf("AverageRating() error = %v", err)
	}
	if avg != 4.7 {
		t.Errorf("AverageRating() = %v, want 4.7", avg)
	}
}

func TestCreate_AbsentFieldsStayAbsent(t *testing.T) {
	db := newTestDB(t)
	id := createTestMovie(t, db, model.MovieLogInput{Title: "Bare"})

	got, err := db.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Rating != nil {
		t.Errorf("Rating = %d, want nil", *got.Rating)
	}
	if got.WatchedDate.Valid {
		t.Errorf("WatchedDate = %v, want absent", got.WatchedDate)
	}
	if !got.ReleaseYear.Blank() {
		t.Errorf("ReleaseYear = %+v, want blank", got.ReleaseYear)
	}
	if got.LogDetails != "" {
		t.Errorf("LogDetails = %q, want empty", got.LogDetails)
	}
}

func TestCreate_UnparsableValuesKeptAsSubmitted(t *testing.T) {
	db := newTestDB(t)
	id := createTestMovie(t, db, model.MovieLogInput{
		Title:       "Mystery",
		Rating:      "great",
		ReleaseYear: coerce.StringToNumber(strPtr("the nineties")),
	})

	got, err := db.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Rating != nil {
		t.Errorf("Rating = %d, want nil for non-numeric rating", *got.Rating)
	}
	if got.ReleaseYear.IsInt || got.ReleaseYear.String() != "the nineties" {
		t.Errorf("ReleaseYear = %+v, want raw %q", got.ReleaseYear, "the nineties")
	}
}

func TestCreate_NumericLookingValuesKeptAsSubmitted(t *testing.T) {
	db := newTestDB(t)
	// "1994.5" is not an integer, but INTEGER affinity still stores it as a
	// REAL; it must come back as the text that was submitted.
	id := createTestMovie(t, db, model.MovieLogInput{
		Title:       "Half a year",
		Rating:      "1e300",
		ReleaseYear: coerce.StringToNumber(strPtr("1994.5")),
	})

	got, err := db.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.ReleaseYear.IsInt || got.ReleaseYear.String() != "1994.5" {
		t.Errorf("ReleaseYear = %+v, want raw %q", got.ReleaseYear, "1994.5")
	}
	if got.Rating != nil {
		t.Errorf("Rating = %d, want nil for a rating outside the integer range", *got.Rating)
	}
}

func TestGetByID_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetByID(context.Background(), 999)
	if err == nil {
		t.Fatal("GetByID() should have returned an error for nonexistent ID")
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByID() error = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// LIST
// =========================================================================

func TestList_Empty(t *testing.T) {
	db := newTestDB(t)

	movies, err := db.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if movies == nil || len(movies) != 0 {
		t.Errorf("List() = %v, want empty non-nil slice", movies)
	}
}

func TestList_InsertionOrder(t *testing.T) {
	db := newTestDB(t)
	for _, title := range []string{"C", "A", "B"} {
		createTestMovie(t, db, model.MovieLogInput{Title: title})
	}

	movies, err := db.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}

	var titles []string
	for _, m := range movies {
		titles = append(titles, m.Title)
	}
	if diff := cmp.Diff([]string{"C", "A", "B"}, titles); diff != "" {
		t.Errorf("List() order mismatch (-want +got):\n%s", diff)
	}
}

// =========================================================================
// UPDATE
// =========================================================================

func TestUpdate_OverwritesAllFields(t *testing.T) {
	db := newTestDB(t)
	id := createTestMovie(t, db, model.MovieLogInput{
		Title:       "Old",
		LogDetails:  "old notes",
		WatchedDate: date(2020, time.January, 1),
		Rating:      "2",
		ReleaseYear: coerce.Int64(1990),
	})

	err := db.Update(context.Background(), id, model.MovieLogInput{
		Title:       "New",
		WatchedDate: date(2021, time.February, 2),
		Rating:      "",
		ReleaseYear: coerce.Int64(1991),
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, err := db.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	want := &model.MovieLog{
		ID:          id,
		Title:       "New",
		WatchedDate: date(2021, time.February, 2),
		ReleaseYear: coerce.Int64(1991),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("after Update() mismatch (-want +got):\n%s", diff)
	}
}

func TestUpdate_EmptyTitleKeepsStoredTitle(t *testing.T) {
	db := newTestDB(t)
	id := createTestMovie(t, db, model.MovieLogInput{Title: "Keep Me", Rating: "3"})

	if err := db.Update(context.Background(), id, model.MovieLogInput{Title: "", Rating: "4"}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, err := db.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Title != "Keep Me" {
		t.Errorf("Title = %q, want %q", got.Title, "Keep Me")
	}
	if got.Rating == nil || *got.Rating != 4 {
		t.Errorf("Rating = %v, want 4", got.Rating)
	}
}

func TestUpdate_NotFound(t *testing.T) {
	db := newTestDB(t)

	err := db.Update(context.Background(), 42, model.MovieLogInput{Title: "Ghost"})
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Update() error = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// DELETE
// =========================================================================

func TestDelete(t *testing.T) {
	db := newTestDB(t)
	id := createTestMovie(t, db, model.MovieLogInput{Title: "Gone Girl"})

	if err := db.Delete(context.Background(), id); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	_, err := db.GetByID(context.Background(), id)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByID() after Delete() error = %v, want ErrNotFound", err)
	}
}

func TestDelete_NonexistentIsNoop(t *testing.T) {
	db := newTestDB(t)

	if err := db.Delete(context.Background(), 12345); err != nil {
		t.Errorf("Delete() of unknown id error = %v, want nil", err)
	}
}

// =========================================================================
// AGGREGATES
// =========================================================================

func TestAverageRating(t *testing.T) {
	tests := []struct {
		name      string
		ratings   []string
		wantAvg   float64
		wantCount int
	}{
		{"no entries", nil, 0, 0},
		{"three ratings", []string{"3", "4", "5"}, 4, 3},
		{"all absent", []string{"", "", ""}, 0, 0},
		{"absent values are excluded, not zero", []string{"2", "", "4"}, 3, 2},
		{"text ratings are excluded", []string{"5", "meh"}, 5, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := newTestDB(t)
			for _, r := range tt.ratings {
				createTestMovie(t, db, model.MovieLogInput{Title: "x", Rating: r})
			}

			avg, count, err := db.AverageRating(context.Background())
			if err != nil {
				t.Fatalf("AverageRating() error = %v", err)
			}
			if avg != tt.wantAvg || count != tt.wantCount {
				t.Errorf("AverageRating() = (%v, %d), want (%v, %d)", avg, count, tt.wantAvg, tt.wantCount)
			}
		})
	}
}

func TestCount_IgnoresFieldCompleteness(t *testing.T) {
	db := newTestDB(t)
	createTestMovie(t, db, model.MovieLogInput{Title: "Full", Rating: "5", LogDetails: "yes"})
	createTestMovie(t, db, model.MovieLogInput{Title: "Bare"})

	n, err := db.Count(context.Background())
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 2 {
		t.Errorf("Count() = %d, want 2", n)
	}
}

// =========================================================================
// RESET / HEALTH CHECK
// =========================================================================

func TestTableExists(t *testing.T) {
	db, err := New(Memory)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	exists, err := db.TableExists(context.Background())
	if err != nil {
		t.Fatalf("TableExists() error = %v", err)
	}
	if exists {
		t.Error("TableExists() = true on a fresh database")
	}

	if err := db.Reset(context.Background(), demoRows); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}

	exists, err = db.TableExists(context.Background())
	if err != nil {
		t.Fatalf("TableExists() error = %v", err)
	}
	if !exists {
		t.Error("TableExists() = false after Reset()")
	}
}

func TestReset_SeedDeleteReset(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if err := db.Reset(ctx, demoRows); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	assertCount(t, db, 3)

	movies, err := db.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if err := db.Delete(ctx, movies[0].ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	assertCount(t, db, 2)

	createTestMovie(t, db, model.MovieLogInput{Title: "Extra"})
	if err := db.Reset(ctx, demoRows); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	assertCount(t, db, 3)

	movies, err = db.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if movies[0].Title != "Alien" {
		t.Errorf("first movie after reset = %q, want %q", movies[0].Title, "Alien")
	}
}

func TestReset_SeedValuesReadBack(t *testing.T) {
	db := newTestDB(t)
	if err := db.Reset(context.Background(), demoRows); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}

	movies, err := db.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}

	heat := movies[1]
	if heat.Rating == nil || *heat.Rating != 4 {
		t.Errorf("Heat rating = %v, want 4 (4.5 truncated)", heat.Rating)
	}
	if heat.WatchedDate.String() != "2024-02-10" {
		t.Errorf("Heat watched = %q, want 2024-02-10", heat.WatchedDate.String())
	}
	if !heat.ReleaseYear.IsInt || heat.ReleaseYear.Int != 1995 {
		t.Errorf("Heat release year = %+v, want 1995", heat.ReleaseYear)
	}

	cats := movies[2]
	if cats.Rating != nil {
		t.Errorf("Cats rating = %d, want nil for empty seed rating", *cats.Rating)
	}
	if cats.WatchedDate.Valid {
		t.Errorf("Cats watched = %v, want absent", cats.WatchedDate)
	}

	avg, count, err := db.AverageRating(context.Background())
	if err != nil {
		t.Fatalf("AverageRating() error = %v", err)
	}
	if avg != 4.25 || count != 2 {
		t.Errorf("AverageRating() = (%v, %d), want (4.25, 2)", avg, count)
	}
}

func assertCount(t *testing.T, db *DB, want int) {
	t.Helper()
	n, err := db.Count(context.Background())
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != want {
		t.Errorf("Count() = %d, want %d", n, want)
	}
}

func TestUpdate_ConcurrentEditsOnFileDB(t *testing.T) {
	db, err := New(filepath.Join(t.TempDir(), "movielog.db"))
	if err != nil {
		t.Fatalf("failed to open file db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	if err := db.Reset(ctx, demoRows); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}

	const editors = 8
	var wg sync.WaitGroup
	errs := make(chan error, editors)
	for i := 0; i < editors; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Empty titles force the read-before-write path.
			errs <- db.Update(ctx, 1, model.MovieLogInput{Rating: fmt.Sprint(i % 5)})
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("concurrent Update() error = %v", err)
		}
	}

	got, err := db.GetByID(ctx, 1)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Title != "Alien" {
		t.Errorf("Title = %q, want %q kept by every edit", got.Title, "Alien")
	}
}
