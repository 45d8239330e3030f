package handler

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/movielog/internal/apperror"
	"github.com/sakif/movielog/internal/coerce"
	"github.com/sakif/movielog/internal/model"
)

// Form field names, shared with templates/form.html.
const (
	fieldTitle       = "movie-title"
	fieldDetails     = "log-details"
	fieldWatchDate   = "watch-date"
	fieldRating      = "rating"
	fieldReleaseYear = "release_year"
)

// movieFields is a log entry flattened into display strings. The form is
// prefilled from it and the list and detail pages print it.
type movieFields struct {
	ID          int64
	Title       string
	LogDetails  string
	WatchedDate string
	Rating      string
	ReleaseYear string
}

// fieldsOf unpacks a stored entry. Absent values become empty strings.
func fieldsOf(m model.MovieLog) movieFields {
	f := movieFields{
		ID:          m.ID,
		Title:       m.Title,
		LogDetails:  m.LogDetails,
		WatchedDate: m.WatchedDate.String(),
	}
	if !m.ReleaseYear.Blank() {
		f.ReleaseYear = m.ReleaseYear.String()
	}
	if m.Rating != nil {
		f.Rating = strconv.Itoa(*m.Rating)
	}
	return f
}

// parseMovieForm extracts a MovieLogInput from a submitted create or edit form.
//
// COERCION RULES:
//   - title and notes are trimmed
//   - the watch date must be YYYY-MM-DD; anything else fails the whole request
//     with a validation error naming the field. A blank date is "no date".
//   - the rating is passed through raw; the read path decides what it means
//   - the release year becomes an integer when it parses and is otherwise
//     kept as typed. A blank or missing field is "no year".
func parseMovieForm(r *http.Request) (model.MovieLogInput, error) {
	if err := r.ParseForm(); err != nil {
		return model.MovieLogInput{}, apperror.ValidationFailed("form", "The submitted form could not be read.")
	}
	form := r.PostForm

	in := model.MovieLogInput{
		Title:      strings.TrimSpace(form.Get(fieldTitle)),
		LogDetails: strings.TrimSpace(form.Get(fieldDetails)),
		Rating:     form.Get(fieldRating),
	}

	if raw := form.Get(fieldWatchDate); strings.TrimSpace(raw) != "" {
		t, err := coerce.StringToDate(raw)
		if err != nil {
			return model.MovieLogInput{}, apperror.ValidationFailed(fieldWatchDate,
				"Watch date must be a real date in YYYY-MM-DD format.")
		}
		in.WatchedDate = model.NewDate(t)
	}

	in.ReleaseYear = coerce.StringToNumber(nonBlank(form, fieldReleaseYear))
	return in, nil
}

// nonBlank returns the field's value, or nil when it is missing or blank.
func nonBlank(form url.Values, key string) *string {
	vs, ok := form[key]
	if !ok || len(vs) == 0 || strings.TrimSpace(vs[0]) == "" {
		return nil
	}
	return &vs[0]
}

// pathID reads the {id} URL parameter. ok is false when it is not an integer,
// which callers treat the same as an id that does not exist.
func pathID(r *http.Request) (id int64, ok bool) {
	raw := chi.URLParam(r, "id")
	n := coerce.StringToNumber(&raw)
	if !n.IsInt {
		return 0, false
	}
	return n.Int, true
}
