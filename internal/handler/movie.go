package handler

import (
	"bytes"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"

	"github.com/sakif/movielog/internal/service"
)

// MovieHandler serves every page of the movie log.
type MovieHandler struct {
	svc      *service.MovieService
	pages    *Pages
	markdown goldmark.Markdown
	logger   *slog.Logger
}

// NewMovieHandler creates a new MovieHandler.
//
// Notes are written like a diary, so single line breaks are kept (hard wraps).
// goldmark drops raw HTML from the source unless WithUnsafe is set, so
// rendered notes can be handed to the template as template.HTML.
func NewMovieHandler(svc *service.MovieService, pages *Pages, logger *slog.Logger) *MovieHandler {
	return &MovieHandler{
		svc:      svc,
		pages:    pages,
		markdown: goldmark.New(goldmark.WithRendererOptions(goldmarkHTML.WithHardWraps())),
		logger:   logger,
	}
}

// HandleIndex serves the home page.
//
// HTTP: GET /
func (h *MovieHandler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	h.pages.Render(w, r, http.StatusOK, "index", map[string]any{
		"Title": "Home",
	})
}

// HandleList shows every entry. Edit and delete links appear in admin mode.
//
// HTTP: GET /movies
func (h *MovieHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	movies, err := h.svc.List(r.Context())
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	rows := make([]movieFields, 0, len(movies))
	for _, m := range movies {
		rows = append(rows, fieldsOf(m))
	}

	h.pages.Render(w, r, http.StatusOK, "movies", map[string]any{
		"Title":  "My movies",
		"Movies": rows,
		"Admin":  isAdmin(r),
	})
}

// HandleCreateForm serves an empty log form.
//
// HTTP: GET /create
func (h *MovieHandler) HandleCreateForm(w http.ResponseWriter, r *http.Request) {
	h.pages.Render(w, r, http.StatusOK, "form", map[string]any{
		"Title":         "Log a movie",
		"Heading":       "Log a movie",
		"Action":        "/create",
		"Movie":         movieFields{},
		"TitleRequired": true,
	})
}

// HandleCreate stores a new entry and shows it.
//
// HTTP: POST /create
//
// POST/REDIRECT/GET:
// A 303 sends the browser to the new entry with a GET, so refreshing the
// result page does not submit the form again.
func (h *MovieHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	in, err := parseMovieForm(r)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	id, err := h.svc.Create(r.Context(), in)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	http.Redirect(w, r, viewPath(id), http.StatusSeeOther)
}

// HandleEditForm serves the log form prefilled with a stored entry.
//
// HTTP: GET /edit/{id}
func (h *MovieHandler) HandleEditForm(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.renderNotFound(w, r)
		return
	}

	m, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	h.pages.Render(w, r, http.StatusOK, "form", map[string]any{
		"Title":   "Edit " + m.Title,
		"Heading": "Edit log entry",
		"Action":  "/edit/" + strconv.FormatInt(id, 10),
		"Movie":   fieldsOf(*m),
	})
}

// HandleEdit overwrites an entry. A blank title keeps the stored one.
//
// HTTP: POST /edit/{id}
func (h *MovieHandler) HandleEdit(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.renderNotFound(w, r)
		return
	}

	in, err := parseMovieForm(r)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	if err := h.svc.Update(r.Context(), id, in); err != nil {
		h.renderError(w, r, err)
		return
	}

	http.Redirect(w, r, viewPath(id), http.StatusSeeOther)
}

// HandleView shows one entry with its notes rendered as Markdown.
//
// HTTP: GET /view/{id}
func (h *MovieHandler) HandleView(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.renderNotFound(w, r)
		return
	}

	m, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	h.pages.Render(w, r, http.StatusOK, "view", map[string]any{
		"Title":   m.Title,
		"Movie":   fieldsOf(*m),
		"Details": h.renderMarkdown(m.LogDetails),
	})
}

// renderMarkdown converts notes to HTML. If conversion fails the notes are
// shown as escaped plain text instead.
func (h *MovieHandler) renderMarkdown(src string) template.HTML {
	if src == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := h.markdown.Convert([]byte(src), &buf); err != nil {
		h.logger.Warn("failed to render notes", slog.String("error", err.Error()))
		return template.HTML(template.HTMLEscapeString(src))
	}
	return template.HTML(buf.String())
}

// HandleDelete removes an entry and goes back to the list. Unknown and
// non-numeric ids are a no-op.
//
// HTTP: GET /delete/{id}
func (h *MovieHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if id, ok := pathID(r); ok {
		if err := h.svc.Delete(r.Context(), id); err != nil {
			h.renderError(w, r, err)
			return
		}
	}
	http.Redirect(w, r, "/movies", http.StatusFound)
}

// HandleReset wipes the log, reloads the demo data and confirms it.
//
// HTTP: GET /reset-db
func (h *MovieHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	run, err := h.svc.Reset(r.Context())
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	h.pages.Render(w, r, http.StatusOK, "reset", map[string]any{
		"Title": "Database reset",
		"RunID": run.RunID,
		"Rows":  run.Rows,
	})
}

// HandleStats shows the average rating and entry counts.
//
// HTTP: GET /stats
func (h *MovieHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context())
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	h.pages.Render(w, r, http.StatusOK, "stats", map[string]any{
		"Title": "Stats",
		"Stats": stats,
	})
}

// HandleNotFound serves the not-found page for unmatched routes.
func (h *MovieHandler) HandleNotFound(w http.ResponseWriter, r *http.Request) {
	h.renderNotFound(w, r)
}

func viewPath(id int64) string {
	return "/view/" + strconv.FormatInt(id, 10)
}
