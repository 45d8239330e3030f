// Package handler contains HTTP request handlers for the movie log.
//
// WHAT IS A HANDLER?
// In Go, an HTTP handler is anything that implements the http.Handler interface:
//
//	type Handler interface {
//	    ServeHTTP(ResponseWriter, *Request)
//	}
//
// Or more commonly, we use http.HandlerFunc — a function with the right signature
// that automatically satisfies the Handler interface. Chi's router accepts these directly.
//
// HANDLER RESPONSIBILITIES:
// 1. Parse the incoming HTTP request (path ids, form fields, the admin cookie)
// 2. Call the service layer
// 3. Render an HTML page or redirect
//
// Handlers should NOT contain business logic — they are the "glue" between HTTP and the app.
package handler

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/gorilla/csrf"
)

// pageNames lists every page template. Each is parsed together with base.html.
var pageNames = []string{"index", "movies", "form", "view", "error", "reset", "stats"}

// Pages holds one parsed template set per page, so they are not re-parsed on
// every request.
//
// TEMPLATE COMPOSITION:
// base.html defines the overall page with a {{template "content" .}} placeholder
// and each page file fills it with {{define "content"}}...{{end}}. Every page
// defines "content", so each one needs its own template set: parsing them all
// into one set would let the last file win.
type Pages struct {
	sets   map[string]*template.Template
	logger *slog.Logger
}

// NewPages parses templates/base.html and templates/<page>.html from fsys for
// every page. fsys is normally web.FS.
func NewPages(fsys fs.FS, logger *slog.Logger) (*Pages, error) {
	sets := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		tmpl, err := template.ParseFS(fsys, "templates/base.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parsing %s template: %w", name, err)
		}
		sets[name] = tmpl
	}
	return &Pages{sets: sets, logger: logger}, nil
}

// Render executes page with data and writes it with the given status code.
//
// BUFFERED RENDERING:
// The page is executed into a buffer first. If execution fails halfway, the
// client gets a clean 500 instead of a half-written page with a 200 status.
//
// Every page gets the CSRF hidden field under "CSRFField". csrf.TemplateField
// returns an empty string when the CSRF middleware is not installed.
func (p *Pages) Render(w http.ResponseWriter, r *http.Request, status int, page string, data map[string]any) {
	tmpl, ok := p.sets[page]
	if !ok {
		p.logger.Error("unknown page template", slog.String("page", page))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if data == nil {
		data = map[string]any{}
	}
	data["CSRFField"] = csrf.TemplateField(r)

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base", data); err != nil {
		p.logger.Error("failed to render template",
			slog.String("page", page),
			slog.String("error", err.Error()),
		)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		p.logger.Warn("failed to write page", slog.String("error", err.Error()))
	}
}
