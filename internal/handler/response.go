package handler

// ERROR PAGES:
// Every failure a visitor can hit is rendered with the same error.html page.
// renderError is where domain errors (from the service layer) get translated
// to HTTP:
//
//	apperror.ErrNotFound   → 404, "Not found" page
//	apperror.ErrValidation → 400, the validation message
//	anything else          → 500, a generic message
//
// errors.Is() walks the whole chain (via Unwrap()), so a NotFound wrapped by
// the service as "updating movie log: ..." still maps to 404.

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/csrf"

	"github.com/sakif/movielog/internal/apperror"
)

func (h *MovieHandler) renderNotFound(w http.ResponseWriter, r *http.Request) {
	h.pages.Render(w, r, http.StatusNotFound, "error", map[string]any{
		"Title":    "Not found",
		"NotFound": true,
	})
}

func (h *MovieHandler) renderError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *apperror.AppError

	switch {
	case errors.Is(err, apperror.ErrNotFound):
		h.renderNotFound(w, r)
	case errors.Is(err, apperror.ErrValidation) && errors.As(err, &appErr):
		h.pages.Render(w, r, http.StatusBadRequest, "error", map[string]any{
			"Title":   "Invalid input",
			"Message": appErr.Message,
			"Field":   appErr.Field,
		})
	default:
		// NEVER expose internal error details to the visitor.
		// The raw error might contain SQL or file paths.
		h.logger.Error("request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		h.pages.Render(w, r, http.StatusInternalServerError, "error", map[string]any{
			"Title":   "Error",
			"Message": "An internal error occurred.",
		})
	}
}

// HandleCSRFFailure renders the page shown when gorilla/csrf rejects a form
// post: a missing or stale token, usually from a form left open too long.
func (h *MovieHandler) HandleCSRFFailure(w http.ResponseWriter, r *http.Request) {
	h.logger.Warn("rejected form post",
		slog.String("path", r.URL.Path),
		slog.Any("reason", csrf.FailureReason(r)),
	)
	h.pages.Render(w, r, http.StatusForbidden, "error", map[string]any{
		"Title":   "Form expired",
		"Message": "This form has expired. Reload the page and submit it again.",
	})
}
