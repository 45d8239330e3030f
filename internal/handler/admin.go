package handler

import (
	"net/http"

	"github.com/sakif/movielog/internal/coerce"
)

// ADMIN MODE:
// "admin" is a display preference kept in a plain cookie holding "True" or
// "False". It only decides whether edit and delete links are shown on the
// movie list. It is NOT an authorization check: every route works the same
// with or without it.
const adminCookie = "admin"

// isAdmin reports whether the request carries admin=True. A missing cookie or
// any other value means off.
func isAdmin(r *http.Request) bool {
	c, err := r.Cookie(adminCookie)
	if err != nil {
		return false
	}
	return coerce.StringToBool(c.Value)
}

func flagString(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

// HandleToggleAdmin flips the admin cookie and goes back to the movie list.
//
// HTTP: GET /toggle-admin
func (h *MovieHandler) HandleToggleAdmin(w http.ResponseWriter, r *http.Request) {
	next := !isAdmin(r)
	http.SetCookie(w, &http.Cookie{
		Name:  adminCookie,
		Value: flagString(next),
		Path:  "/",
	})
	http.Redirect(w, r, "/movies", http.StatusFound)
}
