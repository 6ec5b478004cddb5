package guard

import (
	"net/http"

	"github.com/jrsteele09/go-session-lifecycle/session"
	"github.com/jrsteele09/go-session-lifecycle/users"
)

// SessionSource supplies the session a request is evaluated against.
type SessionSource interface {
	Current() session.Session
}

// RequireRoles only lets requests through when the current session holds one of roles.
func RequireRoles(src SessionSource, roles ...users.RoleType) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			res := Check(src.Current(), roles)
			if res.Decision != Allow {
				http.Redirect(w, r, res.Target, http.StatusSeeOther)
				return
			}
			next(w, r)
		}
	}
}

// EntryHandler redirects the root route to login or the role's landing route.
func EntryHandler(src SessionSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res := Entry(src.Current())
		http.Redirect(w, r, res.Target, http.StatusSeeOther)
	}
}

// Middleware applies the table to the request path. Undeclared paths pass through.
func (t *Table) Middleware(src SessionSource) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			res, err := t.Navigate(src.Current(), r.URL.Path)
			if err == nil && res.Decision != Allow {
				http.Redirect(w, r, res.Target, http.StatusSeeOther)
				return
			}
			next(w, r)
		}
	}
}
