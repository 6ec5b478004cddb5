// Package guard decides whether a session may enter a route.
package guard

import (
	"fmt"
	"slices"

	autherrors "github.com/jrsteele09/go-session-lifecycle/internal/errors"
	"github.com/jrsteele09/go-session-lifecycle/metrics"
	"github.com/jrsteele09/go-session-lifecycle/session"
	"github.com/jrsteele09/go-session-lifecycle/users"
)

// Decision is the outcome of a navigation check.
type Decision int

const (
	Allow Decision = iota
	RedirectToLogin
	RedirectToRoleHome
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case RedirectToLogin:
		return "redirect_login"
	case RedirectToRoleHome:
		return "redirect_role_home"
	default:
		return "unknown"
	}
}

// Result is a guard decision. Target is the redirect destination and is empty for Allow.
type Result struct {
	Decision Decision
	Target   string
}

func allow() Result {
	return Result{Decision: Allow}
}

func toLogin() Result {
	return Result{Decision: RedirectToLogin, Target: RouteLogin}
}

// Check decides entry to a route restricted to allowed. An unauthenticated session
// or one whose role is not recognised goes to login; a role outside allowed goes to
// its own landing route.
func Check(sess session.Session, allowed []users.RoleType) Result {
	if !sess.IsAuthenticated() {
		return toLogin()
	}
	home, ok := LandingRoute(sess.User.Role)
	if !ok {
		return toLogin()
	}
	if slices.Contains(allowed, sess.User.Role) {
		return allow()
	}
	return Result{Decision: RedirectToRoleHome, Target: home}
}

// Entry decides where the bare root route sends a session.
func Entry(sess session.Session) Result {
	if !sess.IsAuthenticated() {
		return toLogin()
	}
	home, ok := LandingRoute(sess.User.Role)
	if !ok {
		return toLogin()
	}
	return Result{Decision: RedirectToRoleHome, Target: home}
}

// Route declares the roles that may enter a path.
type Route struct {
	Path         string
	AllowedRoles []users.RoleType
}

// Validate requires a path and a non-empty set of recognised roles.
func (r Route) Validate() error {
	if r.Path == "" || r.Path[0] != '/' {
		return fmt.Errorf("route %q: path must start with /: %w", r.Path, autherrors.ErrInvalidRequest)
	}
	if len(r.AllowedRoles) == 0 {
		return fmt.Errorf("route %s: no allowed roles: %w", r.Path, autherrors.ErrInvalidRequest)
	}
	for _, role := range r.AllowedRoles {
		if !role.IsValid() {
			return fmt.Errorf("route %s: role %q: %w", r.Path, role, autherrors.ErrUnknownRole)
		}
	}
	return nil
}

// Table is the set of declared routes.
type Table struct {
	routes  map[string]Route
	metrics *metrics.Metrics
}

type TableOption func(*Table)

func WithMetrics(m *metrics.Metrics) TableOption {
	return func(t *Table) {
		t.metrics = m
	}
}

// NewTable validates routes and indexes them by path.
func NewTable(routes []Route, opts ...TableOption) (*Table, error) {
	t := &Table{routes: make(map[string]Route, len(routes))}
	for _, opt := range opts {
		opt(t)
	}
	for _, r := range routes {
		if err := r.Validate(); err != nil {
			return nil, err
		}
		if r.Path == RouteRoot || r.Path == RouteLogin {
			return nil, fmt.Errorf("route %s is reserved: %w", r.Path, autherrors.ErrInvalidRequest)
		}
		if _, dup := t.routes[r.Path]; dup {
			return nil, fmt.Errorf("route %s declared twice: %w", r.Path, autherrors.ErrInvalidRequest)
		}
		t.routes[r.Path] = r
	}
	return t, nil
}

// DefaultTable is the table of DefaultRoutes.
func DefaultTable(opts ...TableOption) *Table {
	t, err := NewTable(DefaultRoutes(), opts...)
	if err != nil {
		panic(err)
	}
	return t
}

// Lookup returns the declaration for path.
func (t *Table) Lookup(path string) (Route, bool) {
	r, ok := t.routes[path]
	return r, ok
}

// Paths lists the declared paths in sorted order.
func (t *Table) Paths() []string {
	paths := make([]string, 0, len(t.routes))
	for p := range t.routes {
		paths = append(paths, p)
	}
	slices.Sort(paths)
	return paths
}

// Navigate decides entry to path. The root route resolves through Entry and the
// login route is public. Undeclared paths return ErrNotFound.
func (t *Table) Navigate(sess session.Session, path string) (Result, error) {
	var res Result
	switch path {
	case RouteRoot:
		res = Entry(sess)
	case RouteLogin:
		res = allow()
	default:
		r, ok := t.routes[path]
		if !ok {
			return Result{}, fmt.Errorf("route %s: %w", path, autherrors.ErrNotFound)
		}
		res = Check(sess, r.AllowedRoles)
	}
	t.metrics.Guard(res.Decision.String())
	return res, nil
}
