package navigation

import (
	"strings"

	"github.com/cjl-github/chiwen/internal/authz"
	"github.com/cjl-github/chiwen/internal/errors"
)

// Route names of the console.
const (
	RouteLogin     = "login"
	RouteDashboard = "dashboard"
	RouteAssets    = "assets"
	RouteSessions  = "sessions"
	RouteAudit     = "audit"
)

// Route describes one console screen.
type Route struct {
	Name         string
	Path         string
	Title        string
	RequiresAuth bool
	// Capability is the permission a menu entry for the route needs.
	// The guard does not enforce it.
	Capability authz.Capability
}

// Table is the set of known routes.
type Table struct {
	routes       []Route
	byName       map[string]int
	loginRoute   string
	defaultRoute string
}

// NewTable builds a route table. loginRoute and defaultRoute must name
// routes in routes.
func NewTable(routes []Route, loginRoute, defaultRoute string) *Table {
	t := &Table{
		routes:       routes,
		byName:       make(map[string]int, len(routes)),
		loginRoute:   loginRoute,
		defaultRoute: defaultRoute,
	}
	for i, r := range routes {
		t.byName[r.Name] = i
	}
	return t
}

// DefaultTable returns the console's routes: login is public, everything
// else needs a session, and "/" lands on the dashboard.
func DefaultTable() *Table {
	return NewTable([]Route{
		{Name: RouteLogin, Path: "/login", Title: "Login"},
		{Name: RouteDashboard, Path: "/dashboard", Title: "Dashboard", RequiresAuth: true, Capability: authz.CapDashboard},
		{Name: RouteAssets, Path: "/assets", Title: "Assets", RequiresAuth: true, Capability: authz.CapAssets},
		{Name: RouteSessions, Path: "/sessions", Title: "Sessions", RequiresAuth: true, Capability: authz.CapAssets},
		{Name: RouteAudit, Path: "/audit", Title: "Audit", RequiresAuth: true, Capability: authz.CapAudit},
	}, RouteLogin, RouteDashboard)
}

// Guard returns a guard for this table's login and default routes.
func (t *Table) Guard() *Guard {
	return NewGuard(t.loginRoute, t.defaultRoute)
}

// LoginRoute returns the login route name.
func (t *Table) LoginRoute() string { return t.loginRoute }

// DefaultRoute returns the default route name.
func (t *Table) DefaultRoute() string { return t.defaultRoute }

// Routes returns every route in declaration order.
func (t *Table) Routes() []Route {
	out := make([]Route, len(t.routes))
	copy(out, t.routes)
	return out
}

// Lookup finds a route by name or path. The root path resolves to the
// default route.
func (t *Table) Lookup(target string) (Route, bool) {
	target = strings.TrimSpace(target)
	if target == "" || target == "/" {
		target = t.defaultRoute
	}
	if i, ok := t.byName[target]; ok {
		return t.routes[i], true
	}
	path := "/" + strings.Trim(target, "/")
	for _, r := range t.routes {
		if r.Path == path {
			return r, true
		}
	}
	return Route{}, false
}

// Request builds the navigation request for target.
func (t *Table) Request(target string) (Request, error) {
	r, ok := t.Lookup(target)
	if !ok {
		return Request{}, errors.NewRouteUnknownError(target)
	}
	return Request{Target: r.Name, RequiresAuth: r.RequiresAuth}, nil
}
