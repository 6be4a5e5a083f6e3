// Package navigation decides whether a move to a console route may proceed.
//
// The Guard is a pure function of the request and the session it reads; it
// keeps no state beyond the names of the login and default routes.
package navigation

import "fmt"

// Outcome is the guard's verdict for one navigation request.
type Outcome int

const (
	// Allow lets the navigation proceed to the requested route.
	Allow Outcome = iota
	// RedirectToLogin sends an anonymous session to the login route.
	RedirectToLogin
	// RedirectToDefault keeps an authenticated session out of login.
	RedirectToDefault
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case Allow:
		return "allow"
	case RedirectToLogin:
		return "redirect-to-login"
	case RedirectToDefault:
		return "redirect-to-default"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Request is one navigation attempt.
type Request struct {
	Target       string
	RequiresAuth bool
}

// Decision is the guard's answer. Target is where navigation ends up: the
// requested route on Allow, otherwise the redirect destination.
type Decision struct {
	Outcome Outcome
	Target  string
}

// Redirected reports whether the decision moves away from the request.
func (d Decision) Redirected() bool {
	return d.Outcome != Allow
}

// SessionReader is the part of the session the guard consults.
type SessionReader interface {
	IsAuthenticated() bool
}

// Guard evaluates navigation requests.
type Guard struct {
	LoginRoute   string
	DefaultRoute string
}

// NewGuard creates a guard for the given login and default route names.
func NewGuard(loginRoute, defaultRoute string) *Guard {
	return &Guard{LoginRoute: loginRoute, DefaultRoute: defaultRoute}
}

// Evaluate applies, in order: an authenticated session asking for login goes
// to the default route; an anonymous session asking for a protected route
// goes to login; anything else is allowed. The session is read at call time.
func (g *Guard) Evaluate(req Request, session SessionReader) Decision {
	authenticated := session != nil && session.IsAuthenticated()

	if req.Target == g.LoginRoute && authenticated {
		return Decision{Outcome: RedirectToDefault, Target: g.DefaultRoute}
	}
	if req.RequiresAuth && !authenticated {
		return Decision{Outcome: RedirectToLogin, Target: g.LoginRoute}
	}
	return Decision{Outcome: Allow, Target: req.Target}
}
