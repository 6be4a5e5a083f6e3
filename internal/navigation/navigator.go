package navigation

import (
	"sync"

	"github.com/cjl-github/chiwen/internal/log"
)

// Navigator moves between routes, asking the guard before every move.
type Navigator struct {
	table   *Table
	guard   *Guard
	session SessionReader
	log     *log.Logger

	mu      sync.Mutex
	current string
}

// NewNavigator creates a navigator with no current route.
func NewNavigator(table *Table, session SessionReader, logger *log.Logger) *Navigator {
	return &Navigator{
		table:   table,
		guard:   table.Guard(),
		session: session,
		log:     log.OrDiscard(logger).With("component", "navigation"),
	}
}

// Navigate evaluates a move to target and applies the result. A redirect
// is followed once; the route finally reached becomes current and is
// returned in the decision. The returned decision carries the outcome of
// the original request.
func (n *Navigator) Navigate(target string) (Decision, error) {
	req, err := n.table.Request(target)
	if err != nil {
		return Decision{}, err
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	decision := n.guard.Evaluate(req, n.session)
	if decision.Redirected() {
		n.log.Debug("navigation redirected",
			"from", n.current,
			"requested", req.Target,
			"outcome", decision.Outcome.String(),
			"to", decision.Target)

		// The redirect target is itself guarded; login and default are
		// chosen so that it is always allowed for the same session.
		next, err := n.table.Request(decision.Target)
		if err != nil {
			return Decision{}, err
		}
		if follow := n.guard.Evaluate(next, n.session); follow.Outcome != Allow {
			decision.Target = follow.Target
		}
	}

	n.current = decision.Target
	return decision, nil
}

// Current returns the route last navigated to, or "".
func (n *Navigator) Current() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}

// Table returns the navigator's route table.
func (n *Navigator) Table() *Table {
	return n.table
}
