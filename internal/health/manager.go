package health

import (
	"context"
	"sync"
	"time"
)

// Manager runs checkers in parallel and aggregates their results.
type Manager struct {
	checkers []Checker
	timeout  time.Duration
	mu       sync.RWMutex
}

// NewManager creates a manager with a 5 second per-check timeout.
func NewManager() *Manager {
	return &Manager{
		checkers: make([]Checker, 0),
		timeout:  5 * time.Second,
	}
}

// WithTimeout sets a custom timeout for health checks.
func (m *Manager) WithTimeout(timeout time.Duration) *Manager {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timeout = timeout
	return m
}

// AddChecker registers a checker. Reports list results in the order
// checkers were added.
func (m *Manager) AddChecker(checker Checker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkers = append(m.checkers, checker)
}

// CheckNames returns the names of all registered checkers.
func (m *Manager) CheckNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, len(m.checkers))
	for i, checker := range m.checkers {
		names[i] = checker.Name()
	}
	return names
}

// Entry is one named result in a Report.
type Entry struct {
	Name string `json:"name" yaml:"name"`
	Result `yaml:",inline"`
}

// Report is the outcome of a Run.
type Report struct {
	Status Status  `json:"status" yaml:"status"`
	Checks []Entry `json:"checks" yaml:"checks"`
}

// Run executes every checker under its own timeout and waits for all of
// them. A checker that returns nil is reported unhealthy.
func (m *Manager) Run(ctx context.Context) Report {
	m.mu.RLock()
	checkers := make([]Checker, len(m.checkers))
	copy(checkers, m.checkers)
	timeout := m.timeout
	m.mu.RUnlock()

	entries := make([]Entry, len(checkers))
	var wg sync.WaitGroup
	for i, checker := range checkers {
		wg.Add(1)
		go func(i int, c Checker) {
			defer wg.Done()

			checkCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			start := time.Now()
			result := c.Check(checkCtx)
			if result == nil {
				result = Unhealthy("check returned no result")
			}
			if result.Latency == 0 {
				result.Latency = time.Since(start)
			}
			// Each goroutine owns its slot.
			entries[i] = Entry{Name: c.Name(), Result: *result}
		}(i, checker)
	}
	wg.Wait()

	return Report{Status: Overall(entries), Checks: entries}
}

// Overall is unhealthy if any entry is, degraded if any entry is, and
// healthy otherwise.
func Overall(entries []Entry) Status {
	hasDegraded := false
	for _, e := range entries {
		if e.Status == StatusUnhealthy {
			return StatusUnhealthy
		}
		if e.Status == StatusDegraded {
			hasDegraded = true
		}
	}

	if hasDegraded {
		return StatusDegraded
	}
	return StatusHealthy
}
