package health

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/cjl-github/chiwen/internal/errors"
	"github.com/cjl-github/chiwen/internal/session"
)

// ConfigChecker reports the outcome of loading the configuration.
type ConfigChecker struct {
	path string
	err  error
}

// NewConfigChecker reports err, or success for the file at path. An empty
// path means only defaults and environment variables were used.
func NewConfigChecker(path string, err error) *ConfigChecker {
	return &ConfigChecker{path: path, err: err}
}

// Name implements Checker.
func (c *ConfigChecker) Name() string { return "config" }

// Check implements Checker.
func (c *ConfigChecker) Check(ctx context.Context) *Result {
	if c.err != nil {
		return Unhealthy(errors.Message(c.err)).WithDetail("code", string(errors.CodeOf(c.err)))
	}
	if c.path == "" {
		return Healthy("using defaults and environment")
	}
	return Healthy("loaded " + c.path).WithDetail("path", c.path)
}

// Pinger reaches the console server without credentials.
type Pinger interface {
	Ping(ctx context.Context) (int, error)
}

// ServerChecker verifies the console server answers HTTP.
type ServerChecker struct {
	pinger  Pinger
	baseURL string
}

// NewServerChecker checks the server at baseURL through p.
func NewServerChecker(p Pinger, baseURL string) *ServerChecker {
	return &ServerChecker{pinger: p, baseURL: baseURL}
}

// Name implements Checker.
func (c *ServerChecker) Name() string { return "server" }

// Check implements Checker. Any HTTP answer below 500 counts as reachable.
func (c *ServerChecker) Check(ctx context.Context) *Result {
	start := time.Now()
	status, err := c.pinger.Ping(ctx)
	latency := time.Since(start)
	if err != nil {
		return Unhealthy(fmt.Sprintf("%s unreachable: %s", c.baseURL, errors.Message(err))).
			WithDetail("url", c.baseURL).
			WithLatency(latency)
	}

	r := Healthy(c.baseURL + " reachable")
	if status >= http.StatusInternalServerError {
		r = Degraded(fmt.Sprintf("%s answered HTTP %d", c.baseURL, status))
	}
	return r.WithDetail("url", c.baseURL).WithDetail("http_status", status).WithLatency(latency)
}

// StorageChecker verifies the token file location is usable.
type StorageChecker struct {
	path      string
	ephemeral bool
}

// NewStorageChecker checks the token file at path. Ephemeral storage
// keeps tokens in memory only.
func NewStorageChecker(path string, ephemeral bool) *StorageChecker {
	return &StorageChecker{path: path, ephemeral: ephemeral}
}

// Name implements Checker.
func (c *StorageChecker) Name() string { return "storage" }

// Check implements Checker. It probes the directory with a temporary file
// and never touches the token file itself.
func (c *StorageChecker) Check(ctx context.Context) *Result {
	if c.ephemeral {
		return Degraded("storage.ephemeral is set; sessions end with each command")
	}

	dir := filepath.Dir(c.path)
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return Healthy(dir + " will be created on first login").WithDetail("path", c.path)
	}
	if err != nil {
		return Unhealthy(err.Error()).WithDetail("path", c.path)
	}
	if !info.IsDir() {
		return Unhealthy(dir + " is not a directory").WithDetail("path", c.path)
	}

	probe, err := os.CreateTemp(dir, ".doctor-*")
	if err != nil {
		return Unhealthy(dir + " is not writable").WithDetail("error", err.Error())
	}
	probe.Close()           //nolint:errcheck
	os.Remove(probe.Name()) //nolint:errcheck

	r := Healthy("token storage writable").WithDetail("path", c.path)
	if fi, err := os.Stat(c.path); err == nil && fi.Mode().Perm()&0o077 != 0 {
		r = Degraded(fmt.Sprintf("%s is readable by other users (mode %v)", c.path, fi.Mode().Perm())).
			WithDetail("path", c.path)
	}
	return r
}

// SessionSource is the part of the session manager the session check reads.
type SessionSource interface {
	Snapshot() session.Snapshot
	LastError() error
}

// SessionChecker reports whether a usable session was restored.
type SessionChecker struct {
	source SessionSource
	now    func() time.Time
}

// NewSessionChecker checks the session held by src.
func NewSessionChecker(src SessionSource) *SessionChecker {
	return &SessionChecker{source: src, now: time.Now}
}

// expiryWarning is how close to expiry a token is reported as degraded.
const expiryWarning = time.Hour

// Name implements Checker.
func (c *SessionChecker) Name() string { return "session" }

// Check implements Checker.
func (c *SessionChecker) Check(ctx context.Context) *Result {
	snap := c.source.Snapshot()
	if !snap.IsAuthenticated() {
		if err := c.source.LastError(); err != nil {
			return Degraded("stored session dropped: " + errors.Message(err)).
				WithDetail("code", string(errors.CodeOf(err)))
		}
		return Degraded("not logged in")
	}

	name := snap.User.DisplayName()
	if name == "" {
		name = "unknown user"
	}
	r := Healthy(fmt.Sprintf("logged in as %s (%s)", name, snap.Role))
	if exp, ok := session.ExpiresAt(snap.Token); ok {
		r.WithDetail("expires_at", exp.UTC().Format(time.RFC3339))
		if left := exp.Sub(c.now()); left < expiryWarning {
			r.Status = StatusDegraded
			r.Message = fmt.Sprintf("logged in as %s; token expires in %s", name, left.Round(time.Minute))
		}
	}
	return r
}
