// Package session owns the authentication state of the console: the bearer
// token, the user profile and the role derived from it.
//
// A Manager is created once per process and passed to whatever needs it.
// Transitions (Restore, Login, Logout) replace the whole state under a lock,
// so readers never observe a token without its role or the reverse.
package session

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/cjl-github/chiwen/internal/authz"
	"github.com/cjl-github/chiwen/internal/errors"
	"github.com/cjl-github/chiwen/internal/log"
	"github.com/cjl-github/chiwen/internal/platform"
	"github.com/cjl-github/chiwen/internal/tokenstore"
)

const msgExpired = "stored session has expired"

// Authenticator is the remote side of a session.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (*platform.LoginResponse, error)
	CurrentUser(ctx context.Context, token string) (*platform.User, error)
}

// Options configures a Manager.
type Options struct {
	// Gate decides permissions. Defaults to authz.DefaultGate.
	Gate *authz.Gate
	// Logger defaults to a discarding logger.
	Logger *log.Logger
	// RefreshProfile makes Restore fetch the user profile for a stored
	// token. When false Restore only reinstates the token, leaving role and
	// profile empty until the next login.
	RefreshProfile bool
	// Now is the clock used for token expiry checks.
	Now func() time.Time
}

// Snapshot is a consistent copy of the session state.
type Snapshot struct {
	Token string
	User  *platform.User
	Role  authz.Role
}

// IsAuthenticated reports whether the snapshot holds a token.
func (s Snapshot) IsAuthenticated() bool {
	return s.Token != ""
}

// Manager holds the current session.
type Manager struct {
	store tokenstore.Store
	auth  Authenticator
	gate  *authz.Gate
	log   *log.Logger

	refreshProfile bool
	now            func() time.Time

	mu    sync.RWMutex
	state Snapshot
	err   error
}

// NewManager creates an anonymous session backed by store and auth.
func NewManager(store tokenstore.Store, auth Authenticator, opts Options) *Manager {
	if opts.Gate == nil {
		opts.Gate = authz.DefaultGate()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Manager{
		store:          store,
		auth:           auth,
		gate:           opts.Gate,
		log:            log.OrDiscard(opts.Logger).With("component", "session"),
		refreshProfile: opts.RefreshProfile,
		now:            opts.Now,
	}
}

// Restore reinstates a session from the token store. Without a stored token
// the session is left as it is. With one, the profile is refreshed from the
// server. A token the server rejects is removed from the store and the
// session stays anonymous. Any other refresh failure keeps the token, with
// the role taken from the token's claims when it is a JWT and left empty
// otherwise. Restore is safe to call again.
func (m *Manager) Restore(ctx context.Context) {
	token, ok := m.store.Read()
	if !ok || token == "" {
		m.log.DebugContext(ctx, "no stored token, session anonymous")
		return
	}
	logger := m.log.With("token_fp", tokenstore.Fingerprint(token))

	if !m.refreshProfile {
		m.set(Snapshot{Token: token}, nil)
		logger.DebugContext(ctx, "session restored without profile")
		return
	}

	if expired(token, m.now()) {
		m.store.Clear()
		m.set(Snapshot{}, errors.New(errors.ErrCodeSessionExpiry, msgExpired).
			WithSuggestion("Run 'chiwen auth login' to start a new session"))
		logger.InfoContext(ctx, "stored token expired, cleared")
		return
	}

	user, err := m.auth.CurrentUser(ctx, token)
	if err != nil {
		if rejected(err) {
			m.store.Clear()
			m.set(Snapshot{}, err)
			logger.WithError(err).InfoContext(ctx, "stored token rejected by server, cleared")
			return
		}
		// The server may not serve profiles at all. The token stays usable
		// and the role comes from its own claims when it has any.
		restored := Snapshot{Token: token}
		if claims, ok := ParseClaims(token); ok {
			restored.User = claims.user()
			restored.Role = m.deriveRole(ctx, restored.User)
		}
		m.set(restored, nil)
		logger.WithError(err).WarnContext(ctx, "profile refresh failed, restored from token",
			"role", restored.Role.String())
		return
	}

	role := m.deriveRole(ctx, user)
	m.set(Snapshot{Token: token, User: user, Role: role}, nil)
	logger.InfoContext(ctx, "session restored", "username", user.Username, "role", role.String())
}

// Login authenticates against the server. On success the token, profile and
// role are replaced together and the token is persisted. On failure nothing
// changes except Err, and false is returned.
func (m *Manager) Login(ctx context.Context, username, password string) bool {
	resp, err := m.auth.Login(ctx, username, password)
	if err != nil {
		m.setErr(err)
		m.log.WithError(err).WarnContext(ctx, "login failed", "username", username)
		return false
	}

	role := m.deriveRole(ctx, resp.User)
	m.set(Snapshot{Token: resp.Token, User: resp.User, Role: role}, nil)
	m.store.Write(resp.Token)

	m.log.InfoContext(ctx, "login succeeded",
		"username", username,
		"role", role.String(),
		"token_fp", tokenstore.Fingerprint(resp.Token))
	return true
}

// Logout clears the session and the stored token.
func (m *Manager) Logout() {
	m.set(Snapshot{}, nil)
	m.store.Clear()
	m.log.Info("logged out")
}

// HasPermission reports whether the current role grants capability.
func (m *Manager) HasPermission(capability authz.Capability) bool {
	return m.gate.Allows(m.Role(), capability)
}

// Capabilities lists what the current role grants.
func (m *Manager) Capabilities() []authz.Capability {
	return m.gate.Capabilities(m.Role())
}

// Token returns the bearer token, or "" when anonymous.
func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.Token
}

// User returns the profile, or nil.
func (m *Manager) User() *platform.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.User
}

// Role returns the current role.
func (m *Manager) Role() authz.Role {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.Role
}

// IsAuthenticated reports whether a token is held.
func (m *Manager) IsAuthenticated() bool {
	return m.Token() != ""
}

// Snapshot returns the whole state at once.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Err returns the message of the last failed Login or Restore, or "".
func (m *Manager) Err() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return errors.Message(m.err)
}

// LastError returns the error behind Err, or nil.
func (m *Manager) LastError() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.err
}

func (m *Manager) set(s Snapshot, err error) {
	if s.Token == "" {
		s = Snapshot{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = s
	m.err = err
}

func (m *Manager) setErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// deriveRole applies the role contract: the is_admin flag when present,
// otherwise a role claim naming a known role, otherwise user.
func (m *Manager) deriveRole(ctx context.Context, u *platform.User) authz.Role {
	if u == nil {
		return authz.RoleUser
	}
	if u.IsAdmin != nil {
		if *u.IsAdmin {
			return authz.RoleAdmin
		}
		return authz.RoleUser
	}
	if u.Role != nil {
		if role, ok := authz.ParseRole(*u.Role); ok {
			return role
		}
		m.log.WarnContext(ctx, "unknown role claim, using user", "claim", *u.Role, "username", u.Username)
	}
	return authz.RoleUser
}

// rejected reports whether the server refused the credential itself.
func rejected(err error) bool {
	ce, ok := errors.As(err)
	if !ok {
		return false
	}
	return ce.StatusCode == http.StatusUnauthorized || ce.StatusCode == http.StatusForbidden
}
