package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

var stubSecret = []byte("console-stub-secret")

type stubUser struct {
	password string
	isAdmin  bool
}

type stubAsset struct {
	ID       int               `json:"id"`
	Hostname string            `json:"hostname"`
	Status   string            `json:"status"`
	OS       string            `json:"-"`
	Labels   map[string]string `json:"-"`
}

// consoleStub is an in-memory console server speaking the login, profile
// and asset endpoints. Like the real server it issues HS256 tokens carrying
// user_id, username and is_admin.
type consoleStub struct {
	mu      sync.Mutex
	users   map[string]stubUser
	revoked bool
	// noProfile makes the profile endpoint answer 404, as on servers that
	// only expose login and assets.
	noProfile bool
	assets  []stubAsset
	deleted []string
	puts    int
}

func newConsoleStub() *consoleStub {
	return &consoleStub{
		users: map[string]stubUser{
			"admin": {password: "secret", isAdmin: true},
			"alice": {password: "wonder"},
		},
		assets: []stubAsset{
			{ID: 1, Hostname: "web-01", Status: "online", OS: "Ubuntu Linux 22.04", Labels: map[string]string{"group": "web"}},
			{ID: 2, Hostname: "win-ad", Status: "offline", OS: "Windows Server 2019"},
			{ID: 3, Hostname: "db-01", Status: "maintenance", OS: "CentOS Linux 7", Labels: map[string]string{"group": "db", "env": "dev"}},
		},
	}
}

func (s *consoleStub) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/login", s.login)
	mux.HandleFunc("GET /api/v1/me", s.profile)
	mux.HandleFunc("GET /api/v1/assets/list", s.authed(s.list))
	mux.HandleFunc("DELETE /api/v1/assets/{id}", s.authed(s.remove))
	mux.HandleFunc("PUT /api/v1/assets/{id}/labels", s.authed(s.labels))
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *consoleStub) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad request"})
		return
	}

	s.mu.Lock()
	u, ok := s.users[req.Username]
	s.mu.Unlock()
	if !ok || u.password != req.Password {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "invalid username or password"})
		return
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  1,
		"username": req.Username,
		"is_admin": u.isAdmin,
		"exp":      time.Now().Add(24 * time.Hour).Unix(),
	}).SignedString(stubSecret)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"token": token,
		"user":  map[string]any{"id": 1, "username": req.Username, "is_admin": u.isAdmin},
	})
}

// username verifies a bearer token and returns the user it names.
func (s *consoleStub) username(r *http.Request) (string, bool) {
	raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return "", false
	}
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) { return stubSecret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", false
	}
	name, ok := claims["username"].(string)
	return name, ok
}

func (s *consoleStub) authed(next func(http.ResponseWriter, *http.Request, string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username, ok := s.username(r)
		s.mu.Lock()
		_, known := s.users[username]
		revoked := s.revoked
		s.mu.Unlock()
		if !ok || !known || revoked {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "token invalid"})
			return
		}
		next(w, r, username)
	}
}

func (s *consoleStub) profile(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	missing := s.noProfile
	s.mu.Unlock()
	if missing {
		http.NotFound(w, r)
		return
	}
	s.authed(s.me)(w, r)
}

func (s *consoleStub) me(w http.ResponseWriter, _ *http.Request, username string) {
	s.mu.Lock()
	u := s.users[username]
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"user": map[string]any{"id": 1, "username": username, "is_admin": u.isAdmin}})
}

func (s *consoleStub) list(w http.ResponseWriter, _ *http.Request, _ string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]map[string]any, 0, len(s.assets))
	for _, a := range s.assets {
		rec := map[string]any{
			"id":          a.ID,
			"hostname":    a.Hostname,
			"status":      a.Status,
			"static_info": map[string]string{"os": a.OS, "ip": fmt.Sprintf("10.0.0.%d", a.ID)},
		}
		// The console stores labels as a JSON document in a text column.
		if len(a.Labels) > 0 {
			encoded, _ := json.Marshal(a.Labels)
			rec["labels"] = string(encoded)
		}
		out = append(out, rec)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *consoleStub) remove(w http.ResponseWriter, r *http.Request, _ string) {
	id := r.PathValue("id")
	s.mu.Lock()
	defer s.mu.Unlock()

	s.deleted = append(s.deleted, id)
	kept := s.assets[:0]
	for _, a := range s.assets {
		if fmt.Sprint(a.ID) != id {
			kept = append(kept, a)
		}
	}
	s.assets = kept
	writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
}

func (s *consoleStub) labels(w http.ResponseWriter, r *http.Request, _ string) {
	var req struct {
		Labels map[string]string `json:"labels"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad labels"})
		return
	}

	id := r.PathValue("id")
	s.mu.Lock()
	defer s.mu.Unlock()
	s.puts++
	for i := range s.assets {
		if fmt.Sprint(s.assets[i].ID) == id {
			s.assets[i].Labels = req.Labels
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "updated"})
}

func (s *consoleStub) asset(id int) (stubAsset, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.assets {
		if a.ID == id {
			return a, true
		}
	}
	return stubAsset{}, false
}

// testEnv is a console stub plus an isolated config and token directory.
type testEnv struct {
	stub       *consoleStub
	server     *httptest.Server
	dir        string
	configPath string
}

func newTestEnv(t *testing.T, extraConfig string) *testEnv {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	stub := newConsoleStub()
	srv := httptest.NewServer(stub.handler())
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	body := fmt.Sprintf(`api:
  base_url: %s
  timeout: 5s
storage:
  dir: %s
log:
  level: error
%s`, srv.URL, filepath.Join(dir, "state"), extraConfig)
	require.NoError(t, os.WriteFile(configPath, []byte(body), 0o600))

	return &testEnv{stub: stub, server: srv, dir: dir, configPath: configPath}
}

type result struct {
	stdout string
	stderr string
	err    error
}

func (e *testEnv) run(t *testing.T, stdin string, args ...string) result {
	t.Helper()

	a := newApp()
	a.interactive = func() bool { return false }
	root := newRootCmd(a)

	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--config", e.configPath, "--no-color"}, args...))

	err := root.ExecuteContext(context.Background())
	return result{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

func (e *testEnv) login(t *testing.T, username, password string) {
	t.Helper()
	res := e.run(t, password+"\n", "auth", "login", "--username", username, "--password-stdin")
	require.NoError(t, res.err, res.stderr)
}
