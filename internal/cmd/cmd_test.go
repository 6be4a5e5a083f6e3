package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cjl-github/chiwen/internal/errors"
	"github.com/cjl-github/chiwen/internal/exitcode"
)

func TestAuthLogin(t *testing.T) {
	env := newTestEnv(t, "")

	res := env.run(t, "secret\n", "auth", "login", "-u", "admin", "--password-stdin", "-o", "json")
	require.NoError(t, res.err, res.stderr)

	var status struct {
		Authenticated    bool     `json:"authenticated"`
		Username         string   `json:"username"`
		Role             string   `json:"role"`
		Capabilities     []string `json:"capabilities"`
		TokenFingerprint string   `json:"token_fingerprint"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &status))
	assert.True(t, status.Authenticated)
	assert.Equal(t, "admin", status.Username)
	assert.Equal(t, "admin", status.Role)
	assert.Contains(t, status.Capabilities, "management")
	assert.NotEmpty(t, status.TokenFingerprint)
	assert.NotContains(t, res.stdout, "eyJ", "token never printed")

	_, err := os.Stat(filepath.Join(env.dir, "state", "credentials.json"))
	require.NoError(t, err)

	t.Run("session survives to the next command", func(t *testing.T) {
		res := env.run(t, "", "auth", "status")
		require.NoError(t, res.err)
		assert.Contains(t, res.stdout, "admin")
	})

	t.Run("second login is refused without force", func(t *testing.T) {
		res := env.run(t, "", "auth", "login", "-u", "admin", "-p", "secret")
		require.NoError(t, res.err)
		assert.Contains(t, res.stdout, "Already logged in as admin")
	})

	t.Run("force signs in as another user", func(t *testing.T) {
		res := env.run(t, "", "auth", "login", "-u", "alice", "-p", "wonder", "--force", "-o", "json")
		require.NoError(t, res.err, res.stderr)
		assert.Contains(t, res.stdout, `"username": "alice"`)
		assert.Contains(t, res.stdout, `"role": "user"`)
	})
}

func TestLoginSurvivesWithoutProfileEndpoint(t *testing.T) {
	env := newTestEnv(t, "")
	env.stub.noProfile = true

	env.login(t, "alice", "wonder")

	res := env.run(t, "", "assets", "list", "-o", "json")
	require.NoError(t, res.err, res.stderr)
	assert.Contains(t, res.stdout, "web-01")

	res = env.run(t, "", "auth", "status", "-o", "json")
	require.NoError(t, res.err, res.stderr)
	assert.Contains(t, res.stdout, `"username": "alice"`)
	assert.Contains(t, res.stdout, `"role": "user"`)

	t.Run("revoked token is refused by the asset call", func(t *testing.T) {
		env.stub.mu.Lock()
		env.stub.revoked = true
		env.stub.mu.Unlock()

		res := env.run(t, "", "assets", "list")
		require.Error(t, res.err)
		assert.True(t, errors.HasCode(res.err, errors.ErrCodeRemoteRejected), res.err.Error())
		assert.Contains(t, res.err.Error(), "token invalid")
	})
}

func TestAuthLoginFailures(t *testing.T) {
	env := newTestEnv(t, "")

	t.Run("wrong password", func(t *testing.T) {
		res := env.run(t, "nope\n", "auth", "login", "-u", "admin", "--password-stdin")
		require.Error(t, res.err)
		assert.True(t, errors.HasCode(res.err, errors.ErrCodeLoginFailed))
		assert.Contains(t, res.err.Error(), "invalid username or password")
		assert.Equal(t, exitcode.AuthError, exitcode.DetermineExitCode(res.err))
	})

	t.Run("missing password without a terminal", func(t *testing.T) {
		res := env.run(t, "", "auth", "login", "-u", "admin")
		require.Error(t, res.err)
		assert.True(t, errors.HasCode(res.err, errors.ErrCodeInputInvalid))
	})

	t.Run("password flag and stdin together", func(t *testing.T) {
		res := env.run(t, "secret\n", "auth", "login", "-u", "admin", "-p", "secret", "--password-stdin")
		require.Error(t, res.err)
		assert.True(t, errors.HasCode(res.err, errors.ErrCodeInputInvalid))
	})

	t.Run("no credentials stored after failure", func(t *testing.T) {
		_, err := os.Stat(filepath.Join(env.dir, "state", "credentials.json"))
		assert.True(t, os.IsNotExist(err))
	})
}

func TestAuthLoginUnreachableServer(t *testing.T) {
	env := newTestEnv(t, "")
	env.server.Close()

	res := env.run(t, "secret\n", "auth", "login", "-u", "admin", "--password-stdin")
	require.Error(t, res.err)
	assert.True(t, errors.HasCode(res.err, errors.ErrCodeTransport))
	assert.Equal(t, exitcode.NetworkError, exitcode.DetermineExitCode(res.err))
}

func TestAuthLogout(t *testing.T) {
	env := newTestEnv(t, "")
	env.login(t, "admin", "secret")

	res := env.run(t, "", "auth", "logout")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "Logged out.")

	_, err := os.Stat(filepath.Join(env.dir, "state", "credentials.json"))
	assert.True(t, os.IsNotExist(err))

	res = env.run(t, "", "auth", "logout")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "Not logged in.")

	res = env.run(t, "", "auth", "status", "-o", "json")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, `"authenticated": false`)
}

func TestRevokedTokenIsDropped(t *testing.T) {
	env := newTestEnv(t, "")
	env.login(t, "alice", "wonder")

	env.stub.mu.Lock()
	env.stub.revoked = true
	env.stub.mu.Unlock()

	res := env.run(t, "", "assets", "list")
	require.Error(t, res.err)
	assert.True(t, errors.HasCode(res.err, errors.ErrCodeNotLoggedIn))

	_, err := os.Stat(filepath.Join(env.dir, "state", "credentials.json"))
	assert.True(t, os.IsNotExist(err), "rejected token should be removed from storage")
}

func TestAssetsRequireLogin(t *testing.T) {
	env := newTestEnv(t, "")

	res := env.run(t, "", "assets", "list")
	require.Error(t, res.err)
	assert.True(t, errors.HasCode(res.err, errors.ErrCodeNotLoggedIn))
	assert.Equal(t, exitcode.AuthError, exitcode.DetermineExitCode(res.err))
}

func TestAssetsList(t *testing.T) {
	env := newTestEnv(t, "")
	env.login(t, "admin", "secret")

	t.Run("text table", func(t *testing.T) {
		res := env.run(t, "", "assets", "list")
		require.NoError(t, res.err, res.stderr)
		for _, host := range []string{"web-01", "win-ad", "db-01"} {
			assert.Contains(t, res.stdout, host)
		}
		assert.Contains(t, res.stdout, "group=web")
	})

	t.Run("category filter", func(t *testing.T) {
		res := env.run(t, "", "assets", "list", "--category", "windows")
		require.NoError(t, res.err)
		assert.Contains(t, res.stdout, "win-ad")
		assert.NotContains(t, res.stdout, "web-01")
	})

	t.Run("status filter as json", func(t *testing.T) {
		res := env.run(t, "", "assets", "list", "--status", "maintenance", "-o", "json")
		require.NoError(t, res.err)

		var items []struct {
			ID       string            `json:"id"`
			Hostname string            `json:"hostname"`
			Labels   map[string]string `json:"labels"`
		}
		require.NoError(t, json.Unmarshal([]byte(res.stdout), &items))
		require.Len(t, items, 1)
		assert.Equal(t, "3", items[0].ID)
		assert.Equal(t, map[string]string{"group": "db", "env": "dev"}, items[0].Labels)
	})

	t.Run("search", func(t *testing.T) {
		res := env.run(t, "", "assets", "list", "-s", "10.0.0.1", "-o", "json")
		require.NoError(t, res.err)
		assert.Contains(t, res.stdout, "web-01")
		assert.NotContains(t, res.stdout, "db-01")
	})

	t.Run("unknown status", func(t *testing.T) {
		res := env.run(t, "", "assets", "list", "--status", "sleeping")
		require.Error(t, res.err)
		assert.True(t, errors.HasCode(res.err, errors.ErrCodeInputInvalid))
		assert.Equal(t, 0, len(res.stdout))
	})

	t.Run("unknown category", func(t *testing.T) {
		res := env.run(t, "", "assets", "list", "--category", "bsd")
		require.Error(t, res.err)
	})
}

func TestAssetsShow(t *testing.T) {
	env := newTestEnv(t, "")
	env.login(t, "admin", "secret")

	res := env.run(t, "", "assets", "show", "2")
	require.NoError(t, res.err, res.stderr)
	assert.Contains(t, res.stdout, "win-ad")
	assert.Contains(t, res.stdout, "Windows Server 2019")

	res = env.run(t, "", "assets", "show", "99")
	require.Error(t, res.err)
	assert.True(t, errors.HasCode(res.err, errors.ErrCodeRemoteNotFound))
}

func TestAssetsRemove(t *testing.T) {
	env := newTestEnv(t, "")
	env.login(t, "admin", "secret")

	t.Run("declined", func(t *testing.T) {
		res := env.run(t, "n\n", "assets", "rm", "1")
		require.NoError(t, res.err)
		assert.Contains(t, res.stdout, "Aborted.")
		assert.Empty(t, env.stub.deleted)
	})

	t.Run("confirmed on stdin", func(t *testing.T) {
		res := env.run(t, "y\n", "assets", "rm", "1")
		require.NoError(t, res.err, res.stderr)
		assert.Contains(t, res.stdout, "Deleted asset 1")
		assert.Equal(t, []string{"1"}, env.stub.deleted)
	})

	t.Run("yes flag deletes several", func(t *testing.T) {
		res := env.run(t, "", "assets", "rm", "2", "3", "--yes")
		require.NoError(t, res.err, res.stderr)
		assert.Contains(t, res.stdout, "Deleted asset 2")
		assert.Contains(t, res.stdout, "Deleted asset 3")
		assert.Equal(t, []string{"1", "2", "3"}, env.stub.deleted)
	})
}

func TestAssetsLabel(t *testing.T) {
	env := newTestEnv(t, "")
	env.login(t, "admin", "secret")

	res := env.run(t, "", "assets", "label", "3", "env=prod", "owner=ops", "group-")
	require.NoError(t, res.err, res.stderr)
	assert.Contains(t, res.stdout, "env=prod")

	asset, ok := env.stub.asset(3)
	require.True(t, ok)
	assert.Equal(t, map[string]string{"env": "prod", "owner": "ops"}, asset.Labels)
	assert.Equal(t, 1, env.stub.puts)

	t.Run("malformed pair", func(t *testing.T) {
		res := env.run(t, "", "assets", "label", "3", "novalue")
		require.Error(t, res.err)
		assert.True(t, errors.HasCode(res.err, errors.ErrCodeInputInvalid))
		assert.Equal(t, 1, env.stub.puts)
	})
}

func TestAssetsTree(t *testing.T) {
	env := newTestEnv(t, "")
	env.login(t, "admin", "secret")

	res := env.run(t, "", "assets", "tree")
	require.NoError(t, res.err, res.stderr)
	assert.Contains(t, res.stdout, "Linux (2)")
	assert.Contains(t, res.stdout, "Windows (1)")
	assert.Contains(t, res.stdout, "web-01")
}

func TestAssetsForbiddenByRole(t *testing.T) {
	dir := t.TempDir()
	gate := filepath.Join(dir, "authz.yaml")
	require.NoError(t, os.WriteFile(gate, []byte("roles:\n  admin: [assets]\n  user: [dashboard]\n"), 0o600))

	env := newTestEnv(t, "authz:\n  file: "+gate+"\n")
	env.login(t, "alice", "wonder")

	res := env.run(t, "", "assets", "list")
	require.Error(t, res.err)
	assert.True(t, errors.HasCode(res.err, errors.ErrCodeForbidden))
	assert.Equal(t, exitcode.AuthError, exitcode.DetermineExitCode(res.err))
}

func TestConfigCommands(t *testing.T) {
	env := newTestEnv(t, "")

	res := env.run(t, "", "config", "get", "api.base_url")
	require.NoError(t, res.err)
	assert.Equal(t, env.server.URL+"\n", res.stdout)

	res = env.run(t, "", "config", "show", "-o", "json")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, `"log.level": "error"`)
	assert.Contains(t, res.stdout, env.configPath)

	res = env.run(t, "", "config", "set", "api.timeout", "10s")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "Set api.timeout = 10s")

	res = env.run(t, "", "config", "get", "api.timeout")
	require.NoError(t, res.err)
	assert.Equal(t, "10s\n", res.stdout)

	res = env.run(t, "", "config", "get", "api.nope")
	require.Error(t, res.err)
	assert.True(t, errors.HasCode(res.err, errors.ErrCodeConfigInvalid))

	res = env.run(t, "", "config", "set", "api.nope", "1")
	require.Error(t, res.err)

	res = env.run(t, "", "config", "path")
	require.NoError(t, res.err)
	assert.Equal(t, env.configPath+"\n", res.stdout)
}

func TestInvalidConfigIsReported(t *testing.T) {
	env := newTestEnv(t, "")

	res := env.run(t, "", "config", "set", "log.level", "loud")
	require.Error(t, res.err)

	res = env.run(t, "", "auth", "status")
	require.Error(t, res.err)
	assert.True(t, errors.HasCode(res.err, errors.ErrCodeConfigInvalid))
	assert.Equal(t, exitcode.ConfigError, exitcode.DetermineExitCode(res.err))

	// set skips loading, so a broken file can still be repaired.
	res = env.run(t, "", "config", "set", "log.level", "info")
	require.NoError(t, res.err)
	res = env.run(t, "", "auth", "status")
	require.NoError(t, res.err)
}

func TestDoctor(t *testing.T) {
	env := newTestEnv(t, "")

	res := env.run(t, "", "doctor", "-o", "json")
	require.NoError(t, res.err, res.stdout)

	var report struct {
		Status string `json:"status"`
		Checks []struct {
			Name   string `json:"name"`
			Status string `json:"status"`
		} `json:"checks"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &report))
	assert.Equal(t, "degraded", report.Status)
	require.Len(t, report.Checks, 4)
	assert.Equal(t, "server", report.Checks[1].Name)
	assert.Equal(t, "healthy", report.Checks[1].Status)
	assert.Equal(t, "degraded", report.Checks[3].Status, "no session yet")

	env.login(t, "admin", "secret")
	res = env.run(t, "", "doctor")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "logged in as admin (admin)")
	assert.Contains(t, res.stdout, "Overall: healthy")

	env.server.Close()
	res = env.run(t, "", "doctor")
	require.Error(t, res.err)
	assert.True(t, errors.HasCode(res.err, errors.ErrCodeUnhealthy))
	assert.Contains(t, res.stdout, "unreachable")
}

func TestDoctorReportsBrokenConfig(t *testing.T) {
	env := newTestEnv(t, "")
	require.NoError(t, os.WriteFile(env.configPath, []byte("api:\n  timeout: -1s\n"), 0o600))

	res := env.run(t, "", "doctor")
	require.Error(t, res.err)
	assert.Contains(t, res.stdout, "config")
	assert.Contains(t, res.stdout, "Overall: unhealthy")
}

func TestVersion(t *testing.T) {
	env := newTestEnv(t, "")

	res := env.run(t, "", "version")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "chiwen ")

	res = env.run(t, "", "version", "-o", "json")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, `"version"`)
}

func TestConsoleNeedsTerminal(t *testing.T) {
	env := newTestEnv(t, "")

	res := env.run(t, "", "console")
	require.Error(t, res.err)
	assert.True(t, errors.HasCode(res.err, errors.ErrCodeInputInvalid))
}

func TestSetupOf(t *testing.T) {
	root := NewRootCommand()

	cases := map[string]string{
		"version":     setupNone,
		"config show": setupConfig,
		"config path": setupNone,
		"assets list": "",
	}
	for path, want := range cases {
		cmd, _, err := root.Find(strings.Fields(path))
		require.NoError(t, err, path)
		assert.Equal(t, want, setupOf(cmd), path)
	}
}

func TestParseLabelArgs(t *testing.T) {
	set, remove, err := parseLabelArgs([]string{"env=prod", "team-", "note=a-b"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"env": "prod", "note": "a-b"}, set)
	assert.Equal(t, []string{"team"}, remove)

	_, _, err = parseLabelArgs([]string{"-"})
	require.Error(t, err)
}

func TestRootHelpListsExitCodes(t *testing.T) {
	help := exitCodesHelp()
	assert.Contains(t, help, "5   Authentication error")
	assert.Contains(t, help, "130 Interrupted")
}
