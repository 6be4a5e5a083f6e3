package navigation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cjl-github/chiwen/internal/errors"
)

func TestNavigator_Anonymous(t *testing.T) {
	session := &fakeSession{}
	nav := NewNavigator(DefaultTable(), session, nil)
	assert.Empty(t, nav.Current())

	d, err := nav.Navigate("/assets")
	require.NoError(t, err)
	assert.Equal(t, RedirectToLogin, d.Outcome)
	assert.Equal(t, RouteLogin, d.Target)
	assert.Equal(t, RouteLogin, nav.Current())

	d, err = nav.Navigate("login")
	require.NoError(t, err)
	assert.Equal(t, Allow, d.Outcome)
	assert.Equal(t, RouteLogin, nav.Current())
}

func TestNavigator_Authenticated(t *testing.T) {
	session := &fakeSession{authenticated: true}
	nav := NewNavigator(DefaultTable(), session, nil)

	d, err := nav.Navigate("login")
	require.NoError(t, err)
	assert.Equal(t, RedirectToDefault, d.Outcome)
	assert.Equal(t, RouteDashboard, nav.Current())

	d, err = nav.Navigate("/")
	require.NoError(t, err)
	assert.Equal(t, Allow, d.Outcome)
	assert.Equal(t, RouteDashboard, d.Target)

	d, err = nav.Navigate("audit")
	require.NoError(t, err)
	assert.Equal(t, Allow, d.Outcome)
	assert.Equal(t, RouteAudit, nav.Current())
}

func TestNavigator_FollowsSessionChanges(t *testing.T) {
	session := &fakeSession{}
	nav := NewNavigator(DefaultTable(), session, nil)

	_, err := nav.Navigate("assets")
	require.NoError(t, err)
	assert.Equal(t, RouteLogin, nav.Current())

	session.authenticated = true
	_, err = nav.Navigate("assets")
	require.NoError(t, err)
	assert.Equal(t, RouteAssets, nav.Current())

	session.authenticated = false
	_, err = nav.Navigate("dashboard")
	require.NoError(t, err)
	assert.Equal(t, RouteLogin, nav.Current())
}

func TestNavigator_UnknownRouteKeepsCurrent(t *testing.T) {
	nav := NewNavigator(DefaultTable(), &fakeSession{authenticated: true}, nil)
	_, err := nav.Navigate("assets")
	require.NoError(t, err)

	_, err = nav.Navigate("settings")
	assert.True(t, errors.HasCode(err, errors.ErrCodeRouteUnknown))
	assert.Equal(t, RouteAssets, nav.Current())
}

func TestNavigator_LoginBehindAuthFollowsOnce(t *testing.T) {
	// A misconfigured table where both ends of a redirect are protected
	// must still terminate.
	table := NewTable([]Route{
		{Name: "login", Path: "/login", RequiresAuth: true},
		{Name: "home", Path: "/home", RequiresAuth: true},
	}, "login", "home")
	nav := NewNavigator(table, &fakeSession{}, nil)

	d, err := nav.Navigate("home")
	require.NoError(t, err)
	assert.Equal(t, RedirectToLogin, d.Outcome)
	assert.Equal(t, "login", nav.Current())
	assert.Same(t, table, nav.Table())
}
