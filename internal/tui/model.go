package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/cjl-github/chiwen/internal/assets"
	"github.com/cjl-github/chiwen/internal/authz"
	"github.com/cjl-github/chiwen/internal/log"
	"github.com/cjl-github/chiwen/internal/navigation"
	"github.com/cjl-github/chiwen/internal/session"
	"github.com/cjl-github/chiwen/internal/ux"
)

// Session is the part of the session manager the console drives.
type Session interface {
	navigation.SessionReader
	Login(ctx context.Context, username, password string) bool
	Logout()
	Snapshot() session.Snapshot
	HasPermission(capability authz.Capability) bool
	Err() string
}

// AssetStore is the asset collection the console lists and mutates.
type AssetStore interface {
	FetchAll(ctx context.Context) bool
	Remove(ctx context.Context, id string) bool
	Items() []assets.Asset
	Err() string
}

// Options configures a console Model.
type Options struct {
	// Server is shown in the header.
	Server string
	// Start is the route opened first. Defaults to "/".
	Start  string
	Styles *ux.Styles
	Logger *log.Logger
}

// Messages produced by the console's commands.
type (
	loginDoneMsg struct{ ok bool }
	fetchDoneMsg struct{ ok bool }
	removeDoneMsg struct {
		id string
		ok bool
	}
)

const (
	fieldUsername = iota
	fieldPassword
)

// Model is the interactive console. Every screen change goes through the
// navigator, so the guard decides where the user lands.
type Model struct {
	ctx      context.Context
	session  Session
	assets   AssetStore
	nav      *navigation.Navigator
	server   string
	start    string
	log      *log.Logger
	styles   ux.Styles
	keys     keyMap
	menu     []navigation.Route
	inputs   []textinput.Model
	focus    int
	table    table.Model
	spinner  spinner.Model
	help     help.Model
	route    string
	after    string
	category assets.Category
	busy     bool
	pending  string
	status   string
	errMsg   string
	width    int
	height   int
	quitting bool
}

// NewModel creates the console model. The navigator must read the same
// session that is passed in.
func NewModel(ctx context.Context, sess Session, store AssetStore, nav *navigation.Navigator, opts Options) Model {
	styles := ux.DefaultStyles()
	if opts.Styles != nil {
		styles = *opts.Styles
	}
	start := opts.Start
	if start == "" {
		start = "/"
	}

	username := textinput.New()
	username.Placeholder = "username"
	username.Prompt = "Username: "
	username.CharLimit = 64

	password := textinput.New()
	password.Placeholder = "password"
	password.Prompt = "Password: "
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'
	password.CharLimit = 128

	t := table.New(
		table.WithColumns(assetColumns()),
		table.WithFocused(true),
		table.WithHeight(10),
	)
	ts := table.DefaultStyles()
	ts.Header = styles.Header
	ts.Selected = styles.Highlight
	t.SetStyles(ts)

	var menu []navigation.Route
	for _, r := range nav.Table().Routes() {
		if r.Name != nav.Table().LoginRoute() {
			menu = append(menu, r)
		}
	}

	return Model{
		ctx:      ctx,
		session:  sess,
		assets:   store,
		nav:      nav,
		server:   opts.Server,
		start:    start,
		log:      log.OrDiscard(opts.Logger).With("component", "console"),
		styles:   styles,
		keys:     defaultKeys(),
		menu:     menu,
		inputs:   []textinput.Model{username, password},
		table:    t,
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot)),
		help:     help.New(),
		category: assets.CategoryAll,
	}
}

// Init opens the start route.
func (m Model) Init() tea.Cmd {
	return func() tea.Msg { return navigateMsg{target: m.start} }
}

type navigateMsg struct{ target string }

// Update handles messages and updates the model state (required by Bubble Tea)
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		if h := msg.Height - 10; h > 3 {
			m.table.SetHeight(h)
		}
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.ForceQuit) {
			m.quitting = true
			return m, tea.Quit
		}
		if m.route == navigation.RouteLogin {
			return m.updateLogin(msg)
		}
		return m.updateScreen(msg)

	case navigateMsg:
		return m.navigate(msg.target)

	case loginDoneMsg:
		m.busy = false
		m.inputs[fieldPassword].SetValue("")
		if !msg.ok {
			m.errMsg = m.session.Err()
			m.focus = fieldPassword
			cmd := m.focusInputs()
			return m, cmd
		}
		m.errMsg = ""
		m.status = "Signed in as " + displayName(m.session.Snapshot())
		target := m.after
		m.after = ""
		if target == "" {
			target = m.nav.Table().DefaultRoute()
		}
		return m.navigate(target)

	case fetchDoneMsg:
		m.busy = false
		m.refreshRows()
		if msg.ok {
			m.errMsg = ""
			m.status = fmt.Sprintf("Loaded %d asset(s)", len(m.assets.Items()))
		} else {
			m.errMsg = m.assets.Err()
		}
		return m, nil

	case removeDoneMsg:
		m.busy = false
		m.refreshRows()
		if msg.ok {
			m.errMsg = ""
			m.status = "Deleted asset " + msg.id
		} else {
			m.errMsg = m.assets.Err()
		}
		return m, nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) updateLogin(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.busy {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.NextField):
		m.focus = (m.focus + 1) % len(m.inputs)
		cmd := m.focusInputs()
		return m, cmd

	case key.Matches(msg, m.keys.PrevField):
		m.focus = (m.focus + len(m.inputs) - 1) % len(m.inputs)
		cmd := m.focusInputs()
		return m, cmd

	case key.Matches(msg, m.keys.Submit):
		if m.focus == fieldUsername {
			m.focus = fieldPassword
			cmd := m.focusInputs()
			return m, cmd
		}
		return m.submitLogin()
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m Model) submitLogin() (tea.Model, tea.Cmd) {
	username := m.inputs[fieldUsername].Value()
	password := m.inputs[fieldPassword].Value()
	if username == "" || password == "" {
		m.errMsg = "username and password are required"
		return m, nil
	}

	m.busy = true
	m.errMsg = ""
	m.status = "Signing in..."
	ctx, sess := m.ctx, m.session
	return m, tea.Batch(m.spinner.Tick, func() tea.Msg {
		return loginDoneMsg{ok: sess.Login(ctx, username, password)}
	})
}

func (m Model) updateScreen(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.pending != "" {
		return m.updateConfirm(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Logout):
		m.session.Logout()
		m.status = "Signed out"
		m.errMsg = ""
		m.inputs[fieldUsername].SetValue("")
		return m.navigate(m.route)

	case key.Matches(msg, m.keys.Menu):
		i := int(msg.String()[0] - '1')
		if i < 0 || i >= len(m.menu) {
			return m, nil
		}
		r := m.menu[i]
		if !m.session.HasPermission(r.Capability) {
			m.errMsg = fmt.Sprintf("%s requires the %q permission", r.Title, r.Capability)
			return m, nil
		}
		return m.navigate(r.Name)
	}

	if m.route != navigation.RouteAssets {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Refresh):
		cmd := m.fetch()
		return m, cmd

	case key.Matches(msg, m.keys.Category):
		m.category = nextCategory(m.category)
		m.refreshRows()
		return m, nil

	case key.Matches(msg, m.keys.Delete):
		if !m.session.HasPermission(authz.CapAssets) {
			m.errMsg = "deleting assets requires the \"assets\" permission"
			return m, nil
		}
		if row := m.table.SelectedRow(); len(row) > 0 && !m.busy {
			m.pending = row[0]
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	id := m.pending
	m.pending = ""

	if !key.Matches(msg, m.keys.Confirm) {
		m.status = "Delete cancelled"
		return m, nil
	}

	m.busy = true
	m.status = "Deleting asset " + id + "..."
	ctx, store := m.ctx, m.assets
	return m, tea.Batch(m.spinner.Tick, func() tea.Msg {
		return removeDoneMsg{id: id, ok: store.Remove(ctx, id)}
	})
}

// navigate asks the guard for target and moves to wherever it lands. A
// redirect to login remembers the requested route for after sign-in.
func (m Model) navigate(target string) (tea.Model, tea.Cmd) {
	decision, err := m.nav.Navigate(target)
	if err != nil {
		m.errMsg = err.Error()
		return m, nil
	}

	if decision.Outcome == navigation.RedirectToLogin {
		if r, ok := m.nav.Table().Lookup(target); ok {
			m.after = r.Name
		}
	}
	m.route = m.nav.Current()
	m.log.Debug("screen changed", "requested", target, "route", m.route, "outcome", decision.Outcome.String())

	switch m.route {
	case navigation.RouteLogin:
		m.focus = fieldUsername
		if m.inputs[fieldUsername].Value() != "" {
			m.focus = fieldPassword
		}
		cmd := m.focusInputs()
		return m, cmd
	case navigation.RouteAssets:
		m.refreshRows()
		cmd := m.fetch()
		return m, cmd
	}
	return m, nil
}

func (m *Model) fetch() tea.Cmd {
	if m.busy {
		return nil
	}
	m.busy = true
	m.status = "Loading assets..."
	ctx, store := m.ctx, m.assets
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		return fetchDoneMsg{ok: store.FetchAll(ctx)}
	})
}

func (m *Model) focusInputs() tea.Cmd {
	var cmd tea.Cmd
	for i := range m.inputs {
		if i == m.focus {
			cmd = m.inputs[i].Focus()
			continue
		}
		m.inputs[i].Blur()
	}
	return cmd
}

func (m *Model) refreshRows() {
	items := assets.Filter(m.assets.Items(), assets.Query{Category: m.category})
	rows := make([]table.Row, 0, len(items))
	for _, a := range items {
		rows = append(rows, assetRow(a))
	}
	m.table.SetRows(rows)
	if m.table.Cursor() >= len(rows) {
		m.table.SetCursor(max(len(rows)-1, 0))
	}
}

// Route returns the current screen.
func (m Model) Route() string {
	return m.route
}

func nextCategory(c assets.Category) assets.Category {
	switch c {
	case assets.CategoryAll:
		return assets.CategoryLinux
	case assets.CategoryLinux:
		return assets.CategoryWindows
	default:
		return assets.CategoryAll
	}
}

func displayName(s session.Snapshot) string {
	if s.User != nil {
		if name := s.User.DisplayName(); name != "" {
			return name
		}
	}
	return "anonymous"
}
