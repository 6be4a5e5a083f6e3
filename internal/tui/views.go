package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"

	"github.com/cjl-github/chiwen/internal/assets"
	"github.com/cjl-github/chiwen/internal/navigation"
	"github.com/cjl-github/chiwen/internal/platform"
	"github.com/cjl-github/chiwen/internal/ux"
)

// View renders the TUI (required by Bubble Tea)
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.route == "" {
		return m.styles.Muted.Render("Starting console...")
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")

	switch m.route {
	case navigation.RouteLogin:
		b.WriteString(m.renderLogin())
	case navigation.RouteDashboard:
		b.WriteString(m.renderDashboard())
	case navigation.RouteAssets:
		b.WriteString(m.renderAssets())
	default:
		b.WriteString(m.renderUnavailable())
	}

	b.WriteString("\n\n")
	b.WriteString(m.renderFooter())
	return b.String()
}

func (m Model) renderHeader() string {
	title := m.styles.Title.Render("chiwen console")
	if r, ok := m.nav.Table().Lookup(m.route); ok {
		title += m.styles.Muted.Render(" / " + r.Title)
	}

	snap := m.session.Snapshot()
	who := m.styles.Muted.Render("not signed in")
	if snap.IsAuthenticated() {
		who = m.styles.Key.Render(displayName(snap))
		if snap.Role != "" {
			who += m.styles.Muted.Render(" (" + snap.Role.String() + ")")
		}
	}

	line := title + "  " + who
	if m.server != "" {
		line += m.styles.Muted.Render("  " + m.server)
	}
	if m.route == navigation.RouteLogin {
		return line
	}
	return line + "\n" + m.renderMenu()
}

func (m Model) renderMenu() string {
	items := make([]string, 0, len(m.menu))
	for i, r := range m.menu {
		label := fmt.Sprintf("%d %s", i+1, r.Title)
		switch {
		case r.Name == m.route:
			items = append(items, m.styles.Highlight.Render(label))
		case !m.session.HasPermission(r.Capability):
			items = append(items, m.styles.Muted.Render(label+" (locked)"))
		default:
			items = append(items, label)
		}
	}
	return strings.Join(items, "  ")
}

func (m Model) renderLogin() string {
	var b strings.Builder
	b.WriteString(m.styles.Subtitle.Render("Sign in to continue"))
	if m.after != "" && m.after != m.nav.Table().DefaultRoute() {
		b.WriteString(m.styles.Muted.Render(" to " + m.after))
	}
	b.WriteString("\n\n")
	for _, in := range m.inputs {
		b.WriteString(in.View())
		b.WriteString("\n")
	}
	if m.busy {
		b.WriteString("\n")
		b.WriteString(m.spinner.View() + " " + m.status)
	}
	return m.styles.Border.Render(b.String())
}

func (m Model) renderDashboard() string {
	snap := m.session.Snapshot()
	pairs := [][2]string{
		{"User", displayName(snap)},
		{"Role", snap.Role.String()},
	}
	if snap.User != nil && snap.User.Email != "" {
		pairs = append(pairs, [2]string{"Email", snap.User.Email})
	}

	items := m.assets.Items()
	counts := map[platform.AssetStatus]int{}
	for _, a := range items {
		counts[a.Status]++
	}
	pairs = append(pairs, [2]string{"Assets", fmt.Sprintf("%d total, %s online, %s offline, %s maintenance",
		len(items),
		m.styles.Success.Render(fmt.Sprint(counts[platform.StatusOnline])),
		m.styles.Error.Render(fmt.Sprint(counts[platform.StatusOffline])),
		m.styles.Warning.Render(fmt.Sprint(counts[platform.StatusMaintenance])))})

	var b strings.Builder
	b.WriteString(m.styles.Subtitle.Render("Overview"))
	for _, p := range pairs {
		b.WriteString("\n  ")
		b.WriteString(m.styles.Key.Render(fmt.Sprintf("%-8s", p[0])))
		b.WriteString(p[1])
	}
	return b.String()
}

func (m Model) renderAssets() string {
	var b strings.Builder
	b.WriteString(m.styles.Subtitle.Render(fmt.Sprintf("Category: %s", m.category)))
	b.WriteString("\n")
	if len(m.table.Rows()) == 0 && !m.busy {
		b.WriteString(m.styles.Muted.Render("No assets found."))
	} else {
		b.WriteString(m.table.View())
	}
	if m.pending != "" {
		b.WriteString("\n")
		b.WriteString(m.styles.Warning.Render(fmt.Sprintf("Delete asset %s? (y/N)", m.pending)))
	}
	return b.String()
}

func (m Model) renderUnavailable() string {
	title := m.route
	if r, ok := m.nav.Table().Lookup(m.route); ok {
		title = r.Title
	}
	return m.styles.Muted.Render(title + " is not available in the terminal console.")
}

func (m Model) renderFooter() string {
	var lines []string
	switch {
	case m.errMsg != "":
		lines = append(lines, m.styles.Error.Render("Error: ")+m.errMsg)
	case m.busy && m.route != navigation.RouteLogin:
		lines = append(lines, m.spinner.View()+" "+m.status)
	case m.status != "":
		lines = append(lines, m.styles.Muted.Render(m.status))
	}

	bindings := m.keys.screenHelp(m.route)
	switch {
	case m.route == navigation.RouteLogin:
		bindings = m.keys.loginHelp()
	case m.pending != "":
		bindings = m.keys.confirmHelp()
	}
	lines = append(lines, m.help.ShortHelpView(bindings))
	return strings.Join(lines, "\n")
}

func assetColumns() []table.Column {
	return []table.Column{
		{Title: "ID", Width: 6},
		{Title: "Hostname", Width: 20},
		{Title: "IP", Width: 15},
		{Title: "OS", Width: 16},
		{Title: "Status", Width: 12},
		{Title: "Labels", Width: 24},
	}
}

func assetRow(a assets.Asset) table.Row {
	return table.Row{
		assets.ID(a),
		a.Hostname,
		a.IP(),
		a.OS(),
		string(a.Status),
		ux.FormatLabels(a.Labels),
	}
}
