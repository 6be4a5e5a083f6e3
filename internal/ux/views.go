package ux

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/cjl-github/chiwen/internal/assets"
	"github.com/cjl-github/chiwen/internal/health"
)

// AssetList renders assets as a table. JSON and YAML output is the plain
// array.
type AssetList struct {
	Items []assets.Asset
}

// MarshalJSON emits the asset array.
func (l AssetList) MarshalJSON() ([]byte, error) {
	items := l.Items
	if items == nil {
		items = []assets.Asset{}
	}
	return json.Marshal(items)
}

// MarshalYAML emits the asset array.
func (l AssetList) MarshalYAML() (any, error) {
	if l.Items == nil {
		return []assets.Asset{}, nil
	}
	return l.Items, nil
}

// RenderText renders the asset table.
func (l AssetList) RenderText(s Styles) string {
	if len(l.Items) == 0 {
		return s.Muted.Render("No assets found.")
	}

	rows := make([][]string, 0, len(l.Items))
	for _, a := range l.Items {
		rows = append(rows, []string{
			string(a.ID),
			a.Hostname,
			orDash(a.IP()),
			orDash(a.OS()),
			string(a.Status),
			usage(a),
			FormatLabels(a.Labels),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(s.Muted).
		Headers("ID", "HOSTNAME", "IP", "OS", "STATUS", "CPU/MEM/DISK", "LABELS").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return s.Header
			}
			if col == 4 && row >= 0 && row < len(l.Items) {
				return s.StatusStyle(l.Items[row].Status).Padding(0, 1)
			}
			return s.Cell
		})

	footer := s.Muted.Render(fmt.Sprintf("%d asset(s)", len(l.Items)))
	return t.Render() + "\n" + footer
}

// AssetDetail renders one asset as key/value lines.
type AssetDetail struct {
	Asset assets.Asset
}

// MarshalJSON emits the asset.
func (d AssetDetail) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Asset)
}

// MarshalYAML emits the asset.
func (d AssetDetail) MarshalYAML() (any, error) {
	return d.Asset, nil
}

// RenderText renders the asset fields.
func (d AssetDetail) RenderText(s Styles) string {
	a := d.Asset
	pairs := [][2]string{
		{"ID", string(a.ID)},
		{"Hostname", a.Hostname},
		{"Status", s.StatusStyle(a.Status).Render(string(a.Status))},
		{"IP", orDash(a.IP())},
		{"OS", orDash(a.OS())},
	}
	if a.StaticInfo != nil {
		pairs = append(pairs,
			[2]string{"CPU", orDash(a.StaticInfo.CPU)},
			[2]string{"Memory", orDash(a.StaticInfo.Memory)})
	}
	if a.DynamicInfo != nil {
		pairs = append(pairs,
			[2]string{"Usage", usage(a)},
			[2]string{"Last check-in", orDash(a.DynamicInfo.LastCheckIn)})
	}
	pairs = append(pairs, [2]string{"Labels", FormatLabels(a.Labels)})
	return renderPairs(s, s.Title.Render(a.Hostname), pairs)
}

// TreeView renders the OS grouping as an indented tree.
type TreeView struct {
	Root assets.TreeNode
}

// MarshalJSON emits the tree.
func (v TreeView) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Root)
}

// MarshalYAML emits the tree.
func (v TreeView) MarshalYAML() (any, error) {
	return v.Root, nil
}

// RenderText renders the tree.
func (v TreeView) RenderText(s Styles) string {
	var b strings.Builder
	b.WriteString(s.Title.Render(v.Root.Label))
	for i, group := range v.Root.Children {
		lastGroup := i == len(v.Root.Children)-1
		b.WriteString("\n")
		b.WriteString(branch(lastGroup))
		b.WriteString(s.Key.Render(group.Label))
		for j, leaf := range group.Children {
			b.WriteString("\n")
			if lastGroup {
				b.WriteString("    ")
			} else {
				b.WriteString("│   ")
			}
			b.WriteString(branch(j == len(group.Children)-1))
			b.WriteString(leaf.Label)
			b.WriteString(s.Muted.Render(" #" + leaf.ID))
		}
	}
	return b.String()
}

func branch(last bool) string {
	if last {
		return "└── "
	}
	return "├── "
}

// SessionStatus describes the current login state.
type SessionStatus struct {
	Authenticated    bool       `json:"authenticated" yaml:"authenticated"`
	Server           string     `json:"server" yaml:"server"`
	Username         string     `json:"username,omitempty" yaml:"username,omitempty"`
	Role             string     `json:"role,omitempty" yaml:"role,omitempty"`
	Capabilities     []string   `json:"capabilities" yaml:"capabilities"`
	TokenFingerprint string     `json:"token_fingerprint,omitempty" yaml:"token_fingerprint,omitempty"`
	ExpiresAt        *time.Time `json:"expires_at,omitempty" yaml:"expires_at,omitempty"`
	Error            string     `json:"error,omitempty" yaml:"error,omitempty"`
}

// RenderText renders the status block.
func (st SessionStatus) RenderText(s Styles) string {
	state := s.Error.Render("not logged in")
	if st.Authenticated {
		state = s.Success.Render("logged in")
	}
	pairs := [][2]string{
		{"Server", st.Server},
		{"Status", state},
	}
	if st.Authenticated {
		pairs = append(pairs,
			[2]string{"User", orDash(st.Username)},
			[2]string{"Role", orDash(st.Role)},
			[2]string{"Token", orDash(st.TokenFingerprint)})
		if st.ExpiresAt != nil {
			pairs = append(pairs, [2]string{"Expires", st.ExpiresAt.Local().Format(time.RFC3339)})
		}
	}
	pairs = append(pairs, [2]string{"Capabilities", strings.Join(st.Capabilities, ", ")})
	if st.Error != "" {
		pairs = append(pairs, [2]string{"Last error", s.Warning.Render(st.Error)})
	}
	return renderPairs(s, s.Title.Render("Session"), pairs)
}

// Settings renders configuration keys and values.
type Settings struct {
	Path   string            `json:"path,omitempty" yaml:"path,omitempty"`
	Values map[string]string `json:"values" yaml:"values"`
}

// RenderText renders one line per key, sorted.
func (st Settings) RenderText(s Styles) string {
	keys := make([]string, 0, len(st.Values))
	for k := range st.Values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([][2]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, [2]string{k, orDash(st.Values[k])})
	}
	title := "Configuration (defaults)"
	if st.Path != "" {
		title = "Configuration from " + st.Path
	}
	return renderPairs(s, s.Title.Render(title), pairs)
}

func renderPairs(s Styles, title string, pairs [][2]string) string {
	width := 0
	for _, p := range pairs {
		if w := lipgloss.Width(p[0]); w > width {
			width = w
		}
	}

	var b strings.Builder
	b.WriteString(title)
	for _, p := range pairs {
		b.WriteString("\n  ")
		b.WriteString(s.Key.Render(p[0]))
		b.WriteString(strings.Repeat(" ", width-lipgloss.Width(p[0])+2))
		b.WriteString(p[1])
	}
	return b.String()
}

// HealthReport renders the result of 'chiwen doctor'.
type HealthReport struct {
	health.Report `yaml:",inline"`
}

// RenderText renders one line per check and the overall status.
func (h HealthReport) RenderText(s Styles) string {
	width := 0
	for _, c := range h.Checks {
		if w := lipgloss.Width(c.Name); w > width {
			width = w
		}
	}

	var b strings.Builder
	b.WriteString(s.Title.Render("Diagnostics"))
	for _, c := range h.Checks {
		b.WriteString("\n  ")
		b.WriteString(healthMark(s, c.Status))
		b.WriteString(" ")
		b.WriteString(s.Key.Render(c.Name))
		b.WriteString(strings.Repeat(" ", width-lipgloss.Width(c.Name)+2))
		b.WriteString(c.Message)
		if c.Name == "server" && c.Latency > 0 {
			b.WriteString(s.Muted.Render(fmt.Sprintf(" (%s)", c.Latency.Round(time.Millisecond))))
		}
	}
	b.WriteString("\n\n")
	b.WriteString(healthMark(s, h.Status))
	b.WriteString(" Overall: " + h.Status.String())
	return b.String()
}

func healthMark(s Styles, status health.Status) string {
	switch status {
	case health.StatusHealthy:
		return s.Success.Render("✓")
	case health.StatusDegraded:
		return s.Warning.Render("!")
	default:
		return s.Error.Render("✗")
	}
}

// FormatLabels renders labels as sorted key=value pairs.
func FormatLabels(labels map[string]string) string {
	if len(labels) == 0 {
		return "-"
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+labels[k])
	}
	return strings.Join(parts, ",")
}

func usage(a assets.Asset) string {
	if a.DynamicInfo == nil {
		return "-"
	}
	d := a.DynamicInfo
	return fmt.Sprintf("%.0f%%/%.0f%%/%.0f%%", d.CPUUsage, d.MemoryUsage, d.DiskUsage)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
