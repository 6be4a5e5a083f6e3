package ux

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/cjl-github/chiwen/internal/platform"
)

// Styles contains lipgloss styles shared by command output and the console
type Styles struct {
	Title     lipgloss.Style
	Subtitle  lipgloss.Style
	Header    lipgloss.Style
	Cell      lipgloss.Style
	Key       lipgloss.Style
	Muted     lipgloss.Style
	Success   lipgloss.Style
	Warning   lipgloss.Style
	Error     lipgloss.Style
	Border    lipgloss.Style
	Highlight lipgloss.Style
	Help      lipgloss.Style
}

// DefaultStyles returns the default lipgloss styles
func DefaultStyles() Styles {
	return Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("63")), // Purple
		Subtitle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")),
		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("63")).
			Padding(0, 1),
		Cell: lipgloss.NewStyle().
			Padding(0, 1),
		Key: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86")), // Cyan
		Muted: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")), // Gray
		Success: lipgloss.NewStyle().
			Foreground(lipgloss.Color("46")), // Green
		Warning: lipgloss.NewStyle().
			Foreground(lipgloss.Color("226")), // Yellow
		Error: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196")), // Red
		Border: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1),
		Highlight: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("229")).
			Background(lipgloss.Color("57")),
		Help: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")),
	}
}

// PlainStyles returns styles without colors or decoration, keeping only
// the cell padding tables need to line up.
func PlainStyles() Styles {
	plain := lipgloss.NewStyle()
	return Styles{
		Title:     plain,
		Subtitle:  plain,
		Header:    plain.Padding(0, 1),
		Cell:      plain.Padding(0, 1),
		Key:       plain,
		Muted:     plain,
		Success:   plain,
		Warning:   plain,
		Error:     plain,
		Border:    plain.Border(lipgloss.NormalBorder()).Padding(0, 1),
		Highlight: plain.Reverse(true),
		Help:      plain,
	}
}

// StatusStyle picks the style for an asset status.
func (s Styles) StatusStyle(status platform.AssetStatus) lipgloss.Style {
	switch status {
	case platform.StatusOnline:
		return s.Success
	case platform.StatusMaintenance:
		return s.Warning
	case platform.StatusOffline:
		return s.Error
	default:
		return s.Muted
	}
}
