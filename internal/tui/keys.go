package tui

import (
	"github.com/charmbracelet/bubbles/key"

	"github.com/cjl-github/chiwen/internal/navigation"
)

// keyMap defines the keyboard shortcuts
type keyMap struct {
	Quit      key.Binding
	ForceQuit key.Binding
	NextField key.Binding
	PrevField key.Binding
	Submit    key.Binding
	Menu      key.Binding
	Refresh   key.Binding
	Delete    key.Binding
	Category  key.Binding
	Logout    key.Binding
	Confirm   key.Binding
	Cancel    key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
		ForceQuit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
		NextField: key.NewBinding(
			key.WithKeys("tab", "down"),
			key.WithHelp("tab", "next field"),
		),
		PrevField: key.NewBinding(
			key.WithKeys("shift+tab", "up"),
			key.WithHelp("shift+tab", "previous field"),
		),
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "sign in"),
		),
		Menu: key.NewBinding(
			key.WithKeys("1", "2", "3", "4", "5", "6", "7", "8", "9"),
			key.WithHelp("1-9", "go to"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		Delete: key.NewBinding(
			key.WithKeys("x", "delete"),
			key.WithHelp("x", "delete"),
		),
		Category: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "category"),
		),
		Logout: key.NewBinding(
			key.WithKeys("L"),
			key.WithHelp("L", "logout"),
		),
		Confirm: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "confirm"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("n", "esc"),
			key.WithHelp("n", "cancel"),
		),
	}
}

func (k keyMap) loginHelp() []key.Binding {
	return []key.Binding{k.NextField, k.Submit, k.ForceQuit}
}

func (k keyMap) screenHelp(route string) []key.Binding {
	if route == navigation.RouteAssets {
		return []key.Binding{k.Menu, k.Refresh, k.Category, k.Delete, k.Logout, k.Quit}
	}
	return []key.Binding{k.Menu, k.Logout, k.Quit}
}

func (k keyMap) confirmHelp() []key.Binding {
	return []key.Binding{k.Confirm, k.Cancel}
}
