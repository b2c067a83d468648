package tui

import (
	"github.com/charmbracelet/bubbles/key"

	"github.com/st-keller/employee-client/hal"
)

// KeyMap holds the bindings of the employee view.
type KeyMap struct {
	First      key.Binding
	Prev       key.Binding
	Next       key.Binding
	Last       key.Binding
	Grow       key.Binding
	Shrink     key.Binding
	Up         key.Binding
	Down       key.Binding
	Delete     key.Binding
	Refresh    key.Binding
	ToggleHelp key.Binding
	ToggleLogs key.Binding
	Quit       key.Binding
}

// DefaultKeyMap returns the standard bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		First:      key.NewBinding(key.WithKeys("f"), key.WithHelp("f", hal.RelFirst)),
		Prev:       key.NewBinding(key.WithKeys("p"), key.WithHelp("p", hal.RelPrev)),
		Next:       key.NewBinding(key.WithKeys("n"), key.WithHelp("n", hal.RelNext)),
		Last:       key.NewBinding(key.WithKeys("l"), key.WithHelp("l", hal.RelLast)),
		Grow:       key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+/-", "page size")),
		Shrink:     key.NewBinding(key.WithKeys("-")),
		Up:         key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:       key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Delete:     key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		Refresh:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		ToggleHelp: key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more keys")),
		ToggleLogs: key.NewBinding(key.WithKeys("L"), key.WithHelp("L", "recent logs")),
		Quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Grow, k.Delete, k.Refresh, k.ToggleHelp, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.First, k.Prev, k.Next, k.Last},
		{k.Up, k.Down, k.Grow},
		{k.Delete, k.Refresh, k.ToggleLogs, k.ToggleHelp, k.Quit},
	}
}
