package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the moderator key bindings with built-in help text.
type KeyMap struct {
	// Global
	Quit      key.Binding
	ForceQuit key.Binding
	NextPage  key.Binding

	// Session
	ToggleTestMode key.Binding
	StartTask      key.Binding
	EndTask        key.Binding

	// Events
	Click key.Binding
	Error key.Binding
	Help  key.Binding

	// Task name input
	Confirm key.Binding
	Cancel  key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
		ForceQuit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "force quit"),
		),
		NextPage: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "indicator/summary"),
		),

		ToggleTestMode: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "test mode"),
		),
		StartTask: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "new task"),
		),
		EndTask: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "end task"),
		),

		Click: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "click"),
		),
		Error: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "error"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help used"),
		),

		Confirm: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "start"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.ToggleTestMode, k.StartTask, k.EndTask, k.Click, k.Error, k.Help, k.NextPage, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.ToggleTestMode, k.StartTask, k.EndTask},
		{k.Click, k.Error, k.Help},
		{k.NextPage, k.Quit, k.ForceQuit},
	}
}

// inputKeys is the help shown while the task name prompt is focused.
type inputKeys struct {
	Confirm key.Binding
	Cancel  key.Binding
}

func (k inputKeys) ShortHelp() []key.Binding  { return []key.Binding{k.Confirm, k.Cancel} }
func (k inputKeys) FullHelp() [][]key.Binding { return [][]key.Binding{k.ShortHelp()} }
