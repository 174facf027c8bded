package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all key bindings for the TUI.
type KeyMap struct {
	Up           key.Binding
	Down         key.Binding
	Tab          key.Binding
	NextStatus   key.Binding
	PrevStatus   key.Binding
	NextPage     key.Binding
	PrevPage     key.Binding
	Sort         key.Binding
	Add          key.Binding
	Rename       key.Binding
	InlineEdit   key.Binding
	ExternalEdit key.Binding
	Archive      key.Binding
	Unarchive    key.Binding
	Search       key.Binding
	Reload       key.Binding
	Sync         key.Binding
	Help         key.Binding
	Quit         key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Tab: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "switch pane"),
		),
		NextStatus: key.NewBinding(
			key.WithKeys("]"),
			key.WithHelp("]", "next status filter"),
		),
		PrevStatus: key.NewBinding(
			key.WithKeys("["),
			key.WithHelp("[", "prev status filter"),
		),
		NextPage: key.NewBinding(
			key.WithKeys("n", "pgdown"),
			key.WithHelp("n", "next page"),
		),
		PrevPage: key.NewBinding(
			key.WithKeys("p", "pgup"),
			key.WithHelp("p", "prev page"),
		),
		Sort: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "cycle sort"),
		),
		Add: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "add task"),
		),
		Rename: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "rename task"),
		),
		InlineEdit: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "edit context"),
		),
		ExternalEdit: key.NewBinding(
			key.WithKeys("E"),
			key.WithHelp("E", "$EDITOR"),
		),
		Archive: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "archive"),
		),
		Unarchive: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u", "unarchive"),
		),
		Search: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "search"),
		),
		Reload: key.NewBinding(
			key.WithKeys("R"),
			key.WithHelp("R", "reload"),
		),
		Sync: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "git sync"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp returns the footer help text.
func (k KeyMap) ShortHelp() string {
	return "↑↓ nav  tab pane  [ ] status  n/p page  o sort  x archive  u unarchive  / search  ? help"
}

// FullHelp returns all key bindings for the help modal.
func (k KeyMap) FullHelp() [][]string {
	return [][]string{
		{"↑/k", "Move up"},
		{"↓/j", "Move down"},
		{"tab", "Switch pane (list / details)"},
		{"]", "Next status filter"},
		{"[", "Previous status filter"},
		{"n", "Next page"},
		{"p", "Previous page"},
		{"o", "Cycle sort: priority, due, date"},
		{"a", "Add task to the inbox"},
		{"r", "Rename task"},
		{"e", "Edit context inline"},
		{"E", "Edit file in $EDITOR"},
		{"x", "Archive task"},
		{"u", "Unarchive task"},
		{"/", "Search this page"},
		{"R", "Reload from filesystem"},
		{"s", "Git sync"},
		{"?", "Toggle help"},
		{"q", "Quit"},
	}
}
