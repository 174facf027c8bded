package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/stefanpenner/taskdir/pkg/store"
)

// Color palette
var (
	ColorPurple      = lipgloss.Color("#7D56F4")
	ColorGreen       = lipgloss.Color("#25A065")
	ColorBlue        = lipgloss.Color("#4285F4")
	ColorRed         = lipgloss.Color("#E05252")
	ColorYellow      = lipgloss.Color("#E5C07B")
	ColorGray        = lipgloss.Color("#626262")
	ColorGrayDim     = lipgloss.Color("#404040")
	ColorWhite       = lipgloss.Color("#FFFFFF")
	ColorOffWhite    = lipgloss.Color("#D0D0D0")
	ColorSelectionBg = lipgloss.Color("#2D3B4D")
	ColorCyan        = lipgloss.Color("#56B6C2")
	ColorOrange      = lipgloss.Color("#D19A66")
)

// Header styles
var (
	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPurple)

	HeaderCountStyle = lipgloss.NewStyle().
				Foreground(ColorGray)

	FooterStyle = lipgloss.NewStyle().
			Foreground(ColorGray)
)

// Tab styles
var (
	ActiveTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorWhite).
			Background(ColorPurple).
			Padding(0, 1)

	InactiveTabStyle = lipgloss.NewStyle().
				Foreground(ColorGray).
				Padding(0, 1)
)

// List styles
var (
	SelectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorWhite).
			Background(ColorSelectionBg)

	ArchivedStyle = lipgloss.NewStyle().
			Foreground(ColorGreen)

	QueueStyle = lipgloss.NewStyle().
			Foreground(ColorYellow)

	InboxStyle = lipgloss.NewStyle().
			Foreground(ColorOffWhite)

	PositionStyle = lipgloss.NewStyle().
			Foreground(ColorGray)
)

// Priority styles, indexed by store.Priority.
var priorityStyles = [...]lipgloss.Style{
	lipgloss.NewStyle().Bold(true).Foreground(ColorRed),
	lipgloss.NewStyle().Foreground(ColorOrange),
	lipgloss.NewStyle().Foreground(ColorBlue),
	lipgloss.NewStyle().Foreground(ColorGray),
}

func priorityStyle(p store.Priority) lipgloss.Style {
	if p.Valid() {
		return priorityStyles[p]
	}
	return lipgloss.NewStyle()
}

// Modal styles
var (
	ModalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorPurple).
			Padding(1, 2)

	ModalTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPurple)
)

// Input styles
var (
	InputPromptStyle = lipgloss.NewStyle().
				Foreground(ColorPurple).
				Bold(true)
)

// Search styles
var (
	ColorSearchRowBg  = lipgloss.Color("#1E1A2E")
	ColorSearchCharBg = lipgloss.Color("#2E2545")

	SearchBarStyle = lipgloss.NewStyle().
			Foreground(ColorWhite)

	SearchRowStyle = lipgloss.NewStyle().
			Background(ColorSearchRowBg)

	SearchCharStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPurple).
			Background(ColorSearchCharBg)

	SearchCharSelectedStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(ColorPurple).
				Background(ColorSelectionBg)

	SearchCountStyle = lipgloss.NewStyle().
				Foreground(ColorGray)
)

// Status icons
const (
	IconArchived = "✓"
	IconQueue    = "◐"
	IconInbox    = "○"
)

func statusIcon(s store.Status) string {
	switch s {
	case store.StatusArchived:
		return ArchivedStyle.Render(IconArchived)
	case store.StatusQueue:
		return QueueStyle.Render(IconQueue)
	default:
		return InboxStyle.Render(IconInbox)
	}
}
