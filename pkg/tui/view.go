package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"

	"github.com/stefanpenner/taskdir/pkg/store"
)

const minWidth = 40
const minHeight = 10

// View implements tea.Model.
func (m Model) View() string {
	w := max(m.width, minWidth)
	h := max(m.height, minHeight)

	if m.showHelpModal {
		return placeOverlay(m.renderHelpModal(), w, h)
	}

	var b strings.Builder

	b.WriteString(m.renderHeader(w))
	b.WriteString("\n")
	b.WriteString(m.renderStatusTabs())
	b.WriteString("\n")
	b.WriteString(strings.Repeat("─", w))
	b.WriteString("\n")

	headerLines := 3
	footerLines := 2

	searchActive := m.isSearching || m.searchQuery != ""
	if searchActive {
		headerLines++
	}

	contentHeight := h - headerLines - footerLines

	if searchActive {
		b.WriteString(m.renderSearchBar(w))
		b.WriteString("\n")
	}

	leftWidth := m.listWidth()
	rightWidth := m.detailWidth()

	leftPanel := m.renderListPanel(leftWidth, contentHeight)
	rightPanel := m.renderDetailPanel(rightWidth, contentHeight)

	sepColor := ColorGrayDim
	if m.focusedPane == 1 || m.isEditing {
		sepColor = ColorPurple
	}
	sep := lipgloss.NewStyle().Foreground(sepColor).Render("│")
	for i := range contentHeight {
		b.WriteString(getLine(leftPanel, i, leftWidth))
		b.WriteString(sep)
		b.WriteString(getLine(rightPanel, i, rightWidth))
		b.WriteString("\n")
	}

	b.WriteString(strings.Repeat("─", w))
	b.WriteString("\n")
	b.WriteString(m.renderFooter(w))

	return b.String()
}

func (m Model) renderHeader(width int) string {
	title := HeaderStyle.Render("taskdir")

	stats := ""
	if m.result != nil {
		stats = HeaderCountStyle.Render(fmt.Sprintf("%d tasks • page %d/%d • by %s",
			m.result.Total, m.query.Page, lastPage(m.result.Total, m.query.PerPage), m.query.Sort))
	}

	status := ""
	if m.statusMsg != "" && time.Now().Before(m.statusTimeout) {
		status = "  " + lipgloss.NewStyle().Foreground(ColorCyan).Render(m.statusMsg)
	}

	gap := max(width-lipgloss.Width(title)-lipgloss.Width(stats)-lipgloss.Width(status), 1)
	return title + status + strings.Repeat(" ", gap) + stats
}

func (m Model) renderStatusTabs() string {
	var tabs []string
	tabs = append(tabs, FooterStyle.Render("Status: "))
	for i, tab := range statusTabs {
		if i == m.statusTab {
			tabs = append(tabs, ActiveTabStyle.Render(tab.Label))
		} else {
			tabs = append(tabs, InactiveTabStyle.Render(tab.Label))
		}
	}
	if m.statusTab < 0 {
		var names []string
		for _, st := range m.query.Filter.Statuses {
			names = append(names, string(st))
		}
		tabs = append(tabs, ActiveTabStyle.Render(strings.Join(names, ",")))
	}
	return strings.Join(tabs, "")
}

func (m Model) renderSearchBar(width int) string {
	prefix := SearchBarStyle.Render(" / ")
	query := SearchBarStyle.Render(m.searchQuery)
	cursor := ""
	if m.isSearching {
		cursor = SearchBarStyle.Render("█")
	}

	countStr := ""
	if m.searchQuery != "" {
		countStr = SearchCountStyle.Render(fmt.Sprintf(" %d matches", len(m.rows)))
	}

	left := prefix + query + cursor
	padWidth := max(width-lipgloss.Width(left)-lipgloss.Width(countStr), 1)
	return left + strings.Repeat(" ", padWidth) + countStr
}

func (m Model) renderListPanel(width, height int) string {
	var lines []string

	// Reserve last line for the data root
	listHeight := max(height-1, 1)

	if len(m.rows) == 0 && !m.isInputMode {
		lines = append(lines, FooterStyle.Render("No tasks here. Press 'a' to add one."))
	}

	// Scrolling window
	startIdx := 0
	endIdx := len(m.rows)
	if len(m.rows) > listHeight {
		startIdx = max(m.cursor-listHeight/2, 0)
		endIdx = startIdx + listHeight
		if endIdx > len(m.rows) {
			endIdx = len(m.rows)
			startIdx = max(endIdx-listHeight, 0)
		}
	}

	for i := startIdx; i < endIdx; i++ {
		row := m.rows[i]
		if m.isRenameMode && row.Task.ID == m.renameID {
			lines = append(lines, InputPromptStyle.Render("✎ ")+m.textInput.View())
			continue
		}
		lines = append(lines, m.renderRow(row, i == m.cursor, width))
	}

	if m.isInputMode {
		lines = append(lines, InputPromptStyle.Render("> ")+m.textInput.View())
	}

	for len(lines) < listHeight {
		lines = append(lines, "")
	}

	pathLine := lipgloss.NewStyle().Foreground(ColorGrayDim).Render(fileHyperlink(m.store.Root()))
	lines = append(lines, pathLine)

	return strings.Join(lines, "\n")
}

func (m Model) renderRow(row Row, isSelected bool, width int) string {
	t := row.Task
	pos := PositionStyle.Render(fmt.Sprintf("%3d.", row.Position))
	prio := priorityStyle(t.Priority).Render(t.Priority.String())

	isMatch := m.searchQuery != "" && row.Matches(m.searchQuery)
	name := t.Title
	if isMatch {
		if isSelected {
			name = highlightMatch(name, m.searchQuery, SearchCharSelectedStyle, SelectedStyle)
		} else {
			name = highlightMatch(name, m.searchQuery, SearchCharStyle, SearchRowStyle)
		}
	}

	line := pos + " " + statusIcon(t.Status) + " " + prio + " " + name
	line = truncate.StringWithTail(line, uint(width), "…")

	if lineWidth := lipgloss.Width(line); lineWidth < width {
		line += strings.Repeat(" ", width-lineWidth)
	}

	if isSelected {
		line = SelectedStyle.Render(line)
	} else if isMatch {
		line = SearchRowStyle.Render(line)
	}
	return line
}

func (m Model) renderDetailPanel(width, height int) string {
	row, ok := m.selected()
	if !ok {
		return FooterStyle.Render(" Select a task to view details")
	}
	t := row.Task

	// Reserve last line for file path
	bodyHeight := max(height-1, 1)
	pathLine := lipgloss.NewStyle().Foreground(ColorGrayDim).Render(fileHyperlink(t.Path))

	header := taskHeader(t)

	if m.isEditing {
		headerLines := strings.Split(m.renderMarkdown(header), "\n")

		var lines []string
		lines = append(lines, headerLines...)
		lines = append(lines, strings.Split(m.noteEditor.View(), "\n")...)
		if len(lines) > bodyHeight {
			lines = lines[:bodyHeight]
		}
		for len(lines) < bodyHeight {
			lines = append(lines, "")
		}
		lines = append(lines, pathLine)
		return strings.Join(lines, "\n")
	}

	lines := strings.Split(m.renderMarkdown(header+taskBody(t)), "\n")

	scroll := min(m.notesScroll, len(lines)-1)
	lines = lines[max(scroll, 0):]
	if len(lines) > bodyHeight {
		lines = lines[:bodyHeight]
	}
	for len(lines) < bodyHeight {
		lines = append(lines, "")
	}
	lines = append(lines, pathLine)

	return strings.Join(lines, "\n")
}

func (m Model) renderMarkdown(md string) string {
	out := md
	if m.glamourRenderer != nil {
		if rendered, err := m.glamourRenderer.Render(md); err == nil {
			out = rendered
		}
	}
	return strings.TrimRight(out, "\n ")
}

// taskHeader builds the markdown title and metadata line for a task.
func taskHeader(t *store.Task) string {
	var md strings.Builder

	md.WriteString("# " + t.Title + "\n\n")

	meta := []string{
		"**Priority:** " + t.Priority.String(),
		"**Status:** " + string(t.Status),
	}
	if t.Project != "" {
		meta = append(meta, "**Project:** "+t.Project)
	}
	if t.Classification != "" {
		meta = append(meta, "**Class:** "+t.Classification)
	}
	if t.Due != nil {
		meta = append(meta, "**Due:** "+t.Due.String())
	}
	md.WriteString(strings.Join(meta, " | ") + "\n\n")

	if len(t.Tags) > 0 {
		md.WriteString("**Tags:** " + strings.Join(t.Tags, ", ") + "\n\n")
	}
	return md.String()
}

// taskBody renders the context and checklist as markdown.
func taskBody(t *store.Task) string {
	var md strings.Builder
	if t.Body != "" {
		md.WriteString(t.Body + "\n\n")
	}
	if len(t.Checklist) > 0 {
		md.WriteString("## Checklist\n\n")
		for _, item := range t.Checklist {
			mark := " "
			if item.Done() {
				mark = "x"
			}
			line := "- [" + mark + "] " + item.Description
			switch item.State {
			case store.ItemInProgress, store.ItemCancelled:
				line += " *(" + string(item.State) + ")*"
			}
			if item.Due != nil {
				line += " due " + item.Due.String()
			}
			md.WriteString(line + "\n")
		}
	}
	return md.String()
}

func (m Model) renderFooter(width int) string {
	help := m.keys.ShortHelp()
	switch {
	case m.isInputMode || m.isRenameMode:
		help = "enter confirm  esc cancel"
	case m.isEditing:
		help = "esc save & exit  ctrl+s save  ctrl+c cancel"
	case m.isSearching:
		help = "type to search  enter/↓ keep filter  esc clear"
	case m.searchQuery != "":
		help = "esc/enter clear filter  ↑↓ nav"
	case m.focusedPane == 1:
		help = "↑↓ scroll details  tab list  e edit  E $EDITOR  ? help"
	}
	return FooterStyle.Render(truncate.StringWithTail(help, uint(width), "…"))
}

func (m Model) renderHelpModal() string {
	var b strings.Builder

	b.WriteString(ModalTitleStyle.Render("Keyboard Shortcuts"))
	b.WriteString("\n\n")

	keyStyle := lipgloss.NewStyle().Foreground(ColorBlue).Width(16)
	descStyle := lipgloss.NewStyle().Foreground(ColorWhite)

	for _, binding := range m.keys.FullHelp() {
		b.WriteString(keyStyle.Render(binding[0]))
		b.WriteString(descStyle.Render(binding[1]))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(FooterStyle.Render("Press Esc or ? to close"))

	return ModalStyle.Render(b.String())
}

// highlightMatch splits name into before/match/after and styles the match portion
// with charStyle, and the rest with rowStyle. The match is case-insensitive.
func highlightMatch(name, query string, charStyle, rowStyle lipgloss.Style) string {
	lower := strings.ToLower(name)
	idx := strings.Index(lower, strings.ToLower(query))
	if idx < 0 || idx+len(query) > len(name) {
		return rowStyle.Render(name)
	}
	before := name[:idx]
	match := name[idx : idx+len(query)]
	after := name[idx+len(query):]

	var result string
	if before != "" {
		result += rowStyle.Render(before)
	}
	result += charStyle.Render(match)
	if after != "" {
		result += rowStyle.Render(after)
	}
	return result
}

// fileHyperlink wraps a file path in an OSC 8 terminal hyperlink so it's clickable.
func fileHyperlink(path string) string {
	url := "file://" + path
	return fmt.Sprintf("\x1b]8;;%s\x1b\\%s\x1b]8;;\x1b\\", url, path)
}

func getLine(block string, idx int, width int) string {
	lines := strings.Split(block, "\n")
	if idx < len(lines) {
		line := lines[idx]
		if lineWidth := lipgloss.Width(line); lineWidth < width {
			return line + strings.Repeat(" ", width-lineWidth)
		}
		return line
	}
	return strings.Repeat(" ", width)
}

func placeOverlay(modal string, width, height int) string {
	modalLines := strings.Split(modal, "\n")

	topPadding := max((height-len(modalLines))/2, 0)
	leftPadding := max((width-lipgloss.Width(modalLines[0]))/2, 0)

	var result strings.Builder
	for range topPadding {
		result.WriteString("\n")
	}
	for _, line := range modalLines {
		result.WriteString(strings.Repeat(" ", leftPadding))
		result.WriteString(line)
		result.WriteString("\n")
	}
	return result.String()
}
