// Package tui is an interactive browser over the current view.
package tui

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"go.uber.org/zap"

	"github.com/stefanpenner/taskdir/pkg/batch"
	"github.com/stefanpenner/taskdir/pkg/resolve"
	"github.com/stefanpenner/taskdir/pkg/store"
	"github.com/stefanpenner/taskdir/pkg/view"
)

// FileChangedMsg is sent when the file watcher detects changes.
type FileChangedMsg struct{}

// SyncDoneMsg is sent when git sync completes.
type SyncDoneMsg struct {
	Err error
}

// EditorFinishedMsg is sent when $EDITOR returns.
type EditorFinishedMsg struct {
	Err error
}

// Syncer exchanges the data root with its remote.
type Syncer interface {
	Sync(ctx context.Context) error
}

// Options configures NewModel. Syncer and Log may be nil.
type Options struct {
	Store   *store.Store
	Session *view.Session
	Query   view.Query
	Syncer  Syncer
	Log     *zap.Logger
}

// Model is the Bubble Tea model for the task browser.
type Model struct {
	store   *store.Store
	session *view.Session
	syncer  Syncer
	log     *zap.Logger
	keys    KeyMap
	width   int
	height  int

	query       view.Query
	statusTab   int // index into statusTabs, -1 for a custom filter
	result      *view.Result
	rows        []Row
	cursor      int
	focusedPane int // 0 = list, 1 = details
	notesScroll int

	showHelpModal bool

	// Input mode (adding tasks) and rename mode share the text input
	isInputMode  bool
	isRenameMode bool
	renameID     string
	textInput    textinput.Model

	// Inline edit of the context section
	isEditing  bool
	noteEditor textarea.Model
	editID     string

	isSearching bool
	searchQuery string

	statusMsg     string
	statusTimeout time.Time

	// Cached glamour renderer (expensive to create)
	glamourRenderer *glamour.TermRenderer
	glamourWidth    int
}

// NewModel creates a new TUI model. Zero pagination fields in the query
// get the view defaults.
func NewModel(opts Options) Model {
	ti := textinput.New()
	ti.Placeholder = "task title"
	ti.CharLimit = 200

	q := opts.Query
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PerPage == 0 {
		q.PerPage = view.DefaultPerPage
	}
	if q.Sort == "" {
		q.Sort = view.SortPriority
	}
	tab := -1
	for i, st := range statusTabs {
		if slices.Equal(st.Statuses, q.Filter.Statuses) {
			tab = i
			break
		}
	}

	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}

	return Model{
		store:     opts.Store,
		session:   opts.Session,
		syncer:    opts.Syncer,
		log:       log,
		keys:      DefaultKeyMap(),
		query:     q,
		statusTab: tab,
		textInput: ti,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.WindowSize()
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.getGlamourRenderer(m.detailWidth() - 2)
		if m.isEditing {
			m.sizeEditor()
		}
		m.reload()
		return m, tea.ClearScreen

	case FileChangedMsg:
		m.reload()
		return m, nil

	case SyncDoneMsg:
		if msg.Err != nil {
			m.setStatus("Sync failed: " + msg.Err.Error())
		} else {
			m.setStatus("Synced successfully")
			m.reload()
		}
		return m, nil

	case EditorFinishedMsg:
		if msg.Err != nil {
			m.setStatus("Editor failed: " + msg.Err.Error())
		}
		m.reload()
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	}

	if m.isInputMode || m.isRenameMode {
		var cmd tea.Cmd
		m.textInput, cmd = m.textInput.Update(msg)
		return m, cmd
	}

	if m.isEditing {
		var cmd tea.Cmd
		m.noteEditor, cmd = m.noteEditor.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.isInputMode {
		switch msg.Type {
		case tea.KeyEsc:
			m.isInputMode = false
			return m, nil
		case tea.KeyEnter:
			title := strings.TrimSpace(m.textInput.Value())
			if title != "" {
				t, err := m.store.Create(store.NewTask{Title: title})
				if err != nil {
					m.setStatus("Error: " + err.Error())
				} else {
					m.setStatus("Created: " + t.ID)
					m.reload()
				}
			}
			m.isInputMode = false
			return m, nil
		default:
			var cmd tea.Cmd
			m.textInput, cmd = m.textInput.Update(msg)
			return m, cmd
		}
	}

	if m.isRenameMode {
		switch msg.Type {
		case tea.KeyEsc:
			m.isRenameMode = false
			return m, nil
		case tea.KeyEnter:
			title := strings.TrimSpace(m.textInput.Value())
			if title != "" {
				if _, _, err := m.store.Update(m.renameID, store.Patch{Title: &title}); err != nil {
					m.setStatus("Error: " + err.Error())
				} else {
					m.setStatus("Renamed to: " + title)
					m.reload()
				}
			}
			m.isRenameMode = false
			return m, nil
		default:
			var cmd tea.Cmd
			m.textInput, cmd = m.textInput.Update(msg)
			return m, cmd
		}
	}

	if m.isEditing {
		return m.handleEditMode(msg)
	}

	if m.isSearching {
		return m.handleSearchInput(msg)
	}

	if m.showHelpModal {
		switch msg.String() {
		case "esc", "enter", "?", "q":
			m.showHelpModal = false
		}
		return m, nil
	}

	// An active search filter is cleared by Esc/Enter
	if m.searchQuery != "" && (msg.Type == tea.KeyEsc || msg.Type == tea.KeyEnter) {
		m.clearSearch()
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Up):
		if m.focusedPane == 1 {
			if m.notesScroll > 0 {
				m.notesScroll--
			}
		} else if m.cursor > 0 {
			m.cursor--
			m.notesScroll = 0
		}

	case key.Matches(msg, m.keys.Down):
		if m.focusedPane == 1 {
			m.notesScroll++
		} else if m.cursor < len(m.rows)-1 {
			m.cursor++
			m.notesScroll = 0
		}

	case key.Matches(msg, m.keys.Tab):
		m.focusedPane = 1 - m.focusedPane

	case key.Matches(msg, m.keys.NextStatus):
		m.switchStatusTab(1)

	case key.Matches(msg, m.keys.PrevStatus):
		m.switchStatusTab(-1)

	case key.Matches(msg, m.keys.NextPage):
		if m.result != nil && m.query.Page < lastPage(m.result.Total, m.query.PerPage) {
			m.query.Page++
			m.cursor = 0
			m.reload()
		}

	case key.Matches(msg, m.keys.PrevPage):
		if m.query.Page > 1 {
			m.query.Page--
			m.cursor = 0
			m.reload()
		}

	case key.Matches(msg, m.keys.Sort):
		m.query.Sort = nextSort(m.query.Sort)
		m.query.Page = 1
		m.cursor = 0
		m.reload()
		m.setStatus("Sorted by " + string(m.query.Sort))

	case key.Matches(msg, m.keys.Add):
		m.isInputMode = true
		m.textInput.SetValue("")
		m.textInput.Placeholder = "task title"
		cmd := m.textInput.Focus()
		return m, cmd

	case key.Matches(msg, m.keys.Rename):
		if row, ok := m.selected(); ok {
			m.isRenameMode = true
			m.renameID = row.Task.ID
			m.textInput.SetValue(row.Task.Title)
			m.textInput.CursorEnd()
			cmd := m.textInput.Focus()
			return m, cmd
		}

	case key.Matches(msg, m.keys.InlineEdit):
		if row, ok := m.selected(); ok {
			cmd := m.enterEditMode(row.Task)
			return m, cmd
		}

	case key.Matches(msg, m.keys.ExternalEdit):
		if row, ok := m.selected(); ok {
			return m, m.openEditor(row.Task)
		}

	case key.Matches(msg, m.keys.Archive):
		m.applyToSelected(batch.Archive())

	case key.Matches(msg, m.keys.Unarchive):
		m.applyToSelected(batch.Unarchive())

	case key.Matches(msg, m.keys.Search):
		m.isSearching = true
		m.searchQuery = ""

	case key.Matches(msg, m.keys.Reload):
		m.reload()
		m.setStatus("Reloaded")

	case key.Matches(msg, m.keys.Sync):
		if m.syncer == nil {
			m.setStatus("Sync is not configured")
			return m, nil
		}
		m.setStatus("Syncing...")
		return m, m.doSync()

	case key.Matches(msg, m.keys.Help):
		m.showHelpModal = true
	}

	return m, nil
}

// handleEditMode handles keys while the context editor is open.
func (m Model) handleEditMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.saveInlineEdit()
		m.isEditing = false
		m.noteEditor.Blur()
		m.reload()
		return m, nil
	case tea.KeyCtrlS:
		m.saveInlineEdit()
		return m, nil
	case tea.KeyCtrlC:
		m.isEditing = false
		m.noteEditor.Blur()
		m.setStatus("Edit cancelled")
		return m, nil
	}
	var cmd tea.Cmd
	m.noteEditor, cmd = m.noteEditor.Update(msg)
	return m, cmd
}

// handleSearchInput handles key messages while typing in the search bar.
func (m Model) handleSearchInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.isSearching = false
		m.clearSearch()
		return m, nil

	case tea.KeyEnter, tea.KeyDown, tea.KeyTab:
		// Keep the filter, leave the search bar
		m.isSearching = false
		return m, nil

	case tea.KeyBackspace:
		if len(m.searchQuery) > 0 {
			_, size := utf8.DecodeLastRuneInString(m.searchQuery)
			m.searchQuery = m.searchQuery[:len(m.searchQuery)-size]
		}
		m.rebuildVisible()
		return m, nil

	default:
		if msg.Type == tea.KeyRunes || msg.Type == tea.KeySpace {
			m.searchQuery += string(msg.Runes)
			m.rebuildVisible()
		}
		return m, nil
	}
}

func (m *Model) clearSearch() {
	var curID string
	if row, ok := m.selected(); ok {
		curID = row.Task.ID
	}
	m.searchQuery = ""
	m.rebuildVisible()
	m.moveCursorTo(curID)
}

// enterEditMode sets up the textarea for inline editing of a task's context.
func (m *Model) enterEditMode(t *store.Task) tea.Cmd {
	ta := textarea.New()
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.SetValue(t.Body)
	m.noteEditor = ta
	m.sizeEditor()
	m.isEditing = true
	m.editID = t.ID
	m.focusedPane = 1
	return m.noteEditor.Focus()
}

func (m *Model) sizeEditor() {
	m.noteEditor.SetWidth(max(m.detailWidth(), 20))
	// header estimate + file path line
	m.noteEditor.SetHeight(max(m.height-5-4-1, 3))
}

func (m *Model) saveInlineEdit() {
	body := m.noteEditor.Value()
	if _, _, err := m.store.Update(m.editID, store.Patch{Body: &body}); err != nil {
		m.setStatus("Save failed: " + err.Error())
		return
	}
	m.setStatus("Saved")
}

// applyToSelected runs op on the selected row, addressing it by its
// position in the current view.
func (m *Model) applyToSelected(op batch.Operation) {
	row, ok := m.selected()
	if !ok {
		return
	}
	mut := batch.New(m.store, resolve.New(m.store, m.session.Current()), m.log)
	results := mut.Apply(op, []string{strconv.Itoa(row.Position)})
	r := results[0]
	if !r.Success {
		m.setStatus(fmt.Sprintf("%s #%d failed: %s", op.Name(), row.Position, r.Detail))
		return
	}
	m.setStatus(fmt.Sprintf("%s #%d: %s", op.Name(), row.Position, r.Detail))
	m.reload()
}

func (m *Model) switchStatusTab(delta int) {
	n := len(statusTabs)
	m.statusTab = ((m.statusTab+delta)%n + n) % n
	m.query.Filter.Statuses = statusTabs[m.statusTab].Statuses
	m.query.Page = 1
	m.cursor = 0
	m.reload()
}

func (m *Model) selected() (Row, bool) {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return Row{}, false
	}
	return m.rows[m.cursor], true
}

func (m *Model) moveCursorTo(id string) {
	for i, row := range m.rows {
		if row.Task.ID == id {
			m.cursor = i
			return
		}
	}
}

// reload rebuilds the current view. A page that emptied out steps back to
// the last page that still has tasks.
func (m *Model) reload() {
	res, err := m.session.Build(m.store, m.query)
	if err != nil {
		m.setStatus("Load error: " + err.Error())
		return
	}
	if len(res.Tasks) == 0 && m.query.Page > 1 {
		m.query.Page = lastPage(res.Total, m.query.PerPage)
		if again, err := m.session.Build(m.store, m.query); err == nil {
			res = again
		}
	}
	m.result = res
	if n := len(res.Skipped); n > 0 {
		m.setStatus(fmt.Sprintf("Skipped %d unreadable record(s); run 'taskdir check'", n))
		for _, err := range res.Skipped {
			m.log.Warn("skipped record", zap.Error(err))
		}
	}
	m.rebuildVisible()
}

func (m *Model) rebuildVisible() {
	m.rows = FilterRows(BuildRows(m.result), m.searchQuery)

	if m.cursor >= len(m.rows) {
		m.cursor = len(m.rows) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func lastPage(total, perPage int) int {
	if perPage < 1 || total == 0 {
		return 1
	}
	return (total + perPage - 1) / perPage
}

func (m Model) listWidth() int {
	return max(m.width/3, 30)
}

func (m Model) detailWidth() int {
	return max(m.width-m.listWidth()-1, 20)
}

// getGlamourRenderer returns a cached glamour renderer, creating one if needed
// or if the width changed.
func (m *Model) getGlamourRenderer(width int) *glamour.TermRenderer {
	if m.glamourRenderer != nil && m.glamourWidth == width {
		return m.glamourRenderer
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStylePath("dark"),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil
	}
	m.glamourRenderer = r
	m.glamourWidth = width
	return r
}

func (m *Model) setStatus(msg string) {
	m.statusMsg = msg
	m.statusTimeout = time.Now().Add(3 * time.Second)
}

func (m *Model) openEditor(t *store.Task) tea.Cmd {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = "vim"
	}
	c := exec.Command(editor, t.Path)
	return tea.ExecProcess(c, func(err error) tea.Msg {
		return EditorFinishedMsg{Err: err}
	})
}

func (m Model) doSync() tea.Cmd {
	syncer := m.syncer
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		return SyncDoneMsg{Err: syncer.Sync(ctx)}
	}
}
