package tui

import (
	"strings"

	"github.com/stefanpenner/taskdir/pkg/store"
	"github.com/stefanpenner/taskdir/pkg/view"
)

// Row is one line of the task list: a task and its position in the
// current view.
type Row struct {
	Position int
	Task     *store.Task
}

// BuildRows converts a view page into list rows.
func BuildRows(res *view.Result) []Row {
	if res == nil {
		return nil
	}
	rows := make([]Row, len(res.Tasks))
	for i, t := range res.Tasks {
		rows[i] = Row{Position: res.Position(i), Task: t}
	}
	return rows
}

// Matches reports whether the row's title, project or tags contain query,
// ignoring case.
func (r Row) Matches(query string) bool {
	q := strings.ToLower(query)
	if strings.Contains(strings.ToLower(r.Task.Title), q) ||
		strings.Contains(strings.ToLower(r.Task.Project), q) {
		return true
	}
	for _, tag := range r.Task.Tags {
		if strings.Contains(strings.ToLower(tag), q) {
			return true
		}
	}
	return false
}

// FilterRows keeps the rows matching query. An empty query keeps all rows.
func FilterRows(rows []Row, query string) []Row {
	if query == "" {
		return rows
	}
	var result []Row
	for _, r := range rows {
		if r.Matches(query) {
			result = append(result, r)
		}
	}
	return result
}

// statusTab is a preset status filter shown as a tab.
type statusTab struct {
	Label    string
	Statuses []store.Status
}

var statusTabs = []statusTab{
	{Label: "active", Statuses: []store.Status{store.StatusInbox, store.StatusQueue}},
	{Label: "inbox", Statuses: []store.Status{store.StatusInbox}},
	{Label: "queue", Statuses: []store.Status{store.StatusQueue}},
	{Label: "archived", Statuses: []store.Status{store.StatusArchived}},
	{Label: "all"},
}

var sortCycle = []view.SortKey{view.SortPriority, view.SortDue, view.SortDate}

func nextSort(k view.SortKey) view.SortKey {
	for i, s := range sortCycle {
		if s == k {
			return sortCycle[(i+1)%len(sortCycle)]
		}
	}
	return sortCycle[0]
}
