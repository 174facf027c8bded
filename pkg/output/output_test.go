package output

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stefanpenner/taskdir/pkg/advise"
	"github.com/stefanpenner/taskdir/pkg/batch"
	"github.com/stefanpenner/taskdir/pkg/store"
	"github.com/stefanpenner/taskdir/pkg/view"
)

var now = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

func sampleResult() *view.Result {
	due := store.NewDate(now.AddDate(0, 0, 3))
	overdue := store.NewDate(now.AddDate(0, 0, -2))
	return &view.Result{
		Tasks: []*store.Task{
			{ID: "20261015-120000-test-aaaaaaaa", Title: "Review draft", Priority: 1, Status: store.StatusInbox, Project: "alpha", Due: &due, Body: "Read it twice.", Path: "/data/inbox/20261015-120000-test-aaaaaaaa.md"},
			{ID: "20261015-120001-test-bbbbbbbb", Title: "Pay rent", Priority: 0, Status: store.StatusQueue, Due: &overdue},
		},
		Page:    2,
		PerPage: 2,
		Total:   5,
		Offset:  2,
	}
}

func decode(t *testing.T, s string) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(s), &out))
	return out
}

func TestJSONView(t *testing.T) {
	out := decode(t, NewJSONFormatter().FormatView(sampleResult(), false))

	assert.EqualValues(t, 2, out["page"])
	assert.EqualValues(t, 2, out["per_page"])
	assert.EqualValues(t, 5, out["total"])
	tasks := out["tasks"].([]any)
	require.Len(t, tasks, 2)
	first := tasks[0].(map[string]any)
	assert.EqualValues(t, 3, first["position"])
	assert.Equal(t, "Review draft", first["title"])
	assert.EqualValues(t, 1, first["priority"])
	assert.Equal(t, "20261015-120000-test-aaaaaaaa.md", first["filename"])
	assert.NotContains(t, out, "skipped")
}

func TestJSONShapes(t *testing.T) {
	f := NewJSONFormatter()
	task := &store.Task{ID: "x", Path: "/data/inbox/x.md"}

	created := decode(t, f.FormatCreated(task, nil, nil))
	assert.Equal(t, map[string]any{"id": "x", "location": "/data/inbox/x.md"}, created)

	updated := decode(t, f.FormatUpdated(task, []string{"priority", "due"}))
	assert.Equal(t, "x", updated["id"])
	assert.Equal(t, []any{"priority", "due"}, updated["modified_fields"])

	errOut := decode(t, f.FormatError(store.ValidationError{Field: "title", Reason: "must not be empty"}))
	assert.Equal(t, "validation", errOut["kind"])
	assert.Contains(t, errOut["error"], "title")
}

func TestJSONBatch(t *testing.T) {
	results := []batch.Result{
		{Identifier: "1", Success: true, ID: "a", From: store.StatusInbox, To: store.StatusArchived, Detail: "inbox -> archived"},
		{Identifier: "zzz", Err: errors.New("boom"), Detail: "boom"},
	}
	out := decode(t, NewJSONFormatter().FormatBatch("archive", results))

	assert.EqualValues(t, 1, out["success_count"])
	assert.EqualValues(t, 1, out["failure_count"])
	rs := out["results"].([]any)
	require.Len(t, rs, 2)
	assert.Equal(t, true, rs[0].(map[string]any)["success"])
	assert.Equal(t, "archived", rs[0].(map[string]any)["to"])
	assert.Equal(t, "boom", rs[1].(map[string]any)["error"])
	assert.Equal(t, "internal", rs[1].(map[string]any)["kind"])
}

func TestHumanViewFull(t *testing.T) {
	f := NewHumanFormatter(false, 80, func() time.Time { return now })
	out := f.FormatView(sampleResult(), false)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	assert.Equal(t, "Tasks: 5 • Page 2/3", lines[0])
	assert.Equal(t, "3. P1   +3d [alpha] Review draft (20261015-120000-test-aaaaaaaa.md)", lines[1])
	assert.Equal(t, "            Read it twice.", lines[2])
	assert.True(t, strings.HasPrefix(lines[3], "4. P0   -2d Pay rent"), lines[3])
	assert.Contains(t, out, "Showing 3-4 of 5.")
}

func TestHumanViewCompactTruncates(t *testing.T) {
	res := sampleResult()
	res.Tasks[0].Title = strings.Repeat("long ", 30)
	f := NewHumanFormatter(false, 40, func() time.Time { return now })

	out := f.FormatView(res, true)
	lines := strings.Split(out, "\n")
	assert.True(t, strings.HasSuffix(lines[1], "…"), lines[1])
	assert.NotContains(t, out, "Read it twice.")
}

func TestHumanViewEmpty(t *testing.T) {
	f := NewHumanFormatter(false, 80, nil)
	out := f.FormatView(&view.Result{Page: 3, PerPage: 10, Total: 4, Offset: 20, Skipped: []error{errors.New("bad")}}, false)
	assert.Contains(t, out, "No tasks to show.")
	assert.Contains(t, out, "Skipped 1 unreadable record(s)")
}

func TestHumanTask(t *testing.T) {
	due := store.NewDate(now)
	done := store.NewDate(now)
	task := &store.Task{
		ID: "x", Title: "Plan trip", Priority: 2, Status: store.StatusInbox, Due: &due,
		Tags: []string{"travel"}, Body: "Book flights.",
		Checklist: []store.ChecklistItem{
			{Description: "pick dates", State: store.ItemDone, Completed: &done},
			{Description: "ask for leave", State: store.ItemTodo, Priority: store.ItemPriorityHigh},
		},
	}
	out := NewHumanFormatter(false, 80, func() time.Time { return now }).FormatTask(task)

	assert.Contains(t, out, "P2 Plan trip")
	assert.Contains(t, out, "Due:      2026-10-15 (0d)")
	assert.Contains(t, out, "Book flights.")
	assert.Contains(t, out, "1. [x] pick dates (done 2026-10-15)")
	assert.Contains(t, out, "2. [ ] ask for leave (high)")
}

func TestHumanBatchAndAdvisories(t *testing.T) {
	f := NewHumanFormatter(false, 80, nil)
	out := f.FormatBatch("archive", []batch.Result{
		{Identifier: "1", Success: true, ID: "a", Detail: "inbox -> archived"},
		{Identifier: "9", Detail: "index out of range"},
	})
	assert.Contains(t, out, "✓ 1 a: inbox -> archived")
	assert.Contains(t, out, "✗ 9: index out of range")
	assert.Contains(t, out, "archive: 1 succeeded, 1 failed")

	out = f.FormatCreated(&store.Task{ID: "new", Path: "/p"}, []advise.Match{{ID: "old", Title: "Same", Status: store.StatusQueue, Score: 0.75}}, []advise.Flag{{Message: "P0 task has no project"}})
	assert.Contains(t, out, "Created new")
	assert.Contains(t, out, "75%  old  Same (queue)")
	assert.Contains(t, out, "Note: P0 task has no project")
}

func TestRelativeDue(t *testing.T) {
	for offset, want := range map[int]string{0: "0d", 1: "+1d", 10: "+10d", -3: "-3d"} {
		d := store.NewDate(now.AddDate(0, 0, offset))
		got, _ := relativeDue(&d, now)
		assert.Equal(t, want, got)
	}
	got, _ := relativeDue(nil, now)
	assert.Empty(t, got)
}

func sampleSearch() *view.SearchResult {
	res := sampleResult()
	return &view.SearchResult{
		Query: "rent",
		Hits: []view.Hit{
			{Task: res.Tasks[1], Score: 0.5},
		},
		Total:   2,
		Skipped: []error{store.DecodeError{Path: "/data/inbox/bad.md", Reason: "missing frontmatter header"}},
	}
}

func TestHumanSearch(t *testing.T) {
	f := NewHumanFormatter(false, 100, func() time.Time { return now })

	out := f.FormatSearch(sampleSearch())
	assert.Contains(t, out, `Found 2 task(s) matching "rent", showing 1:`)
	assert.Contains(t, out, " 50%  P0 queue    Pay rent (20261015-120001-test-bbbbbbbb.md)")
	assert.Contains(t, out, "Skipped 1 unreadable record(s)")

	empty := f.FormatSearch(&view.SearchResult{Query: "visa"})
	assert.Equal(t, "No tasks match \"visa\".\n", empty)
}

func TestJSONSearch(t *testing.T) {
	out := decode(t, NewJSONFormatter().FormatSearch(sampleSearch()))

	assert.Equal(t, "rent", out["query"])
	assert.EqualValues(t, 2, out["total"])
	results := out["results"].([]any)
	require.Len(t, results, 1)
	hit := results[0].(map[string]any)
	assert.EqualValues(t, 0.5, hit["score"])
	assert.Equal(t, "Pay rent", hit["title"])
	assert.Equal(t, "20261015-120001-test-bbbbbbbb.md", hit["filename"])
	skipped := out["skipped"].([]any)
	require.Len(t, skipped, 1)
	assert.Equal(t, "decode", skipped[0].(map[string]any)["kind"])
}
