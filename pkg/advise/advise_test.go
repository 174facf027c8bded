package advise

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stefanpenner/taskdir/pkg/store"
)

func task(id, title string) *store.Task {
	return &store.Task{ID: id, Title: title, Status: store.StatusInbox}
}

func TestTokenScorer(t *testing.T) {
	existing := []*store.Task{
		task("a", "Review the Q3 draft"),
		task("b", "Book flights to Lisbon"),
		task("c", "Review draft"),
	}

	matches := TokenScorer{Threshold: 0.5}.Score("review Q3 draft!", existing)
	require.Len(t, matches, 2)
	assert.Equal(t, "a", matches[0].ID)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-9)
	assert.Equal(t, "c", matches[1].ID)
	assert.InDelta(t, 2.0/3.0, matches[1].Score, 1e-9)

	assert.Empty(t, TokenScorer{Threshold: 0.5}.Score("the and of", existing))
	assert.Empty(t, TokenScorer{Threshold: 0.9}.Score("review", existing))
}

func TestTitleGroups(t *testing.T) {
	base := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	older := task("1", "Pay rent")
	older.Modified = base
	newer := task("2", "pay  rent ")
	newer.Modified = base.Add(time.Hour)
	archived := task("3", "Call mum")
	archived.Status = store.StatusArchived
	archived.Modified = base
	open := task("4", "call mum")
	open.Modified = base.Add(time.Hour)
	single := task("5", "Unique")

	groups := TitleGroups([]*store.Task{older, newer, archived, open, single})
	require.Len(t, groups, 2)

	assert.Equal(t, "3", groups[0].Keep.ID, "archived copy is kept")
	assert.Equal(t, []*store.Task{open}, groups[0].Dups)

	assert.Equal(t, "2", groups[1].Keep.ID, "newest copy is kept")
	assert.Equal(t, []*store.Task{older}, groups[1].Dups)
}

func TestProjectAlignment(t *testing.T) {
	v := ProjectAlignment{MaxPriority: store.PriorityHigh, KnownProjects: []string{"website"}}

	urgent := &store.Task{Title: "x", Priority: store.PriorityUrgent}
	flags := v.Check(urgent)
	require.Len(t, flags, 1)
	assert.Equal(t, FlagNoProject, flags[0].Code)

	urgent.Project = "garden"
	flags = v.Check(urgent)
	require.Len(t, flags, 1)
	assert.Equal(t, FlagUnknownProject, flags[0].Code)

	urgent.Project = "website"
	assert.Empty(t, v.Check(urgent))

	low := &store.Task{Title: "y", Priority: store.PriorityLow}
	assert.Empty(t, v.Check(low))

	assert.Empty(t, ProjectAlignment{MaxPriority: store.PriorityHigh}.Check(&store.Task{Priority: 0, Project: "anything"}))
}
