package view

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stefanpenner/taskdir/pkg/store"
)

func hitTitles(hits []Hit) []string {
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.Task.Title
	}
	return out
}

func TestRelevance(t *testing.T) {
	task := &store.Task{
		Title:   "Renew passport",
		Body:    "Photos from the passport booth.",
		Tags:    []string{"travel", "passport-office"},
		Project: "passport",
	}
	tests := []struct {
		text string
		want float64
	}{
		{"renew passport", 0.8},
		{"passport", 0.9},
		{"renew", 0.5},
		{"booth", 0.2},
		{"travel", 0.1},
		{"visa", 0},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.InDelta(t, tt.want, Relevance(task, tt.text), 1e-9)
		})
	}
}

func TestSearchRanksAndFilters(t *testing.T) {
	s := setupStore(t)
	seed(t, s,
		fixture{title: "buy milk", priority: 2},
		fixture{title: "milk the budget", priority: 1, project: "home"},
		fixture{title: "call plumber", priority: 0},
		fixture{title: "Milk", priority: 3},
		fixture{title: "archived milk", priority: 0, status: store.StatusQueue},
	)

	res, err := Search(s, SearchQuery{Text: "MILK"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Milk", "archived milk", "milk the budget", "buy milk"}, hitTitles(res.Hits))
	assert.Equal(t, 4, res.Total)
	assert.InDelta(t, 0.8, res.Hits[0].Score, 1e-9)

	res, err = Search(s, SearchQuery{Text: "milk", Limit: 2})
	require.NoError(t, err)
	assert.Len(t, res.Hits, 2)
	assert.Equal(t, 4, res.Total)

	home := "home"
	res, err = Search(s, SearchQuery{Text: "milk", Filter: Filter{Project: &home}})
	require.NoError(t, err)
	assert.Equal(t, []string{"milk the budget"}, hitTitles(res.Hits))

	res, err = Search(s, SearchQuery{Text: "milk", Filter: Filter{Statuses: []store.Status{store.StatusQueue}}})
	require.NoError(t, err)
	assert.Equal(t, []string{"archived milk"}, hitTitles(res.Hits))

	res, err = Search(s, SearchQuery{Text: "milk", Filter: Filter{Priorities: []store.Priority{store.PriorityLow}}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Milk"}, hitTitles(res.Hits))

	res, err = Search(s, SearchQuery{Text: "nothing like it"})
	require.NoError(t, err)
	assert.Empty(t, res.Hits)
}

func TestSearchValidation(t *testing.T) {
	s := setupStore(t)
	for _, q := range []SearchQuery{
		{Text: "   "},
		{Text: "x", Limit: -1},
		{Text: "x", Limit: MaxPerPage + 1},
		{Text: "x", Filter: Filter{Statuses: []store.Status{"done"}}},
	} {
		_, err := Search(s, q)
		require.Error(t, err, "%+v", q)
		assert.Equal(t, store.KindValidation, store.KindOf(err))
	}
}

func TestSearchSkipsMalformedRecords(t *testing.T) {
	s := setupStore(t)
	seed(t, s, fixture{title: "good milk"})
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(store.StatusInbox), "bad.md"), []byte("milk"), 0o644))

	res, err := Search(s, SearchQuery{Text: "milk"})
	require.NoError(t, err)
	assert.Equal(t, []string{"good milk"}, hitTitles(res.Hits))
	require.Len(t, res.Skipped, 1)
}
