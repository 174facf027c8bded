package view

import (
	"cmp"
	"slices"
	"strings"

	"github.com/stefanpenner/taskdir/pkg/store"
)

// DefaultSearchLimit is the number of hits Search returns when the query
// doesn't say.
const DefaultSearchLimit = 10

// SearchQuery looks for Text in tasks that pass Filter.
type SearchQuery struct {
	Text   string
	Filter Filter
	Limit  int
}

// Hit is a task that matched a search, with its relevance in (0, 1].
type Hit struct {
	Task  *store.Task `json:"task"`
	Score float64     `json:"score"`
}

// SearchResult holds the best hits and any records the scan skipped.
type SearchResult struct {
	Query   string
	Hits    []Hit
	Total   int
	Skipped []error
}

// Validate checks the text, the limit and the filter values.
func (q SearchQuery) Validate() error {
	if strings.TrimSpace(q.Text) == "" {
		return store.ValidationError{Field: "query", Reason: "must not be empty"}
	}
	if q.Limit < 1 || q.Limit > MaxPerPage {
		return store.ValidationError{Field: "limit", Value: itoa(q.Limit), Reason: "must be between 1 and 100"}
	}
	return Query{Filter: q.Filter, Page: 1, PerPage: 1}.Validate()
}

// Search scores every task passing the filter against the query text and
// returns the best matches, highest score first. Ties go to the more urgent
// task, then the older one. Malformed records are skipped and reported.
func Search(src Source, q SearchQuery) (*SearchResult, error) {
	if q.Limit == 0 {
		q.Limit = DefaultSearchLimit
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}

	text := strings.ToLower(strings.TrimSpace(q.Text))
	res := &SearchResult{Query: strings.TrimSpace(q.Text)}
	for t, err := range src.List(q.Filter.Statuses, q.Filter.Match, store.ScanSkipMalformed) {
		if err != nil {
			switch store.KindOf(err) {
			case store.KindDecode, store.KindIntegrity:
				res.Skipped = append(res.Skipped, err)
				continue
			}
			return nil, err
		}
		if score := Relevance(t, text); score > 0 {
			res.Hits = append(res.Hits, Hit{Task: t, Score: score})
		}
	}

	slices.SortStableFunc(res.Hits, func(a, b Hit) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Task.Priority, b.Task.Priority); c != 0 {
			return c
		}
		return a.Task.Created.Compare(b.Task.Created)
	})
	res.Total = len(res.Hits)
	if len(res.Hits) > q.Limit {
		res.Hits = res.Hits[:q.Limit]
	}
	return res, nil
}

// Relevance scores t against lowercase text: a title match counts most,
// an exact title more, then the context, a tag and the project.
func Relevance(t *store.Task, text string) float64 {
	var score float64
	title := strings.ToLower(t.Title)
	if strings.Contains(title, text) {
		score += 0.5
		if title == text {
			score += 0.3
		}
	}
	if strings.Contains(strings.ToLower(t.Body), text) {
		score += 0.2
	}
	for _, tag := range t.Tags {
		if strings.Contains(strings.ToLower(tag), text) {
			score += 0.1
			break
		}
	}
	if t.Project != "" && strings.Contains(strings.ToLower(t.Project), text) {
		score += 0.1
	}
	return min(score, 1.0)
}
