// Package view filters, sorts and paginates tasks and records the page that
// was shown so later commands can refer to tasks by position.
package view

import (
	"cmp"
	"iter"
	"slices"
	"strings"
	"time"

	"github.com/stefanpenner/taskdir/pkg/store"
)

// SortKey selects the ordering of a view.
type SortKey string

const (
	SortPriority SortKey = "priority"
	SortDate     SortKey = "date"
	SortDue      SortKey = "due"
)

const (
	DefaultPerPage        = 10
	DefaultCompactPerPage = 20
	MaxPerPage            = 100
)

// ParseSort validates a sort name. The empty string selects priority order.
func ParseSort(s string) (SortKey, error) {
	switch k := SortKey(strings.ToLower(strings.TrimSpace(s))); k {
	case "":
		return SortPriority, nil
	case SortPriority, SortDate, SortDue:
		return k, nil
	}
	return "", store.ValidationError{Field: "sort", Value: s, Reason: "must be priority, date or due"}
}

// Filter is a conjunction of optional clauses. An empty clause places no
// constraint on its field.
type Filter struct {
	Priorities []store.Priority `json:"priorities,omitempty"`
	Project    *string          `json:"project,omitempty"`
	Statuses   []store.Status   `json:"statuses,omitempty"`
}

// Match reports whether t satisfies every clause.
func (f Filter) Match(t *store.Task) bool {
	if len(f.Priorities) > 0 && !slices.Contains(f.Priorities, t.Priority) {
		return false
	}
	if f.Project != nil && t.Project != *f.Project {
		return false
	}
	if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, t.Status) {
		return false
	}
	return true
}

// Query describes one view request.
type Query struct {
	Filter  Filter
	Sort    SortKey
	Page    int
	PerPage int
}

// Validate checks the sort key and pagination bounds.
func (q Query) Validate() error {
	if _, err := ParseSort(string(q.Sort)); err != nil {
		return err
	}
	if q.Page < 1 {
		return store.ValidationError{Field: "page", Value: itoa(q.Page), Reason: "must be at least 1"}
	}
	if q.PerPage < 1 || q.PerPage > MaxPerPage {
		return store.ValidationError{Field: "per_page", Value: itoa(q.PerPage), Reason: "must be between 1 and 100"}
	}
	for _, st := range q.Filter.Statuses {
		if !st.Valid() {
			return store.ValidationError{Field: "status", Value: string(st), Reason: "must be one of inbox, queue, archived"}
		}
	}
	for _, p := range q.Filter.Priorities {
		if !p.Valid() {
			return store.ValidationError{Field: "priority", Value: itoa(int(p)), Reason: "must be 0-3"}
		}
	}
	return nil
}

// Source is the part of the repository a view reads from.
type Source interface {
	List(statuses []store.Status, pred store.Predicate, mode store.ScanMode) iter.Seq2[*store.Task, error]
}

// Result is one page of a view.
type Result struct {
	Tasks    []*store.Task
	Page     int
	PerPage  int
	Total    int
	Offset   int
	Skipped  []error
	Snapshot *Snapshot
}

// Position returns the 1-based view position of the i-th task on the page.
func (r *Result) Position(i int) int {
	return r.Offset + i + 1
}

// Build lists the tasks matching q, sorts and paginates them, and returns
// the page together with the snapshot describing it. Malformed records are
// skipped and reported in Result.Skipped.
func Build(src Source, q Query, now time.Time) (*Result, error) {
	if q.Sort == "" {
		q.Sort = SortPriority
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}

	var (
		tasks   []*store.Task
		skipped []error
	)
	for t, err := range src.List(q.Filter.Statuses, q.Filter.Match, store.ScanSkipMalformed) {
		if err != nil {
			switch store.KindOf(err) {
			case store.KindDecode, store.KindIntegrity:
				skipped = append(skipped, err)
				continue
			}
			return nil, err
		}
		tasks = append(tasks, t)
	}

	Sort(tasks, q.Sort)

	total := len(tasks)
	// Pages past the end are empty. The check runs before multiplying so
	// huge page numbers can't overflow the offset.
	offset := total
	var page []*store.Task
	if q.Page-1 < (total+q.PerPage-1)/q.PerPage {
		offset = (q.Page - 1) * q.PerPage
		page = tasks[offset:min(offset+q.PerPage, total)]
	}

	res := &Result{
		Tasks:   page,
		Page:    q.Page,
		PerPage: q.PerPage,
		Total:   total,
		Offset:  offset,
		Skipped: skipped,
	}
	res.Snapshot = newSnapshot(res, q, now)
	return res, nil
}

// Sort orders tasks in place by key. Equal keys fall back to creation
// time, oldest first, except for SortDate which is newest first.
func Sort(tasks []*store.Task, key SortKey) {
	switch key {
	case SortDate:
		slices.SortStableFunc(tasks, func(a, b *store.Task) int {
			return b.Created.Compare(a.Created)
		})
	case SortDue:
		slices.SortStableFunc(tasks, func(a, b *store.Task) int {
			switch {
			case a.Due == nil && b.Due == nil:
				return a.Created.Compare(b.Created)
			case a.Due == nil:
				return 1
			case b.Due == nil:
				return -1
			}
			if c := a.Due.Compare(b.Due.Time); c != 0 {
				return c
			}
			return a.Created.Compare(b.Created)
		})
	default:
		slices.SortStableFunc(tasks, func(a, b *store.Task) int {
			if c := cmp.Compare(a.Priority, b.Priority); c != 0 {
				return c
			}
			return a.Created.Compare(b.Created)
		})
	}
}
