// Package advise holds the advisory checks run around task creation. Their
// findings are reported to the caller and never block a write.
package advise

import (
	"cmp"
	"slices"
	"strings"
	"unicode"

	"github.com/stefanpenner/taskdir/pkg/store"
)

// DefaultThreshold is the score at which a match is reported as a likely
// duplicate.
const DefaultThreshold = 0.6

// Match is an existing task scored against a candidate title.
type Match struct {
	ID     string       `json:"id"`
	Title  string       `json:"title"`
	Status store.Status `json:"status"`
	Score  float64      `json:"score"`
}

// Scorer ranks existing tasks by similarity to a candidate title.
type Scorer interface {
	Score(candidate string, existing []*store.Task) []Match
}

// TokenScorer scores by Jaccard similarity of normalised title words.
// Matches below Threshold are dropped.
type TokenScorer struct {
	Threshold float64
}

var stopWords = map[string]bool{
	"a": true, "an": true, "and": true, "the": true, "to": true, "of": true,
	"for": true, "in": true, "on": true, "with": true, "at": true, "by": true,
	"or": true, "is": true, "be": true,
}

func (s TokenScorer) Score(candidate string, existing []*store.Task) []Match {
	want := tokens(candidate)
	var matches []Match
	for _, t := range existing {
		score := jaccard(want, tokens(t.Title))
		if score < s.Threshold || score == 0 {
			continue
		}
		matches = append(matches, Match{ID: t.ID, Title: t.Title, Status: t.Status, Score: score})
	}
	slices.SortStableFunc(matches, func(a, b Match) int {
		return cmp.Compare(b.Score, a.Score)
	})
	return matches
}

func tokens(s string) map[string]bool {
	words := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	set := make(map[string]bool, len(words))
	for _, w := range words {
		if !stopWords[w] {
			set[w] = true
		}
	}
	return set
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	shared := 0
	for w := range a {
		if b[w] {
			shared++
		}
	}
	return float64(shared) / float64(len(a)+len(b)-shared)
}

// Group is a set of tasks sharing one normalised title. Keep is the task to
// retain: the most recently modified one, preferring archived tasks.
type Group struct {
	Title string        `json:"title"`
	Keep  *store.Task   `json:"keep"`
	Dups  []*store.Task `json:"duplicates"`
}

// TitleGroups returns groups of tasks whose titles are identical once case
// and surrounding whitespace are ignored, ordered by title.
func TitleGroups(tasks []*store.Task) []Group {
	byTitle := make(map[string][]*store.Task)
	for _, t := range tasks {
		key := strings.ToLower(strings.Join(strings.Fields(t.Title), " "))
		byTitle[key] = append(byTitle[key], t)
	}

	var groups []Group
	for _, members := range byTitle {
		if len(members) < 2 {
			continue
		}
		slices.SortStableFunc(members, func(a, b *store.Task) int {
			aDone, bDone := a.Status == store.StatusArchived, b.Status == store.StatusArchived
			if aDone != bDone {
				if aDone {
					return -1
				}
				return 1
			}
			return b.Modified.Compare(a.Modified)
		})
		groups = append(groups, Group{Title: members[0].Title, Keep: members[0], Dups: members[1:]})
	}
	slices.SortFunc(groups, func(a, b Group) int {
		return cmp.Compare(a.Title, b.Title)
	})
	return groups
}
