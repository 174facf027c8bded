package output

import (
	"encoding/json"

	"github.com/stefanpenner/taskdir/pkg/advise"
	"github.com/stefanpenner/taskdir/pkg/batch"
	"github.com/stefanpenner/taskdir/pkg/store"
	"github.com/stefanpenner/taskdir/pkg/view"
)

// JSONFormatter formats output as JSON.
type JSONFormatter struct{}

// NewJSONFormatter creates a new JSONFormatter.
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

// marshalJSON marshals a value to indented JSON with a trailing newline.
func marshalJSON(v any) string {
	data, _ := json.MarshalIndent(v, "", "  ")
	return string(data) + "\n"
}

type viewTaskJSON struct {
	Position int    `json:"position"`
	Filename string `json:"filename"`
	*store.Task
}

type viewJSON struct {
	Tasks   []viewTaskJSON `json:"tasks"`
	Page    int            `json:"page"`
	PerPage int            `json:"per_page"`
	Total   int            `json:"total"`
	Skipped []errorJSON    `json:"skipped,omitempty"`
}

// FormatView formats one page of a view. Compact output is the same shape.
func (f *JSONFormatter) FormatView(res *view.Result, _ bool) string {
	out := viewJSON{
		Tasks:   make([]viewTaskJSON, len(res.Tasks)),
		Page:    res.Page,
		PerPage: res.PerPage,
		Total:   res.Total,
	}
	for i, t := range res.Tasks {
		out.Tasks[i] = viewTaskJSON{Position: res.Position(i), Filename: t.Filename(), Task: t}
	}
	for _, err := range res.Skipped {
		out.Skipped = append(out.Skipped, toErrorJSON(err))
	}
	return marshalJSON(out)
}

type hitJSON struct {
	Score    float64 `json:"score"`
	Filename string  `json:"filename"`
	*store.Task
}

type searchJSON struct {
	Query   string      `json:"query"`
	Results []hitJSON   `json:"results"`
	Total   int         `json:"total"`
	Skipped []errorJSON `json:"skipped,omitempty"`
}

// FormatSearch formats search hits, best first.
func (f *JSONFormatter) FormatSearch(res *view.SearchResult) string {
	out := searchJSON{Query: res.Query, Results: make([]hitJSON, len(res.Hits)), Total: res.Total}
	for i, h := range res.Hits {
		out.Results[i] = hitJSON{Score: h.Score, Filename: h.Task.Filename(), Task: h.Task}
	}
	for _, err := range res.Skipped {
		out.Skipped = append(out.Skipped, toErrorJSON(err))
	}
	return marshalJSON(out)
}

type createdJSON struct {
	ID         string         `json:"id"`
	Location   string         `json:"location"`
	Duplicates []advise.Match `json:"possible_duplicates,omitempty"`
	Flags      []advise.Flag  `json:"flags,omitempty"`
}

// FormatCreated formats the result of create.
func (f *JSONFormatter) FormatCreated(t *store.Task, dups []advise.Match, flags []advise.Flag) string {
	return marshalJSON(createdJSON{ID: t.ID, Location: t.Path, Duplicates: dups, Flags: flags})
}

// FormatTask formats a single task as JSON.
func (f *JSONFormatter) FormatTask(t *store.Task) string {
	return marshalJSON(t)
}

type updatedJSON struct {
	ID             string   `json:"id"`
	ModifiedFields []string `json:"modified_fields"`
}

// FormatUpdated formats the result of update.
func (f *JSONFormatter) FormatUpdated(t *store.Task, fields []string) string {
	if fields == nil {
		fields = []string{}
	}
	return marshalJSON(updatedJSON{ID: t.ID, ModifiedFields: fields})
}

type resultJSON struct {
	Identifier     string   `json:"identifier"`
	Success        bool     `json:"success"`
	ID             string   `json:"id,omitempty"`
	Error          string   `json:"error,omitempty"`
	Kind           string   `json:"kind,omitempty"`
	Detail         string   `json:"detail,omitempty"`
	From           string   `json:"from,omitempty"`
	To             string   `json:"to,omitempty"`
	ModifiedFields []string `json:"modified_fields,omitempty"`
}

type batchJSON struct {
	Operation    string       `json:"operation"`
	Results      []resultJSON `json:"results"`
	SuccessCount int          `json:"success_count"`
	FailureCount int          `json:"failure_count"`
}

// FormatBatch formats per-identifier results with their totals.
func (f *JSONFormatter) FormatBatch(op string, results []batch.Result) string {
	out := batchJSON{Operation: op, Results: make([]resultJSON, len(results))}
	out.SuccessCount, out.FailureCount = batch.Summarize(results)
	for i, r := range results {
		rj := resultJSON{
			Identifier:     r.Identifier,
			Success:        r.Success,
			ID:             r.ID,
			Detail:         r.Detail,
			From:           string(r.From),
			To:             string(r.To),
			ModifiedFields: r.ModifiedFields,
		}
		if r.Err != nil {
			rj.Error = r.Err.Error()
			rj.Kind = string(store.KindOf(r.Err))
		}
		out.Results[i] = rj
	}
	return marshalJSON(out)
}

type matchesJSON struct {
	Title   string         `json:"title"`
	Matches []advise.Match `json:"matches"`
}

// FormatMatches formats scored duplicates of a candidate title.
func (f *JSONFormatter) FormatMatches(candidate string, matches []advise.Match) string {
	if matches == nil {
		matches = []advise.Match{}
	}
	return marshalJSON(matchesJSON{Title: candidate, Matches: matches})
}

type groupJSON struct {
	Title      string   `json:"title"`
	Keep       string   `json:"keep"`
	Duplicates []string `json:"duplicates"`
}

// FormatGroups formats exact-title duplicate groups by id.
func (f *JSONFormatter) FormatGroups(groups []advise.Group) string {
	out := make([]groupJSON, len(groups))
	for i, g := range groups {
		out[i] = groupJSON{Title: g.Title, Keep: g.Keep.ID}
		for _, d := range g.Dups {
			out[i].Duplicates = append(out[i].Duplicates, d.ID)
		}
	}
	return marshalJSON(map[string]any{"groups": out})
}

type problemJSON struct {
	Path  string `json:"path"`
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

type warningJSON struct {
	Path    string `json:"path"`
	Line    int    `json:"line"`
	Message string `json:"message"`
}

type checkJSON struct {
	Tasks    int           `json:"tasks"`
	Problems []problemJSON `json:"problems"`
	Warnings []warningJSON `json:"warnings"`
}

// FormatCheck formats a consistency report.
func (f *JSONFormatter) FormatCheck(report *store.CheckReport) string {
	out := checkJSON{Tasks: report.Tasks, Problems: []problemJSON{}, Warnings: []warningJSON{}}
	for _, p := range report.Problems {
		out.Problems = append(out.Problems, problemJSON{Path: p.Path, Error: p.Err.Error(), Kind: string(store.KindOf(p.Err))})
	}
	for _, w := range report.Warnings {
		out.Warnings = append(out.Warnings, warningJSON{Path: w.Path, Line: w.Line, Message: w.Message})
	}
	return marshalJSON(out)
}

type errorJSON struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func toErrorJSON(err error) errorJSON {
	return errorJSON{Error: err.Error(), Kind: string(store.KindOf(err))}
}

// FormatError formats an error as JSON.
func (f *JSONFormatter) FormatError(err error) string {
	return marshalJSON(toErrorJSON(err))
}

type messageJSON struct {
	Message string `json:"message"`
}

// FormatMessage formats a simple message as JSON.
func (f *JSONFormatter) FormatMessage(msg string) string {
	return marshalJSON(messageJSON{Message: msg})
}
