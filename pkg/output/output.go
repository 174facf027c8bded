// Package output renders command results for terminals and for scripts.
package output

import (
	"os"
	"time"

	"golang.org/x/term"

	"github.com/stefanpenner/taskdir/pkg/advise"
	"github.com/stefanpenner/taskdir/pkg/batch"
	"github.com/stefanpenner/taskdir/pkg/store"
	"github.com/stefanpenner/taskdir/pkg/view"
)

// Formatter defines the interface for output formatting.
type Formatter interface {
	FormatView(res *view.Result, compact bool) string
	FormatSearch(res *view.SearchResult) string
	FormatCreated(t *store.Task, dups []advise.Match, flags []advise.Flag) string
	FormatTask(t *store.Task) string
	FormatUpdated(t *store.Task, fields []string) string
	FormatBatch(op string, results []batch.Result) string
	FormatMatches(candidate string, matches []advise.Match) string
	FormatGroups(groups []advise.Group) string
	FormatCheck(report *store.CheckReport) string
	FormatError(err error) string
	FormatMessage(msg string) string
}

// New returns the JSON formatter when asJSON is set, otherwise a human
// formatter configured for f.
func New(asJSON bool, f *os.File) Formatter {
	if asJSON {
		return NewJSONFormatter()
	}
	return NewHumanFormatter(IsTerminal(f), TerminalWidth(f), time.Now)
}

// IsTerminal reports whether f is an interactive terminal that should get
// colour. NO_COLOR and TERM=dumb disable styling.
func IsTerminal(f *os.File) bool {
	if os.Getenv("NO_COLOR") != "" || os.Getenv("TERM") == "dumb" {
		return false
	}
	return f != nil && term.IsTerminal(int(f.Fd()))
}

// TerminalWidth returns the width of f, or 100 when f isn't a terminal.
func TerminalWidth(f *os.File) int {
	if f != nil {
		if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 0 {
			return w
		}
	}
	return 100
}
