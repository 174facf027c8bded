package output

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/reflow/wordwrap"

	"github.com/stefanpenner/taskdir/pkg/advise"
	"github.com/stefanpenner/taskdir/pkg/batch"
	"github.com/stefanpenner/taskdir/pkg/store"
	"github.com/stefanpenner/taskdir/pkg/view"
)

type palette struct {
	bold, dim, grey, red, yellow, green, cyan lipgloss.Style
}

func newPalette(styled bool) palette {
	if !styled {
		plain := lipgloss.NewStyle()
		return palette{plain, plain, plain, plain, plain, plain, plain}
	}
	return palette{
		bold:   lipgloss.NewStyle().Bold(true),
		dim:    lipgloss.NewStyle().Faint(true),
		grey:   lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		red:    lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
		yellow: lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		green:  lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		cyan:   lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
	}
}

// HumanFormatter formats output for human-readable terminal display.
type HumanFormatter struct {
	styled bool
	width  int
	now    func() time.Time
	p      palette
}

// NewHumanFormatter creates a HumanFormatter. styled enables colour and
// markdown rendering; width bounds wrapped text.
func NewHumanFormatter(styled bool, width int, now func() time.Time) *HumanFormatter {
	if width < 40 {
		width = 40
	}
	if now == nil {
		now = time.Now
	}
	return &HumanFormatter{styled: styled, width: width, now: now, p: newPalette(styled)}
}

func (f *HumanFormatter) priority(p store.Priority) string {
	switch p {
	case store.PriorityUrgent:
		return f.p.red.Render(p.String())
	case store.PriorityHigh:
		return f.p.yellow.Render(p.String())
	case store.PriorityNormal:
		return f.p.green.Render(p.String())
	default:
		return f.p.grey.Render(p.String())
	}
}

// relativeDue renders the distance to a due date in whole days, +3d or -2d.
func relativeDue(due *store.Date, now time.Time) (string, int) {
	if due == nil {
		return "", 0
	}
	today := store.NewDate(now)
	days := int(due.Sub(today.Time).Hours() / 24)
	if days == 0 {
		return "0d", 0
	}
	return fmt.Sprintf("%+dd", days), days
}

func (f *HumanFormatter) due(due *store.Date) string {
	rel, days := relativeDue(due, f.now())
	if rel == "" {
		return "     "
	}
	padded := fmt.Sprintf("%5s", rel)
	switch {
	case days < 0:
		return f.p.red.Render(padded)
	case rel == "0d":
		return f.p.yellow.Render(padded)
	default:
		return f.p.cyan.Render(padded)
	}
}

func labels(t *store.Task) string {
	var bits []string
	if t.Classification != "" {
		bits = append(bits, "["+t.Classification+"]")
	}
	if t.Project != "" {
		bits = append(bits, "["+t.Project+"]")
	}
	if len(bits) == 0 {
		return ""
	}
	return strings.Join(bits, " ") + " "
}

// FormatView formats one page of a view as a numbered list.
func (f *HumanFormatter) FormatView(res *view.Result, compact bool) string {
	var sb strings.Builder
	pages := max(1, (res.Total+res.PerPage-1)/res.PerPage)
	sb.WriteString(f.p.bold.Render(fmt.Sprintf("Tasks: %d • Page %d/%d", res.Total, res.Page, pages)))
	sb.WriteString("\n")

	if len(res.Tasks) == 0 {
		sb.WriteString(f.p.grey.Render("No tasks to show."))
		sb.WriteString("\n")
		f.writeSkipped(&sb, res)
		return sb.String()
	}

	idxWidth := len(fmt.Sprint(res.Offset + len(res.Tasks)))
	for i, t := range res.Tasks {
		idx := fmt.Sprintf("%*d.", idxWidth, res.Position(i))
		lead := fmt.Sprintf("%s %s %s ", f.p.bold.Render(idx), f.priority(t.Priority), f.due(t.Due))
		leadWidth := idxWidth + 1 + 1 + 2 + 1 + 5 + 1
		prefix := labels(t)
		titleWidth := max(10, f.width-leadWidth-len(prefix))

		if compact {
			title := truncate.StringWithTail(t.Title, uint(titleWidth), "…")
			sb.WriteString(lead + f.p.dim.Render(prefix) + title + "\n")
			continue
		}

		title := wordwrap.String(t.Title, titleWidth)
		lines := strings.Split(title, "\n")
		sb.WriteString(lead + f.p.dim.Render(prefix) + f.p.bold.Render(lines[0]) + " " + f.p.grey.Render("("+t.Filename()+")") + "\n")
		pad := strings.Repeat(" ", leadWidth+len(prefix))
		for _, cont := range lines[1:] {
			sb.WriteString(pad + f.p.bold.Render(cont) + "\n")
		}
		if summary := summarize(t.Body, 3); summary != "" {
			wrapped := indent.String(wordwrap.String(summary, max(10, f.width-leadWidth)), uint(leadWidth))
			for _, line := range strings.Split(wrapped, "\n") {
				sb.WriteString(f.p.dim.Render(line) + "\n")
			}
		}
	}

	first, last := res.Position(0), res.Position(len(res.Tasks)-1)
	footer := fmt.Sprintf("Showing %d-%d of %d. Refer to tasks by number, e.g. taskdir archive %d", first, last, res.Total, first)
	sb.WriteString(f.p.grey.Render(footer) + "\n")
	f.writeSkipped(&sb, res)
	return sb.String()
}

func (f *HumanFormatter) writeSkipped(sb *strings.Builder, res *view.Result) {
	if len(res.Skipped) == 0 {
		return
	}
	sb.WriteString(f.p.yellow.Render(fmt.Sprintf("Skipped %d unreadable record(s); run taskdir check", len(res.Skipped))) + "\n")
}

// summarize returns the first non-empty body lines, joined by spaces.
func summarize(body string, maxLines int) string {
	var out []string
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
		if len(out) == maxLines {
			break
		}
	}
	return strings.Join(out, " ")
}

// FormatSearch lists hits with their relevance, best first.
func (f *HumanFormatter) FormatSearch(res *view.SearchResult) string {
	var sb strings.Builder
	if len(res.Hits) == 0 {
		fmt.Fprintf(&sb, "No tasks match %q.\n", res.Query)
	} else {
		fmt.Fprintf(&sb, "Found %d task(s) matching %q", res.Total, res.Query)
		if res.Total > len(res.Hits) {
			fmt.Fprintf(&sb, ", showing %d", len(res.Hits))
		}
		sb.WriteString(":\n")
		for _, h := range res.Hits {
			t := h.Task
			fmt.Fprintf(&sb, "  %3.0f%%  %s %-8s %s%s %s\n",
				h.Score*100, f.priority(t.Priority), t.Status, f.p.dim.Render(labels(t)), f.p.bold.Render(t.Title), f.p.grey.Render("("+t.Filename()+")"))
		}
	}
	if len(res.Skipped) > 0 {
		sb.WriteString(f.p.yellow.Render(fmt.Sprintf("Skipped %d unreadable record(s); run taskdir check", len(res.Skipped))) + "\n")
	}
	return sb.String()
}

// FormatCreated reports the new id and location plus any advisories.
func (f *HumanFormatter) FormatCreated(t *store.Task, dups []advise.Match, flags []advise.Flag) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Created %s\n  %s\n", f.p.bold.Render(t.ID), t.Path)
	if len(dups) > 0 {
		sb.WriteString(f.p.yellow.Render("Possible duplicates:") + "\n")
		for _, m := range dups {
			fmt.Fprintf(&sb, "  %.0f%%  %s  %s (%s)\n", m.Score*100, m.ID, m.Title, m.Status)
		}
	}
	for _, flag := range flags {
		sb.WriteString(f.p.yellow.Render("Note: "+flag.Message) + "\n")
	}
	return sb.String()
}

// FormatTask formats a single task with its body and checklist.
func (f *HumanFormatter) FormatTask(t *store.Task) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s\n", f.priority(t.Priority), f.p.bold.Render(t.Title))
	fmt.Fprintf(&sb, "  ID:       %s\n", t.ID)
	fmt.Fprintf(&sb, "  Status:   %s\n", t.Status)
	if t.Project != "" {
		fmt.Fprintf(&sb, "  Project:  %s\n", t.Project)
	}
	if t.Classification != "" {
		fmt.Fprintf(&sb, "  Type:     %s\n", t.Classification)
	}
	if t.Due != nil {
		rel, _ := relativeDue(t.Due, f.now())
		fmt.Fprintf(&sb, "  Due:      %s (%s)\n", t.Due, rel)
	}
	if len(t.Tags) > 0 {
		fmt.Fprintf(&sb, "  Tags:     %s\n", strings.Join(t.Tags, ", "))
	}
	fmt.Fprintf(&sb, "  Created:  %s\n", t.Created.Local().Format("2006-01-02 15:04"))
	fmt.Fprintf(&sb, "  Modified: %s\n", t.Modified.Local().Format("2006-01-02 15:04"))
	if t.ArchivedAt != nil {
		fmt.Fprintf(&sb, "  Archived: %s\n", t.ArchivedAt.Local().Format("2006-01-02 15:04"))
	}
	fmt.Fprintf(&sb, "  File:     %s\n", t.Path)

	if t.Body != "" {
		sb.WriteString("\n")
		sb.WriteString(f.renderBody(t.Body))
		sb.WriteString("\n")
	}
	if len(t.Checklist) > 0 {
		sb.WriteString("\n" + f.p.bold.Render("Checklist") + "\n")
		for i, item := range t.Checklist {
			fmt.Fprintf(&sb, "  %d. %s %s%s\n", i+1, checkbox(item.State), item.Description, itemExtras(item))
		}
	}
	return sb.String()
}

func (f *HumanFormatter) renderBody(body string) string {
	if f.styled {
		r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(f.width))
		if err == nil {
			if out, err := r.Render(body); err == nil {
				return strings.TrimRight(out, "\n")
			}
		}
	}
	return wordwrap.String(body, f.width)
}

func checkbox(s store.ItemState) string {
	switch s {
	case store.ItemDone:
		return "[x]"
	case store.ItemInProgress:
		return "[/]"
	case store.ItemCancelled:
		return "[-]"
	default:
		return "[ ]"
	}
}

func itemExtras(item store.ChecklistItem) string {
	var bits []string
	if item.Priority != store.ItemPriorityNone {
		bits = append(bits, string(item.Priority))
	}
	if item.Due != nil {
		bits = append(bits, "due "+item.Due.String())
	}
	if item.Completed != nil {
		bits = append(bits, "done "+item.Completed.String())
	}
	if len(bits) == 0 {
		return ""
	}
	return " (" + strings.Join(bits, ", ") + ")"
}

// FormatUpdated lists the fields that were written.
func (f *HumanFormatter) FormatUpdated(t *store.Task, fields []string) string {
	return fmt.Sprintf("Updated %s: %s\n", t.ID, strings.Join(fields, ", "))
}

// FormatBatch prints one line per identifier and a summary line.
func (f *HumanFormatter) FormatBatch(op string, results []batch.Result) string {
	var sb strings.Builder
	for _, r := range results {
		if r.Success {
			fmt.Fprintf(&sb, "%s %s %s: %s\n", f.p.green.Render("✓"), r.Identifier, r.ID, r.Detail)
		} else {
			fmt.Fprintf(&sb, "%s %s: %s\n", f.p.red.Render("✗"), r.Identifier, r.Detail)
		}
	}
	ok, failed := batch.Summarize(results)
	fmt.Fprintf(&sb, "%s: %d succeeded, %d failed\n", op, ok, failed)
	return sb.String()
}

// FormatMatches lists tasks similar to a candidate title.
func (f *HumanFormatter) FormatMatches(candidate string, matches []advise.Match) string {
	if len(matches) == 0 {
		return fmt.Sprintf("No likely duplicates of %q.\n", candidate)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Likely duplicates of %q:\n", candidate)
	for _, m := range matches {
		fmt.Fprintf(&sb, "  %3.0f%%  %s  %s (%s)\n", m.Score*100, m.ID, m.Title, m.Status)
	}
	return sb.String()
}

// FormatGroups lists exact-title duplicates and which copy to keep.
func (f *HumanFormatter) FormatGroups(groups []advise.Group) string {
	if len(groups) == 0 {
		return f.p.green.Render("✓") + " No duplicate tasks found.\n"
	}
	var sb strings.Builder
	for _, g := range groups {
		sb.WriteString(f.p.bold.Render(g.Title) + "\n")
		fmt.Fprintf(&sb, "  %s  %s (%s)\n", f.p.green.Render("keep"), g.Keep.ID, g.Keep.Status)
		for _, d := range g.Dups {
			fmt.Fprintf(&sb, "  %s   %s (%s)\n", f.p.red.Render("dup"), d.ID, d.Status)
		}
	}
	return sb.String()
}

// FormatCheck summarises a consistency scan.
func (f *HumanFormatter) FormatCheck(report *store.CheckReport) string {
	var sb strings.Builder
	for _, p := range report.Problems {
		fmt.Fprintf(&sb, "%s %s: %v\n", f.p.red.Render("✗"), p.Path, p.Err)
	}
	for _, w := range report.Warnings {
		fmt.Fprintf(&sb, "%s %s:%d: %s\n", f.p.yellow.Render("!"), w.Path, w.Line, w.Message)
	}
	fmt.Fprintf(&sb, "%d tasks, %d problems, %d warnings\n", report.Tasks, len(report.Problems), len(report.Warnings))
	return sb.String()
}

// FormatError formats an error for display.
func (f *HumanFormatter) FormatError(err error) string {
	return fmt.Sprintf("Error: %s\n", err.Error())
}

// FormatMessage formats a simple message.
func (f *HumanFormatter) FormatMessage(msg string) string {
	return msg + "\n"
}
