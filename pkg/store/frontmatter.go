package store

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	frontmatterDelimiter = "---"
	fileExt              = ".md"

	contextHeading   = "## Context"
	checklistHeading = "## Checklist"

	timestampLayout = time.RFC3339Nano
)

// Warning is a recoverable problem found while decoding a record body.
type Warning struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

func (w Warning) String() string {
	return fmt.Sprintf("line %d: %s", w.Line, w.Message)
}

// headerOut is the frontmatter written to disk. Field order is the key order.
type headerOut struct {
	ID             string     `yaml:"id"`
	Title          string     `yaml:"title"`
	Priority       int        `yaml:"priority"`
	Status         string     `yaml:"status"`
	Project        string     `yaml:"project,omitempty"`
	Classification string     `yaml:"classification,omitempty"`
	Due            string     `yaml:"due,omitempty"`
	Tags           []string   `yaml:"tags,omitempty,flow"`
	ArchivedAt     *time.Time `yaml:"archived_at,omitempty"`
	Created        time.Time  `yaml:"created"`
	Modified       time.Time  `yaml:"modified"`
}

// headerIn reads every scalar as a string so that each field can be
// validated and reported on its own.
type headerIn struct {
	ID             string   `yaml:"id"`
	TaskID         string   `yaml:"task_id"`
	Title          string   `yaml:"title"`
	Priority       string   `yaml:"priority"`
	Status         string   `yaml:"status"`
	Project        string   `yaml:"project"`
	Classification string   `yaml:"classification"`
	Due            string   `yaml:"due"`
	Tags           []string `yaml:"tags"`
	ArchivedAt     string   `yaml:"archived_at"`
	Created        string   `yaml:"created"`
	Modified       string   `yaml:"modified"`
}

// Encode renders a task as YAML frontmatter followed by its markdown body.
func Encode(t *Task) ([]byte, error) {
	h := headerOut{
		ID:             t.ID,
		Title:          t.Title,
		Priority:       int(t.Priority),
		Status:         string(t.Status),
		Project:        t.Project,
		Classification: t.Classification,
		Tags:           t.Tags,
		ArchivedAt:     t.ArchivedAt,
		Created:        t.Created,
		Modified:       t.Modified,
	}
	if t.Due != nil {
		h.Due = t.Due.String()
	}

	var yb strings.Builder
	enc := yaml.NewEncoder(&yb)
	enc.SetIndent(2)
	if err := enc.Encode(h); err != nil {
		return nil, fmt.Errorf("serializing frontmatter YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("serializing frontmatter YAML: %w", err)
	}

	var b strings.Builder
	b.WriteString(frontmatterDelimiter + "\n")
	b.WriteString(strings.TrimRight(yb.String(), "\n"))
	b.WriteString("\n" + frontmatterDelimiter + "\n\n")
	b.WriteString("# " + t.Title + "\n\n")
	b.WriteString(contextHeading + "\n")
	if t.Body != "" {
		b.WriteString("\n" + t.Body + "\n")
	}
	if len(t.Checklist) > 0 || hasHeadingLine(t.Body, checklistHeading) {
		b.WriteString("\n" + checklistHeading + "\n\n")
		for _, item := range t.Checklist {
			b.WriteString(formatChecklistLine(item))
			b.WriteString("\n")
		}
	}
	return []byte(b.String()), nil
}

// Decode parses a record. Header problems fail the decode; checklist
// problems are returned as warnings.
func Decode(data []byte) (*Task, []Warning, error) {
	content := strings.ReplaceAll(string(data), "\r\n", "\n")
	if !strings.HasPrefix(content, frontmatterDelimiter) {
		return nil, nil, DecodeError{Reason: "missing frontmatter header"}
	}

	rest := content[len(frontmatterDelimiter):]
	idx := strings.Index(rest, "\n"+frontmatterDelimiter)
	if idx == -1 {
		return nil, nil, DecodeError{Reason: "unclosed frontmatter delimiter"}
	}
	yamlContent := rest[:idx]
	body := rest[idx+len("\n"+frontmatterDelimiter):]
	// Line number of the first body line, counting the opening delimiter as 1.
	bodyLine := strings.Count(content[:len(frontmatterDelimiter)+idx+1], "\n") + 1

	var h headerIn
	if err := yaml.Unmarshal([]byte(yamlContent), &h); err != nil {
		return nil, nil, DecodeError{Reason: "invalid YAML header", Err: err}
	}

	t, err := h.task()
	if err != nil {
		return nil, nil, err
	}

	ctx, lines, offset := splitBody(body)
	t.Body = ctx
	items, warnings := parseChecklist(lines, bodyLine+offset)
	t.Checklist = items
	return t, warnings, nil
}

func (h headerIn) task() (*Task, error) {
	t := &Task{
		ID:             strings.TrimSpace(h.ID),
		Title:          strings.TrimSpace(h.Title),
		Project:        strings.TrimSpace(h.Project),
		Classification: strings.TrimSpace(h.Classification),
		Tags:           normalizeTags(h.Tags),
	}
	if t.ID == "" {
		t.ID = strings.TrimSpace(h.TaskID)
	}
	if t.ID == "" {
		return nil, DecodeError{Field: "id", Reason: "required field missing"}
	}
	if t.Title == "" {
		return nil, DecodeError{Field: "title", Reason: "required field missing"}
	}

	if strings.TrimSpace(h.Priority) == "" {
		return nil, DecodeError{Field: "priority", Reason: "required field missing"}
	}
	p, err := ParsePriority(h.Priority)
	if err != nil {
		return nil, DecodeError{Field: "priority", Reason: "out of range", Err: err}
	}
	t.Priority = p

	if strings.TrimSpace(h.Status) == "" {
		return nil, DecodeError{Field: "status", Reason: "required field missing"}
	}
	st, err := ParseStatus(h.Status)
	if err != nil {
		return nil, DecodeError{Field: "status", Reason: "unknown status", Err: err}
	}
	t.Status = st

	if t.Created, err = parseTimestamp("created", h.Created); err != nil {
		return nil, err
	}
	if t.Modified, err = parseTimestamp("modified", h.Modified); err != nil {
		return nil, err
	}

	if h.Due != "" {
		d, err := ParseDate(h.Due)
		if err != nil {
			return nil, DecodeError{Field: "due", Reason: "malformed date", Err: err}
		}
		t.Due = &d
	}
	if h.ArchivedAt != "" {
		at, err := parseTimestamp("archived_at", h.ArchivedAt)
		if err != nil {
			return nil, err
		}
		t.ArchivedAt = &at
	}
	return t, nil
}

func parseTimestamp(field, value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, DecodeError{Field: field, Reason: "required field missing"}
	}
	t, err := time.Parse(timestampLayout, value)
	if err != nil {
		return time.Time{}, DecodeError{Field: field, Reason: "malformed timestamp", Err: err}
	}
	return t.UTC(), nil
}

// splitBody separates the context narrative from the checklist section. It
// returns the checklist lines and their offset from the start of body.
func splitBody(body string) (string, []string, int) {
	lines := strings.Split(body, "\n")

	checklistAt := -1
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.TrimSpace(lines[i]) == checklistHeading {
			checklistAt = i
			break
		}
	}
	ctxLines := lines
	var listLines []string
	offset := 0
	if checklistAt >= 0 {
		ctxLines = lines[:checklistAt]
		listLines = lines[checklistAt+1:]
		offset = checklistAt + 1
	}

	start := -1
	for i, line := range ctxLines {
		if strings.TrimSpace(line) == contextHeading {
			start = i + 1
			break
		}
	}
	if start == -1 {
		// Hand-written records: skip the title heading if there is one.
		start = 0
		for i, line := range ctxLines {
			trimmed := strings.TrimSpace(line)
			if trimmed == "" {
				continue
			}
			if strings.HasPrefix(trimmed, "# ") {
				start = i + 1
			}
			break
		}
	}
	return strings.TrimSpace(strings.Join(ctxLines[start:], "\n")), listLines, offset
}

func hasHeadingLine(text, heading string) bool {
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == heading {
			return true
		}
	}
	return false
}
