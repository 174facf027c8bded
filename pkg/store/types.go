package store

import (
	"fmt"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Status is the lifecycle state of a task. Each status maps to exactly one
// directory under the data root.
type Status string

const (
	StatusInbox    Status = "inbox"
	StatusQueue    Status = "queue"
	StatusArchived Status = "archived"
)

// Statuses lists every status in scan order.
var Statuses = []Status{StatusInbox, StatusQueue, StatusArchived}

// ParseStatus validates a status name.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", ValidationError{Field: "status", Value: s, Reason: "must be one of inbox, queue, archived"}
	}
	return st, nil
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return slices.Contains(Statuses, s)
}

// Priority is a task priority, 0 being the most urgent.
type Priority int

const (
	PriorityUrgent Priority = 0
	PriorityHigh   Priority = 1
	PriorityNormal Priority = 2
	PriorityLow    Priority = 3
)

const (
	MinPriority = PriorityUrgent
	MaxPriority = PriorityLow
)

// Valid reports whether p is within 0..3.
func (p Priority) Valid() bool {
	return p >= MinPriority && p <= MaxPriority
}

func (p Priority) String() string {
	return fmt.Sprintf("P%d", int(p))
}

// ParsePriority accepts "0".."3" and "P0".."P3" (case-insensitive).
func ParsePriority(s string) (Priority, error) {
	raw := strings.TrimSpace(s)
	n, err := strconv.Atoi(strings.TrimPrefix(strings.ToUpper(raw), "P"))
	if err != nil || !Priority(n).Valid() {
		return 0, ValidationError{Field: "priority", Value: s, Reason: "must be 0-3 or P0-P3"}
	}
	return Priority(n), nil
}

// Date is a calendar day in UTC.
type Date struct {
	time.Time
}

const dateLayout = "2006-01-02"

// NewDate truncates t to its UTC calendar day.
func NewDate(t time.Time) Date {
	u := t.UTC()
	return Date{time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)}
}

// ParseDate accepts YYYY-MM-DD or a full RFC 3339 timestamp.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(dateLayout, s); err == nil {
		return Date{t}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return NewDate(t), nil
	}
	return Date{}, ValidationError{Field: "due", Value: s, Reason: "expected YYYY-MM-DD"}
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

// ItemState is the completion marker of a checklist line.
type ItemState string

const (
	ItemTodo       ItemState = "todo"
	ItemDone       ItemState = "done"
	ItemInProgress ItemState = "in-progress"
	ItemCancelled  ItemState = "cancelled"
)

// ParseItemState validates a checklist state name.
func ParseItemState(s string) (ItemState, error) {
	st := ItemState(strings.ToLower(strings.TrimSpace(s)))
	switch st {
	case ItemTodo, ItemDone, ItemInProgress, ItemCancelled:
		return st, nil
	}
	return "", ValidationError{Field: "state", Value: s, Reason: "must be one of todo, done, in-progress, cancelled"}
}

// ItemPriority is the optional priority of a checklist item.
type ItemPriority string

const (
	ItemPriorityNone   ItemPriority = ""
	ItemPriorityHigh   ItemPriority = "high"
	ItemPriorityMedium ItemPriority = "medium"
	ItemPriorityLow    ItemPriority = "low"
)

// ParseItemPriority validates a checklist priority; the empty string means none.
func ParseItemPriority(s string) (ItemPriority, error) {
	p := ItemPriority(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case ItemPriorityNone, ItemPriorityHigh, ItemPriorityMedium, ItemPriorityLow:
		return p, nil
	}
	return "", ValidationError{Field: "priority", Value: s, Reason: "must be high, medium or low"}
}

// ChecklistItem is a sub-item owned by a single task.
type ChecklistItem struct {
	Description string       `json:"description"`
	State       ItemState    `json:"state"`
	Due         *Date        `json:"due,omitempty"`
	Priority    ItemPriority `json:"priority,omitempty"`
	Completed   *Date        `json:"completion_date,omitempty"`
}

// Done reports whether the item is checked off.
func (c ChecklistItem) Done() bool {
	return c.State == ItemDone
}

// Task is a single work item stored as one markdown file.
type Task struct {
	ID             string          `json:"id"`
	Title          string          `json:"title"`
	Priority       Priority        `json:"priority"`
	Status         Status          `json:"status"`
	Project        string          `json:"project,omitempty"`
	Classification string          `json:"classification,omitempty"`
	Due            *Date           `json:"due,omitempty"`
	Tags           []string        `json:"tags,omitempty"`
	ArchivedAt     *time.Time      `json:"archived_at,omitempty"`
	Created        time.Time       `json:"created"`
	Modified       time.Time       `json:"modified"`
	Body           string          `json:"body,omitempty"`
	Checklist      []ChecklistItem `json:"checklist,omitempty"`

	// Path is the absolute file path; set by the repository, never encoded.
	Path string `json:"path,omitempty"`
}

// Filename returns the base name of the file holding the task.
func (t *Task) Filename() string {
	if t.Path == "" {
		return t.ID + fileExt
	}
	return filepath.Base(t.Path)
}

// HasTag reports whether the task carries tag.
func (t *Task) HasTag(tag string) bool {
	return slices.Contains(t.Tags, tag)
}

// normalizeTags trims, drops empties, de-duplicates and sorts.
func normalizeTags(tags []string) []string {
	var out []string
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || slices.Contains(out, tag) {
			continue
		}
		out = append(out, tag)
	}
	slices.Sort(out)
	return out
}

// MarshalJSON renders the date as YYYY-MM-DD.
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON accepts the forms ParseDate does.
func (d *Date) UnmarshalJSON(data []byte) error {
	parsed, err := ParseDate(strings.Trim(string(data), `"`))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
