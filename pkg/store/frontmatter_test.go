package store

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func datePtr(y int, m time.Month, d int) *Date {
	date := NewDate(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
	return &date
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
		check   func(t *testing.T, task *Task, warnings []Warning)
	}{
		{
			name: "full record",
			input: `---
id: 20261015-093000-laptop-1a2b3c4d
title: "Review draft"
priority: 1
status: inbox
project: writing
classification: review
due: 2026-10-20
tags: [docs, urgent]
created: 2026-10-15T09:30:00.123456Z
modified: 2026-10-15T10:00:00Z
---

# Review draft

## Context

Second pass on the draft.

## Checklist

- [ ] Read intro [due:: 2026-10-18] [priority:: high]
- [x] Fix typos [completion:: 2026-10-15]
- [/] Rewrite section 2
- [-] Add diagrams [priority:: low]
`,
			check: func(t *testing.T, task *Task, warnings []Warning) {
				assert.Empty(t, warnings)
				assert.Equal(t, "20261015-093000-laptop-1a2b3c4d", task.ID)
				assert.Equal(t, "Review draft", task.Title)
				assert.Equal(t, PriorityHigh, task.Priority)
				assert.Equal(t, StatusInbox, task.Status)
				assert.Equal(t, "writing", task.Project)
				assert.Equal(t, "review", task.Classification)
				assert.Equal(t, "2026-10-20", task.Due.String())
				assert.Equal(t, []string{"docs", "urgent"}, task.Tags)
				assert.Equal(t, 123456000, task.Created.Nanosecond())
				assert.Equal(t, "Second pass on the draft.", task.Body)
				require.Len(t, task.Checklist, 4)
				assert.Equal(t, ChecklistItem{Description: "Read intro", State: ItemTodo, Due: datePtr(2026, 10, 18), Priority: ItemPriorityHigh}, task.Checklist[0])
				assert.Equal(t, ChecklistItem{Description: "Fix typos", State: ItemDone, Completed: datePtr(2026, 10, 15)}, task.Checklist[1])
				assert.Equal(t, ItemInProgress, task.Checklist[2].State)
				assert.Equal(t, ItemCancelled, task.Checklist[3].State)
				assert.Equal(t, ItemPriorityLow, task.Checklist[3].Priority)
			},
		},
		{
			name: "P-prefixed priority and legacy task_id",
			input: `---
task_id: 20261015-093000-laptop-1a2b3c4d
title: Legacy
priority: P0
status: queue
created: 2026-10-15T09:30:00Z
modified: 2026-10-15T09:30:00Z
---
`,
			check: func(t *testing.T, task *Task, _ []Warning) {
				assert.Equal(t, "20261015-093000-laptop-1a2b3c4d", task.ID)
				assert.Equal(t, PriorityUrgent, task.Priority)
				assert.Equal(t, StatusQueue, task.Status)
				assert.Empty(t, task.Body)
			},
		},
		{
			name: "archived with archived_at",
			input: `---
id: 20261015-093000-laptop-1a2b3c4d
title: Done
priority: 3
status: archived
archived_at: 2026-10-16T08:00:00Z
created: 2026-10-15T09:30:00Z
modified: 2026-10-16T08:00:00Z
---
`,
			check: func(t *testing.T, task *Task, _ []Warning) {
				require.NotNil(t, task.ArchivedAt)
				assert.Equal(t, time.Date(2026, 10, 16, 8, 0, 0, 0, time.UTC), *task.ArchivedAt)
			},
		},
		{
			name: "malformed annotations degrade to warnings",
			input: `---
id: 20261015-093000-laptop-1a2b3c4d
title: Warnings
priority: 2
status: inbox
created: 2026-10-15T09:30:00Z
modified: 2026-10-15T09:30:00Z
---

## Context

## Checklist

- [ ] Bad due [due:: someday] [priority:: high]
- [ ] Unknown key [owner:: me]
- [?] Odd marker
just text
- [x] [due:: 2026-01-01]
`,
			check: func(t *testing.T, task *Task, warnings []Warning) {
				require.Len(t, task.Checklist, 3)
				assert.Equal(t, "Bad due", task.Checklist[0].Description)
				assert.Nil(t, task.Checklist[0].Due)
				assert.Equal(t, ItemPriorityHigh, task.Checklist[0].Priority)
				assert.Equal(t, "Unknown key", task.Checklist[1].Description)
				assert.Equal(t, ItemTodo, task.Checklist[2].State)
				require.Len(t, warnings, 5)
				assert.Equal(t, 14, warnings[0].Line)
				assert.Contains(t, warnings[0].Message, "due")
				assert.Contains(t, warnings[1].Message, "owner")
				assert.Contains(t, warnings[2].Message, "marker")
				assert.Contains(t, warnings[3].Message, "not a checklist line")
				assert.Contains(t, warnings[4].Message, "no description")
			},
		},
		{
			name:    "missing id",
			input:   "---\ntitle: x\npriority: 1\nstatus: inbox\ncreated: 2026-10-15T09:30:00Z\nmodified: 2026-10-15T09:30:00Z\n---\n",
			wantErr: "id",
		},
		{
			name:    "missing priority",
			input:   "---\nid: a\ntitle: x\nstatus: inbox\ncreated: 2026-10-15T09:30:00Z\nmodified: 2026-10-15T09:30:00Z\n---\n",
			wantErr: "priority",
		},
		{
			name:    "priority out of range",
			input:   "---\nid: a\ntitle: x\npriority: 7\nstatus: inbox\ncreated: 2026-10-15T09:30:00Z\nmodified: 2026-10-15T09:30:00Z\n---\n",
			wantErr: "priority",
		},
		{
			name:    "unknown status",
			input:   "---\nid: a\ntitle: x\npriority: 1\nstatus: done\ncreated: 2026-10-15T09:30:00Z\nmodified: 2026-10-15T09:30:00Z\n---\n",
			wantErr: "status",
		},
		{
			name:    "missing created",
			input:   "---\nid: a\ntitle: x\npriority: 1\nstatus: inbox\nmodified: 2026-10-15T09:30:00Z\n---\n",
			wantErr: "created",
		},
		{
			name:    "malformed due",
			input:   "---\nid: a\ntitle: x\npriority: 1\nstatus: inbox\ndue: next week\ncreated: 2026-10-15T09:30:00Z\nmodified: 2026-10-15T09:30:00Z\n---\n",
			wantErr: "due",
		},
		{
			name:    "no frontmatter",
			input:   "# Just markdown\n",
			wantErr: "missing frontmatter",
		},
		{
			name:    "unclosed frontmatter",
			input:   "---\nid: a\n",
			wantErr: "unclosed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task, warnings, err := Decode([]byte(tt.input))
			if tt.wantErr != "" {
				var de DecodeError
				require.ErrorAs(t, err, &de)
				assert.Contains(t, de.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.check(t, task, warnings)
		})
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	created := time.Date(2026, 10, 15, 9, 30, 0, 123456000, time.UTC)
	archivedAt := created.Add(48 * time.Hour)

	tasks := []*Task{
		{
			ID:       "20261015-093000-laptop-1a2b3c4d",
			Title:    "Minimal",
			Priority: PriorityUrgent,
			Status:   StatusInbox,
			Created:  created,
			Modified: created,
		},
		{
			ID:             "20261015-093000-laptop-1a2b3c4e",
			Title:          `Quotes "and" colons: everywhere #1`,
			Priority:       PriorityLow,
			Status:         StatusArchived,
			Project:        "home: renovation",
			Classification: "errand",
			Due:            datePtr(2026, 12, 31),
			Tags:           []string{"123", "a b", "yes"},
			ArchivedAt:     &archivedAt,
			Created:        created,
			Modified:       archivedAt.Add(time.Microsecond),
			Body:           "Line one\n\n---\n\n## Notes\n- [ ] not a checklist item\n## Checklist\nstill body",
			Checklist: []ChecklistItem{
				{Description: "todo", State: ItemTodo},
				{Description: "done [with brackets]", State: ItemDone, Completed: datePtr(2026, 10, 16)},
				{Description: "busy", State: ItemInProgress, Due: datePtr(2026, 10, 20), Priority: ItemPriorityMedium},
				{Description: "dropped", State: ItemCancelled, Priority: ItemPriorityLow},
			},
		},
		{
			ID:       "20261015-093000-laptop-1a2b3c4f",
			Title:    "Only checklist",
			Priority: PriorityNormal,
			Status:   StatusQueue,
			Created:  created,
			Modified: created,
			Checklist: []ChecklistItem{
				{Description: "one", State: ItemTodo, Due: datePtr(2027, 1, 1)},
			},
		},
	}

	for _, task := range tasks {
		t.Run(task.Title, func(t *testing.T) {
			data, err := Encode(task)
			require.NoError(t, err)

			got, warnings, err := Decode(data)
			require.NoError(t, err)
			assert.Empty(t, warnings)
			assert.Equal(t, task, got)
		})
	}
}

func TestEncodeLayout(t *testing.T) {
	created := time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)
	data, err := Encode(&Task{
		ID:        "20261015-093000-laptop-1a2b3c4d",
		Title:     "Layout",
		Priority:  PriorityHigh,
		Status:    StatusInbox,
		Tags:      []string{"x"},
		Created:   created,
		Modified:  created,
		Body:      "Context here.",
		Checklist: []ChecklistItem{{Description: "step", State: ItemTodo, Priority: ItemPriorityHigh}},
	})
	require.NoError(t, err)

	want := `---
id: 20261015-093000-laptop-1a2b3c4d
title: Layout
priority: 1
status: inbox
tags: [x]
created: 2026-10-15T09:30:00Z
modified: 2026-10-15T09:30:00Z
---

# Layout

## Context

Context here.

## Checklist

- [ ] step [priority:: high]
`
	assert.Equal(t, want, string(data))
	assert.False(t, strings.Contains(string(data), "archived_at"))
}
