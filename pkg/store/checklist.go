package store

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	checklistLineRe = regexp.MustCompile(`^\s*[-*]\s+\[(.)\]\s*(.*)$`)
	annotationRe    = regexp.MustCompile(`\s*\[([A-Za-z_]+)::\s*([^\]]*)\]\s*$`)
)

var markerStates = map[string]ItemState{
	" ": ItemTodo,
	"x": ItemDone,
	"X": ItemDone,
	"/": ItemInProgress,
	"-": ItemCancelled,
}

func stateMarker(s ItemState) string {
	switch s {
	case ItemDone:
		return "x"
	case ItemInProgress:
		return "/"
	case ItemCancelled:
		return "-"
	default:
		return " "
	}
}

func formatChecklistLine(item ChecklistItem) string {
	var b strings.Builder
	fmt.Fprintf(&b, "- [%s] %s", stateMarker(item.State), item.Description)
	if item.Due != nil {
		fmt.Fprintf(&b, " [due:: %s]", item.Due)
	}
	if item.Priority != ItemPriorityNone {
		fmt.Fprintf(&b, " [priority:: %s]", item.Priority)
	}
	if item.Completed != nil {
		fmt.Fprintf(&b, " [completion:: %s]", item.Completed)
	}
	return b.String()
}

// parseChecklist reads checklist lines. firstLine is the file line number of
// lines[0] and is only used for warnings.
func parseChecklist(lines []string, firstLine int) ([]ChecklistItem, []Warning) {
	var items []ChecklistItem
	var warnings []Warning
	for i, line := range lines {
		lineNo := firstLine + i
		if strings.TrimSpace(line) == "" {
			continue
		}
		m := checklistLineRe.FindStringSubmatch(line)
		if m == nil {
			warnings = append(warnings, Warning{Line: lineNo, Message: "not a checklist line, ignored"})
			continue
		}

		state, ok := markerStates[m[1]]
		if !ok {
			warnings = append(warnings, Warning{Line: lineNo, Message: fmt.Sprintf("unknown completion marker %q, treated as not done", m[1])})
			state = ItemTodo
		}
		item := ChecklistItem{State: state}

		text := m[2]
		for {
			am := annotationRe.FindStringSubmatchIndex(text)
			if am == nil {
				break
			}
			key := text[am[2]:am[3]]
			value := strings.TrimSpace(text[am[4]:am[5]])
			text = text[:am[0]]
			if msg := applyAnnotation(&item, key, value); msg != "" {
				warnings = append(warnings, Warning{Line: lineNo, Message: msg})
			}
		}

		item.Description = strings.TrimSpace(text)
		if item.Description == "" {
			warnings = append(warnings, Warning{Line: lineNo, Message: "checklist item has no description, ignored"})
			continue
		}
		items = append(items, item)
	}
	return items, warnings
}

// applyAnnotation sets the field named by key. It returns a warning message
// when the annotation is ignored.
func applyAnnotation(item *ChecklistItem, key, value string) string {
	switch strings.ToLower(key) {
	case "due":
		d, err := ParseDate(value)
		if err != nil {
			return fmt.Sprintf("malformed due annotation %q ignored", value)
		}
		item.Due = &d
	case "priority":
		p, err := ParseItemPriority(value)
		if err != nil || p == ItemPriorityNone {
			return fmt.Sprintf("malformed priority annotation %q ignored", value)
		}
		item.Priority = p
	case "completion":
		d, err := ParseDate(value)
		if err != nil {
			return fmt.Sprintf("malformed completion annotation %q ignored", value)
		}
		item.Completed = &d
	default:
		return fmt.Sprintf("unknown annotation %q ignored", key)
	}
	return ""
}
