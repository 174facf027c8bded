package advise

import (
	"fmt"
	"slices"

	"github.com/stefanpenner/taskdir/pkg/store"
)

// Flag is an advisory finding about one task.
type Flag struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

const (
	FlagNoProject      = "no_project"
	FlagUnknownProject = "unknown_project"
)

// Validator inspects a task and returns zero or more flags.
type Validator interface {
	Check(t *store.Task) []Flag
}

// ProjectAlignment flags urgent work that isn't tied to a known project.
// Tasks with priority numerically above MaxPriority are not checked. An
// empty KnownProjects accepts any project name.
type ProjectAlignment struct {
	MaxPriority   store.Priority
	KnownProjects []string
}

func (v ProjectAlignment) Check(t *store.Task) []Flag {
	if t.Priority > v.MaxPriority {
		return nil
	}
	if t.Project == "" {
		return []Flag{{
			Code:    FlagNoProject,
			Message: fmt.Sprintf("%s task has no project", t.Priority),
		}}
	}
	if len(v.KnownProjects) > 0 && !slices.Contains(v.KnownProjects, t.Project) {
		return []Flag{{
			Code:    FlagUnknownProject,
			Message: fmt.Sprintf("project %q is not a known project", t.Project),
		}}
	}
	return nil
}
