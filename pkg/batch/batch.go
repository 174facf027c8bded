// Package batch applies one operation to many tasks, resolving each
// identifier on its own and collecting a result per identifier.
package batch

import (
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/stefanpenner/taskdir/pkg/store"
)

// Repository is the set of store operations batches run.
type Repository interface {
	Read(id string) (*store.Task, error)
	Move(id string, to store.Status) (*store.Task, error)
	Update(id string, patch store.Patch) (*store.Task, []string, error)
	AddChecklistItems(id string, items []store.ChecklistItem) (*store.Task, error)
}

// Resolver turns identifiers into task ids.
type Resolver interface {
	Resolve(token string) (string, error)
}

// Operation is one mutation applied to each resolved task. The set of
// operations is closed: use Archive, Unarchive, Update or AddChecklist.
type Operation interface {
	Name() string
	apply(repo Repository, id string, res *Result) error
}

// Result is the outcome for one identifier. ID is set whenever the
// identifier resolved, even if the operation then failed.
type Result struct {
	Identifier     string
	Success        bool
	ID             string
	Err            error
	Detail         string
	From           store.Status
	To             store.Status
	ModifiedFields []string
}

type moveOp struct {
	name string
	to   store.Status
}

// Archive moves tasks from inbox or queue to the archive.
func Archive() Operation { return moveOp{name: "archive", to: store.StatusArchived} }

// Unarchive moves archived tasks back to the inbox.
func Unarchive() Operation { return moveOp{name: "unarchive", to: store.StatusInbox} }

func (op moveOp) Name() string { return op.name }

func (op moveOp) apply(repo Repository, id string, res *Result) error {
	before, err := repo.Read(id)
	if err != nil {
		return err
	}
	res.From = before.Status
	after, err := repo.Move(id, op.to)
	if err != nil {
		return err
	}
	res.To = after.Status
	res.Detail = string(res.From) + " -> " + string(res.To)
	return nil
}

type updateOp struct {
	patch store.Patch
}

// Update merges the same patch into every task.
func Update(p store.Patch) Operation { return updateOp{patch: p} }

func (updateOp) Name() string { return "update" }

func (op updateOp) apply(repo Repository, id string, res *Result) error {
	_, fields, err := repo.Update(id, op.patch)
	if err != nil {
		return err
	}
	res.ModifiedFields = fields
	res.Detail = "updated " + strings.Join(fields, ", ")
	return nil
}

type checklistOp struct {
	items []store.ChecklistItem
}

// AddChecklist appends the same items to every task.
func AddChecklist(items []store.ChecklistItem) Operation { return checklistOp{items: items} }

func (checklistOp) Name() string { return "add_checklist" }

func (op checklistOp) apply(repo Repository, id string, res *Result) error {
	t, err := repo.AddChecklistItems(id, op.items)
	if err != nil {
		return err
	}
	res.ModifiedFields = []string{"checklist"}
	res.Detail = "checklist has " + strconv.Itoa(len(t.Checklist)) + " items"
	return nil
}

// Mutator runs operations over identifiers.
type Mutator struct {
	Repo     Repository
	Resolver Resolver
	Log      *zap.Logger
}

// New returns a Mutator. A nil logger discards output.
func New(repo Repository, r Resolver, log *zap.Logger) *Mutator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Mutator{Repo: repo, Resolver: r, Log: log}
}

// Apply runs op once per identifier, in order. A failure is recorded and
// the batch moves on; nothing is retried.
func (m *Mutator) Apply(op Operation, identifiers []string) []Result {
	log := m.Log
	if log == nil {
		log = zap.NewNop()
	}
	results := make([]Result, 0, len(identifiers))
	for _, ident := range identifiers {
		res := Result{Identifier: ident}
		id, err := m.Resolver.Resolve(ident)
		if err == nil {
			res.ID = id
			err = op.apply(m.Repo, id, &res)
		}
		if err != nil {
			res.Err = err
			res.Detail = err.Error()
			log.Debug("batch item failed", zap.String("op", op.Name()), zap.String("identifier", ident), zap.Error(err))
		} else {
			res.Success = true
		}
		results = append(results, res)
	}
	return results
}

// Summarize counts successes and failures.
func Summarize(results []Result) (succeeded, failed int) {
	for _, r := range results {
		if r.Success {
			succeeded++
		} else {
			failed++
		}
	}
	return succeeded, failed
}
