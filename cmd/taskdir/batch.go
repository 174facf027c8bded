package main

import (
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/stefanpenner/taskdir/pkg/batch"
	"github.com/stefanpenner/taskdir/pkg/store"
)

func moveCmd(a *app, use, short string, op batch.Operation) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <identifier>...",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			mut, err := a.mutator()
			if err != nil {
				return err
			}
			return a.batchOutcome(op.Name(), mut.Apply(op, args))
		},
	}
}

// archiveCmd implements 'taskdir archive'.
func archiveCmd(a *app) *cobra.Command {
	return moveCmd(a, "archive", "Archive tasks from the inbox or queue", batch.Archive())
}

// unarchiveCmd implements 'taskdir unarchive'.
func unarchiveCmd(a *app) *cobra.Command {
	return moveCmd(a, "unarchive", "Return archived tasks to the inbox", batch.Unarchive())
}

// checklistCmd implements 'taskdir checklist'.
func checklistCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checklist",
		Short: "Manage checklist items of a task",
	}
	cmd.AddCommand(checklistAddCmd(a), checklistSetCmd(a))
	return cmd
}

func checklistAddCmd(a *app) *cobra.Command {
	var (
		due      dateValue
		priority string
		done     bool
	)
	cmd := &cobra.Command{
		Use:   "add <identifier> <description>...",
		Short: "Append checklist items to a task",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			p, err := store.ParseItemPriority(priority)
			if err != nil {
				return err
			}
			state := store.ItemTodo
			if done {
				state = store.ItemDone
			}
			var items []store.ChecklistItem
			for _, desc := range args[1:] {
				items = append(items, store.ChecklistItem{
					Description: desc,
					State:       state,
					Due:         due.d,
					Priority:    p,
				})
			}
			mut, err := a.mutator()
			if err != nil {
				return err
			}
			return a.batchOutcome("checklist add", mut.Apply(batch.AddChecklist(items), args[:1]))
		},
	}
	flags := cmd.Flags()
	flags.Var(&due, "due", "Due date for the items (YYYY-MM-DD)")
	flags.StringVar(&priority, "priority", "", "Item priority: high, medium or low")
	flags.BoolVar(&done, "done", false, "Add the items already completed")
	return cmd
}

func checklistSetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set <identifier> <n> <todo|done|in-progress|cancelled>",
		Short: "Set the state of the n-th checklist item",
		Args:  cobra.ExactArgs(3),
		RunE: func(_ *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[1])
			if err != nil {
				return store.ValidationError{Field: "item", Value: args[1], Reason: "must be a number"}
			}
			state, err := store.ParseItemState(args[2])
			if err != nil {
				return err
			}
			s, err := a.openStore()
			if err != nil {
				return err
			}
			id, err := a.resolveOne(args[0])
			if err != nil {
				return err
			}
			t, err := s.SetChecklistState(id, n, state)
			if err != nil {
				return err
			}
			a.print(a.formatter.FormatTask(t))
			return nil
		},
	}
}

// checkCmd implements 'taskdir check'.
func checkCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Scan every record for decode and integrity problems",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			s, err := a.openStore()
			if err != nil {
				return err
			}
			start := time.Now()
			report, err := s.Check()
			if err != nil {
				return err
			}
			a.log.Info("check finished", zap.Duration("took", time.Since(start)))
			a.print(a.formatter.FormatCheck(report))
			if len(report.Problems) > 0 {
				return exitError{code: 1, msg: "check found problems"}
			}
			return nil
		},
	}
}
