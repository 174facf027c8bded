package main

import (
	"github.com/spf13/cobra"

	"github.com/stefanpenner/taskdir/pkg/view"
)

type viewFlags struct {
	priorities priorityListValue
	project    string
	status     string
	sort       string
	page       int
	perPage    int
	compact    bool
}

// query turns the flags into a view query. A zero per-page uses the
// configured default for the chosen layout.
func (f *viewFlags) query(cmd *cobra.Command, a *app) (view.Query, error) {
	statuses, err := parseStatuses(f.status)
	if err != nil {
		return view.Query{}, err
	}
	sort, err := view.ParseSort(f.sort)
	if err != nil {
		return view.Query{}, err
	}
	q := view.Query{
		Filter: view.Filter{
			Priorities: f.priorities.list,
			Statuses:   statuses,
		},
		Sort:    sort,
		Page:    f.page,
		PerPage: f.perPage,
	}
	if cmd.Flags().Changed("project") {
		project := f.project
		q.Filter.Project = &project
	}
	if !hasChangedFlags(cmd, "per-page") {
		q.PerPage = a.cfg.PerPage
		if f.compact {
			q.PerPage = a.cfg.CompactPerPage
		}
	}
	return q, nil
}

func (f *viewFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.Var(&f.priorities, "priority", "Only these priorities (e.g. 0,1 or P0)")
	flags.StringVar(&f.project, "project", "", "Only tasks in this project (empty for none)")
	flags.StringVar(&f.status, "status", "inbox,queue", "Statuses to include, comma separated, or all")
	flags.StringVar(&f.sort, "sort", "priority", "Sort by priority, date or due")
	flags.IntVar(&f.page, "page", 1, "Page number")
	flags.IntVar(&f.perPage, "per-page", 0, "Tasks per page (1-100)")
	flags.BoolVar(&f.compact, "compact", false, "One line per task")
	setFlagAliases(flags, flagAliases)
}

// viewCmd implements 'taskdir view'.
func viewCmd(a *app) *cobra.Command {
	var f viewFlags
	cmd := &cobra.Command{
		Use:     "view",
		Aliases: []string{"list", "ls"},
		Short:   "Show a page of tasks and remember it for positional references",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			q, err := f.query(cmd, a)
			if err != nil {
				return err
			}
			s, err := a.openStore()
			if err != nil {
				return err
			}
			sess, err := a.openSession()
			if err != nil {
				return err
			}
			res, err := sess.Build(s, q)
			if err != nil {
				return err
			}
			a.print(a.formatter.FormatView(res, f.compact))
			return nil
		},
	}
	f.register(cmd)
	return cmd
}
