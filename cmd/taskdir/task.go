package main

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/stefanpenner/taskdir/pkg/advise"
	"github.com/stefanpenner/taskdir/pkg/batch"
	"github.com/stefanpenner/taskdir/pkg/store"
	"github.com/stefanpenner/taskdir/pkg/view"
)

// existingTasks returns every readable task. Unreadable records are
// logged and left out; advisories never fail a command.
func existingTasks(a *app, s *store.Store) []*store.Task {
	var tasks []*store.Task
	for t, err := range s.List(nil, nil, store.ScanSkipMalformed) {
		if err != nil {
			a.log.Debug("advisory scan skipped record", zap.Error(err))
			continue
		}
		tasks = append(tasks, t)
	}
	return tasks
}

// createCmd implements 'taskdir create'.
func createCmd(a *app) *cobra.Command {
	var (
		priority       priorityValue
		due            dateValue
		project        string
		classification string
		tags           []string
		body           string
		status         string
		force          bool
	)
	cmd := &cobra.Command{
		Use:     "create <title>",
		Aliases: []string{"add"},
		Short:   "Create a task in the inbox (or queue)",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			st, err := store.ParseStatus(status)
			if err != nil {
				return err
			}
			s, err := a.openStore()
			if err != nil {
				return err
			}
			title := strings.Join(args, " ")

			var dups []advise.Match
			if !force {
				dups = a.scorer().Score(title, existingTasks(a, s))
			}

			t, err := s.Create(store.NewTask{
				Title:          title,
				Priority:       priority.ptr(),
				Status:         st,
				Project:        project,
				Classification: classification,
				Due:            due.d,
				Tags:           tags,
				Body:           body,
			})
			if err != nil {
				return err
			}

			var flags []advise.Flag
			if !force {
				flags = a.validator().Check(t)
			}
			a.print(a.formatter.FormatCreated(t, dups, flags))
			return nil
		},
	}
	flags := cmd.Flags()
	flags.VarP(&priority, "priority", "p", "Priority 0-3 or P0-P3 (default from config)")
	flags.Var(&due, "due", "Due date (YYYY-MM-DD)")
	flags.StringVar(&project, "project", "", "Project name")
	flags.StringVar(&classification, "classification", "", "Free-form classification")
	flags.StringArrayVarP(&tags, "tag", "t", nil, "Tag (repeatable)")
	flags.StringVar(&body, "body", "", "Context text")
	flags.StringVar(&status, "status", string(store.StatusInbox), "Initial status: inbox or queue")
	flags.BoolVarP(&force, "force", "f", false, "Skip duplicate and alignment advisories")
	setFlagAliases(flags, flagAliases)
	return cmd
}

// showCmd implements 'taskdir show'.
func showCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <identifier>",
		Short: "Show one task by position, id or filename",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			s, err := a.openStore()
			if err != nil {
				return err
			}
			id, err := a.resolveOne(args[0])
			if err != nil {
				return err
			}
			t, err := s.Read(id)
			if err != nil {
				return err
			}
			a.print(a.formatter.FormatTask(t))
			return nil
		},
	}
}

// updateCmd implements 'taskdir update'. More than one identifier runs the
// same patch as a batch.
func updateCmd(a *app) *cobra.Command {
	var (
		title          string
		priority       priorityValue
		project        string
		classification string
		due            dateValue
		clearDue       bool
		body           string
		note           string
		addTags        []string
		removeTags     []string
	)
	cmd := &cobra.Command{
		Use:   "update <identifier>...",
		Short: "Change fields of one or more tasks",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if hasChangedFlags(cmd, "due") && clearDue {
				return store.ValidationError{Field: "due", Reason: "--due and --clear-due are mutually exclusive"}
			}
			patch := store.Patch{
				Priority:   priority.ptr(),
				Due:        due.d,
				ClearDue:   clearDue,
				AddTags:    addTags,
				RemoveTags: removeTags,
			}
			if cmd.Flags().Changed("title") {
				patch.Title = &title
			}
			if cmd.Flags().Changed("project") {
				patch.Project = &project
			}
			if cmd.Flags().Changed("classification") {
				patch.Classification = &classification
			}
			if cmd.Flags().Changed("body") {
				patch.Body = &body
			}
			if cmd.Flags().Changed("add-note") {
				patch.AddNote = &note
			}

			if len(args) > 1 {
				mut, err := a.mutator()
				if err != nil {
					return err
				}
				return a.batchOutcome("update", mut.Apply(batch.Update(patch), args))
			}

			s, err := a.openStore()
			if err != nil {
				return err
			}
			id, err := a.resolveOne(args[0])
			if err != nil {
				return err
			}
			t, fields, err := s.Update(id, patch)
			if err != nil {
				return err
			}
			a.print(a.formatter.FormatUpdated(t, fields))
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&title, "title", "", "New title")
	flags.VarP(&priority, "priority", "p", "Priority 0-3 or P0-P3")
	flags.StringVar(&project, "project", "", "Project (empty to clear)")
	flags.StringVar(&classification, "classification", "", "Classification (empty to clear)")
	flags.Var(&due, "due", "Due date (YYYY-MM-DD)")
	flags.BoolVar(&clearDue, "clear-due", false, "Remove the due date")
	flags.StringVar(&body, "body", "", "Replace the context text")
	flags.StringVar(&note, "add-note", "", "Append a timestamped note to the context")
	flags.StringArrayVar(&addTags, "add-tag", nil, "Add a tag (repeatable)")
	flags.StringArrayVar(&removeTags, "remove-tag", nil, "Remove a tag (repeatable)")
	setFlagAliases(flags, flagAliases)
	return cmd
}

// dedupCmd implements 'taskdir dedup'. With a title it scores existing
// tasks against it; without one it groups tasks with identical titles.
func dedupCmd(a *app) *cobra.Command {
	var threshold float64
	cmd := &cobra.Command{
		Use:   "dedup [title]",
		Short: "Find likely duplicate tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore()
			if err != nil {
				return err
			}
			tasks := existingTasks(a, s)
			if len(args) == 0 {
				a.print(a.formatter.FormatGroups(advise.TitleGroups(tasks)))
				return nil
			}
			scorer := advise.TokenScorer{Threshold: a.cfg.DuplicateThreshold}
			if cmd.Flags().Changed("threshold") {
				if threshold < 0 || threshold > 1 {
					return store.ValidationError{Field: "threshold", Value: strconv.FormatFloat(threshold, 'g', -1, 64), Reason: "must be between 0 and 1"}
				}
				scorer.Threshold = threshold
			}
			title := strings.Join(args, " ")
			a.print(a.formatter.FormatMatches(title, scorer.Score(title, tasks)))
			return nil
		},
	}
	cmd.Flags().Float64Var(&threshold, "threshold", advise.DefaultThreshold, "Minimum similarity (0-1)")
	return cmd
}

// searchCmd implements 'taskdir search'.
func searchCmd(a *app) *cobra.Command {
	var (
		priorities priorityListValue
		project    string
		status     string
		limit      int
	)
	cmd := &cobra.Command{
		Use:   "search <query>...",
		Short: "Find tasks whose title, context, tags or project mention a phrase",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses, err := parseStatuses(status)
			if err != nil {
				return err
			}
			q := view.SearchQuery{
				Text:   strings.Join(args, " "),
				Filter: view.Filter{Priorities: priorities.list, Statuses: statuses},
				Limit:  limit,
			}
			if cmd.Flags().Changed("project") {
				q.Filter.Project = &project
			}
			s, err := a.openStore()
			if err != nil {
				return err
			}
			res, err := view.Search(s, q)
			if err != nil {
				return err
			}
			a.log.Debug("search finished", zap.String("query", q.Text), zap.Int("hits", res.Total))
			a.print(a.formatter.FormatSearch(res))
			return nil
		},
	}
	flags := cmd.Flags()
	flags.Var(&priorities, "priority", "Only these priorities (e.g. 0,1 or P0)")
	flags.StringVar(&project, "project", "", "Only tasks in this project (empty for none)")
	flags.StringVar(&status, "status", "inbox,queue", "Statuses to search, comma separated, or all")
	flags.IntVar(&limit, "limit", view.DefaultSearchLimit, "Maximum number of results (1-100)")
	return cmd
}
