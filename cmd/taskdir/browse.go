package main

import (
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/stefanpenner/taskdir/pkg/store"
	gsync "github.com/stefanpenner/taskdir/pkg/sync"
	"github.com/stefanpenner/taskdir/pkg/tui"
)

// browseCmd implements 'taskdir browse'. The TUI shares the persisted
// current view, so positions shown there work in later commands.
func browseCmd(a *app) *cobra.Command {
	var f viewFlags
	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Browse tasks interactively",
		Args:  cobra.NoArgs,
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

			m := tui.NewModel(tui.Options{
				Store:   s,
				Session: sess,
				Query:   q,
				Syncer:  gsync.New(s.Root(), io.Discard, a.log),
				Log:     a.log,
			})
			p := tea.NewProgram(m, tea.WithAltScreen())

			var dirs []string
			for _, st := range store.Statuses {
				dirs = append(dirs, s.Dir(st))
			}
			stop, err := tui.StartWatcher(dirs, p.Send, a.log)
			if err != nil {
				return err
			}
			defer stop()

			_, err = p.Run()
			return err
		},
	}
	f.register(cmd)
	return cmd
}
