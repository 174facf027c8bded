package main

import (
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	gsync "github.com/stefanpenner/taskdir/pkg/sync"
)

// gitRepo returns the repository for the data root. Progress goes to stderr
// in JSON mode so stdout stays machine readable.
func (a *app) gitRepo() (*gsync.Repo, error) {
	s, err := a.openStore()
	if err != nil {
		return nil, err
	}
	var progress io.Writer = a.stdout
	if a.jsonOutput {
		progress = a.stderr
	}
	return gsync.New(s.Root(), progress, a.log), nil
}

// syncCmd implements 'taskdir sync'.
func syncCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Commit, pull and push the data root",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			repo, err := a.gitRepo()
			if err != nil {
				return err
			}
			if err := repo.Sync(cmd.Context()); err != nil {
				return err
			}
			if a.jsonOutput {
				a.print(a.formatter.FormatMessage("synced " + repo.Dir))
			}
			return nil
		},
	}
}

// remoteCmd implements 'taskdir remote'.
func remoteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "remote [url]",
		Short: "Show or set the git remote of the data root",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := a.gitRepo()
			if err != nil {
				return err
			}
			if len(args) == 0 {
				url := repo.Remote(cmd.Context())
				if url == "" {
					url = "(none)"
				}
				a.print(a.formatter.FormatMessage(url))
				return nil
			}
			a.log.Info("setting remote", zap.String("url", args[0]))
			return repo.SetRemote(cmd.Context(), args[0])
		},
	}
}
