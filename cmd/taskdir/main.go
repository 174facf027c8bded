// Package main implements the taskdir CLI.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	a := &app{}
	if err := newRootCmd(a).Execute(); err != nil {
		var exitErr interface{ ExitCode() int }
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.ExitCode())
		}
		a.printError(err)
		os.Exit(1)
	}
}

// exitError ends the process with a code after output was already written.
type exitError struct {
	code int
	msg  string
}

func (e exitError) Error() string { return e.msg }

func (e exitError) ExitCode() int { return e.code }

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "taskdir",
		Short:         "A directory of markdown tasks",
		Long:          "taskdir keeps tasks as markdown files in inbox, queue and archived directories.",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			a.close()
		},
	}

	flags := root.PersistentFlags()
	flags.BoolVar(&a.jsonOutput, "json", false, "Output in JSON format")
	flags.StringVar(&a.dir, "dir", "", fmt.Sprintf("Data root (overrides $%s and config)", "TASKDIR_ROOT"))
	flags.StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn or error")

	root.AddCommand(
		viewCmd(a),
		createCmd(a),
		showCmd(a),
		updateCmd(a),
		archiveCmd(a),
		unarchiveCmd(a),
		checklistCmd(a),
		searchCmd(a),
		dedupCmd(a),
		checkCmd(a),
		browseCmd(a),
		syncCmd(a),
		remoteCmd(a),
	)
	return root
}
