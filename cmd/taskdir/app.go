package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/stefanpenner/taskdir/pkg/advise"
	"github.com/stefanpenner/taskdir/pkg/batch"
	"github.com/stefanpenner/taskdir/pkg/config"
	"github.com/stefanpenner/taskdir/pkg/logging"
	"github.com/stefanpenner/taskdir/pkg/output"
	"github.com/stefanpenner/taskdir/pkg/resolve"
	"github.com/stefanpenner/taskdir/pkg/store"
	"github.com/stefanpenner/taskdir/pkg/view"
)

// app holds global flags and the dependencies commands share. The store
// and session are opened on first use.
type app struct {
	jsonOutput bool
	dir        string
	logLevel   string

	cfg       *config.Config
	log       *zap.Logger
	formatter output.Formatter
	stdout    io.Writer
	stderr    io.Writer

	store   *store.Store
	session *view.Session
}

func (a *app) setup(cmd *cobra.Command) error {
	a.stdout = cmd.OutOrStdout()
	a.stderr = cmd.ErrOrStderr()
	a.formatter = output.New(a.jsonOutput, os.Stdout)

	cfg, err := config.Load(a.dir)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	a.cfg = cfg

	log, err := logging.New(logging.Config{Level: cfg.Log.Level, Encoding: cfg.Log.Encoding})
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	a.log = log.With(zap.String("cmd", cmd.Name()))
	a.log.Debug("config loaded", zap.String("root", cfg.Root))
	return nil
}

func (a *app) close() {
	if a.log != nil {
		_ = a.log.Sync()
	}
}

func (a *app) openStore() (*store.Store, error) {
	if a.store != nil {
		return a.store, nil
	}
	s, err := store.Open(a.cfg.Root,
		store.WithLogger(a.log),
		store.WithSlugFilenames(a.cfg.SlugFilenames),
		store.WithDefaultPriority(store.Priority(a.cfg.DefaultPriority)),
	)
	if err != nil {
		return nil, err
	}
	a.store = s
	return s, nil
}

// openSession loads the persisted current view.
func (a *app) openSession() (*view.Session, error) {
	if a.session != nil {
		return a.session, nil
	}
	s, err := a.openStore()
	if err != nil {
		return nil, err
	}
	sess, err := view.NewSession(view.NewFileSnapshotStore(s.ViewsDir()))
	if err != nil {
		return nil, err
	}
	a.session = sess
	return sess, nil
}

func (a *app) resolver() (*resolve.Resolver, error) {
	s, err := a.openStore()
	if err != nil {
		return nil, err
	}
	sess, err := a.openSession()
	if err != nil {
		return nil, err
	}
	return resolve.New(s, sess.Current()), nil
}

// resolveOne turns a single identifier into a task id.
func (a *app) resolveOne(ident string) (string, error) {
	r, err := a.resolver()
	if err != nil {
		return "", err
	}
	return r.Resolve(ident)
}

func (a *app) mutator() (*batch.Mutator, error) {
	s, err := a.openStore()
	if err != nil {
		return nil, err
	}
	r, err := a.resolver()
	if err != nil {
		return nil, err
	}
	return batch.New(s, r, a.log), nil
}

func (a *app) scorer() advise.Scorer {
	return advise.TokenScorer{Threshold: a.cfg.DuplicateThreshold}
}

func (a *app) validator() advise.Validator {
	return advise.ProjectAlignment{
		MaxPriority:   store.Priority(a.cfg.AlignmentMaxPriority),
		KnownProjects: a.cfg.KnownProjects,
	}
}

func (a *app) print(s string) {
	fmt.Fprint(a.stdout, s)
}

// printError writes err to stdout as JSON in --json mode and to stderr
// otherwise.
func (a *app) printError(err error) {
	if a.formatter == nil {
		a.formatter = output.New(a.jsonOutput, os.Stdout)
	}
	if a.jsonOutput {
		fmt.Fprint(orDefault(a.stdout, os.Stdout), a.formatter.FormatError(err))
		return
	}
	fmt.Fprint(orDefault(a.stderr, os.Stderr), a.formatter.FormatError(err))
}

func orDefault(w io.Writer, def io.Writer) io.Writer {
	if w == nil {
		return def
	}
	return w
}

// batchOutcome prints results and fails the command when any item failed.
func (a *app) batchOutcome(op string, results []batch.Result) error {
	a.print(a.formatter.FormatBatch(op, results))
	if _, failed := batch.Summarize(results); failed > 0 {
		return exitError{code: 1, msg: fmt.Sprintf("%s: %d item(s) failed", op, failed)}
	}
	return nil
}
