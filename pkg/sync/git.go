// Package sync keeps the data root in a git repository and exchanges it
// with a remote.
package sync

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ignored lists per-machine files that never belong in history.
var ignored = []string{"views/", ".taskdir.lock", ".tmp-*"}

// ErrNoRepo is returned when the data root has not been initialised.
var ErrNoRepo = errors.New("data root is not a git repository; run 'taskdir remote <url>' first")

// Repo runs git in a data root. Progress goes to Out.
type Repo struct {
	Dir string
	Out io.Writer
	Log *zap.Logger
	Now func() time.Time
}

// New returns a Repo for dir writing progress to out.
func New(dir string, out io.Writer, log *zap.Logger) *Repo {
	if out == nil {
		out = io.Discard
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Repo{Dir: dir, Out: out, Log: log, Now: time.Now}
}

func (r *Repo) git(ctx context.Context, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, "git", append([]string{"-C", r.Dir}, args...)...)
	r.Log.Debug("git", zap.Strings("args", args))
	return cmd
}

// run executes git and folds stderr into the returned error.
func (r *Repo) run(ctx context.Context, args ...string) (string, error) {
	var stdout, stderr bytes.Buffer
	cmd := r.git(ctx, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return "", fmt.Errorf("git %s: %w", args[0], err)
		}
		return "", fmt.Errorf("git %s: %s: %w", args[0], msg, err)
	}
	return strings.TrimSpace(stdout.String()), nil
}

// IsRepo reports whether the data root has a .git directory.
func (r *Repo) IsRepo() bool {
	_, err := os.Stat(filepath.Join(r.Dir, ".git"))
	return err == nil
}

// Init creates the repository if needed and writes a .gitignore for the
// per-machine files.
func (r *Repo) Init(ctx context.Context) error {
	if !r.IsRepo() {
		if _, err := r.run(ctx, "init", "--quiet"); err != nil {
			return err
		}
		fmt.Fprintf(r.Out, "Initialized git repository in %s\n", r.Dir)
	}
	path := filepath.Join(r.Dir, ".gitignore")
	existing, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	var missing []string
	for _, pattern := range ignored {
		if !bytes.Contains(existing, []byte(pattern)) {
			missing = append(missing, pattern)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	if len(existing) > 0 && !bytes.HasSuffix(existing, []byte("\n")) {
		missing = append([]string{""}, missing...)
	}
	if _, err := f.WriteString(strings.Join(missing, "\n") + "\n"); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// SetRemote initialises the repository if needed and points origin at url.
func (r *Repo) SetRemote(ctx context.Context, url string) error {
	if strings.TrimSpace(url) == "" {
		return errors.New("remote url must not be empty")
	}
	if err := r.Init(ctx); err != nil {
		return err
	}
	// Remove existing origin first (ignore error if doesn't exist)
	_, _ = r.run(ctx, "remote", "remove", "origin")
	if _, err := r.run(ctx, "remote", "add", "origin", url); err != nil {
		return fmt.Errorf("setting remote: %w", err)
	}
	fmt.Fprintf(r.Out, "Remote set to: %s\n", url)
	return nil
}

// Remote returns the origin url, or "" when none is configured.
func (r *Repo) Remote(ctx context.Context) string {
	url, err := r.run(ctx, "remote", "get-url", "origin")
	if err != nil {
		return ""
	}
	return url
}

// Commit stages everything and commits if anything changed. It reports
// whether a commit was made.
func (r *Repo) Commit(ctx context.Context) (bool, error) {
	if _, err := r.run(ctx, "add", "-A"); err != nil {
		return false, err
	}
	if err := r.git(ctx, "diff", "--cached", "--quiet").Run(); err == nil {
		return false, nil
	}
	msg := "taskdir sync " + r.Now().Format("2006-01-02 15:04:05")
	if _, err := r.run(ctx, "commit", "--quiet", "-m", msg); err != nil {
		return false, err
	}
	fmt.Fprintf(r.Out, "Committed: %s\n", msg)
	return true, nil
}

// Sync commits local changes, pulls (rebase, falling back to merge) and
// pushes. Without a remote it only commits.
func (r *Repo) Sync(ctx context.Context) error {
	if !r.IsRepo() {
		return ErrNoRepo
	}

	fmt.Fprintln(r.Out, "Staging changes...")
	if _, err := r.Commit(ctx); err != nil {
		return err
	}

	if r.Remote(ctx) == "" {
		fmt.Fprintln(r.Out, "No remote configured; changes committed locally.")
		return nil
	}

	if _, err := r.run(ctx, "rev-parse", "--abbrev-ref", "@{u}"); err != nil {
		// First push to this remote; nothing to pull yet.
		return r.push(ctx)
	}

	fmt.Fprintln(r.Out, "Pulling...")
	if _, err := r.run(ctx, "pull", "--rebase"); err != nil {
		r.Log.Info("rebase failed, trying merge", zap.Error(err))
		fmt.Fprintln(r.Out, "Rebase failed, trying merge...")
		_, _ = r.run(ctx, "rebase", "--abort")
		if _, err := r.run(ctx, "pull", "--no-rebase"); err != nil {
			_, _ = r.run(ctx, "merge", "--abort")
			return fmt.Errorf("sync failed: could not rebase or merge, resolve conflicts manually: %w", err)
		}
	}

	return r.push(ctx)
}

func (r *Repo) push(ctx context.Context) error {
	fmt.Fprintln(r.Out, "Pushing...")
	if _, err := r.run(ctx, "push", "--quiet", "-u", "origin", "HEAD"); err != nil {
		return fmt.Errorf("push failed: %w", err)
	}
	fmt.Fprintln(r.Out, "Sync complete.")
	return nil
}
