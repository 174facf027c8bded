package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/rogpeppe/go-internal/testscript"
)

var (
	buildOnce   sync.Once
	taskdirPath string
	buildErr    error
)

// buildTaskdir builds the taskdir binary once and returns its path.
func buildTaskdir(t testing.TB) string {
	t.Helper()

	buildOnce.Do(func() {
		moduleRoot, err := findModuleRoot()
		if err != nil {
			buildErr = err
			return
		}

		binDir, err := os.MkdirTemp("", "taskdir-bin-")
		if err != nil {
			buildErr = err
			return
		}

		taskdirPath = filepath.Join(binDir, "taskdir")
		cmd := exec.Command("go", "build", "-o", taskdirPath, "./cmd/taskdir")
		cmd.Dir = moduleRoot
		output, err := cmd.CombinedOutput()
		if err != nil {
			buildErr = fmt.Errorf("build taskdir: %w: %s", err, strings.TrimSpace(string(output)))
		}
	})

	if buildErr != nil {
		t.Fatalf("%v", buildErr)
	}
	return taskdirPath
}

func findModuleRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod not found")
		}
		dir = parent
	}
}

// setupScriptEnv points every script at its own data root and config.
func setupScriptEnv(t testing.TB, env *testscript.Env) error {
	t.Helper()

	env.Setenv("TASKDIR", buildTaskdir(t))

	homeDir := filepath.Join(env.WorkDir, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		return err
	}
	env.Setenv("HOME", homeDir)
	env.Setenv("XDG_CONFIG_HOME", filepath.Join(homeDir, ".config"))
	env.Setenv("XDG_DATA_HOME", filepath.Join(homeDir, ".local", "share"))
	env.Setenv("TASKDIR_ROOT", filepath.Join(env.WorkDir, "data"))
	env.Setenv("TASKDIR_CONFIG", filepath.Join(homeDir, "config.toml"))
	env.Setenv("NO_COLOR", "1")

	env.Setenv("GIT_AUTHOR_NAME", "taskdir test")
	env.Setenv("GIT_AUTHOR_EMAIL", "test@example.com")
	env.Setenv("GIT_COMMITTER_NAME", "taskdir test")
	env.Setenv("GIT_COMMITTER_EMAIL", "test@example.com")
	return nil
}

// cmdTaskID finds a task by title in saved 'view --json' output and stores
// its id in an env var.
func cmdTaskID(ts *testscript.TestScript, neg bool, args []string) {
	if neg {
		ts.Fatalf("taskid does not support negation")
	}
	if len(args) != 3 {
		ts.Fatalf("usage: taskid FILE TITLE VAR")
	}

	var out struct {
		Tasks []struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"tasks"`
	}
	if err := json.Unmarshal([]byte(ts.ReadFile(args[0])), &out); err != nil {
		ts.Fatalf("parse view output: %v", err)
	}
	for _, task := range out.Tasks {
		if task.Title == args[1] {
			ts.Setenv(args[2], task.ID)
			return
		}
	}
	ts.Fatalf("task with title %q not found", args[1])
}

func TestScripts(t *testing.T) {
	testscript.Run(t, testscript.Params{
		Dir: "testdata/script",
		Setup: func(env *testscript.Env) error {
			return setupScriptEnv(t, env)
		},
		Cmds: map[string]func(ts *testscript.TestScript, neg bool, args []string){
			"taskid": cmdTaskID,
		},
	})
}
