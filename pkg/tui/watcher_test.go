package tui

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherSendsOnRecordChange(t *testing.T) {
	dir := t.TempDir()
	msgs := make(chan tea.Msg, 8)

	stop, err := StartWatcher([]string{dir}, func(msg tea.Msg) { msgs <- msg }, nil)
	require.NoError(t, err)
	t.Cleanup(stop)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.json"), []byte("{}"), 0o644))
	select {
	case msg := <-msgs:
		t.Fatalf("unexpected message for non-record file: %#v", msg)
	case <-time.After(2 * watchDebounce):
	}

	require.NoError(t, os.WriteFile(filepath.Join(dir, "task.md"), []byte("x"), 0o644))
	select {
	case msg := <-msgs:
		assert.Equal(t, FileChangedMsg{}, msg)
	case <-time.After(5 * time.Second):
		t.Fatal("no FileChangedMsg after writing a record")
	}
}

func TestWatcherMissingDir(t *testing.T) {
	_, err := StartWatcher([]string{filepath.Join(t.TempDir(), "missing")}, func(tea.Msg) {}, nil)
	assert.Error(t, err)
}
