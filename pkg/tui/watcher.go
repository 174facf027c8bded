package tui

import (
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const watchDebounce = 200 * time.Millisecond

// StartWatcher watches the status directories and sends FileChangedMsg
// after record files change. Pass program.Send as send. The returned
// function stops the watcher.
func StartWatcher(dirs []string, send func(tea.Msg), log *zap.Logger) (func(), error) {
	if log == nil {
		log = zap.NewNop()
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	for _, dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			watcher.Close()
			return nil, err
		}
	}

	done := make(chan struct{})

	go func() {
		var debounceTimer *time.Timer

		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				// Only record files; temp files from atomic writes are ignored
				if !strings.HasSuffix(event.Name, ".md") {
					continue
				}
				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				debounceTimer = time.AfterFunc(watchDebounce, func() {
					send(FileChangedMsg{})
				})

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn("file watcher", zap.Error(err))

			case <-done:
				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				return
			}
		}
	}()

	cleanup := func() {
		close(done)
		watcher.Close()
	}

	return cleanup, nil
}
