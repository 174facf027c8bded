package store

import (
	"os"
	"path/filepath"
	"runtime"
)

const appName = "taskdir"

type dirKind int

const (
	dataDir dirKind = iota
	configDir
)

// DefaultDataDir returns the OS-appropriate default data root.
//
//   - macOS:   ~/Library/Application Support/taskdir
//   - Linux:   $XDG_DATA_HOME/taskdir (fallback ~/.local/share/taskdir)
//   - Windows: %LOCALAPPDATA%\taskdir (fallback %APPDATA%\taskdir)
func DefaultDataDir() string {
	return userDirForOS(runtime.GOOS, dataDir)
}

// DefaultConfigDir returns the directory holding the global config.toml.
// Linux honours $XDG_CONFIG_HOME (fallback ~/.config); other systems share
// the data root.
func DefaultConfigDir() string {
	return userDirForOS(runtime.GOOS, configDir)
}

func userDirForOS(goos string, kind dirKind) string {
	home, _ := os.UserHomeDir()

	switch goos {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", appName)
	case "windows":
		for _, env := range []string{"LOCALAPPDATA", "APPDATA"} {
			if dir := os.Getenv(env); dir != "" {
				return filepath.Join(dir, appName)
			}
		}
		return filepath.Join(home, appName)
	}

	if kind == configDir {
		if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
			return filepath.Join(dir, appName)
		}
		return filepath.Join(home, ".config", appName)
	}
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, appName)
	}
	return filepath.Join(home, ".local", "share", appName)
}
