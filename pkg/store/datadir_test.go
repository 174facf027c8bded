package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultDataDirMacOS(t *testing.T) {
	home, _ := os.UserHomeDir()
	want := filepath.Join(home, "Library", "Application Support", "taskdir")
	assert.Equal(t, want, userDirForOS("darwin", dataDir))
	assert.Equal(t, want, userDirForOS("darwin", configDir))
}

func TestDefaultDataDirLinux(t *testing.T) {
	home, _ := os.UserHomeDir()

	t.Setenv("XDG_DATA_HOME", "")
	assert.Equal(t, filepath.Join(home, ".local", "share", "taskdir"), userDirForOS("linux", dataDir))

	t.Setenv("XDG_DATA_HOME", "/custom/data")
	assert.Equal(t, filepath.Join("/custom/data", "taskdir"), userDirForOS("linux", dataDir))
}

func TestDefaultConfigDirLinux(t *testing.T) {
	home, _ := os.UserHomeDir()

	t.Setenv("XDG_CONFIG_HOME", "")
	assert.Equal(t, filepath.Join(home, ".config", "taskdir"), userDirForOS("linux", configDir))

	t.Setenv("XDG_CONFIG_HOME", "/custom/config")
	assert.Equal(t, filepath.Join("/custom/config", "taskdir"), userDirForOS("linux", configDir))
}

func TestDefaultDataDirWindows(t *testing.T) {
	t.Setenv("LOCALAPPDATA", `C:\Users\test\AppData\Local`)
	assert.Equal(t, filepath.Join(`C:\Users\test\AppData\Local`, "taskdir"), userDirForOS("windows", dataDir))

	t.Setenv("LOCALAPPDATA", "")
	t.Setenv("APPDATA", `C:\Users\test\AppData\Roaming`)
	assert.Equal(t, filepath.Join(`C:\Users\test\AppData\Roaming`, "taskdir"), userDirForOS("windows", dataDir))
}
