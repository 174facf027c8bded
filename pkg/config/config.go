// Package config loads taskdir settings. A global config.toml is merged with
// a taskdir.toml in the data root, then environment variables (optionally
// from a .env file) override both.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/stefanpenner/taskdir/pkg/store"
	"github.com/stefanpenner/taskdir/pkg/view"
)

const (
	GlobalFile = "config.toml"
	RootFile   = "taskdir.toml"

	EnvRoot        = "TASKDIR_ROOT"
	EnvConfig      = "TASKDIR_CONFIG"
	EnvLogLevel    = "TASKDIR_LOG_LEVEL"
	EnvLogEncoding = "TASKDIR_LOG_ENCODING"
)

// Config is the merged configuration.
type Config struct {
	Root                 string   `toml:"root"`
	DefaultPriority      int      `toml:"default_priority"`
	PerPage              int      `toml:"per_page"`
	CompactPerPage       int      `toml:"compact_per_page"`
	SlugFilenames        bool     `toml:"slug_filenames"`
	DuplicateThreshold   float64  `toml:"duplicate_threshold"`
	KnownProjects        []string `toml:"known_projects"`
	AlignmentMaxPriority int      `toml:"alignment_max_priority"`
	Log                  Log      `toml:"log"`
}

// Log configures the logger.
type Log struct {
	Level    string `toml:"level"`
	Encoding string `toml:"encoding"`
}

// Defaults returns the configuration used when no file sets a key.
func Defaults() Config {
	return Config{
		Root:                 store.DefaultDataDir(),
		DefaultPriority:      int(store.PriorityNormal),
		PerPage:              view.DefaultPerPage,
		CompactPerPage:       view.DefaultCompactPerPage,
		DuplicateThreshold:   0.6,
		AlignmentMaxPriority: int(store.PriorityHigh),
		Log:                  Log{Level: "warn", Encoding: "console"},
	}
}

// Load reads .env from the working directory, the global config and the
// root config. rootOverride, when set, wins over every other root source.
func Load(rootOverride string) (*Config, error) {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	globalPath := os.Getenv(EnvConfig)
	if globalPath == "" {
		globalPath = filepath.Join(store.DefaultConfigDir(), GlobalFile)
	}
	return LoadFiles(globalPath, rootOverride)
}

// LoadFiles is Load without the .env step and with an explicit global
// config path.
func LoadFiles(globalPath, rootOverride string) (*Config, error) {
	global, globalMeta, err := loadFile(globalPath)
	if err != nil {
		return nil, err
	}

	cfg := Defaults()
	overlay(&cfg, global, globalMeta)

	switch {
	case rootOverride != "":
		cfg.Root = rootOverride
	case os.Getenv(EnvRoot) != "":
		cfg.Root = os.Getenv(EnvRoot)
	}
	cfg.Root = expandHome(cfg.Root)

	local, localMeta, err := loadFile(filepath.Join(cfg.Root, RootFile))
	if err != nil {
		return nil, err
	}
	// The root file can't relocate the root it lives in.
	root := cfg.Root
	overlay(&cfg, local, localMeta)
	cfg.Root = root

	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv(EnvLogEncoding); v != "" {
		cfg.Log.Encoding = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks ranges that the store and view would otherwise reject
// later with less context.
func (c *Config) Validate() error {
	if !store.Priority(c.DefaultPriority).Valid() {
		return fmt.Errorf("config: default_priority %d must be 0-3", c.DefaultPriority)
	}
	if !store.Priority(c.AlignmentMaxPriority).Valid() {
		return fmt.Errorf("config: alignment_max_priority %d must be 0-3", c.AlignmentMaxPriority)
	}
	for name, n := range map[string]int{"per_page": c.PerPage, "compact_per_page": c.CompactPerPage} {
		if n < 1 || n > view.MaxPerPage {
			return fmt.Errorf("config: %s %d must be between 1 and %d", name, n, view.MaxPerPage)
		}
	}
	if c.DuplicateThreshold < 0 || c.DuplicateThreshold > 1 {
		return fmt.Errorf("config: duplicate_threshold %g must be between 0 and 1", c.DuplicateThreshold)
	}
	switch c.Log.Encoding {
	case "console", "json":
	default:
		return fmt.Errorf("config: log.encoding %q must be console or json", c.Log.Encoding)
	}
	return nil
}

func loadFile(path string) (*Config, toml.MetaData, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Config{}, toml.MetaData{}, nil
	}
	if err != nil {
		return nil, toml.MetaData{}, fmt.Errorf("read config file %s: %w", path, err)
	}

	var cfg Config
	meta, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, toml.MetaData{}, fmt.Errorf("parse config file %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, toml.MetaData{}, fmt.Errorf("config file %s: unknown key %s", path, undecoded[0])
	}
	return &cfg, meta, nil
}

// overlay copies every key src defines onto dst.
func overlay(dst, src *Config, meta toml.MetaData) {
	if meta.IsDefined("root") {
		dst.Root = strings.TrimSpace(src.Root)
	}
	if meta.IsDefined("default_priority") {
		dst.DefaultPriority = src.DefaultPriority
	}
	if meta.IsDefined("per_page") {
		dst.PerPage = src.PerPage
	}
	if meta.IsDefined("compact_per_page") {
		dst.CompactPerPage = src.CompactPerPage
	}
	if meta.IsDefined("slug_filenames") {
		dst.SlugFilenames = src.SlugFilenames
	}
	if meta.IsDefined("duplicate_threshold") {
		dst.DuplicateThreshold = src.DuplicateThreshold
	}
	if meta.IsDefined("known_projects") {
		dst.KnownProjects = append([]string(nil), src.KnownProjects...)
	}
	if meta.IsDefined("alignment_max_priority") {
		dst.AlignmentMaxPriority = src.AlignmentMaxPriority
	}
	if meta.IsDefined("log", "level") {
		dst.Log.Level = strings.TrimSpace(src.Log.Level)
	}
	if meta.IsDefined("log", "encoding") {
		dst.Log.Encoding = strings.TrimSpace(src.Log.Encoding)
	}
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
