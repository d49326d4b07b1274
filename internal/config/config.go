package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Journal backends.
const (
	JournalSQLite = "sqlite"
	JournalMemory = "memory"
	JournalNone   = "none"
)

// DefaultProgressInterval is how many candidates pass between progress reports.
const DefaultProgressInterval = 100000

// Config represents the configuration file for hashcommit.
type Config struct {
	LogDir  string        `toml:"log_dir"`
	Git     GitConfig     `toml:"git"`
	Search  SearchConfig  `toml:"search"`
	Journal JournalConfig `toml:"journal"`
}

// GitConfig selects the git executable.
type GitConfig struct {
	Binary string `toml:"binary"`
}

// SearchConfig holds defaults for the command line flags of a search.
type SearchConfig struct {
	MatchType        string `toml:"match_type"`        // "begin", "contain" or "end"
	PreserveAuthor   bool   `toml:"preserve_author"`   // overwrite keeps the original author
	MaxIterations    int    `toml:"max_iterations"`    // 0 means unbounded
	ProgressInterval int    `toml:"progress_interval"` // candidates between progress reports
}

// JournalConfig represents configuration for the rewrite journal.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type JournalConfig struct {
	Type    string `toml:"type"`               // "sqlite", "memory" or "none"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// NewConfig returns the default configuration rooted at baseDir.
func NewConfig(baseDir string) *Config {
	return &Config{
		LogDir: filepath.Join(baseDir, "log"),
		Git:    GitConfig{Binary: "git"},
		Search: SearchConfig{
			MatchType:        "begin",
			PreserveAuthor:   true,
			ProgressInterval: DefaultProgressInterval,
		},
		Journal: JournalConfig{
			Type:    JournalSQLite,
			DataDir: filepath.Join(baseDir, "journal"),
		},
	}
}

// Validate rejects values no component can work with.
func (c *Config) Validate() error {
	switch c.Search.MatchType {
	case "begin", "contain", "end":
	default:
		return fmt.Errorf("search.match_type must be begin, contain or end, got %q", c.Search.MatchType)
	}
	if c.Search.MaxIterations < 0 {
		return fmt.Errorf("search.max_iterations must not be negative")
	}
	if c.Search.ProgressInterval < 0 {
		return fmt.Errorf("search.progress_interval must not be negative")
	}
	switch c.Journal.Type {
	case JournalSQLite, JournalMemory, JournalNone:
	default:
		return fmt.Errorf("unknown journal type: %s", c.Journal.Type)
	}
	return nil
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from r. Keys missing from r keep the values already
// in base, so a partial file overrides only what it names.
func (m *Manager) Read(r io.Reader, base *Config) (*Config, error) {
	cfg := *base
	md, err := toml.NewDecoder(r).Decode(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads the file at path on top of the defaults for baseDir.
func ReadFromFile(path, baseDir string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f, NewConfig(baseDir))
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadOrDefault is ReadFromFile, except that a missing file yields the
// defaults for baseDir.
func LoadOrDefault(path, baseDir string) (*Config, error) {
	cfg, err := ReadFromFile(path, baseDir)
	if errors.Is(err, fs.ErrNotExist) {
		return NewConfig(baseDir), nil
	}
	return cfg, err
}

// writeToFile writes a Config to the specified file path.
func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init writes cfg to a new config file at path.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
