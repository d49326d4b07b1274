package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestManager_ReadWrite_RoundTrip(t *testing.T) {
	original := &Config{
		LogDir: "/home/user/.local/share/hashcommit/log",
		Git:    GitConfig{Binary: "/usr/local/bin/git"},
		Search: SearchConfig{
			MatchType:        "end",
			PreserveAuthor:   false,
			MaxIterations:    5000,
			ProgressInterval: 250,
		},
		Journal: JournalConfig{Type: "sqlite", DataDir: "/home/user/.local/share/hashcommit/journal"},
	}

	var buf bytes.Buffer
	m := &Manager{}

	if err := m.Write(&buf, original); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := m.Read(&buf, NewConfig("/elsewhere"))
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if *got != *original {
		t.Errorf("Read() = %+v, want %+v", *got, *original)
	}
}

func TestManager_Read_PartialFileKeepsDefaults(t *testing.T) {
	m := &Manager{}
	base := NewConfig("/data/hc")

	got, err := m.Read(strings.NewReader("[search]\nmatch_type = \"contain\"\npreserve_author = false\n"), base)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if got.Search.MatchType != "contain" {
		t.Errorf("Search.MatchType = %q, want %q", got.Search.MatchType, "contain")
	}
	if got.Search.PreserveAuthor {
		t.Error("Search.PreserveAuthor = true, want false")
	}
	if got.Search.ProgressInterval != DefaultProgressInterval {
		t.Errorf("Search.ProgressInterval = %d, want %d", got.Search.ProgressInterval, DefaultProgressInterval)
	}
	if got.Git.Binary != "git" {
		t.Errorf("Git.Binary = %q, want %q", got.Git.Binary, "git")
	}
	if got.Journal.DataDir != "/data/hc/journal" {
		t.Errorf("Journal.DataDir = %q, want %q", got.Journal.DataDir, "/data/hc/journal")
	}
	if !base.Search.PreserveAuthor {
		t.Error("Read() modified the base config")
	}
}

func TestManager_Read_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "malformed toml", input: "log_dir = \n"},
		{name: "unknown key", input: "[search]\nmatch = \"begin\"\n"},
		{name: "wrong type", input: "[search]\nmax_iterations = \"lots\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Manager{}
			if _, err := m.Read(strings.NewReader(tt.input), NewConfig("/data")); err == nil {
				t.Error("Read() expected error, got nil")
			}
		})
	}
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig("/data/hc")

	if cfg.LogDir != "/data/hc/log" {
		t.Errorf("LogDir = %q, want %q", cfg.LogDir, "/data/hc/log")
	}
	if cfg.Git.Binary != "git" {
		t.Errorf("Git.Binary = %q, want %q", cfg.Git.Binary, "git")
	}
	if cfg.Search.MatchType != "begin" {
		t.Errorf("Search.MatchType = %q, want %q", cfg.Search.MatchType, "begin")
	}
	if !cfg.Search.PreserveAuthor {
		t.Error("Search.PreserveAuthor = false, want true")
	}
	if cfg.Search.MaxIterations != 0 {
		t.Errorf("Search.MaxIterations = %d, want 0", cfg.Search.MaxIterations)
	}
	if cfg.Journal.Type != JournalSQLite {
		t.Errorf("Journal.Type = %q, want %q", cfg.Journal.Type, JournalSQLite)
	}
	if cfg.Journal.DataDir != "/data/hc/journal" {
		t.Errorf("Journal.DataDir = %q, want %q", cfg.Journal.DataDir, "/data/hc/journal")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() on defaults error = %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{name: "defaults", modify: func(*Config) {}},
		{name: "contain", modify: func(c *Config) { c.Search.MatchType = "contain" }},
		{name: "journal none", modify: func(c *Config) { c.Journal.Type = JournalNone }},
		{name: "bad match type", modify: func(c *Config) { c.Search.MatchType = "prefix" }, wantErr: true},
		{name: "negative iterations", modify: func(c *Config) { c.Search.MaxIterations = -1 }, wantErr: true},
		{name: "negative progress", modify: func(c *Config) { c.Search.ProgressInterval = -5 }, wantErr: true},
		{name: "bad journal", modify: func(c *Config) { c.Journal.Type = "postgres" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig("/data")
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestInit(t *testing.T) {
	t.Run("creates config file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "nested", "hashcommit.toml")
		cfg := NewConfig(dir)

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		if _, err := os.Stat(path); err != nil {
			t.Fatalf("config file not created: %v", err)
		}
	})

	t.Run("fails if file already exists", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "hashcommit.toml")
		cfg := NewConfig(dir)

		if err := Init(path, cfg); err != nil {
			t.Fatalf("first Init() error = %v", err)
		}

		err := Init(path, cfg)
		if err == nil {
			t.Fatal("second Init() expected error")
		}
	})
}

func TestReadFromFile(t *testing.T) {
	t.Run("reads valid config", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "hashcommit.toml")
		cfg := NewConfig(dir)
		cfg.Journal = JournalConfig{Type: JournalMemory}
		cfg.Search.MatchType = "end"

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		got, err := ReadFromFile(path, dir)
		if err != nil {
			t.Fatalf("ReadFromFile() error = %v", err)
		}
		if got.Search.MatchType != "end" {
			t.Errorf("Search.MatchType = %q, want %q", got.Search.MatchType, "end")
		}
		if got.Journal.Type != JournalMemory {
			t.Errorf("Journal.Type = %q, want %q", got.Journal.Type, JournalMemory)
		}
	})

	t.Run("rejects invalid values", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "hashcommit.toml")
		if err := os.WriteFile(path, []byte("[journal]\ntype = \"redis\"\n"), 0o600); err != nil {
			t.Fatal(err)
		}

		if _, err := ReadFromFile(path, dir); err == nil {
			t.Fatal("ReadFromFile() expected error for invalid journal type")
		}
	})

	t.Run("returns error for missing file", func(t *testing.T) {
		_, err := ReadFromFile("/nonexistent/path/hashcommit.toml", "/data")
		if err == nil {
			t.Fatal("ReadFromFile() expected error for missing file")
		}
	})
}

func TestLoadOrDefault(t *testing.T) {
	t.Run("missing file yields defaults", func(t *testing.T) {
		dir := t.TempDir()

		got, err := LoadOrDefault(filepath.Join(dir, "absent.toml"), dir)
		if err != nil {
			t.Fatalf("LoadOrDefault() error = %v", err)
		}
		if *got != *NewConfig(dir) {
			t.Errorf("LoadOrDefault() = %+v, want defaults", *got)
		}
	})

	t.Run("broken file is an error", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "hashcommit.toml")
		if err := os.WriteFile(path, []byte("not = = toml"), 0o600); err != nil {
			t.Fatal(err)
		}

		if _, err := LoadOrDefault(path, dir); err == nil {
			t.Fatal("LoadOrDefault() expected error for malformed file")
		}
	})
}
