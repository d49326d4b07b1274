package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// Defaults are the locations used when nothing else is configured.
type Defaults struct {
	ConfigPath string // TOML config file
	BaseDir    string // root of the journal and log directories
}

// GetDefaults resolves Defaults from the environment, in order of precedence:
//
//	config: $HASHCOMMIT_CONFIG_PATH, $XDG_CONFIG_HOME/hashcommit.toml, ~/.config/hashcommit.toml
//	data:   $HASHCOMMIT_HOME, $XDG_DATA_HOME/hashcommit, ~/.local/share/hashcommit
func GetDefaults() (Defaults, error) {
	configPath, err := resolve("HASHCOMMIT_CONFIG_PATH", "XDG_CONFIG_HOME", "hashcommit.toml", ".config")
	if err != nil {
		return Defaults{}, err
	}
	baseDir, err := resolve("HASHCOMMIT_HOME", "XDG_DATA_HOME", "hashcommit", ".local", "share")
	if err != nil {
		return Defaults{}, err
	}
	return Defaults{ConfigPath: configPath, BaseDir: baseDir}, nil
}

// resolve returns $override, else $xdg/name, else ~/<home...>/name. Relative
// XDG paths are ignored, as the XDG base directory rules require.
func resolve(override, xdg, name string, home ...string) (string, error) {
	if path := os.Getenv(override); path != "" {
		return path, nil
	}
	if dir := os.Getenv(xdg); dir != "" && filepath.IsAbs(dir) {
		return filepath.Join(dir, name), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(append(append([]string{homeDir}, home...), name)...), nil
}
