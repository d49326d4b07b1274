package database

import (
	"fmt"
	"path/filepath"

	"hashcommit/internal/config"
	"hashcommit/internal/hc"
)

// JournalFile is the journal's file name inside the data directory.
const JournalFile = "journal.db"

// NewJournalFromConfig creates a Journal implementation based on the journal config type.
func NewJournalFromConfig(cfg config.JournalConfig) (hc.Journal, error) {
	switch cfg.Type {
	case config.JournalSQLite:
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite journal")
		}
		return openJournal(filepath.Join(cfg.DataDir, JournalFile))
	case config.JournalMemory:
		return openJournal(MemoryPath)
	case config.JournalNone:
		return hc.NopJournal{}, nil
	default:
		return nil, fmt.Errorf("unknown journal type: %s", cfg.Type)
	}
}

// openJournal keeps a failed open from leaking a typed nil into hc.Journal.
func openJournal(path string) (hc.Journal, error) {
	j, err := NewSQLiteJournal(path)
	if err != nil {
		return nil, err
	}
	return j, nil
}
