package app

import (
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"hashcommit/internal/config"
	"hashcommit/internal/database"
	"hashcommit/internal/hc"
)

// Journal output formats.
const (
	FormatText = "text"
	FormatYAML = "yaml"
)

// ListJournal returns the newest entries of the configured journal, at most
// limit of them (limit <= 0 means all). A non-empty commit restricts the
// result to entries that produced or replaced a commit with that id prefix.
func ListJournal(cfg config.JournalConfig, limit int, commit string) ([]*hc.JournalEntry, error) {
	if cfg.Type == config.JournalNone {
		return nil, hc.Usagef("the journal is disabled (journal.type = %q)", cfg.Type)
	}

	j, err := database.NewJournalFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("opening journal: %w", err)
	}
	defer j.Close()
	if sj, ok := j.(*database.SQLiteJournal); ok {
		if err := sj.CheckMigrations(); err != nil {
			return nil, fmt.Errorf("journal at %s: %w", sj.Path(), err)
		}
	}

	if commit == "" {
		return j.Entries(limit)
	}
	entries, err := j.Find(commit)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// WriteJournal renders entries in the given format.
func WriteJournal(w io.Writer, entries []*hc.JournalEntry, format string) error {
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if entries == nil {
			entries = []*hc.JournalEntry{}
		}
		if err := enc.Encode(entries); err != nil {
			return fmt.Errorf("encoding journal: %w", err)
		}
		return enc.Close()
	case FormatText, "":
		return writeJournalText(w, entries)
	default:
		return hc.Usagef("unknown format %q (want %s or %s)", format, FormatText, FormatYAML)
	}
}

func writeJournalText(w io.Writer, entries []*hc.JournalEntry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "No journal entries.")
		return err
	}

	for _, e := range entries {
		old := e.OldID
		if old == "" {
			old = "-"
		}
		line := fmt.Sprintf("%s  %-16s  %s %s  %s -> %s  (%d candidates)",
			e.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			e.Operation, e.MatchType, e.Desired, old, e.NewID, e.Iterations)
		if _, err := fmt.Fprintln(w, strings.TrimRight(line, " ")); err != nil {
			return err
		}
		for _, rw := range e.Rewritten {
			if _, err := fmt.Fprintf(w, "    %s -> %s\n", rw.OldID, rw.NewID); err != nil {
				return err
			}
		}
	}
	return nil
}
