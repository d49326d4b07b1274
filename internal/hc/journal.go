package hc

import "time"

// Rewrite pairs the id of a commit with the id of the commit that replaced it.
type Rewrite struct {
	OldID string `json:"old_id" yaml:"old_id"`
	NewID string `json:"new_id" yaml:"new_id"`
}

// JournalEntry records one materialization, so any replaced commit can be
// found again after the refs moved on.
type JournalEntry struct {
	ID         string    `yaml:"id"`
	Operation  string    `yaml:"operation"`
	Desired    string    `yaml:"desired"`
	MatchType  MatchType `yaml:"match_type"`
	OldID      string    `yaml:"old_id,omitempty"`
	NewID      string    `yaml:"new_id"`
	Timestamp  string    `yaml:"timestamp"`
	Iterations int       `yaml:"iterations"`
	CreatedAt  time.Time `yaml:"created_at"`
	Rewritten  []Rewrite `yaml:"rewritten,omitempty"`
}

// Journal stores JournalEntries.
type Journal interface {
	// Record appends an entry.
	Record(entry *JournalEntry) error

	// Entries returns at most limit entries, newest first. limit <= 0 means all.
	Entries(limit int) ([]*JournalEntry, error)

	// Find returns the entries, newest first, that produced or replaced a
	// commit whose id starts with prefix.
	Find(prefix string) ([]*JournalEntry, error)

	// Close releases the underlying store.
	Close() error
}

// NopJournal discards entries. Used when the journal is disabled.
type NopJournal struct{}

func (NopJournal) Record(*JournalEntry) error            { return nil }
func (NopJournal) Entries(int) ([]*JournalEntry, error) { return nil, nil }
func (NopJournal) Find(string) ([]*JournalEntry, error) { return nil, nil }
func (NopJournal) Close() error                         { return nil }
