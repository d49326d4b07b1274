package app

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"hashcommit/internal/config"
	"hashcommit/internal/database"
	"hashcommit/internal/hc"
	"hashcommit/internal/testutil"
)

func sampleEntries() []*hc.JournalEntry {
	at := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	return []*hc.JournalEntry{
		{
			ID: "e2", Operation: hc.OpOverwriteCommit, Desired: "f", MatchType: hc.MatchBegin,
			OldID: "aaaa", NewID: "ffff", Timestamp: "Mon Jan 15 10:29:59 2024 +0000",
			Iterations: 9, CreatedAt: at,
			Rewritten: []hc.Rewrite{{OldID: "b1", NewID: "c1"}},
		},
		{
			ID: "e1", Operation: hc.OpCreate, Desired: "0", MatchType: hc.MatchBegin,
			NewID: "0123", Timestamp: "Mon Jan 15 10:29:58 2024 +0000",
			Iterations: 3, CreatedAt: at.Add(-time.Minute),
		},
	}
}

func TestWriteJournal_Text(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJournal(&buf, sampleEntries(), FormatText); err != nil {
		t.Fatalf("WriteJournal() error = %v", err)
	}

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("output has %d lines, want 3:\n%s", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], "overwrite-commit") || !strings.Contains(lines[0], "aaaa -> ffff") ||
		!strings.HasSuffix(lines[0], "(9 candidates)") {
		t.Errorf("line 0 = %q", lines[0])
	}
	if lines[1] != "    b1 -> c1" {
		t.Errorf("line 1 = %q, want the rewritten descendant", lines[1])
	}
	if !strings.Contains(lines[2], "- -> 0123") {
		t.Errorf("line 2 = %q, want a create without old id", lines[2])
	}
}

func TestWriteJournal_TextEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJournal(&buf, nil, ""); err != nil {
		t.Fatalf("WriteJournal() error = %v", err)
	}
	if buf.String() != "No journal entries.\n" {
		t.Errorf("output = %q", buf.String())
	}
}

func TestWriteJournal_YAML(t *testing.T) {
	var buf bytes.Buffer
	want := sampleEntries()
	if err := WriteJournal(&buf, want, FormatYAML); err != nil {
		t.Fatalf("WriteJournal() error = %v", err)
	}

	var got []*hc.JournalEntry
	if err := yaml.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not valid yaml: %v\n%s", err, buf.String())
	}
	if len(got) != 2 {
		t.Fatalf("decoded %d entries, want 2", len(got))
	}
	if got[0].OldID != "aaaa" || got[0].Rewritten[0].NewID != "c1" || !got[0].CreatedAt.Equal(want[0].CreatedAt) {
		t.Errorf("entry 0 = %+v", got[0])
	}
	if strings.Contains(buf.String(), "old_id: \"\"") {
		t.Errorf("empty old_id should be omitted:\n%s", buf.String())
	}
}

func TestWriteJournal_UnknownFormat(t *testing.T) {
	err := WriteJournal(&bytes.Buffer{}, nil, "json")
	if hc.KindOf(err) != hc.KindUsage {
		t.Errorf("WriteJournal(json) error = %v, want a usage error", err)
	}
}

func TestListJournal(t *testing.T) {
	dir := t.TempDir()
	cfg := config.JournalConfig{Type: config.JournalSQLite, DataDir: dir}

	j, err := database.NewJournalFromConfig(cfg)
	if err != nil {
		t.Fatalf("NewJournalFromConfig() error = %v", err)
	}
	entries := sampleEntries()
	for i := len(entries) - 1; i >= 0; i-- {
		if err := j.Record(entries[i]); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}
	j.Close()

	t.Run("all", func(t *testing.T) {
		got, err := ListJournal(cfg, 0, "")
		if err != nil {
			t.Fatalf("ListJournal() error = %v", err)
		}
		if len(got) != 2 || got[0].ID != "e2" {
			t.Errorf("ListJournal() = %v, want e2, e1", got)
		}
	})

	t.Run("limit", func(t *testing.T) {
		got, err := ListJournal(cfg, 1, "")
		if err != nil {
			t.Fatalf("ListJournal() error = %v", err)
		}
		if len(got) != 1 {
			t.Errorf("ListJournal(limit 1) returned %d entries", len(got))
		}
	})

	t.Run("by rewritten commit", func(t *testing.T) {
		got, err := ListJournal(cfg, 0, "b1")
		if err != nil {
			t.Fatalf("ListJournal() error = %v", err)
		}
		if len(got) != 1 || got[0].ID != "e2" {
			t.Errorf("ListJournal(b1) = %v, want e2", got)
		}
	})

	t.Run("disabled", func(t *testing.T) {
		_, err := ListJournal(config.JournalConfig{Type: config.JournalNone}, 0, "")
		if hc.KindOf(err) != hc.KindUsage {
			t.Errorf("ListJournal(none) error = %v, want a usage error", err)
		}
	})
}

func TestWriteJournal_RecordedEntries(t *testing.T) {
	j := testutil.NewTestJournal(t)
	for _, e := range sampleEntries() {
		if err := j.Record(e); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	entries, err := j.Find("B1")
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}

	var buf bytes.Buffer
	if err := WriteJournal(&buf, entries, FormatText); err != nil {
		t.Fatalf("WriteJournal() error = %v", err)
	}
	if !strings.Contains(buf.String(), "aaaa -> ffff") || strings.Contains(buf.String(), "0123") {
		t.Errorf("output = %q, want only the entry that rewrote b1", buf.String())
	}
}
