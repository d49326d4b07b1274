package app

import (
	"errors"
	"testing"
	"time"

	"hashcommit/internal/hc"
)

func TestNewOperation(t *testing.T) {
	op := NewOperation("op-1", hc.OpOverwriteCommit, "HEAD~2")

	if op.ID != "op-1" {
		t.Errorf("ID = %q, want %q", op.ID, "op-1")
	}
	if op.Name != hc.OpOverwriteCommit {
		t.Errorf("Name = %q, want %q", op.Name, hc.OpOverwriteCommit)
	}
	if op.Parameters != "HEAD~2" {
		t.Errorf("Parameters = %q, want %q", op.Parameters, "HEAD~2")
	}
	if op.Status != StatusPending {
		t.Errorf("Status = %q, want %q", op.Status, StatusPending)
	}
	if op.Recordable() {
		t.Error("Recordable() = true for a pending operation")
	}
}

func TestOperation_Finish(t *testing.T) {
	tests := []struct {
		name       string
		out        *hc.Outcome
		err        error
		want       string
		recordable bool
	}{
		{name: "success", out: &hc.Outcome{}, want: StatusSuccess, recordable: true},
		{name: "dry run", out: &hc.Outcome{DryRun: true}, want: StatusDryRun},
		{name: "error", err: errors.New("boom"), want: StatusError},
		{name: "error wins over outcome", out: &hc.Outcome{}, err: errors.New("boom"), want: StatusError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op := NewOperation("op", hc.OpCreate, "")
			op.Finish(tt.out, tt.err)

			if op.Status != tt.want {
				t.Errorf("Status = %q, want %q", op.Status, tt.want)
			}
			if op.Recordable() != tt.recordable {
				t.Errorf("Recordable() = %v, want %v", op.Recordable(), tt.recordable)
			}
		})
	}
}

func TestOperation_Entry(t *testing.T) {
	op := NewOperation("op-7", hc.OpOverwriteCommit, "abc")
	at := time.Date(2024, 1, 15, 11, 30, 0, 0, time.FixedZone("CET", 3600))
	out := &hc.Outcome{
		Operation: hc.OpOverwriteCommit,
		OldID:     "aaaa",
		NewID:     "ffff",
		Search:    &hc.SearchResult{Timestamp: "Mon Jan 15 10:29:59 2024 +0000", Iterations: 12},
		Rewritten: []hc.Rewrite{{OldID: "b1", NewID: "c1"}},
	}
	spec := hc.MatchSpec{Desired: "f", Type: hc.MatchBegin}

	e := op.Entry(out, spec, at)

	if e.ID != "op-7" || e.Operation != hc.OpOverwriteCommit {
		t.Errorf("entry identity = (%q, %q), want (op-7, %s)", e.ID, e.Operation, hc.OpOverwriteCommit)
	}
	if e.Desired != "f" || e.MatchType != hc.MatchBegin {
		t.Errorf("entry spec = (%q, %q), want (f, begin)", e.Desired, e.MatchType)
	}
	if e.OldID != "aaaa" || e.NewID != "ffff" {
		t.Errorf("entry ids = (%q, %q), want (aaaa, ffff)", e.OldID, e.NewID)
	}
	if e.Timestamp != out.Search.Timestamp || e.Iterations != 12 {
		t.Errorf("entry search = (%q, %d), want (%q, 12)", e.Timestamp, e.Iterations, out.Search.Timestamp)
	}
	if e.CreatedAt.Location() != time.UTC || !e.CreatedAt.Equal(at) {
		t.Errorf("CreatedAt = %v, want %v in UTC", e.CreatedAt, at)
	}
	if len(e.Rewritten) != 1 || e.Rewritten[0].NewID != "c1" {
		t.Errorf("Rewritten = %v, want the outcome's rewrites", e.Rewritten)
	}
}
