package app

import (
	"time"

	"hashcommit/internal/hc"
)

// Operation statuses.
const (
	StatusPending = "pending"
	StatusSuccess = "success"
	StatusError   = "error"
	StatusDryRun  = "dry-run"
)

// Operation tracks one CLI invocation that may rewrite history. Its ID tags
// every log line and, on success, the journal entry.
type Operation struct {
	ID         string
	Name       string // hc.OpCreate, hc.OpOverwrite or hc.OpOverwriteCommit
	Parameters string // revision for hc.OpOverwriteCommit
	Status     string
}

// NewOperation creates a pending operation.
func NewOperation(id, name, parameters string) *Operation {
	return &Operation{
		ID:         id,
		Name:       name,
		Parameters: parameters,
		Status:     StatusPending,
	}
}

// Finish records how the operation ended.
func (op *Operation) Finish(out *hc.Outcome, err error) {
	switch {
	case err != nil:
		op.Status = StatusError
	case out != nil && out.DryRun:
		op.Status = StatusDryRun
	default:
		op.Status = StatusSuccess
	}
}

// Recordable reports whether the operation changed the repository.
func (op *Operation) Recordable() bool {
	return op.Status == StatusSuccess
}

// Entry builds the journal entry for a finished outcome.
func (op *Operation) Entry(out *hc.Outcome, spec hc.MatchSpec, at time.Time) *hc.JournalEntry {
	e := &hc.JournalEntry{
		ID:        op.ID,
		Operation: out.Operation,
		Desired:   spec.Desired,
		MatchType: spec.Type,
		OldID:     out.OldID,
		NewID:     out.NewID,
		CreatedAt: at.UTC(),
		Rewritten: out.Rewritten,
	}
	if out.Search != nil {
		e.Timestamp = out.Search.Timestamp
		e.Iterations = out.Search.Iterations
	}
	return e
}
