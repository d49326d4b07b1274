package hc

import (
	"context"
	"fmt"
	"time"
)

// cancelCheckInterval is how many candidates are hashed between polls of the
// context.
const cancelCheckInterval = 1024

// SearchOptions bounds and observes a search. The zero value searches without
// limit in the local time zone.
type SearchOptions struct {
	// MaxIterations caps the number of candidates; 0 means unbounded.
	MaxIterations int

	// Location is the zone candidates are rendered in. Nil means time.Local.
	Location *time.Location

	// Progress, if set, is called every ProgressEvery candidates.
	Progress      func(iterations int, candidate time.Time)
	ProgressEvery int
}

// Candidate holds the fields that stay fixed for the whole search. Only the
// committer date, and the author date unless AuthorDate pins it, vary.
type Candidate struct {
	Format     ObjectFormat
	Tree       string
	Parent     string
	Author     Identity
	Committer  Identity
	AuthorDate *time.Time
	Encoding   string
	Message    string
}

// SearchResult is the winning candidate.
type SearchResult struct {
	Content    string    // commit message
	Timestamp  string    // committer date in DateLayout
	When       time.Time // committer date
	Hash       string    // predicted commit id
	Iterations int

	Descriptor CommitDescriptor
}

// Searcher walks candidate timestamps backwards from now, one second at a
// time, until the predicted commit id satisfies a MatchSpec.
type Searcher struct {
	clock  Clock
	logger Logger
	opts   SearchOptions
}

// NewSearcher creates a Searcher.
func NewSearcher(clock Clock, logger Logger, opts SearchOptions) *Searcher {
	return &Searcher{clock: clock, logger: logger, opts: opts}
}

// Search returns the first (most recent) candidate whose id matches spec.
// It runs until a match is found, the context is done, or MaxIterations is
// exhausted; the latter two yield a KindInterrupted error. Search never
// writes to the repository.
func (s *Searcher) Search(ctx context.Context, c Candidate, spec MatchSpec) (*SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, Interrupted(fmt.Errorf("search not started: %w", err))
	}

	loc := s.opts.Location
	if loc == nil {
		loc = time.Local
	}
	ts := s.clock.Now().In(loc).Truncate(time.Second)
	s.logger.Debug("search started", "spec", spec.String(), "from", FormatDate(ts))

	hasher := newCommitHasher(c.Format)
	d := CommitDescriptor{
		Tree:      c.Tree,
		Parent:    c.Parent,
		Author:    Signature{Identity: c.Author},
		Committer: Signature{Identity: c.Committer},
		Encoding:  c.Encoding,
		Message:   c.Message,
	}
	if c.AuthorDate != nil {
		d.Author.When = *c.AuthorDate
	}

	for i := 1; ; i++ {
		if s.opts.MaxIterations > 0 && i > s.opts.MaxIterations {
			return nil, Interrupted(fmt.Errorf("no match for %s within %d candidates", spec, s.opts.MaxIterations))
		}
		if i%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, Interrupted(fmt.Errorf("search cancelled after %d candidates: %w", i-1, err))
			}
		}

		ts = ts.Add(-time.Second)
		d.Committer.When = ts
		if c.AuthorDate == nil {
			d.Author.When = ts
		}

		id := hasher.hash(&d)
		if spec.Matches(id) {
			s.logger.Info("found matching commit hash", "hash", id, "timestamp", FormatDate(ts), "iterations", i)
			return &SearchResult{
				Content:    d.Message,
				Timestamp:  FormatDate(ts),
				When:       ts,
				Hash:       id,
				Iterations: i,
				Descriptor: d,
			}, nil
		}

		if s.opts.Progress != nil && s.opts.ProgressEvery > 0 && i%s.opts.ProgressEvery == 0 {
			s.opts.Progress(i, ts)
		}
	}
}
