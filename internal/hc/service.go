package hc

import (
	"context"
	"fmt"

	"go.uber.org/multierr"
)

// Operation names, as recorded in the journal.
const (
	OpCreate          = "create"
	OpOverwrite       = "overwrite"
	OpOverwriteCommit = "overwrite-commit"
)

// Request describes what the user asked for.
type Request struct {
	Spec MatchSpec

	// Message is the new commit message. When overwriting, "" keeps the
	// message of the commit being replaced, byte for byte.
	Message string

	// PreserveAuthor copies author and committer identities and the author
	// date from the commit being replaced.
	PreserveAuthor bool

	// DryRun stops after the search and returns a preview instead of writing.
	DryRun bool
}

// Outcome describes a finished (or, for a dry run, planned) materialization.
type Outcome struct {
	Operation   string
	OldID       string // replaced commit; empty for OpCreate
	NewID       string
	Search      *SearchResult
	Rewritten   []Rewrite // re-created descendants, oldest first
	Descendants []string  // descendants that are (or would be) re-created
	Preview     string    // unified diff of the commit object, dry run only
	DryRun      bool
}

// Service finds matching commits and materializes them in a repository.
type Service struct {
	repo     Repository
	searcher *Searcher
	logger   Logger
}

// NewService creates a Service.
func NewService(repo Repository, searcher *Searcher, logger Logger) *Service {
	return &Service{repo: repo, searcher: searcher, logger: logger}
}

// policy is the repository configuration that shapes every persisted commit.
type policy struct {
	format   ObjectFormat
	encoding string
	sign     bool
}

func (s *Service) policy(ctx context.Context) (*policy, error) {
	format, err := s.repo.ObjectFormat(ctx)
	if err != nil {
		return nil, err
	}
	encoding, err := s.repo.CommitEncoding(ctx)
	if err != nil {
		return nil, err
	}
	sign, err := s.repo.SigningRequired(ctx)
	if err != nil {
		return nil, err
	}
	return &policy{format: format, encoding: encoding, sign: sign}, nil
}

func (s *Service) requireCommits(ctx context.Context) (string, error) {
	has, err := s.repo.HasCommits(ctx)
	if err != nil {
		return "", err
	}
	if !has {
		return "", Usagef("handling empty repositories is not supported")
	}
	return s.repo.HeadID(ctx)
}

// Create searches for a new commit on top of HEAD, built from the index with
// the configured identity, and advances HEAD to it.
func (s *Service) Create(ctx context.Context, req Request) (*Outcome, error) {
	message := CleanupMessage(req.Message)
	if message == "" {
		return nil, Usagef("aborting commit due to empty commit message")
	}

	head, err := s.requireCommits(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("creating commit", "head", head, "spec", req.Spec.String())

	tree, err := s.repo.WriteTree(ctx)
	if err != nil {
		return nil, err
	}
	pol, err := s.policy(ctx)
	if err != nil {
		return nil, err
	}
	author, committer, err := s.repo.DefaultIdentities(ctx)
	if err != nil {
		return nil, err
	}

	s.warnInfeasible(req.Spec, pol.format)
	res, err := s.searcher.Search(ctx, Candidate{
		Format:    pol.format,
		Tree:      tree,
		Parent:    head,
		Author:    author,
		Committer: committer,
		Encoding:  pol.encoding,
		Message:   message,
	}, req.Spec)
	if err != nil {
		return nil, err
	}

	out := &Outcome{Operation: OpCreate, NewID: res.Hash, Search: res, DryRun: req.DryRun}
	if req.DryRun {
		out.Preview = Preview(nil, res.Hash, res.Descriptor.Encode())
		return out, nil
	}

	// An interrupt must not cut a write in half.
	wctx := context.WithoutCancel(ctx)
	id, err := s.persist(wctx, &res.Descriptor, pol, &req.Spec)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateRef(wctx, "HEAD", id, head, "commit: "+Subject(message)); err != nil {
		return nil, err
	}

	s.logger.Info("commit created", "id", id)
	out.NewID = id
	return out, nil
}

// OverwriteHead replaces HEAD by a matching commit with the same parent, built
// from the index, and moves the current branch to it.
func (s *Service) OverwriteHead(ctx context.Context, req Request) (*Outcome, error) {
	head, err := s.requireCommits(ctx)
	if err != nil {
		return nil, err
	}
	orig, err := s.repo.ReadCommit(ctx, head)
	if err != nil {
		return nil, err
	}
	parent, err := orig.Parent()
	if err != nil {
		return nil, err
	}
	tree, err := s.repo.WriteTree(ctx)
	if err != nil {
		return nil, err
	}
	pol, err := s.policy(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("overwriting HEAD", "head", head, "parent", parent, "spec", req.Spec.String())

	res, err := s.searchReplacement(ctx, req, orig, tree, parent, pol)
	if err != nil {
		return nil, err
	}

	out := &Outcome{Operation: OpOverwrite, OldID: head, NewID: res.Hash, Search: res, DryRun: req.DryRun}
	if req.DryRun {
		out.Preview = Preview(orig, res.Hash, res.Descriptor.Encode())
		return out, nil
	}

	wctx := context.WithoutCancel(ctx)
	id, err := s.persist(wctx, &res.Descriptor, pol, &req.Spec)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateRef(wctx, "HEAD", id, head, "commit (amend): "+Subject(res.Content)); err != nil {
		return nil, err
	}

	s.logger.Info("HEAD overwritten", "old", head, "new", id)
	out.NewID = id
	return out, nil
}

// OverwriteCommit replaces the commit rev names by a matching commit and
// re-creates every descendant up to HEAD on top of it. History between rev and
// HEAD must be linear. While descendants are re-created the replacement is
// grafted over the original; refs move only once, after everything has been
// written, so the original stays reachable until the rewrite succeeded.
func (s *Service) OverwriteCommit(ctx context.Context, rev string, req Request) (*Outcome, error) {
	head, err := s.requireCommits(ctx)
	if err != nil {
		return nil, err
	}
	target, err := s.repo.ResolveCommit(ctx, rev)
	if err != nil {
		return nil, err
	}
	if target == head {
		return s.OverwriteHead(ctx, req)
	}

	ok, err := s.repo.IsAncestor(ctx, target, head)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, Usagef("commit %s is not an ancestor of HEAD", target)
	}

	orig, err := s.repo.ReadCommit(ctx, target)
	if err != nil {
		return nil, err
	}
	parent, err := orig.Parent()
	if err != nil {
		return nil, err
	}
	chain, err := s.linearChain(ctx, target, head)
	if err != nil {
		return nil, err
	}
	pol, err := s.policy(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("overwriting commit", "target", target, "parent", parent, "descendants", len(chain))

	res, err := s.searchReplacement(ctx, req, orig, orig.Tree, parent, pol)
	if err != nil {
		return nil, err
	}

	out := &Outcome{Operation: OpOverwriteCommit, OldID: target, NewID: res.Hash, Search: res, DryRun: req.DryRun}
	for _, l := range chain {
		out.Descendants = append(out.Descendants, l.ID)
	}
	if req.DryRun {
		out.Preview = Preview(orig, res.Hash, res.Descriptor.Encode())
		return out, nil
	}

	wctx := context.WithoutCancel(ctx)
	id, err := s.persist(wctx, &res.Descriptor, pol, &req.Spec)
	if err != nil {
		return nil, err
	}
	out.NewID = id

	if err := s.repo.ReplaceObject(wctx, target, id); err != nil {
		return nil, err
	}
	s.logger.Debug("graft installed", "original", target, "replacement", id)

	rewrites, tip, err := s.relink(wctx, chain, id, pol)
	if err == nil {
		err = s.repo.UpdateRef(wctx, "HEAD", tip, head, fmt.Sprintf("hashcommit: replace %s with %s", short(target), short(id)))
	}
	if err != nil {
		if derr := s.repo.DeleteReplacement(wctx, target); derr != nil {
			err = multierr.Append(err, derr)
		}
		return nil, err
	}

	if err := s.repo.DeleteReplacement(wctx, target); err != nil {
		return nil, External("remove graft", fmt.Errorf(
			"history was rewritten to %s but the graft for %s is still installed (remove it with `git replace -d %s`): %w",
			tip, target, target, err))
	}

	s.logger.Info("commit overwritten", "old", target, "new", id, "rewritten", len(rewrites))
	out.Rewritten = rewrites
	return out, nil
}

// linearChain returns the descendants of target up to head and checks that
// they form a single-parent chain starting at target.
func (s *Service) linearChain(ctx context.Context, target, head string) ([]Lineage, error) {
	chain, err := s.repo.Descendants(ctx, target, head)
	if err != nil {
		return nil, err
	}

	prev := target
	for _, l := range chain {
		if len(l.Parents) != 1 {
			return nil, Usagef("commit %s has %d parents: merge commits are not supported", l.ID, len(l.Parents))
		}
		if l.Parents[0] != prev {
			return nil, Usagef("history between %s and HEAD is not linear", target)
		}
		prev = l.ID
	}
	if prev != head {
		return nil, Usagef("history between %s and HEAD is not linear", target)
	}
	return chain, nil
}

// searchReplacement searches for a commit that replaces orig.
func (s *Service) searchReplacement(ctx context.Context, req Request, orig *Commit, tree, parent string, pol *policy) (*SearchResult, error) {
	message := orig.Message
	if req.Message != "" {
		message = CleanupMessage(req.Message)
		if message == "" {
			return nil, Usagef("aborting commit due to empty commit message")
		}
	}

	c := Candidate{
		Format:   pol.format,
		Tree:     tree,
		Parent:   parent,
		Encoding: pol.encoding,
		Message:  message,
	}
	if req.PreserveAuthor {
		authorDate := orig.Author.When
		c.Author = orig.Author.Identity
		c.Committer = orig.Committer.Identity
		c.AuthorDate = &authorDate
	} else {
		author, committer, err := s.repo.DefaultIdentities(ctx)
		if err != nil {
			return nil, err
		}
		c.Author = author
		c.Committer = committer
	}

	s.warnInfeasible(req.Spec, pol.format)
	return s.searcher.Search(ctx, c, req.Spec)
}

// relink re-creates chain on top of base, copying every field but the parent.
// Each descendant keeps its own encoding header, whatever i18n.commitEncoding
// says today.
// It returns the rewrites in order and the id of the new tip.
func (s *Service) relink(ctx context.Context, chain []Lineage, base string, pol *policy) ([]Rewrite, string, error) {
	rewrites := make([]Rewrite, 0, len(chain))
	parent := base
	for _, l := range chain {
		c, err := s.repo.ReadCommit(ctx, l.ID)
		if err != nil {
			return nil, "", err
		}
		if c.Signed && !pol.sign {
			s.logger.Warn("signature of re-created descendant is dropped", "commit", l.ID)
		}
		d := &CommitDescriptor{
			Tree:      c.Tree,
			Parent:    parent,
			Author:    c.Author,
			Committer: c.Committer,
			Encoding:  NormalizeEncoding(c.Encoding),
			Message:   c.Message,
		}
		id, err := s.persist(ctx, d, pol, nil)
		if err != nil {
			return nil, "", err
		}
		s.logger.Debug("descendant re-created", "old", l.ID, "new", id)
		rewrites = append(rewrites, Rewrite{OldID: l.ID, NewID: id})
		parent = id
	}
	return rewrites, parent, nil
}

// persist writes d and checks that git assigned the predicted id. A signed
// commit cannot be predicted; when spec is given, its id must still match,
// and a mismatch leaves the written commit unreferenced.
func (s *Service) persist(ctx context.Context, d *CommitDescriptor, pol *policy, spec *MatchSpec) (string, error) {
	want := HashCommit(pol.format, d)
	id, err := s.repo.CreateCommit(ctx, NewCommitRequest(d, pol.sign))
	if err != nil {
		return "", err
	}

	if pol.sign {
		if spec != nil && !spec.Matches(id) {
			return "", External("verify commit", fmt.Errorf(
				"signed commit %s does not satisfy %s: the signature changes the commit id; "+
					"no ref points at %s, it stays in the object database until git gc prunes it", id, spec, id))
		}
		return id, nil
	}
	if id != want {
		return "", External("verify commit", fmt.Errorf("git assigned %s, expected %s", id, want))
	}
	return id, nil
}

func (s *Service) warnInfeasible(spec MatchSpec, format ObjectFormat) {
	if !spec.Feasible(format) {
		s.logger.Warn("desired hash can never match a commit id, the search will not stop on its own",
			"desired", spec.Desired)
	}
}

func short(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
