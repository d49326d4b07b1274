package hc

import "context"

// Inspector is the read-only side of the version-control service.
type Inspector interface {
	// HasCommits reports whether HEAD points at a commit.
	HasCommits(ctx context.Context) (bool, error)

	// HeadID returns the id of the commit HEAD points at.
	HeadID(ctx context.Context) (string, error)

	// ResolveCommit resolves a revision to a full commit id.
	ResolveCommit(ctx context.Context, rev string) (string, error)

	// ReadCommit returns the parsed commit object with the given id.
	ReadCommit(ctx context.Context, id string) (*Commit, error)

	// WriteTree returns the tree id of the current index.
	WriteTree(ctx context.Context) (string, error)

	// SigningRequired reports whether commit.gpgSign is enabled.
	SigningRequired(ctx context.Context) (bool, error)

	// CommitEncoding returns i18n.commitEncoding when it is set to something
	// other than UTF-8, and "" otherwise.
	CommitEncoding(ctx context.Context) (string, error)

	// ObjectFormat returns the hash algorithm of the repository.
	ObjectFormat(ctx context.Context) (ObjectFormat, error)

	// DefaultIdentities returns the author and committer identities git would
	// use for a new commit.
	DefaultIdentities(ctx context.Context) (author, committer Identity, err error)

	// IsAncestor reports whether ancestor is reachable from descendant.
	IsAncestor(ctx context.Context, ancestor, descendant string) (bool, error)

	// Descendants returns the commits on the ancestry path from ancestor
	// (exclusive) to tip (inclusive), oldest first, with their parent lists.
	Descendants(ctx context.Context, ancestor, tip string) ([]Lineage, error)
}

// Lineage is a commit id together with the ids of its parents.
type Lineage struct {
	ID      string
	Parents []string
}

// CommitRequest is everything needed to persist a commit. Identity and dates
// travel with the request instead of the process environment.
type CommitRequest struct {
	Tree      string
	Parent    string
	Author    Signature
	Committer Signature
	Encoding  string // "" for UTF-8
	Message   string
	Sign      bool
}

// NewCommitRequest builds a request that persists d.
func NewCommitRequest(d *CommitDescriptor, sign bool) CommitRequest {
	return CommitRequest{
		Tree:      d.Tree,
		Parent:    d.Parent,
		Author:    d.Author,
		Committer: d.Committer,
		Encoding:  d.Encoding,
		Message:   d.Message,
		Sign:      sign,
	}
}

// Writer is the mutating side of the version-control service.
type Writer interface {
	// CreateCommit writes a commit object and returns its id. No ref moves.
	CreateCommit(ctx context.Context, req CommitRequest) (string, error)

	// UpdateRef points ref at newID if it currently points at oldID.
	UpdateRef(ctx context.Context, ref, newID, oldID, reason string) error

	// ReplaceObject installs a replacement (graft) of original by replacement.
	ReplaceObject(ctx context.Context, original, replacement string) error

	// DeleteReplacement removes the replacement installed for original.
	DeleteReplacement(ctx context.Context, original string) error
}

// Repository is the version-control service the core depends on.
type Repository interface {
	Inspector
	Writer
}
