package testutil

import (
	"context"
	"fmt"

	"hashcommit/internal/hc"
)

// FakeRepository is an in-memory hc.Repository. Commit ids are computed with
// hc.HashCommit, so they agree with what git would assign.
type FakeRepository struct {
	Format       hc.ObjectFormat
	Index        string // tree id returned by WriteTree
	Head         string
	Sign         bool
	Encoding     string
	Author       hc.Identity
	Committer    hc.Identity
	Commits      map[string]*hc.Commit
	Replacements map[string]string
	RefUpdates   []string

	// Fail makes the named operation return an external error.
	Fail map[string]error

	// Mutate, if set, edits every descriptor CreateCommit is about to store,
	// the way a hook or a signature would.
	Mutate func(*hc.CommitDescriptor)
}

// NewFakeRepository returns an empty repository with a default identity.
func NewFakeRepository() *FakeRepository {
	return &FakeRepository{
		Format:       hc.SHA1,
		Index:        "4b825dc642cb6eb9a060e54bf8d69288fbee4904",
		Author:       hc.Identity{Name: "Test User", Email: "test@user.com"},
		Committer:    hc.Identity{Name: "Test User", Email: "test@user.com"},
		Commits:      map[string]*hc.Commit{},
		Replacements: map[string]string{},
	}
}

func (f *FakeRepository) fail(op string) error {
	if err := f.Fail[op]; err != nil {
		return hc.External(op, err)
	}
	return nil
}

// AddCommit stores a commit built from d and returns its id. It does not move
// HEAD.
func (f *FakeRepository) AddCommit(d *hc.CommitDescriptor) string {
	id := hc.HashCommit(f.Format, d)
	c := &hc.Commit{
		ID:        id,
		Tree:      d.Tree,
		Author:    d.Author,
		Committer: d.Committer,
		Encoding:  d.Encoding,
		Message:   d.Message,
		Raw:       string(d.Encode()),
	}
	if d.Parent != "" {
		c.Parents = []string{d.Parent}
	}
	f.Commits[id] = c
	return id
}

// Commit appends a commit on top of HEAD and moves HEAD to it.
func (f *FakeRepository) Commit(message string, author hc.Signature) string {
	f.Head = f.AddCommit(&hc.CommitDescriptor{
		Tree:      f.Index,
		Parent:    f.Head,
		Author:    author,
		Committer: author,
		Message:   message,
	})
	return f.Head
}

// History returns the first-parent chain from HEAD, newest first.
func (f *FakeRepository) History() []*hc.Commit {
	var out []*hc.Commit
	for id := f.Head; id != ""; {
		c := f.Commits[id]
		out = append(out, c)
		if len(c.Parents) == 0 {
			break
		}
		id = c.Parents[0]
	}
	return out
}

func (f *FakeRepository) HasCommits(context.Context) (bool, error) {
	return f.Head != "", f.fail("HasCommits")
}

func (f *FakeRepository) HeadID(context.Context) (string, error) {
	if f.Head == "" {
		return "", hc.External("HeadID", fmt.Errorf("HEAD does not point at a commit"))
	}
	return f.Head, nil
}

func (f *FakeRepository) ResolveCommit(_ context.Context, rev string) (string, error) {
	if rev == "HEAD" {
		return f.Head, nil
	}
	if _, ok := f.Commits[rev]; ok {
		return rev, nil
	}
	// unique prefix
	var matches []string
	for id := range f.Commits {
		if len(rev) >= 4 && len(id) >= len(rev) && id[:len(rev)] == rev {
			matches = append(matches, id)
		}
	}
	if len(matches) != 1 {
		return "", hc.Usagef("unknown commit: %s", rev)
	}
	return matches[0], nil
}

func (f *FakeRepository) ReadCommit(_ context.Context, id string) (*hc.Commit, error) {
	c, ok := f.Commits[id]
	if !ok {
		return nil, hc.External("ReadCommit", fmt.Errorf("no such commit: %s", id))
	}
	return c, nil
}

func (f *FakeRepository) WriteTree(context.Context) (string, error) {
	return f.Index, f.fail("WriteTree")
}

func (f *FakeRepository) SigningRequired(context.Context) (bool, error) { return f.Sign, nil }

func (f *FakeRepository) CommitEncoding(context.Context) (string, error) { return f.Encoding, nil }

func (f *FakeRepository) ObjectFormat(context.Context) (hc.ObjectFormat, error) { return f.Format, nil }

func (f *FakeRepository) DefaultIdentities(context.Context) (hc.Identity, hc.Identity, error) {
	return f.Author, f.Committer, nil
}

func (f *FakeRepository) IsAncestor(_ context.Context, ancestor, descendant string) (bool, error) {
	for id := descendant; id != ""; {
		if id == ancestor {
			return true, nil
		}
		c := f.Commits[id]
		if c == nil || len(c.Parents) == 0 {
			break
		}
		id = c.Parents[0]
	}
	return false, nil
}

// Descendants walks first parents only, which is enough for the linear
// histories the fake is used with.
func (f *FakeRepository) Descendants(_ context.Context, ancestor, tip string) ([]hc.Lineage, error) {
	var chain []hc.Lineage
	for id := tip; id != ancestor && id != ""; {
		c := f.Commits[id]
		chain = append(chain, hc.Lineage{ID: id, Parents: c.Parents})
		if len(c.Parents) == 0 {
			break
		}
		id = c.Parents[0]
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}

func (f *FakeRepository) CreateCommit(_ context.Context, req hc.CommitRequest) (string, error) {
	if err := f.fail("CreateCommit"); err != nil {
		return "", err
	}
	d := &hc.CommitDescriptor{
		Tree:      req.Tree,
		Parent:    req.Parent,
		Author:    req.Author,
		Committer: req.Committer,
		Encoding:  req.Encoding,
		Message:   req.Message,
	}
	if req.Sign {
		// A signature changes the object, and with it the id.
		d.Message += "\n-----BEGIN FAKE SIGNATURE-----\n"
	}
	if f.Mutate != nil {
		f.Mutate(d)
	}
	id := f.AddCommit(d)
	f.Commits[id].Signed = req.Sign
	return id, nil
}

func (f *FakeRepository) UpdateRef(_ context.Context, ref, newID, oldID, reason string) error {
	if err := f.fail("UpdateRef"); err != nil {
		return err
	}
	if ref != "HEAD" {
		return hc.External("UpdateRef", fmt.Errorf("unsupported ref %s", ref))
	}
	if f.Head != oldID {
		return hc.External("UpdateRef", fmt.Errorf("HEAD is %s, expected %s", f.Head, oldID))
	}
	f.Head = newID
	f.RefUpdates = append(f.RefUpdates, reason)
	return nil
}

func (f *FakeRepository) ReplaceObject(_ context.Context, original, replacement string) error {
	if _, ok := f.Replacements[original]; ok {
		return hc.External("ReplaceObject", fmt.Errorf("replace ref for %s already exists", original))
	}
	f.Replacements[original] = replacement
	return nil
}

func (f *FakeRepository) DeleteReplacement(_ context.Context, original string) error {
	if err := f.fail("DeleteReplacement"); err != nil {
		return err
	}
	delete(f.Replacements, original)
	return nil
}
