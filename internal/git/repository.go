// Package git implements hc.Repository on top of the git command line.
package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/blang/semver/v4"

	"hashcommit/internal/hc"
)

// MinVersion is the oldest git that supports every command used here
// (`rev-parse --show-object-format` arrived in 2.25).
var MinVersion = semver.MustParse("2.25.0")

// Options configures a Repository.
type Options struct {
	// Binary is the git executable. Defaults to "git".
	Binary string

	// Dir is the directory git runs in. Defaults to the working directory.
	Dir string

	// Env is appended to the process environment of every git invocation.
	Env []string
}

// Repository runs git commands against one work tree.
type Repository struct {
	binary string
	dir    string
	env    []string
	logger hc.Logger
}

// NewRepository creates a Repository.
func NewRepository(opts Options, logger hc.Logger) *Repository {
	binary := opts.Binary
	if binary == "" {
		binary = "git"
	}
	return &Repository{binary: binary, dir: opts.Dir, env: opts.Env, logger: logger}
}

// CommandError is a git invocation that exited unsuccessfully.
type CommandError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *CommandError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("git %s: %v", strings.Join(e.Args, " "), e.Err)
	}
	return fmt.Sprintf("git %s: %v: %s", strings.Join(e.Args, " "), e.Err, e.Stderr)
}

func (e *CommandError) Unwrap() error { return e.Err }

// ExitCode returns the exit status of the command, or -1 if it never ran.
func (e *CommandError) ExitCode() int {
	var exitErr *exec.ExitError
	if errors.As(e.Err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// exitCode returns the exit status carried by err, or -1.
func exitCode(err error) int {
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.ExitCode()
	}
	return -1
}

func (r *Repository) run(ctx context.Context, stdin io.Reader, env []string, args ...string) (string, error) {
	full := []string{"--no-replace-objects"}
	if r.dir != "" {
		full = append(full, "-C", r.dir)
	}
	full = append(full, args...)

	cmd := exec.CommandContext(ctx, r.binary, full...)
	cmd.Env = append(append(os.Environ(), r.env...), env...)
	cmd.Stdin = stdin
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.logger.Debug("running git", "args", strings.Join(args, " "))
	if err := cmd.Run(); err != nil {
		return stdout.String(), &CommandError{Args: args, Stderr: strings.TrimSpace(stderr.String()), Err: err}
	}
	return stdout.String(), nil
}

// output runs git and returns its trimmed stdout. Failures are KindExternal.
func (r *Repository) output(ctx context.Context, args ...string) (string, error) {
	out, err := r.run(ctx, nil, nil, args...)
	if err != nil {
		return "", hc.External("git "+args[0], err)
	}
	return strings.TrimSpace(out), nil
}

// IsRepository reports whether the directory is inside a git work tree.
func (r *Repository) IsRepository(ctx context.Context) (bool, error) {
	out, err := r.run(ctx, nil, nil, "rev-parse", "--is-inside-work-tree")
	if err != nil {
		if exitCode(err) > 0 {
			return false, nil
		}
		return false, hc.External("git rev-parse", err)
	}
	return strings.TrimSpace(out) == "true", nil
}

// Version returns the version of the git binary.
func (r *Repository) Version(ctx context.Context) (semver.Version, error) {
	out, err := r.output(ctx, "version")
	if err != nil {
		return semver.Version{}, err
	}
	v, err := ParseVersion(out)
	if err != nil {
		return semver.Version{}, hc.External("git version", err)
	}
	return v, nil
}

// CheckVersion fails with a usage error when git is older than MinVersion.
func (r *Repository) CheckVersion(ctx context.Context) error {
	v, err := r.Version(ctx)
	if err != nil {
		return err
	}
	if v.LT(MinVersion) {
		return hc.Usagef("git %s is too old, version %s or newer is required", v, MinVersion)
	}
	return nil
}

// ParseVersion parses `git version` output such as "git version 2.39.3
// (Apple Git-146)" or "git version 2.45.1.windows.1".
func ParseVersion(out string) (semver.Version, error) {
	fields := strings.Fields(out)
	if len(fields) < 3 || fields[0] != "git" || fields[1] != "version" {
		return semver.Version{}, fmt.Errorf("unrecognized git version output: %q", out)
	}

	var parts []string
	for _, p := range strings.Split(fields[2], ".") {
		if len(parts) == 3 || p == "" || strings.Trim(p, "0123456789") != "" {
			break
		}
		parts = append(parts, p)
	}
	if len(parts) == 0 {
		return semver.Version{}, fmt.Errorf("unrecognized git version: %q", fields[2])
	}
	return semver.ParseTolerant(strings.Join(parts, "."))
}

func (r *Repository) HasCommits(ctx context.Context) (bool, error) {
	_, err := r.run(ctx, nil, nil, "rev-parse", "--verify", "--quiet", "HEAD^{commit}")
	if err != nil {
		if exitCode(err) == 1 {
			return false, nil
		}
		return false, hc.External("git rev-parse", err)
	}
	return true, nil
}

func (r *Repository) HeadID(ctx context.Context) (string, error) {
	return r.output(ctx, "rev-parse", "--verify", "HEAD^{commit}")
}

func (r *Repository) ResolveCommit(ctx context.Context, rev string) (string, error) {
	if rev == "" || strings.HasPrefix(rev, "-") {
		return "", hc.Usagef("invalid commit: %q", rev)
	}
	out, err := r.run(ctx, nil, nil, "rev-parse", "--verify", "--quiet", rev+"^{commit}")
	if err != nil {
		if exitCode(err) == 1 {
			return "", hc.Usagef("unknown commit: %s", rev)
		}
		return "", hc.External("git rev-parse", err)
	}
	return strings.TrimSpace(out), nil
}

func (r *Repository) ReadCommit(ctx context.Context, id string) (*hc.Commit, error) {
	out, err := r.run(ctx, nil, nil, "cat-file", "commit", id)
	if err != nil {
		return nil, hc.External("git cat-file", err)
	}
	c, err := hc.ParseCommit(id, []byte(out))
	if err != nil {
		return nil, hc.External("parse commit", err)
	}
	return c, nil
}

func (r *Repository) WriteTree(ctx context.Context) (string, error) {
	return r.output(ctx, "write-tree")
}

// config returns the value of key and whether it is set.
func (r *Repository) config(ctx context.Context, args ...string) (string, bool, error) {
	out, err := r.run(ctx, nil, nil, append([]string{"config"}, args...)...)
	if err != nil {
		if exitCode(err) == 1 {
			return "", false, nil
		}
		return "", false, hc.External("git config", err)
	}
	return strings.TrimSpace(out), true, nil
}

func (r *Repository) SigningRequired(ctx context.Context) (bool, error) {
	v, ok, err := r.config(ctx, "--bool", "commit.gpgSign")
	if err != nil || !ok {
		return false, err
	}
	return v == "true", nil
}

func (r *Repository) CommitEncoding(ctx context.Context) (string, error) {
	v, ok, err := r.config(ctx, "i18n.commitEncoding")
	if err != nil || !ok {
		return "", err
	}
	return hc.NormalizeEncoding(v), nil
}

func (r *Repository) ObjectFormat(ctx context.Context) (hc.ObjectFormat, error) {
	out, err := r.output(ctx, "rev-parse", "--show-object-format")
	if err != nil {
		return "", err
	}
	f, err := hc.ParseObjectFormat(out)
	if err != nil {
		return "", hc.External("git rev-parse", err)
	}
	return f, nil
}

func (r *Repository) DefaultIdentities(ctx context.Context) (hc.Identity, hc.Identity, error) {
	author, err := r.ident(ctx, "GIT_AUTHOR_IDENT")
	if err != nil {
		return hc.Identity{}, hc.Identity{}, err
	}
	committer, err := r.ident(ctx, "GIT_COMMITTER_IDENT")
	if err != nil {
		return hc.Identity{}, hc.Identity{}, err
	}
	return author, committer, nil
}

func (r *Repository) ident(ctx context.Context, variable string) (hc.Identity, error) {
	out, err := r.run(ctx, nil, nil, "var", variable)
	if err != nil {
		// Usually "Author identity unknown": the user has to configure it.
		return hc.Identity{}, &hc.Error{Kind: hc.KindUsage, Op: "git var", Err: err}
	}
	sig, err := hc.ParseSignature(strings.TrimSpace(out))
	if err != nil {
		return hc.Identity{}, hc.External("git var", err)
	}
	return sig.Identity, nil
}

func (r *Repository) IsAncestor(ctx context.Context, ancestor, descendant string) (bool, error) {
	_, err := r.run(ctx, nil, nil, "merge-base", "--is-ancestor", ancestor, descendant)
	if err != nil {
		if exitCode(err) == 1 {
			return false, nil
		}
		return false, hc.External("git merge-base", err)
	}
	return true, nil
}

// Descendants lists the ancestry path with real parent lists. Parents are
// read from the objects because `rev-list --parents` rewrites them.
func (r *Repository) Descendants(ctx context.Context, ancestor, tip string) ([]hc.Lineage, error) {
	out, err := r.output(ctx, "rev-list", "--reverse", "--topo-order", "--ancestry-path", ancestor+".."+tip)
	if err != nil {
		return nil, err
	}

	var chain []hc.Lineage
	for _, id := range strings.Fields(out) {
		c, err := r.ReadCommit(ctx, id)
		if err != nil {
			return nil, err
		}
		chain = append(chain, hc.Lineage{ID: id, Parents: c.Parents})
	}
	return chain, nil
}

// CreateCommit writes a commit with `git commit-tree`. The message is passed
// on stdin so git stores it byte for byte; identity and dates are passed in
// the command's own environment. The encoding header follows req.Encoding,
// not the repository's i18n.commitEncoding.
func (r *Repository) CreateCommit(ctx context.Context, req hc.CommitRequest) (string, error) {
	encoding := req.Encoding
	if encoding == "" {
		encoding = "UTF-8"
	}
	args := []string{"-c", "i18n.commitEncoding=" + encoding, "commit-tree", req.Tree}
	if req.Parent != "" {
		args = append(args, "-p", req.Parent)
	}
	if req.Sign {
		args = append(args, "-S")
	} else {
		args = append(args, "--no-gpg-sign")
	}

	env := []string{
		"GIT_AUTHOR_NAME=" + req.Author.Name,
		"GIT_AUTHOR_EMAIL=" + req.Author.Email,
		"GIT_AUTHOR_DATE=" + req.Author.Date(),
		"GIT_COMMITTER_NAME=" + req.Committer.Name,
		"GIT_COMMITTER_EMAIL=" + req.Committer.Email,
		"GIT_COMMITTER_DATE=" + req.Committer.Date(),
	}
	out, err := r.run(ctx, strings.NewReader(req.Message), env, args...)
	if err != nil {
		return "", hc.External("git commit-tree", err)
	}
	return strings.TrimSpace(out), nil
}

func (r *Repository) UpdateRef(ctx context.Context, ref, newID, oldID, reason string) error {
	_, err := r.output(ctx, "update-ref", "-m", reason, ref, newID, oldID)
	return err
}

func (r *Repository) ReplaceObject(ctx context.Context, original, replacement string) error {
	_, err := r.output(ctx, "replace", original, replacement)
	return err
}

func (r *Repository) DeleteReplacement(ctx context.Context, original string) error {
	_, err := r.output(ctx, "replace", "-d", original)
	return err
}
