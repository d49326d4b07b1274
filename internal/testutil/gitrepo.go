package testutil

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"hashcommit/internal/git"
	"hashcommit/internal/hc"
)

// GitRepo is a scratch repository in a temporary directory. Global and system
// git configuration are isolated from the developer's own.
type GitRepo struct {
	t   *testing.T
	Dir string
	Env []string
}

// LogEntry is one line of `git log` for assertions.
type LogEntry struct {
	Hash    string
	Author  string
	Message string
}

// NewGitRepo runs `git init` in a fresh directory. The test is skipped when
// no git binary is available.
func NewGitRepo(t *testing.T) *GitRepo {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available")
	}

	home := t.TempDir()
	dir := filepath.Join(t.TempDir(), "repo")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("creating repo dir: %v", err)
	}

	g := &GitRepo{
		t:   t,
		Dir: dir,
		Env: []string{
			"HOME=" + home,
			"XDG_CONFIG_HOME=" + home,
			"GIT_CONFIG_NOSYSTEM=1",
			"GIT_CONFIG_GLOBAL=" + filepath.Join(home, ".gitconfig"),
			"LC_ALL=C",
		},
	}
	g.Run("init", "--quiet")
	return g
}

// Run runs git in the repository and returns its trimmed stdout.
func (g *GitRepo) Run(args ...string) string {
	g.t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = g.Dir
	cmd.Env = append(os.Environ(), g.Env...)
	out, err := cmd.Output()
	if err != nil {
		stderr := ""
		if exitErr, ok := err.(*exec.ExitError); ok {
			stderr = string(exitErr.Stderr)
		}
		g.t.Fatalf("git %s: %v: %s", strings.Join(args, " "), err, stderr)
	}
	return strings.TrimSpace(string(out))
}

// Configure sets the repository-local identity.
func (g *GitRepo) Configure(name, email string) {
	g.t.Helper()
	g.Run("config", "user.name", name)
	g.Run("config", "user.email", email)
}

// Commit creates an empty commit and returns its id.
func (g *GitRepo) Commit(message string) string {
	g.t.Helper()
	g.Run("commit", "--quiet", "--allow-empty", "-m", message)
	return g.Run("rev-parse", "HEAD")
}

// WriteFile writes a file in the work tree and stages it.
func (g *GitRepo) WriteFile(name, content string) {
	g.t.Helper()
	if err := os.WriteFile(filepath.Join(g.Dir, name), []byte(content), 0644); err != nil {
		g.t.Fatalf("writing %s: %v", name, err)
	}
	g.Run("add", name)
}

// Log returns the history of HEAD, newest first. Messages keep their exact
// bytes, final newline included.
func (g *GitRepo) Log() []LogEntry {
	g.t.Helper()
	out := g.Run("log", "--pretty=format:%H;%an")
	var entries []LogEntry
	for _, line := range strings.Split(out, "\n") {
		if line == "" {
			continue
		}
		hash, author, _ := strings.Cut(line, ";")
		entries = append(entries, LogEntry{Hash: hash, Author: author, Message: g.Message(hash)})
	}
	return entries
}

// Message returns the raw message of a commit, including its final newline.
func (g *GitRepo) Message(rev string) string {
	g.t.Helper()
	cmd := exec.Command("git", "cat-file", "commit", rev)
	cmd.Dir = g.Dir
	cmd.Env = append(os.Environ(), g.Env...)
	out, err := cmd.Output()
	if err != nil {
		g.t.Fatalf("git cat-file commit %s: %v", rev, err)
	}
	_, message, _ := strings.Cut(string(out), "\n\n")
	return message
}

// UnreachableCommits lists commits `git fsck` reports as unreachable.
func (g *GitRepo) UnreachableCommits() []string {
	g.t.Helper()
	out := g.Run("fsck", "--unreachable", "--no-progress")
	var ids []string
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "unreachable commit ") {
			ids = append(ids, strings.Fields(line)[2])
		}
	}
	return ids
}

// Repository returns a git.Repository bound to this scratch repository.
func (g *GitRepo) Repository() *git.Repository {
	return git.NewRepository(git.Options{Dir: g.Dir, Env: g.Env}, hc.NewNopLogger())
}
