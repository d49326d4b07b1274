package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/multierr"

	"hashcommit/internal/config"
	"hashcommit/internal/database"
	"hashcommit/internal/git"
	"hashcommit/internal/hc"
)

// ErrNotRepository is returned when the working directory is not inside a
// git work tree.
var ErrNotRepository = errors.New("not a git repository")

// Options are the per-invocation settings that do not come from the config file.
type Options struct {
	// Dir is the repository directory. Defaults to the working directory.
	Dir string

	// Verbosity is the number of -v flags.
	Verbosity int

	// MaxIterations overrides search.max_iterations when positive.
	MaxIterations int

	// Env is appended to the environment of every git invocation.
	Env []string

	// Stderr receives log lines and the progress line. Defaults to os.Stderr.
	Stderr io.Writer

	// Clock and IDs default to the real clock and uuids.
	Clock hc.Clock
	IDs   hc.IDGenerator
}

// App is the application layer between the CLI and hc.Service.
// It constructs all dependencies from config, runs one operation, records it
// in the journal and manages the lifecycle of the log file and journal on Close.
type App struct {
	cfg      *config.Config
	repo     *git.Repository
	service  *hc.Service
	journal  hc.Journal
	clock    hc.Clock
	logger   hc.Logger
	progress *progress
	opID     string
	logFile  *os.File
}

// NewApp creates a fully wired App for the repository in opts.Dir.
// The caller must call Close when done.
func NewApp(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	stderr := opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}
	clock := opts.Clock
	if clock == nil {
		clock = hc.RealClock{}
	}
	ids := opts.IDs
	if ids == nil {
		ids = hc.UUIDGenerator{}
	}

	opID := ids.New()
	l, logFile, err := newLogger(cfg.LogDir, opID, LevelForVerbosity(opts.Verbosity), stderr)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: l}

	a := &App{
		cfg:     cfg,
		clock:   clock,
		logger:  logger,
		opID:    opID,
		logFile: logFile,
	}

	a.repo = git.NewRepository(git.Options{Binary: cfg.Git.Binary, Dir: opts.Dir, Env: opts.Env}, logger)
	ok, err := a.repo.IsRepository(ctx)
	if err == nil && !ok {
		err = &hc.Error{Kind: hc.KindUsage, Err: ErrNotRepository}
	}
	if err == nil {
		err = a.repo.CheckVersion(ctx)
	}
	if err != nil {
		a.Close()
		return nil, err
	}

	// The journal is an audit trail: losing it must not block a commit.
	a.journal, err = database.NewJournalFromConfig(cfg.Journal)
	if err != nil {
		logger.Warn("journal unavailable, this run will not be recorded", "error", err)
		a.journal = hc.NopJournal{}
	}
	if j, ok := a.journal.(*database.SQLiteJournal); ok {
		logger.Debug("journal opened", "path", j.Path())
	}

	maxIterations := cfg.Search.MaxIterations
	if opts.MaxIterations > 0 {
		maxIterations = opts.MaxIterations
	}
	searchOpts := hc.SearchOptions{MaxIterations: maxIterations}
	if a.progress = newProgress(stderr); a.progress != nil {
		searchOpts.Progress = a.progress.report
		searchOpts.ProgressEvery = cfg.Search.ProgressInterval
	}

	a.service = hc.NewService(a.repo, hc.NewSearcher(clock, logger, searchOpts), logger)
	return a, nil
}

// OperationID returns the id tagging this run's log lines and journal entry.
func (a *App) OperationID() string {
	return a.opID
}

// Create mints a new commit on top of HEAD.
func (a *App) Create(ctx context.Context, req hc.Request) (*hc.Outcome, error) {
	op := NewOperation(a.opID, hc.OpCreate, "")
	out, err := a.service.Create(ctx, req)
	return a.finish(op, req, out, err)
}

// Overwrite replaces HEAD.
func (a *App) Overwrite(ctx context.Context, req hc.Request) (*hc.Outcome, error) {
	op := NewOperation(a.opID, hc.OpOverwrite, "")
	out, err := a.service.OverwriteHead(ctx, req)
	return a.finish(op, req, out, err)
}

// OverwriteCommit replaces the commit rev names and rebuilds the history above it.
func (a *App) OverwriteCommit(ctx context.Context, rev string, req hc.Request) (*hc.Outcome, error) {
	op := NewOperation(a.opID, hc.OpOverwriteCommit, rev)
	out, err := a.service.OverwriteCommit(ctx, rev, req)
	return a.finish(op, req, out, err)
}

func (a *App) finish(op *Operation, req hc.Request, out *hc.Outcome, err error) (*hc.Outcome, error) {
	a.progress.done()
	op.Finish(out, err)
	if err != nil {
		a.logger.Debug("operation failed", "operation", op.Name, "kind", hc.KindOf(err).String(), "error", err)
		return nil, err
	}

	if op.Recordable() {
		if jerr := a.journal.Record(op.Entry(out, req.Spec, a.clock.Now())); jerr != nil {
			a.logger.Warn("failed to record operation in journal", "error", jerr)
		}
	}
	a.logger.Info("operation finished", "operation", out.Operation, "status", op.Status,
		"new", out.NewID, "iterations", out.Search.Iterations)
	return out, nil
}

// Close closes the journal and the log file.
func (a *App) Close() error {
	var err error
	if a.journal != nil {
		err = multierr.Append(err, a.journal.Close())
	}
	if a.logFile != nil {
		err = multierr.Append(err, a.logFile.Close())
	}
	return err
}
