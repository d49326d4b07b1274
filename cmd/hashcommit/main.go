package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"hashcommit/internal/app"
	"hashcommit/internal/config"
	"hashcommit/internal/hc"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// Exit statuses.
const (
	exitOK          = 0
	exitUsage       = 1
	exitExternal    = 2
	exitInterrupted = 3
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	interrupted := ctx.Err() != nil
	stop()
	os.Exit(report(os.Stdout, os.Stderr, err, interrupted))
}

// report prints err the way the user expects to see it and returns the exit
// status for its kind.
func report(stdout, stderr io.Writer, err error, interrupted bool) int {
	if err == nil {
		return exitOK
	}
	kind := hc.KindOf(err)

	switch {
	case errors.Is(err, app.ErrNotRepository):
		fmt.Fprintln(stderr, "fatal: not a git repository")
	case kind == hc.KindInterrupted && interrupted:
		fmt.Fprintln(stdout, "\nProcess interrupted by user")
	default:
		fmt.Fprintf(stderr, "Error: %v\n", err)
	}

	switch kind {
	case hc.KindUsage:
		return exitUsage
	case hc.KindInterrupted:
		return exitInterrupted
	case hc.KindExternal:
		return exitExternal
	default:
		return exitExternal
	}
}

// loadConfig reads the config file, falling back to defaults when it does not exist.
func loadConfig() (*config.Config, app.Defaults, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, app.Defaults{}, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.LoadOrDefault(defaults.ConfigPath, defaults.BaseDir)
	if err != nil {
		return nil, app.Defaults{}, &hc.Error{Kind: hc.KindUsage, Op: "reading config", Err: err}
	}
	return cfg, defaults, nil
}

// flags of the root command
var (
	hashFlag          string
	messageFlag       string
	matchTypeFlag     string
	overwriteFlag     bool
	commitFlag        string
	noPreserveAuthor  bool
	versionFlag       bool
	verbosity         int
	dryRunFlag        bool
	maxIterationsFlag int
	dirFlag           string
)

var rootCmd = &cobra.Command{
	Use:   "hashcommit",
	Short: "Create or rewrite a git commit so that its id matches a desired string",
	Long: `hashcommit searches commit timestamps, one second at a time going back from
now, until the commit id matches the desired string, then writes exactly that
commit: a new one on top of HEAD, a replacement for HEAD (--overwrite), or a
replacement for an older commit with the history above it rebuilt (--commit).`,
	SilenceUsage:  true,
	SilenceErrors: true,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) > 0 {
			return hc.Usagef("unexpected argument %q", args[0])
		}
		return nil
	},
	RunE: runRoot,
}

func runRoot(cmd *cobra.Command, args []string) error {
	if !anyFlagChanged(cmd.Flags()) {
		cmd.SetOut(cmd.ErrOrStderr())
		return cmd.Help()
	}
	if versionFlag {
		fmt.Fprintf(cmd.OutOrStdout(), "hashcommit %s\n", version)
		return nil
	}
	if hashFlag == "" {
		return hc.Usagef("--hash argument is required.")
	}
	if commitFlag != "" && !overwriteFlag {
		return hc.Usagef("--commit requires --overwrite.")
	}
	if maxIterationsFlag < 0 {
		return hc.Usagef("--max-iterations must not be negative.")
	}

	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	matchType := cfg.Search.MatchType
	if matchTypeFlag != "" {
		matchType = matchTypeFlag
	}
	mt, err := hc.ParseMatchType(matchType)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := app.NewApp(ctx, cfg, app.Options{
		Dir:           dirFlag,
		Verbosity:     verbosity,
		MaxIterations: maxIterationsFlag,
		Stderr:        cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}
	defer a.Close()

	if !overwriteFlag && messageFlag == "" {
		return hc.Usagef("--message argument is required if not using --overwrite.")
	}

	req := hc.Request{
		Spec:           hc.MatchSpec{Desired: hashFlag, Type: mt},
		Message:        messageFlag,
		PreserveAuthor: cfg.Search.PreserveAuthor && !noPreserveAuthor,
		DryRun:         dryRunFlag,
	}

	var out *hc.Outcome
	switch {
	case commitFlag != "":
		out, err = a.OverwriteCommit(ctx, commitFlag, req)
	case overwriteFlag:
		out, err = a.Overwrite(ctx, req)
	default:
		out, err = a.Create(ctx, req)
	}
	if err != nil {
		return err
	}

	printOutcome(cmd.OutOrStdout(), out)
	return nil
}

// anyFlagChanged reports whether the command line set any flag. It reads
// Changed rather than NFlag so a reused command starts from a clean slate.
func anyFlagChanged(fs *pflag.FlagSet) bool {
	changed := false
	fs.VisitAll(func(f *pflag.Flag) {
		changed = changed || f.Changed
	})
	return changed
}

func printOutcome(w io.Writer, out *hc.Outcome) {
	if out.DryRun {
		fmt.Fprint(w, out.Preview)
		fmt.Fprintf(w, "Would write %s after %d candidates (%s)\n", out.NewID, out.Search.Iterations, out.Search.Timestamp)
		if n := len(out.Descendants); n > 0 {
			fmt.Fprintf(w, "Would re-create %d descendant commit(s)\n", n)
		}
		return
	}

	switch out.Operation {
	case hc.OpCreate:
		fmt.Fprintf(w, "Created %s\n", out.NewID)
	default:
		fmt.Fprintf(w, "Replaced %s with %s\n", out.OldID, out.NewID)
	}
	for _, rw := range out.Rewritten {
		fmt.Fprintf(w, "  rewrote %s -> %s\n", rw.OldID, rw.NewID)
	}
}

// journal command
var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "List recorded history rewrites",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		format, _ := cmd.Flags().GetString("format")
		commit, _ := cmd.Flags().GetString("commit")

		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}

		entries, err := app.ListJournal(cfg.Journal, limit, commit)
		if err != nil {
			return err
		}
		return app.WriteJournal(cmd.OutOrStdout(), entries, format)
	},
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults.BaseDir)
		if err := config.Init(defaults.ConfigPath, cfg); err != nil {
			return &hc.Error{Kind: hc.KindUsage, Err: err}
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Configuration initialized at %s\n", defaults.ConfigPath)
		fmt.Fprintf(cmd.OutOrStdout(), "Base Dir: %s\n", defaults.BaseDir)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, defaults, err := loadConfig()
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "# Configuration from %s\n\n", defaults.ConfigPath)
		m := &config.Manager{}
		return m.Write(cmd.OutOrStdout(), cfg)
	},
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&hashFlag, "hash", "", "Desired hash string")
	f.StringVar(&messageFlag, "message", "", "Commit message")
	f.StringVar(&matchTypeFlag, "match-type", "", "Match type: begin, contain or end (default from config, else begin)")
	f.BoolVar(&overwriteFlag, "overwrite", false, "Overwrite the existing commit instead of creating a new one")
	f.StringVar(&commitFlag, "commit", "", "With --overwrite, the commit to overwrite instead of HEAD")
	f.BoolVar(&noPreserveAuthor, "no-preserve-author", false, "Use the configured identity instead of the overwritten commit's")
	f.BoolVar(&versionFlag, "version", false, "Show the version of hashcommit")
	f.CountVarP(&verbosity, "verbose", "v", "Increase verbosity level")
	f.BoolVar(&dryRunFlag, "dry-run", false, "Search and show the resulting commit without writing it")
	f.IntVar(&maxIterationsFlag, "max-iterations", 0, "Give up after this many candidates (default from config, 0 is unbounded)")
	f.StringVarP(&dirFlag, "directory", "C", "", "Run as if started in this directory")

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &hc.Error{Kind: hc.KindUsage, Err: err}
	})

	journalCmd.Flags().IntP("limit", "n", 20, "Maximum number of entries to show (0 for all)")
	journalCmd.Flags().String("format", app.FormatText, "Output format: text or yaml")
	journalCmd.Flags().String("commit", "", "Only show entries involving this commit id (prefix)")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	rootCmd.AddCommand(journalCmd)
	rootCmd.AddCommand(configCmd)
}
