package app

import (
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/term"

	"hashcommit/internal/hc"
)

// progress rewrites a single status line while the search runs.
type progress struct {
	w       io.Writer
	printed bool
}

// newProgress returns nil when w is not a terminal, so redirected output
// never fills up with carriage returns.
func newProgress(w io.Writer) *progress {
	if !isTerminal(w) {
		return nil
	}
	return &progress{w: w}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// report matches hc.SearchOptions.Progress.
func (p *progress) report(iterations int, candidate time.Time) {
	p.printed = true
	fmt.Fprintf(p.w, "\rsearched %d candidates, now at %s", iterations, candidate.Format(hc.DateLayout))
}

// done ends the status line, if one was printed.
func (p *progress) done() {
	if p != nil && p.printed {
		fmt.Fprintln(p.w)
		p.printed = false
	}
}
