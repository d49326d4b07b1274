package hc

import "strings"

// CleanupMessage applies git's "whitespace" cleanup, the mode `git commit -m`
// uses: trailing whitespace is stripped from every line, leading and trailing
// blank lines are dropped, runs of blank lines collapse into one, and the
// result ends with a newline. An all-blank message cleans up to "".
func CleanupMessage(msg string) string {
	var b strings.Builder
	pendingBlank := false
	for _, line := range strings.Split(msg, "\n") {
		line = strings.TrimRight(line, " \t\r\v\f")
		if line == "" {
			pendingBlank = b.Len() > 0
			continue
		}
		if pendingBlank {
			b.WriteByte('\n')
			pendingBlank = false
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}

// Subject returns the first line of a commit message, used in reflog entries.
func Subject(msg string) string {
	subject, _, _ := strings.Cut(strings.TrimLeft(msg, "\n"), "\n")
	return subject
}
