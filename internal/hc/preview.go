package hc

import (
	"github.com/pmezard/go-difflib/difflib"
)

// Preview renders a unified diff between the raw object of orig (nil for a
// brand new commit) and the body of the commit that would replace it.
func Preview(orig *Commit, newID string, body []byte) string {
	from, before := "/dev/null", ""
	if orig != nil {
		from, before = orig.ID, orig.Raw
	}

	d := difflib.UnifiedDiff{
		A:        difflib.SplitLines(before),
		B:        difflib.SplitLines(string(body)),
		FromFile: from,
		ToFile:   newID,
		Context:  3,
	}
	res, err := difflib.GetUnifiedDiffString(d)
	if err != nil {
		return string(body)
	}
	return res
}
