package hc

import (
	"strings"
	"testing"
)

func TestPreview(t *testing.T) {
	orig := &Commit{
		ID:  "1111111111111111111111111111111111111111",
		Raw: "tree t\nauthor a\ncommitter c 1 +0000\n\nmessage\n",
	}
	body := []byte("tree t\nauthor a\ncommitter c 2 +0000\n\nmessage\n")

	got := Preview(orig, "0000000000000000000000000000000000000000", body)

	for _, want := range []string{
		"--- 1111111111111111111111111111111111111111\n",
		"+++ 0000000000000000000000000000000000000000\n",
		"-committer c 1 +0000\n",
		"+committer c 2 +0000\n",
		" message\n",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("Preview() missing %q in:\n%s", want, got)
		}
	}
}

func TestPreview_NewCommit(t *testing.T) {
	got := Preview(nil, "abc", []byte("tree t\n\nhello\n"))

	if !strings.HasPrefix(got, "--- /dev/null\n+++ abc\n") {
		t.Errorf("Preview() header = %q", got)
	}
	if !strings.Contains(got, "+hello\n") {
		t.Errorf("Preview() missing added line in:\n%s", got)
	}
}
