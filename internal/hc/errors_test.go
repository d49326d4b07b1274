package hc

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{name: "usage", err: Usagef("bad flag %s", "--x"), want: KindUsage},
		{name: "external", err: External("git write-tree", errors.New("exit status 128")), want: KindExternal},
		{name: "interrupted", err: Interrupted(context.Canceled), want: KindInterrupted},
		{name: "wrapped", err: fmt.Errorf("creating commit: %w", Usagef("empty")), want: KindUsage},
		{name: "unclassified", err: errors.New("plain"), want: KindExternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestError(t *testing.T) {
	err := External("git update-ref", errors.New("cannot lock ref"))
	if err.Error() != "git update-ref: cannot lock ref" {
		t.Errorf("Error() = %q", err.Error())
	}

	if !errors.Is(Interrupted(context.DeadlineExceeded), context.DeadlineExceeded) {
		t.Error("Interrupted() does not unwrap to its cause")
	}

	if got := Kind(7).String(); got != "Kind(7)" {
		t.Errorf("String() = %q, want %q", got, "Kind(7)")
	}
}
