package hc

import (
	"fmt"
	"strings"
)

// MatchType selects how a desired string is located in a commit id.
type MatchType string

const (
	MatchBegin   MatchType = "begin"
	MatchContain MatchType = "contain"
	MatchEnd     MatchType = "end"
)

// MatchTypes lists every accepted match type, in help-text order.
var MatchTypes = []MatchType{MatchBegin, MatchContain, MatchEnd}

// ParseMatchType parses a match type name, ignoring case.
func ParseMatchType(s string) (MatchType, error) {
	switch t := MatchType(strings.ToLower(strings.TrimSpace(s))); t {
	case MatchBegin, MatchContain, MatchEnd:
		return t, nil
	default:
		return "", Usagef("invalid match type %q (choose from begin, contain, end)", s)
	}
}

// MatchSpec is the desired string together with its match type.
type MatchSpec struct {
	Desired string
	Type    MatchType
}

func (m MatchSpec) String() string {
	return fmt.Sprintf("%s(%s)", m.Type, m.Desired)
}

// Matches reports whether id satisfies m. Comparison is exact and
// case-sensitive.
func (m MatchSpec) Matches(id string) bool {
	switch m.Type {
	case MatchBegin:
		return strings.HasPrefix(id, m.Desired)
	case MatchContain:
		return strings.Contains(id, m.Desired)
	case MatchEnd:
		return strings.HasSuffix(id, m.Desired)
	default:
		return false
	}
}

// Feasible reports whether any id of the given format could ever match:
// ids are lowercase hex of a fixed length.
func (m MatchSpec) Feasible(format ObjectFormat) bool {
	if len(m.Desired) > format.HexLen() {
		return false
	}
	for i := 0; i < len(m.Desired); i++ {
		c := m.Desired[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
