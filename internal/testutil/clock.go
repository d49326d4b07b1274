package testutil

import (
	"fmt"
	"sync/atomic"
	"time"
)

// SearchStart is the whole second a search driven by FixedClock counts down
// from.
var SearchStart = time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

// StubClock is an hc.Clock that always reports the same instant.
type StubClock struct {
	now time.Time
}

func (c StubClock) Now() time.Time { return c.now }

// FixedClock returns a StubClock half a second past SearchStart, so tests
// also check that the search truncates to a whole second.
func FixedClock() StubClock {
	return StubClock{now: SearchStart.Add(500 * time.Millisecond)}
}

// CandidateAt returns the timestamp the n-th candidate of a FixedClock search
// carries (n starts at 1).
func CandidateAt(n int) time.Time {
	return SearchStart.Add(-time.Duration(n) * time.Second)
}

// StubIDGenerator returns sequential operation ids: "op-1", "op-2", and so on.
// Safe for concurrent use.
type StubIDGenerator struct {
	counter atomic.Int64
}

func NewStubIDGenerator() *StubIDGenerator {
	return &StubIDGenerator{}
}

func (g *StubIDGenerator) New() string {
	return fmt.Sprintf("op-%d", g.counter.Add(1))
}
