package clock

import (
	"sync"
	"time"
)

// Clock is the wall-clock source used for expiry comparisons and waitlist ages.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

// New returns a Clock backed by time.Now in UTC.
func New() Clock { return realClock{} }

func (realClock) Now() time.Time { return time.Now().UTC() }

// Mock is a settable Clock for tests and replay tooling.
type Mock struct {
	mu  sync.Mutex
	now time.Time
}

func NewMock(now time.Time) *Mock {
	return &Mock{now: now}
}

func (m *Mock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Mock) Set(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// Advance moves the clock forward by d.
func (m *Mock) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}
