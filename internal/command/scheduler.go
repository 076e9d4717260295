package command

import (
	"sort"
	"sync"
	"time"
)

// Scheduler runs a continuation after a delay without blocking the caller.
type Scheduler interface {
	AfterFunc(d time.Duration, f func())
}

// TimerScheduler schedules continuations on runtime timers.
type TimerScheduler struct{}

// AfterFunc implements Scheduler.
func (TimerScheduler) AfterFunc(d time.Duration, f func()) {
	time.AfterFunc(d, f)
}

// ManualScheduler is a Scheduler driven by explicit Advance calls. It is used
// for deterministic replays and tests.
type ManualScheduler struct {
	mu      sync.Mutex
	elapsed time.Duration
	seq     int
	pending []scheduled
}

type scheduled struct {
	due time.Duration
	seq int
	f   func()
}

// NewManualScheduler creates a ManualScheduler at elapsed time zero.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

// AfterFunc implements Scheduler.
func (m *ManualScheduler) AfterFunc(d time.Duration, f func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	m.pending = append(m.pending, scheduled{due: m.elapsed + d, seq: m.seq, f: f})
}

// Advance moves time forward by d and runs every continuation that became
// due, in due order. Continuations run on the caller's goroutine without the
// scheduler lock held, so they may schedule more work.
func (m *ManualScheduler) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.elapsed + d
	m.mu.Unlock()

	for {
		f := m.popDue(target)
		if f == nil {
			break
		}
		f()
	}

	m.mu.Lock()
	m.elapsed = target
	m.mu.Unlock()
}

func (m *ManualScheduler) popDue(target time.Duration) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	sort.SliceStable(m.pending, func(i, j int) bool {
		if m.pending[i].due != m.pending[j].due {
			return m.pending[i].due < m.pending[j].due
		}
		return m.pending[i].seq < m.pending[j].seq
	})
	if len(m.pending) == 0 || m.pending[0].due > target {
		return nil
	}
	next := m.pending[0]
	m.pending = m.pending[1:]
	m.elapsed = next.due
	return next.f
}

// Pending returns the number of continuations not yet run.
func (m *ManualScheduler) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// Elapsed returns the scheduler's time. While a continuation runs it is the
// continuation's due time.
func (m *ManualScheduler) Elapsed() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.elapsed
}
