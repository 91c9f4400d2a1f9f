package steps

import (
	"sort"
	"sync"
	"time"
)

// Scheduler runs fn once after d. The returned func cancels it if it has
// not run yet.
type Scheduler interface {
	After(d time.Duration, fn func()) (cancel func())
}

// RealScheduler uses the runtime timer
type RealScheduler struct{}

func (RealScheduler) After(d time.Duration, fn func()) func() {
	t := time.AfterFunc(d, fn)
	return func() { t.Stop() }
}

type pendingTask struct {
	id  int
	at  time.Duration
	fn  func()
	off bool
}

// ManualScheduler runs tasks only when Advance moves its clock past them.
type ManualScheduler struct {
	mu     sync.Mutex
	now    time.Duration
	nextID int
	tasks  []*pendingTask
}

// NewManualScheduler creates a scheduler whose clock starts at zero
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

func (m *ManualScheduler) After(d time.Duration, fn func()) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	task := &pendingTask{id: m.nextID, at: m.now + d, fn: fn}
	m.tasks = append(m.tasks, task)
	return func() {
		m.mu.Lock()
		task.off = true
		m.mu.Unlock()
	}
}

// Advance moves the clock forward by d and runs every task that came due,
// in due order, outside the scheduler lock.
func (m *ManualScheduler) Advance(d time.Duration) {
	m.mu.Lock()
	m.now += d
	var due, rest []*pendingTask
	for _, t := range m.tasks {
		if t.at <= m.now {
			due = append(due, t)
		} else {
			rest = append(rest, t)
		}
	}
	m.tasks = rest
	m.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool {
		if due[i].at != due[j].at {
			return due[i].at < due[j].at
		}
		return due[i].id < due[j].id
	})
	for _, t := range due {
		m.mu.Lock()
		off := t.off
		m.mu.Unlock()
		if !off {
			t.fn()
		}
	}
}

// Pending returns the number of tasks waiting to run
func (m *ManualScheduler) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.tasks {
		if !t.off {
			n++
		}
	}
	return n
}
