package usecase

import "sync"

// mailbox is an unbounded FIFO of jobs. post never blocks, so platform
// callbacks and jobs posting follow-up jobs cannot deadlock the loop.
type mailbox struct {
	mu     sync.Mutex
	jobs   []job
	signal chan struct{}
}

// job is one queued closure. A settled job publishes its own status, so
// the loop does not run afterJob for it.
type job struct {
	run     func()
	settled bool
}

func newMailbox() *mailbox {
	return &mailbox{signal: make(chan struct{}, 1)}
}

func (m *mailbox) post(fn func()) {
	m.push(job{run: fn})
}

func (m *mailbox) postSettled(fn func()) {
	m.push(job{run: fn, settled: true})
}

func (m *mailbox) push(j job) {
	m.mu.Lock()
	m.jobs = append(m.jobs, j)
	m.mu.Unlock()

	select {
	case m.signal <- struct{}{}:
	default:
	}
}

// drain removes and returns every queued job in posting order.
func (m *mailbox) drain() []job {
	m.mu.Lock()
	defer m.mu.Unlock()
	jobs := m.jobs
	m.jobs = nil
	return jobs
}

func (m *mailbox) pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.jobs)
}
