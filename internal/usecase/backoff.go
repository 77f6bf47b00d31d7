package usecase

import "time"

// backoff yields exponentially growing delays for a bounded number of
// attempts. It is only used from the loop goroutine.
type backoff struct {
	initial  time.Duration
	maxDelay time.Duration
	limit    int

	current  time.Duration
	attempts int
}

func newBackoff(initial, maxDelay time.Duration, limit int) *backoff {
	return &backoff{initial: initial, maxDelay: maxDelay, limit: limit, current: initial}
}

// next returns the delay of the next attempt, or false once the limit is
// reached.
func (b *backoff) next() (time.Duration, bool) {
	if b.attempts >= b.limit {
		return 0, false
	}
	b.attempts++
	d := b.current
	b.current = min(b.current*2, b.maxDelay)
	return d, true
}

func (b *backoff) reset() {
	b.current = b.initial
	b.attempts = 0
}
