package macos

import (
	"sync"
	"time"

	"maclock/internal/logging"
)

// pollWatch samples probe every interval and calls onChange with the
// previous and the new value whenever they differ. The first sample is
// taken before pollWatch returns and only sets the baseline.
func pollWatch(interval time.Duration, probe func() (string, error), onChange func(prev, next string)) *pollRegistration {
	r := &pollRegistration{stop: make(chan struct{})}
	last, err := probe()
	if err != nil {
		logging.Debugf("initial poll failed: %v", err)
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-r.stop:
				return
			case <-ticker.C:
				next, err := probe()
				if err != nil {
					logging.Tracef("poll failed: %v", err)
					continue
				}
				if next == last {
					continue
				}
				prev := last
				last = next
				select {
				case <-r.stop:
					return
				default:
				}
				onChange(prev, next)
			}
		}
	}()
	return r
}

type pollRegistration struct {
	once sync.Once
	stop chan struct{}
}

// Close stops polling. It does not wait for an in-flight onChange.
func (r *pollRegistration) Close() error {
	r.once.Do(func() { close(r.stop) })
	return nil
}
