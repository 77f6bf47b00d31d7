package macos

import (
	"context"
	"strconv"
	"time"

	"maclock/internal/domain"
	"maclock/internal/logging"
)

// Session locks the screen with the system shortcut and detects unlocks by
// polling the session dictionary.
type Session struct {
	run      CommandFunc
	interval time.Duration
}

func NewSession(interval time.Duration) *Session {
	return &Session{run: execCommand, interval: interval}
}

func (s *Session) LockNow() {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	if _, err := s.run(ctx, "osascript", "-e", lockScript); err != nil {
		logging.Warnf("lock screen: %v", err)
	}
}

// ScreenLocked queries the current lock state.
func (s *Session) ScreenLocked() (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	out, err := s.run(ctx, "ioreg", "-n", "Root", "-d1")
	if err != nil {
		return false, err
	}
	return ParseScreenLocked(string(out)), nil
}

// WatchUnlock calls fn on every locked to unlocked transition.
func (s *Session) WatchUnlock(fn func()) (domain.Registration, error) {
	probe := func() (string, error) {
		locked, err := s.ScreenLocked()
		return strconv.FormatBool(locked), err
	}
	return pollWatch(s.interval, probe, func(prev, next string) {
		if prev == "true" && next == "false" {
			fn()
		}
	}), nil
}
