package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"maclock/internal/audio"
	"maclock/internal/domain"
	"maclock/internal/lock"
	"maclock/internal/logging"
)

// maxRetryDelay caps the restore retry backoff.
const maxRetryDelay = 5 * time.Minute

// ErrStopped is returned by calls made after the loop stopped.
var ErrStopped = errors.New("lock loop is not running")

// AudioAction names a coordinator operation exposed to callers.
type AudioAction string

const (
	AudioMute     AudioAction = "mute"
	AudioUnmute   AudioAction = "unmute"
	AudioMaximize AudioAction = "max"
	AudioInternal AudioAction = "internal"
	AudioSwitch   AudioAction = "switch"
)

// DeviceInfo describes one audio device for listings.
type DeviceInfo struct {
	ID             domain.DeviceID      `json:"id"`
	Name           string               `json:"name"`
	Kind           domain.DeviceKind    `json:"kind"`
	InputChannels  int                  `json:"inputChannels"`
	OutputChannels int                  `json:"outputChannels"`
	Volume         *domain.StereoVolume `json:"volume,omitempty"`
	Muted          bool                 `json:"muted"`
	Jack           bool                 `json:"jack"`
	Roles          []string             `json:"roles,omitempty"`
}

// LockUseCase is the primary port of the lock. Every operation runs on a
// single loop goroutine in the order it was requested.
type LockUseCase interface {
	Start(ctx context.Context)
	Lock(ctx context.Context) error
	// Unlock reports whether the pre-lock audio configuration was restored.
	Unlock(ctx context.Context) (restored bool, err error)
	SwitchOutput(ctx context.Context) error
	Audio(ctx context.Context, action AudioAction) error
	Devices(ctx context.Context) ([]DeviceInfo, error)
	OutputConfiguration(ctx context.Context) (domain.OutputConfiguration, bool, error)
	Status() domain.Status
	Watch() <-chan domain.Status
	Unwatch(ch <-chan domain.Status)
	Config() domain.Config
	UpdateConfig(config domain.Config) error
	History() domain.History
	// Events returns journaled transitions, newest first.
	Events(limit int) ([]domain.Event, error)
	Shutdown(ctx context.Context) error
}

// Option configures the use case.
type Option func(*lockInteractor)

// WithJournal records every status transition in j.
func WithJournal(j domain.EventJournal) Option {
	return func(s *lockInteractor) { s.journal = j }
}

type lockInteractor struct {
	repo    domain.ConfigRepository
	journal domain.EventJournal
	box     *mailbox
	lock    *lock.Lock
	clock   func() time.Time

	// Loop-only state.
	retry      *backoff
	retryGen   int
	retryTimer *time.Timer
	retrying   bool
	lastError  string

	mu       sync.RWMutex
	config   domain.Config
	history  domain.History
	status   domain.Status
	watchers map[<-chan domain.Status]chan domain.Status
	done     chan struct{}
}

// NewLockUseCase loads persisted state and builds the lock over platform.
func NewLockUseCase(repo domain.ConfigRepository, platform domain.Platform, opts ...Option) (LockUseCase, error) {
	config, history, err := repo.Load()
	if err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	s := &lockInteractor{
		repo:     repo,
		box:      newMailbox(),
		clock:    time.Now,
		retry:    newBackoff(config.RestoreRetryDelay, maxRetryDelay, config.RestoreRetries),
		config:   config,
		history:  history,
		watchers: make(map[<-chan domain.Status]chan domain.Status),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.lock = lock.New(platform, config, lock.WithDispatch(s.box.post))
	s.status = s.sample()
	s.status.UpdatedAt = s.clock()
	return s, nil
}

// Start runs the loop until ctx is cancelled.
func (s *lockInteractor) Start(ctx context.Context) {
	go s.loop(ctx)
}

func (s *lockInteractor) loop(ctx context.Context) {
	defer close(s.done)
	defer s.stopRetry()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.box.signal:
			for _, j := range s.box.drain() {
				j.run()
				if !j.settled {
					s.afterJob()
				}
			}
		}
	}
}

// call runs fn on the loop and waits for it. The status reflects fn's
// effects by the time call returns.
func (s *lockInteractor) call(ctx context.Context, fn func() error) error {
	result := make(chan error, 1)
	s.box.postSettled(func() {
		err := fn()
		s.afterJob()
		result <- err
	})
	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return ErrStopped
	}
}

func (s *lockInteractor) Lock(ctx context.Context) error {
	return s.call(ctx, func() error {
		err := s.lock.Lock(ctx)
		if err != nil {
			s.lastError = err.Error()
			return fmt.Errorf("lock: %w", err)
		}
		s.lastError = ""
		s.stopRetry()
		s.retry.reset()
		return nil
	})
}

func (s *lockInteractor) Unlock(ctx context.Context) (bool, error) {
	var restored bool
	err := s.call(ctx, func() error {
		var err error
		restored, err = s.lock.Unlock(ctx)
		if err != nil {
			s.lastError = err.Error()
			return fmt.Errorf("unlock: %w", err)
		}
		return nil
	})
	return restored, err
}

func (s *lockInteractor) SwitchOutput(ctx context.Context) error {
	return s.Audio(ctx, AudioSwitch)
}

func (s *lockInteractor) Audio(ctx context.Context, action AudioAction) error {
	return s.call(ctx, func() error {
		c := s.lock.Coordinator()
		switch action {
		case AudioMute:
			c.MuteCurrentOutput()
		case AudioUnmute:
			c.UnmuteCurrentOutput()
		case AudioMaximize:
			c.MaximizeVolumeForCurrentOutput()
		case AudioInternal:
			return c.TurnOnInternalOutputForAllSounds()
		case AudioSwitch:
			return c.InternalExternalOutputSwitch()
		default:
			return fmt.Errorf("unknown audio action %q", action)
		}
		return nil
	})
}

func (s *lockInteractor) Devices(ctx context.Context) ([]DeviceInfo, error) {
	var infos []DeviceInfo
	err := s.call(ctx, func() error {
		c := s.lock.Coordinator()
		roles := make(map[domain.DeviceID][]string)
		for _, role := range domain.Roles {
			if d := c.DefaultOutput(role); d != nil {
				roles[d.ID()] = append(roles[d.ID()], role.String())
			}
		}
		for _, d := range c.AllDevices() {
			infos = append(infos, describe(d, roles[d.ID()]))
		}
		return nil
	})
	return infos, err
}

func describe(d *audio.Device, roles []string) DeviceInfo {
	return DeviceInfo{
		ID:             d.ID(),
		Name:           d.Name(),
		Kind:           d.Kind(),
		InputChannels:  d.ChannelCount(domain.DirectionInput),
		OutputChannels: d.ChannelCount(domain.DirectionOutput),
		Volume:         d.StereoVolume(),
		Muted:          d.Muted(),
		Jack:           d.JackConnected(),
		Roles:          roles,
	}
}

func (s *lockInteractor) OutputConfiguration(ctx context.Context) (domain.OutputConfiguration, bool, error) {
	var (
		cfg domain.OutputConfiguration
		ok  bool
	)
	err := s.call(ctx, func() error {
		cfg, ok = s.lock.Coordinator().CurrentOutputConfiguration()
		return nil
	})
	return cfg, ok, err
}

// Shutdown unlocks so automatic sleep is not left disabled.
func (s *lockInteractor) Shutdown(ctx context.Context) error {
	return s.call(ctx, func() error {
		s.stopRetry()
		if !s.lock.IsLocked() {
			return nil
		}
		if _, err := s.lock.Unlock(ctx); err != nil {
			return fmt.Errorf("unlock on shutdown: %w", err)
		}
		return nil
	})
}

func (s *lockInteractor) Status() domain.Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Watch returns a channel receiving every new status. Slow receivers miss
// intermediate snapshots.
func (s *lockInteractor) Watch() <-chan domain.Status {
	ch := make(chan domain.Status, 8)
	s.mu.Lock()
	s.watchers[ch] = ch
	s.mu.Unlock()
	return ch
}

func (s *lockInteractor) Unwatch(ch <-chan domain.Status) {
	s.mu.Lock()
	if w, ok := s.watchers[ch]; ok {
		delete(s.watchers, ch)
		close(w)
	}
	s.mu.Unlock()
}

func (s *lockInteractor) Config() domain.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config
}

// UpdateConfig validates and persists config. Device names, the alarm
// sound and platform polling take effect on the next start.
func (s *lockInteractor) UpdateConfig(config domain.Config) error {
	if err := config.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.config = config
	history := s.history
	s.mu.Unlock()
	return s.repo.Save(config, history)
}

func (s *lockInteractor) Events(limit int) ([]domain.Event, error) {
	if s.journal == nil {
		return nil, nil
	}
	return s.journal.Recent(limit)
}

func (s *lockInteractor) History() domain.History {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.history
}

func (s *lockInteractor) sample() domain.Status {
	return domain.Status{
		Locked:         s.lock.IsLocked(),
		Alarming:       s.lock.Alarming(),
		Power:          s.lock.Monitor().CurrentPowerSource(),
		PendingRestore: s.lock.HasStoredConfiguration(),
		LastError:      s.lastError,
	}
}

// afterJob publishes a new status when a job changed the state, records
// history transitions and schedules restore retries.
func (s *lockInteractor) afterJob() {
	next := s.sample()
	if next.PendingRestore && !next.Locked {
		s.scheduleRetry()
	} else if !next.PendingRestore {
		s.retry.reset()
	}

	now := s.clock()
	s.mu.Lock()
	prev := s.status
	if next.SameState(prev) {
		s.mu.Unlock()
		return
	}
	next.Revision = prev.Revision + 1
	next.UpdatedAt = now
	s.status = next

	changed := false
	if next.Locked && !prev.Locked {
		s.history.LastLocked = now
		changed = true
	}
	if !next.Locked && prev.Locked {
		s.history.LastUnlocked = now
		changed = true
	}
	if next.Alarming && !prev.Alarming {
		s.history.LastAlarm = now
		changed = true
	}
	if next.LastError != prev.LastError && next.LastError != "" {
		s.history.LastError = next.LastError
		changed = true
	}
	events := transitions(prev, next, now)
	config, history := s.config, s.history
	for _, w := range s.watchers {
		select {
		case w <- next:
		default:
		}
	}
	s.mu.Unlock()

	logging.Debugf("status rev=%d locked=%t alarming=%t power=%s pending=%t",
		next.Revision, next.Locked, next.Alarming, next.Power, next.PendingRestore)
	if changed {
		if err := s.repo.Save(config, history); err != nil {
			logging.Warnf("save history: %v", err)
		}
	}
	if s.journal != nil && len(events) > 0 {
		if err := s.journal.Append(events...); err != nil {
			logging.Warnf("journal: %v", err)
		}
	}
}

// transitions lists the journal events between two statuses.
func transitions(prev, next domain.Status, now time.Time) []domain.Event {
	var events []domain.Event
	add := func(kind domain.EventKind, detail string) {
		events = append(events, domain.Event{Time: now, Kind: kind, Detail: detail})
	}
	if next.Locked && !prev.Locked {
		add(domain.EventLocked, next.Power.String())
	}
	if next.Power != prev.Power && (next.Locked || prev.Locked) {
		add(domain.EventPower, prev.Power.String()+" -> "+next.Power.String())
	}
	if next.Alarming && !prev.Alarming {
		add(domain.EventAlarm, next.Power.String())
	}
	if !next.Locked && prev.Locked {
		add(domain.EventUnlocked, "")
	}
	if !next.Locked && next.PendingRestore && !(prev.PendingRestore && !prev.Locked) {
		add(domain.EventRestorePending, "")
	}
	if !next.PendingRestore && prev.PendingRestore && !next.Locked {
		add(domain.EventRestored, "")
	}
	if next.LastError != prev.LastError && next.LastError != "" {
		add(domain.EventError, next.LastError)
	}
	return events
}

func (s *lockInteractor) scheduleRetry() {
	if s.retrying {
		return
	}
	delay, ok := s.retry.next()
	if !ok {
		return
	}
	s.retrying = true
	gen := s.retryGen
	logging.Infof("retrying audio restore in %s", delay)
	s.retryTimer = time.AfterFunc(delay, func() {
		s.box.post(func() {
			if gen != s.retryGen {
				return
			}
			s.retrying = false
			if s.lock.IsLocked() {
				return
			}
			if s.lock.RestoreAudio() {
				logging.Infof("audio configuration restored on retry")
			}
		})
	})
}

func (s *lockInteractor) stopRetry() {
	s.retryGen++
	s.retrying = false
	if s.retryTimer != nil {
		s.retryTimer.Stop()
		s.retryTimer = nil
	}
}
