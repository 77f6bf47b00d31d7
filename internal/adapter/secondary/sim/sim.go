// Package sim provides an in-memory platform whose power source, session and
// audio hardware can be driven programmatically. It backs the "sim" platform
// of the CLI and the tests of the core packages.
package sim

import (
	"context"
	"sync"

	"maclock/internal/domain"
)

// Device IDs of the default simulated hardware.
const (
	BuiltInOutputID domain.DeviceID = 1
	HeadphonesID    domain.DeviceID = 2
	MicrophoneID    domain.DeviceID = 3
)

// Platform groups the simulated adapters.
type Platform struct {
	Power   *Power
	Sleep   *Sleep
	Session *Session
	Audio   *Audio
	Alarm   *Alarm
}

// New returns a platform on AC power with a built-in output, a pair of USB
// headphones (the general role) and a microphone.
func New() *Platform {
	a := NewAudio()
	a.AddDevice(BuiltInOutputID, Device{
		Name:    domain.DefaultBuiltInOutputName,
		Out:     []int{2},
		Stereo:  &domain.StereoChannels{Left: 1, Right: 2},
		Volumes: map[uint32]float32{1: 0.5, 2: 0.5},
	})
	a.AddDevice(HeadphonesID, Device{
		Name:    "USB Headphones",
		Out:     []int{1, 1},
		Stereo:  &domain.StereoChannels{Left: 1, Right: 2},
		Volumes: map[uint32]float32{1: 0.3, 2: 0.4},
	})
	a.AddDevice(MicrophoneID, Device{
		Name: "Built-in Microphone",
		In:   []int{1},
	})
	a.SetDefault(domain.RoleSystem, BuiltInOutputID)
	a.SetDefault(domain.RoleGeneral, HeadphonesID)

	return &Platform{
		Power:   NewPower(domain.ACPowerIdentifier),
		Sleep:   &Sleep{enabled: true},
		Session: &Session{},
		Audio:   a,
		Alarm:   &Alarm{},
	}
}

// Domain exposes the simulated adapters as a domain.Platform.
func (p *Platform) Domain() domain.Platform {
	return domain.Platform{
		Name:    "sim",
		Power:   p.Power,
		Sleep:   p.Sleep,
		Session: p.Session,
		Audio:   p.Audio,
		Alarm:   p.Alarm,
	}
}

type registration struct {
	once    sync.Once
	release func()
}

func (r *registration) Close() error {
	r.once.Do(r.release)
	return nil
}

// Power simulates the providing power source.
type Power struct {
	mu            sync.Mutex
	source        string
	err           error
	watchErr      error
	next          int
	watchers      map[int]func()
	registrations int
	queries       int
}

// NewPower creates a power source reporting identifier.
func NewPower(identifier string) *Power {
	return &Power{source: identifier, watchers: make(map[int]func())}
}

func (p *Power) ProvidingSource() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queries++
	return p.source, p.err
}

// Queries returns how many times the power source was read.
func (p *Power) Queries() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.queries
}

func (p *Power) WatchSource(notify func()) (domain.Registration, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.watchErr != nil {
		return nil, p.watchErr
	}
	id := p.next
	p.next++
	p.watchers[id] = notify
	p.registrations++
	return &registration{release: func() {
		p.mu.Lock()
		delete(p.watchers, id)
		p.mu.Unlock()
	}}, nil
}

// SetSource switches the power source and notifies every watcher on the
// calling goroutine.
func (p *Power) SetSource(identifier string) {
	p.mu.Lock()
	p.source = identifier
	notify := make([]func(), 0, len(p.watchers))
	for _, fn := range p.watchers {
		notify = append(notify, fn)
	}
	p.mu.Unlock()

	for _, fn := range notify {
		fn()
	}
}

// SetQueryError makes ProvidingSource fail.
func (p *Power) SetQueryError(err error) {
	p.mu.Lock()
	p.err = err
	p.mu.Unlock()
}

// SetWatchError makes WatchSource fail.
func (p *Power) SetWatchError(err error) {
	p.mu.Lock()
	p.watchErr = err
	p.mu.Unlock()
}

// ActiveWatches returns the number of live registrations.
func (p *Power) ActiveWatches() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.watchers)
}

// Registrations returns how many registrations were ever made.
func (p *Power) Registrations() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.registrations
}

// Sleep records sleep toggles.
type Sleep struct {
	mu      sync.Mutex
	enabled bool
	calls   []bool
	err     error
}

func (s *Sleep) SetSleepEnabled(_ context.Context, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, enabled)
	if s.err != nil {
		return s.err
	}
	s.enabled = enabled
	return nil
}

// SetError makes subsequent toggles fail with err (nil clears it).
func (s *Sleep) SetError(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

// Enabled reports the current simulated sleep setting.
func (s *Sleep) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

// Calls returns every requested value in order.
func (s *Sleep) Calls() []bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]bool(nil), s.calls...)
}

// Session simulates the interactive session.
type Session struct {
	mu            sync.Mutex
	screenLocked  bool
	locks         int
	next          int
	watchers      map[int]func()
	registrations int
	watchErr      error
}

func (s *Session) LockNow() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.screenLocked = true
	s.locks++
}

func (s *Session) WatchUnlock(fn func()) (domain.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watchErr != nil {
		return nil, s.watchErr
	}
	if s.watchers == nil {
		s.watchers = make(map[int]func())
	}
	id := s.next
	s.next++
	s.watchers[id] = fn
	s.registrations++
	return &registration{release: func() {
		s.mu.Lock()
		delete(s.watchers, id)
		s.mu.Unlock()
	}}, nil
}

// TriggerUnlock unlocks the screen and notifies watchers on the calling goroutine.
func (s *Session) TriggerUnlock() {
	s.mu.Lock()
	s.screenLocked = false
	notify := make([]func(), 0, len(s.watchers))
	for _, fn := range s.watchers {
		notify = append(notify, fn)
	}
	s.mu.Unlock()

	for _, fn := range notify {
		fn()
	}
}

// SetWatchError makes WatchUnlock fail.
func (s *Session) SetWatchError(err error) {
	s.mu.Lock()
	s.watchErr = err
	s.mu.Unlock()
}

// ScreenLocked reports whether LockNow was called since the last unlock.
func (s *Session) ScreenLocked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.screenLocked
}

// Locks returns the number of LockNow calls.
func (s *Session) Locks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.locks
}

// ActiveWatches returns the number of live unlock registrations.
func (s *Session) ActiveWatches() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.watchers)
}

// Alarm records playback.
type Alarm struct {
	mu      sync.Mutex
	playing bool
	starts  int
	sound   string
	err     error
}

func (a *Alarm) Start(sound string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	if a.playing {
		return nil
	}
	a.playing = true
	a.starts++
	a.sound = sound
	return nil
}

func (a *Alarm) Stop() {
	a.mu.Lock()
	a.playing = false
	a.mu.Unlock()
}

func (a *Alarm) Playing() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.playing
}

// Starts returns how often playback was started.
func (a *Alarm) Starts() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.starts
}

// Sound returns the last started sound.
func (a *Alarm) Sound() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sound
}

// SetError makes Start fail with err.
func (a *Alarm) SetError(err error) {
	a.mu.Lock()
	a.err = err
	a.mu.Unlock()
}
