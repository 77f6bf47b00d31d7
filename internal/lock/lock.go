// Package lock implements the lock state machine: it refuses to lock
// without AC power, keeps the machine awake while locked, silences the
// outputs and raises an alarm when external power goes away.
//
// A Lock is not safe for concurrent use. Every call, including the
// platform callbacks forwarded through the dispatch function, must run on
// one goroutine.
package lock

import (
	"context"

	"maclock/internal/audio"
	"maclock/internal/domain"
	"maclock/internal/logging"
	"maclock/internal/power"
)

// Dispatch schedules fn on the goroutine that owns the Lock.
type Dispatch func(fn func())

// Option configures a Lock.
type Option func(*Lock)

// WithDispatch forwards platform callbacks through d. Without it callbacks
// run on the platform's delivery goroutine.
func WithDispatch(d Dispatch) Option {
	return func(l *Lock) { l.dispatch = d }
}

// Lock is the state machine. Create it with New.
type Lock struct {
	power    *power.Monitor
	audio    *audio.Coordinator
	session  domain.SessionController
	alarm    domain.AlarmPlayer
	sound    string
	dispatch Dispatch

	locked    bool
	alarming  bool
	stored    *domain.OutputConfiguration
	unlockReg domain.Registration
}

// New builds a Lock over the platform ports.
func New(p domain.Platform, cfg domain.Config, opts ...Option) *Lock {
	l := &Lock{
		power:    power.NewMonitor(p.Power, p.Sleep),
		audio:    audio.NewCoordinator(p.Audio, cfg.BuiltInOutputName),
		session:  p.Session,
		alarm:    p.Alarm,
		sound:    cfg.AlarmSound,
		dispatch: func(fn func()) { fn() },
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Lock) IsLocked() bool { return l.locked }

// Alarming reports whether the power-loss alarm is playing.
func (l *Lock) Alarming() bool { return l.alarming }

// HasStoredConfiguration reports whether an audio configuration waits to be
// restored.
func (l *Lock) HasStoredConfiguration() bool { return l.stored != nil }

func (l *Lock) Monitor() *power.Monitor { return l.power }

func (l *Lock) Coordinator() *audio.Coordinator { return l.audio }

// Lock enters the locked state. Without AC power it fails with
// domain.ErrACPowerNotConnected before any side effect. Locking while
// locked only shows the lock screen again.
func (l *Lock) Lock(ctx context.Context) error {
	if !l.power.CurrentPowerSource().IsACPower() {
		return &domain.PowerError{Kind: domain.PowerACNotConnected}
	}
	if l.locked {
		l.session.LockNow()
		return nil
	}

	if err := l.power.SetEnableSleep(ctx, false); err != nil {
		return err
	}
	err := l.power.Subscribe(func(kind domain.PowerSourceKind) {
		l.dispatch(func() { l.powerChanged(kind) })
	})
	if err != nil {
		if rerr := l.power.SetEnableSleep(ctx, true); rerr != nil {
			logging.Warnf("re-enable sleep after failed subscribe: %v", rerr)
		}
		return err
	}

	l.locked = true
	l.watchUnlock()
	l.session.LockNow()

	if cfg, ok := l.audio.CurrentOutputConfiguration(); ok {
		l.stored = &cfg
	} else {
		l.stored = nil
		logging.Infof("no output configuration to restore after unlock")
	}
	l.audio.MuteCurrentOutput()
	logging.Infof("locked")
	return nil
}

func (l *Lock) watchUnlock() {
	if l.unlockReg != nil {
		return
	}
	reg, err := l.session.WatchUnlock(func() {
		l.dispatch(l.sessionUnlocked)
	})
	if err != nil {
		logging.Warnf("watch session unlock: %v", err)
		return
	}
	l.unlockReg = reg
}

func (l *Lock) sessionUnlocked() {
	if !l.locked {
		return
	}
	restored, err := l.Unlock(context.Background())
	if err != nil {
		logging.Warnf("unlock after session unlock: %v", err)
		return
	}
	if !restored {
		logging.Warnf("audio configuration not restored")
	}
}

func (l *Lock) powerChanged(kind domain.PowerSourceKind) {
	if !l.locked || kind.IsACPower() {
		return
	}
	logging.Warnf("power source changed to %s while locked", kind)
	l.raiseAlarm()
}

// raiseAlarm routes all sounds to the internal output, unmutes it at full
// volume and starts the alarm. A repeated reading re-asserts the output.
func (l *Lock) raiseAlarm() {
	if !l.audio.AllSoundsThroughInternalOutput() {
		if err := l.audio.TurnOnInternalOutputForAllSounds(); err != nil {
			logging.Warnf("route alarm to internal output: %v", err)
		}
	}
	l.audio.UnmuteCurrentOutput()
	l.audio.MaximizeVolumeForCurrentOutput()

	if l.alarming {
		return
	}
	if err := l.alarm.Start(l.sound); err != nil {
		logging.Errorf("start alarm %s: %v", l.sound, err)
		return
	}
	l.alarming = true
}

// Unlock leaves the locked state and restores the audio configuration
// captured by Lock. restored is false when there was nothing to restore
// or the restore failed; a failed configuration stays stored and is retried
// by the next Unlock. err is only set when automatic sleep could not be
// re-enabled, in which case the lock stays entered.
func (l *Lock) Unlock(ctx context.Context) (restored bool, err error) {
	if !l.locked {
		if l.stored == nil {
			return false, nil
		}
		return l.RestoreAudio(), nil
	}

	if err := l.power.SetEnableSleep(ctx, true); err != nil {
		return false, err
	}
	l.alarm.Stop()
	l.alarming = false
	l.locked = false

	l.power.Unsubscribe()
	if l.unlockReg != nil {
		if err := l.unlockReg.Close(); err != nil {
			logging.Debugf("release unlock registration: %v", err)
		}
		l.unlockReg = nil
	}
	logging.Infof("unlocked")
	return l.RestoreAudio(), nil
}

// RestoreAudio applies the stored configuration and clears it on success.
func (l *Lock) RestoreAudio() bool {
	if l.stored == nil {
		return false
	}
	if err := l.audio.Apply(*l.stored); err != nil {
		logging.Warnf("restore audio configuration: %v", err)
		return false
	}
	l.stored = nil
	return true
}
