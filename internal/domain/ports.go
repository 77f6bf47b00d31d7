package domain

import "context"

// Registration is an active OS-level event subscription.
// Close releases it; calling Close more than once is safe.
type Registration interface {
	Close() error
}

// PowerPlatform is a secondary port for querying and observing the power source.
type PowerPlatform interface {
	// ProvidingSource returns the platform identifier of the current source,
	// e.g. ACPowerIdentifier.
	ProvidingSource() (string, error)
	// WatchSource registers notify to be called on every power source change.
	// notify is invoked from the platform's delivery goroutine.
	WatchSource(notify func()) (Registration, error)
}

// SleepController toggles automatic system sleep. The effect is system wide
// and persists until reversed.
type SleepController interface {
	SetSleepEnabled(ctx context.Context, enabled bool) error
}

// PrivilegedRunner runs a shell command with elevated privileges.
// It may block while the host asks the user for credentials.
type PrivilegedRunner interface {
	RunPrivileged(ctx context.Context, command string) error
}

// SessionController locks the interactive session and reports unlocks.
type SessionController interface {
	// LockNow shows the lock screen. There is no completion status.
	LockNow()
	// WatchUnlock calls fn whenever the session becomes unlocked.
	WatchUnlock(fn func()) (Registration, error)
}

// AudioHardware is a secondary port over the host audio property API.
// Every error returned is an *AudioError.
type AudioHardware interface {
	DeviceIDs() ([]DeviceID, error)
	DeviceName(id DeviceID) (string, error)
	// StreamChannels returns the channel count of every buffer in the
	// device's stream configuration for the given direction.
	StreamChannels(id DeviceID, dir Direction) ([]int, error)
	PreferredStereoChannels(id DeviceID) (StereoChannels, error)
	Volume(id DeviceID, channel uint32) (float32, error)
	SetVolume(id DeviceID, channel uint32, volume float32) error
	Mute(id DeviceID) (bool, error)
	SetMute(id DeviceID, muted bool) error
	JackConnected(id DeviceID) (bool, error)
	DefaultOutput(role Role) (DeviceID, error)
	SetDefaultOutput(role Role, id DeviceID) error
}

// AlarmPlayer plays a looping alarm sound.
type AlarmPlayer interface {
	// Start begins looping playback. Starting while playing is a no-op.
	Start(sound string) error
	Stop()
	Playing() bool
}

// Platform bundles every host contract the lock needs.
type Platform struct {
	Name    string
	Power   PowerPlatform
	Sleep   SleepController
	Session SessionController
	Audio   AudioHardware
	Alarm   AlarmPlayer
	// Close releases shared platform resources such as bus connections. May be nil.
	Close func() error
}
