package domain

import (
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config represents the user preferences of the lock.
type Config struct {
	// BuiltInOutputName is matched exactly against device names to find the
	// internal speaker.
	BuiltInOutputName string `validate:"required"`
	// AlarmSound is the sound file looped while the alarm is raised.
	AlarmSound string `validate:"required"`
	// PollInterval is used by platforms that observe state by polling.
	PollInterval time.Duration `validate:"min=100ms,max=1m"`
	// RestoreRetries bounds how often a failed audio restore is retried after unlock.
	RestoreRetries int `validate:"min=0,max=10"`
	// RestoreRetryDelay is the first retry delay; it doubles per attempt.
	RestoreRetryDelay time.Duration `validate:"min=100ms,max=5m"`
	// Addr is the listen address of the control API.
	Addr string `validate:"required,hostname_port"`
}

// History records the latest lock transitions.
type History struct {
	LastLocked   time.Time
	LastUnlocked time.Time
	LastAlarm    time.Time
	LastError    string
}

// Status is a snapshot of the lock runtime state.
type Status struct {
	Locked   bool            `json:"locked"`
	Alarming bool            `json:"alarming"`
	Power    PowerSourceKind `json:"power"`
	// PendingRestore is set while an audio configuration waits to be restored.
	PendingRestore bool      `json:"pendingRestore"`
	LastError      string    `json:"lastError,omitempty"`
	UpdatedAt      time.Time `json:"updatedAt"`
	// Revision increments on every change.
	Revision int64 `json:"revision"`
}

// SameState reports whether two snapshots differ only in bookkeeping fields.
func (s Status) SameState(o Status) bool {
	return s.Locked == o.Locked &&
		s.Alarming == o.Alarming &&
		s.Power == o.Power &&
		s.PendingRestore == o.PendingRestore &&
		s.LastError == o.LastError
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func configValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks if the configuration values are valid.
func (c Config) Validate() error {
	if err := configValidator().Struct(c); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			f := verrs[0]
			return fmt.Errorf("%w: %s failed %q (value %v)", ErrInvalidConfig, f.Field(), f.Tag(), f.Value())
		}
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// DefaultConfig returns the default configuration values.
func DefaultConfig() Config {
	return Config{
		BuiltInOutputName: DefaultBuiltInOutputName,
		AlarmSound:        defaultAlarmSound(),
		PollInterval:      time.Second,
		RestoreRetries:    3,
		RestoreRetryDelay: 2 * time.Second,
		Addr:              "127.0.0.1:7071",
	}
}

func defaultAlarmSound() string {
	if runtime.GOOS == "darwin" {
		return "/System/Library/Sounds/Basso.aiff"
	}
	return "/usr/share/sounds/freedesktop/stereo/alarm-clock-elapsed.oga"
}
