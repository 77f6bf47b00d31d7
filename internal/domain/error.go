package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig indicates that a configuration value failed validation.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrNotSimulated is returned by simulation commands on a real platform.
	ErrNotSimulated = errors.New("platform is not simulated")
)

// PowerErrorKind enumerates power related failures.
type PowerErrorKind int

const (
	PowerACNotConnected PowerErrorKind = iota + 1
	PowerCannotRegisterObserver
	PowerPrivilegedCommandFailed
)

func (k PowerErrorKind) String() string {
	switch k {
	case PowerACNotConnected:
		return "AC power not connected"
	case PowerCannotRegisterObserver:
		return "cannot register power source observer"
	case PowerPrivilegedCommandFailed:
		return "privileged command failed"
	default:
		return "power error"
	}
}

// PowerError is returned by the power monitor and the lock guard.
type PowerError struct {
	Kind PowerErrorKind
	Err  error
}

func (e *PowerError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return e.Kind.String()
}

func (e *PowerError) Unwrap() error { return e.Err }

// Is matches any PowerError of the same kind.
func (e *PowerError) Is(target error) bool {
	t, ok := target.(*PowerError)
	return ok && t.Kind == e.Kind
}

// Power error sentinels for errors.Is.
var (
	ErrACPowerNotConnected     = &PowerError{Kind: PowerACNotConnected}
	ErrCannotRegisterObserver  = &PowerError{Kind: PowerCannotRegisterObserver}
	ErrPrivilegedCommandFailed = &PowerError{Kind: PowerPrivilegedCommandFailed}
)

// AudioErrorKind enumerates audio related failures.
type AudioErrorKind int

const (
	AudioPlatformStatus AudioErrorKind = iota + 1
	AudioStereoUnavailable
	AudioInternalOutputUnavailable
)

// StatusUnsupported is the platform status reported when a host has no audio backend.
const StatusUnsupported int32 = -1

// AudioError is returned by audio mutations. Status carries the platform
// status code when Kind is AudioPlatformStatus.
type AudioError struct {
	Kind   AudioErrorKind
	Status int32
	Op     string
}

func (e *AudioError) Error() string {
	var msg string
	switch e.Kind {
	case AudioPlatformStatus:
		msg = fmt.Sprintf("audio platform status %d", e.Status)
	case AudioStereoUnavailable:
		msg = "stereo channels unavailable"
	case AudioInternalOutputUnavailable:
		msg = "internal output unavailable"
	default:
		msg = "audio error"
	}
	if e.Op != "" {
		return e.Op + ": " + msg
	}
	return msg
}

// Is matches any AudioError of the same kind.
func (e *AudioError) Is(target error) bool {
	t, ok := target.(*AudioError)
	return ok && t.Kind == e.Kind
}

// Audio error sentinels for errors.Is.
var (
	ErrAudioPlatform             = &AudioError{Kind: AudioPlatformStatus}
	ErrStereoUnavailable         = &AudioError{Kind: AudioStereoUnavailable}
	ErrInternalOutputUnavailable = &AudioError{Kind: AudioInternalOutputUnavailable}
)

// StatusError builds a platform status error.
func StatusError(op string, status int32) error {
	return &AudioError{Kind: AudioPlatformStatus, Status: status, Op: op}
}
