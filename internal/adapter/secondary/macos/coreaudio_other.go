//go:build !darwin || !cgo

package macos

import (
	"errors"

	"maclock/internal/domain"
)

// ErrCoreAudioUnavailable is returned when the binary was built without
// cgo or for another OS.
var ErrCoreAudioUnavailable = errors.New("CoreAudio requires darwin with cgo")

// NewCoreAudio reports that CoreAudio is not compiled in.
func NewCoreAudio() (domain.AudioHardware, error) {
	return nil, ErrCoreAudioUnavailable
}
