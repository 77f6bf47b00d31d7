// Package noaudio provides audio hardware for hosts without a supported
// audio backend. Every call fails with domain.StatusUnsupported, which the
// audio package turns into empty listings and skipped best-effort steps.
package noaudio

import "maclock/internal/domain"

type Hardware struct{}

func New() Hardware { return Hardware{} }

func unsupported(op string) error { return domain.StatusError(op, domain.StatusUnsupported) }

func (Hardware) DeviceIDs() ([]domain.DeviceID, error) { return nil, unsupported("list devices") }

func (Hardware) DeviceName(domain.DeviceID) (string, error) { return "", unsupported("device name") }

func (Hardware) StreamChannels(domain.DeviceID, domain.Direction) ([]int, error) {
	return nil, unsupported("stream configuration")
}

func (Hardware) PreferredStereoChannels(domain.DeviceID) (domain.StereoChannels, error) {
	return domain.StereoChannels{}, unsupported("stereo channels")
}

func (Hardware) Volume(domain.DeviceID, uint32) (float32, error) { return 0, unsupported("get volume") }

func (Hardware) SetVolume(domain.DeviceID, uint32, float32) error { return unsupported("set volume") }

func (Hardware) Mute(domain.DeviceID) (bool, error) { return false, unsupported("get mute") }

func (Hardware) SetMute(domain.DeviceID, bool) error { return unsupported("set mute") }

func (Hardware) JackConnected(domain.DeviceID) (bool, error) { return false, unsupported("jack") }

func (Hardware) DefaultOutput(domain.Role) (domain.DeviceID, error) {
	return 0, unsupported("get default output")
}

func (Hardware) SetDefaultOutput(domain.Role, domain.DeviceID) error {
	return unsupported("set default output")
}
