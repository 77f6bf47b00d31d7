// Package audio wraps the host audio hardware port with device level
// primitives and the output coordinator used by the lock.
package audio

import (
	"errors"
	"fmt"

	"maclock/internal/domain"
	"maclock/internal/logging"
)

// MasterChannel addresses the whole-device volume element.
const MasterChannel uint32 = 0

// readOr returns v, or fallback when the read failed. Read paths never
// propagate platform errors.
func readOr[T any](v T, err error, fallback T, what string) T {
	if err != nil {
		logging.Tracef("audio read %s failed, using %v: %v", what, fallback, err)
		return fallback
	}
	return v
}

// writeErr normalises a mutation failure into an *AudioError.
func writeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var aerr *domain.AudioError
	if errors.As(err, &aerr) {
		return err
	}
	return fmt.Errorf("%s: %w (%v)", op, domain.StatusError(op, domain.StatusUnsupported), err)
}

// Device is a handle on one audio device. The name is resolved once when
// the handle is created.
type Device struct {
	hw          domain.AudioHardware
	id          domain.DeviceID
	name        string
	builtInName string
}

func newDevice(hw domain.AudioHardware, id domain.DeviceID, builtInName string) *Device {
	name, err := hw.DeviceName(id)
	return &Device{
		hw:          hw,
		id:          id,
		name:        readOr(name, err, "", "name"),
		builtInName: builtInName,
	}
}

func (d *Device) ID() domain.DeviceID { return d.id }

// Name is empty when the lookup failed.
func (d *Device) Name() string { return d.name }

func (d *Device) Ref() domain.DeviceRef {
	return domain.DeviceRef{ID: d.id, Name: d.name}
}

// ChannelCount sums the channels of every stream buffer in dir.
func (d *Device) ChannelCount(dir domain.Direction) int {
	buffers, err := d.hw.StreamChannels(d.id, dir)
	buffers = readOr(buffers, err, nil, dir.String()+" streams")
	total := 0
	for _, n := range buffers {
		total += n
	}
	return total
}

func (d *Device) IsInputDevice() bool  { return d.ChannelCount(domain.DirectionInput) > 0 }
func (d *Device) IsOutputDevice() bool { return d.ChannelCount(domain.DirectionOutput) > 0 }

// StereoChannels returns the preferred output channel pair.
func (d *Device) StereoChannels() (domain.StereoChannels, bool) {
	ch, err := d.hw.PreferredStereoChannels(d.id)
	if err != nil {
		return domain.StereoChannels{}, false
	}
	return ch, true
}

func (d *Device) Volume(channel uint32) (float32, error) {
	v, err := d.hw.Volume(d.id, channel)
	if err != nil {
		return 0, writeErr("get volume", err)
	}
	return v, nil
}

// SetVolume clamps v into [0,1] before writing it.
func (d *Device) SetVolume(channel uint32, v float32) error {
	return writeErr("set volume", d.hw.SetVolume(d.id, channel, domain.ClampVolume(v)))
}

// StereoVolume returns nil when there is no stereo mapping or a channel
// cannot be read.
func (d *Device) StereoVolume() *domain.StereoVolume {
	ch, ok := d.StereoChannels()
	if !ok {
		return nil
	}
	left, err := d.hw.Volume(d.id, ch.Left)
	if err != nil {
		return nil
	}
	right, err := d.hw.Volume(d.id, ch.Right)
	if err != nil {
		return nil
	}
	return &domain.StereoVolume{Left: left, Right: right}
}

// SetStereoVolume writes left then right. When the right write fails the
// device keeps the new left value.
func (d *Device) SetStereoVolume(v domain.StereoVolume) error {
	ch, ok := d.StereoChannels()
	if !ok {
		return &domain.AudioError{Kind: domain.AudioStereoUnavailable, Op: "set stereo volume"}
	}
	if err := d.SetVolume(ch.Left, v.Left); err != nil {
		return err
	}
	return d.SetVolume(ch.Right, v.Right)
}

// MasterVolume reads the master element, if the device exposes one.
func (d *Device) MasterVolume() (float32, bool) {
	v, err := d.hw.Volume(d.id, MasterChannel)
	return v, err == nil
}

// Muted reports true when the state cannot be read.
func (d *Device) Muted() bool {
	m, err := d.hw.Mute(d.id)
	return readOr(m, err, true, "mute")
}

func (d *Device) SetMuted(muted bool) error {
	return writeErr("set mute", d.hw.SetMute(d.id, muted))
}

// JackConnected reports false when the state cannot be read.
func (d *Device) JackConnected() bool {
	j, err := d.hw.JackConnected(d.id)
	return readOr(j, err, false, "jack")
}

// Kind classifies by exact name match against the built-in output name.
func (d *Device) Kind() domain.DeviceKind {
	if d.name != "" && d.name == d.builtInName {
		return domain.KindBuiltIn
	}
	return domain.KindUnknown
}

func (d *Device) Snapshot() domain.DeviceState {
	return domain.DeviceState{
		ID:     d.id,
		Name:   d.name,
		Volume: d.StereoVolume(),
		Muted:  d.Muted(),
		Kind:   d.Kind(),
	}
}

// Apply restores the stereo volume, when captured, then the mute flag.
func (d *Device) Apply(s domain.DeviceState) error {
	if s.Volume != nil {
		if err := d.SetStereoVolume(*s.Volume); err != nil {
			return err
		}
	}
	return d.SetMuted(s.Muted)
}
