package sim

import (
	"sort"
	"sync"

	"maclock/internal/domain"
)

// Device is the mutable state of one simulated audio device.
type Device struct {
	Name    string
	Out     []int
	In      []int
	Stereo  *domain.StereoChannels
	Volumes map[uint32]float32
	Muted   bool
	Jack    bool
}

// StatusFailed is the status reported by injected failures.
const StatusFailed int32 = 0x77686174 // 'what'

// Operation names accepted by Audio.Fail.
const (
	OpDevices    = "devices"
	OpName       = "name"
	OpStreams    = "streams"
	OpStereo     = "stereo"
	OpVolume     = "volume"
	OpSetVolume  = "set-volume"
	OpMute       = "mute"
	OpSetMute    = "set-mute"
	OpJack       = "jack"
	OpDefault    = "default"
	OpSetDefault = "set-default"
)

type failKey struct {
	op      string
	id      domain.DeviceID
	channel uint32
}

// anyChannel matches every channel of a failure key.
const anyChannel = ^uint32(0)

// Audio simulates a host audio property API.
type Audio struct {
	mu       sync.Mutex
	devices  map[domain.DeviceID]*Device
	defaults map[domain.Role]domain.DeviceID
	failures map[failKey]int32
	// roleLog records SetDefaultOutput calls in order.
	roleLog []domain.Role
}

// NewAudio returns hardware without devices.
func NewAudio() *Audio {
	return &Audio{
		devices:  make(map[domain.DeviceID]*Device),
		defaults: make(map[domain.Role]domain.DeviceID),
		failures: make(map[failKey]int32),
	}
}

// AddDevice installs or replaces a device.
func (a *Audio) AddDevice(id domain.DeviceID, d Device) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if d.Volumes == nil {
		d.Volumes = make(map[uint32]float32)
	}
	a.devices[id] = &d
}

// RemoveDevice unplugs a device.
func (a *Audio) RemoveDevice(id domain.DeviceID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.devices, id)
}

// SetDefault assigns a default role without failure injection.
func (a *Audio) SetDefault(role domain.Role, id domain.DeviceID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.defaults[role] = id
}

// Default returns the device assigned to role.
func (a *Audio) Default(role domain.Role) domain.DeviceID {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.defaults[role]
}

// Snapshot returns a copy of a device's state.
func (a *Audio) Snapshot(id domain.DeviceID) (Device, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	d, ok := a.devices[id]
	if !ok {
		return Device{}, false
	}
	cp := *d
	cp.Volumes = make(map[uint32]float32, len(d.Volumes))
	for ch, v := range d.Volumes {
		cp.Volumes[ch] = v
	}
	return cp, true
}

// SetMuted changes a device's mute flag without failure injection.
func (a *Audio) SetMuted(id domain.DeviceID, muted bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if d, ok := a.devices[id]; ok {
		d.Muted = muted
	}
}

// RoleLog returns the roles assigned through SetDefaultOutput, in order.
func (a *Audio) RoleLog() []domain.Role {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]domain.Role(nil), a.roleLog...)
}

// Fail makes op on device id fail with StatusFailed. Use id 0 for
// operations not bound to a device (devices, default, set-default matches
// any id).
func (a *Audio) Fail(op string, id domain.DeviceID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failures[failKey{op: op, id: id, channel: anyChannel}] = StatusFailed
}

// FailChannel makes volume writes to one channel of a device fail.
func (a *Audio) FailChannel(id domain.DeviceID, channel uint32) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failures[failKey{op: OpSetVolume, id: id, channel: channel}] = StatusFailed
}

// ClearFailures removes every injected failure.
func (a *Audio) ClearFailures() {
	a.mu.Lock()
	defer a.mu.Unlock()
	clear(a.failures)
}

// failed must be called with mu held.
func (a *Audio) failed(op string, id domain.DeviceID, channel uint32) error {
	for _, k := range []failKey{
		{op: op, id: id, channel: channel},
		{op: op, id: id, channel: anyChannel},
	} {
		if status, ok := a.failures[k]; ok {
			return domain.StatusError(op, status)
		}
	}
	return nil
}

// device must be called with mu held.
func (a *Audio) device(op string, id domain.DeviceID) (*Device, error) {
	if err := a.failed(op, id, anyChannel); err != nil {
		return nil, err
	}
	d, ok := a.devices[id]
	if !ok {
		return nil, domain.StatusError(op, StatusBadObject)
	}
	return d, nil
}

// StatusBadObject is reported for unknown device IDs.
const StatusBadObject int32 = 0x216f626a // '!obj'

func (a *Audio) DeviceIDs() ([]domain.DeviceID, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.failed(OpDevices, 0, anyChannel); err != nil {
		return nil, err
	}
	ids := make([]domain.DeviceID, 0, len(a.devices))
	for id := range a.devices {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (a *Audio) DeviceName(id domain.DeviceID) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	d, err := a.device(OpName, id)
	if err != nil {
		return "", err
	}
	return d.Name, nil
}

func (a *Audio) StreamChannels(id domain.DeviceID, dir domain.Direction) ([]int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	d, err := a.device(OpStreams, id)
	if err != nil {
		return nil, err
	}
	if dir == domain.DirectionInput {
		return append([]int(nil), d.In...), nil
	}
	return append([]int(nil), d.Out...), nil
}

func (a *Audio) PreferredStereoChannels(id domain.DeviceID) (domain.StereoChannels, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	d, err := a.device(OpStereo, id)
	if err != nil {
		return domain.StereoChannels{}, err
	}
	if d.Stereo == nil {
		return domain.StereoChannels{}, domain.StatusError(OpStereo, StatusUnknownProperty)
	}
	return *d.Stereo, nil
}

// StatusUnknownProperty is reported for properties a device does not have.
const StatusUnknownProperty int32 = 0x77686f3f // 'who?'

func (a *Audio) Volume(id domain.DeviceID, channel uint32) (float32, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	d, err := a.device(OpVolume, id)
	if err != nil {
		return 0, err
	}
	v, ok := d.Volumes[channel]
	if !ok {
		return 0, domain.StatusError(OpVolume, StatusUnknownProperty)
	}
	return v, nil
}

// SetVolume stores the value as given; clamping is the caller's job.
func (a *Audio) SetVolume(id domain.DeviceID, channel uint32, volume float32) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.failed(OpSetVolume, id, channel); err != nil {
		return err
	}
	d, err := a.device(OpSetVolume, id)
	if err != nil {
		return err
	}
	if _, ok := d.Volumes[channel]; !ok {
		return domain.StatusError(OpSetVolume, StatusUnknownProperty)
	}
	d.Volumes[channel] = volume
	return nil
}

func (a *Audio) Mute(id domain.DeviceID) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	d, err := a.device(OpMute, id)
	if err != nil {
		return false, err
	}
	return d.Muted, nil
}

func (a *Audio) SetMute(id domain.DeviceID, muted bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	d, err := a.device(OpSetMute, id)
	if err != nil {
		return err
	}
	d.Muted = muted
	return nil
}

func (a *Audio) JackConnected(id domain.DeviceID) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	d, err := a.device(OpJack, id)
	if err != nil {
		return false, err
	}
	return d.Jack, nil
}

func (a *Audio) DefaultOutput(role domain.Role) (domain.DeviceID, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.failed(OpDefault, 0, anyChannel); err != nil {
		return 0, err
	}
	return a.defaults[role], nil
}

func (a *Audio) SetDefaultOutput(role domain.Role, id domain.DeviceID) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.failed(OpSetDefault, 0, anyChannel); err != nil {
		return err
	}
	if err := a.failed(OpSetDefault, id, anyChannel); err != nil {
		return err
	}
	if _, ok := a.devices[id]; !ok {
		return domain.StatusError(OpSetDefault, StatusBadObject)
	}
	a.defaults[role] = id
	a.roleLog = append(a.roleLog, role)
	return nil
}
