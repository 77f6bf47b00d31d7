package domain

// DeviceID is the opaque platform identifier of an audio device.
// Zero means "no device".
type DeviceID uint32

// Direction selects the input or output side of a device.
type Direction int

const (
	DirectionOutput Direction = iota
	DirectionInput
)

func (d Direction) String() string {
	if d == DirectionInput {
		return "input"
	}
	return "output"
}

// Role is one of the two default output slots of the host.
type Role int

const (
	// RoleSystem plays alert and interface sounds.
	RoleSystem Role = iota
	// RoleGeneral plays every other sound.
	RoleGeneral
)

// Roles lists both roles in the order they are applied.
var Roles = []Role{RoleSystem, RoleGeneral}

func (r Role) String() string {
	if r == RoleSystem {
		return "system"
	}
	return "general"
}

// DeviceKind classifies a device.
type DeviceKind int

const (
	KindUnknown DeviceKind = iota
	KindBuiltIn
)

func (k DeviceKind) String() string {
	if k == KindBuiltIn {
		return "built-in"
	}
	return "unknown"
}

func (k DeviceKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *DeviceKind) UnmarshalText(b []byte) error {
	if string(b) == "built-in" {
		*k = KindBuiltIn
	} else {
		*k = KindUnknown
	}
	return nil
}

// DefaultBuiltInOutputName is the name of the host's internal speaker device.
const DefaultBuiltInOutputName = "Built-in Output"

// StereoChannels is the platform's preferred left/right channel pair.
type StereoChannels struct {
	Left  uint32
	Right uint32
}

// StereoVolume holds one scalar volume per stereo channel.
type StereoVolume struct {
	Left  float32 `json:"left"`
	Right float32 `json:"right"`
}

// Clamped returns the volume with both channels limited to [0,1].
func (v StereoVolume) Clamped() StereoVolume {
	return StereoVolume{Left: ClampVolume(v.Left), Right: ClampVolume(v.Right)}
}

// ClampVolume limits a scalar volume to [0,1].
func ClampVolume(v float32) float32 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// DeviceRef identifies a device together with its resolved name.
// Name is empty when the lookup failed.
type DeviceRef struct {
	ID   DeviceID `json:"id"`
	Name string   `json:"name,omitempty"`
}

// DeviceState is an immutable snapshot of a device's restorable settings.
// Volume is nil when the device has no stereo mapping.
type DeviceState struct {
	ID     DeviceID      `json:"id"`
	Name   string        `json:"name,omitempty"`
	Volume *StereoVolume `json:"volume,omitempty"`
	Muted  bool          `json:"muted"`
	Kind   DeviceKind    `json:"kind"`
}

// Ref returns the reference the state was sampled from.
func (s DeviceState) Ref() DeviceRef {
	return DeviceRef{ID: s.ID, Name: s.Name}
}

// OutputConfiguration is a restorable snapshot of both output roles.
type OutputConfiguration struct {
	System  DeviceState `json:"system"`
	General DeviceState `json:"general"`
}

// State returns the captured state for role.
func (c OutputConfiguration) State(role Role) DeviceState {
	if role == RoleSystem {
		return c.System
	}
	return c.General
}
