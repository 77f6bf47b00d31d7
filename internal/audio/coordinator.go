package audio

import (
	"maclock/internal/domain"
	"maclock/internal/logging"
)

// Coordinator manages the two default output roles and snapshots of them.
// It is not safe for concurrent use; callers serialise access.
type Coordinator struct {
	hw          domain.AudioHardware
	builtInName string

	// previous is the configuration saved by the last switch to internal.
	previous *domain.OutputConfiguration
}

// NewCoordinator creates a coordinator. builtInName identifies the
// internal speaker; empty selects domain.DefaultBuiltInOutputName.
func NewCoordinator(hw domain.AudioHardware, builtInName string) *Coordinator {
	if builtInName == "" {
		builtInName = domain.DefaultBuiltInOutputName
	}
	return &Coordinator{hw: hw, builtInName: builtInName}
}

// Device returns a handle for id.
func (c *Coordinator) Device(id domain.DeviceID) *Device {
	return newDevice(c.hw, id, c.builtInName)
}

// AllDevices returns every device. An empty result means the list could not
// be read, not that there is no hardware.
func (c *Coordinator) AllDevices() []*Device {
	ids, err := c.hw.DeviceIDs()
	if err != nil {
		logging.Debugf("enumerate audio devices: %v", err)
		return nil
	}
	devices := make([]*Device, 0, len(ids))
	for _, id := range ids {
		devices = append(devices, c.Device(id))
	}
	return devices
}

func (c *Coordinator) OutputDevices() []*Device {
	return filter(c.AllDevices(), (*Device).IsOutputDevice)
}

func (c *Coordinator) InputDevices() []*Device {
	return filter(c.AllDevices(), (*Device).IsInputDevice)
}

func filter(devices []*Device, keep func(*Device) bool) []*Device {
	var out []*Device
	for _, d := range devices {
		if keep(d) {
			out = append(out, d)
		}
	}
	return out
}

// InternalOutput returns the first built-in output device, or nil.
func (c *Coordinator) InternalOutput() *Device {
	for _, d := range c.OutputDevices() {
		if d.Kind() == domain.KindBuiltIn {
			return d
		}
	}
	return nil
}

// DefaultOutput returns the device backing role, or nil when there is none
// or it cannot be read.
func (c *Coordinator) DefaultOutput(role domain.Role) *Device {
	id, err := c.hw.DefaultOutput(role)
	if err != nil {
		logging.Debugf("read default %s output: %v", role, err)
		return nil
	}
	if id == 0 {
		return nil
	}
	return c.Device(id)
}

func (c *Coordinator) SetDefaultOutput(role domain.Role, d *Device) error {
	if err := c.hw.SetDefaultOutput(role, d.ID()); err != nil {
		return writeErr("set default "+role.String()+" output", err)
	}
	return nil
}

// TurnOnInternalOutputForAllSounds routes both roles to the built-in
// output. A failure on the second role leaves the first one switched.
func (c *Coordinator) TurnOnInternalOutputForAllSounds() error {
	internal := c.InternalOutput()
	if internal == nil {
		return &domain.AudioError{Kind: domain.AudioInternalOutputUnavailable}
	}
	for _, role := range domain.Roles {
		if err := c.SetDefaultOutput(role, internal); err != nil {
			return err
		}
	}
	return nil
}

// CurrentOutputConfiguration samples both roles. ok is false unless both
// roles resolve to a device.
func (c *Coordinator) CurrentOutputConfiguration() (cfg domain.OutputConfiguration, ok bool) {
	system := c.DefaultOutput(domain.RoleSystem)
	general := c.DefaultOutput(domain.RoleGeneral)
	if system == nil || general == nil {
		return domain.OutputConfiguration{}, false
	}
	return domain.OutputConfiguration{
		System:  system.Snapshot(),
		General: general.Snapshot(),
	}, true
}

// Apply assigns both roles first, then restores each captured state on the
// device that now backs it.
func (c *Coordinator) Apply(cfg domain.OutputConfiguration) error {
	for _, role := range domain.Roles {
		if err := c.SetDefaultOutput(role, c.Device(cfg.State(role).ID)); err != nil {
			return err
		}
	}
	for _, role := range domain.Roles {
		s := cfg.State(role)
		if err := c.Device(s.ID).Apply(s); err != nil {
			return err
		}
	}
	return nil
}

// AllSoundsThroughInternalOutput reports whether both roles are built-in.
func (c *Coordinator) AllSoundsThroughInternalOutput() bool {
	cfg, ok := c.CurrentOutputConfiguration()
	if !ok || c.InternalOutput() == nil {
		return false
	}
	return cfg.System.Kind == domain.KindBuiltIn && cfg.General.Kind == domain.KindBuiltIn
}

// InternalExternalOutputSwitch toggles between routing everything to the
// built-in output and the configuration saved before the last switch.
func (c *Coordinator) InternalExternalOutputSwitch() error {
	if c.InternalOutput() == nil {
		return &domain.AudioError{Kind: domain.AudioInternalOutputUnavailable}
	}
	current, ok := c.CurrentOutputConfiguration()
	if !ok {
		return c.TurnOnInternalOutputForAllSounds()
	}
	if c.AllSoundsThroughInternalOutput() {
		return c.restorePrevious()
	}
	c.previous = &current
	return c.TurnOnInternalOutputForAllSounds()
}

// restorePrevious re-assigns the saved roles, general first.
func (c *Coordinator) restorePrevious() error {
	if c.previous == nil {
		return nil
	}
	for _, role := range []domain.Role{domain.RoleGeneral, domain.RoleSystem} {
		if err := c.SetDefaultOutput(role, c.Device(c.previous.State(role).ID)); err != nil {
			return err
		}
	}
	return nil
}

// PreviousConfiguration returns the configuration a switch would restore.
func (c *Coordinator) PreviousConfiguration() (domain.OutputConfiguration, bool) {
	if c.previous == nil {
		return domain.OutputConfiguration{}, false
	}
	return *c.previous, true
}

func (c *Coordinator) MuteCurrentOutput() {
	c.eachDefault("mute", func(d *Device) error { return d.SetMuted(true) })
}

func (c *Coordinator) UnmuteCurrentOutput() {
	c.eachDefault("unmute", func(d *Device) error { return d.SetMuted(false) })
}

func (c *Coordinator) MaximizeVolumeForCurrentOutput() {
	c.eachDefault("maximize", func(d *Device) error {
		return d.SetStereoVolume(domain.StereoVolume{Left: 1, Right: 1})
	})
}

// eachDefault applies fn to the device of every role. Failures are logged
// and do not stop the other role.
func (c *Coordinator) eachDefault(what string, fn func(*Device) error) {
	for _, role := range domain.Roles {
		d := c.DefaultOutput(role)
		if d == nil {
			logging.Debugf("%s %s output: no device", what, role)
			continue
		}
		if err := fn(d); err != nil {
			logging.Debugf("%s %s output %q: %v", what, role, d.Name(), err)
		}
	}
}
