package freedesktop

import (
	"fmt"

	"github.com/godbus/dbus/v5"

	"maclock/internal/domain"
)

const (
	upowerDest      = "org.freedesktop.UPower"
	upowerPath      = dbus.ObjectPath("/org/freedesktop/UPower")
	upowerInterface = "org.freedesktop.UPower"
)

// Power reports the providing source from the UPower OnBattery property.
type Power struct {
	bus    *Bus
	upower dbus.BusObject
}

func NewPower(bus *Bus) *Power {
	return &Power{bus: bus, upower: bus.Object(upowerDest, upowerPath)}
}

func (p *Power) ProvidingSource() (string, error) {
	v, err := p.upower.GetProperty(upowerInterface + ".OnBattery")
	if err != nil {
		return "", fmt.Errorf("could not get OnBattery: %w", err)
	}
	onBattery, ok := v.Value().(bool)
	if !ok {
		return "", fmt.Errorf("OnBattery property is not a boolean: %v", v)
	}
	return identifierFromOnBattery(onBattery), nil
}

func (p *Power) WatchSource(notify func()) (domain.Registration, error) {
	return p.bus.Subscribe(propertiesChanged(upowerDest, upowerPath), func(s *dbus.Signal) {
		if _, ok := changedProperty(s, upowerInterface, "OnBattery"); ok {
			notify()
		}
	})
}

// identifierFromOnBattery maps UPower's flag to a power source identifier.
// Hosts without a battery report false.
func identifierFromOnBattery(onBattery bool) string {
	if onBattery {
		return domain.BatteryPowerIdentifier
	}
	return domain.ACPowerIdentifier
}
