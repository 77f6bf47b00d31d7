package domain

// Platform identifiers for the providing power source.
const (
	ACPowerIdentifier      = "AC Power"
	BatteryPowerIdentifier = "Battery Power"
	UPSPowerIdentifier     = "UPS Power"
)

// PowerSourceKind is a high level classification of the providing power source.
type PowerSourceKind int

const (
	PowerUnknown PowerSourceKind = iota
	// PowerExternalUnlimited is mains power.
	PowerExternalUnlimited
	// PowerInternalBattery is the internal battery.
	PowerInternalBattery
	// PowerExternalUPS is an uninterruptible power supply.
	PowerExternalUPS
)

// PowerSourceFromIdentifier maps a platform identifier to a kind.
// Unmapped identifiers yield PowerUnknown.
func PowerSourceFromIdentifier(identifier string) PowerSourceKind {
	switch identifier {
	case ACPowerIdentifier:
		return PowerExternalUnlimited
	case BatteryPowerIdentifier:
		return PowerInternalBattery
	case UPSPowerIdentifier:
		return PowerExternalUPS
	default:
		return PowerUnknown
	}
}

// IsACPower reports whether the source is external (mains or UPS).
func (k PowerSourceKind) IsACPower() bool {
	return k == PowerExternalUnlimited || k == PowerExternalUPS
}

func (k PowerSourceKind) String() string {
	switch k {
	case PowerExternalUnlimited:
		return "ac"
	case PowerInternalBattery:
		return "battery"
	case PowerExternalUPS:
		return "ups"
	default:
		return "unknown"
	}
}

// MarshalText renders the kind as its short name.
func (k PowerSourceKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText accepts the short names; anything else is PowerUnknown.
func (k *PowerSourceKind) UnmarshalText(b []byte) error {
	*k = ParsePowerSource(string(b))
	return nil
}

// ParsePowerSource maps a short name back to its kind.
func ParsePowerSource(name string) PowerSourceKind {
	switch name {
	case "ac":
		return PowerExternalUnlimited
	case "battery":
		return PowerInternalBattery
	case "ups":
		return PowerExternalUPS
	default:
		return PowerUnknown
	}
}
