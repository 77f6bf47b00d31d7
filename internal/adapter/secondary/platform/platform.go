// Package platform selects the host adapters for the lock.
package platform

import (
	"fmt"

	"maclock/internal/adapter/secondary/sim"
	"maclock/internal/domain"
)

// Names accepted by Open.
const (
	Auto = "auto"
	Sim  = "sim"
)

// Open returns the platform called name. Auto picks the native platform of
// the running OS. For Sim the controllable simulator is returned as well so
// callers can drive it; it is nil otherwise.
func Open(name string, cfg domain.Config) (domain.Platform, *sim.Platform, error) {
	switch name {
	case Sim:
		s := sim.New()
		return s.Domain(), s, nil
	case Auto, "":
		p, err := native(cfg)
		if err != nil {
			return domain.Platform{}, nil, fmt.Errorf("open native platform: %w", err)
		}
		return p, nil, nil
	default:
		return domain.Platform{}, nil, fmt.Errorf("unknown platform %q (want %s or %s)", name, Auto, Sim)
	}
}
