package freedesktop

import (
	"errors"
	"os"

	"maclock/internal/adapter/secondary/noaudio"
	"maclock/internal/adapter/secondary/sound"
	"maclock/internal/domain"
)

// New assembles the D-Bus platform for the session named by XDG_SESSION_ID.
// Audio routing is not supported; the alarm plays through paplay.
func New(domain.Config) (domain.Platform, error) {
	bus, err := Connect()
	if err != nil {
		return domain.Platform{}, err
	}
	session, err := NewSession(bus, os.Getenv("XDG_SESSION_ID"))
	if err != nil {
		return domain.Platform{}, errors.Join(err, bus.Close())
	}
	inhibitor := NewInhibitor(bus)
	return domain.Platform{
		Name:    "freedesktop",
		Power:   NewPower(bus),
		Sleep:   inhibitor,
		Session: session,
		Audio:   noaudio.New(),
		Alarm:   sound.New("paplay"),
		Close: func() error {
			return errors.Join(inhibitor.Close(), bus.Close())
		},
	}, nil
}
