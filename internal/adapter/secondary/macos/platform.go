package macos

import (
	"maclock/internal/adapter/secondary/sound"
	"maclock/internal/adapter/secondary/volume"
	"maclock/internal/domain"
	"maclock/internal/logging"
	"maclock/internal/power"
)

// New assembles the macOS platform. Without CoreAudio only the current
// output's volume and mute state are driven, through AppleScript.
func New(cfg domain.Config) domain.Platform {
	hw, err := NewCoreAudio()
	if err != nil {
		logging.Warnf("device routing disabled: %v", err)
		hw = volume.NewAppleScriptController()
	}
	return domain.Platform{
		Name:    "macos",
		Power:   NewPower(cfg.PollInterval),
		Sleep:   power.NewCommandSleepController(NewPrivilegedRunner()),
		Session: NewSession(cfg.PollInterval),
		Audio:   hw,
		Alarm:   sound.New("afplay"),
	}
}
