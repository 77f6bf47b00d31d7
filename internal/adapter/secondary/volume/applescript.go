// Package volume drives the macOS system output through osascript. It backs
// the audio steps of the lock on builds without CoreAudio, where only the
// current output's volume and mute state can be reached.
package volume

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"maclock/internal/domain"
)

// SystemOutputID is the only device exposed.
const SystemOutputID domain.DeviceID = 1

// SystemOutputName names the pseudo device standing for the current output.
const SystemOutputName = "System Output"

// StatusScriptFailed is reported when osascript fails or prints garbage.
const StatusScriptFailed int32 = 1

const scriptTimeout = 5 * time.Second

type runFunc func(ctx context.Context, script string) ([]byte, error)

// AppleScriptController implements domain.AudioHardware with one stereo
// device whose default role assignment cannot change.
// This is a secondary adapter.
type AppleScriptController struct {
	run runFunc
}

// NewAppleScriptController creates a new AppleScript output controller.
func NewAppleScriptController() *AppleScriptController {
	return &AppleScriptController{run: osascript}
}

func osascript(ctx context.Context, script string) ([]byte, error) {
	output, err := exec.CommandContext(ctx, "osascript", "-e", script).CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("osascript failed: %w, output: %s", err, string(output))
	}
	return output, nil
}

func (a *AppleScriptController) script(op, script string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), scriptTimeout)
	defer cancel()
	out, err := a.run(ctx, script)
	if err != nil {
		return "", domain.StatusError(op, StatusScriptFailed)
	}
	return strings.TrimSpace(string(out)), nil
}

func checkID(op string, id domain.DeviceID) error {
	if id != SystemOutputID {
		return domain.StatusError(op, domain.StatusUnsupported)
	}
	return nil
}

func (a *AppleScriptController) DeviceIDs() ([]domain.DeviceID, error) {
	return []domain.DeviceID{SystemOutputID}, nil
}

func (a *AppleScriptController) DeviceName(id domain.DeviceID) (string, error) {
	if err := checkID("device name", id); err != nil {
		return "", err
	}
	return SystemOutputName, nil
}

func (a *AppleScriptController) StreamChannels(id domain.DeviceID, dir domain.Direction) ([]int, error) {
	if err := checkID("stream configuration", id); err != nil {
		return nil, err
	}
	if dir != domain.DirectionOutput {
		return nil, nil
	}
	return []int{2}, nil
}

func (a *AppleScriptController) PreferredStereoChannels(id domain.DeviceID) (domain.StereoChannels, error) {
	if err := checkID("stereo channels", id); err != nil {
		return domain.StereoChannels{}, err
	}
	return domain.StereoChannels{Left: 1, Right: 2}, nil
}

// Volume reads the system output volume; every channel reports the same value.
func (a *AppleScriptController) Volume(id domain.DeviceID, _ uint32) (float32, error) {
	if err := checkID("get volume", id); err != nil {
		return 0, err
	}
	out, err := a.script("get volume", "output volume of (get volume settings)")
	if err != nil {
		return 0, err
	}
	n, perr := strconv.Atoi(out)
	if perr != nil {
		return 0, domain.StatusError("get volume", StatusScriptFailed)
	}
	return domain.ClampVolume(float32(n) / 100), nil
}

func (a *AppleScriptController) SetVolume(id domain.DeviceID, _ uint32, volume float32) error {
	if err := checkID("set volume", id); err != nil {
		return err
	}
	percent := int(domain.ClampVolume(volume)*100 + 0.5)
	_, err := a.script("set volume", fmt.Sprintf("set volume output volume %d", percent))
	return err
}

func (a *AppleScriptController) Mute(id domain.DeviceID) (bool, error) {
	if err := checkID("get mute", id); err != nil {
		return false, err
	}
	out, err := a.script("get mute", "output muted of (get volume settings)")
	if err != nil {
		return false, err
	}
	switch out {
	case "true":
		return true, nil
	case "false":
		return false, nil
	default:
		return false, domain.StatusError("get mute", StatusScriptFailed)
	}
}

func (a *AppleScriptController) SetMute(id domain.DeviceID, muted bool) error {
	if err := checkID("set mute", id); err != nil {
		return err
	}
	_, err := a.script("set mute", fmt.Sprintf("set volume output muted %t", muted))
	return err
}

func (a *AppleScriptController) JackConnected(domain.DeviceID) (bool, error) {
	return false, domain.StatusError("jack", domain.StatusUnsupported)
}

func (a *AppleScriptController) DefaultOutput(domain.Role) (domain.DeviceID, error) {
	return SystemOutputID, nil
}

func (a *AppleScriptController) SetDefaultOutput(_ domain.Role, id domain.DeviceID) error {
	return checkID("set default output", id)
}
