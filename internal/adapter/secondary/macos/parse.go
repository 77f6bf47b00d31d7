// Package macos implements the platform ports on macOS with pmset, ioreg,
// osascript and CoreAudio.
package macos

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
)

// ErrUnexpectedOutput is returned when a tool's output cannot be parsed.
var ErrUnexpectedOutput = errors.New("unexpected command output")

var (
	drawingFromRe  = regexp.MustCompile(`Now drawing from '([^']+)'`)
	screenLockedRe = regexp.MustCompile(`"CGSSessionScreenIsLocked"\s*=\s*(Yes|No|true|false|1|0)`)
)

// ParseProvidingSource extracts the power source identifier from
// `pmset -g ps` output, e.g. "AC Power".
func ParseProvidingSource(out string) (string, error) {
	m := drawingFromRe.FindStringSubmatch(out)
	if m == nil {
		return "", fmt.Errorf("%w: %q", ErrUnexpectedOutput, firstLine(out))
	}
	return m[1], nil
}

// ParseScreenLocked reports whether `ioreg -n Root -d1` shows a locked
// session. The key is absent while the session is unlocked.
func ParseScreenLocked(out string) bool {
	m := screenLockedRe.FindStringSubmatch(out)
	if m == nil {
		return false
	}
	switch m[1] {
	case "Yes", "true", "1":
		return true
	default:
		return false
	}
}

// PrivilegedScript returns the AppleScript that runs command as root after
// asking for administrator credentials.
func PrivilegedScript(command string) string {
	return fmt.Sprintf("do shell script %s with administrator privileges", appleScriptString(command))
}

// lockScript shows the lock screen using the Control-Command-Q shortcut.
const lockScript = `tell application "System Events" to keystroke "q" using {control down, command down}`

func appleScriptString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + r.Replace(s) + `"`
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// CommandFunc runs a program and returns its combined output.
type CommandFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

func execCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		return out, fmt.Errorf("%s failed: %w (%s)", name, err, strings.TrimSpace(string(out)))
	}
	return out, nil
}
