// Package power queries the providing power source, owns the single
// power-change subscription of the process and toggles automatic sleep.
package power

import (
	"context"
	"fmt"
	"sync"

	"maclock/internal/domain"
	"maclock/internal/logging"
)

// Handler receives the power source read at delivery time.
type Handler func(domain.PowerSourceKind)

// Monitor wraps a PowerPlatform and a SleepController.
type Monitor struct {
	platform domain.PowerPlatform
	sleep    domain.SleepController

	mu      sync.Mutex
	reg     domain.Registration
	handler Handler
}

// NewMonitor creates a monitor over the given platform ports.
func NewMonitor(platform domain.PowerPlatform, sleep domain.SleepController) *Monitor {
	return &Monitor{platform: platform, sleep: sleep}
}

// CurrentPowerSource never fails; platform errors yield PowerUnknown.
func (m *Monitor) CurrentPowerSource() domain.PowerSourceKind {
	id, err := m.platform.ProvidingSource()
	if err != nil {
		logging.Debugf("power source query failed: %v", err)
		return domain.PowerUnknown
	}
	return domain.PowerSourceFromIdentifier(id)
}

// SetEnableSleep toggles automatic sleep. The effect is system wide.
func (m *Monitor) SetEnableSleep(ctx context.Context, allowed bool) error {
	if err := m.sleep.SetSleepEnabled(ctx, allowed); err != nil {
		return &domain.PowerError{Kind: domain.PowerPrivilegedCommandFailed, Err: err}
	}
	logging.Debugf("automatic sleep enabled=%t", allowed)
	return nil
}

// Subscribe installs onChange as the power change handler. While a
// registration exists only the handler is replaced.
func (m *Monitor) Subscribe(onChange Handler) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.handler = onChange
	if m.reg != nil {
		return nil
	}
	reg, err := m.platform.WatchSource(m.deliver)
	if err != nil {
		m.handler = nil
		return &domain.PowerError{Kind: domain.PowerCannotRegisterObserver, Err: err}
	}
	m.reg = reg
	return nil
}

// Unsubscribe releases the registration. No-op when not subscribed.
func (m *Monitor) Unsubscribe() {
	m.mu.Lock()
	reg := m.reg
	m.reg = nil
	m.handler = nil
	m.mu.Unlock()

	if reg == nil {
		return
	}
	if err := reg.Close(); err != nil {
		logging.Debugf("release power registration: %v", err)
	}
}

// Subscribed reports whether an OS-level registration is held.
func (m *Monitor) Subscribed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reg != nil
}

func (m *Monitor) deliver() {
	m.mu.Lock()
	h := m.handler
	m.mu.Unlock()
	if h == nil {
		return
	}
	h(m.CurrentPowerSource())
}

// CommandSleepController toggles sleep by running pmset through a
// privileged runner.
type CommandSleepController struct {
	runner domain.PrivilegedRunner
}

// NewCommandSleepController creates a controller over runner.
func NewCommandSleepController(runner domain.PrivilegedRunner) *CommandSleepController {
	return &CommandSleepController{runner: runner}
}

// SleepCommand returns the pmset invocation for the requested setting.
func SleepCommand(enabled bool) string {
	disable := 1
	if enabled {
		disable = 0
	}
	return fmt.Sprintf("pmset -c disablesleep %d", disable)
}

func (c *CommandSleepController) SetSleepEnabled(ctx context.Context, enabled bool) error {
	cmd := SleepCommand(enabled)
	if err := c.runner.RunPrivileged(ctx, cmd); err != nil {
		return fmt.Errorf("%s: %w", cmd, err)
	}
	return nil
}
