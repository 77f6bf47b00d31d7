package macos

import (
	"context"
	"fmt"
	"time"

	"maclock/internal/domain"
)

// commandTimeout bounds every non-interactive tool invocation.
const commandTimeout = 5 * time.Second

// Power reads the providing power source from pmset and observes changes
// by polling it.
type Power struct {
	run      CommandFunc
	interval time.Duration
}

// NewPower creates a power adapter polling every interval.
func NewPower(interval time.Duration) *Power {
	return &Power{run: execCommand, interval: interval}
}

func (p *Power) ProvidingSource() (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	out, err := p.run(ctx, "pmset", "-g", "ps")
	if err != nil {
		return "", err
	}
	return ParseProvidingSource(string(out))
}

func (p *Power) WatchSource(notify func()) (domain.Registration, error) {
	if _, err := p.ProvidingSource(); err != nil {
		return nil, fmt.Errorf("watch power source: %w", err)
	}
	return pollWatch(p.interval, p.ProvidingSource, func(_, _ string) { notify() }), nil
}

// PrivilegedRunner runs commands through osascript, which shows the
// administrator password dialog.
type PrivilegedRunner struct {
	run CommandFunc
}

func NewPrivilegedRunner() *PrivilegedRunner {
	return &PrivilegedRunner{run: execCommand}
}

func (r *PrivilegedRunner) RunPrivileged(ctx context.Context, command string) error {
	if _, err := r.run(ctx, "osascript", "-e", PrivilegedScript(command)); err != nil {
		return fmt.Errorf("run privileged %q: %w", command, err)
	}
	return nil
}
