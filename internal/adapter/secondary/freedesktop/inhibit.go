package freedesktop

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
)

// callTimeout bounds method calls that may wait on polkit.
const callTimeout = 30 * time.Second

const (
	inhibitWhat = "sleep:idle"
	inhibitWho  = "maclock"
	inhibitWhy  = "Theft alarm armed"
	inhibitMode = "block"
)

type inhibitFunc func(ctx context.Context, what, who, why, mode string) (io.Closer, error)

// Inhibitor suppresses system sleep by holding a logind block inhibitor.
type Inhibitor struct {
	inhibit inhibitFunc

	mu   sync.Mutex
	lock io.Closer
}

func NewInhibitor(bus *Bus) *Inhibitor {
	login1 := bus.Object(login1Dest, login1Path)
	return &Inhibitor{inhibit: func(ctx context.Context, what, who, why, mode string) (io.Closer, error) {
		var fd dbus.UnixFD
		err := login1.CallWithContext(ctx, login1ManagerInterface+".Inhibit", 0, what, who, why, mode).Store(&fd)
		if err != nil {
			return nil, err
		}
		return os.NewFile(uintptr(fd), "inhibit"), nil
	}}
}

// SetSleepEnabled takes the inhibitor when enabled is false and releases it
// otherwise. Both directions are idempotent.
func (i *Inhibitor) SetSleepEnabled(ctx context.Context, enabled bool) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if enabled {
		if i.lock == nil {
			return nil
		}
		err := i.lock.Close()
		i.lock = nil
		if err != nil {
			return fmt.Errorf("failed to release inhibit lock: %w", err)
		}
		return nil
	}

	if i.lock != nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	lock, err := i.inhibit(ctx, inhibitWhat, inhibitWho, inhibitWhy, inhibitMode)
	if err != nil {
		return fmt.Errorf("failed to create inhibit lock: %w", err)
	}
	i.lock = lock
	return nil
}

// Held reports whether the inhibitor is currently taken.
func (i *Inhibitor) Held() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.lock != nil
}

// Close releases a held inhibitor.
func (i *Inhibitor) Close() error {
	return i.SetSleepEnabled(context.Background(), true)
}
