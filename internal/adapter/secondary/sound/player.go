// Package sound loops an alarm file through a command line player.
package sound

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"maclock/internal/logging"
)

// restartDelay separates restarts of a player that exited with an error.
const restartDelay = time.Second

// Player restarts the player command until stopped.
type Player struct {
	bin  string
	args []string

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New returns a player running bin with args followed by the sound path.
func New(bin string, args ...string) *Player {
	return &Player{bin: bin, args: args}
}

// Start begins looping sound. Starting while playing is a no-op.
func (p *Player) Start(sound string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return nil
	}
	if _, err := os.Stat(sound); err != nil {
		return fmt.Errorf("alarm sound: %w", err)
	}
	path, err := exec.LookPath(p.bin)
	if err != nil {
		return fmt.Errorf("alarm player: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	p.cancel, p.done = cancel, done
	args := append(append([]string(nil), p.args...), sound)

	go func() {
		defer close(done)
		for ctx.Err() == nil {
			err := exec.CommandContext(ctx, path, args...).Run()
			if err == nil || ctx.Err() != nil {
				continue
			}
			logging.Warnf("alarm player exited: %v", err)
			select {
			case <-ctx.Done():
			case <-time.After(restartDelay):
			}
		}
	}()
	logging.Debugf("alarm playing %s via %s", sound, p.bin)
	return nil
}

// Stop ends playback and waits for the player process to exit.
func (p *Player) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (p *Player) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}
