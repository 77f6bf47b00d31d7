package power

import (
	"context"
	"errors"
	"testing"

	"maclock/internal/adapter/secondary/sim"
	"maclock/internal/domain"
)

func TestCurrentPowerSource(t *testing.T) {
	p := sim.NewPower(domain.BatteryPowerIdentifier)
	m := NewMonitor(p, &sim.Sleep{})
	if got := m.CurrentPowerSource(); got != domain.PowerInternalBattery {
		t.Fatalf("got %v", got)
	}
	p.SetQueryError(errors.New("no power services"))
	if got := m.CurrentPowerSource(); got != domain.PowerUnknown {
		t.Fatalf("query error should yield unknown, got %v", got)
	}
}

func TestSubscribeReplacesHandler(t *testing.T) {
	p := sim.NewPower(domain.ACPowerIdentifier)
	m := NewMonitor(p, &sim.Sleep{})

	var first, second []domain.PowerSourceKind
	if err := m.Subscribe(func(k domain.PowerSourceKind) { first = append(first, k) }); err != nil {
		t.Fatal(err)
	}
	if err := m.Subscribe(func(k domain.PowerSourceKind) { second = append(second, k) }); err != nil {
		t.Fatal(err)
	}
	if p.Registrations() != 1 || p.ActiveWatches() != 1 {
		t.Fatalf("registrations=%d active=%d want 1/1", p.Registrations(), p.ActiveWatches())
	}

	p.SetSource(domain.BatteryPowerIdentifier)
	if len(first) != 0 {
		t.Fatalf("replaced handler invoked: %v", first)
	}
	if len(second) != 1 || second[0] != domain.PowerInternalBattery {
		t.Fatalf("latest handler got %v", second)
	}
}

func TestUnsubscribeReleases(t *testing.T) {
	p := sim.NewPower(domain.ACPowerIdentifier)
	m := NewMonitor(p, &sim.Sleep{})

	m.Unsubscribe()
	for i := 0; i < 3; i++ {
		if err := m.Subscribe(func(domain.PowerSourceKind) {}); err != nil {
			t.Fatal(err)
		}
		m.Unsubscribe()
	}
	if p.ActiveWatches() != 0 || m.Subscribed() {
		t.Fatalf("leaked registration: active=%d", p.ActiveWatches())
	}
	if p.Registrations() != 3 {
		t.Fatalf("registrations=%d want 3", p.Registrations())
	}
}

func TestSubscribeFailure(t *testing.T) {
	p := sim.NewPower(domain.ACPowerIdentifier)
	p.SetWatchError(errors.New("run loop unavailable"))
	m := NewMonitor(p, &sim.Sleep{})

	err := m.Subscribe(func(domain.PowerSourceKind) {})
	if !errors.Is(err, domain.ErrCannotRegisterObserver) {
		t.Fatalf("err=%v", err)
	}
	if m.Subscribed() {
		t.Fatal("subscribed after failure")
	}
}

func TestSetEnableSleep(t *testing.T) {
	s := &sim.Sleep{}
	m := NewMonitor(sim.NewPower(domain.ACPowerIdentifier), s)
	ctx := context.Background()

	if err := m.SetEnableSleep(ctx, false); err != nil {
		t.Fatal(err)
	}
	if s.Enabled() {
		t.Fatal("sleep still enabled")
	}
	s.SetError(errors.New("user canceled"))
	err := m.SetEnableSleep(ctx, true)
	if !errors.Is(err, domain.ErrPrivilegedCommandFailed) {
		t.Fatalf("err=%v", err)
	}
}

type recordingRunner struct {
	commands []string
	err      error
}

func (r *recordingRunner) RunPrivileged(_ context.Context, command string) error {
	r.commands = append(r.commands, command)
	return r.err
}

func TestCommandSleepController(t *testing.T) {
	r := &recordingRunner{}
	c := NewCommandSleepController(r)
	ctx := context.Background()

	if err := c.SetSleepEnabled(ctx, false); err != nil {
		t.Fatal(err)
	}
	if err := c.SetSleepEnabled(ctx, true); err != nil {
		t.Fatal(err)
	}
	want := []string{"pmset -c disablesleep 1", "pmset -c disablesleep 0"}
	for i, cmd := range want {
		if r.commands[i] != cmd {
			t.Errorf("command %d=%q want %q", i, r.commands[i], cmd)
		}
	}

	r.err = errors.New("exit status 1")
	if err := c.SetSleepEnabled(ctx, true); err == nil {
		t.Fatal("expected runner error")
	}
}
