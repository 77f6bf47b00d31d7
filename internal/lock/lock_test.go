package lock

import (
	"context"
	"errors"
	"testing"

	"maclock/internal/adapter/secondary/sim"
	"maclock/internal/domain"
)

func newTestLock(t *testing.T, opts ...Option) (*Lock, *sim.Platform) {
	t.Helper()
	p := sim.New()
	return New(p.Domain(), domain.DefaultConfig(), opts...), p
}

func TestLockRequiresACPower(t *testing.T) {
	l, p := newTestLock(t)
	p.Power.SetSource(domain.BatteryPowerIdentifier)

	err := l.Lock(context.Background())
	if !errors.Is(err, domain.ErrACPowerNotConnected) {
		t.Fatalf("err=%v", err)
	}
	if l.IsLocked() {
		t.Fatal("locked without AC power")
	}
	if calls := p.Sleep.Calls(); len(calls) != 0 {
		t.Fatalf("sleep toggled: %v", calls)
	}
	if p.Power.Registrations() != 0 || p.Session.ActiveWatches() != 0 {
		t.Fatal("subscribed without AC power")
	}
	if p.Session.Locks() != 0 {
		t.Fatal("screen locked without AC power")
	}
	hp, _ := p.Audio.Snapshot(sim.HeadphonesID)
	if hp.Muted {
		t.Fatal("muted without AC power")
	}
}

func TestLockThenUnlock(t *testing.T) {
	l, p := newTestLock(t)
	ctx := context.Background()

	if err := l.Lock(ctx); err != nil {
		t.Fatal(err)
	}
	if !l.IsLocked() || !l.HasStoredConfiguration() {
		t.Fatalf("locked=%t stored=%t", l.IsLocked(), l.HasStoredConfiguration())
	}
	if p.Sleep.Enabled() || !p.Session.ScreenLocked() {
		t.Fatal("sleep not suppressed or screen not locked")
	}
	if p.Power.ActiveWatches() != 1 || p.Session.ActiveWatches() != 1 {
		t.Fatalf("watches power=%d session=%d", p.Power.ActiveWatches(), p.Session.ActiveWatches())
	}
	for _, id := range []domain.DeviceID{sim.BuiltInOutputID, sim.HeadphonesID} {
		if d, _ := p.Audio.Snapshot(id); !d.Muted {
			t.Fatalf("device %d not muted", id)
		}
	}

	restored, err := l.Unlock(ctx)
	if err != nil || !restored {
		t.Fatalf("restored=%t err=%v", restored, err)
	}
	if l.IsLocked() || l.HasStoredConfiguration() {
		t.Fatal("state not cleared")
	}
	if !p.Sleep.Enabled() {
		t.Fatal("sleep not re-enabled")
	}
	if p.Power.ActiveWatches() != 0 || p.Session.ActiveWatches() != 0 {
		t.Fatal("subscriptions leaked")
	}
	hp, _ := p.Audio.Snapshot(sim.HeadphonesID)
	if hp.Muted || hp.Volumes[1] != 0.3 || hp.Volumes[2] != 0.4 {
		t.Fatalf("headphones not restored: %+v", hp)
	}
}

func TestAlarmOnPowerLoss(t *testing.T) {
	l, p := newTestLock(t)
	ctx := context.Background()
	if err := l.Lock(ctx); err != nil {
		t.Fatal(err)
	}

	p.Power.SetSource(domain.UPSPowerIdentifier)
	if l.Alarming() {
		t.Fatal("alarm on UPS power")
	}

	p.Power.SetSource(domain.BatteryPowerIdentifier)
	if !l.Alarming() || !p.Alarm.Playing() {
		t.Fatal("alarm not raised")
	}
	if p.Alarm.Sound() != domain.DefaultConfig().AlarmSound {
		t.Fatalf("sound=%q", p.Alarm.Sound())
	}
	if !l.Coordinator().AllSoundsThroughInternalOutput() {
		t.Fatal("alarm not routed internal")
	}
	builtIn, _ := p.Audio.Snapshot(sim.BuiltInOutputID)
	if builtIn.Muted || builtIn.Volumes[1] != 1 || builtIn.Volumes[2] != 1 {
		t.Fatalf("internal output=%+v", builtIn)
	}

	p.Power.SetSource("")
	if p.Alarm.Starts() != 1 {
		t.Fatalf("alarm started %d times", p.Alarm.Starts())
	}

	if _, err := l.Unlock(ctx); err != nil {
		t.Fatal(err)
	}
	if p.Alarm.Playing() || l.Alarming() {
		t.Fatal("alarm still playing after unlock")
	}
}

func TestAlarmOnlyWhileLocked(t *testing.T) {
	l, p := newTestLock(t)
	ctx := context.Background()
	if err := l.Lock(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := l.Unlock(ctx); err != nil {
		t.Fatal(err)
	}
	p.Power.SetSource(domain.BatteryPowerIdentifier)
	if p.Alarm.Starts() != 0 {
		t.Fatal("alarm raised while unlocked")
	}
}

func TestEndToEndSessionUnlock(t *testing.T) {
	l, p := newTestLock(t)
	if err := l.Lock(context.Background()); err != nil {
		t.Fatal(err)
	}
	p.Power.SetSource(domain.BatteryPowerIdentifier)
	if !p.Alarm.Playing() {
		t.Fatal("alarm not playing")
	}

	p.Session.TriggerUnlock()
	if l.IsLocked() {
		t.Fatal("session unlock did not unlock")
	}
	if !p.Sleep.Enabled() || p.Alarm.Playing() {
		t.Fatalf("sleep=%t alarm=%t", p.Sleep.Enabled(), p.Alarm.Playing())
	}
	if p.Audio.Default(domain.RoleSystem) != sim.BuiltInOutputID || p.Audio.Default(domain.RoleGeneral) != sim.HeadphonesID {
		t.Fatal("roles not restored to pre-lock devices")
	}
	builtIn, _ := p.Audio.Snapshot(sim.BuiltInOutputID)
	if builtIn.Volumes[1] != 0.5 || builtIn.Muted {
		t.Fatalf("internal output not restored: %+v", builtIn)
	}
}

func TestSubscribeFailureRollsBackSleep(t *testing.T) {
	l, p := newTestLock(t)
	p.Power.SetWatchError(errors.New("no run loop"))

	err := l.Lock(context.Background())
	if !errors.Is(err, domain.ErrCannotRegisterObserver) {
		t.Fatalf("err=%v", err)
	}
	if l.IsLocked() || p.Session.Locks() != 0 {
		t.Fatal("lock entered after subscribe failure")
	}
	calls := p.Sleep.Calls()
	if len(calls) != 2 || calls[0] || !calls[1] {
		t.Fatalf("sleep calls=%v want [false true]", calls)
	}
}

func TestSleepFailureAborts(t *testing.T) {
	l, p := newTestLock(t)
	p.Sleep.SetError(errors.New("user canceled"))

	err := l.Lock(context.Background())
	if !errors.Is(err, domain.ErrPrivilegedCommandFailed) {
		t.Fatalf("err=%v", err)
	}
	if l.IsLocked() || p.Power.Registrations() != 0 {
		t.Fatal("side effects after sleep failure")
	}
}

func TestUnlockSleepFailureKeepsLock(t *testing.T) {
	l, p := newTestLock(t)
	ctx := context.Background()
	if err := l.Lock(ctx); err != nil {
		t.Fatal(err)
	}
	p.Sleep.SetError(errors.New("user canceled"))
	if _, err := l.Unlock(ctx); !errors.Is(err, domain.ErrPrivilegedCommandFailed) {
		t.Fatalf("err=%v", err)
	}
	if !l.IsLocked() {
		t.Fatal("unlocked although sleep stayed disabled")
	}
}

func TestFailedRestoreIsRetried(t *testing.T) {
	l, p := newTestLock(t)
	ctx := context.Background()
	if err := l.Lock(ctx); err != nil {
		t.Fatal(err)
	}

	p.Audio.Fail(sim.OpSetDefault, 0)
	restored, err := l.Unlock(ctx)
	if err != nil || restored {
		t.Fatalf("restored=%t err=%v", restored, err)
	}
	if l.IsLocked() || !l.HasStoredConfiguration() {
		t.Fatal("failed restore must unlock and keep the configuration")
	}

	p.Audio.ClearFailures()
	restored, err = l.Unlock(ctx)
	if err != nil || !restored || l.HasStoredConfiguration() {
		t.Fatalf("retry restored=%t err=%v", restored, err)
	}
}

func TestUnlockWhenIdle(t *testing.T) {
	l, p := newTestLock(t)
	restored, err := l.Unlock(context.Background())
	if err != nil || restored {
		t.Fatalf("restored=%t err=%v", restored, err)
	}
	if len(p.Sleep.Calls()) != 0 {
		t.Fatal("idle unlock touched sleep")
	}
}

func TestUnlockWatchFailureStillLocks(t *testing.T) {
	l, p := newTestLock(t)
	p.Session.SetWatchError(errors.New("no session bus"))
	if err := l.Lock(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !l.IsLocked() || !p.Session.ScreenLocked() {
		t.Fatal("lock aborted on unlock watch failure")
	}
}

func TestLockWhileLockedKeepsSnapshot(t *testing.T) {
	l, p := newTestLock(t)
	ctx := context.Background()
	if err := l.Lock(ctx); err != nil {
		t.Fatal(err)
	}
	if err := l.Lock(ctx); err != nil {
		t.Fatal(err)
	}
	if p.Session.Locks() != 2 || p.Power.Registrations() != 1 || len(p.Sleep.Calls()) != 1 {
		t.Fatalf("locks=%d registrations=%d sleep=%v", p.Session.Locks(), p.Power.Registrations(), p.Sleep.Calls())
	}
	if _, err := l.Unlock(ctx); err != nil {
		t.Fatal(err)
	}
	hp, _ := p.Audio.Snapshot(sim.HeadphonesID)
	if hp.Muted {
		t.Fatal("snapshot was retaken while muted")
	}
}

func TestCallbacksGoThroughDispatch(t *testing.T) {
	var queued []func()
	l, p := newTestLock(t, WithDispatch(func(fn func()) { queued = append(queued, fn) }))
	if err := l.Lock(context.Background()); err != nil {
		t.Fatal(err)
	}

	p.Power.SetSource(domain.BatteryPowerIdentifier)
	p.Session.TriggerUnlock()
	if l.Alarming() || !l.IsLocked() {
		t.Fatal("callback ran outside dispatch")
	}
	if len(queued) != 2 {
		t.Fatalf("queued=%d want 2", len(queued))
	}
	for _, fn := range queued {
		fn()
	}
	if l.IsLocked() || p.Alarm.Playing() {
		t.Fatal("queued callbacks not applied in order")
	}
}
