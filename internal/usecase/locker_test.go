package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"maclock/internal/adapter/secondary/repository"
	"maclock/internal/adapter/secondary/sim"
	"maclock/internal/domain"
)

func startUseCase(t *testing.T, cfg domain.Config) (LockUseCase, *sim.Platform, *repository.MemoryRepository) {
	t.Helper()
	p := sim.New()
	repo := repository.NewMemoryRepository(cfg)
	uc, err := NewLockUseCase(repo, p.Domain())
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	uc.Start(ctx)
	return uc, p, repo
}

func waitStatus(t *testing.T, ch <-chan domain.Status, want func(domain.Status) bool) domain.Status {
	t.Helper()
	timeout := time.After(3 * time.Second)
	for {
		select {
		case st := <-ch:
			if want(st) {
				return st
			}
		case <-timeout:
			t.Fatal("timed out waiting for status")
			return domain.Status{}
		}
	}
}

func TestNewLockUseCaseRejectsInvalidConfig(t *testing.T) {
	cfg := domain.DefaultConfig()
	cfg.Addr = ""
	_, err := NewLockUseCase(repository.NewMemoryRepository(cfg), sim.New().Domain())
	if !errors.Is(err, domain.ErrInvalidConfig) {
		t.Fatalf("err=%v", err)
	}
}

func TestLockUnlockPublishesStatus(t *testing.T) {
	uc, p, repo := startUseCase(t, domain.DefaultConfig())
	ctx := context.Background()
	watch := uc.Watch()
	defer uc.Unwatch(watch)

	start := uc.Status()
	if start.Locked || start.Power != domain.PowerExternalUnlimited {
		t.Fatalf("initial status=%+v", start)
	}

	if err := uc.Lock(ctx); err != nil {
		t.Fatal(err)
	}
	st := waitStatus(t, watch, func(s domain.Status) bool { return s.Locked })
	if st.Revision <= start.Revision || !st.PendingRestore {
		t.Fatalf("status=%+v", st)
	}
	if uc.History().LastLocked.IsZero() {
		t.Fatal("lock time not recorded")
	}

	restored, err := uc.Unlock(ctx)
	if err != nil || !restored {
		t.Fatalf("restored=%t err=%v", restored, err)
	}
	waitStatus(t, watch, func(s domain.Status) bool { return !s.Locked && !s.PendingRestore })
	if !p.Sleep.Enabled() {
		t.Fatal("sleep left disabled")
	}
	if uc.History().LastUnlocked.IsZero() || repo.Saves() < 2 {
		t.Fatalf("history not persisted, saves=%d", repo.Saves())
	}
}

func TestLockWithoutACRecordsError(t *testing.T) {
	uc, p, _ := startUseCase(t, domain.DefaultConfig())
	p.Power.SetSource(domain.BatteryPowerIdentifier)

	err := uc.Lock(context.Background())
	if !errors.Is(err, domain.ErrACPowerNotConnected) {
		t.Fatalf("err=%v", err)
	}
	if uc.Status().Locked || uc.Status().LastError == "" {
		t.Fatalf("status=%+v", uc.Status())
	}
	if uc.History().LastError == "" {
		t.Fatal("error not recorded in history")
	}
}

func TestPlatformCallbacksAreSerialised(t *testing.T) {
	uc, p, _ := startUseCase(t, domain.DefaultConfig())
	watch := uc.Watch()
	defer uc.Unwatch(watch)

	if err := uc.Lock(context.Background()); err != nil {
		t.Fatal(err)
	}

	go p.Power.SetSource(domain.BatteryPowerIdentifier)
	waitStatus(t, watch, func(s domain.Status) bool { return s.Alarming })
	if !p.Alarm.Playing() || uc.History().LastAlarm.IsZero() {
		t.Fatal("alarm not recorded")
	}

	go p.Session.TriggerUnlock()
	waitStatus(t, watch, func(s domain.Status) bool { return !s.Locked })
	if p.Alarm.Playing() {
		t.Fatal("alarm still playing after session unlock")
	}
	cfg, ok, err := uc.OutputConfiguration(context.Background())
	if err != nil || !ok {
		t.Fatalf("ok=%t err=%v", ok, err)
	}
	if cfg.General.ID != sim.HeadphonesID || cfg.System.ID != sim.BuiltInOutputID {
		t.Fatalf("configuration not restored: %+v", cfg)
	}
}

func TestConcurrentCallers(t *testing.T) {
	uc, p, _ := startUseCase(t, domain.DefaultConfig())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				_ = uc.Lock(ctx)
			} else {
				_, _ = uc.Unlock(ctx)
			}
		}(i)
	}
	wg.Wait()

	if _, err := uc.Unlock(ctx); err != nil {
		t.Fatal(err)
	}
	if p.Power.ActiveWatches() != 0 || p.Session.ActiveWatches() != 0 {
		t.Fatalf("watches power=%d session=%d", p.Power.ActiveWatches(), p.Session.ActiveWatches())
	}
}

func TestFailedRestoreIsRetried(t *testing.T) {
	cfg := domain.DefaultConfig()
	cfg.RestoreRetryDelay = 100 * time.Millisecond
	uc, p, _ := startUseCase(t, cfg)
	ctx := context.Background()
	watch := uc.Watch()
	defer uc.Unwatch(watch)

	if err := uc.Lock(ctx); err != nil {
		t.Fatal(err)
	}
	p.Audio.Fail(sim.OpSetDefault, 0)
	restored, err := uc.Unlock(ctx)
	if err != nil || restored {
		t.Fatalf("restored=%t err=%v", restored, err)
	}
	if st := uc.Status(); st.Locked || !st.PendingRestore {
		t.Fatalf("status=%+v", st)
	}

	p.Audio.ClearFailures()
	waitStatus(t, watch, func(s domain.Status) bool { return !s.PendingRestore })
}

func TestRetriesStopAtLimit(t *testing.T) {
	cfg := domain.DefaultConfig()
	cfg.RestoreRetries = 0
	uc, p, _ := startUseCase(t, cfg)
	ctx := context.Background()

	if err := uc.Lock(ctx); err != nil {
		t.Fatal(err)
	}
	p.Audio.Fail(sim.OpSetDefault, 0)
	if _, err := uc.Unlock(ctx); err != nil {
		t.Fatal(err)
	}
	p.Audio.ClearFailures()
	time.Sleep(200 * time.Millisecond)
	if !uc.Status().PendingRestore {
		t.Fatal("restore retried with retries disabled")
	}

	// A manual unlock still restores.
	restored, err := uc.Unlock(ctx)
	if err != nil || !restored {
		t.Fatalf("restored=%t err=%v", restored, err)
	}
}

func TestAudioActions(t *testing.T) {
	uc, p, _ := startUseCase(t, domain.DefaultConfig())
	ctx := context.Background()

	if err := uc.SwitchOutput(ctx); err != nil {
		t.Fatal(err)
	}
	if p.Audio.Default(domain.RoleGeneral) != sim.BuiltInOutputID {
		t.Fatal("switch did not route general role internal")
	}
	if err := uc.Audio(ctx, AudioMute); err != nil {
		t.Fatal(err)
	}
	if d, _ := p.Audio.Snapshot(sim.BuiltInOutputID); !d.Muted {
		t.Fatal("mute not applied")
	}
	if err := uc.Audio(ctx, "louder"); err == nil {
		t.Fatal("unknown action accepted")
	}

	devices, err := uc.Devices(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(devices) != 3 || devices[0].Kind != domain.KindBuiltIn || len(devices[0].Roles) != 2 {
		t.Fatalf("devices=%+v", devices)
	}
}

func TestShutdownUnlocks(t *testing.T) {
	uc, p, _ := startUseCase(t, domain.DefaultConfig())
	ctx := context.Background()
	if err := uc.Lock(ctx); err != nil {
		t.Fatal(err)
	}
	if err := uc.Shutdown(ctx); err != nil {
		t.Fatal(err)
	}
	if uc.Status().Locked || !p.Sleep.Enabled() {
		t.Fatal("shutdown left the lock engaged")
	}
}

func TestCallAfterStop(t *testing.T) {
	p := sim.New()
	uc, err := NewLockUseCase(repository.NewMemoryRepository(domain.DefaultConfig()), p.Domain())
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	uc.Start(ctx)
	cancel()
	<-uc.(*lockInteractor).done

	if err := uc.Lock(context.Background()); !errors.Is(err, ErrStopped) {
		t.Fatalf("err=%v", err)
	}
}

func TestUpdateConfigValidates(t *testing.T) {
	uc, _, repo := startUseCase(t, domain.DefaultConfig())
	cfg := uc.Config()
	cfg.RestoreRetries = -1
	if err := uc.UpdateConfig(cfg); !errors.Is(err, domain.ErrInvalidConfig) {
		t.Fatalf("err=%v", err)
	}
	cfg.RestoreRetries = 5
	if err := uc.UpdateConfig(cfg); err != nil {
		t.Fatal(err)
	}
	saved, _, _ := repo.Load()
	if saved.RestoreRetries != 5 {
		t.Fatalf("saved=%+v", saved)
	}
}

func TestCallSamplesPowerOnce(t *testing.T) {
	uc, p, _ := startUseCase(t, domain.DefaultConfig())
	ctx := context.Background()

	before := p.Power.Queries()
	if _, err := uc.Devices(ctx); err != nil {
		t.Fatal(err)
	}
	if got := p.Power.Queries() - before; got != 1 {
		t.Fatalf("power source read %d times for one call", got)
	}
}
