package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"maclock/internal/adapter/secondary/repository"
	"maclock/internal/adapter/secondary/sim"
	"maclock/internal/domain"
)

type memJournal struct {
	mu     sync.Mutex
	events []domain.Event
}

func (m *memJournal) Append(events ...domain.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, events...)
	return nil
}

func (m *memJournal) Recent(limit int) ([]domain.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Event, 0, len(m.events))
	for i := len(m.events) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		out = append(out, m.events[i])
	}
	return out, nil
}

func kinds(events []domain.Event) []domain.EventKind {
	out := make([]domain.EventKind, len(events))
	for i, e := range events {
		out[i] = e.Kind
	}
	return out
}

func TestJournalRecordsLockCycle(t *testing.T) {
	p := sim.New()
	j := &memJournal{}
	uc, err := NewLockUseCase(repository.NewMemoryRepository(domain.DefaultConfig()), p.Domain(), WithJournal(j))
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	uc.Start(ctx)

	if err := uc.Lock(ctx); err != nil {
		t.Fatal(err)
	}
	p.Power.SetSource(domain.BatteryPowerIdentifier)
	if _, err := uc.Unlock(ctx); err != nil {
		t.Fatal(err)
	}

	events, err := uc.Events(0)
	if err != nil {
		t.Fatal(err)
	}
	want := []domain.EventKind{
		domain.EventRestored, domain.EventUnlocked,
		domain.EventAlarm, domain.EventPower, domain.EventLocked,
	}
	got := kinds(events)
	if len(got) != len(want) {
		t.Fatalf("events=%v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("events=%v want %v", got, want)
		}
	}
	if events[2].Detail != "battery" {
		t.Fatalf("alarm detail=%q", events[2].Detail)
	}
}

func TestEventsWithoutJournal(t *testing.T) {
	uc, _, _ := startUseCase(t, domain.DefaultConfig())
	events, err := uc.Events(10)
	if err != nil || events != nil {
		t.Fatalf("events=%v err=%v", events, err)
	}
}

func TestTransitions(t *testing.T) {
	now := time.Now()
	ac := domain.PowerExternalUnlimited

	got := kinds(transitions(
		domain.Status{Locked: true, PendingRestore: true, Power: ac},
		domain.Status{PendingRestore: true, Power: ac},
		now))
	if len(got) != 2 || got[0] != domain.EventUnlocked || got[1] != domain.EventRestorePending {
		t.Fatalf("failed restore: %v", got)
	}

	got = kinds(transitions(
		domain.Status{PendingRestore: true, Power: ac},
		domain.Status{Power: ac},
		now))
	if len(got) != 1 || got[0] != domain.EventRestored {
		t.Fatalf("retried restore: %v", got)
	}

	got = kinds(transitions(
		domain.Status{Power: ac},
		domain.Status{Power: domain.PowerInternalBattery},
		now))
	if len(got) != 0 {
		t.Fatalf("unlocked power change journaled: %v", got)
	}
}
