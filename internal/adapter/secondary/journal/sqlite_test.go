package journal

import (
	"path/filepath"
	"testing"
	"time"

	"maclock/internal/domain"
)

func TestAppendAndRecent(t *testing.T) {
	j, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer j.Close()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := j.Append(
		domain.Event{Time: base, Kind: domain.EventLocked},
		domain.Event{Time: base.Add(time.Minute), Kind: domain.EventAlarm, Detail: "battery"},
	); err != nil {
		t.Fatal(err)
	}
	if err := j.Append(domain.Event{Time: base.Add(2 * time.Minute), Kind: domain.EventUnlocked}); err != nil {
		t.Fatal(err)
	}

	all, err := j.Recent(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 || all[0].Kind != domain.EventUnlocked || all[2].Kind != domain.EventLocked {
		t.Fatalf("events=%+v", all)
	}
	if all[1].Detail != "battery" || !all[1].Time.Equal(base.Add(time.Minute)) {
		t.Fatalf("alarm=%+v", all[1])
	}

	last, err := j.Recent(1)
	if err != nil || len(last) != 1 || last[0].Kind != domain.EventUnlocked {
		t.Fatalf("last=%+v err=%v", last, err)
	}
}

func TestAppendRejectsEmptyKind(t *testing.T) {
	j, err := Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer j.Close()
	if err := j.Append(domain.Event{Kind: domain.EventLocked}, domain.Event{}); err == nil {
		t.Fatal("expected error")
	}
	events, err := j.Recent(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 0 {
		t.Fatalf("partial append committed: %+v", events)
	}
}

func TestReopenKeepsEvents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "events.db")
	j, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := j.Append(domain.Event{Time: time.Now(), Kind: domain.EventError, Detail: "lock: AC power not connected"}); err != nil {
		t.Fatal(err)
	}
	if err := j.Close(); err != nil {
		t.Fatal(err)
	}

	j, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer j.Close()
	events, err := j.Recent(10)
	if err != nil || len(events) != 1 || events[0].Kind != domain.EventError {
		t.Fatalf("events=%+v err=%v", events, err)
	}
}

func TestDefaultPath(t *testing.T) {
	if got := DefaultPath("/home/dev/.config/maclock/config.json"); got != "/home/dev/.config/maclock/events.db" {
		t.Fatalf("got %s", got)
	}
}
