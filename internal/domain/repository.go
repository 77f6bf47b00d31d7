package domain

import "time"

// ConfigRepository is a secondary port that defines how to persist
// configuration and lock history.
type ConfigRepository interface {
	Load() (Config, History, error)
	Save(config Config, history History) error
}

// EventKind names a lock transition recorded in the journal.
type EventKind string

const (
	EventLocked         EventKind = "locked"
	EventUnlocked       EventKind = "unlocked"
	EventAlarm          EventKind = "alarm"
	EventPower          EventKind = "power"
	EventRestorePending EventKind = "restore-pending"
	EventRestored       EventKind = "restored"
	EventError          EventKind = "error"
)

// Event is one journal entry.
type Event struct {
	ID     int64     `json:"id"`
	Time   time.Time `json:"time"`
	Kind   EventKind `json:"kind"`
	Detail string    `json:"detail,omitempty"`
}

// EventJournal is a secondary port for the append-only transition log.
type EventJournal interface {
	Append(events ...Event) error
	// Recent returns up to limit events, newest first. limit <= 0 means all.
	Recent(limit int) ([]Event, error)
}
