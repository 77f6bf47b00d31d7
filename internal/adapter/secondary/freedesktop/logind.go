package freedesktop

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/godbus/dbus/v5"

	"maclock/internal/domain"
	"maclock/internal/logging"
)

const (
	login1Dest             = "org.freedesktop.login1"
	login1Path             = dbus.ObjectPath("/org/freedesktop/login1")
	login1ManagerInterface = "org.freedesktop.login1.Manager"
	login1SessionInterface = "org.freedesktop.login1.Session"
)

// ErrSessionNotFound is returned when logind does not list the session.
var ErrSessionNotFound = errors.New("login session not found")

// Session locks a logind session and reports LockedHint clearing.
type Session struct {
	bus     *Bus
	session dbus.BusObject
}

// NewSession resolves sessionID through logind. An empty id selects the
// session of the current process.
func NewSession(bus *Bus, sessionID string) (*Session, error) {
	manager := bus.Object(login1Dest, login1Path)

	var path dbus.ObjectPath
	if sessionID == "" {
		if err := manager.Call(login1ManagerInterface+".GetSessionByPID", 0, uint32(os.Getpid())).Store(&path); err != nil {
			return nil, fmt.Errorf("could not get session of pid %d: %w", os.Getpid(), err)
		}
	} else {
		var sessions []interface{}
		if err := manager.Call(login1ManagerInterface+".ListSessions", 0).Store(&sessions); err != nil {
			return nil, fmt.Errorf("could not list sessions: %w", err)
		}
		var err error
		if path, err = findSessionPath(sessions, sessionID); err != nil {
			return nil, err
		}
	}
	return &Session{bus: bus, session: bus.Object(login1Dest, path)}, nil
}

// findSessionPath picks the object path of sessionID from a ListSessions
// reply of (id, uid, user, seat, path) tuples.
func findSessionPath(sessions []interface{}, sessionID string) (dbus.ObjectPath, error) {
	for i, entry := range sessions {
		fields, ok := entry.([]interface{})
		if !ok || len(fields) < 5 {
			return "", fmt.Errorf("session %d is not a session tuple: %+v", i, entry)
		}
		id, ok := fields[0].(string)
		if !ok {
			return "", fmt.Errorf("session %d[0] is not a string: %+v", i, fields[0])
		}
		if id != sessionID {
			continue
		}
		path, ok := fields[4].(dbus.ObjectPath)
		if !ok {
			return "", fmt.Errorf("session %d[4] is not an ObjectPath: %+v", i, fields[4])
		}
		return path, nil
	}
	return "", fmt.Errorf("%w: %q", ErrSessionNotFound, sessionID)
}

func (s *Session) LockNow() {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()
	if err := s.session.CallWithContext(ctx, login1SessionInterface+".Lock", 0).Err; err != nil {
		logging.Warnf("lock session: %v", err)
	}
}

// Locked reads the session's LockedHint.
func (s *Session) Locked() (bool, error) {
	v, err := s.session.GetProperty(login1SessionInterface + ".LockedHint")
	if err != nil {
		return false, fmt.Errorf("could not get locked hint: %w", err)
	}
	locked, ok := v.Value().(bool)
	if !ok {
		return false, errors.New("LockedHint property result is not a boolean")
	}
	return locked, nil
}

func (s *Session) WatchUnlock(fn func()) (domain.Registration, error) {
	return s.bus.Subscribe(propertiesChanged(login1Dest, s.session.Path()), func(sig *dbus.Signal) {
		if unlockedHint(sig) {
			fn()
		}
	})
}

func unlockedHint(s *dbus.Signal) bool {
	v, ok := changedProperty(s, login1SessionInterface, "LockedHint")
	if !ok {
		return false
	}
	locked, ok := v.Value().(bool)
	return ok && !locked
}
