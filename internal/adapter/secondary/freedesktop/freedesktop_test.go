package freedesktop

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/godbus/dbus/v5"

	"maclock/internal/domain"
)

const sessionPath = dbus.ObjectPath("/org/freedesktop/login1/session/_32")

func lockedHintSignal(path dbus.ObjectPath, locked bool) *dbus.Signal {
	return &dbus.Signal{
		Path: path,
		Name: propertiesInterface + ".PropertiesChanged",
		Body: []interface{}{
			login1SessionInterface,
			map[string]dbus.Variant{"LockedHint": dbus.MakeVariant(locked)},
			[]string{},
		},
	}
}

func TestBusRoutesByPathAndName(t *testing.T) {
	b := newBus(nil)
	var session, other int
	reg, err := b.Subscribe(propertiesChanged(login1Dest, sessionPath), func(*dbus.Signal) { session++ })
	if err != nil {
		t.Fatal(err)
	}
	if _, err := b.Subscribe(propertiesChanged(upowerDest, upowerPath), func(*dbus.Signal) { other++ }); err != nil {
		t.Fatal(err)
	}

	b.route(lockedHintSignal(sessionPath, true))
	b.route(&dbus.Signal{Path: sessionPath, Name: login1SessionInterface + ".Lock"})
	b.route(nil)
	if session != 1 || other != 0 {
		t.Fatalf("session=%d other=%d", session, other)
	}

	if err := reg.Close(); err != nil {
		t.Fatal(err)
	}
	if err := reg.Close(); err != nil {
		t.Fatal(err)
	}
	b.route(lockedHintSignal(sessionPath, false))
	if session != 1 {
		t.Fatalf("handler ran after close: %d", session)
	}
	if len(b.handlers) != 1 {
		t.Fatalf("handlers=%d, want 1", len(b.handlers))
	}
}

func TestBusHandlerMayUnsubscribeItself(t *testing.T) {
	b := newBus(nil)
	var reg domain.Registration
	calls := 0
	reg, err := b.Subscribe(propertiesChanged(login1Dest, sessionPath), func(*dbus.Signal) {
		calls++
		_ = reg.Close()
	})
	if err != nil {
		t.Fatal(err)
	}
	b.route(lockedHintSignal(sessionPath, true))
	b.route(lockedHintSignal(sessionPath, false))
	if calls != 1 {
		t.Fatalf("calls=%d", calls)
	}
}

func TestBusClosedRejectsSubscribe(t *testing.T) {
	b := newBus(nil)
	if err := b.Close(); err != nil {
		t.Fatal(err)
	}
	if err := b.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Subscribe(Match{Path: sessionPath}, func(*dbus.Signal) {}); err == nil {
		t.Fatal("expected error")
	}
}

func TestChangedProperty(t *testing.T) {
	onBattery := &dbus.Signal{
		Path: upowerPath,
		Name: propertiesInterface + ".PropertiesChanged",
		Body: []interface{}{
			upowerInterface,
			map[string]dbus.Variant{"OnBattery": dbus.MakeVariant(true)},
			[]string{},
		},
	}
	v, ok := changedProperty(onBattery, upowerInterface, "OnBattery")
	if !ok || v.Value() != true {
		t.Fatalf("v=%v ok=%v", v, ok)
	}
	if _, ok := changedProperty(onBattery, upowerInterface, "LidIsClosed"); ok {
		t.Fatal("unrelated property matched")
	}
	if _, ok := changedProperty(onBattery, login1SessionInterface, "OnBattery"); ok {
		t.Fatal("wrong interface matched")
	}
	if _, ok := changedProperty(&dbus.Signal{Name: onBattery.Name, Body: []interface{}{1}}, upowerInterface, "OnBattery"); ok {
		t.Fatal("malformed body matched")
	}
}

func TestUnlockedHint(t *testing.T) {
	if !unlockedHint(lockedHintSignal(sessionPath, false)) {
		t.Fatal("false LockedHint is an unlock")
	}
	if unlockedHint(lockedHintSignal(sessionPath, true)) {
		t.Fatal("true LockedHint is not an unlock")
	}
}

func TestIdentifierFromOnBattery(t *testing.T) {
	if got := domain.PowerSourceFromIdentifier(identifierFromOnBattery(true)); got != domain.PowerInternalBattery {
		t.Fatalf("on battery -> %v", got)
	}
	if got := domain.PowerSourceFromIdentifier(identifierFromOnBattery(false)); !got.IsACPower() {
		t.Fatalf("mains -> %v", got)
	}
}

func TestFindSessionPath(t *testing.T) {
	sessions := []interface{}{
		[]interface{}{"c1", uint32(120), "gdm", "seat0", dbus.ObjectPath("/org/freedesktop/login1/session/c1")},
		[]interface{}{"2", uint32(1000), "dev", "seat0", sessionPath},
	}
	path, err := findSessionPath(sessions, "2")
	if err != nil || path != sessionPath {
		t.Fatalf("path=%q err=%v", path, err)
	}
	if _, err := findSessionPath(sessions, "9"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("err=%v", err)
	}
	if _, err := findSessionPath([]interface{}{"garbage"}, "2"); err == nil {
		t.Fatal("expected error for malformed reply")
	}
}

type fakeLock struct{ closed int }

func (f *fakeLock) Close() error {
	f.closed++
	return nil
}

func TestInhibitorTakesAndReleases(t *testing.T) {
	var taken []*fakeLock
	var gotWhat, gotMode string
	i := &Inhibitor{inhibit: func(_ context.Context, what, _, _, mode string) (io.Closer, error) {
		gotWhat, gotMode = what, mode
		l := &fakeLock{}
		taken = append(taken, l)
		return l, nil
	}}

	ctx := context.Background()
	if err := i.SetSleepEnabled(ctx, false); err != nil {
		t.Fatal(err)
	}
	if err := i.SetSleepEnabled(ctx, false); err != nil {
		t.Fatal(err)
	}
	if len(taken) != 1 || !i.Held() {
		t.Fatalf("taken=%d held=%v", len(taken), i.Held())
	}
	if gotWhat != "sleep:idle" || gotMode != "block" {
		t.Fatalf("what=%q mode=%q", gotWhat, gotMode)
	}

	if err := i.SetSleepEnabled(ctx, true); err != nil {
		t.Fatal(err)
	}
	if err := i.Close(); err != nil {
		t.Fatal(err)
	}
	if taken[0].closed != 1 || i.Held() {
		t.Fatalf("closed=%d held=%v", taken[0].closed, i.Held())
	}
}

func TestInhibitorPropagatesFailure(t *testing.T) {
	denied := errors.New("Access denied")
	i := &Inhibitor{inhibit: func(context.Context, string, string, string, string) (io.Closer, error) {
		return nil, denied
	}}
	if err := i.SetSleepEnabled(context.Background(), false); !errors.Is(err, denied) {
		t.Fatalf("err=%v", err)
	}
	if i.Held() {
		t.Fatal("held after failure")
	}
}
