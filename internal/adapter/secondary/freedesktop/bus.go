// Package freedesktop implements the platform ports over the system D-Bus
// with systemd-logind and UPower.
package freedesktop

import (
	"errors"
	"fmt"
	"sync"

	"github.com/godbus/dbus/v5"

	"maclock/internal/domain"
	"maclock/internal/logging"
)

const propertiesInterface = "org.freedesktop.DBus.Properties"

// Match selects the signals a handler receives.
type Match struct {
	Sender    string
	Path      dbus.ObjectPath
	Interface string
	Member    string
}

func (m Match) key() signalKey {
	return signalKey{path: m.Path, name: m.Interface + "." + m.Member}
}

func (m Match) options() []dbus.MatchOption {
	opts := []dbus.MatchOption{
		dbus.WithMatchObjectPath(m.Path),
		dbus.WithMatchInterface(m.Interface),
		dbus.WithMatchMember(m.Member),
	}
	if m.Sender != "" {
		opts = append(opts, dbus.WithMatchSender(m.Sender))
	}
	return opts
}

func propertiesChanged(sender string, path dbus.ObjectPath) Match {
	return Match{Sender: sender, Path: path, Interface: propertiesInterface, Member: "PropertiesChanged"}
}

type signalKey struct {
	path dbus.ObjectPath
	name string
}

// Bus owns one system bus connection and routes its signals to handlers
// registered per object path and signal name.
type Bus struct {
	conn    *dbus.Conn
	signals chan *dbus.Signal
	done    chan struct{}

	mu       sync.Mutex
	handlers map[signalKey]map[int]func(*dbus.Signal)
	nextID   int
	closed   bool
}

// Connect opens a private connection to the system bus and starts routing.
func Connect() (*Bus, error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to system bus: %w", err)
	}
	b := newBus(conn)
	conn.Signal(b.signals)
	go b.run()
	return b, nil
}

func newBus(conn *dbus.Conn) *Bus {
	return &Bus{
		conn:     conn,
		signals:  make(chan *dbus.Signal, 16),
		done:     make(chan struct{}),
		handlers: make(map[signalKey]map[int]func(*dbus.Signal)),
	}
}

// Object returns a proxy for the named object.
func (b *Bus) Object(dest string, path dbus.ObjectPath) dbus.BusObject {
	return b.conn.Object(dest, path)
}

func (b *Bus) run() {
	for {
		select {
		case <-b.done:
			return
		case s, ok := <-b.signals:
			if !ok {
				return
			}
			b.route(s)
		}
	}
}

// route calls every handler registered for the signal. Handlers run
// without the bus mutex held and may subscribe or unsubscribe.
func (b *Bus) route(s *dbus.Signal) {
	if s == nil {
		return
	}
	b.mu.Lock()
	set := b.handlers[signalKey{path: s.Path, name: s.Name}]
	fns := make([]func(*dbus.Signal), 0, len(set))
	for _, fn := range set {
		fns = append(fns, fn)
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn(s)
	}
}

// Subscribe adds a match rule for m and calls fn for each matching signal.
func (b *Bus) Subscribe(m Match, fn func(*dbus.Signal)) (domain.Registration, error) {
	if fn == nil {
		return nil, errors.New("subscribe: handler cannot be nil")
	}
	if b.conn != nil {
		if err := b.conn.AddMatchSignal(m.options()...); err != nil {
			return nil, fmt.Errorf("failed to register D-Bus %s signal: %w", m.Member, err)
		}
	}
	id, err := b.add(m.key(), fn)
	if err != nil {
		if b.conn != nil {
			_ = b.conn.RemoveMatchSignal(m.options()...)
		}
		return nil, err
	}
	return &registration{bus: b, match: m, id: id}, nil
}

func (b *Bus) add(k signalKey, fn func(*dbus.Signal)) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return 0, errors.New("subscribe: bus closed")
	}
	b.nextID++
	set, ok := b.handlers[k]
	if !ok {
		set = make(map[int]func(*dbus.Signal))
		b.handlers[k] = set
	}
	set[b.nextID] = fn
	return b.nextID, nil
}

func (b *Bus) remove(k signalKey, id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.handlers[k], id)
	if len(b.handlers[k]) == 0 {
		delete(b.handlers, k)
	}
}

// Close stops routing and closes the connection. Registrations become no-ops.
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	clear(b.handlers)
	b.mu.Unlock()

	close(b.done)
	if b.conn == nil {
		return nil
	}
	b.conn.RemoveSignal(b.signals)
	return b.conn.Close()
}

type registration struct {
	bus   *Bus
	match Match
	id    int
	once  sync.Once
}

func (r *registration) Close() error {
	var err error
	r.once.Do(func() {
		r.bus.remove(r.match.key(), r.id)
		r.bus.mu.Lock()
		closed := r.bus.closed
		r.bus.mu.Unlock()
		if closed || r.bus.conn == nil {
			return
		}
		if rerr := r.bus.conn.RemoveMatchSignal(r.match.options()...); rerr != nil {
			logging.Debugf("remove match %s: %v", r.match.Member, rerr)
			err = fmt.Errorf("failed to remove D-Bus %s signal: %w", r.match.Member, rerr)
		}
	})
	return err
}

// changedProperty returns the new value of iface.name carried by a
// PropertiesChanged signal.
func changedProperty(s *dbus.Signal, iface, name string) (dbus.Variant, bool) {
	if s == nil || s.Name != propertiesInterface+".PropertiesChanged" || len(s.Body) < 2 {
		return dbus.Variant{}, false
	}
	if got, ok := s.Body[0].(string); !ok || got != iface {
		return dbus.Variant{}, false
	}
	changed, ok := s.Body[1].(map[string]dbus.Variant)
	if !ok {
		return dbus.Variant{}, false
	}
	v, ok := changed[name]
	return v, ok
}
