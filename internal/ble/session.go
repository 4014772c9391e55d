package ble

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Options configures the session behavior.
type Options struct {
	ConnectTimeout time.Duration // bound on connect + GATT discovery (default 10s)
	ScanTimeout    time.Duration // how long ScanForDevice listens (default 8s)
	ChunkDelay     time.Duration // pause between chunk writes (default 20ms)

	// Extra UUIDs appended to the built-in printer allow-lists.
	ServiceUUIDs []string
	WriteUUIDs   []string
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{
		ConnectTimeout: 10 * time.Second,
		ScanTimeout:    8 * time.Second,
		ChunkDelay:     20 * time.Millisecond,
	}
}

// ConnectedDevice describes the printer the session is attached to.
type ConnectedDevice struct {
	ID                 string
	Name               string
	ServiceUUID        string
	CharacteristicUUID string
}

// Status is a snapshot of the session's connection state.
type Status struct {
	Connected  bool
	DeviceName string
}

// EventType distinguishes session events.
type EventType int

const (
	EventConnected EventType = iota + 1
	EventDisconnected
)

func (t EventType) String() string {
	switch t {
	case EventConnected:
		return "connected"
	case EventDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Event is published whenever the connected device changes.
type Event struct {
	Type   EventType
	Device ConnectedDevice
	Reason string
}

// Chooser stands in for a device picker: given scan results (known printers
// first) it returns the chosen device, or false when nothing was chosen.
type Chooser func(devices []Device) (Device, bool)

// FirstKnown chooses the first device advertising a printer service.
func FirstKnown(devices []Device) (Device, bool) {
	for _, d := range devices {
		if d.Known {
			return d, true
		}
	}
	return Device{}, false
}

// link is one live connection. The session swaps whole links; a link
// pointer identifies "the same connection" for callbacks and writers.
type link struct {
	device ConnectedDevice
	conn   Connection
	char   Characteristic
	lost   atomic.Bool // peripheral dropped before or after installation
}

// Session owns the single printer connection. All mutation of the connected
// device goes through Connect, Disconnect, and the adapter's disconnect
// callback. Safe for concurrent use.
type Session struct {
	adapter  Adapter
	opts     Options
	services uuidSet
	writes   uuidSet

	enableOnce sync.Once
	enableErr  error

	mu     sync.RWMutex
	active *link

	subMu sync.Mutex
	subs  map[chan Event]struct{}
}

// NewSession creates a session over the given adapter.
func NewSession(adapter Adapter, opts Options) *Session {
	def := DefaultOptions()
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = def.ConnectTimeout
	}
	if opts.ScanTimeout <= 0 {
		opts.ScanTimeout = def.ScanTimeout
	}
	if opts.ChunkDelay < 0 {
		opts.ChunkDelay = def.ChunkDelay
	}
	return &Session{
		adapter:  adapter,
		opts:     opts,
		services: newUUIDSet(PrinterServiceUUIDs, opts.ServiceUUIDs),
		writes:   newUUIDSet(PrinterWriteUUIDs, opts.WriteUUIDs),
		subs:     make(map[chan Event]struct{}),
	}
}

// enable initializes the BLE stack once per session.
func (s *Session) enable() error {
	s.enableOnce.Do(func() {
		if s.adapter == nil {
			s.enableErr = &Error{Kind: KindUnavailable, Op: "enable", Err: ErrUnsupportedPlatform}
			return
		}
		if err := s.adapter.Enable(); err != nil {
			s.enableErr = classify("enable", err, KindUnavailable)
			return
		}
		slog.Debug("[BLE] adapter enabled")
	})
	return s.enableErr
}

// IsAvailable reports whether BLE can be used right now: the stack
// initialized and the radio is on.
func (s *Session) IsAvailable() bool {
	if err := s.enable(); err != nil {
		return false
	}
	powered, err := s.adapter.Powered()
	if err != nil {
		slog.Debug("[BLE] powered state unknown", "error", err)
		return false
	}
	return powered
}

// ScanForDevice scans for ScanTimeout and lets choose pick a device. Devices
// advertising a known printer service are listed first, but every device
// seen is offered. A scan that ends with no choice returns ok=false and a
// nil error.
func (s *Session) ScanForDevice(ctx context.Context, choose Chooser) (dev Device, ok bool, err error) {
	if err := s.enable(); err != nil {
		return Device{}, false, err
	}
	if choose == nil {
		choose = FirstKnown
	}

	sctx, cancel := context.WithTimeout(ctx, s.opts.ScanTimeout)
	defer cancel()

	devices, err := s.adapter.Scan(sctx)
	if err != nil {
		return Device{}, false, classify("scan", err, KindUnavailable)
	}
	devices = s.rank(devices)
	slog.Info("[BLE] scan finished", "devices", len(devices))

	dev, ok = choose(devices)
	if !ok {
		slog.Info("[BLE] no device selected")
		return Device{}, false, nil
	}
	return dev, true, nil
}

// rank marks allow-listed devices and moves them to the front, otherwise
// keeping discovery order.
func (s *Session) rank(devices []Device) []Device {
	out := make([]Device, len(devices))
	copy(out, devices)
	for i := range out {
		out[i].Known = out[i].Known || s.services.any(out[i].Services)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Known && !out[j].Known
	})
	return out
}

// BondedDevices lists paired peripherals. It never fails: errors are logged
// and an empty list is returned.
func (s *Session) BondedDevices(ctx context.Context) []Device {
	if err := s.enable(); err != nil {
		return []Device{}
	}
	devices, err := s.adapter.Bonded(ctx)
	if err != nil {
		slog.Warn("[BLE] listing bonded devices failed", "error", err)
		return []Device{}
	}
	if devices == nil {
		return []Device{}
	}
	return s.rank(devices)
}

// Connect attaches the session to dev. Any existing connection is released
// first. On success the chosen characteristic is guaranteed writable; a
// device with no writable characteristic is disconnected and rejected.
func (s *Session) Connect(ctx context.Context, dev Device) error {
	if err := s.enable(); err != nil {
		return err
	}
	if dev.ID == "" {
		return &Error{Kind: KindConnectFailed, Op: "connect", Err: errors.New("empty device id")}
	}

	s.Disconnect()

	cctx, cancel := context.WithTimeout(ctx, s.opts.ConnectTimeout)
	defer cancel()

	conn, err := s.adapter.Connect(cctx, dev.ID)
	if err != nil {
		if cctx.Err() == context.DeadlineExceeded {
			return &Error{Kind: KindTimeout, Op: "connect", Err: err}
		}
		return classify("connect", err, KindConnectFailed)
	}

	l := &link{conn: conn}
	conn.OnDisconnect(func() {
		l.lost.Store(true)
		s.drop(l, "peripheral disconnected", false)
	})

	services, err := conn.Services(cctx)
	if err != nil {
		s.teardown(conn)
		if cctx.Err() == context.DeadlineExceeded {
			return &Error{Kind: KindTimeout, Op: "connect", Err: err}
		}
		return &Error{Kind: KindNegotiationFailed, Op: "connect", Err: fmt.Errorf("discover services: %w", err)}
	}

	target, ok := selectWriteTarget(services, s.writes)
	if !ok {
		s.teardown(conn)
		return &Error{
			Kind: KindNegotiationFailed,
			Op:   "connect",
			Err:  fmt.Errorf("%s exposes no writable characteristic", deviceLabel(dev)),
		}
	}

	l.char = target.char
	l.device = ConnectedDevice{
		ID:                 dev.ID,
		Name:               dev.Name,
		ServiceUUID:        NormalizeUUID(target.serviceUUID),
		CharacteristicUUID: NormalizeUUID(target.char.UUID()),
	}

	s.mu.Lock()
	prev := s.active
	s.active = l
	s.mu.Unlock()

	if prev != nil {
		s.teardown(prev.conn)
		s.publish(Event{Type: EventDisconnected, Device: prev.device, Reason: "replaced"})
	}

	// The peripheral may have dropped while we were still negotiating.
	if l.lost.Load() {
		s.drop(l, "peripheral disconnected", false)
		return &Error{Kind: KindConnectFailed, Op: "connect", Err: ErrLinkLost}
	}

	slog.Info("[BLE] connected",
		"device", deviceLabel(dev),
		"service", l.device.ServiceUUID,
		"characteristic", l.device.CharacteristicUUID)
	s.publish(Event{Type: EventConnected, Device: l.device})
	return nil
}

// Disconnect releases the current connection, if any. The session is
// disconnected afterwards even when the platform teardown fails.
func (s *Session) Disconnect() {
	s.mu.Lock()
	l := s.active
	s.active = nil
	s.mu.Unlock()

	if l == nil {
		return
	}
	s.teardown(l.conn)
	slog.Info("[BLE] disconnected", "device", l.device.Name)
	s.publish(Event{Type: EventDisconnected, Device: l.device, Reason: "requested"})
}

// drop clears l if it is still the active link. Stale links are ignored so
// a late callback cannot clobber a newer connection.
func (s *Session) drop(l *link, reason string, teardown bool) {
	s.mu.Lock()
	if s.active != l {
		s.mu.Unlock()
		return
	}
	s.active = nil
	s.mu.Unlock()

	if teardown {
		s.teardown(l.conn)
	}
	slog.Warn("[BLE] connection dropped", "device", l.device.Name, "reason", reason)
	s.publish(Event{Type: EventDisconnected, Device: l.device, Reason: reason})
}

func (s *Session) teardown(conn Connection) {
	if err := conn.Disconnect(); err != nil {
		slog.Warn("[BLE] disconnect error ignored", "error", err)
	}
}

// current returns the active link, or nil.
func (s *Session) current() *link {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// Status returns a snapshot of the connection state.
func (s *Session) Status() Status {
	l := s.current()
	if l == nil {
		return Status{}
	}
	return Status{Connected: true, DeviceName: l.device.Name}
}

// Connected returns the connected device, if any.
func (s *Session) Connected() (ConnectedDevice, bool) {
	l := s.current()
	if l == nil {
		return ConnectedDevice{}, false
	}
	return l.device, true
}

// Subscribe returns a channel of connection events and a function that
// unsubscribes and closes it. Events are dropped for subscribers that fall
// behind.
func (s *Session) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 8)
	s.subMu.Lock()
	s.subs[ch] = struct{}{}
	s.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, ch)
			s.subMu.Unlock()
			close(ch)
		})
	}
}

func (s *Session) publish(ev Event) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for ch := range s.subs {
		select {
		case ch <- ev:
		default:
			slog.Debug("[BLE] subscriber behind, event dropped", "event", ev.Type)
		}
	}
}

func deviceLabel(d Device) string {
	if d.Name != "" {
		return fmt.Sprintf("%s (%s)", d.Name, d.ID)
	}
	return d.ID
}
