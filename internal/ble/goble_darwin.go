//go:build darwin

package ble

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/cornelk/hashmap"
	goble "github.com/go-ble/ble"
	"github.com/go-ble/ble/darwin"
)

// requestedMTU is the largest ATT MTU CoreBluetooth will agree to.
const requestedMTU = 517

// CoreBluetoothAdapter wraps go-ble's CoreBluetooth backend for macOS.
// Device IDs are CoreBluetooth peripheral UUIDs, not MAC addresses.
type CoreBluetoothAdapter struct {
	mu  sync.Mutex
	dev goble.Device
}

// NewPlatformAdapter returns the BLE adapter for this host.
func NewPlatformAdapter() Adapter {
	return &CoreBluetoothAdapter{}
}

func (a *CoreBluetoothAdapter) Enable() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.dev != nil {
		return nil
	}
	dev, err := darwin.NewDevice()
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unauthorized") {
			return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
		}
		return fmt.Errorf("ble: create CoreBluetooth device: %w", err)
	}
	a.dev = dev
	return nil
}

func (a *CoreBluetoothAdapter) device() (goble.Device, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.dev == nil {
		return nil, errors.New("ble: adapter not enabled")
	}
	return a.dev, nil
}

// Powered reports true once CoreBluetooth initialized; darwin.NewDevice
// fails while the radio is off.
func (a *CoreBluetoothAdapter) Powered() (bool, error) {
	if _, err := a.device(); err != nil {
		return false, err
	}
	return true, nil
}

func (a *CoreBluetoothAdapter) Scan(ctx context.Context) ([]Device, error) {
	dev, err := a.device()
	if err != nil {
		return nil, err
	}

	seen := hashmap.New[string, Device]()
	var order []string
	var mu sync.Mutex

	err = dev.Scan(ctx, false, func(adv goble.Advertisement) {
		id := strings.ToUpper(adv.Addr().String())
		d := Device{
			ID:       id,
			Name:     adv.LocalName(),
			RSSI:     adv.RSSI(),
			Services: uuidStrings(adv.Services()),
		}
		if _, existing := seen.GetOrInsert(id, d); existing {
			return
		}
		mu.Lock()
		order = append(order, id)
		mu.Unlock()
	})
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return nil, fmt.Errorf("ble: scan: %w", err)
	}

	mu.Lock()
	defer mu.Unlock()
	devices := make([]Device, 0, len(order))
	for _, id := range order {
		if d, ok := seen.Get(id); ok {
			devices = append(devices, d)
		}
	}
	return devices, nil
}

// Bonded returns an empty list: CoreBluetooth does not expose pairings.
func (a *CoreBluetoothAdapter) Bonded(_ context.Context) ([]Device, error) {
	return []Device{}, nil
}

func (a *CoreBluetoothAdapter) Connect(ctx context.Context, id string) (Connection, error) {
	dev, err := a.device()
	if err != nil {
		return nil, err
	}
	client, err := dev.Dial(ctx, goble.NewAddr(id))
	if err != nil {
		return nil, fmt.Errorf("ble: connect to %s: %w", id, err)
	}

	conn := &coreBluetoothConnection{client: client, done: make(chan struct{})}

	// CoreBluetooth clients expose a channel closed on peripheral drop.
	if dc, ok := client.(interface{ Disconnected() <-chan struct{} }); ok {
		go func() {
			select {
			case <-dc.Disconnected():
				conn.fireDisconnect()
			case <-conn.done:
			}
		}()
	}
	return conn, nil
}

var _ Adapter = (*CoreBluetoothAdapter)(nil)

type coreBluetoothConnection struct {
	client goble.Client

	mu           sync.Mutex
	disconnectCb func()
	mtu          int
	done         chan struct{}
	closeOnce    sync.Once
}

func (c *coreBluetoothConnection) Services(ctx context.Context) ([]Service, error) {
	profile, err := c.client.DiscoverProfile(true)
	if err != nil {
		return nil, fmt.Errorf("ble: discover profile: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if mtu, err := c.client.ExchangeMTU(requestedMTU); err != nil {
		slog.Debug("[BLE] MTU exchange failed", "error", err)
	} else {
		c.mu.Lock()
		c.mtu = mtu
		c.mu.Unlock()
	}

	var out []Service
	for _, svc := range profile.Services {
		s := Service{UUID: NormalizeUUID(svc.UUID.String())}
		for _, ch := range svc.Characteristics {
			s.Characteristics = append(s.Characteristics, &coreBluetoothCharacteristic{
				client: c.client,
				char:   ch,
			})
		}
		out = append(out, s)
	}
	return out, nil
}

func (c *coreBluetoothConnection) MTU() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mtu <= 0 {
		return 0, errors.New("ble: MTU not negotiated")
	}
	return c.mtu, nil
}

func (c *coreBluetoothConnection) Disconnect() error {
	c.closeOnce.Do(func() { close(c.done) })
	return c.client.CancelConnection()
}

func (c *coreBluetoothConnection) OnDisconnect(cb func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnectCb = cb
}

func (c *coreBluetoothConnection) fireDisconnect() {
	c.mu.Lock()
	cb := c.disconnectCb
	c.mu.Unlock()
	if cb != nil {
		cb()
	}
}

type coreBluetoothCharacteristic struct {
	client goble.Client
	char   *goble.Characteristic
}

func (c *coreBluetoothCharacteristic) UUID() string {
	return NormalizeUUID(c.char.UUID.String())
}

func (c *coreBluetoothCharacteristic) Properties() Property {
	var p Property
	if c.char.Property&goble.CharRead != 0 {
		p |= PropRead
	}
	if c.char.Property&goble.CharWrite != 0 {
		p |= PropWrite
	}
	if c.char.Property&goble.CharWriteNR != 0 {
		p |= PropWriteNoResponse
	}
	if c.char.Property&goble.CharNotify != 0 {
		p |= PropNotify
	}
	if c.char.Property&goble.CharIndicate != 0 {
		p |= PropIndicate
	}
	return p
}

func (c *coreBluetoothCharacteristic) Write(data []byte) error {
	if c.linkClosed() {
		return ErrLinkLost
	}
	err := c.client.WriteCharacteristic(c.char, data, false)
	return mapGoBLEError(err, c.linkClosed())
}

// WriteWithoutResponse rejects characteristics that do not advertise the
// mode up front; CoreBluetooth would otherwise drop the bytes silently.
func (c *coreBluetoothCharacteristic) WriteWithoutResponse(data []byte) error {
	if c.char.Property&goble.CharWriteNR == 0 {
		return fmt.Errorf("%w: %s lacks write without response", ErrWriteModeUnsupported, c.UUID())
	}
	if c.linkClosed() {
		return ErrLinkLost
	}
	err := c.client.WriteCharacteristic(c.char, data, true)
	return mapGoBLEError(err, c.linkClosed())
}

func (c *coreBluetoothCharacteristic) linkClosed() bool {
	select {
	case <-c.client.Disconnected():
		return true
	default:
		return false
	}
}

func uuidStrings(uuids []goble.UUID) []string {
	out := make([]string, 0, len(uuids))
	for _, u := range uuids {
		out = append(out, NormalizeUUID(u.String()))
	}
	return out
}
