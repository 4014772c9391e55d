//go:build linux

package ble

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/godbus/dbus/v5"
	"tinygo.org/x/bluetooth"
)

const (
	bluezBus          = "org.bluez"
	bluezAdapter1     = "org.bluez.Adapter1"
	bluezDevice1      = "org.bluez.Device1"
	bluezService1     = "org.bluez.GattService1"
	bluezChar1        = "org.bluez.GattCharacteristic1"
	dbusObjectManager = "org.freedesktop.DBus.ObjectManager"
	defaultHCI        = "hci0"
)

// BlueZAdapter drives BLE through tinygo-org/bluetooth on Linux and reads
// what tinygo does not expose (characteristic flags, pairing, power state)
// straight from BlueZ over the system D-Bus.
type BlueZAdapter struct {
	adapter *bluetooth.Adapter
	hci     string

	mu          sync.Mutex
	bus         *dbus.Conn
	connections map[string]*bluezConnection // keyed by upper-case MAC
}

// NewPlatformAdapter returns the BLE adapter for this host.
func NewPlatformAdapter() Adapter {
	return &BlueZAdapter{
		adapter:     bluetooth.DefaultAdapter,
		hci:         defaultHCI,
		connections: make(map[string]*bluezConnection),
	}
}

func (a *BlueZAdapter) adapterPath() dbus.ObjectPath {
	return dbus.ObjectPath("/org/bluez/" + a.hci)
}

// systemBus returns the shared system bus connection. It must not be closed.
func (a *BlueZAdapter) systemBus() (*dbus.Conn, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.bus != nil {
		return a.bus, nil
	}
	conn, err := dbus.SystemBus()
	if err != nil {
		return nil, fmt.Errorf("%w: system bus: %v", ErrUnsupportedPlatform, err)
	}
	a.bus = conn
	return conn, nil
}

func (a *BlueZAdapter) Enable() error {
	if _, err := a.systemBus(); err != nil {
		return err
	}
	if err := a.adapter.Enable(); err != nil {
		return mapBlueZError(fmt.Errorf("ble: enable adapter: %w", err))
	}

	// tinygo reports peripheral-initiated drops through the adapter-level
	// connect handler with connected=false.
	a.adapter.SetConnectHandler(func(device bluetooth.Device, connected bool) {
		if connected {
			return
		}
		id := strings.ToUpper(device.Address.String())
		a.mu.Lock()
		conn, ok := a.connections[id]
		delete(a.connections, id)
		a.mu.Unlock()
		if ok {
			conn.fireDisconnect()
		}
	})
	return nil
}

func (a *BlueZAdapter) Powered() (bool, error) {
	bus, err := a.systemBus()
	if err != nil {
		return false, err
	}
	v, err := bus.Object(bluezBus, a.adapterPath()).GetProperty(bluezAdapter1 + ".Powered")
	if err != nil {
		return false, mapBlueZError(fmt.Errorf("ble: read Powered: %w", err))
	}
	powered, ok := v.Value().(bool)
	if !ok {
		return false, fmt.Errorf("ble: Powered has unexpected type %T", v.Value())
	}
	return powered, nil
}

func (a *BlueZAdapter) Scan(ctx context.Context) ([]Device, error) {
	var mu sync.Mutex
	var devices []Device
	seen := make(map[string]bool)

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			if err := a.adapter.StopScan(); err != nil {
				slog.Debug("[BLE] stop scan", "error", err)
			}
		case <-done:
		}
	}()

	err := a.adapter.Scan(func(_ *bluetooth.Adapter, result bluetooth.ScanResult) {
		mac := strings.ToUpper(result.Address.String())
		mu.Lock()
		defer mu.Unlock()
		if seen[mac] {
			return
		}
		seen[mac] = true
		devices = append(devices, Device{
			ID:   mac,
			Name: result.LocalName(),
			RSSI: int(result.RSSI),
		})
	})
	close(done)

	if err != nil && ctx.Err() == nil {
		return nil, mapBlueZError(fmt.Errorf("ble: scan: %w", err))
	}

	// BlueZ caches the advertised service UUIDs on each Device1 object.
	objects, err := a.managedObjects()
	if err != nil {
		slog.Debug("[BLE] advertised services unavailable", "error", err)
		return devices, nil
	}
	byMAC := a.deviceProps(objects)
	for i := range devices {
		if props, ok := byMAC[devices[i].ID]; ok {
			devices[i].Services = variantStrings(props["UUIDs"])
			if devices[i].Name == "" {
				devices[i].Name = variantString(props["Alias"])
			}
		}
	}
	return devices, nil
}

func (a *BlueZAdapter) Bonded(_ context.Context) ([]Device, error) {
	objects, err := a.managedObjects()
	if err != nil {
		return nil, err
	}
	devices := []Device{}
	for mac, props := range a.deviceProps(objects) {
		if paired, _ := props["Paired"].Value().(bool); !paired {
			continue
		}
		name := variantString(props["Name"])
		if name == "" {
			name = variantString(props["Alias"])
		}
		rssi, _ := props["RSSI"].Value().(int16)
		devices = append(devices, Device{
			ID:       mac,
			Name:     name,
			RSSI:     int(rssi),
			Services: variantStrings(props["UUIDs"]),
		})
	}
	return devices, nil
}

func (a *BlueZAdapter) Connect(ctx context.Context, id string) (Connection, error) {
	var addr bluetooth.Address
	addr.Set(id)

	// tinygo's Connect blocks with its own timeout; run it aside so ctx
	// still bounds the caller.
	type connectResult struct {
		device bluetooth.Device
		err    error
	}
	ch := make(chan connectResult, 1)
	go func() {
		device, err := a.adapter.Connect(addr, bluetooth.ConnectionParams{})
		ch <- connectResult{device, err}
	}()

	select {
	case <-ctx.Done():
		// A late success would leave an orphaned link behind.
		go func() {
			if r := <-ch; r.err == nil {
				_ = r.device.Disconnect()
			}
		}()
		return nil, fmt.Errorf("ble: connect to %s: %w", id, ctx.Err())
	case r := <-ch:
		if r.err != nil {
			return nil, mapBlueZError(fmt.Errorf("ble: connect to %s: %w", id, r.err))
		}
		conn := &bluezConnection{
			adapter: a,
			device:  r.device,
			path:    devicePath(a.adapterPath(), id),
		}
		a.mu.Lock()
		a.connections[strings.ToUpper(id)] = conn
		a.mu.Unlock()
		return conn, nil
	}
}

func (a *BlueZAdapter) managedObjects() (map[dbus.ObjectPath]map[string]map[string]dbus.Variant, error) {
	bus, err := a.systemBus()
	if err != nil {
		return nil, err
	}
	var objects map[dbus.ObjectPath]map[string]map[string]dbus.Variant
	call := bus.Object(bluezBus, "/").Call(dbusObjectManager+".GetManagedObjects", 0)
	if call.Err != nil {
		return nil, mapBlueZError(fmt.Errorf("ble: GetManagedObjects: %w", call.Err))
	}
	if err := call.Store(&objects); err != nil {
		return nil, fmt.Errorf("ble: decode managed objects: %w", err)
	}
	return objects, nil
}

// deviceProps indexes Device1 properties under this adapter by MAC.
func (a *BlueZAdapter) deviceProps(objects map[dbus.ObjectPath]map[string]map[string]dbus.Variant) map[string]map[string]dbus.Variant {
	prefix := string(a.adapterPath()) + "/"
	out := make(map[string]map[string]dbus.Variant)
	for path, ifaces := range objects {
		props, ok := ifaces[bluezDevice1]
		if !ok || !strings.HasPrefix(string(path), prefix) {
			continue
		}
		if mac := variantString(props["Address"]); mac != "" {
			out[strings.ToUpper(mac)] = props
		}
	}
	return out
}

var _ Adapter = (*BlueZAdapter)(nil)

type bluezConnection struct {
	adapter *BlueZAdapter
	device  bluetooth.Device
	path    dbus.ObjectPath

	mu           sync.Mutex
	disconnectCb func()
	chars        []bluetooth.DeviceCharacteristic
}

func (c *bluezConnection) Services(ctx context.Context) ([]Service, error) {
	svcs, err := c.device.DiscoverServices(nil)
	if err != nil {
		return nil, mapBlueZError(fmt.Errorf("ble: discover services: %w", err))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	objects := c.characteristicObjects()
	bus, err := c.adapter.systemBus()
	if err != nil {
		return nil, err
	}

	var out []Service
	var all []bluetooth.DeviceCharacteristic
	for _, svc := range svcs {
		chars, err := svc.DiscoverCharacteristics(nil)
		if err != nil {
			return nil, mapBlueZError(fmt.Errorf("ble: discover characteristics of %s: %w", svc.UUID(), err))
		}
		svcUUID := NormalizeUUID(svc.UUID().String())
		s := Service{UUID: svcUUID}
		for _, ch := range chars {
			charUUID := NormalizeUUID(ch.UUID().String())
			bc := &bluezCharacteristic{uuid: charUUID}
			if obj, ok := objects[svcUUID+"/"+charUUID]; ok {
				bc.props = obj.props
				bc.obj = bus.Object(bluezBus, obj.path)
			}
			s.Characteristics = append(s.Characteristics, bc)
			all = append(all, ch)
		}
		out = append(out, s)
	}

	c.mu.Lock()
	c.chars = all
	c.mu.Unlock()
	return out, nil
}

// charObject is a GattCharacteristic1 object under the connected device.
type charObject struct {
	path  dbus.ObjectPath
	props Property
}

// characteristicObjects maps "service/characteristic" UUID pairs under this
// device to their BlueZ object path and GattCharacteristic1.Flags.
func (c *bluezConnection) characteristicObjects() map[string]charObject {
	out := make(map[string]charObject)
	objects, err := c.adapter.managedObjects()
	if err != nil {
		slog.Debug("[BLE] characteristic objects unavailable", "error", err)
		return out
	}
	prefix := string(c.path) + "/"
	for path, ifaces := range objects {
		props, ok := ifaces[bluezChar1]
		if !ok || !strings.HasPrefix(string(path), prefix) {
			continue
		}
		svcPath, _ := props["Service"].Value().(dbus.ObjectPath)
		svcUUID := variantString(objects[svcPath][bluezService1]["UUID"])
		charUUID := variantString(props["UUID"])
		out[NormalizeUUID(svcUUID)+"/"+NormalizeUUID(charUUID)] = charObject{
			path:  path,
			props: parseFlags(variantRawStrings(props["Flags"])),
		}
	}
	return out
}

func (c *bluezConnection) MTU() (int, error) {
	c.mu.Lock()
	chars := c.chars
	c.mu.Unlock()
	if len(chars) == 0 {
		return 0, errors.New("ble: MTU unknown before discovery")
	}
	mtu, err := chars[0].GetMTU()
	if err != nil {
		return 0, fmt.Errorf("ble: read MTU: %w", err)
	}
	return int(mtu), nil
}

func (c *bluezConnection) Disconnect() error {
	c.adapter.mu.Lock()
	for id, conn := range c.adapter.connections {
		if conn == c {
			delete(c.adapter.connections, id)
		}
	}
	c.adapter.mu.Unlock()
	return c.device.Disconnect()
}

func (c *bluezConnection) OnDisconnect(cb func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnectCb = cb
}

func (c *bluezConnection) fireDisconnect() {
	c.mu.Lock()
	cb := c.disconnectCb
	c.mu.Unlock()
	if cb != nil {
		cb()
	}
}

// bluezCharacteristic writes through GattCharacteristic1.WriteValue so the
// ATT write type is chosen explicitly rather than left to BlueZ.
type bluezCharacteristic struct {
	obj   dbus.BusObject // nil when BlueZ did not export the characteristic
	uuid  string
	props Property
}

func (c *bluezCharacteristic) UUID() string         { return c.uuid }
func (c *bluezCharacteristic) Properties() Property { return c.props }

func (c *bluezCharacteristic) Write(data []byte) error {
	return c.writeValue(data, false)
}

func (c *bluezCharacteristic) WriteWithoutResponse(data []byte) error {
	return c.writeValue(data, true)
}

func (c *bluezCharacteristic) writeValue(data []byte, noResponse bool) error {
	if c.obj == nil {
		return fmt.Errorf("ble: characteristic %s has no BlueZ object", c.uuid)
	}
	err := c.obj.Call(bluezChar1+".WriteValue", 0, data, writeOptions(noResponse)).Err
	return mapBlueZError(err)
}

// writeOptions selects the ATT write type: "command" is write without
// response, "request" is an acknowledged write.
func writeOptions(noResponse bool) map[string]dbus.Variant {
	typ := "request"
	if noResponse {
		typ = "command"
	}
	return map[string]dbus.Variant{"type": dbus.MakeVariant(typ)}
}

func parseFlags(flags []string) Property {
	var p Property
	for _, f := range flags {
		switch f {
		case "read":
			p |= PropRead
		case "write", "reliable-write", "authenticated-signed-writes":
			p |= PropWrite
		case "write-without-response":
			p |= PropWriteNoResponse
		case "notify":
			p |= PropNotify
		case "indicate":
			p |= PropIndicate
		}
	}
	return p
}

// mapBlueZError tags well-known org.bluez.Error names with the package
// sentinels, keeping the original error in the chain.
func mapBlueZError(err error) error {
	if err == nil {
		return nil
	}
	var name string
	var de dbus.Error
	var dep *dbus.Error
	switch {
	case errors.As(err, &dep):
		name = dep.Name
	case errors.As(err, &de):
		name = de.Name
	default:
		return err
	}
	switch name {
	case "org.bluez.Error.NotSupported", "org.bluez.Error.NotPermitted":
		return fmt.Errorf("%w: %w", ErrWriteModeUnsupported, err)
	case "org.bluez.Error.NotConnected":
		return fmt.Errorf("%w: %w", ErrLinkLost, err)
	case "org.bluez.Error.NotAuthorized", "org.bluez.Error.AuthenticationFailed",
		"org.freedesktop.DBus.Error.AccessDenied":
		return fmt.Errorf("%w: %w", ErrPermissionDenied, err)
	case "org.bluez.Error.NotReady":
		return fmt.Errorf("%w: adapter not ready: %w", ErrUnsupportedPlatform, err)
	}
	return err
}

func devicePath(adapter dbus.ObjectPath, mac string) dbus.ObjectPath {
	return dbus.ObjectPath(string(adapter) + "/dev_" + strings.ReplaceAll(strings.ToUpper(mac), ":", "_"))
}

func variantString(v dbus.Variant) string {
	s, _ := v.Value().(string)
	return s
}

func variantRawStrings(v dbus.Variant) []string {
	ss, _ := v.Value().([]string)
	return ss
}

// variantStrings decodes a UUID list, normalizing each entry.
func variantStrings(v dbus.Variant) []string {
	ss := variantRawStrings(v)
	out := make([]string, 0, len(ss))
	for _, s := range ss {
		out = append(out, NormalizeUUID(s))
	}
	return out
}
