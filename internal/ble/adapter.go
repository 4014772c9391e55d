// Package ble drives a BLE thermal printer: it discovers the peripheral,
// negotiates a writable GATT characteristic, owns the single active printer
// connection, and streams ESC/POS bytes to it in MTU-sized chunks.
package ble

import (
	"context"
	"errors"
)

// Errors platform adapters wrap so the session can classify failures
// without knowing which BLE stack produced them.
var (
	// ErrUnsupportedPlatform is returned by Enable on hosts without a BLE stack.
	ErrUnsupportedPlatform = errors.New("ble: not supported on this platform")
	// ErrPermissionDenied means the OS or the user refused Bluetooth access.
	ErrPermissionDenied = errors.New("ble: permission denied")
	// ErrLinkLost means the peripheral is no longer connected.
	ErrLinkLost = errors.New("ble: link lost")
	// ErrWriteModeUnsupported means the platform rejected write-without-response
	// for a characteristic. Acknowledged writes may still succeed.
	ErrWriteModeUnsupported = errors.New("ble: write without response not supported")
)

// Property is a bitmask of GATT characteristic capabilities.
type Property uint8

const (
	PropRead Property = 1 << iota
	PropWrite
	PropWriteNoResponse
	PropNotify
	PropIndicate
)

// Writable reports whether the characteristic accepts either write mode.
func (p Property) Writable() bool {
	return p&(PropWrite|PropWriteNoResponse) != 0
}

// Characteristic represents a GATT characteristic on a connected peripheral.
type Characteristic interface {
	// UUID returns the characteristic UUID in any common textual form.
	UUID() string
	// Properties returns the capabilities reported during discovery.
	Properties() Property
	// Write sends data and waits for the peripheral's acknowledgement.
	Write(data []byte) error
	// WriteWithoutResponse sends data without waiting for acknowledgement.
	WriteWithoutResponse(data []byte) error
}

// Service is a discovered GATT service and its characteristics, in the
// order the platform enumerated them.
type Service struct {
	UUID            string
	Characteristics []Characteristic
}

// Device is a peripheral produced by a scan or bonded-device listing.
type Device struct {
	ID       string // MAC address, or a CoreBluetooth UUID on macOS
	Name     string
	RSSI     int
	Services []string // advertised service UUIDs, normalized

	// Known is set when the device advertises a service on the printer
	// allow-list.
	Known bool
}

// Connection represents an active BLE connection to a peripheral.
type Connection interface {
	// Services enumerates all GATT services and characteristics.
	Services(ctx context.Context) ([]Service, error)
	// MTU returns the negotiated ATT MTU, or an error when the platform
	// cannot report it.
	MTU() (int, error)
	// Disconnect terminates the connection.
	Disconnect() error
	// OnDisconnect registers a callback invoked when the peripheral drops
	// the link on its own.
	OnDisconnect(callback func())
}

// Adapter abstracts the BLE hardware adapter for testing.
type Adapter interface {
	// Enable powers on the BLE stack. It returns ErrUnsupportedPlatform on
	// hosts without one.
	Enable() error
	// Powered reports whether the radio is switched on.
	Powered() (bool, error)
	// Scan collects advertising peripherals until ctx is done.
	Scan(ctx context.Context) ([]Device, error)
	// Bonded lists peripherals already paired with this host. Platforms
	// without such an API return an empty list.
	Bonded(ctx context.Context) ([]Device, error)
	// Connect establishes a connection to the device with the given ID.
	Connect(ctx context.Context, id string) (Connection, error)
}
