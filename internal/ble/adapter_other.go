//go:build !linux && !darwin

package ble

import "context"

// unsupportedAdapter is used on hosts without a supported BLE stack.
type unsupportedAdapter struct{}

// NewPlatformAdapter returns the BLE adapter for this host.
func NewPlatformAdapter() Adapter { return unsupportedAdapter{} }

func (unsupportedAdapter) Enable() error          { return ErrUnsupportedPlatform }
func (unsupportedAdapter) Powered() (bool, error) { return false, ErrUnsupportedPlatform }

func (unsupportedAdapter) Scan(context.Context) ([]Device, error) {
	return nil, ErrUnsupportedPlatform
}

func (unsupportedAdapter) Bonded(context.Context) ([]Device, error) {
	return []Device{}, nil
}

func (unsupportedAdapter) Connect(context.Context, string) (Connection, error) {
	return nil, ErrUnsupportedPlatform
}

var _ Adapter = unsupportedAdapter{}
