package printclient

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// Capability is the print path the host environment offers.
type Capability int

const (
	WebOnly Capability = iota
	Desktop
	BleNative
)

func (c Capability) String() string {
	switch c {
	case Desktop:
		return "desktop"
	case BleNative:
		return "ble"
	default:
		return "web"
	}
}

// ParseCapability parses a transport name. "auto" and "" return ok=false so
// the caller falls back to detection.
func ParseCapability(s string) (c Capability, ok bool, err error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return WebOnly, false, nil
	case "desktop":
		return Desktop, true, nil
	case "ble":
		return BleNative, true, nil
	case "web":
		return WebOnly, true, nil
	default:
		return WebOnly, false, fmt.Errorf("printclient: unknown transport %q", s)
	}
}

// Environment is what capability detection looks at.
type Environment struct {
	Transport     string // explicit override from config; "auto" detects
	DesktopBridge bool   // a desktop host bridge is configured
	BLESupported  bool   // this build has a BLE stack for the host OS
}

// DetectCapability picks the print path: an explicit override wins, then a
// desktop bridge, then BLE, then the inert web client.
func DetectCapability(env Environment) Capability {
	if c, ok, err := ParseCapability(env.Transport); err == nil && ok {
		return c
	} else if err != nil {
		slog.Warn("[PRINT] ignoring transport override", "error", err)
	}
	switch {
	case env.DesktopBridge:
		return Desktop
	case env.BLESupported:
		return BleNative
	default:
		return WebOnly
	}
}

// Backends constructs the client for each capability. A nil constructor
// falls back to the web client.
type Backends struct {
	Desktop func() PrintClient
	BLE     func() PrintClient
}

// Selector resolves the PrintClient once and caches it until Reset.
type Selector struct {
	detect   func() Capability
	backends Backends

	mu     sync.Mutex
	client PrintClient
}

// NewSelector creates a selector. detect runs on first use only.
func NewSelector(detect func() Capability, backends Backends) *Selector {
	return &Selector{detect: detect, backends: backends}
}

// Client returns the bound client, resolving it on first call.
func (s *Selector) Client() PrintClient {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil {
		return s.client
	}

	capability := WebOnly
	if s.detect != nil {
		capability = s.detect()
	}

	var build func() PrintClient
	switch capability {
	case Desktop:
		build = s.backends.Desktop
	case BleNative:
		build = s.backends.BLE
	}
	if build != nil {
		s.client = build()
	}
	if s.client == nil {
		s.client = NewWeb()
	}
	slog.Info("[PRINT] transport selected", "capability", s.client.Capability())
	return s.client
}

// Reset drops the cached client so the next Client call detects again.
func (s *Selector) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.client = nil
}
