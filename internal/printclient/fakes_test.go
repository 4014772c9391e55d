package printclient

import (
	"bytes"
	"context"
	"errors"
	"sync"

	"github.com/chaz8081/posprint/internal/ble"
	"github.com/chaz8081/posprint/internal/hostbridge"
)

// fakeChar is a writable printer characteristic.
type fakeChar struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	writes int
	failAt int

	panicWith any
}

func (c *fakeChar) UUID() string             { return "0000ff02-0000-1000-8000-00805f9b34fb" }
func (c *fakeChar) Properties() ble.Property { return ble.PropWrite }

func (c *fakeChar) Write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes++
	if c.panicWith != nil {
		panic(c.panicWith)
	}
	if c.failAt > 0 && c.writes == c.failAt {
		return errors.New("fake: link dropped")
	}
	c.buf.Write(data)
	return nil
}

func (c *fakeChar) WriteWithoutResponse(data []byte) error { return c.Write(data) }

func (c *fakeChar) written() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]byte(nil), c.buf.Bytes()...)
}

type fakeConn struct {
	char *fakeChar
}

func (c *fakeConn) Services(context.Context) ([]ble.Service, error) {
	return []ble.Service{{UUID: "ff00", Characteristics: []ble.Characteristic{c.char}}}, nil
}
func (c *fakeConn) MTU() (int, error)   { return 0, errors.New("fake: no MTU") }
func (c *fakeConn) Disconnect() error   { return nil }
func (c *fakeConn) OnDisconnect(func()) {}

// fakeAdapter exposes one bonded printer.
type fakeAdapter struct {
	char     *fakeChar
	connects int
	scans    int

	panicConnect any
}

func (a *fakeAdapter) Enable() error          { return nil }
func (a *fakeAdapter) Powered() (bool, error) { return true, nil }

func (a *fakeAdapter) Scan(context.Context) ([]ble.Device, error) {
	a.scans++
	return nil, nil
}

func (a *fakeAdapter) Bonded(context.Context) ([]ble.Device, error) {
	return []ble.Device{{ID: "AA:BB:CC:DD:EE:FF", Name: "MTP-II", Services: []string{"18f0"}}}, nil
}

func (a *fakeAdapter) Connect(_ context.Context, id string) (ble.Connection, error) {
	a.connects++
	if a.panicConnect != nil {
		panic(a.panicConnect)
	}
	if id != "AA:BB:CC:DD:EE:FF" {
		return nil, errors.New("fake: unknown device")
	}
	return &fakeConn{char: a.char}, nil
}

func newFakeBLE(style Style) (*BLEClient, *fakeAdapter) {
	adapter := &fakeAdapter{char: &fakeChar{}}
	opts := ble.DefaultOptions()
	opts.ChunkDelay = 0
	return NewBLE(ble.NewSession(adapter, opts), style), adapter
}

// fakeBridge is a scripted host bridge.
type fakeBridge struct {
	available bool
	err       error
	panicWith any
	jobs      []hostbridge.Job
	tests     int
}

func (b *fakeBridge) Name() string                   { return "fake host" }
func (b *fakeBridge) Available(context.Context) bool { return b.available }

func (b *fakeBridge) Print(_ context.Context, job hostbridge.Job) error {
	if b.panicWith != nil {
		panic(b.panicWith)
	}
	b.jobs = append(b.jobs, job)
	return b.err
}

func (b *fakeBridge) TestPrint(context.Context) error {
	if b.panicWith != nil {
		panic(b.panicWith)
	}
	b.tests++
	return b.err
}
