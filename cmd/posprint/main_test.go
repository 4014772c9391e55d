package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chaz8081/posprint/internal/ble"
	"github.com/chaz8081/posprint/internal/config"
	"github.com/chaz8081/posprint/internal/printclient"
)

type stubChar struct{ writes [][]byte }

func (c *stubChar) UUID() string             { return "ff02" }
func (c *stubChar) Properties() ble.Property { return ble.PropWrite }
func (c *stubChar) Write(p []byte) error {
	c.writes = append(c.writes, append([]byte(nil), p...))
	return nil
}
func (c *stubChar) WriteWithoutResponse(p []byte) error { return c.Write(p) }

type stubConn struct{ char *stubChar }

func (c *stubConn) Services(context.Context) ([]ble.Service, error) {
	return []ble.Service{{UUID: "ff00", Characteristics: []ble.Characteristic{c.char}}}, nil
}
func (c *stubConn) MTU() (int, error)   { return 23, nil }
func (c *stubConn) Disconnect() error   { return nil }
func (c *stubConn) OnDisconnect(func()) {}

type stubAdapter struct{ char *stubChar }

func (a *stubAdapter) Enable() error                              { return nil }
func (a *stubAdapter) Powered() (bool, error)                     { return true, nil }
func (a *stubAdapter) Scan(context.Context) ([]ble.Device, error) { return nil, nil }
func (a *stubAdapter) Bonded(context.Context) ([]ble.Device, error) {
	return []ble.Device{{ID: "AA:BB", Name: "PT-210", Services: []string{"ff00"}}}, nil
}
func (a *stubAdapter) Connect(_ context.Context, id string) (ble.Connection, error) {
	if id != "AA:BB" {
		return nil, errors.New("stub: no such device")
	}
	return &stubConn{char: a.char}, nil
}

func newTestApp(t *testing.T, mutate func(*config.Config)) (*app, *stubAdapter) {
	t.Helper()
	c := config.Default()
	c.Transport = "ble"
	c.BLE.ChunkDelay = 0
	if mutate != nil {
		mutate(c)
	}
	a := newApp(c)
	adapter := &stubAdapter{char: &stubChar{}}
	a.newAdapter = func() ble.Adapter { return adapter }
	return a, adapter
}

func TestBLESupported(t *testing.T) {
	assert.True(t, bleSupported("linux"))
	assert.True(t, bleSupported("darwin"))
	assert.False(t, bleSupported("windows"))
}

func TestNewAppSelectsTransport(t *testing.T) {
	a, _ := newTestApp(t, nil)
	assert.Equal(t, printclient.BleNative, a.client().Capability())

	a, _ = newTestApp(t, func(c *config.Config) {
		c.Transport = "auto"
		c.Desktop.Bridge = "websocket"
		c.Desktop.WebSocket.URL = "ws://127.0.0.1:1/print"
	})
	assert.Equal(t, printclient.Desktop, a.client().Capability())

	a, _ = newTestApp(t, func(c *config.Config) { c.Transport = "web" })
	assert.Equal(t, printclient.WebOnly, a.client().Capability())
}

func TestDesktopWithoutBridgeIsUnavailable(t *testing.T) {
	a, _ := newTestApp(t, func(c *config.Config) { c.Transport = "desktop" })
	assert.Nil(t, a.bridge())
	assert.False(t, a.client().IsAvailable(context.Background()))
}

func TestEnsureConnectedNeedsDevice(t *testing.T) {
	a, _ := newTestApp(t, nil)
	res := a.ensureConnected(context.Background(), "")
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "posprint scan")
}

func TestEnsureConnectedUsesRememberedPrinter(t *testing.T) {
	a, adapter := newTestApp(t, func(c *config.Config) { c.BLE.DeviceID = "AA:BB" })
	ctx := context.Background()

	res := a.ensureConnected(ctx, "")
	require.True(t, res.Success, res.Message)

	res = a.client().PrintReceipt(ctx, "hi")
	require.True(t, res.Success, res.Message)
	assert.NotEmpty(t, adapter.char.writes)
}

func TestEnsureConnectedSkipsOtherTransports(t *testing.T) {
	a, _ := newTestApp(t, func(c *config.Config) { c.Transport = "web" })
	assert.True(t, a.ensureConnected(context.Background(), "").Success)
}

func TestRememberSavesDevice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	old := configPath
	configPath = path
	t.Cleanup(func() { configPath = old })

	a, _ := newTestApp(t, nil)
	require.NoError(t, a.remember(ble.ConnectedDevice{ID: "AA:BB", Name: "PT-210"}))

	loaded, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "AA:BB", loaded.BLE.DeviceID)
	assert.Equal(t, "PT-210", loaded.BLE.DeviceName)
}

func TestPromptChooser(t *testing.T) {
	devices := []ble.Device{
		{ID: "AA:BB", Name: "PT-210", Known: true, RSSI: -60},
		{ID: "CC:DD", Name: "Headset"},
	}
	tests := []struct {
		name   string
		input  string
		wantID string
		wantOK bool
	}{
		{"pick second", "2\n", "CC:DD", true},
		{"retry after invalid", "9\n1\n", "AA:BB", true},
		{"cancel", "\n", "", false},
		{"eof", "", "", false},
		{"no trailing newline", "1", "AA:BB", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			dev, ok := promptChooser(strings.NewReader(tt.input), &out)(devices)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantID, dev.ID)
			assert.Contains(t, out.String(), "CC:DD")
		})
	}
}

func TestPromptChooserNoDevices(t *testing.T) {
	var out bytes.Buffer
	_, ok := promptChooser(strings.NewReader("1\n"), &out)(nil)
	assert.False(t, ok)
	assert.Contains(t, out.String(), "No devices found.")
}

func TestLoadRaster(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logo.bin")
	require.NoError(t, os.WriteFile(path, []byte{0xFF, 0x00, 0x0F, 0xF0}, 0644))

	block, err := loadRaster(path, 2)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x1D, 0x76, 0x30, 0x00, 2, 0, 2, 0, 0xFF, 0x00, 0x0F, 0xF0}, block)

	block, err = loadRaster("", 2)
	require.NoError(t, err)
	assert.Nil(t, block)

	_, err = loadRaster(path, 0)
	assert.Error(t, err)

	_, err = loadRaster(path, 8)
	assert.Error(t, err, "file shorter than one row")
}

func TestReceiptText(t *testing.T) {
	oldText, oldFile := printText, printFile
	t.Cleanup(func() { printText, printFile = oldText, oldFile })

	printText, printFile = "inline", ""
	got, err := receiptText(strings.NewReader("ignored"))
	require.NoError(t, err)
	assert.Equal(t, "inline", got)

	printText, printFile = "", "-"
	got, err = receiptText(strings.NewReader("from stdin"))
	require.NoError(t, err)
	assert.Equal(t, "from stdin", got)

	path := filepath.Join(t.TempDir(), "r.txt")
	require.NoError(t, os.WriteFile(path, []byte("from file"), 0644))
	printFile = path
	got, err = receiptText(nil)
	require.NoError(t, err)
	assert.Equal(t, "from file", got)
}

func TestReport(t *testing.T) {
	assert.NoError(t, report(printclient.Result{Success: true, Message: "ok"}))
	err := report(printclient.Result{Message: "No printer selected."})
	require.Error(t, err)
	assert.Equal(t, "No printer selected.", err.Error())
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, "DEBUG", parseLevel("debug").String())
	assert.Equal(t, "INFO", parseLevel("bogus").String())
}
