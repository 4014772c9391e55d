package main

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"github.com/chaz8081/posprint/internal/ble"
	"github.com/chaz8081/posprint/internal/config"
	"github.com/chaz8081/posprint/internal/escpos"
	"github.com/chaz8081/posprint/internal/hostbridge"
	"github.com/chaz8081/posprint/internal/printclient"
)

// app wires configuration to the print boundary for one CLI run.
type app struct {
	cfg      *config.Config
	selector *printclient.Selector

	bleOnce    sync.Once
	bleClient  *printclient.BLEClient
	newAdapter func() ble.Adapter
}

func newApp(c *config.Config) *app {
	a := &app{cfg: c, newAdapter: ble.NewPlatformAdapter}
	env := printclient.Environment{
		Transport:     c.Transport,
		DesktopBridge: c.Desktop.Bridge != "",
		BLESupported:  bleSupported(runtime.GOOS),
	}
	a.selector = printclient.NewSelector(
		func() printclient.Capability { return printclient.DetectCapability(env) },
		printclient.Backends{
			Desktop: func() printclient.PrintClient { return printclient.NewDesktop(a.bridge()) },
			BLE:     func() printclient.PrintClient { return a.ble() },
		},
	)
	return a
}

// bleSupported reports whether this build carries a BLE stack for goos.
func bleSupported(goos string) bool {
	return goos == "linux" || goos == "darwin"
}

func (a *app) client() printclient.PrintClient { return a.selector.Client() }

// style is the receipt layout from config. Validate has already checked the
// code page.
func (a *app) style() printclient.Style {
	cp, _ := escpos.ParseCodePage(a.cfg.Receipt.CodePage)
	return printclient.Style{
		StoreName: a.cfg.Receipt.StoreName,
		StoreInfo: a.cfg.Receipt.StoreInfo,
		CodePage:  cp,
	}
}

// bridge builds the configured desktop host bridge, or nil when none is set.
func (a *app) bridge() printclient.HostBridge {
	s := a.style()
	format := hostbridge.Format{StoreName: s.StoreName, StoreInfo: s.StoreInfo, CodePage: s.CodePage}
	switch a.cfg.Desktop.Bridge {
	case "serial":
		return hostbridge.NewSerial(a.cfg.Desktop.Serial.Port, a.cfg.Desktop.Serial.Baud, format)
	case "websocket":
		return hostbridge.NewWebSocket(a.cfg.Desktop.WebSocket.URL, a.cfg.Desktop.WebSocket.Timeout)
	default:
		return nil
	}
}

// ble returns the BLE client, creating the session on first use.
func (a *app) ble() *printclient.BLEClient {
	a.bleOnce.Do(func() {
		opts := ble.DefaultOptions()
		opts.ConnectTimeout = a.cfg.BLE.ConnectTimeout
		opts.ScanTimeout = a.cfg.BLE.ScanTimeout
		opts.ChunkDelay = a.cfg.BLE.ChunkDelay
		opts.ServiceUUIDs = a.cfg.BLE.ExtraServiceUUIDs
		opts.WriteUUIDs = a.cfg.BLE.ExtraWriteUUIDs
		a.bleClient = printclient.NewBLE(ble.NewSession(a.newAdapter(), opts), a.style())
	})
	return a.bleClient
}

// bleClientFor returns the selected client as a BLE client, or an error
// when another transport was selected.
func (a *app) bleClientFor(cmd string) (*printclient.BLEClient, error) {
	c, ok := a.client().(*printclient.BLEClient)
	if !ok {
		return nil, fmt.Errorf("%s needs the ble transport, selected %s", cmd, a.client().Capability())
	}
	return c, nil
}

// ensureConnected connects the BLE client to deviceID, falling back to the
// remembered printer. Other transports need no connection.
func (a *app) ensureConnected(ctx context.Context, deviceID string) printclient.Result {
	c, ok := a.client().(*printclient.BLEClient)
	if !ok {
		return printclient.Result{Success: true}
	}
	if deviceID == "" {
		deviceID = a.cfg.BLE.DeviceID
	}
	if deviceID == "" {
		return printclient.Result{Message: "No printer selected. Run 'posprint scan' first or pass --device."}
	}
	slog.Debug("[BLE] connecting before print", "device", deviceID)
	return c.ConnectToPrinter(ctx, deviceID)
}

// remember stores the connected printer in the config file.
func (a *app) remember(dev ble.ConnectedDevice) error {
	a.cfg.BLE.DeviceID = dev.ID
	a.cfg.BLE.DeviceName = dev.Name
	return a.cfg.Save(savePath())
}
