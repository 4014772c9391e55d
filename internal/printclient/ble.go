package printclient

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/chaz8081/posprint/internal/ble"
	"github.com/chaz8081/posprint/internal/escpos"
)

// Style is the receipt layout applied by clients that encode locally.
type Style struct {
	StoreName string
	StoreInfo string
	CodePage  escpos.CodePage
}

// testReceipt is the body of the BLE test print.
const testReceipt = "Printer test OK\n"

// BLEClient prints through the BLE session's connected printer. It never
// scans or connects on its own during a print; the user connects first.
type BLEClient struct {
	session *ble.Session
	writer  *ble.Writer
	style   Style
}

// NewBLE creates a BLE client over session.
func NewBLE(session *ble.Session, style Style) *BLEClient {
	return &BLEClient{
		session: session,
		writer:  ble.NewWriter(session),
		style:   style,
	}
}

func (c *BLEClient) Capability() Capability { return BleNative }

func (c *BLEClient) IsAvailable(_ context.Context) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("[PRINT] BLE availability check panicked", "panic", r)
			ok = false
		}
	}()
	return c.session.IsAvailable()
}

func (c *BLEClient) TestConnection(_ context.Context) Result {
	return c.send("test print", escpos.BuildReceipt(testReceipt))
}

func (c *BLEClient) PrintReceipt(ctx context.Context, text string) Result {
	return c.PrintReceiptWithImages(ctx, text, nil, nil)
}

func (c *BLEClient) PrintReceiptWithImages(_ context.Context, text string, logo, qr []byte) Result {
	data := escpos.Receipt{
		StoreName: c.style.StoreName,
		StoreInfo: c.style.StoreInfo,
		Content:   text,
		Logo:      logo,
		QR:        qr,
		CodePage:  c.style.CodePage,
	}.Bytes()
	return c.send("print", data)
}

func (c *BLEClient) send(op string, data []byte) (res Result) {
	defer recoverResult("BLE "+op, &res)
	dev, ok := c.session.Connected()
	if !ok {
		return fail(messageFor(ble.ErrNotConnected))
	}
	if err := c.writer.Write(data); err != nil {
		slog.Error("[PRINT] BLE "+op+" failed", "device", dev.Name, "error", err)
		return fail(messageFor(err))
	}
	if op == "test print" {
		return succeed("Test page sent to " + printerName(dev) + ".")
	}
	return succeed("Receipt sent to " + printerName(dev) + ".")
}

// PairedDevices lists bonded peripherals, known printers first.
func (c *BLEClient) PairedDevices(ctx context.Context) (devices []ble.Device) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("[PRINT] listing paired devices panicked", "panic", r)
			devices = []ble.Device{}
		}
	}()
	return c.session.BondedDevices(ctx)
}

// ConnectToPrinter connects to the device with the given ID.
func (c *BLEClient) ConnectToPrinter(ctx context.Context, deviceID string) (res Result) {
	defer recoverResult("BLE connect", &res)
	if deviceID == "" {
		return fail(messageFor(ble.ErrNoSelection))
	}
	dev := ble.Device{ID: deviceID}
	for _, d := range c.session.BondedDevices(ctx) {
		if d.ID == deviceID {
			dev = d
			break
		}
	}
	if err := c.session.Connect(ctx, dev); err != nil {
		slog.Error("[PRINT] connect failed", "device", deviceID, "error", err)
		return fail(messageFor(err))
	}
	connected, _ := c.session.Connected()
	return succeed("Connected to " + printerName(connected) + ".")
}

// ConnectDevice connects to a device picked from a scan.
func (c *BLEClient) ConnectDevice(ctx context.Context, dev ble.Device) (res Result) {
	defer recoverResult("BLE connect", &res)
	if err := c.session.Connect(ctx, dev); err != nil {
		slog.Error("[PRINT] connect failed", "device", dev.ID, "error", err)
		return fail(messageFor(err))
	}
	connected, _ := c.session.Connected()
	return succeed("Connected to " + printerName(connected) + ".")
}

// Disconnect releases the printer. It always succeeds.
func (c *BLEClient) Disconnect() (res Result) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("[PRINT] BLE disconnect panicked", "panic", r)
			res = succeed("Printer disconnected.")
		}
	}()
	c.session.Disconnect()
	return succeed("Printer disconnected.")
}

// Session exposes the underlying session for status and scanning.
func (c *BLEClient) Session() *ble.Session { return c.session }

func printerName(d ble.ConnectedDevice) string {
	if d.Name != "" {
		return d.Name
	}
	return d.ID
}

// messageFor turns a session error into text for the operator.
func messageFor(err error) string {
	switch ble.KindOf(err) {
	case ble.KindUnavailable:
		return "Bluetooth is not available on this device."
	case ble.KindPermissionDenied:
		return "Bluetooth permission was denied. Allow Bluetooth access and try again."
	case ble.KindNoSelection:
		return "No printer selected."
	case ble.KindNegotiationFailed:
		return "The selected device cannot receive print data. Choose a different printer."
	case ble.KindTransferFailed:
		return "Printing failed and the printer was disconnected. Reconnect and try again."
	case ble.KindTimeout:
		return "Timed out connecting to the printer. Make sure it is on and nearby."
	case ble.KindNotConnected:
		return "No printer connected. Connect a printer first."
	case ble.KindConnectFailed:
		return "Could not connect to the printer."
	default:
		return fmt.Sprintf("Printing failed: %v", err)
	}
}
