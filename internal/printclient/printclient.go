// Package printclient is the print boundary the rest of the application
// talks to. Every operation resolves to a Result; errors and panics from the
// transports below never cross it.
package printclient

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/chaz8081/posprint/internal/ble"
)

// Result is the outcome of a user-visible print operation.
type Result struct {
	Success bool
	Message string
}

func succeed(msg string) Result { return Result{Success: true, Message: msg} }
func fail(msg string) Result    { return Result{Success: false, Message: msg} }

// recoverResult is deferred by operations below the boundary; a panic
// becomes a failed Result in *res.
func recoverResult(op string, res *Result) {
	if r := recover(); r != nil {
		slog.Error("[PRINT] "+op+" panicked", "panic", r)
		*res = fail(fmt.Sprintf("%s failed: %v", op, r))
	}
}

// PrintClient is implemented by every transport backend.
type PrintClient interface {
	// Capability identifies the backend.
	Capability() Capability
	// IsAvailable reports whether the backend can print right now.
	IsAvailable(ctx context.Context) bool
	// TestConnection prints a short test receipt.
	TestConnection(ctx context.Context) Result
	// PrintReceipt prints plain receipt text.
	PrintReceipt(ctx context.Context, text string) Result
	// PrintReceiptWithImages prints text with optional pre-encoded logo and
	// QR raster blocks placed above it.
	PrintReceiptWithImages(ctx context.Context, text string, logo, qr []byte) Result
}

// DeviceManager is implemented by backends that manage a printer link.
type DeviceManager interface {
	PairedDevices(ctx context.Context) []ble.Device
	ConnectToPrinter(ctx context.Context, deviceID string) Result
}

// Compile-time interface satisfaction checks.
var (
	_ PrintClient   = (*WebClient)(nil)
	_ PrintClient   = (*DesktopClient)(nil)
	_ PrintClient   = (*BLEClient)(nil)
	_ DeviceManager = (*BLEClient)(nil)
)
