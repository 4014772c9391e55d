package printclient

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/chaz8081/posprint/internal/hostbridge"
)

// HostBridge is the desktop host's print surface.
type HostBridge interface {
	Name() string
	Available(ctx context.Context) bool
	Print(ctx context.Context, job hostbridge.Job) error
	TestPrint(ctx context.Context) error
}

// DesktopClient forwards print calls to a host bridge.
type DesktopClient struct {
	bridge HostBridge
}

// NewDesktop creates a desktop client. A nil bridge yields a client that
// reports itself unavailable.
func NewDesktop(bridge HostBridge) *DesktopClient {
	return &DesktopClient{bridge: bridge}
}

func (d *DesktopClient) Capability() Capability { return Desktop }

func (d *DesktopClient) IsAvailable(ctx context.Context) (ok bool) {
	if d.bridge == nil {
		return false
	}
	defer func() {
		if r := recover(); r != nil {
			slog.Error("[PRINT] host bridge panicked", "panic", r)
			ok = false
		}
	}()
	return d.bridge.Available(ctx)
}

func (d *DesktopClient) TestConnection(ctx context.Context) Result {
	return d.call("test print", func() error { return d.bridge.TestPrint(ctx) })
}

func (d *DesktopClient) PrintReceipt(ctx context.Context, text string) Result {
	return d.call("print", func() error {
		return d.bridge.Print(ctx, hostbridge.Job{Text: text})
	})
}

func (d *DesktopClient) PrintReceiptWithImages(ctx context.Context, text string, logo, qr []byte) Result {
	return d.call("print", func() error {
		return d.bridge.Print(ctx, hostbridge.Job{Text: text, Logo: logo, QR: qr})
	})
}

// call runs fn and converts its error or panic into a Result.
func (d *DesktopClient) call(op string, fn func() error) (res Result) {
	if d.bridge == nil {
		return fail("No desktop print host is configured.")
	}
	defer func() {
		if r := recover(); r != nil {
			slog.Error("[PRINT] host bridge panicked", "op", op, "panic", r)
			res = fail(fmt.Sprintf("Desktop %s failed: %v", op, r))
		}
	}()

	if err := fn(); err != nil {
		slog.Error("[PRINT] desktop "+op+" failed", "bridge", d.bridge.Name(), "error", err)
		return fail(fmt.Sprintf("Desktop %s failed: %v", op, err))
	}
	if op == "test print" {
		return succeed("Test page sent to " + d.bridge.Name() + ".")
	}
	return succeed("Receipt sent to " + d.bridge.Name() + ".")
}
