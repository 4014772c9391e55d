package hostbridge

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"

	"go.bug.st/serial"

	"github.com/chaz8081/posprint/internal/escpos"
)

// Opener opens a byte sink to the named port.
type Opener func(port string, baud int) (io.WriteCloser, error)

// Serial prints by encoding ESC/POS locally and writing it to a serial port.
// The port is opened per job so another process can use it in between.
type Serial struct {
	port   string
	baud   int
	format Format

	open  Opener
	ports func() ([]string, error)

	mu sync.Mutex // one job on the wire at a time
}

// NewSerial creates a serial bridge for port.
func NewSerial(port string, baud int, format Format) *Serial {
	return &Serial{
		port:   port,
		baud:   baud,
		format: format,
		open:   openSerial,
		ports:  serial.GetPortsList,
	}
}

// Name describes the bridge for status output.
func (s *Serial) Name() string { return "serial " + s.port }

// Available reports whether the configured port is present.
func (s *Serial) Available(_ context.Context) bool {
	ports, err := s.ports()
	if err != nil {
		slog.Debug("[HOST] listing serial ports failed", "error", err)
		return false
	}
	return slices.Contains(ports, s.port)
}

// Print encodes job and sends it to the printer.
func (s *Serial) Print(ctx context.Context, job Job) error {
	return s.write(ctx, s.format.encode(job))
}

// TestPrint sends a short fixed receipt.
func (s *Serial) TestPrint(ctx context.Context) error {
	return s.write(ctx, escpos.BuildReceipt(testReceiptText))
}

func (s *Serial) write(ctx context.Context, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	port, err := s.open(s.port, s.baud)
	if err != nil {
		return fmt.Errorf("hostbridge: open %s: %w", s.port, err)
	}

	n, err := port.Write(data)
	if err != nil {
		_ = port.Close()
		return fmt.Errorf("hostbridge: write %s: %w", s.port, err)
	}
	if n != len(data) {
		_ = port.Close()
		return fmt.Errorf("hostbridge: short write to %s: %d of %d bytes", s.port, n, len(data))
	}
	if err := port.Close(); err != nil {
		return fmt.Errorf("hostbridge: close %s: %w", s.port, err)
	}

	slog.Info("[HOST] serial job sent", "port", s.port, "bytes", len(data))
	return nil
}

// drainingPort waits for the OS buffer to empty before closing.
type drainingPort struct {
	serial.Port
}

func (p drainingPort) Close() error {
	if err := p.Drain(); err != nil {
		_ = p.Port.Close()
		return fmt.Errorf("drain: %w", err)
	}
	return p.Port.Close()
}

func openSerial(port string, baud int) (io.WriteCloser, error) {
	mode := &serial.Mode{
		BaudRate: baud,
		Parity:   serial.NoParity,
		DataBits: 8,
		StopBits: serial.OneStopBit,
	}
	p, err := serial.Open(port, mode)
	if err != nil {
		return nil, err
	}
	return drainingPort{Port: p}, nil
}
