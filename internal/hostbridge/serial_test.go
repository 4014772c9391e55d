package hostbridge

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chaz8081/posprint/internal/escpos"
)

type fakePort struct {
	bytes.Buffer
	closed   bool
	writeErr error
}

func (p *fakePort) Write(b []byte) (int, error) {
	if p.writeErr != nil {
		return 0, p.writeErr
	}
	return p.Buffer.Write(b)
}

func (p *fakePort) Close() error {
	p.closed = true
	return nil
}

func newTestSerial(port *fakePort, format Format) (*Serial, *[]string) {
	s := NewSerial("/dev/ttyUSB0", 19200, format)
	var opened []string
	s.open = func(name string, baud int) (io.WriteCloser, error) {
		opened = append(opened, name)
		return port, nil
	}
	s.ports = func() ([]string, error) { return []string{"/dev/ttyS0", "/dev/ttyUSB0"}, nil }
	return s, &opened
}

func TestSerialPrintEncodesReceipt(t *testing.T) {
	port := &fakePort{}
	format := Format{StoreName: "Corner Cafe", StoreInfo: "Main St"}
	s, opened := newTestSerial(port, format)

	job := Job{Text: "1x Coffee  3.50\n"}
	require.NoError(t, s.Print(context.Background(), job))

	assert.Equal(t, []string{"/dev/ttyUSB0"}, *opened)
	assert.Equal(t, format.encode(job), port.Bytes())
	assert.Equal(t, escpos.BuildFormattedReceipt("Corner Cafe", "Main St", "1x Coffee  3.50\n"), port.Bytes())
	assert.True(t, port.closed, "port should be closed after the job")
}

func TestSerialTestPrint(t *testing.T) {
	port := &fakePort{}
	s, _ := newTestSerial(port, Format{})

	require.NoError(t, s.TestPrint(context.Background()))
	assert.Equal(t, escpos.BuildReceipt(testReceiptText), port.Bytes())
}

func TestSerialOpenFailure(t *testing.T) {
	s := NewSerial("/dev/ttyUSB9", 9600, Format{})
	s.open = func(string, int) (io.WriteCloser, error) {
		return nil, errors.New("no such device")
	}

	err := s.Print(context.Background(), Job{Text: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/dev/ttyUSB9")
}

func TestSerialWriteFailureClosesPort(t *testing.T) {
	port := &fakePort{writeErr: errors.New("io error")}
	s, _ := newTestSerial(port, Format{})

	require.Error(t, s.Print(context.Background(), Job{Text: "x"}))
	assert.True(t, port.closed)
}

func TestSerialCancelledContext(t *testing.T) {
	port := &fakePort{}
	s, opened := newTestSerial(port, Format{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, s.Print(ctx, Job{Text: "x"}), context.Canceled)
	assert.Empty(t, *opened)
}

func TestSerialAvailable(t *testing.T) {
	s, _ := newTestSerial(&fakePort{}, Format{})
	assert.True(t, s.Available(context.Background()))

	s.port = "/dev/ttyACM0"
	assert.False(t, s.Available(context.Background()))

	s.ports = func() ([]string, error) { return nil, errors.New("enumeration failed") }
	assert.False(t, s.Available(context.Background()))
}
