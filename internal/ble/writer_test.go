package ble

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func payload(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i)
	}
	return b
}

// connectedWriter returns a writer over a session connected to one mock
// printer, with sleeps recorded instead of taken.
func connectedWriter(t *testing.T, props Property) (*Writer, *mockAdapter, *mockCharacteristic, *[]time.Duration) {
	t.Helper()
	adapter := newMockAdapter(nil)
	char := adapter.addPrinter("AA:AA:AA:AA:AA:AA", props)
	s := newTestSession(adapter)
	if err := s.Connect(context.Background(), Device{ID: "AA:AA:AA:AA:AA:AA", Name: "Printer"}); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	var slept []time.Duration
	w := NewWriter(s)
	w.sleep = func(d time.Duration) { slept = append(slept, d) }
	return w, adapter, char, &slept
}

func TestWriteWithoutConnectionFailsFast(t *testing.T) {
	adapter := newMockAdapter(nil)
	s := newTestSession(adapter)
	w := NewWriter(s)

	err := w.Write(payload(100))
	if !errors.Is(err, ErrNotConnected) {
		t.Fatalf("Write() error = %v, want not connected", err)
	}
	if adapter.callCount() != 0 {
		t.Errorf("adapter called %d times, want 0", adapter.callCount())
	}
}

func TestWriteChunksAtDefaultMTU(t *testing.T) {
	w, _, char, slept := connectedWriter(t, PropWrite)

	data := payload(100)
	if err := w.Write(data); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if n := char.writeCount(); n != 5 {
		t.Fatalf("writes = %d, want 5", n)
	}
	for i, chunk := range char.writes {
		if len(chunk) != 20 {
			t.Errorf("chunk[%d] len = %d, want 20", i, len(chunk))
		}
	}
	if !bytes.Equal(char.payload(), data) {
		t.Error("reassembled payload differs")
	}
	// Pauses go between chunks only.
	if len(*slept) != 4 {
		t.Errorf("sleeps = %d, want 4", len(*slept))
	}
	for _, d := range *slept {
		if d != 20*time.Millisecond {
			t.Errorf("sleep = %v, want 20ms", d)
		}
	}
}

func TestWriteUsesNegotiatedMTU(t *testing.T) {
	w, adapter, char, _ := connectedWriter(t, PropWrite)
	adapter.latestConnection().mtu = 185

	if err := w.Write(payload(400)); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if n := char.writeCount(); n != 3 {
		t.Fatalf("writes = %d, want 3", n)
	}
	if len(char.writes[0]) != 182 {
		t.Errorf("chunk len = %d, want 182", len(char.writes[0]))
	}
}

func TestWriteFallsBackToDefaultChunkWithoutMTU(t *testing.T) {
	w, adapter, char, _ := connectedWriter(t, PropWrite)
	adapter.latestConnection().mtuErr = errors.New("mock: MTU unsupported")

	if err := w.Write(payload(41)); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if n := char.writeCount(); n != 3 {
		t.Errorf("writes = %d, want 3", n)
	}
}

func TestWriteFailureMidTransferDisconnects(t *testing.T) {
	w, adapter, char, _ := connectedWriter(t, PropWrite)
	char.failAt = 3

	err := w.Write(payload(100))
	if !errors.Is(err, ErrTransferFailed) {
		t.Fatalf("Write() error = %v, want transfer failed", err)
	}
	if got := char.writeCount(); got != 3 {
		t.Errorf("write attempts = %d, want 3 (no chunks after the failure)", got)
	}
	if w.session.Status().Connected {
		t.Error("session should be disconnected after a failed chunk")
	}
	if !adapter.latestConnection().isDisconnected() {
		t.Error("link should be torn down after a failed chunk")
	}

	// Retrying without reconnecting fails fast.
	if err := w.Write(payload(10)); !errors.Is(err, ErrNotConnected) {
		t.Errorf("retry error = %v, want not connected", err)
	}
}

func TestWritePrefersWriteWithoutResponse(t *testing.T) {
	w, _, char, _ := connectedWriter(t, PropWrite|PropWriteNoResponse)

	if err := w.Write(payload(60)); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if char.noRspUsed != 3 {
		t.Errorf("WriteWithoutResponse calls = %d, want 3", char.noRspUsed)
	}
}

func TestWriteModeFallback(t *testing.T) {
	w, _, char, _ := connectedWriter(t, PropWrite|PropWriteNoResponse)
	char.noRspErr = fmt.Errorf("mock: %w", ErrWriteModeUnsupported)

	data := payload(60)
	if err := w.Write(data); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if char.noRspUsed != 1 {
		t.Errorf("WriteWithoutResponse calls = %d, want 1 before falling back", char.noRspUsed)
	}
	if !bytes.Equal(char.payload(), data) {
		t.Error("payload incomplete after fallback")
	}
}

func TestWriteModeUnsupportedWithoutFallback(t *testing.T) {
	w, _, char, _ := connectedWriter(t, PropWriteNoResponse)
	char.noRspErr = ErrWriteModeUnsupported

	if err := w.Write(payload(20)); KindOf(err) != KindTransferFailed {
		t.Errorf("Write() error = %v, want transfer failed", err)
	}
}

func TestWriteAbortsWhenPeripheralDrops(t *testing.T) {
	w, adapter, char, _ := connectedWriter(t, PropWrite)
	conn := adapter.latestConnection()
	w.sleep = func(time.Duration) { conn.SimulateDisconnect() }

	err := w.Write(payload(100))
	if !errors.Is(err, ErrLinkLost) || KindOf(err) != KindTransferFailed {
		t.Fatalf("Write() error = %v, want transfer failed / link lost", err)
	}
	if got := char.writeCount(); got != 1 {
		t.Errorf("writes = %d, want 1", got)
	}
}

func TestWriteAbortsWhenLinkReplaced(t *testing.T) {
	w, adapter, charA, _ := connectedWriter(t, PropWrite)
	charB := adapter.addPrinter("BB:BB:BB:BB:BB:BB", PropWrite)
	w.sleep = func(time.Duration) {
		if err := w.session.Connect(context.Background(), Device{ID: "BB:BB:BB:BB:BB:BB", Name: "B"}); err != nil {
			t.Errorf("Connect(B) error = %v", err)
		}
	}

	if err := w.Write(payload(100)); KindOf(err) != KindTransferFailed {
		t.Fatalf("Write() error = %v, want transfer failed", err)
	}
	if charA.writeCount() != 1 || charB.writeCount() != 0 {
		t.Errorf("writes A=%d B=%d, want 1 and 0", charA.writeCount(), charB.writeCount())
	}
	if st := w.session.Status(); !st.Connected || st.DeviceName != "B" {
		t.Errorf("Status() = %+v, want B to stay connected", st)
	}
}

func TestWriteEmptyPayload(t *testing.T) {
	w, _, char, _ := connectedWriter(t, PropWrite)
	if err := w.Write(nil); err != nil {
		t.Errorf("Write(nil) error = %v", err)
	}
	if char.writeCount() != 0 {
		t.Errorf("writes = %d, want 0", char.writeCount())
	}
}
