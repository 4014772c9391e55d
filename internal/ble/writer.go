package ble

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/chaz8081/posprint/internal/ble/protocol"
)

// Writer streams a byte payload to the session's connected printer.
type Writer struct {
	session *Session
	delay   time.Duration
	sleep   func(time.Duration) // test hook
}

// NewWriter creates a writer bound to s. The inter-chunk pause comes from
// the session's ChunkDelay.
func NewWriter(s *Session) *Writer {
	return &Writer{
		session: s,
		delay:   s.opts.ChunkDelay,
		sleep:   time.Sleep,
	}
}

// Write sends data in MTU-sized chunks, strictly one after another. It fails
// fast with KindNotConnected when no printer is attached. When any chunk
// fails the connection is torn down, so a retry must reconnect first.
func (w *Writer) Write(data []byte) error {
	l := w.session.current()
	if l == nil {
		return &Error{Kind: KindNotConnected, Op: "write"}
	}
	if len(data) == 0 {
		return nil
	}

	size := protocol.DefaultUnit
	if mtu, err := l.conn.MTU(); err != nil {
		slog.Debug("[BLE] MTU unavailable, using default chunk size", "error", err)
	} else {
		size = protocol.ChunkSize(mtu)
	}

	chunks := protocol.ChunkBytes(data, size)
	noResponse := l.char.Properties()&PropWriteNoResponse != 0

	slog.Debug("[BLE] writing payload",
		"bytes", len(data),
		"chunks", len(chunks),
		"chunk_size", size,
		"without_response", noResponse)

	for i, chunk := range chunks {
		if w.session.current() != l || l.lost.Load() {
			return &Error{
				Kind: KindTransferFailed,
				Op:   "write",
				Err:  fmt.Errorf("chunk %d/%d: %w", i+1, len(chunks), ErrLinkLost),
			}
		}

		var err error
		noResponse, err = writeChunk(l.char, chunk, noResponse)
		if err != nil {
			w.session.drop(l, "write failed", true)
			return &Error{
				Kind: KindTransferFailed,
				Op:   "write",
				Err:  fmt.Errorf("chunk %d/%d: %w", i+1, len(chunks), err),
			}
		}

		if i < len(chunks)-1 && w.delay > 0 {
			w.sleep(w.delay)
		}
	}

	slog.Info("[BLE] payload sent", "bytes", len(data), "chunks", len(chunks))
	return nil
}

// writeChunk sends one chunk, falling back from write-without-response to
// acknowledged writes if the platform rejects the former. It returns the
// mode to use for the following chunks.
func writeChunk(c Characteristic, chunk []byte, noResponse bool) (bool, error) {
	if noResponse {
		err := c.WriteWithoutResponse(chunk)
		if err == nil {
			return true, nil
		}
		if !errors.Is(err, ErrWriteModeUnsupported) || c.Properties()&PropWrite == 0 {
			return true, err
		}
		slog.Debug("[BLE] write without response rejected, falling back", "error", err)
	}
	return false, c.Write(chunk)
}
