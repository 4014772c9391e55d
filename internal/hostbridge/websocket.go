package hostbridge

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
)

type hostRequest struct {
	Op   string `json:"op"` // "print" or "test"
	Text string `json:"text,omitempty"`
	Logo []byte `json:"logo,omitempty"`
	QR   []byte `json:"qr,omitempty"`
}

type hostResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// WebSocket forwards jobs to a local print host. Each call is one
// request/response exchange on a fresh connection; the host owns layout.
type WebSocket struct {
	url     string
	timeout time.Duration
	dialer  *websocket.Dialer
}

// NewWebSocket creates a bridge to the print host at url.
func NewWebSocket(url string, timeout time.Duration) *WebSocket {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebSocket{
		url:     url,
		timeout: timeout,
		dialer:  &websocket.Dialer{HandshakeTimeout: timeout},
	}
}

// Name describes the bridge for status output.
func (w *WebSocket) Name() string { return "print host " + w.url }

// Available reports whether the print host accepts connections.
func (w *WebSocket) Available(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()
	conn, _, err := w.dialer.DialContext(ctx, w.url, nil)
	if err != nil {
		slog.Debug("[HOST] print host unreachable", "url", w.url, "error", err)
		return false
	}
	w.close(conn)
	return true
}

// Print sends job to the host.
func (w *WebSocket) Print(ctx context.Context, job Job) error {
	return w.roundTrip(ctx, hostRequest{Op: "print", Text: job.Text, Logo: job.Logo, QR: job.QR})
}

// TestPrint asks the host to print its test page.
func (w *WebSocket) TestPrint(ctx context.Context) error {
	return w.roundTrip(ctx, hostRequest{Op: "test", Text: testReceiptText})
}

func (w *WebSocket) roundTrip(ctx context.Context, req hostRequest) error {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	conn, _, err := w.dialer.DialContext(ctx, w.url, nil)
	if err != nil {
		return fmt.Errorf("hostbridge: dial %s: %w", w.url, err)
	}
	defer w.close(conn)

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetWriteDeadline(deadline)
		_ = conn.SetReadDeadline(deadline)
	}

	if err := conn.WriteJSON(req); err != nil {
		return fmt.Errorf("hostbridge: send %s: %w", req.Op, err)
	}

	var resp hostResponse
	if err := conn.ReadJSON(&resp); err != nil {
		return fmt.Errorf("hostbridge: read %s response: %w", req.Op, err)
	}
	if !resp.OK {
		if resp.Error == "" {
			return fmt.Errorf("%w (%s)", ErrRejected, req.Op)
		}
		return fmt.Errorf("%w (%s): %s", ErrRejected, req.Op, resp.Error)
	}

	slog.Info("[HOST] print host accepted job", "op", req.Op)
	return nil
}

// close sends a close frame before dropping the connection.
func (w *WebSocket) close(conn *websocket.Conn) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	_ = conn.Close()
}
