package ble

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies a session failure.
type Kind int

const (
	KindUnknown Kind = iota
	// KindUnavailable: no BLE stack, or the adapter is off. Not retried.
	KindUnavailable
	// KindPermissionDenied: the OS or user refused access.
	KindPermissionDenied
	// KindNoSelection: a scan finished without a chosen device.
	KindNoSelection
	// KindNegotiationFailed: connected, but nothing on the device is writable.
	KindNegotiationFailed
	// KindTransferFailed: a chunk write failed or the link dropped mid-transfer.
	KindTransferFailed
	// KindTimeout: the connect attempt ran past its deadline.
	KindTimeout
	// KindNotConnected: an operation needed a printer and none is connected.
	KindNotConnected
	// KindConnectFailed: the platform refused or aborted the connection.
	KindConnectFailed
)

var kindNames = map[Kind]string{
	KindUnknown:           "unknown",
	KindUnavailable:       "unavailable",
	KindPermissionDenied:  "permission denied",
	KindNoSelection:       "no selection",
	KindNegotiationFailed: "negotiation failed",
	KindTransferFailed:    "transfer failed",
	KindTimeout:           "timeout",
	KindNotConnected:      "not connected",
	KindConnectFailed:     "connect failed",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is the error type returned by Session and Writer.
type Error struct {
	Kind Kind
	Op   string // e.g. "connect", "write"
	Err  error
}

func (e *Error) Error() string {
	msg := "ble"
	if e.Op != "" {
		msg += ": " + e.Op
	}
	msg += ": " + e.Kind.String()
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the bare per-kind sentinels below, so callers can write
// errors.Is(err, ble.ErrTimeout).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Err == nil && t.Kind == e.Kind
}

var (
	ErrUnavailable       = &Error{Kind: KindUnavailable}
	ErrNoSelection       = &Error{Kind: KindNoSelection}
	ErrNegotiationFailed = &Error{Kind: KindNegotiationFailed}
	ErrTransferFailed    = &Error{Kind: KindTransferFailed}
	ErrTimeout           = &Error{Kind: KindTimeout}
	ErrNotConnected      = &Error{Kind: KindNotConnected}
	ErrConnectFailed     = &Error{Kind: KindConnectFailed}
)

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// classify wraps a platform error, promoting well-known causes over the
// fallback kind.
func classify(op string, err error, fallback Kind) *Error {
	kind := fallback
	switch {
	case errors.Is(err, ErrUnsupportedPlatform):
		kind = KindUnavailable
	case errors.Is(err, ErrPermissionDenied):
		kind = KindPermissionDenied
	case errors.Is(err, context.DeadlineExceeded):
		kind = KindTimeout
	}
	return &Error{Kind: kind, Op: op, Err: err}
}
