package ble

import (
	"errors"
	"fmt"
	"strings"

	goble "github.com/go-ble/ble"
)

// mapGoBLEError tags go-ble write failures with the package sentinels,
// keeping the original error in the chain. linkClosed reports whether the
// client's Disconnected channel had already closed.
func mapGoBLEError(err error, linkClosed bool) error {
	if err == nil {
		return nil
	}
	if linkClosed {
		return fmt.Errorf("%w: %w", ErrLinkLost, err)
	}
	if errors.Is(err, goble.ErrNotImplemented) {
		return fmt.Errorf("%w: %w", ErrWriteModeUnsupported, err)
	}
	var att goble.ATTError
	if errors.As(err, &att) {
		switch att {
		case goble.ErrWriteNotPerm, goble.ErrReqNotSupp:
			return fmt.Errorf("%w: %w", ErrWriteModeUnsupported, err)
		case goble.ErrAuthentication, goble.ErrAuthorization,
			goble.ErrInsuffEnc, goble.ErrInsuffEncrKeySize:
			return fmt.Errorf("%w: %w", ErrPermissionDenied, err)
		}
		return err
	}
	// darwin.Client reports a drop during an acknowledged write as a bare
	// "disconnected" error.
	if strings.EqualFold(err.Error(), "disconnected") {
		return fmt.Errorf("%w: %w", ErrLinkLost, err)
	}
	return err
}
