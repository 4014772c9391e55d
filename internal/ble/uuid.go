package ble

import "strings"

// bluetoothBaseSuffix completes 16- and 32-bit SIG UUIDs.
const bluetoothBaseSuffix = "-0000-1000-8000-00805f9b34fb"

// PrinterServiceUUIDs are services commonly exposed by BLE receipt printers.
// Scanning treats them as a ranking hint, never as a filter.
var PrinterServiceUUIDs = []string{
	"000018f0-0000-1000-8000-00805f9b34fb",
	"0000ff00-0000-1000-8000-00805f9b34fb",
	"0000ffe0-0000-1000-8000-00805f9b34fb",
	"0000fee7-0000-1000-8000-00805f9b34fb",
	"0000ae30-0000-1000-8000-00805f9b34fb",
	"6e400001-b5a3-f393-e0a9-e50e24dcca9e", // Nordic UART
	"49535343-fe7d-4ae5-8fa9-9fafd205e455", // ISSC transparent UART
	"e7810a71-73ae-499d-8c15-faa9aef0c3f2",
}

// PrinterWriteUUIDs are characteristics known to accept ESC/POS data. They
// take priority over any other writable characteristic on the device.
var PrinterWriteUUIDs = []string{
	"00002af1-0000-1000-8000-00805f9b34fb",
	"0000ff02-0000-1000-8000-00805f9b34fb",
	"0000ffe1-0000-1000-8000-00805f9b34fb",
	"0000ae01-0000-1000-8000-00805f9b34fb",
	"6e400002-b5a3-f393-e0a9-e50e24dcca9e", // Nordic UART RX
	"49535343-8841-43f4-a8d4-ecbe34729bb3", // ISSC RX
	"bef8d6c9-9c21-4c9e-b632-bd58c1009f9f",
}

// NormalizeUUID returns the lowercase dashed 128-bit form of uuid. It
// accepts 16- and 32-bit short forms and undashed 128-bit hex, which is how
// go-ble prints UUIDs. Unrecognised input is returned lowercased and trimmed.
func NormalizeUUID(uuid string) string {
	u := strings.ToLower(strings.TrimSpace(uuid))
	u = strings.TrimPrefix(u, "0x")
	hex := strings.ReplaceAll(u, "-", "")
	if !isHex(hex) {
		return u
	}
	switch len(hex) {
	case 4:
		return "0000" + hex + bluetoothBaseSuffix
	case 8:
		return hex + bluetoothBaseSuffix
	case 32:
		return hex[0:8] + "-" + hex[8:12] + "-" + hex[12:16] + "-" + hex[16:20] + "-" + hex[20:32]
	default:
		return u
	}
}

func isHex(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return false
		}
	}
	return true
}

// uuidSet matches by normalized equality. Substring or prefix matching is
// deliberately not supported.
type uuidSet map[string]struct{}

func newUUIDSet(lists ...[]string) uuidSet {
	set := make(uuidSet)
	for _, list := range lists {
		for _, u := range list {
			if n := NormalizeUUID(u); n != "" {
				set[n] = struct{}{}
			}
		}
	}
	return set
}

func (s uuidSet) has(uuid string) bool {
	_, ok := s[NormalizeUUID(uuid)]
	return ok
}

func (s uuidSet) any(uuids []string) bool {
	for _, u := range uuids {
		if s.has(u) {
			return true
		}
	}
	return false
}
