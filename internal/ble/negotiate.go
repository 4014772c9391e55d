package ble

// writeTarget is the characteristic chosen to receive print data.
type writeTarget struct {
	serviceUUID string
	char        Characteristic
}

// selectWriteTarget picks the characteristic print data goes to. Known
// printer characteristics win; otherwise the first writable characteristic in
// enumeration order is used. ok is false when nothing on the device accepts
// writes.
func selectWriteTarget(services []Service, known uuidSet) (target writeTarget, ok bool) {
	for _, svc := range services {
		for _, c := range svc.Characteristics {
			if c.Properties().Writable() && known.has(c.UUID()) {
				return writeTarget{serviceUUID: svc.UUID, char: c}, true
			}
		}
	}
	for _, svc := range services {
		for _, c := range svc.Characteristics {
			if c.Properties().Writable() {
				return writeTarget{serviceUUID: svc.UUID, char: c}, true
			}
		}
	}
	return writeTarget{}, false
}
