// Package protocol sizes and splits payloads for BLE characteristic writes.
package protocol

const (
	// DefaultUnit is the payload size used when the MTU is unknown. It is
	// also the floor for every chunk size.
	DefaultUnit = 20
	// ATTOverhead is the ATT write header (opcode + handle) carried in
	// every packet.
	ATTOverhead = 3
	// MaxUnit caps a single write; ATT attribute values are at most 512 bytes.
	MaxUnit = 512
)

// ChunkSize returns the payload size for a negotiated ATT MTU. A
// non-positive mtu means negotiation failed or is unsupported.
func ChunkSize(mtu int) int {
	if mtu <= 0 {
		return DefaultUnit
	}
	size := mtu - ATTOverhead
	if size > MaxUnit {
		size = MaxUnit
	}
	if size < DefaultUnit {
		size = DefaultUnit
	}
	return size
}

// ChunkBytes splits data into consecutive chunks of size bytes; only the
// last may be shorter. Sizes below DefaultUnit are raised to it so the
// transfer always makes progress. The chunks alias data. Returns nil for
// empty data.
func ChunkBytes(data []byte, size int) [][]byte {
	if len(data) == 0 {
		return nil
	}
	if size < DefaultUnit {
		size = DefaultUnit
	}

	chunks := make([][]byte, 0, (len(data)+size-1)/size)
	for start := 0; start < len(data); start += size {
		end := start + size
		if end > len(data) {
			end = len(data)
		}
		chunks = append(chunks, data[start:end:end])
	}
	return chunks
}
