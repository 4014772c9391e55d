package protocol

import (
	"bytes"
	"testing"
)

func payload(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i * 7)
	}
	return b
}

func TestChunkBytes100Over20(t *testing.T) {
	chunks := ChunkBytes(payload(100), 20)
	if len(chunks) != 5 {
		t.Fatalf("got %d chunks, want 5", len(chunks))
	}
	for i, c := range chunks {
		if len(c) != 20 {
			t.Errorf("chunk[%d] len=%d, want 20", i, len(c))
		}
	}
}

func TestChunkBytesCompleteness(t *testing.T) {
	for _, n := range []int{1, 19, 20, 21, 99, 100, 101, 1000, 4097} {
		for _, size := range []int{20, 23, 182, 244, 512} {
			data := payload(n)
			chunks := ChunkBytes(data, size)

			if got := bytes.Join(chunks, nil); !bytes.Equal(got, data) {
				t.Errorf("n=%d size=%d: reassembled bytes differ", n, size)
			}
			for i, c := range chunks[:len(chunks)-1] {
				if len(c) != size {
					t.Errorf("n=%d size=%d: chunk[%d] len=%d, want %d", n, size, i, len(c), size)
				}
			}
			if last := chunks[len(chunks)-1]; len(last) == 0 || len(last) > size {
				t.Errorf("n=%d size=%d: last chunk len=%d", n, size, len(last))
			}
		}
	}
}

func TestChunkBytesFloor(t *testing.T) {
	for _, size := range []int{-1, 0, 1, 5, 19} {
		chunks := ChunkBytes(payload(45), size)
		if len(chunks) != 3 || len(chunks[0]) != 20 {
			t.Errorf("ChunkBytes(45, %d): got %d chunks, first len %d; want 3 chunks of 20", size, len(chunks), len(chunks[0]))
		}
	}
}

func TestChunkBytesEmpty(t *testing.T) {
	if chunks := ChunkBytes(nil, 20); chunks != nil {
		t.Errorf("ChunkBytes(nil) = %v, want nil", chunks)
	}
}

func TestChunkBytesDoesNotOverwriteNeighbours(t *testing.T) {
	data := payload(40)
	chunks := ChunkBytes(data, 20)
	_ = append(chunks[0], 0xFF)
	if data[20] != payload(40)[20] {
		t.Error("appending to a chunk overwrote the next chunk's bytes")
	}
}

func TestChunkSize(t *testing.T) {
	tests := []struct {
		mtu  int
		want int
	}{
		{0, 20},
		{-5, 20},
		{10, 20},  // floor
		{23, 20},  // BLE 4.0 default MTU
		{24, 21},
		{185, 182}, // iOS typical
		{247, 244},
		{515, 512},
		{517, 512}, // cap
		{9000, 512},
	}
	for _, tt := range tests {
		if got := ChunkSize(tt.mtu); got != tt.want {
			t.Errorf("ChunkSize(%d) = %d, want %d", tt.mtu, got, tt.want)
		}
	}
}
