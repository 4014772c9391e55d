// Package escpos encodes receipt content into the ESC/POS command stream
// understood by thermal receipt printers. Everything here is pure: the same
// input always produces byte-identical output.
package escpos

// Printer control sequences. Callers must treat these as read-only; the
// builders copy them into fresh buffers.
var (
	Init = []byte{0x1B, 0x40} // ESC @

	AlignLeft   = []byte{0x1B, 0x61, 0x00} // ESC a 0
	AlignCenter = []byte{0x1B, 0x61, 0x01} // ESC a 1
	AlignRight  = []byte{0x1B, 0x61, 0x02} // ESC a 2

	BoldOn  = []byte{0x1B, 0x45, 0x01} // ESC E 1
	BoldOff = []byte{0x1B, 0x45, 0x00} // ESC E 0

	UnderlineOn  = []byte{0x1B, 0x2D, 0x01} // ESC - 1
	UnderlineOff = []byte{0x1B, 0x2D, 0x00} // ESC - 0

	// ESC ! n print mode selection
	SizeNormal       = []byte{0x1B, 0x21, 0x00}
	SizeDoubleHeight = []byte{0x1B, 0x21, 0x10}
	SizeDoubleWidth  = []byte{0x1B, 0x21, 0x20}
	SizeDouble       = []byte{0x1B, 0x21, 0x30}

	LineFeed = []byte{0x0A}

	CutPartial = []byte{0x1D, 0x56, 0x01} // GS V 1
	CutFull    = []byte{0x1D, 0x56, 0x00} // GS V 0

	Beep = []byte{0x1B, 0x42, 0x03, 0x02} // ESC B n t: 3 beeps, 200ms each
)

// Feed returns ESC d n, which prints the buffer and feeds n lines.
func Feed(n byte) []byte {
	return []byte{0x1B, 0x64, n}
}

// Alignment selects the justification used for subsequent lines.
type Alignment int

const (
	Left Alignment = iota
	Center
	Right
)

func (a Alignment) command() []byte {
	switch a {
	case Center:
		return AlignCenter
	case Right:
		return AlignRight
	default:
		return AlignLeft
	}
}

// Size selects the character magnification for subsequent text.
type Size int

const (
	Normal Size = iota
	DoubleHeight
	DoubleWidth
	Double
)

func (s Size) command() []byte {
	switch s {
	case DoubleHeight:
		return SizeDoubleHeight
	case DoubleWidth:
		return SizeDoubleWidth
	case Double:
		return SizeDouble
	default:
		return SizeNormal
	}
}
