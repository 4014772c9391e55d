package escpos

// Builder accumulates an ESC/POS command stream. The zero value is ready to
// use and encodes text as UTF-8.
type Builder struct {
	buf      []byte
	codePage CodePage
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{codePage: UTF8}
}

// Raw appends pre-encoded bytes, such as a raster block, unchanged.
func (b *Builder) Raw(p []byte) *Builder {
	b.buf = append(b.buf, p...)
	return b
}

func (b *Builder) Init() *Builder { return b.Raw(Init) }

func (b *Builder) Align(a Alignment) *Builder { return b.Raw(a.command()) }

func (b *Builder) Size(s Size) *Builder { return b.Raw(s.command()) }

func (b *Builder) Bold(on bool) *Builder {
	if on {
		return b.Raw(BoldOn)
	}
	return b.Raw(BoldOff)
}

func (b *Builder) Underline(on bool) *Builder {
	if on {
		return b.Raw(UnderlineOn)
	}
	return b.Raw(UnderlineOff)
}

// CodePage switches the printer's character table and the encoding used by
// subsequent Text calls. Selecting UTF8 emits nothing.
func (b *Builder) CodePage(cp CodePage) *Builder {
	b.codePage = cp
	return b.Raw(cp.selectCommand())
}

// Text appends s encoded for the current code page.
func (b *Builder) Text(s string) *Builder {
	if b.codePage == "" || b.codePage == UTF8 {
		return b.Raw([]byte(s))
	}
	return b.Raw(b.codePage.encode(s))
}

// Line appends s followed by a line feed.
func (b *Builder) Line(s string) *Builder {
	return b.Text(s).Raw(LineFeed)
}

func (b *Builder) LineFeed() *Builder { return b.Raw(LineFeed) }

// Feed prints and feeds n lines. Values above 255 are clamped.
func (b *Builder) Feed(n int) *Builder {
	if n < 0 {
		n = 0
	}
	if n > 255 {
		n = 255
	}
	return b.Raw(Feed(byte(n)))
}

// Cut appends a full or partial cut.
func (b *Builder) Cut(full bool) *Builder {
	if full {
		return b.Raw(CutFull)
	}
	return b.Raw(CutPartial)
}

func (b *Builder) Beep() *Builder { return b.Raw(Beep) }

// Len reports the number of bytes accumulated so far.
func (b *Builder) Len() int { return len(b.buf) }

// Bytes returns a copy of the accumulated stream.
func (b *Builder) Bytes() []byte {
	out := make([]byte, len(b.buf))
	copy(out, b.buf)
	return out
}
