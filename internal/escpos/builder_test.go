package escpos

import (
	"bytes"
	"testing"
)

func TestBuilderCommands(t *testing.T) {
	tests := []struct {
		name  string
		build func(*Builder)
		want  []byte
	}{
		{"init", func(b *Builder) { b.Init() }, []byte{0x1B, 0x40}},
		{"align right", func(b *Builder) { b.Align(Right) }, []byte{0x1B, 0x61, 0x02}},
		{"bold on", func(b *Builder) { b.Bold(true) }, []byte{0x1B, 0x45, 0x01}},
		{"bold off", func(b *Builder) { b.Bold(false) }, []byte{0x1B, 0x45, 0x00}},
		{"underline", func(b *Builder) { b.Underline(true) }, []byte{0x1B, 0x2D, 0x01}},
		{"double height", func(b *Builder) { b.Size(DoubleHeight) }, []byte{0x1B, 0x21, 0x10}},
		{"double width", func(b *Builder) { b.Size(DoubleWidth) }, []byte{0x1B, 0x21, 0x20}},
		{"full cut", func(b *Builder) { b.Cut(true) }, []byte{0x1D, 0x56, 0x00}},
		{"beep", func(b *Builder) { b.Beep() }, []byte{0x1B, 0x42, 0x03, 0x02}},
		{"line", func(b *Builder) { b.Line("ab") }, []byte{'a', 'b', 0x0A}},
		{"feed clamps", func(b *Builder) { b.Feed(300) }, []byte{0x1B, 0x64, 0xFF}},
		{"utf8 selects nothing", func(b *Builder) { b.CodePage(UTF8) }, nil},
		{"cp437 selector", func(b *Builder) { b.CodePage(CP437) }, []byte{0x1B, 0x74, 0x00}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBuilder()
			tt.build(b)
			if got := b.Bytes(); !bytes.Equal(got, tt.want) {
				t.Errorf("got % X, want % X", got, tt.want)
			}
		})
	}
}

func TestBuilderZeroValueIsUTF8(t *testing.T) {
	var b Builder
	b.Text("é")
	if got := b.Bytes(); !bytes.Equal(got, []byte("é")) {
		t.Errorf("zero Builder Text = % X, want UTF-8", got)
	}
}

func TestCodePageUnsupportedRuneReplaced(t *testing.T) {
	b := NewBuilder().CodePage(CP437)
	before := b.Len()
	b.Text("a☃b")
	got := b.Bytes()[before:]
	if len(got) != 3 || got[0] != 'a' || got[2] != 'b' {
		t.Errorf("Text under CP437 = % X, want a?b with replacement", got)
	}
}

func TestParseCodePage(t *testing.T) {
	tests := []struct {
		in      string
		want    CodePage
		wantErr bool
	}{
		{"", UTF8, false},
		{"UTF8", UTF8, false},
		{" cp858 ", CP858, false},
		{"cp1252", CP1252, false},
		{"ebcdic", "", true},
	}
	for _, tt := range tests {
		got, err := ParseCodePage(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseCodePage(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseCodePage(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
