package escpos

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// CodePage is the character table the printer uses to render text bytes.
type CodePage string

const (
	UTF8   CodePage = "utf8"
	CP437  CodePage = "cp437"
	CP858  CodePage = "cp858"
	CP1252 CodePage = "cp1252"
)

// codePages maps each table to its ESC t selector and charmap. UTF8 has no
// selector: text goes out as-is and the printer firmware is trusted to cope.
var codePages = map[CodePage]struct {
	selector byte
	charmap  *charmap.Charmap
}{
	CP437:  {selector: 0, charmap: charmap.CodePage437},
	CP858:  {selector: 19, charmap: charmap.CodePage858},
	CP1252: {selector: 16, charmap: charmap.Windows1252},
}

// ParseCodePage validates a config value. The empty string means UTF8.
func ParseCodePage(s string) (CodePage, error) {
	cp := CodePage(strings.ToLower(strings.TrimSpace(s)))
	if cp == "" || cp == UTF8 {
		return UTF8, nil
	}
	if _, ok := codePages[cp]; !ok {
		return "", fmt.Errorf("escpos: unknown code page %q", s)
	}
	return cp, nil
}

// selectCommand returns ESC t n for cp, or nil for UTF8 and unknown tables.
func (cp CodePage) selectCommand() []byte {
	entry, ok := codePages[cp]
	if !ok {
		return nil
	}
	return []byte{0x1B, 0x74, entry.selector}
}

// encode converts text to the byte form expected under cp. Runes the table
// cannot represent are replaced rather than failing the whole receipt.
func (cp CodePage) encode(text string) []byte {
	entry, ok := codePages[cp]
	if !ok {
		return []byte(text)
	}
	enc := encoding.ReplaceUnsupported(entry.charmap.NewEncoder())
	out, err := enc.Bytes([]byte(text))
	if err != nil {
		return []byte(text)
	}
	return out
}
