package escpos

import "fmt"

// BuildReceipt encodes plain text with the baseline layout every printer
// accepts: reset, normal size, left aligned, four lines of feed, partial cut.
func BuildReceipt(text string) []byte {
	return plainLayout(NewBuilder().Init(), text)
}

func plainLayout(b *Builder, text string) []byte {
	return b.Size(Normal).
		Align(Left).
		Text(text).
		Feed(4).
		Cut(false).
		Bytes()
}

// BuildFormattedReceipt encodes a centered double-size store header followed
// by left-aligned content.
func BuildFormattedReceipt(storeName, storeInfo, content string) []byte {
	b := NewBuilder().Init()
	writeHeader(b, storeName, storeInfo)
	return b.Align(Left).
		Text(content).
		Feed(3).
		Cut(false).
		Bytes()
}

func writeHeader(b *Builder, storeName, storeInfo string) {
	b.Align(Center).
		Size(Double).
		Text(storeName).
		LineFeed().
		Size(Normal).
		Text(storeInfo).
		Feed(2)
}

// Receipt is structured receipt content. Logo and QR are opaque raster
// blocks produced elsewhere (see RasterBlock); they are placed, centered,
// between the header and the content.
type Receipt struct {
	StoreName string
	StoreInfo string
	Content   string
	Logo      []byte
	QR        []byte
	CodePage  CodePage
}

func (r Receipt) hasHeader() bool {
	return r.StoreName != "" || r.StoreInfo != ""
}

func (r Receipt) hasImages() bool {
	return len(r.Logo) > 0 || len(r.QR) > 0
}

// Bytes encodes the receipt. Content with no header and no images uses the
// BuildReceipt layout, preceded by the code page selector when one is set.
func (r Receipt) Bytes() []byte {
	b := NewBuilder().Init()
	if r.CodePage != "" && r.CodePage != UTF8 {
		b.CodePage(r.CodePage)
	}
	if !r.hasHeader() && !r.hasImages() {
		return plainLayout(b, r.Content)
	}

	if r.hasHeader() {
		writeHeader(b, r.StoreName, r.StoreInfo)
	} else {
		b.Align(Center)
	}
	if len(r.Logo) > 0 {
		b.Raw(r.Logo).LineFeed()
	}
	if len(r.QR) > 0 {
		b.Raw(r.QR).LineFeed()
	}
	return b.Align(Left).
		Text(r.Content).
		Feed(3).
		Cut(false).
		Bytes()
}

// RasterBlock frames pre-packed 1-bit image rows with GS v 0. Each row is
// widthBytes long, most significant bit leftmost; data beyond
// widthBytes*height is ignored.
func RasterBlock(widthBytes, height int, data []byte) ([]byte, error) {
	if widthBytes <= 0 || widthBytes > 0xFFFF {
		return nil, fmt.Errorf("escpos: raster width %d bytes out of range", widthBytes)
	}
	if height <= 0 || height > 0xFFFF {
		return nil, fmt.Errorf("escpos: raster height %d out of range", height)
	}
	need := widthBytes * height
	if len(data) < need {
		return nil, fmt.Errorf("escpos: raster data too short: got %d bytes, need %d", len(data), need)
	}

	buf := make([]byte, 0, 8+need)
	buf = append(buf, 0x1D, 0x76, 0x30, 0x00)
	buf = append(buf,
		byte(widthBytes&0xFF), byte(widthBytes>>8),
		byte(height&0xFF), byte(height>>8),
	)
	buf = append(buf, data[:need]...)
	return buf, nil
}
