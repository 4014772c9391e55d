// Package hostbridge implements the desktop print paths: a serial
// pass-through to a locally attached printer and a websocket client for a
// local print-host process.
package hostbridge

import (
	"errors"

	"github.com/chaz8081/posprint/internal/escpos"
)

// ErrRejected is returned when the print host answers but refuses the job.
var ErrRejected = errors.New("hostbridge: print host rejected the job")

// Job is one receipt to print. Logo and QR are pre-encoded raster blocks.
type Job struct {
	Text string
	Logo []byte
	QR   []byte
}

// Format controls how bridges that encode locally lay out a Job.
type Format struct {
	StoreName string
	StoreInfo string
	CodePage  escpos.CodePage
}

func (f Format) encode(job Job) []byte {
	return escpos.Receipt{
		StoreName: f.StoreName,
		StoreInfo: f.StoreInfo,
		Content:   job.Text,
		Logo:      job.Logo,
		QR:        job.QR,
		CodePage:  f.CodePage,
	}.Bytes()
}

// testReceiptText is printed by TestPrint on every bridge.
const testReceiptText = "Printer test OK\n"
