package main

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/chaz8081/posprint/internal/escpos"
	"github.com/chaz8081/posprint/internal/printclient"
)

var printCmd = &cobra.Command{
	Use:   "print",
	Short: "Print a receipt",
	Long: `Print receipt text from --text, --file, or standard input.

Logo and QR images are files of pre-packed 1-bit rows (most significant bit
leftmost); pass the row width in bytes with --logo-width and --qr-width.
Over Bluetooth the printer given by --device, or the remembered one, is
connected first.`,
	RunE: runPrint,
}

var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Print a short test receipt",
	RunE:  runTest,
}

var (
	printText      string
	printFile      string
	printLogo      string
	printLogoWidth int
	printQR        string
	printQRWidth   int
	printDevice    string
	testDevice     string
)

func init() {
	printCmd.Flags().StringVarP(&printText, "text", "t", "", "receipt text")
	printCmd.Flags().StringVarP(&printFile, "file", "f", "", "read receipt text from file (- for stdin)")
	printCmd.Flags().StringVar(&printLogo, "logo", "", "logo raster file")
	printCmd.Flags().IntVar(&printLogoWidth, "logo-width", 48, "logo row width in bytes")
	printCmd.Flags().StringVar(&printQR, "qr", "", "QR raster file")
	printCmd.Flags().IntVar(&printQRWidth, "qr-width", 24, "QR row width in bytes")
	printCmd.Flags().StringVarP(&printDevice, "device", "d", "", "BLE printer address (default: remembered printer)")
	printCmd.MarkFlagsMutuallyExclusive("text", "file")

	testCmd.Flags().StringVarP(&testDevice, "device", "d", "", "BLE printer address (default: remembered printer)")
}

func runPrint(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	text, err := receiptText(cmd.InOrStdin())
	if err != nil {
		return err
	}
	logo, err := loadRaster(printLogo, printLogoWidth)
	if err != nil {
		return fmt.Errorf("logo: %w", err)
	}
	qr, err := loadRaster(printQR, printQRWidth)
	if err != nil {
		return fmt.Errorf("qr: %w", err)
	}

	a := newApp(cfg)
	if res := a.ensureConnected(ctx, printDevice); !res.Success {
		return report(res)
	}
	client := a.client()
	if logo == nil && qr == nil {
		return report(client.PrintReceipt(ctx, text))
	}
	return report(client.PrintReceiptWithImages(ctx, text, logo, qr))
}

func runTest(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a := newApp(cfg)
	if res := a.ensureConnected(ctx, testDevice); !res.Success {
		return report(res)
	}
	return report(a.client().TestConnection(ctx))
}

// receiptText resolves the receipt body from the print flags.
func receiptText(stdin io.Reader) (string, error) {
	switch {
	case printText != "":
		return printText, nil
	case printFile == "-" || printFile == "":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), nil
	default:
		data, err := os.ReadFile(printFile)
		if err != nil {
			return "", fmt.Errorf("reading receipt: %w", err)
		}
		return string(data), nil
	}
}

// loadRaster frames a file of packed rows as a GS v 0 block. An empty path
// yields nil.
func loadRaster(path string, widthBytes int) ([]byte, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if widthBytes <= 0 {
		return nil, fmt.Errorf("row width must be > 0")
	}
	return escpos.RasterBlock(widthBytes, len(data)/widthBytes, data)
}

// report prints a successful result or turns a failed one into an error.
func report(res printclient.Result) error {
	if !res.Success {
		return fmt.Errorf("%s", res.Message)
	}
	if res.Message != "" {
		color.Green(res.Message)
	}
	return nil
}
