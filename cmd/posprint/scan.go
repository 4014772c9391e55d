package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/chaz8081/posprint/internal/ble"
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for BLE printers and connect to one",
	Long: `Scan for nearby Bluetooth LE devices, pick one, and connect to it.

Devices advertising a known printer service are listed first. The chosen
printer is remembered in the config file so later print and test commands
can reconnect without scanning.`,
	RunE: runScan,
}

var scanFirst bool

func init() {
	scanCmd.Flags().BoolVar(&scanFirst, "first", false, "pick the first known printer without prompting")
}

func runScan(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := newApp(cfg)
	client := a.ble()
	if !client.IsAvailable(ctx) {
		return fmt.Errorf("bluetooth is not available on this device")
	}

	choose := promptChooser(os.Stdin, os.Stdout)
	if scanFirst {
		choose = ble.FirstKnown
	}

	fmt.Printf("Scanning for %s...\n", cfg.BLE.ScanTimeout)
	dev, ok, err := client.Session().ScanForDevice(ctx, choose)
	if err != nil {
		if ctx.Err() != nil {
			return context.Canceled
		}
		return fmt.Errorf("scan failed: %w", err)
	}
	if !ok {
		fmt.Println("No printer selected.")
		return nil
	}

	res := client.ConnectDevice(ctx, dev)
	if !res.Success {
		return fmt.Errorf("%s", res.Message)
	}
	color.Green(res.Message)

	connected, _ := client.Session().Connected()
	if err := a.remember(connected); err != nil {
		return fmt.Errorf("saving printer: %w", err)
	}
	fmt.Printf("Saved %s as the default printer.\n", deviceLabel(connected.Name, connected.ID))
	return nil
}

// promptChooser lists devices on out and reads a selection from in. An empty
// line or EOF chooses nothing.
func promptChooser(in io.Reader, out io.Writer) ble.Chooser {
	return func(devices []ble.Device) (ble.Device, bool) {
		if len(devices) == 0 {
			fmt.Fprintln(out, "No devices found.")
			return ble.Device{}, false
		}
		printDevices(out, devices)

		reader := bufio.NewReader(in)
		for {
			fmt.Fprintf(out, "Select a printer [1-%d, enter to cancel]: ", len(devices))
			line, err := reader.ReadString('\n')
			line = strings.TrimSpace(line)
			if line == "" {
				return ble.Device{}, false
			}
			n, convErr := strconv.Atoi(line)
			if convErr == nil && n >= 1 && n <= len(devices) {
				return devices[n-1], true
			}
			fmt.Fprintf(out, "Invalid selection %q\n", line)
			if err != nil {
				return ble.Device{}, false
			}
		}
	}
}

// printDevices writes a numbered device table, marking known printers.
func printDevices(out io.Writer, devices []ble.Device) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tNAME\tADDRESS\tRSSI\t")
	for i, d := range devices {
		name := d.Name
		if name == "" {
			name = "(unknown)"
		}
		if d.Known {
			name = color.GreenString(name + " *")
		}
		rssi := ""
		if d.RSSI != 0 {
			rssi = strconv.Itoa(d.RSSI)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t\n", i+1, name, d.ID, rssi)
	}
	w.Flush()
}
