package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the selected transport and printer state",
	RunE:  runStatus,
}

var pairedCmd = &cobra.Command{
	Use:   "paired",
	Short: "List bonded Bluetooth devices",
	Long: `List Bluetooth devices already bonded with this host. Known printers
are listed first and marked with *. Listing never fails; an unavailable
adapter yields an empty list.`,
	RunE: runPaired,
}

var statusConnect bool

func init() {
	statusCmd.Flags().BoolVar(&statusConnect, "connect", false, "connect to the remembered printer before reporting")
}

func runStatus(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a := newApp(cfg)
	client := a.client()

	printBanner(cfg, client.Capability().String())

	if client.IsAvailable(ctx) {
		fmt.Printf("  Available: %s\n", color.GreenString("yes"))
	} else {
		fmt.Printf("  Available: %s\n", color.RedString("no"))
	}

	bc, err := a.bleClientFor("status")
	if err != nil {
		return nil
	}
	if statusConnect {
		if res := a.ensureConnected(ctx, ""); !res.Success {
			fmt.Printf("  Connect:   %s\n", color.YellowString(res.Message))
		}
	}
	st := bc.Session().Status()
	if st.Connected {
		fmt.Printf("  Link:      %s to %s\n", color.GreenString("connected"), st.DeviceName)
	} else {
		fmt.Printf("  Link:      %s\n", color.YellowString("not connected"))
	}
	return nil
}

func runPaired(cmd *cobra.Command, _ []string) error {
	devices := newApp(cfg).ble().PairedDevices(cmd.Context())
	if len(devices) == 0 {
		fmt.Println("No bonded devices.")
		return nil
	}
	printDevices(os.Stdout, devices)
	return nil
}
