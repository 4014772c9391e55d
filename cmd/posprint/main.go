package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/chaz8081/posprint/internal/config"
)

var (
	configPath string
	logLevel   string
	transport  string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "posprint",
	Short: "Print receipts to ESC/POS thermal printers",
	Long: `Print receipts to ESC/POS thermal printers over Bluetooth LE or a
desktop print host.

The transport is detected once per run: a configured desktop bridge
(serial port or websocket print host) wins, then Bluetooth LE, then
nothing. Override it with --transport.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		fmt.Fprintf(os.Stderr, "%s %v\n", color.RedString("ERROR:"), err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.SilenceErrors = true

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(pairedCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(printCmd)
	rootCmd.AddCommand(testCmd)
	rootCmd.AddCommand(initCmd)

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (default: ~/.config/posprint/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&transport, "transport", "", "transport override (auto, desktop, ble, web)")
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file",
	RunE: func(_ *cobra.Command, _ []string) error {
		path, err := config.WriteDefault()
		if err != nil {
			return err
		}
		if path == "" {
			fmt.Printf("Config already exists at %s\n", config.DefaultConfigPath())
			return nil
		}
		color.Green("Wrote %s", path)
		return nil
	},
}

// cfg is the loaded configuration, set by setup before any subcommand runs.
var cfg *config.Config

func setup(cmd *cobra.Command, _ []string) error {
	loaded, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if logLevel != "" {
		loaded.LogLevel = logLevel
	}
	if transport != "" {
		loaded.Transport = transport
	}
	if err := loaded.Validate(); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}
	cfg = loaded

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(cfg.LogLevel),
	})))
	return nil
}

// savePath is where remembered settings are written back.
func savePath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultConfigPath()
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}

	// Try default config path
	defaultPath := config.DefaultConfigPath()
	if _, err := os.Stat(defaultPath); err == nil {
		c, err := config.Load(defaultPath)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", defaultPath, err)
		}
		slog.Debug("Config loaded", "path", defaultPath)
		return c, nil
	}

	// No config file, use defaults
	slog.Debug("No config file found, using defaults")
	return config.Default(), nil
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// printBanner displays the active configuration summary.
func printBanner(c *config.Config, capability string) {
	bold := color.New(color.Bold).SprintFunc()
	fmt.Println(bold("=== posprint ==="))
	fmt.Printf("  Transport: %s (configured: %s)\n", capability, c.Transport)
	switch c.Desktop.Bridge {
	case "serial":
		fmt.Printf("  Bridge:    serial %s @ %d baud\n", c.Desktop.Serial.Port, c.Desktop.Serial.Baud)
	case "websocket":
		fmt.Printf("  Bridge:    %s\n", c.Desktop.WebSocket.URL)
	default:
		fmt.Println("  Bridge:    none")
	}
	if c.BLE.DeviceID != "" {
		fmt.Printf("  Printer:   %s\n", deviceLabel(c.BLE.DeviceName, c.BLE.DeviceID))
	}
	if c.Receipt.StoreName != "" {
		fmt.Printf("  Store:     %s\n", c.Receipt.StoreName)
	}
	fmt.Printf("  Encoding:  %s\n", strings.ToUpper(c.Receipt.CodePage))
	fmt.Println(bold("================="))
}

func deviceLabel(name, id string) string {
	if name == "" {
		return id
	}
	return fmt.Sprintf("%s (%s)", name, id)
}
