package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mcuadros/go-defaults"
	"gopkg.in/yaml.v3"

	"github.com/chaz8081/posprint/internal/escpos"
)

// Config holds all application configuration.
type Config struct {
	LogLevel  string        `yaml:"log_level" default:"info"`
	Transport string        `yaml:"transport" default:"auto"` // "auto", "desktop", "ble" or "web"
	BLE       BLEConfig     `yaml:"ble"`
	Desktop   DesktopConfig `yaml:"desktop"`
	Receipt   ReceiptConfig `yaml:"receipt"`
}

// BLEConfig holds Bluetooth printer settings.
type BLEConfig struct {
	ConnectTimeout time.Duration `yaml:"connect_timeout" default:"10s"`
	ScanTimeout    time.Duration `yaml:"scan_timeout" default:"8s"`
	ChunkDelay     time.Duration `yaml:"chunk_delay" default:"20ms"`

	// DeviceID and DeviceName remember the last printer connected.
	DeviceID   string `yaml:"device_id,omitempty"`
	DeviceName string `yaml:"device_name,omitempty"`

	ExtraServiceUUIDs []string `yaml:"extra_service_uuids,omitempty"`
	ExtraWriteUUIDs   []string `yaml:"extra_write_uuids,omitempty"`
}

// DesktopConfig selects the host bridge used on desktop terminals.
type DesktopConfig struct {
	Bridge    string          `yaml:"bridge"` // "", "serial" or "websocket"
	Serial    SerialConfig    `yaml:"serial"`
	WebSocket WebSocketConfig `yaml:"websocket"`
}

// SerialConfig holds serial pass-through settings.
type SerialConfig struct {
	Port string `yaml:"port"`
	Baud int    `yaml:"baud" default:"9600"`
}

// WebSocketConfig holds print-host settings.
type WebSocketConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout" default:"10s"`
}

// ReceiptConfig holds the receipt header and encoding.
type ReceiptConfig struct {
	StoreName string `yaml:"store_name"`
	StoreInfo string `yaml:"store_info"`
	CodePage  string `yaml:"code_page" default:"utf8"`
}

// DefaultConfigDir returns the default config directory path.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "posprint")
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// Default returns a Config with sensible default values.
func Default() *Config {
	cfg := &Config{}
	defaults.SetDefaults(cfg)
	return cfg
}

// Load reads and parses a YAML config file. Missing fields are filled
// with defaults. Tilde (~) in desktop.serial.port is expanded to the user's
// home directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.Desktop.Serial.Port = expandTilde(cfg.Desktop.Serial.Port)

	return cfg, nil
}

// Save writes the config to path, creating parent directories.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(path, append([]byte(header), data...), 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

const header = "# posprint configuration\n# See README for all keys.\n\n"

// WriteDefault writes the default config to DefaultConfigPath if no file
// exists there. It returns the path written, or "" when a file was already
// present.
func WriteDefault() (string, error) {
	path := DefaultConfigPath()
	if _, err := os.Stat(path); err == nil {
		return "", nil
	}
	if err := Default().Save(path); err != nil {
		return "", err
	}
	return path, nil
}

// Validate checks the config for invalid values.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn, or error, got %q", c.LogLevel)
	}

	switch c.Transport {
	case "auto", "desktop", "ble", "web":
	default:
		return fmt.Errorf("transport must be auto, desktop, ble, or web, got %q", c.Transport)
	}

	if c.BLE.ConnectTimeout <= 0 {
		return fmt.Errorf("ble.connect_timeout must be > 0")
	}
	if c.BLE.ScanTimeout <= 0 {
		return fmt.Errorf("ble.scan_timeout must be > 0")
	}
	if c.BLE.ChunkDelay < 0 {
		return fmt.Errorf("ble.chunk_delay must be >= 0")
	}

	switch c.Desktop.Bridge {
	case "":
	case "serial":
		if c.Desktop.Serial.Port == "" {
			return fmt.Errorf("desktop.serial.port must be set when desktop.bridge is serial")
		}
		if c.Desktop.Serial.Baud <= 0 {
			return fmt.Errorf("desktop.serial.baud must be > 0")
		}
	case "websocket":
		if !strings.HasPrefix(c.Desktop.WebSocket.URL, "ws://") && !strings.HasPrefix(c.Desktop.WebSocket.URL, "wss://") {
			return fmt.Errorf("desktop.websocket.url must be a ws:// or wss:// URL, got %q", c.Desktop.WebSocket.URL)
		}
		if c.Desktop.WebSocket.Timeout <= 0 {
			return fmt.Errorf("desktop.websocket.timeout must be > 0")
		}
	default:
		return fmt.Errorf("desktop.bridge must be \"serial\" or \"websocket\", got %q", c.Desktop.Bridge)
	}

	if _, err := escpos.ParseCodePage(c.Receipt.CodePage); err != nil {
		return fmt.Errorf("receipt.code_page: %w", err)
	}

	return nil
}

// expandTilde replaces a leading ~ with the user's home directory.
func expandTilde(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
