// Package config loads daemon wiring from command-line flags and an optional
// YAML file. Explicitly set flags override values from the file.
package config

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/sweeney/occupancy-sensor/internal/gpio"
)

// Config is the daemon configuration.
type Config struct {
	NodeID      string `yaml:"node_id"`
	Broker      string `yaml:"broker"`
	TopicPrefix string `yaml:"topic_prefix"`
	// HTTPAddr is the status server address, empty to disable.
	HTTPAddr   string `yaml:"http_addr"`
	BufferSize int    `yaml:"buffer_size"`

	Log  LogConfig  `yaml:"log"`
	GPIO GPIOConfig `yaml:"gpio"`
	I2C  I2CConfig  `yaml:"i2c"`

	// AccelPositionInterval is how often accelerometer position is
	// published, 0 to disable.
	AccelPositionInterval time.Duration `yaml:"accel_position_interval"`

	// PrintState reads the door once, prints it and exits.
	PrintState bool `yaml:"-"`
}

// LogConfig selects the log level and output format.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// GPIOConfig holds BCM pin numbers. A negative pin disables that input.
type GPIOConfig struct {
	Chip   string `yaml:"chip"`
	Door   int    `yaml:"door"`
	PIR    int    `yaml:"pir"`
	Button int    `yaml:"button"`
	LED    int    `yaml:"led"`
}

// I2CConfig holds the sensor bus and device addresses.
type I2CConfig struct {
	Enabled bool `yaml:"enabled"`
	// Bus is the periph bus name, empty for the first available bus.
	Bus      string `yaml:"bus"`
	BME280   uint16 `yaml:"bme280"`
	OPT3001  uint16 `yaml:"opt3001"`
	LIS2DH12 uint16 `yaml:"lis2dh12"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Broker:     "tcp://192.168.1.200:1883",
		HTTPAddr:   ":80",
		BufferSize: 256,
		Log:        LogConfig{Level: "info", Format: "json"},
		GPIO: GPIOConfig{
			Chip:   gpio.DefaultChip,
			Door:   gpio.DefaultPinDoor,
			PIR:    gpio.DefaultPinPIR,
			Button: gpio.DefaultPinButton,
			LED:    gpio.DefaultPinLED,
		},
		I2C: I2CConfig{
			Enabled:  true,
			BME280:   0x76,
			OPT3001:  0x44,
			LIS2DH12: 0x19,
		},
	}
}

// Load reads configuration from a YAML file on top of Default.
// Environment variables in the file are expanded.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse builds the configuration from command-line arguments.
// When -config is given the file is loaded first and only flags that were
// set explicitly override it.
func Parse(args []string) (*Config, error) {
	def := Default()
	fs := flag.NewFlagSet("occupancy-sensor", flag.ContinueOnError)

	path := fs.String("config", "", "Path to YAML config file")
	nodeID := fs.String("node-id", "", "Node id (derived from the machine id when empty)")
	broker := fs.String("broker", def.Broker, "MQTT broker address")
	prefix := fs.String("topic-prefix", "", `Topic prefix (default "node/<node-id>")`)
	httpAddr := fs.String("http", def.HTTPAddr, "HTTP status address (empty to disable)")
	bufferSize := fs.Int("buffer-size", def.BufferSize, "Messages buffered while MQTT is disconnected")
	logLevel := fs.String("log-level", def.Log.Level, "Log level: debug, info, warn, error")
	logFormat := fs.String("log-format", def.Log.Format, "Log format: text, json")
	chip := fs.String("gpio-chip", def.GPIO.Chip, "GPIO chip name")
	pinDoor := fs.Int("pin-door", def.GPIO.Door, "BCM pin for the door contact (-1 to disable)")
	pinPIR := fs.Int("pin-pir", def.GPIO.PIR, "BCM pin for the PIR sensor (-1 to disable)")
	pinButton := fs.Int("pin-button", def.GPIO.Button, "BCM pin for the push button (-1 to disable)")
	pinLED := fs.Int("pin-led", def.GPIO.LED, "BCM pin for the indicator LED (-1 to disable)")
	i2c := fs.Bool("i2c", def.I2C.Enabled, "Enable I2C sensors")
	i2cBus := fs.String("i2c-bus", def.I2C.Bus, "I2C bus name (empty for the first bus)")
	accelPos := fs.Duration("accel-position-interval", def.AccelPositionInterval, "Accelerometer position publish interval (0 to disable)")
	printState := fs.Bool("print-state", false, "Print the door state and exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg := def
	if *path != "" {
		var err error
		if cfg, err = Load(*path); err != nil {
			return nil, err
		}
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "node-id":
			cfg.NodeID = *nodeID
		case "broker":
			cfg.Broker = *broker
		case "topic-prefix":
			cfg.TopicPrefix = *prefix
		case "http":
			cfg.HTTPAddr = *httpAddr
		case "buffer-size":
			cfg.BufferSize = *bufferSize
		case "log-level":
			cfg.Log.Level = *logLevel
		case "log-format":
			cfg.Log.Format = *logFormat
		case "gpio-chip":
			cfg.GPIO.Chip = *chip
		case "pin-door":
			cfg.GPIO.Door = *pinDoor
		case "pin-pir":
			cfg.GPIO.PIR = *pinPIR
		case "pin-button":
			cfg.GPIO.Button = *pinButton
		case "pin-led":
			cfg.GPIO.LED = *pinLED
		case "i2c":
			cfg.I2C.Enabled = *i2c
		case "i2c-bus":
			cfg.I2C.Bus = *i2cBus
		case "accel-position-interval":
			cfg.AccelPositionInterval = *accelPos
		}
	})
	cfg.PrintState = *printState

	cfg.fill()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// machineIDFiles are tried in order for a stable per-host identity.
var machineIDFiles = []string{"/etc/machine-id", "/var/lib/dbus/machine-id"}

// machineIdentity returns the host's machine id, or its hostname when no
// machine id file is readable.
func machineIdentity() string {
	for _, path := range machineIDFiles {
		if b, err := os.ReadFile(path); err == nil {
			if id := strings.TrimSpace(string(b)); id != "" {
				return id
			}
		}
	}
	if h, err := os.Hostname(); err == nil && h != "" {
		return h
	}
	return "localhost"
}

// nodeIDFor derives the node id for a host identity. The same identity
// always yields the same id, so topics survive restarts.
func nodeIDFor(identity string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("occupancy-sensor/"+identity)).String()
}

// fill derives the node id and topic prefix when they are not configured.
func (c *Config) fill() {
	if c.NodeID == "" {
		c.NodeID = nodeIDFor(machineIdentity())
	}
	if c.TopicPrefix == "" {
		c.TopicPrefix = "node/" + c.NodeID
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	var errs []error
	if c.Broker == "" {
		errs = append(errs, errors.New("broker is required"))
	}
	if c.GPIO.Door < 0 {
		errs = append(errs, errors.New("door pin is required"))
	}
	if c.BufferSize < 1 {
		errs = append(errs, fmt.Errorf("buffer_size must be positive, got %d", c.BufferSize))
	}
	if c.AccelPositionInterval < 0 {
		errs = append(errs, fmt.Errorf("accel_position_interval must not be negative, got %v", c.AccelPositionInterval))
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("invalid log format %q (allowed: text, json)", c.Log.Format))
	}
	return errors.Join(errs...)
}

// ClientID returns the MQTT client id for this node.
func (c *Config) ClientID() string {
	id := c.NodeID
	if len(id) > 8 {
		id = id[:8]
	}
	return "occupancy-sensor-" + id
}

// ParseLevel converts a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level %q (allowed: debug, info, warn, error)", s)
	}
}
