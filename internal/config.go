package internal

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"em511/internal/em511"

	dotenv "github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config describes the expected YAML structure for the meter tools.
type Config struct {
	LogLevel string        `yaml:"log_level"`
	Bus      BusConfig     `yaml:"bus"`
	Devices  []DeviceItem  `yaml:"devices"`
	Storage  StorageConfig `yaml:"storage"`
}

// BusConfig holds the RS485/RTU (or Modbus/TCP gateway) connection parameters.
type BusConfig struct {
	Type         string `yaml:"type"`    // rtu or tcp
	Address      string `yaml:"address"` // serial device or host:port
	BaudRate     int    `yaml:"baud_rate"`
	DataBits     int    `yaml:"data_bits"`
	Parity       string `yaml:"parity"` // N, E or O
	StopBits     int    `yaml:"stop_bits"`
	TimeoutMS    int    `yaml:"timeout_ms"`
	FunctionCode int    `yaml:"function_code"` // 3 holding, 4 input registers
}

type DeviceItem struct {
	Device Device `yaml:"device"`
}

type Device struct {
	Name   string `yaml:"name"`
	UnitID int    `yaml:"unit_id"`
	// Registers lists catalog names to poll. Empty means every measurement
	// and accumulator.
	Registers []string `yaml:"registers,omitempty"`
}

// PollNames returns the register names polled for this device.
func (d Device) PollNames() []string {
	if len(d.Registers) > 0 {
		return d.Registers
	}
	return em511.Names(em511.GroupMeasurement, em511.GroupAccumulator)
}

type StorageConfig struct {
	Local  Influxdb2Target `yaml:"local"`
	Remote Influxdb2Target `yaml:"remote"`
}

type Influxdb2Target struct {
	Influxdb2 Influxdb2Config `yaml:"influxdb2"`
}

type Influxdb2Config struct {
	Bucket      string `yaml:"bucket"`
	Measurement string `yaml:"measurement"`
}

// Enabled reports whether bucket and measurement are both set.
func (c Influxdb2Config) Enabled() bool {
	return c.Bucket != "" && c.Measurement != ""
}

// InfluxEnv holds the secrets of one InfluxDB destination, read from the
// environment.
type InfluxEnv struct {
	Host  string
	Token string
	Org   string
}

// LoadInfluxEnv reads INFLUX_HOST_<SUFFIX>, INFLUX_TOKEN_<SUFFIX> and
// INFLUX_ORG_<SUFFIX>.
func LoadInfluxEnv(suffix string) InfluxEnv {
	suffix = strings.ToUpper(suffix)
	return InfluxEnv{
		Host:  os.Getenv("INFLUX_HOST_" + suffix),
		Token: os.Getenv("INFLUX_TOKEN_" + suffix),
		Org:   os.Getenv("INFLUX_ORG_" + suffix),
	}
}

// LoadEnv loads a .env file into the process environment. Variables that
// are already set win.
func LoadEnv(path string) error {
	if path == "" {
		return nil
	}
	return dotenv.Load(path)
}

func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return ParseConfig(data)
}

// ParseConfig decodes YAML, applies defaults and validates the result.
func ParseConfig(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	b := &c.Bus
	if b.Type == "" {
		b.Type = "rtu"
	}
	b.Type = strings.ToLower(b.Type)
	if b.BaudRate == 0 {
		b.BaudRate = 9600
	}
	if b.DataBits == 0 {
		b.DataBits = 8
	}
	if b.Parity == "" {
		b.Parity = "N"
	}
	b.Parity = strings.ToUpper(b.Parity)
	if b.StopBits == 0 {
		b.StopBits = 1
	}
	if b.TimeoutMS == 0 {
		b.TimeoutMS = 1000
	}
	if b.FunctionCode == 0 {
		b.FunctionCode = 4
	}
}

// Validate checks bus settings and devices. Storage targets are optional.
func (c Config) Validate() error {
	var errs []error
	b := c.Bus
	if b.Address == "" {
		errs = append(errs, errors.New("bus.address is empty"))
	}
	switch b.Type {
	case "rtu", "tcp":
	default:
		errs = append(errs, fmt.Errorf("bus.type %q not supported (expected rtu or tcp)", b.Type))
	}
	switch b.Parity {
	case "N", "E", "O":
	default:
		errs = append(errs, fmt.Errorf("bus.parity %q not supported (expected N, E or O)", b.Parity))
	}
	if b.FunctionCode != 3 && b.FunctionCode != 4 {
		errs = append(errs, fmt.Errorf("bus.function_code %d not supported (expected 3 or 4)", b.FunctionCode))
	}

	seen := make(map[int]string)
	for i, item := range c.Devices {
		d := item.Device
		if d.Name == "" {
			errs = append(errs, fmt.Errorf("devices[%d]: name is empty", i))
		}
		if d.UnitID < int(em511.UnitMin) || d.UnitID > int(em511.UnitMax) {
			errs = append(errs, fmt.Errorf("devices[%d] %s: unit_id %d not in [1,247]", i, d.Name, d.UnitID))
		} else if other, dup := seen[d.UnitID]; dup {
			errs = append(errs, fmt.Errorf("devices[%d] %s: unit_id %d already used by %s", i, d.Name, d.UnitID, other))
		}
		seen[d.UnitID] = d.Name
		for _, name := range d.Registers {
			if !em511.IsKnown(name) {
				errs = append(errs, fmt.Errorf("devices[%d] %s: unknown register %q", i, d.Name, name))
			}
		}
	}
	return errors.Join(errs...)
}

// FindDevice returns the configured device called name.
func (c Config) FindDevice(name string) (Device, bool) {
	for _, item := range c.Devices {
		if item.Device.Name == name {
			return item.Device, true
		}
	}
	return Device{}, false
}
