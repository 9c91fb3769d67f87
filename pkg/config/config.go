package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/itohio/pedals/pkg/profile"
)

// Device backends.
const (
	DeviceSerial = "serial"
	DeviceMock   = "mock"
	DeviceIIO    = "iio"
)

// Config represents the application configuration.
type Config struct {
	Device   DeviceConfig    `yaml:"device"`
	Sampling SamplingConfig  `yaml:"sampling"`
	Channels []ChannelConfig `yaml:"channels"`
	HID      HIDConfig       `yaml:"hid"`
	Redis    RedisConfig     `yaml:"redis"`
	Store    StoreConfig     `yaml:"store"`
	Mock     MockConfig      `yaml:"mock"`
	Log      LogConfig       `yaml:"log"`
}

// DeviceConfig selects where raw readings come from.
type DeviceConfig struct {
	Kind      string `yaml:"kind"`
	Port      string `yaml:"port"`
	Baud      int    `yaml:"baud"`
	IIODevice string `yaml:"iio_device"` // sysfs directory of the IIO ADC
}

// SamplingConfig contains sampling loop parameters.
type SamplingConfig struct {
	Interval          time.Duration `yaml:"interval"`
	TelemetryInterval time.Duration `yaml:"telemetry_interval"`
	Oversample        int           `yaml:"oversample"`
	FullScale         int           `yaml:"full_scale"`
	ResyncFilter      bool          `yaml:"resync_filter"` // reset the smoother when a channel config changes
}

// ChannelConfig names a pedal and the ADC input it is wired to.
type ChannelConfig struct {
	Name string `yaml:"name"`
	Pin  int    `yaml:"pin"`
}

// HIDConfig contains virtual joystick parameters.
type HIDConfig struct {
	Enabled bool   `yaml:"enabled"`
	Name    string `yaml:"name"`
	AxisMin int    `yaml:"axis_min"`
	AxisMax int    `yaml:"axis_max"`
}

// RedisConfig contains the message bus connection.
type RedisConfig struct {
	Enabled           bool          `yaml:"enabled"`
	Host              string        `yaml:"host"`
	Port              int           `yaml:"port"`
	BroadcastInterval time.Duration `yaml:"broadcast_interval"`
}

// StoreConfig locates persisted profiles and the active configuration.
type StoreConfig struct {
	Dir    string `yaml:"dir"`
	Active string `yaml:"active"`
}

// MockConfig contains mock device configuration.
type MockConfig struct {
	Period time.Duration `yaml:"period"` // one full press and release
	Noise  int           `yaml:"noise"`  // peak noise in ADC counts
	Travel int           `yaml:"travel"` // peak reading at full press
}

// LogConfig contains logging parameters.
type LogConfig struct {
	Level int `yaml:"level"` // 0=NONE, 1=ERROR, 2=WARN, 3=INFO, 4=DEBUG
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	return &Config{
		Device: DeviceConfig{
			Kind: DeviceSerial,
			Port: "/dev/ttyACM0",
			Baud: 115200,
		},
		Sampling: SamplingConfig{
			Interval:          time.Millisecond,
			TelemetryInterval: 30 * time.Millisecond,
			Oversample:        16,
			FullScale:         4095,
		},
		Channels: []ChannelConfig{
			{Name: "gas", Pin: 0},
			{Name: "brake", Pin: 1},
			{Name: "clutch", Pin: 2},
		},
		HID: HIDConfig{
			Enabled: true,
			Name:    "Pedals",
			AxisMin: 0,
			AxisMax: 1023,
		},
		Redis: RedisConfig{
			Enabled:           true,
			Host:              "127.0.0.1",
			Port:              6379,
			BroadcastInterval: 50 * time.Millisecond,
		},
		Store: StoreConfig{
			Dir:    "profiles",
			Active: "pedals.yaml",
		},
		Mock: MockConfig{
			Period: 4 * time.Second,
			Noise:  8,
			Travel: 4095,
		},
		Log: LogConfig{
			Level: 3,
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate rejects configurations the service cannot run with.
func (c *Config) Validate() error {
	switch c.Device.Kind {
	case DeviceSerial, DeviceMock, DeviceIIO:
	default:
		return fmt.Errorf("unknown device kind %q", c.Device.Kind)
	}

	seen := make(map[string]bool, len(c.Channels))
	for i, ch := range c.Channels {
		if ch.Name == "" {
			return fmt.Errorf("channel %d has no name", i)
		}
		if ch.Name == profile.CustomsKey {
			return fmt.Errorf("channel name %q is reserved", ch.Name)
		}
		if seen[ch.Name] {
			return fmt.Errorf("duplicate channel %q", ch.Name)
		}
		if ch.Pin < 0 {
			return fmt.Errorf("channel %q has negative pin %d", ch.Name, ch.Pin)
		}
		seen[ch.Name] = true
	}

	if c.HID.AxisMax <= c.HID.AxisMin {
		return fmt.Errorf("hid axis range [%d, %d] is empty", c.HID.AxisMin, c.HID.AxisMax)
	}
	return nil
}

// ensureDefaults ensures that all required fields have default values if missing.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Device.Kind == "" {
		c.Device.Kind = def.Device.Kind
	}
	if c.Device.Port == "" {
		c.Device.Port = def.Device.Port
	}
	if c.Device.Baud == 0 {
		c.Device.Baud = def.Device.Baud
	}

	if c.Sampling.Interval == 0 {
		c.Sampling.Interval = def.Sampling.Interval
	}
	if c.Sampling.TelemetryInterval == 0 {
		c.Sampling.TelemetryInterval = def.Sampling.TelemetryInterval
	}
	if c.Sampling.Oversample <= 0 {
		c.Sampling.Oversample = def.Sampling.Oversample
	}
	if c.Sampling.FullScale <= 0 {
		c.Sampling.FullScale = def.Sampling.FullScale
	}

	if len(c.Channels) == 0 {
		c.Channels = def.Channels
	}

	if c.HID.Name == "" {
		c.HID.Name = def.HID.Name
	}
	if c.HID.AxisMax == 0 {
		c.HID.AxisMax = def.HID.AxisMax
	}

	if c.Redis.Host == "" {
		c.Redis.Host = def.Redis.Host
	}
	if c.Redis.Port == 0 {
		c.Redis.Port = def.Redis.Port
	}
	if c.Redis.BroadcastInterval == 0 {
		c.Redis.BroadcastInterval = def.Redis.BroadcastInterval
	}

	if c.Store.Dir == "" {
		c.Store.Dir = def.Store.Dir
	}
	if c.Store.Active == "" {
		c.Store.Active = def.Store.Active
	}

	if c.Mock.Period == 0 {
		c.Mock.Period = def.Mock.Period
	}
	if c.Mock.Travel == 0 {
		c.Mock.Travel = def.Mock.Travel
	}
}
