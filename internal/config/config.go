package config

import (
	"bytes"
	"encoding"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that reads and writes as "50ms", "2h", ... in
// both YAML and TOML.
type Duration time.Duration

var (
	_ encoding.TextUnmarshaler = (*Duration)(nil)
	_ encoding.TextMarshaler   = (*Duration)(nil)
)

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d Duration) D() time.Duration { return time.Duration(d) }

type PowerCfg struct {
	BudgetMA int `yaml:"budget_ma" toml:"budget_ma" json:"budget_ma"` // 0 disables the limiter
	ChanMA   int `yaml:"chan_ma" toml:"chan_ma" json:"chan_ma"`       // full-scale draw per channel
}

type SPI struct {
	Dev     string `yaml:"dev" toml:"dev" json:"dev"`                // e.g. SPI0.0 or /dev/spidev0.0
	SpeedHz int    `yaml:"speed_hz" toml:"speed_hz" json:"speed_hz"` // e.g. 2500000
}

type Serial struct {
	Device string `yaml:"device" toml:"device" json:"device"` // e.g. /dev/ttyACM0
	Baud   int    `yaml:"baud" toml:"baud" json:"baud"`
}

type Weather struct {
	Enabled   bool     `yaml:"enabled" toml:"enabled" json:"enabled"`
	APIKey    string   `yaml:"api_key" toml:"api_key" json:"api_key,omitempty"`
	City      string   `yaml:"city" toml:"city" json:"city"`
	Country   string   `yaml:"country" toml:"country" json:"country"`
	Latitude  float64  `yaml:"latitude" toml:"latitude" json:"latitude"`
	Longitude float64  `yaml:"longitude" toml:"longitude" json:"longitude"`
	Interval  Duration `yaml:"interval" toml:"interval" json:"interval"`
	BaseURL   string   `yaml:"base_url" toml:"base_url" json:"base_url"`
}

type Config struct {
	Hostname   string `yaml:"hostname" toml:"hostname" json:"hostname"`
	HTTPAddr   string `yaml:"http_addr" toml:"http_addr" json:"http_addr"`
	WebRoot    string `yaml:"web_root" toml:"web_root" json:"web_root"`
	Driver     string `yaml:"driver" toml:"driver" json:"driver"` // "sim" | "console" | "spi" | "serial"
	ColorOrder string `yaml:"color_order" toml:"color_order" json:"color_order"`
	LEDCount   int    `yaml:"led_count" toml:"led_count" json:"led_count"`
	Brightness int    `yaml:"brightness" toml:"brightness" json:"brightness"`

	TickInterval   Duration `yaml:"tick_interval" toml:"tick_interval" json:"tick_interval"`
	FrameInterval  Duration `yaml:"frame_interval" toml:"frame_interval" json:"frame_interval"`
	StreamInterval Duration `yaml:"stream_interval" toml:"stream_interval" json:"stream_interval"`

	Power   PowerCfg `yaml:"power" toml:"power" json:"power"`
	SPI     SPI      `yaml:"spi" toml:"spi" json:"spi"`
	Serial  Serial   `yaml:"serial" toml:"serial" json:"serial"`
	Weather Weather  `yaml:"weather" toml:"weather" json:"weather"`
}

var drivers = map[string]bool{"sim": true, "console": true, "spi": true, "serial": true}

// Default returns the settings used when no config file exists.
func Default() *Config {
	return &Config{
		Hostname:       "ledcloud",
		HTTPAddr:       ":8080",
		Driver:         "sim",
		ColorOrder:     "GRB",
		LEDCount:       60,
		Brightness:     100,
		TickInterval:   Duration(25 * time.Millisecond),
		FrameInterval:  Duration(50 * time.Millisecond),
		StreamInterval: Duration(100 * time.Millisecond),
		Power:          PowerCfg{ChanMA: 20},
		SPI:            SPI{SpeedHz: 2500000},
		Serial:         Serial{Device: "/dev/ttyACM0", Baud: 115200},
		Weather: Weather{
			Interval: Duration(2 * time.Hour),
			BaseURL:  "https://api.openweathermap.org",
		},
	}
}

// Validate checks the settings the daemon cannot start without.
func (c *Config) Validate() error {
	if c.LEDCount < 1 {
		return errors.Errorf("led_count must be positive, got %d", c.LEDCount)
	}
	if !drivers[c.Driver] {
		return errors.Errorf("unknown driver %q", c.Driver)
	}
	for name, d := range map[string]Duration{
		"tick_interval":   c.TickInterval,
		"frame_interval":  c.FrameInterval,
		"stream_interval": c.StreamInterval,
	} {
		if d <= 0 {
			return errors.Errorf("%s must be positive", name)
		}
	}
	if c.TickInterval > c.FrameInterval {
		return errors.Errorf("tick_interval %s must not exceed frame_interval %s",
			c.TickInterval.D(), c.FrameInterval.D())
	}
	if c.Weather.Enabled {
		if c.Weather.Interval <= 0 {
			return errors.New("weather.interval must be positive")
		}
		if c.Weather.APIKey == "" {
			return errors.New("weather.api_key is required when weather is enabled")
		}
	}
	return nil
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// Load reads path on top of Default. The format follows the extension. A
// missing file returns the defaults along with an error satisfying
// errors.Is(err, fs.ErrNotExist).
func Load(path string) (*Config, error) {
	c := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return c, errors.Wrap(err, "failed to read config")
	}
	if isTOML(path) {
		err = toml.NewDecoder(bytes.NewReader(b)).Decode(c)
	} else {
		err = yaml.Unmarshal(b, c)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", path)
	}
	return c, nil
}

func Save(path string, c *Config) error {
	var (
		b   []byte
		err error
	)
	if isTOML(path) {
		b, err = toml.Marshal(*c)
	} else {
		b, err = yaml.Marshal(c)
	}
	if err != nil {
		return errors.Wrap(err, "failed to encode config")
	}
	return errors.Wrap(os.WriteFile(path, b, 0644), "failed to write config")
}
