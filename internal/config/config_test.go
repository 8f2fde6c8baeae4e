package config

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadMissing(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
	assert.Equal(t, Default(), c)
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
driver: console
led_count: 30
frame_interval: 40ms
weather:
  enabled: true
  api_key: abc
  city: Lyon
  interval: 1h
`), 0644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "console", c.Driver)
	assert.Equal(t, 30, c.LEDCount)
	assert.Equal(t, 40*time.Millisecond, c.FrameInterval.D())
	assert.Equal(t, time.Hour, c.Weather.Interval.D())
	assert.Equal(t, "Lyon", c.Weather.City)
	// untouched keys keep their defaults
	assert.Equal(t, 100, c.Brightness)
	assert.Equal(t, 25*time.Millisecond, c.TickInterval.D())
	require.NoError(t, c.Validate())
}

func TestLoadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
driver = "serial"
led_count = 144
tick_interval = "10ms"

[serial]
device = "/dev/ttyUSB0"
baud = 230400
`), 0644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "serial", c.Driver)
	assert.Equal(t, 144, c.LEDCount)
	assert.Equal(t, 10*time.Millisecond, c.TickInterval.D())
	assert.Equal(t, Serial{Device: "/dev/ttyUSB0", Baud: 230400}, c.Serial)
}

func TestLoadBadSyntax(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("led_count: [1, 2"), 0644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	c := Default()
	c.Hostname = "porch"
	c.Weather.City = "Oslo"
	c.Weather.Country = "NO"
	require.NoError(t, Save(path, c))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, c, got)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(c *Config){
		"no leds":        func(c *Config) { c.LEDCount = 0 },
		"driver":         func(c *Config) { c.Driver = "pwm" },
		"tick interval":  func(c *Config) { c.TickInterval = 0 },
		"frame interval": func(c *Config) { c.FrameInterval = -1 },
		"slow tick":      func(c *Config) { c.TickInterval = c.FrameInterval + 1 },
		"weather key":    func(c *Config) { c.Weather.Enabled = true },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := Default()
			mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestValidateTickAtFrameRate(t *testing.T) {
	c := Default()
	c.TickInterval = c.FrameInterval
	assert.NoError(t, c.Validate())

	c.TickInterval = Duration(60 * time.Millisecond)
	err := c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tick_interval")
}
