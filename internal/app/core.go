package app

import (
	"context"
	"math/rand"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/coreman2200/funtimes-ledcloud/internal/config"
	diag "github.com/coreman2200/funtimes-ledcloud/internal/diagnostics"
	"github.com/coreman2200/funtimes-ledcloud/internal/render"
	"github.com/coreman2200/funtimes-ledcloud/internal/weather"
)

// Core is the running daemon: one engine, the weather poller and the task
// scheduler driving them.
type Core struct {
	Eng     *render.Engine
	Weather *weather.Poller // nil when weather is disabled
	Sched   *Scheduler

	// Diag receives task failures. Set it before Run.
	Diag diag.Sink

	logger zerolog.Logger
}

// InitCore builds the engine on drv and registers the advance and weather
// tasks. Callers add further tasks (the status stream) on Sched before Run.
func InitCore(cfg *config.Config, drv render.Driver, logger zerolog.Logger) (*Core, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	c := &Core{
		Sched:  NewScheduler(logger.With().Str("component", "scheduler").Logger()),
		Diag:   diag.Discard,
		logger: logger,
	}

	eng, err := render.NewEngine(cfg.LEDCount, drv,
		render.WithBrightness(clampByte(cfg.Brightness)),
		render.WithFrameInterval(cfg.FrameInterval.D()),
		render.WithPowerBudget(render.PowerBudget{
			BudgetMA: float64(cfg.Power.BudgetMA),
			ChanMA:   float64(cfg.Power.ChanMA),
		}),
		render.WithRand(rand.New(rand.NewSource(time.Now().UnixNano()))),
		render.WithLogger(logger.With().Str("component", "engine").Logger()),
		render.WithDriverErrorHook(c.driverStateChanged),
	)
	if err != nil {
		return nil, err
	}
	c.Eng = eng

	c.Sched.Add("advance", cfg.TickInterval.D(), func(context.Context) error {
		c.Eng.Advance()
		return nil
	})

	if cfg.Weather.Enabled {
		client := &weather.Client{BaseURL: cfg.Weather.BaseURL, APIKey: cfg.Weather.APIKey}
		c.Weather = weather.NewPoller(client, LocationOf(cfg), logger.With().Str("component", "weather").Logger())
		c.Sched.AddNow("weather", cfg.Weather.Interval.D(), c.refreshWeather)
	}
	return c, nil
}

// driverStateChanged reports driver failures and recoveries on the
// diagnostics stream. It runs under the engine lock.
func (c *Core) driverStateChanged(err error) {
	if err != nil {
		c.Diag.Push(diag.DriverFailed(err))
		return
	}
	c.Diag.Push(diag.Diagnostic{Severity: diag.Info, Code: diag.DriverWrite, Summary: "Driver writes recovered"})
}

func (c *Core) refreshWeather(ctx context.Context) error {
	err := c.Weather.Refresh(ctx)
	if err != nil && ctx.Err() == nil {
		c.Diag.Push(diag.WeatherFailed(err))
	}
	return err
}

// ShowWeather stops any animation and paints the whole strip with the
// ambient colour of the latest report.
func (c *Core) ShowWeather() (render.Color, bool) {
	if c.Weather == nil {
		return 0, false
	}
	rep, ok := c.Weather.Latest()
	if !ok {
		return 0, false
	}
	col := weather.AmbientColor(rep)
	c.Eng.SetSolid(col)
	return col, true
}

// Run drives the scheduler until ctx ends.
func (c *Core) Run(ctx context.Context) error {
	c.logger.Info().Int("leds", c.Eng.Len()).Msg("core running")
	return c.Sched.Run(ctx)
}

// LocationOf extracts the weather location from the settings.
func LocationOf(cfg *config.Config) weather.Location {
	return weather.Location{
		City:      cfg.Weather.City,
		Country:   cfg.Weather.Country,
		Latitude:  cfg.Weather.Latitude,
		Longitude: cfg.Weather.Longitude,
	}
}

func clampByte(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
