package main

import (
	"context"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
	"periph.io/x/conn/v3/physic"

	"github.com/coreman2200/funtimes-ledcloud/internal/api"
	"github.com/coreman2200/funtimes-ledcloud/internal/app"
	"github.com/coreman2200/funtimes-ledcloud/internal/config"
	"github.com/coreman2200/funtimes-ledcloud/internal/led"
)

var (
	configPath = "config.yaml"
	verbose    = false
	addr       = ":8080"
	driver     = "sim"
	count      = 60
	brightness = 100
	simOnly    = false
)

func init() {
	pflag.StringVarP(&configPath, "config", "c", configPath, "configuration file (.yaml or .toml)")
	pflag.BoolVarP(&verbose, "verbose", "v", verbose, "debug logging")
	pflag.StringVar(&addr, "addr", addr, "HTTP listen address")
	pflag.StringVar(&driver, "driver", driver, "driver: sim | console | spi | serial")
	pflag.IntVar(&count, "count", count, "number of LEDs on the strip")
	pflag.IntVar(&brightness, "brightness", brightness, "default brightness 0..255")
	pflag.BoolVar(&simOnly, "sim-only", simOnly, "force simulation (no hardware output)")
}

func main() {
	pflag.Parse()

	// ---- Logging ----
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})

	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("ledcloud failed")
	}
}

func run() error {
	cfg, err := config.Load(configPath)
	if errors.Is(err, fs.ErrNotExist) {
		log.Warn().Str("path", configPath).Msg("config not found; using defaults")
	} else if err != nil {
		return err
	}
	applyFlags(cfg)

	drv, selected := openDriver(cfg)
	defer drv.Close()

	core, err := app.InitCore(cfg, drv, log.Logger)
	if err != nil {
		return err
	}
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	errg, ctx := errgroup.WithContext(ctx)

	srv := api.NewServer(ctx, core, cfg, configPath, log.Logger.With().Str("component", "api").Logger())
	core.Sched.Add("stream", cfg.StreamInterval.D(), srv.Hub().Broadcast)
	httpSrv := srv.HTTPServer(cfg.HTTPAddr)

	errg.Go(func() error {
		return core.Run(ctx)
	})
	errg.Go(func() error {
		log.Info().
			Str("addr", cfg.HTTPAddr).
			Str("driver", selected).
			Str("hostname", cfg.Hostname).
			Int("leds", cfg.LEDCount).
			Msg("HTTP server starting")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return errors.Wrap(err, "http server crashed")
		}
		return nil
	})
	errg.Go(func() error {
		<-ctx.Done()
		log.Info().Msg("shutting down")
		shutdownCtx, done := context.WithTimeout(context.Background(), 3*time.Second)
		defer done()
		return httpSrv.Shutdown(shutdownCtx)
	})
	return errg.Wait()
}

// applyFlags lets explicitly set flags override the config file.
func applyFlags(cfg *config.Config) {
	set := pflag.CommandLine.Changed
	if set("addr") {
		cfg.HTTPAddr = addr
	}
	if set("driver") {
		cfg.Driver = driver
	}
	if set("count") {
		cfg.LEDCount = count
	}
	if set("brightness") {
		cfg.Brightness = brightness
	}
	if simOnly {
		cfg.Driver = "sim"
	}
}

// openDriver falls back to the simulator when hardware cannot be opened.
func openDriver(cfg *config.Config) (led.Driver, string) {
	simLogger := log.Logger.With().Str("component", "sim").Logger()
	order, err := led.ParseOrder(cfg.ColorOrder)
	if err != nil {
		log.Warn().Err(err).Msg("bad color_order; using GRB")
		order = led.GRB
	}

	switch cfg.Driver {
	case "sim":
		return led.NewSim(simLogger), "sim"

	case "console":
		return &led.Console{W: os.Stdout}, "console"

	case "spi":
		freq := physic.Frequency(cfg.SPI.SpeedHz) * physic.Hertz
		drv, err := led.OpenSPI(cfg.SPI.Dev, cfg.LEDCount, freq, order)
		if err != nil {
			log.Warn().Err(err).
				Str("driver", "spi").
				Str("dev", cfg.SPI.Dev).
				Int("speed_hz", cfg.SPI.SpeedHz).
				Msg("SPI init failed; falling back to SIM")
			return led.NewSim(simLogger), "sim"
		}
		return drv, "spi"

	case "serial":
		drv, err := led.OpenSerial(cfg.Serial.Device, cfg.Serial.Baud, cfg.LEDCount, order)
		if err != nil {
			log.Warn().Err(err).
				Str("driver", "serial").
				Str("device", cfg.Serial.Device).
				Int("baud", cfg.Serial.Baud).
				Msg("serial init failed; falling back to SIM")
			return led.NewSim(simLogger), "sim"
		}
		return drv, "serial"

	default:
		log.Warn().Str("driver", cfg.Driver).Msg("unknown driver; using SIM")
		return led.NewSim(simLogger), "sim"
	}
}
