// Command ledsim cycles through every pattern on a console driver, for
// eyeballing the effects without hardware.
package main

import (
	"context"
	"os"
	"os/signal"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/coreman2200/funtimes-ledcloud/internal/app"
	"github.com/coreman2200/funtimes-ledcloud/internal/led"
	"github.com/coreman2200/funtimes-ledcloud/internal/render"
)

var (
	count = 16
	fps   = 20
	hold  = 3 * time.Second
	loop  = false
)

func init() {
	pflag.IntVar(&count, "count", count, "number of simulated LEDs")
	pflag.IntVar(&fps, "fps", fps, "ticks per second")
	pflag.DurationVar(&hold, "hold", hold, "time spent on each pattern")
	pflag.BoolVar(&loop, "loop", loop, "repeat the program forever")
}

func main() {
	pflag.Parse()
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	if fps <= 0 {
		fps = 30
	}
	interval := time.Second / time.Duration(fps)

	eng, err := render.NewEngine(count, &led.Console{W: os.Stdout},
		render.WithFrameInterval(interval),
		render.WithBrightness(255),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("engine")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	// tick faster than the frame interval so the engine throttle sets the pace
	sched := app.NewScheduler(log.Logger)
	sched.Add("advance", interval/2, func(context.Context) error {
		eng.Advance()
		return nil
	})
	schedErr := make(chan error, 1)
	go func() { schedErr <- sched.Run(ctx) }()
	defer func() {
		cancel()
		if err := <-schedErr; err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("scheduler")
		}
	}()

	for {
		for _, p := range render.Patterns() {
			log.Info().Stringer("pattern", p).Bool("animated", p.Animated()).Msg("showing")
			if err := eng.SetPattern(p); err != nil {
				log.Fatal().Err(err).Msg("set pattern")
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(hold):
			}
		}
		if !loop {
			return
		}
	}
}
