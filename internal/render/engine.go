package render

import (
	"math/rand"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	DefaultFrameInterval = 50 * time.Millisecond
	DefaultBrightness    = 100
)

// Engine owns the pixel buffer of one strip and the active pattern. Every
// exported method is a critical section covering both the buffer mutation and
// the hardware commit, so the driver never sees a half-written frame.
type Engine struct {
	mu sync.Mutex

	drv    Driver
	clock  Clock
	rnd    *rand.Rand
	logger zerolog.Logger
	power  PowerBudget

	buf []Color
	out []byte // encoded frame handed to the driver

	brightness uint8
	pattern    Pattern
	animators  map[Pattern]Animator
	interval   time.Duration
	lastTick   time.Time

	onDriverErr func(err error)
	failing     bool

	stats Stats
}

// Stats are the engine metrics (last durations in ms).
type Stats struct {
	Frames       uint64
	CommitErrors uint64
	AdvanceMS    float64
	CommitMS     float64
	EstimatedMA  float64
}

type Option func(*Engine)

func WithClock(c Clock) Option { return func(e *Engine) { e.clock = c } }

func WithRand(r *rand.Rand) Option { return func(e *Engine) { e.rnd = r } }

// WithFrameInterval sets the minimum time between effective Advance calls.
func WithFrameInterval(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.interval = d
		}
	}
}

func WithBrightness(b uint8) Option { return func(e *Engine) { e.brightness = b } }

func WithLogger(l zerolog.Logger) Option { return func(e *Engine) { e.logger = l } }

func WithPowerBudget(p PowerBudget) Option { return func(e *Engine) { e.power = p } }

// WithDriverErrorHook registers fn to be told when driver writes start
// failing (err != nil) and when they recover (err == nil). It is called with
// the engine lock held and must not call back into the engine.
func WithDriverErrorHook(fn func(err error)) Option {
	return func(e *Engine) { e.onDriverErr = fn }
}

// NewEngine allocates an n-pixel buffer, blanks it and commits once.
// drv may be nil for a headless engine.
func NewEngine(n int, drv Driver, opts ...Option) (*Engine, error) {
	if n <= 0 {
		return nil, errors.Errorf("invalid pixel count %d", n)
	}
	e := &Engine{
		drv:        drv,
		clock:      SystemClock,
		logger:     log.Logger,
		buf:        make([]Color, n),
		out:        make([]byte, n*3),
		brightness: DefaultBrightness,
		pattern:    Off,
		animators:  newAnimators(),
		interval:   DefaultFrameInterval,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rnd == nil {
		e.rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.commit()
	return e, nil
}

// Len returns the number of pixels. It never changes.
func (e *Engine) Len() int { return len(e.buf) }

func (e *Engine) SetAllPixels(c Color) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.logger.Debug().Stringer("color", c).Msg("set all pixels")
	fill(e.buf, c&0xFFFFFF)
	e.commit()
}

// SetPixel writes one entry. An out-of-range index leaves the buffer and the
// hardware untouched.
func (e *Engine) SetPixel(index int, r, g, b uint8) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if index < 0 || index >= len(e.buf) {
		e.logger.Warn().Int("index", index).Int("count", len(e.buf)).Msg("invalid pixel index")
		return errors.Wrapf(ErrIndexOutOfRange, "index %d not in [0,%d)", index, len(e.buf))
	}
	e.buf[index] = RGB(r, g, b)
	e.commit()
	return nil
}

// SetBrightness clamps v to [0,255], stores it and refreshes the output.
// The buffer itself is not touched.
func (e *Engine) SetBrightness(v int) uint8 {
	switch {
	case v < 0:
		v = 0
	case v > 255:
		v = 255
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.logger.Debug().Int("brightness", v).Msg("set brightness")
	e.brightness = uint8(v)
	e.commit()
	return e.brightness
}

// SetPattern switches the active pattern, discarding the previous
// animation state, and renders its initial frame.
func (e *Engine) SetPattern(p Pattern) error {
	an, ok := e.animators[p]
	if !ok {
		e.logger.Warn().Int("pattern", int(p)).Msg("rejecting unknown pattern")
		return errors.Wrapf(ErrUnknownPattern, "pattern %d", int(p))
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.logger.Info().Stringer("pattern", p).Msg("set pattern")
	e.pattern = p
	an.Reset(e.buf)
	e.commit()
	return nil
}

// SetSolid stops any animation and fills the strip with c, in one critical
// section and one commit.
func (e *Engine) SetSolid(c Color) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.logger.Debug().Stringer("color", c).Msg("set solid")
	e.pattern = Off
	fill(e.buf, c&0xFFFFFF)
	e.commit()
}

// Advance runs one animation frame if an animated pattern is active and the
// frame interval has elapsed since the last effective tick. It reports
// whether a frame was produced.
func (e *Engine) Advance() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.pattern.Animated() {
		return false
	}
	now := e.clock.Now()
	if !e.lastTick.IsZero() && now.Sub(e.lastTick) < e.interval {
		return false
	}
	e.lastTick = now

	start := time.Now()
	e.animators[e.pattern].Step(e.buf, Frame{Now: now, Rand: e.rnd})
	e.commit()
	e.stats.AdvanceMS = float64(time.Since(start).Microseconds()) / 1000.0
	return true
}

func (e *Engine) IsAnimationActive() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pattern.Animated()
}

func (e *Engine) Pattern() Pattern {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pattern
}

func (e *Engine) Brightness() uint8 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.brightness
}

func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

// commit pushes the buffer to the driver. Callers hold e.mu.
func (e *Engine) commit() {
	start := time.Now()
	encode(e.out, e.buf, e.brightness)
	e.power.limit(e.out)
	e.stats.EstimatedMA = e.power.EstimateMA(e.out)
	e.stats.Frames++

	if e.drv != nil {
		err := e.drv.Write(e.out)
		if err != nil {
			e.stats.CommitErrors++
			e.logger.Warn().Err(err).Uint64("frame", e.stats.Frames).Msg("driver write failed")
		}
		if failing := err != nil; failing != e.failing {
			e.failing = failing
			if e.onDriverErr != nil {
				e.onDriverErr(err)
			}
		}
	}
	e.stats.CommitMS = float64(time.Since(start).Microseconds()) / 1000.0
}
