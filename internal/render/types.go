package render

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/pkg/errors"
)

var (
	ErrIndexOutOfRange = errors.New("pixel index out of range")
	ErrUnknownPattern  = errors.New("unknown pattern")
)

const (
	redOffset   = 16
	greenOffset = 8
	blueOffset  = 0
)

// Color is a 24-bit RGB value packed as 0x00RRGGBB, the layout the strip
// driver expects.
type Color uint32

func RGB(r, g, b uint8) Color {
	return Color(uint32(r)<<redOffset | uint32(g)<<greenOffset | uint32(b)<<blueOffset)
}

func (c Color) R() uint8 { return uint8(c >> redOffset) }
func (c Color) G() uint8 { return uint8(c >> greenOffset) }
func (c Color) B() uint8 { return uint8(c >> blueOffset) }

// Scale multiplies every channel by pct/100, truncating.
func (c Color) Scale(pct int) Color {
	return RGB(
		uint8(int(c.R())*pct/100),
		uint8(int(c.G())*pct/100),
		uint8(int(c.B())*pct/100),
	)
}

func (c Color) String() string { return fmt.Sprintf("#%06X", uint32(c)&0xFFFFFF) }

const (
	Black   Color = 0x000000
	Red     Color = 0xFF0000
	Green   Color = 0x00FF00
	Blue    Color = 0x0000FF
	Yellow  Color = 0xFFFF00
	Cyan    Color = 0x00FFFF
	Magenta Color = 0xFF00FF
)

// Pattern selects the rule Advance applies. The numeric values are the
// identifiers used on the wire.
type Pattern int

const (
	Off Pattern = iota
	SolidRed
	Rainbow
	Chase
	Fade
	Twinkle
	Fire
	Rain
	ColorWipe
)

var patternNames = [...]string{
	Off:       "off",
	SolidRed:  "red",
	Rainbow:   "rainbow",
	Chase:     "chase",
	Fade:      "fade",
	Twinkle:   "twinkle",
	Fire:      "fire",
	Rain:      "rain",
	ColorWipe: "color_wipe",
}

// Patterns lists every known pattern in identifier order.
func Patterns() []Pattern {
	out := make([]Pattern, len(patternNames))
	for i := range patternNames {
		out[i] = Pattern(i)
	}
	return out
}

func (p Pattern) Valid() bool { return p >= Off && p <= ColorWipe }

// Animated reports whether Advance mutates the buffer for p.
func (p Pattern) Animated() bool { return p >= Chase && p <= ColorWipe }

func (p Pattern) String() string {
	if !p.Valid() {
		return fmt.Sprintf("Pattern(%d)", int(p))
	}
	return patternNames[p]
}

// ParsePattern validates a numeric identifier received from a client.
func ParsePattern(v int) (Pattern, error) {
	p := Pattern(v)
	if !p.Valid() {
		return Off, errors.Wrapf(ErrUnknownPattern, "pattern %d", v)
	}
	return p, nil
}

func PatternByName(name string) (Pattern, error) {
	for i, n := range patternNames {
		if n == name {
			return Pattern(i), nil
		}
	}
	return Off, errors.Wrapf(ErrUnknownPattern, "pattern %q", name)
}

// Driver abstracts the LED transport (SPI, serial, etc.).
type Driver interface {
	Write(rgb []byte) error
}

// Clock supplies the time Advance throttles against.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the wall clock.
var SystemClock Clock = systemClock{}

// Frame is what an animator sees on each effective tick.
type Frame struct {
	Now  time.Time
	Rand *rand.Rand
}

// Animator owns the cross-tick state of one pattern. Reset seeds the buffer
// and discards any previous phase; Step advances one frame.
type Animator interface {
	Reset(buf []Color)
	Step(buf []Color, f Frame)
}
