package render

import (
	"math/rand"
	"time"
)

// between returns a value in [lo, hi).
func between(r *rand.Rand, lo, hi int) int {
	return lo + r.Intn(hi-lo)
}

func chance(r *rand.Rand, pct int) bool {
	return r.Intn(100) < pct
}

func addClamp(c uint8, d int) uint8 {
	if v := int(c) + d; v < 255 {
		return uint8(v)
	}
	return 255
}

const (
	twinkleDecayPct = 95
	twinkleMinGap   = 20
	twinkleMaxGap   = 150
)

// twinkle decays the strip every tick and sparkles a few pixels on a
// randomized schedule.
type twinkle struct {
	last time.Time
}

func (t *twinkle) Reset(buf []Color) {
	t.last = time.Time{}
	fill(buf, Black)
}

func (t *twinkle) Step(buf []Color, f Frame) {
	for i, c := range buf {
		buf[i] = c.Scale(twinkleDecayPct)
	}

	gap := time.Duration(between(f.Rand, twinkleMinGap, twinkleMaxGap)) * time.Millisecond
	if f.Now.Sub(t.last) <= gap {
		return
	}
	t.last = f.Now

	for k := between(f.Rand, 1, 4); k > 0; k-- {
		buf[f.Rand.Intn(len(buf))] = sparkle(f.Rand)
	}
}

func sparkle(r *rand.Rand) Color {
	switch r.Intn(3) {
	case 0: // white
		v := uint8(between(r, 180, 255))
		return RGB(v, v, v)
	case 1: // pale blue
		return RGB(uint8(between(r, 20, 70)), uint8(between(r, 150, 220)), uint8(between(r, 200, 255)))
	default: // pale gold
		return RGB(uint8(between(r, 200, 255)), uint8(between(r, 150, 220)), uint8(between(r, 10, 40)))
	}
}

// fire flickers every pixel independently in red/orange, with occasional
// flares. Memoryless between ticks.
type fire struct{}

func (fire) Reset(buf []Color) { fill(buf, RGB(10, 0, 0)) }

func (fire) Step(buf []Color, f Frame) {
	for i := range buf {
		flicker := between(f.Rand, 80, 150)
		r := uint8(flicker)
		g := uint8(float64(flicker) * 0.4)
		b := uint8(float64(flicker) * 0.1)
		if chance(f.Rand, 30) {
			r = addClamp(r, between(f.Rand, 30, 80))
			g = addClamp(g, between(f.Rand, 20, 50))
		}
		buf[i] = RGB(r, g, b)
	}
}

const puddleZone = 5

// rain scrolls drops from pixel 0 toward the end of the strip and splashes
// dim puddles near the end.
type rain struct{}

func (rain) Reset(buf []Color) { fill(buf, Black) }

func (rain) Step(buf []Color, f Frame) {
	n := len(buf)
	copy(buf[1:], buf[:n-1])

	if chance(f.Rand, 25) {
		b := between(f.Rand, 180, 240)
		buf[0] = RGB(0, uint8(b/3), uint8(b))
	} else {
		buf[0] = Black
	}

	if chance(f.Rand, 10) {
		zone := puddleZone
		if zone > n {
			zone = n
		}
		p := between(f.Rand, 50, 100)
		buf[between(f.Rand, n-zone, n)] = RGB(0, uint8(p/2), uint8(p))
	}
}
