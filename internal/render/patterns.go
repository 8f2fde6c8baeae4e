package render

import (
	colorful "github.com/lucasb-eyer/go-colorful"
)

// newAnimators builds a fresh animator per pattern. Each engine owns its own
// set so phase state is never shared.
func newAnimators() map[Pattern]Animator {
	return map[Pattern]Animator{
		Off:       solid{c: Black},
		SolidRed:  solid{c: Red},
		Rainbow:   rainbow{},
		Chase:     &chase{},
		Fade:      &fade{},
		Twinkle:   &twinkle{},
		Fire:      fire{},
		Rain:      rain{},
		ColorWipe: &colorWipe{},
	}
}

func fill(buf []Color, c Color) {
	for i := range buf {
		buf[i] = c
	}
}

// solid fills the strip with one color. Also used as the seed for Off.
type solid struct{ c Color }

func (s solid) Reset(buf []Color) { fill(buf, s.c) }
func (solid) Step([]Color, Frame) {}

// rainbow spreads one full hue turn across the strip.
type rainbow struct{}

func (rainbow) Reset(buf []Color) {
	n := float64(len(buf))
	for i := range buf {
		r, g, b := colorful.Hsv(360*float64(i)/n, 1, 1).RGB255()
		buf[i] = RGB(r, g, b)
	}
}

func (rainbow) Step([]Color, Frame) {}

const (
	chaseWidth = 3
	chaseStep  = 60
)

// chase runs a short blue window with a fading tail along the strip.
type chase struct{ pos int }

func (c *chase) Reset(buf []Color) {
	c.pos = 0
	fill(buf, Black)
}

func (c *chase) Step(buf []Color, _ Frame) {
	n := len(buf)
	fill(buf, Black)
	for k := 0; k < min(chaseWidth, n); k++ {
		buf[(c.pos+k)%n] = RGB(0, 0, uint8(255-k*chaseStep))
	}
	c.pos = (c.pos + 1) % n
}

const fadeStep = 5

// fade breathes the whole strip in magenta, 0 -> 255 -> 0.
type fade struct {
	value int
	dir   int
}

func (f *fade) Reset(buf []Color) {
	f.value, f.dir = 0, 1
	fill(buf, Black)
}

func (f *fade) Step(buf []Color, _ Frame) {
	v := uint8(f.value)
	fill(buf, RGB(v, 0, v))

	f.value += f.dir * fadeStep
	switch {
	case f.value >= 255:
		f.value, f.dir = 255, -1
	case f.value <= 0:
		f.value, f.dir = 0, 1
	}
}

var wipePalette = [...]Color{Red, Green, Blue, Yellow, Cyan, Magenta}

// colorWipe paints one pixel per tick; once the strip is full it clears and
// starts over with the next palette color.
type colorWipe struct {
	pos   int
	color int
}

func (w *colorWipe) Reset(buf []Color) {
	w.pos, w.color = 0, 0
	fill(buf, Black)
}

func (w *colorWipe) Step(buf []Color, _ Frame) {
	if w.pos >= len(buf) {
		w.pos = 0
		w.color = (w.color + 1) % len(wipePalette)
		fill(buf, Black)
	}
	buf[w.pos] = wipePalette[w.color]
	w.pos++
}
