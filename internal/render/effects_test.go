package render

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFireBounds(t *testing.T) {
	e, _, clk := newTestEngine(t, 60)
	require.NoError(t, e.SetPattern(Fire))
	for _, px := range e.Snapshot().Pixels {
		assert.Equal(t, uint32(RGB(10, 0, 0)), px, "fire seeds dim red")
	}

	for k := 0; k < 50; k++ {
		tick(t, e, clk)
		for i, px := range e.Snapshot().Pixels {
			c := Color(px)
			assert.GreaterOrEqual(t, c.R(), uint8(80), "pixel %d", i)
			assert.GreaterOrEqual(t, c.G(), uint8(32), "pixel %d", i)
			assert.LessOrEqual(t, c.G(), uint8(59+49), "pixel %d", i)
			assert.GreaterOrEqual(t, c.B(), uint8(8), "pixel %d", i)
			assert.LessOrEqual(t, c.B(), uint8(14), "pixel %d", i)
		}
	}
}

func TestRainShifts(t *testing.T) {
	const n = 30
	e, _, clk := newTestEngine(t, n)
	require.NoError(t, e.SetPattern(Rain))

	for k := 0; k < 200; k++ {
		prev := e.Snapshot()
		tick(t, e, clk)
		cur := e.Snapshot()

		head := cur.Color(0)
		if head != Black {
			assert.Zero(t, head.R())
			assert.GreaterOrEqual(t, head.B(), uint8(180))
			assert.Less(t, head.B(), uint8(240))
			assert.Equal(t, head.B()/3, head.G())
		}

		// Outside the puddle zone every pixel is its predecessor's old color.
		for i := 1; i < n-puddleZone; i++ {
			require.Equal(t, prev.Pixels[i-1], cur.Pixels[i], "tick %d pixel %d", k, i)
		}
		mismatches := 0
		for i := n - puddleZone; i < n; i++ {
			if prev.Pixels[i-1] != cur.Pixels[i] {
				mismatches++
				c := cur.Color(i)
				assert.GreaterOrEqual(t, c.B(), uint8(50))
				assert.Less(t, c.B(), uint8(100))
				assert.Equal(t, c.B()/2, c.G())
			}
		}
		assert.LessOrEqual(t, mismatches, 1, "at most one puddle per tick")
	}
}

func TestRainTinyStrip(t *testing.T) {
	e, _, clk := newTestEngine(t, 2)
	require.NoError(t, e.SetPattern(Rain))
	for k := 0; k < 100; k++ {
		tick(t, e, clk)
	}
	assert.Len(t, e.Snapshot().Pixels, 2)
}

func TestTwinkleDecay(t *testing.T) {
	const n = 40
	e, _, clk := newTestEngine(t, n)
	require.NoError(t, e.SetPattern(Twinkle))

	lit := 0
	for k := 0; k < 100; k++ {
		prev := e.Snapshot()
		clk.Step(DefaultFrameInterval)
		require.True(t, e.Advance())
		cur := e.Snapshot()

		relit := 0
		for i := range cur.Pixels {
			want := Color(prev.Pixels[i]).Scale(twinkleDecayPct)
			if cur.Color(i) != want {
				relit++
				assert.True(t, isSparkle(cur.Color(i)), "pixel %d = %s", i, cur.Color(i))
			}
		}
		assert.LessOrEqual(t, relit, 3)
		lit += relit
	}
	assert.Greater(t, lit, 0, "expected some sparkles")
}

func TestTwinkleRespectsGap(t *testing.T) {
	tw := &twinkle{}
	buf := make([]Color, 10)
	clk := newFakeClock()
	e, _, _ := newTestEngine(t, 1)

	tw.Reset(buf)
	tw.Step(buf, Frame{Now: clk.Now(), Rand: e.rnd})
	first := tw.last
	require.Equal(t, clk.Now(), first)

	// under the minimum gap nothing new lights up
	clk.Step(twinkleMinGap * time.Millisecond)
	tw.Step(buf, Frame{Now: clk.Now(), Rand: e.rnd})
	assert.Equal(t, first, tw.last)

	clk.Step(twinkleMaxGap * time.Millisecond)
	tw.Step(buf, Frame{Now: clk.Now(), Rand: e.rnd})
	assert.Equal(t, clk.Now(), tw.last)
}

func isSparkle(c Color) bool {
	r, g, b := c.R(), c.G(), c.B()
	white := r == g && g == b && r >= 180
	paleBlue := r >= 20 && r < 70 && g >= 150 && g < 220 && b >= 200
	gold := r >= 200 && g >= 150 && g < 220 && b >= 10 && b < 40
	return white || paleBlue || gold
}

func TestRainbowIsStatic(t *testing.T) {
	e, _, _ := newTestEngine(t, 6)
	require.NoError(t, e.SetPattern(Rainbow))
	s := e.Snapshot()
	assert.Equal(t, Red, s.Color(0))
	assert.Equal(t, Yellow, s.Color(1))
	assert.Equal(t, Green, s.Color(2))
	assert.Equal(t, Cyan, s.Color(3))
	assert.Equal(t, Blue, s.Color(4))
	assert.Equal(t, Magenta, s.Color(5))
}

func TestColorScale(t *testing.T) {
	c := RGB(100, 20, 1)
	assert.Equal(t, RGB(95, 19, 0), c.Scale(95))
	assert.Equal(t, "#641401", c.String())
}
