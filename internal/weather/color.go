package weather

import (
	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/coreman2200/funtimes-ledcloud/internal/render"
)

type stop struct {
	temp float64
	col  colorful.Color
}

func mustHex(s string) colorful.Color {
	c, err := colorful.Hex(s)
	if err != nil {
		panic(err)
	}
	return c
}

var gradient = []stop{
	{0, mustHex("#1E3CFF")},
	{20, mustHex("#FFB000")},
	{35, mustHex("#FF2000")},
}

// AmbientColor maps the reported temperature onto a cold-to-hot gradient,
// blended in Lab space.
func AmbientColor(r Report) render.Color {
	t := r.Temperature
	c := gradient[len(gradient)-1].col
	switch {
	case t <= gradient[0].temp:
		c = gradient[0].col
	case t < gradient[len(gradient)-1].temp:
		for i := 1; i < len(gradient); i++ {
			lo, hi := gradient[i-1], gradient[i]
			if t <= hi.temp {
				c = lo.col.BlendLab(hi.col, (t-lo.temp)/(hi.temp-lo.temp)).Clamped()
				break
			}
		}
	}
	red, green, blue := c.RGB255()
	return render.RGB(red, green, blue)
}
