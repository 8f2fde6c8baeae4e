package led

import (
	"strings"

	"github.com/pkg/errors"
)

// Driver abstracts an LED output sink.
type Driver interface {
	// Write pushes an RGB frame to hardware. len(rgb) must be 3*N.
	Write(rgb []byte) error
	// Close releases resources.
	Close() error
}

// Order is the channel order a strip expects on the wire, e.g. "GRB".
type Order [3]byte

var (
	RGB = Order{'R', 'G', 'B'}
	GRB = Order{'G', 'R', 'B'}
)

// ParseOrder accepts any permutation of "RGB", case-insensitive. An empty
// string means GRB, the WS2812 default.
func ParseOrder(s string) (Order, error) {
	if s == "" {
		return GRB, nil
	}
	s = strings.ToUpper(s)
	if len(s) != 3 || !strings.ContainsRune(s, 'R') || !strings.ContainsRune(s, 'G') || !strings.ContainsRune(s, 'B') {
		return Order{}, errors.Errorf("invalid color order %q", s)
	}
	return Order{s[0], s[1], s[2]}, nil
}

func (o Order) String() string { return string(o[:]) }

// Reorder copies RGB triples from src into dst in wire order.
func (o Order) Reorder(dst, src []byte) {
	for i := 0; i+2 < len(src); i += 3 {
		r, g, b := src[i], src[i+1], src[i+2]
		for k := 0; k < 3; k++ {
			switch o[k] {
			case 'R':
				dst[i+k] = r
			case 'G':
				dst[i+k] = g
			case 'B':
				dst[i+k] = b
			}
		}
	}
}

func checkLen(rgb []byte, count int) error {
	if len(rgb) != count*3 {
		return errors.Errorf("rgb length %d does not match count %d", len(rgb), count)
	}
	return nil
}
