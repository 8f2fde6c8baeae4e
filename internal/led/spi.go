package led

import (
	"io"
	"sync"

	"github.com/pkg/errors"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/nrzled"
	"periph.io/x/host/v3"
)

// DefaultSPIFreq is the SPI clock used to emit the NRZ stream.
const DefaultSPIFreq = 2500 * physic.KiloHertz

// SPI drives WS2812-style strips as an NRZ stream over an SPI port.
type SPI struct {
	mu     sync.Mutex
	dev    *nrzled.Dev
	closer io.Closer
	count  int
	order  Order
	wire   []byte // nil when order is GRB
}

// OpenSPI initializes the host drivers and opens the named SPI port ("" for
// the first available one).
func OpenSPI(name string, count int, freq physic.Frequency, order Order) (*SPI, error) {
	if _, err := host.Init(); err != nil {
		return nil, errors.Wrap(err, "failed to init host drivers")
	}
	port, err := spireg.Open(name)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open spi port %q", name)
	}
	s, err := NewSPI(port, count, freq, order)
	if err != nil {
		port.Close()
		return nil, err
	}
	s.closer = port
	return s, nil
}

// NewSPI wraps an already-open port. nrzled always emits GRB; other orders
// are pre-swizzled so the strip still sees its own order.
func NewSPI(port spi.Port, count int, freq physic.Frequency, order Order) (*SPI, error) {
	if count <= 0 {
		return nil, errors.Errorf("invalid LED count: %d", count)
	}
	if freq == 0 {
		freq = DefaultSPIFreq
	}
	if order == (Order{}) {
		order = GRB
	}
	dev, err := nrzled.NewSPI(port, &nrzled.Opts{
		NumPixels: count,
		Channels:  3,
		Freq:      freq,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create nrzled device")
	}
	s := &SPI{dev: dev, count: count, order: order}
	if order != GRB {
		s.wire = make([]byte, count*3)
	}
	return s, nil
}

func (s *SPI) Write(rgb []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dev == nil {
		return errors.New("spi closed")
	}
	if err := checkLen(rgb, s.count); err != nil {
		return err
	}
	if s.wire != nil {
		// nrzled sends byte 1, byte 0, byte 2 of each pixel.
		s.order.Reorder(s.wire, rgb)
		for i := 0; i+2 < len(s.wire); i += 3 {
			s.wire[i], s.wire[i+1] = s.wire[i+1], s.wire[i]
		}
		rgb = s.wire
	}
	if _, err := s.dev.Write(rgb); err != nil {
		return errors.Wrap(err, "spi write")
	}
	return nil
}

// Close blanks the strip and releases the port.
func (s *SPI) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dev == nil {
		return nil
	}
	err := s.dev.Halt()
	s.dev = nil
	if s.closer != nil {
		if cerr := s.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
