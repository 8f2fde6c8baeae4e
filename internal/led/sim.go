package led

import (
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"
)

// Sim keeps the last frame in memory instead of driving hardware.
type Sim struct {
	logger zerolog.Logger

	mu     sync.Mutex
	last   []byte
	frames uint64
}

// NewSim logs every frame at trace level on logger.
func NewSim(logger zerolog.Logger) *Sim { return &Sim{logger: logger} }

func (s *Sim) Write(rgb []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = append(s.last[:0], rgb...)
	s.frames++
	s.logger.Trace().Uint64("frame", s.frames).Int("bytes", len(rgb)).Msg("sim frame")
	return nil
}

// Last returns a copy of the most recent frame and the number of frames
// written so far.
func (s *Sim) Last() ([]byte, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.last...), s.frames
}

func (s *Sim) Close() error { return nil }

// Console prints a compact summary of each frame (first LED & avg), useful
// for headless runs.
type Console struct {
	W     io.Writer
	Count int
}

func (d *Console) Write(rgb []byte) error {
	d.Count++
	var r, g, b float64
	for i := 0; i+2 < len(rgb); i += 3 {
		r += float64(rgb[i])
		g += float64(rgb[i+1])
		b += float64(rgb[i+2])
	}
	n := float64(len(rgb) / 3)
	if n == 0 {
		n = 1
	}
	var first [3]byte
	copy(first[:], rgb)
	_, err := fmt.Fprintf(d.W, "[frame %04d] avg=(%.0f,%.0f,%.0f) first=(%d,%d,%d)\n",
		d.Count, r/n, g/n, b/n, first[0], first[1], first[2])
	return err
}

func (d *Console) Close() error { return nil }
