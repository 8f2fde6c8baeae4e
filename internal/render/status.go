package render

// Status is a point-in-time copy of the engine state.
type Status struct {
	Brightness int      `json:"brightness"`
	Pattern    Pattern  `json:"pattern"`
	Pixels     []uint32 `json:"pixels"`

	// Frame is the commit counter at the time of the snapshot.
	Frame uint64 `json:"-"`
}

// Snapshot copies brightness, pattern and every pixel under the engine
// lock.
func (e *Engine) Snapshot() Status {
	e.mu.Lock()
	defer e.mu.Unlock()

	px := make([]uint32, len(e.buf))
	for i, c := range e.buf {
		px[i] = uint32(c)
	}
	return Status{
		Brightness: int(e.brightness),
		Pattern:    e.pattern,
		Pixels:     px,
		Frame:      e.stats.Frames,
	}
}

// Color returns pixel i of the snapshot.
func (s Status) Color(i int) Color { return Color(s.Pixels[i]) }
