package app

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/funtimes-ledcloud/internal/config"
	diag "github.com/coreman2200/funtimes-ledcloud/internal/diagnostics"
	"github.com/coreman2200/funtimes-ledcloud/internal/render"
)

// frameLog records every frame the engine commits.
type frameLog struct{ frames [][]byte }

func (f *frameLog) Write(rgb []byte) error {
	f.frames = append(f.frames, append([]byte(nil), rgb...))
	return nil
}

func newTestCore(t *testing.T, n int, drv render.Driver) *Core {
	cfg := config.Default()
	cfg.LEDCount = n
	cfg.Brightness = 255
	c, err := InitCore(cfg, drv, zerolog.Nop())
	require.NoError(t, err)
	return c
}

func TestSelfTestIndexSweep(t *testing.T) {
	fl := &frameLog{}
	c := newTestCore(t, 3, fl)
	rec := diagRecorder{got: make(chan diag.Diagnostic, 4)}
	c.Diag = rec

	require.NoError(t, c.SelfTest(context.Background(), IndexSweep, time.Millisecond))

	lit := 0
	for _, f := range fl.frames {
		if f[lit*3] == 255 && f[lit*3+1] == 255 && f[lit*3+2] == 255 {
			lit++
			if lit == 3 {
				break
			}
		}
	}
	assert.Equal(t, 3, lit, "every LED is lit in order")

	st := c.Eng.Snapshot()
	for i := range st.Pixels {
		assert.Equal(t, render.Black, st.Color(i))
	}
	assert.Equal(t, "TEST.RUNNING", (<-rec.got).Code)
	assert.Equal(t, "TEST.DONE", (<-rec.got).Code)
}

func TestSelfTestUnknown(t *testing.T) {
	c := newTestCore(t, 3, nil)
	err := c.SelfTest(context.Background(), "plane_z", time.Millisecond)
	assert.True(t, errors.Is(err, ErrUnknownTest))
}

func TestSelfTestCancelled(t *testing.T) {
	c := newTestCore(t, 50, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := c.SelfTest(ctx, IndexSweep, time.Hour)
	assert.Equal(t, context.Canceled, err)
}
