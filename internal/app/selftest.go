package app

import (
	"context"
	"time"

	"github.com/pkg/errors"

	diag "github.com/coreman2200/funtimes-ledcloud/internal/diagnostics"
	"github.com/coreman2200/funtimes-ledcloud/internal/render"
)

// TestKind names a wiring self-test.
type TestKind string

const (
	// IndexSweep lights each LED white in turn.
	IndexSweep TestKind = "index_sweep"
	// RGBChannels shows full red, then green, then blue on the whole strip.
	RGBChannels TestKind = "rgb_channels"
)

var ErrUnknownTest = errors.New("unknown self-test")

// testRunner produces one frame per step; Step reports false when done.
type testRunner struct {
	kind TestKind
	step int
}

func (r *testRunner) Step(eng *render.Engine) bool {
	n := eng.Len()
	switch r.kind {
	case IndexSweep:
		if r.step >= n {
			return false
		}
		eng.SetAllPixels(render.Black)
		_ = eng.SetPixel(r.step, 255, 255, 255)
	case RGBChannels:
		if r.step >= 3 {
			return false
		}
		eng.SetAllPixels([...]render.Color{render.Red, render.Green, render.Blue}[r.step])
	default:
		return false
	}
	r.step++
	return true
}

// SelfTest stops any animation and plays the named test, one step per
// interval, then blanks the strip. It blocks until done or ctx ends.
func (c *Core) SelfTest(ctx context.Context, kind TestKind, interval time.Duration) error {
	if kind != IndexSweep && kind != RGBChannels {
		c.Diag.Push(diag.Diagnostic{
			Severity: diag.Warn, Code: "TEST.UNKNOWN", Summary: "Unknown test name",
			Evidence: map[string]any{"name": string(kind)},
		})
		return errors.Wrapf(ErrUnknownTest, "%q", kind)
	}
	c.Diag.Push(diag.Diagnostic{Severity: diag.Info, Code: "TEST.RUNNING", Summary: "Running test", Detail: string(kind)})
	_ = c.Eng.SetPattern(render.Off)

	r := &testRunner{kind: kind}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for r.Step(c.Eng) {
		select {
		case <-ctx.Done():
			c.Eng.SetAllPixels(render.Black)
			return ctx.Err()
		case <-ticker.C:
		}
	}
	c.Eng.SetAllPixels(render.Black)
	c.Diag.Push(diag.Diagnostic{Severity: diag.Info, Code: "TEST.DONE", Summary: "Test complete", Detail: string(kind)})
	return nil
}
