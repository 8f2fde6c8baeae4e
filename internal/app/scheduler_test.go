package app

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulerRunsUntilCancelled(t *testing.T) {
	s := NewScheduler(zerolog.Nop())
	var ticks, failing int32
	s.Add("count", 5*time.Millisecond, func(context.Context) error {
		atomic.AddInt32(&ticks, 1)
		return nil
	})
	s.Add("fail", 5*time.Millisecond, func(context.Context) error {
		atomic.AddInt32(&failing, 1)
		return errors.New("boom")
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&ticks) >= 3 && atomic.LoadInt32(&failing) >= 3
	}, time.Second, time.Millisecond, "a failing task must keep its schedule")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestSchedulerAddNow(t *testing.T) {
	s := NewScheduler(zerolog.Nop())
	ran := make(chan struct{}, 1)
	s.AddNow("once", time.Hour, func(context.Context) error {
		ran <- struct{}{}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("immediate task did not run")
	}
}

func TestSchedulerBadInterval(t *testing.T) {
	s := NewScheduler(zerolog.Nop())
	s.Add("bad", 0, func(context.Context) error { return nil })
	assert.Error(t, s.Run(context.Background()))
}
