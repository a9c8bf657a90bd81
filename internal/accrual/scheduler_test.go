package accrual

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubSweeper struct {
	calls int
	err   error
}

func (s *stubSweeper) AccrueAll(ctx context.Context) (int, error) {
	s.calls++
	return 3, s.err
}

func TestNewScheduler_InvalidSpec(t *testing.T) {
	_, err := NewScheduler("every day", time.UTC, &stubSweeper{}, zap.NewNop())
	require.Error(t, err)
}

func TestScheduler_Sweep(t *testing.T) {
	sw := &stubSweeper{}
	s, err := NewScheduler("0 1 * * *", wat, sw, zap.NewNop())
	require.NoError(t, err)

	s.sweep(context.Background())
	assert.Equal(t, 1, sw.calls)

	sw.err = errors.New("db down")
	s.sweep(context.Background())
	assert.Equal(t, 2, sw.calls)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.sweep(ctx)
	assert.Equal(t, 2, sw.calls)
}

func TestScheduler_RunStopsOnCancel(t *testing.T) {
	s, err := NewScheduler("0 1 * * *", wat, &stubSweeper{}, zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}
