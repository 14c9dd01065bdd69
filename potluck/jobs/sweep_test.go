package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type completerFunc func(ctx context.Context, cutoff time.Time) (int64, error)

func (f completerFunc) CompletePastEvents(ctx context.Context, cutoff time.Time) (int64, error) {
	return f(ctx, cutoff)
}

var fixedNow = time.Date(2026, 3, 10, 9, 15, 0, 0, time.UTC)

func TestRunOnceUsesGraceCutoff(t *testing.T) {
	var got time.Time
	s, err := NewSweeper(completerFunc(func(_ context.Context, cutoff time.Time) (int64, error) {
		got = cutoff
		return 3, nil
	}), SweepOptions{Grace: 6 * time.Hour, Now: func() time.Time { return fixedNow }})
	require.NoError(t, err)

	n, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
	assert.Equal(t, fixedNow.Add(-6*time.Hour), got)
}

func TestRunOnceWrapsStoreError(t *testing.T) {
	boom := errors.New("db down")
	s, err := NewSweeper(completerFunc(func(context.Context, time.Time) (int64, error) {
		return 0, boom
	}), SweepOptions{})
	require.NoError(t, err)

	_, err = s.RunOnce(context.Background())
	assert.ErrorIs(t, err, boom)
}

func assertSameInstant(t *testing.T, want, got time.Time) {
	t.Helper()
	assert.True(t, want.Equal(got), "want %s, got %s", want, got)
}

func TestNewSweeperSchedule(t *testing.T) {
	noop := completerFunc(func(context.Context, time.Time) (int64, error) { return 0, nil })

	s, err := NewSweeper(noop, SweepOptions{})
	require.NoError(t, err)
	assertSameInstant(t, time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC), s.Next(fixedNow))
	assert.Equal(t, DefaultGrace, s.grace)

	s, err = NewSweeper(noop, SweepOptions{Schedule: "@daily"})
	require.NoError(t, err)
	assertSameInstant(t, time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC), s.Next(fixedNow))

	if berlin, err := time.LoadLocation("Europe/Berlin"); err == nil {
		s, err = NewSweeper(noop, SweepOptions{Schedule: "@daily", Location: berlin})
		require.NoError(t, err)
		assertSameInstant(t, time.Date(2026, 3, 10, 23, 0, 0, 0, time.UTC), s.Next(fixedNow))
	}

	_, err = NewSweeper(noop, SweepOptions{Schedule: "every now and then"})
	assert.Error(t, err)
}

func TestStartRunsOnSchedule(t *testing.T) {
	var (
		once sync.Once
		ran  = make(chan struct{})
	)
	s, err := NewSweeper(completerFunc(func(context.Context, time.Time) (int64, error) {
		once.Do(func() { close(ran) })
		return 0, nil
	}), SweepOptions{Schedule: "@every 1s"})
	require.NoError(t, err)

	s.Start(context.Background())
	s.Start(context.Background())

	select {
	case <-ran:
	case <-time.After(5 * time.Second):
		t.Fatal("sweep did not run")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	require.NoError(t, s.Stop(ctx))
}
