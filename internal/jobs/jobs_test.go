package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestScheduler_RegisterAndRunNow(t *testing.T) {
	s := NewScheduler(discardLogger())

	calls := 0
	require.NoError(t, s.Register("tick", "0 */5 * * * *", func(context.Context) error {
		calls++
		return nil
	}))
	require.NoError(t, s.RunNow("tick"))
	assert.Equal(t, 1, calls)

	err := s.RunNow("missing")
	assert.ErrorIs(t, err, ErrUnknownJob)
}

func TestScheduler_RejectsBadSchedule(t *testing.T) {
	s := NewScheduler(discardLogger())
	assert.Error(t, s.Register("bad", "every minute", func(context.Context) error { return nil }))
	assert.Empty(t, s.ListJobs())
}

func TestScheduler_RejectsDuplicateName(t *testing.T) {
	s := NewScheduler(discardLogger())
	noop := func(context.Context) error { return nil }
	require.NoError(t, s.Register("a", "@every 1m", noop))
	assert.Error(t, s.Register("a", "@every 1m", noop))
}

func TestScheduler_ReportsFailureAndPanic(t *testing.T) {
	s := NewScheduler(discardLogger())
	boom := errors.New("boom")
	require.NoError(t, s.Register("fails", "@every 1h", func(context.Context) error { return boom }))
	require.NoError(t, s.Register("panics", "@every 1h", func(context.Context) error { panic("bad") }))

	assert.ErrorIs(t, s.RunNow("fails"), boom)
	assert.ErrorContains(t, s.RunNow("panics"), "panicked")

	jobs := s.ListJobs()
	require.Len(t, jobs, 2)
	assert.Equal(t, "fails", jobs[0].Name)
}

func TestScheduler_StartStop(t *testing.T) {
	s := NewScheduler(discardLogger())
	require.NoError(t, s.Register(SessionCleanupJob, "@every 1h", func(context.Context) error { return nil }))
	s.Start()
	s.Stop()
}

func TestSessionCleanup(t *testing.T) {
	var expired, idle int
	c := NewSessionCleanup(
		PurgeFunc(func() int { expired++; return 2 }),
		PurgeFunc(func() int { idle++; return 1 }),
		discardLogger(),
	)
	require.NoError(t, c.Run(context.Background()))
	assert.Equal(t, 1, expired)
	assert.Equal(t, 1, idle)

	require.NoError(t, NewSessionCleanup(nil, nil, discardLogger()).Run(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, c.Run(ctx), context.Canceled)
	assert.Equal(t, 1, expired)
}
