package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var errUpstream = errors.New("upstream 503")

func fastPolicy(attempts int) Policy {
	return Policy{
		Attempts:       attempts,
		BaseDelay:      time.Millisecond,
		MaxDelay:       4 * time.Millisecond,
		AttemptTimeout: time.Second,
		Ceiling:        5 * time.Second,
	}
}

func TestDo_SucceedsAfterFailures(t *testing.T) {
	t.Parallel()

	calls := 0
	got, err := Do(context.Background(), fastPolicy(3), func(_ context.Context, attempt int) (string, error) {
		calls++
		require.Equal(t, calls, attempt)
		if attempt < 3 {
			return "", errUpstream
		}
		return "ok", nil
	}, nil)
	require.NoError(t, err)
	require.Equal(t, "ok", got)
	require.Equal(t, 3, calls)
}

func TestDo_StopsAtAttemptLimit(t *testing.T) {
	t.Parallel()

	calls := 0
	var notified []int
	_, err := Do(context.Background(), fastPolicy(4), func(context.Context, int) (int, error) {
		calls++
		return 0, errUpstream
	}, func(attempt int, err error, _ time.Duration) {
		require.ErrorIs(t, err, errUpstream)
		notified = append(notified, attempt)
	})
	require.ErrorIs(t, err, errUpstream)
	require.Equal(t, 4, calls)
	require.Equal(t, []int{1, 2, 3}, notified)
}

func TestDo_PermanentErrorIsNotRetried(t *testing.T) {
	t.Parallel()

	errParse := errors.New("unexpected body")
	calls := 0
	_, err := Do(context.Background(), fastPolicy(5), func(context.Context, int) (int, error) {
		calls++
		return 0, Permanent(errParse)
	}, nil)
	require.Equal(t, 1, calls)
	require.ErrorIs(t, err, errParse)
	require.Equal(t, errParse, err)
}

func TestDo_PermanentOnLastAttemptIsUnwrapped(t *testing.T) {
	t.Parallel()

	errParse := errors.New("unexpected body")
	_, err := Do(context.Background(), fastPolicy(1), func(context.Context, int) (int, error) {
		return 0, Permanent(errParse)
	}, nil)
	require.Equal(t, errParse, err)
}

func TestDo_CeilingBoundsTotalTime(t *testing.T) {
	t.Parallel()

	p := Policy{
		Attempts:       10,
		BaseDelay:      20 * time.Millisecond,
		MaxDelay:       200 * time.Millisecond,
		AttemptTimeout: time.Second,
		Ceiling:        100 * time.Millisecond,
	}
	start := time.Now()
	calls := 0
	_, err := Do(context.Background(), p, func(context.Context, int) (int, error) {
		calls++
		return 0, errUpstream
	}, nil)
	require.ErrorIs(t, err, errUpstream)
	require.Less(t, calls, 10)
	require.Less(t, time.Since(start), time.Second)
}

func TestDo_AttemptTimeoutAppliesPerAttempt(t *testing.T) {
	t.Parallel()

	p := fastPolicy(2)
	p.AttemptTimeout = 20 * time.Millisecond
	calls := 0
	_, err := Do(context.Background(), p, func(ctx context.Context, _ int) (int, error) {
		calls++
		<-ctx.Done()
		return 0, ctx.Err()
	}, nil)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, 2, calls)
}

func TestDo_CallerCancellationReturnsLastError(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	p := fastPolicy(5)
	p.BaseDelay = time.Minute
	p.MaxDelay = time.Minute
	p.Ceiling = 10 * time.Minute
	_, err := Do(ctx, p, func(context.Context, int) (int, error) {
		cancel()
		return 0, errUpstream
	}, nil)
	require.ErrorIs(t, err, errUpstream)
}

func TestPolicy_Delay(t *testing.T) {
	t.Parallel()

	p := Policy{BaseDelay: 100 * time.Millisecond, MaxDelay: 500 * time.Millisecond}
	require.Equal(t, time.Duration(0), p.Delay(1))
	require.Equal(t, 100*time.Millisecond, p.Delay(2))
	require.Equal(t, 200*time.Millisecond, p.Delay(3))
	require.Equal(t, 400*time.Millisecond, p.Delay(4))
	require.Equal(t, 500*time.Millisecond, p.Delay(5))
	require.Equal(t, 500*time.Millisecond, p.Delay(9))
}

func TestPolicy_Normalized(t *testing.T) {
	t.Parallel()

	p := Policy{}.Normalized()
	require.Equal(t, 3, p.Attempts)
	require.Equal(t, 250*time.Millisecond, p.BaseDelay)
	require.Equal(t, 4*time.Second, p.MaxDelay)
	require.Equal(t, 15*time.Second, p.AttemptTimeout)
	require.Equal(t, 30*time.Second, p.Ceiling)

	require.Equal(t, MaxAttempts, Policy{Attempts: 99}.Normalized().Attempts)
}
