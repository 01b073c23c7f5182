package breaker

import (
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/chamatitus-cpu/luse-price-api/internal/market"
	"github.com/chamatitus-cpu/luse-price-api/internal/provider"
	"github.com/chamatitus-cpu/luse-price-api/internal/provider/providermock"
)

func TestProvider_OpensAfterConsecutiveFailures(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	inner := providermock.NewMockProvider(ctrl)
	inner.EXPECT().Name().Return("luse-market-data").AnyTimes()
	upstream := provider.Transport("luse-market-data", errors.New("status 503"))
	inner.EXPECT().Fetch(gomock.Any()).Return(nil, upstream).Times(2)

	b := New(inner, Config{Failures: 2, Cooldown: time.Hour})

	for range 2 {
		_, err := b.Fetch(t.Context())
		require.ErrorIs(t, err, upstream)
	}
	require.Equal(t, gobreaker.StateOpen, b.State())

	// Open: the inner provider is not called again.
	_, err := b.Fetch(t.Context())
	require.ErrorIs(t, err, gobreaker.ErrOpenState)
	require.Equal(t, provider.KindTransport, provider.KindOf(err))
}

func TestProvider_HalfOpenTrialCloses(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	inner := providermock.NewMockProvider(ctrl)
	inner.EXPECT().Name().Return("luse-api").AnyTimes()
	gomock.InOrder(
		inner.EXPECT().Fetch(gomock.Any()).Return(nil, errors.New("down")),
		inner.EXPECT().Fetch(gomock.Any()).Return(market.Fallback(), nil),
	)

	b := New(inner, Config{Failures: 1, Cooldown: 20 * time.Millisecond})
	_, err := b.Fetch(t.Context())
	require.Error(t, err)
	require.Equal(t, gobreaker.StateOpen, b.State())

	require.Eventually(t, func() bool { return b.State() == gobreaker.StateHalfOpen }, time.Second, 5*time.Millisecond)

	rows, err := b.Fetch(t.Context())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, gobreaker.StateClosed, b.State())
}
