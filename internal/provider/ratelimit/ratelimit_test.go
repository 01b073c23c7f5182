package ratelimit

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/chamatitus-cpu/luse-price-api/internal/market"
	"github.com/chamatitus-cpu/luse-price-api/internal/provider"
	"github.com/chamatitus-cpu/luse-price-api/internal/provider/providermock"
)

func TestProvider_FailsFastOverLimit(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	inner := providermock.NewMockProvider(ctrl)
	inner.EXPECT().Name().Return("luse-api").AnyTimes()
	inner.EXPECT().Fetch(gomock.Any()).Return(market.Fallback(), nil).Times(2)

	p := &Provider{P: inner, Limiter: PerMinute(1, 2)}
	require.Equal(t, "luse-api", p.Name())

	for range 2 {
		rows, err := p.Fetch(t.Context())
		require.NoError(t, err)
		require.Len(t, rows, 2)
	}

	_, err := p.Fetch(t.Context())
	require.ErrorIs(t, err, ErrLimited)
	require.Equal(t, provider.KindTransport, provider.KindOf(err))
}

func TestProvider_Unlimited(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	inner := providermock.NewMockProvider(ctrl)
	inner.EXPECT().Fetch(gomock.Any()).Return(nil, nil).Times(20)

	for _, p := range []*Provider{{P: inner, Limiter: PerMinute(0, 0)}, {P: inner}} {
		for range 10 {
			_, err := p.Fetch(t.Context())
			require.NoError(t, err)
		}
	}
}
