// README: Fare estimator tests on the haversine path.
package pricing

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"unihub/internal/modules/order"
	"unihub/internal/types"
)

// Campus landmarks roughly 1.3km apart.
var (
	kk8     = types.Point{Lat: 3.1187, Lng: 101.6545}
	faculty = types.Point{Lat: 3.1279, Lng: 101.6505}
)

func newTestEstimator(t *testing.T) *Estimator {
	t.Helper()
	e, err := NewEstimator("", zap.NewNop())
	require.NoError(t, err)
	return e
}

func TestHaversineKnownDistance(t *testing.T) {
	// KLIA to KL Sentral is about 44km great-circle.
	klia := types.Point{Lat: 2.7456, Lng: 101.7072}
	sentral := types.Point{Lat: 3.1337, Lng: 101.6869}

	km := haversineKm(klia, sentral)
	require.InDelta(t, 43.2, km, 1.5)
}

func TestHaversineZeroDistance(t *testing.T) {
	require.Zero(t, haversineKm(kk8, kk8))
}

func TestEstimateBaseFareWithoutCoords(t *testing.T) {
	e := newTestEstimator(t)
	ctx := context.Background()

	require.Equal(t, 20.0, e.Estimate(ctx, order.ServiceUniMove, nil, nil, nil))
	require.Equal(t, 15.0, e.Estimate(ctx, order.ServiceUniSend, nil, nil, nil))

	// one-sided coordinates are treated as missing
	require.Equal(t, 20.0, e.Estimate(ctx, order.ServiceUniMove, &kk8, nil, nil))
}

func TestEstimateScalesWithDistance(t *testing.T) {
	e := newTestEstimator(t)
	fare := e.Estimate(context.Background(), order.ServiceUniMove, &kk8, &faculty, nil)

	km := haversineKm(kk8, faculty)
	want := math.Round((20+10*km)*100) / 100
	require.Equal(t, want, fare)
	require.Greater(t, fare, 20.0)
}

func TestEstimatePackageMultiplier(t *testing.T) {
	e := newTestEstimator(t)
	ctx := context.Background()

	small, medium, large, odd := "small", "medium", "large", "gigantic"
	base := e.Estimate(ctx, order.ServiceUniSend, nil, nil, &small)
	require.Equal(t, 15.0, base)
	require.Equal(t, 18.75, e.Estimate(ctx, order.ServiceUniSend, nil, nil, &medium))
	require.Equal(t, 22.5, e.Estimate(ctx, order.ServiceUniSend, nil, nil, &large))
	// unknown sizes price as small
	require.Equal(t, base, e.Estimate(ctx, order.ServiceUniSend, nil, nil, &odd))
}

func TestEstimateMultiplierIsDeliveryOnly(t *testing.T) {
	e := newTestEstimator(t)
	large := "large"
	require.Equal(t, 20.0, e.Estimate(context.Background(), order.ServiceUniMove, nil, nil, &large))
}

func TestEstimateUnknownServiceType(t *testing.T) {
	e := newTestEstimator(t)
	require.Equal(t, 20.0, e.Estimate(context.Background(), "hover", nil, nil, nil))
}

func TestEstimateRounding(t *testing.T) {
	e := newTestEstimator(t)
	fare := e.Estimate(context.Background(), order.ServiceUniMove, &kk8, &faculty, nil)
	require.Equal(t, math.Round(fare*100)/100, fare)
}
