// README: Aggregator tests: dual-source merge, source degrade, declined filtering, ordering.
package feed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"unihub/internal/modules/order"
	"unihub/internal/types"
)

type fakeSource struct {
	orders     []order.Order
	rides      []order.Order
	ordersErr  error
	ridesErr   error
	lastFilter []order.ServiceType
}

func (f *fakeSource) PendingOrders(_ context.Context, serviceTypes []order.ServiceType) ([]order.Order, error) {
	f.lastFilter = serviceTypes
	return f.orders, f.ordersErr
}

func (f *fakeSource) PendingRideRequests(context.Context) ([]order.Order, error) {
	return f.rides, f.ridesErr
}

type fakeDeclined struct {
	set map[types.ID]struct{}
	err error
}

func (f *fakeDeclined) Declined(context.Context, types.ID) (map[types.ID]struct{}, error) {
	return f.set, f.err
}

func pendingOrder(id string, serviceType order.ServiceType, age time.Duration) order.Order {
	return order.Order{
		ID:          types.ID(id),
		Source:      order.SourceOrders,
		ServiceType: serviceType,
		Status:      order.StatusPending,
		CreatedAt:   time.Now().Add(-age),
	}
}

func TestFetchPendingMergesSources(t *testing.T) {
	src := &fakeSource{
		orders: []order.Order{pendingOrder("o1", order.ServiceUniMove, 2*time.Minute)},
		rides:  []order.Order{pendingOrder("r1", order.ServiceUniMove, time.Minute)},
	}
	agg := NewAggregator(src, &fakeDeclined{}, AggregatorConfig{
		ServiceTypes:  []order.ServiceType{order.ServiceUniMove},
		IncludeLegacy: true,
	}, zap.NewNop())

	got := agg.FetchPending(context.Background(), "d1")
	require.Len(t, got, 2)
	// newest first: the ride request is more recent
	require.Equal(t, types.ID("r1"), got[0].ID)
	require.Equal(t, types.ID("o1"), got[1].ID)
	require.Equal(t, []order.ServiceType{order.ServiceUniMove}, src.lastFilter)
}

func TestFetchPendingSkipsLegacyWhenNotConfigured(t *testing.T) {
	src := &fakeSource{
		orders: []order.Order{pendingOrder("o1", order.ServiceUniSend, time.Minute)},
		rides:  []order.Order{pendingOrder("r1", order.ServiceUniMove, time.Minute)},
	}
	agg := NewAggregator(src, &fakeDeclined{}, AggregatorConfig{
		ServiceTypes: []order.ServiceType{order.ServiceUniSend},
	}, zap.NewNop())

	got := agg.FetchPending(context.Background(), "d1")
	require.Len(t, got, 1)
	require.Equal(t, types.ID("o1"), got[0].ID)
}

// One source failing must not empty the whole queue.
func TestFetchPendingDegradesPerSource(t *testing.T) {
	src := &fakeSource{
		ordersErr: errors.New("db down"),
		rides:     []order.Order{pendingOrder("r1", order.ServiceUniMove, time.Minute)},
	}
	agg := NewAggregator(src, &fakeDeclined{}, AggregatorConfig{
		ServiceTypes:  []order.ServiceType{order.ServiceUniMove},
		IncludeLegacy: true,
	}, zap.NewNop())

	got := agg.FetchPending(context.Background(), "d1")
	require.Len(t, got, 1)
	require.Equal(t, types.ID("r1"), got[0].ID)
}

func TestFetchPendingFiltersDeclined(t *testing.T) {
	src := &fakeSource{
		orders: []order.Order{
			pendingOrder("o1", order.ServiceUniMove, 2*time.Minute),
			pendingOrder("o2", order.ServiceUniMove, time.Minute),
		},
	}
	declined := &fakeDeclined{set: map[types.ID]struct{}{"o1": {}}}
	agg := NewAggregator(src, declined, AggregatorConfig{
		ServiceTypes: []order.ServiceType{order.ServiceUniMove},
	}, zap.NewNop())

	got := agg.FetchPending(context.Background(), "d1")
	require.Len(t, got, 1)
	require.Equal(t, types.ID("o2"), got[0].ID)
}

// An anonymous fetch skips declined filtering entirely.
func TestFetchPendingNoDriverNoFilter(t *testing.T) {
	src := &fakeSource{
		orders: []order.Order{pendingOrder("o1", order.ServiceUniMove, time.Minute)},
	}
	declined := &fakeDeclined{set: map[types.ID]struct{}{"o1": {}}}
	agg := NewAggregator(src, declined, AggregatorConfig{
		ServiceTypes: []order.ServiceType{order.ServiceUniMove},
	}, zap.NewNop())

	got := agg.FetchPending(context.Background(), "")
	require.Len(t, got, 1)
}

// A declined-lookup failure keeps the queue intact instead of dropping it.
func TestFetchPendingDeclinedLookupFailure(t *testing.T) {
	src := &fakeSource{
		orders: []order.Order{pendingOrder("o1", order.ServiceUniMove, time.Minute)},
	}
	declined := &fakeDeclined{err: errors.New("redis down")}
	agg := NewAggregator(src, declined, AggregatorConfig{
		ServiceTypes: []order.ServiceType{order.ServiceUniMove},
	}, zap.NewNop())

	got := agg.FetchPending(context.Background(), "d1")
	require.Len(t, got, 1)
}

func TestWatches(t *testing.T) {
	agg := NewAggregator(&fakeSource{}, &fakeDeclined{}, AggregatorConfig{
		ServiceTypes: []order.ServiceType{order.ServiceUniMove},
	}, zap.NewNop())

	require.True(t, agg.Watches(order.ServiceUniMove))
	require.False(t, agg.Watches(order.ServiceUniSend))
}
