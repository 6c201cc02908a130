// README: Pending-order aggregator over the generic and legacy source tables.
package feed

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"unihub/internal/modules/order"
	"unihub/internal/types"
)

// PendingSource is the read side of the order store consumed here.
type PendingSource interface {
	PendingOrders(ctx context.Context, serviceTypes []order.ServiceType) ([]order.Order, error)
	PendingRideRequests(ctx context.Context) ([]order.Order, error)
}

// DeclinedSet is the ledger view consumed here.
type DeclinedSet interface {
	Declined(ctx context.Context, driverID types.ID) (map[types.ID]struct{}, error)
}

type AggregatorConfig struct {
	ServiceTypes  []order.ServiceType
	IncludeLegacy bool
}

// Aggregator merges unclaimed work items from both source tables into one
// queue. Either source failing contributes an empty list rather than
// aborting the fetch; the id spaces are disjoint so no cross-source dedup is
// needed.
type Aggregator struct {
	store  PendingSource
	ledger DeclinedSet
	cfg    AggregatorConfig
	log    *zap.Logger
}

func NewAggregator(store PendingSource, ledger DeclinedSet, cfg AggregatorConfig, log *zap.Logger) *Aggregator {
	return &Aggregator{store: store, ledger: ledger, cfg: cfg, log: log}
}

// FetchPending returns the combined pending queue, newest first. When
// driverID is set, orders that driver has declined are subtracted.
func (a *Aggregator) FetchPending(ctx context.Context, driverID types.ID) []order.Order {
	var combined []order.Order

	generic, err := a.store.PendingOrders(ctx, a.cfg.ServiceTypes)
	if err != nil {
		a.log.Warn("aggregator: orders source failed", zap.Error(err))
	} else {
		combined = append(combined, generic...)
	}

	if a.cfg.IncludeLegacy {
		legacy, err := a.store.PendingRideRequests(ctx)
		if err != nil {
			a.log.Warn("aggregator: ride_requests source failed", zap.Error(err))
		} else {
			combined = append(combined, legacy...)
		}
	}

	if driverID != "" {
		declined, err := a.ledger.Declined(ctx, driverID)
		if err != nil {
			a.log.Warn("aggregator: declined lookup failed",
				zap.String("driver_id", string(driverID)), zap.Error(err))
		}
		filtered := combined[:0]
		for _, o := range combined {
			if _, skip := declined[o.ID]; !skip {
				filtered = append(filtered, o)
			}
		}
		combined = filtered
	}

	sort.SliceStable(combined, func(i, j int) bool {
		return combined[i].CreatedAt.After(combined[j].CreatedAt)
	})
	return combined
}

// Declined exposes the ledger view so the bridge can filter push events with
// the same set the poll path uses.
func (a *Aggregator) Declined(ctx context.Context, driverID types.ID) (map[types.ID]struct{}, error) {
	return a.ledger.Declined(ctx, driverID)
}

// Watches reports whether the aggregator's vertical covers the service type.
func (a *Aggregator) Watches(t order.ServiceType) bool {
	for _, s := range a.cfg.ServiceTypes {
		if s == t {
			return true
		}
	}
	return false
}
