// README: Realtime event bridge; push subscription plus poll backstop feeding the queue and notify sinks.
package feed

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"unihub/internal/kv"
	"unihub/internal/modules/order"
	"unihub/internal/observability"
	"unihub/internal/types"
)

// RowFetcher re-reads a full row before anything is surfaced; the bridge
// never acts on a partial push payload.
type RowFetcher interface {
	Get(ctx context.Context, source order.Source, id types.ID) (*order.Order, error)
}

// Callback receives qualifying orders from either producer.
type Callback func(order.Order)

// BridgeSinks are the bridge's two consumers. Queue receives every
// qualifying order on every delivery, so a fresh session rebuilds its
// actionable queue from the first poll; its consumer dedups by id. Notify
// fires at most once per order per device, tracked in the persisted notified
// set, and is meant for user-facing pushes only.
type BridgeSinks struct {
	Queue  Callback
	Notify Callback
}

type BridgeConfig struct {
	DriverID     types.ID
	PollInterval time.Duration
}

// Bridge surfaces new pending work to one driver from two producers: the
// push subscription and a fixed-interval poll over the aggregator. The two
// may deliver the same change zero, one, or many times in any order; the
// notified set makes the Notify sink idempotent across them.
type Bridge struct {
	agg      *Aggregator
	store    RowFetcher
	realtime Realtime
	notified kv.SetStore
	cfg      BridgeConfig
	sinks    BridgeSinks
	log      *zap.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	stopSub func()
	wg      sync.WaitGroup
}

func NewBridge(agg *Aggregator, store RowFetcher, realtime Realtime, notified kv.SetStore, cfg BridgeConfig, sinks BridgeSinks, log *zap.Logger) *Bridge {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 60 * time.Second
	}
	return &Bridge{
		agg:      agg,
		store:    store,
		realtime: realtime,
		notified: notified,
		cfg:      cfg,
		sinks:    sinks,
		log:      log,
	}
}

func (b *Bridge) watchedTables() []order.Source {
	tables := []order.Source{order.SourceOrders}
	if b.agg.cfg.IncludeLegacy {
		tables = append(tables, order.SourceRideRequests)
	}
	return tables
}

// Start subscribes to the watched tables and launches the event and poll
// loops. The first poll runs immediately so a fresh session sees the current
// queue without waiting a full interval.
func (b *Bridge) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)

	events, stopSub, err := b.realtime.Subscribe(ctx, b.watchedTables())
	if err != nil {
		cancel()
		return err
	}

	b.mu.Lock()
	b.cancel = cancel
	b.stopSub = stopSub
	b.mu.Unlock()

	b.wg.Add(2)
	go b.eventLoop(ctx, events)
	go b.pollLoop(ctx)
	return nil
}

// Stop tears down the subscription, the poll timer, and both loops. Safe to
// call more than once.
func (b *Bridge) Stop() {
	b.mu.Lock()
	cancel, stopSub := b.cancel, b.stopSub
	b.cancel, b.stopSub = nil, nil
	b.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if stopSub != nil {
		stopSub()
	}
	b.wg.Wait()
}

func (b *Bridge) eventLoop(ctx context.Context, events <-chan Event) {
	defer b.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			b.handleEvent(ctx, ev)
		}
	}
}

func (b *Bridge) handleEvent(ctx context.Context, ev Event) {
	observability.FeedRealtimeEventsTotal.WithLabelValues(string(ev.Table)).Inc()

	// Only rows in (or moving into) the offerable state matter here.
	if ev.Status != order.StatusPending || ev.DriverID != nil {
		return
	}

	o, err := b.store.Get(ctx, ev.Table, ev.OrderID)
	if err != nil {
		if err != order.ErrNotFound {
			b.log.Warn("bridge: row re-fetch failed",
				zap.String("order_id", string(ev.OrderID)), zap.Error(err))
		}
		return
	}
	b.offer(ctx, *o)
}

func (b *Bridge) pollLoop(ctx context.Context) {
	defer b.wg.Done()

	b.pollOnce(ctx)

	ticker := time.NewTicker(b.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.pollOnce(ctx)
		}
	}
}

func (b *Bridge) pollOnce(ctx context.Context) {
	observability.FeedPollCyclesTotal.Inc()
	for _, o := range b.agg.FetchPending(ctx, b.cfg.DriverID) {
		b.offer(ctx, o)
	}
}

// offer feeds both sinks. The queue sink sees every qualifying delivery
// because the actionable queue must survive session reopens and restarts;
// only the user-facing notify sink is gated by the persisted notified set.
func (b *Bridge) offer(ctx context.Context, o order.Order) {
	if !o.Claimable() || !b.agg.Watches(o.ServiceType) {
		return
	}

	declined, err := b.agg.Declined(ctx, b.cfg.DriverID)
	if err == nil {
		if _, skip := declined[o.ID]; skip {
			return
		}
	}

	if b.sinks.Queue != nil {
		b.sinks.Queue(o)
	}
	if b.sinks.Notify == nil {
		return
	}

	key := notifiedKey(b.cfg.DriverID)
	seen, err := b.notified.Contains(ctx, key, string(o.ID))
	if err != nil {
		// Re-notifying on a failed lookup is the safe direction.
		b.log.Warn("bridge: notified lookup failed", zap.Error(err))
	}
	if seen {
		return
	}
	if err := b.notified.Add(ctx, key, string(o.ID)); err != nil {
		b.log.Warn("bridge: notified write failed", zap.Error(err))
	}
	b.sinks.Notify(o)
}

func notifiedKey(driverID types.ID) string {
	return "notified:" + string(driverID)
}
