// README: Driver order-lifecycle controller; client-side phase machine over the backend status flow.
package driver

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"unihub/internal/modules/feed"
	"unihub/internal/modules/order"
	"unihub/internal/observability"
	"unihub/internal/types"
)

// Phase is the driver-side view of the lifecycle. searching means no current
// order, watching the pending queue; accepting and ongoing mirror the
// backend accepted and in_progress statuses; completed is terminal until the
// driver explicitly resets.
type Phase string

const (
	PhaseSearching Phase = "searching"
	PhaseAccepting Phase = "accepting"
	PhaseOngoing   Phase = "ongoing"
	PhaseCompleted Phase = "completed"
)

var ErrBusy = errors.New("operation already in flight")

// OrderStore is the mutation surface the controller needs.
type OrderStore interface {
	Claim(ctx context.Context, source order.Source, id, driverID types.ID) error
	UpdateStatus(ctx context.Context, source order.Source, id types.ID, from, to order.Status, driverID types.ID) (bool, error)
	Get(ctx context.Context, source order.Source, id types.ID) (*order.Order, error)
}

// DeclineRecorder is the ledger's write side.
type DeclineRecorder interface {
	Record(ctx context.Context, driverID, orderID types.ID, orderType string) error
}

// Stats is the external driver statistics collaborator.
type Stats interface {
	IncrementRideCount(ctx context.Context, driverID types.ID) error
	RecordEarnings(ctx context.Context, driverID types.ID, amount float64) error
}

// EventPublisher mirrors successful writes onto the change feed so the
// customer's watcher (and other clients) see them without polling.
type EventPublisher interface {
	Publish(ctx context.Context, ev feed.Event) error
}

// Controller owns one driver's client-side state. All backend writes are
// conditional; local state only advances on a confirmed write, so a lost
// accept race or a concurrent cancellation can never leave the controller
// claiming an order it does not hold.
type Controller struct {
	driverID  types.ID
	store     OrderStore
	ledger    DeclineRecorder
	stats     Stats
	publisher EventPublisher
	log       *zap.Logger

	mu       sync.Mutex
	phase    Phase
	current  *order.Order
	pending  []order.Order
	inFlight bool
}

func NewController(driverID types.ID, store OrderStore, ledger DeclineRecorder, stats Stats, publisher EventPublisher, log *zap.Logger) *Controller {
	return &Controller{
		driverID:  driverID,
		store:     store,
		ledger:    ledger,
		stats:     stats,
		publisher: publisher,
		log:       log,
		phase:     PhaseSearching,
	}
}

func (c *Controller) DriverID() types.ID { return c.driverID }

func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

func (c *Controller) Current() *order.Order {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return nil
	}
	cp := *c.current
	return &cp
}

// Pending returns a snapshot of the offered queue.
func (c *Controller) Pending() []order.Order {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]order.Order, len(c.pending))
	copy(out, c.pending)
	return out
}

// HandleOffer is the bridge callback target. Repeated delivery of the same
// order id is a no-op, which is what keeps the push+poll pair idempotent at
// this layer.
func (c *Controller) HandleOffer(o order.Order) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != nil && c.current.ID == o.ID {
		return
	}
	for _, p := range c.pending {
		if p.ID == o.ID {
			return
		}
	}
	c.pending = append(c.pending, o)
}

// HandleOrderUpdate reconciles a realtime push about the current order. The
// only transition another party can impose on us is cancellation, which is
// reachable from any non-terminal phase and resets the controller to
// searching.
func (c *Controller) HandleOrderUpdate(o order.Order) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil || c.current.ID != o.ID {
		return
	}
	if o.Status == order.StatusCancelled && c.phase != PhaseCompleted {
		c.current = nil
		c.phase = PhaseSearching
		return
	}
	// Refresh the local copy; forward transitions are always our own writes.
	c.current = &o
}

// Accept races to claim a pending order. A lost race surfaces as
// order.ErrOrderTaken and removes the order from the queue; any other
// failure leaves local state untouched for retry.
func (c *Controller) Accept(ctx context.Context, orderID types.ID) error {
	c.mu.Lock()
	if c.inFlight {
		c.mu.Unlock()
		return ErrBusy
	}
	if c.phase != PhaseSearching {
		c.mu.Unlock()
		return order.ErrInvalidState
	}
	target, ok := c.findPending(orderID)
	if !ok {
		c.mu.Unlock()
		return order.ErrNotFound
	}
	c.inFlight = true
	c.mu.Unlock()

	err := c.store.Claim(ctx, target.Source, target.ID, c.driverID)

	c.mu.Lock()
	c.inFlight = false

	if errors.Is(err, order.ErrOrderTaken) {
		observability.ClaimConflictsTotal.Inc()
		c.removePending(orderID)
		c.mu.Unlock()
		return order.ErrOrderTaken
	}
	if err != nil {
		observability.OperationErrorsTotal.WithLabelValues("accept").Inc()
		c.mu.Unlock()
		return err
	}

	observability.OrdersClaimedTotal.Inc()
	c.removePending(orderID)
	claimed := target
	claimed.DriverID = &c.driverID
	claimed.Status = order.StatusAccepted
	c.current = &claimed
	c.phase = PhaseAccepting
	c.mu.Unlock()

	c.publish(ctx, claimed)
	return nil
}

// Decline is local-only: the order stays pending for everyone else. The
// ledger write keeps it off this driver's queue across fetches.
func (c *Controller) Decline(ctx context.Context, orderID types.ID) error {
	c.mu.Lock()
	target, ok := c.findPending(orderID)
	if !ok {
		c.mu.Unlock()
		return order.ErrNotFound
	}
	c.removePending(orderID)
	c.mu.Unlock()

	observability.DeclinesTotal.Inc()
	return c.ledger.Record(ctx, c.driverID, target.ID, declineType(target))
}

// CompletePickup moves the current order accepted → in_progress.
func (c *Controller) CompletePickup(ctx context.Context) error {
	return c.advance(ctx, PhaseAccepting, order.StatusAccepted, order.StatusInProgress, PhaseOngoing, "pickup")
}

// Complete moves the current order in_progress → completed and records the
// driver's stats as a best-effort side effect.
func (c *Controller) Complete(ctx context.Context) error {
	if err := c.advance(ctx, PhaseOngoing, order.StatusInProgress, order.StatusCompleted, PhaseCompleted, "complete"); err != nil {
		return err
	}
	cur := c.Current()
	if cur == nil {
		return nil
	}

	if cur.ServiceType == order.ServiceUniMove {
		if err := c.stats.IncrementRideCount(ctx, c.driverID); err != nil {
			c.log.Warn("ride count update failed", zap.Error(err))
		}
	}
	if err := c.stats.RecordEarnings(ctx, c.driverID, cur.TotalAmount); err != nil {
		c.log.Warn("earnings update failed", zap.Error(err))
	}
	return nil
}

// FindNewOrder is the explicit local reset out of completed. No backend
// call is involved.
func (c *Controller) FindNewOrder() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != PhaseCompleted {
		return order.ErrInvalidState
	}
	c.current = nil
	c.phase = PhaseSearching
	return nil
}

func (c *Controller) advance(ctx context.Context, wantPhase Phase, from, to order.Status, nextPhase Phase, op string) error {
	c.mu.Lock()
	if c.inFlight {
		c.mu.Unlock()
		return ErrBusy
	}
	if c.phase != wantPhase || c.current == nil {
		c.mu.Unlock()
		return order.ErrInvalidState
	}
	cur := *c.current
	c.inFlight = true
	c.mu.Unlock()

	ok, err := c.store.UpdateStatus(ctx, cur.Source, cur.ID, from, to, c.driverID)

	if err != nil {
		observability.OperationErrorsTotal.WithLabelValues(op).Inc()
		c.mu.Lock()
		c.inFlight = false
		c.mu.Unlock()
		return err
	}
	if !ok {
		// The row moved underneath us. If it was cancelled, fold back to
		// searching quietly; anything else is a genuine conflict.
		fresh, ferr := c.store.Get(ctx, cur.Source, cur.ID)
		c.mu.Lock()
		c.inFlight = false
		if ferr == nil && fresh.Status == order.StatusCancelled {
			c.current = nil
			c.phase = PhaseSearching
			c.mu.Unlock()
			return nil
		}
		c.mu.Unlock()
		return order.ErrConflict
	}

	cur.Status = to
	c.mu.Lock()
	c.inFlight = false
	c.current = &cur
	c.phase = nextPhase
	c.mu.Unlock()

	c.publish(ctx, cur)
	return nil
}

func (c *Controller) publish(ctx context.Context, o order.Order) {
	if c.publisher == nil {
		return
	}
	ev := feed.Event{
		Table:    o.Source,
		Type:     "UPDATE",
		OrderID:  o.ID,
		Status:   o.Status,
		DriverID: o.DriverID,
	}
	if err := c.publisher.Publish(ctx, ev); err != nil {
		c.log.Warn("feed publish failed", zap.String("order_id", string(o.ID)), zap.Error(err))
	}
}

// callers hold c.mu
func (c *Controller) findPending(id types.ID) (order.Order, bool) {
	for _, p := range c.pending {
		if p.ID == id {
			return p, true
		}
	}
	return order.Order{}, false
}

func (c *Controller) removePending(id types.ID) {
	for i, p := range c.pending {
		if p.ID == id {
			c.pending = append(c.pending[:i], c.pending[i+1:]...)
			return
		}
	}
}

func declineType(o order.Order) string {
	if o.Source == order.SourceRideRequests {
		return "ride_request"
	}
	return string(o.ServiceType)
}
