// README: Customer ride controller; watches one order and raises notifications on transitions.
package customer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"unihub/internal/modules/feed"
	"unihub/internal/modules/order"
	"unihub/internal/observability"
	"unihub/internal/types"
)

// Phase is the customer-side view, the same four-state model the driver
// holds, derived from the backend status.
type Phase string

const (
	PhaseSearching Phase = "searching"
	PhaseAccepting Phase = "accepting"
	PhaseOngoing   Phase = "ongoing"
	PhaseCompleted Phase = "completed"
	PhaseCancelled Phase = "cancelled"
)

var ErrBusy = errors.New("operation already in flight")

func PhaseForStatus(s order.Status) Phase {
	switch s {
	case order.StatusAccepted:
		return PhaseAccepting
	case order.StatusInProgress:
		return PhaseOngoing
	case order.StatusCompleted:
		return PhaseCompleted
	case order.StatusCancelled:
		return PhaseCancelled
	default:
		return PhaseSearching
	}
}

// Controller owns the requesting side of one order: a scoped realtime watch,
// transition notifications, cancel and pay.
type Controller struct {
	svc *Service
	log *zap.Logger

	mu       sync.Mutex
	current  order.Order
	last     order.Status
	paid     bool
	inFlight bool

	cancelWatch context.CancelFunc
	stopSub     func()
	wg          sync.WaitGroup
}

func newController(svc *Service, o order.Order) *Controller {
	return &Controller{
		svc:     svc,
		log:     svc.log,
		current: o,
		last:    o.Status,
	}
}

func (c *Controller) Order() order.Order {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return PhaseForStatus(c.current.Status)
}

// Start subscribes to the order's source table and reconciles every update
// that names this order. The watch re-fetches the full row per event, same
// as the driver-side bridge.
func (c *Controller) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	id, src := c.current.ID, c.current.Source

	events, stopSub, err := c.svc.realtime.Subscribe(ctx, []order.Source{src})
	if err != nil {
		cancel()
		return err
	}
	c.mu.Lock()
	c.cancelWatch = cancel
	c.stopSub = stopSub
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				if ev.OrderID != id {
					continue
				}
				fresh, err := c.svc.store.Get(ctx, src, id)
				if err != nil {
					if err != order.ErrNotFound {
						c.log.Warn("order watch re-fetch failed", zap.Error(err))
					}
					continue
				}
				c.HandleOrderUpdate(*fresh)
			}
		}
	}()
	return nil
}

// Stop tears down the subscription and waits for the watch loop.
func (c *Controller) Stop() {
	c.mu.Lock()
	cancel, stopSub := c.cancelWatch, c.stopSub
	c.cancelWatch, c.stopSub = nil, nil
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	if stopSub != nil {
		stopSub()
	}
	c.wg.Wait()
}

// HandleOrderUpdate advances local state from a pushed row. Re-delivery of
// the same status is a no-op, so duplicated or reordered events can't raise
// duplicate notifications.
func (c *Controller) HandleOrderUpdate(o order.Order) {
	c.mu.Lock()
	if o.Status == c.last {
		c.current = o
		c.mu.Unlock()
		return
	}
	c.current = o
	c.last = o.Status
	customerID := o.CustomerID
	c.mu.Unlock()

	title, message, severity := transitionNotice(o)
	if title == "" {
		return
	}
	if err := c.svc.notifier.Notify(context.Background(), customerID, title, message, severity); err != nil {
		observability.NotifyFailuresTotal.Inc()
		c.log.Warn("notification failed", zap.String("order_id", string(o.ID)), zap.Error(err))
	}
}

// Cancel is valid only before pickup. The conditional write arbitrates the
// race against the driver's pickup transition.
func (c *Controller) Cancel(ctx context.Context) error {
	c.mu.Lock()
	if c.inFlight {
		c.mu.Unlock()
		return ErrBusy
	}
	cur := c.current
	if cur.Status != order.StatusPending && cur.Status != order.StatusAccepted {
		c.mu.Unlock()
		return order.ErrInvalidState
	}
	c.inFlight = true
	c.mu.Unlock()

	ok, err := c.svc.store.Cancel(ctx, cur.Source, cur.ID, cur.CustomerID)

	c.mu.Lock()
	c.inFlight = false
	if err == nil && ok {
		c.current.Status = order.StatusCancelled
		c.last = order.StatusCancelled
	}
	c.mu.Unlock()

	if err != nil {
		observability.OperationErrorsTotal.WithLabelValues("cancel").Inc()
		return err
	}
	if !ok {
		return order.ErrInvalidState
	}

	if c.svc.publisher != nil {
		ev := feed.Event{
			Table:    cur.Source,
			Type:     "UPDATE",
			OrderID:  cur.ID,
			Status:   order.StatusCancelled,
			DriverID: cur.DriverID,
		}
		if perr := c.svc.publisher.Publish(ctx, ev); perr != nil {
			c.log.Warn("feed publish failed", zap.String("order_id", string(cur.ID)), zap.Error(perr))
		}
	}
	return nil
}

// Pay records a pending transaction once a driver is assigned; capture is
// the payment collaborator's job. The in-flight guard keeps a double submit
// from reaching the transaction store twice.
func (c *Controller) Pay(ctx context.Context) error {
	c.mu.Lock()
	if c.inFlight {
		c.mu.Unlock()
		return ErrBusy
	}
	cur := c.current
	if cur.DriverID == nil {
		c.mu.Unlock()
		return order.ErrInvalidState
	}
	if c.paid {
		c.mu.Unlock()
		return nil
	}
	c.inFlight = true
	c.mu.Unlock()

	t := Transaction{
		ID:         types.ID(uuid.NewString()),
		OrderID:    cur.ID,
		CustomerID: cur.CustomerID,
		DriverID:   *cur.DriverID,
		Amount:     cur.TotalAmount,
		Status:     "pending",
		CreatedAt:  time.Now().UTC(),
	}
	err := c.svc.tx.CreateTransaction(ctx, t)

	c.mu.Lock()
	c.inFlight = false
	if err == nil {
		c.paid = true
	}
	c.mu.Unlock()

	if err != nil {
		observability.OperationErrorsTotal.WithLabelValues("pay").Inc()
	}
	return err
}

func transitionNotice(o order.Order) (title, message, severity string) {
	switch o.Status {
	case order.StatusAccepted:
		if o.ServiceType == order.ServiceUniSend {
			return "Courier found", "A courier accepted your delivery request.", "info"
		}
		return "Driver found", "A driver accepted your ride request.", "info"
	case order.StatusInProgress:
		if o.ServiceType == order.ServiceUniSend {
			return "Parcel picked up", "Your parcel is on its way.", "info"
		}
		return "Ride started", "Your ride is in progress.", "info"
	case order.StatusCompleted:
		if o.ServiceType == order.ServiceUniSend {
			return "Delivered", "Your parcel has been delivered.", "success"
		}
		return "Ride completed", "You have arrived. Thanks for riding with us.", "success"
	case order.StatusCancelled:
		return "Order cancelled", "Your order has been cancelled.", "warning"
	}
	return "", "", ""
}
