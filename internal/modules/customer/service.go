// README: Customer-side order creation; single canonical write path.
package customer

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"unihub/internal/modules/feed"
	"unihub/internal/modules/order"
	"unihub/internal/observability"
	"unihub/internal/types"
)

// OrderStore is the store surface the customer side needs.
type OrderStore interface {
	Create(ctx context.Context, o *order.Order) error
	Get(ctx context.Context, source order.Source, id types.ID) (*order.Order, error)
	Cancel(ctx context.Context, source order.Source, id, customerID types.ID) (bool, error)
}

// Notifier is the user-visible notification side-channel (consumed, not
// owned, by this core).
type Notifier interface {
	Notify(ctx context.Context, userID types.ID, title, message, severity string) error
}

// TransactionStore records payment intents; capture is external.
type TransactionStore interface {
	CreateTransaction(ctx context.Context, t Transaction) error
}

// FareEstimator fills in total_amount when the caller doesn't supply one.
type FareEstimator interface {
	Estimate(ctx context.Context, serviceType order.ServiceType, pickup, dropoff *types.Point, packageSize *string) float64
}

type EventPublisher interface {
	Publish(ctx context.Context, ev feed.Event) error
}

type Transaction struct {
	ID         types.ID
	OrderID    types.ID
	CustomerID types.ID
	DriverID   types.ID
	Amount     float64
	Status     string
	CreatedAt  time.Time
}

type CreateCommand struct {
	CustomerID      types.ID
	ServiceType     order.ServiceType
	PickupAddress   string
	DeliveryAddress string
	PickupCoords    *types.Point
	DeliveryCoords  *types.Point
	PackageSize     *string
	TotalAmount     float64
}

type Service struct {
	store     OrderStore
	notifier  Notifier
	tx        TransactionStore
	estimator FareEstimator
	publisher EventPublisher
	realtime  feed.Realtime
	log       *zap.Logger
}

func NewService(store OrderStore, notifier Notifier, tx TransactionStore, estimator FareEstimator, publisher EventPublisher, realtime feed.Realtime, log *zap.Logger) *Service {
	return &Service{
		store:     store,
		notifier:  notifier,
		tx:        tx,
		estimator: estimator,
		publisher: publisher,
		realtime:  realtime,
		log:       log,
	}
}

// CreateOrder writes a pending, unclaimed order to the canonical table. There
// is deliberately no legacy-table fallback: a partial failure must never be
// able to create two rows for one request.
func (s *Service) CreateOrder(ctx context.Context, cmd CreateCommand) (*order.Order, error) {
	if cmd.CustomerID == "" {
		return nil, order.ErrBadRequest
	}
	if cmd.ServiceType != order.ServiceUniMove && cmd.ServiceType != order.ServiceUniSend {
		return nil, order.ErrBadRequest
	}
	if cmd.TotalAmount < 0 {
		return nil, order.ErrBadRequest
	}

	amount := cmd.TotalAmount
	if amount == 0 && s.estimator != nil {
		amount = s.estimator.Estimate(ctx, cmd.ServiceType, cmd.PickupCoords, cmd.DeliveryCoords, cmd.PackageSize)
	}

	now := time.Now().UTC()
	o := &order.Order{
		ID:              types.ID(uuid.NewString()),
		Source:          order.SourceOrders,
		CustomerID:      cmd.CustomerID,
		PickupAddress:   cmd.PickupAddress,
		DeliveryAddress: cmd.DeliveryAddress,
		PickupCoords:    cmd.PickupCoords,
		DeliveryCoords:  cmd.DeliveryCoords,
		ServiceType:     cmd.ServiceType,
		PackageSize:     cmd.PackageSize,
		TotalAmount:     amount,
		Status:          order.StatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.store.Create(ctx, o); err != nil {
		observability.OperationErrorsTotal.WithLabelValues("create").Inc()
		return nil, err
	}
	observability.OrdersCreatedTotal.WithLabelValues(string(o.ServiceType)).Inc()

	if s.publisher != nil {
		ev := feed.Event{Table: o.Source, Type: "INSERT", OrderID: o.ID, Status: o.Status}
		if err := s.publisher.Publish(ctx, ev); err != nil {
			s.log.Warn("feed publish failed", zap.String("order_id", string(o.ID)), zap.Error(err))
		}
	}
	return o, nil
}

// Lookup finds an order by id across both source tables; reads, unlike
// writes, may consult the legacy table.
func (s *Service) Lookup(ctx context.Context, id types.ID) (*order.Order, error) {
	o, err := s.store.Get(ctx, order.SourceOrders, id)
	if err == order.ErrNotFound {
		return s.store.Get(ctx, order.SourceRideRequests, id)
	}
	return o, err
}
