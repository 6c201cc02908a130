// README: Unified order entity and backend status definitions.
package order

import (
	"errors"
	"time"

	"unihub/internal/types"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusAccepted   Status = "accepted"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

type ServiceType string

const (
	ServiceUniMove ServiceType = "unimove"
	ServiceUniSend ServiceType = "unisend"
)

// Source identifies which backing table a row came from. The two tables have
// disjoint id spaces; every mutation must be routed back to the row's own
// table.
type Source string

const (
	SourceOrders       Source = "orders"
	SourceRideRequests Source = "ride_requests"
)

// Order is the common shape both source tables normalize into. A coordinate
// pair is either fully present or nil, never half-populated.
type Order struct {
	ID              types.ID
	Source          Source
	CustomerID      types.ID
	DriverID        *types.ID
	PickupAddress   string
	DeliveryAddress string
	PickupCoords    *types.Point
	DeliveryCoords  *types.Point
	ServiceType     ServiceType
	PackageSize     *string
	TotalAmount     float64
	Status          Status
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

var (
	ErrNotFound     = errors.New("order not found")
	ErrOrderTaken   = errors.New("order no longer available")
	ErrConflict     = errors.New("order state conflict")
	ErrInvalidState = errors.New("invalid state transition")
	ErrBadRequest   = errors.New("bad request")
)

// AllowedTransitions represents the backend order state flow as code.
var AllowedTransitions = map[Status][]Status{
	StatusPending:    {StatusAccepted, StatusCancelled},
	StatusAccepted:   {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusCompleted},
}

func CanTransition(from, to Status) bool {
	next, ok := AllowedTransitions[from]
	if !ok {
		return false
	}
	for _, s := range next {
		if s == to {
			return true
		}
	}
	return false
}

func IsTerminal(s Status) bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Claimable reports whether a row is still open for the accept race.
func (o *Order) Claimable() bool {
	return o.Status == StatusPending && o.DriverID == nil
}
