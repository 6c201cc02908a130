// README: Row-to-Order adapters for both source tables and the wire point codec.
package order

import (
	"strconv"
	"strings"
	"time"

	"unihub/internal/types"
)

// OrderRow is the raw shape of a generic orders-table row. Nullable columns
// are pointers; ToOrder maps every absent field to a usable default so
// conversion never fails.
type OrderRow struct {
	ID              string
	CustomerID      string
	DriverID        *string
	PickupAddress   *string
	DeliveryAddress *string
	PickupPoint     *string
	DeliveryPoint   *string
	Status          *string
	ServiceType     *string
	PackageSize     *string
	TotalAmount     *float64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (r OrderRow) ToOrder() Order {
	o := Order{
		ID:              types.ID(r.ID),
		Source:          SourceOrders,
		CustomerID:      types.ID(r.CustomerID),
		DriverID:        toIDPtr(r.DriverID),
		PickupAddress:   deref(r.PickupAddress),
		DeliveryAddress: deref(r.DeliveryAddress),
		PickupCoords:    ParseWirePoint(r.PickupPoint),
		DeliveryCoords:  ParseWirePoint(r.DeliveryPoint),
		ServiceType:     ServiceUniMove,
		PackageSize:     r.PackageSize,
		Status:          StatusPending,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
	if r.Status != nil && *r.Status != "" {
		o.Status = Status(*r.Status)
	}
	if r.ServiceType != nil && *r.ServiceType != "" {
		o.ServiceType = ServiceType(*r.ServiceType)
	}
	if r.TotalAmount != nil {
		o.TotalAmount = *r.TotalAmount
	}
	return o
}

// RideRequestRow is the raw shape of a legacy ride_requests row. The legacy
// table carries free-text locations only, so the mapped Order has nil
// coordinates, and rows predating service_type default to unimove.
type RideRequestRow struct {
	ID              string
	CustomerID      string
	DriverID        *string
	PickupLocation  *string
	DropoffLocation *string
	Price           *float64
	Status          *string
	ServiceType     *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (r RideRequestRow) ToOrder() Order {
	o := Order{
		ID:              types.ID(r.ID),
		Source:          SourceRideRequests,
		CustomerID:      types.ID(r.CustomerID),
		DriverID:        toIDPtr(r.DriverID),
		PickupAddress:   deref(r.PickupLocation),
		DeliveryAddress: deref(r.DropoffLocation),
		ServiceType:     ServiceUniMove,
		Status:          StatusPending,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
	if r.Status != nil && *r.Status != "" {
		o.Status = Status(*r.Status)
	}
	if r.ServiceType != nil && *r.ServiceType != "" {
		o.ServiceType = ServiceType(*r.ServiceType)
	}
	if r.Price != nil {
		o.TotalAmount = *r.Price
	}
	return o
}

// ParseWirePoint decodes the storage point literal "(lng,lat)" into a
// coordinate pair. Any malformed or absent input yields nil, never an error.
func ParseWirePoint(raw *string) *types.Point {
	if raw == nil {
		return nil
	}
	s := strings.TrimSpace(*raw)
	if !strings.HasPrefix(s, "(") || !strings.HasSuffix(s, ")") {
		return nil
	}
	s = strings.TrimSuffix(strings.TrimPrefix(s, "("), ")")
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return nil
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return nil
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return nil
	}
	return &types.Point{Lat: lat, Lng: lng}
}

// FormatWirePoint encodes a coordinate pair as the storage point literal.
// The 'g'/-1 float format is exact, so parse(format(p)) == p.
func FormatWirePoint(p *types.Point) *string {
	if p == nil {
		return nil
	}
	s := "(" + strconv.FormatFloat(p.Lng, 'g', -1, 64) + "," + strconv.FormatFloat(p.Lat, 'g', -1, 64) + ")"
	return &s
}

func toIDPtr(v *string) *types.ID {
	if v == nil || *v == "" {
		return nil
	}
	id := types.ID(*v)
	return &id
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
