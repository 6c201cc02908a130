// README: JSON helpers, error mapping, and wire DTOs for the HTTP API.
package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"unihub/internal/modules/customer"
	"unihub/internal/modules/driver"
	"unihub/internal/modules/order"
	"unihub/internal/types"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

func writeOrderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, order.ErrBadRequest):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, order.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, order.ErrOrderTaken):
		writeError(c, http.StatusConflict, err.Error())
	case errors.Is(err, order.ErrInvalidState), errors.Is(err, order.ErrConflict):
		writeError(c, http.StatusConflict, err.Error())
	case errors.Is(err, driver.ErrBusy), errors.Is(err, customer.ErrBusy):
		writeError(c, http.StatusTooManyRequests, err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

type pointDTO struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type orderDTO struct {
	ID              string    `json:"id"`
	Source          string    `json:"source"`
	CustomerID      string    `json:"customer_id"`
	DriverID        *string   `json:"driver_id"`
	PickupAddress   string    `json:"pickup_address"`
	DeliveryAddress string    `json:"delivery_address"`
	PickupCoords    *pointDTO `json:"pickup_coordinates"`
	DeliveryCoords  *pointDTO `json:"delivery_coordinates"`
	ServiceType     string    `json:"service_type"`
	PackageSize     *string   `json:"package_size,omitempty"`
	TotalAmount     float64   `json:"total_amount"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func toOrderDTO(o order.Order) orderDTO {
	dto := orderDTO{
		ID:              string(o.ID),
		Source:          string(o.Source),
		CustomerID:      string(o.CustomerID),
		PickupAddress:   o.PickupAddress,
		DeliveryAddress: o.DeliveryAddress,
		PickupCoords:    toPointDTO(o.PickupCoords),
		DeliveryCoords:  toPointDTO(o.DeliveryCoords),
		ServiceType:     string(o.ServiceType),
		PackageSize:     o.PackageSize,
		TotalAmount:     o.TotalAmount,
		Status:          string(o.Status),
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
	if o.DriverID != nil {
		id := string(*o.DriverID)
		dto.DriverID = &id
	}
	return dto
}

func toPointDTO(p *types.Point) *pointDTO {
	if p == nil {
		return nil
	}
	return &pointDTO{Lat: p.Lat, Lng: p.Lng}
}

func fromPointDTO(p *pointDTO) *types.Point {
	if p == nil {
		return nil
	}
	return &types.Point{Lat: p.Lat, Lng: p.Lng}
}
