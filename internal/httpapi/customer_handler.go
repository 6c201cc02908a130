// README: Customer endpoints: request, status, cancel, pay.
package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"unihub/internal/modules/customer"
	"unihub/internal/modules/order"
	"unihub/internal/types"
)

type CustomerHandler struct {
	manager *customer.Manager
	svc     *customer.Service
}

func NewCustomerHandler(manager *customer.Manager, svc *customer.Service) *CustomerHandler {
	return &CustomerHandler{manager: manager, svc: svc}
}

type createOrderRequest struct {
	CustomerID      string    `json:"customer_id" binding:"required"`
	ServiceType     string    `json:"service_type" binding:"required"`
	PickupAddress   string    `json:"pickup_address"`
	DeliveryAddress string    `json:"delivery_address"`
	PickupCoords    *pointDTO `json:"pickup_coordinates"`
	DeliveryCoords  *pointDTO `json:"delivery_coordinates"`
	PackageSize     *string   `json:"package_size"`
	TotalAmount     float64   `json:"total_amount"`
}

func (h *CustomerHandler) Create(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	ctrl, err := h.manager.Request(c.Request.Context(), customer.CreateCommand{
		CustomerID:      types.ID(req.CustomerID),
		ServiceType:     order.ServiceType(req.ServiceType),
		PickupAddress:   req.PickupAddress,
		DeliveryAddress: req.DeliveryAddress,
		PickupCoords:    fromPointDTO(req.PickupCoords),
		DeliveryCoords:  fromPointDTO(req.DeliveryCoords),
		PackageSize:     req.PackageSize,
		TotalAmount:     req.TotalAmount,
	})
	if err != nil {
		writeOrderError(c, err)
		return
	}
	o := ctrl.Order()
	writeJSON(c, http.StatusCreated, gin.H{"order": toOrderDTO(o), "phase": ctrl.Phase()})
}

func (h *CustomerHandler) Get(c *gin.Context) {
	id := types.ID(c.Param("id"))
	if ctrl, ok := h.manager.Get(id); ok {
		writeJSON(c, http.StatusOK, gin.H{"order": toOrderDTO(ctrl.Order()), "phase": ctrl.Phase()})
		return
	}
	o, err := h.svc.Lookup(c.Request.Context(), id)
	if err != nil {
		writeOrderError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"order": toOrderDTO(*o), "phase": customer.PhaseForStatus(o.Status)})
}

func (h *CustomerHandler) Cancel(c *gin.Context) {
	ctrl, ok := h.manager.Get(types.ID(c.Param("id")))
	if !ok {
		writeError(c, http.StatusNotFound, "no active order with this id")
		return
	}
	if err := ctrl.Cancel(c.Request.Context()); err != nil {
		writeOrderError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"status": order.StatusCancelled})
}

func (h *CustomerHandler) Pay(c *gin.Context) {
	ctrl, ok := h.manager.Get(types.ID(c.Param("id")))
	if !ok {
		writeError(c, http.StatusNotFound, "no active order with this id")
		return
	}
	if err := ctrl.Pay(c.Request.Context()); err != nil {
		writeOrderError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"payment": "recorded"})
}
