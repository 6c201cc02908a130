// README: Driver endpoints: session open/close, feed, accept, decline, pickup, complete, reset.
package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"unihub/internal/modules/driver"
	"unihub/internal/types"
)

type DriverHandler struct {
	manager *driver.Manager
}

func NewDriverHandler(manager *driver.Manager) *DriverHandler {
	return &DriverHandler{manager: manager}
}

func (h *DriverHandler) OpenSession(c *gin.Context) {
	driverID := types.ID(c.Param("driver_id"))
	if driverID == "" {
		writeError(c, http.StatusBadRequest, "missing driver id")
		return
	}
	s, err := h.manager.Open(driverID)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "failed to open session")
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"phase": s.Controller.Phase()})
}

func (h *DriverHandler) CloseSession(c *gin.Context) {
	h.manager.Close(types.ID(c.Param("driver_id")))
	writeJSON(c, http.StatusOK, gin.H{"closed": true})
}

func (h *DriverHandler) session(c *gin.Context) (*driver.Session, bool) {
	s, ok := h.manager.Get(types.ID(c.Param("driver_id")))
	if !ok {
		writeError(c, http.StatusNotFound, "no open session for driver")
		return nil, false
	}
	return s, true
}

func (h *DriverHandler) Feed(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	pending := s.Controller.Pending()
	out := make([]orderDTO, len(pending))
	for i, o := range pending {
		out[i] = toOrderDTO(o)
	}
	writeJSON(c, http.StatusOK, gin.H{"orders": out, "phase": s.Controller.Phase()})
}

func (h *DriverHandler) Accept(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	if err := s.Controller.Accept(c.Request.Context(), types.ID(c.Param("order_id"))); err != nil {
		writeOrderError(c, err)
		return
	}
	resp := gin.H{"phase": s.Controller.Phase()}
	if cur := s.Controller.Current(); cur != nil {
		resp["order"] = toOrderDTO(*cur)
	}
	writeJSON(c, http.StatusOK, resp)
}

func (h *DriverHandler) Decline(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	if err := s.Controller.Decline(c.Request.Context(), types.ID(c.Param("order_id"))); err != nil {
		writeOrderError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"declined": true})
}

func (h *DriverHandler) CompletePickup(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	if err := s.Controller.CompletePickup(c.Request.Context()); err != nil {
		writeOrderError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"phase": s.Controller.Phase()})
}

func (h *DriverHandler) Complete(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	if err := s.Controller.Complete(c.Request.Context()); err != nil {
		writeOrderError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"phase": s.Controller.Phase()})
}

func (h *DriverHandler) Next(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	if err := s.Controller.FindNewOrder(); err != nil {
		writeOrderError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"phase": s.Controller.Phase()})
}
