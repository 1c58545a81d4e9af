// README: Admin endpoints: manual dispatch and courier deactivation.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"kedai/internal/http/middleware"
	"kedai/internal/modules/courier"
	"kedai/internal/modules/dispatch"
)

type AdminHandler struct {
	dispatch *dispatch.Service
	couriers *courier.Service
}

func NewAdminHandler(d *dispatch.Service, couriers *courier.Service) *AdminHandler {
	return &AdminHandler{dispatch: d, couriers: couriers}
}

type assignReq struct {
	CourierID int64 `json:"courier_id" binding:"required"`
}

func (h *AdminHandler) Assign(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req assignReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "bad_request", "invalid json")
		return
	}
	err := h.dispatch.Assign(c.Request.Context(), dispatch.AssignCommand{
		OrderID:   id,
		CourierID: req.CourierID,
		Actor:     middleware.Caller(c),
	})
	if err != nil {
		writeFault(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order_id": id, "courier_id": req.CourierID})
}

func (h *AdminHandler) DeactivateCourier(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.couriers.Deactivate(c.Request.Context(), middleware.Caller(c), id); err != nil {
		writeFault(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"courier_id": id, "active": false})
}
