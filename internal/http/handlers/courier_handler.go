// README: Courier-facing endpoints: claimable pool, claiming, delivery
// photos, availability, and profile.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"kedai/internal/http/middleware"
	"kedai/internal/modules/courier"
	"kedai/internal/modules/dispatch"
	"kedai/internal/modules/order"
)

type CourierHandler struct {
	orders   *order.Service
	dispatch *dispatch.Service
	couriers *courier.Service
}

func NewCourierHandler(orders *order.Service, d *dispatch.Service, couriers *courier.Service) *CourierHandler {
	return &CourierHandler{orders: orders, dispatch: d, couriers: couriers}
}

func (h *CourierHandler) ListClaimable(c *gin.Context) {
	orders, err := h.orders.ListClaimable(c.Request.Context(), middleware.Caller(c))
	if err != nil {
		writeFault(c, err)
		return
	}
	out := make([]gin.H, 0, len(orders))
	for i := range orders {
		out = append(out, orderView(&orders[i]))
	}
	c.JSON(http.StatusOK, gin.H{"orders": out})
}

func (h *CourierHandler) Claim(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	err := h.dispatch.Claim(c.Request.Context(), dispatch.ClaimCommand{
		OrderID: id,
		Actor:   middleware.Caller(c),
	})
	if err != nil {
		writeFault(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order_id": id, "claimed": true})
}

// SubmitPhoto accepts a multipart capture; kind is departure or arrival.
// The transition it gates fires in the same request.
func (h *CourierHandler) SubmitPhoto(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	fh, err := c.FormFile("photo")
	if err != nil {
		writeError(c, http.StatusBadRequest, "bad_request", "missing photo file")
		return
	}
	f, err := fh.Open()
	if err != nil {
		writeError(c, http.StatusBadRequest, "bad_request", "unreadable photo file")
		return
	}
	defer f.Close()

	err = h.orders.SubmitPhoto(c.Request.Context(), order.PhotoCommand{
		OrderID:  id,
		Actor:    middleware.Caller(c),
		Kind:     order.PhotoKind(c.Param("kind")),
		Filename: fh.Filename,
		Size:     fh.Size,
		File:     f,
	})
	if err != nil {
		writeFault(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order_id": id, "photo": c.Param("kind")})
}

type availabilityReq struct {
	Availability string `json:"availability" binding:"required"`
}

func (h *CourierHandler) SetAvailability(c *gin.Context) {
	var req availabilityReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "bad_request", "invalid json")
		return
	}
	err := h.couriers.SetAvailability(c.Request.Context(), middleware.Caller(c), courier.Availability(req.Availability))
	if err != nil {
		writeFault(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"availability": req.Availability})
}

func (h *CourierHandler) Profile(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	p, err := h.couriers.Profile(c.Request.Context(), middleware.Caller(c), id)
	if err != nil {
		writeFault(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":            p.Courier.ID,
		"name":          p.Courier.Name,
		"phone":         p.Courier.Phone,
		"availability":  string(p.Courier.Availability),
		"active":        p.Courier.Active,
		"rating":        p.Courier.Rating,
		"deliveries":    p.Courier.Deliveries,
		"active_orders": p.ActiveOrders,
	})
}
