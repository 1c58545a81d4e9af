// README: Customer-facing order endpoints: checkout, detail, timeline,
// cancellation, and the payment callback.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"kedai/internal/http/middleware"
	"kedai/internal/modules/order"
)

type OrderHandler struct {
	orders *order.Service
}

func NewOrderHandler(orders *order.Service) *OrderHandler {
	return &OrderHandler{orders: orders}
}

type createOrderReq struct {
	PaymentMethod  string `json:"payment_method" binding:"required"`
	DeliveryMethod string `json:"delivery_method" binding:"required"`
}

func (h *OrderHandler) Create(c *gin.Context) {
	var req createOrderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "bad_request", "invalid json")
		return
	}
	o, err := h.orders.Create(c.Request.Context(), order.CreateCommand{
		Actor:          middleware.Caller(c),
		PaymentMethod:  order.PaymentMethod(req.PaymentMethod),
		DeliveryMethod: order.DeliveryMethod(req.DeliveryMethod),
	})
	if err != nil {
		writeFault(c, err)
		return
	}
	c.JSON(http.StatusCreated, orderView(o))
}

func (h *OrderHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	o, err := h.orders.Get(c.Request.Context(), id, middleware.Caller(c))
	if err != nil {
		writeFault(c, err)
		return
	}
	c.JSON(http.StatusOK, orderView(o))
}

func (h *OrderHandler) Timeline(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	logs, err := h.orders.Timeline(c.Request.Context(), id, middleware.Caller(c))
	if err != nil {
		writeFault(c, err)
		return
	}
	out := make([]gin.H, 0, len(logs))
	for _, l := range logs {
		out = append(out, gin.H{
			"from":       string(l.FromStatus),
			"to":         string(l.ToStatus),
			"actor_role": string(l.ActorRole),
			"actor_id":   l.ActorID,
			"note":       l.Note,
			"metadata":   l.Metadata,
			"created_at": l.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"order_id": id, "timeline": out})
}

type transitionReq struct {
	Target string `json:"target" binding:"required"`
	Note   string `json:"note"`
}

// Transition is the generic status-change endpoint used by the barista
// console and by customer cancellation.
func (h *OrderHandler) Transition(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req transitionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "bad_request", "invalid json")
		return
	}
	err := h.orders.Transition(c.Request.Context(), order.TransitionCommand{
		OrderID: id,
		Target:  order.Status(req.Target),
		Actor:   middleware.Caller(c),
		Note:    req.Note,
	})
	if err != nil {
		writeFault(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order_id": id, "status": req.Target})
}

func (h *OrderHandler) MarkPaid(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.orders.MarkPaid(c.Request.Context(), id, middleware.Caller(c)); err != nil {
		writeFault(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order_id": id, "payment_status": "paid"})
}

func orderView(o *order.Order) gin.H {
	v := gin.H{
		"id":              o.ID,
		"number":          o.Number,
		"customer_id":     o.CustomerID,
		"courier_id":      o.CourierID,
		"status":          string(o.Status),
		"payment_method":  string(o.PaymentMethod),
		"payment_status":  string(o.PaymentStatus),
		"delivery_method": string(o.DeliveryMethod),
		"created_at":      o.CreatedAt,
	}
	if o.DeparturePhoto != nil {
		v["departure_photo"] = *o.DeparturePhoto
	}
	if o.ArrivalPhoto != nil {
		v["arrival_photo"] = *o.ArrivalPhoto
	}
	if o.CancelReason != nil {
		v["cancel_reason"] = *o.CancelReason
	}
	if o.DeliveryDuration != nil {
		v["delivery_duration"] = o.DeliveryDuration.Round(time.Second).String()
	}
	return v
}
