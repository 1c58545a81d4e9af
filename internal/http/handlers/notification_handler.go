// README: Notification feed endpoint. Callers read their own feed; the
// recipient side is derived from the caller's role.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"kedai/internal/http/middleware"
	"kedai/internal/modules/notification"
	"kedai/internal/types"
)

type NotificationHandler struct {
	store notification.Store
}

func NewNotificationHandler(store notification.Store) *NotificationHandler {
	return &NotificationHandler{store: store}
}

func (h *NotificationHandler) List(c *gin.Context) {
	caller := middleware.Caller(c)
	var rec notification.Recipient
	switch caller.Role {
	case types.RoleCustomer:
		rec = notification.ToCustomer
	case types.RoleCourier:
		rec = notification.ToCourier
	default:
		writeError(c, http.StatusForbidden, "forbidden", "feed is customer- or courier-facing")
		return
	}
	items, err := h.store.Notifications(c.Request.Context(), rec, caller.ID)
	if err != nil {
		writeFault(c, err)
		return
	}
	out := make([]gin.H, 0, len(items))
	for _, n := range items {
		out = append(out, gin.H{
			"id":         n.ID,
			"type":       string(n.Type),
			"message":    n.Message,
			"payload":    n.Payload,
			"created_at": n.CreatedAt,
			"read_at":    n.ReadAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"notifications": out})
}
