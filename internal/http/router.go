// README: HTTP router registration.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"kedai/internal/auth"
	"kedai/internal/http/handlers"
	"kedai/internal/http/middleware"
	"kedai/internal/modules/courier"
	"kedai/internal/modules/dispatch"
	"kedai/internal/modules/location"
	"kedai/internal/modules/notification"
	"kedai/internal/modules/order"
	"kedai/internal/modules/verification"
)

type RouterDeps struct {
	Verifier      *auth.Verifier
	Orders        *order.Service
	Dispatch      *dispatch.Service
	Verification  *verification.Service
	Couriers      *courier.Service
	Location      *location.Service
	Notifications notification.Store
	Log           *zap.SugaredLogger
}

func NewRouter(deps RouterDeps) http.Handler {
	r := gin.New()
	r.Use(middleware.Recovery(deps.Log), middleware.Logging(deps.Log))

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api", middleware.Auth(deps.Verifier))

	orderHandler := handlers.NewOrderHandler(deps.Orders)
	api.POST("/orders", orderHandler.Create)
	api.GET("/orders/:id", orderHandler.Get)
	api.GET("/orders/:id/timeline", orderHandler.Timeline)
	api.POST("/orders/:id/transition", orderHandler.Transition)
	api.POST("/orders/:id/paid", orderHandler.MarkPaid)

	verificationHandler := handlers.NewVerificationHandler(deps.Verification)
	api.POST("/orders/:id/verification", verificationHandler.Generate)
	api.POST("/orders/:id/verification/verify", verificationHandler.Verify)

	courierHandler := handlers.NewCourierHandler(deps.Orders, deps.Dispatch, deps.Couriers)
	api.GET("/courier/orders", courierHandler.ListClaimable)
	api.POST("/courier/orders/:id/claim", courierHandler.Claim)
	api.POST("/courier/orders/:id/photos/:kind", courierHandler.SubmitPhoto)
	api.PUT("/courier/availability", courierHandler.SetAvailability)
	api.GET("/couriers/:id", courierHandler.Profile)

	locationHandler := handlers.NewLocationHandler(deps.Location)
	api.PUT("/courier/location", locationHandler.Report)
	api.DELETE("/courier/location", locationHandler.Clear)
	api.GET("/couriers/:id/location", locationHandler.Locate)

	notificationHandler := handlers.NewNotificationHandler(deps.Notifications)
	api.GET("/notifications", notificationHandler.List)

	adminHandler := handlers.NewAdminHandler(deps.Dispatch, deps.Couriers)
	api.POST("/admin/orders/:id/assign", adminHandler.Assign)
	api.POST("/admin/couriers/:id/deactivate", adminHandler.DeactivateCourier)

	return r
}
