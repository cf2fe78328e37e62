package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/slotswap/slotswap-api/internal/middleware"
	"github.com/slotswap/slotswap-api/internal/service"
)

// Routers groups the handlers mounted by Register.
type Routers struct {
	Auth    *AuthHandler
	Slots   *SlotHandler
	Swaps   *SwapHandler
	WS      *WSHandler
	Metrics *MetricsHandler
}

// Register mounts the API surface on the engine under the given prefix.
func Register(r *gin.Engine, prefix string, h Routers, authService *service.AuthService) {
	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Health)
	r.GET("/metrics", h.Metrics.Prometheus)
	r.GET("/ws", h.WS.Connect)

	api := r.Group(prefix)

	auth := api.Group("/auth")
	auth.POST("/signup", h.Auth.Signup)
	auth.POST("/login", h.Auth.Login)
	auth.GET("/me", middleware.JWT(authService), h.Auth.Me)

	events := api.Group("/events", middleware.JWT(authService))
	events.POST("", h.Slots.Create)
	events.GET("", h.Slots.List)
	events.GET("/export", h.Slots.Export)
	events.PUT("/:eventId", h.Slots.Update)
	events.DELETE("/:eventId", h.Slots.Delete)
	events.PATCH("/:eventId/toggle-swappable", h.Slots.ToggleSwappable)

	swaps := api.Group("/swaps", middleware.JWT(authService))
	swaps.GET("/available", h.Swaps.Available)
	swaps.POST("/request", h.Swaps.Create)
	swaps.GET("/requests", h.Swaps.List)
	swaps.POST("/request/:requestId/respond", h.Swaps.Respond)
	swaps.DELETE("/request/:requestId/cancel", h.Swaps.Cancel)

	api.GET("/presence", middleware.JWT(authService), h.WS.Presence)
}
