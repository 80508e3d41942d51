package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rewear/swap-ledger/internal/service"
)

// HandlerConfig holds the HTTP layer settings
type HandlerConfig struct {
	JWTSecret   string
	SwapTimeout time.Duration
	Metrics     http.Handler // served on /metrics when set
}

// Handler wires the HTTP API to the service
type Handler struct {
	service     service.Service
	jwtSecret   []byte
	swapTimeout time.Duration
	metrics     http.Handler
}

// NewHandler creates a new Handler
func NewHandler(svc service.Service, cfg HandlerConfig) *Handler {
	timeout := cfg.SwapTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Handler{
		service:     svc,
		jwtSecret:   []byte(cfg.JWTSecret),
		swapTimeout: timeout,
		metrics:     cfg.Metrics,
	}
}

// SetupRoutes registers every route on router
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.GET("/health", h.Health)
	if h.metrics != nil {
		router.GET("/metrics", gin.WrapH(h.metrics))
	}

	api := router.Group("/api")

	// Public routes
	api.POST("/admin/login", h.AdminLogin)
	api.GET("/items", h.ListItems)
	api.GET("/items/:id", h.GetItem)
	api.GET("/stats", h.GetPublicStats)
	api.GET("/testimonials", h.ListTestimonials)

	// Authenticated routes
	authed := api.Group("")
	authed.Use(AuthMiddleware(h.jwtSecret))
	{
		authed.POST("/items", h.CreateItem)
		authed.POST("/items/:id/submit", h.SubmitItem)
		authed.POST("/items/:id/swap", h.ProposeSwap)

		authed.POST("/users", h.UpsertUser)
		authed.GET("/me", h.GetMe)
		authed.GET("/me/swaps", h.ListMySwaps)

		authed.POST("/testimonials", h.CreateTestimonial)
	}

	// Admin routes
	admin := api.Group("")
	admin.Use(AuthMiddleware(h.jwtSecret), AdminOnly())
	{
		admin.GET("/users", h.ListUsers)
		admin.POST("/admin/items/:id/moderate", h.ModerateItem)
		admin.POST("/admin/users/:id/adjust", h.AdjustBalance)
		admin.GET("/admin/users/:id/reconcile", h.ReconcileUser)
		admin.GET("/admin/dashboard", h.GetDashboard)
	}
}

// Health reports liveness
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
