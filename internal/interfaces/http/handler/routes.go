package handler

import (
	"github.com/docintake/backend/internal/interfaces/http/router"
)

// IntakeRoutes creates the route group for document intake endpoints
func IntakeRoutes(h *IntakeHandler) *router.DomainGroup {
	group := router.NewDomainGroup("intake", "/intake")

	group.POST("/documents", h.Upload)

	group.GET("/transactions", h.ListTransactions)
	group.GET("/transactions/:id", h.GetTransaction)
	group.GET("/transactions/:id/history", h.GetHistory)
	group.GET("/transactions/:id/reconciliation", h.GetReconciliation)
	group.POST("/transactions/:id/review", h.Review)

	return group
}

// ExceptionRoutes creates the route group for the exception queue
func ExceptionRoutes(h *ExceptionHandler) *router.DomainGroup {
	group := router.NewDomainGroup("exceptions", "/exceptions")

	group.GET("", h.List)
	group.GET("/:id", h.Get)
	group.POST("/:id/resolve", h.Resolve)

	return group
}

// SourceRoutes creates the route group for source circuit breaker stats
func SourceRoutes(h *SourceHandler) *router.DomainGroup {
	group := router.NewDomainGroup("sources", "/sources")

	group.GET("/stats", h.ListStats)
	group.GET("/:id/stats", h.GetStats)

	return group
}

// SystemRoutes creates the route group for service info and health probes
func SystemRoutes(h *SystemHandler) *router.DomainGroup {
	group := router.NewDomainGroup("system", "/system")

	group.GET("/info", h.GetSystemInfo)
	group.GET("/ping", h.Ping)

	return group
}
