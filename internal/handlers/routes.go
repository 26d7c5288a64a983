package handlers

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes wires all engine endpoints under /api/v1.
func RegisterRoutes(
	e *echo.Echo,
	reconciliation *ReconciliationHandler,
	patterns *PatternHandler,
	accounts *AccountMatchHandler,
	health *HealthCheckHandler,
) {
	e.Validator = NewValidator()

	e.GET("/health", health.HealthCheck)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := e.Group("/api/v1")

	recon := v1.Group("/reconciliation")
	recon.GET("/duplicates", reconciliation.DetectDuplicates)
	recon.GET("/duplicates/confirmed", reconciliation.ListConfirmedDuplicates)
	recon.POST("/duplicates/confirm", reconciliation.ConfirmDuplicate)
	recon.DELETE("/duplicates/:id", reconciliation.UnconfirmDuplicate)
	recon.POST("/exclusions", reconciliation.ExcludeTransaction)
	recon.DELETE("/exclusions/:vendor/:identifier", reconciliation.IncludeTransaction)
	recon.POST("/suggestions/dismiss", reconciliation.DismissSuggestion)

	recon.GET("/patterns", patterns.ListPatterns)
	recon.GET("/patterns/matches", patterns.ListPatternMatches)
	recon.POST("/patterns", patterns.CreatePattern)
	recon.POST("/patterns/:id/toggle", patterns.TogglePattern)
	recon.DELETE("/patterns/:id", patterns.DeletePattern)

	v1.GET("/accounts/match", accounts.MatchAccount)
}
