package routes

import (
	"github.com/gin-gonic/gin"

	handler "github.com/OndrejKnedla/SME-financial-os-sub000/internal/handlers"
	"github.com/OndrejKnedla/SME-financial-os-sub000/internal/metrics"
	"github.com/OndrejKnedla/SME-financial-os-sub000/internal/middleware"
	service "github.com/OndrejKnedla/SME-financial-os-sub000/internal/services/reconciliation"
)

func RegisterRoutes(r *gin.Engine, reconService *service.ReconciliationService) {
	reconHandler := handler.NewReconciliationHandler(reconService)

	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := r.Group("/api")

	// Health check
	api.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	scoped := api.Group("", middleware.Organization())

	// Transaction-level routes
	tx := scoped.Group("/bank-transactions")
	tx.GET("/unmatched", reconHandler.ListUnmatched)
	tx.POST("/import", reconHandler.Import)
	tx.GET("/:id/suggestions", reconHandler.SuggestMatches)
	tx.GET("/:id/audit", reconHandler.AuditTrail)
	tx.POST("/:id/match", reconHandler.MatchTransaction)
	tx.POST("/:id/unmatch", reconHandler.UnmatchTransaction)

	// Batch routes
	recon := scoped.Group("/reconciliation")
	recon.POST("/auto-match", reconHandler.AutoMatch)
	recon.GET("/runs/:runId", reconHandler.GetRun)
}
