package api

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes registers all API routes with the Echo instance.
func RegisterRoutes(e *echo.Echo, h *Handler) {
	e.GET("/api/health", h.HandleHealth)

	files := e.Group("/api/files")
	files.POST("/upload", h.HandleUploadFile)
	files.GET("/recent", h.HandleRecentFiles)
	files.GET("/:id", h.HandleGetFile)
	files.DELETE("/:id", h.HandleDeleteFile)
	files.PUT("/:id", h.HandleRenameFile)

	cross := e.Group("/api/crosscheck")
	cross.POST("", h.HandleStartCrosscheck)
	cross.GET("/:runId/status", h.HandleRunStatus)
	cross.GET("/:runId/results", h.HandleRunResults)
	cross.GET("/:runId/results/msgpack", h.HandleRunResultsMsgpack)
	cross.GET("/:runId/summary", h.HandleRunSummary)
	cross.GET("/:runId/report", h.HandleRunReport)
	cross.PUT("/:runId/results/:index/review", h.HandleSetReview)
	cross.POST("/:runId/keepalive", h.HandleRunKeepAlive)
}
