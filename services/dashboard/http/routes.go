package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) registerRoutes() {
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	s.engine.GET("/chart", s.handleChart)

	v1 := s.engine.Group("/api/v1")
	v1.Use(apiVersionMiddleware())

	v1.GET("/catalog", s.handleCatalog)

	board := v1.Group("/dashboard")
	{
		board.GET("", s.handleView)
		board.POST("/devices/refresh", s.handleRefreshDevices)
		board.PUT("/device", s.handleSelectDevice)
		board.PUT("/port", s.handleSelectPort)
		board.POST("/fields/:field/toggle", s.handleToggleField)
		board.POST("/window/preset", s.handleApplyPreset)
		board.PUT("/window", s.handleEditWindow)
		board.DELETE("/window", s.handleClearWindow)
		board.PUT("/chart-kind", s.handleSetChartKind)
		board.GET("/series", s.handleSeries)
	}

	uploads := v1.Group("/upload")
	{
		uploads.POST("", s.handleUpload)
		uploads.POST("/open", s.handleUploadOpen)
		uploads.POST("/close", s.handleUploadClose)
	}
}
