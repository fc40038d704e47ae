package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/02loveslollipop/sensor-dashboard/services/dashboard/dashboard"
	"github.com/02loveslollipop/sensor-dashboard/services/dashboard/series"
)

// handleCatalog returns the selectable fields, chart kinds and presets
// GET /api/v1/catalog
func (s *Server) handleCatalog(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": s.ctrl.Catalog()})
}

// GET /api/v1/dashboard
func (s *Server) handleView(c *gin.Context) {
	s.respondView(c)
}

// POST /api/v1/dashboard/devices/refresh
func (s *Server) handleRefreshDevices(c *gin.Context) {
	ctx, cancel := s.backendContext(c)
	defer cancel()

	s.ctrl.LoadDevices(ctx)
	s.respondView(c)
}

type selectDeviceRequest struct {
	DeviceID string `json:"device_id"`
}

// handleSelectDevice switches device; an empty id clears the selection
// PUT /api/v1/dashboard/device
func (s *Server) handleSelectDevice(c *gin.Context) {
	var req selectDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	ctx, cancel := s.backendContext(c)
	defer cancel()

	s.ctrl.SelectDevice(ctx, req.DeviceID)
	s.respondView(c)
}

type selectPortRequest struct {
	Port string `json:"port"`
}

// handleSelectPort narrows to one port; an empty port means all ports
// PUT /api/v1/dashboard/port
func (s *Server) handleSelectPort(c *gin.Context) {
	var req selectPortRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	ctx, cancel := s.backendContext(c)
	defer cancel()

	if err := s.ctrl.SelectPort(ctx, req.Port); err != nil {
		if errors.Is(err, dashboard.ErrNoDevice) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	s.respondView(c)
}

// POST /api/v1/dashboard/fields/:field/toggle
func (s *Server) handleToggleField(c *gin.Context) {
	if _, err := s.ctrl.ToggleField(c.Param("field")); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.respondView(c)
}

type presetRequest struct {
	Hours int `json:"hours" binding:"required"`
}

// POST /api/v1/dashboard/window/preset
func (s *Server) handleApplyPreset(c *gin.Context) {
	var req presetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "hours is required"})
		return
	}
	if err := s.ctrl.ApplyPreset(req.Hours); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.respondView(c)
}

type windowRequest struct {
	Bound string `json:"bound"`
	Value string `json:"value"`
}

// handleEditWindow sets one bound; a value that does not parse clears it
// PUT /api/v1/dashboard/window
func (s *Server) handleEditWindow(c *gin.Context) {
	var req windowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	switch req.Bound {
	case "start":
		s.ctrl.EditWindowBound(true, req.Value)
	case "end":
		s.ctrl.EditWindowBound(false, req.Value)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "bound must be start or end"})
		return
	}
	s.respondView(c)
}

// DELETE /api/v1/dashboard/window
func (s *Server) handleClearWindow(c *gin.Context) {
	s.ctrl.ClearWindow()
	s.respondView(c)
}

type chartKindRequest struct {
	Kind series.ChartKind `json:"kind" binding:"required"`
}

// PUT /api/v1/dashboard/chart-kind
func (s *Server) handleSetChartKind(c *gin.Context) {
	var req chartKindRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "kind is required"})
		return
	}
	if err := s.ctrl.SetChartKind(req.Kind); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.respondView(c)
}

// handleSeries returns only what a client-side renderer needs
// GET /api/v1/dashboard/series
func (s *Server) handleSeries(c *gin.Context) {
	view := s.ctrl.View()
	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"status":     view.Status,
			"message":    view.Message,
			"chart_kind": view.ChartKind,
			"revision":   view.Revision,
			"plot":       view.Plot,
		},
		"meta": gin.H{
			"series": len(view.Plot.Series),
		},
	})
}

func (s *Server) respondView(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": s.ctrl.View()})
}
