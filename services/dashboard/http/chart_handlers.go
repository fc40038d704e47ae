package http

import (
	"bytes"
	"fmt"
	"html"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/02loveslollipop/sensor-dashboard/services/dashboard/dashboard"
	"github.com/02loveslollipop/sensor-dashboard/services/dashboard/render"
	"github.com/02loveslollipop/sensor-dashboard/services/dashboard/series"
)

const emptyChartPage = `<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>Sensor Dashboard</title></head>
<body><p class="empty-state" data-status="%s">%s</p></body></html>`

// handleChart renders the current plot as an HTML page. ?kind= overrides the
// selected chart kind for this response only.
// GET /chart
func (s *Server) handleChart(c *gin.Context) {
	view := s.ctrl.View()

	kind := view.ChartKind
	if override := c.Query("kind"); override != "" {
		kind = series.ChartKind(override)
		if !kind.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid kind"})
			return
		}
	}

	if view.Status != dashboard.StatusReady {
		page := fmt.Sprintf(emptyChartPage, view.Status, html.EscapeString(view.Message))
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(page))
		return
	}

	var buf bytes.Buffer
	err := render.Chart(&buf, view.Plot, kind, render.Options{
		Subtitle:   subtitle(view),
		AssetsHost: s.cfg.ChartAssetsHost,
		Location:   s.cfg.Location,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("render error: %v", err)})
		return
	}

	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

func subtitle(view dashboard.View) string {
	port := "all ports"
	if view.PortID != "" {
		port = "port " + view.PortID
	}
	return fmt.Sprintf("Device %s, %s, %d rows", view.DeviceID, port, view.RowCount)
}
