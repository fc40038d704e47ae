package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/02loveslollipop/sensor-dashboard/services/dashboard/dashboard"
	"github.com/02loveslollipop/sensor-dashboard/services/dashboard/upload"
)

// handleUpload forwards a multipart "file" to the backend
// POST /api/v1/upload
func (s *Server) handleUpload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.UploadMaxBytes)

	ctx, cancel := s.backendContext(c)
	defer cancel()

	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{
				"error": fmt.Sprintf("file exceeds the %d byte upload limit", s.cfg.UploadMaxBytes),
			})
			return
		}
		state := s.ctrl.Upload(ctx, nil)
		c.JSON(http.StatusBadRequest, gin.H{"data": state})
		return
	}

	file, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer file.Close()

	state := s.ctrl.Upload(ctx, &upload.File{Name: header.Filename, Content: file})
	status := http.StatusOK
	if state.Phase == dashboard.UploadError {
		status = http.StatusBadGateway
	}
	c.JSON(status, gin.H{"data": state})
}

// POST /api/v1/upload/open
func (s *Server) handleUploadOpen(c *gin.Context) {
	s.ctrl.OpenUpload()
	c.JSON(http.StatusOK, gin.H{"data": s.ctrl.View().Upload})
}

// POST /api/v1/upload/close
func (s *Server) handleUploadClose(c *gin.Context) {
	s.ctrl.CloseUpload()
	c.JSON(http.StatusOK, gin.H{"data": s.ctrl.View().Upload})
}
