package demo

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const maxUploadBytes = 10 << 20

// Backend serves the ingestion API over an in-memory Store.
type Backend struct {
	store  *Store
	now    func() time.Time
	engine *gin.Engine
}

// NewBackend builds the backend routes around store.
func NewBackend(store *Store) *Backend {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(gin.Logger())
	engine.MaxMultipartMemory = maxUploadBytes

	b := &Backend{store: store, now: time.Now, engine: engine}

	api := engine.Group("/api")
	{
		api.GET("/ping", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "API is running"})
		})
		api.GET("/objects", b.handleObjects)
		api.GET("/ports/:objectId", b.handlePorts)
		api.GET("/data/:objectId", b.handleData)
		api.POST("/upload", b.handleUpload)
	}
	return b
}

// Handler exposes the gin engine.
func (b *Backend) Handler() http.Handler {
	return b.engine
}

// Listen binds addr so that requests made right after it returns are accepted.
func Listen(addr string) (net.Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("demo backend listen on %s: %w", addr, err)
	}
	return ln, nil
}

// Serve answers requests on ln until ctx is cancelled, then drains in-flight
// requests. It closes ln.
func (b *Backend) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{Handler: b.engine}

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("demo backend shutdown: %v", err)
		}
	}()

	err := srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		<-stopped
		return nil
	}
	return err
}

type objectInfo struct {
	ObjectID float64 `json:"objectId"`
}

type portInfo struct {
	PortNum float64 `json:"portNum"`
}

type sensorDataResponse struct {
	SensorData []Record `json:"SensorData"`
	Total      int64    `json:"Total"`
}

func (b *Backend) handleObjects(c *gin.Context) {
	ids := b.store.ObjectIDs()
	out := make([]objectInfo, 0, len(ids))
	for _, id := range ids {
		out = append(out, objectInfo{ObjectID: id})
	}
	c.JSON(http.StatusOK, out)
}

func (b *Backend) handlePorts(c *gin.Context) {
	id, err := strconv.ParseFloat(c.Param("objectId"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid objectId: must be a number"})
		return
	}

	ports := b.store.Ports(id)
	out := make([]portInfo, 0, len(ports))
	for _, p := range ports {
		out = append(out, portInfo{PortNum: p})
	}
	c.JSON(http.StatusOK, out)
}

func (b *Backend) handleData(c *gin.Context) {
	id, err := strconv.ParseFloat(c.Param("objectId"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid objectId: must be a number"})
		return
	}

	var port *float64
	if raw := c.Query("port_num"); raw != "" {
		p, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid port_num: must be a number"})
			return
		}
		port = &p
	}

	records := b.store.Records(id, port)
	c.JSON(http.StatusOK, sensorDataResponse{SensorData: records, Total: int64(len(records))})
}

var csvContentTypes = map[string]bool{
	"text/csv":                 true,
	"application/csv":          true,
	"application/vnd.ms-excel": true,
	"text/plain":               true,
	"application/octet-stream": true,
}

func (b *Backend) handleUpload(c *gin.Context) {
	if !strings.Contains(strings.ToLower(c.GetHeader("Content-Type")), "multipart/form-data") {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Failed to parse form data",
			"message": "request Content-Type isn't multipart/form-data",
		})
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)

	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Could not get file from request",
			"message": err.Error(),
		})
		return
	}

	contentType := header.Header.Get("Content-Type")
	if !csvContentTypes[contentType] && !strings.HasSuffix(strings.ToLower(header.Filename), ".csv") {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid file type",
			"message": fmt.Sprintf("Only CSV files are allowed. Received: %s", contentType),
		})
		return
	}

	file, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Could not get file from request",
			"message": err.Error(),
		})
		return
	}
	defer file.Close()

	records, err := ParseCSV(file, b.now())
	if err != nil {
		var ingestErr *IngestError
		if errors.As(err, &ingestErr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": ingestErr.Title, "message": ingestErr.Message})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save sensor data", "message": err.Error()})
		return
	}

	b.store.Add(records...)
	log.Printf("demo: stored %d records from %s", len(records), header.Filename)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": fmt.Sprintf("Successfully uploaded %d sensor data records", len(records)),
		"count":   len(records),
	})
}
