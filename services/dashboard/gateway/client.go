package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-ID"

// ErrMalformed marks a 2xx response whose body did not have the expected shape.
var ErrMalformed = errors.New("malformed response body")

// Client reads devices, ports and sensor rows from the ingestion backend.
// Every method degrades to an empty value on failure and logs the cause.
type Client struct {
	baseURL string
	http    *http.Client
}

// New builds a Client for baseURL. A zero timeout leaves requests unbounded.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// ListDevices returns every device known to the backend.
func (c *Client) ListDevices(ctx context.Context) Result[[]Device] {
	var payload []struct {
		ObjectID json.Number `json:"objectId"`
	}
	if err := c.getJSON(ctx, "/api/objects", nil, &payload); err != nil {
		return Result[[]Device]{Value: []Device{}, Err: err}
	}

	devices := make([]Device, 0, len(payload))
	for _, item := range payload {
		id, err := formatID(item.ObjectID)
		if err != nil {
			err = fmt.Errorf("%w: objectId: %v", ErrMalformed, err)
			log.Printf("gateway: list devices: %v", err)
			return Result[[]Device]{Value: []Device{}, Err: err}
		}
		devices = append(devices, newDevice(id))
	}
	return Result[[]Device]{Value: devices}
}

// ListPorts returns the ports of one device.
func (c *Client) ListPorts(ctx context.Context, deviceID string) Result[[]Port] {
	var payload []struct {
		PortNum json.Number `json:"portNum"`
	}
	if err := c.getJSON(ctx, "/api/ports/"+url.PathEscape(deviceID), nil, &payload); err != nil {
		return Result[[]Port]{Value: []Port{}, Err: err}
	}

	ports := make([]Port, 0, len(payload))
	for _, item := range payload {
		id, err := formatID(item.PortNum)
		if err != nil {
			err = fmt.Errorf("%w: portNum: %v", ErrMalformed, err)
			log.Printf("gateway: list ports for %s: %v", deviceID, err)
			return Result[[]Port]{Value: []Port{}, Err: err}
		}
		ports = append(ports, Port{ID: id})
	}
	return Result[[]Port]{Value: ports}
}

// ListSensorRows returns the rows of one device, for a single port or all of them.
// The returned Rows keeps DeviceID and Port even when the fetch failed.
func (c *Client) ListSensorRows(ctx context.Context, deviceID string, port PortSelector) Result[Rows] {
	out := Rows{DeviceID: deviceID, Port: port, Rows: []SensorRow{}}

	var query url.Values
	if !port.All() {
		query = url.Values{}
		query.Set("port_num", port.ID())
	}

	var payload struct {
		SensorData *[]SensorRow `json:"SensorData"`
		Total      int64        `json:"Total"`
	}
	if err := c.getJSON(ctx, "/api/data/"+url.PathEscape(deviceID), query, &payload); err != nil {
		return Result[Rows]{Value: out, Err: err}
	}
	if payload.SensorData == nil {
		err := fmt.Errorf("%w: missing SensorData", ErrMalformed)
		log.Printf("gateway: list rows for %s/%s: %v", deviceID, port, err)
		return Result[Rows]{Value: out, Err: err}
	}

	dropped := 0
	for _, row := range *payload.SensorData {
		if row.Timestamp.IsZero() {
			dropped++
			continue
		}
		out.Rows = append(out.Rows, row)
	}
	if dropped > 0 {
		log.Printf("gateway: dropped %d rows with unparseable timestamps for %s/%s", dropped, deviceID, port)
	}
	out.Total = payload.Total
	return Result[Rows]{Value: out}
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint = endpoint + "?" + query.Encode()
	}
	requestID := uuid.NewString()

	err := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return fmt.Errorf("build request %s: %w", path, err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set(requestIDHeader, requestID)

		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("request %s: %w", path, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return fmt.Errorf("request %s failed with status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(snippet)))
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response %s: %w", path, err)
		}
		if err := decodeBody(body, out); err != nil {
			return fmt.Errorf("decode response %s: %w: %v", path, ErrMalformed, err)
		}
		return nil
	}()
	if err != nil {
		log.Printf("gateway: GET %s (request %s): %v", path, requestID, err)
	}
	return err
}

// decodeBody accepts both a {"data": ...} envelope and a bare payload.
func decodeBody(body []byte, out any) error {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var env map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &env); err == nil {
			if data, ok := env["data"]; ok && !bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
				trimmed = data
			}
		}
	}
	return json.Unmarshal(trimmed, out)
}

func formatID(n json.Number) (string, error) {
	if n == "" {
		return "", errors.New("missing identifier")
	}
	f, err := strconv.ParseFloat(string(n), 64)
	if err != nil {
		return "", err
	}
	return strconv.FormatFloat(f, 'f', -1, 64), nil
}
