package http

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/02loveslollipop/sensor-dashboard/services/dashboard/config"
	"github.com/02loveslollipop/sensor-dashboard/services/dashboard/dashboard"
	"github.com/02loveslollipop/sensor-dashboard/services/dashboard/demo"
	"github.com/02loveslollipop/sensor-dashboard/services/dashboard/gateway"
	"github.com/02loveslollipop/sensor-dashboard/services/dashboard/upload"
)

var testNow = time.Date(2023, 9, 1, 12, 0, 0, 0, time.UTC)

type viewEnvelope struct {
	Data struct {
		Status    string `json:"status"`
		DeviceID  string `json:"device_id"`
		PortID    string `json:"port_id"`
		ChartKind string `json:"chart_kind"`
		RowCount  int    `json:"row_count"`
		Preset    int    `json:"preset"`
		Devices   []gateway.Device
		Fields    []struct {
			Key string `json:"key"`
		} `json:"fields"`
		Plot struct {
			Kind   string `json:"kind"`
			Series []struct {
				Points []struct {
					Y float64 `json:"y"`
				} `json:"points"`
			} `json:"series"`
		} `json:"plot"`
		Upload dashboard.UploadState `json:"upload"`
	} `json:"data"`
}

func newTestServer(t *testing.T, token string) *Server {
	t.Helper()
	store := demo.NewStore()
	demo.Seed(store, testNow)
	return newServerWithBackend(t, token, demo.NewBackend(store).Handler())
}

func newServerWithBackend(t *testing.T, token string, backendHandler http.Handler) *Server {
	t.Helper()
	backend := httptest.NewServer(backendHandler)
	t.Cleanup(backend.Close)

	cfg := config.Config{
		BackendBaseURL: backend.URL,
		Port:           0,
		BearerToken:    token,
		BackendTimeout: 5 * time.Second,
		UploadMaxBytes: 1 << 20,
		Location:       time.UTC,
	}
	ctrl := dashboard.New(
		gateway.New(cfg.BackendBaseURL, cfg.BackendTimeout),
		upload.New(cfg.BackendBaseURL, cfg.BackendTimeout),
		dashboard.Options{Now: func() time.Time { return testNow }, Location: cfg.Location},
	)
	return New(cfg, ctrl)
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)
	return rec
}

func decodeView(t *testing.T, rec *httptest.ResponseRecorder) viewEnvelope {
	t.Helper()
	var env viewEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, "")
	rec := do(t, s, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestCatalog(t *testing.T) {
	s := newTestServer(t, "")
	rec := do(t, s, http.MethodGet, "/api/v1/catalog", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "v1", rec.Header().Get("X-API-Version"))

	var env struct {
		Data dashboard.Catalog `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Len(t, env.Data.Fields, 6)
	assert.Len(t, env.Data.ChartKinds, 4)
	assert.Len(t, env.Data.Presets, 4)
}

func TestDashboardFlow(t *testing.T) {
	s := newTestServer(t, "")

	env := decodeView(t, do(t, s, http.MethodGet, "/api/v1/dashboard", ""))
	assert.Equal(t, "no_device", env.Data.Status)

	env = decodeView(t, do(t, s, http.MethodPost, "/api/v1/dashboard/devices/refresh", ""))
	assert.Len(t, env.Data.Devices, 2)

	rec := do(t, s, http.MethodPut, "/api/v1/dashboard/device", `{"device_id":"101"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	env = decodeView(t, rec)
	assert.Equal(t, "ready", env.Data.Status)
	assert.Equal(t, 3*145, env.Data.RowCount)
	require.Len(t, env.Data.Fields, 1)
	assert.Equal(t, "current", env.Data.Fields[0].Key)

	env = decodeView(t, do(t, s, http.MethodPut, "/api/v1/dashboard/port", `{"port":"2"}`))
	assert.Equal(t, "2", env.Data.PortID)
	assert.Equal(t, 145, env.Data.RowCount)

	env = decodeView(t, do(t, s, http.MethodPost, "/api/v1/dashboard/fields/voltage/toggle", ""))
	assert.Len(t, env.Data.Fields, 2)
	assert.Len(t, env.Data.Plot.Series, 2)

	env = decodeView(t, do(t, s, http.MethodPost, "/api/v1/dashboard/window/preset", `{"hours":1}`))
	assert.Equal(t, 1, env.Data.Preset)
	require.Len(t, env.Data.Plot.Series, 2)
	assert.Len(t, env.Data.Plot.Series[0].Points, 7)

	env = decodeView(t, do(t, s, http.MethodPut, "/api/v1/dashboard/window", `{"bound":"start","value":"2023-09-01T11:30"}`))
	assert.Zero(t, env.Data.Preset)
	assert.Len(t, env.Data.Plot.Series[0].Points, 4)

	env = decodeView(t, do(t, s, http.MethodDelete, "/api/v1/dashboard/window", ""))
	assert.Len(t, env.Data.Plot.Series[0].Points, 145)

	env = decodeView(t, do(t, s, http.MethodPut, "/api/v1/dashboard/chart-kind", `{"kind":"area"}`))
	assert.Equal(t, "area", env.Data.ChartKind)
}

func TestDashboardRejectsInvalidInput(t *testing.T) {
	s := newTestServer(t, "")

	cases := []struct {
		method, path, body string
		want               int
	}{
		{http.MethodPut, "/api/v1/dashboard/port", `{"port":"1"}`, http.StatusConflict},
		{http.MethodPost, "/api/v1/dashboard/fields/temperature/toggle", "", http.StatusBadRequest},
		{http.MethodPost, "/api/v1/dashboard/window/preset", `{"hours":5}`, http.StatusBadRequest},
		{http.MethodPost, "/api/v1/dashboard/window/preset", `{}`, http.StatusBadRequest},
		{http.MethodPut, "/api/v1/dashboard/window", `{"bound":"middle","value":""}`, http.StatusBadRequest},
		{http.MethodPut, "/api/v1/dashboard/chart-kind", `{"kind":"pie"}`, http.StatusBadRequest},
		{http.MethodPut, "/api/v1/dashboard/device", `not json`, http.StatusBadRequest},
		{http.MethodGet, "/chart?kind=pie", "", http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			rec := do(t, s, tc.method, tc.path, tc.body)
			assert.Equal(t, tc.want, rec.Code, rec.Body.String())
		})
	}
}

func TestSeriesEndpoint(t *testing.T) {
	s := newTestServer(t, "")
	do(t, s, http.MethodPut, "/api/v1/dashboard/device", `{"device_id":"102"}`)

	rec := do(t, s, http.MethodGet, "/api/v1/dashboard/series", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var env struct {
		Data struct {
			Status    string `json:"status"`
			ChartKind string `json:"chart_kind"`
			Plot      struct {
				Kind string `json:"kind"`
			} `json:"plot"`
		} `json:"data"`
		Meta struct {
			Series int `json:"series"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, "ready", env.Data.Status)
	assert.Equal(t, "line", env.Data.ChartKind)
	assert.Equal(t, "ready", env.Data.Plot.Kind)
	assert.Equal(t, 1, env.Meta.Series)
}

func TestChartPage(t *testing.T) {
	s := newTestServer(t, "")

	rec := do(t, s, http.MethodGet, "/chart", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `data-status="no_device"`)

	do(t, s, http.MethodPut, "/api/v1/dashboard/device", `{"device_id":"101"}`)
	rec = do(t, s, http.MethodGet, "/chart?kind=bar", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "echarts")
	assert.Contains(t, rec.Body.String(), "Current")
}

func multipartBody(t *testing.T, field, name, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if field != "" {
		part, err := mw.CreateFormFile(field, name)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	} else {
		require.NoError(t, mw.WriteField("note", "nothing attached"))
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func postUpload(t *testing.T, s *Server, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)
	return rec
}

type uploadEnvelope struct {
	Data dashboard.UploadState `json:"data"`
}

func TestUploadForwardsToBackend(t *testing.T) {
	s := newTestServer(t, "")
	csv := "timestamp,object_id,port_num,voltage,current,supply_current,supply_volt,voltage_drop,voc\n" +
		"2023-09-01T11:00:00Z,555,1,12,2,2,13,0.8,14\n"

	do(t, s, http.MethodPost, "/api/v1/upload/open", "")
	body, ct := multipartBody(t, "file", "new.csv", csv)
	rec := postUpload(t, s, body, ct)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var env uploadEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, dashboard.UploadSuccess, env.Data.Phase)
	assert.Equal(t, 1, env.Data.Count)

	view := decodeView(t, do(t, s, http.MethodGet, "/api/v1/dashboard", ""))
	assert.Contains(t, view.Data.Devices, gateway.Device{ID: "555", Label: "Device 555"})
}

func TestUploadWithoutFile(t *testing.T) {
	s := newTestServer(t, "")
	body, ct := multipartBody(t, "", "", "")
	rec := postUpload(t, s, body, ct)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var env uploadEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, dashboard.UploadError, env.Data.Phase)
	assert.Equal(t, "Please select a CSV file to upload", env.Data.Message)
}

func TestUploadBackendRejection(t *testing.T) {
	s := newTestServer(t, "")
	body, ct := multipartBody(t, "file", "bad.csv", "timestamp,object_id\n2023-09-01T11:00:00Z,1\n")
	rec := postUpload(t, s, body, ct)
	require.Equal(t, http.StatusBadGateway, rec.Code)

	var env uploadEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, dashboard.UploadError, env.Data.Phase)
	assert.Contains(t, env.Data.Message, "The following required fields are missing")

	do(t, s, http.MethodPost, "/api/v1/upload/close", "")
	view := decodeView(t, do(t, s, http.MethodGet, "/api/v1/dashboard", ""))
	assert.Equal(t, dashboard.UploadIdle, view.Data.Upload.Phase)
}

func TestUploadRejectedAfterDialogClosed(t *testing.T) {
	var s *Server
	backend := http.NewServeMux()
	backend.HandleFunc("/api/upload", func(w http.ResponseWriter, r *http.Request) {
		do(t, s, http.MethodPost, "/api/v1/upload/close", "")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"Failed to save sensor data","message":"bad header row"}`))
	})
	s = newServerWithBackend(t, "", backend)

	body, ct := multipartBody(t, "file", "a.csv", "timestamp\n")
	rec := postUpload(t, s, body, ct)
	require.Equal(t, http.StatusBadGateway, rec.Code, rec.Body.String())

	var env uploadEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, dashboard.UploadError, env.Data.Phase)
	assert.Equal(t, "bad header row", env.Data.Message)

	view := decodeView(t, do(t, s, http.MethodGet, "/api/v1/dashboard", ""))
	assert.Equal(t, dashboard.UploadIdle, view.Data.Upload.Phase)
}

func TestUploadTooLarge(t *testing.T) {
	s := newTestServer(t, "")
	body, ct := multipartBody(t, "file", "huge.csv", strings.Repeat("x", 2<<20))
	rec := postUpload(t, s, body, ct)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestBearerAuth(t *testing.T) {
	s := newTestServer(t, "secret")

	rec := do(t, s, http.MethodGet, "/api/v1/dashboard", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, s, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/dashboard", nil)
	req.Header.Set("Authorization", "Bearer secret")
	ok := httptest.NewRecorder()
	s.Engine().ServeHTTP(ok, req)
	assert.Equal(t, http.StatusOK, ok.Code)
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, "")
	rec := do(t, s, http.MethodOptions, "/api/v1/dashboard", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
