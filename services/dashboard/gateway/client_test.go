package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL, 5*time.Second)
}

func TestListDevicesBarePayload(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/objects", r.URL.Path)
		_, err := uuid.Parse(r.Header.Get(requestIDHeader))
		assert.NoError(t, err, "request id should be a uuid")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"objectId":3},{"objectId":12.5}]`))
	})

	res := client.ListDevices(context.Background())
	require.NoError(t, res.Err)
	want := []Device{{ID: "3", Label: "Device 3"}, {ID: "12.5", Label: "Device 12.5"}}
	if diff := cmp.Diff(want, res.Value); diff != "" {
		t.Fatalf("devices mismatch (-want +got):\n%s", diff)
	}
}

func TestListDevicesDataEnvelope(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"objectId":7}]}`))
	})

	res := client.ListDevices(context.Background())
	require.NoError(t, res.Err)
	assert.Equal(t, []Device{{ID: "7", Label: "Device 7"}}, res.Value)
}

func TestListDevicesFailuresDegradeToEmpty(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"server error": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		},
		"not json": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("<html>"))
		},
		"null envelope": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"data":null}`))
		},
		"missing id": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`[{"name":"x"}]`))
		},
	}
	for name, handler := range cases {
		t.Run(name, func(t *testing.T) {
			res := newTestClient(t, handler).ListDevices(context.Background())
			assert.Error(t, res.Err)
			assert.True(t, res.Failed())
			assert.NotNil(t, res.Value)
			assert.Empty(t, res.Value)
		})
	}
}

func TestListDevicesUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	res := New(srv.URL, time.Second).ListDevices(context.Background())
	assert.Error(t, res.Err)
	assert.Empty(t, res.Value)
}

func TestListPorts(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/ports/3", r.URL.Path)
		_, _ = w.Write([]byte(`[{"portNum":1},{"portNum":2}]`))
	})

	res := client.ListPorts(context.Background(), "3")
	require.NoError(t, res.Err)
	assert.Equal(t, []Port{{ID: "1"}, {ID: "2"}}, res.Value)
}

func TestListSensorRowsAllPortsOmitsQuery(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/data/3", r.URL.Path)
		assert.Empty(t, r.URL.RawQuery)
		_, _ = w.Write([]byte(`{"SensorData":[
			{"timestamp":"2024-01-01T00:00:00Z","current":1.5,"voltage":12},
			{"timestamp":"2024-01-01T00:05:00Z","current":1.75}
		],"Total":2}`))
	})

	res := client.ListSensorRows(context.Background(), "3", AllPorts)
	require.NoError(t, res.Err)
	assert.Equal(t, "3", res.Value.DeviceID)
	assert.True(t, res.Value.Port.All())
	assert.EqualValues(t, 2, res.Value.Total)
	require.Len(t, res.Value.Rows, 2)

	first := res.Value.Rows[0]
	assert.True(t, first.Timestamp.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
	v, ok := first.Metric("voltage")
	assert.True(t, ok)
	assert.Equal(t, 12.0, v)

	_, ok = res.Value.Rows[1].Metric("voltage")
	assert.False(t, ok, "absent metric should not read as zero")
}

func TestListSensorRowsSinglePort(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2", r.URL.Query().Get("port_num"))
		_, _ = w.Write([]byte(`{"data":{"SensorData":[],"Total":0}}`))
	})

	res := client.ListSensorRows(context.Background(), "3", PortOf("2"))
	require.NoError(t, res.Err)
	assert.Equal(t, "2", res.Value.Port.ID())
	assert.NotNil(t, res.Value.Rows)
	assert.Empty(t, res.Value.Rows)
}

func TestListSensorRowsDropsBadTimestamps(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"SensorData":[
			{"timestamp":"not a date","current":1},
			{"timestamp":"2024-01-01T00:00:00","current":2}
		],"Total":2}`))
	})

	res := client.ListSensorRows(context.Background(), "3", AllPorts)
	require.NoError(t, res.Err)
	require.Len(t, res.Value.Rows, 1)
	v, _ := res.Value.Rows[0].Metric("current")
	assert.Equal(t, 2.0, v)
}

func TestListSensorRowsMissingSensorData(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"Total":4}`))
	})

	res := client.ListSensorRows(context.Background(), "3", PortOf("1"))
	assert.ErrorIs(t, res.Err, ErrMalformed)
	assert.Equal(t, "3", res.Value.DeviceID)
	assert.Equal(t, "1", res.Value.Port.ID())
	assert.Empty(t, res.Value.Rows)
}

func TestListSensorRowsCancelled(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := client.ListSensorRows(ctx, "3", AllPorts)
	assert.ErrorIs(t, res.Err, context.Canceled)
	assert.Empty(t, res.Value.Rows)
}

func TestPortSelector(t *testing.T) {
	assert.True(t, AllPorts.All())
	assert.True(t, PortOf(" ").All())
	assert.Equal(t, "all", AllPorts.String())
	assert.Equal(t, "4", PortOf("4").String())
	assert.False(t, PortOf("4").All())
}
