package dashboard

import (
	"slices"

	"github.com/02loveslollipop/sensor-dashboard/services/dashboard/gateway"
	"github.com/02loveslollipop/sensor-dashboard/services/dashboard/series"
)

// Status is what the chart area should show.
type Status string

const (
	StatusNoDevice    Status = "no_device"
	StatusLoading     Status = "loading"
	StatusFetchFailed Status = "fetch_failed"
	StatusNoData      Status = "no_data"
	StatusNoFields    Status = "no_fields"
	StatusNoPoints    Status = "no_points"
	StatusReady       Status = "ready"
)

// Message is the empty-state text shown in place of a chart.
func (s Status) Message() string {
	switch s {
	case StatusNoDevice:
		return "Select a device to view its sensor data."
	case StatusLoading:
		return "Loading sensor data..."
	case StatusFetchFailed:
		return "Sensor data could not be loaded. Try again later."
	case StatusNoData:
		return "No data available for this device."
	case StatusNoFields:
		return "Select at least one field to plot."
	case StatusNoPoints:
		return "No data points in the selected time range."
	default:
		return ""
	}
}

// View is a point-in-time copy of the controller state.
type View struct {
	Status        Status           `json:"status"`
	Message       string           `json:"message,omitempty"`
	Loading       bool             `json:"loading"`
	Devices       []gateway.Device `json:"devices"`
	DevicesFailed bool             `json:"devices_failed"`
	DeviceID      string           `json:"device_id"`
	Ports         []gateway.Port   `json:"ports"`
	PortsFailed   bool             `json:"ports_failed"`
	PortID        string           `json:"port_id"`
	Fields        []series.Field   `json:"fields"`
	Window        series.Window    `json:"window"`
	Preset        int              `json:"preset,omitempty"`
	ChartKind     series.ChartKind `json:"chart_kind"`
	RowCount      int              `json:"row_count"`
	Total         int64            `json:"total"`
	Plot          series.Plot      `json:"plot"`
	Revision      uint64           `json:"revision"`
	Upload        UploadState      `json:"upload"`
}

// View returns a snapshot that later changes to the controller do not affect.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	status := c.statusLocked()
	return View{
		Status:        status,
		Message:       status.Message(),
		Loading:       c.devicesFetch.pending || c.portsFetch.pending || c.rowsFetch.pending,
		Devices:       slices.Clone(c.devices),
		DevicesFailed: c.devicesErr != nil,
		DeviceID:      c.deviceID,
		Ports:         slices.Clone(c.ports),
		PortsFailed:   c.portsErr != nil,
		PortID:        c.portID,
		Fields:        c.selectedFieldsLocked(),
		Window:        copyWindow(c.window),
		Preset:        c.preset,
		ChartKind:     c.kind,
		RowCount:      len(c.rows.Rows),
		Total:         c.rows.Total,
		Plot:          c.plot,
		Revision:      c.revision,
		Upload:        c.upload,
	}
}

func (c *Controller) statusLocked() Status {
	switch {
	case c.deviceID == "":
		return StatusNoDevice
	case c.rowsFetch.pending:
		return StatusLoading
	case c.rowsErr != nil:
		return StatusFetchFailed
	case len(c.rows.Rows) == 0:
		return StatusNoData
	case len(c.fields) == 0:
		return StatusNoFields
	case c.plot.Kind == series.PlotNoPoints:
		return StatusNoPoints
	default:
		return StatusReady
	}
}

func copyWindow(w series.Window) series.Window {
	var out series.Window
	if w.Start != nil {
		start := *w.Start
		out.Start = &start
	}
	if w.End != nil {
		end := *w.End
		out.End = &end
	}
	return out
}
