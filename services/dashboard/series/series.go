package series

import (
	"time"

	"github.com/02loveslollipop/sensor-dashboard/services/dashboard/gateway"
)

// Field is a plottable metric: Key is the wire name, Label the display name.
type Field struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// DefaultFields returns the metric catalog offered by the dashboard, in display order.
func DefaultFields() []Field {
	return []Field{
		{Key: "current", Label: "Current"},
		{Key: "voltage", Label: "Voltage"},
		{Key: "supply_current", Label: "Supply Current"},
		{Key: "supply_volt", Label: "Supply Voltage"},
		{Key: "voltage_drop", Label: "Voltage Drop"},
		{Key: "voc", Label: "VOC"},
	}
}

// Window is an optional time range. It filters only when both bounds are set.
type Window struct {
	Start *time.Time `json:"start,omitempty"`
	End   *time.Time `json:"end,omitempty"`
}

// Bounded reports whether both bounds are present.
func (w Window) Bounded() bool { return w.Start != nil && w.End != nil }

// Contains reports whether t lies in the window, inclusive on both ends.
// An unbounded window contains everything.
func (w Window) Contains(t time.Time) bool {
	if !w.Bounded() {
		return true
	}
	return !t.Before(*w.Start) && !t.After(*w.End)
}

// Point is one (timestamp, value) sample.
type Point struct {
	At    time.Time `json:"x"`
	Value float64   `json:"y"`
}

// Series is the ordered points of a single field.
type Series struct {
	Field  Field   `json:"field"`
	Points []Point `json:"points"`
}

// PlotKind tells the renderer what to draw.
type PlotKind int

const (
	// PlotNothing means there are no rows or no fields selected.
	PlotNothing PlotKind = iota
	// PlotNoPoints means no row survived the window filter.
	PlotNoPoints
	// PlotReady means every selected field has one point per surviving row.
	PlotReady
)

func (k PlotKind) String() string {
	switch k {
	case PlotNoPoints:
		return "no_points"
	case PlotReady:
		return "ready"
	default:
		return "nothing"
	}
}

func (k PlotKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Plot is the chart-ready output of Build.
type Plot struct {
	Kind   PlotKind `json:"kind"`
	Series []Series `json:"series"`
}

// Build turns sensor rows into one series per field, in field order.
// Rows are read in the order given and are never modified. A row that does
// not carry a field contributes a zero value for it.
func Build(rows []gateway.SensorRow, fields []Field, window Window) Plot {
	if len(rows) == 0 || len(fields) == 0 {
		return Plot{Kind: PlotNothing, Series: []Series{}}
	}

	inWindow := rows
	if window.Bounded() {
		inWindow = make([]gateway.SensorRow, 0, len(rows))
		for _, row := range rows {
			if window.Contains(row.Timestamp) {
				inWindow = append(inWindow, row)
			}
		}
	}
	if len(inWindow) == 0 {
		return Plot{Kind: PlotNoPoints, Series: []Series{}}
	}

	out := make([]Series, 0, len(fields))
	for _, field := range fields {
		if field.Label == "" {
			field.Label = field.Key
		}
		points := make([]Point, 0, len(inWindow))
		for _, row := range inWindow {
			v, _ := row.Metric(field.Key)
			points = append(points, Point{At: row.Timestamp, Value: v})
		}
		out = append(out, Series{Field: field, Points: points})
	}
	return Plot{Kind: PlotReady, Series: out}
}
