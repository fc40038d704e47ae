package dashboard

import (
	"github.com/02loveslollipop/sensor-dashboard/services/dashboard/series"
)

// MaxFields is the most metrics that can be plotted at once.
const MaxFields = 3

// ChartOption is a chart kind offered in the picker.
type ChartOption struct {
	Kind  series.ChartKind `json:"kind"`
	Label string           `json:"label"`
}

// Preset is a predefined look-back window.
type Preset struct {
	Hours int    `json:"hours"`
	Label string `json:"label"`
}

// Catalog is the read-only configuration the controller validates choices against.
type Catalog struct {
	Fields     []series.Field `json:"fields"`
	ChartKinds []ChartOption  `json:"chart_kinds"`
	Presets    []Preset       `json:"presets"`
}

// DefaultCatalog returns the stock fields, chart kinds and presets.
func DefaultCatalog() Catalog {
	return Catalog{
		Fields: series.DefaultFields(),
		ChartKinds: []ChartOption{
			{Kind: series.ChartLine, Label: "Line Chart"},
			{Kind: series.ChartBar, Label: "Bar Chart"},
			{Kind: series.ChartArea, Label: "Area Chart"},
			{Kind: series.ChartScatter, Label: "Scatter Plot"},
		},
		Presets: []Preset{
			{Hours: 1, Label: "Last Hour"},
			{Hours: 3, Label: "Last 3 Hours"},
			{Hours: 12, Label: "Last 12 Hours"},
			{Hours: 24, Label: "Last 24 Hours"},
		},
	}
}

// Field looks a field up by key.
func (c Catalog) Field(key string) (series.Field, bool) {
	for _, f := range c.Fields {
		if f.Key == key {
			return f, true
		}
	}
	return series.Field{}, false
}

func (c Catalog) hasKind(kind series.ChartKind) bool {
	for _, opt := range c.ChartKinds {
		if opt.Kind == kind {
			return true
		}
	}
	return false
}

func (c Catalog) hasPreset(hours int) bool {
	for _, p := range c.Presets {
		if p.Hours == hours {
			return true
		}
	}
	return false
}

// defaultKind is the first offered chart kind, line when none are offered.
func (c Catalog) defaultKind() series.ChartKind {
	if len(c.ChartKinds) == 0 {
		return series.ChartLine
	}
	return c.ChartKinds[0].Kind
}
