package render

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/02loveslollipop/sensor-dashboard/services/dashboard/series"
)

// ErrNothingToDraw is returned for plots that are not ready.
var ErrNothingToDraw = errors.New("plot has nothing to draw")

// Options controls page framing. Empty fields take defaults.
type Options struct {
	Title      string
	Subtitle   string
	Width      string
	Height     string
	AssetsHost string
	Location   *time.Location
}

type renderer interface {
	Render(w io.Writer) error
}

// Color is the stroke colour of the series at index, rotating hue by 120°.
func Color(index int) string {
	return fmt.Sprintf("hsl(%d, 70%%, 50%%)", (index*120)%360)
}

// Fill is the translucent fill colour matching Color(index).
func Fill(index int) string {
	return fmt.Sprintf("hsla(%d, 70%%, 50%%, 0.2)", (index*120)%360)
}

// Chart writes plot as a standalone HTML page in the given chart kind.
func Chart(w io.Writer, plot series.Plot, kind series.ChartKind, o Options) error {
	if plot.Kind != series.PlotReady {
		return ErrNothingToDraw
	}
	o = o.withDefaults(kind)

	var chart renderer
	switch kind {
	case series.ChartBar:
		chart = barChart(plot, o)
	case series.ChartScatter:
		chart = scatterChart(plot, o)
	case series.ChartLine, series.ChartArea:
		chart = lineChart(plot, o, kind == series.ChartArea)
	default:
		return fmt.Errorf("unsupported chart kind %q", kind)
	}
	return chart.Render(w)
}

func (o Options) withDefaults(kind series.ChartKind) Options {
	if o.Title == "" {
		o.Title = kindTitle(kind)
	}
	if o.Width == "" {
		o.Width = "100%"
	}
	if o.Height == "" {
		o.Height = "560px"
	}
	if o.Location == nil {
		o.Location = time.Local
	}
	return o
}

func kindTitle(kind series.ChartKind) string {
	switch kind {
	case series.ChartBar:
		return "Bar Chart"
	case series.ChartArea:
		return "Area Chart"
	case series.ChartScatter:
		return "Scatter Plot"
	default:
		return "Line Chart"
	}
}

func globalOptions(o Options, xAxis opts.XAxis, zoom bool) []charts.GlobalOpts {
	initOpts := opts.Initialization{PageTitle: o.Title, Width: o.Width, Height: o.Height}
	if o.AssetsHost != "" {
		initOpts.AssetsHost = o.AssetsHost
	}
	out := []charts.GlobalOpts{
		charts.WithInitializationOpts(initOpts),
		charts.WithTitleOpts(opts.Title{Title: o.Title, Subtitle: o.Subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
		charts.WithXAxisOpts(xAxis),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: "Value"}),
	}
	if zoom {
		out = append(out, charts.WithDataZoomOpts(
			opts.DataZoom{Type: "inside", Start: 0, End: 100},
			opts.DataZoom{Type: "slider", Start: 0, End: 100},
		))
	}
	return out
}

var timeAxis = opts.XAxis{Type: "time", Name: "Time"}

func lineChart(plot series.Plot, o Options, area bool) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(globalOptions(o, timeAxis, true)...)

	for i, s := range plot.Series {
		data := make([]opts.LineData, 0, len(s.Points))
		for _, p := range s.Points {
			data = append(data, opts.LineData{Value: []interface{}{p.At.UnixMilli(), p.Value}})
		}
		seriesOpts := []charts.SeriesOpts{
			charts.WithLineStyleOpts(opts.LineStyle{Color: Color(i)}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: Color(i)}),
		}
		if area {
			seriesOpts = append(seriesOpts, charts.WithAreaStyleOpts(opts.AreaStyle{Color: Fill(i)}))
		}
		line.AddSeries(s.Field.Label, data, seriesOpts...)
	}
	return line
}

func scatterChart(plot series.Plot, o Options) *charts.Scatter {
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(globalOptions(o, timeAxis, true)...)

	for i, s := range plot.Series {
		data := make([]opts.ScatterData, 0, len(s.Points))
		for _, p := range s.Points {
			data = append(data, opts.ScatterData{Value: []interface{}{p.At.UnixMilli(), p.Value}})
		}
		scatter.AddSeries(s.Field.Label, data,
			charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 6}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: Color(i)}),
		)
	}
	return scatter
}

// barChart labels the category axis with HH:MM of the first series' points.
func barChart(plot series.Plot, o Options) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(globalOptions(o, opts.XAxis{Type: "category", Name: "Time"}, false)...)

	var labels []string
	if len(plot.Series) > 0 {
		labels = make([]string, 0, len(plot.Series[0].Points))
		for _, p := range plot.Series[0].Points {
			labels = append(labels, p.At.In(o.Location).Format("15:04"))
		}
	}
	bar.SetXAxis(labels)

	for i, s := range plot.Series {
		data := make([]opts.BarData, 0, len(s.Points))
		for _, p := range s.Points {
			data = append(data, opts.BarData{Value: p.Value})
		}
		bar.AddSeries(s.Field.Label, data, charts.WithItemStyleOpts(opts.ItemStyle{Color: Color(i)}))
	}
	return bar
}
