package series

// ChartKind is the visual form a plot is drawn in.
type ChartKind string

const (
	ChartLine    ChartKind = "line"
	ChartBar     ChartKind = "bar"
	ChartArea    ChartKind = "area"
	ChartScatter ChartKind = "scatter"
)

// Valid reports whether k is one of the known chart kinds.
func (k ChartKind) Valid() bool {
	switch k {
	case ChartLine, ChartBar, ChartArea, ChartScatter:
		return true
	}
	return false
}
