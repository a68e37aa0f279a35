package svg

// Series is one named, colored run of values sharing the chart labels.
type Series struct {
	Name   string
	Color  string
	Values []float64
}

// Slice is one wedge of a donut chart.
type Slice struct {
	Label string
	Color string
	Value float64
}

// LineOpts customises the line chart renderer.
type LineOpts struct {
	Title       string
	Description string
	AxisColor   string
	GridColor   string
	Padding     float64
	ShowDots    bool
	TickCount   int
	// Fill shades the area under a chart holding a single series.
	Fill bool
	// SplitAt draws the values from this index onwards dashed. Zero disables.
	SplitAt int
	// MaxLabels thins x-axis labels on long series.
	MaxLabels int
}

// BarOpts customises the grouped and horizontal bar renderers.
type BarOpts struct {
	Title       string
	Description string
	AxisColor   string
	GridColor   string
	Padding     float64
	TickCount   int
	MaxLabels   int
}

// DonutOpts customises the donut renderer.
type DonutOpts struct {
	Title       string
	Description string
	// Hole is the inner radius as a fraction of the outer radius.
	Hole      float64
	TextColor string
}

// HeatmapOpts customises the heatmap renderer. Values are mapped from
// Min (LowColor) to Max (HighColor).
type HeatmapOpts struct {
	Title       string
	Description string
	Min         float64
	Max         float64
	LowColor    string
	HighColor   string
	TextColor   string
	Padding     float64
}

// Defaults for the dashboard charts.
const (
	DefaultWidth   = 720
	DefaultHeight  = 260
	DefaultPadding = 36.0
	DefaultTicks   = 5
)

// Palette is used for series without an explicit color.
var Palette = []string{"#2563eb", "#f97316", "#16a34a", "#db2777", "#9333ea", "#0891b2", "#ca8a04", "#dc2626"}
