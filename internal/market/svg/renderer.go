package svg

import "html/template"

// Renderer exposes the package renderers as methods so handlers can depend
// on small interfaces.
type Renderer struct{}

// Line delegates to Line.
func (Renderer) Line(width, height int, series []Series, labels []string, opts LineOpts) (template.HTML, error) {
	return Line(width, height, series, labels, opts)
}

// Bars delegates to Bars.
func (Renderer) Bars(width, height int, series []Series, labels []string, opts BarOpts) (template.HTML, error) {
	return Bars(width, height, series, labels, opts)
}

// HBars delegates to HBars.
func (Renderer) HBars(width, height int, series Series, labels []string, opts BarOpts) (template.HTML, error) {
	return HBars(width, height, series, labels, opts)
}

// Donut delegates to Donut.
func (Renderer) Donut(width, height int, slices []Slice, opts DonutOpts) (template.HTML, error) {
	return Donut(width, height, slices, opts)
}

// Heatmap delegates to Heatmap.
func (Renderer) Heatmap(width, height int, rowLabels, colLabels []string, values [][]float64, opts HeatmapOpts) (template.HTML, error) {
	return Heatmap(width, height, rowLabels, colLabels, values, opts)
}
