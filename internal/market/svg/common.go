package svg

import (
	"errors"
	"fmt"
	"html/template"
	"math"
	"strings"
)

var (
	errNoSeries = errors.New("svg: series required")
	errNoLabels = errors.New("svg: labels required")
	errViewport = errors.New("svg: viewport too small")
)

const (
	defaultAxisColor = "#475569"
	defaultGridColor = "#cbd5f5"
)

// plot is the drawable area of an axis chart: the viewport minus padding
// on every side.
type plot struct {
	width, height int
	pad           float64
	w, h          float64
	ticks         int
	axis, grid    string
}

func newPlot(width, height int, pad float64, ticks int, axis, grid string) (plot, error) {
	p := plot{width: width, height: height, pad: pad, ticks: ticks}
	if p.width <= 0 {
		p.width = DefaultWidth
	}
	if p.height <= 0 {
		p.height = DefaultHeight
	}
	if p.pad <= 0 {
		p.pad = DefaultPadding
	}
	if p.ticks <= 0 {
		p.ticks = DefaultTicks
	}
	p.axis = fallback(axis, defaultAxisColor)
	p.grid = fallback(grid, defaultGridColor)
	p.w = float64(p.width) - 2*p.pad
	p.h = float64(p.height) - 2*p.pad
	if p.w <= 0 || p.h <= 0 {
		return plot{}, errViewport
	}
	return p, nil
}

func (p plot) bottom() float64 { return p.pad + p.h }

// axes draws the y axis and a horizontal baseline at y.
func (p plot) axes(b *strings.Builder, baseline float64) {
	fmt.Fprintf(b, "<g stroke=\"%s\" stroke-width=\"1\" aria-label=\"Axes\">", p.axis)
	fmt.Fprintf(b, "<line x1=\"%.2f\" y1=\"%.2f\" x2=\"%.2f\" y2=\"%.2f\"></line>", p.pad, p.pad, p.pad, p.bottom())
	fmt.Fprintf(b, "<line x1=\"%.2f\" y1=\"%.2f\" x2=\"%.2f\" y2=\"%.2f\"></line>", p.pad, baseline, p.pad+p.w, baseline)
	b.WriteString("</g>")
}

// xLabel writes a centered category label under the plot.
func (p plot) xLabel(b *strings.Builder, x float64, label string) {
	fmt.Fprintf(b, "<text x=\"%.2f\" y=\"%.2f\" fill=\"%s\" font-size=\"10\" text-anchor=\"middle\">%s</text>", x, p.bottom()+14, p.axis, template.HTMLEscapeString(label))
}

func fallback(value, defaultValue string) string {
	if strings.TrimSpace(value) == "" {
		return defaultValue
	}
	return value
}

func colorAt(color string, i int) string {
	return fallback(color, Palette[i%len(Palette)])
}

func bounds(series []float64) (float64, float64) {
	minVal := series[0]
	maxVal := series[0]
	for _, v := range series[1:] {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}
	return minVal, maxVal
}

// seriesBounds spans every value and always includes zero.
func seriesBounds(series []Series) (float64, float64) {
	minVal, maxVal := 0.0, 0.0
	for _, s := range series {
		if len(s.Values) == 0 {
			continue
		}
		lo, hi := bounds(s.Values)
		minVal = math.Min(minVal, lo)
		maxVal = math.Max(maxVal, hi)
	}
	if almostEqual(maxVal, minVal) {
		maxVal = minVal + 1
	}
	return minVal, maxVal
}

func validateSeries(series []Series, labels []string) error {
	if len(series) == 0 {
		return errNoSeries
	}
	if len(labels) == 0 {
		return errNoLabels
	}
	for _, s := range series {
		if len(s.Values) != len(labels) {
			return fmt.Errorf("svg: series %q length must match labels", s.Name)
		}
	}
	return nil
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func makeID(base, suffix string) string {
	cleaned := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		if r == '-' || r == '_' {
			return r
		}
		return '-'
	}, strings.ToLower(strings.TrimSpace(base)))
	cleaned = strings.Trim(cleaned, "-")
	if cleaned == "" {
		cleaned = "chart"
	}
	return fmt.Sprintf("%s-%s", cleaned, suffix)
}

func formatTick(v float64) string {
	abs := math.Abs(v)
	switch {
	case abs >= 1_000_000_000:
		return fmt.Sprintf("%.1fB", v/1_000_000_000)
	case abs >= 1_000_000:
		return fmt.Sprintf("%.1fM", v/1_000_000)
	case abs >= 1_000:
		return fmt.Sprintf("%.1fk", v/1_000)
	default:
		if almostEqual(v, math.Round(v)) {
			return fmt.Sprintf("%.0f", v)
		}
		return fmt.Sprintf("%.2f", v)
	}
}

// labelStride returns the step between printed x labels.
func labelStride(n, maxLabels int) int {
	if maxLabels <= 0 || n <= maxLabels {
		return 1
	}
	return int(math.Ceil(float64(n) / float64(maxLabels)))
}

func openSVG(b *strings.Builder, width, height int, title, desc, kind, defaultTitle, defaultDesc string) {
	titleID := makeID(title, kind+"-title")
	descID := makeID(title, kind+"-desc")
	fmt.Fprintf(b, "<svg xmlns=\"http://www.w3.org/2000/svg\" viewBox=\"0 0 %d %d\" role=\"img\" aria-labelledby=\"%s %s\">", width, height, titleID, descID)
	fmt.Fprintf(b, "<title id=\"%s\">%s</title>", titleID, template.HTMLEscapeString(fallback(title, defaultTitle)))
	fmt.Fprintf(b, "<desc id=\"%s\">%s</desc>", descID, template.HTMLEscapeString(fallback(desc, defaultDesc)))
}

// gridLines draws dashed horizontal guides with value ticks on the y axis.
func (p plot) gridLines(b *strings.Builder, minVal, maxVal float64) {
	for i := 0; i <= p.ticks; i++ {
		ratio := float64(i) / float64(p.ticks)
		y := p.bottom() - ratio*p.h
		fmt.Fprintf(b, "<line x1=\"%.2f\" y1=\"%.2f\" x2=\"%.2f\" y2=\"%.2f\" stroke=\"%s\" stroke-width=\"0.5\" stroke-dasharray=\"2,4\" aria-hidden=\"true\"></line>", p.pad, y, p.pad+p.w, y, p.grid)
		fmt.Fprintf(b, "<text x=\"%.2f\" y=\"%.2f\" fill=\"%s\" font-size=\"10\" text-anchor=\"end\">%s</text>", p.pad-6, y+4, p.axis, template.HTMLEscapeString(formatTick(minVal+(maxVal-minVal)*ratio)))
	}
}

// writeLegend lays out series swatches along the top edge.
func writeLegend(b *strings.Builder, series []Series, x, y float64, axisColor string) {
	for i, s := range series {
		fmt.Fprintf(b, "<rect x=\"%.2f\" y=\"%.2f\" width=\"10\" height=\"10\" fill=\"%s\"></rect>", x, y-8, colorAt(s.Color, i))
		fmt.Fprintf(b, "<text x=\"%.2f\" y=\"%.2f\" fill=\"%s\" font-size=\"10\" text-anchor=\"start\">%s</text>", x+14, y, axisColor, template.HTMLEscapeString(s.Name))
		x += 14 + float64(len(s.Name))*6 + 12
	}
}
