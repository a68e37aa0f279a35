package svg

import (
	"fmt"
	"html/template"
	"math"
	"strings"
)

// Bars renders a grouped vertical bar chart, one bar per series per label.
// Negative values hang below the zero line.
func Bars(width, height int, series []Series, labels []string, opts BarOpts) (template.HTML, error) {
	if err := validateSeries(series, labels); err != nil {
		return "", err
	}
	p, err := newPlot(width, height, opts.Padding, opts.TickCount, opts.AxisColor, opts.GridColor)
	if err != nil {
		return "", err
	}

	minVal, maxVal := seriesBounds(series)
	scale := p.h / (maxVal - minVal)
	zeroY := p.bottom() + minVal*scale
	groupWidth := p.w / float64(len(labels))
	barWidth := groupWidth * 0.8 / float64(len(series))

	var b strings.Builder
	openSVG(&b, p.width, p.height, opts.Title, opts.Description, "bar", "Bar chart", "Grouped bar comparison")
	p.gridLines(&b, minVal, maxVal)
	p.axes(&b, zeroY)

	stride := labelStride(len(labels), opts.MaxLabels)
	for i, label := range labels {
		left := p.pad + float64(i)*groupWidth
		for si, s := range series {
			y, h := barPosition(s.Values[i], scale, zeroY, p.pad, p.bottom())
			fmt.Fprintf(&b, "<rect x=\"%.2f\" y=\"%.2f\" width=\"%.2f\" height=\"%.2f\" fill=\"%s\" aria-label=\"%s %s\"><title>%s</title></rect>",
				left+groupWidth*0.1+float64(si)*barWidth, y, barWidth, h, colorAt(s.Color, si),
				template.HTMLEscapeString(s.Name), template.HTMLEscapeString(label),
				template.HTMLEscapeString(formatTick(s.Values[i])))
		}
		if i%stride == 0 {
			p.xLabel(&b, left+groupWidth/2, label)
		}
	}
	if len(series) > 1 {
		writeLegend(&b, series, p.pad, p.pad-14, p.axis)
	}
	b.WriteString("</svg>")
	return template.HTML(b.String()), nil
}

// HBars renders one series as horizontal bars, labels on the left.
func HBars(width, height int, series Series, labels []string, opts BarOpts) (template.HTML, error) {
	if err := validateSeries([]Series{series}, labels); err != nil {
		return "", err
	}
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	padding := opts.Padding
	if padding <= 0 {
		padding = DefaultPadding
	}
	axisColor := fallback(opts.AxisColor, defaultAxisColor)
	color := colorAt(series.Color, 0)

	labelWidth := 0.0
	for _, l := range labels {
		labelWidth = math.Max(labelWidth, float64(len(l))*6)
	}
	left := padding + labelWidth
	chartWidth := float64(width) - left - padding
	chartHeight := float64(height) - 2*padding
	if chartWidth <= 0 || chartHeight <= 0 {
		return "", errViewport
	}
	_, maxVal := seriesBounds([]Series{series})
	rowHeight := chartHeight / float64(len(labels))

	var b strings.Builder
	openSVG(&b, width, height, opts.Title, opts.Description, "hbar", "Bar chart", "Horizontal bar comparison")
	fmt.Fprintf(&b, "<line x1=\"%.2f\" y1=\"%.2f\" x2=\"%.2f\" y2=\"%.2f\" stroke=\"%s\" stroke-width=\"1\"></line>", left, padding, left, padding+chartHeight, axisColor)
	for i, label := range labels {
		v := math.Max(series.Values[i], 0)
		w := v / maxVal * chartWidth
		y := padding + float64(i)*rowHeight + rowHeight*0.15
		h := rowHeight * 0.7
		fmt.Fprintf(&b, "<text x=\"%.2f\" y=\"%.2f\" fill=\"%s\" font-size=\"10\" text-anchor=\"end\">%s</text>", left-6, y+h/2+3, axisColor, template.HTMLEscapeString(label))
		fmt.Fprintf(&b, "<rect x=\"%.2f\" y=\"%.2f\" width=\"%.2f\" height=\"%.2f\" fill=\"%s\" aria-label=\"%s\"></rect>", left, y, w, h, color, template.HTMLEscapeString(label))
		fmt.Fprintf(&b, "<text x=\"%.2f\" y=\"%.2f\" fill=\"%s\" font-size=\"10\" text-anchor=\"start\">%s</text>", left+w+4, y+h/2+3, axisColor, template.HTMLEscapeString(formatTick(series.Values[i])))
	}
	b.WriteString("</svg>")
	return template.HTML(b.String()), nil
}

func barPosition(value, scale, zeroY, padding, bottom float64) (float64, float64) {
	if value >= 0 {
		height := value * scale
		y := zeroY - height
		if y < padding {
			height -= padding - y
			y = padding
		}
		if height < 0 {
			height = 0
		}
		return y, height
	}
	height := math.Abs(value * scale)
	y := zeroY
	if y+height > bottom {
		height = bottom - y
	}
	if height < 0 {
		height = 0
	}
	return y, height
}
