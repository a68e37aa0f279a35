package svg

import (
	"fmt"
	"html/template"
	"strings"
)

// Line renders a multi-series line chart. Every series must carry one value
// per label. With SplitAt set, the tail of each series is drawn dashed as a
// projection.
func Line(width, height int, series []Series, labels []string, opts LineOpts) (template.HTML, error) {
	if err := validateSeries(series, labels); err != nil {
		return "", err
	}
	p, err := newPlot(width, height, opts.Padding, opts.TickCount, opts.AxisColor, opts.GridColor)
	if err != nil {
		return "", err
	}

	minVal, maxVal := seriesBounds(series)
	scale := p.h / (maxVal - minVal)
	xAt := func(i int) float64 {
		if len(labels) == 1 {
			return p.pad + p.w/2
		}
		return p.pad + float64(i)*p.w/float64(len(labels)-1)
	}
	yAt := func(v float64) float64 { return p.bottom() - (v-minVal)*scale }

	var b strings.Builder
	openSVG(&b, p.width, p.height, opts.Title, opts.Description, "line", "Line chart", "Trend data")
	p.gridLines(&b, minVal, maxVal)
	p.axes(&b, p.bottom())

	split := len(labels)
	if opts.SplitAt > 0 && opts.SplitAt < split {
		split = opts.SplitAt
	}
	for si, s := range series {
		color := colorAt(s.Color, si)
		name := template.HTMLEscapeString(s.Name)
		solid := pathFor(s.Values[:split], 0, xAt, yAt)
		if opts.Fill && len(series) == 1 {
			fmt.Fprintf(&b, "<path d=\"%s L%.2f %.2f L%.2f %.2f Z\" fill=\"%s\" fill-opacity=\"0.12\" stroke=\"none\" aria-hidden=\"true\"></path>",
				solid, xAt(split-1), p.bottom(), xAt(0), p.bottom(), color)
		}
		fmt.Fprintf(&b, "<path d=\"%s\" fill=\"none\" stroke=\"%s\" stroke-width=\"2\" stroke-linejoin=\"round\" stroke-linecap=\"round\" aria-label=\"%s\"></path>", solid, color, name)
		if split < len(labels) {
			fmt.Fprintf(&b, "<path d=\"%s\" fill=\"none\" stroke=\"%s\" stroke-width=\"2\" stroke-dasharray=\"6,4\" aria-label=\"%s projection\"></path>",
				pathFor(s.Values[split-1:], split-1, xAt, yAt), color, name)
		}
		if opts.ShowDots {
			for i, v := range s.Values {
				fmt.Fprintf(&b, "<circle cx=\"%.2f\" cy=\"%.2f\" r=\"3\" fill=\"%s\"></circle>", xAt(i), yAt(v), color)
			}
		}
	}

	stride := labelStride(len(labels), opts.MaxLabels)
	for i := 0; i < len(labels); i += stride {
		p.xLabel(&b, xAt(i), labels[i])
	}
	if len(series) > 1 {
		writeLegend(&b, series, p.pad, p.pad-14, p.axis)
	}
	b.WriteString("</svg>")
	return template.HTML(b.String()), nil
}

func pathFor(values []float64, offset int, xAt func(int) float64, yAt func(float64) float64) string {
	var path strings.Builder
	for i, v := range values {
		cmd := " L"
		if i == 0 {
			cmd = "M"
		}
		fmt.Fprintf(&path, "%s%.2f %.2f", cmd, xAt(i+offset), yAt(v))
	}
	return path.String()
}
