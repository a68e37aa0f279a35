package svg

import (
	"fmt"
	"html/template"
	"math"
	"strconv"
	"strings"
)

// Heatmap renders a labelled matrix of colored cells with their values.
// values[row][col] must match rowLabels and colLabels.
func Heatmap(width, height int, rowLabels, colLabels []string, values [][]float64, opts HeatmapOpts) (template.HTML, error) {
	if len(rowLabels) == 0 || len(colLabels) == 0 {
		return "", errNoLabels
	}
	if len(values) != len(rowLabels) {
		return "", fmt.Errorf("svg: rows must match row labels")
	}
	for _, row := range values {
		if len(row) != len(colLabels) {
			return "", fmt.Errorf("svg: columns must match column labels")
		}
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
	lo, hi := opts.Min, opts.Max
	if almostEqual(lo, hi) {
		lo, hi = 0, 1
	}
	low := fallback(opts.LowColor, "#eff6ff")
	high := fallback(opts.HighColor, "#1d4ed8")
	textColor := fallback(opts.TextColor, "#0f172a")

	labelWidth := 0.0
	for _, l := range rowLabels {
		labelWidth = math.Max(labelWidth, float64(len(l))*6)
	}
	left := padding + labelWidth
	top := padding
	cellW := (float64(width) - left - padding) / float64(len(colLabels))
	cellH := (float64(height) - top - padding) / float64(len(rowLabels))
	if cellW <= 0 || cellH <= 0 {
		return "", errViewport
	}

	var b strings.Builder
	openSVG(&b, width, height, opts.Title, opts.Description, "heatmap", "Heatmap", "Matrix of values")
	for j, label := range colLabels {
		fmt.Fprintf(&b, "<text x=\"%.2f\" y=\"%.2f\" fill=\"%s\" font-size=\"10\" text-anchor=\"middle\">%s</text>", left+float64(j)*cellW+cellW/2, top-6, textColor, template.HTMLEscapeString(label))
	}
	for i, label := range rowLabels {
		y := top + float64(i)*cellH
		fmt.Fprintf(&b, "<text x=\"%.2f\" y=\"%.2f\" fill=\"%s\" font-size=\"10\" text-anchor=\"end\">%s</text>", left-6, y+cellH/2+3, textColor, template.HTMLEscapeString(label))
		for j, v := range values[i] {
			ratio := (v - lo) / (hi - lo)
			fill := mix(low, high, ratio)
			x := left + float64(j)*cellW
			fmt.Fprintf(&b, "<rect x=\"%.2f\" y=\"%.2f\" width=\"%.2f\" height=\"%.2f\" fill=\"%s\" stroke=\"#ffffff\" stroke-width=\"1\"></rect>", x, y, cellW, cellH, fill)
			ink := textColor
			if ratio > 0.6 {
				ink = "#ffffff"
			}
			fmt.Fprintf(&b, "<text x=\"%.2f\" y=\"%.2f\" fill=\"%s\" font-size=\"10\" text-anchor=\"middle\">%.2f</text>", x+cellW/2, y+cellH/2+3, ink, v)
		}
	}
	b.WriteString("</svg>")
	return template.HTML(b.String()), nil
}

// mix interpolates two #rrggbb colors; ratio is clamped to [0, 1].
func mix(from, to string, ratio float64) string {
	ratio = math.Max(0, math.Min(1, ratio))
	fr, fg, fb, ok1 := parseHex(from)
	tr, tg, tb, ok2 := parseHex(to)
	if !ok1 || !ok2 {
		if ratio < 0.5 {
			return from
		}
		return to
	}
	lerp := func(a, b int) int { return a + int(math.Round(float64(b-a)*ratio)) }
	return fmt.Sprintf("#%02x%02x%02x", lerp(fr, tr), lerp(fg, tg), lerp(fb, tb))
}

func parseHex(color string) (int, int, int, bool) {
	color = strings.TrimPrefix(color, "#")
	if len(color) != 6 {
		return 0, 0, 0, false
	}
	v, err := strconv.ParseUint(color, 16, 32)
	if err != nil {
		return 0, 0, 0, false
	}
	return int(v >> 16 & 0xff), int(v >> 8 & 0xff), int(v & 0xff), true
}
