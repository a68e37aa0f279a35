package svg

import (
	"fmt"
	"html/template"
	"math"
	"strings"
)

// Donut renders proportional wedges with a legend on the right. Negative
// values count as zero.
func Donut(width, height int, slices []Slice, opts DonutOpts) (template.HTML, error) {
	if len(slices) == 0 {
		return "", fmt.Errorf("svg: slices required")
	}
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	total := 0.0
	for _, s := range slices {
		total += math.Max(s.Value, 0)
	}
	textColor := fallback(opts.TextColor, defaultAxisColor)
	hole := opts.Hole
	if hole <= 0 || hole >= 1 {
		hole = 0.55
	}

	radius := math.Min(float64(height), float64(width)*0.6) / 2 * 0.9
	cx := radius + 12
	cy := float64(height) / 2
	inner := radius * hole

	var b strings.Builder
	openSVG(&b, width, height, opts.Title, opts.Description, "donut", "Donut chart", "Share breakdown")

	if total <= 0 {
		fmt.Fprintf(&b, "<circle cx=\"%.2f\" cy=\"%.2f\" r=\"%.2f\" fill=\"none\" stroke=\"#cbd5f5\" stroke-width=\"%.2f\"></circle>", cx, cy, (radius+inner)/2, radius-inner)
	}
	angle := -math.Pi / 2
	for i, s := range slices {
		if total <= 0 {
			break
		}
		share := math.Max(s.Value, 0) / total
		if share <= 0 {
			continue
		}
		color := colorAt(s.Color, i)
		if share >= 1-1e-9 {
			fmt.Fprintf(&b, "<circle cx=\"%.2f\" cy=\"%.2f\" r=\"%.2f\" fill=\"none\" stroke=\"%s\" stroke-width=\"%.2f\" aria-label=\"%s\"></circle>", cx, cy, (radius+inner)/2, color, radius-inner, template.HTMLEscapeString(s.Label))
			break
		}
		end := angle + share*2*math.Pi
		large := 0
		if share > 0.5 {
			large = 1
		}
		x1, y1 := cx+radius*math.Cos(angle), cy+radius*math.Sin(angle)
		x2, y2 := cx+radius*math.Cos(end), cy+radius*math.Sin(end)
		x3, y3 := cx+inner*math.Cos(end), cy+inner*math.Sin(end)
		x4, y4 := cx+inner*math.Cos(angle), cy+inner*math.Sin(angle)
		fmt.Fprintf(&b, "<path d=\"M%.2f %.2f A%.2f %.2f 0 %d 1 %.2f %.2f L%.2f %.2f A%.2f %.2f 0 %d 0 %.2f %.2f Z\" fill=\"%s\" aria-label=\"%s\"><title>%s %.1f%%</title></path>",
			x1, y1, radius, radius, large, x2, y2, x3, y3, inner, inner, large, x4, y4, color,
			template.HTMLEscapeString(s.Label), template.HTMLEscapeString(s.Label), share*100)
		angle = end
	}

	legendX := cx + radius + 24
	legendY := cy - float64(len(slices))*9 + 8
	for i, s := range slices {
		share := 0.0
		if total > 0 {
			share = math.Max(s.Value, 0) / total * 100
		}
		y := legendY + float64(i)*18
		fmt.Fprintf(&b, "<rect x=\"%.2f\" y=\"%.2f\" width=\"10\" height=\"10\" fill=\"%s\"></rect>", legendX, y-8, colorAt(s.Color, i))
		fmt.Fprintf(&b, "<text x=\"%.2f\" y=\"%.2f\" fill=\"%s\" font-size=\"11\" text-anchor=\"start\">%s %.1f%%</text>", legendX+16, y+1, textColor, template.HTMLEscapeString(s.Label), share)
	}

	b.WriteString("</svg>")
	return template.HTML(b.String()), nil
}
