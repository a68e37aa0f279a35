package svg

import (
	"strings"
	"testing"
)

func TestBarsProducesSVG(t *testing.T) {
	html, err := Bars(420, 220, []Series{
		{Name: "Users", Values: []float64{500, 600}},
		{Name: "Creators", Values: []float64{300, 320}},
	}, []string{"OnlyFans", "Fansly"}, BarOpts{
		Title:       "Platforms",
		Description: "Latest platform figures",
	})
	if err != nil {
		t.Fatalf("bars renderer error: %v", err)
	}
	output := string(html)
	if !strings.HasPrefix(output, "<svg") {
		t.Fatalf("expected svg output, got %s", output)
	}
	if got := strings.Count(output, "<rect"); got < 4 {
		t.Fatalf("expected at least 4 rect bars, got %d", got)
	}
	if !strings.Contains(output, "Creators") {
		t.Fatalf("expected legend label")
	}
}

func TestBarsHandlesNegativeValues(t *testing.T) {
	html, err := Bars(420, 220, []Series{{Name: "Growth", Values: []float64{-20, 35}}}, []string{"Jan", "Feb"}, BarOpts{})
	if err != nil {
		t.Fatalf("bars renderer error: %v", err)
	}
	if strings.Contains(string(html), "height=\"-") {
		t.Fatalf("negative bar height rendered")
	}
}

func TestHBarsProducesSVG(t *testing.T) {
	html, err := HBars(400, 200, Series{Name: "Impact", Color: "#dc2626", Values: []float64{0.85, 0.5}}, []string{"Legal compliance", "Taxation"}, BarOpts{Title: "Regulation"})
	if err != nil {
		t.Fatalf("hbars renderer error: %v", err)
	}
	output := string(html)
	if !strings.Contains(output, "Legal compliance") || !strings.Contains(output, "#dc2626") {
		t.Fatalf("expected labels and color, got %s", output)
	}
}
