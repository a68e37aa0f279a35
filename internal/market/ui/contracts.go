package ui

import (
	"html/template"
	"net/url"
	"strconv"
	"time"

	"github.com/fanmetrics/fanmetrics/internal/market"
	"github.com/fanmetrics/fanmetrics/internal/market/svg"
)

// FilterOption is one checkbox of the sidebar.
type FilterOption struct {
	Value    string
	Color    string
	Selected bool
}

// DashboardFilters is the sanitised sidebar state.
type DashboardFilters struct {
	Platforms       []FilterOption
	Categories      []FilterOption
	MinEarnings     float64
	MaxEarnings     float64
	AutoRefresh     bool
	ShowProjections bool
	Query           string
}

// KPICard is one headline metric.
type KPICard struct {
	Label string
	Value float64
	Unit  string
	Hint  string
}

// PlatformRow is a row of the platform comparison table.
type PlatformRow struct {
	Name               string
	Color              string
	Founded            int
	FeePercent         float64
	ContentType        string
	MonthlyUsers       float64
	CreatorsCount      float64
	RevenueMillions    float64
	MarketShare        float64
	AvgCreatorEarnings float64
}

// CreatorRow is a row of the top earners table.
type CreatorRow struct {
	Username        string
	Platform        string
	Color           string
	Category        string
	Country         string
	MonthlyEarnings float64
	Followers       int
	EngagementRate  float64
}

// Chart is a rendered SVG with its section heading.
type Chart struct {
	ID    string
	Title string
	SVG   template.HTML
}

// Section groups the charts of one dashboard tab.
type Section struct {
	ID     string
	Title  string
	Charts []Chart
}

// DashboardViewModel combines all dashboard data for rendering.
type DashboardViewModel struct {
	SessionID   string
	GeneratedAt time.Time
	RefreshedAt time.Time
	Ticks       uint64
	Filters     DashboardFilters
	KPIs        []KPICard
	Platforms   []PlatformRow
	TopEarners  []CreatorRow
	Sections    []Section
	CreatorRows int
	Regulation  []market.RegulationFactor
}

// LineRenderer abstracts SVG line chart rendering for the dashboard.
type LineRenderer interface {
	Line(width, height int, series []svg.Series, labels []string, opts svg.LineOpts) (template.HTML, error)
}

// BarRenderer abstracts SVG bar chart rendering for the dashboard.
type BarRenderer interface {
	Bars(width, height int, series []svg.Series, labels []string, opts svg.BarOpts) (template.HTML, error)
	HBars(width, height int, series svg.Series, labels []string, opts svg.BarOpts) (template.HTML, error)
}

// DonutRenderer abstracts SVG donut chart rendering for the dashboard.
type DonutRenderer interface {
	Donut(width, height int, slices []svg.Slice, opts svg.DonutOpts) (template.HTML, error)
}

// HeatmapRenderer abstracts SVG heatmap rendering for the dashboard.
type HeatmapRenderer interface {
	Heatmap(width, height int, rowLabels, colLabels []string, values [][]float64, opts svg.HeatmapOpts) (template.HTML, error)
}

// Renderers bundles every chart renderer the dashboard needs.
type Renderers struct {
	Line    LineRenderer
	Bar     BarRenderer
	Donut   DonutRenderer
	Heatmap HeatmapRenderer
}

// Complete reports whether every renderer is set.
func (r Renderers) Complete() bool {
	return r.Line != nil && r.Bar != nil && r.Donut != nil && r.Heatmap != nil
}

// ToFilters marks the selected options against the catalog and category set.
func ToFilters(f market.Filters, platforms []market.Platform, categories []string) DashboardFilters {
	selectedPlatforms := make(map[string]bool, len(f.Platforms))
	for _, p := range f.Platforms {
		selectedPlatforms[p] = true
	}
	selectedCategories := make(map[string]bool, len(f.Categories))
	for _, c := range f.Categories {
		selectedCategories[c] = true
	}
	out := DashboardFilters{
		MinEarnings:     f.MinEarnings,
		MaxEarnings:     f.MaxEarnings,
		AutoRefresh:     f.AutoRefresh,
		ShowProjections: f.ShowProjections,
		Query:           EncodeFilters(f),
	}
	for _, p := range platforms {
		out.Platforms = append(out.Platforms, FilterOption{Value: p.Name, Color: p.Color, Selected: selectedPlatforms[p.Name]})
	}
	for _, c := range categories {
		out.Categories = append(out.Categories, FilterOption{Value: c, Selected: selectedCategories[c]})
	}
	return out
}

// EncodeFilters renders filters back into the dashboard query string.
func EncodeFilters(f market.Filters) string {
	q := url.Values{}
	for _, p := range f.Platforms {
		q.Add("platform", p)
	}
	for _, c := range f.Categories {
		q.Add("category", c)
	}
	if f.MinEarnings > 0 {
		q.Set("min_earnings", strconv.FormatFloat(f.MinEarnings, 'f', -1, 64))
	}
	if f.MaxEarnings > 0 {
		q.Set("max_earnings", strconv.FormatFloat(f.MaxEarnings, 'f', -1, 64))
	}
	q.Set("auto_refresh", strconv.FormatBool(f.AutoRefresh))
	q.Set("projections", strconv.FormatBool(f.ShowProjections))
	return q.Encode()
}

// ToKPICards converts the overview into headline cards.
func ToKPICards(ov market.Overview) []KPICard {
	return []KPICard{
		{Label: "Total revenue", Value: ov.TotalRevenueMillions, Unit: "M$", Hint: "Latest month, all platforms"},
		{Label: "Creators", Value: ov.TotalCreators, Hint: "Active creator accounts"},
		{Label: "Monthly users", Value: ov.TotalUsers, Hint: "Across the catalog"},
		{Label: "Avg creator earnings", Value: ov.AvgCreatorEarnings, Unit: "$", Hint: "Sample panel mean"},
	}
}

// ToPlatformRows converts the platform table.
func ToPlatformRows(rows []market.PlatformRow) []PlatformRow {
	out := make([]PlatformRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, PlatformRow{
			Name:               r.Name,
			Color:              r.Color,
			Founded:            r.Founded,
			FeePercent:         r.FeePercent,
			ContentType:        r.ContentType,
			MonthlyUsers:       r.MonthlyUsers,
			CreatorsCount:      r.CreatorsCount,
			RevenueMillions:    r.RevenueMillions,
			MarketShare:        r.MarketShare,
			AvgCreatorEarnings: r.AvgCreatorEarnings,
		})
	}
	return out
}

// ToCreatorRows converts creators for the top earners table.
func ToCreatorRows(creators []market.CreatorRecord, colors map[string]string) []CreatorRow {
	out := make([]CreatorRow, 0, len(creators))
	for _, c := range creators {
		out = append(out, CreatorRow{
			Username:        c.Username,
			Platform:        c.Platform,
			Color:           colors[c.Platform],
			Category:        c.Category,
			Country:         c.Country,
			MonthlyEarnings: c.MonthlyEarnings,
			Followers:       c.Followers,
			EngagementRate:  c.EngagementRate,
		})
	}
	return out
}

// ToSeries attaches catalog colors to platform series.
func ToSeries(series []market.PlatformSeries, colors map[string]string) ([]svg.Series, []string) {
	out := make([]svg.Series, 0, len(series))
	var labels []string
	for _, s := range series {
		if len(s.Labels) > len(labels) {
			labels = s.Labels
		}
		out = append(out, svg.Series{Name: s.Platform, Color: colors[s.Platform], Values: s.Values})
	}
	return out, labels
}
