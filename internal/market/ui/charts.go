package ui

import (
	"fmt"
	"html/template"

	"github.com/fanmetrics/fanmetrics/internal/market"
	"github.com/fanmetrics/fanmetrics/internal/market/svg"
)

const (
	chartWidth      = svg.DefaultWidth
	chartHeight     = svg.DefaultHeight
	maxAxisLabels   = 12
	projectionTrail = 12
)

// BuildViewModel renders every chart of the dashboard. Charts whose data
// is empty under the current filters are left out.
func BuildViewModel(dash market.Dashboard, r Renderers) (DashboardViewModel, error) {
	if !r.Complete() {
		return DashboardViewModel{}, fmt.Errorf("svg renderer missing")
	}
	colors := make(map[string]string, len(dash.Platforms))
	for _, p := range dash.Platforms {
		colors[p.Name] = p.Color
	}
	vm := DashboardViewModel{
		SessionID:   dash.SessionID,
		GeneratedAt: dash.GeneratedAt,
		RefreshedAt: dash.RefreshedAt,
		Ticks:       dash.Ticks,
		Filters:     ToFilters(dash.Filters, dash.Platforms, dash.Categories),
		KPIs:        ToKPICards(dash.Overview),
		Platforms:   ToPlatformRows(dash.PlatformTable),
		TopEarners:  ToCreatorRows(dash.TopEarners, colors),
		CreatorRows: len(dash.Creators),
		Regulation:  dash.Regulation,
	}

	b := &chartBuilder{r: r, colors: colors}
	vm.Sections = []Section{
		b.marketSection(dash),
		b.creatorSection(dash),
		b.trendSection(dash),
		b.riskSection(dash),
	}
	if b.err != nil {
		return DashboardViewModel{}, b.err
	}
	return vm, nil
}

type chartBuilder struct {
	r      Renderers
	colors map[string]string
	err    error
}

func (b *chartBuilder) add(s *Section, id, title string, render func() (template.HTML, error)) {
	if b.err != nil {
		return
	}
	html, err := render()
	if err != nil {
		b.err = fmt.Errorf("render %s: %w", id, err)
		return
	}
	s.Charts = append(s.Charts, Chart{ID: id, Title: title, SVG: html})
}

func (b *chartBuilder) marketSection(dash market.Dashboard) Section {
	s := Section{ID: "market", Title: "Revenue & market share"}
	if len(dash.Latest) == 0 {
		return s
	}
	var (
		slices   []svg.Slice
		names    []string
		revenue  []float64
		users    []float64
		creators []float64
	)
	for _, p := range dash.Latest {
		slices = append(slices, svg.Slice{Label: p.Platform, Color: b.colors[p.Platform], Value: p.MarketShare})
		names = append(names, p.Platform)
		revenue = append(revenue, p.RevenueMillions)
		users = append(users, p.MonthlyUsers)
		creators = append(creators, p.CreatorsCount)
	}
	b.add(&s, "share", "Market share", func() (template.HTML, error) {
		return b.r.Donut.Donut(chartWidth, chartHeight, slices, svg.DonutOpts{Title: "Market share", Description: "Share of monthly revenue in the latest month"})
	})
	b.add(&s, "revenue", "Revenue by platform (M$)", func() (template.HTML, error) {
		return b.r.Bar.Bars(chartWidth, chartHeight, []svg.Series{{Name: "Revenue", Color: "#2563eb", Values: revenue}}, names, svg.BarOpts{Title: "Revenue by platform", Description: "Monthly revenue in millions, latest month"})
	})
	b.add(&s, "users", "Monthly users", func() (template.HTML, error) {
		series, labels := ToSeries(dash.UserSeries, b.colors)
		return b.r.Line.Line(chartWidth, chartHeight, series, labels, svg.LineOpts{Title: "Monthly users", Description: "Users per platform over time", MaxLabels: maxAxisLabels})
	})
	b.add(&s, "users-latest", "Users by platform", func() (template.HTML, error) {
		return b.r.Bar.Bars(chartWidth, chartHeight, []svg.Series{{Name: "Users", Color: "#0891b2", Values: users}}, names, svg.BarOpts{Title: "Users by platform", Description: "Monthly users, latest month"})
	})
	b.add(&s, "creators", "Creators", func() (template.HTML, error) {
		series, labels := ToSeries(dash.CreatorSeries, b.colors)
		return b.r.Line.Line(chartWidth, chartHeight, series, labels, svg.LineOpts{Title: "Creators", Description: "Creator accounts per platform over time", MaxLabels: maxAxisLabels})
	})
	b.add(&s, "creators-latest", "Creators by platform", func() (template.HTML, error) {
		return b.r.Bar.Bars(chartWidth, chartHeight, []svg.Series{{Name: "Creators", Color: "#16a34a", Values: creators}}, names, svg.BarOpts{Title: "Creators by platform", Description: "Creator accounts, latest month"})
	})
	return s
}

func (b *chartBuilder) creatorSection(dash market.Dashboard) Section {
	s := Section{ID: "creators", Title: "Creator analysis"}
	if len(dash.Creators) == 0 {
		return s
	}
	b.add(&s, "top-earners", "Top earners", func() (template.HTML, error) {
		labels := make([]string, 0, len(dash.TopEarners))
		values := make([]float64, 0, len(dash.TopEarners))
		for _, c := range dash.TopEarners {
			labels = append(labels, c.Username)
			values = append(values, c.MonthlyEarnings)
		}
		return b.r.Bar.HBars(chartWidth, chartHeight+80, svg.Series{Name: "Monthly earnings", Color: "#db2777", Values: values}, labels, svg.BarOpts{Title: "Top earners", Description: "Highest monthly earnings in the panel"})
	})
	b.add(&s, "earnings-histogram", "Earnings distribution", func() (template.HTML, error) {
		labels := make([]string, 0, len(dash.Histogram))
		counts := make([]float64, 0, len(dash.Histogram))
		for _, bin := range dash.Histogram {
			labels = append(labels, fmt.Sprintf("%.0f", bin.Lower))
			counts = append(counts, float64(bin.Count))
		}
		return b.r.Bar.Bars(chartWidth, chartHeight, []svg.Series{{Name: "Creators", Color: "#9333ea", Values: counts}}, labels, svg.BarOpts{Title: "Earnings distribution", Description: "Creators per monthly earnings bucket", MaxLabels: 10})
	})
	b.add(&s, "category-earnings", "Mean earnings by category", func() (template.HTML, error) {
		labels, means, _ := breakdownColumns(dash.CategoryMix)
		return b.r.Bar.Bars(chartWidth, chartHeight, []svg.Series{{Name: "Mean earnings", Color: "#f97316", Values: means}}, labels, svg.BarOpts{Title: "Mean earnings by category"})
	})
	b.add(&s, "category-mix", "Creators by category", func() (template.HTML, error) {
		labels, _, counts := breakdownColumns(dash.CategoryMix)
		slices := make([]svg.Slice, 0, len(labels))
		for i, l := range labels {
			slices = append(slices, svg.Slice{Label: l, Value: counts[i]})
		}
		return b.r.Donut.Donut(chartWidth, chartHeight, slices, svg.DonutOpts{Title: "Creators by category"})
	})
	b.add(&s, "country-earnings", "Mean earnings by country", func() (template.HTML, error) {
		labels, means, counts := breakdownColumns(dash.CountryMix)
		return b.r.Bar.Bars(chartWidth, chartHeight, []svg.Series{
			{Name: "Mean earnings", Color: "#ca8a04", Values: means},
			{Name: "Creators", Color: "#0891b2", Values: counts},
		}, labels, svg.BarOpts{Title: "Creators by country"})
	})
	b.add(&s, "correlation", "Metric correlations", func() (template.HTML, error) {
		m := dash.Correlation
		return b.r.Heatmap.Heatmap(chartWidth, chartHeight+60, m.Labels, m.Labels, m.Values, svg.HeatmapOpts{Title: "Metric correlations", Description: "Pearson coefficients between creator metrics", Min: -1, Max: 1, LowColor: "#dc2626", HighColor: "#2563eb"})
	})
	return s
}

func (b *chartBuilder) trendSection(dash market.Dashboard) Section {
	s := Section{ID: "trends", Title: "Trends & projections"}
	if len(dash.History) == 0 {
		return s
	}
	b.add(&s, "cumulative", "Cumulative revenue (M$)", func() (template.HTML, error) {
		series, labels := ToSeries(dash.Cumulative, b.colors)
		return b.r.Line.Line(chartWidth, chartHeight, series, labels, svg.LineOpts{Title: "Cumulative revenue", MaxLabels: maxAxisLabels})
	})
	b.add(&s, "growth", "Monthly revenue growth (%)", func() (template.HTML, error) {
		series, labels := ToSeries(dash.Growth, b.colors)
		return b.r.Line.Line(chartWidth, chartHeight, series, labels, svg.LineOpts{Title: "Monthly revenue growth", MaxLabels: maxAxisLabels})
	})
	if len(dash.Projections) > 0 {
		b.add(&s, "projections", "Revenue projection (M$)", func() (template.HTML, error) {
			series, labels, split := projectionSeries(dash.RevenueSeries, dash.Projections, b.colors)
			return b.r.Line.Line(chartWidth, chartHeight, series, labels, svg.LineOpts{Title: "Revenue projection", Description: "Recent revenue followed by the projected months", SplitAt: split, MaxLabels: maxAxisLabels})
		})
	}
	b.add(&s, "seasonality", "Seasonality (mean M$ per month)", func() (template.HTML, error) {
		series, labels := ToSeries(dash.Seasonality, b.colors)
		return b.r.Line.Line(chartWidth, chartHeight, series, labels, svg.LineOpts{Title: "Seasonality", ShowDots: true})
	})
	return s
}

func (b *chartBuilder) riskSection(dash market.Dashboard) Section {
	s := Section{ID: "risk", Title: "Risk & regulation"}
	if len(dash.Risks) > 0 {
		b.add(&s, "risk", "Risk by platform", func() (template.HTML, error) {
			series, labels := riskSeries(dash.Risks)
			return b.r.Bar.Bars(chartWidth, chartHeight, series, labels, svg.BarOpts{Title: "Risk by platform", Description: "Risk score per type, 0 to 1"})
		})
	}
	if len(dash.Regulation) > 0 {
		b.add(&s, "regulation", "Regulatory impact", func() (template.HTML, error) {
			labels := make([]string, 0, len(dash.Regulation))
			values := make([]float64, 0, len(dash.Regulation))
			for _, f := range dash.Regulation {
				labels = append(labels, f.Name)
				values = append(values, f.Impact)
			}
			return b.r.Bar.HBars(chartWidth, chartHeight, svg.Series{Name: "Impact", Color: "#dc2626", Values: values}, labels, svg.BarOpts{Title: "Regulatory impact"})
		})
	}
	return s
}

func breakdownColumns(rows []market.Breakdown) ([]string, []float64, []float64) {
	labels := make([]string, 0, len(rows))
	means := make([]float64, 0, len(rows))
	counts := make([]float64, 0, len(rows))
	for _, r := range rows {
		labels = append(labels, r.Key)
		means = append(means, r.MeanEarnings)
		counts = append(counts, float64(r.Count))
	}
	return labels, means, counts
}

// projectionSeries joins the trailing revenue history with the projection
// of each platform. The returned index is where projected values start.
func projectionSeries(history []market.PlatformSeries, projections []market.ProjectionPoint, colors map[string]string) ([]svg.Series, []string, int) {
	byPlatform := make(map[string][]market.ProjectionPoint)
	var order []string
	for _, p := range projections {
		if _, ok := byPlatform[p.Platform]; !ok {
			order = append(order, p.Platform)
		}
		byPlatform[p.Platform] = append(byPlatform[p.Platform], p)
	}
	hist := make(map[string]market.PlatformSeries, len(history))
	for _, h := range history {
		hist[h.Platform] = h
	}

	var (
		labels []string
		split  int
		out    []svg.Series
	)
	for _, name := range order {
		h := hist[name]
		start := len(h.Values) - projectionTrail
		if start < 0 {
			start = 0
		}
		values := append([]float64(nil), h.Values[start:]...)
		if labels == nil {
			labels = append(labels, h.Labels[start:]...)
			split = len(labels)
			for _, p := range byPlatform[name] {
				labels = append(labels, p.Date.Format("2006-01"))
			}
		}
		for _, p := range byPlatform[name] {
			values = append(values, p.RevenueMillions)
		}
		out = append(out, svg.Series{Name: name, Color: colors[name], Values: values})
	}
	return out, labels, split
}

func riskSeries(scores []market.RiskScore) ([]svg.Series, []string) {
	var (
		labels []string
		types  []string
		seen   = make(map[string]bool)
		index  = make(map[string]int)
		values = make(map[string][]float64)
	)
	for _, s := range scores {
		if !seen[s.Platform] {
			seen[s.Platform] = true
			index[s.Platform] = len(labels)
			labels = append(labels, s.Platform)
		}
		if _, ok := values[s.RiskType]; !ok {
			types = append(types, s.RiskType)
			values[s.RiskType] = nil
		}
	}
	for _, t := range types {
		values[t] = make([]float64, len(labels))
	}
	for _, s := range scores {
		values[s.RiskType][index[s.Platform]] = s.Score
	}
	out := make([]svg.Series, 0, len(types))
	for _, t := range types {
		out = append(out, svg.Series{Name: t, Values: values[t]})
	}
	return out, labels
}
